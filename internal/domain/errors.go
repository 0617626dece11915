package domain

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrInvalidTransition   = errors.New("invalid order status transition")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrMOQViolation        = errors.New("quantity below minimum order quantity")
	ErrDuplicateCommission = errors.New("commission already created for order")
	ErrCollaborator        = errors.New("external collaborator failure")
	ErrEmptyCart           = errors.New("cart is empty, nothing to checkout")
)
