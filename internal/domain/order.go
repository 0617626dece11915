package domain

import (
	"time"

	"github.com/google/uuid"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "PENDING"
	OrderStatusProcessing OrderStatus = "PROCESSING"
	OrderStatusPaid       OrderStatus = "PAID"
	OrderStatusShipped    OrderStatus = "SHIPPED"
	OrderStatusDelivered  OrderStatus = "DELIVERED"
	OrderStatusCancelled  OrderStatus = "CANCELLED"
	OrderStatusRefunded   OrderStatus = "REFUNDED"
)

func (s OrderStatus) String() string { return string(s) }

// transitions is the full legal transition table. REFUNDED is terminal.
var transitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusProcessing, OrderStatusPaid, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusPaid, OrderStatusCancelled, OrderStatusShipped},
	OrderStatusPaid:       {OrderStatusProcessing, OrderStatusShipped, OrderStatusCancelled, OrderStatusRefunded},
	OrderStatusShipped:    {OrderStatusDelivered, OrderStatusCancelled, OrderStatusProcessing},
	OrderStatusDelivered:  {OrderStatusRefunded},
	OrderStatusCancelled:  {OrderStatusRefunded},
	OrderStatusRefunded:   {},
}

// CanTransitionTo reports whether target is a legal next status. Every status
// change in the system must pass this gate before any side effect runs.
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	for _, t := range transitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

func (s OrderStatus) IsTerminal() bool { return len(transitions[s]) == 0 }

// Order monetary fields are a frozen snapshot taken at creation time. They
// are never recomputed from live catalog prices.
type Order struct {
	ID             uuid.UUID   `gorm:"type:uuid;primaryKey"`
	OrderNumber    string      `gorm:"uniqueIndex;size:40"`
	UserID         uuid.UUID   `gorm:"type:uuid;index"`
	Status         OrderStatus `gorm:"type:varchar(20);index"`
	Items          []OrderItem
	Subtotal       float64    `gorm:"type:decimal(12,2);default:0"`
	Tax            float64    `gorm:"type:decimal(12,2);default:0"`
	ShippingCost   float64    `gorm:"type:decimal(12,2);default:0"`
	Discount       float64    `gorm:"type:decimal(12,2);default:0"`
	Total          float64    `gorm:"type:decimal(12,2);default:0"`
	PromoCodeID    *uuid.UUID `gorm:"type:uuid;index"`
	AddressID      *uuid.UUID `gorm:"type:uuid"`
	CarrierOrderID string     `gorm:"size:80"`
	ShipmentID     string     `gorm:"size:80"`
	CancelReason   string     `gorm:"size:255"`
	CancelledAt    *time.Time
	RefundID       string `gorm:"size:80"`
	RefundedAt     *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// OrderItem freezes the unit price resolved at order creation. PriceSource
// records where the price came from for later reconciliation.
type OrderItem struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	OrderID     uuid.UUID `gorm:"type:uuid;index"`
	VariantID   uuid.UUID `gorm:"type:uuid;index"`
	ProductID   uuid.UUID `gorm:"type:uuid;index"`
	Title       string    `gorm:"size:180"`
	SKU         string    `gorm:"size:100"`
	Quantity    int       `gorm:"not null"`
	UnitPrice   float64   `gorm:"type:decimal(12,2);not null"`
	Subtotal    float64   `gorm:"type:decimal(12,2);not null"`
	PriceSource string    `gorm:"size:20"`
	CreatedAt   time.Time
}

type ReturnStatus string

const (
	ReturnStatusRequested ReturnStatus = "REQUESTED"
	ReturnStatusApproved  ReturnStatus = "APPROVED"
	ReturnStatusRejected  ReturnStatus = "REJECTED"
)

// ReturnRequest: zero or one per order item.
type ReturnRequest struct {
	ID          uuid.UUID    `gorm:"type:uuid;primaryKey"`
	OrderItemID uuid.UUID    `gorm:"type:uuid;uniqueIndex"`
	OrderID     uuid.UUID    `gorm:"type:uuid;index"`
	Status      ReturnStatus `gorm:"type:varchar(12);index"`
	Reason      string       `gorm:"size:255"`
	ResolvedBy  string       `gorm:"size:140"`
	ResolvedAt  *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TransitionContext carries caller-supplied data into a status transition.
type TransitionContext struct {
	Actor          string
	TrackingNumber string
	CarrierName    string
	CancelReason   string
	RefundReason   string
}
