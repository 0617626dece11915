package domain

import (
	"time"

	"github.com/google/uuid"
)

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "PENDING"
	PaymentStatusCaptured PaymentStatus = "CAPTURED"
	PaymentStatusRefunded PaymentStatus = "REFUNDED"
	PaymentStatusFailed   PaymentStatus = "FAILED"
)

type Payment struct {
	ID         uuid.UUID     `gorm:"type:uuid;primaryKey"`
	OrderID    uuid.UUID     `gorm:"type:uuid;uniqueIndex"`
	ExternalID string        `gorm:"size:80;index"`
	Status     PaymentStatus `gorm:"type:varchar(12);index"`
	Amount     float64       `gorm:"type:decimal(12,2);not null"`
	Method     string        `gorm:"size:30"`
	RefundID   string        `gorm:"size:80"`
	CapturedAt *time.Time
	RefundedAt *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
