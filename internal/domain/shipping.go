package domain

import (
	"time"

	"github.com/google/uuid"
)

// Tracking: one per order.
type Tracking struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	OrderID        uuid.UUID `gorm:"type:uuid;uniqueIndex"`
	TrackingNumber string    `gorm:"size:80;index"`
	CarrierName    string    `gorm:"size:80"`
	Status         string    `gorm:"size:40"`
	DeliveredAt    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// TrackingUpdate is an append-only timeline of carrier status events.
type TrackingUpdate struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	TrackingID uuid.UUID `gorm:"type:uuid;index"`
	Status     string    `gorm:"size:40"`
	Location   string    `gorm:"size:140"`
	Note       string    `gorm:"size:255"`
	OccurredAt time.Time
	CreatedAt  time.Time
}
