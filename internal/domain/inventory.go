package domain

import (
	"time"

	"github.com/google/uuid"
)

type InventoryReason string

const (
	InventoryReasonSale   InventoryReason = "sale"
	InventoryReasonReturn InventoryReason = "return"
	InventoryReasonManual InventoryReason = "manual"
)

// InventoryLogEntry is an append-only audit row. Chaining all entries for a
// variant in order reconstructs its current stock; rows are never updated or
// deleted.
type InventoryLogEntry struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey"`
	VariantID    uuid.UUID       `gorm:"type:uuid;index"`
	Delta        int             `gorm:"not null"`
	Reason       InventoryReason `gorm:"type:varchar(10);not null"`
	ReferenceID  *uuid.UUID      `gorm:"type:uuid;index"`
	PrevQuantity int             `gorm:"not null"`
	NewQuantity  int             `gorm:"not null"`
	Actor        string          `gorm:"size:140"`
	CreatedAt    time.Time
}
