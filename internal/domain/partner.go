package domain

import (
	"time"

	"github.com/google/uuid"
)

// Partner is a referral/affiliate partner paid a commission on delivered
// orders that used one of its promotional codes.
type Partner struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name          string    `gorm:"size:140"`
	Email         string    `gorm:"size:140;uniqueIndex"`
	CommissionPct float64   `gorm:"type:decimal(5,2);not null"`
	Active        bool      `gorm:"default:true"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type PromoCode struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	Code        string    `gorm:"uniqueIndex;size:40"`
	DiscountPct float64   `gorm:"type:decimal(5,2);default:0"`
	Active      bool      `gorm:"default:true"`
	Partners    []Partner `gorm:"many2many:promo_code_partners;"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// PartnerEarning is created at most once per (order, partner). The live path
// guards with an existence check inside the delivery transaction; migration
// adds a unique index as a second line of defense.
type PartnerEarning struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	PartnerID     uuid.UUID `gorm:"type:uuid;index:idx_earning_order_partner,unique"`
	OrderID       uuid.UUID `gorm:"type:uuid;index:idx_earning_order_partner,unique"`
	PromoCodeID   uuid.UUID `gorm:"type:uuid;index"`
	Amount        float64   `gorm:"type:decimal(12,2);not null"`
	CommissionPct float64   `gorm:"type:decimal(5,2);not null"`
	CreatedAt     time.Time
}
