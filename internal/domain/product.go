package domain

import (
	"time"

	"github.com/google/uuid"
)

type Product struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	VendorID  uuid.UUID `gorm:"type:uuid;index"`
	Slug      string    `gorm:"uniqueIndex;size:140"`
	Name      string    `gorm:"size:180"`
	Category  string    `gorm:"size:100"`
	ShortDesc string    `gorm:"type:text"`
	Active    bool      `gorm:"default:true;index"`
	Variants  []Variant
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Variant struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	ProductID uuid.UUID `gorm:"type:uuid;index"`
	SKU       string    `gorm:"size:100;index"`
	Price     float64   `gorm:"type:decimal(12,2);not null"`
	SalePrice *float64  `gorm:"type:decimal(12,2)"`
	Stock     int       `gorm:"type:int;default:0"`
	Active    bool      `gorm:"default:true"`
	WeightKG  float64   `gorm:"type:decimal(8,3);default:0"`
	WidthCM   float64   `gorm:"type:decimal(8,2);default:0"`
	HeightCM  float64   `gorm:"type:decimal(8,2);default:0"`
	DepthCM   float64   `gorm:"type:decimal(8,2);default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// BasePrice is the starting point of price resolution: the sale price when
// set, the list price otherwise.
func (v *Variant) BasePrice() float64 {
	if v.SalePrice != nil {
		return *v.SalePrice
	}
	return v.Price
}
