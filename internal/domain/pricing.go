package domain

import (
	"time"

	"github.com/google/uuid"
)

// PricingSlab is a quantity band with a fixed unit price. A slab is scoped to
// either a product or a single variant; variant slabs override product slabs.
// Bands of the same scope are assumed non-overlapping and ascending by MinQty.
type PricingSlab struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey"`
	ProductID *uuid.UUID `gorm:"type:uuid;index"`
	VariantID *uuid.UUID `gorm:"type:uuid;index"`
	MinQty    int        `gorm:"not null"`
	MaxQty    *int
	UnitPrice float64 `gorm:"type:decimal(12,2);not null"`
	Active    bool    `gorm:"default:true"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Matches reports whether qty falls inside the slab's [MinQty, MaxQty] band.
// A nil MaxQty means the band is open-ended.
func (s *PricingSlab) Matches(qty int) bool {
	if qty < s.MinQty {
		return false
	}
	return s.MaxQty == nil || qty <= *s.MaxQty
}

type FlashSale struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name        string    `gorm:"size:140"`
	DiscountPct float64   `gorm:"type:decimal(5,2);not null"`
	StartsAt    time.Time `gorm:"index"`
	EndsAt      time.Time `gorm:"index"`
	Active      bool      `gorm:"default:true"`
	MaxQuantity int       `gorm:"default:0"`
	SoldCount   int       `gorm:"default:0"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// FlashSaleProduct associates a sale with a product.
type FlashSaleProduct struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	FlashSaleID uuid.UUID `gorm:"type:uuid;index:idx_flash_sale_product,unique"`
	ProductID   uuid.UUID `gorm:"type:uuid;index:idx_flash_sale_product,unique"`
	CreatedAt   time.Time
}

// IsLive reports whether the sale applies at the given instant. The window is
// half-open [StartsAt, EndsAt); a sale with an exhausted quantity cap is over.
func (f *FlashSale) IsLive(now time.Time) bool {
	if !f.Active {
		return false
	}
	if now.Before(f.StartsAt) || !now.Before(f.EndsAt) {
		return false
	}
	if f.MaxQuantity > 0 && f.SoldCount >= f.MaxQuantity {
		return false
	}
	return true
}

type PriceSource string

const (
	PriceSourceDefault     PriceSource = "DEFAULT"
	PriceSourceVariantSlab PriceSource = "VARIANT_SLAB"
	PriceSourceProductSlab PriceSource = "PRODUCT_SLAB"
	PriceSourceFlashSale   PriceSource = "FLASH_SALE"
)

// PriceQuote is the result of resolving the effective unit price for a
// variant at a quantity. OriginalPrice holds the pre-discount price when a
// flash sale applied on top of the slab/base price.
type PriceQuote struct {
	UnitPrice     float64
	Source        PriceSource
	Slab          *PricingSlab
	FlashSale     *FlashSale
	OriginalPrice float64
}
