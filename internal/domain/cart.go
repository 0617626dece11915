package domain

import (
	"time"

	"github.com/google/uuid"
)

// CartItem is one (user, variant) line. The pair is unique; adding the same
// variant again bumps the quantity instead of creating a second row.
type CartItem struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID `gorm:"type:uuid;index:idx_cart_user_variant,unique"`
	VariantID uuid.UUID `gorm:"type:uuid;index:idx_cart_user_variant,unique"`
	Quantity  int       `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CartLine is a cart item with its price and MOQ resolved at read time.
// Nothing here is persisted; the frozen snapshot happens at checkout.
type CartLine struct {
	Item     CartItem
	Variant  Variant
	Product  Product
	Quote    PriceQuote
	MOQ      MOQResolution
	Subtotal float64
	InStock  bool
	MeetsMOQ bool
}

type PricedCart struct {
	Lines    []CartLine
	Subtotal float64
}
