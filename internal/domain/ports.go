package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type ProductRepo interface {
	FindProduct(ctx context.Context, id uuid.UUID) (*Product, error)
	FindProductBySlug(ctx context.Context, slug string) (*Product, error)
	FindVariant(ctx context.Context, id uuid.UUID) (*Variant, error)
	FindVariantBySKU(ctx context.Context, sku string) (*Product, *Variant, error)
	SaveProduct(ctx context.Context, p *Product) error
	SaveVariant(ctx context.Context, v *Variant) error
}

type PricingRepo interface {
	// SlabsFor returns all active slabs scoped to the variant plus all active
	// product-scoped slabs (VariantID null) for its product.
	SlabsFor(ctx context.Context, variantID, productID uuid.UUID) ([]PricingSlab, error)
	// LiveFlashSale returns the live sale associated with the product at the
	// given instant, or ErrNotFound.
	LiveFlashSale(ctx context.Context, productID uuid.UUID, now time.Time) (*FlashSale, error)
	// IncrementSoldCount bumps the sale's sold counter, refusing to exceed the
	// quantity cap. Returns false when the cap would be exceeded.
	IncrementSoldCount(ctx context.Context, saleID uuid.UUID, qty int) (bool, error)
	SaveSlab(ctx context.Context, s *PricingSlab) error
	DeleteSlab(ctx context.Context, id uuid.UUID) error
	SaveFlashSale(ctx context.Context, f *FlashSale) error
	AttachFlashSaleProduct(ctx context.Context, saleID, productID uuid.UUID) error
}

type MOQRepo interface {
	// ActiveSetting returns the active setting at the given scope, scoped to
	// the ref when the scope requires one, or ErrNotFound.
	ActiveSetting(ctx context.Context, scope MOQScope, ref *uuid.UUID) (*MOQSetting, error)
	SaveSetting(ctx context.Context, s *MOQSetting) error
	DeleteSetting(ctx context.Context, id uuid.UUID) error
}

type CartRepo interface {
	ListByUser(ctx context.Context, userID uuid.UUID) ([]CartItem, error)
	Find(ctx context.Context, userID, variantID uuid.UUID) (*CartItem, error)
	Save(ctx context.Context, item *CartItem) error
	Delete(ctx context.Context, userID, variantID uuid.UUID) error
	ClearUser(ctx context.Context, userID uuid.UUID) error
}

type OrderRepo interface {
	Create(ctx context.Context, o *Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)
	FindByNumber(ctx context.Context, number string) (*Order, error)
	Save(ctx context.Context, o *Order) error
	FindItem(ctx context.Context, itemID uuid.UUID) (*OrderItem, error)
	// DeliveredWithPromoAndNoEarnings feeds the commission backfill.
	DeliveredWithPromoAndNoEarnings(ctx context.Context) ([]Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]Order, error)
}

type InventoryRepo interface {
	VariantStock(ctx context.Context, variantID uuid.UUID) (int, error)
	// ApplyStockDelta adjusts stock atomically, refusing to drive it negative.
	// Returns false when the guard rejected the update.
	ApplyStockDelta(ctx context.Context, variantID uuid.UUID, delta int) (bool, error)
	AppendLog(ctx context.Context, entry *InventoryLogEntry) error
	ListLog(ctx context.Context, variantID *uuid.UUID) ([]InventoryLogEntry, error)
}

type PartnerRepo interface {
	FindPromoByCode(ctx context.Context, code string) (*PromoCode, error)
	FindPromoByID(ctx context.Context, id uuid.UUID) (*PromoCode, error)
	EarningsExist(ctx context.Context, orderID uuid.UUID) (bool, error)
	CreateEarnings(ctx context.Context, earnings []PartnerEarning) error
	ListEarnings(ctx context.Context) ([]PartnerEarning, error)
	SavePartner(ctx context.Context, p *Partner) error
	SavePromo(ctx context.Context, c *PromoCode) error
}

type PaymentRepo interface {
	FindByOrder(ctx context.Context, orderID uuid.UUID) (*Payment, error)
	Save(ctx context.Context, p *Payment) error
}

type ShippingRepo interface {
	FindTrackingByOrder(ctx context.Context, orderID uuid.UUID) (*Tracking, error)
	SaveTracking(ctx context.Context, t *Tracking) error
	AppendUpdate(ctx context.Context, u *TrackingUpdate) error
	FindReturn(ctx context.Context, id uuid.UUID) (*ReturnRequest, error)
	FindReturnByItem(ctx context.Context, orderItemID uuid.UUID) (*ReturnRequest, error)
	SaveReturn(ctx context.Context, r *ReturnRequest) error
}

// RepoSet is the full repository surface bound to one transaction.
type RepoSet interface {
	Products() ProductRepo
	Pricing() PricingRepo
	MOQ() MOQRepo
	Carts() CartRepo
	Orders() OrderRepo
	Inventory() InventoryRepo
	Partners() PartnerRepo
	Payments() PaymentRepo
	Shipping() ShippingRepo
}

// UnitOfWork runs fn inside a single database transaction. Every
// state-changing engine operation goes through here; read-then-write
// sequences must not be split across transactions.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(tx RepoSet) error) error
}

type RefundResult struct {
	RefundID string
	Status   string
}

// PaymentGateway is the payment collaborator. Refund is the only external
// call allowed inside a lifecycle transaction: a refund must be confirmed
// before the terminal state commits.
type PaymentGateway interface {
	Capture(ctx context.Context, externalID string) error
	Refund(ctx context.Context, externalID string, amount float64, reason string) (*RefundResult, error)
}

type ShipmentRef struct {
	CarrierOrderID string
	ShipmentID     string
}

type CarrierAssignment struct {
	TrackingNumber string
	CarrierName    string
}

type CarrierEvent struct {
	Status     string
	Location   string
	Note       string
	OccurredAt time.Time
}

// CarrierClient is the shipping collaborator. All calls are best-effort from
// the engine's perspective and must never run inside a lifecycle transaction.
type CarrierClient interface {
	CreateShipment(ctx context.Context, o *Order) (*ShipmentRef, error)
	AssignCarrier(ctx context.Context, shipmentID string) (*CarrierAssignment, error)
	Cancel(ctx context.Context, carrierOrderID string) error
	Track(ctx context.Context, trackingNumber string) ([]CarrierEvent, error)
}
