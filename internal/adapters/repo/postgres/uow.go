package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/vendora/bazaar/internal/domain"
)

// repoSet binds every repository to one *gorm.DB, which is either the root
// connection (plain reads) or a transaction handle inside UnitOfWork.Do.
type repoSet struct{ db *gorm.DB }

func NewRepoSet(db *gorm.DB) domain.RepoSet { return &repoSet{db: db} }

func (s *repoSet) Products() domain.ProductRepo    { return &ProductRepo{db: s.db} }
func (s *repoSet) Pricing() domain.PricingRepo     { return &PricingRepo{db: s.db} }
func (s *repoSet) MOQ() domain.MOQRepo             { return &MOQRepo{db: s.db} }
func (s *repoSet) Carts() domain.CartRepo          { return &CartRepo{db: s.db} }
func (s *repoSet) Orders() domain.OrderRepo        { return &OrderRepo{db: s.db} }
func (s *repoSet) Inventory() domain.InventoryRepo { return &InventoryRepo{db: s.db} }
func (s *repoSet) Partners() domain.PartnerRepo    { return &PartnerRepo{db: s.db} }
func (s *repoSet) Payments() domain.PaymentRepo    { return &PaymentRepo{db: s.db} }
func (s *repoSet) Shipping() domain.ShippingRepo   { return &ShippingRepo{db: s.db} }

type UnitOfWork struct{ db *gorm.DB }

func NewUnitOfWork(db *gorm.DB) *UnitOfWork { return &UnitOfWork{db: db} }

// Do wraps fn in a single database transaction; the store's isolation level
// is the engine's only concurrency control.
func (u *UnitOfWork) Do(ctx context.Context, fn func(tx domain.RepoSet) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&repoSet{db: tx})
	})
}
