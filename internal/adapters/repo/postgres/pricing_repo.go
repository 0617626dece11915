package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vendora/bazaar/internal/domain"
)

type PricingRepo struct{ db *gorm.DB }

func NewPricingRepo(db *gorm.DB) *PricingRepo { return &PricingRepo{db: db} }

func (r *PricingRepo) SlabsFor(ctx context.Context, variantID, productID uuid.UUID) ([]domain.PricingSlab, error) {
	var slabs []domain.PricingSlab
	err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Where("variant_id = ? OR (product_id = ? AND variant_id IS NULL)", variantID, productID).
		Order("min_qty asc").
		Find(&slabs).Error
	if err != nil {
		return nil, err
	}
	return slabs, nil
}

func (r *PricingRepo) LiveFlashSale(ctx context.Context, productID uuid.UUID, now time.Time) (*domain.FlashSale, error) {
	var f domain.FlashSale
	err := r.db.WithContext(ctx).
		Joins("JOIN flash_sale_products fsp ON fsp.flash_sale_id = flash_sales.id").
		Where("fsp.product_id = ?", productID).
		Where("flash_sales.active = ?", true).
		Where("flash_sales.starts_at <= ? AND flash_sales.ends_at > ?", now, now).
		Order("flash_sales.starts_at desc").
		First(&f).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	// window matched but the quantity cap may be exhausted
	if !f.IsLive(now) {
		return nil, domain.ErrNotFound
	}
	return &f, nil
}

func (r *PricingRepo) IncrementSoldCount(ctx context.Context, saleID uuid.UUID, qty int) (bool, error) {
	res := r.db.WithContext(ctx).Model(&domain.FlashSale{}).
		Where("id = ? AND active = ?", saleID, true).
		Where("max_quantity = 0 OR sold_count + ? <= max_quantity", qty).
		UpdateColumn("sold_count", gorm.Expr("sold_count + ?", qty))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *PricingRepo) SaveSlab(ctx context.Context, s *domain.PricingSlab) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Save(s).Error
}

func (r *PricingRepo) DeleteSlab(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&domain.PricingSlab{}, "id = ?", id).Error
}

func (r *PricingRepo) SaveFlashSale(ctx context.Context, f *domain.FlashSale) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Save(f).Error
}

func (r *PricingRepo) AttachFlashSaleProduct(ctx context.Context, saleID, productID uuid.UUID) error {
	link := domain.FlashSaleProduct{ID: uuid.New(), FlashSaleID: saleID, ProductID: productID, CreatedAt: time.Now()}
	err := r.db.WithContext(ctx).Create(&link).Error
	if err != nil && errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil
	}
	return err
}
