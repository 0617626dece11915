package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vendora/bazaar/internal/domain"
)

type InventoryRepo struct{ db *gorm.DB }

func NewInventoryRepo(db *gorm.DB) *InventoryRepo { return &InventoryRepo{db: db} }

func (r *InventoryRepo) VariantStock(ctx context.Context, variantID uuid.UUID) (int, error) {
	var v domain.Variant
	if err := r.db.WithContext(ctx).Select("stock").First(&v, "id = ?", variantID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, domain.ErrNotFound
		}
		return 0, err
	}
	return v.Stock, nil
}

// ApplyStockDelta is the single write path for variant stock. The guard in
// the WHERE clause makes a negative result impossible regardless of
// concurrent callers.
func (r *InventoryRepo) ApplyStockDelta(ctx context.Context, variantID uuid.UUID, delta int) (bool, error) {
	res := r.db.WithContext(ctx).Model(&domain.Variant{}).
		Where("id = ? AND stock + ? >= 0", variantID, delta).
		UpdateColumn("stock", gorm.Expr("stock + ?", delta))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *InventoryRepo) AppendLog(ctx context.Context, entry *domain.InventoryLogEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *InventoryRepo) ListLog(ctx context.Context, variantID *uuid.UUID) ([]domain.InventoryLogEntry, error) {
	q := r.db.WithContext(ctx).Order("created_at asc")
	if variantID != nil {
		q = q.Where("variant_id = ?", variantID)
	}
	var entries []domain.InventoryLogEntry
	if err := q.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
