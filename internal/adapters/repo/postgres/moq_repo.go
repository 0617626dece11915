package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vendora/bazaar/internal/domain"
)

type MOQRepo struct{ db *gorm.DB }

func NewMOQRepo(db *gorm.DB) *MOQRepo { return &MOQRepo{db: db} }

func (r *MOQRepo) ActiveSetting(ctx context.Context, scope domain.MOQScope, ref *uuid.UUID) (*domain.MOQSetting, error) {
	q := r.db.WithContext(ctx).Where("scope = ? AND active = ?", scope, true)
	switch scope {
	case domain.MOQScopeVariant:
		q = q.Where("variant_id = ?", ref)
	case domain.MOQScopeProduct:
		q = q.Where("product_id = ?", ref)
	}
	var s domain.MOQSetting
	if err := q.Order("updated_at desc").First(&s).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *MOQRepo) SaveSetting(ctx context.Context, s *domain.MOQSetting) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Save(s).Error
}

func (r *MOQRepo) DeleteSetting(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&domain.MOQSetting{}, "id = ?", id).Error
}
