package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vendora/bazaar/internal/domain"
)

type ShippingRepo struct{ db *gorm.DB }

func NewShippingRepo(db *gorm.DB) *ShippingRepo { return &ShippingRepo{db: db} }

func (r *ShippingRepo) FindTrackingByOrder(ctx context.Context, orderID uuid.UUID) (*domain.Tracking, error) {
	var t domain.Tracking
	if err := r.db.WithContext(ctx).First(&t, "order_id = ?", orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (r *ShippingRepo) SaveTracking(ctx context.Context, t *domain.Tracking) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Save(t).Error
}

func (r *ShippingRepo) AppendUpdate(ctx context.Context, u *domain.TrackingUpdate) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(u).Error
}

func (r *ShippingRepo) FindReturn(ctx context.Context, id uuid.UUID) (*domain.ReturnRequest, error) {
	var rr domain.ReturnRequest
	if err := r.db.WithContext(ctx).First(&rr, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &rr, nil
}

func (r *ShippingRepo) FindReturnByItem(ctx context.Context, orderItemID uuid.UUID) (*domain.ReturnRequest, error) {
	var rr domain.ReturnRequest
	if err := r.db.WithContext(ctx).First(&rr, "order_item_id = ?", orderItemID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &rr, nil
}

func (r *ShippingRepo) SaveReturn(ctx context.Context, rr *domain.ReturnRequest) error {
	if rr.ID == uuid.Nil {
		rr.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Save(rr).Error
}
