package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vendora/bazaar/internal/domain"
)

type PartnerRepo struct{ db *gorm.DB }

func NewPartnerRepo(db *gorm.DB) *PartnerRepo { return &PartnerRepo{db: db} }

func (r *PartnerRepo) FindPromoByCode(ctx context.Context, code string) (*domain.PromoCode, error) {
	var c domain.PromoCode
	err := r.db.WithContext(ctx).Preload("Partners").
		Where("LOWER(code) = LOWER(?)", strings.TrimSpace(code)).
		First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *PartnerRepo) FindPromoByID(ctx context.Context, id uuid.UUID) (*domain.PromoCode, error) {
	var c domain.PromoCode
	if err := r.db.WithContext(ctx).Preload("Partners").First(&c, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *PartnerRepo) EarningsExist(ctx context.Context, orderID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.PartnerEarning{}).Where("order_id = ?", orderID).Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *PartnerRepo) CreateEarnings(ctx context.Context, earnings []domain.PartnerEarning) error {
	if len(earnings) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Create(&earnings).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.ErrDuplicateCommission
		}
		return err
	}
	return nil
}

func (r *PartnerRepo) ListEarnings(ctx context.Context) ([]domain.PartnerEarning, error) {
	var earnings []domain.PartnerEarning
	if err := r.db.WithContext(ctx).Order("created_at asc").Find(&earnings).Error; err != nil {
		return nil, err
	}
	return earnings, nil
}

func (r *PartnerRepo) SavePartner(ctx context.Context, p *domain.Partner) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Save(p).Error
}

func (r *PartnerRepo) SavePromo(ctx context.Context, c *domain.PromoCode) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Save(c).Error
}
