package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/vendora/bazaar/internal/domain"
)

// CommissionBase is the amount partner percentages apply to. The backfill
// must use the same formula as the live delivery path.
func CommissionBase(o *domain.Order) float64 {
	return domain.Round2(o.Subtotal - o.Discount)
}

// createEarningsForOrder creates one PartnerEarning per active partner on the
// order's promo code, guarded by an existence check inside the caller's
// transaction. A duplicate is a logged no-op, not a failure.
func createEarningsForOrder(ctx context.Context, tx domain.RepoSet, o *domain.Order) (int, error) {
	if o.PromoCodeID == nil {
		return 0, nil
	}
	exists, err := tx.Partners().EarningsExist(ctx, o.ID)
	if err != nil {
		return 0, err
	}
	if exists {
		log.Warn().Str("order", o.OrderNumber).Msg("partner earnings already exist, skipping")
		return 0, nil
	}
	promo, err := tx.Partners().FindPromoByID(ctx, *o.PromoCodeID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			log.Warn().Str("order", o.OrderNumber).Msg("promo code gone, no earnings created")
			return 0, nil
		}
		return 0, err
	}
	base := CommissionBase(o)
	earnings := make([]domain.PartnerEarning, 0, len(promo.Partners))
	for _, p := range promo.Partners {
		if !p.Active {
			continue
		}
		earnings = append(earnings, domain.PartnerEarning{
			ID:            uuid.New(),
			PartnerID:     p.ID,
			OrderID:       o.ID,
			PromoCodeID:   promo.ID,
			Amount:        domain.PercentOf(base, p.CommissionPct),
			CommissionPct: p.CommissionPct,
			CreatedAt:     time.Now(),
		})
	}
	if len(earnings) == 0 {
		return 0, nil
	}
	if err := tx.Partners().CreateEarnings(ctx, earnings); err != nil {
		// unique index on (order_id, partner_id) caught a concurrent creator
		if errors.Is(err, domain.ErrDuplicateCommission) {
			log.Warn().Str("order", o.OrderNumber).Msg("concurrent earning creation detected, treating as no-op")
			return 0, nil
		}
		return 0, err
	}
	return len(earnings), nil
}

type CommissionUC struct {
	UoW domain.UnitOfWork
}

// Backfill creates earnings for delivered orders that carry a promo code but
// have none, recovering from historical gaps with the live formula.
func (uc *CommissionUC) Backfill(ctx context.Context) (int, error) {
	created := 0
	err := uc.UoW.Do(ctx, func(tx domain.RepoSet) error {
		orders, err := tx.Orders().DeliveredWithPromoAndNoEarnings(ctx)
		if err != nil {
			return err
		}
		for i := range orders {
			n, err := createEarningsForOrder(ctx, tx, &orders[i])
			if err != nil {
				return err
			}
			created += n
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return created, nil
}
