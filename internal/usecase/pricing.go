package usecase

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/vendora/bazaar/internal/domain"
)

// ResolvePrice returns the effective unit price for a variant at a quantity.
// Slab resolution runs first (variant slabs win over product slabs, first
// matching band by ascending MinQty), then a live flash sale discounts the
// already-resolved price. Pure read: callable from cart display and checkout
// freezing with identical results for unchanged rule data.
func ResolvePrice(ctx context.Context, repo domain.PricingRepo, v *domain.Variant, qty int, now time.Time) (*domain.PriceQuote, error) {
	quote := &domain.PriceQuote{
		UnitPrice: domain.Round2(v.BasePrice()),
		Source:    domain.PriceSourceDefault,
	}

	slabs, err := repo.SlabsFor(ctx, v.ID, v.ProductID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(slabs, func(i, j int) bool {
		if slabs[i].MinQty != slabs[j].MinQty {
			return slabs[i].MinQty < slabs[j].MinQty
		}
		// variant-scoped slabs override product-scoped on equal MinQty
		return slabs[i].VariantID != nil && slabs[j].VariantID == nil
	})
	for i := range slabs {
		if !slabs[i].Matches(qty) {
			continue
		}
		quote.Slab = &slabs[i]
		quote.UnitPrice = domain.Round2(slabs[i].UnitPrice)
		if slabs[i].VariantID != nil {
			quote.Source = domain.PriceSourceVariantSlab
		} else {
			quote.Source = domain.PriceSourceProductSlab
		}
		break
	}

	sale, err := repo.LiveFlashSale(ctx, v.ProductID, now)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return quote, nil
		}
		return nil, err
	}
	quote.OriginalPrice = quote.UnitPrice
	quote.UnitPrice = domain.ApplyPercentDiscount(quote.UnitPrice, sale.DiscountPct)
	quote.Source = domain.PriceSourceFlashSale
	quote.FlashSale = sale
	return quote, nil
}

// ResolveMOQ picks the effective minimum order quantity by scope precedence:
// VARIANT, then PRODUCT, then GLOBAL, then the default of 1. First match
// wins; settings are never merged.
func ResolveMOQ(ctx context.Context, repo domain.MOQRepo, v *domain.Variant) (*domain.MOQResolution, error) {
	lookups := []struct {
		scope domain.MOQScope
		ref   *uuid.UUID
	}{
		{domain.MOQScopeVariant, &v.ID},
		{domain.MOQScopeProduct, &v.ProductID},
		{domain.MOQScopeGlobal, nil},
	}
	for _, l := range lookups {
		s, err := repo.ActiveSetting(ctx, l.scope, l.ref)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return nil, err
		}
		return &domain.MOQResolution{MinQuantity: s.MinQuantity, Source: string(l.scope), Setting: s}, nil
	}
	return &domain.MOQResolution{MinQuantity: domain.DefaultMOQ, Source: domain.MOQSourceDefault}, nil
}

// PricingUC exposes price/MOQ resolution to the API layer so the storefront
// shows the same numbers checkout will freeze.
type PricingUC struct {
	Products domain.ProductRepo
	Pricing  domain.PricingRepo
	MOQ      domain.MOQRepo
}

func (uc *PricingUC) EffectivePrice(ctx context.Context, variantID uuid.UUID, qty int) (*domain.PriceQuote, error) {
	if qty < 1 {
		qty = 1
	}
	v, err := uc.Products.FindVariant(ctx, variantID)
	if err != nil {
		return nil, err
	}
	return ResolvePrice(ctx, uc.Pricing, v, qty, time.Now())
}

func (uc *PricingUC) EffectiveMOQ(ctx context.Context, variantID uuid.UUID) (*domain.MOQResolution, error) {
	v, err := uc.Products.FindVariant(ctx, variantID)
	if err != nil {
		return nil, err
	}
	return ResolveMOQ(ctx, uc.MOQ, v)
}
