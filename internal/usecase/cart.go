package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/vendora/bazaar/internal/domain"
)

// CartUC composes the price and MOQ resolvers into a priced cart and, at
// checkout, freezes the resolved prices into order items.
type CartUC struct {
	Carts    domain.CartRepo
	Products domain.ProductRepo
	Pricing  domain.PricingRepo
	MOQ      domain.MOQRepo
	UoW      domain.UnitOfWork

	TaxPct       float64
	ShippingCost float64
}

// GetCart prices every line with the same resolvers checkout uses, so the
// displayed price matches the frozen one absent a rule change in between.
func (uc *CartUC) GetCart(ctx context.Context, userID uuid.UUID) (*domain.PricedCart, error) {
	items, err := uc.Carts.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	cart := &domain.PricedCart{Lines: make([]domain.CartLine, 0, len(items))}
	for _, it := range items {
		v, err := uc.Products.FindVariant(ctx, it.VariantID)
		if err != nil {
			return nil, err
		}
		p, err := uc.Products.FindProduct(ctx, v.ProductID)
		if err != nil {
			return nil, err
		}
		quote, err := ResolvePrice(ctx, uc.Pricing, v, it.Quantity, now)
		if err != nil {
			return nil, err
		}
		moq, err := ResolveMOQ(ctx, uc.MOQ, v)
		if err != nil {
			return nil, err
		}
		line := domain.CartLine{
			Item:     it,
			Variant:  *v,
			Product:  *p,
			Quote:    *quote,
			MOQ:      *moq,
			Subtotal: domain.Round2(quote.UnitPrice * float64(it.Quantity)),
			InStock:  v.Stock >= it.Quantity,
			MeetsMOQ: it.Quantity >= moq.MinQuantity,
		}
		cart.Subtotal = domain.Round2(cart.Subtotal + line.Subtotal)
		cart.Lines = append(cart.Lines, line)
	}
	return cart, nil
}

// AddToCart validates stock and MOQ against the quantity the line will end
// up at, then upserts the (user, variant) row.
func (uc *CartUC) AddToCart(ctx context.Context, userID, variantID uuid.UUID, qty int) (*domain.CartItem, error) {
	if qty < 1 {
		return nil, fmt.Errorf("quantity must be at least 1")
	}
	var out *domain.CartItem
	err := uc.UoW.Do(ctx, func(tx domain.RepoSet) error {
		v, err := tx.Products().FindVariant(ctx, variantID)
		if err != nil {
			return err
		}
		if !v.Active {
			return fmt.Errorf("%w: variant %s is inactive", domain.ErrNotFound, variantID)
		}
		item, err := tx.Carts().Find(ctx, userID, variantID)
		if err != nil {
			if !errors.Is(err, domain.ErrNotFound) {
				return err
			}
			item = &domain.CartItem{ID: uuid.New(), UserID: userID, VariantID: variantID, CreatedAt: time.Now()}
		}
		newQty := item.Quantity + qty
		if err := uc.validateLine(ctx, tx, v, newQty); err != nil {
			return err
		}
		item.Quantity = newQty
		out = item
		return tx.Carts().Save(ctx, item)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateCartItem sets the line quantity; zero removes the line.
func (uc *CartUC) UpdateCartItem(ctx context.Context, userID, variantID uuid.UUID, qty int) (*domain.CartItem, error) {
	if qty < 0 {
		return nil, fmt.Errorf("quantity must not be negative")
	}
	var out *domain.CartItem
	err := uc.UoW.Do(ctx, func(tx domain.RepoSet) error {
		if qty == 0 {
			return tx.Carts().Delete(ctx, userID, variantID)
		}
		v, err := tx.Products().FindVariant(ctx, variantID)
		if err != nil {
			return err
		}
		if err := uc.validateLine(ctx, tx, v, qty); err != nil {
			return err
		}
		item, err := tx.Carts().Find(ctx, userID, variantID)
		if err != nil {
			if !errors.Is(err, domain.ErrNotFound) {
				return err
			}
			item = &domain.CartItem{ID: uuid.New(), UserID: userID, VariantID: variantID, CreatedAt: time.Now()}
		}
		item.Quantity = qty
		out = item
		return tx.Carts().Save(ctx, item)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (uc *CartUC) RemoveFromCart(ctx context.Context, userID, variantID uuid.UUID) error {
	return uc.UoW.Do(ctx, func(tx domain.RepoSet) error {
		return tx.Carts().Delete(ctx, userID, variantID)
	})
}

func (uc *CartUC) ClearCart(ctx context.Context, userID uuid.UUID) error {
	return uc.UoW.Do(ctx, func(tx domain.RepoSet) error {
		return tx.Carts().ClearUser(ctx, userID)
	})
}

func (uc *CartUC) validateLine(ctx context.Context, tx domain.RepoSet, v *domain.Variant, qty int) error {
	moq, err := ResolveMOQ(ctx, tx.MOQ(), v)
	if err != nil {
		return err
	}
	if qty < moq.MinQuantity {
		return fmt.Errorf("%w: minimum for %s is %d (%s)", domain.ErrMOQViolation, v.SKU, moq.MinQuantity, moq.Source)
	}
	if v.Stock < qty {
		return fmt.Errorf("%w: %s has %d in stock, requested %d", domain.ErrInsufficientStock, v.SKU, v.Stock, qty)
	}
	return nil
}

type checkoutLine struct {
	variant *domain.Variant
	product *domain.Product
	item    domain.CartItem
	quote   *domain.PriceQuote
}

// Checkout materializes the cart into an order inside one transaction:
// re-resolve prices and MOQ against current rule state, validate every line
// before any write, decrement stock through the ledger, freeze the monetary
// snapshot, create the order, clear the cart.
func (uc *CartUC) Checkout(ctx context.Context, userID uuid.UUID, addressID *uuid.UUID, couponCode string) (*domain.Order, error) {
	var out *domain.Order
	err := uc.UoW.Do(ctx, func(tx domain.RepoSet) error {
		items, err := tx.Carts().ListByUser(ctx, userID)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return domain.ErrEmptyCart
		}

		var promo *domain.PromoCode
		if couponCode != "" {
			promo, err = tx.Partners().FindPromoByCode(ctx, strings.TrimSpace(couponCode))
			if err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					return fmt.Errorf("unknown coupon code %q", couponCode)
				}
				return err
			}
			if !promo.Active {
				return fmt.Errorf("coupon code %q is no longer active", couponCode)
			}
		}

		now := time.Now()

		// Validation pass: no mutating statement runs until every line passed.
		lines := make([]checkoutLine, 0, len(items))
		for _, it := range items {
			v, err := tx.Products().FindVariant(ctx, it.VariantID)
			if err != nil {
				return err
			}
			p, err := tx.Products().FindProduct(ctx, v.ProductID)
			if err != nil {
				return err
			}
			moq, err := ResolveMOQ(ctx, tx.MOQ(), v)
			if err != nil {
				return err
			}
			if it.Quantity < moq.MinQuantity {
				return fmt.Errorf("%w: minimum for %s is %d (%s)", domain.ErrMOQViolation, v.SKU, moq.MinQuantity, moq.Source)
			}
			if v.Stock < it.Quantity {
				return fmt.Errorf("%w: %s has %d in stock, requested %d", domain.ErrInsufficientStock, v.SKU, v.Stock, it.Quantity)
			}
			quote, err := ResolvePrice(ctx, tx.Pricing(), v, it.Quantity, now)
			if err != nil {
				return err
			}
			lines = append(lines, checkoutLine{variant: v, product: p, item: it, quote: quote})
		}

		orderID := uuid.New()
		order := &domain.Order{
			ID:          orderID,
			OrderNumber: generateOrderNumber(now),
			UserID:      userID,
			Status:      domain.OrderStatusPending,
			AddressID:   addressID,
			CreatedAt:   now,
		}

		subtotal := 0.0
		for _, l := range lines {
			unit := l.quote.UnitPrice
			if l.quote.FlashSale != nil {
				ok, err := tx.Pricing().IncrementSoldCount(ctx, l.quote.FlashSale.ID, l.item.Quantity)
				if err != nil {
					return err
				}
				if !ok {
					// cap exhausted between display and checkout: accepted
					// TOCTOU, the line falls back to its pre-discount price
					log.Warn().Str("sku", l.variant.SKU).Msg("flash sale cap exhausted during checkout, using undiscounted price")
					unit = l.quote.OriginalPrice
				}
			}
			lineSubtotal := domain.Round2(unit * float64(l.item.Quantity))
			order.Items = append(order.Items, domain.OrderItem{
				ID:          uuid.New(),
				OrderID:     orderID,
				VariantID:   l.variant.ID,
				ProductID:   l.product.ID,
				Title:       l.product.Name,
				SKU:         l.variant.SKU,
				Quantity:    l.item.Quantity,
				UnitPrice:   unit,
				Subtotal:    lineSubtotal,
				PriceSource: string(l.quote.Source),
				CreatedAt:   now,
			})
			subtotal = domain.Round2(subtotal + lineSubtotal)

			if err := DecrementStock(ctx, tx, l.variant.ID, l.item.Quantity, domain.InventoryReasonSale, &orderID, userID.String()); err != nil {
				return err
			}
		}

		order.Subtotal = subtotal
		if promo != nil {
			order.PromoCodeID = &promo.ID
			order.Discount = domain.PercentOf(subtotal, promo.DiscountPct)
		}
		order.Tax = domain.PercentOf(subtotal-order.Discount, uc.TaxPct)
		order.ShippingCost = domain.Round2(uc.ShippingCost)
		order.Total = domain.Round2(subtotal - order.Discount + order.Tax + order.ShippingCost)

		if err := tx.Orders().Create(ctx, order); err != nil {
			return err
		}
		if err := tx.Payments().Save(ctx, &domain.Payment{
			ID:        uuid.New(),
			OrderID:   orderID,
			Status:    domain.PaymentStatusPending,
			Amount:    order.Total,
			CreatedAt: now,
		}); err != nil {
			return err
		}
		if err := tx.Carts().ClearUser(ctx, userID); err != nil {
			return err
		}
		out = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func generateOrderNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", ""))[:6]
	return "BZ-" + now.Format("20060102") + "-" + suffix
}
