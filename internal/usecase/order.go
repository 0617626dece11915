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

// OrderUC drives orders through the status state machine. Every transition
// runs inside one transaction; the only external call permitted inside that
// transaction is the payment refund on the way to REFUNDED. Carrier calls
// are dispatched after commit, best-effort.
type OrderUC struct {
	UoW     domain.UnitOfWork
	Gateway domain.PaymentGateway
	Carrier domain.CarrierClient
}

func (uc *OrderUC) Get(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	var out *domain.Order
	err := uc.UoW.Do(ctx, func(tx domain.RepoSet) error {
		o, err := tx.Orders().FindByID(ctx, orderID)
		out = o
		return err
	})
	return out, err
}

// Transition validates the target against the legal transition table before
// any side effect runs, then applies the per-target effects and the status
// write atomically. On rejection the caller gets zero partial effects.
func (uc *OrderUC) Transition(ctx context.Context, orderID uuid.UUID, target domain.OrderStatus, tc domain.TransitionContext) (*domain.Order, error) {
	var out *domain.Order
	var afterCommit func()

	err := uc.UoW.Do(ctx, func(tx domain.RepoSet) error {
		o, err := tx.Orders().FindByID(ctx, orderID)
		if err != nil {
			return err
		}
		if !o.Status.CanTransitionTo(target) {
			return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, o.Status, target)
		}

		switch target {
		case domain.OrderStatusCancelled:
			if err := uc.applyCancel(ctx, tx, o, tc); err != nil {
				return err
			}
			if o.CarrierOrderID != "" {
				carrierOrderID := o.CarrierOrderID
				number := o.OrderNumber
				afterCommit = func() { uc.cancelCarrierShipment(carrierOrderID, number) }
			}
		case domain.OrderStatusShipped:
			if err := uc.applyShipped(ctx, tx, o, tc); err != nil {
				return err
			}
		case domain.OrderStatusDelivered:
			if err := uc.applyDelivered(ctx, tx, o); err != nil {
				return err
			}
		case domain.OrderStatusPaid:
			if err := uc.applyPaid(ctx, tx, o); err != nil {
				return err
			}
			id := o.ID
			afterCommit = func() { uc.syncShipment(id) }
		case domain.OrderStatusRefunded:
			if err := uc.applyRefund(ctx, tx, o, tc); err != nil {
				return err
			}
		}

		o.Status = target
		if err := tx.Orders().Save(ctx, o); err != nil {
			return err
		}
		out = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	if afterCommit != nil {
		go afterCommit()
	}
	return out, nil
}

// applyCancel returns every item's quantity to stock with one ledger entry
// each, capturing before/after snapshots.
func (uc *OrderUC) applyCancel(ctx context.Context, tx domain.RepoSet, o *domain.Order, tc domain.TransitionContext) error {
	for _, it := range o.Items {
		if err := IncrementStock(ctx, tx, it.VariantID, it.Quantity, domain.InventoryReasonReturn, &o.ID, tc.Actor); err != nil {
			return err
		}
	}
	now := time.Now()
	o.CancelReason = tc.CancelReason
	o.CancelledAt = &now
	return nil
}

func (uc *OrderUC) applyShipped(ctx context.Context, tx domain.RepoSet, o *domain.Order, tc domain.TransitionContext) error {
	t, err := tx.Shipping().FindTrackingByOrder(ctx, o.ID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		number := tc.TrackingNumber
		if number == "" {
			number = placeholderTrackingNumber(o.OrderNumber)
		}
		t = &domain.Tracking{ID: uuid.New(), OrderID: o.ID, TrackingNumber: number, CarrierName: tc.CarrierName, CreatedAt: time.Now()}
	} else if tc.TrackingNumber != "" {
		t.TrackingNumber = tc.TrackingNumber
		t.CarrierName = tc.CarrierName
	}
	t.Status = "shipped"
	if err := tx.Shipping().SaveTracking(ctx, t); err != nil {
		return err
	}
	return tx.Shipping().AppendUpdate(ctx, &domain.TrackingUpdate{
		ID:         uuid.New(),
		TrackingID: t.ID,
		Status:     "shipped",
		Note:       "order handed to carrier",
		OccurredAt: time.Now(),
		CreatedAt:  time.Now(),
	})
}

// applyDelivered marks the tracking delivered, then creates partner earnings
// exactly once. The existence check lives inside this same transaction.
func (uc *OrderUC) applyDelivered(ctx context.Context, tx domain.RepoSet, o *domain.Order) error {
	now := time.Now()
	t, err := tx.Shipping().FindTrackingByOrder(ctx, o.ID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		t = &domain.Tracking{ID: uuid.New(), OrderID: o.ID, TrackingNumber: placeholderTrackingNumber(o.OrderNumber), CreatedAt: now}
	}
	t.Status = "delivered"
	t.DeliveredAt = &now
	if err := tx.Shipping().SaveTracking(ctx, t); err != nil {
		return err
	}
	if err := tx.Shipping().AppendUpdate(ctx, &domain.TrackingUpdate{
		ID:         uuid.New(),
		TrackingID: t.ID,
		Status:     "delivered",
		OccurredAt: now,
		CreatedAt:  now,
	}); err != nil {
		return err
	}
	n, err := createEarningsForOrder(ctx, tx, o)
	if err != nil {
		return err
	}
	if n > 0 {
		log.Info().Str("order", o.OrderNumber).Int("earnings", n).Msg("partner earnings created")
	}
	return nil
}

func (uc *OrderUC) applyPaid(ctx context.Context, tx domain.RepoSet, o *domain.Order) error {
	p, err := tx.Payments().FindByOrder(ctx, o.ID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return err
	}
	if p.Status == domain.PaymentStatusCaptured {
		return nil
	}
	now := time.Now()
	p.Status = domain.PaymentStatusCaptured
	p.CapturedAt = &now
	return tx.Payments().Save(ctx, p)
}

// applyRefund calls the gateway synchronously: the terminal state must not
// commit without a confirmed refund.
func (uc *OrderUC) applyRefund(ctx context.Context, tx domain.RepoSet, o *domain.Order, tc domain.TransitionContext) error {
	p, err := tx.Payments().FindByOrder(ctx, o.ID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return err
	}
	now := time.Now()
	if p.Status == domain.PaymentStatusCaptured {
		res, err := uc.Gateway.Refund(ctx, p.ExternalID, o.Total, tc.RefundReason)
		if err != nil {
			return fmt.Errorf("%w: refund for order %s: %v", domain.ErrCollaborator, o.OrderNumber, err)
		}
		p.RefundID = res.RefundID
		o.RefundID = res.RefundID
	}
	p.Status = domain.PaymentStatusRefunded
	p.RefundedAt = &now
	o.RefundedAt = &now
	return tx.Payments().Save(ctx, p)
}

// syncShipment registers the order with the carrier and stores the returned
// correlation ids. Runs after the owning transaction committed; failures are
// logged and the order is left for a later retry, never rolled back.
func (uc *OrderUC) syncShipment(orderID uuid.UUID) {
	if uc.Carrier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	err := uc.UoW.Do(ctx, func(tx domain.RepoSet) error {
		o, err := tx.Orders().FindByID(ctx, orderID)
		if err != nil {
			return err
		}
		if o.CarrierOrderID != "" {
			return nil
		}
		ref, err := uc.Carrier.CreateShipment(ctx, o)
		if err != nil {
			return fmt.Errorf("%w: create shipment: %v", domain.ErrCollaborator, err)
		}
		o.CarrierOrderID = ref.CarrierOrderID
		o.ShipmentID = ref.ShipmentID
		if assignment, err := uc.Carrier.AssignCarrier(ctx, ref.ShipmentID); err != nil {
			log.Error().Err(err).Str("order", o.OrderNumber).Msg("carrier assignment failed")
		} else {
			t := &domain.Tracking{ID: uuid.New(), OrderID: o.ID, TrackingNumber: assignment.TrackingNumber, CarrierName: assignment.CarrierName, Status: "created", CreatedAt: time.Now()}
			if existing, err := tx.Shipping().FindTrackingByOrder(ctx, o.ID); err == nil {
				existing.TrackingNumber = assignment.TrackingNumber
				existing.CarrierName = assignment.CarrierName
				t = existing
			}
			if err := tx.Shipping().SaveTracking(ctx, t); err != nil {
				return err
			}
		}
		return tx.Orders().Save(ctx, o)
	})
	if err != nil {
		log.Error().Err(err).Str("order_id", orderID.String()).Msg("shipment sync failed")
	}
}

func (uc *OrderUC) cancelCarrierShipment(carrierOrderID, orderNumber string) {
	if uc.Carrier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := uc.Carrier.Cancel(ctx, carrierOrderID); err != nil {
		log.Error().Err(err).Str("order", orderNumber).Msg("carrier cancellation failed, order stays cancelled")
	}
}

// RequestReturn files a return for one order item of a delivered order.
func (uc *OrderUC) RequestReturn(ctx context.Context, orderItemID uuid.UUID, reason string) (*domain.ReturnRequest, error) {
	var out *domain.ReturnRequest
	err := uc.UoW.Do(ctx, func(tx domain.RepoSet) error {
		item, err := tx.Orders().FindItem(ctx, orderItemID)
		if err != nil {
			return err
		}
		o, err := tx.Orders().FindByID(ctx, item.OrderID)
		if err != nil {
			return err
		}
		if o.Status != domain.OrderStatusDelivered {
			return fmt.Errorf("%w: returns require a delivered order, got %s", domain.ErrInvalidTransition, o.Status)
		}
		if _, err := tx.Shipping().FindReturnByItem(ctx, orderItemID); err == nil {
			return fmt.Errorf("return already requested for item %s", orderItemID)
		} else if !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		out = &domain.ReturnRequest{
			ID:          uuid.New(),
			OrderItemID: orderItemID,
			OrderID:     o.ID,
			Status:      domain.ReturnStatusRequested,
			Reason:      reason,
			CreatedAt:   time.Now(),
		}
		return tx.Shipping().SaveReturn(ctx, out)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ApproveReturn restocks the returned quantity through the ledger and marks
// the request approved, in one transaction.
func (uc *OrderUC) ApproveReturn(ctx context.Context, returnID uuid.UUID, actor string) (*domain.ReturnRequest, error) {
	var out *domain.ReturnRequest
	err := uc.UoW.Do(ctx, func(tx domain.RepoSet) error {
		rr, err := tx.Shipping().FindReturn(ctx, returnID)
		if err != nil {
			return err
		}
		if rr.Status != domain.ReturnStatusRequested {
			return fmt.Errorf("return %s already resolved as %s", returnID, rr.Status)
		}
		item, err := tx.Orders().FindItem(ctx, rr.OrderItemID)
		if err != nil {
			return err
		}
		if err := IncrementStock(ctx, tx, item.VariantID, item.Quantity, domain.InventoryReasonReturn, &rr.ID, actor); err != nil {
			return err
		}
		now := time.Now()
		rr.Status = domain.ReturnStatusApproved
		rr.ResolvedBy = actor
		rr.ResolvedAt = &now
		out = rr
		return tx.Shipping().SaveReturn(ctx, rr)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (uc *OrderUC) RejectReturn(ctx context.Context, returnID uuid.UUID, actor string) (*domain.ReturnRequest, error) {
	var out *domain.ReturnRequest
	err := uc.UoW.Do(ctx, func(tx domain.RepoSet) error {
		rr, err := tx.Shipping().FindReturn(ctx, returnID)
		if err != nil {
			return err
		}
		if rr.Status != domain.ReturnStatusRequested {
			return fmt.Errorf("return %s already resolved as %s", returnID, rr.Status)
		}
		now := time.Now()
		rr.Status = domain.ReturnStatusRejected
		rr.ResolvedBy = actor
		rr.ResolvedAt = &now
		out = rr
		return tx.Shipping().SaveReturn(ctx, rr)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func placeholderTrackingNumber(orderNumber string) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", ""))[:10]
	return "TRK-" + orderNumber + "-" + suffix
}
