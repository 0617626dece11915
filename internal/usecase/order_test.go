package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vendora/bazaar/internal/domain"
)

func TestTransitionRejectsIllegalTarget(t *testing.T) {
	env := newTestEnv(t)
	_, v := env.seedVariant(t, 100, 10)
	o := env.seedOrder(t, domain.OrderStatusPending, v, 2, 100)

	uc := &OrderUC{UoW: env.uow, Gateway: &fakeGateway{}}
	_, err := uc.Transition(context.Background(), o.ID, domain.OrderStatusDelivered, domain.TransitionContext{})
	require.ErrorIs(t, err, domain.ErrInvalidTransition)

	// rejection leaves zero side effects behind
	reloaded, err := env.repos.Orders().FindByID(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPending, reloaded.Status)
	assert.Equal(t, 10, env.variantStock(t, v.ID))
	entries, err := env.repos.Inventory().ListLog(context.Background(), &v.ID)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestTransitionUnknownOrder(t *testing.T) {
	env := newTestEnv(t)
	uc := &OrderUC{UoW: env.uow, Gateway: &fakeGateway{}}
	_, err := uc.Transition(context.Background(), uuid.New(), domain.OrderStatusPaid, domain.TransitionContext{})
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCancelRestocksItems(t *testing.T) {
	env := newTestEnv(t)
	_, v := env.seedVariant(t, 100, 3)
	o := env.seedOrder(t, domain.OrderStatusPaid, v, 2, 100)

	uc := &OrderUC{UoW: env.uow, Gateway: &fakeGateway{}}
	out, err := uc.Transition(context.Background(), o.ID, domain.OrderStatusCancelled, domain.TransitionContext{
		Actor:        "ops",
		CancelReason: "customer request",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCancelled, out.Status)
	assert.Equal(t, "customer request", out.CancelReason)
	require.NotNil(t, out.CancelledAt)

	assert.Equal(t, 5, env.variantStock(t, v.ID))
	entries, err := env.repos.Inventory().ListLog(context.Background(), &v.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 2, entries[0].Delta)
	assert.Equal(t, domain.InventoryReasonReturn, entries[0].Reason)
}

func TestShippedUpsertsTracking(t *testing.T) {
	env := newTestEnv(t)
	_, v := env.seedVariant(t, 100, 10)
	o := env.seedOrder(t, domain.OrderStatusPaid, v, 1, 100)

	uc := &OrderUC{UoW: env.uow, Gateway: &fakeGateway{}}
	_, err := uc.Transition(context.Background(), o.ID, domain.OrderStatusShipped, domain.TransitionContext{
		TrackingNumber: "AWB-42",
		CarrierName:    "TestExpress",
	})
	require.NoError(t, err)

	tr, err := env.repos.Shipping().FindTrackingByOrder(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, "AWB-42", tr.TrackingNumber)
	assert.Equal(t, "TestExpress", tr.CarrierName)
	assert.Equal(t, "shipped", tr.Status)
}

func TestPaidCapturesPayment(t *testing.T) {
	env := newTestEnv(t)
	_, v := env.seedVariant(t, 100, 10)
	o := env.seedOrder(t, domain.OrderStatusPending, v, 1, 100)
	require.NoError(t, env.db.Create(&domain.Payment{
		ID: uuid.New(), OrderID: o.ID, ExternalID: "mp_1",
		Status: domain.PaymentStatusPending, Amount: o.Total, CreatedAt: time.Now(),
	}).Error)

	uc := &OrderUC{UoW: env.uow, Gateway: &fakeGateway{}}
	_, err := uc.Transition(context.Background(), o.ID, domain.OrderStatusPaid, domain.TransitionContext{})
	require.NoError(t, err)

	p, err := env.repos.Payments().FindByOrder(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusCaptured, p.Status)
	require.NotNil(t, p.CapturedAt)
}

func TestRefundFailureAbortsTransition(t *testing.T) {
	env := newTestEnv(t)
	_, v := env.seedVariant(t, 100, 10)
	o := env.seedOrder(t, domain.OrderStatusDelivered, v, 1, 100)
	now := time.Now()
	require.NoError(t, env.db.Create(&domain.Payment{
		ID: uuid.New(), OrderID: o.ID, ExternalID: "mp_1",
		Status: domain.PaymentStatusCaptured, Amount: o.Total, CapturedAt: &now, CreatedAt: now,
	}).Error)

	gw := &fakeGateway{refundErr: errors.New("gateway unavailable")}
	uc := &OrderUC{UoW: env.uow, Gateway: gw}
	_, err := uc.Transition(context.Background(), o.ID, domain.OrderStatusRefunded, domain.TransitionContext{RefundReason: "defect"})
	require.ErrorIs(t, err, domain.ErrCollaborator)

	reloaded, err := env.repos.Orders().FindByID(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusDelivered, reloaded.Status)
	p, err := env.repos.Payments().FindByOrder(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusCaptured, p.Status)
}

func TestRefundSuccessRecordsRefundID(t *testing.T) {
	env := newTestEnv(t)
	_, v := env.seedVariant(t, 100, 10)
	o := env.seedOrder(t, domain.OrderStatusDelivered, v, 1, 100)
	now := time.Now()
	require.NoError(t, env.db.Create(&domain.Payment{
		ID: uuid.New(), OrderID: o.ID, ExternalID: "mp_1",
		Status: domain.PaymentStatusCaptured, Amount: o.Total, CapturedAt: &now, CreatedAt: now,
	}).Error)

	gw := &fakeGateway{}
	uc := &OrderUC{UoW: env.uow, Gateway: gw}
	out, err := uc.Transition(context.Background(), o.ID, domain.OrderStatusRefunded, domain.TransitionContext{RefundReason: "defect"})
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusRefunded, out.Status)
	assert.NotEmpty(t, out.RefundID)

	require.Len(t, gw.refunds, 1)
	assert.Equal(t, "mp_1", gw.refunds[0].externalID)
	assert.Equal(t, o.Total, gw.refunds[0].amount)

	p, err := env.repos.Payments().FindByOrder(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusRefunded, p.Status)
	require.NotNil(t, p.RefundedAt)
}

func TestRefundedIsTerminal(t *testing.T) {
	env := newTestEnv(t)
	_, v := env.seedVariant(t, 100, 10)
	o := env.seedOrder(t, domain.OrderStatusDelivered, v, 1, 100)

	uc := &OrderUC{UoW: env.uow, Gateway: &fakeGateway{}}
	_, err := uc.Transition(context.Background(), o.ID, domain.OrderStatusRefunded, domain.TransitionContext{})
	require.NoError(t, err)

	for _, target := range []domain.OrderStatus{
		domain.OrderStatusPending, domain.OrderStatusPaid, domain.OrderStatusCancelled,
	} {
		_, err := uc.Transition(context.Background(), o.ID, target, domain.TransitionContext{})
		require.ErrorIs(t, err, domain.ErrInvalidTransition, "REFUNDED -> %s", target)
	}
}

func TestRequestReturnRequiresDeliveredOrder(t *testing.T) {
	env := newTestEnv(t)
	_, v := env.seedVariant(t, 100, 10)
	o := env.seedOrder(t, domain.OrderStatusShipped, v, 1, 100)

	uc := &OrderUC{UoW: env.uow, Gateway: &fakeGateway{}}
	_, err := uc.RequestReturn(context.Background(), o.Items[0].ID, "damaged")
	require.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestRequestReturnOncePerItem(t *testing.T) {
	env := newTestEnv(t)
	_, v := env.seedVariant(t, 100, 10)
	o := env.seedOrder(t, domain.OrderStatusDelivered, v, 1, 100)

	uc := &OrderUC{UoW: env.uow, Gateway: &fakeGateway{}}
	rr, err := uc.RequestReturn(context.Background(), o.Items[0].ID, "damaged")
	require.NoError(t, err)
	assert.Equal(t, domain.ReturnStatusRequested, rr.Status)

	_, err = uc.RequestReturn(context.Background(), o.Items[0].ID, "damaged again")
	require.Error(t, err)
}

func TestApproveReturnRestocks(t *testing.T) {
	env := newTestEnv(t)
	_, v := env.seedVariant(t, 100, 4)
	o := env.seedOrder(t, domain.OrderStatusDelivered, v, 3, 100)

	uc := &OrderUC{UoW: env.uow, Gateway: &fakeGateway{}}
	rr, err := uc.RequestReturn(context.Background(), o.Items[0].ID, "wrong size")
	require.NoError(t, err)

	out, err := uc.ApproveReturn(context.Background(), rr.ID, "admin")
	require.NoError(t, err)
	assert.Equal(t, domain.ReturnStatusApproved, out.Status)
	assert.Equal(t, "admin", out.ResolvedBy)
	require.NotNil(t, out.ResolvedAt)

	assert.Equal(t, 7, env.variantStock(t, v.ID))

	// a resolved return cannot be re-approved
	_, err = uc.ApproveReturn(context.Background(), rr.ID, "admin")
	require.Error(t, err)
}

func TestRejectReturnLeavesStock(t *testing.T) {
	env := newTestEnv(t)
	_, v := env.seedVariant(t, 100, 4)
	o := env.seedOrder(t, domain.OrderStatusDelivered, v, 3, 100)

	uc := &OrderUC{UoW: env.uow, Gateway: &fakeGateway{}}
	rr, err := uc.RequestReturn(context.Background(), o.Items[0].ID, "changed mind")
	require.NoError(t, err)

	out, err := uc.RejectReturn(context.Background(), rr.ID, "admin")
	require.NoError(t, err)
	assert.Equal(t, domain.ReturnStatusRejected, out.Status)
	assert.Equal(t, 4, env.variantStock(t, v.ID))
}
