package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/vendora/bazaar/internal/adapters/repo/postgres"
	"github.com/vendora/bazaar/internal/domain"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&domain.Product{}, &domain.Variant{},
		&domain.PricingSlab{}, &domain.FlashSale{}, &domain.FlashSaleProduct{},
		&domain.MOQSetting{},
		&domain.CartItem{},
		&domain.Order{}, &domain.OrderItem{}, &domain.ReturnRequest{},
		&domain.InventoryLogEntry{},
		&domain.Partner{}, &domain.PromoCode{}, &domain.PartnerEarning{},
		&domain.Tracking{}, &domain.TrackingUpdate{},
		&domain.Payment{},
	))
	return db
}

type testEnv struct {
	db    *gorm.DB
	repos domain.RepoSet
	uow   domain.UnitOfWork
}

func newTestEnv(t *testing.T) *testEnv {
	db := newTestDB(t)
	return &testEnv{db: db, repos: postgres.NewRepoSet(db), uow: postgres.NewUnitOfWork(db)}
}

func (e *testEnv) seedVariant(t *testing.T, price float64, stock int) (*domain.Product, *domain.Variant) {
	t.Helper()
	p := &domain.Product{
		ID:     uuid.New(),
		Slug:   fmt.Sprintf("product-%s", uuid.New().String()[:8]),
		Name:   "Widget",
		Active: true,
	}
	require.NoError(t, e.db.Create(p).Error)
	v := &domain.Variant{
		ID:        uuid.New(),
		ProductID: p.ID,
		SKU:       fmt.Sprintf("SKU-%s", uuid.New().String()[:8]),
		Price:     price,
		Stock:     stock,
		Active:    true,
	}
	require.NoError(t, e.db.Create(v).Error)
	return p, v
}

func (e *testEnv) seedOrder(t *testing.T, status domain.OrderStatus, v *domain.Variant, qty int, unitPrice float64) *domain.Order {
	t.Helper()
	sub := domain.Round2(unitPrice * float64(qty))
	o := &domain.Order{
		ID:          uuid.New(),
		OrderNumber: fmt.Sprintf("BZ-TEST-%s", uuid.New().String()[:6]),
		UserID:      uuid.New(),
		Status:      status,
		Subtotal:    sub,
		Total:       sub,
		CreatedAt:   time.Now(),
	}
	o.Items = []domain.OrderItem{{
		ID:        uuid.New(),
		OrderID:   o.ID,
		VariantID: v.ID,
		ProductID: v.ProductID,
		SKU:       v.SKU,
		Quantity:  qty,
		UnitPrice: unitPrice,
		Subtotal:  sub,
		CreatedAt: time.Now(),
	}}
	require.NoError(t, e.db.Create(o).Error)
	return o
}

func (e *testEnv) variantStock(t *testing.T, id uuid.UUID) int {
	t.Helper()
	var v domain.Variant
	require.NoError(t, e.db.First(&v, "id = ?", id).Error)
	return v.Stock
}

type refundCall struct {
	externalID string
	amount     float64
}

type fakeGateway struct {
	mu        sync.Mutex
	captured  []string
	refunds   []refundCall
	refundErr error
}

func (f *fakeGateway) Capture(ctx context.Context, externalID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.captured = append(f.captured, externalID)
	return nil
}

func (f *fakeGateway) Refund(ctx context.Context, externalID string, amount float64, reason string) (*domain.RefundResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.refundErr != nil {
		return nil, f.refundErr
	}
	f.refunds = append(f.refunds, refundCall{externalID: externalID, amount: amount})
	return &domain.RefundResult{RefundID: fmt.Sprintf("re_%d", len(f.refunds)), Status: "refunded"}, nil
}

type fakeCarrier struct {
	mu        sync.Mutex
	created   int
	cancelled []string
}

func (f *fakeCarrier) CreateShipment(ctx context.Context, o *domain.Order) (*domain.ShipmentRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created++
	return &domain.ShipmentRef{CarrierOrderID: "co_1", ShipmentID: "sh_1"}, nil
}

func (f *fakeCarrier) AssignCarrier(ctx context.Context, shipmentID string) (*domain.CarrierAssignment, error) {
	return &domain.CarrierAssignment{TrackingNumber: "AWB-1", CarrierName: "TestExpress"}, nil
}

func (f *fakeCarrier) Cancel(ctx context.Context, carrierOrderID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = append(f.cancelled, carrierOrderID)
	return nil
}

func (f *fakeCarrier) Track(ctx context.Context, trackingNumber string) ([]domain.CarrierEvent, error) {
	return nil, nil
}
