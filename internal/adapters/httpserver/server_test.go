package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/vendora/bazaar/internal/adapters/repo/postgres"
	"github.com/vendora/bazaar/internal/domain"
	"github.com/vendora/bazaar/internal/usecase"
)

type serverEnv struct {
	db      *gorm.DB
	repos   domain.RepoSet
	handler http.Handler
}

func newServerEnv(t *testing.T) *serverEnv {
	t.Helper()
	t.Setenv("ADMIN_ALLOWED_EMAILS", "ops@example.com")
	t.Setenv("JWT_ADMIN_SECRET", "test-secret")

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&domain.Product{}, &domain.Variant{},
		&domain.PricingSlab{}, &domain.FlashSale{}, &domain.FlashSaleProduct{},
		&domain.MOQSetting{}, &domain.CartItem{},
		&domain.Order{}, &domain.OrderItem{}, &domain.ReturnRequest{},
		&domain.InventoryLogEntry{},
		&domain.Partner{}, &domain.PromoCode{}, &domain.PartnerEarning{},
		&domain.Tracking{}, &domain.TrackingUpdate{}, &domain.Payment{},
	))

	repos := postgres.NewRepoSet(db)
	uow := postgres.NewUnitOfWork(db)
	carts := &usecase.CartUC{
		Carts: repos.Carts(), Products: repos.Products(),
		Pricing: repos.Pricing(), MOQ: repos.MOQ(), UoW: uow,
	}
	orders := &usecase.OrderUC{UoW: uow, Gateway: nopGateway{}}
	pricing := &usecase.PricingUC{Products: repos.Products(), Pricing: repos.Pricing(), MOQ: repos.MOQ()}
	commissions := &usecase.CommissionUC{UoW: uow}

	return &serverEnv{
		db:      db,
		repos:   repos,
		handler: New(carts, orders, pricing, commissions, repos, nil),
	}
}

type nopGateway struct{}

func (nopGateway) Capture(ctx context.Context, externalID string) error { return nil }
func (nopGateway) Refund(ctx context.Context, externalID string, amount float64, reason string) (*domain.RefundResult, error) {
	return &domain.RefundResult{RefundID: "re_1", Status: "refunded"}, nil
}

func (e *serverEnv) seedVariant(t *testing.T, price float64, stock int) *domain.Variant {
	t.Helper()
	p := &domain.Product{ID: uuid.New(), Slug: uuid.New().String(), Name: "Widget", Active: true}
	require.NoError(t, e.db.Create(p).Error)
	v := &domain.Variant{ID: uuid.New(), ProductID: p.ID, SKU: "SKU-" + uuid.New().String()[:8], Price: price, Stock: stock, Active: true}
	require.NoError(t, e.db.Create(v).Error)
	return v
}

func (e *serverEnv) request(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func adminToken(t *testing.T, email string) string {
	t.Helper()
	claims := jwt.MapClaims{"sub": email, "exp": time.Now().Add(time.Hour).Unix(), "iat": time.Now().Unix()}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return tok
}

func TestEffectivePriceEndpoint(t *testing.T) {
	env := newServerEnv(t)
	v := env.seedVariant(t, 100, 20)
	require.NoError(t, env.db.Create(&domain.PricingSlab{
		ID: uuid.New(), ProductID: &v.ProductID, MinQty: 10, UnitPrice: 80, Active: true,
	}).Error)

	rec := env.request(t, http.MethodGet, "/api/price?variant_id="+v.ID.String()+"&qty=12", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 80.0, resp["unit_price"])
	assert.Equal(t, string(domain.PriceSourceProductSlab), resp["source"])
}

func TestEffectivePriceBadVariantID(t *testing.T) {
	env := newServerEnv(t)
	rec := env.request(t, http.MethodGet, "/api/price?variant_id=nope", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCartAddAndCheckoutFlow(t *testing.T) {
	env := newServerEnv(t)
	v := env.seedVariant(t, 50, 10)
	userID := uuid.New()

	rec := env.request(t, http.MethodPost, "/api/cart", map[string]any{
		"user_id": userID.String(), "variant_id": v.ID.String(), "quantity": 2,
	}, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.request(t, http.MethodPost, "/api/checkout", map[string]any{
		"user_id": userID.String(),
	}, "")
	require.Equal(t, http.StatusCreated, rec.Code)

	var order domain.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &order))
	assert.Equal(t, domain.OrderStatusPending, order.Status)
	assert.Equal(t, 100.0, order.Total)
}

func TestCartAddMOQViolationMapsTo422(t *testing.T) {
	env := newServerEnv(t)
	v := env.seedVariant(t, 50, 10)
	require.NoError(t, env.db.Create(&domain.MOQSetting{
		ID: uuid.New(), Scope: domain.MOQScopeVariant, VariantID: &v.ID, MinQuantity: 5, Active: true,
	}).Error)

	rec := env.request(t, http.MethodPost, "/api/cart", map[string]any{
		"user_id": uuid.New().String(), "variant_id": v.ID.String(), "quantity": 2,
	}, "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestCheckoutEmptyCartMapsTo400(t *testing.T) {
	env := newServerEnv(t)
	rec := env.request(t, http.MethodPost, "/api/checkout", map[string]any{
		"user_id": uuid.New().String(),
	}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOrderNotFoundMapsTo404(t *testing.T) {
	env := newServerEnv(t)
	rec := env.request(t, http.MethodGet, "/api/orders/"+uuid.New().String(), nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminEndpointsRequireAuth(t *testing.T) {
	env := newServerEnv(t)
	rec := env.request(t, http.MethodPost, "/api/admin/moq", map[string]any{
		"scope": "GLOBAL", "min_quantity": 2, "active": true,
	}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.request(t, http.MethodPost, "/api/admin/moq", map[string]any{
		"scope": "GLOBAL", "min_quantity": 2, "active": true,
	}, adminToken(t, "stranger@example.com"))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAdminMOQCreate(t *testing.T) {
	env := newServerEnv(t)
	tok := adminToken(t, "ops@example.com")

	rec := env.request(t, http.MethodPost, "/api/admin/moq", map[string]any{
		"scope": "GLOBAL", "min_quantity": 3, "active": true,
	}, tok)
	require.Equal(t, http.StatusCreated, rec.Code)

	setting, err := env.repos.MOQ().ActiveSetting(context.Background(), domain.MOQScopeGlobal, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, setting.MinQuantity)
}

func TestAdminMOQScopeValidation(t *testing.T) {
	env := newServerEnv(t)
	tok := adminToken(t, "ops@example.com")

	rec := env.request(t, http.MethodPost, "/api/admin/moq", map[string]any{
		"scope": "PRODUCT", "min_quantity": 3, "active": true,
	}, tok)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "PRODUCT scope without product_id")
}

func TestAdminTransitionEndpoint(t *testing.T) {
	env := newServerEnv(t)
	v := env.seedVariant(t, 50, 10)
	o := &domain.Order{
		ID: uuid.New(), OrderNumber: "BZ-TEST-000001", UserID: uuid.New(),
		Status: domain.OrderStatusPaid, Subtotal: 100, Total: 100, CreatedAt: time.Now(),
		Items: []domain.OrderItem{{
			ID: uuid.New(), VariantID: v.ID, ProductID: v.ProductID,
			Quantity: 1, UnitPrice: 100, Subtotal: 100, CreatedAt: time.Now(),
		}},
	}
	require.NoError(t, env.db.Create(o).Error)

	tok := adminToken(t, "ops@example.com")
	rec := env.request(t, http.MethodPost, "/api/admin/orders/"+o.ID.String()+"/transition", map[string]any{
		"target": "shipped", "tracking_number": "AWB-7", "carrier_name": "TestExpress",
	}, tok)
	require.Equal(t, http.StatusOK, rec.Code)

	var out domain.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, domain.OrderStatusShipped, out.Status)

	// illegal transition maps to 409
	rec = env.request(t, http.MethodPost, "/api/admin/orders/"+o.ID.String()+"/transition", map[string]any{
		"target": "PAID",
	}, tok)
	assert.Equal(t, http.StatusConflict, rec.Code)
}
