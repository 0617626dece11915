package app

import (
	"net/http"
	"os"
	"strconv"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"gorm.io/gorm"

	"github.com/vendora/bazaar/internal/adapters/carrier/shiprocket"
	"github.com/vendora/bazaar/internal/adapters/httpserver"
	"github.com/vendora/bazaar/internal/adapters/payments/mercadopago"
	"github.com/vendora/bazaar/internal/adapters/repo/postgres"
	"github.com/vendora/bazaar/internal/domain"
	"github.com/vendora/bazaar/internal/usecase"
)

type App struct {
	DB           *gorm.DB
	CartUC       *usecase.CartUC
	OrderUC      *usecase.OrderUC
	PricingUC    *usecase.PricingUC
	CommissionUC *usecase.CommissionUC
	Repos        domain.RepoSet
	OAuthConfig  *oauth2.Config
}

func NewApp(db *gorm.DB) (*App, error) {
	repos := postgres.NewRepoSet(db)
	uow := postgres.NewUnitOfWork(db)

	token := os.Getenv("MP_ACCESS_TOKEN")
	appEnv := strings.ToLower(os.Getenv("APP_ENV"))
	if appEnv == "production" || appEnv == "prod" {
		if prodTok := os.Getenv("PROD_ACCESS_TOKEN"); prodTok != "" {
			token = prodTok
		}
	}
	gateway := mercadopago.NewGateway(token)

	var carrier domain.CarrierClient
	if srTok := os.Getenv("SHIPROCKET_TOKEN"); srTok != "" {
		carrier = shiprocket.NewClient(srTok)
	}

	var oauthCfg *oauth2.Config
	googleID := os.Getenv("GOOGLE_CLIENT_ID")
	googleSecret := os.Getenv("GOOGLE_CLIENT_SECRET")
	baseURL := os.Getenv("BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	if googleID != "" && googleSecret != "" {
		oauthCfg = &oauth2.Config{
			ClientID:     googleID,
			ClientSecret: googleSecret,
			RedirectURL:  baseURL + "/auth/google/callback",
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		}
	}

	app := &App{
		DB:    db,
		Repos: repos,
		CartUC: &usecase.CartUC{
			Carts:        repos.Carts(),
			Products:     repos.Products(),
			Pricing:      repos.Pricing(),
			MOQ:          repos.MOQ(),
			UoW:          uow,
			TaxPct:       envFloat("TAX_PCT", 0),
			ShippingCost: envFloat("SHIPPING_COST", 0),
		},
		OrderUC:      &usecase.OrderUC{UoW: uow, Gateway: gateway, Carrier: carrier},
		PricingUC:    &usecase.PricingUC{Products: repos.Products(), Pricing: repos.Pricing(), MOQ: repos.MOQ()},
		CommissionUC: &usecase.CommissionUC{UoW: uow},
		OAuthConfig:  oauthCfg,
	}
	return app, nil
}

func (a *App) HTTPHandler() http.Handler {
	return httpserver.New(a.CartUC, a.OrderUC, a.PricingUC, a.CommissionUC, a.Repos, a.OAuthConfig)
}

func (a *App) Migrate() error {
	if err := a.DB.AutoMigrate(
		&domain.Product{}, &domain.Variant{},
		&domain.PricingSlab{}, &domain.FlashSale{}, &domain.FlashSaleProduct{},
		&domain.MOQSetting{},
		&domain.CartItem{},
		&domain.Order{}, &domain.OrderItem{}, &domain.ReturnRequest{},
		&domain.InventoryLogEntry{},
		&domain.Partner{}, &domain.PromoCode{}, &domain.PartnerEarning{},
		&domain.Tracking{}, &domain.TrackingUpdate{},
		&domain.Payment{},
		&domain.Customer{},
	); err != nil {
		return err
	}

	_ = a.DB.Exec("CREATE UNIQUE INDEX IF NOT EXISTS idx_earning_order_partner ON partner_earnings (partner_id, order_id)").Error
	_ = a.DB.Exec("CREATE UNIQUE INDEX IF NOT EXISTS idx_cart_user_variant ON cart_items (user_id, variant_id)").Error
	_ = a.DB.Exec("CREATE INDEX IF NOT EXISTS idx_slabs_product ON pricing_slabs (product_id)").Error
	_ = a.DB.Exec("CREATE INDEX IF NOT EXISTS idx_slabs_variant ON pricing_slabs (variant_id)").Error
	_ = a.DB.Exec("CREATE INDEX IF NOT EXISTS idx_flash_window ON flash_sales (starts_at, ends_at)").Error
	_ = a.DB.Exec("CREATE INDEX IF NOT EXISTS idx_inventory_log_variant ON inventory_log_entries (variant_id)").Error
	_ = a.DB.Exec("CREATE INDEX IF NOT EXISTS idx_orders_status ON orders (status)").Error
	_ = a.DB.Exec("CREATE INDEX IF NOT EXISTS idx_orders_user ON orders (user_id)").Error

	return nil
}

func envFloat(key string, def float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return def
	}
	return v
}
