package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"github.com/vendora/bazaar/internal/domain"
	"github.com/vendora/bazaar/internal/usecase"
)

type Server struct {
	mux         *http.ServeMux
	carts       *usecase.CartUC
	orders      *usecase.OrderUC
	pricing     *usecase.PricingUC
	commissions *usecase.CommissionUC
	repos       domain.RepoSet
	validate    *validator.Validate

	adminAllowed map[string]struct{}
	jwtSecret    []byte
	oauthCfg     *oauth2.Config
}

func New(carts *usecase.CartUC, orders *usecase.OrderUC, pricing *usecase.PricingUC, commissions *usecase.CommissionUC, repos domain.RepoSet, oauthCfg *oauth2.Config) http.Handler {
	s := &Server{
		mux:         http.NewServeMux(),
		carts:       carts,
		orders:      orders,
		pricing:     pricing,
		commissions: commissions,
		repos:       repos,
		validate:    validator.New(),
		oauthCfg:    oauthCfg,
	}

	allowed := map[string]struct{}{}
	if raw := os.Getenv("ADMIN_ALLOWED_EMAILS"); raw != "" {
		for _, e := range strings.Split(raw, ",") {
			e = strings.ToLower(strings.TrimSpace(e))
			if e != "" {
				allowed[e] = struct{}{}
			}
		}
	}
	s.adminAllowed = allowed
	sec := os.Getenv("JWT_ADMIN_SECRET")
	if sec == "" {
		sec = "dev-admin-secret"
	}
	s.jwtSecret = []byte(sec)

	s.routes()
	return Chain(s.mux,
		RateLimit(120),
		RequestID,
		Recovery,
		Logging,
	)
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	s.mux.HandleFunc("/api/cart", s.handleCart)
	s.mux.HandleFunc("/api/cart/update", s.handleCartUpdate)
	s.mux.HandleFunc("/api/cart/remove", s.handleCartRemove)
	s.mux.HandleFunc("/api/checkout", s.handleCheckout)
	s.mux.HandleFunc("/api/price", s.handleEffectivePrice)
	s.mux.HandleFunc("/api/orders/", s.handleOrder)
	s.mux.HandleFunc("/api/returns", s.handleReturnRequest)

	s.mux.HandleFunc("/api/admin/orders/", s.handleAdminOrderTransition)
	s.mux.HandleFunc("/api/admin/returns/", s.handleAdminReturn)
	s.mux.HandleFunc("/api/admin/moq", s.handleAdminMOQ)
	s.mux.HandleFunc("/api/admin/slabs", s.handleAdminSlabs)
	s.mux.HandleFunc("/api/admin/flash-sales", s.handleAdminFlashSales)
	s.mux.HandleFunc("/api/admin/commissions/backfill", s.handleCommissionBackfill)
	s.mux.HandleFunc("/api/admin/export/earnings.xlsx", s.handleExportEarnings)
	s.mux.HandleFunc("/api/admin/export/inventory.xlsx", s.handleExportInventory)

	s.mux.HandleFunc("/auth/google/login", s.handleGoogleLogin)
	s.mux.HandleFunc("/auth/google/callback", s.handleGoogleCallback)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors to HTTP statuses; anything unrecognized is a
// generic 500 without internals leaking to the caller.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]any{"error": err.Error()})
	case errors.Is(err, domain.ErrMOQViolation):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"error": err.Error()})
	case errors.Is(err, domain.ErrInsufficientStock),
		errors.Is(err, domain.ErrInvalidTransition):
		writeJSON(w, http.StatusConflict, map[string]any{"error": err.Error()})
	case errors.Is(err, domain.ErrEmptyCart):
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
	case errors.Is(err, domain.ErrCollaborator):
		writeJSON(w, http.StatusBadGateway, map[string]any{"error": err.Error()})
	default:
		log.Error().Err(err).Msg("request failed")
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "internal error"})
	}
}

func (s *Server) decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return err
	}
	return s.validate.Struct(v)
}

func parseUUID(raw string) (uuid.UUID, error) {
	return uuid.Parse(strings.TrimSpace(raw))
}

type cartMutationRequest struct {
	UserID    string `json:"user_id" validate:"required,uuid"`
	VariantID string `json:"variant_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"gte=0"`
}

func (s *Server) handleCart(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		userID, err := parseUUID(r.URL.Query().Get("user_id"))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "user_id must be a uuid"})
			return
		}
		cart, err := s.carts.GetCart(r.Context(), userID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, cartResponse(cart))
	case http.MethodPost:
		var req cartMutationRequest
		if err := s.decode(r, &req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
			return
		}
		userID, _ := parseUUID(req.UserID)
		variantID, _ := parseUUID(req.VariantID)
		item, err := s.carts.AddToCart(r.Context(), userID, variantID, req.Quantity)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, item)
	default:
		http.Error(w, "method", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleCartUpdate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method", http.StatusMethodNotAllowed)
		return
	}
	var req cartMutationRequest
	if err := s.decode(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return
	}
	userID, _ := parseUUID(req.UserID)
	variantID, _ := parseUUID(req.VariantID)
	item, err := s.carts.UpdateCartItem(r.Context(), userID, variantID, req.Quantity)
	if err != nil {
		writeError(w, err)
		return
	}
	if item == nil {
		writeJSON(w, http.StatusOK, map[string]any{"status": "removed"})
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) handleCartRemove(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method", http.StatusMethodNotAllowed)
		return
	}
	var req cartMutationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return
	}
	userID, err := parseUUID(req.UserID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "user_id must be a uuid"})
		return
	}
	variantID, err := parseUUID(req.VariantID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "variant_id must be a uuid"})
		return
	}
	if err := s.carts.RemoveFromCart(r.Context(), userID, variantID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "removed"})
}

func cartResponse(cart *domain.PricedCart) map[string]any {
	lines := make([]map[string]any, 0, len(cart.Lines))
	for _, l := range cart.Lines {
		line := map[string]any{
			"variant_id":   l.Variant.ID,
			"product":      l.Product.Name,
			"sku":          l.Variant.SKU,
			"quantity":     l.Item.Quantity,
			"unit_price":   l.Quote.UnitPrice,
			"price_source": l.Quote.Source,
			"subtotal":     l.Subtotal,
			"min_quantity": l.MOQ.MinQuantity,
			"moq_source":   l.MOQ.Source,
			"in_stock":     l.InStock,
			"meets_moq":    l.MeetsMOQ,
		}
		if l.Quote.FlashSale != nil {
			line["flash_sale"] = l.Quote.FlashSale.Name
			line["original_price"] = l.Quote.OriginalPrice
		}
		lines = append(lines, line)
	}
	return map[string]any{"lines": lines, "subtotal": cart.Subtotal}
}

type checkoutRequest struct {
	UserID     string `json:"user_id" validate:"required,uuid"`
	AddressID  string `json:"address_id" validate:"omitempty,uuid"`
	CouponCode string `json:"coupon_code"`
}

func (s *Server) handleCheckout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method", http.StatusMethodNotAllowed)
		return
	}
	var req checkoutRequest
	if err := s.decode(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return
	}
	userID, _ := parseUUID(req.UserID)
	var addressID *uuid.UUID
	if req.AddressID != "" {
		id, _ := parseUUID(req.AddressID)
		addressID = &id
	}
	order, err := s.carts.Checkout(r.Context(), userID, addressID, req.CouponCode)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, order)
}

func (s *Server) handleEffectivePrice(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method", http.StatusMethodNotAllowed)
		return
	}
	variantID, err := parseUUID(r.URL.Query().Get("variant_id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "variant_id must be a uuid"})
		return
	}
	qty, _ := strconv.Atoi(r.URL.Query().Get("qty"))
	quote, err := s.pricing.EffectivePrice(r.Context(), variantID, qty)
	if err != nil {
		writeError(w, err)
		return
	}
	resp := map[string]any{"unit_price": quote.UnitPrice, "source": quote.Source}
	if quote.FlashSale != nil {
		resp["flash_sale"] = quote.FlashSale.Name
		resp["original_price"] = quote.OriginalPrice
	}
	if quote.Slab != nil {
		resp["slab_min_qty"] = quote.Slab.MinQty
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleOrder(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method", http.StatusMethodNotAllowed)
		return
	}
	orderID, err := parseUUID(strings.TrimPrefix(r.URL.Path, "/api/orders/"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "order id must be a uuid"})
		return
	}
	order, err := s.orders.Get(r.Context(), orderID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

type transitionRequest struct {
	Target         string `json:"target" validate:"required"`
	TrackingNumber string `json:"tracking_number"`
	CarrierName    string `json:"carrier_name"`
	Reason         string `json:"reason"`
	Actor          string `json:"actor"`
}

func (s *Server) handleAdminOrderTransition(w http.ResponseWriter, r *http.Request) {
	if !s.requireAdmin(w, r) {
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method", http.StatusMethodNotAllowed)
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/api/admin/orders/")
	idPart, action, ok := strings.Cut(rest, "/")
	if !ok || action != "transition" {
		http.NotFound(w, r)
		return
	}
	orderID, err := parseUUID(idPart)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "order id must be a uuid"})
		return
	}
	var req transitionRequest
	if err := s.decode(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return
	}
	target := domain.OrderStatus(strings.ToUpper(strings.TrimSpace(req.Target)))
	order, err := s.orders.Transition(r.Context(), orderID, target, domain.TransitionContext{
		Actor:          req.Actor,
		TrackingNumber: req.TrackingNumber,
		CarrierName:    req.CarrierName,
		CancelReason:   req.Reason,
		RefundReason:   req.Reason,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

type returnRequestPayload struct {
	OrderItemID string `json:"order_item_id" validate:"required,uuid"`
	Reason      string `json:"reason" validate:"required"`
}

func (s *Server) handleReturnRequest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method", http.StatusMethodNotAllowed)
		return
	}
	var req returnRequestPayload
	if err := s.decode(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return
	}
	itemID, _ := parseUUID(req.OrderItemID)
	rr, err := s.orders.RequestReturn(r.Context(), itemID, req.Reason)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rr)
}

func (s *Server) handleAdminReturn(w http.ResponseWriter, r *http.Request) {
	if !s.requireAdmin(w, r) {
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method", http.StatusMethodNotAllowed)
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/api/admin/returns/")
	idPart, action, ok := strings.Cut(rest, "/")
	if !ok {
		http.NotFound(w, r)
		return
	}
	returnID, err := parseUUID(idPart)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "return id must be a uuid"})
		return
	}
	actor := r.URL.Query().Get("actor")
	var rr *domain.ReturnRequest
	switch action {
	case "approve":
		rr, err = s.orders.ApproveReturn(r.Context(), returnID, actor)
	case "reject":
		rr, err = s.orders.RejectReturn(r.Context(), returnID, actor)
	default:
		http.NotFound(w, r)
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rr)
}

type moqSettingRequest struct {
	Scope       string `json:"scope" validate:"required,oneof=GLOBAL PRODUCT VARIANT"`
	ProductID   string `json:"product_id" validate:"omitempty,uuid"`
	VariantID   string `json:"variant_id" validate:"omitempty,uuid"`
	MinQuantity int    `json:"min_quantity" validate:"required,gte=1"`
	Active      bool   `json:"active"`
}

func (s *Server) handleAdminMOQ(w http.ResponseWriter, r *http.Request) {
	if !s.requireAdmin(w, r) {
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method", http.StatusMethodNotAllowed)
		return
	}
	var req moqSettingRequest
	if err := s.decode(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return
	}
	setting := &domain.MOQSetting{
		Scope:       domain.MOQScope(req.Scope),
		MinQuantity: req.MinQuantity,
		Active:      req.Active,
	}
	if req.ProductID != "" {
		id, _ := parseUUID(req.ProductID)
		setting.ProductID = &id
	}
	if req.VariantID != "" {
		id, _ := parseUUID(req.VariantID)
		setting.VariantID = &id
	}
	switch setting.Scope {
	case domain.MOQScopeProduct:
		if setting.ProductID == nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "PRODUCT scope requires product_id"})
			return
		}
	case domain.MOQScopeVariant:
		if setting.VariantID == nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "VARIANT scope requires variant_id"})
			return
		}
	}
	if err := s.repos.MOQ().SaveSetting(r.Context(), setting); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, setting)
}

type slabRequest struct {
	ProductID string  `json:"product_id" validate:"omitempty,uuid"`
	VariantID string  `json:"variant_id" validate:"omitempty,uuid"`
	MinQty    int     `json:"min_qty" validate:"required,gte=1"`
	MaxQty    *int    `json:"max_qty" validate:"omitempty,gtefield=MinQty"`
	UnitPrice float64 `json:"unit_price" validate:"required,gt=0"`
	Active    bool    `json:"active"`
}

func (s *Server) handleAdminSlabs(w http.ResponseWriter, r *http.Request) {
	if !s.requireAdmin(w, r) {
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method", http.StatusMethodNotAllowed)
		return
	}
	var req slabRequest
	if err := s.decode(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return
	}
	if req.ProductID == "" && req.VariantID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "slab requires product_id or variant_id"})
		return
	}
	slab := &domain.PricingSlab{MinQty: req.MinQty, MaxQty: req.MaxQty, UnitPrice: req.UnitPrice, Active: req.Active}
	if req.ProductID != "" {
		id, _ := parseUUID(req.ProductID)
		slab.ProductID = &id
	}
	if req.VariantID != "" {
		id, _ := parseUUID(req.VariantID)
		slab.VariantID = &id
	}
	if err := s.repos.Pricing().SaveSlab(r.Context(), slab); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, slab)
}

type flashSaleRequest struct {
	Name        string    `json:"name" validate:"required"`
	DiscountPct float64   `json:"discount_pct" validate:"required,gt=0,lte=100"`
	StartsAt    time.Time `json:"starts_at" validate:"required"`
	EndsAt      time.Time `json:"ends_at" validate:"required,gtfield=StartsAt"`
	MaxQuantity int       `json:"max_quantity" validate:"gte=0"`
	ProductIDs  []string  `json:"product_ids" validate:"required,min=1,dive,uuid"`
	Active      bool      `json:"active"`
}

func (s *Server) handleAdminFlashSales(w http.ResponseWriter, r *http.Request) {
	if !s.requireAdmin(w, r) {
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method", http.StatusMethodNotAllowed)
		return
	}
	var req flashSaleRequest
	if err := s.decode(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return
	}
	sale := &domain.FlashSale{
		Name:        req.Name,
		DiscountPct: req.DiscountPct,
		StartsAt:    req.StartsAt,
		EndsAt:      req.EndsAt,
		MaxQuantity: req.MaxQuantity,
		Active:      req.Active,
	}
	if err := s.repos.Pricing().SaveFlashSale(r.Context(), sale); err != nil {
		writeError(w, err)
		return
	}
	for _, raw := range req.ProductIDs {
		productID, _ := parseUUID(raw)
		if err := s.repos.Pricing().AttachFlashSaleProduct(r.Context(), sale.ID, productID); err != nil {
			writeError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusCreated, sale)
}

func (s *Server) handleCommissionBackfill(w http.ResponseWriter, r *http.Request) {
	if !s.requireAdmin(w, r) {
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method", http.StatusMethodNotAllowed)
		return
	}
	created, err := s.commissions.Backfill(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"created": created})
}
