package mercadopago

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/vendora/bazaar/internal/domain"
)

const apiBase = "https://api.mercadopago.com"

// Gateway implements domain.PaymentGateway against the MercadoPago REST API.
type Gateway struct {
	token      string
	httpClient *http.Client
}

func NewGateway(token string) *Gateway {
	return &Gateway{token: token, httpClient: &http.Client{Timeout: 10 * time.Second}}
}

type mpPaymentResp struct {
	ID                int64  `json:"id"`
	Status            string `json:"status"`
	Captured          bool   `json:"captured"`
	ExternalReference string `json:"external_reference"`
}

type mpRefundResp struct {
	ID     int64  `json:"id"`
	Status string `json:"status"`
}

type mpErrorResp struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
	Code    string `json:"code"`
}

func (g *Gateway) do(ctx context.Context, method, path string, body any, out any) error {
	if g.token == "" {
		return errors.New("MP_ACCESS_TOKEN missing")
	}
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, apiBase+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+g.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	res, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("mercadopago request failed: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode >= 300 {
		raw, _ := io.ReadAll(res.Body)
		var mpErr mpErrorResp
		if err := json.Unmarshal(raw, &mpErr); err == nil && mpErr.Message != "" {
			return fmt.Errorf("mercadopago status %d: %s", res.StatusCode, mpErr.Message)
		}
		return fmt.Errorf("mercadopago status %d: %s", res.StatusCode, string(raw))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(res.Body).Decode(out)
}

// Capture marks an authorized payment as captured.
func (g *Gateway) Capture(ctx context.Context, externalID string) error {
	if externalID == "" {
		return errors.New("payment id required")
	}
	body := map[string]any{"capture": true}
	var resp mpPaymentResp
	if err := g.do(ctx, http.MethodPut, "/v1/payments/"+externalID, body, &resp); err != nil {
		return err
	}
	if resp.Status != "approved" {
		return fmt.Errorf("capture not approved, payment status %q", resp.Status)
	}
	return nil
}

// Refund issues a (partial) refund and returns the gateway's refund id. The
// caller treats a non-nil error as a failed refund: the order transition
// must not commit without a confirmed result.
func (g *Gateway) Refund(ctx context.Context, externalID string, amount float64, reason string) (*domain.RefundResult, error) {
	if externalID == "" {
		return nil, errors.New("payment id required")
	}
	body := map[string]any{"amount": amount}
	if reason != "" {
		body["metadata"] = map[string]string{"reason": reason}
	}
	var resp mpRefundResp
	if err := g.do(ctx, http.MethodPost, "/v1/payments/"+externalID+"/refunds", body, &resp); err != nil {
		return nil, err
	}
	return &domain.RefundResult{RefundID: fmt.Sprint(resp.ID), Status: resp.Status}, nil
}

// PaymentInfo fetches the current status of a payment, for reconciling
// local payment rows with gateway state.
func (g *Gateway) PaymentInfo(ctx context.Context, paymentID string) (status, externalRef string, err error) {
	if paymentID == "" {
		return "", "", errors.New("payment id required")
	}
	var resp mpPaymentResp
	if err := g.do(ctx, http.MethodGet, "/v1/payments/"+paymentID, nil, &resp); err != nil {
		return "", "", err
	}
	return resp.Status, resp.ExternalReference, nil
}
