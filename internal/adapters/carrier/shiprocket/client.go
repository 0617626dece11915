package shiprocket

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

const apiBase = "https://apiv2.shiprocket.in/v1/external"

// Client implements domain.CarrierClient. Every call here is best-effort
// from the engine's perspective; callers log failures and move on.
type Client struct {
	token      string
	httpClient *http.Client
}

func NewClient(token string) *Client {
	return &Client{token: token, httpClient: &http.Client{Timeout: 15 * time.Second}}
}

type orderItemPayload struct {
	Name     string  `json:"name"`
	SKU      string  `json:"sku"`
	Units    int     `json:"units"`
	SellingP float64 `json:"selling_price"`
}

type createOrderPayload struct {
	OrderID     string             `json:"order_id"`
	OrderDate   string             `json:"order_date"`
	Items       []orderItemPayload `json:"order_items"`
	SubTotal    float64            `json:"sub_total"`
	PaymentMode string             `json:"payment_method"`
}

type createOrderResp struct {
	OrderID    json.Number `json:"order_id"`
	ShipmentID json.Number `json:"shipment_id"`
	Status     string      `json:"status"`
}

type assignAWBResp struct {
	AWBAssignStatus int `json:"awb_assign_status"`
	Response        struct {
		Data struct {
			AWBCode     string `json:"awb_code"`
			CourierName string `json:"courier_name"`
		} `json:"data"`
	} `json:"response"`
}

type trackResp struct {
	TrackingData struct {
		ShipmentTrack []struct {
			CurrentStatus string `json:"current_status"`
			Origin        string `json:"origin"`
			UpdatedAt     string `json:"updated_time_stamp"`
		} `json:"shipment_track"`
	} `json:"tracking_data"`
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	if c.token == "" {
		return errors.New("carrier token missing")
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
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	res, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("carrier request failed: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode >= 300 {
		raw, _ := io.ReadAll(res.Body)
		return fmt.Errorf("carrier status %d: %s", res.StatusCode, string(raw))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(res.Body).Decode(out)
}

func (c *Client) CreateShipment(ctx context.Context, o *domain.Order) (*domain.ShipmentRef, error) {
	payload := createOrderPayload{
		OrderID:     o.OrderNumber,
		OrderDate:   o.CreatedAt.Format("2006-01-02 15:04"),
		SubTotal:    o.Subtotal,
		PaymentMode: "Prepaid",
	}
	for _, it := range o.Items {
		payload.Items = append(payload.Items, orderItemPayload{
			Name:     it.Title,
			SKU:      it.SKU,
			Units:    it.Quantity,
			SellingP: it.UnitPrice,
		})
	}
	var resp createOrderResp
	if err := c.do(ctx, http.MethodPost, "/orders/create/adhoc", payload, &resp); err != nil {
		return nil, err
	}
	return &domain.ShipmentRef{CarrierOrderID: resp.OrderID.String(), ShipmentID: resp.ShipmentID.String()}, nil
}

func (c *Client) AssignCarrier(ctx context.Context, shipmentID string) (*domain.CarrierAssignment, error) {
	body := map[string]any{"shipment_id": shipmentID}
	var resp assignAWBResp
	if err := c.do(ctx, http.MethodPost, "/courier/assign/awb", body, &resp); err != nil {
		return nil, err
	}
	if resp.AWBAssignStatus != 1 {
		return nil, fmt.Errorf("awb assignment refused for shipment %s", shipmentID)
	}
	return &domain.CarrierAssignment{
		TrackingNumber: resp.Response.Data.AWBCode,
		CarrierName:    resp.Response.Data.CourierName,
	}, nil
}

func (c *Client) Cancel(ctx context.Context, carrierOrderID string) error {
	body := map[string]any{"ids": []string{carrierOrderID}}
	return c.do(ctx, http.MethodPost, "/orders/cancel", body, nil)
}

func (c *Client) Track(ctx context.Context, trackingNumber string) ([]domain.CarrierEvent, error) {
	var resp trackResp
	if err := c.do(ctx, http.MethodGet, "/courier/track/awb/"+trackingNumber, nil, &resp); err != nil {
		return nil, err
	}
	events := make([]domain.CarrierEvent, 0, len(resp.TrackingData.ShipmentTrack))
	for _, t := range resp.TrackingData.ShipmentTrack {
		ev := domain.CarrierEvent{Status: t.CurrentStatus, Location: t.Origin}
		if ts, err := time.Parse("2006-01-02 15:04:05", t.UpdatedAt); err == nil {
			ev.OccurredAt = ts
		}
		events = append(events, ev)
	}
	return events, nil
}
