package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"booking-engine/internal/models"
	"booking-engine/internal/util"
)

// PaymentGateway abstracts the external payment processor. Both calls
// carry bounded timeouts; a timeout counts as the call not having
// happened and callers retry with the same idempotency key.
type PaymentGateway interface {
	CreateIntent(ctx context.Context, reservationID string, amount int64, currency string) (string, error)
	Refund(ctx context.Context, intentRef string, amount int64) error
}

// HTTPGateway talks to the gateway's REST API.
type HTTPGateway struct {
	baseURL string
	client  *http.Client
}

// NewHTTPGateway creates a gateway client with a bounded timeout
func NewHTTPGateway(baseURL string, timeout time.Duration) *HTTPGateway {
	return &HTTPGateway{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type createIntentRequest struct {
	ReservationID string `json:"reservation_id"`
	Amount        int64  `json:"amount"`
	Currency      string `json:"currency"`
}

type createIntentResponse struct {
	IntentRef string `json:"intent_ref"`
}

type refundRequest struct {
	IntentRef string `json:"intent_ref"`
	Amount    int64  `json:"amount"`
}

// CreateIntent opens a payment intent with the gateway. The gateway
// treats reservation_id as the idempotency key on its side.
func (g *HTTPGateway) CreateIntent(ctx context.Context, reservationID string, amount int64, currency string) (string, error) {
	start := time.Now()
	defer func() {
		util.GatewayCallLatency.WithLabelValues("create_intent").Observe(time.Since(start).Seconds())
	}()

	body, err := json.Marshal(createIntentRequest{
		ReservationID: reservationID,
		Amount:        amount,
		Currency:      currency,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/v1/intents", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", reservationID)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: create intent: %v", models.ErrPaymentGateway, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("%w: create intent status %d", models.ErrPaymentGateway, resp.StatusCode)
	}

	var out createIntentResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: decode intent response: %v", models.ErrPaymentGateway, err)
	}
	return out.IntentRef, nil
}

// Refund asks the gateway to refund an intent
func (g *HTTPGateway) Refund(ctx context.Context, intentRef string, amount int64) error {
	start := time.Now()
	defer func() {
		util.GatewayCallLatency.WithLabelValues("refund").Observe(time.Since(start).Seconds())
	}()

	body, err := json.Marshal(refundRequest{IntentRef: intentRef, Amount: amount})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/v1/refunds", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", intentRef)

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: refund: %v", models.ErrPaymentGateway, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: refund status %d", models.ErrPaymentGateway, resp.StatusCode)
	}
	return nil
}
