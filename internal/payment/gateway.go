package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
)

var (
	ErrGateway         = errors.New("payment gateway error")
	ErrSessionNotFound = errors.New("checkout session not found")
)

// Payment statuses reported by the gateway for a checkout session.
const (
	StatusPaid   = "paid"
	StatusUnpaid = "unpaid"
)

// Client talks to the external payment provider. Every call is attempted
// exactly once per request; there is no retry policy.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type LineItem struct {
	Currency    string `json:"currency"`
	Description string `json:"description"`
	UnitAmount  int64  `json:"unit_amount"`
	Quantity    int    `json:"quantity"`
}

type CreateSession struct {
	LineItem      LineItem          `json:"line_item"`
	Mode          string            `json:"mode"`
	SuccessURL    string            `json:"success_url"`
	CancelURL     string            `json:"cancel_url"`
	CustomerEmail string            `json:"customer_email"`
	Metadata      map[string]string `json:"metadata"`
}

// CheckoutSession is the gateway-side transaction. The ID is the opaque
// identifier every confirmation path is keyed by.
type CheckoutSession struct {
	ID            string            `json:"id"`
	URL           string            `json:"url"`
	PaymentStatus string            `json:"payment_status"`
	PaymentIntent string            `json:"payment_intent"`
	CustomerEmail string            `json:"customer_email"`
	Metadata      map[string]string `json:"metadata"`
	CreatedAt     time.Time         `json:"created_at"`
}

func (s *CheckoutSession) Paid() bool {
	return s.PaymentStatus == StatusPaid
}

// CreateCheckoutSession opens a gateway checkout transaction and returns
// the session the customer's browser must be redirected to.
func (c *Client) CreateCheckoutSession(ctx context.Context, create CreateSession) (*CheckoutSession, error) {
	body, err := json.Marshal(create)
	if err != nil {
		return nil, fmt.Errorf("payment: marshal create session: %w", err)
	}

	url := c.baseURL + "/v1/checkout/sessions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("payment: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Idempotency-Key", uuid.NewString())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("payment: create session request failed: %w", err)
	}
	defer resp.Body.Close()

	bts, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("payment: read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("payment: create session status %d, body %s: %w",
			resp.StatusCode, string(bts), ErrGateway)
	}

	var session CheckoutSession
	if err := json.Unmarshal(bts, &session); err != nil {
		return nil, fmt.Errorf("payment: decode session: %w", err)
	}
	return &session, nil
}

// GetCheckoutSession re-fetches a session server-to-server. The success
// redirect is never trusted on its own; payment status comes from here.
func (c *Client) GetCheckoutSession(ctx context.Context, sessionID string) (*CheckoutSession, error) {
	url := c.baseURL + "/v1/checkout/sessions/" + sessionID
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("payment: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("payment: get session request failed: %w", err)
	}
	defer resp.Body.Close()

	bts, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("payment: read response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		var session CheckoutSession
		if err := json.Unmarshal(bts, &session); err != nil {
			return nil, fmt.Errorf("payment: decode session: %w", err)
		}
		return &session, nil
	case http.StatusNotFound:
		return nil, ErrSessionNotFound
	default:
		return nil, fmt.Errorf("payment: get session status %d, body %s: %w",
			resp.StatusCode, string(bts), ErrGateway)
	}
}
