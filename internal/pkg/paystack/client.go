// Package paystack is the HTTP client for the Paystack payment gateway and the
// webhook payload types it posts back.
package paystack

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/quickbills/billpay-api/internal/pkg/httpclient"
)

const (
	defaultBaseURL = "https://api.paystack.co"
	defaultTimeout = 15 * time.Second
	maxBodyBytes   = 1 << 20
	serviceName    = "paystack"
)

var (
	ErrNotConfigured = errors.New("paystack client is not configured")
	ErrRejected      = errors.New("paystack rejected the request")
)

// Config holds Paystack API settings
type Config struct {
	BaseURL   string
	SecretKey string
	Timeout   time.Duration
}

// Client calls the Paystack API
type Client struct {
	config Config
	http   *http.Client
}

// NewClient creates a Paystack client
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return &Client{
		config: cfg,
		http:   httpclient.New(cfg.Timeout),
	}
}

// SecretKey is also the webhook signing key.
func (c *Client) SecretKey() string {
	return c.config.SecretKey
}

// InitializeRequest opens a hosted checkout. Amount is in naira.
type InitializeRequest struct {
	Email       string
	Amount      decimal.Decimal
	Reference   string
	CallbackURL string
	Metadata    map[string]any
}

// InitializeResult is the checkout the client redirects to
type InitializeResult struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

// Customer as embedded in transactions and events
type Customer struct {
	Email string `json:"email"`
}

// Transaction is a charge as reported by verify and by webhook events.
// Amount is in kobo.
type Transaction struct {
	Reference       string          `json:"reference"`
	Status          string          `json:"status"`
	Amount          int64           `json:"amount"`
	Currency        string          `json:"currency"`
	GatewayResponse string          `json:"gateway_response"`
	Channel         string          `json:"channel"`
	Metadata        json.RawMessage `json:"metadata"`
	Customer        Customer        `json:"customer"`
}

// Naira converts the kobo amount.
func (t Transaction) Naira() decimal.Decimal {
	return KoboToNaira(t.Amount)
}

// Succeeded reports a completed charge.
func (t Transaction) Succeeded() bool {
	return t.Status == "success"
}

type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Initialize handles POST /transaction/initialize
func (c *Client) Initialize(ctx context.Context, req InitializeRequest) (*InitializeResult, error) {
	payload := map[string]any{
		"email":     req.Email,
		"amount":    NairaToKobo(req.Amount),
		"reference": req.Reference,
		"currency":  "NGN",
		"channels":  []string{"card", "bank", "ussd", "qr", "mobile_money", "bank_transfer"},
	}
	if req.CallbackURL != "" {
		payload["callback_url"] = req.CallbackURL
	}
	if len(req.Metadata) > 0 {
		payload["metadata"] = req.Metadata
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("paystack marshal request: %w", err)
	}

	var out InitializeResult
	if err := c.do(ctx, http.MethodPost, "/transaction/initialize", body, &out); err != nil {
		return nil, err
	}
	if out.AuthorizationURL == "" {
		return nil, fmt.Errorf("%w: missing authorization_url", ErrRejected)
	}
	return &out, nil
}

// Verify handles GET /transaction/verify/{reference}
func (c *Client) Verify(ctx context.Context, reference string) (*Transaction, error) {
	var out Transaction
	if err := c.do(ctx, http.MethodGet, "/transaction/verify/"+url.PathEscape(reference), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	if c == nil || c.config.SecretKey == "" {
		return ErrNotConfigured
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("paystack request error: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.config.SecretKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return httpclient.ClassifyRequestError(ctx, serviceName, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return httpclient.ClassifyRequestError(ctx, serviceName, err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("paystack decode response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !env.Status {
		return fmt.Errorf("%w: status=%d message=%s", ErrRejected, resp.StatusCode, env.Message)
	}

	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("paystack decode data: %w", err)
	}
	return nil
}

// KoboToNaira converts gateway minor units.
func KoboToNaira(kobo int64) decimal.Decimal {
	return decimal.New(kobo, -2)
}

// NairaToKobo converts to gateway minor units, rounding half away from zero.
func NairaToKobo(naira decimal.Decimal) int64 {
	return naira.Shift(2).Round(0).IntPart()
}
