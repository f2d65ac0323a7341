// Package reseller is the HTTP client for the VTU reseller API that delivers
// airtime, data bundles, electricity tokens and cable subscriptions.
package reseller

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/quickbills/billpay-api/internal/pkg/httpclient"
)

const (
	defaultTimeout = 30 * time.Second
	maxBodyBytes   = 1 << 20
	serviceName    = "reseller"
)

var (
	ErrNotConfigured = errors.New("reseller client is not configured")
	ErrHTTPStatus    = errors.New("reseller returned non-success HTTP status")
)

// Config holds reseller API settings
type Config struct {
	BaseURL    string
	Token      string
	AuthScheme string // "Token" or "Bearer"
	Timeout    time.Duration
}

// Client calls the reseller API
type Client struct {
	config Config
	http   *http.Client
}

// NewClient creates a reseller client
func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.AuthScheme == "" {
		cfg.AuthScheme = "Token"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return &Client{
		config: cfg,
		http:   httpclient.New(cfg.Timeout),
	}
}

// AirtimeRequest is the /topup/ payload
type AirtimeRequest struct {
	Network      string      `json:"network"`
	Amount       json.Number `json:"amount"`
	MobileNumber string      `json:"mobile_number"`
	PortedNumber bool        `json:"Ported_number"`
	AirtimeType  string      `json:"airtime_type"`
}

// DataRequest is the /data/ payload
type DataRequest struct {
	Network      string `json:"network"`
	MobileNumber string `json:"mobile_number"`
	Plan         string `json:"plan"`
	PortedNumber bool   `json:"Ported_number"`
}

// BillPaymentRequest is the /billpayment/ payload
type BillPaymentRequest struct {
	DiscoName   string      `json:"disco_name"`
	Amount      json.Number `json:"amount"`
	MeterNumber string      `json:"meter_number"`
	MeterType   string      `json:"MeterType"`
}

// CableRequest is the /cablesub/ payload
type CableRequest struct {
	CableName       string `json:"cablename"`
	CablePlan       string `json:"cableplan"`
	SmartCardNumber string `json:"smart_card_number"`
}

// Amount renders a decimal as the bare JSON number the reseller expects.
func Amount(d decimal.Decimal) json.Number {
	return json.Number(d.StringFixed(2))
}

// Result is a decoded reseller reply
type Result struct {
	StatusCode int
	Body       json.RawMessage
	Success    bool
	Message    string
}

// Account is the reseller wallet summary returned by /user/
type Account struct {
	Username      string          `json:"username"`
	WalletBalance decimal.Decimal `json:"wallet_balance"`
}

// TopUp buys airtime
func (c *Client) TopUp(ctx context.Context, req AirtimeRequest) (*Result, error) {
	req.PortedNumber = true
	if req.AirtimeType == "" {
		req.AirtimeType = "VTU"
	}
	return c.post(ctx, "/topup/", req)
}

// BuyData buys a data bundle
func (c *Client) BuyData(ctx context.Context, req DataRequest) (*Result, error) {
	req.PortedNumber = true
	return c.post(ctx, "/data/", req)
}

// PayBill pays an electricity bill
func (c *Client) PayBill(ctx context.Context, req BillPaymentRequest) (*Result, error) {
	return c.post(ctx, "/billpayment/", req)
}

// SubscribeCable renews a cable TV subscription
func (c *Client) SubscribeCable(ctx context.Context, req CableRequest) (*Result, error) {
	return c.post(ctx, "/cablesub/", req)
}

// Account returns the reseller wallet balance
func (c *Client) Account(ctx context.Context) (*Account, error) {
	res, err := c.do(ctx, http.MethodGet, "/user/", nil)
	if err != nil {
		return nil, err
	}

	var envelope struct {
		User Account `json:"user"`
		Account
	}
	if err := json.Unmarshal(res.Body, &envelope); err != nil {
		return nil, fmt.Errorf("reseller decode account: %w", err)
	}
	if envelope.User.Username != "" || !envelope.User.WalletBalance.IsZero() {
		return &envelope.User, nil
	}
	return &envelope.Account, nil
}

func (c *Client) post(ctx context.Context, path string, payload any) (*Result, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("reseller marshal request: %w", err)
	}
	return c.do(ctx, http.MethodPost, path, body)
}

// do returns the decoded result even on a non-2xx status so callers can
// record the provider payload alongside the error.
func (c *Client) do(ctx context.Context, method, path string, body []byte) (*Result, error) {
	if c == nil || c.config.BaseURL == "" || c.config.Token == "" {
		return nil, ErrNotConfigured
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("reseller request error: %w", err)
	}
	req.Header.Set("Authorization", c.config.AuthScheme+" "+c.config.Token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, httpclient.ClassifyRequestError(ctx, serviceName, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, httpclient.ClassifyRequestError(ctx, serviceName, err)
	}

	res := &Result{
		StatusCode: resp.StatusCode,
		Message:    Message(raw),
	}
	if json.Valid(raw) {
		res.Body = raw
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return res, fmt.Errorf("%w: status=%d body=%s", ErrHTTPStatus, resp.StatusCode, truncate(raw, 512))
	}

	res.Success = IsSuccess(raw)
	return res, nil
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
