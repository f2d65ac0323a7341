package paystack

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(Config{BaseURL: server.URL, SecretKey: "sk_test", Timeout: time.Second})
}

func TestInitializeSendsKoboAndBearer(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/transaction/initialize", r.URL.Path)
		assert.Equal(t, "Bearer sk_test", r.Header.Get("Authorization"))

		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, 150050.0, body["amount"])
		assert.Equal(t, "FND-1", body["reference"])
		assert.Equal(t, "direct", body["metadata"].(map[string]any)["paymentType"])

		_, _ = w.Write([]byte(`{"status":true,"message":"ok","data":{"authorization_url":"https://checkout.test/abc","access_code":"abc","reference":"FND-1"}}`))
	})

	res, err := client.Initialize(context.Background(), InitializeRequest{
		Email:     "payer@example.com",
		Amount:    decimal.RequireFromString("1500.50"),
		Reference: "FND-1",
		Metadata:  map[string]any{"paymentType": "direct"},
	})
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.test/abc", res.AuthorizationURL)
}

func TestVerifyDecodesTransaction(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/transaction/verify/FND-2", r.URL.Path)
		_, _ = w.Write([]byte(`{"status":true,"message":"Verification successful","data":{
			"reference":"FND-2","status":"success","amount":250000,"gateway_response":"Approved",
			"metadata":{"userId":"u1"},"customer":{"email":"payer@example.com"}}}`))
	})

	txn, err := client.Verify(context.Background(), "FND-2")
	require.NoError(t, err)
	assert.True(t, txn.Succeeded())
	assert.True(t, txn.Naira().Equal(decimal.NewFromInt(2500)))
	assert.Equal(t, "payer@example.com", txn.Customer.Email)
	assert.JSONEq(t, `{"userId":"u1"}`, string(txn.Metadata))
}

func TestRejectedResponse(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"status":false,"message":"Invalid key"}`))
	})

	_, err := client.Verify(context.Background(), "FND-3")
	assert.True(t, errors.Is(err, ErrRejected))
}

func TestUnconfiguredClient(t *testing.T) {
	_, err := NewClient(Config{}).Verify(context.Background(), "x")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestKoboConversion(t *testing.T) {
	assert.Equal(t, int64(123456), NairaToKobo(decimal.RequireFromString("1234.56")))
	assert.True(t, KoboToNaira(99).Equal(decimal.RequireFromString("0.99")))
}
