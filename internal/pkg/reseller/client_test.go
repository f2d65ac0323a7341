package reseller

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, timeout time.Duration) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(Config{BaseURL: server.URL + "/api/", Token: "test-token", Timeout: timeout})
}

func TestTopUpSendsResellerPayload(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/topup/" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte("invalid route"))
			return
		}
		if r.Header.Get("Authorization") != "Token test-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if body["mobile_number"] != "08031234567" || body["network"] != "MTN" ||
			body["Ported_number"] != true || body["airtime_type"] != "VTU" || body["amount"] != 500.0 {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte("unexpected payload"))
			return
		}
		_, _ = w.Write([]byte(`{"id":1,"Status":"successful","api_response":"You have topped up 500"}`))
	}, time.Second)

	res, err := client.TopUp(context.Background(), AirtimeRequest{
		Network:      "MTN",
		Amount:       Amount(decimal.NewFromInt(500)),
		MobileNumber: "08031234567",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Success {
		t.Fatalf("expected success, got %+v", res)
	}
	if res.Message != "You have topped up 500" {
		t.Fatalf("unexpected message %q", res.Message)
	}
}

func TestNonSuccessStatusReturnsBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":["Invalid meter number"]}`))
	}, time.Second)

	res, err := client.PayBill(context.Background(), BillPaymentRequest{DiscoName: "IKEDC", MeterNumber: "123"})
	if !errors.Is(err, ErrHTTPStatus) {
		t.Fatalf("expected ErrHTTPStatus, got %v", err)
	}
	if res == nil || res.StatusCode != http.StatusBadRequest || res.Success {
		t.Fatalf("expected failed result with status, got %+v", res)
	}
	if !strings.Contains(err.Error(), "status=400") {
		t.Fatalf("expected status in error, got %v", err)
	}
}

func TestTimeoutIsError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(`{"status":"success"}`))
	}, 50*time.Millisecond)

	_, err := client.SubscribeCable(context.Background(), CableRequest{CableName: "DSTV", CablePlan: "7", SmartCardNumber: "1234567890"})
	if err == nil || !strings.Contains(err.Error(), "reseller timeout") {
		t.Fatalf("expected timeout error, got %v", err)
	}
}

func TestUnconfiguredClient(t *testing.T) {
	client := NewClient(Config{BaseURL: "http://localhost"})
	if _, err := client.BuyData(context.Background(), DataRequest{}); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestAccount(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/api/user/" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"user":{"username":"quickbills","wallet_balance":"15250.50"}}`))
	}, time.Second)

	acct, err := client.Account(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if acct.Username != "quickbills" || acct.WalletBalance.String() != "15250.5" {
		t.Fatalf("unexpected account %+v", acct)
	}
}
