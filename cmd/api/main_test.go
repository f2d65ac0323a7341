package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quickbills/billpay-api/internal/config"
	"github.com/quickbills/billpay-api/internal/domain/admin"
	"github.com/quickbills/billpay-api/internal/domain/fulfillment"
	"github.com/quickbills/billpay-api/internal/domain/funding"
	"github.com/quickbills/billpay-api/internal/domain/purchase"
	"github.com/quickbills/billpay-api/internal/domain/reward"
	"github.com/quickbills/billpay-api/internal/domain/transaction"
	"github.com/quickbills/billpay-api/internal/domain/user"
	"github.com/quickbills/billpay-api/internal/domain/wallet"
	"github.com/quickbills/billpay-api/internal/pkg/database"
	"github.com/quickbills/billpay-api/internal/pkg/jwt"
	"github.com/quickbills/billpay-api/internal/pkg/locker"
	"github.com/quickbills/billpay-api/internal/pkg/paystack"
	"github.com/quickbills/billpay-api/internal/pkg/reseller"
)

type testServer struct {
	router chi.Router
	jwt    *jwt.Service
	user   *user.User
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	cfg := &config.Config{AllowedOrigins: []string{"http://localhost:3000"}, PaystackSecretKey: "sk_test"}
	db := database.NewTestDB(t)
	tariff := config.DefaultTariff()

	users := user.NewRepository(db)
	machine := transaction.NewMachine(db)
	guard := wallet.NewGuard()
	compensator := purchase.NewCompensator(db, machine, guard)
	resellerClient := reseller.NewClient(reseller.Config{BaseURL: "http://127.0.0.1:0"})

	rewards := reward.NewService(db, tariff, guard, machine)
	purchases := purchase.NewService(db, machine, guard, users,
		fulfillment.NewResellerAdapter(resellerClient, time.Second), rewards, compensator, tariff)
	reconciler := funding.NewReconciler(db, machine, guard, purchases, locker.New(nil))
	fundingService := funding.NewService(db, machine, users, paystack.NewClient(paystack.Config{}), reconciler, "")

	u := &user.User{Email: "router@example.com", Balance: decimal.NewFromInt(50)}
	require.NoError(t, users.Create(context.Background(), u))

	jwtService := jwt.NewService("test-secret", time.Minute)
	router := newRouter(cfg, db, handlers{
		wallet:      wallet.NewHandler(wallet.NewService(users)),
		purchase:    purchase.NewHandler(purchases),
		transaction: transaction.NewHandler(transaction.NewService(machine)),
		reward:      reward.NewHandler(rewards),
		funding:     funding.NewHandler(fundingService),
		webhook:     funding.NewWebhookHandler(cfg.PaystackSecretKey, reconciler, nil),
		admin:       admin.NewHandler(admin.NewService(db, admin.NewRepository(db), machine, guard, resellerClient)),
	}, jwtService)

	return &testServer{router: router, jwt: jwtService, user: u}
}

func (s *testServer) do(t *testing.T, method, path, body, role string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if role != "" {
		token, err := s.jwt.GenerateAccessToken(s.user.ID, role)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRoutesRequireAuth(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{
		"/api/v1/wallet/balance",
		"/api/v1/transactions/history",
		"/api/v1/funding/verify-payment/FND-1",
		"/api/admin/dashboard",
	} {
		rec := s.do(t, http.MethodGet, path, "", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
}

func TestWalletBalance(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/api/v1/wallet/balance", "", "user")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "50")
}

func TestPurchaseRouteValidates(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodPost, "/api/v1/transactions/airtime", `{"phone":"123","provider":"mtn","amount":"100"}`, "user")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestAdminRoutesRequireAdminRole(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/admin/dashboard", "", "user")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/admin/dashboard", "", "admin")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestWebhookIsPublicButSigned(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodPost, "/webhooks/paystack", `{"event":"charge.success","data":{}}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
