package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jmoiron/sqlx"

	"github.com/quickbills/billpay-api/internal/config"
	"github.com/quickbills/billpay-api/internal/domain/admin"
	"github.com/quickbills/billpay-api/internal/domain/funding"
	"github.com/quickbills/billpay-api/internal/domain/purchase"
	"github.com/quickbills/billpay-api/internal/domain/reward"
	"github.com/quickbills/billpay-api/internal/domain/transaction"
	"github.com/quickbills/billpay-api/internal/domain/wallet"
	"github.com/quickbills/billpay-api/internal/middleware"
	"github.com/quickbills/billpay-api/internal/pkg/jwt"
	"github.com/quickbills/billpay-api/internal/pkg/metrics"
	pkgresponse "github.com/quickbills/billpay-api/internal/pkg/response"
)

type handlers struct {
	wallet      *wallet.Handler
	purchase    *purchase.Handler
	transaction *transaction.Handler
	reward      *reward.Handler
	funding     *funding.Handler
	webhook     http.Handler
	admin       *admin.Handler
}

func newRouter(cfg *config.Config, db *sqlx.DB, h handlers, jwtService *jwt.Service) chi.Router {
	authMiddleware := middleware.Auth(jwtService)

	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recover)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			pkgresponse.Error(w, http.StatusServiceUnavailable, "UNAVAILABLE", "database unreachable")
			return
		}
		pkgresponse.OK(w, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", metrics.Handler())

	// Signed server-to-server callback: no CORS, no bearer auth.
	r.Post("/webhooks/paystack", h.webhook.ServeHTTP)

	r.Group(func(r chi.Router) {
		r.Use(middleware.CORSHandler(cfg.AllowedOrigins))

		r.Route("/api/v1", func(r chi.Router) {
			r.Mount("/wallet", h.wallet.Routes(authMiddleware))
			r.Mount("/points", h.reward.Routes(authMiddleware))
			r.Mount("/funding", h.funding.Routes(authMiddleware))

			r.Route("/transactions", func(r chi.Router) {
				r.Use(authMiddleware)
				h.purchase.RegisterRoutes(r)
				h.transaction.RegisterRoutes(r)
			})
		})

		r.Mount("/api/admin", h.admin.Routes(authMiddleware))
	})

	return r
}
