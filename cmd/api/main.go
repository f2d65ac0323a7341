package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/quickbills/billpay-api/internal/config"
	"github.com/quickbills/billpay-api/internal/domain/admin"
	"github.com/quickbills/billpay-api/internal/domain/fulfillment"
	"github.com/quickbills/billpay-api/internal/domain/funding"
	"github.com/quickbills/billpay-api/internal/domain/purchase"
	"github.com/quickbills/billpay-api/internal/domain/reconcile"
	"github.com/quickbills/billpay-api/internal/domain/reward"
	"github.com/quickbills/billpay-api/internal/domain/transaction"
	"github.com/quickbills/billpay-api/internal/domain/user"
	"github.com/quickbills/billpay-api/internal/domain/wallet"
	"github.com/quickbills/billpay-api/internal/pkg/database"
	"github.com/quickbills/billpay-api/internal/pkg/jwt"
	"github.com/quickbills/billpay-api/internal/pkg/locker"
	"github.com/quickbills/billpay-api/internal/pkg/logger"
	"github.com/quickbills/billpay-api/internal/pkg/paystack"
	"github.com/quickbills/billpay-api/internal/pkg/queue"
	"github.com/quickbills/billpay-api/internal/pkg/reseller"
)

func main() {
	cfg := config.Load()
	if err := logger.Init(logger.Config{Level: cfg.LogLevel, Environment: cfg.Env}); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialise logger")
	}

	log.Info().
		Str("env", cfg.Env).
		Str("port", cfg.Port).
		Str("db_driver", cfg.DBDriver).
		Msg("Starting billpay API")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tariff, err := config.LoadTariff(cfg.TariffFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load tariff")
	}

	db, err := database.Open(cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer database.Close(db)

	// Postgres schemas are applied with `billctl migrate`.
	if cfg.DBDriver == database.DriverSQLite {
		if err := database.Migrate(ctx, db); err != nil {
			log.Fatal().Err(err).Msg("Failed to migrate database")
		}
	}

	redis, err := database.NewRedis(ctx, cfg.RedisURL)
	if err != nil {
		log.Warn().Err(err).Msg("Redis unavailable, payment locks disabled")
	}
	defer database.CloseRedis(redis)

	// ---------- External clients ----------
	resellerClient := reseller.NewClient(reseller.Config{
		BaseURL:    cfg.ResellerBaseURL,
		Token:      cfg.ResellerToken,
		AuthScheme: cfg.ResellerAuthScheme,
		Timeout:    cfg.ResellerTimeout,
	})
	paystackClient := paystack.NewClient(paystack.Config{
		BaseURL:   cfg.PaystackBaseURL,
		SecretKey: cfg.PaystackSecretKey,
		Timeout:   cfg.PaystackTimeout,
	})

	// ---------- Ledger ----------
	userRepo := user.NewRepository(db)
	machine := transaction.NewMachine(db)
	guard := wallet.NewGuard()
	compensator := purchase.NewCompensator(db, machine, guard)

	// ---------- Services ----------
	rewardService := reward.NewService(db, tariff, guard, machine)
	purchaseService := purchase.NewService(db, machine, guard, userRepo,
		fulfillment.NewResellerAdapter(resellerClient, cfg.ResellerTimeout),
		rewardService, compensator, tariff)
	reconciler := funding.NewReconciler(db, machine, guard, purchaseService, locker.New(redis))
	fundingService := funding.NewService(db, machine, userRepo, paystackClient, reconciler, cfg.FrontendURL)
	walletService := wallet.NewService(userRepo)
	transactionService := transaction.NewService(machine)
	adminService := admin.NewService(db, admin.NewRepository(db), machine, guard, resellerClient)

	// ---------- Webhook queue ----------
	var publisher funding.Publisher
	if cfg.QueueEnabled() {
		queueCfg := queue.Config{URL: cfg.RabbitMQURL, Queue: cfg.RabbitMQQueue, Workers: cfg.RabbitMQWorkers}

		p, err := queue.NewPublisher(queueCfg)
		if err != nil {
			log.Warn().Err(err).Msg("RabbitMQ unavailable, webhooks handled inline")
		} else {
			defer p.Close()
			publisher = p
		}

		worker := funding.NewWorker(queueCfg, reconciler)
		go func() {
			if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("Payment event worker stopped")
			}
		}()
	}

	// ---------- HTTP ----------
	router := newRouter(cfg, db, handlers{
		wallet:      wallet.NewHandler(walletService),
		purchase:    purchase.NewHandler(purchaseService),
		transaction: transaction.NewHandler(transactionService),
		reward:      reward.NewHandler(rewardService),
		funding:     funding.NewHandler(fundingService),
		webhook:     funding.NewWebhookHandler(cfg.PaystackSecretKey, reconciler, publisher),
		admin:       admin.NewHandler(adminService),
	}, jwt.NewService(cfg.JWTSecret, cfg.JWTAccessTTL))

	sweeper := reconcile.NewSweeper(machine, compensator, cfg.SweepPendingAge, cfg.SweepInterval)
	sweeper.Start()

	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		// Reseller calls can take up to ResellerTimeout.
		WriteTimeout: cfg.ResellerTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	sweeper.Stop()

	log.Info().Msg("Server exited properly")
}
