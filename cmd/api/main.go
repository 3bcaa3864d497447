package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"github.com/swiftdash/payments-service/internal/config"
	"github.com/swiftdash/payments-service/internal/fees"
	"github.com/swiftdash/payments-service/internal/handler"
	"github.com/swiftdash/payments-service/internal/logging"
	"github.com/swiftdash/payments-service/internal/middleware"
	"github.com/swiftdash/payments-service/internal/repository"
	"github.com/swiftdash/payments-service/internal/service"
	"github.com/swiftdash/payments-service/internal/service/earnings"
	"github.com/swiftdash/payments-service/internal/service/payment"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logging.Init("payments-api", cfg.LogLevel, cfg.AppEnv)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	db, err := repository.NewPostgresDB(ctx, cfg.DatabaseURL, repository.PoolConfig{
		MaxOpenConns:     cfg.DBMaxOpenConns,
		MaxIdleConns:     cfg.DBMaxIdleConns,
		ConnMaxLifetimeS: cfg.DBConnMaxLifetimeS,
		ConnMaxIdleTimeS: cfg.DBConnMaxIdleTimeS,
	})
	cancel()
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	paymentRepo := repository.NewPaymentRepository(db)
	offerRepo := repository.NewOfferRepository(db)
	eventRepo := repository.NewPaymentEventRepository(db)
	earningsRepo := repository.NewEarningsRepository(db)

	gateway := service.NewGatewayClient(cfg.GatewayURL, time.Duration(cfg.GatewayTimeoutS)*time.Second)

	var sink payment.NotificationSink
	if cfg.NotifierURL != "" {
		sink = service.NewNotifierClient(cfg.NotifierURL)
	}

	feeCalc := fees.NewCalculator(decimal.NewFromFloat(cfg.PlatformFeePct), cfg.PlatformFeeMinCents)

	paymentSvc := payment.NewService(paymentRepo, offerRepo, eventRepo, gateway, sink, feeCalc, db, cfg)
	earningsSvc := earnings.NewService(earningsRepo, offerRepo)

	healthHandler := handler.NewHealthHandler(db)
	paymentHandler := handler.NewPaymentHandler(paymentSvc)
	earningsHandler := handler.NewEarningsHandler(earningsSvc)
	webhookHandler := handler.NewWebhookHandler(paymentSvc, cfg.WebhookSecret)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", healthHandler.Liveness)
	mux.HandleFunc("GET /health/ready", healthHandler.Readiness)

	mux.HandleFunc("POST /api/v1/payments", paymentHandler.Create)
	mux.HandleFunc("GET /api/v1/payments", paymentHandler.List)
	mux.HandleFunc("GET /api/v1/payments/stats", paymentHandler.Stats)
	mux.HandleFunc("POST /api/v1/payments/fees/preview", paymentHandler.PreviewFees)
	mux.HandleFunc("GET /api/v1/payments/{id}", paymentHandler.Get)
	mux.HandleFunc("GET /api/v1/payments/{id}/events", paymentHandler.Events)
	mux.HandleFunc("POST /api/v1/payments/{id}/retry", paymentHandler.Retry)
	mux.HandleFunc("POST /api/v1/payments/{id}/refund", paymentHandler.Refund)

	mux.HandleFunc("GET /api/v1/riders/{id}/earnings", earningsHandler.Summary)
	mux.HandleFunc("GET /api/v1/riders/{id}/earnings/history", earningsHandler.History)
	mux.HandleFunc("GET /api/v1/riders/{id}/earnings/breakdown", earningsHandler.Breakdown)
	mux.HandleFunc("GET /api/v1/riders/{id}/performance", earningsHandler.Performance)

	mux.HandleFunc("POST /api/v1/webhooks/gateway", webhookHandler.ReceiveGatewayWebhook)

	var root http.Handler = mux
	root = middleware.Recovery(root)
	root = middleware.Logging(root)
	root = middleware.RequestID(root)

	sweeperCtx, stopSweeper := context.WithCancel(context.Background())
	defer stopSweeper()
	sweeper := payment.NewRetrySweeper(paymentSvc, slog.Default(), time.Duration(cfg.RetrySweepIntervalS)*time.Second)
	go sweeper.Start(sweeperCtx)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           root,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.Info("server started", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")
	stopSweeper()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}
