package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/KidRide/kidride-backend/config"
	"github.com/KidRide/kidride-backend/handlers"
	"github.com/KidRide/kidride-backend/internal/app"
	"github.com/KidRide/kidride-backend/internal/scheduler"
	"github.com/KidRide/kidride-backend/logger"
	"github.com/KidRide/kidride-backend/middleware"
	"github.com/KidRide/kidride-backend/router"
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/newrelic"
)

// @title KidRide Ledger API
// @version 1.0
// @description Payment lifecycle, driver payouts and child ride budgets.
// @BasePath /v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	logger.InitLogger()
	log := logger.GetLogger()
	defer logger.Close()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize services: %v", err)
	}

	jwtValidator, err := middleware.NewJWTValidator(cfg.Server.JwtSecretKey)
	if err != nil {
		log.Fatalf("Failed to create JWT validator: %v", err)
	}

	var nrApp *newrelic.Application
	if cfg.NewRelic.LicenseKey != "" {
		nrApp, err = newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelic.AppName),
			newrelic.ConfigLicense(cfg.NewRelic.LicenseKey),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			log.Warnw("New Relic disabled, failed to start agent", "error", err)
			nrApp = nil
		}
	}

	r := router.SetupRouter(router.Dependencies{
		Config:         cfg,
		JWTValidator:   jwtValidator,
		RateLimiter:    a.Limiter,
		NewRelic:       nrApp,
		HealthHandler:  handlers.NewHealthHandler(a.Health),
		PaymentHandler: handlers.NewPaymentHandler(a.Payments),
		WalletHandler:  handlers.NewWalletHandler(a.Wallets),
		PayoutHandler:  handlers.NewPayoutHandler(a.Payouts),
		BudgetHandler:  handlers.NewBudgetHandler(a.Budgets),
		SweepHandler:   handlers.NewSweepHandler(a.Sweeper, a.Payouts, a.Budgets),
	})

	var runner *scheduler.Runner
	if cfg.Scheduler.Enabled {
		runner = scheduler.NewRunner(a.SchedulerTasks()...)
		runner.Start(ctx)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Infow("Starting server", "port", cfg.Server.Port, "environment", cfg.Server.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorw("Server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("Shutdown signal received, draining")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("Server forced to shutdown", "error", err)
	}
	if runner != nil {
		runner.Wait()
	}
	a.Close(shutdownCtx)
	if nrApp != nil {
		nrApp.Shutdown(5 * time.Second)
	}

	log.Info("Server exited")
}
