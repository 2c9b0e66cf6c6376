package router

import (
	"time"

	"github.com/KidRide/kidride-backend/config"
	"github.com/KidRide/kidride-backend/handlers"
	"github.com/KidRide/kidride-backend/middleware"
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Dependencies struct holds all dependencies required for setting up routes.
type Dependencies struct {
	Config         *config.Config
	JWTValidator   middleware.Validator
	RateLimiter    middleware.LimitChecker
	NewRelic       *newrelic.Application
	HealthHandler  *handlers.HealthHandler
	PaymentHandler *handlers.PaymentHandler
	WalletHandler  *handlers.WalletHandler
	PayoutHandler  *handlers.PayoutHandler
	BudgetHandler  *handlers.BudgetHandler
	SweepHandler   *handlers.SweepHandler
}

// SetupRouter configures and returns the main Gin engine with all routes defined.
func SetupRouter(deps Dependencies) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	if deps.NewRelic != nil {
		r.Use(nrgin.Middleware(deps.NewRelic))
	}
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.SecurityHeadersMiddleware(deps.Config))
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(&deps.Config.Server))

	if len(deps.Config.Server.TrustedProxies) > 0 {
		_ = r.SetTrustedProxies(deps.Config.Server.TrustedProxies)
	}

	// Health and metrics are unauthenticated.
	r.GET("/health", deps.HealthHandler.DetailedHealth)
	r.GET("/health/liveness", deps.HealthHandler.LivenessCheck)
	r.GET("/health/readiness", deps.HealthHandler.ReadinessCheck)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	v1 := r.Group("/v1")
	v1.Use(middleware.AuthMiddleware(deps.JWTValidator))
	{
		admin := middleware.RequireRole(middleware.RoleAdmin)
		parentOrAdmin := middleware.RequireRole(middleware.RoleParent, middleware.RoleAdmin)

		payLimit := deps.Config.RateLimit.PaymentRequestsPerWindow
		payWindow := time.Duration(deps.Config.RateLimit.WindowSeconds) * time.Second
		payRateLimit := middleware.PaymentRateLimiter(deps.RateLimiter, payLimit, payWindow)

		payments := v1.Group("/payments")
		{
			payments.GET("/split", deps.PaymentHandler.SplitPreviewHandler)
			payments.POST("/transactions", admin, deps.PaymentHandler.CreateTransactionHandler)
			payments.GET("/transactions/:id", deps.PaymentHandler.GetTransactionHandler)
			payments.POST("/transactions/:id/upfront",
				middleware.RequireRole(middleware.RoleParent), payRateLimit, deps.PaymentHandler.PayUpfrontHandler)
			payments.POST("/transactions/:id/balance",
				middleware.RequireRole(middleware.RoleParent), payRateLimit, deps.PaymentHandler.PayBalanceHandler)
		}

		v1.GET("/bookings/:bookingId/payment", deps.PaymentHandler.GetBookingPaymentHandler)

		drivers := v1.Group("/drivers/:driverId")
		{
			drivers.GET("/wallet", deps.WalletHandler.GetWalletHandler)
			drivers.GET("/wallet/transactions", deps.WalletHandler.ListTransactionsHandler)
		}

		children := v1.Group("/children/:childId", parentOrAdmin)
		{
			children.PUT("/budget", middleware.RequireRole(middleware.RoleParent), deps.BudgetHandler.ConfigureBudgetHandler)
			children.GET("/budget", deps.BudgetHandler.GetBudgetHandler)
			children.POST("/expenses", deps.BudgetHandler.RecordExpenseHandler)
			children.GET("/expenses/:month", deps.BudgetHandler.GetMonthlyExpenseHandler)
		}

		adminRoutes := v1.Group("/admin", admin)
		{
			payouts := adminRoutes.Group("/payouts")
			{
				payouts.POST("", deps.PayoutHandler.RunManualPayoutHandler)
				payouts.GET("", deps.PayoutHandler.ListBatchesHandler)
				payouts.GET("/:batchId", deps.PayoutHandler.GetBatchHandler)
				payouts.GET("/:batchId/statement", deps.PayoutHandler.DownloadStatementHandler)
				payouts.GET("/:batchId/statement/url", deps.PayoutHandler.StatementURLHandler)
			}

			sweeps := adminRoutes.Group("/sweeps")
			{
				sweeps.POST("/reminders", deps.SweepHandler.RunRemindersHandler)
				sweeps.POST("/payouts", deps.SweepHandler.RunPayoutsHandler)
				sweeps.POST("/budget-reset", deps.SweepHandler.RunBudgetResetHandler)
			}
		}
	}

	return r
}
