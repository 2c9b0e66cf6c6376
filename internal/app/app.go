// Package app wires the ledger services from configuration. The API server
// and the sweeper command share it so both run against identical collaborators.
package app

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/KidRide/kidride-backend/config"
	"github.com/KidRide/kidride-backend/db"
	"github.com/KidRide/kidride-backend/internal/events"
	"github.com/KidRide/kidride-backend/internal/gateway"
	"github.com/KidRide/kidride-backend/internal/lock"
	"github.com/KidRide/kidride-backend/internal/notification"
	"github.com/KidRide/kidride-backend/internal/scheduler"
	"github.com/KidRide/kidride-backend/internal/store"
	"github.com/KidRide/kidride-backend/internal/store/memory"
	"github.com/KidRide/kidride-backend/internal/store/postgres"
	"github.com/KidRide/kidride-backend/logger"
	budgetSvc "github.com/KidRide/kidride-backend/models/budget/service"
	paymentSvc "github.com/KidRide/kidride-backend/models/payment/service"
	payoutSvc "github.com/KidRide/kidride-backend/models/payout/service"
	walletSvc "github.com/KidRide/kidride-backend/models/wallet/service"
	"github.com/KidRide/kidride-backend/services"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// App holds every long-lived collaborator built from Config.
type App struct {
	Config     *config.Config
	Store      store.Store
	Redis      *redis.Client
	Locker     lock.Locker
	Publisher  events.Publisher
	WorkerPool *services.WorkerPool
	Notifier   notification.Notifier

	Payments *paymentSvc.PaymentService
	Enforcer *paymentSvc.SuspensionEnforcer
	Sweeper  *paymentSvc.ReminderSweeper
	Payouts  *payoutSvc.PayoutService
	Wallets  *walletSvc.WalletService
	Budgets  *budgetSvc.BudgetService
	Health   *services.HealthService
	Limiter  *services.RateLimitService

	pool *pgxpool.Pool
}

// New connects to the store and Redis and builds the services. Callers must
// Close the returned App.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	log := logger.GetLogger()
	a := &App{Config: cfg}

	switch cfg.Store.Driver {
	case config.StoreDriverMemory:
		log.Warn("Using the in-memory ledger store; data is lost on restart")
		a.Store = memory.NewStore()
	default:
		if err := db.RunMigrations(cfg.Database.URL()); err != nil {
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		pool, err := db.Connect(ctx, &cfg.Database, cfg.IsProduction())
		if err != nil {
			return nil, err
		}
		a.pool = pool
		a.Store = postgres.NewStore(pool)
	}

	a.Redis = newRedisClient(cfg)
	if err := config.TestRedisConnection(ctx, a.Redis); err != nil {
		a.Close(ctx)
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Redis.Address, err)
	}

	// In-process locks are enough when the ledger itself is process-local.
	if cfg.Store.Driver == config.StoreDriverMemory {
		a.Locker = lock.NewMemoryLocker()
	} else {
		a.Locker = lock.NewRedisLocker(a.Redis)
	}
	a.Publisher = events.NewRedisPublisher(a.Redis)

	a.WorkerPool = services.NewWorkerPool(cfg.WorkerPool)
	a.WorkerPool.Start()
	a.Notifier = services.NewNotifier(&cfg.Notification)

	policy, err := paymentSvc.NewSplitPolicy(cfg.Payment)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}
	loc := cfg.Payment.Location()
	sweepTTL := time.Duration(cfg.Scheduler.SweepLockTTLSeconds) * time.Second

	a.Payments = paymentSvc.NewPaymentService(a.Store, policy, cfg.Payment.Currency, gateway.NewSimulatedGateway(), a.Publisher)
	a.Enforcer = paymentSvc.NewSuspensionEnforcer(a.Store, a.Notifier, a.Publisher)
	a.Sweeper = paymentSvc.NewReminderSweeper(a.Store, policy, a.Enforcer, a.Notifier, a.Locker, sweepTTL, loc)

	opts := payoutSvc.Options{
		DriverLockTTL: time.Duration(cfg.Payout.DriverLockTTLSeconds) * time.Second,
		SweepLockTTL:  sweepTTL,
		Currency:      cfg.Payment.Currency,
		Publisher:     a.Publisher,
	}
	if cfg.Email.ResendAPIKey != "" {
		opts.Alerter = services.NewEmailService(&cfg.Email, cfg.Payment.Currency)
	}
	if cfg.StatementArchive.Enabled {
		archive, err := payoutSvc.NewS3StatementStorage(cfg.StatementArchive)
		if err != nil {
			a.Close(ctx)
			return nil, err
		}
		opts.Archive = archive
		opts.ArchivePrefix = cfg.StatementArchive.Prefix
	}
	a.Payouts = payoutSvc.NewPayoutService(a.Store, gateway.NewSimulatedRail(cfg.Payout.DeniedDrivers...), a.Locker, opts)

	a.Wallets = walletSvc.NewWalletService(a.Store)
	// Budget alerts are sent after the expense commits, off the request path.
	a.Budgets = budgetSvc.NewBudgetService(a.Store, services.NewAsyncNotifier(a.WorkerPool, a.Notifier), loc)
	a.Health = services.NewHealthService(a.Store, cfg.Store.Driver, a.Redis, cfg.Server.Version)
	a.Limiter = services.NewRateLimitService(a.Redis)

	log.Infow("Ledger services initialized",
		"store", cfg.Store.Driver,
		"currency", cfg.Payment.Currency,
		"timezone", loc.String(),
		"statementArchive", cfg.StatementArchive.Enabled,
		"adminAlerts", opts.Alerter != nil)
	return a, nil
}

// SchedulerTasks returns the periodic sweeps configured for in-process scheduling.
func (a *App) SchedulerTasks() []scheduler.Task {
	sc := a.Config.Scheduler
	return []scheduler.Task{
		{
			Name:       "payment-reminders",
			Interval:   time.Duration(sc.ReminderIntervalMinutes) * time.Minute,
			RunOnStart: true,
			Run: func(ctx context.Context) error {
				_, err := a.Sweeper.Sweep(ctx)
				return err
			},
		},
		{
			Name:     "driver-payouts",
			Interval: time.Duration(sc.PayoutIntervalHours) * time.Hour,
			Run: func(ctx context.Context) error {
				_, err := a.Payouts.RunScheduledPayouts(ctx)
				return err
			},
		},
		{
			Name:       "budget-reset",
			Interval:   time.Duration(sc.BudgetResetCheckMinutes) * time.Minute,
			RunOnStart: true,
			Run: func(ctx context.Context) error {
				_, err := a.Budgets.ResetMonthlySpend(ctx)
				return err
			},
		},
	}
}

// Close drains the notification queue and releases connections.
func (a *App) Close(ctx context.Context) {
	log := logger.GetLogger()
	if a.WorkerPool != nil {
		timeout := time.Duration(a.Config.WorkerPool.ShutdownTimeoutSeconds) * time.Second
		shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
		if err := a.WorkerPool.Shutdown(shutdownCtx); err != nil {
			log.Warnw("Worker pool did not drain before timeout", "error", err)
		}
		cancel()
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			log.Warnw("Failed to close redis client", "error", err)
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
}

func newRedisClient(cfg *config.Config) *redis.Client {
	opts := config.ConfigureRedisOptions(&cfg.Redis)
	if opts.TLSConfig == nil && cfg.IsProduction() {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return redis.NewClient(opts)
}
