package services

import (
	"context"
	"time"

	"github.com/KidRide/kidride-backend/config"
	"github.com/KidRide/kidride-backend/logger"
	"github.com/KidRide/kidride-backend/types"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Pinger is satisfied by the ledger store.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthService struct {
	store        Pinger
	storeBackend string
	redisClient  redis.Cmdable
	version      string
	startTime    time.Time
	log          *zap.SugaredLogger
}

// NewHealthService builds the health checker. storeBackend is the configured
// store driver. redisClient may be nil when the service runs without Redis;
// the component is then reported degraded.
func NewHealthService(store Pinger, storeBackend string, redisClient redis.Cmdable, version string) *HealthService {
	return &HealthService{
		store:        store,
		storeBackend: storeBackend,
		redisClient:  redisClient,
		version:      version,
		startTime:    time.Now(),
		log:          logger.GetLogger().Named("health"),
	}
}

func (h *HealthService) CheckHealth(ctx context.Context) types.HealthCheck {
	store := h.checkLedgerStore(ctx)
	rdb := h.checkRedis(ctx)

	return types.HealthCheck{
		Status: store.Status.Worse(rdb.Status),
		Components: map[string]types.HealthComponent{
			types.HealthComponentLedgerStore: store,
			types.HealthComponentRedis:       rdb,
		},
		Version:   h.version,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
	}
}

func (h *HealthService) checkLedgerStore(ctx context.Context) types.HealthComponent {
	if err := h.store.Ping(ctx); err != nil {
		h.log.Errorw("Ledger store health check failed", "backend", h.storeBackend, "error", err)
		return types.HealthComponent{
			Status:  types.HealthStatusDown,
			Backend: h.storeBackend,
			Details: "Ledger store unreachable",
		}
	}
	if h.storeBackend == config.StoreDriverMemory {
		return types.HealthComponent{
			Status:  types.HealthStatusDegraded,
			Backend: h.storeBackend,
			Details: "In-memory ledger, balances are lost on restart",
		}
	}
	return types.HealthComponent{Status: types.HealthStatusUp, Backend: h.storeBackend}
}

func (h *HealthService) checkRedis(ctx context.Context) types.HealthComponent {
	if h.redisClient == nil {
		return types.HealthComponent{
			Status:  types.HealthStatusDegraded,
			Details: "Redis not configured, sweep locks are in-process",
		}
	}
	if err := h.redisClient.Ping(ctx).Err(); err != nil {
		h.log.Errorw("Redis health check failed", "error", err)
		return types.HealthComponent{
			Status:  types.HealthStatusDown,
			Backend: "redis",
			Details: "Redis connection failed",
		}
	}
	return types.HealthComponent{Status: types.HealthStatusUp, Backend: "redis"}
}
