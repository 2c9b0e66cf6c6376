package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/KidRide/kidride-backend/logger"
	"github.com/KidRide/kidride-backend/types"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Config holds configuration for RedisPublisher
type Config struct {
	PublishTimeout time.Duration
}

// DefaultConfig returns default configuration values
func DefaultConfig() Config {
	return Config{PublishTimeout: 5 * time.Second}
}

type metrics struct {
	publishLatency prometheus.Histogram
	errorCount     *prometheus.CounterVec
	eventCount     *prometheus.CounterVec
}

var (
	metricsInstance *metrics
	metricsOnce     sync.Once
	defaultRegistry = prometheus.DefaultRegisterer
)

func newMetrics() *metrics {
	metricsOnce.Do(func() {
		metricsInstance = &metrics{
			publishLatency: promauto.With(defaultRegistry).NewHistogram(prometheus.HistogramOpts{
				Name:    "payment_event_publish_duration_seconds",
				Help:    "Time taken to publish payment events",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			}),
			errorCount: promauto.With(defaultRegistry).NewCounterVec(prometheus.CounterOpts{
				Name: "payment_event_errors_total",
				Help: "Payment event publish errors by stage",
			}, []string{"stage"}),
			eventCount: promauto.With(defaultRegistry).NewCounterVec(prometheus.CounterOpts{
				Name: "payment_events_total",
				Help: "Published payment events by type",
			}, []string{"type"}),
		}
	})
	return metricsInstance
}

// For testing purposes - reset metrics
func resetMetricsForTesting() {
	defaultRegistry = prometheus.NewRegistry()
	metricsInstance = nil
	metricsOnce = sync.Once{}
}

// RedisPublisher publishes payment events on Redis Pub/Sub.
type RedisPublisher struct {
	rdb     redis.Cmdable
	log     *zap.SugaredLogger
	metrics *metrics
	config  Config
	nowFn   func() time.Time
}

var _ Publisher = (*RedisPublisher)(nil)

// NewRedisPublisher creates a new RedisPublisher instance
func NewRedisPublisher(rdb redis.Cmdable, cfg ...Config) *RedisPublisher {
	config := DefaultConfig()
	if len(cfg) > 0 {
		config = cfg[0]
	}
	return &RedisPublisher{
		rdb:     rdb,
		log:     logger.GetLogger().Named("events"),
		metrics: newMetrics(),
		config:  config,
		nowFn:   time.Now,
	}
}

func (p *RedisPublisher) Publish(ctx context.Context, event types.PaymentEvent) error {
	start := time.Now()
	defer func() {
		p.metrics.publishLatency.Observe(time.Since(start).Seconds())
	}()

	if event.Type == "" {
		p.metrics.errorCount.WithLabelValues("validation").Inc()
		return fmt.Errorf("invalid event: missing type")
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = p.nowFn()
	}

	data, err := json.Marshal(event)
	if err != nil {
		p.metrics.errorCount.WithLabelValues("marshal").Inc()
		return fmt.Errorf("marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.config.PublishTimeout)
	defer cancel()

	if err := p.rdb.Publish(ctx, ChannelFor(event), data).Err(); err != nil {
		p.metrics.errorCount.WithLabelValues("redis").Inc()
		return fmt.Errorf("redis publish: %w", err)
	}

	p.metrics.eventCount.WithLabelValues(string(event.Type)).Inc()
	p.log.Debugw("Published payment event", "eventType", event.Type, "eventId", event.ID)
	return nil
}
