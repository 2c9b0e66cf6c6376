package service

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type budgetMetrics struct {
	expenses             prometheus.Counter
	notifications        *prometheus.CounterVec
	notificationFailures prometheus.Counter
	resets               prometheus.Counter
}

var (
	metricsInstance *budgetMetrics
	metricsOnce     sync.Once
	defaultRegistry = prometheus.DefaultRegisterer
)

func newBudgetMetrics() *budgetMetrics {
	metricsOnce.Do(func() {
		metricsInstance = &budgetMetrics{
			expenses: promauto.With(defaultRegistry).NewCounter(prometheus.CounterOpts{
				Name: "budget_expenses_recorded_total",
				Help: "Ride expenses recorded against child budgets",
			}),
			notifications: promauto.With(defaultRegistry).NewCounterVec(prometheus.CounterOpts{
				Name: "budget_notifications_total",
				Help: "Budget threshold notifications queued, by kind",
			}, []string{"kind"}),
			notificationFailures: promauto.With(defaultRegistry).NewCounter(prometheus.CounterOpts{
				Name: "budget_notification_failures_total",
				Help: "Budget notifications that could not be queued",
			}),
			resets: promauto.With(defaultRegistry).NewCounter(prometheus.CounterOpts{
				Name: "budget_spend_resets_total",
				Help: "Budget limits whose monthly spend was reset",
			}),
		}
	})
	return metricsInstance
}

// resetMetricsForTesting resets the metrics singleton for test isolation.
func resetMetricsForTesting() {
	defaultRegistry = prometheus.NewRegistry()
	metricsInstance = nil
	metricsOnce = sync.Once{}
}
