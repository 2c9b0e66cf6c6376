package service

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type payoutMetrics struct {
	batches       *prometheus.CounterVec
	transactions  *prometheus.CounterVec
	amountPaid    prometheus.Counter
	skipped       prometheus.Counter
	batchDuration prometheus.Histogram
}

var (
	metricsInstance *payoutMetrics
	metricsOnce     sync.Once
	defaultRegistry = prometheus.DefaultRegisterer
)

func newPayoutMetrics() *payoutMetrics {
	metricsOnce.Do(func() {
		metricsInstance = &payoutMetrics{
			batches: promauto.With(defaultRegistry).NewCounterVec(prometheus.CounterOpts{
				Name: "payout_batches_total",
				Help: "Payout batches finished, by final status and trigger",
			}, []string{"status", "trigger"}),
			transactions: promauto.With(defaultRegistry).NewCounterVec(prometheus.CounterOpts{
				Name: "payout_transactions_total",
				Help: "Driver payouts attempted, by status",
			}, []string{"status"}),
			amountPaid: promauto.With(defaultRegistry).NewCounter(prometheus.CounterOpts{
				Name: "payout_amount_minor_total",
				Help: "Sum of completed payouts in minor currency units",
			}),
			skipped: promauto.With(defaultRegistry).NewCounter(prometheus.CounterOpts{
				Name: "payout_drivers_skipped_total",
				Help: "Drivers skipped because another payout held their lock",
			}),
			batchDuration: promauto.With(defaultRegistry).NewHistogram(prometheus.HistogramOpts{
				Name:    "payout_batch_duration_seconds",
				Help:    "Time taken to process one payout batch",
				Buckets: []float64{.1, .5, 1, 5, 10, 30, 60, 300},
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
