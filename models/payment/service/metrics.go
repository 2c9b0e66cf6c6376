package service

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type paymentMetrics struct {
	paymentsApplied   *prometheus.CounterVec
	paymentRejections *prometheus.CounterVec
	amountApplied     *prometheus.CounterVec
	remindersSent     *prometheus.CounterVec
	reminderFailures  prometheus.Counter
	suspensions       prometheus.Counter
	sweepDuration     prometheus.Histogram
}

var (
	metricsInstance *paymentMetrics
	metricsOnce     sync.Once
	defaultRegistry = prometheus.DefaultRegisterer
)

func newPaymentMetrics() *paymentMetrics {
	metricsOnce.Do(func() {
		metricsInstance = &paymentMetrics{
			paymentsApplied: promauto.With(defaultRegistry).NewCounterVec(prometheus.CounterOpts{
				Name: "payments_applied_total",
				Help: "Payments applied to the ledger",
			}, []string{"kind"}),
			paymentRejections: promauto.With(defaultRegistry).NewCounterVec(prometheus.CounterOpts{
				Name: "payments_rejected_total",
				Help: "Payment attempts rejected, by error type",
			}, []string{"type"}),
			amountApplied: promauto.With(defaultRegistry).NewCounterVec(prometheus.CounterOpts{
				Name: "payments_amount_minor_total",
				Help: "Sum of applied payments in minor currency units",
			}, []string{"kind"}),
			remindersSent: promauto.With(defaultRegistry).NewCounterVec(prometheus.CounterOpts{
				Name: "payment_reminders_sent_total",
				Help: "Balance reminders delivered",
			}, []string{"kind"}),
			reminderFailures: promauto.With(defaultRegistry).NewCounter(prometheus.CounterOpts{
				Name: "payment_reminder_failures_total",
				Help: "Reminder deliveries that failed and will be retried next sweep",
			}),
			suspensions: promauto.With(defaultRegistry).NewCounter(prometheus.CounterOpts{
				Name: "payment_suspensions_total",
				Help: "Transactions suspended for non-payment",
			}),
			sweepDuration: promauto.With(defaultRegistry).NewHistogram(prometheus.HistogramOpts{
				Name:    "payment_reminder_sweep_duration_seconds",
				Help:    "Time taken by one reminder sweep",
				Buckets: []float64{.01, .05, .1, .5, 1, 5, 10, 30, 60},
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
