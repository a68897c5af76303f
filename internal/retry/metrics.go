package retry

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// RetryMetrics holds Prometheus metrics for retried operations.
type RetryMetrics struct {
	attemptsTotal *prometheus.CounterVec
	outcomesTotal *prometheus.CounterVec
	duration      *prometheus.HistogramVec
}

var (
	retryMetricsInstance *RetryMetrics
	retryMetricsOnce     sync.Once
)

// GetRetryMetrics returns the singleton retry metrics instance.
func GetRetryMetrics() *RetryMetrics {
	retryMetricsOnce.Do(func() {
		retryMetricsInstance = &RetryMetrics{
			attemptsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "dashgw",
					Subsystem: "retry",
					Name:      "attempts_total",
					Help:      "Total number of retry attempts",
				},
				[]string{"operation"},
			),
			outcomesTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "dashgw",
					Subsystem: "retry",
					Name:      "outcomes_total",
					Help:      "Operations that needed a retry, by final result",
				},
				[]string{"operation", "result"},
			),
			duration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Namespace: "dashgw",
					Subsystem: "retry",
					Name:      "duration_seconds",
					Help:      "Total duration of retried operations in seconds",
					Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
				},
				[]string{"operation", "result"},
			),
		}
	})
	return retryMetricsInstance
}

// MustRegister registers the retry collectors with the given registry.
func (m *RetryMetrics) MustRegister(registry *prometheus.Registry) {
	registry.MustRegister(m.attemptsTotal, m.outcomesTotal, m.duration)
}

func (m *RetryMetrics) recordOutcome(operation string, success bool, d time.Duration) {
	result := "success"
	if !success {
		result = "failure"
	}
	m.outcomesTotal.WithLabelValues(operation, result).Inc()
	m.duration.WithLabelValues(operation, result).Observe(d.Seconds())
}
