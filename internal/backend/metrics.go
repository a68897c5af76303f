package backend

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// BackendMetrics holds Prometheus metrics for backend calls.
type BackendMetrics struct {
	requestsTotal      *prometheus.CounterVec
	requestDuration    *prometheus.HistogramVec
	breakerState       *prometheus.GaugeVec
	breakerTransitions *prometheus.CounterVec
}

var (
	backendMetricsInstance *BackendMetrics
	backendMetricsOnce     sync.Once
)

// GetBackendMetrics returns the singleton backend metrics instance.
func GetBackendMetrics() *BackendMetrics {
	backendMetricsOnce.Do(func() {
		backendMetricsInstance = &BackendMetrics{
			requestsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "dashgw",
					Subsystem: "backend",
					Name:      "requests_total",
					Help:      "Total number of backend calls by result",
				},
				[]string{"service", "result"},
			),
			requestDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Namespace: "dashgw",
					Subsystem: "backend",
					Name:      "request_duration_seconds",
					Help:      "Duration of backend calls",
					Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
				},
				[]string{"service"},
			),
			breakerState: promauto.NewGaugeVec(
				prometheus.GaugeOpts{
					Namespace: "dashgw",
					Subsystem: "backend",
					Name:      "circuit_breaker_state",
					Help:      "Circuit breaker state (0=closed, 1=half-open, 2=open)",
				},
				[]string{"service"},
			),
			breakerTransitions: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "dashgw",
					Subsystem: "backend",
					Name:      "circuit_breaker_transitions_total",
					Help:      "Total number of circuit breaker state transitions",
				},
				[]string{"service", "from", "to"},
			),
		}
	})
	return backendMetricsInstance
}

// MustRegister registers the backend collectors with the given registry.
func (m *BackendMetrics) MustRegister(registry *prometheus.Registry) {
	registry.MustRegister(
		m.requestsTotal,
		m.requestDuration,
		m.breakerState,
		m.breakerTransitions,
	)
}
