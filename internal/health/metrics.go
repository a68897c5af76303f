package health

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HealthMetrics holds Prometheus metrics for health checks.
type HealthMetrics struct {
	checksTotal   *prometheus.CounterVec
	checkStatus   *prometheus.GaugeVec
	checkDuration *prometheus.HistogramVec
}

var (
	healthMetricsInstance *HealthMetrics
	healthMetricsOnce     sync.Once
)

// GetHealthMetrics returns the singleton health metrics instance.
func GetHealthMetrics() *HealthMetrics {
	healthMetricsOnce.Do(func() {
		healthMetricsInstance = &HealthMetrics{
			checksTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "dashgw",
					Subsystem: "health",
					Name:      "checks_total",
					Help:      "Total number of health checks performed",
				},
				[]string{"type"},
			),
			checkStatus: promauto.NewGaugeVec(
				prometheus.GaugeOpts{
					Namespace: "dashgw",
					Subsystem: "health",
					Name:      "check_status",
					Help:      "Current check status (1=healthy, 0.5=degraded, 0=unhealthy)",
				},
				[]string{"check"},
			),
			checkDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Namespace: "dashgw",
					Subsystem: "health",
					Name:      "dependency_check_duration_seconds",
					Help:      "Duration of dependency checks in seconds",
					Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1, 2},
				},
				[]string{"dependency", "type"},
			),
		}
	})
	return healthMetricsInstance
}

// MustRegister registers the health collectors with the given registry.
// promauto registers with the default registry while /metrics is served
// from the gateway's own registry.
func (m *HealthMetrics) MustRegister(registry *prometheus.Registry) {
	registry.MustRegister(
		m.checksTotal,
		m.checkStatus,
		m.checkDuration,
	)
}

// Init pre-initializes label combinations so the series appear in
// /metrics output immediately after startup.
func (m *HealthMetrics) Init() {
	for _, checkType := range []string{"liveness", "readiness"} {
		m.checksTotal.WithLabelValues(checkType)
	}
	m.checkStatus.WithLabelValues("overall")
}

func (m *HealthMetrics) setStatus(check string, status Status) {
	var v float64
	switch status {
	case StatusHealthy:
		v = 1
	case StatusDegraded:
		v = 0.5
	}
	m.checkStatus.WithLabelValues(check).Set(v)
}
