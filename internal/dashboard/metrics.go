package dashboard

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// DashboardMetrics holds Prometheus metrics for aggregation.
type DashboardMetrics struct {
	cacheLookups     *prometheus.CounterVec
	fanOuts          *prometheus.CounterVec
	fanOutDuration   prometheus.Histogram
	coalescedTotal   prometheus.Counter
	cacheReadErrors  prometheus.Counter
	cacheWriteErrors prometheus.Counter
}

var (
	dashboardMetricsInstance *DashboardMetrics
	dashboardMetricsOnce     sync.Once
)

// GetDashboardMetrics returns the singleton dashboard metrics instance.
func GetDashboardMetrics() *DashboardMetrics {
	dashboardMetricsOnce.Do(func() {
		dashboardMetricsInstance = &DashboardMetrics{
			cacheLookups: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "dashgw",
					Subsystem: "dashboard",
					Name:      "cache_lookups_total",
					Help:      "Cache lookups by outcome (served, bypassed, miss)",
				},
				[]string{"result"},
			),
			fanOuts: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "dashgw",
					Subsystem: "dashboard",
					Name:      "fanouts_total",
					Help:      "Backend fan-outs by result",
				},
				[]string{"result"},
			),
			fanOutDuration: promauto.NewHistogram(
				prometheus.HistogramOpts{
					Namespace: "dashgw",
					Subsystem: "dashboard",
					Name:      "fanout_duration_seconds",
					Help:      "Time until all backend calls of a fan-out settled",
					Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
				},
			),
			coalescedTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Namespace: "dashgw",
					Subsystem: "dashboard",
					Name:      "coalesced_total",
					Help:      "Requests that shared another request's fan-out",
				},
			),
			cacheReadErrors: promauto.NewCounter(
				prometheus.CounterOpts{
					Namespace: "dashgw",
					Subsystem: "dashboard",
					Name:      "cache_read_errors_total",
					Help:      "Cache reads that failed and were treated as misses",
				},
			),
			cacheWriteErrors: promauto.NewCounter(
				prometheus.CounterOpts{
					Namespace: "dashgw",
					Subsystem: "dashboard",
					Name:      "cache_write_errors_total",
					Help:      "Cache writes that failed and were dropped",
				},
			),
		}
	})
	return dashboardMetricsInstance
}

// MustRegister registers the dashboard collectors with the given registry.
func (m *DashboardMetrics) MustRegister(registry *prometheus.Registry) {
	registry.MustRegister(
		m.cacheLookups,
		m.fanOuts,
		m.fanOutDuration,
		m.coalescedTotal,
		m.cacheReadErrors,
		m.cacheWriteErrors,
	)
}
