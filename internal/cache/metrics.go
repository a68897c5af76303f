package cache

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// CacheMetrics holds Prometheus metrics for cache store operations.
type CacheMetrics struct {
	hitsTotal         *prometheus.CounterVec
	missesTotal       *prometheus.CounterVec
	evictionsTotal    *prometheus.CounterVec
	sizeGauge         *prometheus.GaugeVec
	operationDuration *prometheus.HistogramVec
	errorsTotal       *prometheus.CounterVec
}

var (
	cacheMetricsInstance *CacheMetrics
	cacheMetricsOnce     sync.Once
)

// GetCacheMetrics returns the singleton cache metrics instance.
func GetCacheMetrics() *CacheMetrics {
	cacheMetricsOnce.Do(func() {
		cacheMetricsInstance = newCacheMetrics()
	})
	return cacheMetricsInstance
}

// MustRegister registers all cache metric collectors with the given
// registry. promauto registers with the default registry while the
// gateway serves /metrics from its own, so the collectors are added
// to both.
func (m *CacheMetrics) MustRegister(registry *prometheus.Registry) {
	registry.MustRegister(
		m.hitsTotal,
		m.missesTotal,
		m.evictionsTotal,
		m.sizeGauge,
		m.operationDuration,
		m.errorsTotal,
	)
}

// Init pre-initializes label combinations so series appear at startup.
func (m *CacheMetrics) Init() {
	for _, backend := range []string{"memory", "redis"} {
		m.hitsTotal.WithLabelValues(backend)
		m.missesTotal.WithLabelValues(backend)
		m.evictionsTotal.WithLabelValues(backend)
		m.sizeGauge.WithLabelValues(backend)
		for _, op := range []string{"get", "set", "delete"} {
			m.operationDuration.WithLabelValues(backend, op)
			m.errorsTotal.WithLabelValues(backend, op)
		}
	}
}

func newCacheMetrics() *CacheMetrics {
	return &CacheMetrics{
		hitsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "dashgw",
				Subsystem: "cache",
				Name:      "hits_total",
				Help:      "Total number of cache store hits",
			},
			[]string{"backend"},
		),
		missesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "dashgw",
				Subsystem: "cache",
				Name:      "misses_total",
				Help:      "Total number of cache store misses",
			},
			[]string{"backend"},
		),
		evictionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "dashgw",
				Subsystem: "cache",
				Name:      "evictions_total",
				Help:      "Total number of cache store evictions",
			},
			[]string{"backend"},
		),
		sizeGauge: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "dashgw",
				Subsystem: "cache",
				Name:      "size",
				Help:      "Current number of items in the cache store",
			},
			[]string{"backend"},
		),
		operationDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "dashgw",
				Subsystem: "cache",
				Name:      "operation_duration_seconds",
				Help:      "Duration of cache store operations",
				Buckets: []float64{
					.0001, .0005, .001, .005,
					.01, .025, .05, .1,
				},
			},
			[]string{"backend", "operation"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "dashgw",
				Subsystem: "cache",
				Name:      "errors_total",
				Help:      "Total number of cache store errors",
			},
			[]string{"backend", "operation"},
		),
	}
}
