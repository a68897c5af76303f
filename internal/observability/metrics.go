package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// unmatchedRoute is the label value used for requests that do not
// match any registered route, ensuring bounded cardinality.
const unmatchedRoute = "unmatched"

// Metrics holds the HTTP-level Prometheus metrics for the gateway.
type Metrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	responseSize    *prometheus.HistogramVec
	activeRequests  prometheus.Gauge
	buildInfo       *prometheus.GaugeVec
	startTime       prometheus.Gauge
	registry        *prometheus.Registry
}

// NewMetrics creates a new Metrics instance backed by its own registry.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "gateway"
	}

	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}

	m.requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	m.requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets: []float64{
				.001, .005, .01, .025, .05,
				.1, .25, .5, 1, 2.5, 5, 10,
			},
		},
		[]string{"method", "route", "status"},
	)

	m.responseSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "response_size_bytes",
			Help:      "HTTP response size in bytes",
			Buckets: prometheus.ExponentialBuckets(
				100, 10, 8,
			),
		},
		[]string{"method", "route", "status"},
	)

	m.activeRequests = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_requests",
			Help: "Number of active HTTP " +
				"requests",
		},
	)

	m.buildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "build_info",
			Help:      "Build information for the gateway",
		},
		[]string{"version", "commit", "build_time"},
	)

	m.startTime = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "start_time_seconds",
			Help: "Start time of the gateway " +
				"in unix seconds",
		},
	)

	m.registry.MustRegister(
		m.requestsTotal,
		m.requestDuration,
		m.responseSize,
		m.activeRequests,
		m.buildInfo,
		m.startTime,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m.startTime.SetToCurrentTime()

	return m
}

// RecordRequest records a completed HTTP request.
// The route parameter must be the route pattern, not the raw path.
func (m *Metrics) RecordRequest(method, route string, status int, duration time.Duration, respSize int64) {
	statusStr := strconv.Itoa(status)

	m.requestsTotal.WithLabelValues(method, route, statusStr).Inc()
	m.requestDuration.WithLabelValues(method, route, statusStr).Observe(duration.Seconds())
	m.responseSize.WithLabelValues(method, route, statusStr).Observe(float64(respSize))
}

// SetBuildInfo sets the build information metric.
func (m *Metrics) SetBuildInfo(version, commit, buildTime string) {
	m.buildInfo.WithLabelValues(version, commit, buildTime).Set(1)
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(
		m.registry,
		promhttp.HandlerOpts{EnableOpenMetrics: true},
	)
}

// Registry returns the Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// GinMiddleware returns a gin middleware that records request metrics
// labelled with the matched route pattern.
func (m *Metrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		m.activeRequests.Inc()

		c.Next()

		m.activeRequests.Dec()

		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}

		size := c.Writer.Size()
		if size < 0 {
			size = 0
		}

		m.RecordRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start), int64(size))
	}
}
