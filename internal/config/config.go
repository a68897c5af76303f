// Package config provides configuration types and loading for the dashboard gateway.
package config

import "time"

// Cache backend types.
const (
	CacheTypeMemory = "memory"
	CacheTypeRedis  = "redis"
)

// Backend service names, in fan-out order.
const (
	ServiceIdentity     = "identity"
	ServiceAttendance   = "attendance"
	ServiceLeaveHistory = "leave_history"
)

// Default values.
const (
	DefaultListenPort       = 3000
	DefaultBackendTimeout   = 3 * time.Second
	DefaultCacheTTL         = 600 * time.Second
	DefaultServeProbability = 0.8
	DefaultMetricsPort      = 9090
	DefaultMetricsPath      = "/metrics"
)

// GatewayConfig is the root configuration document.
type GatewayConfig struct {
	APIVersion string   `yaml:"apiVersion" json:"apiVersion"`
	Kind       string   `yaml:"kind" json:"kind"`
	Metadata   Metadata `yaml:"metadata" json:"metadata"`
	Spec       Spec     `yaml:"spec" json:"spec"`
}

// Metadata identifies the gateway instance.
type Metadata struct {
	Name   string            `yaml:"name" json:"name"`
	Labels map[string]string `yaml:"labels,omitempty" json:"labels,omitempty"`
}

// Spec holds the gateway specification.
type Spec struct {
	Listener      ListenerConfig      `yaml:"listener" json:"listener"`
	Backends      BackendsConfig      `yaml:"backends" json:"backends"`
	Cache         CacheConfig         `yaml:"cache" json:"cache"`
	Aggregator    AggregatorConfig    `yaml:"aggregator" json:"aggregator"`
	CORS          CORSConfig          `yaml:"cors" json:"cors"`
	Observability ObservabilityConfig `yaml:"observability" json:"observability"`
}

// ListenerConfig configures the public HTTP listener.
type ListenerConfig struct {
	Address         string   `yaml:"address,omitempty" json:"address,omitempty"`
	Port            int      `yaml:"port" json:"port"`
	ReadTimeout     Duration `yaml:"readTimeout,omitempty" json:"readTimeout,omitempty"`
	WriteTimeout    Duration `yaml:"writeTimeout,omitempty" json:"writeTimeout,omitempty"`
	IdleTimeout     Duration `yaml:"idleTimeout,omitempty" json:"idleTimeout,omitempty"`
	ShutdownTimeout Duration `yaml:"shutdownTimeout,omitempty" json:"shutdownTimeout,omitempty"`
}

// BackendsConfig holds the three backend services the dashboard is built from.
type BackendsConfig struct {
	Identity     BackendConfig `yaml:"identity" json:"identity"`
	Attendance   BackendConfig `yaml:"attendance" json:"attendance"`
	LeaveHistory BackendConfig `yaml:"leaveHistory" json:"leaveHistory"`
}

// Named returns the backends keyed by service name.
func (b *BackendsConfig) Named() map[string]BackendConfig {
	return map[string]BackendConfig{
		ServiceIdentity:     b.Identity,
		ServiceAttendance:   b.Attendance,
		ServiceLeaveHistory: b.LeaveHistory,
	}
}

// BackendConfig configures a single backend service endpoint.
type BackendConfig struct {
	// URL is the base URL of the service, e.g. http://localhost:3001.
	URL string `yaml:"url" json:"url"`

	// Path is the request path template. {subject_id} and {period}
	// are replaced with path-escaped request parameters.
	Path string `yaml:"path" json:"path"`

	// Timeout bounds a single call. Zero uses DefaultBackendTimeout.
	Timeout Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`

	CircuitBreaker CircuitBreakerConfig `yaml:"circuitBreaker,omitempty" json:"circuitBreaker,omitempty"`
}

// CircuitBreakerConfig configures per-backend circuit breaking.
type CircuitBreakerConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`

	// Threshold is the minimum number of requests in the interval
	// before the failure ratio is evaluated.
	Threshold int `yaml:"threshold,omitempty" json:"threshold,omitempty"`

	// FailureRatio trips the breaker once reached. Zero means 0.5.
	FailureRatio float64 `yaml:"failureRatio,omitempty" json:"failureRatio,omitempty"`

	// Timeout is how long the breaker stays open.
	Timeout Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`
}

// CacheConfig configures the response cache store.
type CacheConfig struct {
	Enabled   bool             `yaml:"enabled" json:"enabled"`
	Type      string           `yaml:"type" json:"type"`
	TTL       Duration         `yaml:"ttl,omitempty" json:"ttl,omitempty"`
	KeyPrefix string           `yaml:"keyPrefix,omitempty" json:"keyPrefix,omitempty"`

	// MaxEntries bounds the memory store. Zero means 10000.
	MaxEntries int `yaml:"maxEntries,omitempty" json:"maxEntries,omitempty"`

	Redis RedisCacheConfig `yaml:"redis,omitempty" json:"redis,omitempty"`
}

// RedisCacheConfig contains Redis-specific cache configuration.
type RedisCacheConfig struct {
	// URL is the Redis connection URL: redis://[user:password@]host:port[/db].
	// When empty the connection is built from Host, Port and Password.
	URL      string `yaml:"url,omitempty" json:"url,omitempty"`
	Host     string `yaml:"host,omitempty" json:"host,omitempty"`
	Port     int    `yaml:"port,omitempty" json:"port,omitempty"`
	Password string `yaml:"password,omitempty" json:"password,omitempty"`
	DB       int    `yaml:"db,omitempty" json:"db,omitempty"`

	PoolSize       int      `yaml:"poolSize,omitempty" json:"poolSize,omitempty"`
	ConnectTimeout Duration `yaml:"connectTimeout,omitempty" json:"connectTimeout,omitempty"`
	ReadTimeout    Duration `yaml:"readTimeout,omitempty" json:"readTimeout,omitempty"`
	WriteTimeout   Duration `yaml:"writeTimeout,omitempty" json:"writeTimeout,omitempty"`

	// TTLJitter is the maximum fraction of jitter applied to TTLs (0.0 to 1.0).
	TTLJitter float64 `yaml:"ttlJitter,omitempty" json:"ttlJitter,omitempty"`

	Retry RetryConfig `yaml:"retry,omitempty" json:"retry,omitempty"`
}

// RetryConfig configures retries of cache store operations on connection errors.
type RetryConfig struct {
	// MaxRetries is the number of retries after the first attempt. Zero disables retries.
	MaxRetries     int      `yaml:"maxRetries,omitempty" json:"maxRetries,omitempty"`
	InitialBackoff Duration `yaml:"initialBackoff,omitempty" json:"initialBackoff,omitempty"`
	MaxBackoff     Duration `yaml:"maxBackoff,omitempty" json:"maxBackoff,omitempty"`
}

// AggregatorConfig configures the dashboard aggregator.
type AggregatorConfig struct {
	// ServeProbability is the chance a cached composite is served instead
	// of forcing a fresh fan-out.
	ServeProbability float64 `yaml:"serveProbability" json:"serveProbability"`

	// Coalesce collapses concurrent fan-outs for the same key into one.
	Coalesce bool `yaml:"coalesce,omitempty" json:"coalesce,omitempty"`
}

// CORSConfig configures cross-origin access to the public listener.
type CORSConfig struct {
	Enabled      bool     `yaml:"enabled" json:"enabled"`
	AllowOrigins []string `yaml:"allowOrigins,omitempty" json:"allowOrigins,omitempty"`
	AllowMethods []string `yaml:"allowMethods,omitempty" json:"allowMethods,omitempty"`
	AllowHeaders []string `yaml:"allowHeaders,omitempty" json:"allowHeaders,omitempty"`
}

// ObservabilityConfig groups logging, metrics and tracing settings.
type ObservabilityConfig struct {
	Logging LoggingConfig `yaml:"logging,omitempty" json:"logging,omitempty"`
	Metrics MetricsConfig `yaml:"metrics,omitempty" json:"metrics,omitempty"`
	Tracing TracingConfig `yaml:"tracing,omitempty" json:"tracing,omitempty"`
}

// LoggingConfig configures the logger.
type LoggingConfig struct {
	Level  string `yaml:"level,omitempty" json:"level,omitempty"`
	Format string `yaml:"format,omitempty" json:"format,omitempty"`
}

// MetricsConfig configures the metrics and health listener.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Port    int    `yaml:"port,omitempty" json:"port,omitempty"`
	Path    string `yaml:"path,omitempty" json:"path,omitempty"`
}

// TracingConfig configures OpenTelemetry tracing.
type TracingConfig struct {
	Enabled      bool    `yaml:"enabled" json:"enabled"`
	OTLPEndpoint string  `yaml:"otlpEndpoint,omitempty" json:"otlpEndpoint,omitempty"`
	SamplingRate float64 `yaml:"samplingRate,omitempty" json:"samplingRate,omitempty"`
	ServiceName  string  `yaml:"serviceName,omitempty" json:"serviceName,omitempty"`
}

// DefaultConfig returns a configuration matching the reference deployment:
// listener on :3000, services on :3001-3003, redis cache with a 600s TTL.
func DefaultConfig() *GatewayConfig {
	return &GatewayConfig{
		APIVersion: "dashgw.io/v1",
		Kind:       "Gateway",
		Metadata:   Metadata{Name: "dashgw"},
		Spec: Spec{
			Listener: ListenerConfig{
				Port:            DefaultListenPort,
				ReadTimeout:     Duration(30 * time.Second),
				WriteTimeout:    Duration(30 * time.Second),
				IdleTimeout:     Duration(120 * time.Second),
				ShutdownTimeout: Duration(30 * time.Second),
			},
			Backends: BackendsConfig{
				Identity: BackendConfig{
					URL:     "http://localhost:3001",
					Path:    "/user/{subject_id}",
					Timeout: Duration(DefaultBackendTimeout),
				},
				Attendance: BackendConfig{
					URL:     "http://localhost:3002",
					Path:    "/attendance/{subject_id}/{period}",
					Timeout: Duration(DefaultBackendTimeout),
				},
				LeaveHistory: BackendConfig{
					URL:     "http://localhost:3003",
					Path:    "/leaves/{subject_id}/history",
					Timeout: Duration(DefaultBackendTimeout),
				},
			},
			Cache: CacheConfig{
				Enabled: true,
				Type:    CacheTypeRedis,
				TTL:     Duration(DefaultCacheTTL),
				Redis: RedisCacheConfig{
					Host: "localhost",
					Port: 6379,
				},
			},
			Aggregator: AggregatorConfig{
				ServeProbability: DefaultServeProbability,
			},
			CORS: CORSConfig{
				Enabled:      true,
				AllowOrigins: []string{"*"},
				AllowMethods: []string{"GET", "OPTIONS"},
				AllowHeaders: []string{"Content-Type", "X-Request-ID"},
			},
			Observability: ObservabilityConfig{
				Logging: LoggingConfig{Level: "info", Format: "json"},
				Metrics: MetricsConfig{
					Enabled: true,
					Port:    DefaultMetricsPort,
					Path:    DefaultMetricsPath,
				},
				Tracing: TracingConfig{
					SamplingRate: 1.0,
					ServiceName:  "dashgw",
				},
			},
		},
	}
}
