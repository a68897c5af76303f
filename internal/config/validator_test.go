package config

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateConfig_Default(t *testing.T) {
	t.Parallel()

	require.NoError(t, ValidateConfig(DefaultConfig()))
}

func TestValidateConfig_Nil(t *testing.T) {
	t.Parallel()

	err := ValidateConfig(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "configuration is nil")
}

func TestValidateConfig_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(cfg *GatewayConfig)
		path   string
	}{
		{
			name:   "unsupported kind",
			mutate: func(cfg *GatewayConfig) { cfg.Kind = "Route" },
			path:   "kind",
		},
		{
			name:   "listener port out of range",
			mutate: func(cfg *GatewayConfig) { cfg.Spec.Listener.Port = 70000 },
			path:   "spec.listener.port",
		},
		{
			name:   "backend url missing",
			mutate: func(cfg *GatewayConfig) { cfg.Spec.Backends.Identity.URL = "" },
			path:   "spec.backends.identity.url",
		},
		{
			name:   "backend url not http",
			mutate: func(cfg *GatewayConfig) { cfg.Spec.Backends.Attendance.URL = "ftp://host" },
			path:   "spec.backends.attendance.url",
		},
		{
			name:   "backend path relative",
			mutate: func(cfg *GatewayConfig) { cfg.Spec.Backends.LeaveHistory.Path = "leaves" },
			path:   "spec.backends.leaveHistory.path",
		},
		{
			name:   "negative backend timeout",
			mutate: func(cfg *GatewayConfig) { cfg.Spec.Backends.Identity.Timeout = -1 },
			path:   "spec.backends.identity.timeout",
		},
		{
			name: "circuit breaker threshold",
			mutate: func(cfg *GatewayConfig) {
				cfg.Spec.Backends.Identity.CircuitBreaker = CircuitBreakerConfig{Enabled: true}
			},
			path: "spec.backends.identity.circuitBreaker.threshold",
		},
		{
			name:   "unknown cache type",
			mutate: func(cfg *GatewayConfig) { cfg.Spec.Cache.Type = "memcached" },
			path:   "spec.cache.type",
		},
		{
			name:   "zero cache ttl",
			mutate: func(cfg *GatewayConfig) { cfg.Spec.Cache.TTL = 0 },
			path:   "spec.cache.ttl",
		},
		{
			name: "redis without address",
			mutate: func(cfg *GatewayConfig) {
				cfg.Spec.Cache.Redis.Host = ""
				cfg.Spec.Cache.Redis.URL = ""
			},
			path: "spec.cache.redis",
		},
		{
			name:   "serve probability above one",
			mutate: func(cfg *GatewayConfig) { cfg.Spec.Aggregator.ServeProbability = 1.5 },
			path:   "spec.aggregator.serveProbability",
		},
		{
			name:   "serve probability negative",
			mutate: func(cfg *GatewayConfig) { cfg.Spec.Aggregator.ServeProbability = -0.1 },
			path:   "spec.aggregator.serveProbability",
		},
		{
			name:   "unknown log level",
			mutate: func(cfg *GatewayConfig) { cfg.Spec.Observability.Logging.Level = "verbose" },
			path:   "spec.observability.logging.level",
		},
		{
			name:   "metrics port collides with listener",
			mutate: func(cfg *GatewayConfig) { cfg.Spec.Observability.Metrics.Port = cfg.Spec.Listener.Port },
			path:   "spec.observability.metrics.port",
		},
		{
			name:   "sampling rate",
			mutate: func(cfg *GatewayConfig) { cfg.Spec.Observability.Tracing.SamplingRate = 2 },
			path:   "spec.observability.tracing.samplingRate",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := ValidateConfig(cfg)
			require.Error(t, err)

			var verrs ValidationErrors
			require.True(t, errors.As(err, &verrs))
			paths := make([]string, 0, len(verrs))
			for _, v := range verrs {
				paths = append(paths, v.Path)
			}
			assert.Contains(t, paths, tt.path)
		})
	}
}

func TestValidateConfig_CacheDisabledSkipsCacheChecks(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Spec.Cache.Enabled = false
	cfg.Spec.Cache.Type = "bogus"
	cfg.Spec.Cache.TTL = 0

	require.NoError(t, ValidateConfig(cfg))
}

func TestValidationErrors_Error(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "no validation errors", ValidationErrors{}.Error())
	assert.Equal(t, "a.b: bad", ValidationErrors{{Path: "a.b", Message: "bad"}}.Error())

	multi := ValidationErrors{
		{Path: "a", Message: "first"},
		{Message: "second"},
	}
	assert.Contains(t, multi.Error(), "2 validation errors")
	assert.Contains(t, multi.Error(), "1. a: first")
	assert.Contains(t, multi.Error(), "2. second")
}
