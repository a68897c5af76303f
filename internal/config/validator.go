package config

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Path    string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Message)
	}
	return e.Message
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d validation errors:\n", len(e))
	for i := range e {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, e[i].Error())
	}
	return sb.String()
}

var validLogLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "error": true,
}

// ValidateConfig validates a gateway configuration. It returns
// ValidationErrors listing every problem found.
func ValidateConfig(cfg *GatewayConfig) error {
	if cfg == nil {
		return ValidationErrors{{Message: "configuration is nil"}}
	}

	var errs ValidationErrors
	add := func(path, format string, args ...interface{}) {
		errs = append(errs, ValidationError{Path: path, Message: fmt.Sprintf(format, args...)})
	}

	if cfg.Kind != "" && cfg.Kind != "Gateway" {
		add("kind", "unsupported kind %q", cfg.Kind)
	}

	spec := &cfg.Spec

	if spec.Listener.Port < 1 || spec.Listener.Port > 65535 {
		add("spec.listener.port", "must be between 1 and 65535, got %d", spec.Listener.Port)
	}

	backends := []struct {
		path string
		cfg  BackendConfig
	}{
		{"spec.backends.identity", spec.Backends.Identity},
		{"spec.backends.attendance", spec.Backends.Attendance},
		{"spec.backends.leaveHistory", spec.Backends.LeaveHistory},
	}
	for _, b := range backends {
		validateBackend(b.path, &b.cfg, add)
	}

	if spec.Cache.Enabled {
		switch spec.Cache.Type {
		case CacheTypeMemory:
		case CacheTypeRedis:
			r := &spec.Cache.Redis
			if r.URL == "" && r.Host == "" {
				add("spec.cache.redis", "url or host is required")
			}
			if r.TTLJitter < 0 || r.TTLJitter > 1 {
				add("spec.cache.redis.ttlJitter", "must be between 0 and 1")
			}
			if r.Retry.MaxRetries < 0 {
				add("spec.cache.redis.retry.maxRetries", "must not be negative")
			}
		default:
			add("spec.cache.type", "unknown cache type %q", spec.Cache.Type)
		}
		if spec.Cache.TTL <= 0 {
			add("spec.cache.ttl", "must be positive")
		}
	}

	p := spec.Aggregator.ServeProbability
	if p < 0 || p > 1 {
		add("spec.aggregator.serveProbability", "must be between 0 and 1, got %v", p)
	}

	obs := &spec.Observability
	if obs.Logging.Level != "" && !validLogLevels[obs.Logging.Level] {
		add("spec.observability.logging.level", "unknown level %q", obs.Logging.Level)
	}
	if obs.Metrics.Enabled && (obs.Metrics.Port < 1 || obs.Metrics.Port > 65535) {
		add("spec.observability.metrics.port", "must be between 1 and 65535")
	}
	if obs.Metrics.Enabled && obs.Metrics.Port == spec.Listener.Port {
		add("spec.observability.metrics.port", "must differ from the listener port")
	}
	if obs.Tracing.SamplingRate < 0 || obs.Tracing.SamplingRate > 1 {
		add("spec.observability.tracing.samplingRate", "must be between 0 and 1")
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func validateBackend(path string, b *BackendConfig, add func(string, string, ...interface{})) {
	if b.URL == "" {
		add(path+".url", "is required")
	} else if u, err := url.Parse(b.URL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		add(path+".url", "must be an absolute http(s) URL, got %q", b.URL)
	}
	if !strings.HasPrefix(b.Path, "/") {
		add(path+".path", "must start with '/'")
	}
	if b.Timeout < 0 {
		add(path+".timeout", "must not be negative")
	}
	if b.CircuitBreaker.Enabled {
		if b.CircuitBreaker.Threshold < 1 {
			add(path+".circuitBreaker.threshold", "must be at least 1")
		}
		if b.CircuitBreaker.FailureRatio < 0 || b.CircuitBreaker.FailureRatio > 1 {
			add(path+".circuitBreaker.failureRatio", "must be between 0 and 1")
		}
	}
}
