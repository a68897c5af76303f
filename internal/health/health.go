package health

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/vyrodovalexey/dashgw/internal/observability"
)

// Status represents the health status.
type Status string

const (
	// StatusHealthy indicates the service is healthy.
	StatusHealthy Status = "healthy"
	// StatusUnhealthy indicates the service is unhealthy.
	StatusUnhealthy Status = "unhealthy"
	// StatusDegraded indicates the service is degraded but operational.
	StatusDegraded Status = "degraded"
)

const contentTypeJSON = "application/json"

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status    Status    `json:"status"`
	Version   string    `json:"version,omitempty"`
	Uptime    string    `json:"uptime,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ReadinessResponse represents the readiness check response.
type ReadinessResponse struct {
	Status    Status           `json:"status"`
	Checks    map[string]Check `json:"checks,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}

// Check represents an individual health check result.
type Check struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
}

// CheckFunc is a function that performs a health check.
type CheckFunc func() Check

// Checker provides health and readiness checking functionality.
type Checker struct {
	version   string
	startTime time.Time
	logger    observability.Logger
	timeout   time.Duration
	checks    map[string]CheckFunc
	mu        sync.RWMutex
}

// NewChecker creates a new health checker.
func NewChecker(version string, logger observability.Logger) *Checker {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Checker{
		version:   version,
		startTime: time.Now(),
		logger:    logger,
		timeout:   DefaultCheckTimeout,
		checks:    make(map[string]CheckFunc),
	}
}

// RegisterCheck registers a health check function.
func (c *Checker) RegisterCheck(name string, check CheckFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = check
}

// UnregisterCheck removes a health check function.
func (c *Checker) UnregisterCheck(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.checks, name)
}

// RegisterDependency registers a dependency check under its name.
// Failures of non-critical dependencies report degraded instead of unhealthy.
func (c *Checker) RegisterDependency(d *DependencyCheck) {
	c.RegisterCheck(d.Name(), func() Check {
		err := d.run(c.timeout)
		if err == nil {
			return Check{Status: StatusHealthy}
		}

		c.logger.Warn("dependency check failed",
			observability.String("dependency", d.Name()),
			observability.Bool("critical", d.IsCritical()),
			observability.Error(err),
		)

		status := StatusUnhealthy
		if !d.IsCritical() {
			status = StatusDegraded
		}
		return Check{Status: status, Message: err.Error()}
	})
}

// Health returns the health status.
func (c *Checker) Health() HealthResponse {
	GetHealthMetrics().checksTotal.WithLabelValues("liveness").Inc()

	return HealthResponse{
		Status:    StatusHealthy,
		Version:   c.version,
		Uptime:    time.Since(c.startTime).Round(time.Second).String(),
		Timestamp: time.Now(),
	}
}

// Readiness returns the readiness status.
func (c *Checker) Readiness() ReadinessResponse {
	c.mu.RLock()
	defer c.mu.RUnlock()

	metrics := GetHealthMetrics()
	metrics.checksTotal.WithLabelValues("readiness").Inc()

	response := ReadinessResponse{
		Status:    StatusHealthy,
		Checks:    make(map[string]Check),
		Timestamp: time.Now(),
	}

	for name, checkFunc := range c.checks {
		check := checkFunc()
		response.Checks[name] = check
		metrics.setStatus(name, check.Status)

		if check.Status == StatusUnhealthy {
			response.Status = StatusUnhealthy
		} else if check.Status == StatusDegraded && response.Status != StatusUnhealthy {
			response.Status = StatusDegraded
		}
	}

	metrics.setStatus("overall", response.Status)

	return response
}

// HealthHandler returns an HTTP handler for the health endpoint.
func (c *Checker) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, c.Health())
	}
}

// ReadinessHandler returns an HTTP handler for the readiness endpoint.
// Degraded is still ready: the gateway keeps serving without its cache.
func (c *Checker) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		response := c.Readiness()

		statusCode := http.StatusOK
		if response.Status == StatusUnhealthy {
			statusCode = http.StatusServiceUnavailable
		}
		writeJSON(w, statusCode, response)
	}
}

// LivenessHandler returns an HTTP handler for the liveness endpoint (simple ping).
func (c *Checker) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", contentTypeJSON)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}
}

func writeJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}
