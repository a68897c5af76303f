package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/vyrodovalexey/dashgw/internal/observability"
)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestNewChecker(t *testing.T) {
	t.Parallel()

	checker := NewChecker("1.0.0", nil)

	assert.Equal(t, "1.0.0", checker.version)
	assert.NotNil(t, checker.logger)
	assert.NotNil(t, checker.checks)
	assert.Equal(t, DefaultCheckTimeout, checker.timeout)
}

func TestChecker_RegisterAndUnregister(t *testing.T) {
	t.Parallel()

	checker := NewChecker("1.0.0", observability.NopLogger())
	checker.RegisterCheck("cache", func() Check { return Check{Status: StatusHealthy} })

	assert.Len(t, checker.Readiness().Checks, 1)

	checker.UnregisterCheck("cache")
	assert.Empty(t, checker.Readiness().Checks)
}

func TestChecker_Health(t *testing.T) {
	t.Parallel()

	response := NewChecker("1.0.0", observability.NopLogger()).Health()

	assert.Equal(t, StatusHealthy, response.Status)
	assert.Equal(t, "1.0.0", response.Version)
	assert.NotEmpty(t, response.Uptime)
	assert.False(t, response.Timestamp.IsZero())
}

func TestChecker_Readiness(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		statuses []Status
		expected Status
	}{
		{name: "no checks", expected: StatusHealthy},
		{name: "all healthy", statuses: []Status{StatusHealthy, StatusHealthy}, expected: StatusHealthy},
		{name: "one degraded", statuses: []Status{StatusHealthy, StatusDegraded}, expected: StatusDegraded},
		{name: "unhealthy wins", statuses: []Status{StatusDegraded, StatusUnhealthy, StatusHealthy}, expected: StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			checker := NewChecker("test", observability.NopLogger())
			for i, s := range tt.statuses {
				status := s
				checker.RegisterCheck(tt.name+string(rune('a'+i)), func() Check {
					return Check{Status: status}
				})
			}

			response := checker.Readiness()
			assert.Equal(t, tt.expected, response.Status)
			assert.Len(t, response.Checks, len(tt.statuses))
		})
	}
}

func TestChecker_RegisterDependency(t *testing.T) {
	t.Parallel()

	errDown := errors.New("connection refused")

	tests := []struct {
		name     string
		err      error
		critical bool
		expected Status
	}{
		{name: "dependency up", critical: true, expected: StatusHealthy},
		{name: "critical dependency down", err: errDown, critical: true, expected: StatusUnhealthy},
		{name: "optional dependency down", err: errDown, critical: false, expected: StatusDegraded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			core, logs := observer.New(zapcore.WarnLevel)
			checker := NewChecker("test", observability.NewLoggerFromZap(zap.New(core)))

			dep := PingCheck("redis-"+tt.name, DependencyTypeCache,
				pingerFunc(func(context.Context) error { return tt.err }),
				WithCritical(tt.critical),
			)
			checker.RegisterDependency(dep)

			response := checker.Readiness()
			check := response.Checks[dep.Name()]
			assert.Equal(t, tt.expected, check.Status)
			assert.Equal(t, tt.expected, response.Status)

			if tt.err != nil {
				assert.Contains(t, check.Message, "connection refused")
				assert.Equal(t, 1, logs.FilterMessage("dependency check failed").Len())
			} else {
				assert.Empty(t, check.Message)
				assert.Zero(t, logs.Len())
			}
		})
	}
}

func TestChecker_DependencyTimeout(t *testing.T) {
	t.Parallel()

	checker := NewChecker("test", observability.NopLogger())
	checker.timeout = 20 * time.Millisecond

	checker.RegisterDependency(CustomHealthCheck("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}))

	response := checker.Readiness()
	assert.Equal(t, StatusUnhealthy, response.Status)
	assert.Contains(t, response.Checks["slow"].Message, "deadline exceeded")
}

func TestChecker_StatusGauge(t *testing.T) {
	t.Parallel()

	checker := NewChecker("test", observability.NopLogger())
	checker.RegisterCheck("gauge-degraded", func() Check { return Check{Status: StatusDegraded} })
	checker.Readiness()

	assert.InDelta(t, 0.5,
		testutil.ToFloat64(GetHealthMetrics().checkStatus.WithLabelValues("gauge-degraded")), 0.0001)
}

func TestHandlers(t *testing.T) {
	t.Parallel()

	checker := NewChecker("1.2.3", observability.NopLogger())

	t.Run("health", func(t *testing.T) {
		t.Parallel()

		w := httptest.NewRecorder()
		checker.HealthHandler()(w, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

		var body HealthResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, StatusHealthy, body.Status)
		assert.Equal(t, "1.2.3", body.Version)
	})

	t.Run("live", func(t *testing.T) {
		t.Parallel()

		w := httptest.NewRecorder()
		checker.LivenessHandler()(w, httptest.NewRequest(http.MethodGet, "/live", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	})
}

func TestReadinessHandler_StatusCodes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		status       Status
		expectedCode int
	}{
		{name: "healthy", status: StatusHealthy, expectedCode: http.StatusOK},
		{name: "degraded still ready", status: StatusDegraded, expectedCode: http.StatusOK},
		{name: "unhealthy", status: StatusUnhealthy, expectedCode: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			checker := NewChecker("test", observability.NopLogger())
			checker.RegisterCheck("dep", func() Check { return Check{Status: tt.status} })

			w := httptest.NewRecorder()
			checker.ReadinessHandler()(w, httptest.NewRequest(http.MethodGet, "/ready", nil))

			assert.Equal(t, tt.expectedCode, w.Code)

			var body ReadinessResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.status, body.Status)
			assert.Equal(t, tt.status, body.Checks["dep"].Status)
		})
	}
}
