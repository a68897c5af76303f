package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/dashgw/internal/cache"
	"github.com/vyrodovalexey/dashgw/internal/config"
	"github.com/vyrodovalexey/dashgw/internal/observability"
)

func TestNewDependencyCheck(t *testing.T) {
	t.Parallel()

	d := NewDependencyCheck("redis", DependencyTypeCache, func(context.Context) error { return nil })
	assert.Equal(t, "redis", d.Name())
	assert.Equal(t, DependencyTypeCache, d.Type())
	assert.True(t, d.IsCritical())

	d = NewDependencyCheck("redis", DependencyTypeCache, func(context.Context) error { return nil },
		WithCritical(false))
	assert.False(t, d.IsCritical())
}

func TestPingCheck(t *testing.T) {
	t.Parallel()

	t.Run("nil pinger", func(t *testing.T) {
		t.Parallel()
		err := PingCheck("nil", DependencyTypeCache, nil).Check(context.Background())
		assert.EqualError(t, err, "dependency is nil")
	})

	t.Run("wraps ping error", func(t *testing.T) {
		t.Parallel()
		errDown := errors.New("down")
		err := PingCheck("down", DependencyTypeCache,
			pingerFunc(func(context.Context) error { return errDown })).Check(context.Background())
		assert.ErrorIs(t, err, errDown)
	})
}

func TestPingCheck_RedisStore(t *testing.T) {
	t.Parallel()

	mr, err := miniredis.Run()
	require.NoError(t, err)

	store, err := cache.New(&config.CacheConfig{
		Enabled: true,
		Type:    config.CacheTypeRedis,
		TTL:     config.Duration(time.Minute),
		Redis: config.RedisCacheConfig{
			URL:            "redis://" + mr.Addr(),
			ConnectTimeout: config.Duration(100 * time.Millisecond),
		},
	}, observability.NopLogger())
	require.NoError(t, err)
	defer store.Close()

	checker := NewChecker("test", observability.NopLogger())
	checker.RegisterDependency(PingCheck("cache", DependencyTypeCache, store, WithCritical(false)))

	assert.Equal(t, StatusHealthy, checker.Readiness().Status)

	mr.Close()

	response := checker.Readiness()
	assert.Equal(t, StatusDegraded, response.Status)
	assert.Equal(t, StatusDegraded, response.Checks["cache"].Status)
}

func TestBreakerCheck(t *testing.T) {
	t.Parallel()

	tests := []struct {
		state   string
		wantErr bool
	}{
		{state: "disabled"},
		{state: "closed"},
		{state: "half-open"},
		{state: "open", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.state, func(t *testing.T) {
			t.Parallel()

			err := BreakerCheck("identity", func() string { return tt.state }).Check(context.Background())
			if tt.wantErr {
				assert.EqualError(t, err, "circuit breaker is open")
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
