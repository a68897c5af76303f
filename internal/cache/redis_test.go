package cache

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/dashgw/internal/config"
	"github.com/vyrodovalexey/dashgw/internal/observability"
)

func setupMiniRedis(t *testing.T) *miniredis.Miniredis {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	return mr
}

func newTestRedisCache(t *testing.T, redisCfg config.RedisCacheConfig, prefix string) *redisCache {
	t.Helper()

	c, err := newRedisCache(&config.CacheConfig{
		Enabled:   true,
		Type:      config.CacheTypeRedis,
		TTL:       config.Duration(600 * time.Second),
		KeyPrefix: prefix,
		Redis:     redisCfg,
	}, observability.NopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestRedisOptions(t *testing.T) {
	t.Parallel()

	opts, err := redisOptions(&config.RedisCacheConfig{Host: "cache.local", Password: "pw", DB: 2})
	require.NoError(t, err)
	assert.Equal(t, "cache.local:6379", opts.Addr)
	assert.Equal(t, "pw", opts.Password)
	assert.Equal(t, 2, opts.DB)

	opts, err = redisOptions(&config.RedisCacheConfig{
		URL:         "redis://:secret@10.0.0.5:6380/1",
		Host:        "ignored",
		PoolSize:    7,
		ReadTimeout: config.Duration(time.Second),
	})
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.5:6380", opts.Addr)
	assert.Equal(t, "secret", opts.Password)
	assert.Equal(t, 1, opts.DB)
	assert.Equal(t, 7, opts.PoolSize)
	assert.Equal(t, time.Second, opts.ReadTimeout)

	_, err = redisOptions(&config.RedisCacheConfig{URL: "http://not-redis"})
	assert.Error(t, err)

	_, err = redisOptions(&config.RedisCacheConfig{})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestRedisCache_SetGetWithTTL(t *testing.T) {
	t.Parallel()

	mr := setupMiniRedis(t)
	c := newTestRedisCache(t, config.RedisCacheConfig{URL: "redis://" + mr.Addr()}, "")
	ctx := context.Background()

	_, err := c.Get(ctx, "dashboard:123:01")
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, c.Set(ctx, "dashboard:123:01", []byte(`{"user":{}}`), 0))

	stored, err := mr.Get("dashboard:123:01")
	require.NoError(t, err)
	assert.Equal(t, `{"user":{}}`, stored)
	assert.Equal(t, 600*time.Second, mr.TTL("dashboard:123:01"))

	got, err := c.Get(ctx, "dashboard:123:01")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"user":{}}`), got)

	mr.FastForward(601 * time.Second)
	_, err = c.Get(ctx, "dashboard:123:01")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestRedisCache_KeyPrefixAndDelete(t *testing.T) {
	t.Parallel()

	mr := setupMiniRedis(t)
	c := newTestRedisCache(t, config.RedisCacheConfig{Host: mr.Host(), Port: mustPort(t, mr)}, "dashgw:")
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
	assert.True(t, mr.Exists("dashgw:k"))

	require.NoError(t, c.Delete(ctx, "k"))
	assert.False(t, mr.Exists("dashgw:k"))
}

func TestRedisCache_TTLJitter(t *testing.T) {
	t.Parallel()

	mr := setupMiniRedis(t)
	c := newTestRedisCache(t, config.RedisCacheConfig{URL: "redis://" + mr.Addr(), TTLJitter: 0.1}, "")
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), 100*time.Second))
	ttl := mr.TTL("k")
	assert.GreaterOrEqual(t, ttl, 90*time.Second)
	assert.LessOrEqual(t, ttl, 110*time.Second)
}

func TestRedisCache_ServerDown(t *testing.T) {
	t.Parallel()

	mr := setupMiniRedis(t)
	c := newTestRedisCache(t, config.RedisCacheConfig{
		URL:            "redis://" + mr.Addr(),
		ConnectTimeout: config.Duration(200 * time.Millisecond),
	}, "")
	ctx := context.Background()

	require.NoError(t, c.Ping(ctx))
	mr.Close()

	_, err := c.Get(ctx, "k")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)

	assert.Error(t, c.Set(ctx, "k", []byte("v"), time.Minute))
	assert.Error(t, c.Ping(ctx))
}

func TestRedisCache_RetriesThenSucceeds(t *testing.T) {
	t.Parallel()

	mr := setupMiniRedis(t)
	c := newTestRedisCache(t, config.RedisCacheConfig{
		URL: "redis://" + mr.Addr(),
		Retry: config.RetryConfig{
			MaxRetries:     2,
			InitialBackoff: config.Duration(50 * time.Millisecond),
		},
	}, "")
	ctx := context.Background()

	require.NoError(t, mr.Set("k", "v"))
	mr.SetError("LOADING server is loading")
	go func() {
		time.Sleep(20 * time.Millisecond)
		mr.SetError("")
	}()

	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)
}

func TestApplyTTLJitter(t *testing.T) {
	t.Parallel()

	assert.Equal(t, time.Minute, applyTTLJitter(time.Minute, 0))
	assert.Equal(t, time.Duration(0), applyTTLJitter(0, 0.5))

	for i := 0; i < 100; i++ {
		got := applyTTLJitter(time.Minute, 5)
		assert.Greater(t, got, time.Duration(0))
		assert.LessOrEqual(t, got, 2*time.Minute)
	}
}

func TestIsRetryableRedisError(t *testing.T) {
	t.Parallel()

	assert.False(t, isRetryableRedisError(nil))
	assert.False(t, isRetryableRedisError(context.Canceled))
	assert.False(t, isRetryableRedisError(context.DeadlineExceeded))
	assert.True(t, isRetryableRedisError(assert.AnError))
}

func mustPort(t *testing.T, mr *miniredis.Miniredis) int {
	t.Helper()
	p, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)
	return p
}
