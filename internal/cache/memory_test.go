package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/dashgw/internal/config"
	"github.com/vyrodovalexey/dashgw/internal/observability"
)

func newTestMemoryCache(t *testing.T, maxEntries int) *memoryCache {
	t.Helper()
	c := newMemoryCache(&config.CacheConfig{
		Enabled:    true,
		Type:       config.CacheTypeMemory,
		TTL:        config.Duration(time.Minute),
		MaxEntries: maxEntries,
	}, observability.NopLogger())
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestMemoryCache_SetGet(t *testing.T) {
	t.Parallel()

	c := newTestMemoryCache(t, 0)
	ctx := context.Background()

	_, err := c.Get(ctx, "dashboard:1:01")
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, c.Set(ctx, "dashboard:1:01", []byte(`{"a":1}`), 0))

	got, err := c.Get(ctx, "dashboard:1:01")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"a":1}`), got)

	require.NoError(t, c.Set(ctx, "dashboard:1:01", []byte(`{"a":2}`), 0))
	got, err = c.Get(ctx, "dashboard:1:01")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"a":2}`), got)

	stats := c.Stats()
	assert.Equal(t, int64(2), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(1), stats.Size)
}

func TestMemoryCache_CopiesValue(t *testing.T) {
	t.Parallel()

	c := newTestMemoryCache(t, 0)
	ctx := context.Background()

	value := []byte("original")
	require.NoError(t, c.Set(ctx, "k", value, 0))
	value[0] = 'X'

	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "original", string(got))
}

func TestMemoryCache_Expiry(t *testing.T) {
	t.Parallel()

	c := newTestMemoryCache(t, 0)
	ctx := context.Background()

	now := time.Now()
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set(ctx, "k", []byte("v"), 10*time.Second))

	now = now.Add(9 * time.Second)
	_, err := c.Get(ctx, "k")
	require.NoError(t, err)

	now = now.Add(time.Second)
	_, err = c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.Equal(t, int64(0), c.Stats().Size)
}

func TestMemoryCache_Cleanup(t *testing.T) {
	t.Parallel()

	c := newTestMemoryCache(t, 0)
	ctx := context.Background()

	now := time.Now()
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set(ctx, "short", []byte("v"), time.Second))
	require.NoError(t, c.Set(ctx, "long", []byte("v"), time.Hour))

	now = now.Add(2 * time.Second)
	c.cleanup()

	assert.Equal(t, int64(1), c.Stats().Size)
	_, err := c.Get(ctx, "long")
	assert.NoError(t, err)
}

func TestMemoryCache_EvictsLeastRecentlyUsed(t *testing.T) {
	t.Parallel()

	c := newTestMemoryCache(t, 2)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "a", []byte("1"), 0))
	require.NoError(t, c.Set(ctx, "b", []byte("2"), 0))
	_, err := c.Get(ctx, "a")
	require.NoError(t, err)
	require.NoError(t, c.Set(ctx, "c", []byte("3"), 0))

	_, err = c.Get(ctx, "b")
	assert.ErrorIs(t, err, ErrCacheMiss)
	_, err = c.Get(ctx, "a")
	assert.NoError(t, err)
	_, err = c.Get(ctx, "c")
	assert.NoError(t, err)
}

func TestMemoryCache_Delete(t *testing.T) {
	t.Parallel()

	c := newTestMemoryCache(t, 0)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), 0))
	require.NoError(t, c.Delete(ctx, "k"))
	require.NoError(t, c.Delete(ctx, "missing"))

	_, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryCache_Concurrent(t *testing.T) {
	t.Parallel()

	c := newTestMemoryCache(t, 50)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := fmt.Sprintf("k-%d-%d", i, j%10)
				_ = c.Set(ctx, key, []byte("v"), 0)
				_, _ = c.Get(ctx, key)
			}
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, c.Stats().Size, int64(50))
}

func TestMemoryCache_CloseIdempotent(t *testing.T) {
	t.Parallel()

	c := newTestMemoryCache(t, 0)
	assert.NoError(t, c.Close())
	assert.NoError(t, c.Close())
}
