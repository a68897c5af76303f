package cache

import (
	"container/list"
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/vyrodovalexey/dashgw/internal/config"
	"github.com/vyrodovalexey/dashgw/internal/observability"
)

const defaultMaxEntries = 10000

// memoryCache implements an in-memory LRU cache with per-entry expiry.
type memoryCache struct {
	logger     observability.Logger
	maxEntries int
	defaultTTL time.Duration
	now        func() time.Time

	mu       sync.Mutex
	items    map[string]*list.Element
	eviction *list.List

	hits   int64
	misses int64

	stopCh    chan struct{}
	closeOnce sync.Once
}

type memoryCacheEntry struct {
	key       string
	value     []byte
	expiresAt time.Time
}

func newMemoryCache(cfg *config.CacheConfig, logger observability.Logger) *memoryCache {
	maxEntries := cfg.MaxEntries
	if maxEntries <= 0 {
		maxEntries = defaultMaxEntries
	}

	c := &memoryCache{
		logger:     logger,
		maxEntries: maxEntries,
		defaultTTL: cfg.TTL.Duration(),
		now:        time.Now,
		items:      make(map[string]*list.Element),
		eviction:   list.New(),
		stopCh:     make(chan struct{}),
	}

	go c.cleanupLoop()

	logger.Info("memory cache initialized",
		observability.Int("maxEntries", maxEntries),
		observability.Duration("defaultTTL", c.defaultTTL))

	return c
}

func (c *memoryCache) startSpan(ctx context.Context, op, key string) trace.Span {
	_, span := otel.Tracer(cacheTracerName).Start(ctx, op,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("cache.backend", "memory"),
			attribute.String("cache.key", key),
		),
	)
	return span
}

// Get retrieves a value from the cache.
func (c *memoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	span := c.startSpan(ctx, "cache.Get", key)
	defer span.End()

	c.mu.Lock()
	defer c.mu.Unlock()

	elem, exists := c.items[key]
	if exists {
		entry := elem.Value.(*memoryCacheEntry)
		if entry.expiresAt.IsZero() || c.now().Before(entry.expiresAt) {
			c.eviction.MoveToFront(elem)
			atomic.AddInt64(&c.hits, 1)
			GetCacheMetrics().hitsTotal.WithLabelValues("memory").Inc()
			span.SetAttributes(attribute.Bool("cache.hit", true))
			return entry.value, nil
		}
		c.removeElement(elem)
	}

	atomic.AddInt64(&c.misses, 1)
	GetCacheMetrics().missesTotal.WithLabelValues("memory").Inc()
	span.SetAttributes(attribute.Bool("cache.hit", false))
	return nil, ErrCacheMiss
}

// Set stores a value in the cache.
func (c *memoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	span := c.startSpan(ctx, "cache.Set", key)
	defer span.End()

	if ttl == 0 {
		ttl = c.defaultTTL
	}

	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = c.now().Add(ttl)
	}

	stored := make([]byte, len(value))
	copy(stored, value)
	entry := &memoryCacheEntry{key: key, value: stored, expiresAt: expiresAt}

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, exists := c.items[key]; exists {
		c.eviction.MoveToFront(elem)
		elem.Value = entry
		return nil
	}

	c.items[key] = c.eviction.PushFront(entry)

	for c.eviction.Len() > c.maxEntries {
		c.evictOldest()
	}

	GetCacheMetrics().sizeGauge.WithLabelValues("memory").Set(float64(c.eviction.Len()))
	return nil
}

// Delete removes a value from the cache.
func (c *memoryCache) Delete(ctx context.Context, key string) error {
	span := c.startSpan(ctx, "cache.Delete", key)
	defer span.End()

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, exists := c.items[key]; exists {
		c.removeElement(elem)
	}
	return nil
}

// Ping always succeeds for the memory store.
func (c *memoryCache) Ping(_ context.Context) error {
	return nil
}

// Close stops the cleanup goroutine and drops all entries.
func (c *memoryCache) Close() error {
	c.closeOnce.Do(func() {
		close(c.stopCh)

		c.mu.Lock()
		c.items = make(map[string]*list.Element)
		c.eviction.Init()
		c.mu.Unlock()

		c.logger.Info("memory cache closed")
	})
	return nil
}

// Stats returns cache statistics.
func (c *memoryCache) Stats() CacheStats {
	c.mu.Lock()
	size := int64(c.eviction.Len())
	c.mu.Unlock()

	return CacheStats{
		Hits:   atomic.LoadInt64(&c.hits),
		Misses: atomic.LoadInt64(&c.misses),
		Size:   size,
	}
}

// evictOldest must be called with the lock held.
func (c *memoryCache) evictOldest() {
	elem := c.eviction.Back()
	if elem != nil {
		c.removeElement(elem)
		GetCacheMetrics().evictionsTotal.WithLabelValues("memory").Inc()
	}
}

// removeElement must be called with the lock held.
func (c *memoryCache) removeElement(elem *list.Element) {
	c.eviction.Remove(elem)
	delete(c.items, elem.Value.(*memoryCacheEntry).key)
}

func (c *memoryCache) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.cleanup()
		case <-c.stopCh:
			return
		}
	}
}

func (c *memoryCache) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for elem := c.eviction.Back(); elem != nil; {
		prev := elem.Prev()
		entry := elem.Value.(*memoryCacheEntry)
		if !entry.expiresAt.IsZero() && !now.Before(entry.expiresAt) {
			c.removeElement(elem)
			removed++
		}
		elem = prev
	}

	if removed > 0 {
		GetCacheMetrics().sizeGauge.WithLabelValues("memory").Set(float64(c.eviction.Len()))
		c.logger.Debug("cache cleanup completed", observability.Int("removed", removed))
	}
}
