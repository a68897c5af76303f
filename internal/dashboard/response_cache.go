package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/vyrodovalexey/dashgw/internal/cache"
	"github.com/vyrodovalexey/dashgw/internal/observability"
)

// ResponseCache stores composites in a cache.Cache. It never returns
// store errors: a failing read is a miss and a failing write is logged.
type ResponseCache struct {
	store  cache.Cache
	ttl    time.Duration
	logger observability.Logger
}

// NewResponseCache creates a response cache with the given default TTL.
func NewResponseCache(store cache.Cache, ttl time.Duration, logger observability.Logger) *ResponseCache {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &ResponseCache{store: store, ttl: ttl, logger: logger}
}

// TTL returns the default entry lifetime.
func (rc *ResponseCache) TTL() time.Duration {
	return rc.ttl
}

// Put stores the composite under key, overwriting any existing entry.
// A zero ttl uses the default. Incomplete composites are not stored.
func (rc *ResponseCache) Put(ctx context.Context, key Key, c Composite, ttl time.Duration) {
	if !c.Complete() {
		rc.logger.Warn("refusing to cache incomplete dashboard",
			observability.String("key", key.String()))
		return
	}
	if ttl <= 0 {
		ttl = rc.ttl
	}

	data, err := json.Marshal(c)
	if err != nil {
		rc.logger.Warn("failed to encode dashboard for cache",
			observability.String("key", key.String()),
			observability.Error(err))
		return
	}

	if err := rc.store.Set(ctx, key.String(), data, ttl); err != nil {
		GetDashboardMetrics().cacheWriteErrors.Inc()
		rc.logger.Warn("failed to cache dashboard",
			observability.String("key", key.String()),
			observability.Error(err))
	}
}

// Get returns the cached composite for key. The boolean is false when
// the entry is absent, unreadable, or incomplete.
func (rc *ResponseCache) Get(ctx context.Context, key Key) (Composite, bool) {
	data, err := rc.store.Get(ctx, key.String())
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			GetDashboardMetrics().cacheReadErrors.Inc()
			rc.logger.Warn("cache read failed, treating as miss",
				observability.String("key", key.String()),
				observability.Error(err))
		}
		return Composite{}, false
	}

	var c Composite
	if err := json.Unmarshal(data, &c); err != nil || !c.Complete() {
		rc.logger.Warn("discarding undecodable cache entry",
			observability.String("key", key.String()))
		return Composite{}, false
	}
	return c, true
}
