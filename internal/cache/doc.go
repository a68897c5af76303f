// Package cache provides the byte-oriented key/value store behind the
// dashboard response cache.
//
// Two stores are available:
//
//   - redis: shared across gateway replicas, TTLs enforced by Redis
//   - memory: process-local LRU with per-entry expiry, for development and tests
//
// Store errors are returned to the caller; deciding whether a failing store
// should break a request is left to the layer above.
//
// # Example Usage
//
//	store, err := cache.New(&cfg.Spec.Cache, logger)
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
//	_ = store.Set(ctx, "dashboard:123:01", payload, 10*time.Minute)
//	value, err := store.Get(ctx, "dashboard:123:01")
//	if errors.Is(err, cache.ErrCacheMiss) {
//	    // fetch fresh data
//	}
//
// All implementations are safe for concurrent use.
package cache
