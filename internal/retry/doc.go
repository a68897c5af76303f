// Package retry runs an operation with bounded exponential backoff.
//
// The cache store uses it to ride out transient connection errors:
//
//	err := retry.Do(ctx, &retry.Config{MaxRetries: 2}, "cache.get", func() error {
//	    return client.Get(ctx, key).Err()
//	}, &retry.Options{ShouldRetry: isConnectionError})
//
// A zero MaxRetries runs the operation exactly once.
package retry
