package cache

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vyrodovalexey/dashgw/internal/config"
	"github.com/vyrodovalexey/dashgw/internal/observability"
	"github.com/vyrodovalexey/dashgw/internal/retry"
)

// cacheTracerName is the OpenTelemetry tracer name for cache operations.
const cacheTracerName = "dashgw/cache"

// isRetryableRedisError reports whether err is a connection-level failure
// worth retrying.
func isRetryableRedisError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, redis.Nil) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return true
}

// redisCache implements a Redis-backed cache.
type redisCache struct {
	logger     observability.Logger
	client     *redis.Client
	keyPrefix  string
	defaultTTL time.Duration
	ttlJitter  float64
	retryCfg   *retry.Config
}

// applyTTLJitter varies ttl by up to ±jitterFactor. It never returns a
// non-positive TTL.
func applyTTLJitter(ttl time.Duration, jitterFactor float64) time.Duration {
	if jitterFactor <= 0 || ttl <= 0 {
		return ttl
	}
	if jitterFactor > 1.0 {
		jitterFactor = 1.0
	}
	//nolint:gosec // G404: TTL jitter does not require cryptographic randomness
	jitter := time.Duration(float64(ttl) * jitterFactor * (2*rand.Float64() - 1))
	result := ttl + jitter
	if result <= 0 {
		return ttl
	}
	return result
}

// redisOptions builds client options from the URL when set, otherwise
// from host, port and password.
func redisOptions(cfg *config.RedisCacheConfig) (*redis.Options, error) {
	var opts *redis.Options
	if cfg.URL != "" {
		parsed, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis URL: %w", err)
		}
		opts = parsed
	} else {
		if cfg.Host == "" {
			return nil, fmt.Errorf("%w: redis url or host is required", ErrInvalidConfig)
		}
		port := cfg.Port
		if port == 0 {
			port = 6379
		}
		opts = &redis.Options{
			Addr:     net.JoinHostPort(cfg.Host, strconv.Itoa(port)),
			Password: cfg.Password,
			DB:       cfg.DB,
		}
	}

	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if cfg.ConnectTimeout > 0 {
		opts.DialTimeout = cfg.ConnectTimeout.Duration()
	}
	if cfg.ReadTimeout > 0 {
		opts.ReadTimeout = cfg.ReadTimeout.Duration()
	}
	if cfg.WriteTimeout > 0 {
		opts.WriteTimeout = cfg.WriteTimeout.Duration()
	}

	return opts, nil
}

// newRedisCache creates a Redis cache. The connection is established
// lazily; an unreachable server does not prevent startup.
func newRedisCache(cfg *config.CacheConfig, logger observability.Logger) (*redisCache, error) {
	opts, err := redisOptions(&cfg.Redis)
	if err != nil {
		return nil, err
	}

	c := &redisCache{
		logger:     logger,
		client:     redis.NewClient(opts),
		keyPrefix:  cfg.KeyPrefix,
		defaultTTL: cfg.TTL.Duration(),
		ttlJitter:  cfg.Redis.TTLJitter,
		retryCfg: &retry.Config{
			MaxRetries:     cfg.Redis.Retry.MaxRetries,
			InitialBackoff: cfg.Redis.Retry.InitialBackoff.Duration(),
			MaxBackoff:     cfg.Redis.Retry.MaxBackoff.Duration(),
		},
	}

	logger.Info("redis cache initialized",
		observability.String("addr", opts.Addr),
		observability.Int("db", opts.DB),
		observability.String("keyPrefix", c.keyPrefix),
		observability.Duration("defaultTTL", c.defaultTTL),
		observability.Float64("ttlJitter", c.ttlJitter))

	return c, nil
}

func (c *redisCache) startSpan(ctx context.Context, op, key string) (context.Context, trace.Span) {
	return otel.Tracer(cacheTracerName).Start(ctx, op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("cache.backend", "redis"),
			attribute.String("cache.key", key),
		),
	)
}

func (c *redisCache) retryOptions(op, key string) *retry.Options {
	return &retry.Options{
		ShouldRetry: isRetryableRedisError,
		OnRetry: func(attempt int, err error, backoff time.Duration) {
			c.logger.Debug("retrying redis "+op,
				observability.String("key", key),
				observability.Int("attempt", attempt),
				observability.Duration("backoff", backoff),
				observability.Error(err))
		},
	}
}

func (c *redisCache) fail(span trace.Span, op, key string, err error) {
	GetCacheMetrics().errorsTotal.WithLabelValues("redis", op).Inc()
	span.SetStatus(codes.Error, err.Error())
	span.RecordError(err)
	c.logger.Warn("redis "+op+" failed",
		observability.String("key", key),
		observability.Error(err))
}

// Get retrieves a value from the cache.
func (c *redisCache) Get(ctx context.Context, key string) ([]byte, error) {
	ctx, span := c.startSpan(ctx, "cache.Get", key)
	defer span.End()

	start := time.Now()
	defer func() {
		GetCacheMetrics().operationDuration.WithLabelValues("redis", "get").Observe(time.Since(start).Seconds())
	}()

	fullKey := c.keyPrefix + key

	var result []byte
	err := retry.Do(ctx, c.retryCfg, "cache.get", func() error {
		val, getErr := c.client.Get(ctx, fullKey).Bytes()
		if getErr != nil {
			return getErr
		}
		result = val
		return nil
	}, c.retryOptions("get", key))

	if err == nil {
		GetCacheMetrics().hitsTotal.WithLabelValues("redis").Inc()
		span.SetAttributes(
			attribute.Bool("cache.hit", true),
			attribute.Int("cache.value_size", len(result)),
		)
		return result, nil
	}

	if errors.Is(err, redis.Nil) {
		GetCacheMetrics().missesTotal.WithLabelValues("redis").Inc()
		span.SetAttributes(attribute.Bool("cache.hit", false))
		return nil, ErrCacheMiss
	}

	c.fail(span, "get", key, err)
	return nil, err
}

// Set stores a value in the cache.
func (c *redisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	ctx, span := c.startSpan(ctx, "cache.Set", key)
	defer span.End()
	span.SetAttributes(attribute.Int("cache.value_size", len(value)))

	start := time.Now()
	defer func() {
		GetCacheMetrics().operationDuration.WithLabelValues("redis", "set").Observe(time.Since(start).Seconds())
	}()

	if ttl == 0 {
		ttl = c.defaultTTL
	}
	ttl = applyTTLJitter(ttl, c.ttlJitter)

	fullKey := c.keyPrefix + key

	err := retry.Do(ctx, c.retryCfg, "cache.set", func() error {
		return c.client.Set(ctx, fullKey, value, ttl).Err()
	}, c.retryOptions("set", key))
	if err != nil {
		c.fail(span, "set", key, err)
		return err
	}

	c.logger.Debug("cache set",
		observability.String("key", key),
		observability.Duration("ttl", ttl),
		observability.Int("size", len(value)))
	return nil
}

// Delete removes a value from the cache.
func (c *redisCache) Delete(ctx context.Context, key string) error {
	ctx, span := c.startSpan(ctx, "cache.Delete", key)
	defer span.End()

	start := time.Now()
	defer func() {
		GetCacheMetrics().operationDuration.WithLabelValues("redis", "delete").Observe(time.Since(start).Seconds())
	}()

	fullKey := c.keyPrefix + key

	err := retry.Do(ctx, c.retryCfg, "cache.delete", func() error {
		return c.client.Del(ctx, fullKey).Err()
	}, c.retryOptions("delete", key))
	if err != nil {
		c.fail(span, "delete", key, err)
		return err
	}
	return nil
}

// Ping checks the connection to Redis.
func (c *redisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (c *redisCache) Close() error {
	c.logger.Info("redis cache closing")
	return c.client.Close()
}
