package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"todo-notes/internal/logging"
)

// Cache is the read-through cache used by the todo service decorator.
type Cache interface {
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, key string) error
	DeletePattern(ctx context.Context, pattern string) error
	Stats() map[string]interface{}
	Health() error
	Close() error
}

// MultiLevelCache keeps a short-lived in-process copy (L1) in front of an
// optional Redis layer (L2). Redis failures are logged and treated as
// misses; the L2 calls go through a circuit breaker.
type MultiLevelCache struct {
	l1      *MemoryCache
	l2      *RedisCache
	breaker *CircuitBreaker
	metrics *CacheMetrics
	log     logging.Logger
	l1TTL   time.Duration
}

type MultiLevelOption func(*MultiLevelCache)

// WithL1TTL caps how long an entry lives in process memory. Without Redis
// the requested TTL is used as is.
func WithL1TTL(ttl time.Duration) MultiLevelOption {
	return func(c *MultiLevelCache) { c.l1TTL = ttl }
}

func WithCircuitBreaker(cb *CircuitBreaker) MultiLevelOption {
	return func(c *MultiLevelCache) { c.breaker = cb }
}

func WithLogger(log logging.Logger) MultiLevelOption {
	return func(c *MultiLevelCache) { c.log = log }
}

// NewMultiLevelCache builds the cache. redisCache may be nil for an L1-only
// cache.
func NewMultiLevelCache(redisCache *RedisCache, opts ...MultiLevelOption) *MultiLevelCache {
	c := &MultiLevelCache{
		l1:      NewMemoryCache(defaultMaxEntries),
		l2:      redisCache,
		breaker: NewCircuitBreaker(nil),
		metrics: NewCacheMetrics(),
		log:     logging.Nop(),
		l1TTL:   time.Minute,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *MultiLevelCache) localTTL(ttl time.Duration) time.Duration {
	if c.l2 != nil && c.l1TTL > 0 && c.l1TTL < ttl {
		return c.l1TTL
	}
	return ttl
}

func (c *MultiLevelCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		c.metrics.RecordError()
		return fmt.Errorf("failed to marshal value: %w", err)
	}

	c.l1.Set(key, data, c.localTTL(ttl))
	c.metrics.RecordSet()

	if c.l2 != nil {
		err := c.breaker.Execute(func() error {
			return c.l2.Set(ctx, key, data, ttl)
		})
		if err != nil {
			c.l2Failed(ctx, "set", key, err)
		}
	}

	return nil
}

func (c *MultiLevelCache) Get(ctx context.Context, key string, dest interface{}) error {
	if data, found := c.l1.Get(key); found {
		c.metrics.RecordHit()
		return decode(data, dest)
	}

	if c.l2 == nil {
		c.metrics.RecordMiss()
		return ErrCacheMiss
	}

	var data []byte
	err := c.breaker.Execute(func() error {
		var err error
		data, err = c.l2.Get(ctx, key)
		return err
	})
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			c.l2Failed(ctx, "get", key, err)
		}
		c.metrics.RecordMiss()
		return ErrCacheMiss
	}

	c.metrics.RecordHit()
	c.l1.Set(key, data, c.l1TTL)
	return decode(data, dest)
}

func (c *MultiLevelCache) Delete(ctx context.Context, key string) error {
	c.l1.Delete(key)
	c.metrics.RecordDelete()

	if c.l2 != nil {
		err := c.breaker.Execute(func() error {
			return c.l2.Delete(ctx, key)
		})
		if err != nil {
			c.l2Failed(ctx, "delete", key, err)
		}
	}
	return nil
}

func (c *MultiLevelCache) DeletePattern(ctx context.Context, pattern string) error {
	if _, err := c.l1.DeletePattern(pattern); err != nil {
		return fmt.Errorf("invalid cache pattern %q: %w", pattern, err)
	}
	c.metrics.RecordDelete()

	if c.l2 != nil {
		err := c.breaker.Execute(func() error {
			_, err := c.l2.DeletePattern(ctx, pattern)
			return err
		})
		if err != nil {
			c.l2Failed(ctx, "delete_pattern", pattern, err)
		}
	}
	return nil
}

func (c *MultiLevelCache) l2Failed(ctx context.Context, op, key string, err error) {
	c.metrics.RecordError()
	c.log.Warn(ctx, "redis cache operation failed", "op", op, "key", key, "error", err)
}

func (c *MultiLevelCache) Metrics() *CacheMetrics {
	return c.metrics
}

func (c *MultiLevelCache) Stats() map[string]interface{} {
	stats := map[string]interface{}{
		"l1":      c.l1.Stats(),
		"metrics": c.metrics.Snapshot(),
	}

	if c.l2 != nil {
		stats["l2"] = c.l2.Stats()
		stats["circuit_breaker"] = c.breaker.GetStats()
	}

	return stats
}

func (c *MultiLevelCache) Health() error {
	if c.l2 == nil {
		return nil
	}
	if c.breaker.GetState() == CircuitBreakerOpen {
		return ErrCacheDown
	}
	return c.l2.Health()
}

func (c *MultiLevelCache) Close() error {
	if c.l2 != nil {
		return c.l2.Close()
	}
	return nil
}

func decode(data []byte, dest interface{}) error {
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("failed to unmarshal cached data: %w", err)
	}
	return nil
}
