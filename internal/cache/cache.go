package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
)

// RedisClient is the subset of the redis client used by the shared tier.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

type Options struct {
	Name  string
	Size  int
	TTL   time.Duration
	Redis RedisClient
}

// Cache is a bounded, expiring in-process cache with an optional shared Redis
// tier behind it. Values are stored whole and never mutated in place.
type Cache[V any] struct {
	local  *expirable.LRU[string, V]
	remote RedisClient
	prefix string
	ttl    time.Duration
	logger *slog.Logger
}

func New[V any](opts Options, logger *slog.Logger) *Cache[V] {
	if opts.Size < 1 {
		opts.Size = 1
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Cache[V]{
		local:  expirable.NewLRU[string, V](opts.Size, nil, opts.TTL),
		remote: opts.Redis,
		prefix: "storefront:" + opts.Name + ":",
		ttl:    opts.TTL,
		logger: logger.With("component", "cache", "cache", opts.Name),
	}
}

// Get returns the cached value for key. A miss in process falls through to
// the shared tier, and a hit there is kept locally for a fresh full TTL.
func (c *Cache[V]) Get(ctx context.Context, key string) (V, bool) {
	if v, ok := c.local.Get(key); ok {
		return v, true
	}

	var zero V
	if c.remote == nil {
		return zero, false
	}

	raw, err := c.remote.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("shared cache read failed", "key", key, "error", err)
		}
		return zero, false
	}

	var v V
	if err := json.Unmarshal(raw, &v); err != nil {
		c.logger.Warn("dropping undecodable shared cache entry", "key", key, "error", err)
		return zero, false
	}
	c.local.Add(key, v)
	return v, true
}

func (c *Cache[V]) Set(ctx context.Context, key string, v V) {
	c.local.Add(key, v)

	if c.remote == nil {
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		c.logger.Warn("failed to encode shared cache entry", "key", key, "error", err)
		return
	}
	if err := c.remote.Set(ctx, c.prefix+key, raw, c.ttl).Err(); err != nil {
		c.logger.Warn("shared cache write failed", "key", key, "error", err)
	}
}

// Purge drops every entry, including this cache's keys in the shared tier.
func (c *Cache[V]) Purge(ctx context.Context) error {
	c.local.Purge()

	if c.remote == nil {
		return nil
	}

	var cursor uint64
	for {
		keys, next, err := c.remote.Scan(ctx, cursor, c.prefix+"*", 100).Result()
		if err != nil {
			return fmt.Errorf("failed to scan shared cache: %w", err)
		}
		if len(keys) > 0 {
			if err := c.remote.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("failed to purge shared cache: %w", err)
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

// Len reports the number of live in-process entries.
func (c *Cache[V]) Len() int {
	return c.local.Len()
}
