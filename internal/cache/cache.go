package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache is a short-TTL read-through cache for gateway lookups.
//
// It is strictly optional: a nil *Cache (or a Cache built over a nil client)
// misses on every Get and drops every Set, so the baseline behavior of
// fetching fresh from the gateway on every call is preserved when Redis is
// not configured.
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
}

const defaultTTL = 30 * time.Second

func New(rdb *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Cache{rdb: rdb, ttl: ttl}
}

// Get returns the cached raw value and whether it was present.
// Redis errors are treated as misses; the gateway is the source of truth.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool) {
	if c == nil || c.rdb == nil || key == "" {
		return nil, false
	}
	b, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	return b, true
}

// Set stores a raw value under the cache TTL. Best-effort.
func (c *Cache) Set(ctx context.Context, key string, value []byte) {
	if c == nil || c.rdb == nil || key == "" || len(value) == 0 {
		return
	}
	_ = c.rdb.Set(ctx, key, value, c.ttl).Err()
}
