// Package cache provides a small TTL cache used for read-through caching of
// chapter list responses. It is injected as a dependency so services never
// touch a process-wide singleton and tests can substitute the in-memory
// implementation with a controlled clock.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

type Cache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key string, value string, ttl time.Duration)
	Delete(ctx context.Context, key string)
}

// RedisCache backs the cache with a shared redis instance so multiple
// server replicas observe the same entries.
type RedisCache struct {
	rdb *redis.Client
}

func NewRedisCache(rdb *redis.Client) *RedisCache {
	return &RedisCache{rdb: rdb}
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, bool) {
	val, err := c.rdb.Get(ctx, key).Result()
	if err != nil {
		return "", false
	}
	return val, true
}

func (c *RedisCache) Set(ctx context.Context, key string, value string, ttl time.Duration) {
	c.rdb.Set(ctx, key, value, ttl)
}

func (c *RedisCache) Delete(ctx context.Context, key string) {
	c.rdb.Del(ctx, key)
}

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// MemoryCache is the single-process fallback, also used by tests. Now is
// swappable so expiry can be asserted without sleeping.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry

	Now func() time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]memoryEntry),
		Now:     time.Now,
	}
}

func (c *MemoryCache) Get(_ context.Context, key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return "", false
	}
	if c.Now().After(e.expiresAt) {
		delete(c.entries, key)
		return "", false
	}
	return e.value, true
}

func (c *MemoryCache) Set(_ context.Context, key string, value string, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = memoryEntry{value: value, expiresAt: c.Now().Add(ttl)}
}

func (c *MemoryCache) Delete(_ context.Context, key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}
