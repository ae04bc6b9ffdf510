// Package cache provides an optional Redis-backed read-through cache for
// query responses. When Redis is not configured or unreachable the cache
// degrades to a no-op and the backend serves straight from the database.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache wraps a redis client. A nil *Cache is valid and never hits Redis.
type Cache struct {
	client *redis.Client
}

// NewCache connects to Redis and returns nil if the connection fails, so
// callers can keep a nil-safe handle without feature flags.
func NewCache(host, port, password string) *Cache {
	if host == "" {
		return nil
	}

	addr := fmt.Sprintf("%s:%s", host, port)
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("Redis unavailable at %s, caching disabled: %v", addr, err)
		return nil
	}

	log.Printf("Connected to Redis at %s", addr)
	return &Cache{client: client}
}

// Get loads a cached value into dest and reports whether it was a hit
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) bool {
	if c == nil || c.client == nil {
		return false
	}

	val, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			log.Printf("Cache get %s failed: %v", key, err)
		}
		return false
	}
	if err := json.Unmarshal([]byte(val), dest); err != nil {
		log.Printf("Cache entry %s is malformed, ignoring: %v", key, err)
		return false
	}
	return true
}

// Set stores a value best-effort; failures are logged, never surfaced
func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	if c == nil || c.client == nil {
		return
	}

	data, err := json.Marshal(value)
	if err != nil {
		log.Printf("Cache set %s failed to marshal: %v", key, err)
		return
	}
	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		log.Printf("Cache set %s failed: %v", key, err)
	}
}

// Invalidate drops keys, best-effort. Used after ingestion batches so stale
// aggregates do not outlive a refresh.
func (c *Cache) Invalidate(ctx context.Context, keys ...string) {
	if c == nil || c.client == nil || len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		log.Printf("Cache invalidate failed: %v", err)
	}
}
