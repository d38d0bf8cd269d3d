// Package cache provides a Redis-backed lookup cache. It is best-effort:
// every failure is a cache miss, never an error surfaced to callers.
package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/fincore/warehouse/internal/config"
)

// RedisCache caches small lookup results with a TTL.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis connects a cache to the configured Redis instance.
func NewRedis(cfg config.RedisConfig) *RedisCache {
	return &RedisCache{
		client: redis.NewClient(&redis.Options{Addr: cfg.Addr}),
		ttl:    cfg.TTL,
	}
}

// Get returns the cached value for key, or false on any miss or error.
func (c *RedisCache) Get(ctx context.Context, key string) (string, bool) {
	value, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			log.Debug().Err(err).Str("key", key).Msg("cache read failed")
		}
		return "", false
	}
	return value, true
}

// Set stores value under key with the configured TTL.
func (c *RedisCache) Set(ctx context.Context, key, value string) {
	if err := c.client.Set(ctx, key, value, c.ttl).Err(); err != nil {
		log.Debug().Err(err).Str("key", key).Msg("cache write failed")
	}
}

// Close releases the Redis connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
