// Package redis implements the cache port on redis, the alternate durable L2
// backend (cache.l2_backend: redis).
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Cache stores entries in redis under a key prefix.
type Cache struct {
	client     goredis.UniversalClient
	prefix     string
	defaultTTL time.Duration
}

// New creates a redis-backed cache. defaultTTL applies when Set is called with ttl 0.
func New(client goredis.UniversalClient, prefix string, defaultTTL time.Duration) *Cache {
	return &Cache{client: client, prefix: prefix, defaultTTL: defaultTTL}
}

// Dial connects to redis and verifies the connection with PING.
func Dial(ctx context.Context, addr, password string, db int) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return client, nil
}

// Get retrieves a value from redis.
func (c *Cache) Get(ctx context.Context, key string) (data []byte, ok bool, err error) {
	val, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return val, true, nil
}

// Set stores a value with the given TTL, or the default TTL when ttl is 0.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	return c.client.Set(ctx, c.prefix+key, value, ttl).Err()
}

// Delete removes a value. Missing keys are not an error.
func (c *Cache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, c.prefix+key).Err()
}
