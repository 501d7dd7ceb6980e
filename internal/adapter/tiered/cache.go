// Package tiered implements a two-level (L1 + L2) cache adapter.
package tiered

import (
	"context"
	"log/slog"
	"time"

	"github.com/roumanok/junto-tic-frontend-sub000/internal/port/cache"
)

// Cache combines an L1 (in-process) and L2 (durable) cache.
// Get checks L1 first, then L2 (backfilling L1 on L2 hit).
// Set and Delete operate on both levels. L2 may be nil, in which case the
// cache is L1 only. L2 read failures degrade to a miss: a broken durable
// store costs a reload, never a failed request.
type Cache struct {
	l1       cache.Cache
	l2       cache.Cache
	l1Expire time.Duration
}

// New creates a tiered cache with the given L1 and L2 backends.
// l1Expire caps how long entries live in L1.
func New(l1, l2 cache.Cache, l1Expire time.Duration) *Cache {
	return &Cache{l1: l1, l2: l2, l1Expire: l1Expire}
}

// Get checks L1, then L2. On L2 hit, backfills L1.
func (c *Cache) Get(ctx context.Context, key string) (data []byte, ok bool, err error) {
	val, found, err := c.l1.Get(ctx, key)
	if err != nil {
		return nil, false, err
	}
	if found {
		return val, true, nil
	}
	if c.l2 == nil {
		return nil, false, nil
	}

	val, found, err = c.l2.Get(ctx, key)
	if err != nil {
		slog.Warn("l2 cache read failed, treating as miss", "key", key, "error", err)
		return nil, false, nil
	}
	if found {
		_ = c.l1.Set(ctx, key, val, c.l1Expire)
		return val, true, nil
	}

	return nil, false, nil
}

// Set writes to both L1 and L2. The L1 entry never outlives l1Expire.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	l1TTL := ttl
	if l1TTL <= 0 || l1TTL > c.l1Expire {
		l1TTL = c.l1Expire
	}
	if err := c.l1.Set(ctx, key, value, l1TTL); err != nil {
		return err
	}
	if c.l2 == nil {
		return nil
	}
	return c.l2.Set(ctx, key, value, ttl)
}

// Delete removes from both L1 and L2.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if err := c.l1.Delete(ctx, key); err != nil {
		return err
	}
	if c.l2 == nil {
		return nil
	}
	return c.l2.Delete(ctx, key)
}
