// Package tiered implements a two-level (L1 + L2) cache adapter.
package tiered

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Strob0t/taskalign/internal/port/cache"
)

// Cache combines an L1 (in-process) and an optional L2 (NATS KV) cache.
// Get checks L1 first, then L2, backfilling L1 on an L2 hit. Concurrent
// L2 lookups of one key share a single round trip. L2 failures are logged
// and treated as misses, so a NATS outage only costs cache hits.
type Cache struct {
	l1       cache.Cache
	l2       cache.Cache
	l1Expire time.Duration
	group    singleflight.Group
}

// New creates a tiered cache. l2 may be nil. l1Expire bounds how long
// backfilled entries live in L1.
func New(l1, l2 cache.Cache, l1Expire time.Duration) *Cache {
	return &Cache{l1: l1, l2: l2, l1Expire: l1Expire}
}

type l2Result struct {
	val   []byte
	found bool
}

func (c *Cache) Get(ctx context.Context, key string) (data []byte, ok bool, err error) {
	val, found, err := c.l1.Get(ctx, key)
	if err != nil {
		return nil, false, err
	}
	if found || c.l2 == nil {
		return val, found, nil
	}

	v, _, _ := c.group.Do(key, func() (any, error) {
		val, found, err := c.l2.Get(ctx, key)
		if err != nil {
			slog.WarnContext(ctx, "l2 cache get failed", "key", key, "error", err)
			return l2Result{}, nil
		}
		if found {
			_ = c.l1.Set(ctx, key, val, c.l1Expire)
		}
		return l2Result{val: val, found: found}, nil
	})
	res := v.(l2Result)
	return res.val, res.found, nil
}

// Set writes to L1 and, best effort, to L2.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.l1.Set(ctx, key, value, ttl); err != nil {
		return err
	}
	if c.l2 != nil {
		if err := c.l2.Set(ctx, key, value, ttl); err != nil {
			slog.WarnContext(ctx, "l2 cache set failed", "key", key, "error", err)
		}
	}
	return nil
}

// Delete removes from both levels. An L2 failure is returned so stale
// entries are not silently left behind.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if err := c.l1.Delete(ctx, key); err != nil {
		return err
	}
	if c.l2 == nil {
		return nil
	}
	return c.l2.Delete(ctx, key)
}
