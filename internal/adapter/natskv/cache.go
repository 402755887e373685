// Package natskv implements the cache port using NATS JetStream KV as L2 remote cache.
package natskv

import (
	"context"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

// Cache wraps a NATS JetStream KeyValue store as an L2 cache.
// TTL is a bucket property; per-entry ttl arguments are ignored.
type Cache struct {
	kv     jetstream.KeyValue
	prefix string
}

// New creates a NATS KV-backed cache. Keys are stored under prefix.
func New(kv jetstream.KeyValue, prefix string) *Cache {
	return &Cache{kv: kv, prefix: prefix}
}

// Get retrieves a value from the NATS KV store.
func (c *Cache) Get(ctx context.Context, key string) (data []byte, ok bool, err error) {
	entry, err := c.kv.Get(ctx, c.key(key))
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return entry.Value(), true, nil
}

// Set stores a value in the NATS KV store.
func (c *Cache) Set(ctx context.Context, key string, value []byte, _ time.Duration) error {
	_, err := c.kv.Put(ctx, c.key(key), value)
	return err
}

// Delete removes a value from the NATS KV store.
func (c *Cache) Delete(ctx context.Context, key string) error {
	err := c.kv.Delete(ctx, c.key(key))
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return nil
	}
	return err
}

func (c *Cache) key(k string) string {
	if c.prefix == "" {
		return SanitizeKey(k)
	}
	return c.prefix + "." + SanitizeKey(k)
}

// SanitizeKey maps an arbitrary cache key to a valid KV key. Keys made of
// [A-Za-z0-9_-=] and interior dots pass through; anything else is hex-encoded.
func SanitizeKey(k string) string {
	if k != "" && !strings.HasPrefix(k, ".") && !strings.HasSuffix(k, ".") && !strings.Contains(k, "..") {
		valid := true
		for _, r := range k {
			if !validKeyRune(r) {
				valid = false
				break
			}
		}
		if valid {
			return k
		}
	}
	return "x" + hex.EncodeToString([]byte(k))
}

func validKeyRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '-' || r == '_' || r == '=' || r == '.':
		return true
	}
	return false
}
