package cache

import (
	"context"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// DefaultMaxEntries bounds a MemoryCache created with a non-positive size.
const DefaultMaxEntries = 1024

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// MemoryCache is an in-process Store for single-instance deployments,
// backed by a size-bounded LRU. The LRU sweeps anything older than MaxTTL;
// shorter per-key TTLs are checked on read. When full, the least recently
// used entry is evicted.
type MemoryCache struct {
	lru    *expirable.LRU[string, memoryEntry]
	ttl    time.Duration
	maxTTL time.Duration
	now    func() time.Time
}

func NewMemoryCache(maxEntries int, defaultTTL time.Duration) *MemoryCache {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &MemoryCache{
		lru:    expirable.NewLRU[string, memoryEntry](maxEntries, nil, MaxTTL),
		ttl:    boundTTL(defaultTTL, MaxTTL, MaxTTL),
		maxTTL: MaxTTL,
		now:    time.Now,
	}
}

func (c *MemoryCache) GetBytes(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	e, ok := c.lru.Get(key)
	if !ok {
		return nil, false, nil
	}
	if !c.now().Before(e.expiresAt) {
		c.lru.Remove(key)
		return nil, false, nil
	}
	out := make([]byte, len(e.data))
	copy(out, e.data)
	return out, true, nil
}

func (c *MemoryCache) SetBytes(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	buf := make([]byte, len(data))
	copy(buf, data)
	c.lru.Add(key, memoryEntry{
		data:      buf,
		expiresAt: c.now().Add(boundTTL(ttl, c.ttl, c.maxTTL)),
	})
	return nil
}

func (c *MemoryCache) Delete(ctx context.Context, keys ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, k := range keys {
		c.lru.Remove(k)
	}
	return nil
}

// DeletePrefix removes every key starting with prefix.
func (c *MemoryCache) DeletePrefix(ctx context.Context, prefix string) error {
	for _, k := range c.lru.Keys() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if strings.HasPrefix(k, prefix) {
			c.lru.Remove(k)
		}
	}
	return nil
}

// Len returns the number of stored entries, including ones whose per-key
// TTL has passed but that have not been read since.
func (c *MemoryCache) Len() int {
	return c.lru.Len()
}
