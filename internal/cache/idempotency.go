package cache

import (
	"context"
	"sync"
	"time"
)

// IdempotencyCache suppresses duplicate confirmations of an identical
// suggestion set inside a short window. Acquire reports true when the key
// was free and is now held for ttl.
type IdempotencyCache interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// MemoryCache is the default single-process implementation: a time-windowed
// map owned by the calling service, not a package-level global.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]time.Time),
		now:     time.Now,
	}
}

func (c *MemoryCache) Acquire(_ context.Context, key string, ttl time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if expiry, ok := c.entries[key]; ok && now.Before(expiry) {
		return false, nil
	}
	c.entries[key] = now.Add(ttl)
	return true, nil
}

// Cleanup drops expired entries and returns how many were removed.
func (c *MemoryCache) Cleanup() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for key, expiry := range c.entries {
		if !now.Before(expiry) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}
