package memory

import (
	"context"
	"sync"
	"time"

	"github.com/aretw0/graft/pkg/domain"
)

type cacheEntry struct {
	value     []byte
	expiresAt time.Time
}

// Cache implements ports.Cache in memory. Entries expire lazily on read.
// Safe for concurrent use.
type Cache struct {
	entries map[string]cacheEntry
	mu      sync.Mutex
}

// NewCache creates a new in-memory cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]cacheEntry)}
}

// Get retrieves a cached value, expiring it first when its TTL has passed.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, domain.ErrCacheMiss
	}
	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		delete(c.entries, key)
		return nil, domain.ErrCacheMiss
	}

	out := make([]byte, len(entry.value))
	copy(out, entry.value)
	return out, nil
}

// Set stores a value. A zero ttl pins the entry.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	entry := cacheEntry{value: make([]byte, len(value))}
	copy(entry.value, value)
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry
	return nil
}

// Delete removes a key.
func (c *Cache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

// Close is a no-op.
func (c *Cache) Close() error { return nil }
