package ports

import (
	"context"
	"time"
)

// Cache defines the interface for short-lived document caching, used by the
// persistence middleware to serve repeated reads without touching the store.
type Cache interface {
	// Get retrieves a cached value.
	// Returns domain.ErrCacheMiss if the key is absent or expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value under key for the given TTL. A zero TTL means the
	// entry does not expire.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases the cache connection.
	Close() error
}
