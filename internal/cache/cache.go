// Package cache defines the key-value cache used in front of the song store.
// Implementations may use in-memory maps, Redis (including ElastiCache with
// IAM auth), or a two-level combination of both. Values are opaque byte
// slices; encoding is left to the caller.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a key does not exist in the cache.
var ErrNotFound = errors.New("cache: key not found")

// Cache abstracts a string-keyed cache. Any error other than ErrNotFound
// from Get means the cache itself could not be reached or queried.
// All operations are safe for concurrent use.
type Cache interface {
	// Get retrieves the value associated with key.
	// Returns ErrNotFound if the key does not exist or has expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value, overwriting any previous one. A zero TTL means
	// the entry does not expire (or uses the implementation's default
	// expiration).
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Ping verifies connectivity to the underlying cache backend.
	Ping(ctx context.Context) error

	// Close releases all resources held by the cache implementation.
	Close() error
}
