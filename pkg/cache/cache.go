// Package cache provides response caching for registry lookups.
//
// The Cache interface abstracts over storage backends so the same client
// code works in different deployments:
//   - FileCache: local disk, for single-user CLI runs
//   - RedisCache: shared store for CI runners behind one endpoint
//   - MongoCache: TTL-indexed collection for fleet-wide result storage
//   - NullCache: no-op, for tests and --no-cache
//
// Values are opaque byte slices; callers JSON-encode what they store.
// Keys should be namespaced (e.g., "anaconda:conda-forge/numpy") to avoid
// collisions between data sources.
package cache

import (
	"context"
	"time"
)

// Cache is the storage interface shared by all backends.
// Implementations must be safe for concurrent use.
type Cache interface {
	// Get retrieves a value by key. The second return value reports
	// whether the key was present and unexpired.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value under key. A ttl of 0 means no expiration.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a value. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases any resources held by the backend.
	Close() error
}
