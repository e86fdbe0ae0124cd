// Package cache stores resolution results between runs.
//
// Resolving a large graph is the expensive part of every command, and the
// outcome only depends on the graph document and the strategy. Results are
// therefore cached under a key derived from both:
//
//	key := cache.NewDefaultKeyer().ResolveKey(cache.Hash(doc), "hybrid")
//	data, hit, err := c.Get(ctx, key)
//
// # Backends
//
//   - [NullCache] never stores anything (--no-cache).
//   - [FileCache] keeps one JSON file per entry under the user cache
//     directory. This is the CLI default.
//   - [RedisCache] shares entries between server replicas.
//
// [Instrumented] wraps any backend and reports hits, misses and writes to
// the registered [observability.CacheHooks].
package cache

import (
	"context"
	"time"
)

// Cache is a byte store with optional expiry.
type Cache interface {
	// Get returns the value for key. A missing or expired entry is a miss,
	// not an error.
	Get(ctx context.Context, key string) (data []byte, hit bool, err error)

	// Set stores data under key. A zero ttl never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases the backend.
	Close() error
}

// DefaultTTL is how long resolution results stay cached.
const DefaultTTL = 24 * time.Hour
