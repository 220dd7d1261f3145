// Package cache stores rendered artifacts so that re-evaluating an unchanged
// snippet skips Graphviz.
//
// # Backends
//
//   - [FileCache]: one file per entry under a directory, for the CLI
//   - [RedisCache]: a shared Redis instance, for playground servers
//   - [NewNullCache]: stores nothing, for --no-cache
//
// # Keys
//
// Keys are derived from the DOT source rather than the snippet: two snippets
// that build the same graph share artifacts. Use a [Keyer] to build them:
//
//	key := cache.HashKeyer{}.ArtifactKey(cache.Hash([]byte(src)), cache.ArtifactKeyOpts{Format: "svg"})
package cache

import (
	"context"
	"time"
)

// Cache is a byte store with optional expiry. Implementations must be safe for
// concurrent use.
type Cache interface {
	// Get returns the value for key. A miss is reported with ok == false and
	// a nil error.
	Get(ctx context.Context, key string) (data []byte, ok bool, err error)

	// Set stores data under key. A ttl of zero means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases the backend's resources.
	Close() error
}

// Clearer is implemented by caches that can drop every entry they own.
type Clearer interface {
	Clear(ctx context.Context) error
}

// TTLArtifact is the default lifetime of a rendered artifact. Artifacts are
// keyed by content, so they never go stale; the TTL only bounds disk use.
const TTLArtifact = 7 * 24 * time.Hour
