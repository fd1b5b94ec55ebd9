// Package cache provides the byte-level cache used for registry metadata.
//
// Three backends implement [Cache]:
//   - [FileCache]: one JSON file per entry under the user cache directory (CLI default)
//   - [RedisCache]: a shared Redis instance, useful when several machines or
//     CI runners install from the same registry
//   - [NullCache]: caching disabled (--no-cache, tests)
//
// Keys are opaque strings; use [Scoped] to namespace them and [Hash] to
// derive fixed-length keys from arbitrary input.
package cache

import (
	"context"
	"time"
)

// Cache stores opaque byte payloads with an optional time-to-live.
// Implementations must be safe for concurrent use; the dependency resolver
// reads and writes the cache from many goroutines.
type Cache interface {
	// Get returns the payload for key. A miss is (nil, false, nil).
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores data under key. A ttl of 0 means no expiration.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Close releases backend resources.
	Close() error
}
