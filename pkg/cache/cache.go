// Package cache stores rendered artifacts keyed by content hash.
//
// A render is a pure function of the zone set and the render options, so
// the pipeline hashes both and looks the result up before doing any work.
// Three backends implement [Cache]:
//
//   - [FileCache]: one file per entry under ~/.cache/zonemap (CLI default)
//   - [RedisCache]: shared cache for several `zonemap serve` instances
//   - [NullCache]: caching disabled
//
// Keys come from a [Keyer]; [ScopedKeyer] prefixes them so several
// deployments can share one Redis.
package cache

import (
	"context"
	"time"
)

// Cache is a byte store with per-entry TTL.
type Cache interface {
	// Get returns the entry for key. A miss is (nil, false, nil).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl of 0 means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// Clearer is implemented by caches that can drop every entry at once.
type Clearer interface {
	Clear(ctx context.Context) (int, error)
}
