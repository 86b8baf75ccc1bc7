// Package provider defines the storage abstraction used by datacache.
//
// Implementations MUST be byte-for-byte transparent: Get must return exactly
// the same []byte that was previously passed to Set for a key (no
// prepended/appended metadata, no re-encoding, no mutation). If a store
// performs internal transforms (e.g., compression), they MUST be fully
// reversed so that the bytes returned by Get are identical to the bytes
// provided to Set.
package provider

import (
	"context"
	"time"
)

// Provider is a minimal byte store with TTLs. Must be safe for concurrent
// use.
type Provider interface {
	// Get returns (value, true, nil) on hit; (nil, false, nil) on miss.
	// A miss is a defined negative result, never an error. Expired entries
	// are misses even when still physically present.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value with the given TTL. ttl <= 0 defers to the store's
	// own default (or no expiry when it has none). Returns ok=false when
	// the store rejected the write under pressure.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) (ok bool, err error)

	// Del removes a key. Deleting a missing key is a silent no-op.
	Del(ctx context.Context, key string) error

	// Flush removes every entry.
	Flush(ctx context.Context) error

	// Close releases resources.
	Close(ctx context.Context) error
}

// Stats is a point-in-time snapshot of a store. Keys may include entries
// that are physically present but logically expired; expiration is lazy.
type Stats struct {
	Size    int
	MaxSize int
	Keys    []string
}

// StatsProvider is an optional capability: stores that can enumerate their
// keys implement it. Wildcard invalidation requires it and degrades to a
// no-op without it.
type StatsProvider interface {
	Stats(ctx context.Context) (Stats, error)
}

// Sweeper is an optional capability: an explicit sweep that deletes every
// expired entry and reports how many were removed. Never invoked
// automatically; callers may schedule it.
type Sweeper interface {
	Cleanup(ctx context.Context) (int, error)
}
