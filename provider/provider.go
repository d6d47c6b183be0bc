// Package provider defines the byte store behind blockstore.Store.
//
// Implementations MUST be byte-for-byte transparent: Get must return exactly the
// same []byte that was previously passed to Set for a key (no prepended/appended
// metadata, no re-encoding, no mutation). If a store performs internal transforms
// (e.g., compression), they MUST be fully reversed so that the bytes returned by
// Get are identical to the bytes provided to Set. The blockstore re-hashes every
// read, so a store that breaks this loses entries rather than serving bad data.
//
// Keys under "<namespace>:" belong to the blockstore using that namespace and
// carry a CID after the colon. Foreign writes there are treated as corrupt
// blocks and deleted.
package provider

import (
	"context"
	"time"
)

// Provider is a minimal byte store with TTLs. Must be safe for concurrent use.
type Provider interface {
	// Get returns (value, true, nil) on hit; (nil, false, nil) on miss.
	// If an IO/remote error happens, return (nil, false, err).
	// Callers must not modify the returned slice.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value with the given TTL (0 = no expiry). May ignore cost
	// and ttl if unsupported. Returns ok=false when the store rejected the
	// write under pressure. Set takes ownership of value.
	Set(ctx context.Context, key string, value []byte, cost int64, ttl time.Duration) (ok bool, err error)

	// Del removes a key (best-effort).
	Del(ctx context.Context, key string) error

	// Close releases resources.
	Close(ctx context.Context) error
}
