package driven

import (
	"context"
	"time"
)

// CacheBackend stores opaque values under string keys with expiry.
// Implementations must be safe for concurrent use: the Redis backend relies
// on server-side synchronization, the in-memory backend on a coarse lock.
//
// Backend failures are never fatal for a query; callers log and fall back
// to a fresh computation.
type CacheBackend interface {
	// Get returns the value for key, or domain.ErrCacheMiss when the key
	// is absent or expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key for the given time-to-live.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Clear removes all entries.
	Clear(ctx context.Context) error
}
