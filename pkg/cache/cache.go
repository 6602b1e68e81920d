// Package cache provides a byte-level cache used by the persistence
// service as a read-through layer in front of the automation store.
//
// Implementations:
//   - memory: in-process map for development and tests
//   - redis: shared cache for multi-instance deployments
//   - null: disables caching entirely
package cache

import (
	"context"
	"time"
)

// Cache stores serialized values under string keys with a TTL.
type Cache interface {
	// Get retrieves a value. The boolean reports a hit; a miss is not an
	// error.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value. A zero TTL means no expiration.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a value. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases any resources held by the cache.
	Close() error
}

// AutomationKey returns the cache key for one automation's serialized
// form.
func AutomationKey(id string) string {
	return "automation:" + id
}
