package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers keys (event IDs, Idempotency-Key headers) for a TTL
type IdempotencyStore interface {
	// MarkProcessed reserves key for ttl.
	// Returns true if the key was newly reserved, false if it was already present
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// IsProcessed checks if a key is currently reserved
	IsProcessed(ctx context.Context, key string) (bool, error)

	// Release drops a reservation so the key can be used again
	Release(ctx context.Context, key string) error

	// Close closes the store and releases resources
	Close() error
}

// IdempotencyConfig holds configuration for idempotency handling
type IdempotencyConfig struct {
	// TTL is how long a key stays reserved. Default: 24 hours
	TTL time.Duration

	// Enabled determines whether idempotency checking is enabled
	Enabled bool
}

// DefaultIdempotencyConfig returns the default idempotency configuration
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		TTL:     24 * time.Hour,
		Enabled: true,
	}
}
