package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers processed message IDs (outbox events or
// provider callbacks) so redelivered messages are applied once
type IdempotencyStore interface {
	// MarkProcessed marks an ID as processed with a TTL.
	// Returns true if the ID was newly marked, false if it was already processed.
	MarkProcessed(ctx context.Context, id string, ttl time.Duration) (bool, error)

	// IsProcessed checks if an ID has already been processed
	IsProcessed(ctx context.Context, id string) (bool, error)

	// Forget removes the mark so a redelivered message is processed again
	Forget(ctx context.Context, id string) error

	// Close releases resources held by the store
	Close() error
}

// IdempotencyConfig holds configuration for idempotency handling
type IdempotencyConfig struct {
	// TTL is how long a processed ID is remembered. Default: 24 hours
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
