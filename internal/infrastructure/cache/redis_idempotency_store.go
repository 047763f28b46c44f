package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/paycore/backend/internal/domain/shared"
	"github.com/redis/go-redis/v9"
)

const defaultIdempotencyPrefix = "paycore:idempotency:"

// RedisIdempotencyStore implements IdempotencyStore on Redis keys with a TTL,
// so every instance of the service shares the processed set
type RedisIdempotencyStore struct {
	client    redis.UniversalClient
	keyPrefix string
}

// NewRedisIdempotencyStore creates a store on an existing client. The
// client is owned by the caller; Close does not close it.
func NewRedisIdempotencyStore(client redis.UniversalClient, keyPrefix string) *RedisIdempotencyStore {
	if keyPrefix == "" {
		keyPrefix = defaultIdempotencyPrefix
	}
	return &RedisIdempotencyStore{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// MarkProcessed sets the key only if absent (SET NX with expiry).
// Returns true if the id was newly marked.
func (s *RedisIdempotencyStore) MarkProcessed(ctx context.Context, id string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, s.keyPrefix+id, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark %s as processed: %w", id, err)
	}
	return ok, nil
}

// IsProcessed checks if an id has already been processed
func (s *RedisIdempotencyStore) IsProcessed(ctx context.Context, id string) (bool, error) {
	exists, err := s.client.Exists(ctx, s.keyPrefix+id).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check %s: %w", id, err)
	}
	return exists > 0, nil
}

// Forget deletes the mark
func (s *RedisIdempotencyStore) Forget(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, s.keyPrefix+id).Err(); err != nil {
		return fmt.Errorf("failed to forget %s: %w", id, err)
	}
	return nil
}

// Close is a no-op; the shared client is closed by its owner
func (s *RedisIdempotencyStore) Close() error {
	return nil
}

var _ shared.IdempotencyStore = (*RedisIdempotencyStore)(nil)
