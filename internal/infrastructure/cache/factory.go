package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/paycore/backend/internal/domain/shared"
	"github.com/paycore/backend/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Stores bundles the coordination backends shared by the application
// services and event handlers
type Stores struct {
	Idempotency shared.IdempotencyStore
	Locker      shared.AggregateLocker
	Backend     string

	client *redis.Client
}

// Close releases the stores and the Redis client, if any
func (s *Stores) Close() error {
	if err := s.Idempotency.Close(); err != nil {
		return err
	}
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// StoreFactory creates coordination stores based on configuration
type StoreFactory struct {
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// StoreFactoryOption is a functional option for configuring the factory
type StoreFactoryOption func(*StoreFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) StoreFactoryOption {
	return func(f *StoreFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether an unreachable Redis falls back to
// in-process stores. Default is true.
func WithInMemoryFallback(allow bool) StoreFactoryOption {
	return func(f *StoreFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewStoreFactory creates a new factory
func NewStoreFactory(cfg config.RedisConfig, opts ...StoreFactoryOption) *StoreFactory {
	f := &StoreFactory{
		redisConfig:           cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreateInMemoryStores returns process-local stores
func (f *StoreFactory) CreateInMemoryStores() *Stores {
	return &Stores{
		Idempotency: NewInMemoryIdempotencyStore(5 * time.Minute),
		Locker:      NewInMemoryAggregateLocker(),
		Backend:     "memory",
	}
}

// CreateStores uses Redis when it is enabled and reachable, otherwise falls
// back to in-memory stores if allowed
func (f *StoreFactory) CreateStores(ctx context.Context) (*Stores, error) {
	if !f.redisConfig.Enabled {
		f.logger.Info("redis disabled, using in-memory idempotency store and locks")
		return f.CreateInMemoryStores(), nil
	}

	client, err := NewRedisClient(ctx, f.redisConfig)
	if err == nil {
		f.logger.Info("using Redis idempotency store and locks", zap.String("addr", f.redisConfig.Addr()))
		return &Stores{
			Idempotency: NewRedisIdempotencyStore(client, f.redisConfig.KeyPrefix+"idempotency:"),
			Locker:      NewRedisAggregateLocker(client, f.redisConfig.KeyPrefix),
			Backend:     "redis",
			client:      client,
		}, nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("redis required but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory stores. "+
		"Duplicate processing and concurrent writers are possible across instances.",
		zap.Error(err),
	)
	return f.CreateInMemoryStores(), nil
}
