package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/paycore/backend/internal/domain/shared"
	"github.com/redis/go-redis/v9"
)

var errAlreadyReleased = errors.New("lock already released")

func lockNotAcquired(key string, cause error) error {
	return fmt.Errorf("%w: %v", shared.NewDomainError(shared.ErrLockNotAcquired.Code,
		fmt.Sprintf("Aggregate %s is locked by another writer", key)), cause)
}

// releaseScript deletes the lock only if it still holds our token, so an
// expired lock taken over by another writer is never released by us
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisAggregateLocker serializes writers of one aggregate across instances
// with a SET NX PX lock per aggregate id
type RedisAggregateLocker struct {
	client    redis.UniversalClient
	keyPrefix string
	retry     time.Duration
}

// NewRedisAggregateLocker creates a locker on an existing client
func NewRedisAggregateLocker(client redis.UniversalClient, keyPrefix string) *RedisAggregateLocker {
	return &RedisAggregateLocker{
		client:    client,
		keyPrefix: keyPrefix + "lock:",
		retry:     25 * time.Millisecond,
	}
}

// Acquire polls until the lock is set or ctx is done. The lock expires after
// ttl even if release is never called.
func (l *RedisAggregateLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, error) {
	redisKey := l.keyPrefix + key
	token := uuid.NewString()

	ticker := time.NewTicker(l.retry)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, ttl).Result()
		if err != nil && ctx.Err() == nil {
			return nil, fmt.Errorf("failed to acquire lock %s: %w", key, err)
		}
		if ok {
			var once sync.Once
			return func(ctx context.Context) error {
				err := errAlreadyReleased
				once.Do(func() {
					err = releaseScript.Run(ctx, l.client, []string{redisKey}, token).Err()
				})
				return err
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, lockNotAcquired(key, ctx.Err())
		case <-ticker.C:
		}
	}
}

// InMemoryAggregateLocker serializes writers of one aggregate inside a
// single process. ttl is ignored.
type InMemoryAggregateLocker struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	ch   chan struct{}
	refs int
}

// NewInMemoryAggregateLocker creates an in-process locker
func NewInMemoryAggregateLocker() *InMemoryAggregateLocker {
	return &InMemoryAggregateLocker{locks: make(map[string]*keyLock)}
}

// Acquire blocks until the key is free or ctx is done
func (l *InMemoryAggregateLocker) Acquire(ctx context.Context, key string, _ time.Duration) (func(context.Context) error, error) {
	l.mu.Lock()
	kl, ok := l.locks[key]
	if !ok {
		kl = &keyLock{ch: make(chan struct{}, 1)}
		l.locks[key] = kl
	}
	kl.refs++
	l.mu.Unlock()

	select {
	case kl.ch <- struct{}{}:
	case <-ctx.Done():
		l.unref(key, kl)
		return nil, lockNotAcquired(key, ctx.Err())
	}

	var once sync.Once
	return func(context.Context) error {
		err := errAlreadyReleased
		once.Do(func() {
			<-kl.ch
			l.unref(key, kl)
			err = nil
		})
		return err
	}, nil
}

func (l *InMemoryAggregateLocker) unref(key string, kl *keyLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	kl.refs--
	if kl.refs == 0 {
		delete(l.locks, key)
	}
}

var (
	_ shared.AggregateLocker = (*RedisAggregateLocker)(nil)
	_ shared.AggregateLocker = (*InMemoryAggregateLocker)(nil)
)
