package billing

import (
	"context"
	"errors"
	"time"

	"github.com/paycore/backend/internal/domain/shared"
	"go.uber.org/zap"
)

const (
	defaultMaxAttempts = 3
	defaultLockTTL     = 10 * time.Second
)

// ConflictRecorder is notified every time a save loses an optimistic
// concurrency race
type ConflictRecorder interface {
	RecordConflict(ctx context.Context, aggregateType string)
}

// MutationOptions controls how services serialize writers of one aggregate
type MutationOptions struct {
	// Locker is optional. Without it concurrent writers are resolved by the
	// version check alone.
	Locker shared.AggregateLocker
	// LockTTL is the lock lease. Default: 10s
	LockTTL time.Duration
	// MaxAttempts bounds load-mutate-save attempts on CONCURRENCY_CONFLICT.
	// Default: 3
	MaxAttempts int
	// Conflicts is optional
	Conflicts ConflictRecorder
}

// mutationRunner runs one load-mutate-save unit of work under the aggregate
// lock and retries it from the load when another writer got there first
type mutationRunner struct {
	locker      shared.AggregateLocker
	lockTTL     time.Duration
	maxAttempts int
	conflicts   ConflictRecorder
	logger      *zap.Logger
}

func newMutationRunner(opts MutationOptions, logger *zap.Logger) *mutationRunner {
	r := &mutationRunner{
		locker:      opts.Locker,
		lockTTL:     opts.LockTTL,
		maxAttempts: opts.MaxAttempts,
		conflicts:   opts.Conflicts,
		logger:      logger,
	}
	if r.lockTTL <= 0 {
		r.lockTTL = defaultLockTTL
	}
	if r.maxAttempts <= 0 {
		r.maxAttempts = defaultMaxAttempts
	}
	return r
}

// run calls unit until it succeeds, fails with anything other than a
// concurrency conflict, or the attempts are used up. unit must reload the
// aggregate on every call.
func (r *mutationRunner) run(ctx context.Context, aggregateType, aggregateID string, unit func(ctx context.Context) error) error {
	if r.locker != nil {
		release, err := r.locker.Acquire(ctx, aggregateType+":"+aggregateID, r.lockTTL)
		if err != nil {
			return err
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				r.logger.Warn("Failed to release aggregate lock",
					zap.String("aggregate_type", aggregateType),
					zap.String("aggregate_id", aggregateID),
					zap.Error(err))
			}
		}()
	}

	var err error
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		err = unit(ctx)
		if err == nil || !errors.Is(err, shared.ErrConcurrencyConflict) {
			return err
		}
		if r.conflicts != nil {
			r.conflicts.RecordConflict(ctx, aggregateType)
		}
		r.logger.Debug("Concurrency conflict, retrying",
			zap.String("aggregate_type", aggregateType),
			zap.String("aggregate_id", aggregateID),
			zap.Int("attempt", attempt))
	}
	return err
}
