package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/paycore/backend/internal/application/billing"
	"github.com/paycore/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeRenewalRunner struct {
	mu    sync.Mutex
	calls []time.Time
	block chan struct{}
	err   error
}

func (f *fakeRenewalRunner) RunDue(ctx context.Context, asOf time.Time) (*billing.RenewalRunResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, asOf)
	block := f.block
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &billing.RenewalRunResult{AsOf: asOf}, nil
}

func (f *fakeRenewalRunner) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func TestRenewalSchedulerConfig_Validate(t *testing.T) {
	assert.NoError(t, DefaultRenewalSchedulerConfig().Validate())
	assert.NoError(t, RenewalSchedulerConfig{Enabled: false}.Validate())

	err := RenewalSchedulerConfig{Enabled: true, RunTimeout: time.Second}.Validate()
	assert.ErrorIs(t, err, ErrInvalidConfig)

	err = RenewalSchedulerConfig{Enabled: true, Interval: time.Second}.Validate()
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestRenewalScheduler_RunsOnStartAndOnTick(t *testing.T) {
	now := time.Date(2024, 6, 9, 1, 0, 0, 0, time.UTC)
	runner := &fakeRenewalRunner{}
	s := NewRenewalScheduler(runner, shared.NewFixedClock(now), zap.NewNop(), RenewalSchedulerConfig{
		Enabled:    true,
		Interval:   20 * time.Millisecond,
		RunTimeout: time.Second,
		RunOnStart: true,
	})

	require.NoError(t, s.Start(context.Background()))
	assert.True(t, s.IsRunning())

	assert.Eventually(t, func() bool { return runner.callCount() >= 3 }, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	assert.False(t, s.IsRunning())

	runner.mu.Lock()
	assert.Equal(t, now, runner.calls[0], "the clock supplies as-of")
	runner.mu.Unlock()
}

func TestRenewalScheduler_Disabled(t *testing.T) {
	runner := &fakeRenewalRunner{}
	s := NewRenewalScheduler(runner, nil, nil, RenewalSchedulerConfig{Enabled: false})

	require.NoError(t, s.Start(context.Background()))
	assert.False(t, s.IsRunning())
	assert.ErrorIs(t, s.TriggerImmediateRun(context.Background()), ErrSchedulerNotRunning)
	assert.NoError(t, s.Stop(context.Background()))
}

func TestRenewalScheduler_StartRejectsInvalidConfig(t *testing.T) {
	s := NewRenewalScheduler(&fakeRenewalRunner{}, nil, nil, RenewalSchedulerConfig{Enabled: true})
	assert.ErrorIs(t, s.Start(context.Background()), ErrInvalidConfig)
	assert.False(t, s.IsRunning())
}

func TestRenewalScheduler_TriggerWhileRunIsInFlight(t *testing.T) {
	runner := &fakeRenewalRunner{block: make(chan struct{})}
	s := NewRenewalScheduler(runner, nil, nil, RenewalSchedulerConfig{
		Enabled:    true,
		Interval:   time.Hour,
		RunTimeout: time.Second,
	})
	require.NoError(t, s.Start(context.Background()))

	require.NoError(t, s.TriggerImmediateRun(context.Background()))
	assert.Eventually(t, func() bool { return runner.callCount() == 1 }, time.Second, 5*time.Millisecond)
	assert.ErrorIs(t, s.TriggerImmediateRun(context.Background()), ErrRunInProgress)

	close(runner.block)
	assert.Eventually(t, func() bool { return s.TriggerImmediateRun(context.Background()) == nil }, time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool { return runner.callCount() == 2 }, time.Second, 5*time.Millisecond)

	require.NoError(t, s.Stop(context.Background()))
}

func TestRenewalScheduler_FailedRunKeepsLooping(t *testing.T) {
	runner := &fakeRenewalRunner{err: errors.New("db down")}
	s := NewRenewalScheduler(runner, nil, nil, RenewalSchedulerConfig{
		Enabled:    true,
		Interval:   10 * time.Millisecond,
		RunTimeout: time.Second,
	})
	require.NoError(t, s.Start(context.Background()))

	assert.Eventually(t, func() bool { return runner.callCount() >= 2 }, time.Second, 5*time.Millisecond)
	require.NoError(t, s.Stop(context.Background()))
}
