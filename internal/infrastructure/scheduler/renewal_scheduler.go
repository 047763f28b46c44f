package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/paycore/backend/internal/application/billing"
	"github.com/paycore/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// RenewalRunner runs one renewal pass
type RenewalRunner interface {
	RunDue(ctx context.Context, asOf time.Time) (*billing.RenewalRunResult, error)
}

// RenewalScheduler periodically renews subscriptions whose period has ended
type RenewalScheduler struct {
	runner    RenewalRunner
	clock     shared.Clock
	logger    *zap.Logger
	config    RenewalSchedulerConfig
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
	inFlight  atomic.Bool
}

// RenewalSchedulerConfig holds configuration for the renewal scheduler
type RenewalSchedulerConfig struct {
	// Enabled determines if the scheduler is active
	Enabled bool

	// Interval is the time between renewal passes
	Interval time.Duration

	// RunTimeout is the maximum time for a single pass
	RunTimeout time.Duration

	// RunOnStart runs a pass immediately instead of waiting one interval
	RunOnStart bool
}

// DefaultRenewalSchedulerConfig returns default configuration
func DefaultRenewalSchedulerConfig() RenewalSchedulerConfig {
	return RenewalSchedulerConfig{
		Enabled:    true,
		Interval:   time.Hour,
		RunTimeout: 10 * time.Minute,
		RunOnStart: true,
	}
}

// Validate checks the configuration
func (c RenewalSchedulerConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Interval <= 0 {
		return fmt.Errorf("%w: interval must be positive", ErrInvalidConfig)
	}
	if c.RunTimeout <= 0 {
		return fmt.Errorf("%w: run timeout must be positive", ErrInvalidConfig)
	}
	return nil
}

// NewRenewalScheduler creates a new renewal scheduler. A nil clock uses the
// system clock.
func NewRenewalScheduler(
	runner RenewalRunner,
	clock shared.Clock,
	logger *zap.Logger,
	config RenewalSchedulerConfig,
) *RenewalScheduler {
	if clock == nil {
		clock = shared.SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RenewalScheduler{
		runner: runner,
		clock:  clock,
		logger: logger,
		config: config,
	}
}

// Start starts the renewal loop
func (s *RenewalScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	if !s.config.Enabled {
		s.mu.Unlock()
		s.logger.Info("Renewal scheduler is disabled")
		return nil
	}
	if err := s.config.Validate(); err != nil {
		s.mu.Unlock()
		return err
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.runLoop(ctx)

	s.logger.Info("Renewal scheduler started",
		zap.Duration("interval", s.config.Interval),
		zap.Duration("run_timeout", s.config.RunTimeout),
		zap.Bool("run_on_start", s.config.RunOnStart),
	)
	return nil
}

// Stop gracefully stops the scheduler, waiting for an in-flight pass
func (s *RenewalScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Renewal scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Renewal scheduler stop timed out")
		return ctx.Err()
	}
}

func (s *RenewalScheduler) runLoop(ctx context.Context) {
	defer s.wg.Done()

	if s.config.RunOnStart {
		s.execute(ctx)
	}

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("Renewal loop stopping")
			return
		case <-ticker.C:
			s.execute(ctx)
		}
	}
}

// execute runs one pass unless another one is still executing
func (s *RenewalScheduler) execute(ctx context.Context) {
	if !s.inFlight.CompareAndSwap(false, true) {
		s.logger.Debug("Skipping renewal pass, previous pass still running")
		return
	}
	defer s.inFlight.Store(false)

	runCtx, cancel := context.WithTimeout(ctx, s.config.RunTimeout)
	defer cancel()

	asOf := s.clock.Now()
	startTime := time.Now()
	result, err := s.runner.RunDue(runCtx, asOf)
	duration := time.Since(startTime)

	if err != nil {
		s.logger.Error("Renewal pass failed",
			zap.Time("as_of", asOf),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return
	}

	s.logger.Debug("Renewal pass completed",
		zap.Time("as_of", asOf),
		zap.Duration("duration", duration),
		zap.Int("due", result.Due),
		zap.Int("renewed", result.Renewed),
		zap.Int("cancelled", result.Cancelled),
		zap.Int("failed", result.Failed),
	)
}

// TriggerImmediateRun runs a pass now, outside the regular interval
func (s *RenewalScheduler) TriggerImmediateRun(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return ErrSchedulerNotRunning
	}
	if s.inFlight.Load() {
		s.mu.Unlock()
		return ErrRunInProgress
	}
	s.wg.Add(1)
	s.mu.Unlock()

	s.logger.Info("Triggering immediate renewal pass")

	go func() {
		defer s.wg.Done()
		s.execute(ctx)
	}()
	return nil
}

// IsRunning returns whether the scheduler is running
func (s *RenewalScheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}
