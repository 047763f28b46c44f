package billing

import (
	"context"
	"time"

	"github.com/paycore/backend/internal/domain/billing"
	"github.com/paycore/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

const defaultRenewalBatchSize = 100

// RenewalRecorder receives the outcome of every renewal pass
type RenewalRecorder interface {
	RecordRenewalRun(ctx context.Context, d time.Duration, renewed, failed int)
}

// RenewalService is the period-end job. It renews active subscriptions whose
// current period has ended and turns a pending cancel-at-period-end into an
// immediate cancellation. Paused and cancelled subscriptions are skipped.
type RenewalService struct {
	subscriptions billing.SubscriptionRepository
	runner        *mutationRunner
	batchSize     int
	recorder      RenewalRecorder
	logger        *zap.Logger
}

// RenewalServiceConfig contains configuration for RenewalService
type RenewalServiceConfig struct {
	Subscriptions billing.SubscriptionRepository
	// BatchSize caps the subscriptions handled per pass. Default: 100
	BatchSize int
	Mutation  MutationOptions
	// Recorder is optional
	Recorder RenewalRecorder
	Logger   *zap.Logger
}

// NewRenewalService creates a new RenewalService
func NewRenewalService(cfg RenewalServiceConfig) *RenewalService {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = defaultRenewalBatchSize
	}
	return &RenewalService{
		subscriptions: cfg.Subscriptions,
		runner:        newMutationRunner(cfg.Mutation, logger),
		batchSize:     batch,
		recorder:      cfg.Recorder,
		logger:        logger,
	}
}

type renewalOutcome int

const (
	renewalSkipped renewalOutcome = iota
	renewalRenewed
	renewalCancelled
)

// RunDue renews every subscription due as of asOf, paging through the due
// set in batches with a keyset cursor so rows that keep failing never block
// the ones behind them. A subscription is advanced by a single period per
// pass; one that is several periods behind stays due and is picked up again
// by the next pass. Failures of individual subscriptions are logged and
// counted, not returned.
func (s *RenewalService) RunDue(ctx context.Context, asOf time.Time) (*RenewalRunResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "renewal", "run_due")
	defer span.End()

	start := time.Now()
	result := &RenewalRunResult{AsOf: asOf}
	seen := make(map[billing.SubscriptionID]struct{})
	var cursor billing.RenewalCursor

	for ctx.Err() == nil {
		batch, err := s.subscriptions.FindDueForRenewal(ctx, asOf, cursor, s.batchSize)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}

		for _, due := range batch {
			cursor = due.Next()
			if _, ok := seen[due.ID]; ok {
				continue
			}
			seen[due.ID] = struct{}{}
			result.Due++
			if ctx.Err() != nil {
				break
			}
			s.tally(ctx, result, due.ID, asOf)
		}

		if len(batch) < s.batchSize {
			break
		}
	}

	if s.recorder != nil {
		s.recorder.RecordRenewalRun(ctx, time.Since(start), result.Renewed+result.Cancelled, result.Failed)
	}
	telemetry.SetAttributes(span,
		"due", result.Due,
		"renewed", result.Renewed,
		"cancelled", result.Cancelled,
		"failed", result.Failed)
	if result.Due > 0 {
		s.logger.Info("Renewal pass completed",
			zap.Time("as_of", asOf),
			zap.Int("due", result.Due),
			zap.Int("renewed", result.Renewed),
			zap.Int("cancelled", result.Cancelled),
			zap.Int("skipped", result.Skipped),
			zap.Int("failed", result.Failed))
	}
	return result, ctx.Err()
}

func (s *RenewalService) tally(ctx context.Context, result *RenewalRunResult, id billing.SubscriptionID, asOf time.Time) {
	outcome, err := s.renewOne(ctx, id, asOf)
	if err != nil {
		result.Failed++
		s.logger.Error("Failed to renew subscription",
			zap.String("subscription_id", id.String()),
			zap.Error(err))
		return
	}
	switch outcome {
	case renewalRenewed:
		result.Renewed++
	case renewalCancelled:
		result.Cancelled++
	default:
		result.Skipped++
	}
}

// renewOne re-checks the subscription under the lock, since it may have been
// paused, cancelled or renewed after the due query ran
func (s *RenewalService) renewOne(ctx context.Context, id billing.SubscriptionID, asOf time.Time) (renewalOutcome, error) {
	var outcome renewalOutcome
	err := s.runner.run(ctx, billing.AggregateTypeSubscription, id.String(), func(ctx context.Context) error {
		outcome = renewalSkipped
		sub, version, err := s.subscriptions.Load(ctx, id)
		if err != nil {
			return err
		}
		if sub.Status() != billing.SubscriptionStatusActive || !sub.IsDueForRenewal(asOf) {
			return nil
		}
		if sub.CancelAtPeriodEnd() {
			sub.Cancel(false)
			outcome = renewalCancelled
		} else {
			sub.Renew()
			outcome = renewalRenewed
		}
		return s.subscriptions.Save(ctx, sub, version, sub.TakeEvents()...)
	})
	return outcome, err
}
