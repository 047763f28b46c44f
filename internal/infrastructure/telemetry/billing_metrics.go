// Package telemetry provides OpenTelemetry integration for metrics collection.
package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/paycore/backend/internal/domain/billing"
	"github.com/paycore/backend/internal/domain/shared"
	"github.com/paycore/backend/internal/domain/shared/valueobject"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// BillingMetrics tracks payment and subscription activity, refund volume,
// outbox delivery and the outbox backlog.
type BillingMetrics struct {
	meter  metric.Meter
	logger *zap.Logger

	// Counter metrics
	domainEventsTotal   *Counter
	refundAmountTotal   *Counter
	conflictTotal       *Counter
	outboxDeliveryTotal *Counter
	outboxDeadTotal     *Counter

	renewalRunDuration *Histogram

	// Gauge metrics
	outboxBacklog *Gauge

	stopChan    chan struct{}
	stopOnce    sync.Once
	collectOnce sync.Once

	backlogProvider OutboxBacklogProvider
}

// OutboxBacklogProvider reports outbox entry counts per status.
// shared.OutboxRepository satisfies it.
type OutboxBacklogProvider interface {
	CountByStatus(ctx context.Context) (map[shared.OutboxStatus]int64, error)
}

// BillingMetricsConfig holds configuration for billing metrics.
type BillingMetricsConfig struct {
	Meter           metric.Meter
	Logger          *zap.Logger
	BacklogProvider OutboxBacklogProvider
}

// NewBillingMetrics creates a new BillingMetrics instance.
func NewBillingMetrics(cfg BillingMetricsConfig) (*BillingMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	bm := &BillingMetrics{
		meter:           cfg.Meter,
		logger:          logger,
		stopChan:        make(chan struct{}),
		backlogProvider: cfg.BacklogProvider,
	}

	var err error

	bm.domainEventsTotal, err = NewCounter(cfg.Meter,
		"paycore_domain_events_total",
		"Total number of billing domain events observed on the bus",
		"{events}",
	)
	if err != nil {
		return nil, err
	}

	bm.refundAmountTotal, err = NewCounter(cfg.Meter,
		"paycore_refund_amount_total",
		"Total refunded amount in ten-thousandths of the currency unit, the finest stored precision",
		"{0.0001}",
	)
	if err != nil {
		return nil, err
	}

	bm.conflictTotal, err = NewCounter(cfg.Meter,
		"paycore_concurrency_conflict_total",
		"Number of aggregate saves rejected by the version check",
		"{conflicts}",
	)
	if err != nil {
		return nil, err
	}

	bm.outboxDeliveryTotal, err = NewCounter(cfg.Meter,
		"paycore_outbox_delivery_total",
		"Outbox delivery attempts by outcome",
		"{attempts}",
	)
	if err != nil {
		return nil, err
	}

	bm.outboxDeadTotal, err = NewCounter(cfg.Meter,
		"paycore_outbox_dead_letter_total",
		"Outbox entries that exhausted their retries",
		"{entries}",
	)
	if err != nil {
		return nil, err
	}

	bm.renewalRunDuration, err = NewHistogram(cfg.Meter, HistogramOpts{
		Name:        "paycore_renewal_run_duration_seconds",
		Description: "Duration of one renewal sweep",
		Unit:        "s",
		Boundaries:  JobDurationBuckets,
	})
	if err != nil {
		return nil, err
	}

	bm.outboxBacklog, err = NewGauge(cfg.Meter,
		"paycore_outbox_entries",
		"Current number of outbox entries per status",
		"{entries}",
	)
	if err != nil {
		return nil, err
	}

	return bm, nil
}

// =============================================================================
// Domain Event Metrics
// =============================================================================

// Handle counts every event delivered to it. Refunds also add their amount.
func (bm *BillingMetrics) Handle(ctx context.Context, event shared.DomainEvent) error {
	bm.domainEventsTotal.Inc(ctx,
		AttrEventType.String(event.EventType()),
		AttrAggregateType.String(event.AggregateType()),
	)

	if refunded, ok := event.(*billing.PaymentRefundedEvent); ok {
		bm.refundAmountTotal.Add(ctx, refunded.Amount.Shift(valueobject.MaxAmountScale).Round(0).IntPart())
	}
	return nil
}

// EventTypes subscribes to every event.
func (bm *BillingMetrics) EventTypes() []string {
	return nil
}

// RecordConflict counts a rejected save of the given aggregate type.
func (bm *BillingMetrics) RecordConflict(ctx context.Context, aggregateType string) {
	bm.conflictTotal.Inc(ctx, AttrAggregateType.String(aggregateType))
}

// RecordRenewalRun records one renewal sweep and how many subscriptions it
// renewed or failed.
func (bm *BillingMetrics) RecordRenewalRun(ctx context.Context, d time.Duration, renewed, failed int) {
	bm.renewalRunDuration.RecordDuration(ctx, d,
		AttrRenewed.Int(renewed),
		AttrFailed.Int(failed),
	)
}

// =============================================================================
// Outbox Metrics
// =============================================================================

// RecordOutboxDelivery counts one delivery attempt.
func (bm *BillingMetrics) RecordOutboxDelivery(ctx context.Context, eventType string, err error) {
	outcome := "sent"
	if err != nil {
		outcome = "failed"
	}
	bm.outboxDeliveryTotal.Inc(ctx,
		AttrEventType.String(eventType),
		AttrOutcome.String(outcome),
	)
}

// RecordOutboxDeadLetter counts an entry that moved to DEAD.
func (bm *BillingMetrics) RecordOutboxDeadLetter(ctx context.Context, eventType string) {
	bm.outboxDeadTotal.Inc(ctx, AttrEventType.String(eventType))
}

// StartPeriodicCollection samples the outbox backlog every interval until
// Stop is called or ctx is done. Non-blocking.
func (bm *BillingMetrics) StartPeriodicCollection(ctx context.Context, interval time.Duration) {
	bm.collectOnce.Do(func() {
		if interval <= 0 {
			interval = time.Minute
		}
		go bm.runPeriodicCollection(ctx, interval)
	})
}

func (bm *BillingMetrics) runPeriodicCollection(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	bm.CollectBacklog(ctx)

	for {
		select {
		case <-bm.stopChan:
			bm.logger.Info("Stopping periodic billing metrics collection")
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			bm.CollectBacklog(ctx)
		}
	}
}

// CollectBacklog records the current outbox counts once.
func (bm *BillingMetrics) CollectBacklog(ctx context.Context) {
	if bm.backlogProvider == nil {
		bm.logger.Debug("No outbox backlog provider configured, skipping collection")
		return
	}

	counts, err := bm.backlogProvider.CountByStatus(ctx)
	if err != nil {
		bm.logger.Warn("Failed to count outbox entries", zap.Error(err))
		return
	}
	for _, status := range []shared.OutboxStatus{
		shared.OutboxStatusPending,
		shared.OutboxStatusProcessing,
		shared.OutboxStatusSent,
		shared.OutboxStatusFailed,
		shared.OutboxStatusDead,
	} {
		bm.outboxBacklog.Record(ctx, counts[status], AttrOutboxStatus.String(string(status)))
	}
}

// Stop stops the periodic collection.
func (bm *BillingMetrics) Stop() {
	bm.stopOnce.Do(func() {
		close(bm.stopChan)
	})
}

// =============================================================================
// Error Types
// =============================================================================

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewBillingMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}

var _ shared.EventHandler = (*BillingMetrics)(nil)
