package billing

import (
	"context"
	"fmt"

	"github.com/paycore/backend/internal/domain/billing"
	"github.com/paycore/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// RefundProjection records one refund row per PaymentRefunded event
type RefundProjection struct {
	records billing.RefundRecordRepository
	logger  *zap.Logger
}

// NewRefundProjection creates a new RefundProjection
func NewRefundProjection(records billing.RefundRecordRepository, logger *zap.Logger) *RefundProjection {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RefundProjection{records: records, logger: logger}
}

// EventTypes returns the event types this handler is interested in
func (p *RefundProjection) EventTypes() []string {
	return []string{billing.EventTypePaymentRefunded}
}

// Handle stores the refund record. The record shares the event's id, so a
// redelivered event does not add a second row.
func (p *RefundProjection) Handle(ctx context.Context, event shared.DomainEvent) error {
	refunded, ok := event.(*billing.PaymentRefundedEvent)
	if !ok {
		p.logger.Warn("Unexpected event type for refund projection",
			zap.String("event_type", event.EventType()),
			zap.String("event_id", event.EventID().String()))
		return nil
	}

	if err := p.records.Record(ctx, billing.NewRefundRecordFromEvent(refunded)); err != nil {
		return fmt.Errorf("failed to record refund for payment %s: %w", refunded.PaymentID, err)
	}

	p.logger.Debug("Refund recorded",
		zap.String("payment_id", refunded.PaymentID.String()),
		zap.String("amount", refunded.Amount.String()),
		zap.String("event_id", refunded.EventID().String()))
	return nil
}

var _ shared.EventHandler = (*RefundProjection)(nil)
