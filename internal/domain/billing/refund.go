package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/paycore/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// RefundRecord is the read-side record of one accepted refund. It is built
// from a PaymentRefundedEvent and shares that event's id, so recording the
// same event twice yields the same record.
type RefundRecord struct {
	shared.BaseEntity
	PaymentID PaymentID
	Amount    decimal.Decimal
}

// NewRefundRecordFromEvent creates the record for a refund event
func NewRefundRecordFromEvent(e *PaymentRefundedEvent) *RefundRecord {
	return &RefundRecord{
		BaseEntity: shared.NewBaseEntityWithID(e.EventID(), e.OccurredAt()),
		PaymentID:  e.PaymentID,
		Amount:     e.Amount,
	}
}

// NewRefundRecord creates a record with explicit values
func NewRefundRecord(id uuid.UUID, paymentID PaymentID, amount decimal.Decimal, at time.Time) *RefundRecord {
	return &RefundRecord{
		BaseEntity: shared.NewBaseEntityWithID(id, at),
		PaymentID:  paymentID,
		Amount:     amount,
	}
}
