package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/paycore/backend/internal/domain/billing"
	"github.com/paycore/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// RefundRecordModel is the persistence model for refund records. The primary
// key is the id of the PaymentRefunded event the record was built from.
type RefundRecordModel struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey"`
	PaymentID string          `gorm:"type:varchar(40);not null;index:idx_refund_records_payment"`
	Amount    decimal.Decimal `gorm:"type:decimal(20,4);not null"`
	CreatedAt time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (RefundRecordModel) TableName() string {
	return "refund_records"
}

// RefundRecordModelFromDomain builds a row from a refund record
func RefundRecordModelFromDomain(r *billing.RefundRecord) *RefundRecordModel {
	return &RefundRecordModel{
		ID:        r.ID,
		PaymentID: r.PaymentID.String(),
		Amount:    r.Amount,
		CreatedAt: r.CreatedAt,
	}
}

// ToDomain converts the row to a refund record
func (m *RefundRecordModel) ToDomain() *billing.RefundRecord {
	return &billing.RefundRecord{
		BaseEntity: shared.NewBaseEntityWithID(m.ID, m.CreatedAt),
		PaymentID:  billing.PaymentID(m.PaymentID),
		Amount:     m.Amount,
	}
}
