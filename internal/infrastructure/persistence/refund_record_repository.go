package persistence

import (
	"context"

	"github.com/paycore/backend/internal/domain/billing"
	"github.com/paycore/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormRefundRecordRepository implements billing.RefundRecordRepository using GORM
type GormRefundRecordRepository struct {
	db *gorm.DB
}

// NewGormRefundRecordRepository creates a new GormRefundRecordRepository
func NewGormRefundRecordRepository(db *gorm.DB) *GormRefundRecordRepository {
	return &GormRefundRecordRepository{db: db}
}

// Record inserts the record; a record with the same id is left untouched
func (r *GormRefundRecordRepository) Record(ctx context.Context, record *billing.RefundRecord) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(models.RefundRecordModelFromDomain(record)).Error
}

// ListByPayment returns the payment's refund records in the order they were accepted
func (r *GormRefundRecordRepository) ListByPayment(ctx context.Context, paymentID billing.PaymentID) ([]*billing.RefundRecord, error) {
	var rows []models.RefundRecordModel
	if err := r.db.WithContext(ctx).
		Where("payment_id = ?", paymentID.String()).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	records := make([]*billing.RefundRecord, len(rows))
	for i := range rows {
		records[i] = rows[i].ToDomain()
	}
	return records, nil
}

var _ billing.RefundRecordRepository = (*GormRefundRecordRepository)(nil)
