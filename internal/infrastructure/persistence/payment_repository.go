package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/paycore/backend/internal/domain/billing"
	"github.com/paycore/backend/internal/domain/shared"
	"github.com/paycore/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormPaymentRepository implements billing.PaymentRepository using GORM
type GormPaymentRepository struct {
	db          *gorm.DB
	clock       shared.Clock
	outboxSaver shared.OutboxEventSaver
}

// NewGormPaymentRepository creates a new GormPaymentRepository. The clock is
// handed to rehydrated aggregates; nil means the system clock.
func NewGormPaymentRepository(db *gorm.DB, clock shared.Clock) *GormPaymentRepository {
	return &GormPaymentRepository{db: db, clock: clock}
}

// SetOutboxEventSaver sets the outbox event saver used to persist events in
// the same transaction as the payment
func (r *GormPaymentRepository) SetOutboxEventSaver(saver shared.OutboxEventSaver) {
	r.outboxSaver = saver
}

// Load finds a payment and its stored version
func (r *GormPaymentRepository) Load(ctx context.Context, id billing.PaymentID) (*billing.Payment, int, error) {
	var model models.PaymentModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id.String()).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, 0, notFound("payment", id.String())
		}
		return nil, 0, err
	}
	payment, err := model.ToDomain(r.clock)
	if err != nil {
		return nil, 0, err
	}
	return payment, model.Version, nil
}

// Save inserts the payment when expectedVersion is 0, otherwise updates it if
// the stored version still equals expectedVersion. Events go to the outbox in
// the same transaction.
func (r *GormPaymentRepository) Save(ctx context.Context, payment *billing.Payment, expectedVersion int, events ...billing.Event) error {
	model, err := models.PaymentModelFromSnapshot(payment.Snapshot())
	if err != nil {
		return err
	}
	if len(events) > 0 && r.outboxSaver == nil {
		return fmt.Errorf("payment %s: outbox event saver not configured", model.ID)
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if expectedVersion == 0 {
			model.Version = 1
			if err := tx.Create(model).Error; err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return versionConflict("payment", model.ID, expectedVersion)
				}
				return err
			}
		} else {
			columns := model.UpdateColumns()
			columns["version"] = expectedVersion + 1
			result := tx.Model(&models.PaymentModel{}).
				Where("id = ? AND version = ?", model.ID, expectedVersion).
				Updates(columns)
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return versionConflict("payment", model.ID, expectedVersion)
			}
		}

		if len(events) > 0 {
			if err := r.outboxSaver.SaveEvents(ctx, tx, billing.ToDomainEvents(events)...); err != nil {
				return fmt.Errorf("failed to save events to outbox: %w", err)
			}
		}
		return nil
	})
}

// List returns one page of payments and the total match count. Ordering
// defaults to newest first; OrderBy is checked against PaymentSortFields.
func (r *GormPaymentRepository) List(ctx context.Context, filter billing.PaymentFilter) ([]*billing.Payment, int64, error) {
	page := filter.Filter.Normalize()
	query := r.db.WithContext(ctx).Model(&models.PaymentModel{})
	if filter.CustomerID != "" {
		query = query.Where("customer_id = ?", filter.CustomerID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status.String())
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.PaymentModel
	orderBy := ValidateSortField(page.OrderBy, PaymentSortFields, "created_at")
	if err := query.Order(orderBy + " " + ValidateSortOrder(page.OrderDir)).Order("id ASC").
		Offset(page.Offset()).Limit(page.PageSize).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	payments := make([]*billing.Payment, 0, len(rows))
	for i := range rows {
		p, err := rows[i].ToDomain(r.clock)
		if err != nil {
			return nil, 0, err
		}
		payments = append(payments, p)
	}
	return payments, total, nil
}

var _ billing.PaymentRepository = (*GormPaymentRepository)(nil)
