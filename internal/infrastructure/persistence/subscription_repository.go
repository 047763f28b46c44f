package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/paycore/backend/internal/domain/billing"
	"github.com/paycore/backend/internal/domain/shared"
	"github.com/paycore/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormSubscriptionRepository implements billing.SubscriptionRepository using GORM
type GormSubscriptionRepository struct {
	db          *gorm.DB
	clock       shared.Clock
	outboxSaver shared.OutboxEventSaver
}

// NewGormSubscriptionRepository creates a new GormSubscriptionRepository
func NewGormSubscriptionRepository(db *gorm.DB, clock shared.Clock) *GormSubscriptionRepository {
	return &GormSubscriptionRepository{db: db, clock: clock}
}

// SetOutboxEventSaver sets the outbox event saver for transactional event publishing
func (r *GormSubscriptionRepository) SetOutboxEventSaver(saver shared.OutboxEventSaver) {
	r.outboxSaver = saver
}

// Load finds a subscription and its stored version
func (r *GormSubscriptionRepository) Load(ctx context.Context, id billing.SubscriptionID) (*billing.Subscription, int, error) {
	var model models.SubscriptionModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id.String()).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, 0, notFound("subscription", id.String())
		}
		return nil, 0, err
	}
	sub, err := model.ToDomain(r.clock)
	if err != nil {
		return nil, 0, err
	}
	return sub, model.Version, nil
}

// Save inserts or version-checks and updates the subscription, writing events
// to the outbox in the same transaction
func (r *GormSubscriptionRepository) Save(ctx context.Context, sub *billing.Subscription, expectedVersion int, events ...billing.Event) error {
	model := models.SubscriptionModelFromSnapshot(sub.Snapshot())
	if len(events) > 0 && r.outboxSaver == nil {
		return fmt.Errorf("subscription %s: outbox event saver not configured", model.ID)
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if expectedVersion == 0 {
			model.Version = 1
			if err := tx.Create(model).Error; err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return versionConflict("subscription", model.ID, expectedVersion)
				}
				return err
			}
		} else {
			columns := model.UpdateColumns()
			columns["version"] = expectedVersion + 1
			result := tx.Model(&models.SubscriptionModel{}).
				Where("id = ? AND version = ?", model.ID, expectedVersion).
				Updates(columns)
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return versionConflict("subscription", model.ID, expectedVersion)
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

// List returns one page of subscriptions and the total match count, newest
// first unless OrderBy names one of SubscriptionSortFields
func (r *GormSubscriptionRepository) List(ctx context.Context, filter billing.SubscriptionFilter) ([]*billing.Subscription, int64, error) {
	page := filter.Filter.Normalize()
	query := r.db.WithContext(ctx).Model(&models.SubscriptionModel{})
	if filter.CustomerID != "" {
		query = query.Where("customer_id = ?", filter.CustomerID)
	}
	if filter.PlanID != "" {
		query = query.Where("plan_id = ?", filter.PlanID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status.String())
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.SubscriptionModel
	orderBy := ValidateSortField(page.OrderBy, SubscriptionSortFields, "created_at")
	if err := query.Order(orderBy + " " + ValidateSortOrder(page.OrderDir)).Order("id ASC").
		Offset(page.Offset()).Limit(page.PageSize).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	subs := make([]*billing.Subscription, 0, len(rows))
	for i := range rows {
		s, err := rows[i].ToDomain(r.clock)
		if err != nil {
			return nil, 0, err
		}
		subs = append(subs, s)
	}
	return subs, total, nil
}

// FindDueForRenewal returns active subscriptions whose current period ended
// on or before asOf's calendar day, keyset-paged on (current_period_end, id)
func (r *GormSubscriptionRepository) FindDueForRenewal(ctx context.Context, asOf time.Time, after billing.RenewalCursor, limit int) ([]billing.DueSubscription, error) {
	y, m, d := asOf.UTC().Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)

	query := r.db.WithContext(ctx).Model(&models.SubscriptionModel{}).
		Select("id, current_period_end").
		Where("status = ? AND current_period_end <= ?", billing.SubscriptionStatusActive.String(), day)
	if !after.IsZero() {
		end := after.PeriodEnd.UTC()
		query = query.Where("(current_period_end > ? OR (current_period_end = ? AND id > ?))",
			end, end, after.ID.String())
	}
	query = query.Order("current_period_end ASC").Order("id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var rows []struct {
		ID               string
		CurrentPeriodEnd time.Time
	}
	if err := query.Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]billing.DueSubscription, len(rows))
	for i, row := range rows {
		out[i] = billing.DueSubscription{
			ID:               billing.SubscriptionID(row.ID),
			CurrentPeriodEnd: row.CurrentPeriodEnd.UTC(),
		}
	}
	return out, nil
}

var _ billing.SubscriptionRepository = (*GormSubscriptionRepository)(nil)
