package billing

import (
	"context"
	"time"

	"github.com/paycore/backend/internal/domain/shared"
)

// Repositories are versioned: Load returns the stored version alongside the
// aggregate and Save succeeds only if the stored version still equals
// expectedVersion, bumping it by one. An expectedVersion of 0 inserts a new
// aggregate. A version mismatch returns an error matching
// shared.ErrConcurrencyConflict. The events passed to Save are written to the
// outbox in the same transaction as the aggregate.

// PaymentFilter narrows payment list queries
type PaymentFilter struct {
	shared.Filter
	CustomerID string
	Status     PaymentStatus
}

// PaymentRepository persists payments
type PaymentRepository interface {
	Load(ctx context.Context, id PaymentID) (*Payment, int, error)
	Save(ctx context.Context, payment *Payment, expectedVersion int, events ...Event) error
	List(ctx context.Context, filter PaymentFilter) ([]*Payment, int64, error)
}

// SubscriptionFilter narrows subscription list queries
type SubscriptionFilter struct {
	shared.Filter
	CustomerID string
	PlanID     string
	Status     SubscriptionStatus
}

// SubscriptionRepository persists subscriptions
type SubscriptionRepository interface {
	Load(ctx context.Context, id SubscriptionID) (*Subscription, int, error)
	Save(ctx context.Context, subscription *Subscription, expectedVersion int, events ...Event) error
	List(ctx context.Context, filter SubscriptionFilter) ([]*Subscription, int64, error)
	// FindDueForRenewal returns active subscriptions whose current period
	// ended on or before asOf, ordered by (period end, id) and strictly after
	// the cursor. A zero cursor starts from the beginning.
	FindDueForRenewal(ctx context.Context, asOf time.Time, after RenewalCursor, limit int) ([]DueSubscription, error)
}

// DueSubscription is one row of the renewal due set
type DueSubscription struct {
	ID               SubscriptionID
	CurrentPeriodEnd time.Time
}

// RenewalCursor is a keyset position in the renewal due set
type RenewalCursor struct {
	PeriodEnd time.Time
	ID        SubscriptionID
}

// IsZero reports whether the cursor points at the start of the due set
func (c RenewalCursor) IsZero() bool {
	return c.ID == "" && c.PeriodEnd.IsZero()
}

// Next returns the cursor positioned after d
func (d DueSubscription) Next() RenewalCursor {
	return RenewalCursor{PeriodEnd: d.CurrentPeriodEnd, ID: d.ID}
}

// RefundRecordRepository stores refund records
type RefundRecordRepository interface {
	// Record stores the record; storing the same id twice is a no-op
	Record(ctx context.Context, record *RefundRecord) error
	ListByPayment(ctx context.Context, paymentID PaymentID) ([]*RefundRecord, error)
}
