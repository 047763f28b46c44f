package billing

import (
	"time"

	"github.com/paycore/backend/internal/domain/shared"
	"github.com/paycore/backend/internal/domain/shared/valueobject"
)

// Factory creates aggregates with injected identity and time sources
type Factory struct {
	ids   shared.IDGenerator
	clock shared.Clock
}

// NewFactory creates a Factory. Nil arguments fall back to random UUIDs and
// the system clock.
func NewFactory(ids shared.IDGenerator, clock shared.Clock) *Factory {
	if ids == nil {
		ids = shared.UUIDGenerator{}
	}
	if clock == nil {
		clock = shared.SystemClock{}
	}
	return &Factory{ids: ids, clock: clock}
}

// Clock returns the factory's time source
func (f *Factory) Clock() shared.Clock {
	return f.clock
}

var defaultFactory = NewFactory(nil, nil)

// NewPayment creates a payment using random ids and the system clock
func NewPayment(customerID string, amount valueobject.Money, opts ...PaymentOption) *Payment {
	return defaultFactory.NewPayment(customerID, amount, opts...)
}

// NewSubscription creates a subscription using random ids and the system clock
func NewSubscription(customerID, planID string, amount valueobject.Money, cycle BillingCycle) (*Subscription, error) {
	return defaultFactory.NewSubscription(customerID, planID, amount, cycle)
}

// dateOf truncates t to midnight UTC of its calendar day
func dateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
