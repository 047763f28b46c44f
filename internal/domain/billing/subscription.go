package billing

import (
	"fmt"
	"time"

	"github.com/paycore/backend/internal/domain/shared"
	"github.com/paycore/backend/internal/domain/shared/valueobject"
)

// SubscriptionStatus represents the status of a subscription
type SubscriptionStatus string

const (
	SubscriptionStatusActive    SubscriptionStatus = "ACTIVE"
	SubscriptionStatusTrialing  SubscriptionStatus = "TRIALING"
	SubscriptionStatusPastDue   SubscriptionStatus = "PAST_DUE"
	SubscriptionStatusCancelled SubscriptionStatus = "CANCELLED"
	SubscriptionStatusPaused    SubscriptionStatus = "PAUSED"
)

// IsValid checks if the status is valid
func (s SubscriptionStatus) IsValid() bool {
	switch s {
	case SubscriptionStatusActive, SubscriptionStatusTrialing, SubscriptionStatusPastDue,
		SubscriptionStatusCancelled, SubscriptionStatusPaused:
		return true
	}
	return false
}

// String returns the string representation
func (s SubscriptionStatus) String() string {
	return string(s)
}

// IsTerminal returns true for Cancelled
func (s SubscriptionStatus) IsTerminal() bool {
	return s == SubscriptionStatusCancelled
}

// Subscription is the aggregate root for a recurring billing agreement.
//
// Period dates are calendar dates held as midnight UTC. currentPeriodEnd is
// always currentPeriodStart plus the cycle's day count.
//
// Cancel(true) only records the intent; turning a flagged subscription into a
// cancelled one at period end is the renewal process's job, as is checking
// the flag before calling Renew. Subscription is not safe for concurrent use.
type Subscription struct {
	shared.BaseAggregateRoot[Event]

	id                 SubscriptionID
	customerID         string
	planID             string
	status             SubscriptionStatus
	currentPeriodStart time.Time
	currentPeriodEnd   time.Time
	billingCycle       BillingCycle
	amount             valueobject.Money
	cancelAtPeriodEnd  bool
	cancelledAt        *time.Time
	createdAt          time.Time
	updatedAt          time.Time

	clock shared.Clock
}

// NewSubscription creates an active subscription whose first period starts
// today, and raises SubscriptionCreated
func (f *Factory) NewSubscription(customerID, planID string, amount valueobject.Money, cycle BillingCycle) (*Subscription, error) {
	if !cycle.IsValid() {
		return nil, shared.NewDomainError(CodeInvalidBillingCycle, fmt.Sprintf("Unknown billing cycle %q", cycle))
	}

	now := f.clock.Now()
	start := dateOf(now)
	s := &Subscription{
		id:                 NewSubscriptionID(f.ids),
		customerID:         customerID,
		planID:             planID,
		status:             SubscriptionStatusActive,
		currentPeriodStart: start,
		currentPeriodEnd:   cycle.PeriodEnd(start),
		billingCycle:       cycle,
		amount:             amount,
		createdAt:          now,
		updatedAt:          now,
		clock:              f.clock,
	}

	s.AddDomainEvent(NewSubscriptionCreatedEvent(s.id, now))
	return s, nil
}

// Renew advances the subscription by one period and raises
// SubscriptionRenewed. It applies in any status and leaves both the status
// and the cancel-at-period-end flag untouched.
func (s *Subscription) Renew() {
	s.currentPeriodStart = s.currentPeriodEnd
	s.currentPeriodEnd = s.billingCycle.PeriodEnd(s.currentPeriodStart)
	s.touch()
	s.AddDomainEvent(NewSubscriptionRenewedEvent(s.id, s.updatedAt))
}

// Cancel either flags the subscription to end with the current period
// (atPeriodEnd) or cancels it now. SubscriptionCancelled is raised on every
// call, including on an already cancelled subscription.
func (s *Subscription) Cancel(atPeriodEnd bool) {
	now := s.clock.Now()
	if atPeriodEnd {
		s.cancelAtPeriodEnd = true
	} else {
		s.status = SubscriptionStatusCancelled
		s.cancelledAt = &now
	}
	s.updatedAt = now
	s.AddDomainEvent(NewSubscriptionCancelledEvent(s.id, atPeriodEnd, now))
}

// Pause sets the status to Paused from any status
func (s *Subscription) Pause() {
	s.status = SubscriptionStatusPaused
	s.touch()
}

// Resume reactivates a paused subscription. In any other status it does nothing.
func (s *Subscription) Resume() {
	if s.status != SubscriptionStatusPaused {
		return
	}
	s.status = SubscriptionStatusActive
	s.touch()
}

// IsDueForRenewal reports whether the current period has ended by asOf's date
func (s *Subscription) IsDueForRenewal(asOf time.Time) bool {
	return !s.currentPeriodEnd.After(dateOf(asOf))
}

// TakeEvents returns the pending events in emission order and clears them
func (s *Subscription) TakeEvents() []Event {
	return s.TakeDomainEvents()
}

func (s *Subscription) touch() {
	s.updatedAt = s.clock.Now()
}

// ID returns the subscription id
func (s *Subscription) ID() SubscriptionID { return s.id }

// AggregateID implements shared.AggregateRoot
func (s *Subscription) AggregateID() string { return s.id.String() }

// AggregateType implements shared.AggregateRoot
func (s *Subscription) AggregateType() string { return AggregateTypeSubscription }

// CustomerID returns the subscribed customer
func (s *Subscription) CustomerID() string { return s.customerID }

// PlanID returns the plan
func (s *Subscription) PlanID() string { return s.planID }

// Status returns the current status
func (s *Subscription) Status() SubscriptionStatus { return s.status }

// CurrentPeriodStart returns the first day of the current period
func (s *Subscription) CurrentPeriodStart() time.Time { return s.currentPeriodStart }

// CurrentPeriodEnd returns the day the current period ends
func (s *Subscription) CurrentPeriodEnd() time.Time { return s.currentPeriodEnd }

// BillingCycle returns the billing cycle
func (s *Subscription) BillingCycle() BillingCycle { return s.billingCycle }

// Amount returns the per-period amount
func (s *Subscription) Amount() valueobject.Money { return s.amount }

// CancelAtPeriodEnd reports whether cancellation at period end was requested
func (s *Subscription) CancelAtPeriodEnd() bool { return s.cancelAtPeriodEnd }

// CancelledAt returns when the subscription was cancelled immediately
func (s *Subscription) CancelledAt() (time.Time, bool) {
	if s.cancelledAt == nil {
		return time.Time{}, false
	}
	return *s.cancelledAt, true
}

// CreatedAt returns the creation time
func (s *Subscription) CreatedAt() time.Time { return s.createdAt }

// UpdatedAt returns the time of the last state change
func (s *Subscription) UpdatedAt() time.Time { return s.updatedAt }

// SubscriptionSnapshot is the flat state of a subscription used by persistence
type SubscriptionSnapshot struct {
	ID                 SubscriptionID
	CustomerID         string
	PlanID             string
	Status             SubscriptionStatus
	CurrentPeriodStart time.Time
	CurrentPeriodEnd   time.Time
	BillingCycle       BillingCycle
	Amount             valueobject.Money
	CancelAtPeriodEnd  bool
	CancelledAt        *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Snapshot captures the current state
func (s *Subscription) Snapshot() SubscriptionSnapshot {
	var cancelledAt *time.Time
	if s.cancelledAt != nil {
		t := *s.cancelledAt
		cancelledAt = &t
	}
	return SubscriptionSnapshot{
		ID:                 s.id,
		CustomerID:         s.customerID,
		PlanID:             s.planID,
		Status:             s.status,
		CurrentPeriodStart: s.currentPeriodStart,
		CurrentPeriodEnd:   s.currentPeriodEnd,
		BillingCycle:       s.billingCycle,
		Amount:             s.amount,
		CancelAtPeriodEnd:  s.cancelAtPeriodEnd,
		CancelledAt:        cancelledAt,
		CreatedAt:          s.createdAt,
		UpdatedAt:          s.updatedAt,
	}
}

// RehydrateSubscription rebuilds a subscription from stored state without
// raising events. A nil clock means the system clock.
func RehydrateSubscription(snap SubscriptionSnapshot, clock shared.Clock) (*Subscription, error) {
	if clock == nil {
		clock = shared.SystemClock{}
	}
	if snap.ID == "" {
		return nil, shared.NewDomainError("INVALID_SUBSCRIPTION_ID", "Stored subscription has no id")
	}
	if !snap.Status.IsValid() {
		return nil, shared.NewDomainError(CodeInvalidStatus, fmt.Sprintf("Stored subscription %s has unknown status %q", snap.ID, snap.Status))
	}
	if !snap.BillingCycle.IsValid() {
		return nil, shared.NewDomainError(CodeInvalidBillingCycle, fmt.Sprintf("Stored subscription %s has unknown billing cycle %q", snap.ID, snap.BillingCycle))
	}

	s := &Subscription{
		id:                 snap.ID,
		customerID:         snap.CustomerID,
		planID:             snap.PlanID,
		status:             snap.Status,
		currentPeriodStart: dateOf(snap.CurrentPeriodStart),
		currentPeriodEnd:   dateOf(snap.CurrentPeriodEnd),
		billingCycle:       snap.BillingCycle,
		amount:             snap.Amount,
		cancelAtPeriodEnd:  snap.CancelAtPeriodEnd,
		createdAt:          snap.CreatedAt,
		updatedAt:          snap.UpdatedAt,
		clock:              clock,
	}
	if snap.CancelledAt != nil {
		t := *snap.CancelledAt
		s.cancelledAt = &t
	}
	return s, nil
}
