package billing

import (
	"time"

	"github.com/paycore/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Aggregate type names
const (
	AggregateTypePayment      = "Payment"
	AggregateTypeSubscription = "Subscription"
)

// Event type names
const (
	EventTypePaymentCreated            = "PaymentCreated"
	EventTypePaymentSucceeded          = "PaymentSucceeded"
	EventTypePaymentFailed             = "PaymentFailed"
	EventTypePaymentRefunded           = "PaymentRefunded"
	EventTypeSubscriptionCreated       = "SubscriptionCreated"
	EventTypeSubscriptionRenewed       = "SubscriptionRenewed"
	EventTypeSubscriptionCancelled     = "SubscriptionCancelled"
	EventTypeSubscriptionPaymentFailed = "SubscriptionPaymentFailed"
)

// Event is the closed set of billing events. It has exactly two families,
// PaymentEvent and SubscriptionEvent; the unexported markers keep other
// packages from adding variants.
type Event interface {
	shared.DomainEvent
	billingEvent()
}

// PaymentEvent is an event raised about a payment
type PaymentEvent interface {
	Event
	paymentEvent()
}

// SubscriptionEvent is an event raised about a subscription
type SubscriptionEvent interface {
	Event
	subscriptionEvent()
}

// ToDomainEvents widens billing events to the shared interface
func ToDomainEvents(events []Event) []shared.DomainEvent {
	out := make([]shared.DomainEvent, len(events))
	for i, e := range events {
		out[i] = e
	}
	return out
}

// PaymentCreatedEvent is raised when a payment is created
type PaymentCreatedEvent struct {
	shared.BaseDomainEvent
	PaymentID PaymentID       `json:"payment_id"`
	Amount    decimal.Decimal `json:"amount"`
}

// NewPaymentCreatedEvent creates a PaymentCreatedEvent
func NewPaymentCreatedEvent(id PaymentID, amount decimal.Decimal, at time.Time) *PaymentCreatedEvent {
	return &PaymentCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentCreated, AggregateTypePayment, id.String(), at),
		PaymentID:       id,
		Amount:          amount,
	}
}

// PaymentSucceededEvent is raised when a processing payment succeeds
type PaymentSucceededEvent struct {
	shared.BaseDomainEvent
	PaymentID PaymentID `json:"payment_id"`
}

// NewPaymentSucceededEvent creates a PaymentSucceededEvent
func NewPaymentSucceededEvent(id PaymentID, at time.Time) *PaymentSucceededEvent {
	return &PaymentSucceededEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentSucceeded, AggregateTypePayment, id.String(), at),
		PaymentID:       id,
	}
}

// PaymentFailedEvent is reserved: Payment.Fail does not raise it
type PaymentFailedEvent struct {
	shared.BaseDomainEvent
	PaymentID PaymentID `json:"payment_id"`
	Reason    string    `json:"reason"`
}

// NewPaymentFailedEvent creates a PaymentFailedEvent
func NewPaymentFailedEvent(id PaymentID, reason string, at time.Time) *PaymentFailedEvent {
	return &PaymentFailedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentFailed, AggregateTypePayment, id.String(), at),
		PaymentID:       id,
		Reason:          reason,
	}
}

// PaymentRefundedEvent is raised for every accepted refund, partial or full
type PaymentRefundedEvent struct {
	shared.BaseDomainEvent
	PaymentID PaymentID       `json:"payment_id"`
	Amount    decimal.Decimal `json:"amount"`
}

// NewPaymentRefundedEvent creates a PaymentRefundedEvent
func NewPaymentRefundedEvent(id PaymentID, amount decimal.Decimal, at time.Time) *PaymentRefundedEvent {
	return &PaymentRefundedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentRefunded, AggregateTypePayment, id.String(), at),
		PaymentID:       id,
		Amount:          amount,
	}
}

// SubscriptionCreatedEvent is raised when a subscription is created
type SubscriptionCreatedEvent struct {
	shared.BaseDomainEvent
	SubscriptionID SubscriptionID `json:"subscription_id"`
}

// NewSubscriptionCreatedEvent creates a SubscriptionCreatedEvent
func NewSubscriptionCreatedEvent(id SubscriptionID, at time.Time) *SubscriptionCreatedEvent {
	return &SubscriptionCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSubscriptionCreated, AggregateTypeSubscription, id.String(), at),
		SubscriptionID:  id,
	}
}

// SubscriptionRenewedEvent is raised when a subscription moves to its next period
type SubscriptionRenewedEvent struct {
	shared.BaseDomainEvent
	SubscriptionID SubscriptionID `json:"subscription_id"`
}

// NewSubscriptionRenewedEvent creates a SubscriptionRenewedEvent
func NewSubscriptionRenewedEvent(id SubscriptionID, at time.Time) *SubscriptionRenewedEvent {
	return &SubscriptionRenewedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSubscriptionRenewed, AggregateTypeSubscription, id.String(), at),
		SubscriptionID:  id,
	}
}

// SubscriptionCancelledEvent is raised on every cancel call
type SubscriptionCancelledEvent struct {
	shared.BaseDomainEvent
	SubscriptionID SubscriptionID `json:"subscription_id"`
	AtPeriodEnd    bool           `json:"at_period_end"`
}

// NewSubscriptionCancelledEvent creates a SubscriptionCancelledEvent
func NewSubscriptionCancelledEvent(id SubscriptionID, atPeriodEnd bool, at time.Time) *SubscriptionCancelledEvent {
	return &SubscriptionCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSubscriptionCancelled, AggregateTypeSubscription, id.String(), at),
		SubscriptionID:  id,
		AtPeriodEnd:     atPeriodEnd,
	}
}

// SubscriptionPaymentFailedEvent is raised by dunning, never by the aggregate
type SubscriptionPaymentFailedEvent struct {
	shared.BaseDomainEvent
	SubscriptionID SubscriptionID `json:"subscription_id"`
}

// NewSubscriptionPaymentFailedEvent creates a SubscriptionPaymentFailedEvent
func NewSubscriptionPaymentFailedEvent(id SubscriptionID, at time.Time) *SubscriptionPaymentFailedEvent {
	return &SubscriptionPaymentFailedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSubscriptionPaymentFailed, AggregateTypeSubscription, id.String(), at),
		SubscriptionID:  id,
	}
}

func (*PaymentCreatedEvent) billingEvent()            {}
func (*PaymentSucceededEvent) billingEvent()          {}
func (*PaymentFailedEvent) billingEvent()             {}
func (*PaymentRefundedEvent) billingEvent()           {}
func (*SubscriptionCreatedEvent) billingEvent()       {}
func (*SubscriptionRenewedEvent) billingEvent()       {}
func (*SubscriptionCancelledEvent) billingEvent()     {}
func (*SubscriptionPaymentFailedEvent) billingEvent() {}

func (*PaymentCreatedEvent) paymentEvent()   {}
func (*PaymentSucceededEvent) paymentEvent() {}
func (*PaymentFailedEvent) paymentEvent()    {}
func (*PaymentRefundedEvent) paymentEvent()  {}

func (*SubscriptionCreatedEvent) subscriptionEvent()       {}
func (*SubscriptionRenewedEvent) subscriptionEvent()       {}
func (*SubscriptionCancelledEvent) subscriptionEvent()     {}
func (*SubscriptionPaymentFailedEvent) subscriptionEvent() {}

// Compile-time checks of family membership
var (
	_ PaymentEvent      = (*PaymentCreatedEvent)(nil)
	_ PaymentEvent      = (*PaymentSucceededEvent)(nil)
	_ PaymentEvent      = (*PaymentFailedEvent)(nil)
	_ PaymentEvent      = (*PaymentRefundedEvent)(nil)
	_ SubscriptionEvent = (*SubscriptionCreatedEvent)(nil)
	_ SubscriptionEvent = (*SubscriptionRenewedEvent)(nil)
	_ SubscriptionEvent = (*SubscriptionCancelledEvent)(nil)
	_ SubscriptionEvent = (*SubscriptionPaymentFailedEvent)(nil)
)
