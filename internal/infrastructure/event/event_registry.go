package event

import (
	"github.com/paycore/backend/internal/domain/billing"
)

// RegisterBillingEvents registers every billing event variant with the
// serializer so outbox entries and broker messages can be decoded
func RegisterBillingEvents(s *EventSerializer) {
	s.Register(billing.EventTypePaymentCreated, &billing.PaymentCreatedEvent{})
	s.Register(billing.EventTypePaymentSucceeded, &billing.PaymentSucceededEvent{})
	s.Register(billing.EventTypePaymentFailed, &billing.PaymentFailedEvent{})
	s.Register(billing.EventTypePaymentRefunded, &billing.PaymentRefundedEvent{})

	s.Register(billing.EventTypeSubscriptionCreated, &billing.SubscriptionCreatedEvent{})
	s.Register(billing.EventTypeSubscriptionRenewed, &billing.SubscriptionRenewedEvent{})
	s.Register(billing.EventTypeSubscriptionCancelled, &billing.SubscriptionCancelledEvent{})
	s.Register(billing.EventTypeSubscriptionPaymentFailed, &billing.SubscriptionPaymentFailedEvent{})
}

// NewBillingEventSerializer returns a serializer with all billing events registered
func NewBillingEventSerializer() *EventSerializer {
	s := NewEventSerializer()
	RegisterBillingEvents(s)
	return s
}
