// Package billing holds the payment and subscription aggregates.
//
// Both aggregates are pure in-memory state machines. They perform no I/O and
// carry no internal locking: the owning application service must be the only
// writer of an instance between Load and Save. Each state change appends an
// event to the aggregate's buffer; callers drain it with TakeEvents and hand
// the events to the repository so they are stored atomically with the
// aggregate.
//
// Key Aggregates:
//   - Payment: Pending → Processing → Succeeded/Failed, then partial or full refunds
//   - Subscription: recurring billing periods with renew, cancel, pause and resume
//
// Value Objects:
//   - PaymentID, SubscriptionID
//   - PaymentMethod
//   - BillingCycle
package billing
