package billing

import (
	"fmt"
	"maps"
	"time"

	"github.com/paycore/backend/internal/domain/shared"
	"github.com/paycore/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// PaymentStatus represents the lifecycle status of a payment
type PaymentStatus string

const (
	PaymentStatusPending           PaymentStatus = "PENDING"
	PaymentStatusProcessing        PaymentStatus = "PROCESSING"
	PaymentStatusSucceeded         PaymentStatus = "SUCCEEDED"
	PaymentStatusFailed            PaymentStatus = "FAILED"
	PaymentStatusCancelled         PaymentStatus = "CANCELLED"
	PaymentStatusRefunded          PaymentStatus = "REFUNDED"
	PaymentStatusPartiallyRefunded PaymentStatus = "PARTIALLY_REFUNDED"
)

// IsValid checks if the status is valid
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusProcessing, PaymentStatusSucceeded, PaymentStatusFailed,
		PaymentStatusCancelled, PaymentStatusRefunded, PaymentStatusPartiallyRefunded:
		return true
	}
	return false
}

// String returns the string representation
func (s PaymentStatus) String() string {
	return string(s)
}

// IsTerminal returns true if no operation moves the payment out of this status.
// Fail is the exception: it applies from any status.
func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusFailed || s == PaymentStatusRefunded || s == PaymentStatusCancelled
}

// IsRefundable returns true if a refund may be applied in this status
func (s PaymentStatus) IsRefundable() bool {
	return s == PaymentStatusSucceeded || s == PaymentStatusPartiallyRefunded
}

// PaymentOption sets an optional attribute at creation time
type PaymentOption func(*Payment)

// WithDescription sets the payment description
func WithDescription(description string) PaymentOption {
	return func(p *Payment) { p.description = description }
}

// WithMetadata sets free-form key/value metadata; the map is copied
func WithMetadata(metadata map[string]string) PaymentOption {
	return func(p *Payment) { p.metadata = maps.Clone(metadata) }
}

// Payment is the aggregate root for a single payment.
//
// Invariants:
//   - 0 <= refundedAmount <= amount
//   - paymentMethod is nil until the first successful Process and fixed after
//
// Payment is not safe for concurrent use.
type Payment struct {
	shared.BaseAggregateRoot[Event]

	id             PaymentID
	customerID     string
	amount         valueobject.Money
	status         PaymentStatus
	paymentMethod  *PaymentMethod
	description    string
	metadata       map[string]string
	refundedAmount decimal.Decimal
	failureReason  string
	createdAt      time.Time
	updatedAt      time.Time

	clock shared.Clock
}

// NewPayment creates a pending payment and raises PaymentCreated. The amount
// is taken as given; callers validate that it is non-negative.
func (f *Factory) NewPayment(customerID string, amount valueobject.Money, opts ...PaymentOption) *Payment {
	now := f.clock.Now()
	p := &Payment{
		id:             NewPaymentID(f.ids),
		customerID:     customerID,
		amount:         amount,
		status:         PaymentStatusPending,
		metadata:       map[string]string{},
		refundedAmount: decimal.Zero,
		createdAt:      now,
		updatedAt:      now,
		clock:          f.clock,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.metadata == nil {
		p.metadata = map[string]string{}
	}

	p.AddDomainEvent(NewPaymentCreatedEvent(p.id, amount.Amount(), now))
	return p
}

// Process attaches the payment method and moves a pending payment to
// Processing. No event is raised for this transition.
func (p *Payment) Process(method PaymentMethod) error {
	if p.status != PaymentStatusPending {
		return shared.NewDomainError(CodeInvalidStatus, fmt.Sprintf("Cannot process payment in %s status", p.status))
	}
	if err := method.validate(); err != nil {
		return err
	}

	m := method
	p.paymentMethod = &m
	p.status = PaymentStatusProcessing
	p.touch()
	return nil
}

// Succeed settles a processing payment and raises PaymentSucceeded
func (p *Payment) Succeed() error {
	if p.status != PaymentStatusProcessing {
		return shared.NewDomainError(CodeInvalidStatus, fmt.Sprintf("Cannot succeed payment in %s status", p.status))
	}

	p.status = PaymentStatusSucceeded
	p.touch()
	p.AddDomainEvent(NewPaymentSucceededEvent(p.id, p.updatedAt))
	return nil
}

// Fail marks the payment failed from any status and records the reason.
// No event is raised; PaymentFailedEvent is left for other producers.
func (p *Payment) Fail(reason string) {
	p.status = PaymentStatusFailed
	p.failureReason = reason
	p.touch()
}

// Refund returns part or all of a settled payment and raises PaymentRefunded.
// The payment becomes Refunded when the cumulative refund equals the amount
// exactly, otherwise PartiallyRefunded. On error the payment is unchanged.
func (p *Payment) Refund(amount decimal.Decimal) error {
	if !p.status.IsRefundable() {
		return shared.NewDomainError(CodeNotRefundable, fmt.Sprintf("Cannot refund payment in %s status", p.status))
	}
	if !amount.IsPositive() {
		return shared.NewDomainError(CodeInvalidRefundAmount, "Refund amount must be positive")
	}
	if !valueobject.HasValidScale(amount) {
		return shared.NewDomainError(CodeInvalidRefundAmount,
			fmt.Sprintf("Refund amount cannot have more than %d decimal places", valueobject.MaxAmountScale))
	}

	total := p.refundedAmount.Add(amount)
	if total.GreaterThan(p.amount.Amount()) {
		return shared.NewDomainError(CodeRefundExceedsPayment,
			fmt.Sprintf("Refund of %s exceeds refundable amount %s", amount.String(), p.RefundableAmount().String()))
	}

	p.refundedAmount = total
	if total.Equal(p.amount.Amount()) {
		p.status = PaymentStatusRefunded
	} else {
		p.status = PaymentStatusPartiallyRefunded
	}
	p.touch()
	p.AddDomainEvent(NewPaymentRefundedEvent(p.id, amount, p.updatedAt))
	return nil
}

// TakeEvents returns the pending events in emission order and clears them
func (p *Payment) TakeEvents() []Event {
	return p.TakeDomainEvents()
}

func (p *Payment) touch() {
	p.updatedAt = p.clock.Now()
}

// ID returns the payment id
func (p *Payment) ID() PaymentID { return p.id }

// AggregateID implements shared.AggregateRoot
func (p *Payment) AggregateID() string { return p.id.String() }

// AggregateType implements shared.AggregateRoot
func (p *Payment) AggregateType() string { return AggregateTypePayment }

// CustomerID returns the paying customer
func (p *Payment) CustomerID() string { return p.customerID }

// Amount returns the original payment amount
func (p *Payment) Amount() valueobject.Money { return p.amount }

// Status returns the current status
func (p *Payment) Status() PaymentStatus { return p.status }

// PaymentMethod returns the attached method, if the payment has been processed
func (p *Payment) PaymentMethod() (PaymentMethod, bool) {
	if p.paymentMethod == nil {
		return PaymentMethod{}, false
	}
	return *p.paymentMethod, true
}

// Description returns the description, empty when unset
func (p *Payment) Description() string { return p.description }

// Metadata returns a copy of the metadata
func (p *Payment) Metadata() map[string]string { return maps.Clone(p.metadata) }

// RefundedAmount returns the cumulative refunded amount
func (p *Payment) RefundedAmount() decimal.Decimal { return p.refundedAmount }

// RefundableAmount returns the amount that can still be refunded
func (p *Payment) RefundableAmount() decimal.Decimal {
	return p.amount.Amount().Sub(p.refundedAmount)
}

// FailureReason returns the reason given to Fail, empty otherwise
func (p *Payment) FailureReason() string { return p.failureReason }

// CreatedAt returns the creation time
func (p *Payment) CreatedAt() time.Time { return p.createdAt }

// UpdatedAt returns the time of the last state change
func (p *Payment) UpdatedAt() time.Time { return p.updatedAt }

// PaymentSnapshot is the flat state of a payment used by persistence
type PaymentSnapshot struct {
	ID             PaymentID
	CustomerID     string
	Amount         valueobject.Money
	Status         PaymentStatus
	PaymentMethod  *PaymentMethod
	Description    string
	Metadata       map[string]string
	RefundedAmount decimal.Decimal
	FailureReason  string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Snapshot captures the current state
func (p *Payment) Snapshot() PaymentSnapshot {
	var method *PaymentMethod
	if p.paymentMethod != nil {
		m := *p.paymentMethod
		method = &m
	}
	return PaymentSnapshot{
		ID:             p.id,
		CustomerID:     p.customerID,
		Amount:         p.amount,
		Status:         p.status,
		PaymentMethod:  method,
		Description:    p.description,
		Metadata:       maps.Clone(p.metadata),
		RefundedAmount: p.refundedAmount,
		FailureReason:  p.failureReason,
		CreatedAt:      p.createdAt,
		UpdatedAt:      p.updatedAt,
	}
}

// RehydratePayment rebuilds a payment from stored state without raising
// events. A nil clock means the system clock.
func RehydratePayment(s PaymentSnapshot, clock shared.Clock) (*Payment, error) {
	if clock == nil {
		clock = shared.SystemClock{}
	}
	if s.ID == "" {
		return nil, shared.NewDomainError(CodeInvalidPaymentID, "Stored payment has no id")
	}
	if !s.Status.IsValid() {
		return nil, shared.NewDomainError(CodeInvalidStatus, fmt.Sprintf("Stored payment %s has unknown status %q", s.ID, s.Status))
	}
	if s.RefundedAmount.IsNegative() || s.RefundedAmount.GreaterThan(s.Amount.Amount()) {
		return nil, shared.NewDomainError(CodeRefundExceedsPayment,
			fmt.Sprintf("Stored payment %s has refunded amount %s outside [0, %s]", s.ID, s.RefundedAmount, s.Amount.Amount()))
	}

	p := &Payment{
		id:             s.ID,
		customerID:     s.CustomerID,
		amount:         s.Amount,
		status:         s.Status,
		description:    s.Description,
		metadata:       maps.Clone(s.Metadata),
		refundedAmount: s.RefundedAmount,
		failureReason:  s.FailureReason,
		createdAt:      s.CreatedAt,
		updatedAt:      s.UpdatedAt,
		clock:          clock,
	}
	if p.metadata == nil {
		p.metadata = map[string]string{}
	}
	if s.PaymentMethod != nil {
		m := *s.PaymentMethod
		p.paymentMethod = &m
	}
	return p, nil
}
