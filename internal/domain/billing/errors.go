package billing

import "github.com/paycore/backend/internal/domain/shared"

// Error codes raised by the billing aggregates
const (
	CodeInvalidStatus        = "INVALID_STATUS"
	CodeNotRefundable        = "NOT_REFUNDABLE"
	CodeRefundExceedsPayment = "REFUND_EXCEEDS_PAYMENT"
	CodeInvalidRefundAmount  = "INVALID_REFUND_AMOUNT"
	CodeAlreadyCancelled     = "ALREADY_CANCELLED"
	CodeNotPaused            = "NOT_PAUSED"
	CodeInvalidPaymentMethod = "INVALID_PAYMENT_METHOD"
	CodeInvalidBillingCycle  = "INVALID_BILLING_CYCLE"
	CodeInvalidPaymentID     = "INVALID_PAYMENT_ID"
)

// Sentinels for errors.Is; the errors returned by operations carry the same
// code with a more specific message.
var (
	ErrInvalidStatus        = shared.NewDomainError(CodeInvalidStatus, "Operation not permitted in the current status")
	ErrNotRefundable        = shared.NewDomainError(CodeNotRefundable, "Payment cannot be refunded in the current status")
	ErrRefundExceedsPayment = shared.NewDomainError(CodeRefundExceedsPayment, "Refund would exceed the payment amount")
	ErrInvalidRefundAmount  = shared.NewDomainError(CodeInvalidRefundAmount, "Refund amount must be positive")
	ErrInvalidPaymentMethod = shared.NewDomainError(CodeInvalidPaymentMethod, "Invalid payment method")
	ErrInvalidBillingCycle  = shared.NewDomainError(CodeInvalidBillingCycle, "Invalid billing cycle")
	ErrInvalidPaymentID     = shared.NewDomainError(CodeInvalidPaymentID, "Invalid payment id")

	// ErrAlreadyCancelled and ErrNotPaused are reserved. Cancel and Resume
	// accept any status without reporting these; they exist for callers that
	// want to enforce the stricter rule themselves.
	ErrAlreadyCancelled = shared.NewDomainError(CodeAlreadyCancelled, "Subscription is already cancelled")
	ErrNotPaused        = shared.NewDomainError(CodeNotPaused, "Subscription is not paused")
)
