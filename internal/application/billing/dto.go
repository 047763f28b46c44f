package billing

import (
	"time"

	"github.com/paycore/backend/internal/domain/billing"
	"github.com/shopspring/decimal"
)

// =============================================================================
// Payment DTOs
// =============================================================================

// CreatePaymentRequest represents a request to create a payment
type CreatePaymentRequest struct {
	CustomerID  string            `json:"customer_id" binding:"required,min=1,max=100"`
	Amount      decimal.Decimal   `json:"amount"`
	Currency    string            `json:"currency" binding:"omitempty,currency"`
	Description string            `json:"description" binding:"max=500"`
	Metadata    map[string]string `json:"metadata"`
}

// PaymentMethodRequest describes the instrument a payment is processed with
type PaymentMethodRequest struct {
	Type     string `json:"type" binding:"required,oneof=card bank_transfer wallet crypto"`
	LastFour string `json:"last_four" binding:"omitempty,len=4,numeric"`
	Brand    string `json:"brand" binding:"max=50"`
	ExpMonth int    `json:"exp_month" binding:"omitempty,min=1,max=12"`
	ExpYear  int    `json:"exp_year" binding:"omitempty,min=2000,max=9999"`
}

// FailPaymentRequest represents a request to mark a payment failed
type FailPaymentRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

// RefundPaymentRequest represents a request to refund part or all of a payment
type RefundPaymentRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// CallbackOutcome is the result a payment provider reports
type CallbackOutcome string

const (
	CallbackOutcomeSucceeded CallbackOutcome = "succeeded"
	CallbackOutcomeFailed    CallbackOutcome = "failed"
)

// ProviderCallbackRequest is a payment provider's asynchronous result
// notification. EventID is the provider's delivery id and deduplicates retries.
type ProviderCallbackRequest struct {
	EventID   string          `json:"event_id" binding:"required,max=200"`
	PaymentID string          `json:"payment_id" binding:"required"`
	Outcome   CallbackOutcome `json:"outcome" binding:"required,oneof=succeeded failed"`
	Reason    string          `json:"reason" binding:"max=500"`
}

// CallbackResult reports what a provider callback did
type CallbackResult struct {
	EventID   string `json:"event_id"`
	PaymentID string `json:"payment_id"`
	Processed bool   `json:"processed"`
	Duplicate bool   `json:"duplicate"`
	Status    string `json:"status,omitempty"`
}

// PaymentListQuery holds list filters from the query string
type PaymentListQuery struct {
	CustomerID string `form:"customer_id" binding:"max=100"`
	Status     string `form:"status" binding:"omitempty,oneof=PENDING PROCESSING SUCCEEDED FAILED CANCELLED REFUNDED PARTIALLY_REFUNDED"`
	Page       int    `form:"page" binding:"omitempty,min=1"`
	PageSize   int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy    string `form:"order_by" binding:"max=50"`
	OrderDir   string `form:"order_dir" binding:"omitempty,oneof=asc desc ASC DESC"`
}

// PaymentMethodResponse represents a payment method in API responses
type PaymentMethodResponse struct {
	Type     string `json:"type"`
	LastFour string `json:"last_four,omitempty"`
	Brand    string `json:"brand,omitempty"`
	ExpMonth int    `json:"exp_month,omitempty"`
	ExpYear  int    `json:"exp_year,omitempty"`
}

// PaymentResponse represents a payment in API responses
type PaymentResponse struct {
	ID               string                 `json:"id"`
	CustomerID       string                 `json:"customer_id"`
	Amount           decimal.Decimal        `json:"amount"`
	Currency         string                 `json:"currency"`
	Status           string                 `json:"status"`
	PaymentMethod    *PaymentMethodResponse `json:"payment_method,omitempty"`
	Description      string                 `json:"description,omitempty"`
	Metadata         map[string]string      `json:"metadata,omitempty"`
	RefundedAmount   decimal.Decimal        `json:"refunded_amount"`
	RefundableAmount decimal.Decimal        `json:"refundable_amount"`
	FailureReason    string                 `json:"failure_reason,omitempty"`
	CreatedAt        time.Time              `json:"created_at"`
	UpdatedAt        time.Time              `json:"updated_at"`
}

// ToPaymentResponse converts a domain Payment to PaymentResponse
func ToPaymentResponse(p *billing.Payment) PaymentResponse {
	resp := PaymentResponse{
		ID:               p.ID().String(),
		CustomerID:       p.CustomerID(),
		Amount:           p.Amount().Amount(),
		Currency:         p.Amount().Currency().String(),
		Status:           p.Status().String(),
		Description:      p.Description(),
		Metadata:         p.Metadata(),
		RefundedAmount:   p.RefundedAmount(),
		RefundableAmount: p.RefundableAmount(),
		FailureReason:    p.FailureReason(),
		CreatedAt:        p.CreatedAt(),
		UpdatedAt:        p.UpdatedAt(),
	}
	if m, ok := p.PaymentMethod(); ok {
		method := PaymentMethodResponse{Type: m.Kind().String()}
		method.LastFour, _ = m.LastFour()
		method.Brand, _ = m.Brand()
		method.ExpMonth, _ = m.ExpMonth()
		method.ExpYear, _ = m.ExpYear()
		resp.PaymentMethod = &method
	}
	return resp
}

// ToPaymentResponses converts a slice of payments
func ToPaymentResponses(payments []*billing.Payment) []PaymentResponse {
	responses := make([]PaymentResponse, len(payments))
	for i, p := range payments {
		responses[i] = ToPaymentResponse(p)
	}
	return responses
}

// RefundRecordResponse represents a refund record in API responses
type RefundRecordResponse struct {
	ID         string          `json:"id"`
	PaymentID  string          `json:"payment_id"`
	Amount     decimal.Decimal `json:"amount"`
	RefundedAt time.Time       `json:"refunded_at"`
}

// ToRefundRecordResponses converts refund records
func ToRefundRecordResponses(records []*billing.RefundRecord) []RefundRecordResponse {
	responses := make([]RefundRecordResponse, len(records))
	for i, r := range records {
		responses[i] = RefundRecordResponse{
			ID:         r.GetID().String(),
			PaymentID:  r.PaymentID.String(),
			Amount:     r.Amount,
			RefundedAt: r.GetCreatedAt(),
		}
	}
	return responses
}

// =============================================================================
// Subscription DTOs
// =============================================================================

// CreateSubscriptionRequest represents a request to create a subscription
type CreateSubscriptionRequest struct {
	CustomerID   string          `json:"customer_id" binding:"required,min=1,max=100"`
	PlanID       string          `json:"plan_id" binding:"required,min=1,max=100"`
	Amount       decimal.Decimal `json:"amount"`
	Currency     string          `json:"currency" binding:"omitempty,currency"`
	BillingCycle string          `json:"billing_cycle" binding:"required"`
}

// CancelSubscriptionRequest represents a request to cancel a subscription
type CancelSubscriptionRequest struct {
	AtPeriodEnd bool `json:"at_period_end"`
}

// SubscriptionListQuery holds list filters from the query string
type SubscriptionListQuery struct {
	CustomerID string `form:"customer_id" binding:"max=100"`
	PlanID     string `form:"plan_id" binding:"max=100"`
	Status     string `form:"status" binding:"omitempty,oneof=ACTIVE TRIALING PAST_DUE CANCELLED PAUSED"`
	Page       int    `form:"page" binding:"omitempty,min=1"`
	PageSize   int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy    string `form:"order_by" binding:"max=50"`
	OrderDir   string `form:"order_dir" binding:"omitempty,oneof=asc desc ASC DESC"`
}

// SubscriptionResponse represents a subscription in API responses
type SubscriptionResponse struct {
	ID                 string          `json:"id"`
	CustomerID         string          `json:"customer_id"`
	PlanID             string          `json:"plan_id"`
	Status             string          `json:"status"`
	BillingCycle       string          `json:"billing_cycle"`
	Amount             decimal.Decimal `json:"amount"`
	Currency           string          `json:"currency"`
	CurrentPeriodStart time.Time       `json:"current_period_start"`
	CurrentPeriodEnd   time.Time       `json:"current_period_end"`
	CancelAtPeriodEnd  bool            `json:"cancel_at_period_end"`
	CancelledAt        *time.Time      `json:"cancelled_at,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// ToSubscriptionResponse converts a domain Subscription to SubscriptionResponse
func ToSubscriptionResponse(s *billing.Subscription) SubscriptionResponse {
	resp := SubscriptionResponse{
		ID:                 s.ID().String(),
		CustomerID:         s.CustomerID(),
		PlanID:             s.PlanID(),
		Status:             s.Status().String(),
		BillingCycle:       s.BillingCycle().String(),
		Amount:             s.Amount().Amount(),
		Currency:           s.Amount().Currency().String(),
		CurrentPeriodStart: s.CurrentPeriodStart(),
		CurrentPeriodEnd:   s.CurrentPeriodEnd(),
		CancelAtPeriodEnd:  s.CancelAtPeriodEnd(),
		CreatedAt:          s.CreatedAt(),
		UpdatedAt:          s.UpdatedAt(),
	}
	if at, ok := s.CancelledAt(); ok {
		resp.CancelledAt = &at
	}
	return resp
}

// ToSubscriptionResponses converts a slice of subscriptions
func ToSubscriptionResponses(subs []*billing.Subscription) []SubscriptionResponse {
	responses := make([]SubscriptionResponse, len(subs))
	for i, s := range subs {
		responses[i] = ToSubscriptionResponse(s)
	}
	return responses
}

// RenewalRunResult summarizes one renewal pass
type RenewalRunResult struct {
	AsOf      time.Time `json:"as_of"`
	Due       int       `json:"due"`
	Renewed   int       `json:"renewed"`
	Cancelled int       `json:"cancelled"`
	Skipped   int       `json:"skipped"`
	Failed    int       `json:"failed"`
}
