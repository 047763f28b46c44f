package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/paycore/backend/internal/domain/billing"
	"github.com/paycore/backend/internal/domain/shared"
	"github.com/paycore/backend/internal/domain/shared/valueobject"
	"github.com/paycore/backend/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const defaultCallbackTTL = 72 * time.Hour

var (
	errNegativeAmount   = shared.NewDomainError(shared.ErrInvalidInput.Code, "Amount cannot be negative")
	errUnknownOutcome   = shared.NewDomainError(shared.ErrInvalidInput.Code, "Unknown callback outcome")
	errInvalidCurrency  = shared.NewDomainError(shared.ErrInvalidInput.Code, "Invalid currency")
	errAmountScale      = shared.NewDomainError(shared.ErrInvalidInput.Code, "Amount cannot have more than 4 decimal places")
	errIdempotencyCheck = shared.NewDomainError("INTERNAL_ERROR", "Failed to check callback idempotency")
)

// PaymentService runs payment use cases: every mutation loads the payment,
// applies one aggregate operation and saves it with its events
type PaymentService struct {
	payments        billing.PaymentRepository
	refunds         billing.RefundRecordRepository
	factory         *billing.Factory
	idempotency     shared.IdempotencyStore
	callbackTTL     time.Duration
	defaultCurrency valueobject.Currency
	runner          *mutationRunner
	logger          *zap.Logger
}

// PaymentServiceConfig contains configuration for PaymentService
type PaymentServiceConfig struct {
	Payments billing.PaymentRepository
	Refunds  billing.RefundRecordRepository
	Factory  *billing.Factory
	// Idempotency deduplicates provider callbacks. Optional.
	Idempotency shared.IdempotencyStore
	// CallbackTTL is how long a callback event id is remembered. Default: 72h
	CallbackTTL     time.Duration
	DefaultCurrency string
	Mutation        MutationOptions
	Logger          *zap.Logger
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(cfg PaymentServiceConfig) *PaymentService {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	factory := cfg.Factory
	if factory == nil {
		factory = billing.NewFactory(nil, nil)
	}
	ttl := cfg.CallbackTTL
	if ttl <= 0 {
		ttl = defaultCallbackTTL
	}
	currency := valueobject.DefaultCurrency
	if c, err := valueobject.ParseCurrency(cfg.DefaultCurrency); err == nil {
		currency = c
	}
	return &PaymentService{
		payments:        cfg.Payments,
		refunds:         cfg.Refunds,
		factory:         factory,
		idempotency:     cfg.Idempotency,
		callbackTTL:     ttl,
		defaultCurrency: currency,
		runner:          newMutationRunner(cfg.Mutation, logger),
		logger:          logger,
	}
}

// Create creates a pending payment
func (s *PaymentService) Create(ctx context.Context, req CreatePaymentRequest) (*PaymentResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "create",
		telemetry.WithAttribute(telemetry.SpanAttrCustomerID, req.CustomerID))
	defer span.End()

	amount, err := newMoney(req.Amount, req.Currency, s.defaultCurrency)
	if err != nil {
		return nil, err
	}

	var opts []billing.PaymentOption
	if req.Description != "" {
		opts = append(opts, billing.WithDescription(req.Description))
	}
	if len(req.Metadata) > 0 {
		opts = append(opts, billing.WithMetadata(req.Metadata))
	}

	payment := s.factory.NewPayment(req.CustomerID, amount, opts...)
	if err := s.payments.Save(ctx, payment, 0, payment.TakeEvents()...); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetAttributes(span,
		telemetry.SpanAttrPaymentID, payment.ID().String(),
		telemetry.SpanAttrAmount, amount.Amount().String(),
		telemetry.SpanAttrCurrency, amount.Currency().String())
	s.logger.Info("Payment created",
		zap.String("payment_id", payment.ID().String()),
		zap.String("customer_id", req.CustomerID),
		zap.String("amount", amount.String()))

	resp := ToPaymentResponse(payment)
	return &resp, nil
}

// Process attaches the payment method and moves a pending payment to processing
func (s *PaymentService) Process(ctx context.Context, id string, req PaymentMethodRequest) (*PaymentResponse, error) {
	method, err := toPaymentMethod(req)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, "process", id, func(p *billing.Payment) error {
		return p.Process(method)
	})
}

// Succeed marks a processing payment as succeeded
func (s *PaymentService) Succeed(ctx context.Context, id string) (*PaymentResponse, error) {
	return s.mutate(ctx, "succeed", id, func(p *billing.Payment) error {
		return p.Succeed()
	})
}

// Fail marks the payment as failed. It applies from any status.
func (s *PaymentService) Fail(ctx context.Context, id string, req FailPaymentRequest) (*PaymentResponse, error) {
	return s.mutate(ctx, "fail", id, func(p *billing.Payment) error {
		p.Fail(req.Reason)
		return nil
	})
}

// Refund refunds part or all of the remaining amount, in the payment's currency
func (s *PaymentService) Refund(ctx context.Context, id string, req RefundPaymentRequest) (*PaymentResponse, error) {
	return s.mutate(ctx, "refund", id, func(p *billing.Payment) error {
		return p.Refund(req.Amount)
	})
}

// Get returns a payment by id
func (s *PaymentService) Get(ctx context.Context, id string) (*PaymentResponse, error) {
	pid, err := billing.ParsePaymentID(id)
	if err != nil {
		return nil, err
	}
	payment, _, err := s.payments.Load(ctx, pid)
	if err != nil {
		return nil, err
	}
	resp := ToPaymentResponse(payment)
	return &resp, nil
}

// List returns a page of payments
func (s *PaymentService) List(ctx context.Context, query PaymentListQuery) (shared.Paginated[PaymentResponse], error) {
	filter := billing.PaymentFilter{
		Filter: shared.Filter{
			Page:     query.Page,
			PageSize: query.PageSize,
			OrderBy:  query.OrderBy,
			OrderDir: query.OrderDir,
		}.Normalize(),
		CustomerID: query.CustomerID,
		Status:     billing.PaymentStatus(query.Status),
	}
	payments, total, err := s.payments.List(ctx, filter)
	if err != nil {
		return shared.Paginated[PaymentResponse]{}, err
	}
	return shared.NewPaginated(ToPaymentResponses(payments), total, filter.Page, filter.PageSize), nil
}

// ListRefunds returns the refund records of a payment, oldest first
func (s *PaymentService) ListRefunds(ctx context.Context, id string) ([]RefundRecordResponse, error) {
	pid, err := billing.ParsePaymentID(id)
	if err != nil {
		return nil, err
	}
	if _, _, err := s.payments.Load(ctx, pid); err != nil {
		return nil, err
	}
	records, err := s.refunds.ListByPayment(ctx, pid)
	if err != nil {
		return nil, err
	}
	return ToRefundRecordResponses(records), nil
}

// HandleProviderCallback applies a provider's asynchronous result. A callback
// whose EventID was already applied is acknowledged without touching the
// payment; a callback that fails is forgotten so the provider's retry is
// applied.
func (s *PaymentService) HandleProviderCallback(ctx context.Context, req ProviderCallbackRequest) (*CallbackResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "callback",
		telemetry.WithAttribute(telemetry.SpanAttrEventID, req.EventID),
		telemetry.WithAttribute(telemetry.SpanAttrPaymentID, req.PaymentID))
	defer span.End()

	result := &CallbackResult{EventID: req.EventID, PaymentID: req.PaymentID}
	if req.Outcome != CallbackOutcomeSucceeded && req.Outcome != CallbackOutcomeFailed {
		return nil, errUnknownOutcome
	}

	key := "callback:" + req.EventID
	if s.idempotency != nil {
		isNew, err := s.idempotency.MarkProcessed(ctx, key, s.callbackTTL)
		if err != nil {
			s.logger.Error("Failed to check callback idempotency",
				zap.String("event_id", req.EventID),
				zap.Error(err))
			telemetry.RecordError(span, err)
			return nil, fmt.Errorf("%w: %v", errIdempotencyCheck, err)
		}
		if !isNew {
			s.logger.Info("Duplicate provider callback ignored",
				zap.String("event_id", req.EventID),
				zap.String("payment_id", req.PaymentID))
			result.Duplicate = true
			return result, nil
		}
	}

	var (
		resp *PaymentResponse
		err  error
	)
	if req.Outcome == CallbackOutcomeSucceeded {
		resp, err = s.Succeed(ctx, req.PaymentID)
	} else {
		resp, err = s.Fail(ctx, req.PaymentID, FailPaymentRequest{Reason: req.Reason})
	}
	if err != nil {
		if s.idempotency != nil {
			if forgetErr := s.idempotency.Forget(context.WithoutCancel(ctx), key); forgetErr != nil {
				s.logger.Warn("Failed to forget callback after error",
					zap.String("event_id", req.EventID),
					zap.Error(forgetErr))
			}
		}
		s.logger.Error("Failed to apply provider callback",
			zap.String("event_id", req.EventID),
			zap.String("payment_id", req.PaymentID),
			zap.String("outcome", string(req.Outcome)),
			zap.Error(err))
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.logger.Info("Provider callback applied",
		zap.String("event_id", req.EventID),
		zap.String("payment_id", req.PaymentID),
		zap.String("status", resp.Status))
	result.Processed = true
	result.Status = resp.Status
	return result, nil
}

func (s *PaymentService) mutate(ctx context.Context, method, id string, fn func(*billing.Payment) error) (*PaymentResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", method,
		telemetry.WithAttribute(telemetry.SpanAttrPaymentID, id))
	defer span.End()

	pid, err := billing.ParsePaymentID(id)
	if err != nil {
		return nil, err
	}

	var payment *billing.Payment
	err = s.runner.run(ctx, billing.AggregateTypePayment, pid.String(), func(ctx context.Context) error {
		p, version, err := s.payments.Load(ctx, pid)
		if err != nil {
			return err
		}
		if err := fn(p); err != nil {
			return err
		}
		if err := s.payments.Save(ctx, p, version, p.TakeEvents()...); err != nil {
			return err
		}
		payment = p
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.logger.Info("Payment updated",
		zap.String("payment_id", pid.String()),
		zap.String("operation", method),
		zap.String("status", payment.Status().String()))
	resp := ToPaymentResponse(payment)
	return &resp, nil
}

func newMoney(amount decimal.Decimal, currency string, fallback valueobject.Currency) (valueobject.Money, error) {
	if amount.IsNegative() {
		return valueobject.Money{}, errNegativeAmount
	}
	if !valueobject.HasValidScale(amount) {
		return valueobject.Money{}, errAmountScale
	}
	c := fallback
	if currency != "" {
		parsed, err := valueobject.ParseCurrency(currency)
		if err != nil {
			return valueobject.Money{}, fmt.Errorf("%w: %v", errInvalidCurrency, err)
		}
		c = parsed
	}
	return valueobject.NewMoney(amount, c)
}

func toPaymentMethod(req PaymentMethodRequest) (billing.PaymentMethod, error) {
	var opts []billing.PaymentMethodOption
	if req.LastFour != "" {
		opts = append(opts, billing.WithLastFour(req.LastFour))
	}
	if req.Brand != "" {
		opts = append(opts, billing.WithBrand(req.Brand))
	}
	if req.ExpMonth != 0 || req.ExpYear != 0 {
		opts = append(opts, billing.WithExpiry(req.ExpMonth, req.ExpYear))
	}
	return billing.NewPaymentMethod(billing.PaymentMethodKind(req.Type), opts...)
}
