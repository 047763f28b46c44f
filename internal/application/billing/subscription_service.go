package billing

import (
	"context"

	"github.com/paycore/backend/internal/domain/billing"
	"github.com/paycore/backend/internal/domain/shared"
	"github.com/paycore/backend/internal/domain/shared/valueobject"
	"github.com/paycore/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// SubscriptionService runs subscription use cases
type SubscriptionService struct {
	subscriptions   billing.SubscriptionRepository
	factory         *billing.Factory
	defaultCurrency valueobject.Currency
	runner          *mutationRunner
	logger          *zap.Logger
}

// SubscriptionServiceConfig contains configuration for SubscriptionService
type SubscriptionServiceConfig struct {
	Subscriptions   billing.SubscriptionRepository
	Factory         *billing.Factory
	DefaultCurrency string
	Mutation        MutationOptions
	Logger          *zap.Logger
}

// NewSubscriptionService creates a new SubscriptionService
func NewSubscriptionService(cfg SubscriptionServiceConfig) *SubscriptionService {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	factory := cfg.Factory
	if factory == nil {
		factory = billing.NewFactory(nil, nil)
	}
	currency := valueobject.DefaultCurrency
	if c, err := valueobject.ParseCurrency(cfg.DefaultCurrency); err == nil {
		currency = c
	}
	return &SubscriptionService{
		subscriptions:   cfg.Subscriptions,
		factory:         factory,
		defaultCurrency: currency,
		runner:          newMutationRunner(cfg.Mutation, logger),
		logger:          logger,
	}
}

// Create starts an active subscription whose first period begins today
func (s *SubscriptionService) Create(ctx context.Context, req CreateSubscriptionRequest) (*SubscriptionResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "subscription", "create",
		telemetry.WithAttribute(telemetry.SpanAttrCustomerID, req.CustomerID))
	defer span.End()

	cycle, err := billing.ParseBillingCycle(req.BillingCycle)
	if err != nil {
		return nil, err
	}
	amount, err := newMoney(req.Amount, req.Currency, s.defaultCurrency)
	if err != nil {
		return nil, err
	}

	sub, err := s.factory.NewSubscription(req.CustomerID, req.PlanID, amount, cycle)
	if err != nil {
		return nil, err
	}
	if err := s.subscriptions.Save(ctx, sub, 0, sub.TakeEvents()...); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetAttributes(span, telemetry.SpanAttrSubscriptionID, sub.ID().String())
	s.logger.Info("Subscription created",
		zap.String("subscription_id", sub.ID().String()),
		zap.String("customer_id", req.CustomerID),
		zap.String("plan_id", req.PlanID),
		zap.String("billing_cycle", cycle.String()))

	resp := ToSubscriptionResponse(sub)
	return &resp, nil
}

// Renew advances the subscription by one billing period
func (s *SubscriptionService) Renew(ctx context.Context, id string) (*SubscriptionResponse, error) {
	return s.mutate(ctx, "renew", id, func(sub *billing.Subscription) []billing.Event {
		sub.Renew()
		return nil
	})
}

// Cancel cancels now, or flags the subscription to end with its current period
func (s *SubscriptionService) Cancel(ctx context.Context, id string, req CancelSubscriptionRequest) (*SubscriptionResponse, error) {
	return s.mutate(ctx, "cancel", id, func(sub *billing.Subscription) []billing.Event {
		sub.Cancel(req.AtPeriodEnd)
		return nil
	})
}

// Pause pauses the subscription
func (s *SubscriptionService) Pause(ctx context.Context, id string) (*SubscriptionResponse, error) {
	return s.mutate(ctx, "pause", id, func(sub *billing.Subscription) []billing.Event {
		sub.Pause()
		return nil
	})
}

// Resume reactivates a paused subscription; other statuses are left as they are
func (s *SubscriptionService) Resume(ctx context.Context, id string) (*SubscriptionResponse, error) {
	return s.mutate(ctx, "resume", id, func(sub *billing.Subscription) []billing.Event {
		sub.Resume()
		return nil
	})
}

// ReportPaymentFailure announces that collecting the subscription's charge
// failed. The subscription itself is not changed; dunning consumers react to
// the SubscriptionPaymentFailed event.
func (s *SubscriptionService) ReportPaymentFailure(ctx context.Context, id string) (*SubscriptionResponse, error) {
	return s.mutate(ctx, "report_payment_failure", id, func(sub *billing.Subscription) []billing.Event {
		return []billing.Event{billing.NewSubscriptionPaymentFailedEvent(sub.ID(), s.factory.Clock().Now())}
	})
}

// Get returns a subscription by id
func (s *SubscriptionService) Get(ctx context.Context, id string) (*SubscriptionResponse, error) {
	sub, _, err := s.subscriptions.Load(ctx, billing.SubscriptionID(id))
	if err != nil {
		return nil, err
	}
	resp := ToSubscriptionResponse(sub)
	return &resp, nil
}

// List returns a page of subscriptions
func (s *SubscriptionService) List(ctx context.Context, query SubscriptionListQuery) (shared.Paginated[SubscriptionResponse], error) {
	filter := billing.SubscriptionFilter{
		Filter: shared.Filter{
			Page:     query.Page,
			PageSize: query.PageSize,
			OrderBy:  query.OrderBy,
			OrderDir: query.OrderDir,
		}.Normalize(),
		CustomerID: query.CustomerID,
		PlanID:     query.PlanID,
		Status:     billing.SubscriptionStatus(query.Status),
	}
	subs, total, err := s.subscriptions.List(ctx, filter)
	if err != nil {
		return shared.Paginated[SubscriptionResponse]{}, err
	}
	return shared.NewPaginated(ToSubscriptionResponses(subs), total, filter.Page, filter.PageSize), nil
}

// mutate applies fn under the aggregate lock and saves the aggregate's own
// events followed by any extra events fn returns
func (s *SubscriptionService) mutate(ctx context.Context, method, id string, fn func(*billing.Subscription) []billing.Event) (*SubscriptionResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "subscription", method,
		telemetry.WithAttribute(telemetry.SpanAttrSubscriptionID, id))
	defer span.End()

	sub, err := s.apply(ctx, billing.SubscriptionID(id), fn)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.logger.Info("Subscription updated",
		zap.String("subscription_id", id),
		zap.String("operation", method),
		zap.String("status", sub.Status().String()))
	resp := ToSubscriptionResponse(sub)
	return &resp, nil
}

func (s *SubscriptionService) apply(ctx context.Context, id billing.SubscriptionID, fn func(*billing.Subscription) []billing.Event) (*billing.Subscription, error) {
	var result *billing.Subscription
	err := s.runner.run(ctx, billing.AggregateTypeSubscription, id.String(), func(ctx context.Context) error {
		sub, version, err := s.subscriptions.Load(ctx, id)
		if err != nil {
			return err
		}
		extra := fn(sub)
		events := append(sub.TakeEvents(), extra...)
		if err := s.subscriptions.Save(ctx, sub, version, events...); err != nil {
			return err
		}
		result = sub
		return nil
	})
	return result, err
}
