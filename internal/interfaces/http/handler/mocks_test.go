package handler

import (
	"context"

	"github.com/google/uuid"
	billingapp "github.com/paycore/backend/internal/application/billing"
	"github.com/paycore/backend/internal/application/event"
	"github.com/paycore/backend/internal/domain/shared"
	"github.com/stretchr/testify/mock"
)

type mockPaymentService struct {
	mock.Mock
}

func (m *mockPaymentService) payment(args mock.Arguments) (*billingapp.PaymentResponse, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billingapp.PaymentResponse), args.Error(1)
}

func (m *mockPaymentService) Create(ctx context.Context, req billingapp.CreatePaymentRequest) (*billingapp.PaymentResponse, error) {
	return m.payment(m.Called(ctx, req))
}

func (m *mockPaymentService) Process(ctx context.Context, id string, req billingapp.PaymentMethodRequest) (*billingapp.PaymentResponse, error) {
	return m.payment(m.Called(ctx, id, req))
}

func (m *mockPaymentService) Succeed(ctx context.Context, id string) (*billingapp.PaymentResponse, error) {
	return m.payment(m.Called(ctx, id))
}

func (m *mockPaymentService) Fail(ctx context.Context, id string, req billingapp.FailPaymentRequest) (*billingapp.PaymentResponse, error) {
	return m.payment(m.Called(ctx, id, req))
}

func (m *mockPaymentService) Refund(ctx context.Context, id string, req billingapp.RefundPaymentRequest) (*billingapp.PaymentResponse, error) {
	return m.payment(m.Called(ctx, id, req))
}

func (m *mockPaymentService) Get(ctx context.Context, id string) (*billingapp.PaymentResponse, error) {
	return m.payment(m.Called(ctx, id))
}

func (m *mockPaymentService) List(ctx context.Context, query billingapp.PaymentListQuery) (shared.Paginated[billingapp.PaymentResponse], error) {
	args := m.Called(ctx, query)
	return args.Get(0).(shared.Paginated[billingapp.PaymentResponse]), args.Error(1)
}

func (m *mockPaymentService) ListRefunds(ctx context.Context, id string) ([]billingapp.RefundRecordResponse, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]billingapp.RefundRecordResponse), args.Error(1)
}

func (m *mockPaymentService) HandleProviderCallback(ctx context.Context, req billingapp.ProviderCallbackRequest) (*billingapp.CallbackResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billingapp.CallbackResult), args.Error(1)
}

type mockSubscriptionService struct {
	mock.Mock
}

func (m *mockSubscriptionService) subscription(args mock.Arguments) (*billingapp.SubscriptionResponse, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billingapp.SubscriptionResponse), args.Error(1)
}

func (m *mockSubscriptionService) Create(ctx context.Context, req billingapp.CreateSubscriptionRequest) (*billingapp.SubscriptionResponse, error) {
	return m.subscription(m.Called(ctx, req))
}

func (m *mockSubscriptionService) Renew(ctx context.Context, id string) (*billingapp.SubscriptionResponse, error) {
	return m.subscription(m.Called(ctx, id))
}

func (m *mockSubscriptionService) Cancel(ctx context.Context, id string, req billingapp.CancelSubscriptionRequest) (*billingapp.SubscriptionResponse, error) {
	return m.subscription(m.Called(ctx, id, req))
}

func (m *mockSubscriptionService) Pause(ctx context.Context, id string) (*billingapp.SubscriptionResponse, error) {
	return m.subscription(m.Called(ctx, id))
}

func (m *mockSubscriptionService) Resume(ctx context.Context, id string) (*billingapp.SubscriptionResponse, error) {
	return m.subscription(m.Called(ctx, id))
}

func (m *mockSubscriptionService) ReportPaymentFailure(ctx context.Context, id string) (*billingapp.SubscriptionResponse, error) {
	return m.subscription(m.Called(ctx, id))
}

func (m *mockSubscriptionService) Get(ctx context.Context, id string) (*billingapp.SubscriptionResponse, error) {
	return m.subscription(m.Called(ctx, id))
}

func (m *mockSubscriptionService) List(ctx context.Context, query billingapp.SubscriptionListQuery) (shared.Paginated[billingapp.SubscriptionResponse], error) {
	args := m.Called(ctx, query)
	return args.Get(0).(shared.Paginated[billingapp.SubscriptionResponse]), args.Error(1)
}

type mockOutboxService struct {
	mock.Mock
}

func (m *mockOutboxService) entry(args mock.Arguments) (*event.OutboxEntryDTO, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*event.OutboxEntryDTO), args.Error(1)
}

func (m *mockOutboxService) GetDeadLetterEntries(ctx context.Context, filter shared.Filter) (shared.Paginated[event.OutboxEntryDTO], error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(shared.Paginated[event.OutboxEntryDTO]), args.Error(1)
}

func (m *mockOutboxService) GetEntry(ctx context.Context, id uuid.UUID) (*event.OutboxEntryDTO, error) {
	return m.entry(m.Called(ctx, id))
}

func (m *mockOutboxService) RetryDeadEntry(ctx context.Context, id uuid.UUID) (*event.OutboxEntryDTO, error) {
	return m.entry(m.Called(ctx, id))
}

func (m *mockOutboxService) RetryAllDeadEntries(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockOutboxService) GetStats(ctx context.Context) (*event.OutboxStatsDTO, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*event.OutboxStatsDTO), args.Error(1)
}

type stubPinger struct {
	err error
}

func (p stubPinger) Ping() error {
	return p.err
}
