package billing

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/paycore/backend/internal/domain/billing"
	"github.com/paycore/backend/internal/domain/shared"
	"github.com/paycore/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 5, 10, 14, 30, 0, 0, time.UTC)

// mockPaymentRepo is a mock implementation of billing.PaymentRepository
type mockPaymentRepo struct {
	mock.Mock
}

func (m *mockPaymentRepo) Load(ctx context.Context, id billing.PaymentID) (*billing.Payment, int, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).(*billing.Payment), args.Int(1), args.Error(2)
}

func (m *mockPaymentRepo) Save(ctx context.Context, payment *billing.Payment, expectedVersion int, events ...billing.Event) error {
	args := m.Called(ctx, payment, expectedVersion, events)
	return args.Error(0)
}

func (m *mockPaymentRepo) List(ctx context.Context, filter billing.PaymentFilter) ([]*billing.Payment, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*billing.Payment), args.Get(1).(int64), args.Error(2)
}

// mockSubscriptionRepo is a mock implementation of billing.SubscriptionRepository
type mockSubscriptionRepo struct {
	mock.Mock
}

func (m *mockSubscriptionRepo) Load(ctx context.Context, id billing.SubscriptionID) (*billing.Subscription, int, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).(*billing.Subscription), args.Int(1), args.Error(2)
}

func (m *mockSubscriptionRepo) Save(ctx context.Context, sub *billing.Subscription, expectedVersion int, events ...billing.Event) error {
	args := m.Called(ctx, sub, expectedVersion, events)
	return args.Error(0)
}

func (m *mockSubscriptionRepo) List(ctx context.Context, filter billing.SubscriptionFilter) ([]*billing.Subscription, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*billing.Subscription), args.Get(1).(int64), args.Error(2)
}

func (m *mockSubscriptionRepo) FindDueForRenewal(ctx context.Context, asOf time.Time, after billing.RenewalCursor, limit int) ([]billing.DueSubscription, error) {
	args := m.Called(ctx, asOf, after, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]billing.DueSubscription), args.Error(1)
}

// mockRefundRecordRepo is a mock implementation of billing.RefundRecordRepository
type mockRefundRecordRepo struct {
	mock.Mock
}

func (m *mockRefundRecordRepo) Record(ctx context.Context, record *billing.RefundRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *mockRefundRecordRepo) ListByPayment(ctx context.Context, paymentID billing.PaymentID) ([]*billing.RefundRecord, error) {
	args := m.Called(ctx, paymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*billing.RefundRecord), args.Error(1)
}

// mockIdempotencyStore is a mock implementation of shared.IdempotencyStore
type mockIdempotencyStore struct {
	mock.Mock
}

func (m *mockIdempotencyStore) MarkProcessed(ctx context.Context, id string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, id, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *mockIdempotencyStore) IsProcessed(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *mockIdempotencyStore) Forget(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockIdempotencyStore) Close() error {
	return nil
}

// recordingLocker is an in-process AggregateLocker that remembers the keys it
// handed out
type recordingLocker struct {
	mu       sync.Mutex
	acquired []string
	released int
	err      error
}

func (l *recordingLocker) Acquire(_ context.Context, key string, _ time.Duration) (func(context.Context) error, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, l.err
	}
	l.acquired = append(l.acquired, key)
	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.released++
		return nil
	}, nil
}

// conflictCounter counts RecordConflict calls per aggregate type
type conflictCounter struct {
	mu     sync.Mutex
	counts map[string]int
}

func (c *conflictCounter) RecordConflict(_ context.Context, aggregateType string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.counts == nil {
		c.counts = make(map[string]int)
	}
	c.counts[aggregateType]++
}

func newTestFactory(ids ...string) (*billing.Factory, *shared.FixedClock) {
	clock := shared.NewFixedClock(testNow)
	return billing.NewFactory(shared.NewSequenceIDGenerator(ids...), clock), clock
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func usd(s string) valueobject.Money {
	return valueobject.MustNewMoney(dec(s), valueobject.USD)
}

// paymentIn builds a payment with id testPaymentID in the requested status
func paymentIn(t *testing.T, status billing.PaymentStatus, amount string) *billing.Payment {
	t.Helper()
	f, _ := newTestFactory("0f8fad5b-d9cb-469f-a165-70867728950e")
	p := f.NewPayment("CUST001", usd(amount))
	switch status {
	case billing.PaymentStatusPending:
	case billing.PaymentStatusProcessing, billing.PaymentStatusSucceeded:
		method, err := billing.NewPaymentMethod(billing.PaymentMethodCard, billing.WithLastFour("4242"))
		require.NoError(t, err)
		require.NoError(t, p.Process(method))
		if status == billing.PaymentStatusSucceeded {
			require.NoError(t, p.Succeed())
		}
	default:
		t.Fatalf("unsupported status %s", status)
	}
	p.TakeEvents()
	return p
}

const testPaymentID = "pay_0f8fad5bd9cb469fa1657086"

func subscriptionWith(t *testing.T, id string, clock *shared.FixedClock, mutate func(*billing.Subscription)) *billing.Subscription {
	t.Helper()
	f := billing.NewFactory(shared.NewSequenceIDGenerator(id), clock)
	sub, err := f.NewSubscription("CUST001", "plan-pro", usd("29.00"), billing.BillingCycleMonthly)
	require.NoError(t, err)
	if mutate != nil {
		mutate(sub)
	}
	sub.TakeEvents()
	return sub
}

func eventTypes(events []billing.Event) []string {
	types := make([]string, len(events))
	for i, e := range events {
		types[i] = e.EventType()
	}
	return types
}
