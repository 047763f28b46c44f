package billing_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/paycore/backend/internal/domain/billing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPaymentMethod(t *testing.T) {
	tests := []struct {
		name    string
		kind    billing.PaymentMethodKind
		opts    []billing.PaymentMethodOption
		wantErr bool
	}{
		{"card with details", billing.PaymentMethodCard, []billing.PaymentMethodOption{billing.WithLastFour("4242"), billing.WithExpiry(1, 2030)}, false},
		{"bank transfer without details", billing.PaymentMethodBankTransfer, nil, false},
		{"crypto", billing.PaymentMethodCrypto, []billing.PaymentMethodOption{billing.WithBrand("btc")}, false},
		{"unknown kind", billing.PaymentMethodKind("cheque"), nil, true},
		{"month 13", billing.PaymentMethodCard, []billing.PaymentMethodOption{billing.WithExpiry(13, 2030)}, true},
		{"month 0 with year", billing.PaymentMethodCard, []billing.PaymentMethodOption{billing.WithExpiry(0, 2030)}, false},
		{"short last four", billing.PaymentMethodCard, []billing.PaymentMethodOption{billing.WithLastFour("42")}, true},
		{"letters in last four", billing.PaymentMethodCard, []billing.PaymentMethodOption{billing.WithLastFour("42a2")}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := billing.NewPaymentMethod(tt.kind, tt.opts...)
			if tt.wantErr {
				assert.True(t, errors.Is(err, billing.ErrInvalidPaymentMethod))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestPaymentMethodAccessors(t *testing.T) {
	m, err := billing.NewPaymentMethod(billing.PaymentMethodCard, billing.WithBrand("visa"), billing.WithLastFour("4242"), billing.WithExpiry(12, 2030))
	require.NoError(t, err)

	brand, ok := m.Brand()
	assert.True(t, ok)
	assert.Equal(t, "visa", brand)
	last, _ := m.LastFour()
	assert.Equal(t, "4242", last)
	month, _ := m.ExpMonth()
	year, _ := m.ExpYear()
	assert.Equal(t, 12, month)
	assert.Equal(t, 2030, year)

	bare, err := billing.NewPaymentMethod(billing.PaymentMethodWallet)
	require.NoError(t, err)
	_, ok = bare.Brand()
	assert.False(t, ok)
	_, ok = bare.ExpMonth()
	assert.False(t, ok)
}

func TestPaymentMethodJSON(t *testing.T) {
	m, err := billing.NewPaymentMethod(billing.PaymentMethodCard, billing.WithBrand("visa"), billing.WithLastFour("4242"))
	require.NoError(t, err)

	data, err := json.Marshal(m)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"card","brand":"visa","last_four":"4242"}`, string(data))

	var decoded billing.PaymentMethod
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.True(t, decoded.Equals(m))

	assert.Error(t, json.Unmarshal([]byte(`{"type":"card","exp_month":14}`), &decoded))
}

func TestPaymentID(t *testing.T) {
	id, err := billing.ParsePaymentID("pay_0123456789abcdef01234567")
	require.NoError(t, err)
	assert.Equal(t, "pay_0123456789abcdef01234567", id.String())

	for _, bad := range []string{"", "pay_", "sub_123", "0123"} {
		_, err := billing.ParsePaymentID(bad)
		assert.True(t, errors.Is(err, billing.ErrInvalidPaymentID), bad)
	}
}

func TestEventFamilies(t *testing.T) {
	events := []billing.Event{
		billing.NewPaymentFailedEvent("pay_1", "declined", testNow),
		billing.NewSubscriptionPaymentFailedEvent("sub-1", testNow),
	}

	_, isPayment := events[0].(billing.PaymentEvent)
	_, isSubscription := events[0].(billing.SubscriptionEvent)
	assert.True(t, isPayment)
	assert.False(t, isSubscription)

	_, isPayment = events[1].(billing.PaymentEvent)
	_, isSubscription = events[1].(billing.SubscriptionEvent)
	assert.False(t, isPayment)
	assert.True(t, isSubscription)

	domainEvents := billing.ToDomainEvents(events)
	require.Len(t, domainEvents, 2)
	assert.Equal(t, billing.EventTypePaymentFailed, domainEvents[0].EventType())
	assert.Equal(t, billing.EventTypeSubscriptionPaymentFailed, domainEvents[1].EventType())
}

func TestEventPayloadCarriesOnlyFacts(t *testing.T) {
	ev := billing.NewPaymentRefundedEvent("pay_1", dec("40.50"), testNow)
	data, err := json.Marshal(ev)
	require.NoError(t, err)
	assert.JSONEq(t, `{"payment_id":"pay_1","amount":"40.5"}`, string(data))

	cancelled := billing.NewSubscriptionCancelledEvent("sub-1", true, testNow)
	data, err = json.Marshal(cancelled)
	require.NoError(t, err)
	assert.JSONEq(t, `{"subscription_id":"sub-1","at_period_end":true}`, string(data))
}
