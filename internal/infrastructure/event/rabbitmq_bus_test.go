package event

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/paycore/backend/internal/domain/billing"
	"github.com/paycore/backend/internal/infrastructure/config"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeChannel struct {
	mu         sync.Mutex
	exchanges  []string
	queues     []string
	bindings   []string
	published  []amqp.Publishing
	keys       []string
	publishErr error
	deliveries chan amqp.Delivery
	closed     bool
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{deliveries: make(chan amqp.Delivery, 10)}
}

func (c *fakeChannel) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.exchanges = append(c.exchanges, name+":"+kind)
	return nil
}

func (c *fakeChannel) QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queues = append(c.queues, name)
	return amqp.Queue{Name: name}, nil
}

func (c *fakeChannel) QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bindings = append(c.bindings, key)
	return nil
}

func (c *fakeChannel) Qos(prefetchCount, prefetchSize int, global bool) error { return nil }

func (c *fakeChannel) Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error) {
	return c.deliveries, nil
}

func (c *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.publishErr != nil {
		return c.publishErr
	}
	c.published = append(c.published, msg)
	c.keys = append(c.keys, key)
	return nil
}

func (c *fakeChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// fakeAcker records how a delivery was settled
type fakeAcker struct {
	mu      sync.Mutex
	acked   int
	nacked  int
	requeue bool
}

func (a *fakeAcker) Ack(tag uint64, multiple bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.acked++
	return nil
}

func (a *fakeAcker) Nack(tag uint64, multiple, requeue bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nacked++
	a.requeue = requeue
	return nil
}

func (a *fakeAcker) Reject(tag uint64, requeue bool) error {
	return a.Nack(tag, false, requeue)
}

func (a *fakeAcker) settled() (int, int, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.acked, a.nacked, a.requeue
}

func testRabbitConfig() config.RabbitMQConfig {
	return config.RabbitMQConfig{
		Exchange:         "paycore.events",
		Queue:            "paycore.billing",
		Prefetch:         5,
		BreakerFailures:  2,
		BreakerOpenDelay: time.Minute,
	}
}

func newTestRabbitBus(t *testing.T) (*RabbitMQEventBus, *fakeChannel) {
	t.Helper()
	ch := newFakeChannel()
	bus, err := NewRabbitMQEventBus(ch, nil, testRabbitConfig(), NewBillingEventSerializer(), zap.NewNop())
	require.NoError(t, err)
	return bus, ch
}

func TestRabbitMQEventBus_DeclaresTopology(t *testing.T) {
	_, ch := newTestRabbitBus(t)
	assert.Equal(t, []string{"paycore.events:topic"}, ch.exchanges)
	assert.Equal(t, []string{"paycore.billing"}, ch.queues)
}

func TestRabbitMQEventBus_PublishRoutesByEventType(t *testing.T) {
	bus, ch := newTestRabbitBus(t)
	event := newRefundedEvent("12.5")

	require.NoError(t, bus.Publish(context.Background(), event))

	require.Len(t, ch.published, 1)
	msg := ch.published[0]
	assert.Equal(t, billing.EventTypePaymentRefunded, ch.keys[0])
	assert.Equal(t, "application/json", msg.ContentType)
	assert.Equal(t, amqp.Persistent, msg.DeliveryMode)
	assert.Equal(t, event.EventID().String(), msg.MessageId)

	decoded, err := NewBillingEventSerializer().Deserialize(msg.Body)
	require.NoError(t, err)
	assert.Equal(t, event.EventID(), decoded.EventID())
}

func TestRabbitMQEventBus_BreakerOpensAfterFailures(t *testing.T) {
	bus, ch := newTestRabbitBus(t)
	ch.publishErr = errors.New("connection reset")
	ctx := context.Background()

	require.Error(t, bus.Publish(ctx, newRefundedEvent("1")))
	require.Error(t, bus.Publish(ctx, newRefundedEvent("1")))
	assert.Equal(t, gobreaker.StateOpen, bus.BreakerState())

	ch.publishErr = nil
	err := bus.Publish(ctx, newRefundedEvent("1"))
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Empty(t, ch.published)
}

func TestRabbitMQEventBus_SubscribeBindsRoutingKeys(t *testing.T) {
	bus, ch := newTestRabbitBus(t)
	bus.Subscribe(newTestHandler(billing.EventTypePaymentRefunded, billing.EventTypePaymentSucceeded))
	bus.Subscribe(newTestHandler())

	assert.Equal(t, []string{billing.EventTypePaymentRefunded, billing.EventTypePaymentSucceeded, "#"}, ch.bindings)
}

func TestRabbitMQEventBus_ConsumeSettlesDeliveries(t *testing.T) {
	bus, ch := newTestRabbitBus(t)
	handler := newTestHandler(billing.EventTypePaymentRefunded)
	bus.Subscribe(handler)
	require.NoError(t, bus.Start(context.Background()))
	require.Error(t, bus.Start(context.Background()), "second start is refused")

	body, err := NewBillingEventSerializer().Serialize(newRefundedEvent("3"))
	require.NoError(t, err)

	good := &fakeAcker{}
	ch.deliveries <- amqp.Delivery{Acknowledger: good, DeliveryTag: 1, Body: body}
	assert.Eventually(t, func() bool { acked, _, _ := good.settled(); return acked == 1 }, time.Second, 5*time.Millisecond)
	assert.Len(t, handler.getHandled(), 1)

	handler.setError(errors.New("projection down"))
	failing := &fakeAcker{}
	ch.deliveries <- amqp.Delivery{Acknowledger: failing, DeliveryTag: 2, Body: body}
	assert.Eventually(t, func() bool { _, nacked, requeue := failing.settled(); return nacked == 1 && requeue }, time.Second, 5*time.Millisecond)

	garbage := &fakeAcker{}
	ch.deliveries <- amqp.Delivery{Acknowledger: garbage, DeliveryTag: 3, Body: []byte(`{`)}
	assert.Eventually(t, func() bool { _, nacked, requeue := garbage.settled(); return nacked == 1 && !requeue }, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, bus.Stop(ctx))
	assert.True(t, ch.closed)
}
