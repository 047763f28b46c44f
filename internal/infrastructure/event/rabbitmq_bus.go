package event

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/paycore/backend/internal/domain/shared"
	"github.com/paycore/backend/internal/infrastructure/config"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// amqpChannel is the subset of *amqp.Channel the bus uses
type amqpChannel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
	Qos(prefetchCount, prefetchSize int, global bool) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// RabbitMQEventBus publishes event envelopes to a topic exchange, routed by
// event type, and consumes its own queue to run the locally subscribed
// handlers. Publishes go through a circuit breaker so a broker outage fails
// fast and leaves the entries in the outbox for retry.
type RabbitMQEventBus struct {
	ch         amqpChannel
	conn       io.Closer
	cfg        config.RabbitMQConfig
	serializer *EventSerializer
	registry   *HandlerRegistry
	breaker    *gobreaker.CircuitBreaker[any]
	logger     *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// DialRabbitMQEventBus connects to the broker and declares the exchange and queue
func DialRabbitMQEventBus(cfg config.RabbitMQConfig, serializer *EventSerializer, logger *zap.Logger) (*RabbitMQEventBus, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	bus, err := NewRabbitMQEventBus(ch, conn, cfg, serializer, logger)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	return bus, nil
}

// NewRabbitMQEventBus builds the bus on an open channel. conn may be nil.
func NewRabbitMQEventBus(ch amqpChannel, conn io.Closer, cfg config.RabbitMQConfig, serializer *EventSerializer, logger *zap.Logger) (*RabbitMQEventBus, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if err := ch.ExchangeDeclare(cfg.Exchange, "topic", true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}
	if _, err := ch.QueueDeclare(cfg.Queue, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	b := &RabbitMQEventBus{
		ch:         ch,
		conn:       conn,
		cfg:        cfg,
		serializer: serializer,
		registry:   NewHandlerRegistry(),
		logger:     logger,
	}
	b.breaker = gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:    "rabbitmq-publish",
		Timeout: cfg.BreakerOpenDelay,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	logger.Info("RabbitMQ event bus connected",
		zap.String("exchange", cfg.Exchange),
		zap.String("queue", cfg.Queue),
	)
	return b, nil
}

// Publish sends each event as a persistent JSON message with the event type
// as routing key. It stops at the first failure.
func (b *RabbitMQEventBus) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	for _, event := range events {
		body, err := b.serializer.Serialize(event)
		if err != nil {
			return fmt.Errorf("failed to serialize %s: %w", event.EventType(), err)
		}

		msg := amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    event.EventID().String(),
			Type:         event.EventType(),
			Timestamp:    event.OccurredAt(),
			Body:         body,
		}
		_, err = b.breaker.Execute(func() (any, error) {
			return nil, b.ch.PublishWithContext(ctx, b.cfg.Exchange, event.EventType(), false, false, msg)
		})
		if err != nil {
			return fmt.Errorf("failed to publish %s %s: %w", event.EventType(), event.EventID(), err)
		}

		b.logger.Debug("event published",
			zap.String("event_type", event.EventType()),
			zap.String("event_id", event.EventID().String()),
			zap.Int("size", len(body)),
		)
	}
	return nil
}

// Subscribe registers the handler and binds the queue to its event types.
// A handler without event types receives everything published to the exchange.
func (b *RabbitMQEventBus) Subscribe(handler shared.EventHandler, eventTypes ...string) {
	if len(eventTypes) == 0 {
		eventTypes = handler.EventTypes()
	}
	b.registry.Register(handler, eventTypes...)

	keys := eventTypes
	if len(keys) == 0 {
		keys = []string{"#"}
	}
	for _, key := range keys {
		if err := b.bind(key); err != nil {
			b.logger.Error("failed to bind queue for event type",
				zap.String("routing_key", key),
				zap.Error(err),
			)
		}
	}
}

func (b *RabbitMQEventBus) bind(routingKey string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ch.QueueBind(b.cfg.Queue, routingKey, b.cfg.Exchange, false, nil)
}

// Unsubscribe removes a handler. Queue bindings are left in place.
func (b *RabbitMQEventBus) Unsubscribe(handler shared.EventHandler) {
	b.registry.Unregister(handler)
}

// Start begins consuming the queue in the background
func (b *RabbitMQEventBus) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cancel != nil {
		return errors.New("event bus already running")
	}

	if err := b.ch.Qos(b.cfg.Prefetch, 0, false); err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}
	msgs, err := b.ch.Consume(b.cfg.Queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	b.cancel = cancel
	b.wg.Add(1)
	go b.consume(ctx, msgs)

	b.logger.Info("event bus started",
		zap.String("broker", "rabbitmq"),
		zap.String("queue", b.cfg.Queue),
	)
	return nil
}

func (b *RabbitMQEventBus) consume(ctx context.Context, msgs <-chan amqp.Delivery) {
	defer b.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				b.logger.Warn("delivery channel closed")
				return
			}
			b.handleDelivery(ctx, msg)
		}
	}
}

// handleDelivery acks a message once every handler succeeded. Handler
// failures requeue it; messages that cannot be decoded are rejected.
func (b *RabbitMQEventBus) handleDelivery(ctx context.Context, msg amqp.Delivery) {
	event, err := b.serializer.Deserialize(msg.Body)
	if err != nil {
		b.logger.Error("rejecting undecodable message",
			zap.String("routing_key", msg.RoutingKey),
			zap.String("message_id", msg.MessageId),
			zap.Error(err),
		)
		if nackErr := msg.Nack(false, false); nackErr != nil {
			b.logger.Error("failed to nack message", zap.Error(nackErr))
		}
		return
	}

	if err := dispatch(ctx, b.registry, b.logger, event); err != nil {
		if nackErr := msg.Nack(false, true); nackErr != nil {
			b.logger.Error("failed to nack message", zap.Error(nackErr))
		}
		return
	}

	if err := msg.Ack(false); err != nil {
		b.logger.Error("failed to ack message",
			zap.String("message_id", msg.MessageId),
			zap.Error(err),
		)
	}
}

// Stop stops consuming and closes the channel and connection
func (b *RabbitMQEventBus) Stop(ctx context.Context) error {
	b.mu.Lock()
	if b.cancel != nil {
		b.cancel()
	}
	b.mu.Unlock()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(10 * time.Second):
		b.logger.Warn("timed out waiting for consumer to stop")
	}

	var errs []error
	if err := b.ch.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close channel: %w", err))
	}
	if b.conn != nil {
		if err := b.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close connection: %w", err))
		}
	}
	b.logger.Info("event bus stopped", zap.String("broker", "rabbitmq"))
	return errors.Join(errs...)
}

// BreakerState returns the publish circuit breaker's state
func (b *RabbitMQEventBus) BreakerState() gobreaker.State {
	return b.breaker.State()
}

var _ shared.EventBus = (*RabbitMQEventBus)(nil)
