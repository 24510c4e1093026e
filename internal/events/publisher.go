// ABOUTME: Publisher interface with RabbitMQ, no-op, and recording implementations
// ABOUTME: The AMQP publisher declares a durable topic exchange and publishes with confirms

package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
)

// Publisher emits event envelopes under a routing key.
type Publisher interface {
	Publish(ctx context.Context, key string, msg Envelope) error
	Close() error
}

// AMQPPublisher publishes envelopes to a RabbitMQ topic exchange.
type AMQPPublisher struct {
	conn     *amqp091.Connection
	exchange string
	logger   *slog.Logger
}

// NewAMQPPublisher dials RabbitMQ with retry and declares the exchange.
func NewAMQPPublisher(ctx context.Context, opts ConnectionOptions, exchange string) (*AMQPPublisher, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "events")

	conn, err := DialWithRetry(ctx, opts)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("opening channel: %w", err)
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("declaring exchange %s: %w", exchange, err)
	}

	logger.Info("event publisher ready", "exchange", exchange)
	return &AMQPPublisher{
		conn:     conn,
		exchange: exchange,
		logger:   logger,
	}, nil
}

// Publish sends msg on its own confirm-mode channel and waits for the broker ack.
func (p *AMQPPublisher) Publish(ctx context.Context, key string, msg Envelope) error {
	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("opening channel: %w", err)
	}
	defer ch.Close()

	if err := ch.Confirm(false); err != nil {
		return fmt.Errorf("enabling confirms: %w", err)
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encoding envelope: %w", err)
	}

	msgID := msg.Meta.ID
	if msgID == "" {
		msgID = uuid.NewString()
	}
	cid := ""
	if msg.Meta.CorrelationID != nil {
		cid = *msg.Meta.CorrelationID
	}

	confirm, err := ch.PublishWithDeferredConfirmWithContext(
		ctx, p.exchange, key, false, false,
		amqp091.Publishing{
			ContentType:   "application/json",
			DeliveryMode:  amqp091.Persistent,
			MessageId:     msgID,
			CorrelationId: cid,
			Timestamp:     time.Now(),
			Type:          msg.Meta.Type,
			Body:          body,
		},
	)
	if err != nil {
		return fmt.Errorf("publishing %s: %w", key, err)
	}

	acked, err := confirm.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("waiting for confirm on %s: %w", key, err)
	}
	if !acked {
		return fmt.Errorf("broker nacked %s", key)
	}

	p.logger.Debug("published", "key", key, "exchange", p.exchange, "id", msgID)
	return nil
}

// Close closes the underlying connection.
func (p *AMQPPublisher) Close() error {
	return p.conn.Close()
}

// NopPublisher drops every event. Used when events are disabled.
type NopPublisher struct {
	logger *slog.Logger
}

// NewNopPublisher creates a publisher that only logs at debug level.
func NewNopPublisher(logger *slog.Logger) *NopPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &NopPublisher{logger: logger}
}

func (p *NopPublisher) Publish(ctx context.Context, key string, msg Envelope) error {
	p.logger.Debug("events disabled: skipped publish", "key", key)
	return nil
}

func (p *NopPublisher) Close() error {
	return nil
}

// Published is one envelope captured by Recorder.
type Published struct {
	Key      string
	Envelope Envelope
}

// Recorder keeps published envelopes in memory for tests.
// Setting Err makes every Publish fail with it.
type Recorder struct {
	mu     sync.Mutex
	events []Published
	Err    error
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Publish(ctx context.Context, key string, msg Envelope) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.Err != nil {
		return r.Err
	}
	r.events = append(r.events, Published{Key: key, Envelope: msg})
	return nil
}

func (r *Recorder) Close() error {
	return nil
}

// Events returns a copy of everything published so far.
func (r *Recorder) Events() []Published {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Published, len(r.events))
	copy(out, r.events)
	return out
}
