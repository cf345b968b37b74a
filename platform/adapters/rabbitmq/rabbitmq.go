// Package rabbitmq adapts a RabbitMQ connection to the PubSub contract.
// Topics map to durable queues on the default exchange.
package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"

	"github.com/schwarzerdavid/family-helper/platform/metrics"
	"github.com/schwarzerdavid/family-helper/platform/types"
)

// Config carries the connection settings for the RabbitMQ adapter.
type Config struct {
	// URL is an amqp:// connection URL.
	URL string
	// PrefetchCount limits unacked deliveries per consumer. Zero leaves
	// the broker default.
	PrefetchCount int
}

// PubSub implements the PubSub contract on a RabbitMQ connection. Publishes
// share one channel; every subscription gets its own consumer channel.
type PubSub struct {
	mu      sync.Mutex
	conn    *amqp091.Connection
	channel *amqp091.Channel
	cfg     Config
	logger  types.Logger
	metrics *metrics.Recorder
}

// New connects to RabbitMQ and opens the publish channel.
func New(cfg Config, log types.Logger, rec *metrics.Recorder) (*PubSub, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("rabbitmq: URL is required")
	}

	conn, err := amqp091.Dial(cfg.URL)
	if err != nil {
		log.Error("Failed to connect to RabbitMQ", types.Fields{"error": err})
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		log.Error("Failed to create channel", types.Fields{"error": err})
		return nil, fmt.Errorf("failed to create channel: %w", err)
	}

	log.Info("RabbitMQ pub/sub initialized successfully", nil)

	return &PubSub{
		conn:    conn,
		channel: channel,
		cfg:     cfg,
		logger:  log,
		metrics: rec,
	}, nil
}

// Publish wraps event in an envelope and publishes it to the topic's queue
// with persistent delivery. The queue is declared idempotently first, so
// publishing to a new topic creates it.
func (p *PubSub) Publish(ctx context.Context, topic string, event any, idempotencyKey ...string) error {
	start := time.Now()

	key := ""
	if len(idempotencyKey) > 0 {
		key = idempotencyKey[0]
	}
	envelope := types.NewEnvelope(topic, event, key, os.Getenv("TRACE_ID"))

	body, err := json.Marshal(envelope)
	if err != nil {
		p.logger.Error("Failed to marshal event envelope", types.Fields{"topic": topic, "error": err})
		p.metrics.RecordError("pubsub_publish", "marshal_failed")
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	// The publish channel is shared, serialize declare+publish on it.
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, err := p.channel.QueueDeclare(
		topic, // queue name
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	); err != nil {
		p.logger.Error("Failed to declare queue", types.Fields{"topic": topic, "error": err})
		p.metrics.RecordError("pubsub_publish", "declare_failed")
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	err = p.channel.PublishWithContext(
		ctx,
		"",    // default exchange routes by queue name
		topic, // routing key
		false, // mandatory
		false, // immediate
		amqp091.Publishing{
			DeliveryMode:  amqp091.Persistent,
			ContentType:   "application/json",
			MessageId:     envelope.ID,
			CorrelationId: envelope.IdempotencyKey,
			Timestamp:     time.Now(),
			Body:          body,
		},
	)
	if err != nil {
		p.logger.Error("Failed to publish event", types.Fields{"topic": topic, "error": err})
		p.metrics.RecordError("pubsub_publish", "publish_failed")
		return fmt.Errorf("failed to publish event: %w", err)
	}

	p.logger.Info("Event published", types.Fields{
		"topic":           topic,
		"event_id":        envelope.ID,
		"idempotency_key": envelope.IdempotencyKey,
		"size":            len(body),
	})
	p.metrics.RecordSuccess("pubsub_publish")
	p.metrics.RecordPayloadSize("publish", int64(len(body)))
	p.metrics.RecordDuration("pubsub_publish", time.Since(start).Seconds())

	return nil
}

// Subscribe starts a consumer on the topic's queue and dispatches decoded
// envelopes to handler. Failures to start the consumer are logged and yield
// a no-op unsubscribe; the returned function cancels the consumer tag and
// closes its channel.
func (p *PubSub) Subscribe(topic string, handler types.EventHandler) types.UnsubscribeFunc {
	ch, err := p.conn.Channel()
	if err != nil {
		p.logger.Error("Failed to open consumer channel", types.Fields{"topic": topic, "error": err})
		return func() {}
	}

	if p.cfg.PrefetchCount > 0 {
		if err := ch.Qos(p.cfg.PrefetchCount, 0, false); err != nil {
			p.logger.Error("Failed to set QoS", types.Fields{"topic": topic, "error": err})
			ch.Close()
			return func() {}
		}
	}

	queue, err := ch.QueueDeclare(
		topic, // queue name
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		p.logger.Error("Failed to declare queue", types.Fields{"topic": topic, "error": err})
		ch.Close()
		return func() {}
	}

	tag := "consumer-" + uuid.NewString()
	deliveries, err := ch.Consume(
		queue.Name,
		tag,
		false, // auto-ack off, ack after the handler
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		p.logger.Error("Failed to start consumer", types.Fields{"topic": topic, "error": err})
		ch.Close()
		return func() {}
	}

	p.logger.Info("RabbitMQ consumer started", types.Fields{
		"topic":        topic,
		"consumer_tag": tag,
		"prefetch":     p.cfg.PrefetchCount,
	})

	go func() {
		for msg := range deliveries {
			p.processDelivery(handler, msg, topic)
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			p.logger.Info("Stopping RabbitMQ consumer", types.Fields{
				"topic":        topic,
				"consumer_tag": tag,
			})
			if err := ch.Cancel(tag, false); err != nil {
				p.logger.Error("Failed to cancel consumer", types.Fields{
					"consumer_tag": tag,
					"error":        err,
				})
			}
			ch.Close()
		})
	}
}

// Close closes the publish channel and the connection. Consumer channels
// close with the connection.
func (p *PubSub) Close() error {
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// processDelivery decodes one delivery and runs the handler. Success acks;
// failure nacks with one requeue attempt; undecodable payloads are dropped
// because redelivery cannot fix them.
func (p *PubSub) processDelivery(handler types.EventHandler, msg amqp091.Delivery, topic string) {
	start := time.Now()

	var envelope types.EventEnvelope
	if err := json.Unmarshal(msg.Body, &envelope); err != nil {
		p.logger.Error("Failed to decode event envelope", types.Fields{
			"topic": topic,
			"error": err,
		})
		p.metrics.RecordError("pubsub_consume", "decode_failed")
		msg.Nack(false, false)
		return
	}

	p.logger.Debug("Processing event", types.Fields{
		"topic":       topic,
		"event_id":    envelope.ID,
		"redelivered": msg.Redelivered,
	})

	err := invoke(handler, envelope)

	if err == nil {
		if ackErr := msg.Ack(false); ackErr != nil {
			p.logger.Error("Failed to ack message", types.Fields{
				"event_id": envelope.ID,
				"error":    ackErr,
			})
		}
		p.logger.Info("Event processed successfully", types.Fields{
			"topic":       topic,
			"event_id":    envelope.ID,
			"duration_ms": time.Since(start).Milliseconds(),
		})
		p.metrics.RecordSuccess("pubsub_consume")
	} else {
		requeue := !msg.Redelivered
		if nackErr := msg.Nack(false, requeue); nackErr != nil {
			p.logger.Error("Failed to nack message", types.Fields{
				"event_id": envelope.ID,
				"error":    nackErr,
			})
		}

		fields := types.Fields{
			"topic":      topic,
			"event_id":   envelope.ID,
			"error":      err,
			"error_type": fmt.Sprintf("%T", err),
			"requeued":   requeue,
		}
		var pe *panicError
		if errors.As(err, &pe) {
			fields["error_type"] = "panic"
			fields["stack"] = string(pe.stack)
		}
		p.logger.Error("Event processing failed", fields)
		p.metrics.RecordError("pubsub_consume", fmt.Sprintf("%v", fields["error_type"]))
	}

	p.metrics.RecordDuration("pubsub_consume", time.Since(start).Seconds())
}

// invoke runs handler with panics converted to errors so one bad event
// cannot take the consumer goroutine down.
func invoke(handler types.EventHandler, envelope types.EventEnvelope) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &panicError{value: r, stack: debug.Stack()}
		}
	}()
	return handler(envelope)
}

type panicError struct {
	value any
	stack []byte
}

func (e *panicError) Error() string {
	return fmt.Sprintf("handler panic: %v", e.value)
}
