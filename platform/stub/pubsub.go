package stub

import (
	"context"
	"fmt"
	"os"
	"runtime/debug"
	"sync"

	"github.com/schwarzerdavid/family-helper/platform/types"
)

// maxEventHistory bounds the retained event history.
const maxEventHistory = 100

// PubSub implements the PubSub contract in process memory. Events are
// wrapped in envelopes, recorded in a bounded history and dispatched to
// subscribers in their own goroutines, mirroring the fire-and-forget
// behavior of a real broker.
type PubSub struct {
	mu          sync.Mutex
	logger      types.Logger
	subscribers map[string][]*subscription
	history     []types.EventEnvelope
}

// subscription wraps a handler so each registration has its own identity.
// Two subscriptions of the same handler function unsubscribe independently.
type subscription struct {
	handler types.EventHandler
}

// NewPubSub creates the stub pub/sub service. A nil logger falls back to a
// console logger.
func NewPubSub(log types.Logger) *PubSub {
	if log == nil {
		log = fallbackLogger()
	}
	return &PubSub{
		logger:      log,
		subscribers: make(map[string][]*subscription),
	}
}

// Publish wraps event in an envelope, appends it to the history and hands
// it to every current subscriber of the topic. Publishing never fails:
// handler errors and panics are contained in the delivery goroutines.
func (p *PubSub) Publish(ctx context.Context, topic string, event any, idempotencyKey ...string) error {
	key := ""
	if len(idempotencyKey) > 0 {
		key = idempotencyKey[0]
	}
	envelope := types.NewEnvelope(topic, event, key, os.Getenv("TRACE_ID"))

	p.mu.Lock()
	handlers := make([]*subscription, len(p.subscribers[topic]))
	copy(handlers, p.subscribers[topic])

	p.history = append(p.history, envelope)
	if len(p.history) > maxEventHistory {
		p.history = p.history[1:]
	}
	p.mu.Unlock()

	p.logger.Info("Publishing event to stub pub/sub", types.Fields{
		"topic":            topic,
		"event_id":         envelope.ID,
		"idempotency_key":  envelope.IdempotencyKey,
		"payload_type":     fmt.Sprintf("%T", event),
		"subscriber_count": len(handlers),
	})

	if len(handlers) == 0 {
		p.logger.Debug("No subscribers found for topic", types.Fields{"topic": topic})
		return nil
	}

	p.logger.Debug("Notifying subscribers", types.Fields{
		"topic":            topic,
		"subscriber_count": len(handlers),
	})

	for _, sub := range handlers {
		go p.dispatch(sub.handler, envelope, topic)
	}
	return nil
}

// Subscribe registers handler for topic. The returned function removes
// exactly this registration and prunes the topic once its last subscriber
// is gone.
func (p *PubSub) Subscribe(topic string, handler types.EventHandler) types.UnsubscribeFunc {
	p.logger.Debug("Subscribing to topic", types.Fields{"topic": topic})

	sub := &subscription{handler: handler}

	p.mu.Lock()
	p.subscribers[topic] = append(p.subscribers[topic], sub)
	p.mu.Unlock()

	return func() {
		p.logger.Debug("Unsubscribing from topic", types.Fields{"topic": topic})

		p.mu.Lock()
		defer p.mu.Unlock()

		subs := p.subscribers[topic]
		for i, candidate := range subs {
			if candidate == sub {
				p.subscribers[topic] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
		if len(p.subscribers[topic]) == 0 {
			delete(p.subscribers, topic)
		}
	}
}

// History returns a copy of the retained events, newest last. Intended for
// development and tests.
func (p *PubSub) History() []types.EventEnvelope {
	p.mu.Lock()
	defer p.mu.Unlock()

	history := make([]types.EventEnvelope, len(p.history))
	copy(history, p.history)
	return history
}

// Subscriptions returns the current subscriber count per topic. Intended
// for development and tests.
func (p *PubSub) Subscriptions() map[string]int {
	p.mu.Lock()
	defer p.mu.Unlock()

	counts := make(map[string]int, len(p.subscribers))
	for topic, subs := range p.subscribers {
		counts[topic] = len(subs)
	}
	return counts
}

// dispatch runs one handler with full containment: neither a returned error
// nor a panic reaches the publisher or the sibling handlers.
func (p *PubSub) dispatch(handler types.EventHandler, envelope types.EventEnvelope, topic string) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("Event handler failed", types.Fields{
				"topic":      topic,
				"event_id":   envelope.ID,
				"error":      fmt.Sprintf("%v", r),
				"error_type": "panic",
				"stack":      string(debug.Stack()),
			})
		}
	}()

	if err := handler(envelope); err != nil {
		p.logger.Error("Event handler failed", types.Fields{
			"topic":      topic,
			"event_id":   envelope.ID,
			"error":      err.Error(),
			"error_type": fmt.Sprintf("%T", err),
		})
	}
}
