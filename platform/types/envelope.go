package types

import (
	"time"

	"github.com/google/uuid"
)

// EventEnvelope is the wire form of a published event. Stub and broker
// implementations deliver the same shape, so handlers are portable between
// them.
type EventEnvelope struct {
	ID             string            `json:"id"`
	Type           string            `json:"type"`
	OccurredAt     string            `json:"occurred_at"`
	Payload        any               `json:"payload"`
	IdempotencyKey string            `json:"idempotency_key"`
	Trace          map[string]string `json:"trace,omitempty"`
}

// NewEnvelope wraps payload in an envelope for eventType. The idempotency
// key defaults to a fresh uuid when empty. A non-empty traceID is carried as
// the envelope's traceparent entry; without one the envelope has no trace.
func NewEnvelope(eventType string, payload any, idempotencyKey, traceID string) EventEnvelope {
	key := idempotencyKey
	if key == "" {
		key = uuid.NewString()
	}
	envelope := EventEnvelope{
		ID:             uuid.NewString(),
		Type:           eventType,
		OccurredAt:     time.Now().UTC().Format(time.RFC3339Nano),
		Payload:        payload,
		IdempotencyKey: key,
	}
	if traceID != "" {
		envelope.Trace = map[string]string{"traceparent": traceID}
	}
	return envelope
}

// ObjectMeta carries the metadata returned for a stored object.
type ObjectMeta struct {
	ETag string
}
