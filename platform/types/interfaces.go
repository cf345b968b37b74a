// Package types defines the capability contracts shared by every platform
// service implementation: the in-memory stubs, the production adapters and
// the test doubles.
//
// Application code depends on these interfaces only; the factory decides
// which implementation backs each capability at startup.
package types

import (
	"context"
	"sync"
	"time"
)

// Fields represents structured logging fields as key-value pairs.
// Values must be JSON-serializable.
type Fields map[string]any

// Logger defines the contract for structured logging.
// Implementations emit one compact JSON object per entry so the output can
// be shipped to log aggregation as-is.
type Logger interface {
	// Info logs routine operational information.
	Info(msg string, meta Fields)

	// Warn logs potentially harmful situations that do not prevent operation.
	Warn(msg string, meta Fields)

	// Error logs failures. Entries are routed to the error stream.
	Error(msg string, meta Fields)

	// Debug logs diagnostic detail. Suppressed outside development unless
	// LOG_LEVEL=debug is set for the process.
	Debug(msg string, meta Fields)

	// WithFields returns a child logger whose entries always carry the given
	// fields. The receiver is never modified.
	WithFields(fields Fields) Logger
}

// Config defines typed access to configuration values.
// Resolved values are cached by key: the first resolution wins for the
// lifetime of the instance, regardless of the defaults later calls carry.
type Config interface {
	// Get resolves key to a typed value. A default, when given, both fills
	// in for a missing key and hints the conversion of a present one.
	Get(key string, required bool, defaultValue ...any) (any, error)

	// GetInt resolves key and coerces the value to an int.
	GetInt(key string, required bool, defaultValue ...int) (int, error)

	// GetBool resolves key and coerces the value to a bool.
	GetBool(key string, required bool, defaultValue ...bool) (bool, error)

	// GetFloat resolves key and coerces the value to a float64.
	GetFloat(key string, required bool, defaultValue ...float64) (float64, error)

	// GetKeysWithPrefix returns every live key/value pair whose key starts
	// with prefix. The resolution cache is bypassed.
	GetKeysWithPrefix(prefix string) map[string]string
}

// Secrets defines read access to named secrets.
type Secrets interface {
	// Get returns the secret value for name.
	Get(ctx context.Context, name string) (string, error)
}

// Db defines the contract for SQL database access.
type Db interface {
	// Query runs a read statement and returns the result rows as maps keyed
	// by column name.
	Query(ctx context.Context, query string, params ...any) ([]map[string]any, error)

	// Execute runs a write statement and returns the number of affected rows.
	Execute(ctx context.Context, query string, params ...any) (int64, error)

	// WithTx runs fn inside a transaction. The transaction commits when fn
	// returns nil and rolls back when it returns an error; the error is
	// passed through unchanged.
	WithTx(ctx context.Context, fn func(tx Db) error) error
}

// EventHandler consumes a published event. A non-nil return marks the
// delivery as failed for that handler only; other handlers still run.
type EventHandler func(event EventEnvelope) error

// UnsubscribeFunc removes the subscription it was returned for.
// Calling it more than once is harmless.
type UnsubscribeFunc func()

// PubSub defines topic-based publish/subscribe messaging.
type PubSub interface {
	// Publish wraps event in an EventEnvelope and delivers it to the topic's
	// subscribers. An idempotency key is generated when none is given.
	Publish(ctx context.Context, topic string, event any, idempotencyKey ...string) error

	// Subscribe registers handler for topic and returns the function that
	// removes exactly this registration.
	Subscribe(topic string, handler EventHandler) UnsubscribeFunc
}

// ObjectStorage defines the contract for binary object storage.
type ObjectStorage interface {
	// Put stores data under key and returns the stored object's metadata.
	Put(ctx context.Context, key string, data []byte, contentType string) (ObjectMeta, error)

	// Get returns the content stored under key.
	Get(ctx context.Context, key string) ([]byte, error)

	// PresignPut returns a pre-authorized upload URL for key, valid for
	// expiresIn.
	PresignPut(ctx context.Context, key string, expiresIn time.Duration) (string, error)

	// PresignGet returns a pre-authorized download URL for key, valid for
	// expiresIn.
	PresignGet(ctx context.Context, key string, expiresIn time.Duration) (string, error)

	// Delete removes the object under key and reports whether it existed.
	Delete(ctx context.Context, key string) (bool, error)
}

// Cache defines key-value caching with optional expiry.
type Cache interface {
	// Get returns the value under key and whether it was present and live.
	Get(ctx context.Context, key string) (any, bool, error)

	// Set stores value under key. A ttl bounds the entry's lifetime; without
	// one the entry never expires.
	Set(ctx context.Context, key string, value any, ttl ...time.Duration) error

	// Delete removes key and reports whether it was present.
	Delete(ctx context.Context, key string) (bool, error)

	// Exists reports whether key is present and live.
	Exists(ctx context.Context, key string) (bool, error)
}

// FeatureFlags defines feature flag evaluation.
type FeatureFlags interface {
	// IsEnabled reports whether flag is on for the given evaluation context.
	IsEnabled(ctx context.Context, flag string, evalCtx map[string]any) (bool, error)

	// GetValue returns the flag's configured value, or defaultValue when the
	// flag carries none.
	GetValue(ctx context.Context, flag string, defaultValue any, evalCtx map[string]any) (any, error)
}

// Tracer defines span-based tracing instrumentation.
type Tracer interface {
	// StartSpan runs fn inside a named span, logging its duration, and
	// propagates fn's result and error unchanged.
	StartSpan(ctx context.Context, name string, fn func(ctx context.Context) (any, error)) (any, error)

	// CurrentTraceID returns the trace id for the current execution, or ""
	// when no tracing context is present.
	CurrentTraceID() string

	// WithSpan opens a manually managed span. Callers finish it with End,
	// typically deferred:
	//
	//	defer tracer.WithSpan(ctx, "sync-accounts").End()
	WithSpan(ctx context.Context, name string) *Span
}

// Span is a manually managed tracing span. End records the outcome exactly
// once; later calls are no-ops.
type Span struct {
	once   sync.Once
	finish func(err error)
}

// NewSpan builds a Span that invokes finish on its first End.
// Tracer implementations use it to attach their own completion logging.
func NewSpan(finish func(err error)) *Span {
	return &Span{finish: finish}
}

// End finishes the span. Passing an error records the span as failed.
func (s *Span) End(err ...error) {
	var failure error
	if len(err) > 0 {
		failure = err[0]
	}
	s.once.Do(func() {
		if s.finish != nil {
			s.finish(failure)
		}
	})
}
