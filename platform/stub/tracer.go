package stub

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/schwarzerdavid/family-helper/platform/types"
)

// Tracer implements the Tracer contract by logging span lifecycles instead
// of exporting them. Span ids are short random hex so concurrent spans can
// be told apart in the log stream.
type Tracer struct {
	logger types.Logger
}

// NewTracer creates the stub tracer. A nil logger falls back to a console
// logger.
func NewTracer(log types.Logger) *Tracer {
	if log == nil {
		log = fallbackLogger()
	}
	return &Tracer{logger: log}
}

func spanID() string {
	return uuid.NewString()[:8]
}

// StartSpan runs fn inside a logged span and passes its result through
// unchanged. The span outcome mirrors fn's error.
func (t *Tracer) StartSpan(ctx context.Context, name string, fn func(ctx context.Context) (any, error)) (any, error) {
	id := spanID()
	t.logger.Debug("Starting tracing span", types.Fields{
		"span_name": name,
		"span_id":   id,
	})

	start := time.Now()
	result, err := fn(ctx)
	duration := time.Since(start).Milliseconds()

	if err != nil {
		t.logger.Error("Tracing span failed", types.Fields{
			"span_name":  name,
			"span_id":    id,
			"duration":   duration,
			"error":      err,
			"error_type": fmt.Sprintf("%T", err),
		})
		return result, err
	}

	t.logger.Debug("Tracing span completed", types.Fields{
		"span_name": name,
		"span_id":   id,
		"duration":  duration,
	})
	return result, nil
}

// CurrentTraceID returns the ambient trace id, empty when none is set.
func (t *Tracer) CurrentTraceID() string {
	traceID := os.Getenv("TRACE_ID")
	t.logger.Debug("Getting current trace ID", types.Fields{"trace_id": traceID})
	return traceID
}

// WithSpan opens a logged span that the caller closes with End.
func (t *Tracer) WithSpan(ctx context.Context, name string) *types.Span {
	id := spanID()
	t.logger.Debug("Starting manual tracing span", types.Fields{
		"span_name": name,
		"span_id":   id,
	})

	start := time.Now()
	return types.NewSpan(func(err error) {
		duration := time.Since(start).Milliseconds()
		if err != nil {
			t.logger.Error("Manual tracing span failed", types.Fields{
				"span_name":  name,
				"span_id":    id,
				"duration":   duration,
				"error":      err,
				"error_type": fmt.Sprintf("%T", err),
			})
			return
		}
		t.logger.Debug("Manual tracing span completed", types.Fields{
			"span_name": name,
			"span_id":   id,
			"duration":  duration,
		})
	})
}
