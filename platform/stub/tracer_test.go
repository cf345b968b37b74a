package stub

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracer_StartSpanPassesResultThrough(t *testing.T) {
	log, stdout, _ := newCapturedLogger()
	tracer := NewTracer(log)

	result, err := tracer.StartSpan(context.Background(), "load-profile", func(ctx context.Context) (any, error) {
		return "profile-data", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "profile-data", result)

	entries := logEntries(stdout)
	start := findEntry(t, entries, "Starting tracing span")
	done := findEntry(t, entries, "Tracing span completed")
	assert.Equal(t, "load-profile", start["span_name"])
	assert.Equal(t, start["span_id"], done["span_id"])
	assert.GreaterOrEqual(t, done["duration"], float64(0))
}

func TestTracer_StartSpanPropagatesError(t *testing.T) {
	log, _, stderr := newCapturedLogger()
	tracer := NewTracer(log)

	boom := errors.New("load failed")
	result, err := tracer.StartSpan(context.Background(), "load-profile", func(ctx context.Context) (any, error) {
		return nil, boom
	})
	require.ErrorIs(t, err, boom)
	assert.Nil(t, result)

	entry := findEntry(t, logEntries(stderr), "Tracing span failed")
	assert.Equal(t, "load failed", entry["error"])
	assert.Equal(t, "*errors.errorString", entry["error_type"])
}

func TestTracer_SpanIDsDiffer(t *testing.T) {
	log, stdout, _ := newCapturedLogger()
	tracer := NewTracer(log)

	for i := 0; i < 2; i++ {
		_, err := tracer.StartSpan(context.Background(), "repeat", func(ctx context.Context) (any, error) {
			return nil, nil
		})
		require.NoError(t, err)
	}

	ids := map[any]bool{}
	for _, entry := range logEntries(stdout) {
		if entry["msg"] == "Starting tracing span" {
			ids[entry["span_id"]] = true
		}
	}
	assert.Len(t, ids, 2)
}

func TestTracer_CurrentTraceID(t *testing.T) {
	log, _, _ := newCapturedLogger()
	tracer := NewTracer(log)

	t.Setenv("TRACE_ID", "trace-777")
	assert.Equal(t, "trace-777", tracer.CurrentTraceID())

	t.Setenv("TRACE_ID", "")
	assert.Equal(t, "", tracer.CurrentTraceID())
}

func TestTracer_WithSpanEndLogsCompletion(t *testing.T) {
	log, stdout, _ := newCapturedLogger()
	tracer := NewTracer(log)

	span := tracer.WithSpan(context.Background(), "sync-calendar")
	span.End()

	entries := logEntries(stdout)
	start := findEntry(t, entries, "Starting manual tracing span")
	done := findEntry(t, entries, "Manual tracing span completed")
	assert.Equal(t, "sync-calendar", start["span_name"])
	assert.Equal(t, start["span_id"], done["span_id"])
}

func TestTracer_WithSpanEndWithError(t *testing.T) {
	log, _, stderr := newCapturedLogger()
	tracer := NewTracer(log)

	span := tracer.WithSpan(context.Background(), "sync-calendar")
	span.End(errors.New("upstream timeout"))

	entry := findEntry(t, logEntries(stderr), "Manual tracing span failed")
	assert.Equal(t, "upstream timeout", entry["error"])
	assert.Equal(t, "*errors.errorString", entry["error_type"])
}

func TestTracer_SpanEndIsIdempotent(t *testing.T) {
	log, stdout, _ := newCapturedLogger()
	tracer := NewTracer(log)

	span := tracer.WithSpan(context.Background(), "once")
	span.End()
	span.End()
	span.End(errors.New("late error"))

	var completions int
	for _, entry := range logEntries(stdout) {
		if entry["msg"] == "Manual tracing span completed" {
			completions++
		}
	}
	assert.Equal(t, 1, completions)
}
