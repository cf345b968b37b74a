// Package logger provides the structured console logger used by every
// platform service. It writes one compact JSON object per entry so the
// output can be parsed by log aggregation systems without extra framing.
package logger

import (
	"encoding/json"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/schwarzerdavid/family-helper/platform/types"
)

// ConsoleLogger implements the Logger contract with JSON output on two
// streams: error entries go to the error stream, everything else to the
// standard stream.
//
// Entries merge three layers with later layers overriding earlier ones:
// the standard fields (timestamp, level, msg), the logger's base fields,
// then the call-site meta. A call can therefore override any field,
// including the standard ones.
//
// Base fields are immutable after construction; the write lock only
// serializes stream writes, and is shared with derived loggers so
// concurrent entries stay line-atomic.
type ConsoleLogger struct {
	writeMu    *sync.Mutex
	stdout     io.Writer
	stderr     io.Writer
	baseFields types.Fields
}

// New creates a console logger writing to os.Stdout and os.Stderr. The
// given base fields are layered over the defaults: service "unknown" and
// the detected environment (ENVIRONMENT, then ENV, then "development").
func New(baseFields types.Fields) *ConsoleLogger {
	return NewWithStreams(baseFields, os.Stdout, os.Stderr)
}

// NewWithStreams creates a console logger writing to the given streams.
// Nil writers fall back to os.Stdout and os.Stderr. Tests inject buffers
// here to assert on emitted entries.
func NewWithStreams(baseFields types.Fields, stdout, stderr io.Writer) *ConsoleLogger {
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}

	merged := types.Fields{
		"service":     "unknown",
		"environment": detectEnvironment(),
	}
	for k, v := range baseFields {
		merged[k] = v
	}

	return &ConsoleLogger{
		writeMu:    &sync.Mutex{},
		stdout:     stdout,
		stderr:     stderr,
		baseFields: merged,
	}
}

// Info logs an informational message.
func (l *ConsoleLogger) Info(msg string, meta types.Fields) {
	l.write("info", msg, meta)
}

// Warn logs a warning message.
func (l *ConsoleLogger) Warn(msg string, meta types.Fields) {
	l.write("warn", msg, meta)
}

// Error logs an error message on the error stream.
func (l *ConsoleLogger) Error(msg string, meta types.Fields) {
	l.write("error", msg, meta)
}

// Debug logs a debug message. The gate is evaluated per call: entries are
// emitted when the logger's environment is "development" or the process has
// LOG_LEVEL=debug set, so flipping LOG_LEVEL at runtime takes effect
// immediately.
func (l *ConsoleLogger) Debug(msg string, meta types.Fields) {
	if !l.debugEnabled() {
		return
	}
	l.write("debug", msg, meta)
}

// WithFields returns a child logger carrying the combined base fields. The
// child copies the parent's fields, so neither logger observes the other's
// later derivations.
func (l *ConsoleLogger) WithFields(fields types.Fields) types.Logger {
	combined := make(types.Fields, len(l.baseFields)+len(fields))
	for k, v := range l.baseFields {
		combined[k] = v
	}
	for k, v := range fields {
		combined[k] = v
	}

	return &ConsoleLogger{
		writeMu:    l.writeMu,
		stdout:     l.stdout,
		stderr:     l.stderr,
		baseFields: combined,
	}
}

func (l *ConsoleLogger) debugEnabled() bool {
	environment, _ := l.baseFields["environment"].(string)
	return environment == "development" || strings.ToLower(os.Getenv("LOG_LEVEL")) == "debug"
}

// write assembles and emits one entry. Marshal failures drop the entry
// rather than corrupting the stream with partial output.
func (l *ConsoleLogger) write(level, msg string, meta types.Fields) {
	entry := make(types.Fields, len(l.baseFields)+len(meta)+3)
	entry["timestamp"] = time.Now().UTC().Format(time.RFC3339Nano)
	entry["level"] = level
	entry["msg"] = msg
	for k, v := range l.baseFields {
		entry[k] = normalizeValue(v)
	}
	for k, v := range meta {
		entry[k] = normalizeValue(v)
	}

	jsonBytes, err := json.Marshal(entry)
	if err != nil {
		return
	}

	out := l.stdout
	if level == "error" {
		out = l.stderr
	}

	l.writeMu.Lock()
	defer l.writeMu.Unlock()
	out.Write(jsonBytes)
	out.Write([]byte("\n"))
}

// normalizeValue keeps field values JSON-serializable. Errors marshal to
// empty objects by default, so they are rendered through Error() instead.
func normalizeValue(v any) any {
	if err, ok := v.(error); ok && err != nil {
		return err.Error()
	}
	return v
}

func detectEnvironment() string {
	if env := os.Getenv("ENVIRONMENT"); env != "" {
		return env
	}
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "development"
}
