package stub

import (
	"bytes"
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"github.com/schwarzerdavid/family-helper/platform/logger"
	"github.com/schwarzerdavid/family-helper/platform/types"
)

// syncBuffer is a bytes.Buffer safe for the asynchronous tests, where
// dispatch goroutines write log entries while the test polls the capture.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// newCapturedLogger returns a debug-enabled logger writing into buffers so
// tests can assert on the emitted entries.
func newCapturedLogger() (types.Logger, *syncBuffer, *syncBuffer) {
	stdout := &syncBuffer{}
	stderr := &syncBuffer{}
	log := logger.NewWithStreams(types.Fields{"environment": "development"}, stdout, stderr)
	return log, stdout, stderr
}

// logEntries decodes every complete JSON line currently in the capture.
func logEntries(buf *syncBuffer) []map[string]any {
	var entries []map[string]any
	for _, line := range strings.Split(buf.String(), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	return entries
}

// findEntry returns the first entry with the given message, failing the
// test when none matches.
func findEntry(t *testing.T, entries []map[string]any, msg string) map[string]any {
	t.Helper()

	for _, entry := range entries {
		if entry["msg"] == msg {
			return entry
		}
	}
	t.Fatalf("no log entry with msg %q", msg)
	return nil
}
