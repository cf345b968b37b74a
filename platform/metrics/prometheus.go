// Package metrics provides the Prometheus recorder shared by the production
// platform adapters. Metric names follow Prometheus conventions with the
// service name as prefix.
package metrics

import (
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder collects operation metrics for platform adapters: totals by
// status, detailed error counts, durations, payload sizes and in-flight
// gauges.
//
// All methods are no-ops on a nil receiver, so adapters record
// unconditionally and the stubs simply carry no recorder.
type Recorder struct {
	serviceName string

	operationsTotal *prometheus.CounterVec
	errorsTotal     *prometheus.CounterVec
	durationSeconds *prometheus.HistogramVec
	payloadBytes    *prometheus.HistogramVec
	inProgress      *prometheus.GaugeVec
}

// New creates a Recorder with its collectors registered on reg. A nil reg
// falls back to the default Prometheus registry. Registering the same
// service name twice on one registry panics, so callers building several
// recorders pass distinct registries.
func New(serviceName string, reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	// Prometheus metric names cannot contain hyphens
	prefix := sanitizeMetricName(serviceName)

	r := &Recorder{serviceName: serviceName}

	r.operationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_operations_total", prefix),
			Help: fmt.Sprintf("Total platform operations by %s", serviceName),
		},
		[]string{"status", "operation"},
	)

	r.errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_errors_total", prefix),
			Help: fmt.Sprintf("Total platform operation errors in %s", serviceName),
		},
		[]string{"error_type", "operation"},
	)

	r.durationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    fmt.Sprintf("%s_operation_duration_seconds", prefix),
			Help:    fmt.Sprintf("Platform operation duration in %s", serviceName),
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	r.payloadBytes = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: fmt.Sprintf("%s_payload_size_bytes", prefix),
			Help: fmt.Sprintf("Payload sizes handled by %s", serviceName),
			Buckets: []float64{
				1024,       // 1KB
				10240,      // 10KB
				102400,     // 100KB
				1048576,    // 1MB
				10485760,   // 10MB
				104857600,  // 100MB
				1073741824, // 1GB
			},
		},
		[]string{"kind"},
	)

	r.inProgress = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: fmt.Sprintf("%s_in_progress", prefix),
			Help: fmt.Sprintf("Platform operations in progress in %s", serviceName),
		},
		[]string{"operation"},
	)

	reg.MustRegister(
		r.operationsTotal,
		r.errorsTotal,
		r.durationSeconds,
		r.payloadBytes,
		r.inProgress,
	)

	return r
}

// RecordSuccess increments the success counter for an operation.
func (r *Recorder) RecordSuccess(operation string) {
	if r == nil {
		return
	}
	r.operationsTotal.WithLabelValues("success", operation).Inc()
}

// RecordError increments both the failed-operations counter and the
// detailed error counter, giving high-level failure rates plus per-type
// breakdowns.
func (r *Recorder) RecordError(operation, errorType string) {
	if r == nil {
		return
	}
	r.operationsTotal.WithLabelValues("error", operation).Inc()
	r.errorsTotal.WithLabelValues(errorType, operation).Inc()
}

// RecordDuration records an operation duration in seconds. Use
// time.Since(start).Seconds().
func (r *Recorder) RecordDuration(operation string, seconds float64) {
	if r == nil {
		return
	}
	r.durationSeconds.WithLabelValues(operation).Observe(seconds)
}

// RecordPayloadSize records the size in bytes of a handled payload
// (a stored object, a published event).
func (r *Recorder) RecordPayloadSize(kind string, bytes int64) {
	if r == nil {
		return
	}
	r.payloadBytes.WithLabelValues(kind).Observe(float64(bytes))
}

// StartOperation increments the in-progress gauge for an operation.
// Pair with EndOperation, typically deferred.
func (r *Recorder) StartOperation(operation string) {
	if r == nil {
		return
	}
	r.inProgress.WithLabelValues(operation).Inc()
}

// EndOperation decrements the in-progress gauge for an operation.
func (r *Recorder) EndOperation(operation string) {
	if r == nil {
		return
	}
	r.inProgress.WithLabelValues(operation).Dec()
}

// sanitizeMetricName maps a service name onto the Prometheus name charset:
// anything outside [a-zA-Z0-9_] becomes an underscore.
func sanitizeMetricName(name string) string {
	var b strings.Builder
	for _, c := range name {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_':
			b.WriteRune(c)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "platform"
	}
	return b.String()
}
