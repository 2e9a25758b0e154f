package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
)

var (
	validationsTotal      atomic.Uint64
	acceptedTotal         atomic.Uint64
	supersededTotal       atomic.Uint64
	identityChecksTotal   atomic.Uint64
	validationErrorsTotal atomic.Uint64

	rejectedByReason   = newLabeledCounter()
	validationDuration = newHistogram([]float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000})
)

// IncValidation counts a started validation.
func IncValidation() {
	validationsTotal.Add(1)
}

// IncAccepted counts an accepted vote; superseded marks a replaced prior vote.
func IncAccepted(superseded bool) {
	acceptedTotal.Add(1)
	if superseded {
		supersededTotal.Add(1)
	}
}

// IncRejected counts a rejection under its reason.
func IncRejected(reason string) {
	rejectedByReason.Inc(reason)
}

// IncValidationError counts validations that ended in an infrastructure error.
func IncValidationError() {
	validationErrorsTotal.Add(1)
}

// IncIdentityCheck counts identity-only verifications.
func IncIdentityCheck() {
	identityChecksTotal.Add(1)
}

// ObserveValidationDurationMs records a validation duration in milliseconds.
func ObserveValidationDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	validationDuration.Observe(value)
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/plain; version=0.0.4")
		c.String(http.StatusOK, Render())
	}
}

// Render renders metrics in Prometheus text format.
func Render() string {
	var buf bytes.Buffer
	writeCounter(&buf, "ballot_validations_total", "Total declaration validations started", validationsTotal.Load())
	writeCounter(&buf, "ballot_accepted_total", "Total votes accepted", acceptedTotal.Load())
	writeCounter(&buf, "ballot_superseded_total", "Total accepted votes that replaced a prior vote", supersededTotal.Load())
	writeLabeledCounter(&buf, "ballot_rejected_total", "Total votes rejected by reason", "reason", rejectedByReason.Snapshot())
	writeCounter(&buf, "ballot_validation_errors_total", "Total validations failed by infrastructure errors", validationErrorsTotal.Load())
	writeCounter(&buf, "ballot_identity_checks_total", "Total identity-only verifications", identityChecksTotal.Load())
	writeHistogram(&buf, "ballot_validation_duration_ms", "Validation duration in milliseconds", validationDuration.Snapshot())
	return buf.String()
}

type labeledCounter struct {
	mu     sync.Mutex
	values map[string]uint64
}

func newLabeledCounter() *labeledCounter {
	return &labeledCounter{values: make(map[string]uint64)}
}

func (l *labeledCounter) Inc(label string) {
	l.mu.Lock()
	l.values[label]++
	l.mu.Unlock()
}

func (l *labeledCounter) Snapshot() map[string]uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string]uint64, len(l.values))
	for k, v := range l.values {
		out[k] = v
	}
	return out
}

type histogram struct {
	mu      sync.Mutex
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

type histogramSnapshot struct {
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

func newHistogram(buckets []float64) *histogram {
	return &histogram{
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
}

// Observe records value in the first bucket whose bound holds it; Render
// accumulates the counts.
func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
			return
		}
	}
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
}

func writeCounter(buf *bytes.Buffer, name, help string, value uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	fmt.Fprintf(buf, "%s %d\n", name, value)
}

func writeLabeledCounter(buf *bytes.Buffer, name, help, label string, values map[string]uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(buf, "%s{%s=%q} %d\n", name, label, k, values[k])
	}
}

func writeHistogram(buf *bytes.Buffer, name, help string, snap histogramSnapshot) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s histogram\n", name)
	var cumulative uint64
	for i, bound := range snap.buckets {
		cumulative += snap.counts[i]
		fmt.Fprintf(buf, "%s_bucket{le=\"%s\"} %d\n", name, formatFloat(bound), cumulative)
	}
	fmt.Fprintf(buf, "%s_bucket{le=\"+Inf\"} %d\n", name, snap.count)
	fmt.Fprintf(buf, "%s_sum %s\n", name, formatFloat(snap.sum))
	fmt.Fprintf(buf, "%s_count %d\n", name, snap.count)
}

func formatFloat(value float64) string {
	if value == float64(int64(value)) {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}

// Since returns the milliseconds elapsed since start.
func Since(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}
