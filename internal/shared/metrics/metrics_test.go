package metrics

import (
	"strings"
	"testing"
)

func TestHistogramBucketsAreCumulative(t *testing.T) {
	h := newHistogram([]float64{10, 100})
	h.Observe(5)
	h.Observe(50)
	h.Observe(500)

	snap := h.Snapshot()
	if snap.count != 3 {
		t.Fatalf("expected count 3, got %d", snap.count)
	}
	if snap.counts[0] != 1 || snap.counts[1] != 1 {
		t.Fatalf("unexpected raw bucket counts: %v", snap.counts)
	}
}

func TestRenderIncludesRejectionReasons(t *testing.T) {
	IncValidation()
	IncRejected("duplicate_file")
	IncRejected("duplicate_file")
	IncAccepted(true)
	ObserveValidationDurationMs(12)

	out := Render()
	for _, want := range []string{
		"ballot_validations_total",
		`ballot_rejected_total{reason="duplicate_file"} 2`,
		"ballot_superseded_total 1",
		`ballot_validation_duration_ms_bucket{le="+Inf"}`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}
