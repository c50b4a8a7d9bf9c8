package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

// TestInitializeMetrics verifies pre-population does not panic and that
// counters start at zero.
func TestInitializeMetrics(t *testing.T) {
	InitializeMetrics()

	if got := testutil.ToFloat64(IngestTotal.WithLabelValues("success")); got != 0 {
		t.Errorf("ingest success counter = %v, want 0", got)
	}
	if got := testutil.ToFloat64(BlobOperationsTotal.WithLabelValues("write", "success")); got != 0 {
		t.Errorf("blob write counter = %v, want 0", got)
	}
}

// TestCounterIncrement verifies label routing on the ingest counter.
func TestCounterIncrement(t *testing.T) {
	before := testutil.ToFloat64(IngestTotal.WithLabelValues("rollback"))
	IngestTotal.WithLabelValues("rollback").Inc()
	after := testutil.ToFloat64(IngestTotal.WithLabelValues("rollback"))

	if after != before+1 {
		t.Errorf("rollback counter = %v, want %v", after, before+1)
	}
}
