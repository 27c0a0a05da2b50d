package prometheus

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/deeptutor/sessiongate"
)

type fakeSource struct {
	snap    sessiongate.MetricsSnapshot
	dropped uint64
}

func (f fakeSource) MetricsSnapshot() sessiongate.MetricsSnapshot { return f.snap }
func (f fakeSource) AuditDropped() uint64 { return f.dropped }

func sampleSource() fakeSource {
	return fakeSource{
		snap: sessiongate.MetricsSnapshot{
			Counters: map[sessiongate.MetricID]uint64{
				sessiongate.MetricLogin:    3,
				sessiongate.MetricRedirect: 5,
			},
			Histograms: map[sessiongate.MetricID][]uint64{
				sessiongate.MetricExchangeLatency: {1, 0, 2, 0, 0, 0, 0, 1},
			},
		},
		dropped: 4,
	}
}

func TestCollectorCounters(t *testing.T) {
	c := NewCollector(sampleSource())

	expected := `
# HELP sessiongate_login_total sessiongate login count.
# TYPE sessiongate_login_total counter
sessiongate_login_total 3
# HELP sessiongate_audit_dropped_total Audit events dropped under dispatcher backpressure.
# TYPE sessiongate_audit_dropped_total counter
sessiongate_audit_dropped_total 4
`
	if err := testutil.CollectAndCompare(c, strings.NewReader(expected),
		"sessiongate_login_total", "sessiongate_audit_dropped_total"); err != nil {
		t.Fatal(err)
	}
}

func TestCollectorHistogramIsCumulative(t *testing.T) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(NewCollector(sampleSource()))

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != "sessiongate_exchange_latency_seconds" {
			continue
		}
		h := mf.GetMetric()[0].GetHistogram()
		if h.GetSampleCount() != 4 {
			t.Fatalf("sample count: %d", h.GetSampleCount())
		}
		b := h.GetBucket()
		if b[0].GetCumulativeCount() != 1 || b[2].GetCumulativeCount() != 3 || b[len(b)-1].GetCumulativeCount() != 3 {
			t.Fatalf("buckets: %v", b)
		}
		return
	}
	t.Fatal("histogram not exported")
}

func TestHandlerServesGate(t *testing.T) {
	g, err := sessiongate.New().Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer g.Close()

	rec := httptest.NewRecorder()
	Handler(g).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "sessiongate_redirect_total 0") {
		t.Fatalf("unexpected body:\n%s", body)
	}
}
