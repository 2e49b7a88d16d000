package prometheus

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/MrEthical07/tokenkeeper"
)

type fakeSource struct {
	snapshot tokenkeeper.MetricsSnapshot
	dropped  uint64
}

func (f fakeSource) MetricsSnapshot() tokenkeeper.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDropped() uint64                         { return f.dropped }

func TestRenderEmptyWhenMetricsDisabled(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: tokenkeeper.MetricsSnapshot{
			Counters:   map[tokenkeeper.MetricID]uint64{},
			Histograms: map[tokenkeeper.MetricID][]uint64{},
		},
	})

	if got := exp.Render(); got != "" {
		t.Fatalf("expected empty output for disabled metrics, got:\n%s", got)
	}
}

func TestRenderIncludesCounterAndHistogram(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: tokenkeeper.MetricsSnapshot{
			Counters: map[tokenkeeper.MetricID]uint64{
				tokenkeeper.MetricLoginSuccess:         7,
				tokenkeeper.MetricRefreshReuseDetected: 1,
			},
			Histograms: map[tokenkeeper.MetricID][]uint64{
				tokenkeeper.MetricAuthenticateLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
			LatencySums: map[tokenkeeper.MetricID]time.Duration{
				tokenkeeper.MetricAuthenticateLatency: 1500 * time.Millisecond,
			},
		},
		dropped: 2,
	})

	out := exp.Render()
	for _, want := range []string{
		"tokenkeeper_login_success_total 7",
		"tokenkeeper_refresh_reuse_detected_total 1",
		`tokenkeeper_authenticate_latency_seconds_bucket{le="0.005"} 1`,
		`tokenkeeper_authenticate_latency_seconds_bucket{le="+Inf"} 36`,
		"tokenkeeper_authenticate_latency_seconds_count 36",
		"tokenkeeper_authenticate_latency_seconds_sum 1.5",
		"tokenkeeper_audit_dropped_total 2",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output, got:\n%s", want, out)
		}
	}
}

func TestHandlerServesExposition(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: tokenkeeper.MetricsSnapshot{
			Counters:   map[tokenkeeper.MetricID]uint64{tokenkeeper.MetricLogout: 4},
			Histograms: map[tokenkeeper.MetricID][]uint64{},
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	exp.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); !strings.Contains(got, "text/plain") {
		t.Fatalf("expected text exposition content type, got %q", got)
	}
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "tokenkeeper_logout_total 4") {
		t.Fatalf("unexpected body:\n%s", body)
	}
}
