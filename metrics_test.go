package tokenkeeper

import (
	"sync"
	"testing"
	"time"
)

func TestMetricsDisabledRecordsNothing(t *testing.T) {
	off := NewMetrics(MetricsConfig{})
	off.Inc(MetricLoginSuccess)
	off.Observe(MetricLoginLatency, time.Millisecond)

	if off.Value(MetricLoginSuccess) != 0 {
		t.Fatal("disabled metrics counted")
	}
	if snap := off.Snapshot(); len(snap.Counters)+len(snap.Histograms) != 0 {
		t.Fatalf("disabled snapshot not empty: %+v", snap)
	}
}

func TestMetricsNilIsSafe(t *testing.T) {
	var m *Metrics
	m.Inc(MetricLogout)
	m.Observe(MetricRefreshLatency, time.Second)
	if m.Value(MetricLogout) != 0 || m.Enabled() || m.LatencyEnabled() {
		t.Fatal("nil metrics must read as disabled")
	}
}

func TestMetricsCountersUnderContention(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	ids := []MetricID{MetricRefreshSuccess, MetricLoginFailure}

	var wg sync.WaitGroup
	for w := range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := ids[w%len(ids)]
			for range 2500 {
				m.Inc(id)
			}
		}()
	}
	wg.Wait()

	for _, id := range ids {
		if got := m.Value(id); got != 8*2500 {
			t.Fatalf("metric %d = %d", id, got)
		}
	}
}

func TestMetricsBucketBoundariesInclusive(t *testing.T) {
	cases := []struct {
		d      time.Duration
		bucket int
	}{
		{0, 0},
		{5 * time.Millisecond, 0},
		{5*time.Millisecond + time.Nanosecond, 1},
		{25 * time.Millisecond, 2},
		{499 * time.Millisecond, 6},
		{500 * time.Millisecond, 6},
		{2 * time.Second, 7},
	}

	for _, tc := range cases {
		m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})
		m.Observe(MetricRefreshLatency, tc.d)

		snap := m.Snapshot()
		buckets := snap.Histograms[MetricRefreshLatency]
		if len(buckets) != bucketCount {
			t.Fatalf("bucket count %d", len(buckets))
		}
		if buckets[tc.bucket] != 1 {
			t.Errorf("%v landed in %v, want bucket %d", tc.d, buckets, tc.bucket)
		}
		if snap.LatencySums[MetricRefreshLatency] != tc.d {
			t.Errorf("sum for %v = %v", tc.d, snap.LatencySums[MetricRefreshLatency])
		}
		if login := snap.Histograms[MetricLoginLatency]; login[tc.bucket] != 0 {
			t.Errorf("login histogram picked up a refresh observation")
		}
	}
}

func TestMetricsCounterAndHistogramIDsDoNotMix(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})
	m.Inc(MetricAuthenticateLatency)
	m.Observe(MetricLoginSuccess, time.Millisecond)

	snap := m.Snapshot()
	if _, ok := snap.Counters[MetricAuthenticateLatency]; ok {
		t.Fatal("histogram id must not appear as a counter")
	}
	if _, ok := snap.Histograms[MetricLoginSuccess]; ok {
		t.Fatal("counter id must not appear as a histogram")
	}
	if len(snap.Histograms) != 3 {
		t.Fatalf("expected 3 histograms, got %d", len(snap.Histograms))
	}
}

func TestMetricsHistogramsOffByDefault(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	m.Observe(MetricAuthenticateLatency, time.Millisecond)
	if snap := m.Snapshot(); len(snap.Histograms) != 0 {
		t.Fatal("histograms must be empty when latency is disabled")
	}
}

func TestEngineRecordsLoginAndRefreshLatency(t *testing.T) {
	e := &Engine{metrics: NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})}
	e.observeSince(MetricLoginLatency, time.Now().Add(-30*time.Millisecond))

	got := e.MetricsSnapshot().Histograms[MetricLoginLatency]
	if got[3] != 1 {
		t.Fatalf("expected 30ms in the 50ms bucket, got %v", got)
	}
}
