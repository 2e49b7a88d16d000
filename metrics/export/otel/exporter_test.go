package otel

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/tokenkeeper"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

type fakeSource struct {
	mu       sync.RWMutex
	snapshot tokenkeeper.MetricsSnapshot
	audit    tokenkeeper.AuditStats
}

func (f *fakeSource) MetricsSnapshot() tokenkeeper.MetricsSnapshot {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := tokenkeeper.MetricsSnapshot{
		Counters:   make(map[tokenkeeper.MetricID]uint64, len(f.snapshot.Counters)),
		Histograms: make(map[tokenkeeper.MetricID][]uint64, len(f.snapshot.Histograms)),
	}
	for k, v := range f.snapshot.Counters {
		out.Counters[k] = v
	}
	for k, buckets := range f.snapshot.Histograms {
		out.Histograms[k] = append([]uint64(nil), buckets...)
	}
	return out
}

func (f *fakeSource) AuditStats() tokenkeeper.AuditStats {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.audit
}

type healthySource struct {
	fakeSource
	status tokenkeeper.HealthStatus
}

func (h *healthySource) Health(context.Context) tokenkeeper.HealthStatus { return h.status }

func newMeter(t *testing.T) (*sdkmetric.ManualReader, *sdkmetric.MeterProvider) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	return reader, sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
}

type point struct {
	name  string
	attrs string
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) (map[point]int64, map[string]float64) {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect failed: %v", err)
	}

	ints := map[point]int64{}
	floats := map[string]float64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					ints[point{m.Name, encode(dp.Attributes)}] = dp.Value
				}
			case metricdata.Gauge[int64]:
				for _, dp := range data.DataPoints {
					ints[point{m.Name, encode(dp.Attributes)}] = dp.Value
				}
			case metricdata.Gauge[float64]:
				for _, dp := range data.DataPoints {
					floats[m.Name] = dp.Value
				}
			}
		}
	}
	return ints, floats
}

func encode(set attribute.Set) string { return set.Encoded(attribute.DefaultEncoder()) }

func attrs(kv ...attribute.KeyValue) string { return encode(attribute.NewSet(kv...)) }

func TestExporterRegistersAndCollects(t *testing.T) {
	reader, provider := newMeter(t)
	src := &fakeSource{
		snapshot: tokenkeeper.MetricsSnapshot{
			Counters: map[tokenkeeper.MetricID]uint64{
				tokenkeeper.MetricLoginSuccess:         3,
				tokenkeeper.MetricRefreshReuseDetected: 2,
			},
			Histograms: map[tokenkeeper.MetricID][]uint64{
				tokenkeeper.MetricAuthenticateLatency: {1, 1, 1, 1, 1, 1, 1, 1},
			},
		},
		audit: tokenkeeper.AuditStats{Delivered: 5, Dropped: 1},
	}

	exp, err := NewOTelExporterFromSource(provider.Meter("tokenkeeper-test"), src)
	if err != nil {
		t.Fatalf("NewOTelExporterFromSource failed: %v", err)
	}
	defer func() {
		if err := exp.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
	}()

	ints, floats := collect(t, reader)
	empty := attrs()
	if got := ints[point{"tokenkeeper_login_success_total", empty}]; got != 3 {
		t.Fatalf("login_success = %d, want 3", got)
	}
	if got := ints[point{"tokenkeeper_refresh_reuse_detected_total", empty}]; got != 2 {
		t.Fatalf("reuse = %d, want 2", got)
	}
	if got := ints[point{"tokenkeeper_audit_events_total", attrs(attribute.String("outcome", "delivered"))}]; got != 5 {
		t.Fatalf("audit delivered = %d, want 5", got)
	}
	if got := ints[point{"tokenkeeper_audit_events_total", attrs(attribute.String("outcome", "dropped"))}]; got != 1 {
		t.Fatalf("audit dropped = %d, want 1", got)
	}
	if got := ints[point{"tokenkeeper_authenticate_latency_seconds_bucket", attrs(attribute.String("le", "0.025"))}]; got != 3 {
		t.Fatalf("le=0.025 bucket = %d, want 3", got)
	}
	if got := ints[point{"tokenkeeper_authenticate_latency_seconds_bucket", attrs(attribute.String("le", "+Inf"))}]; got != 8 {
		t.Fatalf("le=+Inf bucket = %d, want 8", got)
	}
	if got := ints[point{"tokenkeeper_authenticate_latency_seconds_count", empty}]; got != 8 {
		t.Fatalf("latency count = %d, want 8", got)
	}
	if _, ok := floats["tokenkeeper_redis_ping_seconds"]; ok {
		t.Fatal("source without Health must not export redis gauges")
	}
}

func TestExporterObservesHealth(t *testing.T) {
	reader, provider := newMeter(t)
	src := &healthySource{status: tokenkeeper.HealthStatus{RedisAvailable: true, RedisLatency: 250 * time.Millisecond}}

	exp, err := NewOTelExporterFromSource(provider.Meter("tokenkeeper-test"), src)
	if err != nil {
		t.Fatalf("NewOTelExporterFromSource failed: %v", err)
	}
	defer exp.Close()

	ints, floats := collect(t, reader)
	if got := ints[point{"tokenkeeper_redis_up", attrs()}]; got != 1 {
		t.Fatalf("redis_up = %d, want 1", got)
	}
	if got := floats["tokenkeeper_redis_ping_seconds"]; got != 0.25 {
		t.Fatalf("redis ping = %v, want 0.25", got)
	}

	src.status = tokenkeeper.HealthStatus{}
	ints, _ = collect(t, reader)
	if got := ints[point{"tokenkeeper_redis_up", attrs()}]; got != 0 {
		t.Fatalf("redis_up = %d after outage, want 0", got)
	}
}

func TestExporterRejectsNilInputs(t *testing.T) {
	_, provider := newMeter(t)
	if _, err := NewOTelExporterFromSource(provider.Meter("tokenkeeper-test"), nil); err != ErrNilSource {
		t.Fatalf("expected ErrNilSource, got %v", err)
	}
	if _, err := NewOTelExporterFromSource(nil, &fakeSource{}); err != ErrNilMeter {
		t.Fatalf("expected ErrNilMeter, got %v", err)
	}
}

func TestExporterConcurrentCollectNoPanic(t *testing.T) {
	reader, provider := newMeter(t)
	src := &fakeSource{
		snapshot: tokenkeeper.MetricsSnapshot{
			Counters:   map[tokenkeeper.MetricID]uint64{tokenkeeper.MetricLoginSuccess: 1},
			Histograms: map[tokenkeeper.MetricID][]uint64{},
		},
	}

	exp, err := NewOTelExporterFromSource(provider.Meter("tokenkeeper-test"), src)
	if err != nil {
		t.Fatalf("NewOTelExporterFromSource failed: %v", err)
	}
	defer exp.Close()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(v uint64) {
			defer wg.Done()
			src.mu.Lock()
			src.snapshot.Counters[tokenkeeper.MetricLoginSuccess] = v
			src.mu.Unlock()

			var rm metricdata.ResourceMetrics
			_ = reader.Collect(context.Background(), &rm)
		}(uint64(i + 1))
	}
	wg.Wait()
}
