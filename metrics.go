package tokenkeeper

import (
	"sync/atomic"
	"time"
)

// MetricID identifies one engine counter or latency histogram.
type MetricID uint16

const (
	MetricRegisterSuccess MetricID = iota
	MetricRegisterConflict
	MetricRegisterInvalid
	MetricLoginSuccess
	MetricLoginFailure
	MetricLoginRateLimited
	MetricRefreshSuccess
	MetricRefreshFailure
	MetricRefreshReuseDetected
	MetricRefreshRateLimited
	MetricSessionCreated
	MetricSessionInvalidated
	MetricLogout
	MetricTokenBlacklisted
	MetricAuthenticateSuccess
	MetricAuthenticateFailure
	MetricAuthenticateRevoked
	MetricStoreUnavailable

	// Histograms follow the counters.
	MetricLoginLatency
	MetricRefreshLatency
	MetricAuthenticateLatency
	metricIDCount
)

const (
	firstHistogramID = MetricLoginLatency
	histogramCount   = int(metricIDCount - firstHistogramID)
	counterCount     = int(firstHistogramID)
)

// latencyBounds are the inclusive upper bounds of the finite buckets. The
// last bucket catches everything slower.
var latencyBounds = [...]time.Duration{
	5 * time.Millisecond,
	10 * time.Millisecond,
	25 * time.Millisecond,
	50 * time.Millisecond,
	100 * time.Millisecond,
	250 * time.Millisecond,
	500 * time.Millisecond,
}

const bucketCount = len(latencyBounds) + 1

// counterSlot is padded to a cache line so hot counters do not share one.
type counterSlot struct {
	n atomic.Uint64
	_ [56]byte
}

type latencyHistogram struct {
	buckets [bucketCount]atomic.Uint64
	sumNano atomic.Int64
}

// Metrics holds the engine's lock-free counters and latency histograms.
// A nil or disabled Metrics ignores every write.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [counterCount]counterSlot
	histograms    [histogramCount]latencyHistogram
}

// MetricsSnapshot is a point-in-time copy of the engine metrics. Histogram
// buckets are non-cumulative; LatencySums holds the total observed time per
// histogram.
type MetricsSnapshot struct {
	Counters    map[MetricID]uint64
	Histograms  map[MetricID][]uint64
	LatencySums map[MetricID]time.Duration
}

func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// IsHistogram reports whether id names a latency histogram.
func (id MetricID) IsHistogram() bool {
	return id >= firstHistogramID && id < metricIDCount
}

// Inc adds one to the counter id. Histogram ids are ignored.
func (m *Metrics) Inc(id MetricID) {
	if !m.Enabled() || id >= firstHistogramID {
		return
	}
	m.counters[id].n.Add(1)
}

// Observe records d in the histogram id. Counter ids are ignored.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if !m.LatencyEnabled() || !id.IsHistogram() {
		return
	}
	h := &m.histograms[id-firstHistogramID]
	h.buckets[bucketFor(d)].Add(1)
	h.sumNano.Add(int64(d))
}

func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= firstHistogramID {
		return 0
	}
	return m.counters[id].n.Load()
}

// Snapshot copies every counter, and every histogram when latency tracking
// is on. It returns empty maps when metrics are disabled.
func (m *Metrics) Snapshot() MetricsSnapshot {
	s := MetricsSnapshot{
		Counters:    map[MetricID]uint64{},
		Histograms:  map[MetricID][]uint64{},
		LatencySums: map[MetricID]time.Duration{},
	}
	if !m.Enabled() {
		return s
	}

	for id := MetricID(0); id < firstHistogramID; id++ {
		s.Counters[id] = m.counters[id].n.Load()
	}
	if !m.enableLatency {
		return s
	}
	for i := range m.histograms {
		id := firstHistogramID + MetricID(i)
		buckets := make([]uint64, bucketCount)
		for b := range buckets {
			buckets[b] = m.histograms[i].buckets[b].Load()
		}
		s.Histograms[id] = buckets
		s.LatencySums[id] = time.Duration(m.histograms[i].sumNano.Load())
	}
	return s
}

func bucketFor(d time.Duration) int {
	for i, bound := range latencyBounds {
		if d <= bound {
			return i
		}
	}
	return len(latencyBounds)
}
