package main

import (
	"bytes"
	"errors"
	mrand "math/rand"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestSummarizeNearestRank(t *testing.T) {
	latencies := make([]time.Duration, 0, 100)
	for i := 100; i >= 1; i-- {
		latencies = append(latencies, time.Duration(i)*time.Millisecond)
	}

	r := summarize("auth", time.Second, latencies, 3)
	if r.calls != 100 || r.failed != 3 {
		t.Fatalf("unexpected counts %+v", r)
	}
	if r.median != 50*time.Millisecond || r.tail95 != 95*time.Millisecond || r.tail99 != 99*time.Millisecond {
		t.Fatalf("quantiles p50=%s p95=%s p99=%s", r.median, r.tail95, r.tail99)
	}
	if r.slowest != 100*time.Millisecond || r.perSecond != 100 {
		t.Fatalf("max=%s ops/s=%v", r.slowest, r.perSecond)
	}

	if empty := summarize("none", time.Second, nil, 1); empty.calls != 0 || empty.failed != 1 || empty.median != 0 {
		t.Fatalf("unexpected empty report %+v", empty)
	}
}

func TestNearestRankSmallInputs(t *testing.T) {
	one := []time.Duration{7 * time.Millisecond}
	if got := nearestRank(one, 0.99); got != 7*time.Millisecond {
		t.Fatalf("single sample p99 = %s", got)
	}
	two := []time.Duration{time.Millisecond, 2 * time.Millisecond}
	if got := nearestRank(two, 0.5); got != time.Millisecond {
		t.Fatalf("p50 of two = %s", got)
	}
	if got := nearestRank(two, 0); got != time.Millisecond {
		t.Fatalf("p0 = %s", got)
	}
}

func TestRunPhaseRunsExactlyOps(t *testing.T) {
	var calls atomic.Int64
	r := runPhase("noop", 500, 8, 1, func(*mrand.Rand) error {
		if calls.Add(1)%100 == 0 {
			return errors.New("boom")
		}
		return nil
	})
	if calls.Load() != 500 || r.calls != 500 || r.failed != 5 {
		t.Fatalf("calls=%d report=%+v", calls.Load(), r)
	}
}

func TestWriteReports(t *testing.T) {
	var buf bytes.Buffer
	err := writeReports(&buf,
		summarize("authenticate", time.Second, []time.Duration{time.Millisecond}, 0),
		summarize("refresh", time.Second, []time.Duration{2 * time.Millisecond}, 1),
	)
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 || !strings.Contains(lines[0], "p99") || !strings.Contains(lines[2], "refresh") {
		t.Fatalf("unexpected table:\n%s", buf.String())
	}
}
