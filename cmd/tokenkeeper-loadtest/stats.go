package main

import (
	"fmt"
	"io"
	"math"
	"slices"
	"text/tabwriter"
	"time"
)

// phaseReport summarizes one load phase. Quantiles use the nearest-rank
// method over every recorded call, failed ones included.
type phaseReport struct {
	name      string
	elapsed   time.Duration
	calls     int
	failed    int64
	median    time.Duration
	tail95    time.Duration
	tail99    time.Duration
	slowest   time.Duration
	perSecond float64
}

func summarize(name string, elapsed time.Duration, latencies []time.Duration, failed int64) phaseReport {
	r := phaseReport{name: name, elapsed: elapsed, calls: len(latencies), failed: failed}
	if len(latencies) == 0 {
		return r
	}
	slices.Sort(latencies)
	r.median = nearestRank(latencies, 0.50)
	r.tail95 = nearestRank(latencies, 0.95)
	r.tail99 = nearestRank(latencies, 0.99)
	r.slowest = latencies[len(latencies)-1]
	if elapsed > 0 {
		r.perSecond = float64(r.calls) / elapsed.Seconds()
	}
	return r
}

// nearestRank expects sorted ascending, non-empty input.
func nearestRank(sorted []time.Duration, q float64) time.Duration {
	rank := int(math.Ceil(q * float64(len(sorted))))
	rank = min(max(rank, 1), len(sorted))
	return sorted[rank-1]
}

func writeReports(w io.Writer, reports ...phaseReport) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "phase\tcalls\tfailed\telapsed\tops/s\tp50\tp95\tp99\tmax\t")
	for _, r := range reports {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\t%.0f\t%s\t%s\t%s\t%s\t\n",
			r.name, r.calls, r.failed,
			r.elapsed.Round(time.Millisecond), r.perSecond,
			r.median.Round(time.Microsecond), r.tail95.Round(time.Microsecond),
			r.tail99.Round(time.Microsecond), r.slowest.Round(time.Microsecond))
	}
	return tw.Flush()
}
