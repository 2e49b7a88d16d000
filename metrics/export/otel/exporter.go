package otel

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/tokenkeeper"
	"github.com/MrEthical07/tokenkeeper/metrics/export/internaldefs"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

type metricsSource interface {
	MetricsSnapshot() tokenkeeper.MetricsSnapshot
	AuditStats() tokenkeeper.AuditStats
}

// healthSource is optionally implemented by sources that can probe the
// session store. *tokenkeeper.Engine implements it.
type healthSource interface {
	Health(ctx context.Context) tokenkeeper.HealthStatus
}

type observedCounter struct {
	id         tokenkeeper.MetricID
	instrument metric.Int64ObservableCounter
}

type observedHistogram struct {
	id      tokenkeeper.MetricID
	buckets metric.Int64ObservableGauge
	count   metric.Int64ObservableGauge
}

// OTelExporter publishes engine snapshots through observable instruments.
// Latency histograms become a cumulative bucket gauge keyed by an "le"
// attribute plus a count gauge.
type OTelExporter struct {
	source       metricsSource
	health       healthSource
	registration metric.Registration
	counters     []observedCounter
	histograms   []observedHistogram
	audit        metric.Int64ObservableCounter
	redisUp      metric.Int64ObservableGauge
	redisPing    metric.Float64ObservableGauge
}

// NewOTelExporter registers instruments on meter for engine, including the
// Redis health gauges.
func NewOTelExporter(meter metric.Meter, engine *tokenkeeper.Engine) (*OTelExporter, error) {
	return NewOTelExporterFromSource(meter, engine)
}

func NewOTelExporterFromSource(meter metric.Meter, source metricsSource) (*OTelExporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	e := &OTelExporter{source: source}
	if hs, ok := source.(healthSource); ok {
		e.health = hs
	}

	observables, err := e.createInstruments(meter)
	if err != nil {
		return nil, err
	}

	registration, err := meter.RegisterCallback(e.observe, observables...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}
	e.registration = registration
	return e, nil
}

func (e *OTelExporter) createInstruments(meter metric.Meter) ([]metric.Observable, error) {
	var observables []metric.Observable

	for _, def := range internaldefs.CounterDefs {
		ins, err := meter.Int64ObservableCounter(def.Name, metric.WithDescription(def.Help))
		if err != nil {
			return nil, fmt.Errorf("create observable counter %s: %w", def.Name, err)
		}
		e.counters = append(e.counters, observedCounter{id: def.ID, instrument: ins})
		observables = append(observables, ins)
	}

	for _, def := range internaldefs.HistogramDefs {
		buckets, err := meter.Int64ObservableGauge(def.Name+"_bucket",
			metric.WithDescription(def.Help+" Cumulative bucket counts by le."))
		if err != nil {
			return nil, fmt.Errorf("create histogram bucket gauge %s: %w", def.Name, err)
		}
		count, err := meter.Int64ObservableGauge(def.Name+"_count",
			metric.WithDescription(def.Help+" Total samples."))
		if err != nil {
			return nil, fmt.Errorf("create histogram count gauge %s: %w", def.Name, err)
		}
		e.histograms = append(e.histograms, observedHistogram{id: def.ID, buckets: buckets, count: count})
		observables = append(observables, buckets, count)
	}

	audit, err := meter.Int64ObservableCounter("tokenkeeper_audit_events_total",
		metric.WithDescription("Audit events by dispatcher outcome."))
	if err != nil {
		return nil, fmt.Errorf("create audit counter: %w", err)
	}
	e.audit = audit
	observables = append(observables, audit)

	if e.health != nil {
		up, err := meter.Int64ObservableGauge("tokenkeeper_redis_up",
			metric.WithDescription("1 when the session store answered the last ping."))
		if err != nil {
			return nil, fmt.Errorf("create redis up gauge: %w", err)
		}
		ping, err := meter.Float64ObservableGauge("tokenkeeper_redis_ping_seconds",
			metric.WithDescription("Round trip of the last session store ping."), metric.WithUnit("s"))
		if err != nil {
			return nil, fmt.Errorf("create redis ping gauge: %w", err)
		}
		e.redisUp, e.redisPing = up, ping
		observables = append(observables, up, ping)
	}

	return observables, nil
}

func (e *OTelExporter) observe(ctx context.Context, observer metric.Observer) error {
	snapshot := e.source.MetricsSnapshot()
	for _, c := range e.counters {
		observer.ObserveInt64(c.instrument, int64(snapshot.Counters[c.id]))
	}

	for _, h := range e.histograms {
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(snapshot.Histograms[h.id]))
		for i, le := range internaldefs.HistogramBoundLabels {
			observer.ObserveInt64(h.buckets, int64(cumulative[i]), metric.WithAttributes(attribute.String("le", le)))
		}
		observer.ObserveInt64(h.count, int64(cumulative[len(cumulative)-1]))
	}

	stats := e.source.AuditStats()
	observer.ObserveInt64(e.audit, int64(stats.Delivered), metric.WithAttributes(attribute.String("outcome", "delivered")))
	observer.ObserveInt64(e.audit, int64(stats.Dropped), metric.WithAttributes(attribute.String("outcome", "dropped")))
	observer.ObserveInt64(e.audit, int64(stats.Panicked), metric.WithAttributes(attribute.String("outcome", "panicked")))

	if e.health != nil {
		status := e.health.Health(ctx)
		var up int64
		if status.RedisAvailable {
			up = 1
		}
		observer.ObserveInt64(e.redisUp, up)
		observer.ObserveFloat64(e.redisPing, status.RedisLatency.Seconds())
	}
	return nil
}

// Close unregisters the collection callback.
func (e *OTelExporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
