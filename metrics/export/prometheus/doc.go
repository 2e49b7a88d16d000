// Package prometheus exposes tokenkeeper engine metrics through
// prometheus/client_golang.
//
// [NewPrometheusExporter] registers a [Collector] on a private registry and
// serves it with promhttp. Counters are named tokenkeeper_*_total; the one
// histogram is tokenkeeper_authenticate_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in the global Prometheus registry.
//   - Mutate engine state.
package prometheus
