// Package otel publishes tokenkeeper engine metrics as OpenTelemetry
// observable instruments.
//
// One callback reads [tokenkeeper.Engine.MetricsSnapshot] per collection
// cycle. The caller owns the MeterProvider.
package otel
