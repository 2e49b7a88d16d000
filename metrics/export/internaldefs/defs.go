package internaldefs

import (
	"github.com/MrEthical07/tokenkeeper"
)

// CounterDef names one engine counter for export.
type CounterDef struct {
	ID   tokenkeeper.MetricID
	Name string
	Help string
}

// HistogramDef names one engine histogram for export.
type HistogramDef struct {
	ID   tokenkeeper.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in a stable order.
var CounterDefs = []CounterDef{
	{ID: tokenkeeper.MetricRegisterSuccess, Name: "tokenkeeper_register_success_total", Help: "Successful registrations."},
	{ID: tokenkeeper.MetricRegisterConflict, Name: "tokenkeeper_register_conflict_total", Help: "Registrations rejected because the email or username exists."},
	{ID: tokenkeeper.MetricRegisterInvalid, Name: "tokenkeeper_register_invalid_total", Help: "Registrations rejected by input validation."},
	{ID: tokenkeeper.MetricLoginSuccess, Name: "tokenkeeper_login_success_total", Help: "Successful login attempts."},
	{ID: tokenkeeper.MetricLoginFailure, Name: "tokenkeeper_login_failure_total", Help: "Failed login attempts."},
	{ID: tokenkeeper.MetricLoginRateLimited, Name: "tokenkeeper_login_rate_limited_total", Help: "Rate-limited login attempts."},
	{ID: tokenkeeper.MetricRefreshSuccess, Name: "tokenkeeper_refresh_success_total", Help: "Successful refresh rotations."},
	{ID: tokenkeeper.MetricRefreshFailure, Name: "tokenkeeper_refresh_failure_total", Help: "Failed refresh rotations."},
	{ID: tokenkeeper.MetricRefreshReuseDetected, Name: "tokenkeeper_refresh_reuse_detected_total", Help: "Superseded refresh tokens presented while a session was live."},
	{ID: tokenkeeper.MetricRefreshRateLimited, Name: "tokenkeeper_refresh_rate_limited_total", Help: "Rate-limited refresh attempts."},
	{ID: tokenkeeper.MetricSessionCreated, Name: "tokenkeeper_session_created_total", Help: "Sessions started by register or login."},
	{ID: tokenkeeper.MetricSessionInvalidated, Name: "tokenkeeper_session_invalidated_total", Help: "Sessions revoked."},
	{ID: tokenkeeper.MetricLogout, Name: "tokenkeeper_logout_total", Help: "Logout operations."},
	{ID: tokenkeeper.MetricTokenBlacklisted, Name: "tokenkeeper_token_blacklisted_total", Help: "Access tokens written to the blacklist."},
	{ID: tokenkeeper.MetricAuthenticateSuccess, Name: "tokenkeeper_authenticate_success_total", Help: "Accepted access tokens."},
	{ID: tokenkeeper.MetricAuthenticateFailure, Name: "tokenkeeper_authenticate_failure_total", Help: "Access tokens rejected by verification."},
	{ID: tokenkeeper.MetricAuthenticateRevoked, Name: "tokenkeeper_authenticate_revoked_total", Help: "Access tokens rejected as blacklisted, including fail-closed outages."},
	{ID: tokenkeeper.MetricStoreUnavailable, Name: "tokenkeeper_store_unavailable_total", Help: "Session store errors observed by the engine."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: tokenkeeper.MetricLoginLatency, Name: "tokenkeeper_login_latency_seconds", Help: "Login latency including password verification."},
	{ID: tokenkeeper.MetricRefreshLatency, Name: "tokenkeeper_refresh_latency_seconds", Help: "Refresh rotation latency."},
	{ID: tokenkeeper.MetricAuthenticateLatency, Name: "tokenkeeper_authenticate_latency_seconds", Help: "Authenticate latency."},
}

// HistogramUpperBounds are the finite bucket bounds in seconds; the engine's
// eighth bucket is +Inf.
var HistogramUpperBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// HistogramBoundLabels are the "le" attribute values for exporters without
// native histograms.
var HistogramBoundLabels = []string{"0.005", "0.01", "0.025", "0.05", "0.1", "0.25", "0.5", "+Inf"}

// NormalizeBuckets pads or truncates raw to exactly eight buckets.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
