package httpapi

import "time"

// Config controls request handling.
type Config struct {
	// MaxBodyBytes caps JSON request bodies.
	MaxBodyBytes int64
	// RequestTimeout bounds every engine call made for a request. Zero
	// disables the per-request deadline.
	RequestTimeout time.Duration
	// TrustProxy makes X-Forwarded-For / X-Real-IP authoritative for the
	// client address.
	TrustProxy bool
	// HealthTimeout bounds each dependency ping in /health.
	HealthTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		MaxBodyBytes:   64 << 10,
		RequestTimeout: 10 * time.Second,
		HealthTimeout:  2 * time.Second,
	}
}
