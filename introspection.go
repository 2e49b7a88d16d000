package tokenkeeper

import (
	"context"
	"fmt"
	"time"

	"github.com/MrEthical07/tokenkeeper/internal/flows"
)

// HealthStatus is an on-demand session store health result.
type HealthStatus struct {
	RedisAvailable bool
	RedisLatency   time.Duration
}

// SessionActive reports whether userID currently holds a refresh session.
func (e *Engine) SessionActive(ctx context.Context, userID string) (bool, error) {
	if e == nil || e.sessions == nil {
		return false, ErrEngineNotReady
	}
	if userID == "" {
		return false, nil
	}
	active, err := e.sessions.SessionActive(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	return active, nil
}

// LoginAttempts returns the failed-login counter for an email. It is zero
// when rate limiting is not configured.
func (e *Engine) LoginAttempts(ctx context.Context, email string) (int, error) {
	if e == nil {
		return 0, ErrEngineNotReady
	}
	if e.rateLimiter == nil || email == "" {
		return 0, nil
	}
	n, err := e.rateLimiter.LoginAttempts(ctx, flows.NormalizeEmail(email))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	return n, nil
}

// Health pings the session store and measures the round trip.
func (e *Engine) Health(ctx context.Context) HealthStatus {
	if e == nil || e.store == nil {
		return HealthStatus{}
	}

	start := time.Now()
	err := e.store.Ping(ctx)
	return HealthStatus{
		RedisAvailable: err == nil,
		RedisLatency:   time.Since(start),
	}
}
