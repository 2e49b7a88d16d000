package rate

import (
	"errors"
	"time"
)

var (
	// ErrRateLimited means the caller exhausted the window budget.
	ErrRateLimited = errors.New("rate limited")
	// ErrRedisUnavailable wraps counter backend failures.
	ErrRedisUnavailable = errors.New("redis unavailable")
)

// LimitedError is returned once a budget is exhausted. It matches
// ErrRateLimited under errors.Is.
type LimitedError struct {
	// RetryAfter is the remaining window; zero when unknown.
	RetryAfter time.Duration
}

func (e *LimitedError) Error() string { return ErrRateLimited.Error() }

func (e *LimitedError) Is(target error) bool { return target == ErrRateLimited }

// RetryAfter extracts the remaining window from err, or zero.
func RetryAfter(err error) time.Duration {
	var le *LimitedError
	if errors.As(err, &le) {
		return le.RetryAfter
	}
	return 0
}
