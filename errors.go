package tokenkeeper

import (
	"errors"
	"time"
)

var (
	// ErrConflict is returned by Register when the email or username is taken.
	ErrConflict = errors.New("user already exists")
	// ErrUnauthorized covers bad credentials, inactive accounts and every
	// invalid, expired, superseded or revoked token. Callers cannot tell
	// which check failed.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotFound is returned by Profile when the user no longer exists.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput wraps request validation failures.
	ErrInvalidInput = errors.New("invalid input")
	// ErrRateLimited is returned when a login or refresh budget is exhausted.
	ErrRateLimited = errors.New("too many attempts")
	// ErrSessionCreationFailed means the session store rejected a new session.
	ErrSessionCreationFailed = errors.New("session creation failed")
	// ErrSessionInvalidationFailed means logout could not delete the session.
	ErrSessionInvalidationFailed = errors.New("session invalidation failed")
	// ErrServiceUnavailable wraps user store and hashing failures.
	ErrServiceUnavailable = errors.New("service unavailable")
	// ErrEngineNotReady is returned by methods on a nil or unbuilt Engine.
	ErrEngineNotReady = errors.New("engine not initialized")

	// ErrUserRecordNotFound must be returned by UserStore lookups that match nothing.
	ErrUserRecordNotFound = errors.New("user record not found")
	// ErrUserRecordConflict must be returned by UserStore.Insert on a
	// duplicate email or username.
	ErrUserRecordConflict = errors.New("user record conflict")
)

// RateLimitedError is returned by Login and Refresh when a budget is
// exhausted. It matches ErrRateLimited under errors.Is. RetryAfter is zero
// when the window length is unknown.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string { return ErrRateLimited.Error() }

func (e *RateLimitedError) Is(target error) bool { return target == ErrRateLimited }

// RetryAfter returns how long the caller should wait before retrying, or
// zero when err is not a rate limit or carries no window.
func RetryAfter(err error) time.Duration {
	var rl *RateLimitedError
	if errors.As(err, &rl) {
		return rl.RetryAfter
	}
	return 0
}

// Stable error codes returned to API clients.
const (
	CodeConflict           = "conflict"
	CodeUnauthorized       = "unauthorized"
	CodeNotFound           = "not_found"
	CodeInvalidInput       = "invalid_input"
	CodeRateLimited        = "rate_limited"
	CodeServiceUnavailable = "service_unavailable"
	CodeInternal           = "internal_error"
)

// ErrorCode maps err onto a stable client-facing code. Unknown errors map
// to CodeInternal.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrConflict):
		return CodeConflict
	case errors.Is(err, ErrUnauthorized):
		return CodeUnauthorized
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrInvalidInput):
		return CodeInvalidInput
	case errors.Is(err, ErrRateLimited):
		return CodeRateLimited
	case errors.Is(err, ErrServiceUnavailable),
		errors.Is(err, ErrSessionCreationFailed),
		errors.Is(err, ErrSessionInvalidationFailed),
		errors.Is(err, ErrEngineNotReady):
		return CodeServiceUnavailable
	default:
		return CodeInternal
	}
}

// ErrorMessage is the client-facing message for err. It never includes
// wrapped detail except for validation failures, whose messages only
// describe the offending fields.
func ErrorMessage(err error) string {
	switch ErrorCode(err) {
	case "":
		return ""
	case CodeConflict:
		return "User with this email or username already exists"
	case CodeUnauthorized:
		return "Unauthorized"
	case CodeNotFound:
		return "User not found"
	case CodeInvalidInput:
		var ve *ValidationError
		if errors.As(err, &ve) {
			return ve.Error()
		}
		return "Invalid input"
	case CodeRateLimited:
		return "Too many attempts, try again later"
	case CodeServiceUnavailable:
		return "Service temporarily unavailable"
	default:
		return "Internal server error"
	}
}
