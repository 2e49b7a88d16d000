package flows

import (
	"context"
	"time"

	"github.com/MrEthical07/tokenkeeper/jwt"
)

// LoginFailureKind classifies login failures for root-level mapping.
type LoginFailureKind int

const (
	LoginFailureNone LoginFailureKind = iota
	LoginFailureInvalid
	LoginFailureRateLimited
	LoginFailureCredentials
	LoginFailureStore
	LoginFailureSession
)

// LoginResult carries the authenticated user and token pair, or failure metadata.
type LoginResult struct {
	Failure LoginFailureKind
	Err     error
	User    UserRecord
	Pair    jwt.Pair
}

// LoginDeps captures login flow dependencies.
type LoginDeps struct {
	Hooks
	Events  Events
	Metrics Metrics

	Now      func() time.Time
	ClientIP func(context.Context) string

	Validate func(email, password string) error

	// Rate limiting is optional. Check errors other than IsRateLimited are
	// treated as an unavailable limiter and the login proceeds.
	CheckLoginRate     func(ctx context.Context, identifier, ip string) error
	IncrementLoginRate func(ctx context.Context, identifier, ip string) error
	ResetLoginRate     func(ctx context.Context, identifier, ip string) error
	IsRateLimited      func(error) bool

	FindByEmail     func(context.Context, string) (UserRecord, bool, error)
	VerifyPassword  func(password, hash string) (bool, error)
	DummyHash       string
	UpdateLastLogin func(ctx context.Context, userID string, at time.Time) error
	StartSession    func(context.Context, jwt.Claim) (jwt.Pair, error)
}

// RunLogin authenticates email and password and starts a new session,
// replacing any session the user already had.
//
// Unknown email, wrong password and inactive account all fail with
// LoginFailureCredentials; a password verification runs in every case so
// response timing does not reveal which one it was.
func RunLogin(ctx context.Context, email, password string, deps LoginDeps) LoginResult {
	hooks := deps.Hooks.fill()
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.ClientIP == nil {
		deps.ClientIP = func(context.Context) string { return "" }
	}
	if deps.IsRateLimited == nil {
		deps.IsRateLimited = func(error) bool { return false }
	}

	email = NormalizeEmail(email)
	ip := deps.ClientIP(ctx)
	meta := func(reason string) func() map[string]string {
		return func() map[string]string {
			m := map[string]string{"identifier": email}
			if reason != "" {
				m["reason"] = reason
			}
			return m
		}
	}

	if deps.Validate != nil {
		if err := deps.Validate(email, password); err != nil {
			hooks.MetricInc(deps.Metrics.LoginFailure)
			return LoginResult{Failure: LoginFailureInvalid, Err: err}
		}
	}

	rateLimited := func(userID string, err error) LoginResult {
		hooks.MetricInc(deps.Metrics.LoginRateLimited)
		hooks.EmitAudit(ctx, deps.Events.LoginRateLimited, false, userID, err, meta(""))
		return LoginResult{Failure: LoginFailureRateLimited, Err: err}
	}

	if deps.CheckLoginRate != nil {
		if err := deps.CheckLoginRate(ctx, email, ip); err != nil {
			if deps.IsRateLimited(err) {
				return rateLimited("", err)
			}
			hooks.Warn("tokenkeeper: login rate limit check unavailable, allowing attempt", "error", err)
		}
	}

	fail := func(userID, reason string, err error) LoginResult {
		if deps.IncrementLoginRate != nil {
			if incErr := deps.IncrementLoginRate(ctx, email, ip); incErr != nil {
				if deps.IsRateLimited(incErr) {
					return rateLimited(userID, incErr)
				}
				hooks.Warn("tokenkeeper: login rate limit increment failed", "error", incErr)
			}
		}
		hooks.MetricInc(deps.Metrics.LoginFailure)
		hooks.EmitAudit(ctx, deps.Events.LoginFailure, false, userID, err, meta(reason))
		return LoginResult{Failure: LoginFailureCredentials, Err: err}
	}

	user, found, err := deps.FindByEmail(ctx, email)
	if err != nil {
		hooks.EmitAudit(ctx, deps.Events.LoginFailure, false, "", err, meta("user_lookup"))
		return LoginResult{Failure: LoginFailureStore, Err: err}
	}
	if !found {
		if deps.DummyHash != "" {
			_, _ = deps.VerifyPassword(password, deps.DummyHash)
		}
		return fail("", "user_not_found", nil)
	}

	ok, err := deps.VerifyPassword(password, user.PasswordHash)
	if err != nil || !ok {
		return fail(user.ID, "password_mismatch", err)
	}
	password = ""

	if !user.IsActive {
		return fail(user.ID, "account_inactive", nil)
	}

	if deps.ResetLoginRate != nil {
		if err := deps.ResetLoginRate(ctx, email, ip); err != nil {
			hooks.Warn("tokenkeeper: login rate limit reset failed", "error", err)
		}
	}

	now := deps.Now().UTC()
	if deps.UpdateLastLogin != nil {
		if err := deps.UpdateLastLogin(ctx, user.ID, now); err != nil {
			hooks.Warn("tokenkeeper: last login update failed", "user_id", user.ID, "error", err)
		} else {
			user.LastLoginAt = &now
		}
	}

	pair, err := deps.StartSession(ctx, user.Claim())
	if err != nil {
		hooks.EmitAudit(ctx, deps.Events.LoginFailure, false, user.ID, err, meta("session_start"))
		return LoginResult{Failure: LoginFailureSession, Err: err}
	}

	hooks.MetricInc(deps.Metrics.SessionCreated)
	hooks.MetricInc(deps.Metrics.LoginSuccess)
	hooks.EmitAudit(ctx, deps.Events.LoginSuccess, true, user.ID, nil, meta(""))

	return LoginResult{User: user, Pair: pair}
}
