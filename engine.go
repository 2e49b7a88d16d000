package tokenkeeper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	internalaudit "github.com/MrEthical07/tokenkeeper/internal/audit"
	"github.com/MrEthical07/tokenkeeper/internal/flows"
	"github.com/MrEthical07/tokenkeeper/internal/rate"
	"github.com/MrEthical07/tokenkeeper/jwt"
	"github.com/MrEthical07/tokenkeeper/session"
)

// Engine is the auth facade: register, login, refresh, logout, profile and
// the per-request access check. Build one with [New] and [Builder.Build];
// it is safe for concurrent use and keeps no per-user state in process.
type Engine struct {
	config      Config
	issuer      *jwt.Issuer
	sessions    *session.Manager
	store       session.Store
	users       UserStore
	hasher      PasswordHasher
	dummyHash   string
	rateLimiter *rate.Limiter
	audit       *internalaudit.Dispatcher
	metrics     *Metrics
	logger      *slog.Logger
	clock       func() time.Time
	flows       flows.Service
}

// Close drains pending audit events. It is safe to call more than once.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditStats reports audit dispatcher outcomes. It is zero when audit is
// disabled.
func (e *Engine) AuditStats() AuditStats {
	if e == nil {
		return AuditStats{}
	}
	return e.audit.Stats()
}

// AuditDropped reports audit events discarded because the buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a copy of the engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil {
		return (*Metrics)(nil).Snapshot()
	}
	return e.metrics.Snapshot()
}

// Sessions exposes the session manager for introspection.
func (e *Engine) Sessions() *session.Manager {
	if e == nil {
		return nil
	}
	return e.sessions
}

// Ping checks the session store.
func (e *Engine) Ping(ctx context.Context) error {
	if e == nil || e.store == nil {
		return ErrEngineNotReady
	}
	return e.store.Ping(ctx)
}

func (e *Engine) ready() bool {
	return e != nil && e.flows.Initialized()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) observeSince(id MetricID, start time.Time) {
	if e == nil || !e.metrics.LatencyEnabled() {
		return
	}
	e.metrics.Observe(id, time.Since(start))
}

// Register creates an account and starts its first session.
//
// Register returns ErrInvalidInput (as a *ValidationError), ErrConflict,
// ErrServiceUnavailable or ErrSessionCreationFailed.
func (e *Engine) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	res := e.flows.Register(ctx, flows.RegisterRequest(req))
	switch res.Failure {
	case flows.RegisterFailureNone:
		return authResponse(res.Pair, res.User), nil
	case flows.RegisterFailureInvalid:
		return nil, res.Err
	case flows.RegisterFailureConflict:
		return nil, ErrConflict
	case flows.RegisterFailureSession:
		e.logger.ErrorContext(ctx, "tokenkeeper: register session start failed", "user_id", res.User.ID, "error", res.Err)
		return nil, ErrSessionCreationFailed
	default:
		e.logger.ErrorContext(ctx, "tokenkeeper: register failed", "error", res.Err)
		return nil, fmt.Errorf("%w: register", ErrServiceUnavailable)
	}
}

// Login authenticates email and password and starts a new session. Any
// previous session of the user is replaced.
//
// Unknown users, wrong passwords and inactive accounts all return
// ErrUnauthorized.
func (e *Engine) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	defer e.observeSince(MetricLoginLatency, time.Now())

	res := e.flows.Login(ctx, email, password)
	switch res.Failure {
	case flows.LoginFailureNone:
		return authResponse(res.Pair, res.User), nil
	case flows.LoginFailureInvalid:
		return nil, res.Err
	case flows.LoginFailureRateLimited:
		return nil, &RateLimitedError{RetryAfter: rate.RetryAfter(res.Err)}
	case flows.LoginFailureCredentials:
		return nil, ErrUnauthorized
	case flows.LoginFailureSession:
		e.logger.ErrorContext(ctx, "tokenkeeper: login session start failed", "user_id", res.User.ID, "error", res.Err)
		return nil, ErrSessionCreationFailed
	default:
		e.logger.ErrorContext(ctx, "tokenkeeper: login failed", "error", res.Err)
		return nil, fmt.Errorf("%w: login", ErrServiceUnavailable)
	}
}

// Refresh exchanges a refresh token for a new pair. The presented token is
// spent whether or not the caller receives the response.
//
// Every token problem, including store outages during rotation, returns
// ErrUnauthorized.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*AuthResponse, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	defer e.observeSince(MetricRefreshLatency, time.Now())

	res := e.flows.Refresh(ctx, refreshToken)
	switch res.Failure {
	case flows.RefreshFailureNone:
		return authResponse(res.Pair, res.User), nil
	case flows.RefreshFailureRateLimited:
		return nil, &RateLimitedError{RetryAfter: rate.RetryAfter(res.Err)}
	case flows.RefreshFailureReuse:
		e.logger.WarnContext(ctx, "tokenkeeper: refresh token reuse detected", "user_id", res.UserID)
		return nil, ErrUnauthorized
	case flows.RefreshFailureStore:
		e.logger.ErrorContext(ctx, "tokenkeeper: refresh user lookup failed", "user_id", res.UserID, "error", res.Err)
		return nil, fmt.Errorf("%w: refresh", ErrServiceUnavailable)
	default:
		return nil, ErrUnauthorized
	}
}

// Logout revokes the user's session and blacklists accessToken until it
// expires. A failed blacklist write is logged and does not fail the logout.
func (e *Engine) Logout(ctx context.Context, userID, accessToken string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}

	res := e.flows.Logout(ctx, userID, accessToken)
	if res.Failure != flows.LogoutFailureNone {
		e.logger.ErrorContext(ctx, "tokenkeeper: logout revoke failed", "user_id", userID, "error", res.Err)
		return ErrSessionInvalidationFailed
	}
	return nil
}

// Profile returns the stored view of userID, or ErrNotFound.
func (e *Engine) Profile(ctx context.Context, userID string) (*Profile, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	res := e.flows.Profile(ctx, userID)
	switch res.Failure {
	case flows.ProfileFailureNone:
		return profileOf(res.User), nil
	case flows.ProfileFailureNotFound:
		return nil, ErrNotFound
	default:
		e.logger.ErrorContext(ctx, "tokenkeeper: profile lookup failed", "user_id", userID, "error", res.Err)
		return nil, fmt.Errorf("%w: profile", ErrServiceUnavailable)
	}
}

// Authenticate admits an access token for a protected request: the token
// must verify with the access secret and must not be blacklisted. When the
// blacklist cannot be read the token is rejected.
func (e *Engine) Authenticate(ctx context.Context, accessToken string) (*AuthResult, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	res := e.flows.Authenticate(ctx, accessToken)
	if res.Failure != flows.AuthenticateFailureNone {
		return nil, ErrUnauthorized
	}
	return &AuthResult{
		UserID:    res.Claim.ID,
		Email:     res.Claim.Email,
		TokenID:   res.TokenID,
		ExpiresAt: res.ExpiresAt,
	}, nil
}

func authResponse(pair jwt.Pair, user flows.UserRecord) *AuthResponse {
	return &AuthResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		User:         publicUser(user),
	}
}
