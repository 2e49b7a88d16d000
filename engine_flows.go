package tokenkeeper

import (
	"context"
	"crypto/rand"
	"errors"
	"time"

	"github.com/MrEthical07/tokenkeeper/internal/flows"
	"github.com/MrEthical07/tokenkeeper/internal/rate"
	"github.com/oklog/ulid/v2"
)

var flowEvents = flows.Events{
	Register:         AuditEventRegister,
	LoginSuccess:     AuditEventLoginSuccess,
	LoginFailure:     AuditEventLoginFailure,
	LoginRateLimited: AuditEventLoginRateLimited,
	RefreshSuccess:   AuditEventRefreshSuccess,
	RefreshFailure:   AuditEventRefreshFailure,
	RefreshReuse:     AuditEventRefreshReuse,
	Logout:           AuditEventLogout,
	TokenRevocation:  AuditEventTokenRevocation,
}

var flowMetrics = flows.Metrics{
	RegisterSuccess:     int(MetricRegisterSuccess),
	RegisterConflict:    int(MetricRegisterConflict),
	RegisterInvalid:     int(MetricRegisterInvalid),
	LoginSuccess:        int(MetricLoginSuccess),
	LoginFailure:        int(MetricLoginFailure),
	LoginRateLimited:    int(MetricLoginRateLimited),
	RefreshSuccess:      int(MetricRefreshSuccess),
	RefreshFailure:      int(MetricRefreshFailure),
	RefreshReuse:        int(MetricRefreshReuseDetected),
	RefreshRateLimited:  int(MetricRefreshRateLimited),
	SessionCreated:      int(MetricSessionCreated),
	SessionInvalidated:  int(MetricSessionInvalidated),
	Logout:              int(MetricLogout),
	TokenBlacklisted:    int(MetricTokenBlacklisted),
	AuthenticateSuccess: int(MetricAuthenticateSuccess),
	AuthenticateFailure: int(MetricAuthenticateFailure),
	AuthenticateRevoked: int(MetricAuthenticateRevoked),
	StoreUnavailable:    int(MetricStoreUnavailable),
}

func (e *Engine) flowHooks() flows.Hooks {
	return flows.Hooks{
		MetricInc: func(id int) { e.metricInc(MetricID(id)) },
		EmitAudit: e.emitAudit,
		Warn:      e.logger.Warn,
	}
}

// initFlowDeps wires the flow service once at build time.
func (e *Engine) initFlowDeps() {
	hooks := e.flowHooks()

	findByID := lookupUser(e.users.FindByID)
	isRateLimited := func(err error) bool { return errors.Is(err, rate.ErrRateLimited) }

	deps := flows.Deps{
		Register: flows.RegisterDeps{
			Hooks:       hooks,
			Events:      flowEvents,
			Metrics:     flowMetrics,
			DefaultRole: e.config.DefaultRole,
			Now:         e.clock,
			Validate:    validateRegister,
			NewUserID:   newUserID,
			HashPassword: func(p string) (string, error) {
				return e.hasher.Hash(p)
			},
			FindByEmailOrUsername: func(ctx context.Context, email, username string) (flows.UserRecord, bool, error) {
				u, err := e.users.FindByEmailOrUsername(ctx, email, username)
				return foundUser(u, err)
			},
			InsertUser: func(ctx context.Context, u flows.UserRecord) error {
				return e.users.Insert(ctx, fromFlowUser(u))
			},
			IsConflict:   func(err error) bool { return errors.Is(err, ErrUserRecordConflict) },
			StartSession: e.sessions.StartSession,
		},
		Login: flows.LoginDeps{
			Hooks:           hooks,
			Events:          flowEvents,
			Metrics:         flowMetrics,
			Now:             e.clock,
			ClientIP:        ClientIPFromContext,
			Validate:        validateLogin,
			IsRateLimited:   isRateLimited,
			FindByEmail:     lookupUser(e.users.FindByEmail),
			VerifyPassword:  e.hasher.Verify,
			DummyHash:       e.dummyHash,
			UpdateLastLogin: e.users.UpdateLastLogin,
			StartSession:    e.sessions.StartSession,
		},
		Refresh: flows.RefreshDeps{
			Hooks:         hooks,
			Events:        flowEvents,
			Metrics:       flowMetrics,
			VerifyRefresh: e.issuer.VerifyRefresh,
			IsRateLimited: isRateLimited,
			Rotate:        e.sessions.Rotate,
			FindByID:      findByID,
			Revoke:        e.sessions.Revoke,
		},
		Logout: flows.LogoutDeps{
			Hooks:     hooks,
			Events:    flowEvents,
			Metrics:   flowMetrics,
			Revoke:    e.sessions.Revoke,
			Blacklist: e.sessions.BlacklistAccessToken,
		},
		Profile: flows.ProfileDeps{
			FindByID: findByID,
		},
		Authenticate: flows.AuthenticateDeps{
			Hooks:           hooks,
			Metrics:         flowMetrics,
			Now:             e.clock,
			VerifyAccess:    e.issuer.VerifyAccess,
			BlacklistStatus: e.sessions.BlacklistStatus,
		},
	}

	if e.rateLimiter != nil {
		deps.Login.CheckLoginRate = e.rateLimiter.CheckLogin
		deps.Login.IncrementLoginRate = e.rateLimiter.IncrementLogin
		deps.Login.ResetLoginRate = e.rateLimiter.ResetLogin
		deps.Refresh.CheckRefreshRate = e.rateLimiter.CheckRefresh
	}
	if e.metrics.LatencyEnabled() {
		deps.Authenticate.ObserveLatency = func(d time.Duration) {
			e.metrics.Observe(MetricAuthenticateLatency, d)
		}
	}

	e.flows = flows.New(deps)
}

func lookupUser(find func(context.Context, string) (UserRecord, error)) func(context.Context, string) (flows.UserRecord, bool, error) {
	return func(ctx context.Context, key string) (flows.UserRecord, bool, error) {
		return foundUser(find(ctx, key))
	}
}

func foundUser(u UserRecord, err error) (flows.UserRecord, bool, error) {
	if errors.Is(err, ErrUserRecordNotFound) {
		return flows.UserRecord{}, false, nil
	}
	if err != nil {
		return flows.UserRecord{}, false, err
	}
	return toFlowUser(u), true, nil
}

func newUserID(now time.Time) (string, error) {
	id, err := ulid.New(ulid.Timestamp(now), rand.Reader)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
