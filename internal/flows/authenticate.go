package flows

import (
	"context"
	"time"

	"github.com/MrEthical07/tokenkeeper/jwt"
)

// AuthenticateFailureKind classifies access-token rejections.
type AuthenticateFailureKind int

const (
	AuthenticateFailureNone AuthenticateFailureKind = iota
	AuthenticateFailureInvalid
	// AuthenticateFailureRevoked covers blacklisted tokens and blacklist
	// lookups that could not be answered.
	AuthenticateFailureRevoked
)

// AuthenticateResult carries the verified identity or failure metadata.
type AuthenticateResult struct {
	Failure   AuthenticateFailureKind
	Err       error
	Claim     jwt.Claim
	TokenID   string
	ExpiresAt time.Time
}

// AuthenticateDeps captures authenticate flow dependencies.
type AuthenticateDeps struct {
	Hooks
	Metrics Metrics

	Now             func() time.Time
	ObserveLatency  func(time.Duration)
	VerifyAccess    func(string) (*jwt.Claims, error)
	BlacklistStatus func(context.Context, string) (bool, error)
}

// RunAuthenticate admits an access token only if it verifies and is
// confirmed not blacklisted.
func RunAuthenticate(ctx context.Context, accessToken string, deps AuthenticateDeps) AuthenticateResult {
	hooks := deps.Hooks.fill()
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.ObserveLatency != nil {
		start := deps.Now()
		defer func() { deps.ObserveLatency(deps.Now().Sub(start)) }()
	}

	claims, err := deps.VerifyAccess(accessToken)
	if err != nil {
		hooks.MetricInc(deps.Metrics.AuthenticateFailure)
		return AuthenticateResult{Failure: AuthenticateFailureInvalid, Err: err}
	}

	revoked, err := deps.BlacklistStatus(ctx, accessToken)
	if err != nil {
		hooks.MetricInc(deps.Metrics.StoreUnavailable)
		hooks.Warn("tokenkeeper: blacklist lookup failed, rejecting token", "user_id", claims.UserID, "error", err)
	}
	if revoked || err != nil {
		hooks.MetricInc(deps.Metrics.AuthenticateRevoked)
		return AuthenticateResult{Failure: AuthenticateFailureRevoked, Err: err, Claim: claims.Identity()}
	}

	hooks.MetricInc(deps.Metrics.AuthenticateSuccess)
	return AuthenticateResult{
		Claim:     claims.Identity(),
		TokenID:   claims.TokenID(),
		ExpiresAt: claims.Expiry(),
	}
}
