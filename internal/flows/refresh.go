package flows

import (
	"context"
	"errors"

	"github.com/MrEthical07/tokenkeeper/jwt"
	"github.com/MrEthical07/tokenkeeper/session"
)

// RefreshFailureKind classifies refresh failures for root-level mapping.
type RefreshFailureKind int

const (
	RefreshFailureNone RefreshFailureKind = iota
	// RefreshFailureInvalid: the token failed verification.
	RefreshFailureInvalid
	RefreshFailureRateLimited
	// RefreshFailureSuperseded: authentic token that is no longer the
	// stored one, or the store could not confirm it.
	RefreshFailureSuperseded
	// RefreshFailureReuse: superseded token presented while the user still
	// has a live session.
	RefreshFailureReuse
	// RefreshFailureUserGone: the user vanished or was deactivated.
	RefreshFailureUserGone
	RefreshFailureStore
)

// RefreshResult carries the rotated pair and user, or failure metadata.
type RefreshResult struct {
	Failure RefreshFailureKind
	Err     error
	UserID  string
	User    UserRecord
	Pair    jwt.Pair
}

// RefreshDeps captures refresh flow dependencies.
type RefreshDeps struct {
	Hooks
	Events  Events
	Metrics Metrics

	VerifyRefresh    func(string) (*jwt.Claims, error)
	CheckRefreshRate func(ctx context.Context, userID string) error
	IsRateLimited    func(error) bool
	Rotate           func(context.Context, string) (session.Rotation, error)
	FindByID         func(context.Context, string) (UserRecord, bool, error)
	Revoke           func(context.Context, string) error
}

// RunRefresh exchanges a refresh token for a new pair.
func RunRefresh(ctx context.Context, refreshToken string, deps RefreshDeps) RefreshResult {
	hooks := deps.Hooks.fill()
	if deps.IsRateLimited == nil {
		deps.IsRateLimited = func(error) bool { return false }
	}

	fail := func(kind RefreshFailureKind, userID, reason string, err error) RefreshResult {
		event := deps.Events.RefreshFailure
		switch kind {
		case RefreshFailureReuse:
			event = deps.Events.RefreshReuse
			hooks.MetricInc(deps.Metrics.RefreshReuse)
		case RefreshFailureRateLimited:
			hooks.MetricInc(deps.Metrics.RefreshRateLimited)
		}
		hooks.MetricInc(deps.Metrics.RefreshFailure)
		hooks.EmitAudit(ctx, event, false, userID, err, func() map[string]string {
			return map[string]string{"reason": reason}
		})
		return RefreshResult{Failure: kind, Err: err, UserID: userID}
	}

	claims, err := deps.VerifyRefresh(refreshToken)
	if err != nil {
		return fail(RefreshFailureInvalid, "", jwt.KindOf(err).String(), err)
	}
	userID := claims.UserID

	if deps.CheckRefreshRate != nil {
		if err := deps.CheckRefreshRate(ctx, userID); err != nil {
			if deps.IsRateLimited(err) {
				return fail(RefreshFailureRateLimited, userID, "rate_limited", err)
			}
			hooks.Warn("tokenkeeper: refresh rate limit check unavailable, allowing attempt", "error", err)
		}
	}

	// A lookup failure must not spend the presented token.
	user, found, err := deps.FindByID(ctx, userID)
	if err != nil {
		return fail(RefreshFailureStore, userID, "user_lookup", err)
	}
	if !found || !user.IsActive {
		if err := deps.Revoke(ctx, userID); err != nil {
			hooks.Warn("tokenkeeper: revoke for missing user failed", "user_id", userID, "error", err)
		} else {
			hooks.MetricInc(deps.Metrics.SessionInvalidated)
		}
		reason := "user_not_found"
		if found {
			reason = "account_inactive"
		}
		return fail(RefreshFailureUserGone, userID, reason, nil)
	}

	rot, err := deps.Rotate(ctx, refreshToken)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrReuseDetected):
			return fail(RefreshFailureReuse, userID, "superseded_or_invalid", err)
		case errors.Is(err, session.ErrRefreshInvalid):
			return fail(RefreshFailureInvalid, userID, "superseded_or_invalid", err)
		case errors.Is(err, session.ErrStoreUnavailable):
			hooks.MetricInc(deps.Metrics.StoreUnavailable)
			hooks.Warn("tokenkeeper: session store unavailable during refresh", "user_id", userID, "error", err)
			return fail(RefreshFailureSuperseded, userID, "store_unavailable", err)
		default:
			return fail(RefreshFailureSuperseded, userID, "superseded_or_invalid", err)
		}
	}

	hooks.MetricInc(deps.Metrics.RefreshSuccess)
	hooks.EmitAudit(ctx, deps.Events.RefreshSuccess, true, userID, nil, nil)

	return RefreshResult{UserID: userID, User: user, Pair: rot.Pair}
}
