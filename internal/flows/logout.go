package flows

import "context"

// LogoutFailureKind classifies logout failures for root-level mapping.
type LogoutFailureKind int

const (
	LogoutFailureNone LogoutFailureKind = iota
	LogoutFailureRevoke
)

// LogoutResult reports the outcome of a logout.
type LogoutResult struct {
	Failure LogoutFailureKind
	Err     error
	// BlacklistErr is set when the access token could not be blacklisted.
	// The logout itself still succeeded.
	BlacklistErr error
}

// LogoutDeps captures logout flow dependencies.
type LogoutDeps struct {
	Hooks
	Events  Events
	Metrics Metrics

	Revoke    func(ctx context.Context, userID string) error
	Blacklist func(ctx context.Context, accessToken string) error
}

// RunLogout revokes the user's session, then blacklists the access token
// presented with the request. A failed revoke fails the logout; a failed
// blacklist write is reported but does not.
func RunLogout(ctx context.Context, userID, accessToken string, deps LogoutDeps) LogoutResult {
	hooks := deps.Hooks.fill()

	if err := deps.Revoke(ctx, userID); err != nil {
		hooks.MetricInc(deps.Metrics.StoreUnavailable)
		hooks.EmitAudit(ctx, deps.Events.Logout, false, userID, err, nil)
		return LogoutResult{Failure: LogoutFailureRevoke, Err: err}
	}
	hooks.MetricInc(deps.Metrics.SessionInvalidated)
	hooks.MetricInc(deps.Metrics.Logout)
	hooks.EmitAudit(ctx, deps.Events.Logout, true, userID, nil, nil)

	var blErr error
	if accessToken != "" {
		blErr = deps.Blacklist(ctx, accessToken)
		if blErr != nil {
			hooks.MetricInc(deps.Metrics.StoreUnavailable)
			hooks.Warn("tokenkeeper: access token blacklist write failed", "user_id", userID, "error", blErr)
		} else {
			hooks.MetricInc(deps.Metrics.TokenBlacklisted)
		}
		hooks.EmitAudit(ctx, deps.Events.TokenRevocation, blErr == nil, userID, blErr, nil)
	}

	return LogoutResult{BlacklistErr: blErr}
}
