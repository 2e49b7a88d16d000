package flows

import "context"

// ProfileFailureKind classifies profile failures for root-level mapping.
type ProfileFailureKind int

const (
	ProfileFailureNone ProfileFailureKind = iota
	ProfileFailureNotFound
	ProfileFailureStore
)

// ProfileResult carries the user record or failure metadata.
type ProfileResult struct {
	Failure ProfileFailureKind
	Err     error
	User    UserRecord
}

// ProfileDeps captures profile flow dependencies.
type ProfileDeps struct {
	FindByID func(context.Context, string) (UserRecord, bool, error)
}

// RunProfile loads the user behind an authenticated request.
func RunProfile(ctx context.Context, userID string, deps ProfileDeps) ProfileResult {
	user, found, err := deps.FindByID(ctx, userID)
	if err != nil {
		return ProfileResult{Failure: ProfileFailureStore, Err: err}
	}
	if !found {
		return ProfileResult{Failure: ProfileFailureNotFound}
	}
	return ProfileResult{User: user}
}
