package flows

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/MrEthical07/tokenkeeper/jwt"
)

// RegisterRequest is the flow-local registration input.
type RegisterRequest struct {
	Email     string
	Username  string
	Password  string
	FirstName string
	LastName  string
}

// Normalize trims every field and lower-cases the email. The password is
// left untouched.
func (r RegisterRequest) Normalize() RegisterRequest {
	r.Email = NormalizeEmail(r.Email)
	r.Username = strings.TrimSpace(r.Username)
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	return r
}

// NormalizeEmail is the canonical form used for lookups and storage.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// RegisterFailureKind classifies register failures for root-level mapping.
type RegisterFailureKind int

const (
	RegisterFailureNone RegisterFailureKind = iota
	RegisterFailureInvalid
	RegisterFailureConflict
	RegisterFailureHash
	RegisterFailureStore
	RegisterFailureSession
)

// RegisterResult carries the created user and token pair, or failure metadata.
type RegisterResult struct {
	Failure RegisterFailureKind
	Err     error
	// ConflictField is "email" or "username" on RegisterFailureConflict, or
	// empty when the store reported the duplicate.
	ConflictField string
	User          UserRecord
	Pair          jwt.Pair
}

// RegisterDeps captures register flow dependencies.
type RegisterDeps struct {
	Hooks
	Events  Events
	Metrics Metrics

	DefaultRole string
	Now         func() time.Time

	Validate              func(RegisterRequest) error
	NewUserID             func(time.Time) (string, error)
	HashPassword          func(string) (string, error)
	FindByEmailOrUsername func(ctx context.Context, email, username string) (UserRecord, bool, error)
	InsertUser            func(context.Context, UserRecord) error
	IsConflict            func(error) bool
	StartSession          func(context.Context, jwt.Claim) (jwt.Pair, error)
}

// RunRegister validates the request, rejects duplicates, stores the user and
// starts its first session.
func RunRegister(ctx context.Context, req RegisterRequest, deps RegisterDeps) RegisterResult {
	hooks := deps.Hooks.fill()
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.IsConflict == nil {
		deps.IsConflict = func(error) bool { return false }
	}

	req = req.Normalize()
	fail := func(kind RegisterFailureKind, err error, reason string) RegisterResult {
		hooks.EmitAudit(ctx, deps.Events.Register, false, "", err, func() map[string]string {
			return map[string]string{"reason": reason}
		})
		return RegisterResult{Failure: kind, Err: err}
	}

	if deps.Validate != nil {
		if err := deps.Validate(req); err != nil {
			hooks.MetricInc(deps.Metrics.RegisterInvalid)
			return fail(RegisterFailureInvalid, err, "invalid_input")
		}
	}

	existing, found, err := deps.FindByEmailOrUsername(ctx, req.Email, req.Username)
	if err != nil {
		return fail(RegisterFailureStore, err, "user_lookup")
	}
	if found {
		field := "username"
		if existing.Email == req.Email {
			field = "email"
		}
		hooks.MetricInc(deps.Metrics.RegisterConflict)
		res := fail(RegisterFailureConflict, errors.New(field+" already exists"), "duplicate_"+field)
		res.ConflictField = field
		return res
	}

	hash, err := deps.HashPassword(req.Password)
	if err != nil {
		return fail(RegisterFailureHash, err, "hash")
	}
	req.Password = ""

	now := deps.Now().UTC()
	id, err := deps.NewUserID(now)
	if err != nil {
		return fail(RegisterFailureStore, err, "id")
	}

	user := UserRecord{
		ID:           id,
		Email:        req.Email,
		Username:     req.Username,
		PasswordHash: hash,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Role:         deps.DefaultRole,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := deps.InsertUser(ctx, user); err != nil {
		if deps.IsConflict(err) {
			// Lost a race with a concurrent registration for the same identity.
			hooks.MetricInc(deps.Metrics.RegisterConflict)
			return fail(RegisterFailureConflict, err, "duplicate_insert")
		}
		return fail(RegisterFailureStore, err, "insert")
	}

	pair, err := deps.StartSession(ctx, user.Claim())
	if err != nil {
		hooks.Warn("tokenkeeper: session start after register failed", "user_id", user.ID, "error", err)
		return fail(RegisterFailureSession, err, "session_start")
	}

	hooks.MetricInc(deps.Metrics.SessionCreated)
	hooks.MetricInc(deps.Metrics.RegisterSuccess)
	hooks.EmitAudit(ctx, deps.Events.Register, true, user.ID, nil, nil)

	return RegisterResult{User: user, Pair: pair}
}
