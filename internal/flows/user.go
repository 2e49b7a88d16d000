package flows

import (
	"context"
	"time"

	"github.com/MrEthical07/tokenkeeper/jwt"
)

// UserRecord is the flow-local view of a stored user.
type UserRecord struct {
	ID              string
	Email           string
	Username        string
	PasswordHash    string
	FirstName       string
	LastName        string
	Role            string
	IsActive        bool
	IsEmailVerified bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
	LastLoginAt     *time.Time
}

// Claim returns the identity embedded in the user's tokens.
func (u UserRecord) Claim() jwt.Claim {
	return jwt.Claim{ID: u.ID, Email: u.Email}
}

// Hooks carries the observability callbacks shared by every flow. Nil fields
// are replaced with no-ops by fill.
type Hooks struct {
	MetricInc func(int)
	EmitAudit func(ctx context.Context, event string, success bool, userID string, err error, meta func() map[string]string)
	Warn      func(msg string, args ...any)
}

func (h Hooks) fill() Hooks {
	if h.MetricInc == nil {
		h.MetricInc = func(int) {}
	}
	if h.EmitAudit == nil {
		h.EmitAudit = func(context.Context, string, bool, string, error, func() map[string]string) {}
	}
	if h.Warn == nil {
		h.Warn = func(string, ...any) {}
	}
	return h
}

// Events carries audit event names so flows do not hard-code them.
type Events struct {
	Register         string
	LoginSuccess     string
	LoginFailure     string
	LoginRateLimited string
	RefreshSuccess   string
	RefreshFailure   string
	RefreshReuse     string
	Logout           string
	TokenRevocation  string
}

// Metrics carries metric IDs used by the flows.
type Metrics struct {
	RegisterSuccess     int
	RegisterConflict    int
	RegisterInvalid     int
	LoginSuccess        int
	LoginFailure        int
	LoginRateLimited    int
	RefreshSuccess      int
	RefreshFailure      int
	RefreshReuse        int
	RefreshRateLimited  int
	SessionCreated      int
	SessionInvalidated  int
	Logout              int
	TokenBlacklisted    int
	AuthenticateSuccess int
	AuthenticateFailure int
	AuthenticateRevoked int
	StoreUnavailable    int
}
