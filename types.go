package tokenkeeper

import (
	"context"
	"time"

	"github.com/MrEthical07/tokenkeeper/internal/flows"
)

// UserRecord is a stored user as seen by a [UserStore].
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

// UserStore is the durable user repository consulted by the engine.
//
// Lookups that match nothing return [ErrUserRecordNotFound]; Insert returns
// [ErrUserRecordConflict] when the email or username is already taken.
// Emails are passed in normalized (trimmed, lower-case) form.
type UserStore interface {
	FindByEmailOrUsername(ctx context.Context, email, username string) (UserRecord, error)
	FindByEmail(ctx context.Context, email string) (UserRecord, error)
	FindByID(ctx context.Context, id string) (UserRecord, error)
	Insert(ctx context.Context, user UserRecord) error
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error
}

// PasswordHasher hashes and verifies credentials. [password.Argon2] and
// [password.Bcrypt] both satisfy it.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) (bool, error)
}

// RegisterRequest is the input to [Engine.Register].
type RegisterRequest struct {
	Email     string `json:"email"`
	Username  string `json:"username"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// User is the public projection returned alongside a token pair.
type User struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Username  string `json:"username"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Role      string `json:"role"`
}

// AuthResponse is returned by Register, Login and Refresh.
type AuthResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	User         User   `json:"user"`
}

// Profile is the read-only view returned by [Engine.Profile].
type Profile struct {
	ID              string     `json:"id"`
	Email           string     `json:"email"`
	Username        string     `json:"username"`
	FirstName       string     `json:"firstName,omitempty"`
	LastName        string     `json:"lastName,omitempty"`
	Role            string     `json:"role"`
	IsEmailVerified bool       `json:"isEmailVerified"`
	IsActive        bool       `json:"isActive"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
	LastLoginAt     *time.Time `json:"lastLoginAt,omitempty"`
}

// AuthResult is the identity behind an admitted access token.
type AuthResult struct {
	UserID    string
	Email     string
	TokenID   string
	ExpiresAt time.Time
}

func toFlowUser(u UserRecord) flows.UserRecord {
	return flows.UserRecord(u)
}

func fromFlowUser(u flows.UserRecord) UserRecord {
	return UserRecord(u)
}

func publicUser(u flows.UserRecord) User {
	return User{
		ID:        u.ID,
		Email:     u.Email,
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Role:      u.Role,
	}
}

func profileOf(u flows.UserRecord) *Profile {
	return &Profile{
		ID:              u.ID,
		Email:           u.Email,
		Username:        u.Username,
		FirstName:       u.FirstName,
		LastName:        u.LastName,
		Role:            u.Role,
		IsEmailVerified: u.IsEmailVerified,
		IsActive:        u.IsActive,
		CreatedAt:       u.CreatedAt,
		UpdatedAt:       u.UpdatedAt,
		LastLoginAt:     u.LastLoginAt,
	}
}
