package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/tokenkeeper/jwt"
)

var (
	// ErrRefreshInvalid means the presented refresh token failed verification
	// (bad signature, expired, malformed).
	ErrRefreshInvalid = errors.New("refresh token invalid")
	// ErrSuperseded means the presented refresh token is authentic but is not
	// the one currently stored for its user, or the store could not confirm it.
	ErrSuperseded = errors.New("refresh token superseded")
	// ErrReuseDetected is joined with ErrSuperseded when a superseded token is
	// presented while its user still has a live session.
	ErrReuseDetected = errors.New("refresh token reuse detected")
)

const blacklistMarker = "revoked"

// ManagerConfig configures a Manager.
type ManagerConfig struct {
	Store  Store
	Issuer *jwt.Issuer
	Keys   Keys

	// RevokeOnReuse deletes the live session when a superseded refresh token
	// is replayed, logging out both the legitimate holder and the attacker.
	RevokeOnReuse bool

	// Now is used for blacklist TTL computation. It must agree with the
	// issuer's clock.
	Now func() time.Time
}

// Rotation is the outcome of a successful refresh.
type Rotation struct {
	Pair  jwt.Pair
	Claim jwt.Claim
}

// Manager implements the refresh-session state machine on top of a Store.
//
// Per user the states are: no session, active(refreshToken). StartSession and
// Rotate move to active, Revoke and key expiry move back to no session.
// Manager holds no mutable state of its own and is safe for concurrent use.
type Manager struct {
	store         Store
	issuer        *jwt.Issuer
	keys          Keys
	revokeOnReuse bool
	now           func() time.Time
}

// NewManager validates cfg and returns a Manager.
func NewManager(cfg ManagerConfig) (*Manager, error) {
	if cfg.Store == nil {
		return nil, errors.New("session: store is required")
	}
	if cfg.Issuer == nil {
		return nil, errors.New("session: issuer is required")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Manager{
		store:         cfg.Store,
		issuer:        cfg.Issuer,
		keys:          cfg.Keys,
		revokeOnReuse: cfg.RevokeOnReuse,
		now:           cfg.Now,
	}, nil
}

// Store exposes the underlying store for health checks.
func (m *Manager) Store() Store {
	return m.store
}

// StartSession mints a fresh pair for claim and makes its refresh token the
// only valid one for the user, replacing any previous session.
func (m *Manager) StartSession(ctx context.Context, claim jwt.Claim) (jwt.Pair, error) {
	pair, err := m.issuer.IssuePair(claim)
	if err != nil {
		return jwt.Pair{}, err
	}
	if err := m.store.Set(ctx, m.keys.Session(claim.ID), pair.RefreshToken, m.issuer.RefreshTTL()); err != nil {
		return jwt.Pair{}, err
	}
	return pair, nil
}

// Rotate exchanges presented for a new pair.
//
// The swap is conditional on presented still being the stored token, so of
// several concurrent rotations of the same token exactly one succeeds. Every
// failure, including a store outage, is reported as ErrRefreshInvalid or
// ErrSuperseded.
func (m *Manager) Rotate(ctx context.Context, presented string) (Rotation, error) {
	claims, err := m.issuer.VerifyRefresh(presented)
	if err != nil {
		return Rotation{}, fmt.Errorf("%w: %w", ErrRefreshInvalid, err)
	}
	claim := claims.Identity()

	pair, err := m.issuer.IssuePair(claim)
	if err != nil {
		return Rotation{}, err
	}

	key := m.keys.Session(claim.ID)
	swapped, err := m.store.CompareAndSwap(ctx, key, presented, pair.RefreshToken, m.issuer.RefreshTTL())
	if err != nil {
		return Rotation{}, fmt.Errorf("%w: %w", ErrSuperseded, err)
	}
	if !swapped {
		return Rotation{}, m.superseded(ctx, key)
	}

	return Rotation{Pair: pair, Claim: claim}, nil
}

func (m *Manager) superseded(ctx context.Context, key string) error {
	live, err := m.store.Exists(ctx, key)
	if err != nil || !live {
		return ErrSuperseded
	}
	if m.revokeOnReuse {
		// Best effort: the caller is rejected either way.
		_ = m.store.Delete(ctx, key)
	}
	return errors.Join(ErrSuperseded, ErrReuseDetected)
}

// Revoke removes the user's session. Revoking an absent session succeeds.
func (m *Manager) Revoke(ctx context.Context, userID string) error {
	return m.store.Delete(ctx, m.keys.Session(userID))
}

// BlacklistAccessToken records token as revoked until it stops verifying,
// which is its expiry plus the verifier leeway.
//
// Tokens that fail verification or are already expired need no entry and are
// ignored. A store write failure is returned so the caller can log it.
func (m *Manager) BlacklistAccessToken(ctx context.Context, token string) error {
	claims, err := m.issuer.VerifyAccess(token)
	if err != nil {
		return nil
	}
	// Verification tolerates the leeway past exp, so the entry must too.
	remaining := claims.Expiry().Add(m.issuer.AccessLeeway()).Sub(m.now())
	if remaining <= 0 {
		return nil
	}
	return m.store.Set(ctx, m.keys.Blacklist(token), blacklistMarker, remaining)
}

// BlacklistStatus reports whether token is revoked. On a store error it
// returns true together with the error.
func (m *Manager) BlacklistStatus(ctx context.Context, token string) (bool, error) {
	found, err := m.store.Exists(ctx, m.keys.Blacklist(token))
	if err != nil {
		return true, err
	}
	return found, nil
}

// IsAccessTokenBlacklisted reports whether token must be refused. It fails
// closed: when the store cannot answer, the token is treated as revoked.
func (m *Manager) IsAccessTokenBlacklisted(ctx context.Context, token string) bool {
	revoked, _ := m.BlacklistStatus(ctx, token)
	return revoked
}

// SessionActive reports whether userID currently has a refresh session.
func (m *Manager) SessionActive(ctx context.Context, userID string) (bool, error) {
	return m.store.Exists(ctx, m.keys.Session(userID))
}

// CurrentRefreshToken returns the stored refresh token for userID.
func (m *Manager) CurrentRefreshToken(ctx context.Context, userID string) (string, bool, error) {
	return m.store.Get(ctx, m.keys.Session(userID))
}
