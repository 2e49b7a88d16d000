package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"
)

// ErrStoreUnavailable wraps every backend failure (connection, timeout, script error).
//
// A missing key is never reported through this error.
var ErrStoreUnavailable = errors.New("session store unavailable")

// ErrInvalidTTL is returned when a write is attempted without a positive TTL.
var ErrInvalidTTL = errors.New("session store: ttl must be positive")

// Store is the expiring key-value capability the session manager depends on.
//
// Every write carries a TTL; implementations must expire keys on their own.
type Store interface {
	// Get returns the value and true, or "" and false when the key is absent or expired.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// Delete succeeds when the key does not exist.
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	// CompareAndSwap atomically replaces the value of key with next (and resets
	// its TTL) only if the current value equals old. It reports whether the
	// swap happened.
	CompareAndSwap(ctx context.Context, key, old, next string, ttl time.Duration) (bool, error)
	Ping(ctx context.Context) error
}

// Keys builds the namespaced keys used by the manager.
type Keys struct {
	// Prefix is prepended to every key, e.g. "tk:" to share a Redis database.
	Prefix string
}

// Session returns the key holding the current refresh token of userID.
func (k Keys) Session(userID string) string {
	return k.Prefix + "session:" + userID
}

// Blacklist returns the revocation key for an access token. The token itself
// is never stored; only its SHA-256 digest appears in the key.
func (k Keys) Blacklist(token string) string {
	sum := sha256.Sum256([]byte(token))
	return k.Prefix + "blacklist:" + hex.EncodeToString(sum[:])
}
