package jwt

import (
	"crypto/subtle"
	"errors"
	"time"
)

// ErrSecretsEqual is returned when the access and refresh secrets are identical.
var ErrSecretsEqual = errors.New("jwt: access and refresh secrets must differ")

// IssuerConfig configures an Issuer.
type IssuerConfig struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	KeyID         string
	Issuer        string
	Audience      string
	Leeway        time.Duration
	Now           func() time.Time
}

// Pair is an access token together with its refresh token.
type Pair struct {
	AccessToken  string
	RefreshToken string
}

// Issuer mints and verifies both token classes with independent secrets and lifetimes.
//
// Issuer never persists anything; storing the refresh token is the session
// manager's job.
type Issuer struct {
	access     *Codec
	refresh    *Codec
	accessTTL  time.Duration
	refreshTTL time.Duration
	leeway     time.Duration
}

// NewIssuer builds the access and refresh codecs.
func NewIssuer(cfg IssuerConfig) (*Issuer, error) {
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("jwt: invalid TTL configuration")
	}
	if cfg.RefreshTTL <= cfg.AccessTTL {
		return nil, errors.New("jwt: refresh TTL must exceed access TTL")
	}
	if len(cfg.AccessSecret) > 0 && subtle.ConstantTimeCompare(cfg.AccessSecret, cfg.RefreshSecret) == 1 {
		return nil, ErrSecretsEqual
	}

	access, err := NewCodec(Config{
		Type:     TypeAccess,
		Secret:   cfg.AccessSecret,
		KeyID:    cfg.KeyID,
		Issuer:   cfg.Issuer,
		Audience: cfg.Audience,
		Leeway:   cfg.Leeway,
		Now:      cfg.Now,
	})
	if err != nil {
		return nil, err
	}

	refresh, err := NewCodec(Config{
		Type:     TypeRefresh,
		Secret:   cfg.RefreshSecret,
		KeyID:    cfg.KeyID,
		Issuer:   cfg.Issuer,
		Audience: cfg.Audience,
		Leeway:   cfg.Leeway,
		Now:      cfg.Now,
	})
	if err != nil {
		return nil, err
	}

	return &Issuer{
		access:     access,
		refresh:    refresh,
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		leeway:     cfg.Leeway,
	}, nil
}

// AccessTTL is the configured access-token lifetime.
func (i *Issuer) AccessTTL() time.Duration { return i.accessTTL }

// RefreshTTL is the configured refresh-token lifetime.
func (i *Issuer) RefreshTTL() time.Duration { return i.refreshTTL }

// AccessLeeway is how long past exp an access token still verifies.
func (i *Issuer) AccessLeeway() time.Duration { return i.leeway }

// IssueAccessToken mints an access token for claim.
func (i *Issuer) IssueAccessToken(claim Claim) (string, error) {
	return i.access.Issue(claim, i.accessTTL)
}

// IssueRefreshToken mints a refresh token for claim.
func (i *Issuer) IssueRefreshToken(claim Claim) (string, error) {
	return i.refresh.Issue(claim, i.refreshTTL)
}

// IssuePair mints an access and a refresh token for claim.
func (i *Issuer) IssuePair(claim Claim) (Pair, error) {
	access, err := i.IssueAccessToken(claim)
	if err != nil {
		return Pair{}, err
	}
	refresh, err := i.IssueRefreshToken(claim)
	if err != nil {
		return Pair{}, err
	}
	return Pair{AccessToken: access, RefreshToken: refresh}, nil
}

// VerifyAccess verifies an access token with the access secret.
func (i *Issuer) VerifyAccess(token string) (*Claims, error) {
	return i.access.Verify(token)
}

// VerifyRefresh verifies a refresh token with the refresh secret.
func (i *Issuer) VerifyRefresh(token string) (*Claims, error) {
	return i.refresh.Verify(token)
}
