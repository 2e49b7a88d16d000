package jwt

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// MinSecretLength is the minimum HS256 secret size accepted by NewCodec.
const MinSecretLength = 32

// TokenType distinguishes access tokens from refresh tokens inside the claims.
type TokenType string

const (
	TypeAccess  TokenType = "access"
	TypeRefresh TokenType = "refresh"
)

// Claim is the identity payload embedded in every token.
type Claim struct {
	ID    string
	Email string
}

// Claims is the full decoded token body.
type Claims struct {
	UserID string    `json:"id"`
	Email  string    `json:"email"`
	Type   TokenType `json:"typ"`
	jwt.RegisteredClaims
}

// Identity returns the identity claim carried by the token.
func (c *Claims) Identity() Claim {
	return Claim{ID: c.UserID, Email: c.Email}
}

// TokenID returns the jti claim.
func (c *Claims) TokenID() string {
	return c.ID
}

// Expiry returns the exp claim, or the zero time when absent.
func (c *Claims) Expiry() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// Config configures a single-class Codec.
type Config struct {
	Type   TokenType
	Secret []byte

	// KeyID is written into the kid header when set. VerifySecrets, when
	// non-empty, selects the verification secret by kid so secrets can be
	// rotated without invalidating outstanding tokens.
	KeyID         string
	VerifySecrets map[string][]byte

	Issuer   string
	Audience string
	Leeway   time.Duration

	// Now overrides the clock used for issuing and expiry checks.
	Now func() time.Time
}

// Codec signs and verifies tokens of one class with one secret.
//
// A Codec is immutable after construction and safe for concurrent use.
type Codec struct {
	config Config
}

// NewCodec validates cfg and returns a Codec.
func NewCodec(cfg Config) (*Codec, error) {
	if cfg.Type != TypeAccess && cfg.Type != TypeRefresh {
		return nil, errors.New("jwt: unsupported token type")
	}
	if len(cfg.Secret) < MinSecretLength {
		return nil, fmt.Errorf("jwt: %s secret must be at least %d bytes", cfg.Type, MinSecretLength)
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("jwt: invalid leeway configuration")
	}
	cfg.KeyID = strings.TrimSpace(cfg.KeyID)
	for kid, secret := range cfg.VerifySecrets {
		if strings.TrimSpace(kid) == "" {
			return nil, errors.New("jwt: verify secret map contains empty kid")
		}
		if len(secret) < MinSecretLength {
			return nil, fmt.Errorf("jwt: verify secret for kid %q too short", kid)
		}
	}
	if cfg.KeyID != "" && len(cfg.VerifySecrets) > 0 {
		if _, ok := cfg.VerifySecrets[cfg.KeyID]; !ok {
			return nil, errors.New("jwt: KeyID is not present in VerifySecrets")
		}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	cfg.Secret = append([]byte(nil), cfg.Secret...)

	return &Codec{config: cfg}, nil
}

// Type reports the token class this codec handles.
func (c *Codec) Type() TokenType {
	return c.config.Type
}

// Issue signs a token for claim that expires after ttl.
//
// Each call embeds a fresh random jti, so two tokens for the same claim
// minted within the same clock tick are still distinct strings.
func (c *Codec) Issue(claim Claim, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		return "", errors.New("jwt: ttl must be positive")
	}
	if claim.ID == "" {
		return "", errors.New("jwt: claim id required")
	}

	jti, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("jwt: token id: %w", err)
	}

	now := c.config.Now()
	claims := Claims{
		UserID: claim.ID,
		Email:  claim.Email,
		Type:   c.config.Type,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    c.config.Issuer,
		},
	}
	if c.config.Audience != "" {
		claims.Audience = jwt.ClaimStrings{c.config.Audience}
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	if c.config.KeyID != "" {
		token.Header["kid"] = c.config.KeyID
	}

	return token.SignedString(c.config.Secret)
}

// Verify parses token, checks its signature against the codec secret and
// validates expiry, class and required claims.
//
// Every failure is a *VerifyError.
func (c *Codec) Verify(tokenStr string) (*Claims, error) {
	if tokenStr == "" {
		return nil, verifyErr(KindMalformed, errors.New("empty token"))
	}

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(c.config.Now),
	}
	if c.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(c.config.Leeway))
	}
	if c.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(c.config.Issuer))
	}
	if c.config.Audience != "" {
		options = append(options, jwt.WithAudience(c.config.Audience))
	}

	parser := jwt.NewParser(options...)
	token, err := parser.ParseWithClaims(tokenStr, &Claims{}, c.keyFunc)
	if err != nil {
		return nil, classify(err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, verifyErr(KindMalformed, jwt.ErrTokenInvalidClaims)
	}
	if claims.Type != c.config.Type {
		return nil, verifyErr(KindMalformed, fmt.Errorf("unexpected token type %q", claims.Type))
	}
	if claims.UserID == "" || claims.ID == "" {
		return nil, verifyErr(KindMalformed, errors.New("missing identity claims"))
	}

	return claims, nil
}

func (c *Codec) keyFunc(t *jwt.Token) (interface{}, error) {
	if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
		return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
	}

	kid, _ := t.Header["kid"].(string)
	if len(c.config.VerifySecrets) > 0 {
		if kid == "" {
			return nil, errors.New("missing kid")
		}
		secret, ok := c.config.VerifySecrets[kid]
		if !ok {
			return nil, errors.New("unknown kid")
		}
		return secret, nil
	}
	if c.config.KeyID != "" && subtle.ConstantTimeCompare([]byte(kid), []byte(c.config.KeyID)) != 1 {
		return nil, errors.New("unknown kid")
	}

	return c.config.Secret, nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return verifyErr(KindMalformed, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return verifyErr(KindBadSignature, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return verifyErr(KindExpired, err)
	default:
		return verifyErr(KindMalformed, err)
	}
}
