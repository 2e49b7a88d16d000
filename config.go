package tokenkeeper

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/MrEthical07/tokenkeeper/jwt"
	"github.com/MrEthical07/tokenkeeper/password"
)

// Config holds every engine setting. Start from [DefaultConfig] and
// override what differs.
type Config struct {
	JWT       JWTConfig
	Session   SessionConfig
	Password  PasswordConfig
	RateLimit RateLimitConfig
	Audit     AuditConfig
	Metrics   MetricsConfig

	// DefaultRole is assigned to newly registered users.
	DefaultRole string
}

// JWTConfig configures both token classes. The two secrets must differ and
// be at least jwt.MinSecretLength bytes.
type JWTConfig struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	KeyID         string
	Issuer        string
	Audience      string
	Leeway        time.Duration
}

// SessionConfig controls session store keys and the reuse response.
type SessionConfig struct {
	// KeyPrefix is prepended to every store key, including rate-limit counters.
	KeyPrefix string
	// RevokeOnReuse deletes a user's live session when a superseded refresh
	// token for that user is presented.
	RevokeOnReuse bool
}

// PasswordAlgorithm selects the built-in hasher used when no
// PasswordHasher is supplied to the builder.
type PasswordAlgorithm string

const (
	PasswordArgon2id PasswordAlgorithm = "argon2id"
	PasswordBcrypt   PasswordAlgorithm = "bcrypt"
)

type PasswordConfig struct {
	Algorithm PasswordAlgorithm

	// argon2id
	Memory      uint32 // in KB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32

	// bcrypt
	BcryptCost int
}

// RateLimitConfig tunes the Redis-backed login and refresh throttles. The
// throttles are only active when the engine is built with a Redis client.
type RateLimitConfig struct {
	Enabled                 bool
	EnableIPThrottle        bool
	MaxLoginAttempts        int
	LoginCooldownDuration   time.Duration
	EnableRefreshThrottle   bool
	MaxRefreshAttempts      int
	RefreshCooldownDuration time.Duration
}

type AuditConfig struct {
	Enabled     bool
	BufferSize  int
	DropIfFull  bool
	SinkTimeout time.Duration
}

type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns the engine defaults. JWT secrets are left empty and
// must be provided.
func DefaultConfig() Config {
	argon := password.DefaultConfig()
	return Config{
		JWT: JWTConfig{
			AccessTTL:  15 * time.Minute,
			RefreshTTL: 7 * 24 * time.Hour,
		},
		Password: PasswordConfig{
			Algorithm:   PasswordArgon2id,
			Memory:      argon.Memory,
			Time:        argon.Time,
			Parallelism: argon.Parallelism,
			SaltLength:  argon.SaltLength,
			KeyLength:   argon.KeyLength,
			BcryptCost:  password.DefaultBcryptCost,
		},
		RateLimit: RateLimitConfig{
			Enabled:                 true,
			EnableIPThrottle:        false,
			MaxLoginAttempts:        5,
			LoginCooldownDuration:   15 * time.Minute,
			EnableRefreshThrottle:   true,
			MaxRefreshAttempts:      20,
			RefreshCooldownDuration: time.Minute,
		},
		Audit: AuditConfig{
			Enabled:     false,
			BufferSize:  1024,
			DropIfFull:  true,
			SinkTimeout: 2 * time.Second,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: false,
		},
		DefaultRole: "user",
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.AccessSecret = cloneBytes(cfg.JWT.AccessSecret)
	out.JWT.RefreshSecret = cloneBytes(cfg.JWT.RefreshSecret)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// Validate reports the first invalid section, naming the offending fields.
func (c *Config) Validate() error {
	sections := []struct {
		name  string
		check func() error
	}{
		{"jwt", c.JWT.validate},
		{"password", c.Password.validate},
		{"rate limit", c.RateLimit.validate},
		{"audit", c.Audit.validate},
		{"config", func() error {
			return validation.ValidateStruct(c, validation.Field(&c.DefaultRole, validation.Required))
		}},
	}
	for _, sec := range sections {
		if err := sec.check(); err != nil {
			return fmt.Errorf("%s: %w", sec.name, err)
		}
	}
	return nil
}

func (c *JWTConfig) validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.AccessSecret, validation.Required, validation.Length(jwt.MinSecretLength, 0)),
		validation.Field(&c.RefreshSecret, validation.Required, validation.Length(jwt.MinSecretLength, 0),
			validation.By(func(any) error {
				if subtle.ConstantTimeCompare(c.AccessSecret, c.RefreshSecret) == 1 {
					return errors.New("must differ from AccessSecret")
				}
				return nil
			})),
		validation.Field(&c.AccessTTL, validation.Required, validation.Min(time.Nanosecond)),
		validation.Field(&c.RefreshTTL, validation.Required, validation.Min(c.AccessTTL+1)),
		validation.Field(&c.Leeway, validation.Min(time.Duration(0)), validation.Max(2*time.Minute)),
	)
}

func (c *PasswordConfig) validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Algorithm, validation.Required, validation.In(PasswordArgon2id, PasswordBcrypt)),
		validation.Field(&c.BcryptCost, validation.Min(password.MinBcryptCost), validation.Max(password.MaxBcryptCost)),
	); err != nil {
		return err
	}
	if c.Algorithm != PasswordArgon2id {
		return nil
	}
	floor := password.MinimumConfig()
	return validation.ValidateStruct(c,
		validation.Field(&c.Memory, validation.Required, validation.Min(floor.Memory)),
		validation.Field(&c.Time, validation.Required, validation.Min(floor.Time)),
		validation.Field(&c.Parallelism, validation.Required, validation.Min(floor.Parallelism)),
		validation.Field(&c.SaltLength, validation.Required, validation.Min(floor.SaltLength)),
		validation.Field(&c.KeyLength, validation.Required, validation.Min(floor.KeyLength)),
	)
}

// validate ignores the budgets of throttles that are switched off.
func (c *RateLimitConfig) validate() error {
	if !c.Enabled {
		return nil
	}
	refreshRules := func(rules ...validation.Rule) []validation.Rule {
		if !c.EnableRefreshThrottle {
			return nil
		}
		return rules
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.MaxLoginAttempts, validation.Required, validation.Min(1)),
		validation.Field(&c.LoginCooldownDuration, validation.Required, validation.Min(time.Nanosecond)),
		validation.Field(&c.MaxRefreshAttempts, refreshRules(validation.Required, validation.Min(1))...),
		validation.Field(&c.RefreshCooldownDuration, refreshRules(validation.Required, validation.Min(time.Nanosecond))...),
	)
}

func (c *AuditConfig) validate() error {
	bufferRules := []validation.Rule{validation.Min(0)}
	if c.Enabled {
		bufferRules = append(bufferRules, validation.Required)
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.BufferSize, bufferRules...),
		validation.Field(&c.SinkTimeout, validation.Min(time.Duration(0))),
	)
}
