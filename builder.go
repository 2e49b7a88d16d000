package tokenkeeper

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	internalaudit "github.com/MrEthical07/tokenkeeper/internal/audit"
	"github.com/MrEthical07/tokenkeeper/internal/rate"
	"github.com/MrEthical07/tokenkeeper/jwt"
	"github.com/MrEthical07/tokenkeeper/password"
	"github.com/MrEthical07/tokenkeeper/session"
	"github.com/redis/go-redis/v9"
)

// dummyPassword is hashed once at build time; login verifies against the
// result for unknown users.
const dummyPassword = "tokenkeeper-timing-equalizer"

// Builder assembles an [Engine]. A Builder is single-use.
type Builder struct {
	config Config
	redis  redis.UniversalClient
	store  session.Store

	users     UserStore
	hasher    PasswordHasher
	logger    *slog.Logger
	auditSink AuditSink
	clock     func() time.Time

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis backs sessions, blacklist entries and rate limiting with client.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithStore overrides the session store. Rate limiting stays disabled
// unless WithRedis is also called.
func (b *Builder) WithStore(store session.Store) *Builder {
	b.store = store
	return b
}

func (b *Builder) WithUserStore(users UserStore) *Builder {
	b.users = users
	return b
}

// WithPasswordHasher replaces the hasher selected by Config.Password.
func (b *Builder) WithPasswordHasher(h PasswordHasher) *Builder {
	b.hasher = h
	return b
}

// WithLogger sets the logger used for degraded-dependency warnings. The
// default is slog.Default().
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithAuditSink sets the audit destination and enables auditing.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	b.config.Audit.Enabled = sink != nil
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// WithClock overrides time.Now for token issuing, expiry checks and
// blacklist lifetimes.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.clock = now
	return b
}

// Build validates the configuration and wires the engine.
//
// Build may return an error when the configuration is invalid or a required
// dependency is missing.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	store := b.store
	if store == nil {
		if b.redis == nil {
			return nil, errors.New("session store required: call WithRedis or WithStore")
		}
		store = session.NewRedisStore(b.redis)
	}
	if b.users == nil {
		return nil, errors.New("user store required")
	}

	clock := b.clock
	if clock == nil {
		clock = time.Now
	}
	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}

	issuer, err := jwt.NewIssuer(jwt.IssuerConfig{
		AccessSecret:  cloneBytes(cfg.JWT.AccessSecret),
		RefreshSecret: cloneBytes(cfg.JWT.RefreshSecret),
		AccessTTL:     cfg.JWT.AccessTTL,
		RefreshTTL:    cfg.JWT.RefreshTTL,
		KeyID:         cfg.JWT.KeyID,
		Issuer:        cfg.JWT.Issuer,
		Audience:      cfg.JWT.Audience,
		Leeway:        cfg.JWT.Leeway,
		Now:           clock,
	})
	if err != nil {
		return nil, err
	}

	sessions, err := session.NewManager(session.ManagerConfig{
		Store:         store,
		Issuer:        issuer,
		Keys:          session.Keys{Prefix: cfg.Session.KeyPrefix},
		RevokeOnReuse: cfg.Session.RevokeOnReuse,
		Now:           clock,
	})
	if err != nil {
		return nil, err
	}

	hasher := b.hasher
	if hasher == nil {
		hasher, err = newPasswordHasher(cfg.Password)
		if err != nil {
			return nil, err
		}
	}
	dummyHash, err := hasher.Hash(dummyPassword)
	if err != nil {
		return nil, fmt.Errorf("precompute dummy hash: %w", err)
	}

	engine := &Engine{
		config:    cfg,
		issuer:    issuer,
		sessions:  sessions,
		store:     store,
		users:     b.users,
		hasher:    hasher,
		dummyHash: dummyHash,
		logger:    logger,
		clock:     clock,
		metrics:   NewMetrics(cfg.Metrics),
	}

	if b.redis != nil && cfg.RateLimit.Enabled {
		engine.rateLimiter = rate.New(b.redis, rate.Config{
			Prefix:                  cfg.Session.KeyPrefix,
			EnableIPThrottle:        cfg.RateLimit.EnableIPThrottle,
			MaxLoginAttempts:        cfg.RateLimit.MaxLoginAttempts,
			LoginCooldownDuration:   cfg.RateLimit.LoginCooldownDuration,
			EnableRefreshThrottle:   cfg.RateLimit.EnableRefreshThrottle,
			MaxRefreshAttempts:      cfg.RateLimit.MaxRefreshAttempts,
			RefreshCooldownDuration: cfg.RateLimit.RefreshCooldownDuration,
		})
	}

	sink := b.auditSink
	if sink == nil {
		sink = NewSlogSink(logger)
	}
	engine.audit = internalaudit.NewDispatcher(internalaudit.Config{
		Enabled:     cfg.Audit.Enabled,
		BufferSize:  cfg.Audit.BufferSize,
		DropIfFull:  cfg.Audit.DropIfFull,
		SinkTimeout: cfg.Audit.SinkTimeout,
	}, sink)

	engine.initFlowDeps()

	b.built = true

	return engine, nil
}

// newPasswordHasher hashes with the configured algorithm and still verifies
// hashes of the other one, so a user table can move between them.
func newPasswordHasher(cfg PasswordConfig) (PasswordHasher, error) {
	bc, bcErr := password.NewBcrypt(cfg.BcryptCost)
	argon, argonErr := password.NewArgon2(password.Config{
		Memory:      cfg.Memory,
		Time:        cfg.Time,
		Parallelism: cfg.Parallelism,
		SaltLength:  cfg.SaltLength,
		KeyLength:   cfg.KeyLength,
	})

	switch cfg.Algorithm {
	case PasswordBcrypt:
		if bcErr != nil {
			return nil, bcErr
		}
		if argonErr != nil {
			return password.NewMulti(bc), nil
		}
		return password.NewMulti(bc, argon), nil
	default:
		if argonErr != nil {
			return nil, argonErr
		}
		if bcErr != nil {
			return password.NewMulti(argon), nil
		}
		return password.NewMulti(argon, bc), nil
	}
}
