package app

import (
	"errors"
	"flag"
	"io"
	"time"

	"github.com/MrEthical07/tokenkeeper"
)

// Config contains the service settings. Values come from TOKENKEEPER_*
// environment variables and may be overridden by command-line flags.
type Config struct {
	HTTPAddr string
	LogLevel string

	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration
	RequestTimeout    time.Duration
	TrustProxy        bool

	RedisURL string
	// DatabaseURL selects the Postgres user store. When empty, users are
	// kept in memory and lost on restart.
	DatabaseURL string
	Migrate     bool

	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
	Audience      string
	KeyPrefix     string
	RevokeOnReuse bool

	PasswordAlgorithm string
	MaxLoginAttempts  int
	LoginCooldown     time.Duration
	IPThrottle        bool
	AuditLog          bool
	// AuditFile additionally appends audit events as JSON lines to this
	// path when AuditLog is on.
	AuditFile string
}

// LoadConfig reads the environment, then applies flags from args
// (excluding the program name).
func LoadConfig(args []string) (Config, error) {
	cfg := Config{
		HTTPAddr: EnvString("TOKENKEEPER_HTTP_ADDR", ":3000"),
		LogLevel: EnvString("LOG_LEVEL", "info"),

		ReadHeaderTimeout: EnvDuration("TOKENKEEPER_HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
		ReadTimeout:       EnvDuration("TOKENKEEPER_HTTP_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:      EnvDuration("TOKENKEEPER_HTTP_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:       EnvDuration("TOKENKEEPER_HTTP_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout:   EnvDuration("TOKENKEEPER_SHUTDOWN_TIMEOUT", 10*time.Second),
		RequestTimeout:    EnvDuration("TOKENKEEPER_REQUEST_TIMEOUT", 10*time.Second),
		TrustProxy:        EnvBool("TOKENKEEPER_TRUST_PROXY", false),

		RedisURL:    EnvString("TOKENKEEPER_REDIS_URL", "redis://localhost:6379/0"),
		DatabaseURL: EnvString("TOKENKEEPER_DATABASE_URL", ""),
		Migrate:     EnvBool("TOKENKEEPER_MIGRATE", true),

		AccessSecret:  EnvString("TOKENKEEPER_JWT_SECRET", ""),
		RefreshSecret: EnvString("TOKENKEEPER_JWT_REFRESH_SECRET", ""),
		AccessTTL:     EnvDuration("TOKENKEEPER_JWT_EXPIRES_IN", 15*time.Minute),
		RefreshTTL:    EnvDuration("TOKENKEEPER_JWT_REFRESH_EXPIRES_IN", 7*24*time.Hour),
		Issuer:        EnvString("TOKENKEEPER_JWT_ISSUER", ""),
		Audience:      EnvString("TOKENKEEPER_JWT_AUDIENCE", ""),
		KeyPrefix:     EnvString("TOKENKEEPER_KEY_PREFIX", ""),
		RevokeOnReuse: EnvBool("TOKENKEEPER_REVOKE_ON_REUSE", false),

		PasswordAlgorithm: EnvString("TOKENKEEPER_PASSWORD_ALGORITHM", string(tokenkeeper.PasswordArgon2id)),
		MaxLoginAttempts:  EnvInt("TOKENKEEPER_MAX_LOGIN_ATTEMPTS", 5),
		LoginCooldown:     EnvDuration("TOKENKEEPER_LOGIN_COOLDOWN", 15*time.Minute),
		IPThrottle:        EnvBool("TOKENKEEPER_IP_THROTTLE", false),
		AuditLog:          EnvBool("TOKENKEEPER_AUDIT_LOG", true),
		AuditFile:         EnvString("TOKENKEEPER_AUDIT_FILE", ""),
	}

	if err := parseFlags(&cfg, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// parseFlags overlays the supported flags on cfg.
//
//	-addr string       HTTP listen address
//	-redis string      Redis URL
//	-db string         Postgres DSN
//	-log-level string  debug, info, warn or error
//	-migrate bool      apply user store migrations at startup
func parseFlags(cfg *Config, args []string) error {
	fs := flag.NewFlagSet("tokenkeeper", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.HTTPAddr, "addr", cfg.HTTPAddr, "HTTP listen address")
	fs.StringVar(&cfg.RedisURL, "redis", cfg.RedisURL, "Redis URL")
	fs.StringVar(&cfg.DatabaseURL, "db", cfg.DatabaseURL, "Postgres DSN")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level")
	fs.BoolVar(&cfg.Migrate, "migrate", cfg.Migrate, "apply migrations at startup")

	return fs.Parse(args)
}

// EngineConfig translates the service settings into the library Config.
func (c Config) EngineConfig() (tokenkeeper.Config, error) {
	if c.AccessSecret == "" || c.RefreshSecret == "" {
		return tokenkeeper.Config{}, errors.New("TOKENKEEPER_JWT_SECRET and TOKENKEEPER_JWT_REFRESH_SECRET are required")
	}

	cfg := tokenkeeper.DefaultConfig()
	cfg.JWT.AccessSecret = []byte(c.AccessSecret)
	cfg.JWT.RefreshSecret = []byte(c.RefreshSecret)
	cfg.JWT.AccessTTL = c.AccessTTL
	cfg.JWT.RefreshTTL = c.RefreshTTL
	cfg.JWT.Issuer = c.Issuer
	cfg.JWT.Audience = c.Audience
	cfg.Session.KeyPrefix = c.KeyPrefix
	cfg.Session.RevokeOnReuse = c.RevokeOnReuse
	cfg.Password.Algorithm = tokenkeeper.PasswordAlgorithm(c.PasswordAlgorithm)
	cfg.RateLimit.MaxLoginAttempts = c.MaxLoginAttempts
	cfg.RateLimit.LoginCooldownDuration = c.LoginCooldown
	cfg.RateLimit.EnableIPThrottle = c.IPThrottle
	cfg.Audit.Enabled = c.AuditLog

	if err := cfg.Validate(); err != nil {
		return tokenkeeper.Config{}, err
	}
	return cfg, nil
}
