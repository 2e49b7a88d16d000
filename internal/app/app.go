// Package app wires the tokenkeeper service: config, logging, Redis, the
// user store, the engine and the HTTP server.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/MrEthical07/tokenkeeper"
	"github.com/MrEthical07/tokenkeeper/httpapi"
	promexport "github.com/MrEthical07/tokenkeeper/metrics/export/prometheus"
	"github.com/MrEthical07/tokenkeeper/userstore"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
)

// App owns the process-level resources and the HTTP server.
type App struct {
	cfg Config
	log *slog.Logger

	redis     redis.UniversalClient
	db        *sql.DB
	auditFile *os.File
	engine    *tokenkeeper.Engine

	handler http.Handler
}

// Option overrides a dependency New would otherwise create.
type Option func(*options)

type options struct {
	redis redis.UniversalClient
	users tokenkeeper.UserStore
}

// WithRedisClient uses client instead of dialing Config.RedisURL. The App
// still closes it on shutdown.
func WithRedisClient(client redis.UniversalClient) Option {
	return func(o *options) { o.redis = client }
}

// WithUserStore skips the database and uses users.
func WithUserStore(users tokenkeeper.UserStore) Option {
	return func(o *options) { o.users = users }
}

// New connects to Redis and the user store and builds the engine.
func New(ctx context.Context, cfg Config, log *slog.Logger, opts ...Option) (*App, error) {
	if log == nil {
		log = NewLogger(cfg.LogLevel, nil)
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	engineCfg, err := cfg.EngineConfig()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	a := &App{cfg: cfg, log: log}
	ok := false
	defer func() {
		if !ok {
			a.closeResources()
		}
	}()

	a.redis = o.redis
	if a.redis == nil {
		redisOpts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("redis url: %w", err)
		}
		a.redis = redis.NewClient(redisOpts)
	}
	if err := a.redis.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	users := o.users
	if users == nil {
		users, err = a.openUserStore(ctx)
		if err != nil {
			return nil, err
		}
	}

	builder := tokenkeeper.New().
		WithConfig(engineCfg).
		WithRedis(a.redis).
		WithUserStore(users).
		WithLogger(log)
	if cfg.AuditLog && cfg.AuditFile != "" {
		a.auditFile, err = os.OpenFile(cfg.AuditFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			return nil, fmt.Errorf("audit file: %w", err)
		}
		builder = builder.WithAuditSink(tokenkeeper.MultiSink{
			tokenkeeper.NewSlogSink(log),
			tokenkeeper.NewJSONWriterSink(a.auditFile),
		})
	}
	a.engine, err = builder.Build()
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	report := a.engine.SecurityReport()
	log.Info("security.report",
		"access_ttl", report.AccessTTL,
		"refresh_ttl", report.RefreshTTL,
		"password_algorithm", string(report.PasswordAlgorithm),
		"revoke_on_reuse", report.RefreshReuseRevokes,
		"rate_limiting", report.RateLimitingActive,
		"ip_throttle", report.IPThrottleActive,
		"audit", report.AuditEnabled,
	)

	exporter := promexport.NewPrometheusExporter(a.engine)
	exporter.Registry().MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	hopts := []httpapi.Option{
		httpapi.WithLogger(log),
		httpapi.WithConfig(httpapi.Config{
			MaxBodyBytes:   httpapi.DefaultConfig().MaxBodyBytes,
			RequestTimeout: cfg.RequestTimeout,
			TrustProxy:     cfg.TrustProxy,
			HealthTimeout:  httpapi.DefaultConfig().HealthTimeout,
		}),
		httpapi.WithRedisHealth(httpapi.PingFunc(a.engine.Ping)),
		httpapi.WithMetricsHandler(exporter.Handler()),
	}
	if a.db != nil {
		hopts = append(hopts, httpapi.WithDatabaseHealth(httpapi.PingFunc(a.db.PingContext)))
	}
	api := httpapi.NewHandler(a.engine, hopts...)
	a.handler = WithRequestLogging(api.Routes(), log)

	ok = true
	return a, nil
}

func (a *App) openUserStore(ctx context.Context) (tokenkeeper.UserStore, error) {
	if a.cfg.DatabaseURL == "" {
		a.log.Warn("db.disabled.inmemory_users")
		return userstore.NewMemory(), nil
	}

	db, err := userstore.Open(ctx, a.cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	a.db = db

	if a.cfg.Migrate {
		if err := userstore.Migrate(ctx, db); err != nil {
			return nil, err
		}
		a.log.Info("db.migrated")
	}
	a.log.Info("db.enabled.postgres_users")
	return userstore.NewPostgres(db), nil
}

// Handler returns the full HTTP handler chain.
func (a *App) Handler() http.Handler {
	return a.handler
}

// Engine returns the wired engine.
func (a *App) Engine() *tokenkeeper.Engine {
	return a.engine
}

// Serve runs the HTTP server on ln until ctx is cancelled, then shuts down
// gracefully and releases every resource.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           a.handler,
		ReadHeaderTimeout: nonZeroDuration(a.cfg.ReadHeaderTimeout, 5*time.Second),
		ReadTimeout:       nonZeroDuration(a.cfg.ReadTimeout, 15*time.Second),
		WriteTimeout:      nonZeroDuration(a.cfg.WriteTimeout, 15*time.Second),
		IdleTimeout:       nonZeroDuration(a.cfg.IdleTimeout, 60*time.Second),
	}

	a.log.Info("server.start", "addr", ln.Addr().String(), "db_enabled", a.db != nil)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		a.log.Info("server.stop", "reason", "context_done")
	case serveErr = <-errCh:
		a.log.Error("server.fail", "err", serveErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), nonZeroDuration(a.cfg.ShutdownTimeout, 10*time.Second))
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error("server.shutdown.fail", "err", err)
		serveErr = errors.Join(serveErr, err)
	}
	a.closeResources()

	a.log.Info("server.stopped")
	return serveErr
}

// Run listens on Config.HTTPAddr and serves until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.cfg.HTTPAddr)
	if err != nil {
		a.closeResources()
		return fmt.Errorf("listen: %w", err)
	}
	return a.Serve(ctx, ln)
}

func (a *App) closeResources() {
	if a.engine != nil {
		a.engine.Close()
	}
	if a.auditFile != nil {
		if err := a.auditFile.Close(); err != nil {
			a.log.Error("audit.file.close.fail", "err", err)
		}
		a.auditFile = nil
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.Error("db.close.fail", "err", err)
		}
		a.db = nil
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Error("redis.close.fail", "err", err)
		}
		a.redis = nil
	}
}

func nonZeroDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}
