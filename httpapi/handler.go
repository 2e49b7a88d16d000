package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/MrEthical07/tokenkeeper"
	"github.com/MrEthical07/tokenkeeper/middleware"
)

// Handler serves the auth routes on top of an Engine.
type Handler struct {
	log    *slog.Logger
	cfg    Config
	engine *tokenkeeper.Engine

	health  map[string]Pinger
	metrics http.Handler
	now     func() time.Time
}

// Option configures optional Handler dependencies.
type Option func(*Handler)

func WithLogger(log *slog.Logger) Option {
	return func(h *Handler) {
		if log != nil {
			h.log = log
		}
	}
}

func WithConfig(cfg Config) Option {
	return func(h *Handler) { h.cfg = cfg }
}

// WithRedisHealth adds the redis entry to /health.
func WithRedisHealth(p Pinger) Option {
	return func(h *Handler) { h.health["redis"] = p }
}

// WithDatabaseHealth adds the database entry to /health.
func WithDatabaseHealth(p Pinger) Option {
	return func(h *Handler) { h.health["database"] = p }
}

// WithMetricsHandler serves next on GET /metrics.
func WithMetricsHandler(next http.Handler) Option {
	return func(h *Handler) { h.metrics = next }
}

func WithClock(now func() time.Time) Option {
	return func(h *Handler) {
		if now != nil {
			h.now = now
		}
	}
}

func NewHandler(engine *tokenkeeper.Engine, opts ...Option) *Handler {
	h := &Handler{
		log:    slog.Default(),
		cfg:    DefaultConfig(),
		engine: engine,
		health: map[string]Pinger{},
		now:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	if h.cfg.MaxBodyBytes <= 0 {
		h.cfg.MaxBodyBytes = DefaultConfig().MaxBodyBytes
	}
	if h.cfg.HealthTimeout <= 0 {
		h.cfg.HealthTimeout = DefaultConfig().HealthTimeout
	}
	return h
}

// Register wires the routes onto mux.
func (h *Handler) Register(mux *http.ServeMux) {
	if h == nil || mux == nil {
		return
	}
	guard := middleware.Guard(h.engine)

	mux.HandleFunc("POST /auth/register", h.handleRegister)
	mux.HandleFunc("POST /auth/login", h.handleLogin)
	mux.HandleFunc("POST /auth/refresh", h.handleRefresh)
	mux.Handle("POST /auth/logout", guard(http.HandlerFunc(h.handleLogout)))
	mux.Handle("GET /auth/profile", guard(http.HandlerFunc(h.handleProfile)))
	mux.HandleFunc("GET /health", h.handleHealth)
	if h.metrics != nil {
		mux.Handle("GET /metrics", h.metrics)
	}
}

// Routes returns the complete handler chain: client address capture and the
// per-request deadline around the routes.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	h.Register(mux)
	return middleware.ClientIP(h.cfg.TrustProxy)(h.withTimeout(mux))
}

func (h *Handler) withTimeout(next http.Handler) http.Handler {
	if h.cfg.RequestTimeout <= 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), h.cfg.RequestTimeout)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ---- handlers ----

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req tokenkeeper.RegisterRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	resp, err := h.engine.Register(r.Context(), req)
	if err != nil {
		h.logFailure(r, "auth.register.fail", err)
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	resp, err := h.engine.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.logFailure(r, "auth.login.fail", err)
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}
	if req.RefreshToken == "" {
		writeError(w, http.StatusBadRequest, tokenkeeper.CodeInvalidInput, "refreshToken is required")
		return
	}

	resp, err := h.engine.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		h.logFailure(r, "auth.refresh.fail", err)
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	res, ok := tokenkeeper.AuthResultFromContext(r.Context())
	token, hasToken := middleware.BearerToken(r)
	if !ok || !hasToken {
		writeEngineError(w, tokenkeeper.ErrUnauthorized)
		return
	}

	if err := h.engine.Logout(r.Context(), res.UserID, token); err != nil {
		h.logFailure(r, "auth.logout.fail", err)
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Logged out successfully"})
}

func (h *Handler) handleProfile(w http.ResponseWriter, r *http.Request) {
	res, ok := tokenkeeper.AuthResultFromContext(r.Context())
	if !ok {
		writeEngineError(w, tokenkeeper.ErrUnauthorized)
		return
	}

	profile, err := h.engine.Profile(r.Context(), res.UserID)
	if err != nil {
		h.logFailure(r, "auth.profile.fail", err)
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// logFailure logs only server-side failures; client errors are routine.
func (h *Handler) logFailure(r *http.Request, msg string, err error) {
	if statusFor(tokenkeeper.ErrorCode(err)) < http.StatusInternalServerError {
		return
	}
	h.log.ErrorContext(r.Context(), msg, "err", err)
}
