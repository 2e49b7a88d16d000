package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/MrEthical07/tokenkeeper"
)

// ErrorWriter renders a rejected request. err is always a tokenkeeper error.
type ErrorWriter func(w http.ResponseWriter, r *http.Request, status int, err error)

// GuardOption configures Guard.
type GuardOption func(*guardConfig)

type guardConfig struct {
	writeError ErrorWriter
}

// WithErrorWriter replaces the default JSON error body.
func WithErrorWriter(fn ErrorWriter) GuardOption {
	return func(c *guardConfig) {
		if fn != nil {
			c.writeError = fn
		}
	}
}

// Guard admits only requests carrying a valid, non-revoked access token.
func Guard(engine *tokenkeeper.Engine, opts ...GuardOption) func(http.Handler) http.Handler {
	cfg := guardConfig{writeError: writeJSONError}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				cfg.writeError(w, r, http.StatusServiceUnavailable, tokenkeeper.ErrEngineNotReady)
				return
			}

			token, ok := BearerToken(r)
			if !ok {
				cfg.writeError(w, r, http.StatusUnauthorized, tokenkeeper.ErrUnauthorized)
				return
			}

			res, err := engine.Authenticate(r.Context(), token)
			if err != nil {
				status := http.StatusUnauthorized
				if tokenkeeper.ErrorCode(err) == tokenkeeper.CodeServiceUnavailable {
					status = http.StatusServiceUnavailable
				}
				cfg.writeError(w, r, status, err)
				return
			}

			ctx := tokenkeeper.WithAuthResult(r.Context(), res)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// header. The scheme is matched case-insensitively.
func BearerToken(r *http.Request) (string, bool) {
	value := strings.TrimSpace(r.Header.Get("Authorization"))
	const bearer = "bearer "
	if len(value) <= len(bearer) || !strings.EqualFold(value[:len(bearer)], bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}

func writeJSONError(w http.ResponseWriter, _ *http.Request, status int, err error) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer realm="tokenkeeper"`)
	}
	w.WriteHeader(status)

	body := map[string]map[string]string{
		"error": {
			"code":    tokenkeeper.ErrorCode(err),
			"message": tokenkeeper.ErrorMessage(err),
		},
	}
	_ = json.NewEncoder(w).Encode(body)
}
