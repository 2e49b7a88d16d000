package tokenkeeper

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/MrEthical07/tokenkeeper/internal/rate"
	"github.com/MrEthical07/tokenkeeper/jwt"
	"github.com/MrEthical07/tokenkeeper/session"
)

func TestAuditErrorCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"reuse", errors.Join(session.ErrSuperseded, session.ErrReuseDetected), "refresh_reuse"},
		{"session store", fmt.Errorf("%w: dial tcp", session.ErrStoreUnavailable), "store_unavailable"},
		{"limiter store", fmt.Errorf("%w: timeout", rate.ErrRedisUnavailable), "store_unavailable"},
		{"rate limited", rate.ErrRateLimited, CodeRateLimited},
		{"expired token", fmt.Errorf("%w: %w", session.ErrRefreshInvalid, &jwt.VerifyError{Kind: jwt.KindExpired}), "token_expired"},
		{"bad signature", &jwt.VerifyError{Kind: jwt.KindBadSignature}, "token_bad_signature"},
		{"conflict", ErrConflict, CodeConflict},
		{"raw driver error", errors.New("pq: password authentication failed for user"), "error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := auditErrorCode(tt.err); got != tt.want {
				t.Fatalf("auditErrorCode = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEmitAuditOnNilEngine(t *testing.T) {
	var e *Engine
	e.emitAudit(context.Background(), AuditEventLogout, true, "u1", nil, nil)
	if e.AuditDropped() != 0 {
		t.Fatal("expected zero drops on nil engine")
	}
}
