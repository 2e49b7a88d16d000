package tokenkeeper

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	internalaudit "github.com/MrEthical07/tokenkeeper/internal/audit"
	"github.com/MrEthical07/tokenkeeper/internal/rate"
	"github.com/MrEthical07/tokenkeeper/jwt"
	"github.com/MrEthical07/tokenkeeper/session"
)

// Audit event types emitted by the engine.
const (
	AuditEventRegister         = "register"
	AuditEventLoginSuccess     = "login_success"
	AuditEventLoginFailure     = "login_failure"
	AuditEventLoginRateLimited = "login_rate_limited"
	AuditEventRefreshSuccess   = "refresh_success"
	AuditEventRefreshFailure   = "refresh_failure"
	AuditEventRefreshReuse     = "refresh_reuse"
	AuditEventLogout           = "logout"
	AuditEventTokenRevocation  = "token_revocation"
)

// AuditEvent is a single security-relevant occurrence.
type AuditEvent = internalaudit.Event

// AuditSink receives events from the engine's audit dispatcher. Emit runs
// on the dispatcher goroutine, never on the request path.
type AuditSink = internalaudit.Sink

type NoOpSink = internalaudit.NoOpSink

// AuditStats counts delivered, dropped and panicked audit events.
type AuditStats = internalaudit.Stats

// ChannelSink forwards events to a buffered channel.
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink writes one JSON object per line.
type JSONWriterSink = internalaudit.JSONWriterSink

// SlogSink logs events through a *slog.Logger.
type SlogSink = internalaudit.SlogSink

// SinkFunc adapts a function to AuditSink.
type SinkFunc = internalaudit.SinkFunc

// MultiSink delivers each event to several sinks in order.
type MultiSink = internalaudit.MultiSink

func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

func NewSlogSink(logger *slog.Logger) *SlogSink {
	return internalaudit.NewSlogSink(logger)
}

func (e *Engine) emitAudit(ctx context.Context, eventType string, success bool, userID string, err error, metadata func() map[string]string) {
	if e == nil || e.audit == nil {
		return
	}

	event := AuditEvent{
		Timestamp: e.now().UTC(),
		EventType: eventType,
		UserID:    userID,
		IP:        ClientIPFromContext(ctx),
		Success:   success,
	}
	if err != nil {
		event.Error = auditErrorCode(err)
	}
	if metadata != nil {
		event.Metadata = metadata()
	}

	e.audit.Emit(ctx, event)
}

// auditErrorCode keeps raw store and driver messages out of audit records.
func auditErrorCode(err error) string {
	switch {
	case errors.Is(err, session.ErrReuseDetected):
		return "refresh_reuse"
	case errors.Is(err, session.ErrStoreUnavailable), errors.Is(err, rate.ErrRedisUnavailable):
		return "store_unavailable"
	case errors.Is(err, rate.ErrRateLimited):
		return CodeRateLimited
	case jwt.KindOf(err) != jwt.KindNone:
		return "token_" + jwt.KindOf(err).String()
	}
	if code := ErrorCode(err); code != CodeInternal {
		return code
	}
	return "error"
}

func (e *Engine) now() time.Time {
	if e == nil || e.clock == nil {
		return time.Now()
	}
	return e.clock()
}
