package httpapi

import (
	"context"
	"net/http"
	"time"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

const (
	serviceOK      = "ok"
	serviceError   = "error"
	serviceUnknown = "unknown"
)

type healthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Services  map[string]string `json:"services"`
}

// handleHealth pings each configured dependency. An unconfigured one is
// reported as "unknown" and does not fail the check.
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:    serviceOK,
		Timestamp: h.now().UTC(),
		Services: map[string]string{
			"redis":    serviceUnknown,
			"database": serviceUnknown,
		},
	}

	for _, name := range []string{"redis", "database"} {
		p := h.health[name]
		if p == nil {
			continue
		}
		ctx, cancel := context.WithTimeout(r.Context(), h.cfg.HealthTimeout)
		err := p.Ping(ctx)
		cancel()
		if err != nil {
			h.log.WarnContext(r.Context(), "health.check.fail", "service", name, "err", err)
			resp.Services[name] = serviceError
			resp.Status = serviceError
			continue
		}
		resp.Services[name] = serviceOK
	}

	status := http.StatusOK
	if resp.Status != serviceOK {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}
