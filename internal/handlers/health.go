package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/bozor-market/api/internal/platform/httpx"
)

// HealthHandlers serves liveness and readiness probes.
type HealthHandlers struct {
	started time.Time
	now     func() time.Time
	ready   func(context.Context) error
}

// HealthOption customises health handler construction.
type HealthOption func(*HealthHandlers)

// NewHealthHandlers constructs probe handlers; without options the service is
// always live and ready.
func NewHealthHandlers(opts ...HealthOption) *HealthHandlers {
	h := &HealthHandlers{
		started: time.Now().UTC(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// WithHealthClock overrides the time source used for uptime reporting.
func WithHealthClock(now func() time.Time) HealthOption {
	return func(h *HealthHandlers) {
		if now != nil {
			h.now = now
		}
	}
}

// WithHealthStartedAt overrides the recorded process start time.
func WithHealthStartedAt(started time.Time) HealthOption {
	return func(h *HealthHandlers) {
		if !started.IsZero() {
			h.started = started.UTC()
		}
	}
}

// WithReadinessCheck wires the dependency probe consulted by Readyz.
func WithReadinessCheck(check func(context.Context) error) HealthOption {
	return func(h *HealthHandlers) {
		h.ready = check
	}
}

// Healthz reports process liveness.
func (h *HealthHandlers) Healthz(w http.ResponseWriter, r *http.Request) {
	now := h.now().UTC()
	httpx.WriteData(w, http.StatusOK, "ok", map[string]any{
		"status":    "ok",
		"uptime":    now.Sub(h.started).String(),
		"timestamp": now.Format(time.RFC3339),
	})
}

// Readyz reports whether the backing store answers.
func (h *HealthHandlers) Readyz(w http.ResponseWriter, r *http.Request) {
	if h.ready != nil {
		if err := h.ready(r.Context()); err != nil {
			httpx.WriteError(r.Context(), w, httpx.NewError("not_ready", "dependencies are not ready", http.StatusServiceUnavailable))
			return
		}
	}
	httpx.WriteData(w, http.StatusOK, "ready", map[string]any{"status": "ready"})
}
