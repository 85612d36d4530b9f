package api

import (
	"context"
	"net/http"

	"github.com/medichat/medichat/internal/log"
)

// Pinger is the database liveness check, satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthChecker reports whether an external dependency answers its
// health endpoint, satisfied by *document.HTTPExtractor.
type HealthChecker interface {
	Healthy(ctx context.Context) bool
}

// HealthHandler serves the liveness and readiness probes.
type HealthHandler struct {
	db        Pinger
	extractor HealthChecker
	logger    log.Logger
}

// NewHealthHandler creates a health handler.
func NewHealthHandler(db Pinger, extractor HealthChecker, logger log.Logger) *HealthHandler {
	return &HealthHandler{db: db, extractor: extractor, logger: logger}
}

// RegisterRoutes registers health routes on the given mux.
func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.liveness)
	mux.HandleFunc("GET /ready", h.readiness)
}

// liveness reports that the process is alive.
func (h *HealthHandler) liveness(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// readiness reports whether dependencies are usable. The database is
// required; the extraction service only degrades uploads, so its state
// is reported without failing the probe.
func (h *HealthHandler) readiness(w http.ResponseWriter, r *http.Request) {
	if h.db == nil {
		writeError(w, http.StatusServiceUnavailable, "not_ready", "database pool not configured")
		return
	}
	if err := h.db.Ping(r.Context()); err != nil {
		h.logger.Error("readiness check failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, "not_ready", "database not ready")
		return
	}

	extractorOK := h.extractor != nil && h.extractor.Healthy(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ready",
		"database":  "ok",
		"extractor": extractorStatus(extractorOK),
	})
}

func extractorStatus(ok bool) string {
	if ok {
		return "ok"
	}
	return "unavailable"
}
