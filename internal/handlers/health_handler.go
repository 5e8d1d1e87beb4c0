package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const readinessTimeout = 2 * time.Second

// Pinger is the interface that wraps a dependency reachability check
type Pinger interface {
	// Method PingContext verifies that the dependency is reachable.
	PingContext(ctx context.Context) error
}

// VisitorCounter reports how many visitors are tracked
type VisitorCounter interface {
	Len() int
}

// HealthHandler answers liveness and readiness probes
type HealthHandler struct {
	BaseHandler
	db       Pinger
	visitors VisitorCounter
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(db Pinger, visitors VisitorCounter, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		BaseHandler: BaseHandler{logger: logger},
		db:          db,
		visitors:    visitors,
	}
}

// RegisterRoutes registers the probe routes at the router root
func (h *HealthHandler) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.Live)
	r.Get("/ready", h.Ready)
}

// Live handles GET /health
// @Summary Liveness probe
// @Tags health
// @Produce json
// @Success 200 {object} map[string]any
// @Router /health [get]
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]any{
		"status":   "healthy",
		"visitors": h.visitors.Len(),
	})
}

// Ready handles GET /ready
// @Summary Readiness probe
// @Description Reports unhealthy while the database is unreachable
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /ready [get]
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	if err := h.db.PingContext(ctx); err != nil {
		h.logger.Warn("readiness check failed", zap.Error(err))
		h.respondJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status":   "unhealthy",
			"database": err.Error(),
		})
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]string{"status": "healthy", "database": "ok"})
}
