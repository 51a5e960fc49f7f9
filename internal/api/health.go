package api

import (
	"log/slog"
	"net/http"

	"github.com/jmoiron/sqlx"
)

// HealthHandler reports whether the service can reach its database.
type HealthHandler struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewHealthHandler creates a HealthHandler.
func NewHealthHandler(db *sqlx.DB, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{db: db, logger: logger}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := h.db.PingContext(r.Context()); err != nil {
		h.logger.ErrorContext(r.Context(), "Health check failed", slog.String("error", err.Error()))
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
