package handler

import (
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	"inkwell/internal/httputil"
)

// HealthHandler reports service liveness
type HealthHandler struct {
	pool *pgxpool.Pool
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(pool *pgxpool.Pool) *HealthHandler {
	return &HealthHandler{pool: pool}
}

// Check responds with service and database status
// GET /health
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK
	if err := h.pool.Ping(r.Context()); err != nil {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}
	httputil.RespondJSON(w, code, map[string]string{"status": status})
}
