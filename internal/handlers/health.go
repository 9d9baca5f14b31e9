package handlers

import (
	"context"
	"net/http"
	"time"

	"kmchat/internal/contextutil"
	"kmchat/internal/vectorstore"
)

// HealthHandler reports liveness of the service and its vector store.
type HealthHandler struct {
	store   vectorstore.VectorStore
	timeout time.Duration
}

// NewHealthHandler creates a HealthHandler.
func NewHealthHandler(store vectorstore.VectorStore) *HealthHandler {
	return &HealthHandler{store: store, timeout: 5 * time.Second}
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
}

// ServeHTTP handles health checks. Returns 503 when the vector store is
// unreachable; an absent probe collection is still healthy.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	checks := map[string]string{"vector_store": "ok"}
	status := "healthy"
	httpStatus := http.StatusOK

	if _, err := h.store.CollectionExists(ctx, "healthz_probe"); err != nil {
		contextutil.LoggerFromContext(ctx).WarnContext(ctx, "vector store health check failed", "error", err)
		checks["vector_store"] = "error"
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, r, httpStatus, HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
	})
}
