package handlers

import (
	"context"
	"net/http"
	"time"
)

const readyTimeout = 5 * time.Second

// HealthChecker reports provider health by name; nil means healthy.
type HealthChecker interface {
	CheckAll(ctx context.Context) map[string]error
}

// HealthHandler serves GET /ready.
type HealthHandler struct {
	checker HealthChecker
}

// NewHealthHandler creates a HealthHandler. With a nil checker the service
// is always ready.
func NewHealthHandler(c HealthChecker) *HealthHandler {
	return &HealthHandler{checker: c}
}

type readyResponse struct {
	Status    string            `json:"status"`
	Providers map[string]string `json:"providers,omitempty"`
}

// Ready answers 200 when every provider passes its health check, 503 otherwise.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.checker == nil {
		writeJSON(w, http.StatusOK, readyResponse{Status: "ready"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	resp := readyResponse{Status: "ready", Providers: map[string]string{}}
	status := http.StatusOK
	for name, err := range h.checker.CheckAll(ctx) {
		if err != nil {
			resp.Providers[name] = err.Error()
			resp.Status = "unavailable"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Providers[name] = "ok"
	}
	writeJSON(w, status, resp)
}
