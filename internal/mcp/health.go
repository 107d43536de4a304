package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/mdsalman850/co-teachers-sub003/internal/session"
)

const healthTimeout = 3 * time.Second

// HealthResponse represents the JSON response from the health check endpoint.
type HealthResponse struct {
	Status    string `json:"status"`
	Storage   string `json:"storage"`
	Textbook  string `json:"textbook,omitempty"`
	Error     string `json:"error,omitempty"`
	Timestamp string `json:"timestamp"`
}

// HealthChecker checks the backing stores. *app.App implements it.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// NewHealthHandler creates an HTTP handler for the /health endpoint. tutor
// may be nil; otherwise the loaded textbook is reported.
func NewHealthHandler(checker HealthChecker, tutor *session.Tutor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()

		response := HealthResponse{
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		}
		if tutor != nil {
			if s := tutor.Status(); s.Loaded {
				response.Textbook = s.Name
			}
		}

		w.Header().Set("Content-Type", "application/json")

		if err := checker.Health(ctx); err != nil {
			response.Status = "unhealthy"
			response.Storage = "disconnected"
			response.Error = err.Error()
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(response)
			return
		}

		response.Status = "healthy"
		response.Storage = "connected"
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(response)
	}
}
