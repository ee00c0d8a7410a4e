package server

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
)

type componentStatus struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type healthResponse struct {
	Status     string                     `json:"status"`
	Components map[string]componentStatus `json:"components"`
}

// healthHandler probes the database and the storage backend. Either
// failing degrades the overall status to "unhealthy" with a 503.
func (cfg Config) healthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		resp := healthResponse{Status: "ok", Components: map[string]componentStatus{}}

		if err := cfg.DB.PingContext(ctx); err != nil {
			resp.Status = "unhealthy"
			resp.Components["database"] = componentStatus{Status: "down", Error: err.Error()}
		} else {
			resp.Components["database"] = componentStatus{Status: "up"}
		}

		// Probing a random key exercises the backend without requiring
		// any object to exist.
		if _, err := cfg.Backend.Exists(ctx, "healthz/"+uuid.NewString()); err != nil {
			resp.Status = "unhealthy"
			resp.Components["storage"] = componentStatus{Status: "down", Error: err.Error()}
		} else {
			resp.Components["storage"] = componentStatus{Status: "up"}
		}

		status := http.StatusOK
		if resp.Status != "ok" {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, resp)
	}
}

// metricsHandler renders the in-process counters.
func (cfg Config) metricsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, cfg.Metrics.Snapshot())
	}
}
