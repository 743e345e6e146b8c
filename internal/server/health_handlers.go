package server

import (
	"context"
	"net/http"
	"time"
)

// HealthStatus represents operational status for the /health endpoint.
type HealthStatus struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Database  string                 `json:"database"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// handleHealthCheck returns liveness plus a database ping.
func (cs *CatalogServer) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	health := &HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now(),
		Database:  "ok",
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	statusCode := http.StatusOK
	if err := cs.db.Ping(ctx); err != nil {
		health.Status = "unhealthy"
		health.Database = "error"
		health.Details = map[string]interface{}{"database_error": err.Error()}
		statusCode = http.StatusServiceUnavailable
	}

	cs.respondJSON(w, statusCode, health)
}
