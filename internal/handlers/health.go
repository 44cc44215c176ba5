package handlers

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"photo-recovery/internal/recovery"
	"photo-recovery/internal/startup"
)

const (
	statusHealthy  = "healthy"
	statusDegraded = "degraded"

	readinessTimeout = 2 * time.Second
)

// HealthResponse contains the health check response
type HealthResponse struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	Uptime        string `json:"uptime"`
	Persistence   bool   `json:"persistence"`
	DatabaseError string `json:"databaseError,omitempty"`

	// Session summary
	Sessions       int `json:"sessions"`
	ActiveSessions int `json:"activeSessions"`

	// System info
	GoVersion    string `json:"goVersion"`
	NumCPU       int    `json:"numCpu"`
	NumGoroutine int    `json:"numGoroutine"`
}

// HealthCheck returns the health status of the service
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	sessions := h.registry.List()
	active := 0
	for _, s := range sessions {
		if s.Status == recovery.StatusProcessing {
			active++
		}
	}

	response := HealthResponse{
		Status:         statusHealthy,
		Version:        startup.Version,
		Uptime:         time.Since(h.startTime).Round(time.Second).String(),
		Persistence:    h.store != nil,
		Sessions:       len(sessions),
		ActiveSessions: active,
		GoVersion:      runtime.Version(),
		NumCPU:         runtime.NumCPU(),
		NumGoroutine:   runtime.NumGoroutine(),
	}

	if err := h.pingStore(r.Context()); err != nil {
		response.Status = statusDegraded
		response.DatabaseError = err.Error()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	writeJSON(w, response)
}

// LivenessCheck is a simple liveness probe (always returns 200 if server is running)
func (h *Handlers) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	// For HEAD requests, only send headers (no body)
	if r.Method != http.MethodHead {
		writeJSON(w, map[string]string{
			"status": "alive",
		})
	}
}

// ReadinessCheck returns 200 only when the session store answers.
func (h *Handlers) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	if err := h.pingStore(r.Context()); err != nil {
		writeJSONStatus(w, http.StatusServiceUnavailable, "not_ready")
		return
	}
	writeJSONStatus(w, http.StatusOK, "ready")
}

func (h *Handlers) pingStore(ctx context.Context) error {
	if h.store == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, readinessTimeout)
	defer cancel()
	return h.store.Ping(ctx)
}
