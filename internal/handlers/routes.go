package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
)

// RegisterRoutes wires every API endpoint onto router.
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	api := router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/recovery", h.StartRecovery).Methods(http.MethodPost)
	api.HandleFunc("/recovery", h.ListSessions).Methods(http.MethodGet)
	api.HandleFunc("/recovery/{id}", h.GetSession).Methods(http.MethodGet)
	api.HandleFunc("/recovery/{id}", h.CleanupSession).Methods(http.MethodDelete)
	api.HandleFunc("/recovery/{id}/thumbnail/{name}", h.GetThumbnail).Methods(http.MethodGet)
	api.HandleFunc("/recovery/{id}/download", h.DownloadRecovered).Methods(http.MethodGet)
	api.HandleFunc("/recovery/{id}/cancel", h.CancelRecovery).Methods(http.MethodPost)
	api.HandleFunc("/version", h.GetVersion).Methods(http.MethodGet)

	router.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)
	router.HandleFunc("/livez", h.LivenessCheck).Methods(http.MethodGet, http.MethodHead)
	router.HandleFunc("/readyz", h.ReadinessCheck).Methods(http.MethodGet)
	router.HandleFunc("/version", h.GetVersion).Methods(http.MethodGet)
}
