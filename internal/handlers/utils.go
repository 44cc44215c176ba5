package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"photo-recovery/internal/logging"
	"photo-recovery/internal/recovery"
)

// writeJSON encodes v as JSON and writes it to the response writer.
// Any encoding or write errors are logged since we typically cannot
// recover from them in an HTTP handler context.
func writeJSON(w http.ResponseWriter, v interface{}) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error("failed to encode JSON response: %v", err)
	}
}

// writeJSONError writes an error response as JSON with the given status code.
func writeJSONError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	writeJSON(w, map[string]string{"error": message})
}

// writeJSONStatus writes a simple status response as JSON.
func writeJSONStatus(w http.ResponseWriter, statusCode int, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	writeJSON(w, map[string]string{"status": status})
}

// statusForError maps registry errors onto HTTP status codes.
func statusForError(err error) int {
	var maxBytesErr *http.MaxBytesError
	switch {
	case errors.Is(err, recovery.ErrSessionNotFound), errors.Is(err, recovery.ErrThumbnailNotFound):
		return http.StatusNotFound
	case errors.Is(err, recovery.ErrSessionProcessing):
		return http.StatusConflict
	case errors.Is(err, recovery.ErrSessionCleanedUp):
		return http.StatusGone
	case errors.Is(err, recovery.ErrRegistryClosed):
		return http.StatusServiceUnavailable
	case errors.As(err, &maxBytesErr):
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

func writeRegistryError(w http.ResponseWriter, err error) {
	status := statusForError(err)
	if status == http.StatusInternalServerError {
		logging.Error("request failed: %v", err)
		writeJSONError(w, "Internal server error", status)
		return
	}
	writeJSONError(w, err.Error(), status)
}
