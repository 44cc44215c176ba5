package handlers

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"photo-recovery/internal/logging"
	"photo-recovery/internal/metrics"
	"photo-recovery/internal/streaming"

	"github.com/gorilla/mux"
)

const (
	uploadField       = "archive"
	defaultUploadName = "upload.zip"
	multipartMemory   = 32 << 20
)

// StartRecoveryResponse is returned when an upload is accepted.
type StartRecoveryResponse struct {
	SessionID string `json:"sessionId"`
}

// StartRecovery accepts an archive upload and starts a recovery session.
// The archive is read from the "archive" multipart field, or from the raw
// request body with the name taken from ?filename=.
func (h *Handlers) StartRecovery(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)

	name, data, err := readUpload(r)
	if err != nil {
		status := statusForError(err)
		if status == http.StatusRequestEntityTooLarge {
			writeJSONError(w, fmt.Sprintf("Archive exceeds the %d byte upload limit", h.maxUploadSize), status)
			return
		}
		logging.Debug("Rejected upload: %v", err)
		writeJSONError(w, "Invalid upload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if len(data) == 0 {
		writeJSONError(w, "Archive is empty", http.StatusBadRequest)
		return
	}
	metrics.UploadBytes.Observe(float64(len(data)))

	id, err := h.registry.Start(name, data)
	if err != nil {
		writeRegistryError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Location", "/api/recovery/"+id)
	w.WriteHeader(http.StatusAccepted)
	writeJSON(w, StartRecoveryResponse{SessionID: id})
}

func readUpload(r *http.Request) (string, []byte, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if !strings.HasPrefix(mediaType, "multipart/") {
		data, err := io.ReadAll(r.Body)
		if err != nil {
			return "", nil, err
		}
		name := r.URL.Query().Get("filename")
		if name == "" {
			name = defaultUploadName
		}
		return name, data, nil
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		return "", nil, err
	}
	defer func() {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			logging.Warn("failed to remove multipart temp files: %v", err)
		}
	}()

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		return "", nil, fmt.Errorf("missing %q field: %w", uploadField, err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			logging.Warn("failed to close uploaded file: %v", err)
		}
	}()

	data, err := io.ReadAll(file)
	if err != nil {
		return "", nil, err
	}
	name := header.Filename
	if name == "" {
		name = defaultUploadName
	}
	return name, data, nil
}

// ListSessions returns every known session, oldest first.
func (h *Handlers) ListSessions(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, h.registry.List())
}

// GetSession returns a snapshot of one session.
func (h *Handlers) GetSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.registry.Get(mux.Vars(r)["id"])
	if err != nil {
		writeRegistryError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	writeJSON(w, session)
}

// GetThumbnail serves the JPEG preview of one recovered entry.
func (h *Handlers) GetThumbnail(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	data, err := h.registry.Thumbnail(vars["id"], vars["name"])
	if err != nil {
		writeRegistryError(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	if _, err := w.Write(data); err != nil {
		logging.Debug("failed to write thumbnail: %v", err)
	}
}

// zipResponseWriter defers the zip headers until the first byte so errors
// found before packaging starts can still be reported as JSON.
type zipResponseWriter struct {
	w        http.ResponseWriter
	out      io.Writer
	filename string
	started  bool
}

func (z *zipResponseWriter) Write(p []byte) (int, error) {
	if !z.started {
		z.started = true
		z.w.Header().Set("Content-Type", "application/zip")
		z.w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", z.filename))
		z.w.WriteHeader(http.StatusOK)
	}
	return z.out.Write(p)
}

// DownloadRecovered streams the session's recovered photos as a zip.
func (h *Handlers) DownloadRecovered(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	sw := streaming.NewWriter(w, streaming.DefaultConfig())
	defer sw.Finish()
	zw := &zipResponseWriter{w: w, out: sw, filename: "recovered_" + id + ".zip"}

	err := h.registry.Download(r.Context(), id, zw)
	if err == nil {
		return
	}
	if zw.started {
		// Headers are gone; the client sees a truncated archive.
		logging.Warn("Download of session %s aborted: %v", id, err)
		return
	}
	writeRegistryError(w, err)
}

// CancelRecovery stops an in-flight session and returns its snapshot.
func (h *Handlers) CancelRecovery(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.registry.Cancel(id); err != nil {
		writeRegistryError(w, err)
		return
	}

	session, err := h.registry.Get(id)
	if err != nil {
		writeRegistryError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	writeJSON(w, session)
}

// CleanupSession removes a session and its files. Unknown ids succeed too.
func (h *Handlers) CleanupSession(w http.ResponseWriter, r *http.Request) {
	if err := h.registry.Cleanup(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeRegistryError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
