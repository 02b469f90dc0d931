package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/ayusman/signscribe/internal/store"
)

// DefaultTranscriptLimit caps GET /api/transcripts when no limit is given.
const DefaultTranscriptLimit = 50

// TranscriptHandler serves the log of committed phrases.
type TranscriptHandler struct {
	store *store.Store
}

// NewTranscriptHandler creates a TranscriptHandler with the given store.
func NewTranscriptHandler(s *store.Store) *TranscriptHandler {
	return &TranscriptHandler{store: s}
}

type listTranscriptsResponse struct {
	Transcripts []*store.Transcript `json:"transcripts"`
}

// ServeHTTP routes /api/transcripts and /api/transcripts/{id}.
func (h *TranscriptHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/transcripts"), "/")

	switch {
	case id == "" && r.Method == http.MethodGet:
		h.list(w, r)
	case id != "" && r.Method == http.MethodDelete:
		h.delete(w, id)
	default:
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// list handles GET /api/transcripts?limit=N, newest first. limit=0 returns all.
func (h *TranscriptHandler) list(w http.ResponseWriter, r *http.Request) {
	limit := DefaultTranscriptLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	transcripts, err := h.store.Transcripts().List(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list transcripts")
		return
	}
	if transcripts == nil {
		transcripts = []*store.Transcript{}
	}
	writeJSON(w, http.StatusOK, listTranscriptsResponse{Transcripts: transcripts})
}

// delete handles DELETE /api/transcripts/{id}.
func (h *TranscriptHandler) delete(w http.ResponseWriter, id string) {
	if err := h.store.Transcripts().Delete(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Transcript not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete transcript")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
