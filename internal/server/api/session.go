package api

import (
	"errors"
	"net/http"

	"github.com/ayusman/signscribe/internal/app"
)

// Session is the part of the session controller the API drives.
type Session interface {
	Start() error
	Stop()
	Reset()
	Snapshot() app.Snapshot
	Err() error
}

// SessionHandler serves /api/session and its start, stop and reset actions.
type SessionHandler struct {
	session Session
}

// NewSessionHandler creates a SessionHandler for session.
func NewSessionHandler(session Session) *SessionHandler {
	return &SessionHandler{session: session}
}

type sessionResponse struct {
	app.Snapshot
	Error string `json:"error,omitempty"`
}

type statusResponse struct {
	Status string `json:"status"`
}

// Routes registers the session endpoints on mux.
func (h *SessionHandler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/api/session", h.get)
	mux.HandleFunc("/api/session/start", h.start)
	mux.HandleFunc("/api/session/stop", h.stop)
	mux.HandleFunc("/api/session/reset", h.reset)
}

// get handles GET /api/session. The error field carries the capture failure
// that ended the last session, if any.
func (h *SessionHandler) get(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	resp := sessionResponse{Snapshot: h.session.Snapshot()}
	if err := h.session.Err(); err != nil {
		resp.Error = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

// start handles POST /api/session/start.
func (h *SessionHandler) start(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	if err := h.session.Start(); err != nil {
		if errors.Is(err, app.ErrAlreadyRunning) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: app.StateRunning.String()})
}

// stop handles POST /api/session/stop. Stopping an idle session succeeds.
func (h *SessionHandler) stop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	h.session.Stop()
	writeJSON(w, http.StatusOK, statusResponse{Status: h.session.Snapshot().State.String()})
}

// reset handles POST /api/session/reset.
func (h *SessionHandler) reset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	h.session.Reset()
	writeJSON(w, http.StatusOK, h.session.Snapshot())
}
