package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ayusman/signscribe/internal/app"
)

func newSessionMux(s Session) *http.ServeMux {
	mux := http.NewServeMux()
	NewSessionHandler(s).Routes(mux)
	return mux
}

func TestSessionHandler_Get(t *testing.T) {
	session := &fakeSession{
		snap:    app.Snapshot{Pending: "HEL", Confirmed: "HI", State: app.StateIdle},
		lastErr: errors.New("read frame: EOF"),
	}
	mux := newSessionMux(session)

	req := httptest.NewRequest(http.MethodGet, "/api/session", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected Content-Type application/json, got %s", ct)
	}

	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	want := map[string]string{
		"pending_text":   "HEL",
		"confirmed_text": "HI",
		"state":          "idle",
		"error":          "read frame: EOF",
	}
	for k, v := range want {
		if body[k] != v {
			t.Errorf("%s = %q, want %q", k, body[k], v)
		}
	}
}

func TestSessionHandler_StartTwice(t *testing.T) {
	mux := newSessionMux(&fakeSession{})

	req := httptest.NewRequest(http.MethodPost, "/api/session/start", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("first start: expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var status statusResponse
	json.NewDecoder(rec.Body).Decode(&status)
	if status.Status != "running" {
		t.Errorf("status = %q, want running", status.Status)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/session/start", nil)
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusConflict {
		t.Fatalf("second start: expected status %d, got %d", http.StatusConflict, rec.Code)
	}

	var errResp errorResponse
	json.NewDecoder(rec.Body).Decode(&errResp)
	if errResp.Error != app.ErrAlreadyRunning.Error() {
		t.Errorf("error = %q, want %q", errResp.Error, app.ErrAlreadyRunning)
	}
}

func TestSessionHandler_StartFailure(t *testing.T) {
	mux := newSessionMux(&fakeSession{startErr: errors.New("boom")})

	req := httptest.NewRequest(http.MethodPost, "/api/session/start", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected status %d, got %d", http.StatusInternalServerError, rec.Code)
	}
}

func TestSessionHandler_Stop(t *testing.T) {
	t.Run("running session moves to stopping", func(t *testing.T) {
		session := &fakeSession{snap: app.Snapshot{State: app.StateRunning}}
		mux := newSessionMux(session)

		req := httptest.NewRequest(http.MethodPost, "/api/session/stop", nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
		}
		if session.Snapshot().State != app.StateStopping {
			t.Errorf("state = %s, want stopping", session.Snapshot().State)
		}
	})

	t.Run("idle session is a no-op", func(t *testing.T) {
		mux := newSessionMux(&fakeSession{})

		req := httptest.NewRequest(http.MethodPost, "/api/session/stop", nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
		}
	})
}

func TestSessionHandler_Reset(t *testing.T) {
	session := &fakeSession{snap: app.Snapshot{Pending: "AB", Confirmed: "CD", State: app.StateRunning}}
	mux := newSessionMux(session)

	req := httptest.NewRequest(http.MethodPost, "/api/session/reset", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if session.resets != 1 {
		t.Errorf("resets = %d, want 1", session.resets)
	}

	var snap app.Snapshot
	json.NewDecoder(rec.Body).Decode(&snap)
	if snap.Pending != "" || snap.Confirmed != "" {
		t.Errorf("snapshot after reset = %+v, want empty text", snap)
	}
}

func TestSessionHandler_MethodNotAllowed(t *testing.T) {
	mux := newSessionMux(&fakeSession{})

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/api/session"},
		{http.MethodGet, "/api/session/start"},
		{http.MethodGet, "/api/session/stop"},
		{http.MethodDelete, "/api/session/reset"},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(tt.method, tt.path, nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("%s %s: expected status %d, got %d", tt.method, tt.path, http.StatusMethodNotAllowed, rec.Code)
		}
	}
}
