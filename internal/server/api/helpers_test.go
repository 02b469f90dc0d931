package api

import (
	"path/filepath"
	"sync"
	"testing"

	"github.com/ayusman/signscribe/internal/app"
	"github.com/ayusman/signscribe/internal/gesture"
	"github.com/ayusman/signscribe/internal/store"
)

// newTestStore creates a new Store with a temporary database for testing.
func newTestStore(t *testing.T) *store.Store {
	t.Helper()

	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})
	return s
}

// fakeSession is a Session with scripted state.
type fakeSession struct {
	mu       sync.Mutex
	snap     app.Snapshot
	lastErr  error
	startErr error
	resets   int
}

func (f *fakeSession) Start() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return f.startErr
	}
	if f.snap.State != app.StateIdle {
		return app.ErrAlreadyRunning
	}
	f.snap.State = app.StateRunning
	return nil
}

func (f *fakeSession) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.snap.State == app.StateRunning {
		f.snap.State = app.StateStopping
	}
}

func (f *fakeSession) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snap.Pending, f.snap.Confirmed = "", ""
	f.resets++
}

func (f *fakeSession) Snapshot() app.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap
}

func (f *fakeSession) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastErr
}

// recordingSet remembers the last template set it was given.
type recordingSet struct {
	calls     int
	templates []*gesture.Template
}

func (r *recordingSet) SetTemplates(templates []*gesture.Template) {
	r.calls++
	r.templates = templates
}

// testFeatures returns a valid feature vector whose components all equal v.
func testFeatures(v float64) []float64 {
	f := make([]float64, gesture.FeatureLength)
	for i := range f {
		f[i] = v
	}
	return f
}
