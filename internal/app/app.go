// Package app runs the recognition session: it owns the processing loop, the
// accumulated text and the session state, and lets any number of callers
// observe and control them concurrently.
package app

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/ayusman/signscribe/internal/accumulator"
	"github.com/ayusman/signscribe/internal/capture"
	"github.com/ayusman/signscribe/internal/detector"
	"github.com/ayusman/signscribe/internal/gesture"
	"github.com/ayusman/signscribe/internal/metrics"
)

// ErrAlreadyRunning is returned by Start while a session is running or still
// shutting down.
var ErrAlreadyRunning = errors.New("session already running")

// SessionState is the lifecycle phase of the processing loop.
type SessionState int

const (
	// StateIdle means no loop is running.
	StateIdle SessionState = iota
	// StateRunning means the loop is processing frames.
	StateRunning
	// StateStopping means Stop was requested and the loop has not exited yet.
	StateStopping
)

// String implements fmt.Stringer.
func (s SessionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// MarshalText encodes the state by name.
func (s SessionState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Snapshot is a consistent copy of the text buffers and session state.
type Snapshot struct {
	Pending   string       `json:"pending_text"`
	Confirmed string       `json:"confirmed_text"`
	State     SessionState `json:"state"`
}

// Config holds the collaborators and tunables of an App.
type Config struct {
	Camera     capture.Camera
	Detector   detector.Detector
	Classifier gesture.Classifier

	// WindowSize is the vote buffer capacity.
	WindowSize int
	// Threshold is the exclusive confidence a vote must exceed.
	Threshold float64

	// AdaptiveFPS enables motion-driven switching between Rate.IdleFPS and
	// Rate.ActiveFPS.
	AdaptiveFPS     bool
	Rate            capture.RateConfig
	MotionThreshold float64

	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

// CommitFunc is called with every non-empty committed phrase.
type CommitFunc func(text string)

// App is the session controller.
//
// A single mutex guards the session state and the text state, so every
// Snapshot reflects one complete reduction. The vote buffer belongs to the
// processing goroutine.
type App struct {
	config  Config
	adapter *gesture.Adapter
	reducer accumulator.Reducer
	logger  *slog.Logger
	metrics *metrics.Metrics
	preview *Preview

	mu         sync.Mutex
	state      SessionState
	text       accumulator.State
	resetVotes bool
	done       chan struct{}
	lastErr    error
	hooks      []CommitFunc
	watchers   map[chan Snapshot]struct{}
}

// New creates an idle App.
func New(config Config) (*App, error) {
	if config.Camera == nil {
		return nil, errors.New("app: camera is required")
	}
	if config.Detector == nil {
		return nil, errors.New("app: detector is required")
	}
	if config.Classifier == nil {
		return nil, errors.New("app: classifier is required")
	}
	if config.WindowSize <= 0 {
		config.WindowSize = gesture.DefaultWindowSize
	}
	if config.Threshold <= 0 {
		config.Threshold = accumulator.DefaultThreshold
	}
	if config.MotionThreshold <= 0 {
		config.MotionThreshold = 1.0
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	done := make(chan struct{})
	close(done)

	return &App{
		config:   config,
		adapter:  gesture.NewAdapter(config.Classifier),
		reducer:  accumulator.NewReducer(config.Threshold),
		logger:   logger.With("component", "app"),
		metrics:  config.Metrics,
		preview:  NewPreview(),
		state:    StateIdle,
		done:     done,
		watchers: make(map[chan Snapshot]struct{}),
	}, nil
}

// Start begins a session. It returns ErrAlreadyRunning unless the App is idle.
// Text accumulated by an earlier session is kept.
func (a *App) Start() error {
	a.mu.Lock()
	if a.state != StateIdle {
		a.mu.Unlock()
		return ErrAlreadyRunning
	}
	a.state = StateRunning
	a.lastErr = nil
	a.resetVotes = false
	done := make(chan struct{})
	a.done = done
	a.notifyLocked()
	a.mu.Unlock()

	a.metrics.SetRunning(true)
	a.logger.Info("session started")

	go a.run(done)
	return nil
}

// Stop asks the running session to end and returns without waiting. The loop
// notices after its current frame, so a camera that never delivers another
// frame delays the transition to idle. Stop is a no-op unless running.
func (a *App) Stop() {
	a.mu.Lock()
	if a.state != StateRunning {
		a.mu.Unlock()
		return
	}
	a.state = StateStopping
	a.notifyLocked()
	a.mu.Unlock()

	a.logger.Info("session stopping")
}

// Wait blocks until the current processing loop, if any, has exited.
func (a *App) Wait() {
	a.mu.Lock()
	done := a.done
	a.mu.Unlock()
	<-done
}

// Reset clears both text buffers and the debounce memory in any state. A
// running loop also drops its vote window before its next frame.
func (a *App) Reset() {
	a.mu.Lock()
	a.text = accumulator.State{}
	a.resetVotes = true
	a.notifyLocked()
	a.mu.Unlock()

	a.logger.Info("text reset")
}

// Snapshot returns the current text and session state.
func (a *App) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snapshotLocked()
}

func (a *App) snapshotLocked() Snapshot {
	return Snapshot{
		Pending:   a.text.Pending,
		Confirmed: a.text.Confirmed,
		State:     a.state,
	}
}

// State returns the current session state.
func (a *App) State() SessionState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Err returns the capture error that ended the last session, or nil.
func (a *App) Err() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastErr
}

// OnCommit registers fn to be called with each non-empty committed phrase.
// Hooks run on the processing goroutine after the lock is released; a slow
// hook delays the next frame.
func (a *App) OnCommit(fn CommitFunc) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.hooks = append(a.hooks, fn)
}

// Subscribe returns a channel that receives a Snapshot after every change,
// starting with the current one. Slow readers only see the newest snapshot.
// The returned function unsubscribes and must be called.
func (a *App) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)

	a.mu.Lock()
	a.watchers[ch] = struct{}{}
	ch <- a.snapshotLocked()
	a.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			a.mu.Lock()
			delete(a.watchers, ch)
			a.mu.Unlock()
		})
	}
}

// notifyLocked delivers the current snapshot to every watcher, replacing any
// unread one. All sends happen under a.mu, so they never block.
func (a *App) notifyLocked() {
	snap := a.snapshotLocked()
	for ch := range a.watchers {
		select {
		case <-ch:
		default:
		}
		ch <- snap
	}
}

// Preview returns the annotated frame publisher.
func (a *App) Preview() *Preview {
	return a.preview
}

// Camera returns the camera instance.
func (a *App) Camera() capture.Camera {
	return a.config.Camera
}

// Detector returns the hand detector.
func (a *App) Detector() detector.Detector {
	return a.config.Detector
}

// Close stops the session, waits for the loop and releases the detector.
func (a *App) Close() error {
	a.Stop()
	a.Wait()
	return a.config.Detector.Close()
}
