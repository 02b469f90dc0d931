package capture

import (
	"sync"
	"time"
)

// RateConfig configures adaptive frame rate switching.
type RateConfig struct {
	IdleFPS     int
	ActiveFPS   int
	IdleTimeout time.Duration
}

// RateController switches between an idle and an active capture rate.
// Motion switches to active immediately; the rate drops back to idle once no
// motion has been seen for IdleTimeout.
type RateController struct {
	config     RateConfig
	active     bool
	lastMotion time.Time
	now        func() time.Time
	mu         sync.Mutex
}

// NewRateController returns a controller that starts in idle mode.
func NewRateController(config RateConfig) *RateController {
	if config.IdleFPS <= 0 {
		config.IdleFPS = 5
	}
	if config.ActiveFPS <= 0 {
		config.ActiveFPS = DefaultFPS
	}
	if config.IdleTimeout <= 0 {
		config.IdleTimeout = 2 * time.Second
	}
	return &RateController{config: config, now: time.Now}
}

// FPS returns the rate for the current mode.
func (r *RateController) FPS() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fpsLocked()
}

func (r *RateController) fpsLocked() int {
	if r.active {
		return r.config.ActiveFPS
	}
	return r.config.IdleFPS
}

// Active reports whether the controller is in active mode.
func (r *RateController) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// Observe records one motion sample. It returns the rate to use and whether
// the mode changed.
func (r *RateController) Observe(motion bool) (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	changed := false
	switch {
	case motion:
		r.lastMotion = now
		if !r.active {
			r.active = true
			changed = true
		}
	case r.active && now.Sub(r.lastMotion) > r.config.IdleTimeout:
		r.active = false
		changed = true
	}
	return r.fpsLocked(), changed
}

// Reset returns the controller to idle mode.
func (r *RateController) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active = false
	r.lastMotion = time.Time{}
}
