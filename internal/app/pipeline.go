package app

import (
	"fmt"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/signscribe/internal/accumulator"
	"github.com/ayusman/signscribe/internal/capture"
	"github.com/ayusman/signscribe/internal/gesture"
	"github.com/ayusman/signscribe/internal/metrics"
)

// loop holds the state owned by the processing goroutine.
type loop struct {
	votes  *gesture.VoteBuffer
	motion *capture.MotionDetector
	rate   *capture.RateController
}

// run is the processing goroutine of one session. It exits when the session
// leaves StateRunning or the camera fails, and always ends in StateIdle.
func (a *App) run(done chan struct{}) {
	defer close(done)

	err := a.process()

	if cerr := a.config.Camera.Close(); cerr != nil {
		a.logger.Warn("close camera", "error", cerr)
	}

	a.mu.Lock()
	a.state = StateIdle
	a.lastErr = err
	a.notifyLocked()
	a.mu.Unlock()

	a.metrics.SetRunning(false)
	if err != nil {
		a.metrics.RecordCaptureError()
		a.logger.Error("session ended by capture failure", "error", err)
		return
	}
	a.logger.Info("session stopped")
}

// process reads frames until the session is stopped. A non-nil error means
// the camera could not be opened or stopped delivering frames.
func (a *App) process() error {
	if err := a.config.Camera.Open(); err != nil {
		return fmt.Errorf("open camera: %w", err)
	}

	l := &loop{votes: gesture.NewVoteBuffer(a.config.WindowSize)}
	if a.config.AdaptiveFPS {
		l.motion = capture.NewMotionDetector(a.config.MotionThreshold)
		defer l.motion.Close()
		l.rate = capture.NewRateController(a.config.Rate)
		a.config.Camera.SetFPS(l.rate.FPS())
	}

	for {
		a.mu.Lock()
		if a.state != StateRunning {
			a.mu.Unlock()
			return nil
		}
		if a.resetVotes {
			l.votes.Reset()
			a.resetVotes = false
		}
		a.mu.Unlock()

		frame, err := a.config.Camera.ReadFrame()
		if err != nil {
			return fmt.Errorf("read frame: %w", err)
		}

		a.processFrame(l, frame)
		frame.Close()
	}
}

// processFrame runs one frame through detection, classification, voting and
// reduction. Frame-local failures skip the frame without touching the text.
func (a *App) processFrame(l *loop, frame *gocv.Mat) {
	start := time.Now()
	defer func() { a.metrics.RecordFrame(time.Since(start).Seconds()) }()

	if l.rate != nil {
		moved, _ := l.motion.Detect(frame)
		if fps, changed := l.rate.Observe(moved); changed {
			a.config.Camera.SetFPS(fps)
			a.logger.Debug("capture rate changed", "fps", fps, "active", l.rate.Active())
		}
	}

	var overlay Overlay
	defer func() {
		if !a.preview.Active() {
			return
		}
		if overlay.Snapshot.State == StateIdle {
			overlay.Snapshot = a.Snapshot()
		}
		a.preview.Render(frame, overlay)
	}()

	hands, err := a.config.Detector.Detect(frame)
	if err != nil {
		a.metrics.RecordSkip(metrics.SkipDetectError)
		a.logger.Warn("detect hands", "error", err)
		return
	}
	if len(hands) == 0 {
		a.metrics.RecordSkip(metrics.SkipNoHand)
		return
	}
	hand := hands[0]
	overlay.Hand = &hand

	features, err := gesture.Normalize(hand.XY())
	if err != nil {
		a.metrics.RecordSkip(metrics.SkipFeatureLength)
		a.logger.Debug("normalize landmarks", "error", err)
		return
	}

	symbol, err := a.adapter.Classify(features)
	if err != nil {
		a.metrics.RecordClassificationFailure()
		a.logger.Debug("classify frame", "error", err)
		return
	}
	overlay.Symbol = symbol

	l.votes.Observe(symbol)
	var vote *gesture.Vote
	if v, ok := l.votes.Vote(); ok {
		vote = &v
		overlay.Vote = v
		a.metrics.RecordVote(v.Confidence)
	}

	text, action, hooks := a.apply(vote)
	overlay.Snapshot = Snapshot{Pending: text.Pending, Confirmed: text.Confirmed, State: StateRunning}

	if action != accumulator.ActionNone {
		a.metrics.RecordReduction(action.String())
	}
	switch action {
	case accumulator.ActionCommit:
		a.metrics.RecordCommit()
		a.logger.Info("phrase committed", "text", text.Confirmed)
		if text.Confirmed != "" {
			for _, fn := range hooks {
				fn(text.Confirmed)
			}
		}
	case accumulator.ActionAppend, accumulator.ActionSpace, accumulator.ActionBackspace:
		a.logger.Debug("text updated", "symbol", vote.Symbol, "confidence", vote.Confidence, "pending", text.Pending)
	}
}

// apply reduces vote into the text state under the lock. A vote computed
// from a window that Reset has since invalidated is discarded.
func (a *App) apply(vote *gesture.Vote) (accumulator.State, accumulator.Action, []CommitFunc) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.resetVotes {
		return a.text, accumulator.ActionNone, nil
	}

	next, action := a.reducer.Reduce(a.text, vote)
	a.text = next
	if action.Mutates() {
		a.notifyLocked()
	}

	var hooks []CommitFunc
	if action == accumulator.ActionCommit {
		hooks = append(hooks, a.hooks...)
	}
	return next, action, hooks
}
