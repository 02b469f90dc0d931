// Package tray provides a menu bar interface for driving a signscribe session.
package tray

import (
	"sync"
	"unicode/utf8"

	"github.com/getlantern/systray"

	"github.com/ayusman/signscribe/internal/app"
)

// maxTextLen bounds the confirmed text shown in the menu.
const maxTextLen = 40

// Session is the part of the session controller the tray drives.
type Session interface {
	Start() error
	Stop()
	Reset()
	Subscribe() (<-chan app.Snapshot, func())
}

// Tray represents the system tray application.
type Tray struct {
	session Session
	onOpen  func()
	onQuit  func()
	onError func(err error)
	mu      sync.RWMutex
	done    chan struct{}

	// Menu items stored for later updates
	menuToggle    *systray.MenuItem
	menuConfirmed *systray.MenuItem
}

// New creates a Tray controlling session.
func New(session Session) *Tray {
	return &Tray{
		session: session,
		done:    make(chan struct{}),
	}
}

// OnOpen sets the callback for the "Open in browser" menu item.
func (t *Tray) OnOpen(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onOpen = fn
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// OnError sets the callback for errors from menu actions, such as a failed Start.
func (t *Tray) OnError(fn func(err error)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onError = fn
}

// Run starts the system tray application.
// This function blocks until Quit is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit removes the tray icon and makes Run return.
func (t *Tray) Quit() {
	systray.Quit()
}

// onReady is called when the system tray is ready.
// It sets up the menu structure.
func (t *Tray) onReady() {
	systray.SetTitle("signscribe")
	systray.SetTooltip("signscribe sign language recognizer")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem(toggleTitle(app.StateIdle), "Start or stop recognition")
	menuReset := systray.AddMenuItem("Reset text", "Clear pending and confirmed text")
	systray.AddSeparator()

	t.menuConfirmed = systray.AddMenuItem(confirmedTitle(""), "Last confirmed phrase")
	t.menuConfirmed.Disable()
	systray.AddSeparator()

	menuOpen := systray.AddMenuItem("Open in browser...", "Open the web interface")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit signscribe")
	t.mu.Unlock()

	snapshots, unsubscribe := t.session.Subscribe()

	go func() {
		defer unsubscribe()
		var state app.SessionState
		for {
			select {
			case snap := <-snapshots:
				state = snap.State
				t.update(snap)
			case <-t.menuToggle.ClickedCh:
				t.handleToggle(state)
			case <-menuReset.ClickedCh:
				t.session.Reset()
			case <-menuOpen.ClickedCh:
				t.handleOpen()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			case <-t.done:
				return
			}
		}
	}()
}

// onExit is called when the system tray is about to exit.
func (t *Tray) onExit() {
	close(t.done)
}

// update reflects snap in the menu.
func (t *Tray) update(snap app.Snapshot) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleTitle(snap.State))
		if snap.State == app.StateStopping {
			t.menuToggle.Disable()
		} else {
			t.menuToggle.Enable()
		}
	}
	if t.menuConfirmed != nil {
		t.menuConfirmed.SetTitle(confirmedTitle(snap.Confirmed))
	}
}

// handleToggle starts an idle session and stops a running one.
func (t *Tray) handleToggle(state app.SessionState) {
	switch state {
	case app.StateIdle:
		if err := t.session.Start(); err != nil {
			t.mu.RLock()
			callback := t.onError
			t.mu.RUnlock()
			if callback != nil {
				callback(err)
			}
		}
	case app.StateRunning:
		t.session.Stop()
	}
}

// handleOpen handles the open menu item click.
func (t *Tray) handleOpen() {
	t.mu.RLock()
	callback := t.onOpen
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

// handleQuit handles the quit menu item click.
func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

// toggleTitle is the toggle item label for state.
func toggleTitle(state app.SessionState) string {
	switch state {
	case app.StateRunning:
		return "● Running (click to stop)"
	case app.StateStopping:
		return "◌ Stopping..."
	default:
		return "○ Idle (click to start)"
	}
}

// confirmedTitle is the label of the last confirmed phrase, shortened to
// maxTextLen runes.
func confirmedTitle(text string) string {
	if text == "" {
		return "Last: none"
	}
	if utf8.RuneCountInString(text) > maxTextLen {
		runes := []rune(text)
		text = string(runes[len(runes)-maxTextLen:])
		text = "…" + text
	}
	return "Last: " + text
}
