// Package pyproc runs long-lived Python helper services that answer requests
// over stdin/stdout.
package pyproc

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"
)

// DefaultIdleTimeout is how long an unused process is kept alive.
const DefaultIdleTimeout = 30 * time.Second

// shutdownGrace is how long a helper may take to exit after its stdin closes
// before it is killed.
const shutdownGrace = 2 * time.Second

// ErrScriptNotFound is returned when the service script cannot be located.
var ErrScriptNotFound = errors.New("service script not found")

// Config describes how to launch a service process.
type Config struct {
	Python      string
	Script      string
	Args        []string
	IdleTimeout time.Duration
	Logger      *slog.Logger
}

// Process is a lazily started helper process. Exchanges are serialized.
type Process struct {
	config    Config
	cmd       *exec.Cmd
	stdin     io.WriteCloser
	stdout    *bufio.Reader
	mu        sync.Mutex
	started   bool
	idleTimer *time.Timer
}

// New creates a Process. The process is not started until the first Exchange.
func New(config Config) *Process {
	if config.IdleTimeout <= 0 {
		config.IdleTimeout = DefaultIdleTimeout
	}
	if config.Python == "" {
		config.Python = "python3"
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Process{config: config}
}

// Exchange runs fn with the process stdin and stdout, starting the process if needed.
// A failed exchange kills the process so the next call starts a fresh one.
func (p *Process) Exchange(fn func(w io.Writer, r *bufio.Reader) error) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ensureStarted(); err != nil {
		return err
	}

	if err := fn(p.stdin, p.stdout); err != nil {
		if shutdownErr := p.shutdown(true); shutdownErr != nil {
			p.config.Logger.Debug("helper exited after failed exchange",
				slog.String("script", p.config.Script),
				slog.String("error", shutdownErr.Error()))
		}
		return err
	}

	p.resetIdleTimer()
	return nil
}

// Close shuts down the process.
func (p *Process) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.shutdown(false)
}

func (p *Process) ensureStarted() error {
	if p.started {
		return nil
	}

	args := append([]string{p.config.Script}, p.config.Args...)
	p.cmd = exec.Command(p.config.Python, args...)
	p.cmd.WaitDelay = shutdownGrace

	stdin, err := p.cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("create stdin pipe: %w", err)
	}

	stdout, err := p.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("create stdout pipe: %w", err)
	}

	// Helper diagnostics go straight to our stderr
	p.cmd.Stderr = os.Stderr

	if err := p.cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", filepath.Base(p.config.Script), err)
	}

	p.stdin = stdin
	p.stdout = bufio.NewReader(stdout)
	p.started = true

	p.config.Logger.Info("helper process started",
		slog.String("script", p.config.Script),
		slog.Int("pid", p.cmd.Process.Pid))
	return nil
}

// shutdown closes stdin and waits for the helper to exit. With kill set, or
// once shutdownGrace passes, the process is killed instead. A helper whose
// exchange failed may be mid-request and never see EOF.
func (p *Process) shutdown(kill bool) error {
	if !p.started {
		return nil
	}

	if p.idleTimer != nil {
		p.idleTimer.Stop()
		p.idleTimer = nil
	}

	if p.stdin != nil {
		p.stdin.Close()
	}

	proc := p.cmd.Process
	if kill {
		proc.Kill()
	} else {
		t := time.AfterFunc(shutdownGrace, func() { proc.Kill() })
		defer t.Stop()
	}

	err := p.cmd.Wait()
	p.started = false
	p.cmd = nil
	p.stdin = nil
	p.stdout = nil

	return err
}

func (p *Process) resetIdleTimer() {
	if p.idleTimer != nil {
		p.idleTimer.Stop()
	}
	p.idleTimer = time.AfterFunc(p.config.IdleTimeout, func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		p.shutdown(false)
	})
}

// FindScript returns the first existing path among explicit and the usual
// script locations: ./scripts, ../scripts, next to the executable, and ~/.signscribe/scripts.
func FindScript(explicit, name string) (string, error) {
	var candidates []string
	if explicit != "" {
		candidates = append(candidates, explicit)
	} else {
		candidates = append(candidates,
			filepath.Join("scripts", name),
			filepath.Join("..", "scripts", name),
		)
		if execPath, err := os.Executable(); err == nil {
			candidates = append(candidates, filepath.Join(filepath.Dir(execPath), "scripts", name))
		}
		if home, err := os.UserHomeDir(); err == nil {
			candidates = append(candidates, filepath.Join(home, ".signscribe", "scripts", name))
		}
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return absOrSelf(path), nil
		}
	}
	return "", fmt.Errorf("%s: %w", name, ErrScriptNotFound)
}

// FindPython returns explicit if set, else a virtualenv interpreter if one is
// found near the working directory or executable, else "python3".
func FindPython(explicit string) string {
	if explicit != "" {
		return explicit
	}

	candidates := []string{
		"venv/bin/python",
		"../venv/bin/python",
		"../../venv/bin/python",
	}
	if execPath, err := os.Executable(); err == nil {
		candidates = append(candidates, filepath.Join(filepath.Dir(execPath), "venv/bin/python"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".signscribe/venv/bin/python"))
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return absOrSelf(path)
		}
	}
	return "python3"
}

func absOrSelf(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}
