package plugin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// queueSize is how many committed phrases may wait for delivery.
const queueSize = 32

// ErrSinkClosed is returned by Handle after Close.
var ErrSinkClosed = errors.New("commit sink closed")

// Binding names a plugin action to run with every committed phrase.
type Binding struct {
	Plugin string
	Action string
	Config json.RawMessage
}

// CommitSink delivers committed phrases to the bound plugins. Phrases are
// queued and delivered in order on a single worker goroutine, so a slow
// plugin never blocks the caller.
type CommitSink struct {
	manager  *Manager
	executor *Executor
	bindings []Binding
	logger   *slog.Logger

	queue  chan string
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// NewCommitSink creates a sink and starts its worker.
func NewCommitSink(manager *Manager, executor *Executor, bindings []Binding, logger *slog.Logger) *CommitSink {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &CommitSink{
		manager:  manager,
		executor: executor,
		bindings: bindings,
		logger:   logger.With("component", "commit-sink"),
		queue:    make(chan string, queueSize),
		ctx:      ctx,
		cancel:   cancel,
	}

	s.wg.Add(1)
	go s.worker()
	return s
}

// Handle queues text for delivery. When the queue is full the phrase is
// dropped and an error returned.
func (s *CommitSink) Handle(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSinkClosed
	}
	if len(s.bindings) == 0 {
		return nil
	}

	select {
	case s.queue <- text:
		return nil
	default:
		s.logger.Warn("commit queue full, dropping phrase", "text", text)
		return fmt.Errorf("commit queue full")
	}
}

// Deliver runs every binding with text and returns the failures joined.
func (s *CommitSink) Deliver(ctx context.Context, text string) error {
	var errs []error
	for _, b := range s.bindings {
		if err := s.run(ctx, b, text); err != nil {
			errs = append(errs, fmt.Errorf("%s/%s: %w", b.Plugin, b.Action, err))
		}
	}
	return errors.Join(errs...)
}

func (s *CommitSink) run(ctx context.Context, b Binding, text string) error {
	p, err := s.manager.Get(b.Plugin)
	if err != nil {
		return err
	}
	if !p.Manifest.SupportsAction(b.Action) {
		return fmt.Errorf("plugin does not support action %q", b.Action)
	}

	resp, err := s.executor.Execute(ctx, p, &Request{Action: b.Action, Text: text, Config: b.Config})
	if err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("plugin reported failure: %s", resp.Error)
	}
	return nil
}

func (s *CommitSink) worker() {
	defer s.wg.Done()

	for text := range s.queue {
		if err := s.Deliver(s.ctx, text); err != nil {
			s.logger.Error("deliver committed phrase", "error", err)
			continue
		}
		s.logger.Debug("committed phrase delivered", "bindings", len(s.bindings))
	}
}

// Close stops accepting phrases, delivers the queued ones and waits for the
// worker. Pending deliveries are cancelled if ctx ends first.
func (s *CommitSink) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.queue)
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.cancel()
		return nil
	case <-ctx.Done():
		s.cancel()
		<-done
		return ctx.Err()
	}
}
