// Package server provides the HTTP server for the signscribe recognizer.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/ayusman/signscribe/internal/app"
	"github.com/ayusman/signscribe/internal/metrics"
	"github.com/ayusman/signscribe/internal/server/api"
	"github.com/ayusman/signscribe/internal/store"
)

// ShutdownTimeout bounds how long Serve waits for in-flight requests.
const ShutdownTimeout = 5 * time.Second

// Config holds the server configuration. Routes are only registered for the
// collaborators that are set.
type Config struct {
	StaticDir string
	Store     *store.Store
	App       *app.App
	// Templates receives the stored templates after every template change.
	Templates api.TemplateSet
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
}

// Server represents the HTTP server for the signscribe application.
type Server struct {
	config Config
	mux    *http.ServeMux
	logger *slog.Logger
	start  time.Time
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		logger: logger.With("component", "server"),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.handle("/api/health", http.HandlerFunc(s.handleHealth))

	if s.config.Metrics != nil {
		s.mux.Handle("/metrics", s.config.Metrics.Handler())
	}

	if s.config.App != nil {
		session := http.NewServeMux()
		api.NewSessionHandler(s.config.App).Routes(session)
		for _, path := range []string{"/api/session", "/api/session/start", "/api/session/stop", "/api/session/reset"} {
			s.handle(path, session)
		}

		// Long-lived connections stay out of the request metrics.
		s.mux.Handle("/api/ws", NewSnapshotHandler(s.config.App, s.logger))
		s.mux.Handle("/api/stream", NewStreamHandler(s.config.App.Preview()))
	}

	if s.config.Store != nil {
		templates := api.NewTemplateHandler(s.config.Store, s.config.Templates)
		s.handle("/api/templates", templates)
		s.handle("/api/templates/", templates)

		transcripts := api.NewTranscriptHandler(s.config.Store)
		s.handle("/api/transcripts", transcripts)
		s.handle("/api/transcripts/", transcripts)
	}

	if s.config.StaticDir != "" {
		s.mux.Handle("/", http.FileServer(http.Dir(s.config.StaticDir)))
	}
}

// handle registers h under pattern with request metrics.
func (s *Server) handle(pattern string, h http.Handler) {
	s.mux.Handle(pattern, s.instrument(pattern, h))
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) instrument(pattern string, h http.Handler) http.Handler {
	if s.config.Metrics == nil {
		return h
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h.ServeHTTP(rec, r)
		s.config.Metrics.RecordHTTPRequest(r.Method, pattern, strconv.Itoa(rec.status), time.Since(start).Seconds())
	})
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]any{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	}
	if s.config.App != nil {
		response["session"] = s.config.App.State().String()
	}
	if s.config.Store != nil {
		if err := s.config.Store.Ping(); err != nil {
			response["status"] = "degraded"
			response["store"] = err.Error()
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// Serve listens on addr until ctx is cancelled, then shuts down gracefully.
// Open streams and sockets are told to finish when shutdown begins.
func (s *Server) Serve(ctx context.Context, addr string) error {
	baseCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return baseCtx },
	}
	srv.RegisterOnShutdown(cancel)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, done := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer done()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.logger.Info("http server stopped")
	return nil
}
