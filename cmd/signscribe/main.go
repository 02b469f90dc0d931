package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/ayusman/signscribe/internal/app"
	"github.com/ayusman/signscribe/internal/capture"
	"github.com/ayusman/signscribe/internal/config"
	"github.com/ayusman/signscribe/internal/detector"
	"github.com/ayusman/signscribe/internal/gesture"
	"github.com/ayusman/signscribe/internal/metrics"
	"github.com/ayusman/signscribe/internal/plugin"
	"github.com/ayusman/signscribe/internal/server"
	"github.com/ayusman/signscribe/internal/server/api"
	"github.com/ayusman/signscribe/internal/store"
	"github.com/ayusman/signscribe/internal/tray"
)

func main() {
	configPath := flag.String("config", config.DefaultConfigPath(), "path to the YAML config file")
	withTray := flag.Bool("tray", false, "show a menu bar icon")
	autoStart := flag.Bool("start", false, "start recognizing immediately")
	flag.Parse()

	if err := run(*configPath, *withTray, *autoStart); err != nil {
		fmt.Fprintf(os.Stderr, "signscribe: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, withTray, autoStart bool) error {
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return err
	}

	logger, closeLog, err := newLogger(cfg.Logging)
	if err != nil {
		return err
	}
	defer closeLog()
	slog.SetDefault(logger)

	st, err := store.New(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	m := metrics.New()

	classifier, templates, closeClassifier, err := newClassifier(cfg.Classifier, st, logger)
	if err != nil {
		return err
	}
	defer closeClassifier()

	hands, err := newDetector(cfg.Detector, logger)
	if err != nil {
		return err
	}

	application, err := app.New(app.Config{
		Camera: capture.NewCamera(capture.Config{
			DeviceIDs: cfg.Camera.DeviceIDs,
			Width:     cfg.Camera.Width,
			Height:    cfg.Camera.Height,
			FPS:       cfg.Camera.FPS,
		}),
		Detector:    hands,
		Classifier:  classifier,
		WindowSize:  cfg.Recognition.WindowSize,
		Threshold:   cfg.Recognition.ConfidenceThreshold,
		AdaptiveFPS: cfg.Camera.AdaptiveFPS,
		Rate: capture.RateConfig{
			IdleFPS:     cfg.Camera.IdleFPS,
			ActiveFPS:   cfg.Camera.ActiveFPS,
			IdleTimeout: cfg.Camera.IdleTimeout,
		},
		MotionThreshold: cfg.Camera.MotionThreshold,
		Logger:          logger,
		Metrics:         m,
	})
	if err != nil {
		hands.Close()
		return err
	}

	sink, err := newCommitSink(cfg.Plugins, logger)
	if err != nil {
		application.Close()
		return err
	}
	defer stopPipeline(application, sink, cfg.Plugins.Timeout+time.Second, logger)

	application.OnCommit(func(text string) {
		if _, err := st.Transcripts().Create(text); err != nil {
			logger.Error("save transcript", "error", err)
		}
		if err := sink.Handle(text); err != nil {
			logger.Warn("deliver committed text", "error", err)
		}
	})

	r := cfg.Recognition
	logger.Info("recognition configured",
		"window_size", r.WindowSize,
		"confidence_threshold", r.ConfidenceThreshold,
		"gesture_interval", r.GestureInterval,
		"space_timeout", r.SpaceTimeout,
		"letter_timeout", r.LetterTimeout,
		"no_hand_timeout", r.NoHandTimeout,
		"debounce_timeout", r.DebounceTimeout,
	)

	srvConfig := server.Config{
		StaticDir: findWebDir(cfg.Server.StaticDir),
		Store:     st,
		App:       application,
		Metrics:   m,
		Logger:    logger,
	}
	if templates != nil {
		srvConfig.Templates = templates
	}
	if srvConfig.StaticDir != "" {
		logger.Info("serving static files", "dir", srvConfig.StaticDir)
	}
	srv := server.New(srvConfig)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(ctx, cfg.Server.Address)
		stop()
	}()

	if autoStart {
		if err := application.Start(); err != nil {
			logger.Error("start session", "error", err)
		}
	}

	if withTray {
		t := tray.New(application)
		t.OnQuit(stop)
		t.OnOpen(func() { openBrowser(localURL(cfg.Server.Address), logger) })
		t.OnError(func(err error) { logger.Error("tray action", "error", err) })
		go func() {
			<-ctx.Done()
			t.Quit()
		}()
		t.Run()
	}

	<-ctx.Done()
	logger.Info("shutting down")
	return <-serveErr
}

// drainer is a commit consumer that finishes queued work on Close.
type drainer interface {
	Close(ctx context.Context) error
}

// stopPipeline stops the recognition loop and waits for it, then drains the
// commit sink. A phrase committed while the loop stops is still delivered.
func stopPipeline(application io.Closer, sink drainer, drainTimeout time.Duration, logger *slog.Logger) {
	if err := application.Close(); err != nil {
		logger.Warn("close recognition pipeline", "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	if err := sink.Close(ctx); err != nil {
		logger.Warn("commit sink did not drain", "error", err)
	}
}

// newLogger builds the process logger from the logging config.
func newLogger(cfg config.LoggingConfig) (*slog.Logger, func(), error) {
	var (
		out     io.Writer
		closeFn = func() {}
	)
	switch cfg.Output {
	case "", "stdout":
		out = os.Stdout
	case "stderr":
		out = os.Stderr
	default:
		if err := os.MkdirAll(filepath.Dir(cfg.Output), 0755); err != nil {
			return nil, nil, fmt.Errorf("create log directory: %w", err)
		}
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		out = f
		closeFn = func() { f.Close() }
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, nil, fmt.Errorf("log level: %w", err)
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}
	return slog.New(handler), closeFn, nil
}

// newClassifier builds the configured classifier. The template classifier is
// also returned on its own so the API can refresh it after edits.
func newClassifier(cfg config.ClassifierConfig, st *store.Store, logger *slog.Logger) (gesture.Classifier, *gesture.TemplateClassifier, func(), error) {
	switch cfg.Kind {
	case "process":
		pc, err := gesture.NewProcessClassifier(gesture.ProcessConfig{
			ScriptPath: cfg.ScriptPath,
			PythonPath: cfg.PythonPath,
			ModelPath:  cfg.ModelPath,
		}, logger)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("process classifier: %w", err)
		}
		return pc, nil, func() { pc.Close() }, nil
	default:
		tc := gesture.NewTemplateClassifier(cfg.Tolerance)
		if err := api.ReloadTemplates(st, tc); err != nil {
			return nil, nil, nil, fmt.Errorf("load templates: %w", err)
		}
		if tc.Len() == 0 {
			logger.Warn("no templates stored; every frame will be skipped until templates are added via /api/templates")
		}
		logger.Info("template classifier loaded", "templates", tc.Len(), "tolerance", cfg.Tolerance)
		return tc, tc, func() {}, nil
	}
}

// newDetector prepares the MediaPipe extractor. A missing service script is a
// startup error.
func newDetector(cfg config.DetectorConfig, logger *slog.Logger) (detector.Detector, error) {
	d, err := detector.NewMediaPipeDetector(detector.Config{
		ScriptPath:    cfg.ScriptPath,
		PythonPath:    cfg.PythonPath,
		MaxHands:      cfg.MaxHands,
		MinConfidence: cfg.MinConfidence,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("hand detector: %w (install scripts/ next to the binary or set detector.script_path)", err)
	}
	return d, nil
}

// newCommitSink discovers plugins and binds the configured on_commit actions.
func newCommitSink(cfg config.PluginsConfig, logger *slog.Logger) (*plugin.CommitSink, error) {
	manager := plugin.NewManager(cfg.Dir, logger)
	if err := manager.Discover(); err != nil {
		return nil, fmt.Errorf("discover plugins: %w", err)
	}

	bindings, err := commitBindings(cfg.OnCommit)
	if err != nil {
		return nil, err
	}
	logger.Info("plugins loaded", "dir", cfg.Dir, "plugins", len(manager.List()), "on_commit", len(bindings))
	return plugin.NewCommitSink(manager, plugin.NewExecutor(cfg.Timeout), bindings, logger), nil
}

// commitBindings converts configured bindings, encoding each config map as
// the JSON object the plugin receives.
func commitBindings(in []config.CommitBinding) ([]plugin.Binding, error) {
	out := make([]plugin.Binding, 0, len(in))
	for _, b := range in {
		if b.Plugin == "" || b.Action == "" {
			return nil, errors.New("plugins.on_commit: plugin and action are required")
		}
		binding := plugin.Binding{Plugin: b.Plugin, Action: b.Action}
		if len(b.Config) > 0 {
			raw, err := json.Marshal(b.Config)
			if err != nil {
				return nil, fmt.Errorf("plugins.on_commit %s/%s: encode config: %w", b.Plugin, b.Action, err)
			}
			binding.Config = raw
		}
		out = append(out, binding)
	}
	return out, nil
}

// findWebDir returns explicit when set, otherwise the first existing web
// directory among "web", "../web", "../../web" and ~/.signscribe/web.
func findWebDir(explicit string) string {
	if explicit != "" {
		return explicit
	}

	for _, p := range []string{"web", "../web", "../../web"} {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}

	homeWebDir := filepath.Join(config.DefaultDataDir(), "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}
	return ""
}

// localURL turns a listen address into a browsable URL.
func localURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	return "http://" + addr
}

func openBrowser(url string, logger *slog.Logger) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		logger.Warn("open browser", "url", url, "error", err)
		return
	}
	go cmd.Wait()
}
