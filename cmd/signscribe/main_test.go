package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ayusman/signscribe/internal/config"
	"github.com/ayusman/signscribe/internal/pyproc"
)

type recordingCloser struct {
	name  string
	order *[]string
	err   error
}

func (c recordingCloser) Close() error {
	*c.order = append(*c.order, c.name)
	return c.err
}

type recordingDrainer struct {
	order    *[]string
	deadline bool
}

func (d *recordingDrainer) Close(ctx context.Context) error {
	*d.order = append(*d.order, "sink")
	_, d.deadline = ctx.Deadline()
	return nil
}

func TestStopPipeline_StopsAppBeforeDrainingSink(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	for _, appErr := range []error{nil, errors.New("detector close failed")} {
		var order []string
		sink := &recordingDrainer{order: &order}

		stopPipeline(recordingCloser{name: "app", order: &order, err: appErr}, sink, time.Second, logger)

		if strings.Join(order, ",") != "app,sink" {
			t.Errorf("close order = %v, want [app sink]", order)
		}
		if !sink.deadline {
			t.Error("sink drain should be bounded by a deadline")
		}
	}
}

func TestNewDetector(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("missing script fails", func(t *testing.T) {
		_, err := newDetector(config.DetectorConfig{
			ScriptPath: filepath.Join(t.TempDir(), "absent.py"),
		}, logger)
		if !errors.Is(err, pyproc.ErrScriptNotFound) {
			t.Errorf("newDetector() error = %v, want ErrScriptNotFound", err)
		}
	})

	t.Run("explicit script", func(t *testing.T) {
		script := filepath.Join(t.TempDir(), "mediapipe_service.py")
		if err := os.WriteFile(script, nil, 0644); err != nil {
			t.Fatal(err)
		}
		d, err := newDetector(config.DetectorConfig{ScriptPath: script, MaxHands: 1, MinConfidence: 0.3}, logger)
		if err != nil {
			t.Fatalf("newDetector() error = %v", err)
		}
		if err := d.Close(); err != nil {
			t.Errorf("Close() on an unstarted detector = %v", err)
		}
	})
}

func TestHelperScriptsShipped(t *testing.T) {
	for _, name := range []string{"mediapipe_service.py", "classifier_service.py"} {
		path := filepath.Join("..", "..", "scripts", name)
		if _, err := os.Stat(path); err != nil {
			t.Errorf("helper script %s: %v", name, err)
		}
	}
}

func TestCommitBindings(t *testing.T) {
	bindings, err := commitBindings([]config.CommitBinding{
		{Plugin: "keyboard", Action: "type", Config: map[string]any{"suffix": " "}},
		{Plugin: "notify", Action: "show"},
	})
	if err != nil {
		t.Fatalf("commitBindings() error = %v", err)
	}
	if len(bindings) != 2 {
		t.Fatalf("len(bindings) = %d, want 2", len(bindings))
	}
	if string(bindings[0].Config) != `{"suffix":" "}` {
		t.Errorf("config = %s", bindings[0].Config)
	}
	if bindings[1].Config != nil {
		t.Errorf("empty config should stay nil, got %s", bindings[1].Config)
	}

	if _, err := commitBindings([]config.CommitBinding{{Plugin: "keyboard"}}); err == nil {
		t.Error("expected error for binding without action")
	}
}

func TestNewLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "signscribe.log")
	logger, closeLog, err := newLogger(config.LoggingConfig{Level: "warn", Format: "json", Output: path})
	if err != nil {
		t.Fatalf("newLogger() error = %v", err)
	}

	logger.Info("dropped")
	logger.Warn("kept", "k", "v")
	closeLog()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	out := string(data)
	if strings.Contains(out, "dropped") {
		t.Error("info record written at warn level")
	}
	if !strings.Contains(out, `"msg":"kept"`) || !strings.Contains(out, `"k":"v"`) {
		t.Errorf("log output = %q", out)
	}

	if _, _, err := newLogger(config.LoggingConfig{Level: "loud"}); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestLocalURL(t *testing.T) {
	tests := map[string]string{
		":5002":          "http://localhost:5002",
		"127.0.0.1:8080": "http://127.0.0.1:8080",
	}
	for addr, want := range tests {
		if got := localURL(addr); got != want {
			t.Errorf("localURL(%q) = %q, want %q", addr, got, want)
		}
	}
}

func TestFindWebDir_Explicit(t *testing.T) {
	if got := findWebDir("/srv/web"); got != "/srv/web" {
		t.Errorf("findWebDir() = %q, want the explicit dir", got)
	}
}
