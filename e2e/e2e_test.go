package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"testing"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/signscribe/internal/app"
	"github.com/ayusman/signscribe/internal/capture"
	"github.com/ayusman/signscribe/internal/detector"
	"github.com/ayusman/signscribe/internal/gesture"
	"github.com/ayusman/signscribe/internal/metrics"
	"github.com/ayusman/signscribe/internal/plugin"
	"github.com/ayusman/signscribe/internal/server"
	"github.com/ayusman/signscribe/internal/store"
)

// scale returns a copy of h stretched about the origin, which changes its
// normalized features.
func scale(h detector.HandLandmarks, factor float64) detector.HandLandmarks {
	out := h
	out.Points = slices.Clone(h.Points)
	for i := range out.Points {
		out.Points[i].X *= factor
		out.Points[i].Y *= factor
	}
	return out
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for condition")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// writeRecorderPlugin installs a plugin that appends every request to logPath.
func writeRecorderPlugin(t *testing.T, dir, logPath string) {
	t.Helper()

	pluginDir := filepath.Join(dir, "recorder")
	if err := os.MkdirAll(pluginDir, 0755); err != nil {
		t.Fatalf("failed to create plugin dir: %v", err)
	}
	manifest := `{"name":"recorder","version":"1.0.0","executable":"run.sh","actions":["type"]}`
	if err := os.WriteFile(filepath.Join(pluginDir, "plugin.json"), []byte(manifest), 0644); err != nil {
		t.Fatalf("failed to write manifest: %v", err)
	}
	script := "#!/bin/sh\ncat >> \"" + logPath + "\"\necho >> \"" + logPath + "\"\necho '{\"success\":true}'\n"
	if err := os.WriteFile(filepath.Join(pluginDir, "run.sh"), []byte(script), 0755); err != nil {
		t.Fatalf("failed to write executable: %v", err)
	}
}

func TestE2E_SpellAndCommit(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}
	if runtime.GOOS == "windows" {
		t.Skip("shell plugins are not supported on Windows")
	}

	tmpDir := t.TempDir()
	s, err := store.New(filepath.Join(tmpDir, "data.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer s.Close()

	// Commit sink
	pluginDir := filepath.Join(tmpDir, "plugins")
	logPath := filepath.Join(tmpDir, "typed.log")
	writeRecorderPlugin(t, pluginDir, logPath)
	manager := plugin.NewManager(pluginDir, nil)
	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	sink := plugin.NewCommitSink(manager, plugin.NewExecutor(5*time.Second),
		[]plugin.Binding{{Plugin: "recorder", Action: "type"}}, nil)

	// Recognition pipeline
	thumbsUp := detector.ThumbsUpLandmarks()
	openPalm := detector.OpenPalmLandmarks()
	bigPalm := scale(openPalm, 1.5)

	frame := gocv.NewMatWithSize(48, 64, gocv.MatTypeCV8UC3)
	defer frame.Close()
	camera := capture.NewMockCamera([]*gocv.Mat{&frame}, true)
	camera.SetInterval(2 * time.Millisecond)

	det := detector.NewMockDetector()
	one := func(h detector.HandLandmarks) []detector.HandLandmarks { return []detector.HandLandmarks{h} }
	det.SetSequence([][]detector.HandLandmarks{
		one(thumbsUp), one(thumbsUp), one(thumbsUp),
		one(openPalm), one(openPalm), one(openPalm),
		one(bigPalm), one(bigPalm),
		nil,
	})

	classifier := gesture.NewTemplateClassifier(0)
	m := metrics.New()
	application, err := app.New(app.Config{
		Camera:     camera,
		Detector:   det,
		Classifier: classifier,
		WindowSize: 3,
		Threshold:  0.5,
		Metrics:    m,
	})
	if err != nil {
		t.Fatalf("app.New() error = %v", err)
	}
	defer application.Close()

	application.OnCommit(func(text string) {
		if _, err := s.Transcripts().Create(text); err != nil {
			t.Errorf("save transcript: %v", err)
		}
		if err := sink.Handle(text); err != nil {
			t.Errorf("sink.Handle() error = %v", err)
		}
	})

	ts := httptest.NewServer(server.New(server.Config{
		Store:     s,
		App:       application,
		Templates: classifier,
		Metrics:   m,
	}))
	defer ts.Close()
	client := ts.Client()

	t.Run("CreateTemplates", func(t *testing.T) {
		for symbol, hand := range map[string]detector.HandLandmarks{
			"H":  thumbsUp,
			"I":  openPalm,
			"OK": bigPalm,
		} {
			body, _ := json.Marshal(map[string]any{"symbol": symbol, "landmarks": hand.XY()})
			resp, err := client.Post(ts.URL+"/api/templates", "application/json", bytes.NewReader(body))
			if err != nil {
				t.Fatalf("create template %s error = %v", symbol, err)
			}
			resp.Body.Close()
			if resp.StatusCode != http.StatusCreated {
				t.Fatalf("create template %s status = %d, want %d", symbol, resp.StatusCode, http.StatusCreated)
			}
		}
		if classifier.Len() != 3 {
			t.Fatalf("classifier.Len() = %d, want 3", classifier.Len())
		}
	})

	t.Run("SpellAndCommit", func(t *testing.T) {
		resp, err := client.Post(ts.URL+"/api/session/start", "application/json", nil)
		if err != nil {
			t.Fatalf("start error = %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("start status = %d, want %d", resp.StatusCode, http.StatusOK)
		}

		waitFor(t, func() bool { return application.Snapshot().Confirmed == "HI" })
		if got := application.Snapshot().Pending; got != "" {
			t.Errorf("pending after commit = %q, want empty", got)
		}
	})

	t.Run("TranscriptLogged", func(t *testing.T) {
		resp, err := client.Get(ts.URL + "/api/transcripts")
		if err != nil {
			t.Fatalf("list transcripts error = %v", err)
		}
		defer resp.Body.Close()

		var listed struct {
			Transcripts []struct {
				Text string `json:"text"`
			} `json:"transcripts"`
		}
		json.NewDecoder(resp.Body).Decode(&listed)
		if len(listed.Transcripts) != 1 || listed.Transcripts[0].Text != "HI" {
			t.Errorf("transcripts = %+v, want one HI", listed.Transcripts)
		}
	})

	t.Run("PluginReceivedText", func(t *testing.T) {
		if err := sink.Close(context.Background()); err != nil {
			t.Fatalf("sink.Close() error = %v", err)
		}
		data, err := os.ReadFile(logPath)
		if err != nil {
			t.Fatalf("plugin never ran: %v", err)
		}
		if !strings.Contains(string(data), `"text":"HI"`) {
			t.Errorf("plugin input = %q", data)
		}
	})

	t.Run("StopKeepsText", func(t *testing.T) {
		resp, err := client.Post(ts.URL+"/api/session/stop", "application/json", nil)
		if err != nil {
			t.Fatalf("stop error = %v", err)
		}
		resp.Body.Close()
		application.Wait()

		snap := application.Snapshot()
		if snap.State != app.StateIdle || snap.Confirmed != "HI" {
			t.Errorf("after stop = %+v, want idle with HI", snap)
		}
	})

	t.Run("APIStillWorks", func(t *testing.T) {
		resp, err := client.Get(ts.URL + "/api/health")
		if err != nil {
			t.Fatalf("health error = %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("health check failed after session")
		}
	})
}
