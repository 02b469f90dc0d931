package gesture

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/ayusman/signscribe/internal/pyproc"
)

// classifierScript is the service script name searched for when no path is configured.
const classifierScript = "classifier_service.py"

// ProcessConfig configures a ProcessClassifier.
type ProcessConfig struct {
	ScriptPath string
	PythonPath string
	ModelPath  string
}

// ProcessClassifier runs a pickled model in a Python subprocess.
//
// Each request is one JSON line {"features": [...]} and each reply is one
// JSON line {"label": "A"} or {"error": "..."}.
type ProcessClassifier struct {
	proc *pyproc.Process
}

// NewProcessClassifier locates the service script. The subprocess starts on first use.
func NewProcessClassifier(config ProcessConfig, logger *slog.Logger) (*ProcessClassifier, error) {
	script, err := pyproc.FindScript(config.ScriptPath, classifierScript)
	if err != nil {
		return nil, err
	}
	return newProcessClassifier(pyproc.New(pyproc.Config{
		Python: pyproc.FindPython(config.PythonPath),
		Script: script,
		Args:   []string{"--model", config.ModelPath},
		Logger: logger,
	})), nil
}

func newProcessClassifier(proc *pyproc.Process) *ProcessClassifier {
	return &ProcessClassifier{proc: proc}
}

type classifyRequest struct {
	Features Vector `json:"features"`
}

type classifyResponse struct {
	Label string `json:"label"`
	Error string `json:"error,omitempty"`
}

// Classify sends v to the model process and returns its label.
func (c *ProcessClassifier) Classify(v Vector) (Symbol, error) {
	var resp classifyResponse

	err := c.proc.Exchange(func(w io.Writer, r *bufio.Reader) error {
		if err := json.NewEncoder(w).Encode(classifyRequest{Features: v}); err != nil {
			return fmt.Errorf("write request: %w", err)
		}
		line, err := r.ReadBytes('\n')
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}
		if err := json.Unmarshal(line, &resp); err != nil {
			return fmt.Errorf("parse response: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	if resp.Error != "" {
		return "", errors.New(resp.Error)
	}
	return Symbol(resp.Label), nil
}

// Close stops the model process.
func (c *ProcessClassifier) Close() error {
	return c.proc.Close()
}
