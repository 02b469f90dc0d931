// Package main provides a commit sink plugin that types each committed phrase
// into the focused window. It uses AppleScript on macOS and xdotool on Linux.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// Request represents the input from the plugin executor.
type Request struct {
	Action string          `json:"action"`
	Text   string          `json:"text"`
	Config json.RawMessage `json:"config"`
}

// Response represents the output to the plugin executor.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// TypeConfig tunes the "type" action.
type TypeConfig struct {
	// Suffix is typed after the phrase, e.g. " " to separate phrases.
	Suffix string `json:"suffix"`
	// Submit presses Return after typing.
	Submit bool `json:"submit"`
}

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeErrorResponse(fmt.Sprintf("failed to decode request: %v", err))
		return
	}

	switch req.Action {
	case "type":
		if err := handleType(req.Text, req.Config); err != nil {
			writeErrorResponse(fmt.Sprintf("action %s failed: %v", req.Action, err))
			return
		}
	default:
		writeErrorResponse(fmt.Sprintf("unknown action: %s", req.Action))
		return
	}

	writeSuccessResponse()
}

func parseConfig(raw json.RawMessage) (TypeConfig, error) {
	var cfg TypeConfig
	if len(raw) == 0 || string(raw) == "null" {
		return cfg, nil
	}
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// handleType types text plus the configured suffix.
func handleType(text string, raw json.RawMessage) error {
	if text == "" {
		return fmt.Errorf("text is required")
	}
	cfg, err := parseConfig(raw)
	if err != nil {
		return err
	}

	return typeCommand(runtime.GOOS, text+cfg.Suffix, cfg.Submit)
}

func typeCommand(goos, text string, submit bool) error {
	name, args, err := buildCommand(goos, text, submit)
	if err != nil {
		return err
	}
	cmd := exec.Command(name, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, string(output))
	}
	return nil
}

// buildCommand returns the program and arguments that type text on goos.
func buildCommand(goos, text string, submit bool) (string, []string, error) {
	switch goos {
	case "darwin":
		script := fmt.Sprintf(`tell application "System Events" to keystroke "%s"`, escapeAppleScript(text))
		if submit {
			script += "\n" + `tell application "System Events" to key code 36`
		}
		return "osascript", []string{"-e", script}, nil
	case "linux":
		if submit {
			text += "\n"
		}
		return "xdotool", []string{"type", "--clearmodifiers", "--", text}, nil
	default:
		return "", nil, fmt.Errorf("typing is not supported on %s", goos)
	}
}

// escapeAppleScript escapes text for use inside an AppleScript string literal.
func escapeAppleScript(text string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(text)
}

// writeErrorResponse writes an error response to stdout.
func writeErrorResponse(errMsg string) {
	resp := Response{
		Success: false,
		Error:   errMsg,
	}
	json.NewEncoder(os.Stdout).Encode(resp)
}

// writeSuccessResponse writes a success response to stdout.
func writeSuccessResponse() {
	resp := Response{
		Success: true,
	}
	json.NewEncoder(os.Stdout).Encode(resp)
}
