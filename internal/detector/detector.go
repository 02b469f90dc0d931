package detector

import "gocv.io/x/gocv"

// Detector defines the interface for hand landmark extractors.
type Detector interface {
	// Detect analyzes a video frame and returns detected hand landmarks.
	// An empty slice means no hand was detected in the frame.
	Detect(frame *gocv.Mat) ([]HandLandmarks, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for hand detection.
type Config struct {
	// ScriptPath is the MediaPipe service script. Empty means search the usual locations.
	ScriptPath string

	// PythonPath is the interpreter used to run the script. Empty means
	// a project virtualenv if present, otherwise python3.
	PythonPath string

	// MaxHands is the maximum number of hands to detect.
	MaxHands int

	// MinConfidence is the minimum detection confidence threshold (0.0-1.0).
	MinConfidence float64
}

// DefaultConfig returns a Config tuned for single-hand sign input.
func DefaultConfig() Config {
	return Config{
		MaxHands:      1,
		MinConfidence: 0.3,
	}
}
