package detector

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strconv"

	"gocv.io/x/gocv"

	"github.com/ayusman/signscribe/internal/pyproc"
)

// mediaPipeScript is the service script name searched for when no path is configured.
const mediaPipeScript = "mediapipe_service.py"

// MediaPipeDetector implements Detector using a Python MediaPipe subprocess.
//
// Frames are sent as a 4-byte big-endian length followed by JPEG bytes; the
// service answers with one JSON line per frame.
type MediaPipeDetector struct {
	config Config
	proc   *pyproc.Process
}

// NewMediaPipeDetector creates a new MediaPipe detector.
// The Python process is started lazily on first detection.
func NewMediaPipeDetector(config Config, logger *slog.Logger) (*MediaPipeDetector, error) {
	scriptPath, err := pyproc.FindScript(config.ScriptPath, mediaPipeScript)
	if err != nil {
		return nil, err
	}

	proc := pyproc.New(pyproc.Config{
		Python: pyproc.FindPython(config.PythonPath),
		Script: scriptPath,
		Args: []string{
			"--max-hands", strconv.Itoa(config.MaxHands),
			"--min-confidence", strconv.FormatFloat(config.MinConfidence, 'f', -1, 64),
		},
		Logger: logger,
	})

	return &MediaPipeDetector{config: config, proc: proc}, nil
}

// Detect analyzes a frame and returns detected hand landmarks.
func (d *MediaPipeDetector) Detect(frame *gocv.Mat) ([]HandLandmarks, error) {
	if frame == nil || frame.Empty() {
		return nil, nil
	}

	buf, err := gocv.IMEncode(".jpg", *frame)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	data := buf.GetBytes()

	var response struct {
		Hands []jsonHand `json:"hands"`
	}

	err = d.proc.Exchange(func(w io.Writer, r *bufio.Reader) error {
		length := make([]byte, 4)
		binary.BigEndian.PutUint32(length, uint32(len(data)))

		if _, err := w.Write(length); err != nil {
			return fmt.Errorf("write length: %w", err)
		}
		if _, err := w.Write(data); err != nil {
			return fmt.Errorf("write data: %w", err)
		}

		line, err := r.ReadString('\n')
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}
		if err := json.Unmarshal([]byte(line), &response); err != nil {
			return fmt.Errorf("parse response: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := make([]HandLandmarks, len(response.Hands))
	for i, h := range response.Hands {
		result[i] = h.toHandLandmarks()
	}
	return result, nil
}

// Close shuts down the Python process.
func (d *MediaPipeDetector) Close() error {
	return d.proc.Close()
}

// jsonHand represents the JSON structure from the Python service.
type jsonHand struct {
	Points     []Point3D `json:"points"`
	Handedness string    `json:"handedness"`
	Score      float64   `json:"score"`
}

// toHandLandmarks keeps the points exactly as reported, never padded or truncated.
func (h jsonHand) toHandLandmarks() HandLandmarks {
	return HandLandmarks{
		Points:     slices.Clone(h.Points),
		Handedness: h.Handedness,
		Score:      h.Score,
	}
}
