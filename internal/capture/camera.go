// Package capture provides camera capture functionality using GoCV (OpenCV).
package capture

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"gocv.io/x/gocv"
)

// Default camera settings
const (
	DefaultFPS    = 15
	DefaultWidth  = 640
	DefaultHeight = 480
)

var (
	// ErrCameraNotOpen is returned when trying to read from a camera that is not open.
	ErrCameraNotOpen = errors.New("camera is not open")
	// ErrNoCamera is returned by Open when none of the configured devices opens.
	ErrNoCamera = errors.New("no camera device available")
)

// Camera defines the interface for camera capture implementations.
//
// ReadFrame blocks until a frame is available. It returns io.EOF when the
// source is exhausted and any other error when the device fails.
type Camera interface {
	Open() error
	Close() error
	ReadFrame() (*gocv.Mat, error)
	SetFPS(fps int)
	FPS() int
	IsOpen() bool
}

// Config holds device selection and capture settings.
type Config struct {
	// DeviceIDs are tried in order; the first one that opens and yields a
	// frame is used.
	DeviceIDs []int
	Width     int
	Height    int
	FPS       int
}

// DefaultConfig returns the default capture settings.
func DefaultConfig() Config {
	return Config{
		DeviceIDs: []int{0, 1, 2, 3},
		Width:     DefaultWidth,
		Height:    DefaultHeight,
		FPS:       DefaultFPS,
	}
}

// cameraImpl manages video capture from a camera device using GoCV.
type cameraImpl struct {
	config   Config
	deviceID int
	capture  *gocv.VideoCapture
	mu       sync.Mutex
	running  bool
	fps      int
}

// NewCamera creates a Camera that probes the configured devices on Open.
func NewCamera(config Config) Camera {
	if len(config.DeviceIDs) == 0 {
		config.DeviceIDs = DefaultConfig().DeviceIDs
	}
	if config.Width <= 0 {
		config.Width = DefaultWidth
	}
	if config.Height <= 0 {
		config.Height = DefaultHeight
	}
	if config.FPS <= 0 {
		config.FPS = DefaultFPS
	}

	return &cameraImpl{
		config:   config,
		deviceID: -1,
		fps:      config.FPS,
	}
}

// Open opens the first configured device that delivers a frame.
func (c *cameraImpl) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return nil
	}

	var errs []error
	for _, id := range c.config.DeviceIDs {
		capture, err := c.openDevice(id)
		if err != nil {
			errs = append(errs, fmt.Errorf("device %d: %w", id, err))
			continue
		}
		c.capture = capture
		c.deviceID = id
		c.running = true
		return nil
	}

	return fmt.Errorf("%w: %w", ErrNoCamera, errors.Join(errs...))
}

// openDevice opens one device and checks that it actually produces frames.
// Some virtual devices open fine but never deliver.
func (c *cameraImpl) openDevice(id int) (*gocv.VideoCapture, error) {
	capture, err := gocv.OpenVideoCapture(id)
	if err != nil {
		return nil, err
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, errors.New("device did not open")
	}

	capture.Set(gocv.VideoCaptureFrameWidth, float64(c.config.Width))
	capture.Set(gocv.VideoCaptureFrameHeight, float64(c.config.Height))
	capture.Set(gocv.VideoCaptureFPS, float64(c.fps))

	probe := gocv.NewMat()
	defer probe.Close()
	if ok := capture.Read(&probe); !ok || probe.Empty() {
		capture.Close()
		return nil, errors.New("device opened but returned no frame")
	}

	return capture, nil
}

// Close closes the camera and releases resources.
func (c *cameraImpl) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running || c.capture == nil {
		c.running = false
		return nil
	}

	err := c.capture.Close()
	c.capture = nil
	c.running = false
	c.deviceID = -1

	return err
}

// ReadFrame reads a single frame from the camera.
// The caller is responsible for closing the returned Mat.
func (c *cameraImpl) ReadFrame() (*gocv.Mat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running || c.capture == nil {
		return nil, ErrCameraNotOpen
	}

	mat := gocv.NewMat()
	if ok := c.capture.Read(&mat); !ok {
		mat.Close()
		return nil, io.EOF
	}

	if mat.Empty() {
		mat.Close()
		return nil, fmt.Errorf("device %d: captured frame is empty", c.deviceID)
	}

	return &mat, nil
}

// SetFPS sets the frames per second for capture.
// Values less than or equal to 0 are ignored.
func (c *cameraImpl) SetFPS(fps int) {
	if fps <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.fps = fps

	if c.capture != nil {
		c.capture.Set(gocv.VideoCaptureFPS, float64(fps))
	}
}

// FPS returns the current frames per second setting.
func (c *cameraImpl) FPS() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.fps
}

// IsOpen returns true if the camera is currently open and running.
func (c *cameraImpl) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.running
}
