package detector

import (
	"slices"
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector is a scripted Detector for tests.
//
// With a sequence set, each Detect call returns the next entry and the last
// entry repeats once the sequence is exhausted. Otherwise the fixed hands are returned.
type MockDetector struct {
	mu       sync.Mutex
	hands    []HandLandmarks
	sequence [][]HandLandmarks
	next     int
	err      error
	calls    int
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetHands sets the hands returned by every Detect call.
func (m *MockDetector) SetHands(hands []HandLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hands = hands
	m.sequence = nil
}

// SetSequence scripts per-call results.
func (m *MockDetector) SetSequence(seq [][]HandLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sequence = seq
	m.next = 0
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns the number of Detect calls so far.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Detect returns the scripted hands or error.
func (m *MockDetector) Detect(frame *gocv.Mat) ([]HandLandmarks, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if len(m.sequence) == 0 {
		return m.hands, nil
	}

	hands := m.sequence[m.next]
	if m.next < len(m.sequence)-1 {
		m.next++
	}
	return hands, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// fingerPose lists the four joints of a finger from MCP to tip.
type fingerPose [4]Point3D

// buildHand assembles a right hand from a wrist and five finger poses
// ordered thumb, index, middle, ring, pinky.
func buildHand(wrist Point3D, fingers [5]fingerPose) HandLandmarks {
	hand := HandLandmarks{Points: make([]Point3D, NumLandmarks), Handedness: "Right", Score: 0.95}
	hand.Points[Wrist] = wrist
	for f, pose := range fingers {
		for j, p := range pose {
			hand.Points[1+f*4+j] = p
		}
	}
	return hand
}

// ThumbsUpLandmarks returns a fist with the thumb extended upward.
// It doubles as the fingerspelled letter A in tests.
func ThumbsUpLandmarks() HandLandmarks {
	return buildHand(Point3D{X: 0.5, Y: 0.8}, [5]fingerPose{
		{{X: 0.55, Y: 0.75}, {X: 0.58, Y: 0.65}, {X: 0.58, Y: 0.50}, {X: 0.58, Y: 0.35}},
		{{X: 0.55, Y: 0.70, Z: -0.02}, {X: 0.55, Y: 0.68, Z: -0.05}, {X: 0.52, Y: 0.70, Z: -0.04}, {X: 0.50, Y: 0.72, Z: -0.02}},
		{{X: 0.50, Y: 0.68, Z: -0.02}, {X: 0.50, Y: 0.66, Z: -0.05}, {X: 0.47, Y: 0.68, Z: -0.04}, {X: 0.45, Y: 0.70, Z: -0.02}},
		{{X: 0.45, Y: 0.70, Z: -0.02}, {X: 0.45, Y: 0.68, Z: -0.05}, {X: 0.42, Y: 0.70, Z: -0.04}, {X: 0.40, Y: 0.72, Z: -0.02}},
		{{X: 0.40, Y: 0.72, Z: -0.02}, {X: 0.40, Y: 0.70, Z: -0.05}, {X: 0.37, Y: 0.72, Z: -0.04}, {X: 0.35, Y: 0.74, Z: -0.02}},
	})
}

// OpenPalmLandmarks returns a hand with all fingers extended.
// It doubles as the fingerspelled letter B in tests.
func OpenPalmLandmarks() HandLandmarks {
	return buildHand(Point3D{X: 0.5, Y: 0.8}, [5]fingerPose{
		{{X: 0.55, Y: 0.75, Z: 0.02}, {X: 0.62, Y: 0.70, Z: 0.03}, {X: 0.68, Y: 0.65, Z: 0.03}, {X: 0.73, Y: 0.60, Z: 0.03}},
		{{X: 0.55, Y: 0.68}, {X: 0.57, Y: 0.55}, {X: 0.58, Y: 0.45}, {X: 0.58, Y: 0.35}},
		{{X: 0.50, Y: 0.66}, {X: 0.50, Y: 0.52}, {X: 0.50, Y: 0.40}, {X: 0.50, Y: 0.28}},
		{{X: 0.45, Y: 0.68}, {X: 0.43, Y: 0.55}, {X: 0.42, Y: 0.45}, {X: 0.42, Y: 0.35}},
		{{X: 0.40, Y: 0.70}, {X: 0.37, Y: 0.60}, {X: 0.35, Y: 0.50}, {X: 0.34, Y: 0.42}},
	})
}

// Translate returns a copy of h shifted by (dx, dy) in the image plane.
func Translate(h HandLandmarks, dx, dy float64) HandLandmarks {
	out := h
	out.Points = slices.Clone(h.Points)
	for i := range out.Points {
		out.Points[i].X += dx
		out.Points[i].Y += dy
	}
	return out
}

// KeepPoints returns a copy of h with only its first n landmarks, for
// simulating an extractor that reports a malformed hand.
func KeepPoints(h HandLandmarks, n int) HandLandmarks {
	out := h
	out.Points = slices.Clone(h.Points[:min(n, len(h.Points))])
	return out
}
