// Package detector provides hand landmark extraction for the recognition pipeline.
package detector

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist        = 0
	ThumbCMC     = 1
	ThumbMCP     = 2
	ThumbIP      = 3
	ThumbTip     = 4
	IndexMCP     = 5
	IndexPIP     = 6
	IndexDIP     = 7
	IndexTip     = 8
	MiddleMCP    = 9
	MiddlePIP    = 10
	MiddleDIP    = 11
	MiddleTip    = 12
	RingMCP      = 13
	RingPIP      = 14
	RingDIP      = 15
	RingTip      = 16
	PinkyMCP     = 17
	PinkyPIP     = 18
	PinkyDIP     = 19
	PinkyTip     = 20
	NumLandmarks = 21
)

// Point3D is a landmark position as reported by the extractor.
// X and Y are normalized image coordinates, Z is relative depth.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Point2D is a landmark position in the image plane.
type Point2D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// HandLandmarks represents the landmarks of one detected hand. A well-formed
// hand has NumLandmarks points; Points keeps whatever count the extractor
// reported so malformed sets can be rejected downstream.
type HandLandmarks struct {
	Points     []Point3D `json:"points"`
	Handedness string    `json:"handedness"` // "Left" or "Right"
	Score      float64   `json:"score"`
}

// XY projects the landmarks onto the image plane, preserving landmark order.
// Depth is discarded; the recognition features are two-dimensional.
func (h *HandLandmarks) XY() []Point2D {
	if h == nil {
		return nil
	}
	points := make([]Point2D, len(h.Points))
	for i, p := range h.Points {
		points[i] = Point2D{X: p.X, Y: p.Y}
	}
	return points
}
