package gesture

import (
	"errors"
	"fmt"

	"github.com/ayusman/signscribe/internal/detector"
)

// FeatureLength is the classifier input length: x and y for 21 landmarks.
const FeatureLength = 2 * detector.NumLandmarks

// ErrFeatureLength is returned for landmark sets that do not produce exactly
// FeatureLength components.
var ErrFeatureLength = errors.New("feature vector length mismatch")

// Landmarks is one frame's ordered landmark set.
type Landmarks []detector.Point2D

// Vector is a normalized feature vector: all x components followed by all y components.
type Vector []float64

// Normalize converts landmarks into a translation-invariant feature vector.
//
// Each coordinate has its axis minimum subtracted, so the hand's absolute
// position in the frame does not matter. No scaling or rotation is applied.
// Sets of the wrong size are rejected, never truncated or padded.
func Normalize(lm Landmarks) (Vector, error) {
	if got := 2 * len(lm); got != FeatureLength {
		return nil, fmt.Errorf("%w: got %d components, want %d", ErrFeatureLength, got, FeatureLength)
	}

	minX, minY := lm[0].X, lm[0].Y
	for _, p := range lm[1:] {
		minX = min(minX, p.X)
		minY = min(minY, p.Y)
	}

	n := len(lm)
	v := make(Vector, 2*n)
	for i, p := range lm {
		v[i] = p.X - minX
		v[n+i] = p.Y - minY
	}
	return v, nil
}

// Landmarks converts the vector back into its (x, y) pairs.
func (v Vector) Landmarks() Landmarks {
	n := len(v) / 2
	lm := make(Landmarks, n)
	for i := range lm {
		lm[i] = detector.Point2D{X: v[i], Y: v[n+i]}
	}
	return lm
}
