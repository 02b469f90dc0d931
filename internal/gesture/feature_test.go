package gesture

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/signscribe/internal/detector"
)

func randomLandmarks(r *rand.Rand, n int) Landmarks {
	lm := make(Landmarks, n)
	for i := range lm {
		lm[i] = detector.Point2D{X: r.Float64()*2 - 0.5, Y: r.Float64()*2 - 0.5}
	}
	return lm
}

func axisMinima(v Vector) (float64, float64) {
	n := len(v) / 2
	minX, minY := v[0], v[n]
	for i := 1; i < n; i++ {
		minX = min(minX, v[i])
		minY = min(minY, v[n+i])
	}
	return minX, minY
}

func TestNormalize_RejectsWrongLength(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for _, n := range []int{0, 1, 20, 22, 42} {
		v, err := Normalize(randomLandmarks(r, n))
		assert.ErrorIs(t, err, ErrFeatureLength, "landmark count %d", n)
		assert.Nil(t, v, "landmark count %d must not yield a partial vector", n)
	}
}

func TestNormalize_Layout(t *testing.T) {
	lm := make(Landmarks, detector.NumLandmarks)
	for i := range lm {
		lm[i] = detector.Point2D{X: 10 + float64(i), Y: 100 - float64(i)}
	}

	v, err := Normalize(lm)
	require.NoError(t, err)
	require.Len(t, v, FeatureLength)

	// x block first, y block second
	assert.Equal(t, 0.0, v[0])
	assert.Equal(t, 20.0, v[20])
	assert.Equal(t, 20.0, v[21])
	assert.Equal(t, 0.0, v[41])
}

func TestNormalize_AxisMinimumIsZero(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for i := 0; i < 200; i++ {
		v, err := Normalize(randomLandmarks(r, detector.NumLandmarks))
		require.NoError(t, err)

		minX, minY := axisMinima(v)
		assert.Equal(t, 0.0, minX)
		assert.Equal(t, 0.0, minY)

		again, err := Normalize(v.Landmarks())
		require.NoError(t, err)
		assert.Equal(t, v, again, "normalizing twice must be idempotent")
	}
}

func TestNormalize_TranslationInvariant(t *testing.T) {
	hand := detector.OpenPalmLandmarks()
	moved := detector.Translate(hand, 0.25, -0.125)

	a, err := Normalize(hand.XY())
	require.NoError(t, err)
	b, err := Normalize(moved.XY())
	require.NoError(t, err)

	assert.InDeltaSlice(t, a, b, 1e-12)
}

func TestVector_Landmarks(t *testing.T) {
	v := Vector{1, 2, 3, 4}
	assert.Equal(t, Landmarks{{X: 1, Y: 3}, {X: 2, Y: 4}}, v.Landmarks())
}
