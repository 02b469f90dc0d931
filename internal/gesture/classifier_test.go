package gesture

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/signscribe/internal/detector"
	"github.com/ayusman/signscribe/internal/pyproc"
)

func mustNormalize(t *testing.T, hand detector.HandLandmarks) Vector {
	t.Helper()
	v, err := Normalize(hand.XY())
	require.NoError(t, err)
	return v
}

func TestSymbol_IsControl(t *testing.T) {
	for _, s := range []Symbol{SymbolCommit, SymbolSpace, SymbolBackspace} {
		assert.True(t, s.IsControl(), s)
	}
	for _, s := range []Symbol{"A", "Z", "ok", ""} {
		assert.False(t, s.IsControl(), s)
	}
}

func TestAdapter(t *testing.T) {
	valid := make(Vector, FeatureLength)

	t.Run("passes through the label", func(t *testing.T) {
		a := NewAdapter(ClassifierFunc(func(Vector) (Symbol, error) { return "A", nil }))
		sym, err := a.Classify(valid)
		require.NoError(t, err)
		assert.Equal(t, Symbol("A"), sym)
	})

	t.Run("rejects wrong length without calling the model", func(t *testing.T) {
		called := false
		a := NewAdapter(ClassifierFunc(func(Vector) (Symbol, error) {
			called = true
			return "A", nil
		}))
		_, err := a.Classify(make(Vector, FeatureLength-2))
		assert.ErrorIs(t, err, ErrFeatureLength)
		assert.False(t, called)
	})

	t.Run("wraps model errors", func(t *testing.T) {
		modelErr := errors.New("model exploded")
		a := NewAdapter(ClassifierFunc(func(Vector) (Symbol, error) { return "", modelErr }))
		_, err := a.Classify(valid)
		assert.ErrorIs(t, err, ErrClassification)
		assert.ErrorIs(t, err, modelErr)
	})

	t.Run("empty label is a failure", func(t *testing.T) {
		a := NewAdapter(ClassifierFunc(func(Vector) (Symbol, error) { return "", nil }))
		_, err := a.Classify(valid)
		assert.ErrorIs(t, err, ErrClassification)
	})
}

func TestTemplateClassifier(t *testing.T) {
	fist := mustNormalize(t, detector.ThumbsUpLandmarks())
	palm := mustNormalize(t, detector.OpenPalmLandmarks())

	c := NewTemplateClassifier(0.2)
	c.AddTemplate(&Template{ID: "t-a", Symbol: "A", Features: fist})
	c.AddTemplate(&Template{ID: "t-b", Symbol: "B", Features: palm})
	c.AddTemplate(&Template{ID: "bad", Symbol: "X", Features: Vector{1, 2}})
	require.Equal(t, 2, c.Len(), "short templates must be ignored")

	t.Run("nearest template wins", func(t *testing.T) {
		moved := mustNormalize(t, detector.Translate(detector.ThumbsUpLandmarks(), 0.1, 0.1))
		sym, err := c.Classify(moved)
		require.NoError(t, err)
		assert.Equal(t, Symbol("A"), sym)

		sym, err = c.Classify(palm)
		require.NoError(t, err)
		assert.Equal(t, Symbol("B"), sym)
	})

	t.Run("matches are sorted best first", func(t *testing.T) {
		wide := NewTemplateClassifier(100)
		wide.SetTemplates([]*Template{
			{ID: "t-b", Symbol: "B", Features: palm},
			{ID: "t-a", Symbol: "A", Features: fist},
		})
		matches := wide.Match(fist)
		require.Len(t, matches, 2)
		assert.Equal(t, Symbol("A"), matches[0].Template.Symbol)
		assert.InDelta(t, 1.0, matches[0].Score, 1e-12)
		assert.Greater(t, matches[0].Score, matches[1].Score)
	})

	t.Run("nothing within tolerance", func(t *testing.T) {
		far := make(Vector, FeatureLength)
		for i := range far {
			far[i] = 5
		}
		_, err := c.Classify(far)
		assert.ErrorIs(t, err, ErrNoTemplate)
	})

	t.Run("remove template", func(t *testing.T) {
		c.RemoveTemplate("t-b")
		assert.Equal(t, 1, c.Len())
		_, err := c.Classify(palm)
		assert.ErrorIs(t, err, ErrNoTemplate)
	})
}

func TestProcessClassifier(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping subprocess test in short mode")
	}

	// The fake model labels every request "A" except the third, which errors.
	script := filepath.Join(t.TempDir(), "model.sh")
	body := `n=0
while IFS= read -r line; do
  n=$((n+1))
  if [ "$n" -eq 3 ]; then echo '{"error":"bad input"}'; else echo '{"label":"A"}'; fi
done
`
	require.NoError(t, os.WriteFile(script, []byte(body), 0755))

	c := newProcessClassifier(pyproc.New(pyproc.Config{Python: "sh", Script: script}))
	t.Cleanup(func() { c.Close() })

	v := make(Vector, FeatureLength)
	for i := 0; i < 2; i++ {
		sym, err := c.Classify(v)
		require.NoError(t, err)
		assert.Equal(t, Symbol("A"), sym)
	}

	_, err := c.Classify(v)
	assert.EqualError(t, err, "bad input")

	sym, err := NewAdapter(c).Classify(v)
	require.NoError(t, err)
	assert.Equal(t, Symbol("A"), sym)
}
