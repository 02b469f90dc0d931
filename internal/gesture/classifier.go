package gesture

import (
	"errors"
	"fmt"
)

// ErrClassification marks a per-frame classifier failure.
var ErrClassification = errors.New("classification failed")

// Classifier maps a feature vector to a symbol.
// Implementations are treated as deterministic and stateless.
type Classifier interface {
	Classify(v Vector) (Symbol, error)
}

// ClassifierFunc adapts a plain function to the Classifier interface.
type ClassifierFunc func(v Vector) (Symbol, error)

// Classify calls f(v).
func (f ClassifierFunc) Classify(v Vector) (Symbol, error) {
	return f(v)
}

// Adapter guards a Classifier: vectors of the wrong length never reach the
// model, and model errors come back wrapped in ErrClassification.
type Adapter struct {
	model Classifier
}

// NewAdapter wraps model.
func NewAdapter(model Classifier) *Adapter {
	return &Adapter{model: model}
}

// Classify checks the length invariant and runs the wrapped model.
func (a *Adapter) Classify(v Vector) (Symbol, error) {
	if len(v) != FeatureLength {
		return "", fmt.Errorf("%w: got %d components, want %d", ErrFeatureLength, len(v), FeatureLength)
	}

	sym, err := a.model.Classify(v)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrClassification, err)
	}
	if sym == "" {
		return "", fmt.Errorf("%w: empty label", ErrClassification)
	}
	return sym, nil
}
