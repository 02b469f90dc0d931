package gesture

import (
	"errors"
	"math"
	"sort"
	"sync"
)

// DefaultTolerance is the maximum template distance accepted as a match.
const DefaultTolerance = 1.5

// ErrNoTemplate is returned when no template lies within tolerance.
var ErrNoTemplate = errors.New("no template within tolerance")

// Template is a labelled reference feature vector.
type Template struct {
	ID       string // Unique identifier, usually the store row ID
	Symbol   Symbol // Label produced when this template is the nearest match
	Features Vector // Normalized feature vector of length FeatureLength
}

// Match is a candidate template and its distance to the input.
type Match struct {
	Template *Template
	Score    float64 // 1 / (1 + distance), higher is better
	Distance float64 // Euclidean distance between input and template
}

// TemplateClassifier labels a vector with the symbol of its nearest template.
// It is safe for concurrent use; templates can be swapped while classifying.
type TemplateClassifier struct {
	mu        sync.RWMutex
	templates []*Template
	tolerance float64
}

// NewTemplateClassifier creates an empty classifier. A non-positive
// tolerance selects DefaultTolerance.
func NewTemplateClassifier(tolerance float64) *TemplateClassifier {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	return &TemplateClassifier{tolerance: tolerance}
}

// AddTemplate adds a template. Templates with the wrong feature length are ignored.
func (c *TemplateClassifier) AddTemplate(t *Template) {
	if t == nil || len(t.Features) != FeatureLength {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.templates = append(c.templates, t)
}

// RemoveTemplate removes a template by its ID.
func (c *TemplateClassifier) RemoveTemplate(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, t := range c.templates {
		if t.ID == id {
			c.templates = append(c.templates[:i], c.templates[i+1:]...)
			return
		}
	}
}

// SetTemplates replaces the whole template set.
func (c *TemplateClassifier) SetTemplates(templates []*Template) {
	kept := make([]*Template, 0, len(templates))
	for _, t := range templates {
		if t != nil && len(t.Features) == FeatureLength {
			kept = append(kept, t)
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.templates = kept
}

// Len returns the number of loaded templates.
func (c *TemplateClassifier) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.templates)
}

// Match returns templates within tolerance sorted by score, best first.
func (c *TemplateClassifier) Match(v Vector) []Match {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var matches []Match
	for _, t := range c.templates {
		distance := euclideanDistance(v, t.Features)
		if distance > c.tolerance {
			continue
		}
		matches = append(matches, Match{
			Template: t,
			Score:    1.0 / (1.0 + distance),
			Distance: distance,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	return matches
}

// Classify returns the symbol of the nearest template within tolerance.
func (c *TemplateClassifier) Classify(v Vector) (Symbol, error) {
	matches := c.Match(v)
	if len(matches) == 0 {
		return "", ErrNoTemplate
	}
	return matches[0].Template.Symbol, nil
}

// euclideanDistance is the L2 distance over the common prefix of a and b.
func euclideanDistance(a, b Vector) float64 {
	n := min(len(a), len(b))
	var sum float64
	for i := 0; i < n; i++ {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}
