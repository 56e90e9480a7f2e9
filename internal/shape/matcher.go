package shape

import (
	"math"
	"sort"
	"sync"

	"github.com/ayusman/mudra/internal/geometry"
)

// MinPoints is the smallest contour Recognize will score.
const MinPoints = 3

// Config holds configuration options for a Matcher.
type Config struct {
	// MinConfidence is the confidence a template must reach to be reported (0.0-1.0).
	MinConfidence float64

	// RotationInvariant enables the brute-force rotation search.
	RotationInvariant bool

	// ScaleInvariant rescales the rotated input to the template's bounding box.
	ScaleInvariant bool

	// AngleStep is the rotation search increment in radians.
	AngleStep float64

	// Quantize rounds normalized, rotated and rescaled points to integer
	// coordinates before the overlap check. Faster to reason about, but
	// introduces up to half a unit of error at the normalized radius of 100.
	Quantize bool
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		MinConfidence:     0.7,
		RotationInvariant: true,
		ScaleInvariant:    true,
		AngleStep:         math.Pi / 36,
		Quantize:          true,
	}
}

// Template is a named reference contour.
type Template struct {
	Name        string
	Contour     []geometry.Point // Points as registered, kept so the template can be rebuilt
	Normalized  []geometry.Point // Centered, farthest point at NormalizedRadius
	Features    []float64        // Extract(Contour)
	Width       float64          // Bounding width of Normalized
	Height      float64          // Bounding height of Normalized
	AspectRatio float64
}

// ObjectMatch is a template recognized in an input contour.
type ObjectMatch struct {
	Name       string         `json:"name"`
	Confidence float64        `json:"confidence"` // 0-1, higher is better
	Position   geometry.Point `json:"position"`   // Centroid of the input
	Width      float64        `json:"width"`      // Bounding width of the input
	Height     float64        `json:"height"`     // Bounding height of the input
	Rotation   float64        `json:"rotation"`   // Best search angle in radians
}

// Matcher matches contours against registered templates. All methods are
// safe for concurrent use; each call holds a single lock for its full
// duration so a scan sees a consistent library.
type Matcher struct {
	mu        sync.Mutex
	config    Config
	templates map[string]*Template
}

// NewMatcher creates a new Matcher with the given configuration.
func NewMatcher(config Config) *Matcher {
	config.MinConfidence = clamp01(config.MinConfidence)
	if config.AngleStep <= 0 {
		config.AngleStep = DefaultConfig().AngleStep
	}
	return &Matcher{
		config:    config,
		templates: make(map[string]*Template),
	}
}

// Config returns the current configuration.
func (m *Matcher) Config() Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.config
}

// SetMinConfidence sets the acceptance threshold, clamped to [0, 1].
func (m *Matcher) SetMinConfidence(confidence float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.config.MinConfidence = clamp01(confidence)
}

// SetRotationInvariant enables or disables the rotation search.
func (m *Matcher) SetRotationInvariant(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.config.RotationInvariant = enabled
}

// SetScaleInvariant enables or disables bounding-box rescaling.
func (m *Matcher) SetScaleInvariant(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.config.ScaleInvariant = enabled
}

// SetAngleStep sets the rotation search increment.
// Values less than or equal to 0 are ignored.
func (m *Matcher) SetAngleStep(step float64) {
	if step <= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.config.AngleStep = step
}

// AddTemplate registers contour under name, replacing any template with the
// same name. Empty contours are ignored.
func (m *Matcher) AddTemplate(name string, contour []geometry.Point) {
	if len(contour) == 0 {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.templates[name] = newTemplate(name, contour, m.config.Quantize)
}

func newTemplate(name string, contour []geometry.Point, quantize bool) *Template {
	raw := make([]geometry.Point, len(contour))
	copy(raw, contour)

	normalized := normalizeContour(raw, quantize)
	r := geometry.Bounds(normalized)

	return &Template{
		Name:        name,
		Contour:     raw,
		Normalized:  normalized,
		Features:    Extract(raw),
		Width:       r.Width(),
		Height:      r.Height(),
		AspectRatio: geometry.AspectRatio(normalized),
	}
}

// RemoveTemplate removes a template by name and reports whether it existed.
func (m *Matcher) RemoveTemplate(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.templates[name]; !ok {
		return false
	}
	delete(m.templates, name)
	return true
}

// Template returns a copy of the named template.
func (m *Matcher) Template(name string) (Template, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.templates[name]
	if !ok {
		return Template{}, false
	}
	return copyTemplate(t), true
}

// Templates returns copies of all registered templates sorted by name.
func (m *Matcher) Templates() []Template {
	m.mu.Lock()
	defer m.mu.Unlock()

	names := m.sortedNamesLocked()
	out := make([]Template, 0, len(names))
	for _, name := range names {
		out = append(out, copyTemplate(m.templates[name]))
	}
	return out
}

// Names returns the registered template names in sorted order.
func (m *Matcher) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sortedNamesLocked()
}

// Recognize scores points against every template and returns the matches
// whose confidence reaches MinConfidence, best first. Several templates can
// match the same contour.
//
// Confidence is the mean of the feature score and the bounding-box IoU of
// the normalized input (after the optional rotation search and rescale)
// with the template. Fewer than MinPoints points yield no matches.
func (m *Matcher) Recognize(points []geometry.Point) []ObjectMatch {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(points) < MinPoints {
		return nil
	}

	cfg := m.config
	inputFeatures := Extract(points)
	normalizedInput := normalizeContour(points, cfg.Quantize)
	position := geometry.Centroid(points)
	bounds := geometry.Bounds(points)

	var matches []ObjectMatch
	for _, name := range m.sortedNamesLocked() {
		t := m.templates[name]

		featureScore := FeatureScore(inputFeatures, t.Features)

		best := normalizedInput
		var rotation float64
		if cfg.RotationInvariant {
			rotation, _ = bestRotation(normalizedInput, t.Normalized, cfg.AngleStep, cfg.Quantize)
			best = rotate(normalizedInput, rotation, cfg.Quantize)
		}

		if cfg.ScaleInvariant {
			best = scale(best, rescaleFactor(best, t.Width, t.Height), cfg.Quantize)
		}

		iou := geometry.BoundsIoU(best, t.Normalized)
		confidence := clamp01((featureScore + iou) / 2)

		if confidence >= cfg.MinConfidence {
			matches = append(matches, ObjectMatch{
				Name:       name,
				Confidence: confidence,
				Position:   position,
				Width:      bounds.Width(),
				Height:     bounds.Height(),
				Rotation:   rotation,
			})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Confidence > matches[j].Confidence
	})

	return matches
}

func (m *Matcher) sortedNamesLocked() []string {
	names := make([]string, 0, len(m.templates))
	for name := range m.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func copyTemplate(t *Template) Template {
	out := *t
	out.Contour = append([]geometry.Point(nil), t.Contour...)
	out.Normalized = append([]geometry.Point(nil), t.Normalized...)
	out.Features = append([]float64(nil), t.Features...)
	return out
}

// clamp01 limits v to the range [0, 1].
func clamp01(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
