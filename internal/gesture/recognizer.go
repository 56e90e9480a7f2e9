package gesture

import (
	"sort"
	"sync"
	"time"

	"github.com/ayusman/mudra/internal/geometry"
)

// Recognizer defaults.
const (
	// DefaultCapacity is the maximum number of buffered trajectory points.
	DefaultCapacity = 64
	// DefaultTimeout is the idle gap after which a trajectory is discarded.
	DefaultTimeout = 1000 * time.Millisecond
	// DefaultMinPoints is the number of buffered points Recognize requires.
	DefaultMinPoints = 10
)

// Config holds configuration options for a Recognizer.
type Config struct {
	// Capacity is the trajectory buffer size; the oldest point is evicted first.
	Capacity int

	// Timeout clears the buffer when the gap between two points exceeds it.
	Timeout time.Duration

	// ResampleSize is the point count of every normalized trajectory.
	ResampleSize int

	// MinPoints is the minimum buffer length Recognize will score.
	MinPoints int
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		Capacity:     DefaultCapacity,
		Timeout:      DefaultTimeout,
		ResampleSize: DefaultResampleSize,
		MinPoints:    DefaultMinPoints,
	}
}

// withDefaults fills zero fields from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Capacity <= 0 {
		c.Capacity = d.Capacity
	}
	if c.Timeout <= 0 {
		c.Timeout = d.Timeout
	}
	if c.ResampleSize < 2 {
		c.ResampleSize = d.ResampleSize
	}
	if c.MinPoints <= 0 {
		c.MinPoints = d.MinPoints
	}
	return c
}

// Recognizer buffers a trajectory and matches it against a library of
// patterns. All methods are safe for concurrent use; each call holds a
// single lock for its full duration.
type Recognizer struct {
	mu             sync.Mutex
	config         Config
	now            func() time.Time
	points         []geometry.Point
	lastPointTime  time.Time
	lastConfidence float64
	patterns       map[string]*Pattern
}

// NewRecognizer creates a new Recognizer. Zero config fields take their
// default values.
func NewRecognizer(config Config) *Recognizer {
	config = config.withDefaults()
	return &Recognizer{
		config:   config,
		now:      time.Now,
		points:   make([]geometry.Point, 0, config.Capacity),
		patterns: make(map[string]*Pattern),
	}
}

// SetClock replaces the time source used by AddPoint and IsInProgress.
func (r *Recognizer) SetClock(now func() time.Time) {
	if now == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.now = now
}

// Config returns the current configuration.
func (r *Recognizer) Config() Config {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.config
}

// AddPoint appends p to the trajectory, stamped with the current time.
func (r *Recognizer) AddPoint(p geometry.Point) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.addPointLocked(p, r.now())
}

// AddPointAt appends p to the trajectory using a caller-supplied arrival time.
// A gap longer than the timeout since the previous point discards the
// buffered trajectory first.
func (r *Recognizer) AddPointAt(p geometry.Point, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.addPointLocked(p, at)
}

func (r *Recognizer) addPointLocked(p geometry.Point, at time.Time) {
	if at.Sub(r.lastPointTime) > r.config.Timeout {
		r.points = r.points[:0]
	}
	r.lastPointTime = at

	r.points = append(r.points, p)
	if len(r.points) > r.config.Capacity {
		// Shift buffer left, removing the oldest points
		excess := len(r.points) - r.config.Capacity
		copy(r.points, r.points[excess:])
		r.points = r.points[:r.config.Capacity]
	}
}

// ClearPoints discards the buffered trajectory.
func (r *Recognizer) ClearPoints() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.points = r.points[:0]
}

// Points returns a copy of the buffered trajectory, oldest first.
func (r *Recognizer) Points() []geometry.Point {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]geometry.Point, len(r.points))
	copy(out, r.points)
	return out
}

// IsInProgress reports whether a trajectory is buffered and its last point
// arrived within the timeout.
func (r *Recognizer) IsInProgress() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.inProgressAt(r.now())
}

// IsInProgressAt is IsInProgress evaluated at a caller-supplied time.
func (r *Recognizer) IsInProgressAt(at time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.inProgressAt(at)
}

func (r *Recognizer) inProgressAt(at time.Time) bool {
	return len(r.points) > 0 && at.Sub(r.lastPointTime) <= r.config.Timeout
}

// Recognize matches the buffered trajectory against every registered
// pattern. It returns the pattern with the highest similarity among those
// whose similarity exceeds their own tolerance.
//
// Fewer than MinPoints buffered points, or a trajectory that never moves,
// never match. The buffer is left untouched; callers that want a fresh
// trajectory call ClearPoints.
func (r *Recognizer) Recognize() (Match, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.points) < r.config.MinPoints {
		return Match{}, false
	}

	// A still hand has no shape to compare.
	if geometry.PathLength(r.points) == 0 {
		r.lastConfidence = 0
		return Match{}, false
	}

	normalized := Normalize(r.points, r.config.ResampleSize)

	var best float64
	var bestName string
	for _, name := range r.sortedNamesLocked() {
		p := r.patterns[name]
		// References built for another resample size are not comparable.
		if len(p.Reference) != len(normalized) {
			continue
		}

		similarity := Similarity(normalized, p.Reference)
		if similarity > best && similarity > p.Tolerance {
			best = similarity
			bestName = name
		}
	}

	r.lastConfidence = clamp01(best)
	if bestName == "" {
		return Match{}, false
	}
	return Match{Name: bestName, Confidence: r.lastConfidence}, true
}

// Confidence returns the confidence of the last Recognize call that scored
// a trajectory.
func (r *Recognizer) Confidence() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastConfidence
}

// AddPattern normalizes raw and registers it under name, replacing any
// pattern with the same name. A non-positive tolerance selects
// DefaultTolerance. Empty raw input is ignored.
func (r *Recognizer) AddPattern(name string, raw []geometry.Point, tolerance float64) {
	if len(raw) == 0 {
		return
	}
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}

	stored := make([]geometry.Point, len(raw))
	copy(stored, raw)

	r.mu.Lock()
	defer r.mu.Unlock()

	r.patterns[name] = &Pattern{
		Name:      name,
		Raw:       stored,
		Reference: Normalize(stored, r.config.ResampleSize),
		Tolerance: tolerance,
	}
}

// RemovePattern removes a pattern by name and reports whether it existed.
func (r *Recognizer) RemovePattern(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.patterns[name]; !ok {
		return false
	}
	delete(r.patterns, name)
	return true
}

// Pattern returns a copy of the named pattern.
func (r *Recognizer) Pattern(name string) (Pattern, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.patterns[name]
	if !ok {
		return Pattern{}, false
	}
	return copyPattern(p), true
}

// Patterns returns copies of all registered patterns sorted by name.
func (r *Recognizer) Patterns() []Pattern {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := r.sortedNamesLocked()
	out := make([]Pattern, 0, len(names))
	for _, name := range names {
		out = append(out, copyPattern(r.patterns[name]))
	}
	return out
}

// Names returns the registered pattern names in sorted order.
func (r *Recognizer) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sortedNamesLocked()
}

// SetCapacity changes the buffer size, evicting the oldest points if the
// buffer is already larger. Values less than or equal to 0 are ignored.
func (r *Recognizer) SetCapacity(capacity int) {
	if capacity <= 0 {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.config.Capacity = capacity
	if excess := len(r.points) - capacity; excess > 0 {
		copy(r.points, r.points[excess:])
		r.points = r.points[:capacity]
	}
}

// SetTimeout changes the idle timeout. Values less than or equal to 0 are ignored.
func (r *Recognizer) SetTimeout(timeout time.Duration) {
	if timeout <= 0 {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.config.Timeout = timeout
}

// SetResampleSize changes the normalized point count and rebuilds every
// reference from its raw points. Values below 2 are ignored.
func (r *Recognizer) SetResampleSize(size int) {
	if size < 2 {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.config.ResampleSize = size
	for _, p := range r.patterns {
		p.Reference = Normalize(p.Raw, size)
	}
}

func (r *Recognizer) sortedNamesLocked() []string {
	names := make([]string, 0, len(r.patterns))
	for name := range r.patterns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func copyPattern(p *Pattern) Pattern {
	out := Pattern{Name: p.Name, Tolerance: p.Tolerance}
	out.Raw = append([]geometry.Point(nil), p.Raw...)
	out.Reference = append([]geometry.Point(nil), p.Reference...)
	return out
}
