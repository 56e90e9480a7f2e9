// Package gesture recognizes trajectories of 2D points against named
// reference motions using Dynamic Time Warping.
package gesture

import (
	"math"

	"github.com/ayusman/mudra/internal/geometry"
)

// DefaultTolerance is the similarity a trajectory must exceed to match a
// pattern registered without an explicit tolerance.
const DefaultTolerance = 0.2

// Pattern is a named reference motion.
type Pattern struct {
	Name      string           // Unique key in the recognizer
	Raw       []geometry.Point // Points as registered, kept so the pattern can be rebuilt
	Reference []geometry.Point // Normalized reference, exactly ResampleSize points
	Tolerance float64          // Minimum similarity for a match
}

// Match is the result of recognizing a trajectory.
type Match struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"` // 0-1, higher is better
}

// Definition is a raw pattern description used for bootstrapping a
// recognizer or persisting its library.
type Definition struct {
	Name      string           `json:"name"`
	Points    []geometry.Point `json:"points"`
	Tolerance float64          `json:"tolerance"`
}

// DefaultPatterns returns the built-in reference motions: a circle, a
// closed square and a zigzag.
func DefaultPatterns() []Definition {
	circle := make([]geometry.Point, 32)
	for i := range circle {
		angle := float64(i) * 2 * math.Pi / 32
		circle[i] = geometry.Pt(math.Cos(angle)*100, math.Sin(angle)*100)
	}

	square := []geometry.Point{
		{X: 0, Y: 0},
		{X: 100, Y: 0},
		{X: 100, Y: 100},
		{X: 0, Y: 100},
		{X: 0, Y: 0},
	}

	zigzag := make([]geometry.Point, 4)
	for i := range zigzag {
		zigzag[i] = geometry.Pt(float64(i*50), float64((i%2)*100))
	}

	return []Definition{
		{Name: "circle", Points: circle, Tolerance: DefaultTolerance},
		{Name: "square", Points: square, Tolerance: DefaultTolerance},
		{Name: "zigzag", Points: zigzag, Tolerance: DefaultTolerance},
	}
}
