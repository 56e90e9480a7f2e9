package gesture

import (
	"math"

	"github.com/ayusman/mudra/internal/geometry"
)

// DefaultResampleSize is the number of points every normalized trajectory has.
const DefaultResampleSize = 32

// Normalize resamples points to m points by arc length, centers them on the
// origin and scales them so the larger bounding extent is 1.
// The input slice is not modified.
func Normalize(points []geometry.Point, m int) []geometry.Point {
	return ScaleToUnit(Center(Resample(points, m)))
}

// Resample returns exactly m points spaced evenly by arc length along the
// polyline. The first output point is the first input point; rounding
// shortfalls are padded with the last point.
// Empty input or m < 1 yields nil.
func Resample(points []geometry.Point, m int) []geometry.Point {
	if len(points) == 0 || m < 1 {
		return nil
	}

	resampled := make([]geometry.Point, 0, m)
	resampled = append(resampled, points[0])

	if m > 1 {
		interval := geometry.PathLength(points) / float64(m-1)

		// Interpolated points are inserted into the working copy so the next
		// segment is measured from them.
		work := make([]geometry.Point, len(points), len(points)+m)
		copy(work, points)

		var accumulated float64
		for i := 1; i < len(work) && len(resampled) < m; i++ {
			prev := work[i-1]
			segment := geometry.Distance(prev, work[i])

			if interval > 0 && accumulated+segment >= interval {
				t := (interval - accumulated) / segment
				q := geometry.Point{
					X: prev.X + t*(work[i].X-prev.X),
					Y: prev.Y + t*(work[i].Y-prev.Y),
				}
				resampled = append(resampled, q)

				work = append(work, geometry.Point{})
				copy(work[i+1:], work[i:])
				work[i] = q
				accumulated = 0
			} else {
				accumulated += segment
			}
		}
	}

	last := points[len(points)-1]
	for len(resampled) < m {
		resampled = append(resampled, last)
	}

	return resampled
}

// Center translates points so their centroid sits at the origin.
func Center(points []geometry.Point) []geometry.Point {
	if len(points) == 0 {
		return nil
	}

	c := geometry.Centroid(points)
	centered := make([]geometry.Point, len(points))
	for i, p := range points {
		centered[i] = geometry.Point{X: p.X - c.X, Y: p.Y - c.Y}
	}
	return centered
}

// ScaleToUnit divides every coordinate by the larger bounding extent.
// A zero extent leaves the points unscaled.
func ScaleToUnit(points []geometry.Point) []geometry.Point {
	if len(points) == 0 {
		return nil
	}

	r := geometry.Bounds(points)
	scale := math.Max(r.Width(), r.Height())

	scaled := make([]geometry.Point, len(points))
	copy(scaled, points)
	if scale == 0 {
		return scaled
	}

	for i := range scaled {
		scaled[i].X /= scale
		scaled[i].Y /= scale
	}
	return scaled
}
