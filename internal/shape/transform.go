package shape

import (
	"math"

	"github.com/ayusman/mudra/internal/geometry"
)

// NormalizedRadius is the distance of the farthest contour point from the
// centroid after normalization.
const NormalizedRadius = 100

// normalizeContour centers points on their centroid and scales them so the
// farthest point lies at NormalizedRadius. A contour with every point on
// the centroid is only centered.
func normalizeContour(points []geometry.Point, quantize bool) []geometry.Point {
	c := geometry.Centroid(points)

	normalized := make([]geometry.Point, len(points))
	var maxDist float64
	for i, p := range points {
		normalized[i] = geometry.Point{X: p.X - c.X, Y: p.Y - c.Y}
		maxDist = math.Max(maxDist, math.Hypot(normalized[i].X, normalized[i].Y))
	}

	if maxDist > 0 {
		for i := range normalized {
			normalized[i].X = normalized[i].X * NormalizedRadius / maxDist
			normalized[i].Y = normalized[i].Y * NormalizedRadius / maxDist
		}
	}

	if quantize {
		roundPoints(normalized)
	}
	return normalized
}

// rotate turns points about the origin by angle radians.
func rotate(points []geometry.Point, angle float64, quantize bool) []geometry.Point {
	sin, cos := math.Sincos(angle)

	rotated := make([]geometry.Point, len(points))
	for i, p := range points {
		rotated[i] = geometry.Point{
			X: p.X*cos - p.Y*sin,
			Y: p.X*sin + p.Y*cos,
		}
	}

	if quantize {
		roundPoints(rotated)
	}
	return rotated
}

// scale multiplies every coordinate by s.
func scale(points []geometry.Point, s float64, quantize bool) []geometry.Point {
	scaled := make([]geometry.Point, len(points))
	for i, p := range points {
		scaled[i] = geometry.Point{X: p.X * s, Y: p.Y * s}
	}

	if quantize {
		roundPoints(scaled)
	}
	return scaled
}

// rescaleFactor averages the per-axis ratios that bring the bounding box of
// points to width x height. Axes with zero extent on either side are left
// out; with none left the factor is 1.
func rescaleFactor(points []geometry.Point, width, height float64) float64 {
	r := geometry.Bounds(points)

	var sum float64
	var n int
	if r.Width() > 0 && width > 0 {
		sum += width / r.Width()
		n++
	}
	if r.Height() > 0 && height > 0 {
		sum += height / r.Height()
		n++
	}

	if n == 0 {
		return 1
	}
	return sum / float64(n)
}

// bestRotation searches angles in [0, 2π) in steps of step and returns the
// one whose rotated points have the largest bounding-box IoU with target.
// Ties keep the smaller angle.
func bestRotation(points, target []geometry.Point, step float64, quantize bool) (angle, iou float64) {
	if step <= 0 {
		return 0, geometry.BoundsIoU(points, target)
	}

	steps := int(math.Ceil(2 * math.Pi / step))
	for k := 0; k < steps; k++ {
		a := float64(k) * step
		if a >= 2*math.Pi {
			break
		}

		v := geometry.BoundsIoU(rotate(points, a, quantize), target)
		if v > iou {
			angle, iou = a, v
		}
	}
	return angle, iou
}

func roundPoints(points []geometry.Point) {
	for i := range points {
		points[i].X = math.Round(points[i].X)
		points[i].Y = math.Round(points[i].Y)
	}
}
