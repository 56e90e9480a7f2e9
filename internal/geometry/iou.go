package geometry

import "math"

// IoU returns the intersection-over-union of two axis-aligned rectangles.
// Disjoint rectangles and a zero union both score 0.
func IoU(r1, r2 Rect) float64 {
	ix := math.Min(r1.MaxX, r2.MaxX) - math.Max(r1.MinX, r2.MinX)
	iy := math.Min(r1.MaxY, r2.MaxY) - math.Max(r1.MinY, r2.MinY)
	if ix < 0 || iy < 0 {
		return 0
	}

	inter := ix * iy
	union := r1.Area() + r2.Area() - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

// BoundsIoU reduces both point sets to their bounding boxes and returns
// their IoU. This undercounts overlap for concave shapes; it is not a
// polygon intersection.
func BoundsIoU(a, b []Point) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	return IoU(Bounds(a), Bounds(b))
}
