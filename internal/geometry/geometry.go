// Package geometry provides the 2D primitives shared by the gesture and shape
// recognizers: bounding boxes, centroids, polygon area and perimeter, shape
// ratios and Hu-style moment invariants.
//
// Every function is pure and total. Degenerate input (too few points, zero
// extent) yields a neutral value instead of an error.
package geometry

import (
	"image"
	"math"

	"gonum.org/v1/gonum/stat"
)

// Point is a real-valued 2D coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Pt is shorthand for Point{X: x, Y: y}.
func Pt(x, y float64) Point {
	return Point{X: x, Y: y}
}

// FromImagePoint converts an integer sensor coordinate.
func FromImagePoint(p image.Point) Point {
	return Point{X: float64(p.X), Y: float64(p.Y)}
}

// FromImagePoints converts a slice of integer sensor coordinates.
func FromImagePoints(points []image.Point) []Point {
	out := make([]Point, len(points))
	for i, p := range points {
		out[i] = FromImagePoint(p)
	}
	return out
}

// Distance returns the Euclidean distance between a and b.
func Distance(a, b Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// Rect is an axis-aligned rectangle described by its min and max corners.
type Rect struct {
	MinX, MinY float64
	MaxX, MaxY float64
}

// Width returns the horizontal extent.
func (r Rect) Width() float64 { return r.MaxX - r.MinX }

// Height returns the vertical extent.
func (r Rect) Height() float64 { return r.MaxY - r.MinY }

// Area returns Width * Height.
func (r Rect) Area() float64 { return r.Width() * r.Height() }

// Bounds returns the bounding box of points. Empty input yields the zero Rect.
func Bounds(points []Point) Rect {
	if len(points) == 0 {
		return Rect{}
	}

	r := Rect{MinX: points[0].X, MinY: points[0].Y, MaxX: points[0].X, MaxY: points[0].Y}
	for _, p := range points[1:] {
		r.MinX = math.Min(r.MinX, p.X)
		r.MinY = math.Min(r.MinY, p.Y)
		r.MaxX = math.Max(r.MaxX, p.X)
		r.MaxY = math.Max(r.MaxY, p.Y)
	}
	return r
}

// Centroid returns the arithmetic mean position of points, or (0,0) for empty input.
func Centroid(points []Point) Point {
	if len(points) == 0 {
		return Point{}
	}

	xs := make([]float64, len(points))
	ys := make([]float64, len(points))
	for i, p := range points {
		xs[i] = p.X
		ys[i] = p.Y
	}
	return Point{X: stat.Mean(xs, nil), Y: stat.Mean(ys, nil)}
}

// PathLength returns the sum of consecutive segment lengths of an open polyline.
func PathLength(points []Point) float64 {
	var length float64
	for i := 1; i < len(points); i++ {
		length += Distance(points[i-1], points[i])
	}
	return length
}

// Perimeter returns the length of the closed polygon through points.
func Perimeter(points []Point) float64 {
	n := len(points)
	if n < 2 {
		return 0
	}
	return PathLength(points) + Distance(points[n-1], points[0])
}

// Area returns the absolute shoelace area of points treated as a closed polygon.
func Area(points []Point) float64 {
	n := len(points)
	if n < 3 {
		return 0
	}

	var sum float64
	for i := 0; i < n; i++ {
		p1 := points[i]
		p2 := points[(i+1)%n]
		sum += p1.X*p2.Y - p2.X*p1.Y
	}
	return math.Abs(sum) / 2
}

// Circularity returns 4πA/P². A perfect circle scores 1.
// Fewer than three points or a zero perimeter yield 0.
func Circularity(points []Point) float64 {
	if len(points) < 3 {
		return 0
	}

	perimeter := Perimeter(points)
	if perimeter == 0 {
		return 0
	}
	return 4 * math.Pi * Area(points) / (perimeter * perimeter)
}

// Compactness returns the polygon area divided by its bounding box area.
// Fewer than three points or a zero-area bounding box yield 0.
func Compactness(points []Point) float64 {
	if len(points) < 3 {
		return 0
	}

	boxArea := Bounds(points).Area()
	if boxArea == 0 {
		return 0
	}
	return Area(points) / boxArea
}

// AspectRatio returns bounding width over bounding height, or 1 when the
// height is zero.
func AspectRatio(points []Point) float64 {
	r := Bounds(points)
	if r.Height() == 0 {
		return 1.0
	}
	return r.Width() / r.Height()
}
