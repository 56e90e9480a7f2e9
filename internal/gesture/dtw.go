package gesture

import (
	"math"

	"github.com/ayusman/mudra/internal/geometry"
)

// SimilarityScale is the per-point distance that maps a DTW cost to zero
// similarity. It suits sequences in the unit space produced by Normalize and
// can be tuned for other scales.
var SimilarityScale = 2.0

// DTWDistance calculates the Dynamic Time Warping cost of aligning two paths.
// The cost is the raw accumulated Euclidean distance along the cheapest
// warping path. Returns infinity if either path is empty.
func DTWDistance(path1, path2 []geometry.Point) float64 {
	n := len(path1)
	m := len(path2)

	if n == 0 || m == 0 {
		return math.Inf(1)
	}

	// Create (n+1) x (m+1) cost matrix initialized to infinity
	dtw := make([][]float64, n+1)
	for i := range dtw {
		dtw[i] = make([]float64, m+1)
		for j := range dtw[i] {
			dtw[i][j] = math.Inf(1)
		}
	}
	dtw[0][0] = 0

	for i := 1; i <= n; i++ {
		for j := 1; j <= m; j++ {
			cost := geometry.Distance(path1[i-1], path2[j-1])
			dtw[i][j] = cost + min3(dtw[i-1][j], dtw[i][j-1], dtw[i-1][j-1])
		}
	}

	return dtw[n][m]
}

// Similarity converts the DTW cost between two normalized paths into a score
// where 1 means identical. Scores can fall below 0 for very different paths.
// An empty path scores 0.
func Similarity(path1, path2 []geometry.Point) float64 {
	if len(path1) == 0 || len(path2) == 0 {
		return 0
	}
	return 1 - DTWDistance(path1, path2)/(float64(len(path1))*SimilarityScale)
}

// min3 returns the minimum of three float64 values.
func min3(a, b, c float64) float64 {
	if a <= b && a <= c {
		return a
	}
	if b <= c {
		return b
	}
	return c
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
