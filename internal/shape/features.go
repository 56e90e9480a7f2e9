// Package shape recognizes static contours against a library of named
// templates using shape descriptors, moment invariants, a brute-force
// rotation search and bounding-box overlap.
package shape

import (
	"gonum.org/v1/gonum/floats"

	"github.com/ayusman/mudra/internal/geometry"
)

// NumFeatures is the length of every feature vector produced by Extract.
const NumFeatures = 3 + geometry.NumMoments

// Feature vector layout.
const (
	FeatureCircularity = iota
	FeatureCompactness
	FeatureAspectRatio
	FeatureMoment1 // first of the seven moment invariants
)

// Extract builds the descriptor vector
// [circularity, compactness, aspectRatio, I1..I7] from raw, unnormalized
// points. Moments are taken about the points' own centroid, so the vector
// is translation invariant but not scale invariant.
func Extract(points []geometry.Point) []float64 {
	features := make([]float64, 0, NumFeatures)
	features = append(features,
		geometry.Circularity(points),
		geometry.Compactness(points),
		geometry.AspectRatio(points),
	)

	hu := geometry.MomentInvariants(points, geometry.Centroid(points))
	features = append(features, hu[:]...)
	return features
}

// FeatureScore maps the Euclidean distance between two feature vectors to
// 1/(1+d). Vectors of different length score 0.
func FeatureScore(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	return 1 / (1 + floats.Distance(a, b, 2))
}
