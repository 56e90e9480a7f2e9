package geometry

// NumMoments is the number of invariants returned by MomentInvariants.
const NumMoments = 7

// MomentInvariants returns the seven Hu polynomial combinations of the
// central moments of points about centroid.
//
// Central moments are divided by the point count only, not by the
// scale-normalizing power of μ00, so the result is translation invariant
// but not scale invariant. Fewer than three points yield all zeros.
func MomentInvariants(points []Point, centroid Point) [NumMoments]float64 {
	var hu [NumMoments]float64
	if len(points) < 3 {
		return hu
	}

	var mu20, mu02, mu11, mu30, mu03, mu12, mu21 float64
	for _, p := range points {
		x := p.X - centroid.X
		y := p.Y - centroid.Y
		x2 := x * x
		y2 := y * y

		mu20 += x2
		mu02 += y2
		mu11 += x * y
		mu30 += x2 * x
		mu03 += y2 * y
		mu12 += x * y2
		mu21 += x2 * y
	}

	n := float64(len(points))
	mu20 /= n
	mu02 /= n
	mu11 /= n
	mu30 /= n
	mu03 /= n
	mu12 /= n
	mu21 /= n

	// Shared terms of the cubic invariants.
	a := mu30 - 3*mu12
	b := 3*mu21 - mu03
	c := mu30 + mu12
	d := mu21 + mu03

	hu[0] = mu20 + mu02
	hu[1] = (mu20-mu02)*(mu20-mu02) + 4*mu11*mu11
	hu[2] = a*a + b*b
	hu[3] = c*c + d*d
	hu[4] = a*c*(c*c-3*d*d) + b*d*(3*c*c-d*d)
	hu[5] = (mu20-mu02)*(c*c-d*d) + 4*mu11*c*d
	hu[6] = b*c*(c*c-3*d*d) - a*d*(3*c*c-d*d)

	return hu
}
