package capture

import (
	kalman_filter "github.com/LdDl/kalman-filter"
	"github.com/pkg/errors"

	"github.com/ayusman/mudra/internal/geometry"
)

// Smoother filter props. No control input, so a still object stays still.
const (
	smoothAccelStdDev = 2.0
	smoothMeasStdDev  = 0.1
)

// Smoother damps jitter in tracked points with a constant-velocity Kalman
// filter. The first point after a Reset initializes the filter and is
// returned unchanged.
type Smoother struct {
	dt float64
	kf *kalman_filter.Kalman2D
}

// NewSmoother creates a Smoother for points arriving every dt time units.
// A non-positive dt is treated as 1.
func NewSmoother(dt float64) *Smoother {
	if dt <= 0 {
		dt = 1
	}
	return &Smoother{dt: dt}
}

// Smooth feeds a measured point to the filter and returns the filtered one.
func (s *Smoother) Smooth(p geometry.Point) (geometry.Point, error) {
	if s.kf == nil {
		s.kf = kalman_filter.NewKalman2D(s.dt, 0, 0, smoothAccelStdDev, smoothMeasStdDev, smoothMeasStdDev,
			kalman_filter.WithState2D(p.X, p.Y))
		return p, nil
	}

	s.kf.Predict()
	if err := s.kf.Update(p.X, p.Y); err != nil {
		return p, errors.Wrap(err, "failed to update smoothing filter")
	}
	x, y := s.kf.GetState()
	return geometry.Point{X: x, Y: y}, nil
}

// Reset drops the filter state so the next point starts a new track.
func (s *Smoother) Reset() {
	s.kf = nil
}
