package capture

import (
	"image"
	"sync"

	"gocv.io/x/gocv"

	"github.com/ayusman/mudra/internal/geometry"
)

// Tracking constants
const (
	// GaussianBlurSize is the kernel size for Gaussian blur (21x21)
	GaussianBlurSize = 21
	// DiffThreshold is the binary threshold for difference detection
	DiffThreshold = 25
	// DefaultMotionThreshold is the percentage of changed pixels that counts as motion.
	DefaultMotionThreshold = 1.0
)

// Tracker follows a moving object across consecutive frames and reports the
// centroid of the changed region, one gesture point per frame.
type Tracker struct {
	threshold   float64
	prevGray    gocv.Mat
	initialized bool
	smoother    *Smoother
	mu          sync.Mutex
}

// NewTracker creates a new Tracker with the given motion threshold.
// The threshold is the percentage of pixels that must change for a frame
// to yield a point. For example, a threshold of 1.0 means 1% of pixels.
func NewTracker(threshold float64) *Tracker {
	if threshold <= 0 {
		threshold = DefaultMotionThreshold
	}
	return &Tracker{
		threshold: threshold,
		prevGray:  gocv.NewMat(),
	}
}

// Track compares frame with the previous one. It returns the centroid of
// the changed pixels in frame coordinates, the percentage of pixels that
// changed, and whether that percentage exceeded the threshold.
//
// Algorithm:
// 1. Convert frame to grayscale
// 2. Apply Gaussian blur (21x21) to reduce noise
// 3. If first frame, store as baseline and return false
// 4. Absolute difference with the previous frame, thresholded at 25
// 5. changePercent = non-zero pixels / total pixels
// 6. Centroid from the image moments of the difference mask
func (t *Tracker) Track(frame *gocv.Mat) (geometry.Point, float64, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if frame == nil || frame.Empty() {
		return geometry.Point{}, 0, false
	}

	gray := gocv.NewMat()
	defer gray.Close()

	if frame.Channels() > 1 {
		gocv.CvtColor(*frame, &gray, gocv.ColorBGRToGray)
	} else {
		frame.CopyTo(&gray)
	}

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(gray, &blurred, image.Point{X: GaussianBlurSize, Y: GaussianBlurSize}, 0, 0, gocv.BorderDefault)

	if !t.initialized {
		blurred.CopyTo(&t.prevGray)
		t.initialized = true
		return geometry.Point{}, 0, false
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(blurred, t.prevGray, &diff)

	mask := gocv.NewMat()
	defer mask.Close()
	gocv.Threshold(diff, &mask, DiffThreshold, 255, gocv.ThresholdBinary)

	nonZero := gocv.CountNonZero(mask)
	changePercent := float64(nonZero) / float64(mask.Rows()*mask.Cols()) * 100.0

	blurred.CopyTo(&t.prevGray)

	if changePercent <= t.threshold {
		return geometry.Point{}, changePercent, false
	}

	m := gocv.Moments(mask, true)
	if m["m00"] == 0 {
		return geometry.Point{}, changePercent, false
	}

	p := geometry.Point{X: m["m10"] / m["m00"], Y: m["m01"] / m["m00"]}
	if t.smoother != nil {
		// A filter failure falls back to the raw centroid
		p, _ = t.smoother.Smooth(p)
	}
	return p, changePercent, true
}

// Reset clears the baseline frame so the next frame starts a new track.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.resetLocked()
}

// Close releases resources used by the tracker.
func (t *Tracker) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.prevGray.Close()
	t.initialized = false
}

func (t *Tracker) resetLocked() {
	if !t.prevGray.Empty() {
		t.prevGray.Close()
		t.prevGray = gocv.NewMat()
	}
	t.initialized = false
	if t.smoother != nil {
		t.smoother.Reset()
	}
}

// SetSmoothing enables or disables Kalman smoothing of tracked points.
func (t *Tracker) SetSmoothing(enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !enabled {
		t.smoother = nil
		return
	}
	if t.smoother == nil {
		t.smoother = NewSmoother(1)
	}
}

// Smoothing reports whether tracked points are smoothed.
func (t *Tracker) Smoothing() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.smoother != nil
}

// SetThreshold sets the motion threshold percentage.
// Values less than or equal to 0 are ignored.
func (t *Tracker) SetThreshold(threshold float64) {
	if threshold <= 0 {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.threshold = threshold
}

// Threshold returns the motion threshold percentage.
func (t *Tracker) Threshold() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.threshold
}
