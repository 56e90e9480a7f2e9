package capture

import (
	"image"
	"sort"
	"sync"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"github.com/ayusman/mudra/internal/geometry"
)

// ErrEmptyFrame is returned when a nil or empty frame is passed in.
var ErrEmptyFrame = errors.New("frame is empty")

// ContourConfig holds configuration options for a ContourExtractor.
type ContourConfig struct {
	// Threshold is the binary threshold applied to the grayscale frame.
	// Values <= 0 select Otsu's automatic threshold.
	Threshold float32

	// Invert finds dark shapes on a light background.
	Invert bool

	// MinArea drops contours enclosing fewer pixels than this.
	MinArea float64

	// BlurSize is the Gaussian kernel size; <= 1 disables blurring.
	// Even sizes are rounded up to the next odd size.
	BlurSize int

	// Epsilon simplifies contours with ApproxPolyDP, as a fraction of the
	// contour perimeter. 0 keeps every boundary point.
	Epsilon float64
}

// DefaultContourConfig returns a ContourConfig with sensible default values.
func DefaultContourConfig() ContourConfig {
	return ContourConfig{
		Threshold: 127,
		MinArea:   100,
		BlurSize:  5,
	}
}

// Contour is an outer boundary found in a frame, in pixel coordinates.
type Contour struct {
	Points []geometry.Point
	Area   float64
}

// ContourExtractor finds the outer contours of bright regions in frames.
type ContourExtractor struct {
	mu     sync.Mutex
	config ContourConfig
}

// NewContourExtractor creates a new ContourExtractor with the given configuration.
func NewContourExtractor(config ContourConfig) *ContourExtractor {
	return &ContourExtractor{config: config}
}

// Config returns the current configuration.
func (e *ContourExtractor) Config() ContourConfig {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.config
}

// Extract returns the outer contours of frame whose area reaches MinArea,
// largest first.
//
// Algorithm:
// 1. Convert to grayscale
// 2. Optional Gaussian blur
// 3. Binary threshold (fixed or Otsu, optionally inverted)
// 4. FindContours with external retrieval and simple chain approximation
// 5. Optional polygon simplification
func (e *ContourExtractor) Extract(frame *gocv.Mat) ([]Contour, error) {
	e.mu.Lock()
	cfg := e.config
	e.mu.Unlock()

	if frame == nil || frame.Empty() {
		return nil, ErrEmptyFrame
	}

	gray := gocv.NewMat()
	defer gray.Close()

	if frame.Channels() > 1 {
		gocv.CvtColor(*frame, &gray, gocv.ColorBGRToGray)
	} else {
		frame.CopyTo(&gray)
	}

	if cfg.BlurSize > 1 {
		k := cfg.BlurSize | 1
		gocv.GaussianBlur(gray, &gray, image.Point{X: k, Y: k}, 0, 0, gocv.BorderDefault)
	}

	thresholdType := gocv.ThresholdBinary
	if cfg.Invert {
		thresholdType = gocv.ThresholdBinaryInv
	}
	if cfg.Threshold <= 0 {
		thresholdType |= gocv.ThresholdOtsu
	}

	binary := gocv.NewMat()
	defer binary.Close()
	gocv.Threshold(gray, &binary, cfg.Threshold, 255, thresholdType)

	found := gocv.FindContours(binary, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer found.Close()

	contours := make([]Contour, 0, found.Size())
	for i := 0; i < found.Size(); i++ {
		pv := found.At(i)

		area := gocv.ContourArea(pv)
		if area < cfg.MinArea {
			continue
		}

		var pts []image.Point
		if cfg.Epsilon > 0 {
			approx := gocv.ApproxPolyDP(pv, cfg.Epsilon*gocv.ArcLength(pv, true), true)
			pts = approx.ToPoints()
			approx.Close()
		} else {
			pts = pv.ToPoints()
		}

		contours = append(contours, Contour{
			Points: geometry.FromImagePoints(pts),
			Area:   area,
		})
	}

	sort.SliceStable(contours, func(i, j int) bool {
		return contours[i].Area > contours[j].Area
	})

	return contours, nil
}

// Largest returns the largest contour in frame. The boolean is false when
// no contour reaches MinArea.
func (e *ContourExtractor) Largest(frame *gocv.Mat) (Contour, bool, error) {
	contours, err := e.Extract(frame)
	if err != nil {
		return Contour{}, false, err
	}
	if len(contours) == 0 {
		return Contour{}, false, nil
	}
	return contours[0], true, nil
}
