package capture

import (
	"errors"
	"image"
	"image/color"
	"math"
	"testing"

	"gocv.io/x/gocv"

	"github.com/ayusman/mudra/internal/geometry"
)

var white = color.RGBA{R: 255, G: 255, B: 255, A: 0}

// blankFrame returns a black 640x480 BGR frame.
func blankFrame() gocv.Mat {
	return gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), DefaultHeight, DefaultWidth, gocv.MatTypeCV8UC3)
}

func TestDefaultContourConfig(t *testing.T) {
	cfg := DefaultContourConfig()

	if cfg.Threshold != 127 {
		t.Errorf("Threshold = %f, want 127", cfg.Threshold)
	}
	if cfg.MinArea != 100 {
		t.Errorf("MinArea = %f, want 100", cfg.MinArea)
	}
	if cfg.BlurSize != 5 {
		t.Errorf("BlurSize = %d, want 5", cfg.BlurSize)
	}
	if cfg.Invert || cfg.Epsilon != 0 {
		t.Error("Invert and Epsilon should be off by default")
	}
}

func TestContourExtractor_EmptyFrame(t *testing.T) {
	e := NewContourExtractor(DefaultContourConfig())

	if _, err := e.Extract(nil); !errors.Is(err, ErrEmptyFrame) {
		t.Errorf("Extract(nil) error = %v, want ErrEmptyFrame", err)
	}

	if testing.Short() {
		return
	}
	empty := gocv.NewMat()
	defer empty.Close()
	if _, _, err := e.Largest(&empty); !errors.Is(err, ErrEmptyFrame) {
		t.Errorf("Largest(empty) error = %v, want ErrEmptyFrame", err)
	}
}

func TestContourExtractor_Rectangle(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	frame := blankFrame()
	defer frame.Close()
	gocv.Rectangle(&frame, image.Rect(100, 50, 300, 150), white, -1)

	tests := []struct {
		name   string
		config ContourConfig
	}{
		{name: "default", config: DefaultContourConfig()},
		{name: "no blur", config: ContourConfig{Threshold: 127, MinArea: 100}},
		{name: "otsu", config: ContourConfig{MinArea: 100, BlurSize: 3}},
		{name: "simplified", config: ContourConfig{Threshold: 127, MinArea: 100, BlurSize: 5, Epsilon: 0.02}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewContourExtractor(tt.config)

			c, ok, err := e.Largest(&frame)
			if err != nil {
				t.Fatalf("Largest() error = %v", err)
			}
			if !ok {
				t.Fatal("expected a contour")
			}

			r := geometry.Bounds(c.Points)
			if math.Abs(r.Width()-200) > 3 || math.Abs(r.Height()-100) > 3 {
				t.Errorf("bounds = %.0fx%.0f, want about 200x100", r.Width(), r.Height())
			}
			if math.Abs(c.Area-20000) > 800 {
				t.Errorf("area = %f, want about 20000", c.Area)
			}

			center := geometry.Centroid(c.Points)
			if math.Abs(center.X-200) > 3 || math.Abs(center.Y-100) > 3 {
				t.Errorf("centroid = (%f, %f), want about (200, 100)", center.X, center.Y)
			}
		})
	}
}

func TestContourExtractor_SortsAndFilters(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	frame := blankFrame()
	defer frame.Close()
	gocv.Rectangle(&frame, image.Rect(20, 20, 60, 60), white, -1)    // ~1600 px
	gocv.Rectangle(&frame, image.Rect(200, 200, 400, 400), white, -1) // ~40000 px
	gocv.Rectangle(&frame, image.Rect(500, 20, 504, 24), white, -1)   // noise, below MinArea

	e := NewContourExtractor(ContourConfig{Threshold: 127, MinArea: 100})
	contours, err := e.Extract(&frame)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	if len(contours) != 2 {
		t.Fatalf("got %d contours, want 2", len(contours))
	}
	if contours[0].Area < contours[1].Area {
		t.Error("contours should be sorted largest first")
	}
}

func TestContourExtractor_Inverted(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	frame := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(255, 255, 255, 0), DefaultHeight, DefaultWidth, gocv.MatTypeCV8UC3)
	defer frame.Close()
	gocv.Rectangle(&frame, image.Rect(100, 100, 200, 200), color.RGBA{}, -1)

	cfg := DefaultContourConfig()
	cfg.Invert = true
	c, ok, err := NewContourExtractor(cfg).Largest(&frame)
	if err != nil || !ok {
		t.Fatalf("Largest() = %v, %v", ok, err)
	}

	r := geometry.Bounds(c.Points)
	if math.Abs(r.Width()-100) > 3 {
		t.Errorf("width = %f, want about 100", r.Width())
	}
}

func TestContourExtractor_NothingFound(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	frame := blankFrame()
	defer frame.Close()

	_, ok, err := NewContourExtractor(DefaultContourConfig()).Largest(&frame)
	if err != nil {
		t.Fatalf("Largest() error = %v", err)
	}
	if ok {
		t.Error("a blank frame should have no contours")
	}
}
