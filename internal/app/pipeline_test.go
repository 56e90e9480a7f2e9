package app

import (
	"image"
	"image/color"
	"testing"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/geometry"
	"github.com/ayusman/mudra/internal/gesture"
)

// squareFrames renders a 100x100 white square sliding right by step pixels
// per frame on a black background.
func squareFrames(t *testing.T, n, step int) []*gocv.Mat {
	t.Helper()

	frames := make([]*gocv.Mat, n)
	for i := range frames {
		m := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), capture.DefaultHeight, capture.DefaultWidth, gocv.MatTypeCV8UC3)
		x := 20 + i*step
		gocv.Rectangle(&m, image.Rect(x, 150, x+100, 250), color.RGBA{R: 255, G: 255, B: 255}, -1)
		frames[i] = &m
	}
	t.Cleanup(func() {
		for _, f := range frames {
			f.Close()
		}
	})
	return frames
}

func TestApp_ProcessFrame(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	a := newTestApp(t, nil)
	if err := a.AddPattern("swipe_right", []geometry.Point{{X: 0, Y: 0}, {X: 100, Y: 0}}, 0); err != nil {
		t.Fatalf("AddPattern() error = %v", err)
	}

	frames := squareFrames(t, gesture.DefaultMinPoints+1, 40)

	// Register the square exactly as the extractor sees it
	c, ok, err := a.contours.Largest(frames[0])
	if err != nil || !ok {
		t.Fatalf("Largest() = %v, %v", ok, err)
	}
	if err := a.AddTemplate("box", c.Points); err != nil {
		t.Fatalf("AddTemplate() error = %v", err)
	}

	var gestureMatch *gesture.Match
	for i, frame := range frames {
		result, err := a.ProcessFrame(frame)
		if err != nil {
			t.Fatalf("ProcessFrame(%d) error = %v", i, err)
		}

		if len(result.Shapes) == 0 || result.Shapes[0].Name != "box" {
			t.Errorf("frame %d: expected the box template, got %+v", i, result.Shapes)
		}

		if i == 0 && result.Tracked {
			t.Error("the first frame only sets the motion baseline")
		}
		if i > 0 && !result.Tracked {
			t.Errorf("frame %d: moving square should be tracked", i)
		}
		if result.Gesture != nil {
			gestureMatch = result.Gesture
		}
	}

	if gestureMatch == nil {
		t.Fatal("a square sliding right should match swipe_right")
	}
	if gestureMatch.Name != "swipe_right" {
		t.Errorf("gesture = %q, want swipe_right", gestureMatch.Name)
	}
}

func TestApp_ProcessFrame_Empty(t *testing.T) {
	a := newTestApp(t, nil)

	if _, err := a.ProcessFrame(nil); err == nil {
		t.Error("expected an error for a nil frame")
	}
}

func TestApp_Pipeline(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	a := newTestApp(t, nil)
	if err := a.AddPattern("swipe_right", []geometry.Point{{X: 0, Y: 0}, {X: 100, Y: 0}}, 0); err != nil {
		t.Fatalf("AddPattern() error = %v", err)
	}

	matches := make(chan gesture.Match, 4)
	a.OnGesture(func(m gesture.Match) { matches <- m })

	cam := capture.NewPlayback(squareFrames(t, gesture.DefaultMinPoints+1, 40), false)
	if err := a.Start(cam); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer a.Stop()

	if err := a.Start(cam); err != nil {
		t.Errorf("second Start() should be a no-op, got %v", err)
	}

	select {
	case <-a.Done():
	case <-time.After(10 * time.Second):
		t.Fatal("pipeline did not finish the stream")
	}

	select {
	case m := <-matches:
		if m.Name != "swipe_right" {
			t.Errorf("gesture = %q, want swipe_right", m.Name)
		}
	default:
		t.Error("expected a gesture match from the stream")
	}

	if cam.FPS() != ActiveFPS {
		t.Errorf("FPS() = %d, want %d while motion continues", cam.FPS(), ActiveFPS)
	}

	a.Stop()
	if cam.IsOpen() {
		t.Error("Stop should close the camera")
	}
}

func TestApp_StartAfterStreamEnds(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	a := newTestApp(t, nil)

	first := capture.NewPlayback(squareFrames(t, 2, 40), false)
	if err := a.Start(first); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	select {
	case <-a.Done():
	case <-time.After(10 * time.Second):
		t.Fatal("pipeline did not finish the first stream")
	}

	second := capture.NewPlayback(squareFrames(t, 2, 40), false)
	if err := a.Start(second); err != nil {
		t.Fatalf("Start() after end of stream error = %v", err)
	}
	defer a.Stop()

	if first.IsOpen() {
		t.Error("the finished camera should be closed")
	}
	if !second.IsOpen() {
		t.Error("Start should open the new camera once the old stream ended")
	}

	select {
	case <-a.Done():
	case <-time.After(10 * time.Second):
		t.Fatal("pipeline did not finish the second stream")
	}
}
