package app

import (
	"errors"
	"fmt"
	"log"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/geometry"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/shape"
)

// Pipeline timing constants.
const (
	// IdleFPS is the frame rate when no motion is detected.
	IdleFPS = 5
	// ActiveFPS is the frame rate while an object is moving.
	ActiveFPS = 15
	// IdleTimeout is how long without motion before switching back to idle mode.
	IdleTimeout = 2 * time.Second
)

// FrameResult is what a single frame produced.
type FrameResult struct {
	Point   geometry.Point // Tracked motion centroid, valid when Tracked
	Tracked bool
	Gesture *gesture.Match
	Shapes  []shape.ObjectMatch
}

// ProcessFrame extracts the largest contour for shape recognition and the
// motion centroid for gesture recognition from one frame.
func (a *App) ProcessFrame(frame *gocv.Mat) (FrameResult, error) {
	var result FrameResult

	contour, ok, err := a.contours.Largest(frame)
	if err != nil {
		return result, fmt.Errorf("failed to extract contour: %w", err)
	}
	if ok {
		result.Shapes = a.ProcessContour(contour.Points)
	}

	p, _, tracked := a.tracker.Track(frame)
	if tracked {
		result.Point = p
		result.Tracked = true
		if match, ok := a.ProcessPoint(p); ok {
			result.Gesture = &match
		}
	}

	return result, nil
}

// Start opens camera and runs the frame pipeline in the background until
// Stop is called or a finite source runs out of frames.
func (a *App) Start(camera capture.Camera) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopCh != nil {
		select {
		case <-a.doneCh:
			// A finite source ran out; release it before starting over.
			a.releaseLocked()
		default:
			return nil
		}
	}

	if err := camera.Open(); err != nil {
		return err
	}
	camera.SetFPS(IdleFPS)

	a.camera = camera
	a.stopCh = make(chan struct{})
	a.doneCh = make(chan struct{})
	go a.runPipeline(camera, a.stopCh, a.doneCh)

	log.Println("Frame pipeline started")
	return nil
}

// Done returns a channel that is closed when the running pipeline exits.
// It returns nil when the pipeline was never started.
func (a *App) Done() <-chan struct{} {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.doneCh
}

// Stop halts the frame pipeline and releases the camera.
func (a *App) Stop() {
	a.mu.Lock()
	stopCh, doneCh, camera := a.stopCh, a.doneCh, a.camera
	a.stopCh = nil
	a.camera = nil
	a.mu.Unlock()

	if stopCh == nil {
		return
	}

	close(stopCh)
	<-doneCh

	if err := camera.Close(); err != nil {
		log.Printf("Error closing camera: %v", err)
	}
	a.tracker.Reset()

	log.Println("Frame pipeline stopped")
}

// releaseLocked tears down a pipeline whose loop has already exited.
func (a *App) releaseLocked() {
	if err := a.camera.Close(); err != nil {
		log.Printf("Error closing camera: %v", err)
	}
	a.tracker.Reset()
	a.camera = nil
	a.stopCh = nil
}

// Close stops the pipeline and releases capture resources.
func (a *App) Close() {
	a.Stop()
	a.tracker.Close()
}

// runPipeline is the frame loop.
//
// Pipeline logic:
// 1. Start in idle mode (IdleFPS)
// 2. A tracked point switches to active mode (ActiveFPS)
// 3. Every frame goes through ProcessFrame
// 4. After IdleTimeout without motion, switch back to idle and drop the trajectory
// 5. A finite source ending stops the loop
func (a *App) runPipeline(camera capture.Camera, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	activeMode := false
	lastMotionTime := time.Now()

	ticker := time.NewTicker(time.Second / time.Duration(IdleFPS))
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			frame, err := camera.ReadFrame()
			if errors.Is(err, capture.ErrEndOfStream) {
				log.Println("End of stream")
				return
			}
			if err != nil {
				log.Printf("Error reading frame: %v", err)
				continue
			}

			result, err := a.ProcessFrame(frame)
			frame.Close()
			if err != nil {
				log.Printf("Error processing frame: %v", err)
				continue
			}

			if result.Tracked {
				lastMotionTime = time.Now()

				if !activeMode {
					activeMode = true
					camera.SetFPS(ActiveFPS)
					ticker.Reset(time.Second / time.Duration(ActiveFPS))
					log.Println("Switched to active mode")
				}
			} else if activeMode && time.Since(lastMotionTime) > IdleTimeout {
				activeMode = false
				camera.SetFPS(IdleFPS)
				ticker.Reset(time.Second / time.Duration(IdleFPS))
				a.gestures.ClearPoints()
				log.Println("Switched to idle mode")
			}
		}
	}
}
