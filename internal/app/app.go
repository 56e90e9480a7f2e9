// Package app wires the gesture recognizer, the shape matcher, the library
// store and the capture pipeline into a single engine.
package app

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/geometry"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/shape"
	"github.com/ayusman/mudra/internal/store"
)

var (
	// ErrInvalidName is returned for empty library names.
	ErrInvalidName = errors.New("name must not be empty")
	// ErrInsufficientPoints is returned when a pattern or template has too few points.
	ErrInsufficientPoints = errors.New("insufficient points")
)

// Config holds configuration options for the application.
type Config struct {
	// Store persists the libraries. Nil keeps everything in memory.
	Store *store.Store

	Gesture gesture.Config
	Shape   shape.Config
	Contour capture.ContourConfig

	// MotionThresh is the percentage of changed pixels that makes a frame
	// yield a tracked point.
	MotionThresh float64

	// Smooth runs tracked points through a Kalman filter before they
	// reach the gesture recognizer.
	Smooth bool

	// ClearOnMatch empties the trajectory buffer after a gesture match so
	// one motion triggers once.
	ClearOnMatch bool

	// SeedDefaults registers the built-in gesture patterns when the
	// gesture library is empty.
	SeedDefaults bool
}

// DefaultConfig returns a Config with sensible default values and no store.
func DefaultConfig() Config {
	return Config{
		Gesture:      gesture.DefaultConfig(),
		Shape:        shape.DefaultConfig(),
		Contour:      capture.DefaultContourConfig(),
		MotionThresh: capture.DefaultMotionThreshold,
		ClearOnMatch: true,
		SeedDefaults: true,
	}
}

// App is the engine that feeds points, contours and frames to the
// recognizers and keeps their libraries in sync with the store.
type App struct {
	config   Config
	gestures *gesture.Recognizer
	shapes   *shape.Matcher
	contours *capture.ContourExtractor
	tracker  *capture.Tracker

	onGesture func(gesture.Match)
	onShapes  func([]shape.ObjectMatch)

	// libMu orders library mutations so the store and the recognizers
	// always hold the same entries.
	libMu sync.Mutex

	mu     sync.RWMutex
	camera capture.Camera
	stopCh chan struct{}
	doneCh chan struct{}
}

// New creates a new App instance with the given configuration.
func New(config Config) *App {
	tracker := capture.NewTracker(config.MotionThresh)
	tracker.SetSmoothing(config.Smooth)

	return &App{
		config:   config,
		gestures: gesture.NewRecognizer(config.Gesture),
		shapes:   shape.NewMatcher(config.Shape),
		contours: capture.NewContourExtractor(config.Contour),
		tracker:  tracker,
	}
}

// Gestures returns the gesture recognizer.
func (a *App) Gestures() *gesture.Recognizer {
	return a.gestures
}

// Shapes returns the shape matcher.
func (a *App) Shapes() *shape.Matcher {
	return a.shapes
}

// OnGesture sets the callback invoked for every gesture match.
func (a *App) OnGesture(fn func(gesture.Match)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onGesture = fn
}

// OnShapes sets the callback invoked for every contour with at least one
// shape match.
func (a *App) OnShapes(fn func([]shape.ObjectMatch)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onShapes = fn
}

// LoadLibraries registers the stored gesture patterns and shape templates.
// With SeedDefaults set and no stored gesture patterns, the built-in
// patterns are registered (and persisted when a store is configured).
func (a *App) LoadLibraries() error {
	a.libMu.Lock()
	defer a.libMu.Unlock()

	if a.config.Store == nil {
		if a.config.SeedDefaults {
			for _, def := range gesture.DefaultPatterns() {
				a.gestures.AddPattern(def.Name, def.Points, def.Tolerance)
			}
		}
		return nil
	}

	entries := a.config.Store.Entries()

	patterns, err := entries.List(store.KindGesture)
	if err != nil {
		return fmt.Errorf("failed to list gesture patterns: %w", err)
	}

	if len(patterns) == 0 && a.config.SeedDefaults {
		for _, def := range gesture.DefaultPatterns() {
			if err := a.addPatternLocked(def.Name, def.Points, def.Tolerance, nil); err != nil {
				return fmt.Errorf("failed to seed pattern %s: %w", def.Name, err)
			}
		}
		log.Printf("Seeded %d built-in gesture patterns", len(gesture.DefaultPatterns()))
	}

	for _, p := range patterns {
		if len(p.Points) == 0 {
			log.Printf("Skipping gesture pattern %s: no points", p.Name)
			continue
		}
		a.gestures.AddPattern(p.Name, p.Points, p.Tolerance)
	}

	templates, err := entries.List(store.KindShape)
	if err != nil {
		return fmt.Errorf("failed to list shape templates: %w", err)
	}
	for _, t := range templates {
		if len(t.Points) < shape.MinPoints {
			log.Printf("Skipping shape template %s: %d points", t.Name, len(t.Points))
			continue
		}
		a.shapes.AddTemplate(t.Name, t.Points)
	}

	log.Printf("Loaded %d gesture patterns and %d shape templates from database",
		len(a.gestures.Names()), len(a.shapes.Names()))
	return nil
}

// AddPattern registers a gesture pattern and persists it, replacing any
// pattern with the same name. A non-positive tolerance selects
// gesture.DefaultTolerance.
func (a *App) AddPattern(name string, points []geometry.Point, tolerance float64) error {
	a.libMu.Lock()
	defer a.libMu.Unlock()
	return a.addPatternLocked(name, points, tolerance, nil)
}

// addPatternLocked persists the pattern with its recorded samples, then
// registers it. Nothing is registered when persisting fails.
func (a *App) addPatternLocked(name string, points []geometry.Point, tolerance float64, samples [][]geometry.Point) error {
	if name == "" {
		return ErrInvalidName
	}
	if len(points) < 2 {
		return fmt.Errorf("pattern %s: %w", name, ErrInsufficientPoints)
	}
	if tolerance <= 0 {
		tolerance = gesture.DefaultTolerance
	}

	if a.config.Store != nil {
		entry := &store.Entry{
			Kind:      store.KindGesture,
			Name:      name,
			Tolerance: tolerance,
			Points:    points,
		}
		if err := a.config.Store.Entries().SaveWithSamples(entry, samples); err != nil {
			return fmt.Errorf("failed to save pattern %s: %w", name, err)
		}
	}

	a.gestures.AddPattern(name, points, tolerance)
	return nil
}

// AddTemplate registers a shape template and persists it, replacing any
// template with the same name.
func (a *App) AddTemplate(name string, contour []geometry.Point) error {
	if name == "" {
		return ErrInvalidName
	}
	if len(contour) < shape.MinPoints {
		return fmt.Errorf("template %s: %w", name, ErrInsufficientPoints)
	}

	a.libMu.Lock()
	defer a.libMu.Unlock()

	if a.config.Store != nil {
		entry := &store.Entry{
			Kind:   store.KindShape,
			Name:   name,
			Points: contour,
		}
		if err := a.config.Store.Entries().Save(entry); err != nil {
			return fmt.Errorf("failed to save template %s: %w", name, err)
		}
	}

	a.shapes.AddTemplate(name, contour)
	return nil
}

// TrainPattern averages recorded samples into a reference path, then
// stores the path and the samples together and registers the pattern.
func (a *App) TrainPattern(name string, samples [][]geometry.Point, tolerance float64) error {
	trainer := gesture.NewTrainer()
	trainer.Size = a.gestures.Config().ResampleSize

	averaged, err := trainer.Train(samples)
	if err != nil {
		return fmt.Errorf("failed to train pattern %s: %w", name, err)
	}

	a.libMu.Lock()
	defer a.libMu.Unlock()

	if err := a.addPatternLocked(name, averaged, tolerance, samples); err != nil {
		return err
	}

	log.Printf("Trained gesture pattern %s from %d samples", name, len(samples))
	return nil
}

// RemovePattern removes a gesture pattern from the recognizer and the store.
func (a *App) RemovePattern(name string) error {
	return a.remove(store.KindGesture, name, a.gestures.RemovePattern)
}

// RemoveTemplate removes a shape template from the matcher and the store.
func (a *App) RemoveTemplate(name string) error {
	return a.remove(store.KindShape, name, a.shapes.RemoveTemplate)
}

func (a *App) remove(kind store.Kind, name string, unregister func(string) bool) error {
	a.libMu.Lock()
	defer a.libMu.Unlock()

	found := false
	if a.config.Store != nil {
		entries := a.config.Store.Entries()
		entry, err := entries.GetByName(kind, name)
		switch {
		case err == nil:
			if err := entries.Delete(entry.ID); err != nil {
				return fmt.Errorf("failed to delete %s %s: %w", kind, name, err)
			}
			found = true
		case !errors.Is(err, store.ErrNotFound):
			return fmt.Errorf("failed to look up %s %s: %w", kind, name, err)
		}
	}

	if unregister(name) {
		found = true
	}
	if !found {
		return fmt.Errorf("%s %s: %w", kind, name, store.ErrNotFound)
	}
	return nil
}

// ProcessPoint appends a tracked point to the trajectory and runs gesture
// recognition. With ClearOnMatch set, a match empties the trajectory.
func (a *App) ProcessPoint(p geometry.Point) (gesture.Match, bool) {
	a.gestures.AddPoint(p)

	match, ok := a.gestures.Recognize()
	if !ok {
		return gesture.Match{}, false
	}

	log.Printf("Gesture matched: %s (confidence: %.3f)", match.Name, match.Confidence)

	if a.config.ClearOnMatch {
		a.gestures.ClearPoints()
	}

	a.mu.RLock()
	fn := a.onGesture
	a.mu.RUnlock()
	if fn != nil {
		fn(match)
	}

	return match, true
}

// ProcessContour runs shape recognition on a full contour.
func (a *App) ProcessContour(contour []geometry.Point) []shape.ObjectMatch {
	matches := a.shapes.Recognize(contour)
	if len(matches) == 0 {
		return nil
	}

	best := matches[0]
	log.Printf("Shape matched: %s (confidence: %.3f, rotation: %.2f)", best.Name, best.Confidence, best.Rotation)

	a.mu.RLock()
	fn := a.onShapes
	a.mu.RUnlock()
	if fn != nil {
		fn(matches)
	}

	return matches
}
