package gesture

import (
	"encoding/json"
	"fmt"

	"github.com/ayusman/mudra/internal/geometry"
)

// Trainer processes recorded samples into pattern reference paths.
type Trainer struct {
	// Size is the point count of the averaged path.
	Size int
}

// NewTrainer creates a new Trainer producing paths of DefaultResampleSize points.
func NewTrainer() *Trainer {
	return &Trainer{Size: DefaultResampleSize}
}

// Sample represents one recorded trajectory.
type Sample struct {
	Path      []geometry.Point `json:"path"`
	Timestamp int64            `json:"timestamp"`
}

// Train averages several recorded paths into a single reference path.
// Every path is resampled by arc length to the same point count so that
// recordings made at different speeds line up point for point.
func (t *Trainer) Train(paths [][]geometry.Point) ([]geometry.Point, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("no samples provided")
	}

	size := t.Size
	if size < 2 {
		size = DefaultResampleSize
	}

	averaged := make([]geometry.Point, size)
	for i, path := range paths {
		if len(path) < 2 {
			return nil, fmt.Errorf("sample %d has insufficient path points", i)
		}

		resampled := Resample(path, size)
		for j := range averaged {
			averaged[j].X += resampled[j].X
			averaged[j].Y += resampled[j].Y
		}
	}

	n := float64(len(paths))
	for j := range averaged {
		averaged[j].X /= n
		averaged[j].Y /= n
	}

	return averaged, nil
}

// TrainJSON decodes recorded samples and averages them with Train.
func (t *Trainer) TrainJSON(samples []json.RawMessage) ([]geometry.Point, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("no samples provided")
	}

	paths := make([][]geometry.Point, 0, len(samples))
	for i, raw := range samples {
		var sample Sample
		if err := json.Unmarshal(raw, &sample); err != nil {
			return nil, fmt.Errorf("failed to parse sample %d: %w", i, err)
		}
		paths = append(paths, sample.Path)
	}

	return t.Train(paths)
}
