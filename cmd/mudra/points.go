package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/ayusman/mudra/internal/geometry"
	"github.com/ayusman/mudra/internal/gesture"
)

// readPoints loads a point file. Accepted layouts are a bare array of
// {"x","y"} objects, an array of [x, y] pairs, or a recorded sample
// object {"path": [...], "timestamp": ...}.
func readPoints(path string) ([]geometry.Point, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	points, err := parsePoints(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return points, nil
}

func parsePoints(data []byte) ([]geometry.Point, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("empty point file")
	}

	if data[0] == '{' {
		var sample gesture.Sample
		if err := json.Unmarshal(data, &sample); err != nil {
			return nil, fmt.Errorf("failed to parse sample: %w", err)
		}
		if len(sample.Path) == 0 {
			return nil, fmt.Errorf("sample object has no \"path\" points")
		}
		return sample.Path, nil
	}

	var points []geometry.Point
	if err := json.Unmarshal(data, &points); err == nil {
		return points, nil
	}

	var pairs [][2]float64
	if err := json.Unmarshal(data, &pairs); err != nil {
		return nil, fmt.Errorf("expected an array of points or [x, y] pairs: %w", err)
	}
	points = make([]geometry.Point, len(pairs))
	for i, pair := range pairs {
		points[i] = geometry.Pt(pair[0], pair[1])
	}
	return points, nil
}

// printJSON writes v to stdout as indented JSON.
func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
