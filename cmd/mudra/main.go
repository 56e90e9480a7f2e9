package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strconv"
	"syscall"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/geometry"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/shape"
	"github.com/ayusman/mudra/internal/store"
)

const version = "0.1.0"

var (
	dbPath  = flag.String("db", "", "Library database path (default ~/.mudra/mudra.db)")
	noSeed  = flag.Bool("no-seed", false, "Do not register the built-in gesture patterns")
	minConf = flag.Float64("min-confidence", shape.DefaultConfig().MinConfidence, "Shape match acceptance threshold (0-1)")
)

func main() {
	flag.Usage = printUsage
	flag.Parse()

	if flag.NArg() < 1 {
		printUsage()
		os.Exit(1)
	}

	command := flag.Arg(0)
	args := flag.Args()[1:]

	var err error
	switch command {
	case "add-pattern":
		err = handleAddPattern(args)
	case "add-template":
		err = handleAddTemplate(args)
	case "train":
		err = handleTrain(args)
	case "list":
		err = handleList(args)
	case "remove":
		err = handleRemove(args)
	case "gesture":
		err = handleGesture(args)
	case "shape":
		err = handleShape(args)
	case "watch":
		err = handleWatch(args)
	case "migrate":
		err = handleMigrate(args)
	case "version":
		fmt.Printf("mudra version %s\n", version)
	case "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		log.Fatalf("%s: %v", command, err)
	}
}

func printUsage() {
	fmt.Println(`mudra - 2D gesture and shape recognition

Usage: mudra [global flags] <command> [options]

Commands:
  add-pattern   Register a gesture pattern from a point file
  add-template  Register a shape template from a point file or image
  train         Average recorded samples into a gesture pattern
  list          List the stored gesture patterns and shape templates
  remove        Remove a gesture pattern or shape template
  gesture       Recognize a trajectory from a point file
  shape         Recognize a contour from a point file or image
  watch         Track a camera or video and report matches as they happen
  migrate       Manage the library schema (up, down, version)
  version       Show mudra version
  help          Show this help message

Global Flags:
  -db <path>              Library database (default ~/.mudra/mudra.db)
  -no-seed                Do not register the built-in gesture patterns
  -min-confidence <0-1>   Shape match acceptance threshold (default 0.7)

Point files hold a JSON array of {"x": .., "y": ..} objects, an array of
[x, y] pairs, or a recorded sample {"path": [...], "timestamp": ..}.

Examples:
  mudra add-pattern -name swipe_right -points swipe.json
  mudra add-template -name card -image card.png
  mudra train -name wave wave1.json wave2.json wave3.json
  mudra gesture -points trace.json
  mudra shape -image scene.png
  mudra watch -device 0`)
}

// defaultDBPath returns ~/.mudra/mudra.db.
func defaultDBPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".mudra", "mudra.db"), nil
}

func openStore() (*store.Store, error) {
	path := *dbPath
	if path == "" {
		var err error
		if path, err = defaultDBPath(); err != nil {
			return nil, err
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	return store.New(path)
}

// openApp opens the store and loads both libraries into a new engine.
// Optional configure funcs adjust the engine config before it is built.
// The returned cleanup closes the engine and the store.
func openApp(configure ...func(*app.Config)) (*app.App, func(), error) {
	st, err := openStore()
	if err != nil {
		return nil, nil, err
	}

	cfg := app.DefaultConfig()
	cfg.Store = st
	cfg.SeedDefaults = !*noSeed
	cfg.Shape.MinConfidence = *minConf
	for _, fn := range configure {
		fn(&cfg)
	}

	a := app.New(cfg)
	if err := a.LoadLibraries(); err != nil {
		a.Close()
		st.Close()
		return nil, nil, err
	}

	return a, func() {
		a.Close()
		st.Close()
	}, nil
}

func handleAddPattern(args []string) error {
	fs := flag.NewFlagSet("add-pattern", flag.ExitOnError)
	name := fs.String("name", "", "Pattern name (required)")
	pointsPath := fs.String("points", "", "Point file (required)")
	tolerance := fs.Float64("tolerance", gesture.DefaultTolerance, "Minimum similarity for a match")
	fs.Parse(args)

	if *name == "" || *pointsPath == "" {
		fs.Usage()
		return errors.New("-name and -points are required")
	}

	points, err := readPoints(*pointsPath)
	if err != nil {
		return err
	}

	a, cleanup, err := openApp()
	if err != nil {
		return err
	}
	defer cleanup()

	if err := a.AddPattern(*name, points, *tolerance); err != nil {
		return err
	}
	log.Printf("Added gesture pattern %s (%d points)", *name, len(points))
	return nil
}

func handleAddTemplate(args []string) error {
	fs := flag.NewFlagSet("add-template", flag.ExitOnError)
	name := fs.String("name", "", "Template name (required)")
	pointsPath := fs.String("points", "", "Point file")
	imagePath := fs.String("image", "", "Image whose largest contour becomes the template")
	fs.Parse(args)

	if *name == "" || (*pointsPath == "") == (*imagePath == "") {
		fs.Usage()
		return errors.New("-name and exactly one of -points or -image are required")
	}

	contour, err := loadContour(*pointsPath, *imagePath)
	if err != nil {
		return err
	}

	a, cleanup, err := openApp()
	if err != nil {
		return err
	}
	defer cleanup()

	if err := a.AddTemplate(*name, contour); err != nil {
		return err
	}
	log.Printf("Added shape template %s (%d points)", *name, len(contour))
	return nil
}

func handleTrain(args []string) error {
	fs := flag.NewFlagSet("train", flag.ExitOnError)
	name := fs.String("name", "", "Pattern name (required)")
	tolerance := fs.Float64("tolerance", gesture.DefaultTolerance, "Minimum similarity for a match")
	fs.Parse(args)

	if *name == "" || fs.NArg() == 0 {
		fs.Usage()
		return errors.New("-name and at least one sample file are required")
	}

	samples := make([][]geometry.Point, 0, fs.NArg())
	for _, path := range fs.Args() {
		points, err := readPoints(path)
		if err != nil {
			return err
		}
		samples = append(samples, points)
	}

	a, cleanup, err := openApp()
	if err != nil {
		return err
	}
	defer cleanup()

	return a.TrainPattern(*name, samples, *tolerance)
}

func handleList(args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	fs.Parse(args)

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	for _, kind := range []store.Kind{store.KindGesture, store.KindShape} {
		entries, err := st.Entries().List(kind)
		if err != nil {
			return err
		}

		fmt.Printf("%s (%d)\n", kind, len(entries))
		for _, e := range entries {
			line := fmt.Sprintf("  %-20s %4d points", e.Name, len(e.Points))
			if kind == store.KindGesture {
				line += fmt.Sprintf("  tolerance %.2f", e.Tolerance)
			}
			if e.Samples > 0 {
				line += fmt.Sprintf("  %d samples", e.Samples)
			}
			fmt.Println(line)
		}
	}
	return nil
}

func handleRemove(args []string) error {
	fs := flag.NewFlagSet("remove", flag.ExitOnError)
	kind := fs.String("kind", string(store.KindGesture), "Library to remove from: gesture or shape")
	name := fs.String("name", "", "Entry name (required)")
	fs.Parse(args)

	if *name == "" {
		fs.Usage()
		return errors.New("-name is required")
	}

	a, cleanup, err := openApp()
	if err != nil {
		return err
	}
	defer cleanup()

	switch store.Kind(*kind) {
	case store.KindGesture:
		err = a.RemovePattern(*name)
	case store.KindShape:
		err = a.RemoveTemplate(*name)
	default:
		return fmt.Errorf("unknown kind %q", *kind)
	}
	if err != nil {
		return err
	}

	log.Printf("Removed %s %s", *kind, *name)
	return nil
}

func handleGesture(args []string) error {
	fs := flag.NewFlagSet("gesture", flag.ExitOnError)
	pointsPath := fs.String("points", "", "Trajectory point file (required)")
	fs.Parse(args)

	if *pointsPath == "" {
		fs.Usage()
		return errors.New("-points is required")
	}

	points, err := readPoints(*pointsPath)
	if err != nil {
		return err
	}

	a, cleanup, err := openApp()
	if err != nil {
		return err
	}
	defer cleanup()

	// A file is one complete trajectory, so it is recognized as a whole.
	r := a.Gestures()
	for _, p := range points {
		r.AddPoint(p)
	}

	match, ok := r.Recognize()
	if !ok {
		log.Printf("No gesture matched (best confidence %.3f)", r.Confidence())
		return nil
	}
	return printJSON(match)
}

func handleShape(args []string) error {
	fs := flag.NewFlagSet("shape", flag.ExitOnError)
	pointsPath := fs.String("points", "", "Contour point file")
	imagePath := fs.String("image", "", "Image whose contours are recognized")
	fs.Parse(args)

	if (*pointsPath == "") == (*imagePath == "") {
		fs.Usage()
		return errors.New("exactly one of -points or -image is required")
	}

	a, cleanup, err := openApp()
	if err != nil {
		return err
	}
	defer cleanup()

	if *pointsPath != "" {
		points, err := readPoints(*pointsPath)
		if err != nil {
			return err
		}
		return printJSON(a.Shapes().Recognize(points))
	}

	img, err := capture.LoadImage(*imagePath)
	if err != nil {
		return err
	}
	defer img.Close()

	contours, err := capture.NewContourExtractor(capture.DefaultContourConfig()).Extract(&img)
	if err != nil {
		return err
	}

	return printJSON(recognizeContours(a.Shapes(), contours))
}

// recognizeContours matches every contour and orders all matches by
// confidence, best first.
func recognizeContours(m *shape.Matcher, contours []capture.Contour) []shape.ObjectMatch {
	var matches []shape.ObjectMatch
	for _, c := range contours {
		matches = append(matches, m.Recognize(c.Points)...)
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Confidence > matches[j].Confidence
	})
	return matches
}

func handleWatch(args []string) error {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	device := fs.String("device", "0", "Camera device ID")
	video := fs.String("video", "", "Video file to play back instead of a camera")
	motion := fs.Float64("motion", capture.DefaultMotionThreshold, "Percentage of changed pixels that counts as motion")
	smooth := fs.Bool("smooth", false, "Kalman-smooth tracked points")
	fs.Parse(args)

	var camera capture.Camera
	if *video != "" {
		camera = capture.NewVideoFile(*video)
	} else {
		id, err := strconv.Atoi(*device)
		if err != nil {
			return fmt.Errorf("invalid device ID %q: %w", *device, err)
		}
		camera = capture.NewCamera(id)
	}

	engine, cleanup, err := openApp(func(cfg *app.Config) {
		cfg.MotionThresh = *motion
		cfg.Smooth = *smooth
	})
	if err != nil {
		return err
	}
	defer cleanup()

	engine.OnGesture(func(m gesture.Match) {
		printJSON(map[string]interface{}{"gesture": m})
	})
	engine.OnShapes(func(m []shape.ObjectMatch) {
		printJSON(map[string]interface{}{"shapes": m})
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := engine.Start(camera); err != nil {
		return err
	}
	defer engine.Stop()

	select {
	case <-ctx.Done():
		log.Println("Interrupted")
	case <-engine.Done():
	}
	return nil
}

func handleMigrate(args []string) error {
	if len(args) < 1 {
		return errors.New("usage: mudra migrate <up|down|version>")
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	switch args[0] {
	case "up":
		if err := st.MigrateUp(); err != nil {
			return err
		}
	case "down":
		if err := st.MigrateDown(); err != nil {
			return err
		}
	case "version":
	default:
		return fmt.Errorf("unknown migrate action %q", args[0])
	}

	v, dirty, err := st.MigrateVersion()
	if err != nil {
		return err
	}
	fmt.Printf("schema version %d (dirty: %v)\n", v, dirty)
	return nil
}

// loadContour reads a contour from a point file, or takes the largest
// contour found in an image.
func loadContour(pointsPath, imagePath string) ([]geometry.Point, error) {
	if pointsPath != "" {
		return readPoints(pointsPath)
	}

	img, err := capture.LoadImage(imagePath)
	if err != nil {
		return nil, err
	}
	defer img.Close()

	c, ok, err := capture.NewContourExtractor(capture.DefaultContourConfig()).Largest(&img)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("no contour found in %s", imagePath)
	}
	return c.Points, nil
}
