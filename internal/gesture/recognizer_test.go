package gesture

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/mudra/internal/geometry"
)

// fakeClock is a manually advanced time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestRecognizer(t *testing.T) (*Recognizer, *fakeClock) {
	t.Helper()

	clock := newFakeClock()
	r := NewRecognizer(DefaultConfig())
	r.SetClock(clock.Now)
	return r, clock
}

// feed adds points one at a time, 20ms apart.
func feed(r *Recognizer, clock *fakeClock, points []geometry.Point) {
	for _, p := range points {
		clock.Advance(20 * time.Millisecond)
		r.AddPoint(p)
	}
}

func TestNewRecognizer_Defaults(t *testing.T) {
	cfg := NewRecognizer(Config{}).Config()

	assert.Equal(t, DefaultConfig(), cfg, "zero config takes defaults")
	assert.Equal(t, 64, cfg.Capacity)
	assert.Equal(t, time.Second, cfg.Timeout)
	assert.Equal(t, 32, cfg.ResampleSize)
	assert.Equal(t, 10, cfg.MinPoints)
}

func TestRecognizer_ReplayReference(t *testing.T) {
	r, clock := newTestRecognizer(t)
	for _, def := range DefaultPatterns() {
		r.AddPattern(def.Name, def.Points, def.Tolerance)
	}

	for _, name := range []string{"circle", "square", "zigzag"} {
		t.Run(name, func(t *testing.T) {
			r.ClearPoints()

			pattern, ok := r.Pattern(name)
			require.True(t, ok, "pattern %q not registered", name)
			require.Len(t, pattern.Reference, DefaultResampleSize)

			feed(r, clock, pattern.Reference)

			match, ok := r.Recognize()
			require.True(t, ok, "replaying the reference should match")
			assert.Equal(t, name, match.Name)
			assert.GreaterOrEqual(t, match.Confidence, 0.9)
			assert.Equal(t, match.Confidence, r.Confidence())
		})
	}
}

func TestRecognizer_SwipeRight(t *testing.T) {
	r, clock := newTestRecognizer(t)
	r.AddPattern("swipe_right", []geometry.Point{{X: 0, Y: 50}, {X: 100, Y: 50}}, DefaultTolerance)

	feed(r, clock, linePoints(10, 0, 50, 10, 0))

	match, ok := r.Recognize()
	require.True(t, ok, "swipe_right should match")
	assert.Equal(t, "swipe_right", match.Name)
	assert.Greater(t, match.Confidence, 0.5)
}

func TestRecognizer_DistinguishesDirection(t *testing.T) {
	r, clock := newTestRecognizer(t)
	r.AddPattern("swipe_right", []geometry.Point{{X: 0, Y: 50}, {X: 100, Y: 50}}, DefaultTolerance)
	r.AddPattern("swipe_left", []geometry.Point{{X: 100, Y: 50}, {X: 0, Y: 50}}, DefaultTolerance)

	// Different scale and offset, same direction
	feed(r, clock, linePoints(12, 500, 300, -7, 0))

	match, ok := r.Recognize()
	require.True(t, ok)
	assert.Equal(t, "swipe_left", match.Name)
}

func TestRecognizer_InsufficientPoints(t *testing.T) {
	r, clock := newTestRecognizer(t)
	r.AddPattern("swipe_right", []geometry.Point{{X: 0, Y: 50}, {X: 100, Y: 50}}, DefaultTolerance)

	feed(r, clock, linePoints(9, 0, 50, 10, 0))

	match, ok := r.Recognize()
	assert.False(t, ok, "9 points matched %+v", match)
}

func TestRecognizer_StationaryTrajectory(t *testing.T) {
	r, clock := newTestRecognizer(t)
	for _, def := range DefaultPatterns() {
		r.AddPattern(def.Name, def.Points, def.Tolerance)
	}

	feed(r, clock, linePoints(12, 5, 5, 0, 0))

	match, ok := r.Recognize()
	assert.False(t, ok, "a trajectory that never moves matched %+v", match)
	assert.Zero(t, r.Confidence())
}

func TestRecognizer_NoPatterns(t *testing.T) {
	r, clock := newTestRecognizer(t)
	feed(r, clock, linePoints(20, 0, 0, 1, 1))

	_, ok := r.Recognize()
	assert.False(t, ok)
	assert.Zero(t, r.Confidence())
}

func TestRecognizer_ToleranceRejects(t *testing.T) {
	r, clock := newTestRecognizer(t)
	// Nothing can exceed a similarity of 1
	r.AddPattern("strict", []geometry.Point{{X: 0, Y: 0}, {X: 100, Y: 100}}, 1)

	feed(r, clock, linePoints(20, 0, 0, 5, 5))

	match, ok := r.Recognize()
	assert.False(t, ok, "tolerance should reject %+v", match)
}

func TestRecognizer_RecognizeKeepsBuffer(t *testing.T) {
	r, clock := newTestRecognizer(t)
	r.AddPattern("swipe_right", []geometry.Point{{X: 0, Y: 50}, {X: 100, Y: 50}}, DefaultTolerance)

	feed(r, clock, linePoints(10, 0, 50, 10, 0))

	_, ok := r.Recognize()
	require.True(t, ok)
	assert.Len(t, r.Points(), 10)

	r.ClearPoints()
	assert.Empty(t, r.Points())
}

func TestRecognizer_Timeout(t *testing.T) {
	r, clock := newTestRecognizer(t)

	first := geometry.Point{X: 1, Y: 1}
	second := geometry.Point{X: 2, Y: 2}

	r.AddPoint(first)
	assert.True(t, r.IsInProgress(), "in progress right after a point")

	clock.Advance(DefaultTimeout + time.Millisecond)
	assert.False(t, r.IsInProgress(), "not in progress after timeout")

	r.AddPoint(second)
	assert.Equal(t, []geometry.Point{second}, r.Points())
}

func TestRecognizer_AddPointAt(t *testing.T) {
	r := NewRecognizer(DefaultConfig())
	start := time.Unix(1000, 0)

	r.AddPointAt(geometry.Point{X: 1}, start)
	r.AddPointAt(geometry.Point{X: 2}, start.Add(DefaultTimeout))

	assert.Len(t, r.Points(), 2, "a gap equal to the timeout must not clear")
	assert.True(t, r.IsInProgressAt(start.Add(2*DefaultTimeout)), "in progress at the timeout boundary")
	assert.False(t, r.IsInProgressAt(start.Add(2*DefaultTimeout+time.Millisecond)), "not in progress past the timeout")
}

func TestRecognizer_Capacity(t *testing.T) {
	r, clock := newTestRecognizer(t)
	r.SetCapacity(5)

	feed(r, clock, linePoints(8, 0, 0, 1, 0))

	// Oldest points are evicted first
	assert.Equal(t, linePoints(5, 3, 0, 1, 0), r.Points())

	r.SetCapacity(2)
	assert.Equal(t, linePoints(2, 6, 0, 1, 0), r.Points(), "SetCapacity trims to the newest points")

	r.SetCapacity(0)
	assert.Equal(t, 2, r.Config().Capacity, "non-positive capacity is ignored")
}

func TestRecognizer_PatternRegistry(t *testing.T) {
	r := NewRecognizer(DefaultConfig())

	r.AddPattern("b", []geometry.Point{{X: 0, Y: 0}, {X: 1, Y: 0}}, 0.3)
	r.AddPattern("a", []geometry.Point{{X: 0, Y: 0}, {X: 0, Y: 1}}, 0)
	r.AddPattern("empty", nil, 0.5)

	require.Equal(t, []string{"a", "b"}, r.Names())

	a, _ := r.Pattern("a")
	assert.Equal(t, DefaultTolerance, a.Tolerance)

	// Re-adding overwrites
	r.AddPattern("b", []geometry.Point{{X: 5, Y: 5}, {X: 9, Y: 9}, {X: 9, Y: 0}}, 0.6)
	b, _ := r.Pattern("b")
	assert.Equal(t, 0.6, b.Tolerance)
	assert.Len(t, b.Raw, 3)
	assert.Len(t, r.Patterns(), 2)

	assert.True(t, r.RemovePattern("a"))
	assert.False(t, r.RemovePattern("a"))
	_, ok := r.Pattern("a")
	assert.False(t, ok)
}

func TestRecognizer_PatternKeepsRawPoints(t *testing.T) {
	r := NewRecognizer(DefaultConfig())

	raw := []geometry.Point{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}}
	r.AddPattern("corner", raw, 0.4)
	raw[0] = geometry.Point{X: 99, Y: 99}

	p, _ := r.Pattern("corner")
	assert.Equal(t, geometry.Point{}, p.Raw[0], "registry owns a copy of the raw points")

	// A pattern rebuilt from its raw points is identical
	r2 := NewRecognizer(DefaultConfig())
	r2.AddPattern(p.Name, p.Raw, p.Tolerance)
	rebuilt, _ := r2.Pattern("corner")
	assert.Equal(t, p.Reference, rebuilt.Reference)
}

func TestRecognizer_SetResampleSize(t *testing.T) {
	r, clock := newTestRecognizer(t)
	r.AddPattern("swipe_right", []geometry.Point{{X: 0, Y: 50}, {X: 100, Y: 50}}, DefaultTolerance)

	r.SetResampleSize(16)
	p, _ := r.Pattern("swipe_right")
	require.Len(t, p.Reference, 16)

	feed(r, clock, linePoints(10, 0, 50, 10, 0))
	match, ok := r.Recognize()
	assert.True(t, ok)
	assert.Equal(t, "swipe_right", match.Name)
}

func TestRecognizer_ConcurrentUse(t *testing.T) {
	r := NewRecognizer(DefaultConfig())
	for _, def := range DefaultPatterns() {
		r.AddPattern(def.Name, def.Points, def.Tolerance)
	}

	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				r.AddPoint(geometry.Point{X: float64(i), Y: float64(g)})
				r.Recognize()
				r.IsInProgress()
			}
		}(g)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 20; i++ {
			r.AddPattern("extra", []geometry.Point{{X: 0, Y: 0}, {X: float64(i + 1), Y: 1}}, 0.5)
			r.RemovePattern("extra")
		}
	}()
	wg.Wait()

	assert.LessOrEqual(t, len(r.Points()), DefaultCapacity)
}
