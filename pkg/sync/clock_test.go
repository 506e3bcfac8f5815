// ABOUTME: Tests for elapsed-time sources
// ABOUTME: Tests wall and manual clocks plus playback clock tracking and outlier handling
package sync

import (
	"testing"
	"time"
)

// simulation drives a playback clock with a fake device and wall clock
type simulation struct {
	base   time.Time
	wall   time.Duration
	device func(wall time.Duration) time.Duration
	clock  *PlaybackClock
}

func newSimulation(device func(time.Duration) time.Duration) *simulation {
	s := &simulation{base: time.Unix(1700000000, 0), device: device}
	s.clock = newPlaybackClock(s, s.now)
	return s
}

func (s *simulation) now() time.Time { return s.base.Add(s.wall) }

func (s *simulation) Position() time.Duration { return s.device(s.wall) }

// run steps wall time to end, calling check after each Elapsed reading
func (s *simulation) run(end, step time.Duration, check func(wall, est time.Duration)) {
	for ; s.wall <= end; s.wall += step {
		est := s.clock.Elapsed()
		if check != nil {
			check(s.wall, est)
		}
	}
}

func abs(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

func TestPlaybackClockExactDevice(t *testing.T) {
	sim := newSimulation(func(w time.Duration) time.Duration { return w })

	sim.run(2*time.Second, 20*time.Millisecond, func(wall, est time.Duration) {
		if est != wall {
			t.Fatalf("at %v: expected %v, got %v", wall, wall, est)
		}
	})

	if q := sim.clock.Quality(); q != QualityGood {
		t.Errorf("expected good quality, got %v", q)
	}
}

func TestPlaybackClockConvergesOnLag(t *testing.T) {
	const lag = 30 * time.Millisecond
	sim := newSimulation(func(w time.Duration) time.Duration {
		if w < lag {
			return 0
		}
		return w - lag
	})

	sim.run(10*time.Second, 20*time.Millisecond, func(wall, est time.Duration) {
		if wall > 5*time.Second {
			if d := abs(est - (wall - lag)); d > 3*time.Millisecond {
				t.Fatalf("at %v: estimate %v is %v from device", wall, est, d)
			}
		}
	})

	if q := sim.clock.Quality(); q != QualityGood {
		t.Errorf("expected good quality after convergence, got %v", q)
	}
}

func TestPlaybackClockTracksDrift(t *testing.T) {
	// Device clock runs 1% fast
	sim := newSimulation(func(w time.Duration) time.Duration { return w + w/100 })

	sim.run(10*time.Second, 20*time.Millisecond, func(wall, est time.Duration) {
		if wall > 5*time.Second {
			if d := abs(est - (wall + wall/100)); d > time.Millisecond {
				t.Fatalf("at %v: estimate %v is %v from device", wall, est, d)
			}
		}
	})

	_, drift, _ := sim.clock.Stats()
	if drift < 0.009 || drift > 0.011 {
		t.Errorf("expected drift near 0.01, got %f", drift)
	}
}

func TestPlaybackClockRejectsJumps(t *testing.T) {
	jumped := false
	sim := newSimulation(func(w time.Duration) time.Duration {
		if jumped {
			return w - 200*time.Millisecond
		}
		return w
	})

	sim.run(2*time.Second, 20*time.Millisecond, nil)
	before := sim.clock.Elapsed()

	jumped = true
	sim.wall += 100 * time.Millisecond
	after := sim.clock.Elapsed()

	if after < before {
		t.Errorf("expected clock to never go backwards: %v then %v", before, after)
	}
	if abs(after-sim.wall) > time.Millisecond {
		t.Errorf("expected outlier to be ignored, got %v at wall %v", after, sim.wall)
	}
	if q := sim.clock.Quality(); q != QualityDegraded {
		t.Errorf("expected degraded quality after a jump, got %v", q)
	}

	// Readings stay rejected until they go stale
	sim.run(9*time.Second, 20*time.Millisecond, nil)
	if q := sim.clock.Quality(); q != QualityLost {
		t.Errorf("expected lost quality, got %v", q)
	}
}

func TestPlaybackClockMonotonic(t *testing.T) {
	// Device position stalls and then catches up in one chunk
	sim := newSimulation(func(w time.Duration) time.Duration {
		return w / (40 * time.Millisecond) * (40 * time.Millisecond)
	})

	var last time.Duration
	sim.run(3*time.Second, 10*time.Millisecond, func(wall, est time.Duration) {
		if est < last {
			t.Fatalf("at %v: estimate went backwards from %v to %v", wall, last, est)
		}
		last = est
	})
}

func TestWallClock(t *testing.T) {
	base := time.Unix(1700000000, 0)
	current := base

	c := &WallClock{now: func() time.Time { return current }}
	c.Reset()

	current = base.Add(1500 * time.Millisecond)
	if c.Elapsed() != 1500*time.Millisecond {
		t.Errorf("expected 1.5s, got %v", c.Elapsed())
	}

	c.Reset()
	if c.Elapsed() != 0 {
		t.Errorf("expected 0 after reset, got %v", c.Elapsed())
	}

	live := NewWallClock()
	if live.Elapsed() < 0 {
		t.Error("expected non-negative elapsed time")
	}
}

func TestManualClock(t *testing.T) {
	var c ManualClock

	c.Set(2 * time.Second)
	c.Advance(500 * time.Millisecond)

	if c.Elapsed() != 2500*time.Millisecond {
		t.Errorf("expected 2.5s, got %v", c.Elapsed())
	}
}

func TestQualityString(t *testing.T) {
	tests := map[Quality]string{
		QualityGood:     "good",
		QualityDegraded: "degraded",
		QualityLost:     "lost",
	}
	for q, want := range tests {
		if q.String() != want {
			t.Errorf("expected %q, got %q", want, q.String())
		}
	}
}

func TestNewPlaybackClockStartsLost(t *testing.T) {
	c := NewPlaybackClock(&fixedPosition{})
	if c.Quality() != QualityLost {
		t.Errorf("expected lost before first reading, got %v", c.Quality())
	}
}

// fixedPosition is a constant position source
type fixedPosition struct {
	Pos time.Duration
}

func (m *fixedPosition) Position() time.Duration { return m.Pos }
