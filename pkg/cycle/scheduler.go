// ABOUTME: Loop-synchronised scheduler for detected heart sound events
// ABOUTME: Maps elapsed playback time onto the loop and fires each event once per cycle
package cycle

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/harperreed/lubdub/pkg/heartbeat"
)

const (
	// DefaultTolerance is the half-width of the firing window around an event
	DefaultTolerance = 100 * time.Millisecond

	// DefaultPollInterval is how often Run samples the elapsed time
	DefaultPollInterval = 20 * time.Millisecond
)

var (
	// ErrInvalidOptions is returned (wrapped) for rejected scheduler settings
	ErrInvalidOptions = errors.New("invalid scheduler options")

	// ErrAlreadyRunning is returned when Run is called on a running scheduler
	ErrAlreadyRunning = errors.New("scheduler already running")

	// ErrStopped is returned when Run is called after Stop
	ErrStopped = errors.New("scheduler stopped")
)

// State is the scheduler lifecycle state
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// ElapsedSource reports time elapsed since playback started. Values may keep
// growing past the loop duration; the scheduler applies the modulo.
type ElapsedSource interface {
	Elapsed() time.Duration
}

// ElapsedFunc adapts a function to ElapsedSource
type ElapsedFunc func() time.Duration

// Elapsed returns f()
func (f ElapsedFunc) Elapsed() time.Duration { return f() }

// Options configures a Scheduler
type Options struct {
	// Tolerance is the half-width of the firing window. It must exceed half
	// the poll interval or events can be stepped over; that misconfiguration
	// is logged, not corrected.
	Tolerance    time.Duration
	PollInterval time.Duration

	// Sink receives notifications; nil discards them
	Sink Sink
}

// Validate rejects non-positive durations
func (o Options) Validate() error {
	if o.Tolerance <= 0 {
		return fmt.Errorf("%w: tolerance must be > 0, got %v", ErrInvalidOptions, o.Tolerance)
	}
	if o.PollInterval <= 0 {
		return fmt.Errorf("%w: poll interval must be > 0, got %v", ErrInvalidOptions, o.PollInterval)
	}
	return nil
}

// firingKey identifies one sound of one event
type firingKey struct {
	event int
	kind  Kind
}

// Stats tracks scheduler activity
type Stats struct {
	Ticks  int64
	Cycles int64
	Fired  int64
	Cycle  int64
	Pos    time.Duration
}

// Scheduler replays an event timeline against a looping clock
type Scheduler struct {
	events []heartbeat.Event
	loop   time.Duration
	opts   Options

	// Owned by the goroutine calling Tick
	cycle int64
	fired map[firingKey]bool

	mu     sync.Mutex
	state  State
	cancel context.CancelFunc
	stats  Stats
}

// NewScheduler creates an idle scheduler for events within one loop of
// length loop. Events outside [0, loop) are rejected.
func NewScheduler(events []heartbeat.Event, loop time.Duration, opts Options) (*Scheduler, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if loop <= 0 {
		return nil, fmt.Errorf("%w: loop duration must be > 0, got %v", ErrInvalidOptions, loop)
	}
	for i, e := range events {
		if e.S1 < 0 || e.S1 >= loop {
			return nil, fmt.Errorf("%w: event %d S1 %v outside loop of %v", ErrInvalidOptions, i, e.S1, loop)
		}
	}

	if 2*opts.Tolerance <= opts.PollInterval {
		log.Printf("Warning: tolerance window %v is not wider than poll interval %v; events may be missed",
			2*opts.Tolerance, opts.PollInterval)
	}

	sink := opts.Sink
	if sink == nil {
		sink = SinkFunc(func(Notification) {})
	}
	opts.Sink = sink

	return &Scheduler{
		events: append([]heartbeat.Event(nil), events...),
		loop:   loop,
		opts:   opts,
		cycle:  -1,
		fired:  make(map[firingKey]bool),
	}, nil
}

// Loop returns the loop duration
func (s *Scheduler) Loop() time.Duration { return s.loop }

// Events returns the scheduled timeline
func (s *Scheduler) Events() []heartbeat.Event { return s.events }

// State returns the lifecycle state
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Stats returns a snapshot of scheduler counters
func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Position splits elapsed time into cycle index and offset within the loop
func (s *Scheduler) Position(elapsed time.Duration) (cycle int64, pos time.Duration) {
	if elapsed < 0 {
		elapsed = 0
	}
	return int64(elapsed / s.loop), elapsed % s.loop
}

// Tick performs one scheduling step at the given elapsed time and returns
// how many notifications fired. Tick is not safe for concurrent use; Run
// calls it from a single goroutine.
func (s *Scheduler) Tick(elapsed time.Duration) int {
	cycle, pos := s.Position(elapsed)

	if cycle != s.cycle {
		s.cycle = cycle
		clear(s.fired)
		if obs, ok := s.opts.Sink.(CycleObserver); ok {
			obs.CycleStarted(cycle)
		}
		s.mu.Lock()
		s.stats.Cycles++
		s.mu.Unlock()
	}

	fired := 0
	for i, e := range s.events {
		if s.tryFire(i, e, KindS1, e.S1, cycle, pos, elapsed) {
			fired++
		}
		if e.HasS2 && s.tryFire(i, e, KindS2, e.S2, cycle, pos, elapsed) {
			fired++
		}
	}

	s.mu.Lock()
	s.stats.Ticks++
	s.stats.Fired += int64(fired)
	s.stats.Cycle = cycle
	s.stats.Pos = pos
	s.mu.Unlock()

	return fired
}

// tryFire emits one sound if it is inside the window and not yet fired
func (s *Scheduler) tryFire(event int, e heartbeat.Event, kind Kind, at time.Duration, cycle int64, pos, elapsed time.Duration) bool {
	key := firingKey{event: event, kind: kind}
	if s.fired[key] {
		return false
	}

	d := pos - at
	if d < 0 {
		d = -d
	}
	if d >= s.opts.Tolerance {
		return false
	}

	s.fired[key] = true
	s.opts.Sink.Notify(Notification{
		Kind:        kind,
		CycleIndex:  cycle,
		TimeInCycle: at,
		EventIndex:  event,
		Elapsed:     elapsed,
		HasS2:       e.HasS2,
	})
	return true
}

// Run moves the scheduler to running and polls src until ctx is cancelled
// or Stop is called. It never returns on its own otherwise.
func (s *Scheduler) Run(ctx context.Context, src ElapsedSource) error {
	s.mu.Lock()
	switch s.state {
	case StateRunning:
		s.mu.Unlock()
		return ErrAlreadyRunning
	case StateStopped:
		s.mu.Unlock()
		return ErrStopped
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.state = StateRunning
	s.mu.Unlock()

	defer func() {
		cancel()
		s.mu.Lock()
		s.state = StateStopped
		s.mu.Unlock()
	}()

	log.Printf("Scheduler running: %d events, loop=%v, tolerance=%v, poll=%v",
		len(s.events), s.loop, s.opts.Tolerance, s.opts.PollInterval)

	ticker := time.NewTicker(s.opts.PollInterval)
	defer ticker.Stop()

	s.Tick(src.Elapsed())

	for {
		select {
		case <-ctx.Done():
			log.Printf("Scheduler stopped")
			return nil
		case <-ticker.C:
			s.Tick(src.Elapsed())
		}
	}
}

// Stop ends a running scheduler at its next poll boundary
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}
	if s.state == StateIdle {
		s.state = StateStopped
	}
}
