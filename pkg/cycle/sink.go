// ABOUTME: Notification types and sinks for the cycle scheduler
// ABOUTME: Console, callback, channel and fan-out consumers of S1/S2 events
package cycle

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"
)

// Kind identifies which heart sound a notification is for
type Kind int

const (
	KindS1 Kind = iota + 1
	KindS2
)

func (k Kind) String() string {
	switch k {
	case KindS1:
		return "S1"
	case KindS2:
		return "S2"
	default:
		return "unknown"
	}
}

// Notification is emitted once per event sound per loop cycle
type Notification struct {
	Kind        Kind
	CycleIndex  int64
	TimeInCycle time.Duration // the event's offset within the loop
	EventIndex  int
	Elapsed     time.Duration // elapsed playback time at the firing tick

	// HasS2 reports whether the event was paired with an S2
	HasS2 bool
}

// Sink receives notifications. Notify is called from the scheduling loop
// and must not block.
type Sink interface {
	Notify(n Notification)
}

// CycleObserver is optionally implemented by sinks that want loop boundaries
type CycleObserver interface {
	CycleStarted(index int64)
}

// SinkFunc adapts a function to Sink
type SinkFunc func(Notification)

// Notify calls f(n)
func (f SinkFunc) Notify(n Notification) { f(n) }

// MultiSink fans notifications out to several sinks in order
type MultiSink []Sink

// Notify forwards n to every sink
func (m MultiSink) Notify(n Notification) {
	for _, s := range m {
		s.Notify(n)
	}
}

// CycleStarted forwards boundaries to sinks that observe them
func (m MultiSink) CycleStarted(index int64) {
	for _, s := range m {
		if obs, ok := s.(CycleObserver); ok {
			obs.CycleStarted(index)
		}
	}
}

// WriterSink prints one line per notification, e.g. "S1 detected at 0.512s".
// An S1 without an S2 is marked as such.
type WriterSink struct {
	mu     sync.Mutex
	w      io.Writer
	cycles bool
}

// NewWriterSink writes to w. If cycles is set, loop boundaries are printed too.
func NewWriterSink(w io.Writer, cycles bool) *WriterSink {
	return &WriterSink{w: w, cycles: cycles}
}

// Notify writes the notification line
func (s *WriterSink) Notify(n Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n.Kind == KindS1 && !n.HasS2 {
		fmt.Fprintf(s.w, "%s detected at %.3fs (no S2)\n", n.Kind, n.TimeInCycle.Seconds())
		return
	}
	fmt.Fprintf(s.w, "%s detected at %.3fs\n", n.Kind, n.TimeInCycle.Seconds())
}

// CycleStarted writes a boundary line when enabled
func (s *WriterSink) CycleStarted(index int64) {
	if !s.cycles {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.w, "-- cycle %d --\n", index)
}

// ChanSink delivers notifications on a buffered channel, dropping when full
type ChanSink struct {
	ch      chan Notification
	dropped atomic.Int64
}

// NewChanSink creates a channel sink with the given buffer size
func NewChanSink(size int) *ChanSink {
	return &ChanSink{ch: make(chan Notification, size)}
}

// Notify enqueues n without blocking
func (s *ChanSink) Notify(n Notification) {
	select {
	case s.ch <- n:
	default:
		s.dropped.Add(1)
	}
}

// C returns the receive side of the channel
func (s *ChanSink) C() <-chan Notification { return s.ch }

// Dropped returns how many notifications were discarded because the buffer was full
func (s *ChanSink) Dropped() int64 { return s.dropped.Load() }
