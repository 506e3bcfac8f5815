// ABOUTME: S1/S2 classification of ordered peak times
// ABOUTME: Greedy one-pass pairing with a look-ahead window and refractory period
package heartbeat

import (
	"fmt"
	"time"
)

// Event is one cardiac cycle: an S1 and, if one was found, its S2.
// Times are offsets from the start of the audio loop.
type Event struct {
	S1    time.Duration
	S2    time.Duration
	HasS2 bool
}

func (e Event) String() string {
	if !e.HasS2 {
		return fmt.Sprintf("S1=%.3fs S2=none", e.S1.Seconds())
	}
	return fmt.Sprintf("S1=%.3fs S2=%.3fs", e.S1.Seconds(), e.S2.Seconds())
}

// PairOptions controls S1/S2 classification
type PairOptions struct {
	// Window is the maximum S1 to S2 distance (inclusive)
	Window time.Duration

	// Cooldown is the refractory period after an accepted S2 during which
	// no new S1 is accepted (inclusive)
	Cooldown time.Duration

	// CooldownAfterUnpaired also starts the refractory period from an S1
	// that found no S2
	CooldownAfterUnpaired bool
}

// DefaultPairOptions returns a 400ms window and 500ms cooldown
func DefaultPairOptions() PairOptions {
	return PairOptions{
		Window:   DefaultPairingWindow,
		Cooldown: DefaultCooldown,
	}
}

// refractory is the state folded through a pairing pass. Nothing is
// blocked until the first refractory period has started.
type refractory struct {
	lastS2 time.Duration
	seen   bool
}

// blocks reports whether t falls inside the refractory period
func (r refractory) blocks(t, cooldown time.Duration) bool {
	return r.seen && t <= r.lastS2+cooldown
}

func (r refractory) startAt(t time.Duration) refractory {
	return refractory{lastS2: t, seen: true}
}

// Pair classifies an increasing sequence of peak times into cardiac events.
//
// Each peak outside the refractory period becomes an S1; the first later
// peak within Window becomes its S2 and restarts the refractory period.
// The pass is greedy and never revisits an assignment. Pair has no hidden
// state: identical inputs always give identical outputs.
func Pair(peaks []time.Duration, opts PairOptions) []Event {
	events := make([]Event, 0, len(peaks)/2+1)
	var state refractory

	for i, t := range peaks {
		if state.blocks(t, opts.Cooldown) {
			continue
		}

		event := Event{S1: t}
		for _, u := range peaks[i+1:] {
			if u > t+opts.Window {
				break
			}
			if u > t {
				event.S2 = u
				event.HasS2 = true
				break
			}
		}

		switch {
		case event.HasS2:
			state = state.startAt(event.S2)
		case opts.CooldownAfterUnpaired:
			state = state.startAt(t)
		}

		events = append(events, event)
	}

	return events
}
