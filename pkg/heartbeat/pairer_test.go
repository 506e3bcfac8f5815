// ABOUTME: Tests for S1/S2 pairing
// ABOUTME: Tests pairing window, refractory period and determinism
package heartbeat

import (
	"reflect"
	"testing"
	"time"
)

func secs(values ...float64) []time.Duration {
	out := make([]time.Duration, len(values))
	for i, v := range values {
		out[i] = time.Duration(v * float64(time.Second))
	}
	return out
}

func paired(s1, s2 float64) Event {
	return Event{
		S1:    time.Duration(s1 * float64(time.Second)),
		S2:    time.Duration(s2 * float64(time.Second)),
		HasS2: true,
	}
}

func unpaired(s1 float64) Event {
	return Event{S1: time.Duration(s1 * float64(time.Second))}
}

func TestPair(t *testing.T) {
	tests := []struct {
		name     string
		peaks    []time.Duration
		opts     PairOptions
		expected []Event
	}{
		{
			name:     "two cycles",
			peaks:    secs(0.0, 0.3, 1.0, 1.25),
			opts:     DefaultPairOptions(),
			expected: []Event{paired(0.0, 0.3), paired(1.0, 1.25)},
		},
		{
			name:     "no s2 within window",
			peaks:    secs(0.0, 0.6),
			opts:     DefaultPairOptions(),
			expected: []Event{unpaired(0.0), unpaired(0.6)},
		},
		{
			name:     "window is inclusive",
			peaks:    secs(0.0, 0.4),
			opts:     DefaultPairOptions(),
			expected: []Event{paired(0.0, 0.4)},
		},
		{
			name:     "cooldown is inclusive",
			peaks:    secs(0.0, 0.3, 0.8),
			opts:     DefaultPairOptions(),
			expected: []Event{paired(0.0, 0.3)},
		},
		{
			name:     "echo inside cooldown skipped",
			peaks:    secs(0.1, 0.35, 0.6, 0.9, 1.2),
			opts:     DefaultPairOptions(),
			expected: []Event{paired(0.1, 0.35), paired(0.9, 1.2)},
		},
		{
			name:     "first s2 candidate wins",
			peaks:    secs(0.0, 0.2, 0.3),
			opts:     DefaultPairOptions(),
			expected: []Event{paired(0.0, 0.2)},
		},
		{
			name:     "peak at zero is accepted",
			peaks:    secs(0.0),
			opts:     DefaultPairOptions(),
			expected: []Event{unpaired(0.0)},
		},
		{
			name:     "empty",
			peaks:    nil,
			opts:     DefaultPairOptions(),
			expected: []Event{},
		},
		{
			name:     "unpaired s1 keeps cooldown open by default",
			peaks:    secs(0.0, 0.45, 0.6),
			opts:     DefaultPairOptions(),
			expected: []Event{unpaired(0.0), paired(0.45, 0.6)},
		},
		{
			name:  "cooldown after unpaired",
			peaks: secs(0.0, 0.45, 0.6),
			opts: PairOptions{
				Window:                400 * time.Millisecond,
				Cooldown:              500 * time.Millisecond,
				CooldownAfterUnpaired: true,
			},
			expected: []Event{unpaired(0.0), unpaired(0.6)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Pair(tt.peaks, tt.opts)
			if !reflect.DeepEqual(result, tt.expected) {
				t.Errorf("expected %v, got %v", tt.expected, result)
			}
		})
	}
}

func TestPairIsDeterministic(t *testing.T) {
	peaks := secs(0.05, 0.31, 0.62, 1.02, 1.30, 1.51, 2.0, 2.41, 2.9)
	opts := DefaultPairOptions()

	first := Pair(peaks, opts)
	for i := 0; i < 5; i++ {
		again := Pair(peaks, opts)
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d differs: %v vs %v", i, first, again)
		}
	}
}

func TestPairDoesNotMutateInput(t *testing.T) {
	peaks := secs(0.0, 0.3, 1.0, 1.25)
	original := append([]time.Duration(nil), peaks...)

	Pair(peaks, DefaultPairOptions())

	if !reflect.DeepEqual(peaks, original) {
		t.Errorf("input modified: %v", peaks)
	}
}

func TestEventString(t *testing.T) {
	if s := paired(0.5, 0.8).String(); s != "S1=0.500s S2=0.800s" {
		t.Errorf("unexpected string %q", s)
	}
	if s := unpaired(1.25).String(); s != "S1=1.250s S2=none" {
		t.Errorf("unexpected string %q", s)
	}
}

func TestRefractory(t *testing.T) {
	const cooldown = 500 * time.Millisecond
	var r refractory

	if r.blocks(0, cooldown) {
		t.Error("fresh state should not block t=0")
	}

	r = r.startAt(300 * time.Millisecond)
	tests := []struct {
		at   time.Duration
		want bool
	}{
		{300 * time.Millisecond, true},
		{800 * time.Millisecond, true},
		{801 * time.Millisecond, false},
	}
	for _, tt := range tests {
		if got := r.blocks(tt.at, cooldown); got != tt.want {
			t.Errorf("blocks(%v) = %v, want %v", tt.at, got, tt.want)
		}
	}
}
