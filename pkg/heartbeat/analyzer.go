// ABOUTME: End-to-end heart sound analysis pipeline
// ABOUTME: Runs conditioning, peak extraction and pairing into a loop timeline
package heartbeat

import (
	"fmt"
	"log"
	"strings"
	"time"
)

// Timeline is the result of analysing one audio loop
type Timeline struct {
	Events       []Event
	Peaks        []Peak
	LoopDuration time.Duration
	SampleRate   int
}

// BPM estimates the heart rate from consecutive S1 onsets. It returns 0 when
// fewer than two events were detected.
func (t *Timeline) BPM() float64 {
	if len(t.Events) < 2 {
		return 0
	}
	span := t.Events[len(t.Events)-1].S1 - t.Events[0].S1
	if span <= 0 {
		return 0
	}
	mean := span.Seconds() / float64(len(t.Events)-1)
	return 60.0 / mean
}

// Paired returns how many events have an S2
func (t *Timeline) Paired() int {
	n := 0
	for _, e := range t.Events {
		if e.HasS2 {
			n++
		}
	}
	return n
}

func (t *Timeline) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "loop %.3fs @ %dHz: %d peaks, %d events (%d with S2)",
		t.LoopDuration.Seconds(), t.SampleRate, len(t.Peaks), len(t.Events), t.Paired())
	if bpm := t.BPM(); bpm > 0 {
		fmt.Fprintf(&b, ", ~%.0f bpm", bpm)
	}
	return b.String()
}

// Analyzer runs the detection pipeline with a validated configuration
type Analyzer struct {
	config Config
}

// NewAnalyzer validates config and returns an analyzer
func NewAnalyzer(config Config) (*Analyzer, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Analyzer{config: config}, nil
}

// Config returns the analyzer's configuration
func (a *Analyzer) Config() Config { return a.config }

// Analyze detects S1/S2 events in a mono signal. The whole signal is taken
// to be one loop period.
func (a *Analyzer) Analyze(signal []float64, sampleRate int) (*Timeline, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate: %d", sampleRate)
	}

	loop := time.Duration(float64(len(signal)) / float64(sampleRate) * float64(time.Second))

	sigma := a.config.SigmaFor(sampleRate)
	env := Condition(signal, sampleRate, sigma)
	peaks := ExtractPeaks(env, a.config.peakOptions(sampleRate))
	events := Pair(PeakTimes(peaks), a.config.pairOptions())

	// Keep events inside one loop period
	inLoop := events[:0]
	for _, e := range events {
		if e.S1 >= 0 && e.S1 < loop {
			inLoop = append(inLoop, e)
		}
	}

	timeline := &Timeline{
		Events:       inLoop,
		Peaks:        peaks,
		LoopDuration: loop,
		SampleRate:   sampleRate,
	}

	log.Printf("Analysis complete: sigma=%.2f, %s", sigma, timeline)
	if len(inLoop) == 0 {
		log.Printf("No heartbeat detected (no peaks above threshold)")
	}

	return timeline, nil
}
