// ABOUTME: Headless player driven by the wall clock
// ABOUTME: Stands in for the audio device on machines without one
package output

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/harperreed/lubdub/pkg/audio"
)

// Silent pretends to play a clip, reporting position from a monotonic clock
type Silent struct {
	mu       sync.Mutex
	now      func() time.Time
	duration time.Duration
	loaded   bool
	playing  bool
	loop     bool
	closed   bool
	started  time.Time
	volume   int
	muted    bool
}

// NewSilent creates a headless player
func NewSilent() *Silent {
	return &Silent{now: time.Now, volume: 100}
}

// Load records the clip duration
func (s *Silent) Load(clip *audio.Clip) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if clip == nil || clip.Duration() <= 0 {
		return fmt.Errorf("cannot load empty clip")
	}

	s.duration = clip.Duration()
	s.loaded = true
	s.playing = false
	log.Printf("Loaded clip (silent output): %v", s.duration)
	return nil
}

// Play starts the clock
func (s *Silent) Play(loop bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if !s.loaded {
		return ErrNotLoaded
	}

	s.loop = loop
	s.playing = true
	s.started = s.now()
	return nil
}

// Position returns time since Play, capped at the clip length when not looping
func (s *Silent) Position() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.playing {
		return 0
	}
	elapsed := s.now().Sub(s.started)
	if !s.loop && elapsed > s.duration {
		return s.duration
	}
	return elapsed
}

// Elapsed returns Position so the player can drive a scheduler directly
func (s *Silent) Elapsed() time.Duration {
	return s.Position()
}

// IsBusy reports whether the virtual playback is still running
func (s *Silent) IsBusy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.playing {
		return false
	}
	return s.loop || s.now().Sub(s.started) < s.duration
}

// Close stops playback
func (s *Silent) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playing = false
	s.closed = true
	return nil
}

// SetVolume records the volume (0-100)
func (s *Silent) SetVolume(volume int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if volume < 0 {
		volume = 0
	}
	if volume > 100 {
		volume = 100
	}
	s.volume = volume
}

// SetMuted records mute state
func (s *Silent) SetMuted(muted bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.muted = muted
}

// Volume returns current volume
func (s *Silent) Volume() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.volume
}

// IsMuted returns mute state
func (s *Silent) IsMuted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.muted
}
