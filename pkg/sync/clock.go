// ABOUTME: Elapsed-time sources for the cycle scheduler
// ABOUTME: Wall clock, manual clock and a drift-compensated playback clock
package sync

import (
	"log"
	"sync"
	"time"
)

// Clock reports elapsed time since playback started
type Clock interface {
	Elapsed() time.Duration
}

// PositionSource reports a (possibly coarse) playback position
type PositionSource interface {
	Position() time.Duration
}

// WallClock measures elapsed time with the monotonic clock
type WallClock struct {
	mu    sync.Mutex
	now   func() time.Time
	start time.Time
}

// NewWallClock creates a clock started now
func NewWallClock() *WallClock {
	c := &WallClock{now: time.Now}
	c.start = c.now()
	return c
}

// Reset restarts the clock at zero
func (c *WallClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.start = c.now()
}

// Elapsed returns time since the clock was started or reset
func (c *WallClock) Elapsed() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now().Sub(c.start)
}

// ManualClock is set explicitly; used by tests and offline replays
type ManualClock struct {
	mu sync.Mutex
	t  time.Duration
}

// Set sets the elapsed time
func (c *ManualClock) Set(t time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

// Advance moves the clock forward by d
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t += d
}

// Elapsed returns the current value
func (c *ManualClock) Elapsed() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

// Quality represents how well the playback clock tracks the device
type Quality int

const (
	QualityGood Quality = iota
	QualityDegraded
	QualityLost
)

func (q Quality) String() string {
	switch q {
	case QualityGood:
		return "good"
	case QualityDegraded:
		return "degraded"
	default:
		return "lost"
	}
}

const (
	// DefaultSampleInterval is the minimum spacing between device readings
	DefaultSampleInterval = 100 * time.Millisecond

	// maxResidual rejects device readings that jump (underrun, seek)
	maxResidual = 50 * time.Millisecond

	// degradedResidual marks tracking as degraded
	degradedResidual = 10 * time.Millisecond

	// staleAfter marks tracking as lost without accepted readings
	staleAfter = 5 * time.Second
)

// PlaybackClock blends a coarse device position with the monotonic clock.
// It tracks the offset between the two and its drift, so the reported time
// advances smoothly while following the audio actually heard.
type PlaybackClock struct {
	mu       sync.Mutex
	device   PositionSource
	now      func() time.Time
	start    time.Time
	interval time.Duration

	offset      time.Duration // device - wall at lastSample
	drift       float64       // offset change per unit wall time
	lastSample  time.Duration // wall elapsed when offset/drift were updated
	lastAccept  time.Time
	residual    time.Duration
	sampleCount int
	gain        float64
	last        time.Duration // last value returned, for monotonicity
	quality     Quality
}

// NewPlaybackClock creates a clock following device, started now
func NewPlaybackClock(device PositionSource) *PlaybackClock {
	return newPlaybackClock(device, time.Now)
}

func newPlaybackClock(device PositionSource, now func() time.Time) *PlaybackClock {
	return &PlaybackClock{
		device:   device,
		now:      now,
		start:    now(),
		interval: DefaultSampleInterval,
		gain:     0.1, // 10% weight to new samples
		quality:  QualityLost,
	}
}

// Elapsed returns the blended playback time. It never decreases.
func (c *PlaybackClock) Elapsed() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	wall := now.Sub(c.start)

	if c.sampleCount == 0 || wall-c.lastSample >= c.interval {
		c.sample(wall, c.device.Position(), now)
	}

	est := wall
	if c.sampleCount > 0 {
		dt := wall - c.lastSample
		est = wall + c.offset + time.Duration(c.drift*float64(dt))
	}
	if est < c.last {
		est = c.last
	}
	c.last = est
	return est
}

// sample folds one device reading into offset and drift; callers hold c.mu
func (c *PlaybackClock) sample(wall, device time.Duration, now time.Time) {
	measured := device - wall

	// First reading: initialize offset, no drift yet
	if c.sampleCount == 0 {
		c.offset = measured
		c.lastSample = wall
		c.lastAccept = now
		c.sampleCount++
		c.quality = QualityGood
		log.Printf("Playback clock locked: offset=%v", c.offset)
		return
	}

	dt := wall - c.lastSample
	if dt <= 0 {
		return
	}

	predicted := c.offset + time.Duration(c.drift*float64(dt))
	residual := measured - predicted
	c.residual = residual

	if residual > maxResidual || residual < -maxResidual {
		if c.sampleCount < 10 {
			log.Printf("Discarding position sample: large residual %v", residual)
		}
		c.lastSample = wall
		c.offset = predicted
		if now.Sub(c.lastAccept) > staleAfter {
			c.quality = QualityLost
		} else {
			c.quality = QualityDegraded
		}
		return
	}

	c.offset = predicted + time.Duration(c.gain*float64(residual))
	c.drift += c.gain * float64(residual) / float64(dt)
	c.lastSample = wall
	c.lastAccept = now
	c.sampleCount++

	if residual < degradedResidual && residual > -degradedResidual {
		c.quality = QualityGood
	} else {
		c.quality = QualityDegraded
	}
}

// Stats returns the current offset, drift and tracking quality
func (c *PlaybackClock) Stats() (offset time.Duration, drift float64, quality Quality) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.offset, c.drift, c.quality
}

// Quality returns tracking quality, degrading to lost when readings go stale
func (c *PlaybackClock) Quality() Quality {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sampleCount > 0 && c.now().Sub(c.lastAccept) > staleAfter {
		c.quality = QualityLost
	}
	return c.quality
}
