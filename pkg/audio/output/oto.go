// ABOUTME: Oto-based looping clip player
// ABOUTME: Plays a clip through the system audio device and tracks playback position
package output

import (
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/harperreed/lubdub/pkg/audio"
	"github.com/harperreed/lubdub/pkg/audio/encode"
)

// loopReader serves PCM bytes to oto, wrapping to the start when looping.
// It counts every byte handed out so position survives wrap-around.
type loopReader struct {
	mu       sync.Mutex
	data     []byte
	pos      int
	loop     bool
	consumed int64
}

func (r *loopReader) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.data) == 0 {
		return 0, io.EOF
	}

	n := 0
	for n < len(p) {
		if r.pos >= len(r.data) {
			if !r.loop {
				break
			}
			r.pos = 0
		}
		c := copy(p[n:], r.data[r.pos:])
		r.pos += c
		n += c
	}

	r.consumed += int64(n)
	if n == 0 {
		return 0, io.EOF
	}
	return n, nil
}

func (r *loopReader) Consumed() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.consumed
}

// Oto plays clips on the default audio device
type Oto struct {
	mu      sync.Mutex
	otoCtx  *oto.Context
	player  *oto.Player
	reader  *loopReader
	pcm     []byte
	format  audio.Format
	volume  int
	muted   bool
	closed  bool
	started time.Time
}

// NewOto creates an unopened Oto player. The device is opened on first Load.
func NewOto() *Oto {
	return &Oto{
		volume: 100,
	}
}

// open creates the oto context; oto allows only one per process
func (o *Oto) open(sampleRate, channels int) error {
	op := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: channels,
		Format:       oto.FormatSignedInt16LE,
	}

	ctx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return fmt.Errorf("failed to create oto context: %w", err)
	}

	<-readyChan

	o.otoCtx = ctx
	o.format = audio.Format{SampleRate: sampleRate, Channels: channels, BitDepth: 16}

	log.Printf("Audio output initialized: %dHz, %d channels", sampleRate, channels)
	return nil
}

// Load encodes the clip for the device, opening it on first use
func (o *Oto) Load(clip *audio.Clip) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return ErrClosed
	}
	if clip == nil || clip.Frames() == 0 {
		return fmt.Errorf("cannot load empty clip")
	}

	if o.otoCtx == nil {
		if err := o.open(clip.Format.SampleRate, clip.Format.Channels); err != nil {
			return err
		}
	}

	if clip.Format.Channels != o.format.Channels {
		return fmt.Errorf("clip has %d channels but device was opened with %d", clip.Format.Channels, o.format.Channels)
	}
	if clip.Format.SampleRate != o.format.SampleRate {
		log.Printf("Resampling clip from %dHz to device rate %dHz", clip.Format.SampleRate, o.format.SampleRate)
		clip = clip.Resampled(o.format.SampleRate)
	}

	o.stopLocked()
	o.pcm = encode.PCM16(make([]byte, 0, len(clip.Samples)*2), clip.Samples, 1.0)

	log.Printf("Loaded clip: %v", clip.Duration())
	return nil
}

// Play starts the loaded clip from the beginning
func (o *Oto) Play(loop bool) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return ErrClosed
	}
	if len(o.pcm) == 0 {
		return ErrNotLoaded
	}

	o.stopLocked()

	o.reader = &loopReader{data: o.pcm, loop: loop}
	o.player = o.otoCtx.NewPlayer(o.reader)
	o.player.SetVolume(encode.Gain(o.volume, o.muted))
	o.player.Play()
	o.started = time.Now()

	log.Printf("Playback started (loop=%v)", loop)
	return nil
}

// stopLocked closes the current player; callers hold o.mu
func (o *Oto) stopLocked() {
	if o.player != nil {
		o.player.Pause()
		if err := o.player.Close(); err != nil {
			log.Printf("Error closing player: %v", err)
		}
		o.player = nil
	}
	o.reader = nil
}

// Position returns audible playback time: bytes handed to oto minus bytes
// still sitting in its buffer
func (o *Oto) Position() time.Duration {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.player == nil || o.reader == nil {
		return 0
	}

	played := o.reader.Consumed() - int64(o.player.BufferedSize())
	if played < 0 {
		played = 0
	}
	return bytesToDuration(played, o.format)
}

// Elapsed returns Position so the player can drive a scheduler directly
func (o *Oto) Elapsed() time.Duration {
	return o.Position()
}

// Started returns when playback last started
func (o *Oto) Started() time.Time {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.started
}

// IsBusy reports whether the device is still playing
func (o *Oto) IsBusy() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.player != nil && o.player.IsPlaying()
}

// Close releases output resources
func (o *Oto) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return nil
	}
	o.stopLocked()
	if o.otoCtx != nil {
		if err := o.otoCtx.Suspend(); err != nil {
			log.Printf("Error suspending audio context: %v", err)
		}
	}
	o.closed = true
	return nil
}

// SetVolume sets the volume (0-100)
func (o *Oto) SetVolume(volume int) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if volume < 0 {
		volume = 0
	}
	if volume > 100 {
		volume = 100
	}
	o.volume = volume
	if o.player != nil {
		o.player.SetVolume(encode.Gain(o.volume, o.muted))
	}
	log.Printf("Volume set to %d", volume)
}

// SetMuted sets mute state
func (o *Oto) SetMuted(muted bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.muted = muted
	if o.player != nil {
		o.player.SetVolume(encode.Gain(o.volume, o.muted))
	}
	log.Printf("Muted: %v", muted)
}

// Volume returns current volume
func (o *Oto) Volume() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.volume
}

// IsMuted returns mute state
func (o *Oto) IsMuted() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.muted
}

// bytesToDuration converts a count of 16-bit interleaved PCM bytes to time
func bytesToDuration(n int64, format audio.Format) time.Duration {
	bytesPerSecond := int64(format.SampleRate) * int64(format.Channels) * 2
	if bytesPerSecond <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second / time.Duration(bytesPerSecond)
}
