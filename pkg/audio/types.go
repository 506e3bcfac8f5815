// ABOUTME: Audio type definitions
// ABOUTME: Defines audio formats, decoded clips and sample conversions
package audio

import (
	"time"

	"github.com/harperreed/lubdub/pkg/audio/resample"
)

const (
	// 24-bit audio range constants
	Max24Bit = 8388607  // 2^23 - 1
	Min24Bit = -8388608 // -2^23
)

// Format describes a decoded audio stream
type Format struct {
	Codec      string
	SampleRate int
	Channels   int
	BitDepth   int // source bit depth; samples are always held in 24-bit range
}

// Clip is a fully decoded audio file held in memory
type Clip struct {
	Format  Format
	Samples []int32 // interleaved PCM, 24-bit range
}

// Frames returns the number of sample frames (samples per channel)
func (c *Clip) Frames() int {
	if c.Format.Channels <= 0 {
		return 0
	}
	return len(c.Samples) / c.Format.Channels
}

// Duration returns the playback length of the clip
func (c *Clip) Duration() time.Duration {
	if c.Format.SampleRate <= 0 {
		return 0
	}
	return time.Duration(c.Frames()) * time.Second / time.Duration(c.Format.SampleRate)
}

// Mono averages all channels into one signal normalised to [-1, 1]
func (c *Clip) Mono() []float64 {
	channels := c.Format.Channels
	frames := c.Frames()
	mono := make([]float64, frames)
	if frames == 0 {
		return mono
	}

	scale := 1.0 / (float64(Max24Bit+1) * float64(channels))
	for i := 0; i < frames; i++ {
		var sum int64
		for ch := 0; ch < channels; ch++ {
			sum += int64(c.Samples[i*channels+ch])
		}
		mono[i] = float64(sum) * scale
	}
	return mono
}

// Resampled returns a copy of the clip at the given sample rate. The clip
// itself is returned when the rate already matches or rate is not positive.
func (c *Clip) Resampled(rate int) *Clip {
	if rate <= 0 || rate == c.Format.SampleRate || c.Frames() < 2 {
		return c
	}

	format := c.Format
	format.SampleRate = rate
	return &Clip{
		Format:  format,
		Samples: resample.All(c.Samples, c.Format.SampleRate, rate, c.Format.Channels),
	}
}

// SampleToInt16 converts int32 sample to int16 (for 16-bit playback)
func SampleToInt16(sample int32) int16 {
	// Right-shift to convert 24-bit (or 16-bit) to 16-bit range
	return int16(sample >> 8)
}

// SampleFromInt16 converts int16 sample to int32 (left-justified in 24-bit)
func SampleFromInt16(sample int16) int32 {
	return int32(sample) << 8
}

// SampleFromFloat converts a [-1, 1] float sample to 24-bit range with clipping
func SampleFromFloat(sample float32) int32 {
	v := int64(float64(sample) * float64(Max24Bit+1))
	if v > Max24Bit {
		v = Max24Bit
	} else if v < Min24Bit {
		v = Min24Bit
	}
	return int32(v)
}

// SampleFromDepth converts an integer sample of the given bit depth to 24-bit range
func SampleFromDepth(sample int32, bitDepth int) int32 {
	switch {
	case bitDepth == 24 || bitDepth <= 0:
		return sample
	case bitDepth < 24:
		return sample << (24 - bitDepth)
	default:
		return sample >> (bitDepth - 24)
	}
}
