// ABOUTME: WAV file encoder
// ABOUTME: Writes clips to integer PCM WAV files through go-audio
package encode

import (
	"fmt"
	"io"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/harperreed/lubdub/pkg/audio"
)

// WAV writes clip as a PCM WAV file at the given bit depth (16 or 24)
func WAV(w io.WriteSeeker, clip *audio.Clip, bitDepth int) error {
	if bitDepth != 16 && bitDepth != 24 {
		return fmt.Errorf("unsupported bit depth: %d (supported: 16, 24)", bitDepth)
	}
	if clip.Format.Channels <= 0 || clip.Format.SampleRate <= 0 {
		return fmt.Errorf("invalid clip format: %dHz %dch", clip.Format.SampleRate, clip.Format.Channels)
	}

	data := make([]int, len(clip.Samples))
	for i, s := range clip.Samples {
		if bitDepth == 16 {
			data[i] = int(audio.SampleToInt16(s))
		} else {
			data[i] = int(s)
		}
	}

	enc := wav.NewEncoder(w, clip.Format.SampleRate, bitDepth, clip.Format.Channels, 1)
	buf := &goaudio.IntBuffer{
		Format: &goaudio.Format{
			NumChannels: clip.Format.Channels,
			SampleRate:  clip.Format.SampleRate,
		},
		Data:           data,
		SourceBitDepth: bitDepth,
	}

	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("wav encode error: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to finalize wav: %w", err)
	}
	return nil
}

// SignalClip turns a non-negative analysis signal into a mono clip scaled
// so its maximum sits at full scale, for listening to or plotting envelopes.
func SignalClip(signal []float64, sampleRate int) *audio.Clip {
	peak := 0.0
	for _, v := range signal {
		if v > peak {
			peak = v
		}
	}

	samples := make([]int32, len(signal))
	if peak > 0 {
		for i, v := range signal {
			samples[i] = audio.SampleFromFloat(float32(v / peak * 0.999))
		}
	}

	return &audio.Clip{
		Format: audio.Format{
			Codec:      "wav",
			SampleRate: sampleRate,
			Channels:   1,
			BitDepth:   24,
		},
		Samples: samples,
	}
}
