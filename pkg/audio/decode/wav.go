// ABOUTME: WAV audio decoder
// ABOUTME: Decodes integer PCM WAV files through go-audio
package decode

import (
	"fmt"
	"io"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/harperreed/lubdub/pkg/audio"
)

const wavFormatPCM = 1

// DecodeWAV decodes an integer PCM WAV file
func DecodeWAV(r io.ReadSeeker) (*audio.Clip, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("not a valid wav file")
	}
	if dec.WavAudioFormat != wavFormatPCM {
		return nil, fmt.Errorf("%w: wav audio format %d (only integer PCM)", ErrUnsupportedFormat, dec.WavAudioFormat)
	}

	var buf *goaudio.IntBuffer
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("wav decode error: %w", err)
	}
	if buf.Format == nil {
		return nil, fmt.Errorf("wav file has no format chunk")
	}

	bitDepth := buf.SourceBitDepth
	if bitDepth == 0 {
		bitDepth = int(dec.BitDepth)
	}

	samples := make([]int32, len(buf.Data))
	for i, v := range buf.Data {
		if bitDepth == 8 {
			// 8-bit WAV is unsigned
			v -= 128
		}
		samples[i] = audio.SampleFromDepth(int32(v), bitDepth)
	}

	return &audio.Clip{
		Format: audio.Format{
			Codec:      "wav",
			SampleRate: buf.Format.SampleRate,
			Channels:   buf.Format.NumChannels,
			BitDepth:   bitDepth,
		},
		Samples: samples,
	}, nil
}
