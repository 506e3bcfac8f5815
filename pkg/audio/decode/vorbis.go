// ABOUTME: Ogg Vorbis audio decoder
// ABOUTME: Decodes Vorbis float samples to int32
package decode

import (
	"fmt"
	"io"

	"github.com/harperreed/lubdub/pkg/audio"
	"github.com/jfreymuth/oggvorbis"
)

// DecodeVorbis decodes a whole Ogg Vorbis stream
func DecodeVorbis(r io.Reader) (*audio.Clip, error) {
	data, format, err := oggvorbis.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("vorbis decode error: %w", err)
	}

	samples := make([]int32, len(data))
	for i, v := range data {
		samples[i] = audio.SampleFromFloat(v)
	}

	return &audio.Clip{
		Format: audio.Format{
			Codec:      "ogg",
			SampleRate: format.SampleRate,
			Channels:   format.Channels,
			BitDepth:   24,
		},
		Samples: samples,
	}, nil
}
