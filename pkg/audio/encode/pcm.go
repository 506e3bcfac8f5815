// ABOUTME: PCM audio encoder
// ABOUTME: Encodes int32 samples to 16-bit little-endian bytes with gain
package encode

import (
	"encoding/binary"

	"github.com/harperreed/lubdub/pkg/audio"
)

// PCM16 appends samples to dst as signed 16-bit little-endian PCM, scaled
// by gain and clipped to the 24-bit range first.
func PCM16(dst []byte, samples []int32, gain float64) []byte {
	for _, sample := range samples {
		scaled := sample
		if gain != 1.0 {
			v := int64(float64(sample) * gain)
			if v > audio.Max24Bit {
				v = audio.Max24Bit
			} else if v < audio.Min24Bit {
				v = audio.Min24Bit
			}
			scaled = int32(v)
		}
		dst = binary.LittleEndian.AppendUint16(dst, uint16(audio.SampleToInt16(scaled)))
	}
	return dst
}

// Gain converts a 0-100 volume and mute flag into a linear multiplier
func Gain(volume int, muted bool) float64 {
	if muted {
		return 0.0
	}
	if volume < 0 {
		volume = 0
	}
	if volume > 100 {
		volume = 100
	}
	return float64(volume) / 100.0
}
