// ABOUTME: Unit tests for PCM and WAV encoding
// ABOUTME: Tests gain, clipping and WAV round trips through the decoder
package encode

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/harperreed/lubdub/pkg/audio"
	"github.com/harperreed/lubdub/pkg/audio/decode"
)

func TestPCM16(t *testing.T) {
	tests := []struct {
		name     string
		samples  []int32
		gain     float64
		expected []int16
	}{
		{"unity", []int32{100 << 8, -100 << 8}, 1.0, []int16{100, -100}},
		{"half", []int32{1000 << 8}, 0.5, []int16{500}},
		{"muted", []int32{1000 << 8, -1000 << 8}, 0.0, []int16{0, 0}},
		{"clipped", []int32{audio.Max24Bit}, 2.0, []int16{32767}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := PCM16(nil, tt.samples, tt.gain)
			if len(out) != len(tt.expected)*2 {
				t.Fatalf("expected %d bytes, got %d", len(tt.expected)*2, len(out))
			}
			for i, want := range tt.expected {
				got := int16(binary.LittleEndian.Uint16(out[i*2:]))
				if got != want {
					t.Errorf("sample %d: expected %d, got %d", i, want, got)
				}
			}
		})
	}
}

func TestPCM16Appends(t *testing.T) {
	out := PCM16([]byte{0xAA}, []int32{0}, 1.0)
	if len(out) != 3 || out[0] != 0xAA {
		t.Errorf("expected existing bytes to be kept, got %v", out)
	}
}

func TestGain(t *testing.T) {
	tests := []struct {
		volume   int
		muted    bool
		expected float64
	}{
		{100, false, 1.0},
		{50, false, 0.5},
		{0, false, 0.0},
		{150, false, 1.0},
		{-10, false, 0.0},
		{80, true, 0.0},
	}

	for _, tt := range tests {
		if got := Gain(tt.volume, tt.muted); got != tt.expected {
			t.Errorf("Gain(%d, %v): expected %f, got %f", tt.volume, tt.muted, tt.expected, got)
		}
	}
}

func TestWAVRoundTrip(t *testing.T) {
	clip := &audio.Clip{
		Format:  audio.Format{SampleRate: 8000, Channels: 2},
		Samples: []int32{100 << 8, -100 << 8, 2000 << 8, -2000 << 8},
	}

	path := filepath.Join(t.TempDir(), "out.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create file: %v", err)
	}
	if err := WAV(f, clip, 16); err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	f.Close()

	decoded, err := decode.File(path, 0)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if decoded.Format.SampleRate != 8000 || decoded.Format.Channels != 2 {
		t.Errorf("unexpected format: %+v", decoded.Format)
	}
	if len(decoded.Samples) != len(clip.Samples) {
		t.Fatalf("expected %d samples, got %d", len(clip.Samples), len(decoded.Samples))
	}
	for i := range clip.Samples {
		if decoded.Samples[i] != clip.Samples[i] {
			t.Errorf("sample %d: expected %d, got %d", i, clip.Samples[i], decoded.Samples[i])
		}
	}
}

func TestWAVRejectsBadInput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create file: %v", err)
	}
	defer f.Close()

	if err := WAV(f, &audio.Clip{Format: audio.Format{SampleRate: 8000, Channels: 1}}, 12); err == nil {
		t.Error("expected error for 12-bit output")
	}
	if err := WAV(f, &audio.Clip{}, 16); err == nil {
		t.Error("expected error for empty format")
	}
}

func TestSignalClip(t *testing.T) {
	clip := SignalClip([]float64{0, 0.25, 0.5}, 4000)

	if clip.Format.Channels != 1 || clip.Format.SampleRate != 4000 {
		t.Errorf("unexpected format: %+v", clip.Format)
	}
	if clip.Samples[0] != 0 {
		t.Errorf("expected silence to stay zero, got %d", clip.Samples[0])
	}
	if clip.Samples[2] <= clip.Samples[1] || clip.Samples[2] > audio.Max24Bit {
		t.Errorf("expected peak near full scale, got %v", clip.Samples)
	}

	silent := SignalClip(make([]float64, 4), 4000)
	for _, s := range silent.Samples {
		if s != 0 {
			t.Fatal("expected silent signal to stay silent")
		}
	}
}
