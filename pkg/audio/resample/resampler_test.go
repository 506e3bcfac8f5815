// ABOUTME: Tests for the linear resampler
// ABOUTME: Tests rate ratios, interpolation and chunk continuity
package resample

import "testing"

func TestResampleDownsample(t *testing.T) {
	r := New(8000, 4000, 1)

	input := []int32{0, 10, 20, 30, 40, 50, 60, 70}
	output := make([]int32, 8)
	n := r.Resample(input, output)

	expected := []int32{0, 20, 40, 60}
	if n != len(expected) {
		t.Fatalf("expected %d samples, got %d", len(expected), n)
	}
	for i, v := range expected {
		if output[i] != v {
			t.Errorf("sample %d: expected %d, got %d", i, v, output[i])
		}
	}
}

func TestResampleUpsampleInterpolates(t *testing.T) {
	r := New(1000, 2000, 1)

	input := []int32{0, 100, 200}
	output := make([]int32, 8)
	n := r.Resample(input, output)

	expected := []int32{0, 50, 100, 150}
	if n != len(expected) {
		t.Fatalf("expected %d samples, got %d", len(expected), n)
	}
	for i, v := range expected {
		if output[i] != v {
			t.Errorf("sample %d: expected %d, got %d", i, v, output[i])
		}
	}
}

func TestResampleStereoKeepsChannels(t *testing.T) {
	r := New(2, 1, 2)

	// Left ramps up, right stays negative
	input := []int32{0, -5, 10, -5, 20, -5, 30, -5}
	output := make([]int32, 8)
	n := r.Resample(input, output)

	if n != 4 {
		t.Fatalf("expected 4 samples (2 frames), got %d", n)
	}
	if output[0] != 0 || output[2] != 20 {
		t.Errorf("unexpected left channel: %v", output[:n])
	}
	if output[1] != -5 || output[3] != -5 {
		t.Errorf("unexpected right channel: %v", output[:n])
	}
}

func TestResampleEmpty(t *testing.T) {
	r := New(44100, 8000, 2)
	if n := r.Resample(nil, make([]int32, 4)); n != 0 {
		t.Errorf("expected 0 samples for empty input, got %d", n)
	}
}

func TestSamplesNeeded(t *testing.T) {
	r := New(48000, 24000, 2)

	if got := r.OutputSamplesNeeded(960); got != 480 {
		t.Errorf("expected 480 output samples, got %d", got)
	}
	if got := r.InputSamplesNeeded(480); got != 960 {
		t.Errorf("expected 960 input samples, got %d", got)
	}
	if r.Ratio() != 2.0 {
		t.Errorf("expected ratio 2.0, got %f", r.Ratio())
	}
}

func TestAll(t *testing.T) {
	tests := []struct {
		name     string
		input    []int32
		in, out  int
		channels int
		want     []int32
	}{
		{"halve", []int32{0, 10, 20, 30, 40, 50, 60, 70}, 8000, 4000, 1, []int32{0, 20, 40, 60}},
		{"double holds last frame", []int32{0, 100}, 1000, 2000, 1, []int32{0, 50, 100, 100}},
		{"stereo", []int32{0, -5, 10, -5, 20, -5, 30, -5}, 2, 1, 2, []int32{0, -5, 20, -5}},
		{"empty", nil, 8000, 4000, 1, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := All(tt.input, tt.in, tt.out, tt.channels)
			if len(got) != len(tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("sample %d: expected %d, got %d", i, tt.want[i], got[i])
				}
			}
		})
	}
}
