// ABOUTME: Linear resampler for interleaved int32 PCM
// ABOUTME: Brings decoded clips to the analysis or device sample rate
package resample

import "math"

// Resampler performs linear interpolation to convert between sample rates
type Resampler struct {
	inputRate  int
	outputRate int
	channels   int
	ratio      float64
	position   float64
}

// New creates a new resampler
func New(inputRate, outputRate, channels int) *Resampler {
	if channels < 1 {
		channels = 1
	}
	return &Resampler{
		inputRate:  inputRate,
		outputRate: outputRate,
		channels:   channels,
		ratio:      float64(inputRate) / float64(outputRate),
	}
}

// Ratio returns input frames consumed per output frame
func (r *Resampler) Ratio() float64 {
	return r.ratio
}

// Resample converts interleaved input at inputRate into output at
// outputRate and returns how many output samples were written. The final
// input frame is only used as an interpolation partner, so consecutive
// chunks should overlap by one frame.
func (r *Resampler) Resample(input []int32, output []int32) int {
	if len(input) == 0 {
		return 0
	}

	inputFrames := len(input) / r.channels
	outputFrames := len(output) / r.channels

	outIdx := 0
	for outIdx < outputFrames {
		inputIdx := int(r.position)
		if inputIdx >= inputFrames-1 {
			break
		}

		frac := r.position - float64(inputIdx)
		for ch := 0; ch < r.channels; ch++ {
			a := float64(input[inputIdx*r.channels+ch])
			b := float64(input[(inputIdx+1)*r.channels+ch])
			output[outIdx*r.channels+ch] = int32(a*(1.0-frac) + b*frac)
		}

		outIdx++
		r.position += r.ratio
	}

	// Keep the fractional part for the next chunk
	r.position -= float64(int(r.position))

	return outIdx * r.channels
}

// Reset clears the interpolation position
func (r *Resampler) Reset() {
	r.position = 0.0
}

// All converts a complete clip. The last input frame is repeated once so
// every input frame has a partner and the duration is kept to within one
// output frame.
func All(input []int32, inputRate, outputRate, channels int) []int32 {
	if channels < 1 {
		channels = 1
	}
	frames := len(input) / channels
	if frames == 0 || inputRate <= 0 || outputRate <= 0 {
		return nil
	}

	padded := make([]int32, (frames+1)*channels)
	copy(padded, input[:frames*channels])
	copy(padded[frames*channels:], input[(frames-1)*channels:frames*channels])

	r := New(inputRate, outputRate, channels)
	want := int(math.Round(float64(frames) / r.ratio))
	out := make([]int32, (want+1)*channels)
	n := r.Resample(padded, out)
	if n > want*channels {
		n = want * channels
	}
	return out[:n]
}

// OutputSamplesNeeded calculates how many output samples will be produced from input samples
func (r *Resampler) OutputSamplesNeeded(inputSamples int) int {
	inputFrames := inputSamples / r.channels
	outputFrames := int(float64(inputFrames) / r.ratio)
	return outputFrames * r.channels
}

// InputSamplesNeeded calculates how many input samples are needed to produce output samples
func (r *Resampler) InputSamplesNeeded(outputSamples int) int {
	outputFrames := outputSamples / r.channels
	inputFrames := int(float64(outputFrames) * r.ratio)
	return inputFrames * r.channels
}
