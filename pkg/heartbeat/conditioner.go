// ABOUTME: Signal conditioning for heart sound analysis
// ABOUTME: Rectifies and Gaussian-smooths raw samples into an amplitude envelope
package heartbeat

import (
	"math"
	"time"
)

// gaussianTruncate is how many standard deviations the kernel extends
const gaussianTruncate = 4.0

// Envelope is the rectified, smoothed amplitude trace of a signal.
// It always has one sample per input sample.
type Envelope struct {
	Samples    []float64
	SampleRate int
}

// Len returns the number of samples
func (e Envelope) Len() int { return len(e.Samples) }

// TimeAt converts a sample index to an offset from the start of the signal
func (e Envelope) TimeAt(index int) time.Duration {
	if e.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(index) / float64(e.SampleRate) * float64(time.Second))
}

// Condition takes the absolute value of every sample and smooths the result
// with a Gaussian of standard deviation sigma (in samples).
func Condition(signal []float64, sampleRate int, sigma float64) Envelope {
	rectified := make([]float64, len(signal))
	for i, s := range signal {
		rectified[i] = math.Abs(s)
	}

	return Envelope{
		Samples:    gaussianSmooth(rectified, sigma),
		SampleRate: sampleRate,
	}
}

// ScaledSigma adapts a sigma tuned at referenceRate to sampleRate so the
// smoothing covers the same span of time.
func ScaledSigma(sigma float64, sampleRate, referenceRate int) float64 {
	if sampleRate <= 0 || referenceRate <= 0 {
		return sigma
	}
	scaled := sigma * float64(sampleRate) / float64(referenceRate)
	// Below ~0.5 samples the kernel collapses to a single tap
	if scaled < 0.5 {
		scaled = 0.5
	}
	return scaled
}

// gaussianKernel returns normalised weights for offsets -radius..radius
func gaussianKernel(sigma float64) []float64 {
	radius := int(gaussianTruncate*sigma + 0.5)
	kernel := make([]float64, 2*radius+1)

	sum := 0.0
	for i := -radius; i <= radius; i++ {
		w := math.Exp(-0.5 * float64(i*i) / (sigma * sigma))
		kernel[i+radius] = w
		sum += w
	}
	for i := range kernel {
		kernel[i] /= sum
	}
	return kernel
}

// gaussianSmooth convolves x with a Gaussian kernel, reflecting at the edges
// (d c b a | a b c d | d c b a).
func gaussianSmooth(x []float64, sigma float64) []float64 {
	n := len(x)
	out := make([]float64, n)
	if n == 0 {
		return out
	}
	if sigma <= 0 {
		copy(out, x)
		return out
	}

	kernel := gaussianKernel(sigma)
	radius := len(kernel) / 2

	for i := 0; i < n; i++ {
		acc := 0.0
		for k := -radius; k <= radius; k++ {
			acc += kernel[k+radius] * x[reflectIndex(i+k, n)]
		}
		out[i] = acc
	}
	return out
}

// reflectIndex maps any integer index into [0, n) using half-sample
// symmetric reflection.
func reflectIndex(i, n int) int {
	if n == 1 {
		return 0
	}
	period := 2 * n
	i %= period
	if i < 0 {
		i += period
	}
	if i >= n {
		i = period - 1 - i
	}
	return i
}
