// ABOUTME: Peak extraction from an amplitude envelope
// ABOUTME: Local maxima above a height threshold with non-maximum suppression
package heartbeat

import (
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
)

// Peak is an accepted local maximum of the envelope
type Peak struct {
	Index  int
	Time   time.Duration
	Height float64
}

// PeakOptions controls which local maxima survive
type PeakOptions struct {
	// Height is absolute, or a fraction of the envelope maximum if Relative
	Height   float64
	Relative bool

	// MinSpacing is the minimum distance in samples between kept peaks
	MinSpacing int
}

// ExtractPeaks finds local maxima of env that reach the height threshold and
// are at least MinSpacing samples from any taller kept peak. The result is
// ordered by time. No peaks is a valid result.
func ExtractPeaks(env Envelope, opts PeakOptions) []Peak {
	if env.Len() < 3 {
		return nil
	}

	threshold := opts.Height
	if opts.Relative {
		threshold = opts.Height * floats.Max(env.Samples)
	}

	candidates := localMaxima(env.Samples)
	kept := candidates[:0]
	for _, idx := range candidates {
		if env.Samples[idx] >= threshold {
			kept = append(kept, idx)
		}
	}

	kept = suppressByDistance(env.Samples, kept, opts.MinSpacing)

	peaks := make([]Peak, len(kept))
	for i, idx := range kept {
		peaks[i] = Peak{
			Index:  idx,
			Time:   env.TimeAt(idx),
			Height: env.Samples[idx],
		}
	}
	return peaks
}

// PeakTimes returns just the time offsets of peaks
func PeakTimes(peaks []Peak) []time.Duration {
	times := make([]time.Duration, len(peaks))
	for i, p := range peaks {
		times[i] = p.Time
	}
	return times
}

// localMaxima returns indices strictly greater than the left neighbour and
// greater than the first differing right neighbour. Flat tops resolve to
// their midpoint. The first and last samples are never peaks.
func localMaxima(x []float64) []int {
	var peaks []int
	i := 1
	last := len(x) - 1

	for i < last {
		if x[i-1] < x[i] {
			ahead := i + 1
			for ahead < last && x[ahead] == x[i] {
				ahead++
			}
			if x[ahead] < x[i] {
				right := ahead - 1
				peaks = append(peaks, (i+right)/2)
				i = ahead
				continue
			}
		}
		i++
	}
	return peaks
}

// suppressByDistance keeps the tallest peak of any group closer than
// spacing samples. Input and output are sorted by index.
func suppressByDistance(x []float64, peaks []int, spacing int) []int {
	if spacing <= 1 || len(peaks) < 2 {
		return peaks
	}

	// Visit peaks tallest first. MaxIdx returns the earliest of equal
	// heights, so ties go to the earlier peak. Visited and suppressed
	// peaks drop to -Inf.
	heights := make([]float64, len(peaks))
	for i, idx := range peaks {
		heights[i] = x[idx]
	}

	keep := make([]bool, len(peaks))
	for {
		j := floats.MaxIdx(heights)
		if math.IsInf(heights[j], -1) {
			break
		}
		keep[j] = true
		heights[j] = math.Inf(-1)

		for k := j - 1; k >= 0 && peaks[j]-peaks[k] < spacing; k-- {
			heights[k] = math.Inf(-1)
		}
		for k := j + 1; k < len(peaks) && peaks[k]-peaks[j] < spacing; k++ {
			heights[k] = math.Inf(-1)
		}
	}

	out := make([]int, 0, len(peaks))
	for i, idx := range peaks {
		if keep[i] {
			out = append(out, idx)
		}
	}
	return out
}
