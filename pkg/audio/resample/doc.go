// ABOUTME: Audio resampling package using linear interpolation
// ABOUTME: Converts interleaved PCM between sample rates
// Package resample provides audio sample rate conversion.
//
// Whole clips go through All; streams use a Resampler and overlap
// consecutive chunks by one frame:
//
//	out := resample.All(samples, 44100, 8000, 2)
package resample
