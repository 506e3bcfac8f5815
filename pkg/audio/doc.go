// ABOUTME: Audio fundamentals package providing core types and utilities
// ABOUTME: Defines Format and Clip types and sample conversion functions
// Package audio provides the in-memory audio representation shared by the
// decoders, the analyzer and the playback outputs.
//
// All decoders produce a Clip whose interleaved samples are held in 24-bit
// range regardless of source bit depth. Mono gives the normalised signal the
// heart sound analyzer works on, and Resampled brings a clip to a lower
// analysis rate.
//
// Example:
//
//	clip, err := decode.File("heartbeat.mp3", 0)
//	signal := clip.Resampled(8000).Mono()
package audio
