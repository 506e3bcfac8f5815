// ABOUTME: Audio encoder package for PCM output and WAV files
// ABOUTME: Provides 16-bit device encoding and WAV export
// Package encode converts 24-bit range int32 samples to output formats.
//
// PCM16 feeds playback devices; WAV exports clips and analysis envelopes.
//
// Example:
//
//	buf := encode.PCM16(nil, clip.Samples, encode.Gain(80, false))
//	err := encode.WAV(file, encode.SignalClip(envelope.Samples, envelope.SampleRate), 16)
package encode
