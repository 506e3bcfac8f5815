// ABOUTME: Audio decoder package for multiple codec support
// ABOUTME: Decodes MP3, FLAC, WAV, Ogg Vorbis and Ogg Opus files into clips
// Package decode turns audio files into in-memory clips.
//
// Supports: MP3, FLAC, WAV (integer PCM), Ogg Vorbis, Ogg Opus
//
// Every decoder outputs int32 samples in 24-bit range for consistent
// processing downstream.
//
// Example:
//
//	clip, err := decode.File("heartbeat.flac", 8000)
package decode
