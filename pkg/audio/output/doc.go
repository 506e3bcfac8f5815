// ABOUTME: Audio output package for looping clip playback
// ABOUTME: Provides Player interface with Oto and headless implementations
// Package output plays decoded clips.
//
// Oto drives the system audio device through ebitengine/oto. Silent keeps
// the same contract on machines without audio hardware, advancing position
// with the wall clock.
//
// Example:
//
//	out := output.NewOto()
//	err := out.Load(clip)
//	err = out.Play(true)
//	pos := out.Position()
package output
