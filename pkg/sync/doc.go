// ABOUTME: Playback clock package
// ABOUTME: Provides elapsed-time sources that drive the cycle scheduler
// Package sync provides clocks for timing heart sound notifications.
//
// WallClock is the simple monotonic source. PlaybackClock follows the
// position reported by an audio device, smoothing its coarse steps with a
// fixed-gain offset and drift filter and rejecting jumps.
//
// Example:
//
//	clock := sync.NewPlaybackClock(player)
//	err := scheduler.Run(ctx, clock)
package sync
