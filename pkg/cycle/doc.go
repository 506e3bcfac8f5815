// ABOUTME: Cycle scheduler package for looping heart sound playback
// ABOUTME: Provides Scheduler, Notification and Sink types
// Package cycle replays a detected heart sound timeline against an
// indefinitely looping audio clip.
//
// Every tick the scheduler maps elapsed playback time onto a cycle index
// and a position within the loop, and fires each S1/S2 whose time is within
// the tolerance window of that position. Each sound fires at most once per
// cycle; a missed window is simply retried on the next loop.
//
// Example:
//
//	sched, err := cycle.NewScheduler(timeline.Events, timeline.LoopDuration, cycle.Options{
//	    Tolerance:    cycle.DefaultTolerance,
//	    PollInterval: cycle.DefaultPollInterval,
//	    Sink:         cycle.NewWriterSink(os.Stdout, false),
//	})
//	err = sched.Run(ctx, player)
package cycle
