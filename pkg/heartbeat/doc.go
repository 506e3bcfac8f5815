// ABOUTME: Heart sound detection package
// ABOUTME: Envelope conditioning, peak picking and S1/S2 pairing
// Package heartbeat detects the two principal heart sounds in a recorded
// phonocardiogram-style clip.
//
// The pipeline runs once per clip, synchronously:
//   - Condition: rectify and Gaussian-smooth samples into an Envelope
//   - ExtractPeaks: local maxima above a height threshold, spaced apart
//   - Pair: greedy S1/S2 classification with a refractory period
//
// Example:
//
//	analyzer, err := heartbeat.NewAnalyzer(heartbeat.DefaultConfig())
//	timeline, err := analyzer.Analyze(clip.Mono(), clip.Format.SampleRate)
//	for _, ev := range timeline.Events {
//	    fmt.Println(ev)
//	}
package heartbeat
