// ABOUTME: Offline heartbeat analysis tool
// ABOUTME: Prints detected S1/S2 events as text or JSON and can export the envelope
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/harperreed/lubdub/internal/app"
	"github.com/harperreed/lubdub/internal/config"
	"github.com/harperreed/lubdub/internal/version"
	"github.com/harperreed/lubdub/pkg/audio/encode"
	"github.com/harperreed/lubdub/pkg/heartbeat"
	"github.com/harperreed/lubdub/pkg/protocol"
)

func main() {
	cfg := &config.Config{}

	fs := flag.NewFlagSet("lubdub-analyze", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: lubdub-analyze [flags] <heartbeat audio file>\n\n")
		fs.PrintDefaults()
	}
	config.AnalysisFlags(fs, cfg)
	asJSON := fs.Bool("json", false, "Print the timeline as JSON")
	dump := fs.String("dump-envelope", "", "Write the smoothed envelope to this WAV file")
	verbose := fs.Bool("v", false, "Log analysis details to stderr")
	showVersion := fs.Bool("version", false, "Print version and exit")

	if err := fs.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		os.Exit(2)
	}

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	if cfg.Audio == "" && fs.NArg() > 0 {
		cfg.Audio = fs.Arg(0)
	}
	if cfg.Audio == "" {
		fs.Usage()
		os.Exit(2)
	}
	if err := cfg.Analysis.Validate(); err != nil {
		log.Fatalf("Invalid analysis settings: %v", err)
	}

	if !*verbose {
		log.SetOutput(io.Discard)
	}

	clip, tl, err := app.Analyze(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "lubdub-analyze: %v\n", err)
		os.Exit(1)
	}

	if *dump != "" {
		analysed := clip.Resampled(cfg.SampleRate)
		rate := analysed.Format.SampleRate
		env := heartbeat.Condition(analysed.Mono(), rate, cfg.Analysis.SigmaFor(rate))
		if err := writeEnvelope(*dump, env); err != nil {
			fmt.Fprintf(os.Stderr, "lubdub-analyze: %v\n", err)
			os.Exit(1)
		}
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(protocol.NewTimeline(tl)); err != nil {
			fmt.Fprintf(os.Stderr, "lubdub-analyze: %v\n", err)
			os.Exit(1)
		}
		return
	}

	fmt.Println(tl)
	for i, e := range tl.Events {
		fmt.Printf("%3d  %s\n", i, e)
	}
}

// writeEnvelope stores env as a 16-bit mono WAV scaled to full range
func writeEnvelope(path string, env heartbeat.Envelope) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create envelope file: %w", err)
	}
	defer f.Close()

	if err := encode.WAV(f, encode.SignalClip(env.Samples, env.SampleRate), 16); err != nil {
		return fmt.Errorf("failed to write envelope: %w", err)
	}
	log.Printf("Wrote %d envelope samples to %s", env.Len(), path)
	return nil
}
