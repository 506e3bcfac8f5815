// ABOUTME: Entry point for the lubdub heartbeat player
// ABOUTME: Parses configuration, sets up logging and runs the application
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/harperreed/lubdub/internal/app"
	"github.com/harperreed/lubdub/internal/config"
	"github.com/harperreed/lubdub/internal/version"
)

func main() {
	cfg, err := config.Load(os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "lubdub: %v\n", err)
		os.Exit(2)
	}

	if cfg.Version {
		fmt.Println(version.String())
		return
	}

	// Set up logging
	f, err := os.OpenFile(cfg.LogFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("error opening log file: %v", err)
	}
	defer func() { _ = f.Close() }()

	if cfg.NoTUI {
		// Streaming logs mode: log to both stderr and file, events on stdout
		log.SetOutput(io.MultiWriter(os.Stderr, f))
	} else {
		// TUI mode: log only to file
		log.SetOutput(f)
	}

	log.Printf("Starting %s: %s", version.String(), cfg.Audio)
	if cfg.Debug {
		log.Printf("Debug logging enabled")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.New(cfg, os.Stdout).Run(ctx); err != nil {
		log.Printf("Error: %v", err)
		fmt.Fprintf(os.Stderr, "lubdub: %v\n", err)
		_ = f.Close()
		os.Exit(1)
	}

	log.Printf("Stopped")
}
