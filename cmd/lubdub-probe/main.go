// ABOUTME: Entry point for the lubdub probe
// ABOUTME: Connects to a beat server and prints the heart sounds it broadcasts
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/harperreed/lubdub/internal/client"
	"github.com/harperreed/lubdub/internal/version"
)

var (
	serverAddr = flag.String("server", "", "Server address host:port (default: discover via mDNS)")
	name       = flag.String("name", "", "Probe name (default: hostname-lubdub-probe)")
	sounds     = flag.String("sounds", "", "Comma separated sounds to receive: s1,s2 (default: both)")
	syncEvery  = flag.Duration("sync", time.Second, "Latency measurement interval")
	discover   = flag.Duration("discover-timeout", 10*time.Second, "How long to search for a server")
	logFile    = flag.String("log-file", "lubdub-probe.log", "Log file path")
	showVer    = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVer {
		fmt.Println(version.String())
		return
	}

	f, err := os.OpenFile(*logFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("error opening log file: %v", err)
	}
	defer f.Close()
	log.SetOutput(io.MultiWriter(os.Stderr, f))

	probeName := *name
	if probeName == "" {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "unknown"
		}
		probeName = fmt.Sprintf("%s-lubdub-probe", hostname)
	}

	var soundList []string
	for _, s := range strings.Split(*sounds, ",") {
		if s = strings.TrimSpace(strings.ToLower(s)); s != "" {
			soundList = append(soundList, s)
		}
	}

	log.Printf("Starting %s probe: %s", version.String(), probeName)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	probe := client.New(client.Config{
		ServerAddr:      *serverAddr,
		Name:            probeName,
		Sounds:          soundList,
		SyncInterval:    *syncEvery,
		DiscoverTimeout: *discover,
	}, os.Stdout)

	if err := probe.Run(ctx); err != nil {
		log.Printf("Probe error: %v", err)
		f.Close()
		os.Exit(1)
	}

	log.Printf("Probe stopped")
}
