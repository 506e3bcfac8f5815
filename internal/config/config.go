// ABOUTME: Command line and environment configuration for lubdub
// ABOUTME: Flags take precedence over LUBDUB_* variables, which override defaults
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/harperreed/lubdub/internal/gpio"
	"github.com/harperreed/lubdub/internal/stream"
	"github.com/harperreed/lubdub/pkg/cycle"
	"github.com/harperreed/lubdub/pkg/heartbeat"
)

const envPrefix = "LUBDUB_"

// ErrNoAudio is returned when no audio file was given
var ErrNoAudio = errors.New("no audio file given")

// Config holds everything the lubdub command needs
type Config struct {
	Audio      string
	SampleRate int // analysis rate; 0 keeps the file's rate

	Analysis heartbeat.Config

	Tolerance    time.Duration
	PollInterval time.Duration
	Latency      time.Duration // output latency subtracted from the clock

	Loop    bool
	NoAudio bool
	Volume  int

	NoTUI   bool
	LogFile string
	Debug   bool
	Version bool

	// Network broadcast; Port 0 disables it
	ServePort int
	ServeName string
	MDNS      bool

	// Message bus; empty URL disables it
	NATSURL     string
	NATSSubject string

	// LED output; negative pin disables it
	GPIOPin   int
	GPIORoot  string
	GPIOPulse time.Duration
	GPIOOnS2  bool
}

// Load parses args (without the program name) on top of the environment
func Load(args []string, output io.Writer) (*Config, error) {
	c := &Config{}

	fs := flag.NewFlagSet("lubdub", flag.ContinueOnError)
	if output != nil {
		fs.SetOutput(output)
	}
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: lubdub [flags] <heartbeat audio file>\n\n")
		fs.PrintDefaults()
	}

	AnalysisFlags(fs, c)

	fs.DurationVar(&c.Tolerance, "tolerance", getEnvDuration("TOLERANCE", cycle.DefaultTolerance), "Half-width of the firing window")
	fs.DurationVar(&c.PollInterval, "poll", getEnvDuration("POLL", cycle.DefaultPollInterval), "Scheduler poll interval")
	fs.DurationVar(&c.Latency, "latency", getEnvDuration("LATENCY", 0), "Output latency to compensate for")

	fs.BoolVar(&c.Loop, "loop", getEnvBool("LOOP", true), "Loop playback (false plays the clip once)")
	fs.BoolVar(&c.NoAudio, "no-audio", getEnvBool("NO_AUDIO", false), "Run on the wall clock without an audio device")
	fs.IntVar(&c.Volume, "volume", getEnvInt("VOLUME", 100), "Playback volume (0-100)")

	fs.BoolVar(&c.NoTUI, "no-tui", getEnvBool("NO_TUI", false), "Disable TUI, print events and stream logs")
	fs.StringVar(&c.LogFile, "log-file", getEnv("LOG_FILE", "lubdub.log"), "Log file path")
	fs.BoolVar(&c.Debug, "debug", getEnvBool("DEBUG", false), "Enable debug logging")
	fs.BoolVar(&c.Version, "version", false, "Print version and exit")

	fs.IntVar(&c.ServePort, "serve", getEnvInt("SERVE_PORT", 0), "Broadcast beats over WebSocket on this port (0 = off)")
	fs.StringVar(&c.ServeName, "name", getEnv("NAME", ""), "Server friendly name (default: hostname-lubdub)")
	fs.BoolVar(&c.MDNS, "mdns", getEnvBool("MDNS", true), "Advertise the beat server via mDNS")

	fs.StringVar(&c.NATSURL, "nats", getEnv("NATS_URL", ""), "Publish beats to this NATS server (empty = off)")
	fs.StringVar(&c.NATSSubject, "nats-subject", getEnv("NATS_SUBJECT", stream.DefaultPrefix), "NATS subject prefix")

	fs.IntVar(&c.GPIOPin, "gpio-pin", getEnvInt("GPIO_PIN", -1), "Pulse this GPIO pin on S1 (-1 = off)")
	fs.StringVar(&c.GPIORoot, "gpio-root", getEnv("GPIO_ROOT", gpio.DefaultRoot), "sysfs GPIO directory")
	fs.DurationVar(&c.GPIOPulse, "gpio-pulse", getEnvDuration("GPIO_PULSE", gpio.DefaultPulse), "GPIO pulse length")
	fs.BoolVar(&c.GPIOOnS2, "gpio-s2", getEnvBool("GPIO_S2", false), "Also pulse GPIO on S2")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if c.Version {
		return c, nil
	}

	if c.Audio == "" && fs.NArg() > 0 {
		c.Audio = fs.Arg(0)
	}
	if c.ServeName == "" {
		c.ServeName = defaultName()
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// AnalysisFlags registers the decoding and detection flags on fs, with
// LUBDUB_* environment defaults
func AnalysisFlags(fs *flag.FlagSet, c *Config) {
	defaults := heartbeat.DefaultConfig()

	fs.StringVar(&c.Audio, "audio", getEnv("AUDIO", ""), "Heartbeat audio file (mp3, flac, wav, ogg, opus)")
	fs.IntVar(&c.SampleRate, "sample-rate", getEnvInt("SAMPLE_RATE", 0), "Resample to this rate before analysis (0 = native)")

	fs.Float64Var(&c.Analysis.Sigma, "sigma", getEnvFloat("SIGMA", defaults.Sigma), "Gaussian smoothing width in samples")
	fs.IntVar(&c.Analysis.ScaleSigmaTo, "sigma-rate", getEnvInt("SIGMA_RATE", 0), "Sample rate sigma was tuned for; scales sigma to the file's rate (0 = no scaling)")
	fs.Float64Var(&c.Analysis.Height, "height", getEnvFloat("HEIGHT", defaults.Height), "Minimum envelope height of a peak")
	fs.BoolVar(&c.Analysis.RelativeHeight, "relative-height", getEnvBool("RELATIVE_HEIGHT", false), "Treat -height as a fraction of the envelope maximum")
	fs.DurationVar(&c.Analysis.MinSpacing, "min-spacing", getEnvDuration("MIN_SPACING", defaults.MinSpacing), "Minimum time between peaks")
	fs.DurationVar(&c.Analysis.PairingWindow, "pairing-window", getEnvDuration("PAIRING_WINDOW", defaults.PairingWindow), "Maximum S1 to S2 gap")
	fs.DurationVar(&c.Analysis.Cooldown, "cooldown", getEnvDuration("COOLDOWN", defaults.Cooldown), "Refractory period after an S2")
	fs.BoolVar(&c.Analysis.CooldownAfterUnpaired, "cooldown-unpaired", getEnvBool("COOLDOWN_UNPAIRED", false), "Also start the refractory period after an unpaired S1")
}

// Validate rejects settings the pipeline cannot run with
func (c *Config) Validate() error {
	if c.Audio == "" {
		return ErrNoAudio
	}
	if err := c.Analysis.Validate(); err != nil {
		return err
	}
	if err := c.SchedulerOptions(nil).Validate(); err != nil {
		return err
	}
	if c.SampleRate < 0 {
		return fmt.Errorf("invalid sample rate %d", c.SampleRate)
	}
	if c.Latency < 0 {
		return fmt.Errorf("invalid latency %v", c.Latency)
	}
	if c.Volume < 0 || c.Volume > 100 {
		return fmt.Errorf("volume must be within 0-100, got %d", c.Volume)
	}
	if c.ServePort < 0 || c.ServePort > 65535 {
		return fmt.Errorf("invalid serve port %d", c.ServePort)
	}
	return nil
}

// SchedulerOptions returns the scheduler settings delivering to sink
func (c *Config) SchedulerOptions(sink cycle.Sink) cycle.Options {
	return cycle.Options{
		Tolerance:    c.Tolerance,
		PollInterval: c.PollInterval,
		Sink:         sink,
	}
}

// GPIO returns the LED sink settings
func (c *Config) GPIO() gpio.Config {
	return gpio.Config{
		Root:  c.GPIORoot,
		Pin:   c.GPIOPin,
		Pulse: c.GPIOPulse,
		OnS2:  c.GPIOOnS2,
	}
}

func defaultName() string {
	hostname, err := os.Hostname()
	if err != nil || hostname == "" {
		return "lubdub"
	}
	return hostname + "-lubdub"
}

func getEnv(key, def string) string {
	if v := os.Getenv(envPrefix + key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(envPrefix + key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(envPrefix + key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(envPrefix + key); v != "" {
		v = strings.ToLower(v)
		return v == "true" || v == "1" || v == "yes"
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(envPrefix + key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
