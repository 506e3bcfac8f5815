// ABOUTME: Analysis configuration for heart sound detection
// ABOUTME: Defaults, validation and per-stage option derivation
package heartbeat

import (
	"errors"
	"fmt"
	"time"
)

const (
	// DefaultSigma is the Gaussian smoothing width in samples
	DefaultSigma = 5.0

	// DefaultHeight is the absolute envelope height a peak must reach
	DefaultHeight = 0.5

	// DefaultMinSpacing is the minimum distance between accepted peaks
	DefaultMinSpacing = 100 * time.Millisecond

	// DefaultPairingWindow is how far after S1 an S2 may appear
	DefaultPairingWindow = 400 * time.Millisecond

	// DefaultCooldown is the refractory period after an accepted S2
	DefaultCooldown = 500 * time.Millisecond
)

// ErrInvalidConfig is returned (wrapped) for any rejected analysis setting
var ErrInvalidConfig = errors.New("invalid analysis config")

// ConfigError describes which setting was rejected and why
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid analysis config: %s %s", e.Field, e.Reason)
}

// Unwrap lets callers match with errors.Is(err, ErrInvalidConfig)
func (e *ConfigError) Unwrap() error { return ErrInvalidConfig }

// Config holds every tunable of the analysis pipeline
type Config struct {
	// Sigma is the Gaussian standard deviation in samples
	Sigma float64

	// ScaleSigmaTo, when non-zero, treats Sigma as tuned for this sample
	// rate and scales it to the rate of the analysed signal
	ScaleSigmaTo int

	// Height is the peak threshold. Absolute amplitude unless RelativeHeight
	// is set, in which case it is a fraction (0, 1] of the envelope maximum
	Height         float64
	RelativeHeight bool

	// MinSpacing is the minimum time between two accepted peaks
	MinSpacing time.Duration

	PairingWindow time.Duration
	Cooldown      time.Duration

	// CooldownAfterUnpaired starts the refractory period from an S1 that
	// found no S2. Off by default.
	CooldownAfterUnpaired bool
}

// DefaultConfig returns the configuration used by the command line tools
func DefaultConfig() Config {
	return Config{
		Sigma:         DefaultSigma,
		Height:        DefaultHeight,
		MinSpacing:    DefaultMinSpacing,
		PairingWindow: DefaultPairingWindow,
		Cooldown:      DefaultCooldown,
	}
}

// Validate rejects settings that cannot produce a meaningful analysis
func (c Config) Validate() error {
	if c.Sigma <= 0 {
		return &ConfigError{Field: "sigma", Reason: fmt.Sprintf("must be > 0, got %g", c.Sigma)}
	}
	if c.ScaleSigmaTo < 0 {
		return &ConfigError{Field: "scale-sigma-to", Reason: fmt.Sprintf("must be >= 0, got %d", c.ScaleSigmaTo)}
	}
	if c.Height < 0 {
		return &ConfigError{Field: "height", Reason: fmt.Sprintf("must be >= 0, got %g", c.Height)}
	}
	if c.RelativeHeight && c.Height > 1 {
		return &ConfigError{Field: "height", Reason: fmt.Sprintf("relative height must be within [0, 1], got %g", c.Height)}
	}
	if c.MinSpacing <= 0 {
		return &ConfigError{Field: "min-spacing", Reason: fmt.Sprintf("must be > 0, got %v", c.MinSpacing)}
	}
	if c.PairingWindow <= 0 {
		return &ConfigError{Field: "pairing-window", Reason: fmt.Sprintf("must be > 0, got %v", c.PairingWindow)}
	}
	if c.Cooldown <= 0 {
		return &ConfigError{Field: "cooldown", Reason: fmt.Sprintf("must be > 0, got %v", c.Cooldown)}
	}
	return nil
}

// SigmaFor returns the smoothing width in samples to use at sampleRate
func (c Config) SigmaFor(sampleRate int) float64 {
	if c.ScaleSigmaTo == 0 {
		return c.Sigma
	}
	return ScaledSigma(c.Sigma, sampleRate, c.ScaleSigmaTo)
}

// peakOptions converts the time-based spacing into samples at sampleRate
func (c Config) peakOptions(sampleRate int) PeakOptions {
	spacing := int(c.MinSpacing.Seconds() * float64(sampleRate))
	if spacing < 1 {
		spacing = 1
	}
	return PeakOptions{
		Height:     c.Height,
		Relative:   c.RelativeHeight,
		MinSpacing: spacing,
	}
}

func (c Config) pairOptions() PairOptions {
	return PairOptions{
		Window:                c.PairingWindow,
		Cooldown:              c.Cooldown,
		CooldownAfterUnpaired: c.CooldownAfterUnpaired,
	}
}
