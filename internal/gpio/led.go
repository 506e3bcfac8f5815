// ABOUTME: LED/haptic sink driving a GPIO line through sysfs
// ABOUTME: Pulses the pin high for a short period on each heart sound
package gpio

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/harperreed/lubdub/pkg/cycle"
)

const (
	// DefaultRoot is the sysfs GPIO class directory
	DefaultRoot = "/sys/class/gpio"

	// DefaultPulse is how long the line stays high per beat
	DefaultPulse = 100 * time.Millisecond
)

// Config holds LED sink configuration
type Config struct {
	Root  string
	Pin   int
	Pulse time.Duration
	OnS2  bool // also pulse on S2; S1 always pulses
}

// LED pulses a GPIO output line. Notify never blocks; a beat that arrives
// while a pulse is still in progress is coalesced into it.
type LED struct {
	config    Config
	valuePath string
	pulses    chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
	count     atomic.Int64
}

// Open exports the pin if needed, configures it as an output and drives it low
func Open(config Config) (*LED, error) {
	if config.Root == "" {
		config.Root = DefaultRoot
	}
	if config.Pulse <= 0 {
		config.Pulse = DefaultPulse
	}
	if config.Pin < 0 {
		return nil, fmt.Errorf("invalid gpio pin %d", config.Pin)
	}

	pinDir := filepath.Join(config.Root, "gpio"+strconv.Itoa(config.Pin))
	if _, err := os.Stat(pinDir); os.IsNotExist(err) {
		if err := writeFile(filepath.Join(config.Root, "export"), strconv.Itoa(config.Pin)); err != nil {
			return nil, fmt.Errorf("failed to export gpio %d: %w", config.Pin, err)
		}
		// udev may take a moment to create the pin directory
		for i := 0; i < 10; i++ {
			if _, err := os.Stat(pinDir); err == nil {
				break
			}
			time.Sleep(10 * time.Millisecond)
		}
	}

	if err := writeFile(filepath.Join(pinDir, "direction"), "out"); err != nil {
		return nil, fmt.Errorf("failed to set gpio %d direction: %w", config.Pin, err)
	}

	l := &LED{
		config:    config,
		valuePath: filepath.Join(pinDir, "value"),
		pulses:    make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
	if err := l.set(false); err != nil {
		return nil, err
	}

	log.Printf("GPIO %d ready (pulse %v, s2=%v)", config.Pin, config.Pulse, config.OnS2)

	l.wg.Add(1)
	go l.run()
	return l, nil
}

// Notify requests a pulse for S1, and for S2 when configured
func (l *LED) Notify(n cycle.Notification) {
	if n.Kind == cycle.KindS2 && !l.config.OnS2 {
		return
	}
	select {
	case <-l.done:
		return
	default:
	}
	select {
	case l.pulses <- struct{}{}:
	default:
	}
}

// Pulses returns how many pulses have completed
func (l *LED) Pulses() int64 { return l.count.Load() }

// Close stops pulsing and leaves the line low
func (l *LED) Close() error {
	l.closeOnce.Do(func() {
		close(l.done)
	})
	l.wg.Wait()
	return l.set(false)
}

func (l *LED) run() {
	defer l.wg.Done()

	for {
		select {
		case <-l.done:
			return
		case <-l.pulses:
		}

		if err := l.set(true); err != nil {
			log.Printf("GPIO write failed: %v", err)
			continue
		}

		timer := time.NewTimer(l.config.Pulse)
		select {
		case <-timer.C:
		case <-l.done:
			timer.Stop()
		}

		if err := l.set(false); err != nil {
			log.Printf("GPIO write failed: %v", err)
		}
		l.count.Add(1)
	}
}

func (l *LED) set(high bool) error {
	v := "0"
	if high {
		v = "1"
	}
	return writeFile(l.valuePath, v)
}

func writeFile(path, value string) error {
	return os.WriteFile(path, []byte(value), 0644)
}
