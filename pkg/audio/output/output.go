// ABOUTME: Playback interface definition
// ABOUTME: Common interface for looping clip players
package output

import (
	"errors"
	"time"

	"github.com/harperreed/lubdub/pkg/audio"
)

var (
	// ErrNotLoaded is returned by Play before a clip has been loaded
	ErrNotLoaded = errors.New("no clip loaded")

	// ErrClosed is returned after the player has been closed
	ErrClosed = errors.New("player closed")
)

// Player plays one clip, optionally looping it forever
type Player interface {
	// Load prepares a clip for playback, stopping any current playback
	Load(clip *audio.Clip) error

	// Play starts playback from the beginning of the clip
	Play(loop bool) error

	// Position returns time elapsed since Play, increasing across loops
	Position() time.Duration

	// IsBusy reports whether audio is still playing
	IsBusy() bool

	// Close releases output resources
	Close() error
}

// Volume is implemented by players with software gain
type Volume interface {
	SetVolume(volume int)
	SetMuted(muted bool)
	Volume() int
	IsMuted() bool
}
