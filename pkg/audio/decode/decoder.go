// ABOUTME: File decoding entry point
// ABOUTME: Picks a codec by extension and returns a fully decoded clip
package decode

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/harperreed/lubdub/pkg/audio"
)

// ErrUnsupportedFormat is returned for files with an unknown extension or codec
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// Codecs lists the codec names Decode understands
var Codecs = []string{"mp3", "flac", "wav", "ogg", "opus"}

// CodecFromPath returns the codec name implied by a file extension
func CodecFromPath(path string) (string, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	switch ext {
	case "mp3", "flac", "wav", "ogg", "opus":
		return ext, nil
	case "wave":
		return "wav", nil
	case "oga":
		return "ogg", nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// File decodes the audio file at path. A positive targetRate resamples the
// result; zero keeps the native rate.
func File(path string, targetRate int) (*audio.Clip, error) {
	codec, err := CodecFromPath(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio file: %w", err)
	}

	clip, err := Decode(bytes.NewReader(data), codec)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", filepath.Base(path), err)
	}

	log.Printf("Decoded %s: %s %dHz %dch, %v", filepath.Base(path),
		clip.Format.Codec, clip.Format.SampleRate, clip.Format.Channels, clip.Duration())

	if targetRate > 0 && targetRate != clip.Format.SampleRate {
		clip = clip.Resampled(targetRate)
		log.Printf("Resampled to %dHz", targetRate)
	}
	return clip, nil
}

// Decode decodes an entire stream in the named codec
func Decode(r io.ReadSeeker, codec string) (*audio.Clip, error) {
	var (
		clip *audio.Clip
		err  error
	)

	switch codec {
	case "mp3":
		clip, err = DecodeMP3(r)
	case "flac":
		clip, err = DecodeFLAC(r)
	case "wav":
		clip, err = DecodeWAV(r)
	case "ogg":
		clip, err = DecodeVorbis(r)
	case "opus":
		clip, err = DecodeOpus(r)
	default:
		return nil, fmt.Errorf("%w: codec %q", ErrUnsupportedFormat, codec)
	}
	if err != nil {
		return nil, err
	}

	if clip.Format.SampleRate <= 0 || clip.Format.Channels <= 0 {
		return nil, fmt.Errorf("invalid stream format: %dHz %dch", clip.Format.SampleRate, clip.Format.Channels)
	}
	return clip, nil
}
