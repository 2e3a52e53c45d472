// Package audioio provides audio decoding and playback behind two small
// interfaces: a FileSource that yields raw PCM clips plus metadata, and a
// Sink that plays a clip. The player core stays testable with the mock
// sink; real playback is delegated to an external process.
package audioio

import (
	"errors"
	"fmt"
)

// Sentinel errors for common error conditions.
var (
	// ErrUnsupportedFormat is returned for a file no source can decode.
	ErrUnsupportedFormat = errors.New("audioio: unsupported audio format")

	// ErrEmptyClip is returned when an operation needs PCM data and the
	// clip has none.
	ErrEmptyClip = errors.New("audioio: empty clip")

	// ErrSinkBusy is returned when Play is called on a sink that is
	// already playing.
	ErrSinkBusy = errors.New("audioio: sink already playing")
)

// PreferredRates are the sample rates consumers expect; other rates play
// fine but are flagged.
var PreferredRates = []int{16000, 32000, 48000}

// IsPreferredRate reports whether rate is one of PreferredRates.
func IsPreferredRate(rate int) bool {
	for _, r := range PreferredRates {
		if r == rate {
			return true
		}
	}
	return false
}

// Clip is a fully decoded waveform: interleaved little-endian PCM frames
// plus the metadata needed to interpret them.
type Clip struct {
	// PCM holds the interleaved sample bytes.
	PCM []byte

	// SampleRate is the number of frames per second.
	SampleRate int

	// SampleWidth is the byte width of one sample: 1, 2 or 4.
	SampleWidth int

	// Channels is the number of interleaved channels.
	Channels int
}

// Validate checks the clip metadata.
func (c *Clip) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("audioio: sample rate must be positive, got %d", c.SampleRate)
	}
	switch c.SampleWidth {
	case 1, 2, 4:
	default:
		return fmt.Errorf("audioio: sample width must be 1, 2 or 4 bytes, got %d", c.SampleWidth)
	}
	if c.Channels <= 0 {
		return fmt.Errorf("audioio: channels must be positive, got %d", c.Channels)
	}
	return nil
}

// FrameSize returns the byte size of one frame across all channels.
func (c *Clip) FrameSize() int {
	return c.SampleWidth * c.Channels
}

// Frames returns the number of frames in the clip.
func (c *Clip) Frames() int {
	fs := c.FrameSize()
	if fs == 0 {
		return 0
	}
	return len(c.PCM) / fs
}

// Duration returns the clip length in seconds.
func (c *Clip) Duration() float64 {
	if c.SampleRate == 0 {
		return 0
	}
	return float64(c.Frames()) / float64(c.SampleRate)
}

// Slice returns the sub-clip covering [from, to) in seconds, clamped to
// the clip bounds. The PCM bytes are shared, not copied.
func (c *Clip) Slice(from, to float64) Clip {
	fs := c.FrameSize()
	n := c.Frames()
	lo := int(from * float64(c.SampleRate))
	hi := int(to * float64(c.SampleRate))
	if lo < 0 {
		lo = 0
	}
	if hi > n {
		hi = n
	}
	if lo > hi {
		lo = hi
	}
	return Clip{
		PCM:         c.PCM[lo*fs : hi*fs],
		SampleRate:  c.SampleRate,
		SampleWidth: c.SampleWidth,
		Channels:    c.Channels,
	}
}
