package player

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/annolab/mediasync/pkg/audioio"
)

// AudioPlayer renders one audio file. The whole waveform is decoded
// into memory on Load; Play slices the buffer at the prepared interval
// and hands the slice to the sink. Position while playing is derived
// from the wall-clock anchor captured at start.
type AudioPlayer struct {
	sink   audioio.Sink
	logger *slog.Logger

	mu       sync.Mutex
	filename string
	state    State
	clip     audioio.Clip
	duration float64
	fromTime float64
	toTime   float64
	startAt  time.Time
}

// NewAudioPlayer creates a player rendering through the given sink.
func NewAudioPlayer(sink audioio.Sink, logger *slog.Logger) *AudioPlayer {
	if logger == nil {
		logger = slog.Default()
	}
	return &AudioPlayer{sink: sink, logger: logger, state: StateUnknown}
}

// Load implements Player.
func (a *AudioPlayer) Load(path string) error {
	a.mu.Lock()
	a.filename = path
	a.state = StateLoading
	a.mu.Unlock()

	src, err := audioio.NewFileSource(path)
	if err == nil {
		var clip audioio.Clip
		clip, err = src.Load(path)
		if err == nil {
			a.mu.Lock()
			a.clip = clip
			a.duration = clip.Duration()
			a.fromTime = 0
			a.toTime = a.duration
			a.state = StateStopped
			a.mu.Unlock()
			if !audioio.IsPreferredRate(clip.SampleRate) {
				a.logger.Warn("audio sample rate outside the preferred set",
					"file", path, "rate", clip.SampleRate)
			}
			return nil
		}
	}

	a.mu.Lock()
	a.state = StateUnknown
	a.mu.Unlock()
	a.logger.Error("audio load failed", "file", path, "error", err)
	return err
}

// PreparePlay implements Player.
func (a *AudioPlayer) PreparePlay(from, to float64) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != StateStopped && a.state != StatePaused {
		return false
	}
	a.fromTime = clamp(from, 0, a.duration)
	a.toTime = clamp(to, a.fromTime, a.duration)
	return true
}

// Play implements Player.
func (a *AudioPlayer) Play() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.playLocked()
}

func (a *AudioPlayer) playLocked() bool {
	if a.state != StateStopped && a.state != StatePaused {
		return false
	}
	to := a.toTime
	if to > a.duration {
		to = a.duration
	}
	slice := a.clip.Slice(a.fromTime, to)
	if err := a.sink.Play(context.Background(), slice); err != nil {
		a.logger.Error("audio playback failed", "file", a.filename, "error", err)
		a.state = StateUnknown
		return false
	}
	a.startAt = time.Now()
	a.state = StatePlaying
	return true
}

// Pause implements Player.
func (a *AudioPlayer) Pause() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != StatePlaying {
		return false
	}
	a.sink.Stop()
	a.fromTime = clamp(a.fromTime+time.Since(a.startAt).Seconds(), 0, a.toTime)
	a.state = StatePaused
	return true
}

// Stop implements Player.
func (a *AudioPlayer) Stop() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stopLocked()
}

func (a *AudioPlayer) stopLocked() bool {
	if a.state == StateUnknown || a.state == StateLoading {
		return false
	}
	a.sink.Stop()
	a.fromTime = 0
	a.toTime = a.duration
	a.startAt = time.Time{}
	a.state = StateStopped
	return true
}

// Seek implements Player. While playing, playback restarts at t with a
// fresh wall-clock anchor.
func (a *AudioPlayer) Seek(t float64) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	switch a.state {
	case StateUnknown, StateLoading:
		return false
	case StatePlaying:
		a.sink.Stop()
		a.fromTime = clamp(t, 0, a.duration)
		a.state = StateStopped
		if !a.playLocked() {
			return false
		}
		return true
	default:
		a.fromTime = clamp(t, 0, a.duration)
		return true
	}
}

// Tell implements Player.
func (a *AudioPlayer) Tell() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state == StatePlaying {
		return clamp(a.fromTime+time.Since(a.startAt).Seconds(), 0, a.duration)
	}
	return a.fromTime
}

// UpdatePlaying moves the player to StateStopped once the sink reports
// the slice finished. The scheduler polls this.
func (a *AudioPlayer) UpdatePlaying() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state == StatePlaying && !a.sink.Playing() {
		a.stopLocked()
	}
}

// StartedAt returns the wall-clock anchor of the current playback, the
// zero time when not playing.
func (a *AudioPlayer) StartedAt() time.Time {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.startAt
}

// Duration implements Player.
func (a *AudioPlayer) Duration() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.duration
}

// Framerate implements Player. For audio this is the sample rate.
func (a *AudioPlayer) Framerate() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return float64(a.clip.SampleRate)
}

// State implements Player.
func (a *AudioPlayer) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// MediaType implements Player.
func (a *AudioPlayer) MediaType() MediaType { return MediaAudio }

// Filename implements Player.
func (a *AudioPlayer) Filename() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.filename
}
