package player

// Player is the capability set every scheduler member implements.
// Operations that can fail mid-stream report success with a bool and
// leave the error at the player's own boundary; only Load surfaces the
// underlying error to the caller.
type Player interface {
	// Load decodes the media at path. On failure the player drops to
	// StateUnknown and contributes nothing to the timeline.
	Load(path string) error

	// PreparePlay sets the interval to render. It returns false when
	// the player cannot accept an interval in its current state.
	PreparePlay(from, to float64) bool

	// Play starts rendering the prepared interval.
	Play() bool

	// Pause suspends rendering and moves the interval start to the
	// current position.
	Pause() bool

	// Stop resets the position to zero and restores the full interval.
	Stop() bool

	// Seek moves the position to t seconds, clamped to the media
	// bounds, keeping the play or pause state.
	Seek(t float64) bool

	// Tell returns the current position in seconds.
	Tell() float64

	// Duration returns the media length in seconds, 0 when unknown.
	Duration() float64

	// Framerate returns frames (or samples) per second, 0 when unknown.
	Framerate() float64

	// State returns the lifecycle state.
	State() State

	// MediaType returns what the player renders.
	MediaType() MediaType

	// Filename returns the loaded path, empty before Load.
	Filename() string
}

func clamp(t, lo, hi float64) float64 {
	if t < lo {
		return lo
	}
	if t > hi {
		return hi
	}
	return t
}
