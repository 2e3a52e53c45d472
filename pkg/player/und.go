package player

import "sync"

// UndPlayer is a placeholder for files nothing renders. It carries an
// externally set duration so non-playable items, like a reference
// annotation track, still define the timeline length.
type UndPlayer struct {
	mu       sync.Mutex
	filename string
	duration float64
}

// NewUndPlayer creates an empty placeholder.
func NewUndPlayer() *UndPlayer { return &UndPlayer{} }

// Load stores the filename without touching the file.
func (u *UndPlayer) Load(path string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.filename = path
	return nil
}

// SetDuration fixes the timeline length the placeholder reports.
func (u *UndPlayer) SetDuration(d float64) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if d < 0 {
		d = 0
	}
	u.duration = d
}

// PreparePlay implements Player.
func (u *UndPlayer) PreparePlay(from, to float64) bool { return false }

// Play implements Player.
func (u *UndPlayer) Play() bool { return false }

// Pause implements Player.
func (u *UndPlayer) Pause() bool { return false }

// Stop implements Player.
func (u *UndPlayer) Stop() bool { return false }

// Seek implements Player.
func (u *UndPlayer) Seek(t float64) bool { return false }

// Tell implements Player.
func (u *UndPlayer) Tell() float64 { return 0 }

// Duration implements Player.
func (u *UndPlayer) Duration() float64 {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.duration
}

// Framerate implements Player.
func (u *UndPlayer) Framerate() float64 { return 0 }

// State implements Player.
func (u *UndPlayer) State() State {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.duration > 0 {
		return StateStopped
	}
	return StateUnknown
}

// MediaType implements Player.
func (u *UndPlayer) MediaType() MediaType { return MediaUnsupported }

// Filename implements Player.
func (u *UndPlayer) Filename() string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.filename
}
