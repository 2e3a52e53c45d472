package player

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/annolab/mediasync/pkg/audioio"
)

// delaySeed primes the observed start latencies so the first audio
// anchor can be estimated before any latency was measured. Tunable.
const delaySeed = 0.01

// maxObservedDelays bounds the rolling latency window.
const maxObservedDelays = 64

var videoExtensions = map[string]struct{}{
	".mp4": {}, ".avi": {}, ".mkv": {}, ".mov": {}, ".webm": {},
	".mpg": {}, ".mpeg": {}, ".m4v": {}, ".wmv": {}, ".flv": {},
}

// VideoExtension reports whether path looks like a video file.
func VideoExtension(path string) bool {
	_, ok := videoExtensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Member is one scheduled media stream.
type Member struct {
	// ID is a stable identifier used in logs and the status API.
	ID string

	// Player renders the stream.
	Player Player

	enabled bool
}

// Enabled reports whether the member participates in playback.
func (m *Member) Enabled() bool { return m.enabled }

// Scheduler plays an ordered set of media members in parallel. Videos
// start first so audios can align to a wall-clock anchor; each audio
// start measures its own latency and shifts the next one by it.
type Scheduler struct {
	logger  *slog.Logger
	newSink func() audioio.Sink
	vopts   []VideoOption

	mu             sync.Mutex
	members        []*Member
	fromTime       float64
	toTime         float64
	observedDelays []float64
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithSinkFactory replaces how audio sinks are created, one per audio
// member. Tests install mock sinks here.
func WithSinkFactory(f func() audioio.Sink) SchedulerOption {
	return func(s *Scheduler) { s.newSink = f }
}

// WithVideoOptions forwards options to every video member.
func WithVideoOptions(opts ...VideoOption) SchedulerOption {
	return func(s *Scheduler) { s.vopts = opts }
}

// NewScheduler creates an empty scheduler.
func NewScheduler(logger *slog.Logger, opts ...SchedulerOption) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Scheduler{
		logger:         logger,
		newSink:        func() audioio.Sink { return audioio.NewExecSink("", logger) },
		observedDelays: []float64{delaySeed},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddMedia loads path with the player its extension calls for.
func (s *Scheduler) AddMedia(path string) (*Member, error) {
	switch {
	case audioio.SupportedExtension(path):
		return s.AddAudio(path)
	case VideoExtension(path):
		return s.AddVideo(path)
	default:
		return s.AddUnsupported(path, 0)
	}
}

// AddAudio loads path as an audio member.
func (s *Scheduler) AddAudio(path string) (*Member, error) {
	p := NewAudioPlayer(s.newSink(), s.logger)
	return s.add(p, path)
}

// AddVideo loads path as a video member.
func (s *Scheduler) AddVideo(path string) (*Member, error) {
	p := NewVideoPlayer(s.logger, s.vopts...)
	return s.add(p, path)
}

// AddUnsupported registers a placeholder member with a fixed duration.
func (s *Scheduler) AddUnsupported(path string, duration float64) (*Member, error) {
	p := NewUndPlayer()
	p.SetDuration(duration)
	return s.add(p, path)
}

func (s *Scheduler) add(p Player, path string) (*Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.activeLocked() {
		return nil, fmt.Errorf("player: cannot add %s while the scheduler is active", path)
	}

	m := &Member{ID: uuid.NewString(), Player: p, enabled: true}
	if err := p.Load(path); err != nil {
		// The member stays in the set at StateUnknown; it neither
		// plays nor contributes to the duration.
		s.members = append(s.members, m)
		return m, err
	}
	s.members = append(s.members, m)
	s.toTime = s.durationLocked()
	s.logger.Info("member added",
		"id", m.ID, "file", path, "type", p.MediaType().String(),
		"duration", p.Duration())
	return m, nil
}

// Enable toggles a member's participation in playback.
func (s *Scheduler) Enable(id string, enabled bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.members {
		if m.ID == id {
			m.enabled = enabled
			return true
		}
	}
	return false
}

// Members returns a snapshot of the member list.
func (s *Scheduler) Members() []*Member {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Member, len(s.members))
	copy(out, s.members)
	return out
}

func (s *Scheduler) activeLocked() bool {
	for _, m := range s.members {
		switch m.Player.State() {
		case StatePlaying, StatePaused:
			return true
		}
	}
	return false
}

func (s *Scheduler) anyLoadingLocked() bool {
	for _, m := range s.members {
		if m.Player.State() == StateLoading {
			return true
		}
	}
	return false
}

func (s *Scheduler) durationLocked() float64 {
	var max float64
	for _, m := range s.members {
		switch m.Player.State() {
		case StateUnknown, StateLoading:
			continue
		}
		if d := m.Player.Duration(); d > max {
			max = d
		}
	}
	return max
}

// Duration returns the timeline length: the longest duration over the
// members that loaded.
func (s *Scheduler) Duration() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.durationLocked()
}

// Play starts playback of the current interval.
func (s *Scheduler) Play() bool {
	s.mu.Lock()
	from, to := s.fromTime, s.toTime
	s.mu.Unlock()
	return s.PlayInterval(from, to)
}

// PlayInterval starts every enabled member over [from, to]. Videos
// start first and set the wall-clock reference; audios follow in
// insertion order, each shifted forward by the start latencies realized
// so far.
func (s *Scheduler) PlayInterval(from, to float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.anyLoadingLocked() {
		s.logger.Warn("play refused while a member is loading")
		return false
	}
	duration := s.durationLocked()
	s.fromTime = clamp(from, 0, duration)
	s.toTime = clamp(to, s.fromTime, duration)
	if s.toTime == 0 {
		s.toTime = duration
	}

	started := false
	var startedTime, processTime time.Time

	for _, m := range s.members {
		v, ok := m.Player.(*VideoPlayer)
		if !ok || !m.enabled {
			continue
		}
		if v.PreparePlay(s.fromTime, s.toTime) && v.Play() {
			started = true
			startedTime = v.StartedAt()
			s.logger.Debug("video started", "id", m.ID, "from", s.fromTime, "to", s.toTime)
		}
	}

	shift := 0.0
	for _, m := range s.members {
		a, ok := m.Player.(*AudioPlayer)
		if !ok || !m.enabled {
			continue
		}
		if !startedTime.IsZero() && !processTime.IsZero() {
			delay := processTime.Sub(startedTime).Seconds()
			s.pushDelayLocked(delay)
			shift += delay
		}
		if !a.PreparePlay(s.fromTime+shift, s.toTime) || !a.Play() {
			s.logger.Warn("audio start refused", "id", m.ID, "state", a.State().String())
			continue
		}
		started = true
		if processTime.IsZero() {
			// First audio: estimate the previous anchor from the mean
			// observed latency.
			processTime = a.StartedAt()
			startedTime = processTime.Add(-time.Duration(s.meanDelayLocked() * float64(time.Second)))
		} else {
			startedTime = processTime
			processTime = a.StartedAt()
		}
		s.logger.Debug("audio started", "id", m.ID, "shift", shift)
	}
	return started
}

func (s *Scheduler) pushDelayLocked(delay float64) {
	s.observedDelays = append(s.observedDelays, delay)
	if len(s.observedDelays) > maxObservedDelays {
		s.observedDelays = s.observedDelays[len(s.observedDelays)-maxObservedDelays:]
	}
}

func (s *Scheduler) meanDelayLocked() float64 {
	sum := 0.0
	for _, d := range s.observedDelays {
		sum += d
	}
	return sum / float64(len(s.observedDelays))
}

// Pause suspends every playing member. The cursor of the first member
// that actually paused becomes the shared interval start, so the next
// Play resumes coherently.
func (s *Scheduler) Pause() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	paused := false
	for _, m := range s.members {
		if m.Player.State() != StatePlaying {
			continue
		}
		if m.Player.Pause() && !paused {
			paused = true
			s.fromTime = m.Player.Tell()
		}
	}
	return paused
}

// Stop stops every member and restores the canonical interval.
func (s *Scheduler) Stop() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	stopped := false
	for _, m := range s.members {
		if m.Player.Stop() {
			stopped = true
		}
	}
	s.fromTime = 0
	s.toTime = s.durationLocked()
	return stopped
}

// Seek moves every loaded member to t. The move is transactional with
// respect to the play state: a playing set pauses, seeks, then resumes.
func (s *Scheduler) Seek(t float64) bool {
	s.mu.Lock()
	wasPlaying := false
	for _, m := range s.members {
		if m.Player.State() == StatePlaying {
			wasPlaying = true
			break
		}
	}
	s.mu.Unlock()

	if wasPlaying {
		s.Pause()
	}

	s.mu.Lock()
	moved := false
	t = clamp(t, 0, s.durationLocked())
	for _, m := range s.members {
		switch m.Player.State() {
		case StateUnknown, StateLoading:
			continue
		}
		if m.Player.Seek(t) {
			moved = true
		}
	}
	s.fromTime = t
	to := s.toTime
	s.mu.Unlock()

	if wasPlaying {
		return s.PlayInterval(t, to)
	}
	return moved
}

// Tell returns the shared interval start, which tracks the first paused
// member's cursor across pause cycles.
func (s *Scheduler) Tell() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.members {
		if m.Player.State() == StatePlaying {
			return m.Player.Tell()
		}
	}
	return s.fromTime
}

// Playing reports whether any member is rendering.
func (s *Scheduler) Playing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.members {
		if m.Player.State() == StatePlaying {
			return true
		}
	}
	return false
}

// Paused reports whether the set is suspended with no member playing.
func (s *Scheduler) Paused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	anyPaused := false
	for _, m := range s.members {
		switch m.Player.State() {
		case StatePlaying:
			return false
		case StatePaused:
			anyPaused = true
		}
	}
	return anyPaused
}

// UpdatePlaying polls audio members so ones whose sink finished move to
// StateStopped. Hosts call this from their paint timer.
func (s *Scheduler) UpdatePlaying() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.members {
		if a, ok := m.Player.(*AudioPlayer); ok {
			a.UpdatePlaying()
		}
	}
}

// Close stops playback and releases member decoders.
func (s *Scheduler) Close() error {
	s.Stop()
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.members {
		if v, ok := m.Player.(*VideoPlayer); ok {
			v.Close()
		}
	}
	return nil
}
