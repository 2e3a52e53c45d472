package player

import (
	"math"
	"testing"
	"time"

	"github.com/annolab/mediasync/pkg/audioio"
)

func newTestScheduler() *Scheduler {
	return NewScheduler(nil, WithSinkFactory(func() audioio.Sink {
		return audioio.NewMockSink()
	}))
}

func TestSchedulerDurationIsMax(t *testing.T) {
	s := newTestScheduler()
	defer s.Close()

	if _, err := s.AddAudio(writeWAV(t, 3.0)); err != nil {
		t.Fatalf("AddAudio: %v", err)
	}
	if _, err := s.AddAudio(writeWAV(t, 2.5)); err != nil {
		t.Fatalf("AddAudio: %v", err)
	}
	if math.Abs(s.Duration()-3.0) > 1e-6 {
		t.Fatalf("duration = %v, want 3.0", s.Duration())
	}

	// A placeholder track extends the timeline.
	m, err := s.AddUnsupported("annotations.xra", 8.0)
	if err != nil {
		t.Fatalf("AddUnsupported: %v", err)
	}
	if math.Abs(s.Duration()-8.0) > 1e-6 {
		t.Fatalf("duration with placeholder = %v, want 8.0", s.Duration())
	}

	// A failed member contributes nothing.
	if _, err := s.AddAudio("/nonexistent/audio.wav"); err == nil {
		t.Fatal("expected load error")
	}
	if math.Abs(s.Duration()-8.0) > 1e-6 {
		t.Fatalf("duration after failed add = %v, want 8.0", s.Duration())
	}

	// Disabling does not change the timeline, only playback.
	if !s.Enable(m.ID, false) {
		t.Fatal("Enable by id failed")
	}
}

func TestSchedulerTwoAudioInterval(t *testing.T) {
	s := newTestScheduler()
	defer s.Close()

	a, err := s.AddAudio(writeWAV(t, 0.6))
	if err != nil {
		t.Fatalf("AddAudio: %v", err)
	}
	b, err := s.AddAudio(writeWAV(t, 0.5))
	if err != nil {
		t.Fatalf("AddAudio: %v", err)
	}

	if !s.PlayInterval(0, 0.2) {
		t.Fatal("PlayInterval refused")
	}
	if !s.Playing() {
		t.Fatal("scheduler should report playing")
	}

	deadline := time.Now().Add(2 * time.Second)
	for s.Playing() && time.Now().Before(deadline) {
		s.UpdatePlaying()
		time.Sleep(10 * time.Millisecond)
	}
	if a.Player.State() != StateStopped || b.Player.State() != StateStopped {
		t.Fatalf("states = %v/%v, want both stopped",
			a.Player.State(), b.Player.State())
	}
	if math.Abs(s.Duration()-0.6) > 1e-6 {
		t.Fatalf("duration = %v, want 0.6", s.Duration())
	}
}

func TestSchedulerRefusesAddWhileActive(t *testing.T) {
	s := newTestScheduler()
	defer s.Close()

	if _, err := s.AddAudio(writeWAV(t, 1.0)); err != nil {
		t.Fatalf("AddAudio: %v", err)
	}
	if !s.PlayInterval(0, 1.0) {
		t.Fatal("PlayInterval refused")
	}
	if _, err := s.AddAudio(writeWAV(t, 1.0)); err == nil {
		t.Fatal("adding while playing must be refused")
	}

	s.Pause()
	if _, err := s.AddAudio(writeWAV(t, 1.0)); err == nil {
		t.Fatal("adding while paused must be refused")
	}

	s.Stop()
	if _, err := s.AddAudio(writeWAV(t, 1.0)); err != nil {
		t.Fatalf("adding after stop failed: %v", err)
	}
}

func TestSchedulerPauseResume(t *testing.T) {
	s := newTestScheduler()
	defer s.Close()

	if _, err := s.AddAudio(writeWAV(t, 5.0)); err != nil {
		t.Fatalf("AddAudio: %v", err)
	}
	if !s.PlayInterval(0, 5.0) {
		t.Fatal("PlayInterval refused")
	}
	time.Sleep(100 * time.Millisecond)
	if !s.Pause() {
		t.Fatal("Pause refused")
	}
	pausedAt := s.Tell()
	if pausedAt < 0.08 || pausedAt > 0.5 {
		t.Fatalf("paused cursor = %v, expected near 0.1", pausedAt)
	}

	if !s.Play() {
		t.Fatal("resume refused")
	}
	if !s.Playing() {
		t.Fatal("scheduler should be playing after resume")
	}
	if got := s.Tell(); got < pausedAt-0.01 {
		t.Fatalf("resume rewound the cursor: %v < %v", got, pausedAt)
	}
	s.Stop()
}

func TestSchedulerStopRestoresInterval(t *testing.T) {
	s := newTestScheduler()
	defer s.Close()

	if _, err := s.AddAudio(writeWAV(t, 2.0)); err != nil {
		t.Fatalf("AddAudio: %v", err)
	}
	if !s.PlayInterval(0.5, 1.5) {
		t.Fatal("PlayInterval refused")
	}
	if !s.Stop() {
		t.Fatal("Stop refused")
	}
	if s.Tell() != 0 {
		t.Fatalf("cursor after stop = %v, want 0", s.Tell())
	}
	if s.Playing() || s.Paused() {
		t.Fatal("scheduler should be idle after stop")
	}
}

func TestSchedulerSeek(t *testing.T) {
	s := newTestScheduler()
	defer s.Close()

	m, err := s.AddAudio(writeWAV(t, 10.0))
	if err != nil {
		t.Fatalf("AddAudio: %v", err)
	}

	// Seek at rest just moves cursors.
	if !s.Seek(4.0) {
		t.Fatal("Seek refused at rest")
	}
	if got := m.Player.Tell(); math.Abs(got-4.0) > 1e-6 {
		t.Fatalf("member cursor = %v, want 4.0", got)
	}

	// Seek while playing pauses, moves everyone, then resumes.
	if !s.PlayInterval(0, 10.0) {
		t.Fatal("PlayInterval refused")
	}
	if !s.Seek(6.0) {
		t.Fatal("Seek refused while playing")
	}
	if !s.Playing() {
		t.Fatal("seek must resume a playing set")
	}
	if got := s.Tell(); got < 6.0 || got > 6.2 {
		t.Fatalf("cursor after seek = %v, want within [6.0, 6.2]", got)
	}
	s.Stop()
}

func TestSchedulerAddMediaDispatch(t *testing.T) {
	s := newTestScheduler()
	defer s.Close()

	m, err := s.AddMedia(writeWAV(t, 1.0))
	if err != nil {
		t.Fatalf("AddMedia: %v", err)
	}
	if m.Player.MediaType() != MediaAudio {
		t.Fatalf("media type = %v, want audio", m.Player.MediaType())
	}

	m, err = s.AddMedia("notes.txt")
	if err != nil {
		t.Fatalf("AddMedia placeholder: %v", err)
	}
	if m.Player.MediaType() != MediaUnsupported {
		t.Fatalf("media type = %v, want unsupported", m.Player.MediaType())
	}

	if !VideoExtension("talk.mp4") || VideoExtension("talk.wav") {
		t.Fatal("video extension dispatch is wrong")
	}
}

func TestSchedulerObservedDelaySeed(t *testing.T) {
	s := newTestScheduler()
	if len(s.observedDelays) != 1 || s.observedDelays[0] != delaySeed {
		t.Fatalf("observedDelays = %v, want seeded with %v", s.observedDelays, delaySeed)
	}

	if _, err := s.AddAudio(writeWAV(t, 1.0)); err != nil {
		t.Fatalf("AddAudio: %v", err)
	}
	if _, err := s.AddAudio(writeWAV(t, 1.0)); err != nil {
		t.Fatalf("AddAudio: %v", err)
	}
	if !s.PlayInterval(0, 1.0) {
		t.Fatal("PlayInterval refused")
	}
	s.Stop()
	// A second audio start records one realized latency.
	if len(s.observedDelays) < 2 {
		t.Fatalf("observedDelays = %v, expected a recorded latency", s.observedDelays)
	}
	s.Close()
}
