package audioio

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"
)

const floatTolerance = 1e-9

// toneClip builds a mono 16-bit clip of the given duration filled with a
// ramp so slices are distinguishable.
func toneClip(t *testing.T, seconds float64, rate int) Clip {
	t.Helper()
	frames := int(seconds * float64(rate))
	pcm := make([]byte, frames*2)
	for i := 0; i < frames; i++ {
		pcm[2*i] = byte(i)
		pcm[2*i+1] = byte(i >> 8)
	}
	return Clip{PCM: pcm, SampleRate: rate, SampleWidth: 2, Channels: 1}
}

func TestClipValidate(t *testing.T) {
	c := Clip{SampleRate: 16000, SampleWidth: 2, Channels: 1}
	if err := c.Validate(); err != nil {
		t.Fatalf("valid clip rejected: %v", err)
	}

	bad := []Clip{
		{SampleRate: 0, SampleWidth: 2, Channels: 1},
		{SampleRate: 16000, SampleWidth: 3, Channels: 1},
		{SampleRate: 16000, SampleWidth: 2, Channels: 0},
	}
	for i, c := range bad {
		if err := c.Validate(); err == nil {
			t.Errorf("clip %d: expected validation error", i)
		}
	}
}

func TestClipDuration(t *testing.T) {
	c := toneClip(t, 2.5, 16000)
	if got := c.Duration(); math.Abs(got-2.5) > floatTolerance {
		t.Fatalf("Duration() = %v, want 2.5", got)
	}
	if got := c.Frames(); got != 40000 {
		t.Fatalf("Frames() = %d, want 40000", got)
	}
	if got := c.FrameSize(); got != 2 {
		t.Fatalf("FrameSize() = %d, want 2", got)
	}
}

func TestClipSlice(t *testing.T) {
	c := toneClip(t, 2.0, 16000)

	s := c.Slice(0.5, 1.5)
	if got := s.Duration(); math.Abs(got-1.0) > floatTolerance {
		t.Fatalf("slice duration = %v, want 1.0", got)
	}
	// Bytes are shared with the parent, with the right offset.
	wantFirst := c.PCM[int(0.5*16000)*2]
	if s.PCM[0] != wantFirst {
		t.Fatalf("slice starts at byte %d, want %d", s.PCM[0], wantFirst)
	}

	// Out-of-range bounds clamp instead of panicking.
	s = c.Slice(-1.0, 10.0)
	if got := s.Duration(); math.Abs(got-2.0) > floatTolerance {
		t.Fatalf("clamped slice duration = %v, want 2.0", got)
	}
	s = c.Slice(1.5, 0.5)
	if got := s.Frames(); got != 0 {
		t.Fatalf("inverted slice has %d frames, want 0", got)
	}
}

func TestPreferredRates(t *testing.T) {
	if !IsPreferredRate(48000) {
		t.Error("48000 should be preferred")
	}
	if IsPreferredRate(44100) {
		t.Error("44100 should not be preferred")
	}
}

func TestWAVRoundTrip(t *testing.T) {
	orig := toneClip(t, 0.25, 16000)
	raw, err := EncodeWAV(orig)
	if err != nil {
		t.Fatalf("EncodeWAV: %v", err)
	}

	path := filepath.Join(t.TempDir(), "tone.wav")
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatal(err)
	}

	src, err := NewFileSource(path)
	if err != nil {
		t.Fatalf("NewFileSource: %v", err)
	}
	if src.Name() != "wav" {
		t.Fatalf("source name = %q, want wav", src.Name())
	}
	got, err := src.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.SampleRate != orig.SampleRate || got.SampleWidth != orig.SampleWidth || got.Channels != orig.Channels {
		t.Fatalf("metadata mismatch: got %d/%d/%d", got.SampleRate, got.SampleWidth, got.Channels)
	}
	if len(got.PCM) != len(orig.PCM) {
		t.Fatalf("PCM length = %d, want %d", len(got.PCM), len(orig.PCM))
	}
	for i := range got.PCM {
		if got.PCM[i] != orig.PCM[i] {
			t.Fatalf("PCM differs at byte %d", i)
		}
	}
}

func TestWAVRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "noise.wav")
	if err := os.WriteFile(path, []byte("definitely not a wave file"), 0o644); err != nil {
		t.Fatal(err)
	}
	var src WAVSource
	if _, err := src.Load(path); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestSourceDispatch(t *testing.T) {
	cases := []struct {
		path string
		name string
	}{
		{"speech.wav", "wav"},
		{"SPEECH.WAVE", "wav"},
		{"speech.opus", "opus"},
		{"speech.ogg", "opus"},
	}
	for _, tc := range cases {
		src, err := NewFileSource(tc.path)
		if err != nil {
			t.Errorf("%s: %v", tc.path, err)
			continue
		}
		if src.Name() != tc.name {
			t.Errorf("%s: source %q, want %q", tc.path, src.Name(), tc.name)
		}
	}

	if _, err := NewFileSource("speech.mp3"); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat for mp3, got %v", err)
	}
	if SupportedExtension("a.flac") {
		t.Error("flac should not be supported")
	}
}

func TestMockSinkLifecycle(t *testing.T) {
	sink := NewMockSink(WithSpeed(50))
	defer sink.Close()

	clip := toneClip(t, 1.0, 16000)
	if err := sink.Play(context.Background(), clip); err != nil {
		t.Fatalf("Play: %v", err)
	}
	if !sink.Playing() {
		t.Fatal("sink should report playing right after Play")
	}
	if err := sink.Play(context.Background(), clip); !errors.Is(err, ErrSinkBusy) {
		t.Fatalf("expected ErrSinkBusy, got %v", err)
	}

	// At 50x a one-second clip finishes in 20ms.
	deadline := time.Now().Add(2 * time.Second)
	for sink.Playing() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if sink.Playing() {
		t.Fatal("sink still playing after the simulated clip ended")
	}
}

func TestMockSinkStop(t *testing.T) {
	sink := NewMockSink()
	defer sink.Close()

	if err := sink.Play(context.Background(), toneClip(t, 60, 16000)); err != nil {
		t.Fatalf("Play: %v", err)
	}
	if err := sink.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if sink.Playing() {
		t.Fatal("sink should be idle after Stop")
	}
}

func TestMockSinkRejectsInvalidClip(t *testing.T) {
	sink := NewMockSink()
	defer sink.Close()
	if err := sink.Play(context.Background(), Clip{}); err == nil {
		t.Fatal("expected validation error for the zero clip")
	}
}
