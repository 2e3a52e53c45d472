package player

import (
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"gocv.io/x/gocv"

	"github.com/annolab/mediasync/pkg/imaging"
)

// fakeSource serves synthetic frames so pump tests run without media
// files or a video codec.
type fakeSource struct {
	mu     sync.Mutex
	pos    int
	frames int
	fps    float64
	closed bool
}

func newFakeSource(frames int, fps float64) *fakeSource {
	return &fakeSource{frames: frames, fps: fps}
}

func (f *fakeSource) Read(dst *gocv.Mat) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed || f.pos >= f.frames {
		return false
	}
	f.pos++
	m := gocv.NewMatWithSize(8, 8, gocv.MatTypeCV8UC3)
	defer m.Close()
	m.CopyTo(dst)
	return true
}

func (f *fakeSource) Seek(frame int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if frame < 0 {
		frame = 0
	}
	f.pos = frame
}

func (f *fakeSource) Framerate() float64 { return f.fps }

func (f *fakeSource) FrameCount() int { return f.frames }

func (f *fakeSource) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func newTestVideo(t *testing.T, frames int, fps float64, opts ...VideoOption) *VideoPlayer {
	t.Helper()
	src := newFakeSource(frames, fps)
	opts = append(opts, WithFrameSource(func(string) (FrameSource, error) { return src, nil }))
	v := NewVideoPlayer(nil, opts...)
	if err := v.Load("clip.mp4"); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return v
}

func waitForState(t *testing.T, p Player, want State, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if p.State() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("state = %v, want %v", p.State(), want)
}

func TestVideoLoad(t *testing.T) {
	v := newTestVideo(t, 100, 25)
	defer v.Close()
	if v.State() != StateStopped {
		t.Fatalf("state = %v, want stopped", v.State())
	}
	if math.Abs(v.Duration()-4.0) > 1e-6 {
		t.Fatalf("duration = %v, want 4.0", v.Duration())
	}
	if v.Framerate() != 25 {
		t.Fatalf("framerate = %v, want 25", v.Framerate())
	}
	if v.MediaType() != MediaVideo {
		t.Fatalf("media type = %v", v.MediaType())
	}
}

func TestVideoPumpRunsToEnd(t *testing.T) {
	var hookMu sync.Mutex
	hookCalls := 0
	v := newTestVideo(t, 5, 50, WithFrameHook(func(_ *imaging.Image, _ float64) {
		hookMu.Lock()
		hookCalls++
		hookMu.Unlock()
	}))
	defer v.Close()

	if !v.Play() {
		t.Fatal("Play refused")
	}
	waitForState(t, v, StateStopped, 2*time.Second)

	img := v.CurrentImage()
	if img == nil {
		t.Fatal("no frame was published")
	}
	defer img.Close()
	if img.Channels() != 3 {
		t.Fatalf("published frame has %d channels, want 3", img.Channels())
	}
	hookMu.Lock()
	defer hookMu.Unlock()
	if hookCalls == 0 {
		t.Fatal("frame hook was never invoked")
	}
}

func TestVideoPauseKeepsCursor(t *testing.T) {
	v := newTestVideo(t, 200, 20)
	defer v.Close()

	if !v.Play() {
		t.Fatal("Play refused")
	}
	time.Sleep(150 * time.Millisecond)
	if !v.Pause() {
		t.Fatal("Pause refused while playing")
	}
	at := v.Tell()
	// Allow two frame periods of slack around the slept interval.
	if at < 0.05 || at > 0.30 {
		t.Fatalf("paused cursor = %v, expected near 0.15", at)
	}
	if v.State() != StatePaused {
		t.Fatalf("state = %v, want paused", v.State())
	}

	if !v.Play() {
		t.Fatal("Play refused from paused")
	}
	if v.State() != StatePlaying {
		t.Fatalf("state = %v, want playing", v.State())
	}
	v.Stop()
	if v.Tell() != 0 {
		t.Fatalf("cursor after stop = %v, want 0", v.Tell())
	}
}

func TestVideoSeekWhileStopped(t *testing.T) {
	v := newTestVideo(t, 100, 25)
	defer v.Close()
	if !v.Seek(2.0) {
		t.Fatal("Seek refused")
	}
	if math.Abs(v.Tell()-2.0) > 1e-6 {
		t.Fatalf("tell = %v, want 2.0", v.Tell())
	}
}

// exclusiveSource counts overlapping decoder calls. Unlike fakeSource's
// internal mutex it does not serialize callers, so concurrent access
// shows up as a nonzero overlap count instead of being hidden.
type exclusiveSource struct {
	fakeSource
	active   int32
	overlaps int32
}

func (s *exclusiveSource) enter() {
	if atomic.AddInt32(&s.active, 1) > 1 {
		atomic.AddInt32(&s.overlaps, 1)
	}
	time.Sleep(2 * time.Millisecond)
}

func (s *exclusiveSource) exit() { atomic.AddInt32(&s.active, -1) }

func (s *exclusiveSource) Read(dst *gocv.Mat) bool {
	s.enter()
	defer s.exit()
	return s.fakeSource.Read(dst)
}

func (s *exclusiveSource) Seek(frame int) {
	s.enter()
	defer s.exit()
	s.fakeSource.Seek(frame)
}

func TestVideoDecoderNeverShared(t *testing.T) {
	src := &exclusiveSource{fakeSource: fakeSource{frames: 10000, fps: 100}}
	v := NewVideoPlayer(nil, WithFrameSource(func(string) (FrameSource, error) { return src, nil }))
	if err := v.Load("clip.mp4"); err != nil {
		t.Fatalf("Load: %v", err)
	}
	defer v.Close()

	if !v.Play() {
		t.Fatal("Play refused")
	}
	// Seek while playing retires one pump and starts the next; each
	// cycle is a chance for the two to touch the decoder together.
	for i := 1; i <= 10; i++ {
		if !v.Seek(float64(i)) {
			t.Fatalf("Seek(%d) refused", i)
		}
		time.Sleep(5 * time.Millisecond)
	}
	if !v.Pause() {
		t.Fatal("Pause refused")
	}
	if !v.Play() {
		t.Fatal("resume refused")
	}
	v.Stop()

	if n := atomic.LoadInt32(&src.overlaps); n != 0 {
		t.Fatalf("decoder was accessed concurrently %d times", n)
	}
}

func TestVideoTellFrameMidpoint(t *testing.T) {
	v := newTestVideo(t, 200, 20)
	defer v.Close()

	if !v.Play() {
		t.Fatal("Play refused")
	}
	time.Sleep(150 * time.Millisecond)
	if !v.Pause() {
		t.Fatal("Pause refused")
	}
	at := v.Tell()
	if at <= 0 {
		t.Fatalf("tell = %v, expected at least one consumed frame", at)
	}
	// The cursor sits at the midpoint of the last consumed frame, so
	// tell*fps must land on a half-frame boundary.
	frames := at*20.0 + 0.5
	if math.Abs(frames-math.Round(frames)) > 1e-6 {
		t.Fatalf("tell = %v is not a frame midpoint at 20 fps", at)
	}
}

func TestVideoLoadFailure(t *testing.T) {
	v := NewVideoPlayer(nil, WithFrameSource(func(string) (FrameSource, error) {
		return newFakeSource(10, 0), nil
	}))
	if err := v.Load("broken.mp4"); err == nil {
		t.Fatal("expected error for a zero framerate stream")
	}
	if v.State() != StateUnknown {
		t.Fatalf("state = %v, want unknown", v.State())
	}
}
