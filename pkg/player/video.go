package player

import (
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/annolab/mediasync/pkg/imaging"
)

// FrameSource decodes a video stream frame by frame. It is the seam
// that keeps the pump testable without real media files.
type FrameSource interface {
	// Read decodes the next frame into dst. It returns false at end of
	// stream or on a decoder error.
	Read(dst *gocv.Mat) bool

	// Seek positions the stream at the given frame index.
	Seek(frame int)

	// Framerate returns frames per second.
	Framerate() float64

	// FrameCount returns the total number of frames, 0 when unknown.
	FrameCount() int

	// Close releases the decoder.
	Close() error
}

// OpenFrameSource opens a media file, the production FrameSource.
type OpenFrameSource func(path string) (FrameSource, error)

type captureSource struct {
	vc *gocv.VideoCapture
}

func openCapture(path string) (FrameSource, error) {
	vc, err := gocv.OpenVideoCapture(path)
	if err != nil {
		return nil, fmt.Errorf("player: open video %s: %w", path, err)
	}
	return &captureSource{vc: vc}, nil
}

func (c *captureSource) Read(dst *gocv.Mat) bool { return c.vc.Read(dst) }

func (c *captureSource) Seek(frame int) {
	c.vc.Set(gocv.VideoCapturePosFrames, float64(frame))
}

func (c *captureSource) Framerate() float64 {
	return c.vc.Get(gocv.VideoCaptureFPS)
}

func (c *captureSource) FrameCount() int {
	return int(c.vc.Get(gocv.VideoCaptureFrameCount))
}

func (c *captureSource) Close() error { return c.vc.Close() }

// FrameHook observes each published frame together with its position in
// seconds. Detection pipelines and the web hub attach here.
type FrameHook func(img *imaging.Image, at float64)

// VideoPlayer renders one video file. Play spawns a pump goroutine that
// reads frames, sleeps when ahead of the wall clock and skips frames
// when behind, and publishes each decoded frame in RGB order. A host
// timer reads CurrentImage and paints it.
type VideoPlayer struct {
	open   OpenFrameSource
	logger *slog.Logger

	mu        sync.Mutex
	filename  string
	state     State
	src       FrameSource
	framerate float64
	duration  float64
	fromTime  float64
	toTime    float64
	startAt   time.Time
	cursor    float64
	gen       int

	// pumpDone is closed when the pump owning the current gen exits.
	// Whoever retires a pump waits on it before the decoder is touched
	// again; the decoder is not safe for concurrent use.
	pumpDone chan struct{}

	frameMu sync.RWMutex
	current *imaging.Image
	hook    FrameHook
}

// VideoOption configures a VideoPlayer.
type VideoOption func(*VideoPlayer)

// WithFrameSource replaces the media decoder, for tests.
func WithFrameSource(open OpenFrameSource) VideoOption {
	return func(v *VideoPlayer) { v.open = open }
}

// WithFrameHook attaches a per-frame observer.
func WithFrameHook(hook FrameHook) VideoOption {
	return func(v *VideoPlayer) { v.hook = hook }
}

// NewVideoPlayer creates a video player.
func NewVideoPlayer(logger *slog.Logger, opts ...VideoOption) *VideoPlayer {
	if logger == nil {
		logger = slog.Default()
	}
	v := &VideoPlayer{open: openCapture, logger: logger, state: StateUnknown}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Load implements Player.
func (v *VideoPlayer) Load(path string) error {
	v.mu.Lock()
	if v.src != nil {
		v.src.Close()
		v.src = nil
	}
	v.filename = path
	v.state = StateLoading
	open := v.open
	v.mu.Unlock()

	src, err := open(path)
	if err == nil && src.Framerate() <= 0 {
		src.Close()
		err = fmt.Errorf("player: %s reports no framerate", path)
	}
	if err != nil {
		v.mu.Lock()
		v.state = StateUnknown
		v.mu.Unlock()
		v.logger.Error("video load failed", "file", path, "error", err)
		return err
	}

	v.mu.Lock()
	v.src = src
	v.framerate = src.Framerate()
	v.duration = float64(src.FrameCount()) / v.framerate
	v.fromTime = 0
	v.toTime = v.duration
	v.cursor = 0
	v.state = StateStopped
	v.mu.Unlock()
	return nil
}

// PreparePlay implements Player.
func (v *VideoPlayer) PreparePlay(from, to float64) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.state != StateStopped && v.state != StatePaused {
		return false
	}
	v.fromTime = clamp(from, 0, v.duration)
	v.toTime = clamp(to, v.fromTime, v.duration)
	return true
}

// Play implements Player. The pump worker owns the decoder until the
// state leaves StatePlaying; a retired pump is drained first so two
// pumps never share the source.
func (v *VideoPlayer) Play() bool {
	v.mu.Lock()
	if v.state != StateStopped && v.state != StatePaused {
		v.mu.Unlock()
		return false
	}
	stale := v.pumpDone
	v.mu.Unlock()
	if stale != nil {
		<-stale
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.state != StateStopped && v.state != StatePaused {
		return false
	}
	startFrame := int(v.fromTime * v.framerate)
	v.src.Seek(startFrame)
	v.cursor = v.fromTime
	v.startAt = time.Now()
	v.state = StatePlaying
	v.gen++
	v.pumpDone = make(chan struct{})
	go v.pump(v.gen, startFrame, v.startAt, v.pumpDone)
	return true
}

// retirePumpLocked invalidates the running pump and hands back its done
// channel. The caller must release the mutex, then wait on the channel,
// before the decoder may be used again.
func (v *VideoPlayer) retirePumpLocked() chan struct{} {
	v.gen++
	done := v.pumpDone
	v.pumpDone = nil
	return done
}

// pump reads and publishes frames, keeping the stream aligned with the
// wall clock. gen guards against a stale pump resurrecting state after
// a stop/play cycle; done signals the pump released the decoder.
func (v *VideoPlayer) pump(gen, startFrame int, startAt time.Time, done chan struct{}) {
	defer func() {
		v.mu.Lock()
		if v.pumpDone == done {
			v.pumpDone = nil
		}
		v.mu.Unlock()
		close(done)
	}()

	timeDelay := 1.0 / v.Framerate()
	minSleep := timeDelay / 4
	buf := gocv.NewMat()
	defer buf.Close()

	frm := startFrame
	for {
		v.mu.Lock()
		if v.gen != gen || v.state != StatePlaying {
			v.mu.Unlock()
			return
		}
		src := v.src
		lastFrame := int(v.toTime * v.framerate)
		v.mu.Unlock()

		if !src.Read(&buf) || frm >= lastFrame {
			v.finishPump(gen)
			return
		}
		frm++
		consumed := frm

		expected := startAt.Add(time.Duration(float64(frm-startFrame) * timeDelay * float64(time.Second)))
		now := time.Now()
		if now.Before(expected) {
			if gap := expected.Sub(now); gap.Seconds() > minSleep {
				time.Sleep(gap)
			}
		} else if lag := now.Sub(expected).Seconds(); lag > timeDelay {
			skip := int(math.Floor(lag / timeDelay))
			src.Seek(frm + skip)
			frm += skip
		}

		v.publish(&buf, consumed, timeDelay)

		v.mu.Lock()
		if v.gen == gen {
			// The cursor sits at the midpoint of the last consumed
			// frame.
			v.cursor = (float64(consumed) - 0.5) * timeDelay
		}
		v.mu.Unlock()
	}
}

func (v *VideoPlayer) publish(buf *gocv.Mat, frm int, timeDelay float64) {
	img, err := imaging.FromMat(buf.Clone())
	if err != nil {
		return
	}
	rgb := img.ToRGB()
	img.Close()

	v.frameMu.Lock()
	old := v.current
	v.current = rgb
	hook := v.hook
	v.frameMu.Unlock()
	if old != nil {
		old.Close()
	}
	if hook != nil {
		hook(rgb, float64(frm)*timeDelay)
	}
}

func (v *VideoPlayer) finishPump(gen int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.gen != gen || v.state != StatePlaying {
		return
	}
	v.fromTime = 0
	v.toTime = v.duration
	v.startAt = time.Time{}
	v.state = StateStopped
}

// CurrentImage returns a copy of the last published RGB frame, nil
// before the first one. The caller owns the copy.
func (v *VideoPlayer) CurrentImage() *imaging.Image {
	v.frameMu.RLock()
	defer v.frameMu.RUnlock()
	if v.current == nil {
		return nil
	}
	return v.current.Copy()
}

// Pause implements Player. It returns once the pump released the
// decoder.
func (v *VideoPlayer) Pause() bool {
	v.mu.Lock()
	if v.state != StatePlaying {
		v.mu.Unlock()
		return false
	}
	v.fromTime = clamp(v.cursor, 0, v.toTime)
	v.state = StatePaused
	done := v.retirePumpLocked()
	v.mu.Unlock()

	if done != nil {
		<-done
	}
	return true
}

// Stop implements Player. It returns once the pump released the
// decoder.
func (v *VideoPlayer) Stop() bool {
	v.mu.Lock()
	if v.state == StateUnknown || v.state == StateLoading {
		v.mu.Unlock()
		return false
	}
	v.fromTime = 0
	v.toTime = v.duration
	v.cursor = 0
	v.startAt = time.Time{}
	v.state = StateStopped
	done := v.retirePumpLocked()
	v.mu.Unlock()

	if done != nil {
		<-done
	}
	return true
}

// Seek implements Player.
func (v *VideoPlayer) Seek(t float64) bool {
	v.mu.Lock()
	wasPlaying := v.state == StatePlaying
	var done chan struct{}
	switch v.state {
	case StateUnknown, StateLoading:
		v.mu.Unlock()
		return false
	case StatePlaying:
		v.state = StatePaused
		done = v.retirePumpLocked()
	}
	v.fromTime = clamp(t, 0, v.duration)
	v.cursor = v.fromTime
	v.mu.Unlock()

	if done != nil {
		<-done
	}
	if wasPlaying {
		return v.Play()
	}
	return true
}

// Tell implements Player. While playing or paused it is the midpoint
// of the last consumed frame; a fresh interval reports its start.
func (v *VideoPlayer) Tell() float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.framerate == 0 {
		return 0
	}
	if v.state == StatePlaying || v.state == StatePaused {
		return v.cursor
	}
	return v.fromTime
}

// Duration implements Player.
func (v *VideoPlayer) Duration() float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.duration
}

// Framerate implements Player.
func (v *VideoPlayer) Framerate() float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.framerate
}

// State implements Player.
func (v *VideoPlayer) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// MediaType implements Player.
func (v *VideoPlayer) MediaType() MediaType { return MediaVideo }

// Filename implements Player.
func (v *VideoPlayer) Filename() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.filename
}

// StartedAt returns the wall-clock anchor of the running pump, the zero
// time when not playing.
func (v *VideoPlayer) StartedAt() time.Time {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.startAt
}

// Close releases the decoder and the published frame.
func (v *VideoPlayer) Close() error {
	v.Stop()
	v.frameMu.Lock()
	if v.current != nil {
		v.current.Close()
		v.current = nil
	}
	v.frameMu.Unlock()
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.src != nil {
		err := v.src.Close()
		v.src = nil
		return err
	}
	return nil
}
