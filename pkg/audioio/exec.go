package audioio

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strconv"
	"sync"
)

// ExecSink delegates playback to an external player process reading raw
// PCM from stdin (ffplay by default). One process per clip; Stop kills
// it.
type ExecSink struct {
	player string
	logger *slog.Logger

	mu     sync.Mutex
	cmd    *exec.Cmd
	active bool
	closed bool
}

// NewExecSink creates a sink spawning the given player binary, or ffplay
// when empty.
func NewExecSink(player string, logger *slog.Logger) *ExecSink {
	if player == "" {
		player = "ffplay"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ExecSink{player: player, logger: logger}
}

// Play implements Sink.
func (s *ExecSink) Play(ctx context.Context, clip Clip) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return io.ErrClosedPipe
	}
	if s.active {
		return ErrSinkBusy
	}
	if err := clip.Validate(); err != nil {
		return err
	}

	format := map[int]string{1: "u8", 2: "s16le", 4: "s32le"}[clip.SampleWidth]
	cmd := exec.CommandContext(ctx, s.player,
		"-f", format,
		"-ar", strconv.Itoa(clip.SampleRate),
		"-ch_layout", layoutName(clip.Channels),
		"-nodisp", "-autoexit", "-loglevel", "quiet",
		"-i", "pipe:0",
	)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("audioio: stdin pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("audioio: start %s: %w", s.player, err)
	}
	s.cmd = cmd
	s.active = true

	go func() {
		stdin.Write(clip.PCM)
		stdin.Close()
		err := cmd.Wait()
		s.mu.Lock()
		s.active = false
		s.cmd = nil
		s.mu.Unlock()
		if err != nil {
			s.logger.Debug("player process exited", "error", err)
		}
	}()
	return nil
}

func layoutName(channels int) string {
	switch channels {
	case 1:
		return "mono"
	case 2:
		return "stereo"
	default:
		return strconv.Itoa(channels) + "c"
	}
}

// Stop implements Sink.
func (s *ExecSink) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cmd != nil && s.cmd.Process != nil {
		s.cmd.Process.Kill()
	}
	s.active = false
	return nil
}

// Playing implements Sink.
func (s *ExecSink) Playing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Name implements Sink.
func (s *ExecSink) Name() string { return "exec" }

// Close implements Sink.
func (s *ExecSink) Close() error {
	if err := s.Stop(); err != nil {
		return err
	}
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}
