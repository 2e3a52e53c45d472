package audioio

import (
	"context"
	"io"
	"sync"
	"time"
)

// MockSink is a sink for testing: it plays nothing but tracks wall-clock
// time so Playing flips to false once the clip would have ended.
type MockSink struct {
	mu       sync.Mutex
	closed   bool
	startAt  time.Time
	duration time.Duration
	active   bool

	// speed accelerates simulated playback; 2 plays a clip in half its
	// real duration.
	speed float64
}

// MockSinkOption configures a MockSink.
type MockSinkOption func(*MockSink)

// WithSpeed makes simulated playback run faster than real time.
func WithSpeed(factor float64) MockSinkOption {
	return func(m *MockSink) {
		if factor > 0 {
			m.speed = factor
		}
	}
}

// NewMockSink creates a mock sink.
func NewMockSink(opts ...MockSinkOption) *MockSink {
	m := &MockSink{speed: 1}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Play implements Sink.
func (m *MockSink) Play(_ context.Context, clip Clip) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return io.ErrClosedPipe
	}
	if m.active && time.Since(m.startAt) < m.duration {
		return ErrSinkBusy
	}
	if err := clip.Validate(); err != nil {
		return err
	}
	m.startAt = time.Now()
	m.duration = time.Duration(clip.Duration() / m.speed * float64(time.Second))
	m.active = true
	return nil
}

// Stop implements Sink.
func (m *MockSink) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active = false
	return nil
}

// Playing implements Sink.
func (m *MockSink) Playing() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.active {
		return false
	}
	if time.Since(m.startAt) >= m.duration {
		m.active = false
		return false
	}
	return true
}

// Name implements Sink.
func (m *MockSink) Name() string { return "mock" }

// Close implements Sink.
func (m *MockSink) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active = false
	m.closed = true
	return nil
}
