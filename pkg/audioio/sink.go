package audioio

import (
	"context"
	"io"
)

// Sink plays one clip at a time to a speaker or other output.
// Play returns as soon as playback has started; the caller polls Playing
// to learn when the clip ran out.
type Sink interface {
	// Play starts playback of the clip. It fails with ErrSinkBusy when
	// a previous clip is still playing.
	Play(ctx context.Context, clip Clip) error

	// Stop halts playback immediately.
	// It is safe to call Stop multiple times.
	Stop() error

	// Playing reports whether a clip is currently being played.
	Playing() bool

	// Name returns the backend name (e.g., "exec", "mock").
	Name() string

	// Close releases all resources.
	// After Close, the sink cannot be restarted.
	io.Closer
}
