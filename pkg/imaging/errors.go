package imaging

import (
	"errors"
	"fmt"
)

// Sentinel errors for common error conditions.
var (
	// ErrEmptyImage is returned when an operation receives an image with
	// no pixel data.
	ErrEmptyImage = errors.New("imaging: empty image")

	// ErrChannels is returned when two operands have incompatible channel
	// counts that cannot be reconciled by promotion.
	ErrChannels = errors.New("imaging: incompatible channel counts")

	// ErrUnsupportedFormat is returned when a file extension is not one of
	// the supported image formats.
	ErrUnsupportedFormat = errors.New("imaging: unsupported image format")
)

// SizeError reports an invalid requested size.
type SizeError struct {
	W, H int
}

// Error implements the error interface.
func (e *SizeError) Error() string {
	return fmt.Sprintf("imaging: invalid size %dx%d", e.W, e.H)
}

// ReadError wraps a decoder failure for a given file.
type ReadError struct {
	Path string
	Err  error
}

// Error implements the error interface.
func (e *ReadError) Error() string {
	return fmt.Sprintf("imaging: read %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *ReadError) Unwrap() error {
	return e.Err
}
