package audioio

import (
	"fmt"
	"path/filepath"
	"strings"
)

// FileSource decodes a whole audio file into a Clip.
type FileSource interface {
	// Load decodes the file at path.
	Load(path string) (Clip, error)

	// Name returns the decoder name ("wav", "opus", ...).
	Name() string
}

// NewFileSource picks a decoder by the file extension.
func NewFileSource(path string) (FileSource, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav", ".wave":
		return &WAVSource{}, nil
	case ".opus", ".ogg", ".oga":
		return &OpusSource{}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

// SupportedExtension reports whether a decoder exists for the path.
func SupportedExtension(path string) bool {
	_, err := NewFileSource(path)
	return err == nil
}
