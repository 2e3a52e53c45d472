package detect

import (
	"errors"
	"fmt"
)

// Sentinel errors for common error conditions.
var (
	// ErrNotLoaded is returned when Detect runs before a model is loaded.
	ErrNotLoaded = errors.New("detect: no model loaded")

	// ErrModelMissing is returned when a model file does not exist.
	ErrModelMissing = errors.New("detect: model file not found")

	// ErrProtoMissing is returned when a DNN model needs a sibling
	// proto/config file and none can be found.
	ErrProtoMissing = errors.New("detect: model proto file not found")

	// ErrNoDetector is returned when no detector is registered for a
	// model extension.
	ErrNoDetector = errors.New("detect: no detector for model extension")
)

// ExtensionError reports a model file with the wrong extension for the
// chosen detector.
type ExtensionError struct {
	Path string
	Want string
}

// Error implements the error interface.
func (e *ExtensionError) Error() string {
	return fmt.Sprintf("detect: model %s: expected a %s file", e.Path, e.Want)
}
