package detect

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
)

// factories maps a model file extension to its detector implementation.
var factories = map[string]func(*slog.Logger) Detector{
	".xml":        func(l *slog.Logger) Detector { return NewCascade(l) },
	".caffemodel": func(l *slog.Logger) Detector { return NewCaffe(l) },
	".pb":         func(l *slog.Logger) Detector { return NewTensorFlow(l) },
	".onnx":       func(l *slog.Logger) Detector { return NewONNX(l) },
}

// Extensions returns the model extensions a detector exists for.
func Extensions() []string {
	out := make([]string, 0, len(factories))
	for ext := range factories {
		out = append(out, ext)
	}
	return out
}

// NewFromExtension picks the detector implementation solely by the model
// file's suffix. The model is not loaded yet.
func NewFromExtension(path string, logger *slog.Logger) (Detector, error) {
	ext := strings.ToLower(filepath.Ext(path))
	factory, ok := factories[ext]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoDetector, ext)
	}
	return factory(logger), nil
}
