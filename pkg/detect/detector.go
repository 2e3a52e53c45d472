// Package detect provides object detectors over images: a classical
// boosted cascade, three DNN backends (Caffe, TensorFlow, ONNX) and a
// multi-detector that fuses their results.
package detect

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/annolab/mediasync/pkg/geometry"
	"github.com/annolab/mediasync/pkg/imaging"
)

// Defaults for the detection filters.
const (
	// DefaultMinRatio lower-bounds the width and height of a kept
	// detection relative to the input image.
	DefaultMinRatio = 0.05

	// DefaultMinScore is the minimum confidence of a kept detection.
	DefaultMinScore = 0.18
)

// Detector finds objects in an image. After a successful Detect, Coords
// holds the detections sorted by descending confidence, already filtered
// by the minimum score and, for DNN detectors, by overlap resolution.
type Detector interface {
	// LoadModel validates the file extension and existence, then loads
	// the model. DNN backends needing a sibling proto accept it as the
	// first extra argument.
	LoadModel(path string, extra ...string) error

	// Detect invalidates previous results and runs the detection chain
	// on the image.
	Detect(img *imaging.Image) error

	// Coords returns the detections of the last run.
	Coords() []geometry.Coord

	// SetMinScore sets the confidence filter, in [0, 1].
	SetMinScore(score float64) error

	// SetMinRatio sets the relative size filter, in [0, 1].
	SetMinRatio(ratio float64) error

	// Close releases model resources.
	Close() error
}

// base carries the shared filter state and the post-detection chain.
type base struct {
	minRatio float64
	minScore float64
	modelExt string
	coords   []geometry.Coord
	logger   *slog.Logger
}

func newBase(modelExt string, minScore float64, logger *slog.Logger) base {
	if logger == nil {
		logger = slog.Default()
	}
	return base{
		minRatio: DefaultMinRatio,
		minScore: minScore,
		modelExt: modelExt,
		logger:   logger,
	}
}

// Coords returns the detections of the last run.
func (b *base) Coords() []geometry.Coord {
	out := make([]geometry.Coord, len(b.coords))
	copy(out, b.coords)
	return out
}

// SetMinScore sets the confidence filter.
func (b *base) SetMinScore(score float64) error {
	if score < 0 || score > 1 {
		return &geometry.RangeError{Field: "minScore", Value: score, Min: 0, Max: 1}
	}
	b.minScore = score
	return nil
}

// SetMinRatio sets the relative size filter.
func (b *base) SetMinRatio(ratio float64) error {
	if ratio < 0 || ratio > 1 {
		return &geometry.RangeError{Field: "minRatio", Value: ratio, Min: 0, Max: 1}
	}
	b.minRatio = ratio
	return nil
}

// checkModel validates the extension and existence of a model file.
func (b *base) checkModel(path string) error {
	if !strings.EqualFold(filepath.Ext(path), b.modelExt) {
		return &ExtensionError{Path: path, Want: b.modelExt}
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("%w: %s", ErrModelMissing, path)
	}
	return nil
}

// run executes the detection chain: invalidate, detect, filter by
// confidence, sort by score and optionally resolve overlaps.
func (b *base) run(img *imaging.Image, detection func(*imaging.Image) error, overlapped bool) error {
	b.coords = nil
	if err := detection(img); err != nil {
		return err
	}
	b.filterConfidence()
	b.sortByScore()
	if overlapped {
		b.filterOverlapped()
	}
	return nil
}

// filterConfidence drops detections below the minimum score.
func (b *base) filterConfidence() {
	kept := b.coords[:0]
	for _, c := range b.coords {
		if c.Score() >= b.minScore {
			kept = append(kept, c)
		}
	}
	b.coords = kept
}

// sortByScore orders detections by descending confidence.
func (b *base) sortByScore() {
	sort.SliceStable(b.coords, func(i, j int) bool {
		return b.coords[i].Score() > b.coords[j].Score()
	})
}

// filterOverlapped invalidates a detection mostly covered by a strictly
// larger one, then drops every zero-confidence entry.
func (b *base) filterOverlapped() {
	for i := range b.coords {
		for j := range b.coords {
			if i == j {
				continue
			}
			if b.coords[i].IntersectionArea(b.coords[j]) == 0 {
				continue
			}
			if b.coords[j].Score() == 0 {
				continue
			}
			_, inSelf := b.coords[i].Overlap(b.coords[j])
			larger := b.coords[j].W() > b.coords[i].W() || b.coords[j].H() > b.coords[i].H()
			if inSelf > 50 && larger {
				// Ignore the error: zero is always a valid confidence.
				_ = b.coords[i].SetConfidence(0)
			}
		}
	}
	kept := b.coords[:0]
	for _, c := range b.coords {
		if c.Score() > 0 {
			kept = append(kept, c)
		}
	}
	b.coords = kept
}

// tooSmall reports whether a w×h detection is below the relative size
// floor for an image of the given dimensions.
func (b *base) tooSmall(w, h, imgW, imgH int) bool {
	return float64(w) < b.minRatio*float64(imgW) || float64(h) < b.minRatio*float64(imgH)
}
