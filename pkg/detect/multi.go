package detect

import (
	"fmt"
	"log/slog"

	"github.com/annolab/mediasync/pkg/geometry"
	"github.com/annolab/mediasync/pkg/imaging"
	"github.com/annolab/mediasync/pkg/progress"
)

// MultiDetector runs several detectors over an image and fuses their
// results: overlapping detections merge their confidences, the rest are
// filtered by the minimum score. A failing member is logged and skipped,
// never aborting the whole run.
type MultiDetector struct {
	detectors []Detector
	names     []string

	minRatio  float64
	minScore  float64
	normalize bool

	coords   []geometry.Coord
	logger   *slog.Logger
	observer progress.Observer
}

// NewMulti creates an empty multi-detector.
func NewMulti(logger *slog.Logger) *MultiDetector {
	if logger == nil {
		logger = slog.Default()
	}
	return &MultiDetector{
		minRatio: DefaultMinRatio,
		minScore: DefaultMinScore,
		logger:   logger,
		observer: progress.Nop{},
	}
}

// SetObserver wires a progress observer. A nil observer disables updates.
func (m *MultiDetector) SetObserver(obs progress.Observer) {
	if obs == nil {
		obs = progress.Nop{}
	}
	m.observer = obs
}

// SetMinScore sets the fused confidence filter.
func (m *MultiDetector) SetMinScore(score float64) error {
	if score < 0 || score > 1 {
		return &geometry.RangeError{Field: "minScore", Value: score, Min: 0, Max: 1}
	}
	m.minScore = score
	return nil
}

// SetMinRatio sets the relative size filter. Each member uses this value
// divided by the member count.
func (m *MultiDetector) SetMinRatio(ratio float64) error {
	if ratio < 0 || ratio > 1 {
		return &geometry.RangeError{Field: "minRatio", Value: ratio, Min: 0, Max: 1}
	}
	m.minRatio = ratio
	return nil
}

// SetNormalize toggles dividing each member's confidences by the member
// count before fusion.
func (m *MultiDetector) SetNormalize(on bool) {
	m.normalize = on
}

// AddModel creates the detector matching the model extension and loads
// the model into it. A model that fails to load is logged and skipped.
func (m *MultiDetector) AddModel(path string, extra ...string) error {
	d, err := NewFromExtension(path, m.logger)
	if err != nil {
		m.logger.Error("no detector for model", "model", path, "error", err)
		return err
	}
	if err := d.LoadModel(path, extra...); err != nil {
		m.logger.Error("model failed to load, skipping", "model", path, "error", err)
		d.Close()
		return err
	}
	m.detectors = append(m.detectors, d)
	m.names = append(m.names, path)
	return nil
}

// Size returns the number of loaded members.
func (m *MultiDetector) Size() int { return len(m.detectors) }

// Coords returns the fused detections of the last run.
func (m *MultiDetector) Coords() []geometry.Coord {
	out := make([]geometry.Coord, len(m.coords))
	copy(out, m.coords)
	return out
}

// Detect runs every member over the image and fuses the results.
func (m *MultiDetector) Detect(img *imaging.Image) error {
	m.coords = nil
	n := len(m.detectors)
	if n == 0 {
		return fmt.Errorf("detect: multi-detector has no members")
	}

	m.observer.SetHeader("Object detection")
	var all []geometry.Coord
	for i, d := range m.detectors {
		m.observer.Update(float64(i)/float64(n)*100, m.names[i])
		if err := d.SetMinRatio(m.minRatio / float64(n)); err != nil {
			return err
		}
		if err := d.Detect(img); err != nil {
			m.logger.Error("detector failed, continuing",
				"model", m.names[i], "error", err)
			continue
		}
		all = append(all, d.Coords()...)
	}

	if m.normalize {
		for i := range all {
			_ = all[i].SetConfidence(all[i].Score() / float64(n))
		}
	}

	m.coords = fuse(all, m.minScore)
	m.observer.Update(100, "done")
	return nil
}

// fuse merges overlapping detections: the survivor accumulates the
// other's confidence (capped at 1) and the other is zeroed. Entries at or
// below minScore are dropped.
func fuse(all []geometry.Coord, minScore float64) []geometry.Coord {
	for i := range all {
		if all[i].Score() == 0 {
			continue
		}
		for j := range all {
			if i == j || all[j].Score() == 0 {
				continue
			}
			if all[i].IntersectionArea(all[j]) == 0 {
				continue
			}
			sum := all[i].Score() + all[j].Score()
			if sum > 1 {
				sum = 1
			}
			_ = all[i].SetConfidence(sum)
			_ = all[j].SetConfidence(0)
		}
	}
	kept := make([]geometry.Coord, 0, len(all))
	for _, c := range all {
		if c.Score() > minScore {
			kept = append(kept, c)
		}
	}
	return kept
}

// Close releases every member.
func (m *MultiDetector) Close() error {
	var first error
	for _, d := range m.detectors {
		if err := d.Close(); err != nil && first == nil {
			first = err
		}
	}
	m.detectors = nil
	m.names = nil
	return first
}
