package detect

import (
	"fmt"
	"image"
	"log/slog"

	"github.com/annolab/mediasync/pkg/geometry"
	"github.com/annolab/mediasync/pkg/imaging"
	"gocv.io/x/gocv"
)

// Default cascade tuning.
const (
	cascadeScaleFactor  = 1.06
	cascadeMinNeighbors = 3

	// DefaultCascadeMinScore is the cascade's confidence floor, also the
	// lower anchor of the score normalization.
	DefaultCascadeMinScore = 0.28

	// cascadeScoreCeil is the upper anchor of the score normalization.
	cascadeScoreCeil = 0.998
)

// Normalization holds the anchors of the Unity-based score mapping.
// APrime equals B in the historical calibration; SetNormalization is the
// hook to change that.
type Normalization struct {
	A      float64
	B      float64
	APrime float64
}

// NormalizeScores maps raw cascade weights into confidence scores with
// Unity-based normalization over the batch:
//
//	score = a + (w − min·a')·(b − a) / (max·1.01 − min·a')
//
// clipped to [0, 1].
func NormalizeScores(weights []float64, n Normalization) []float64 {
	if len(weights) == 0 {
		return nil
	}
	lo, hi := weights[0], weights[0]
	for _, w := range weights[1:] {
		if w < lo {
			lo = w
		}
		if w > hi {
			hi = w
		}
	}
	out := make([]float64, len(weights))
	den := hi*1.01 - lo*n.APrime
	for i, w := range weights {
		s := n.A
		if den != 0 {
			s = n.A + (w-lo*n.APrime)*(n.B-n.A)/den
		}
		if s < 0 {
			s = 0
		}
		if s > 1 {
			s = 1
		}
		out[i] = s
	}
	return out
}

// CascadeDetector finds objects with a boosted Haar/LBP cascade.
type CascadeDetector struct {
	base
	classifier gocv.CascadeClassifier
	norm       Normalization
	loaded     bool
}

// NewCascade creates an unloaded cascade detector.
func NewCascade(logger *slog.Logger) *CascadeDetector {
	return &CascadeDetector{
		base: newBase(".xml", DefaultCascadeMinScore, logger),
		norm: Normalization{A: DefaultCascadeMinScore, B: cascadeScoreCeil, APrime: cascadeScoreCeil},
	}
}

// SetNormalization overrides the score mapping anchors. Calibration hook
// for cascades whose weight distribution differs from the default one.
func (d *CascadeDetector) SetNormalization(n Normalization) {
	d.norm = n
}

// SetMinScore sets the confidence filter and moves the normalization's
// lower anchor with it.
func (d *CascadeDetector) SetMinScore(score float64) error {
	if err := d.base.SetMinScore(score); err != nil {
		return err
	}
	d.norm.A = score
	return nil
}

// LoadModel loads a cascade from an .xml file.
func (d *CascadeDetector) LoadModel(path string, extra ...string) error {
	if err := d.checkModel(path); err != nil {
		return err
	}
	classifier := gocv.NewCascadeClassifier()
	if !classifier.Load(path) {
		classifier.Close()
		return fmt.Errorf("detect: cascade %s: unreadable model", path)
	}
	if d.loaded {
		d.classifier.Close()
	}
	d.classifier = classifier
	d.loaded = true
	return nil
}

// Detect runs the cascade over the image.
func (d *CascadeDetector) Detect(img *imaging.Image) error {
	if !d.loaded {
		return ErrNotLoaded
	}
	return d.run(img, d.detection, false)
}

func (d *CascadeDetector) detection(img *imaging.Image) error {
	gray := img.GrayMat()
	defer gray.Close()

	minSize := image.Pt(
		int(d.minRatio*float64(img.W())),
		int(d.minRatio*float64(img.H())))

	rects := d.classifier.DetectMultiScaleWithParams(gray,
		cascadeScaleFactor, cascadeMinNeighbors, 0, minSize, image.Pt(0, 0))
	if len(rects) == 0 {
		return nil
	}

	// The decoder exposes no per-stage weights, so each detection is
	// weighted by its support in a looser second pass before the batch
	// is normalized into confidence scores.
	loose := d.classifier.DetectMultiScaleWithParams(gray,
		cascadeScaleFactor, 1, 0, minSize, image.Pt(0, 0))

	weights := make([]float64, len(rects))
	for i, r := range rects {
		support := 1
		for _, lr := range loose {
			in := r.Intersect(lr)
			if !in.Empty() && in.Dx()*in.Dy()*2 > r.Dx()*r.Dy() {
				support++
			}
		}
		weights[i] = float64(support)
	}
	scores := NormalizeScores(weights, d.norm)

	for i, r := range rects {
		if d.tooSmall(r.Dx(), r.Dy(), img.W(), img.H()) {
			continue
		}
		c, err := geometry.NewScored(r.Min.X, r.Min.Y, r.Dx(), r.Dy(), scores[i])
		if err != nil {
			d.logger.Warn("cascade detection out of range", "rect", r, "error", err)
			continue
		}
		d.coords = append(d.coords, c)
	}
	return nil
}

// Close releases the classifier.
func (d *CascadeDetector) Close() error {
	if d.loaded {
		d.loaded = false
		return d.classifier.Close()
	}
	return nil
}
