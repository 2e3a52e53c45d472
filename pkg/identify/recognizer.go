package identify

import (
	"fmt"

	"github.com/annolab/mediasync/pkg/imaging"
	"gocv.io/x/gocv"
	"gocv.io/x/gocv/contrib"
)

// Training sample geometry.
const (
	trainW = 160
	trainH = 160
)

// Label offset separating reference images from queued ones, so every
// reference gets a unique label.
const refLabelOffset = 1000

// recognizer wraps an LBPH face recognizer trained on the registry's
// queues.
type recognizer struct {
	lbph    *contrib.LBPHFaceRecognizer
	trained bool
}

func (rc *recognizer) close() {
	// The LBPH handle has no explicit close in the binding.
	rc.trained = false
}

// TrainRecognizer (re)trains the face recognizer on every queued image of
// every identity. Each queued image is labeled with its identity's
// ordinal; each reference image gets a unique label of its own.
func (r *Registry) TrainRecognizer() error {
	var samples []gocv.Mat
	var labels []int
	defer func() {
		for _, m := range samples {
			m.Close()
		}
	}()

	for i, kid := range r.kids {
		f := r.fifos[kid]
		for _, img := range f.Images() {
			m, err := trainSample(img)
			if err != nil {
				return fmt.Errorf("identify: train %s: %w", kid, err)
			}
			samples = append(samples, m)
			labels = append(labels, i)
		}
		if ref := f.Ref(); ref != nil {
			m, err := trainSample(ref)
			if err != nil {
				return fmt.Errorf("identify: train %s ref: %w", kid, err)
			}
			samples = append(samples, m)
			labels = append(labels, refLabelOffset+i)
		}
	}
	if len(samples) == 0 {
		return fmt.Errorf("identify: nothing to train on")
	}

	if r.rec == nil {
		r.rec = &recognizer{lbph: contrib.NewLBPHFaceRecognizer()}
	}
	r.rec.lbph.Train(samples, labels)
	r.rec.trained = true
	return nil
}

// trainSample resizes to the training geometry and converts to a
// single-channel grayscale matrix.
func trainSample(img *imaging.Image) (gocv.Mat, error) {
	resized, err := img.IResize(trainW, trainH)
	if err != nil {
		return gocv.Mat{}, err
	}
	defer resized.Close()
	return resized.GrayMat(), nil
}

// predictRecognizer asks the trained recognizer for the identity of the
// image. The raw distance d maps to a score 1 − d/100; a negative score
// means no identity.
func (r *Registry) predictRecognizer(img *imaging.Image) (string, float64) {
	sample, err := trainSample(img)
	if err != nil {
		r.logger.Warn("recognizer sample failed", "error", err)
		return "", 0
	}
	defer sample.Close()

	resp := r.rec.lbph.PredictExtendedResponse(sample)
	label := int(resp.Label)
	if label >= refLabelOffset {
		label -= refLabelOffset
	}
	if label < 0 || label >= len(r.kids) {
		return "", 0
	}
	score := 1 - float64(resp.Confidence)/100
	if score < 0 {
		return "", 0
	}
	return r.kids[label], score
}
