package identify

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/annolab/mediasync/pkg/geometry"
	"github.com/annolab/mediasync/pkg/imaging"
)

// DefaultThreshold is the minimum similarity score for a positive
// identification.
const DefaultThreshold = 0.4

// Blend weights of the coordinate vote.
const (
	refCoordsWeight = 0.4
	curCoordsWeight = 0.6
)

// ErrUnknownIdentity is returned when a kid was never created.
var ErrUnknownIdentity = errors.New("identify: unknown identity")

// Registry is an ordered mapping of known identities to their image
// queues, with an optional trained face recognizer.
type Registry struct {
	kids    []string
	fifos   map[string]*ImagesFIFO
	counter int

	threshold float64
	queueSize int

	rec    *recognizer
	logger *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		fifos:     make(map[string]*ImagesFIFO),
		threshold: DefaultThreshold,
		queueSize: DefaultQueueSize,
		logger:    logger,
	}
}

// SetThreshold tunes the minimum similarity for a positive match.
func (r *Registry) SetThreshold(t float64) error {
	if t < 0 || t > 1 {
		return &geometry.RangeError{Field: "threshold", Value: t, Min: 0, Max: 1}
	}
	r.threshold = t
	return nil
}

// SetQueueSize sets the capacity of queues created from now on.
func (r *Registry) SetQueueSize(n int) {
	if n < 0 {
		n = 0
	}
	if n > MaxQueueSize {
		n = MaxQueueSize
	}
	r.queueSize = n
}

// Kids returns the known identity identifiers in creation order.
func (r *Registry) Kids() []string {
	out := make([]string, len(r.kids))
	copy(out, r.kids)
	return out
}

// CreateIdentifier mints a new identity and returns its identifier.
func (r *Registry) CreateIdentifier() string {
	kid := fmt.Sprintf("id%03d", r.counter)
	r.counter++
	r.kids = append(r.kids, kid)
	r.fifos[kid] = NewImagesFIFO(r.queueSize)
	return kid
}

// Fifo returns the image queue of kid.
func (r *Registry) Fifo(kid string) (*ImagesFIFO, error) {
	f, ok := r.fifos[kid]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownIdentity, kid)
	}
	return f, nil
}

// AddImage pushes an image into kid's queue; with ref set it becomes the
// reference.
func (r *Registry) AddImage(kid string, img *imaging.Image, ref bool) error {
	f, err := r.Fifo(kid)
	if err != nil {
		return err
	}
	f.Add(img, ref)
	return nil
}

// SetCoords records where kid was last detected.
func (r *Registry) SetCoords(kid string, c geometry.Coord) error {
	f, err := r.Fifo(kid)
	if err != nil {
		return err
	}
	if f.RefCoords() == nil {
		f.SetRefCoords(c)
	}
	f.SetCurCoords(c)
	return nil
}

// Identify returns the best matching identity for the image and/or
// coordinates, with its score. An empty kid means no known identity
// matched.
//
// The votes are reconciled as follows: a trained recognizer is consulted
// first; when it abstains, the queued images are compared directly; a
// coordinate vote is taken when coords is given. When image and
// coordinate votes agree the larger score wins; when they disagree, the
// losing vote is halved and the winner returned.
func (r *Registry) Identify(img *imaging.Image, coords *geometry.Coord) (string, float64) {
	var imgKid string
	var imgScore float64

	if img != nil {
		if r.rec != nil && r.rec.trained {
			imgKid, imgScore = r.predictRecognizer(img)
		}
		if imgKid == "" {
			imgKid, imgScore = r.predictCompareImages(img)
		}
	}

	if coords == nil {
		return imgKid, imgScore
	}
	coordKid, coordScore := r.predictCompareCoords(*coords)
	if coordKid == "" {
		return imgKid, imgScore
	}
	if imgKid == "" {
		return coordKid, coordScore
	}

	if imgKid == coordKid {
		if coordScore > imgScore {
			return imgKid, coordScore
		}
		return imgKid, imgScore
	}
	// Disagreement: the weaker vote is halved and the stronger one wins.
	if imgScore >= coordScore {
		return imgKid, imgScore
	}
	return coordKid, coordScore
}

// predictCompareImages scores the image against every identity's queue
// with the imaging comparer and returns the best identity above the
// threshold.
func (r *Registry) predictCompareImages(img *imaging.Image) (string, float64) {
	bestKid := ""
	bestScore := 0.0
	for _, kid := range r.kids {
		f := r.fifos[kid]
		var sum float64
		var n int
		for _, known := range f.Images() {
			sum += imaging.NewComparer(img, known).Score()
			n++
		}
		if ref := f.Ref(); ref != nil {
			sum += imaging.NewComparer(img, ref).Score()
			n++
		}
		if n == 0 {
			continue
		}
		if score := sum / float64(n); score > bestScore {
			bestKid, bestScore = kid, score
		}
	}
	if bestScore <= r.threshold {
		return "", 0
	}
	return bestKid, bestScore
}

// predictCompareCoords blends the similarity to each identity's
// reference coords (weight 0.4) and current coords (weight 0.6).
func (r *Registry) predictCompareCoords(c geometry.Coord) (string, float64) {
	bestKid := ""
	bestScore := 0.0
	for _, kid := range r.kids {
		f := r.fifos[kid]
		cur, ref := f.CurCoords(), f.RefCoords()
		if cur == nil && ref == nil {
			continue
		}
		var score float64
		if ref != nil {
			score += refCoordsWeight * coordSimilarity(c, *ref)
		}
		if cur != nil {
			score += curCoordsWeight * coordSimilarity(c, *cur)
		}
		if score > bestScore {
			bestKid, bestScore = kid, score
		}
	}
	if bestScore <= r.threshold {
		return "", 0
	}
	return bestKid, bestScore
}

// coordSimilarity is the intersection-over-union of the two boxes.
func coordSimilarity(a, b geometry.Coord) float64 {
	in := a.IntersectionArea(b)
	union := a.Area() + b.Area() - in
	if union <= 0 {
		return 0
	}
	return float64(in) / float64(union)
}

// Close releases every queue and the recognizer.
func (r *Registry) Close() {
	for _, f := range r.fifos {
		f.Close()
	}
	r.fifos = make(map[string]*ImagesFIFO)
	r.kids = nil
	if r.rec != nil {
		r.rec.close()
		r.rec = nil
	}
}
