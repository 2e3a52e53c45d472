// Package identify maintains per-identity image queues and recognizes
// which known identity a new detection belongs to, combining coordinate,
// image and learned face-recognizer votes.
package identify

import (
	"github.com/annolab/mediasync/pkg/geometry"
	"github.com/annolab/mediasync/pkg/imaging"
)

// Queue size bounds.
const (
	DefaultQueueSize = 20
	MaxQueueSize     = 50
)

// ImagesFIFO is a bounded queue of images belonging to one identity.
// Inserting into a full queue evicts the oldest image. The first inserted
// image, or any image flagged as reference, becomes the identity's
// reference.
type ImagesFIFO struct {
	size   int
	images []*imaging.Image

	ref       *imaging.Image
	curCoords *geometry.Coord
	refCoords *geometry.Coord
}

// NewImagesFIFO creates a queue with the given capacity, clamped to
// [0, MaxQueueSize].
func NewImagesFIFO(size int) *ImagesFIFO {
	if size < 0 {
		size = 0
	}
	if size > MaxQueueSize {
		size = MaxQueueSize
	}
	return &ImagesFIFO{size: size}
}

// Len returns the number of queued images.
func (f *ImagesFIFO) Len() int { return len(f.images) }

// Cap returns the queue capacity.
func (f *ImagesFIFO) Cap() int { return f.size }

// Add copies img into the queue, evicting the oldest image when full.
// With ref set, or on the very first insert, the copy also becomes the
// reference image.
func (f *ImagesFIFO) Add(img *imaging.Image, ref bool) {
	if f.size > 0 {
		if len(f.images) >= f.size {
			f.images[0].Close()
			f.images = f.images[1:]
		}
		f.images = append(f.images, img.Copy())
	}
	if ref || f.ref == nil {
		if f.ref != nil {
			f.ref.Close()
		}
		f.ref = img.Copy()
	}
}

// Images returns the queued images, oldest first. The queue keeps
// ownership.
func (f *ImagesFIFO) Images() []*imaging.Image { return f.images }

// Ref returns the reference image, or nil before the first insert.
func (f *ImagesFIFO) Ref() *imaging.Image { return f.ref }

// SetCurCoords records where the identity was last seen.
func (f *ImagesFIFO) SetCurCoords(c geometry.Coord) {
	cc := c.Copy()
	f.curCoords = &cc
}

// CurCoords returns the last seen position, or nil.
func (f *ImagesFIFO) CurCoords() *geometry.Coord { return f.curCoords }

// SetRefCoords records the reference position.
func (f *ImagesFIFO) SetRefCoords(c geometry.Coord) {
	cc := c.Copy()
	f.refCoords = &cc
}

// RefCoords returns the reference position, or nil.
func (f *ImagesFIFO) RefCoords() *geometry.Coord { return f.refCoords }

// Close releases every owned image.
func (f *ImagesFIFO) Close() {
	for _, img := range f.images {
		img.Close()
	}
	f.images = nil
	if f.ref != nil {
		f.ref.Close()
		f.ref = nil
	}
}
