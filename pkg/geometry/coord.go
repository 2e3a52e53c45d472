// Package geometry provides the rectangle-plus-confidence algebra used by
// detectors and image pipelines.
package geometry

import (
	"fmt"
	"image"
	"math"
)

// Upper bounds for coordinate components (16K UHD frame).
const (
	MaxX = 15360
	MaxY = 8640
	MaxW = 15360
	MaxH = 8640
)

// Coord is an axis-aligned rectangle with an optional confidence score.
// Equality ignores the confidence; two detections of the same box compare
// equal regardless of how sure their detectors were.
type Coord struct {
	x, y int
	w, h int

	confidence float64
	scored     bool
}

// New creates a Coord after range-checking every component.
func New(x, y, w, h int) (Coord, error) {
	var c Coord
	if err := c.setPosition(x, y); err != nil {
		return Coord{}, err
	}
	if err := c.setSize(w, h); err != nil {
		return Coord{}, err
	}
	return c, nil
}

// NewScored creates a Coord carrying a confidence in [0, 1].
func NewScored(x, y, w, h int, confidence float64) (Coord, error) {
	c, err := New(x, y, w, h)
	if err != nil {
		return Coord{}, err
	}
	if err := c.SetConfidence(confidence); err != nil {
		return Coord{}, err
	}
	return c, nil
}

// FromValue interprets v as a Coord. Accepted shapes, by arity:
// (x, y), (x, y, confidence), (x, y, w, h), (x, y, w, h, confidence).
// v may be a Coord, a []int or a []float64.
func FromValue(v any) (Coord, error) {
	switch t := v.(type) {
	case Coord:
		return t, nil
	case *Coord:
		return *t, nil
	case []int:
		f := make([]float64, len(t))
		for i, n := range t {
			f[i] = float64(n)
		}
		return fromFloats(f, v)
	case []float64:
		return fromFloats(t, v)
	default:
		return Coord{}, &TypeError{Value: v}
	}
}

func fromFloats(f []float64, orig any) (Coord, error) {
	switch len(f) {
	case 2:
		return New(int(f[0]), int(f[1]), 0, 0)
	case 3:
		return NewScored(int(f[0]), int(f[1]), 0, 0, f[2])
	case 4:
		return New(int(f[0]), int(f[1]), int(f[2]), int(f[3]))
	case 5:
		return NewScored(int(f[0]), int(f[1]), int(f[2]), int(f[3]), f[4])
	default:
		return Coord{}, &TypeError{Value: orig}
	}
}

func (c *Coord) setPosition(x, y int) error {
	if x < 0 || x > MaxX {
		return &RangeError{Field: "x", Value: float64(x), Min: 0, Max: MaxX}
	}
	if y < 0 || y > MaxY {
		return &RangeError{Field: "y", Value: float64(y), Min: 0, Max: MaxY}
	}
	c.x, c.y = x, y
	return nil
}

func (c *Coord) setSize(w, h int) error {
	if w < 0 || w > MaxW {
		return &RangeError{Field: "w", Value: float64(w), Min: 0, Max: MaxW}
	}
	if h < 0 || h > MaxH {
		return &RangeError{Field: "h", Value: float64(h), Min: 0, Max: MaxH}
	}
	c.w, c.h = w, h
	return nil
}

// X returns the left edge.
func (c Coord) X() int { return c.x }

// Y returns the top edge.
func (c Coord) Y() int { return c.y }

// W returns the width.
func (c Coord) W() int { return c.w }

// H returns the height.
func (c Coord) H() int { return c.h }

// Confidence returns the score and whether one was ever assigned.
func (c Coord) Confidence() (float64, bool) {
	return c.confidence, c.scored
}

// Score returns the confidence, or 0 when none was assigned.
func (c Coord) Score() float64 { return c.confidence }

// SetConfidence assigns a confidence score in [0, 1].
func (c *Coord) SetConfidence(score float64) error {
	if score < 0 || score > 1 {
		return &RangeError{Field: "confidence", Value: score, Min: 0, Max: 1}
	}
	c.confidence = score
	c.scored = true
	return nil
}

// Rect returns the box as a stdlib image.Rectangle.
func (c Coord) Rect() image.Rectangle {
	return image.Rect(c.x, c.y, c.x+c.w, c.y+c.h)
}

// Key identifies the box geometry alone, for use as a map key.
// Confidence is deliberately excluded, matching Equal.
func (c Coord) Key() [4]int {
	return [4]int{c.x, c.y, c.w, c.h}
}

// Equal reports whether the two boxes have the same geometry.
// Confidence is ignored.
func (c Coord) Equal(other Coord) bool {
	return c.x == other.x && c.y == other.y && c.w == other.w && c.h == other.h
}

// Area returns w·h.
func (c Coord) Area() int { return c.w * c.h }

// IntersectionArea returns the area shared with other, or 0 when the two
// boxes are disjoint.
func (c Coord) IntersectionArea(other Coord) int {
	x := max(c.x, other.x)
	y := max(c.y, other.y)
	r := min(c.x+c.w, other.x+other.w)
	b := min(c.y+c.h, other.y+other.h)
	if r <= x || b <= y {
		return 0
	}
	return (r - x) * (b - y)
}

// Overlap returns the shared area as a percentage of each operand:
// first of other's area, then of c's own area. Both are 0 when the boxes
// are disjoint or either area is zero.
func (c Coord) Overlap(other Coord) (inOther, inSelf float64) {
	in := c.IntersectionArea(other)
	if in == 0 {
		return 0, 0
	}
	if a := other.Area(); a > 0 {
		inOther = float64(in) / float64(a) * 100
	}
	if a := c.Area(); a > 0 {
		inSelf = float64(in) / float64(a) * 100
	}
	return inOther, inSelf
}

// Intermediate returns the box halfway between c and other: element-wise
// midpoint of positions, half-sum of sizes, averaged confidence.
func (c Coord) Intermediate(other Coord) Coord {
	mid := Coord{
		x: (c.x + other.x) / 2,
		y: (c.y + other.y) / 2,
		w: (c.w + other.w) / 2,
		h: (c.h + other.h) / 2,
	}
	if c.scored || other.scored {
		mid.confidence = (c.confidence + other.confidence) / 2
		mid.scored = true
	}
	return mid
}

// Contains reports strict containment of other inside c. Two merely
// overlapping boxes are not contains-related.
func (c Coord) Contains(other Coord) bool {
	if other.x < c.x || other.y < c.y {
		return false
	}
	if other.x+other.w > c.x+c.w {
		return false
	}
	if other.y+other.h > c.y+c.h {
		return false
	}
	return !c.Equal(other)
}

// Scale multiplies the size by coeff, rounding to the nearest pixel, and
// returns the shifts (dx, dy) that would keep the box centered on the same
// point. When bounds is given, the scaled size must still fit inside it.
func (c *Coord) Scale(coeff float64, bounds ...image.Point) (dx, dy int, err error) {
	if coeff < 0 {
		return 0, 0, &RangeError{Field: "coeff", Value: coeff, Min: 0, Max: math.Inf(1)}
	}
	w := int(math.Round(float64(c.w) * coeff))
	h := int(math.Round(float64(c.h) * coeff))
	if len(bounds) > 0 {
		if w > bounds[0].X || h > bounds[0].Y {
			return 0, 0, ErrBounds
		}
	}
	dx = -(w - c.w) / 2
	dy = -(h - c.h) / 2
	if err := c.setSize(w, h); err != nil {
		return 0, 0, err
	}
	return dx, dy, nil
}

// Shift translates the box by (dx, dy), clamping the position at zero.
// When bounds is given, a box pushed across the image edge fails with
// ErrEasting (horizontal) or ErrNorthing (vertical) and the Coord is left
// unchanged.
func (c *Coord) Shift(dx, dy int, bounds ...image.Point) error {
	x := c.x + dx
	if x < 0 {
		x = 0
	}
	y := c.y + dy
	if y < 0 {
		y = 0
	}
	if len(bounds) > 0 {
		b := bounds[0]
		if x >= b.X || x+c.w > b.X {
			return ErrEasting
		}
		if y >= b.Y || y+c.h > b.Y {
			return ErrNorthing
		}
	}
	return c.setPosition(x, y)
}

// Copy returns a duplicate, confidence included.
func (c Coord) Copy() Coord { return c }

// String implements fmt.Stringer.
func (c Coord) String() string {
	if c.scored {
		return fmt.Sprintf("(%d,%d) %dx%d: %f", c.x, c.y, c.w, c.h, c.confidence)
	}
	return fmt.Sprintf("(%d,%d) %dx%d", c.x, c.y, c.w, c.h)
}
