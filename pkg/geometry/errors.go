package geometry

import (
	"errors"
	"fmt"
)

// Sentinel errors for shift operations against an image boundary.
var (
	// ErrEasting is returned when a shifted box would cross the left or
	// right edge of the bounding image.
	ErrEasting = errors.New("geometry: box crosses the image east/west edge")

	// ErrNorthing is returned when a shifted box would cross the top or
	// bottom edge of the bounding image.
	ErrNorthing = errors.New("geometry: box crosses the image north/south edge")

	// ErrBounds is returned when a scaled or shifted box no longer fits
	// inside the bounding image at all.
	ErrBounds = errors.New("geometry: box does not fit inside the image")
)

// RangeError reports a coordinate component outside its allowed range.
type RangeError struct {
	Field string
	Value float64
	Min   float64
	Max   float64
}

// Error implements the error interface.
func (e *RangeError) Error() string {
	return fmt.Sprintf("geometry: %s=%v out of range [%v, %v]", e.Field, e.Value, e.Min, e.Max)
}

// TypeError reports a value that cannot be interpreted as a Coord.
type TypeError struct {
	Value any
}

// Error implements the error interface.
func (e *TypeError) Error() string {
	return fmt.Sprintf("geometry: cannot interpret %T as a coordinate", e.Value)
}
