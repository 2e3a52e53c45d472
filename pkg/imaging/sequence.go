package imaging

import (
	"image"

	"github.com/annolab/mediasync/pkg/geometry"
)

// Alpha given to the motion-trail echoes of IOverlays.
const echoAlpha = 85

// interpolateCoord returns the box at fraction t along the straight line
// from c1 to c2, interpolating position and size.
func interpolateCoord(c1, c2 geometry.Coord, t float64) geometry.Coord {
	lerp := func(a, b int) int {
		return a + int(float64(b-a)*t)
	}
	c, err := geometry.New(lerp(c1.X(), c2.X()), lerp(c1.Y(), c2.Y()),
		lerp(c1.W(), c2.W()), lerp(c1.H(), c2.H()))
	if err != nil {
		// Interpolants of two valid boxes stay in range.
		return c1
	}
	return c
}

// IOverlays returns n+2 images tracing an overlay of other from c1 to c2.
// The endpoints are plain overlays; the n intermediates interpolate
// linearly in position and size. With blur set, each intermediate also
// receives three transparent echoes of the blurred other at third-step
// offsets behind the leading overlay, producing a motion trail.
func (img *Image) IOverlays(other *Image, c1, c2 geometry.Coord, n int, blur bool) ([]*Image, error) {
	if n < 0 {
		n = 0
	}
	out := make([]*Image, 0, n+2)
	fail := func(err error) ([]*Image, error) {
		for _, im := range out {
			im.Close()
		}
		return nil, err
	}

	first, err := img.IOverlay(other, c1)
	if err != nil {
		return fail(err)
	}
	out = append(out, first)

	var blurred *Image
	if blur {
		b := other.IBlur().ToBGRA()
		blurred = b.IAlpha(echoAlpha, AlphaAtMost)
		b.Close()
		defer blurred.Close()
	}

	steps := float64(n + 1)
	for i := 1; i <= n; i++ {
		t := float64(i) / steps
		at := interpolateCoord(c1, c2, t)

		frame := img.Copy()
		if blur {
			// Echoes trail the leading overlay by thirds of one step.
			for k := 1; k <= 3; k++ {
				back := t - float64(k)/(3*steps)
				if back < 0 {
					break
				}
				echoAt := interpolateCoord(c1, c2, back)
				withEcho, err := frame.IOverlay(blurred, echoAt)
				frame.Close()
				if err != nil {
					return fail(err)
				}
				frame = withEcho
			}
		}
		step, err := frame.IOverlay(other, at)
		frame.Close()
		if err != nil {
			return fail(err)
		}
		out = append(out, step)
	}

	last, err := img.IOverlay(other, c2)
	if err != nil {
		return fail(err)
	}
	out = append(out, last)
	return out, nil
}

// IRotates returns n+2 images stepping linearly from angle a1 to a2 and
// from scale 1 to scale, rotated around center (image center when nil).
func (img *Image) IRotates(a1, a2 float64, center *image.Point, scale float64, n int) []*Image {
	if n < 0 {
		n = 0
	}
	steps := float64(n + 1)
	out := make([]*Image, 0, n+2)
	for i := 0; i <= n+1; i++ {
		t := float64(i) / steps
		angle := a1 + (a2-a1)*t
		s := 1 + (scale-1)*t
		out = append(out, img.IRotate(angle, center, s))
	}
	return out
}

// IScales returns n+2 images stepping linearly from the original size to
// scale s, with no rotation.
func (img *Image) IScales(s float64, n int) []*Image {
	return img.IRotates(0, 0, nil, s, n)
}

// IShadow blends a shifted dark copy under the image. The shift is the
// historical fixed offset (5, 20); dx and dy are accepted for interface
// stability but ignored.
func (img *Image) IShadow(dx, dy int) (*Image, error) {
	_ = dx
	_ = dy
	shadow := img.IGray()
	defer shadow.Close()
	shifted := shadow.IShift(5, 20)
	defer shifted.Close()
	return shifted.IBlend(img, nil, 0.4, 0.6)
}
