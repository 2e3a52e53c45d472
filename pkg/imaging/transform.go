package imaging

import (
	"image"
	"image/color"
	"math"

	"github.com/annolab/mediasync/pkg/geometry"
	"gocv.io/x/gocv"
)

// ICrop returns the sub-image delimited by c, clipped to the image bounds.
func (img *Image) ICrop(c geometry.Coord) (*Image, error) {
	r := c.Rect().Intersect(image.Rect(0, 0, img.W(), img.H()))
	if r.Empty() {
		return nil, ErrEmptyImage
	}
	region := img.mat.Region(r)
	defer region.Close()
	return &Image{mat: region.Clone()}, nil
}

// IResize returns a copy resized to w×h. When one dimension is zero the
// other is derived proportionally. Enlargement uses bicubic interpolation,
// shrinking uses area interpolation.
func (img *Image) IResize(w, h int) (*Image, error) {
	if w < 0 || h < 0 || (w == 0 && h == 0) {
		return nil, &SizeError{W: w, H: h}
	}
	if w == 0 {
		w = int(math.Round(float64(h) * float64(img.W()) / float64(img.H())))
	}
	if h == 0 {
		h = int(math.Round(float64(w) * float64(img.H()) / float64(img.W())))
	}
	interp := gocv.InterpolationArea
	if w*h > img.W()*img.H() {
		interp = gocv.InterpolationCubic
	}
	dst := gocv.NewMat()
	gocv.Resize(img.mat, &dst, image.Pt(w, h), 0, 0, interp)
	return &Image{mat: dst}, nil
}

// IZoom scales the image preserving its aspect ratio until the target is
// covered, then center-crops to exactly w×h.
func (img *Image) IZoom(w, h int) (*Image, error) {
	if w <= 0 || h <= 0 {
		return nil, &SizeError{W: w, H: h}
	}
	coeff := math.Max(float64(w)/float64(img.W()), float64(h)/float64(img.H()))
	scaled, err := img.IResize(
		int(math.Ceil(float64(img.W())*coeff)),
		int(math.Ceil(float64(img.H())*coeff)))
	if err != nil {
		return nil, err
	}
	defer scaled.Close()
	x := (scaled.W() - w) / 2
	y := (scaled.H() - h) / 2
	box, err := geometry.New(x, y, w, h)
	if err != nil {
		return nil, err
	}
	return scaled.ICrop(box)
}

// ICenter pastes the image centered on a black canvas of exactly w×h.
// An image larger than the canvas is center-cropped.
func (img *Image) ICenter(w, h int) (*Image, error) {
	if w <= 0 || h <= 0 {
		return nil, &SizeError{W: w, H: h}
	}
	canvas, err := Blank(w, h, false, img.Channels() == 4, 255)
	if err != nil {
		return nil, err
	}
	x := (w - img.W()) / 2
	y := (h - img.H()) / 2
	src := img
	if x < 0 || y < 0 {
		cropX, cropY := 0, 0
		if x < 0 {
			cropX = -x
			x = 0
		}
		if y < 0 {
			cropY = -y
			y = 0
		}
		box, err := geometry.New(cropX, cropY, min(w, img.W()), min(h, img.H()))
		if err != nil {
			canvas.Close()
			return nil, err
		}
		src, err = img.ICrop(box)
		if err != nil {
			canvas.Close()
			return nil, err
		}
		defer src.Close()
	}
	at, err := geometry.New(x, y, 0, 0)
	if err != nil {
		canvas.Close()
		return nil, err
	}
	out, err := canvas.IPaste(src, at)
	canvas.Close()
	return out, err
}

// IExtend resizes preserving the aspect ratio until the image fits inside
// w×h, then centers it on a black canvas of that size.
func (img *Image) IExtend(w, h int) (*Image, error) {
	if w <= 0 || h <= 0 {
		return nil, &SizeError{W: w, H: h}
	}
	coeff := math.Min(float64(w)/float64(img.W()), float64(h)/float64(img.H()))
	scaled, err := img.IResize(
		int(math.Round(float64(img.W())*coeff)),
		int(math.Round(float64(img.H())*coeff)))
	if err != nil {
		return nil, err
	}
	defer scaled.Close()
	return scaled.ICenter(w, h)
}

// IRotate returns a copy rotated clockwise by angle degrees around center
// (the image center when nil), scaled by scale. The canvas is expanded so
// no pixel is lost.
func (img *Image) IRotate(angle float64, center *image.Point, scale float64) *Image {
	c := img.Center()
	if center != nil {
		c = *center
	}
	// OpenCV rotates counter-clockwise for positive angles.
	m := gocv.GetRotationMatrix2D(c, -angle, scale)
	defer m.Close()

	cos := math.Abs(m.GetDoubleAt(0, 0))
	sin := math.Abs(m.GetDoubleAt(0, 1))
	nw := int(float64(img.H())*sin + float64(img.W())*cos)
	nh := int(float64(img.H())*cos + float64(img.W())*sin)

	m.SetDoubleAt(0, 2, m.GetDoubleAt(0, 2)+float64(nw)/2-float64(c.X))
	m.SetDoubleAt(1, 2, m.GetDoubleAt(1, 2)+float64(nh)/2-float64(c.Y))

	dst := gocv.NewMat()
	gocv.WarpAffineWithParams(img.mat, &dst, m, image.Pt(nw, nh),
		gocv.InterpolationLinear, gocv.BorderConstant, color.RGBA{})
	return &Image{mat: dst}
}

// IShift translates the pixels by (dx, dy) on a canvas of unchanged size;
// vacated areas are black.
func (img *Image) IShift(dx, dy int) *Image {
	m := gocv.NewMatWithSize(2, 3, gocv.MatTypeCV64F)
	defer m.Close()
	m.SetDoubleAt(0, 0, 1)
	m.SetDoubleAt(0, 2, float64(dx))
	m.SetDoubleAt(1, 1, 1)
	m.SetDoubleAt(1, 2, float64(dy))

	dst := gocv.NewMat()
	gocv.WarpAffineWithParams(img.mat, &dst, m, img.Size(),
		gocv.InterpolationLinear, gocv.BorderConstant, color.RGBA{})
	return &Image{mat: dst}
}

// IFlip mirrors the image: code 0 flips vertically, a positive code
// horizontally and a negative code both ways.
func (img *Image) IFlip(code int) *Image {
	dst := gocv.NewMat()
	gocv.Flip(img.mat, &dst, code)
	return &Image{mat: dst}
}
