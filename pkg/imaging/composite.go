package imaging

import (
	"image"

	"github.com/annolab/mediasync/pkg/geometry"
	"gocv.io/x/gocv"
)

// Gaussian kernel used by IBlur.
const blurKernel = 51

// sameShape returns copies of a and b brought to a common channel count.
// When one operand is BGR and the other BGRA, the BGR one is promoted.
func sameShape(a, b *Image) (*Image, *Image) {
	switch {
	case a.Channels() == 3 && b.Channels() == 4:
		return a.ToBGRA(), b.Copy()
	case a.Channels() == 4 && b.Channels() == 3:
		return a.Copy(), b.ToBGRA()
	default:
		return a.Copy(), b.Copy()
	}
}

// IPaste returns a copy with other overwritten at c. When c carries a
// size, other is resized to it first. Out-of-bounds parts are clipped.
func (img *Image) IPaste(other *Image, c geometry.Coord) (*Image, error) {
	src := other
	if c.W() > 0 && c.H() > 0 && (c.W() != other.W() || c.H() != other.H()) {
		resized, err := other.IResize(c.W(), c.H())
		if err != nil {
			return nil, err
		}
		defer resized.Close()
		src = resized
	}

	out, patch := sameShape(img, src)
	defer patch.Close()

	dstRect := image.Rect(c.X(), c.Y(), c.X()+patch.W(), c.Y()+patch.H()).
		Intersect(image.Rect(0, 0, out.W(), out.H()))
	if dstRect.Empty() {
		return out, nil
	}
	srcRect := dstRect.Sub(image.Pt(c.X(), c.Y()))

	dstRegion := out.mat.Region(dstRect)
	srcRegion := patch.mat.Region(srcRect)
	srcRegion.CopyTo(&dstRegion)
	srcRegion.Close()
	dstRegion.Close()
	return out, nil
}

// IBlend returns the weighted sum w1·img + w2·other. When c is non-nil,
// other is first placed on a black canvas of img's size at c. Operand
// channel counts are reconciled by promotion to BGRA.
func (img *Image) IBlend(other *Image, c *geometry.Coord, w1, w2 float64) (*Image, error) {
	positioned := other
	if c != nil {
		canvas, err := Blank(img.W(), img.H(), false, other.Channels() == 4, 0)
		if err != nil {
			return nil, err
		}
		positioned, err = canvas.IPaste(other, *c)
		canvas.Close()
		if err != nil {
			return nil, err
		}
		defer positioned.Close()
	} else if other.W() != img.W() || other.H() != img.H() {
		resized, err := other.IResize(img.W(), img.H())
		if err != nil {
			return nil, err
		}
		defer resized.Close()
		positioned = resized
	}

	a, b := sameShape(img, positioned)
	defer a.Close()
	defer b.Close()

	dst := gocv.NewMat()
	gocv.AddWeighted(a.mat, w1, b.mat, w2, 0, &dst)
	return &Image{mat: dst}, nil
}

// IOverlay alpha-composites other over img at c, resizing other to c's
// size. Both operands are promoted to BGRA; the output is BGRA with
// outRGB = aF·F + aB·(1−aF)·B and outA = 1 − (1−aF)·(1−aB).
func (img *Image) IOverlay(other *Image, c geometry.Coord) (*Image, error) {
	out := img.ToBGRA()

	fg := other.ToBGRA()
	defer fg.Close()
	if c.W() > 0 && c.H() > 0 && (c.W() != fg.W() || c.H() != fg.H()) {
		resized, err := fg.IResize(c.W(), c.H())
		if err != nil {
			out.Close()
			return nil, err
		}
		fg.Close()
		fg = resized
	}

	dstBuf, err := out.data()
	if err != nil {
		out.Close()
		return nil, err
	}
	fgBuf, err := fg.data()
	if err != nil {
		out.Close()
		return nil, err
	}

	bounds := image.Rect(c.X(), c.Y(), c.X()+fg.W(), c.Y()+fg.H()).
		Intersect(image.Rect(0, 0, out.W(), out.H()))
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			di := (y*out.W() + x) * 4
			si := ((y-c.Y())*fg.W() + (x - c.X())) * 4

			aF := float64(fgBuf[si+3]) / 255
			aB := float64(dstBuf[di+3]) / 255
			outA := 1 - (1-aF)*(1-aB)
			for ch := 0; ch < 3; ch++ {
				f := float64(fgBuf[si+ch])
				b := float64(dstBuf[di+ch])
				dstBuf[di+ch] = clampByte(aF*f + aB*(1-aF)*b)
			}
			dstBuf[di+3] = clampByte(outA * 255)
		}
	}
	return out, nil
}

// IMask returns the pixel-wise product of the two images normalized by
// 255, so a white mask keeps the image and a black mask clears it.
// Channel counts are reconciled by promotion.
func (img *Image) IMask(other *Image) (*Image, error) {
	mask := other
	if other.W() != img.W() || other.H() != img.H() {
		resized, err := other.IResize(img.W(), img.H())
		if err != nil {
			return nil, err
		}
		defer resized.Close()
		mask = resized
	}

	out, m := sameShape(img, mask)
	defer m.Close()

	dstBuf, err := out.data()
	if err != nil {
		out.Close()
		return nil, err
	}
	mBuf, err := m.data()
	if err != nil {
		out.Close()
		return nil, err
	}
	for i := range dstBuf {
		dstBuf[i] = uint8(int(dstBuf[i]) * int(mBuf[i]) / 255)
	}
	return out, nil
}

// IBlur returns a Gaussian blur with a fixed 51×51 kernel.
func (img *Image) IBlur() *Image {
	dst := gocv.NewMat()
	gocv.GaussianBlur(img.mat, &dst, image.Pt(blurKernel, blurKernel), 0, 0, gocv.BorderDefault)
	return &Image{mat: dst}
}

// IContours returns a black image of the same size with the contours of
// the thresholded grayscale drawn in the given BGR color.
func (img *Image) IContours(threshold int, bgr [3]uint8) (*Image, error) {
	gray := img.GrayMat()
	defer gray.Close()

	bin := gocv.NewMat()
	defer bin.Close()
	gocv.Threshold(gray, &bin, float32(threshold), 255, gocv.ThresholdBinary)

	contours := gocv.FindContours(bin, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	out, err := Blank(img.W(), img.H(), false, false, 0)
	if err != nil {
		return nil, err
	}
	for i := 0; i < contours.Size(); i++ {
		gocv.DrawContours(&out.mat, contours, i, rgbaFromBGR(bgr), 2)
	}
	return out, nil
}

func clampByte(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v + 0.5)
}
