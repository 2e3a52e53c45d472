// Package imaging provides the BGR(A) image value type used by the video
// pipeline and the detectors. Transforms return a new Image; the drawing
// methods in draw.go mutate in place.
package imaging

import (
	"fmt"
	"image"
	"path/filepath"
	"strings"

	"gocv.io/x/gocv"
)

// Extensions accepted by Open and Write, lowercased.
var supportedExtensions = map[string]bool{
	".png": true, ".jpg": true, ".bmp": true, ".dib": true,
	".jpeg": true, ".jpe": true, ".jp2": true, ".pbm": true,
	".pgm": true, ".sr": true, ".ras": true, ".tiff": true, ".tif": true,
}

// SupportedExtension reports whether path has a decodable image extension.
func SupportedExtension(path string) bool {
	return supportedExtensions[strings.ToLower(filepath.Ext(path))]
}

// Image is a 2-D matrix of unsigned byte pixels with 3 (BGR) or 4 (BGRA)
// channels. The zero value is not usable; construct with Open, FromMat,
// Decode or Blank. Call Close to release the underlying matrix.
type Image struct {
	mat gocv.Mat
}

// Open decodes an image file. Alpha is preserved when present; grayscale
// input is promoted to BGR.
func Open(path string) (*Image, error) {
	if !SupportedExtension(path) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	mat := gocv.IMRead(path, gocv.IMReadUnchanged)
	if mat.Empty() {
		return nil, &ReadError{Path: path, Err: ErrEmptyImage}
	}
	return FromMat(mat)
}

// Decode decodes an in-memory encoded image (PNG, JPEG, ...).
func Decode(buf []byte) (*Image, error) {
	mat, err := gocv.IMDecode(buf, gocv.IMReadUnchanged)
	if err != nil {
		return nil, fmt.Errorf("imaging: decode: %w", err)
	}
	if mat.Empty() {
		return nil, ErrEmptyImage
	}
	return FromMat(mat)
}

// FromMat wraps a Mat, taking ownership. A single-channel matrix is
// promoted to BGR; anything but 1, 3 or 4 channels is rejected.
func FromMat(mat gocv.Mat) (*Image, error) {
	if mat.Empty() {
		return nil, ErrEmptyImage
	}
	switch mat.Channels() {
	case 1:
		bgr := gocv.NewMat()
		gocv.CvtColor(mat, &bgr, gocv.ColorGrayToBGR)
		mat.Close()
		return &Image{mat: bgr}, nil
	case 3, 4:
		return &Image{mat: mat}, nil
	default:
		mat.Close()
		return nil, fmt.Errorf("%w: %d channels", ErrChannels, mat.Channels())
	}
}

// Blank creates a uniform image of the given size: white when white is
// true, black otherwise. With withAlpha set, the image carries a fourth
// channel filled with alpha.
func Blank(w, h int, white bool, withAlpha bool, alpha uint8) (*Image, error) {
	if w <= 0 || h <= 0 {
		return nil, &SizeError{W: w, H: h}
	}
	matType := gocv.MatTypeCV8UC3
	if withAlpha {
		matType = gocv.MatTypeCV8UC4
	}
	mat := gocv.NewMatWithSize(h, w, matType)
	var v float64
	if white {
		v = 255
	}
	if withAlpha {
		mat.SetTo(gocv.NewScalar(v, v, v, float64(alpha)))
	} else {
		mat.SetTo(gocv.NewScalar(v, v, v, 0))
	}
	return &Image{mat: mat}, nil
}

// Close releases the pixel matrix. The image must not be used afterwards.
func (img *Image) Close() error {
	return img.mat.Close()
}

// Mat exposes the underlying matrix. Callers must not Close it.
func (img *Image) Mat() gocv.Mat { return img.mat }

// W returns the width in pixels.
func (img *Image) W() int { return img.mat.Cols() }

// H returns the height in pixels.
func (img *Image) H() int { return img.mat.Rows() }

// Size returns (width, height).
func (img *Image) Size() image.Point { return image.Pt(img.mat.Cols(), img.mat.Rows()) }

// Center returns the middle pixel (w/2, h/2).
func (img *Image) Center() image.Point { return image.Pt(img.mat.Cols()/2, img.mat.Rows()/2) }

// Channels returns 3 for BGR images and 4 for BGRA.
func (img *Image) Channels() int { return img.mat.Channels() }

// Copy returns an independent duplicate.
func (img *Image) Copy() *Image {
	return &Image{mat: img.mat.Clone()}
}

// Equal reports whether the two images have identical size, channel count
// and pixel content.
func (img *Image) Equal(other *Image) bool {
	if img.W() != other.W() || img.H() != other.H() || img.Channels() != other.Channels() {
		return false
	}
	a, errA := img.data()
	b, errB := other.data()
	if errA != nil || errB != nil {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// At returns the pixel at (x, y) as (b, g, r, a). Alpha is 255 for
// 3-channel images.
func (img *Image) At(x, y int) (b, g, r, a uint8) {
	ch := img.Channels()
	b = img.mat.GetUCharAt(y, x*ch)
	g = img.mat.GetUCharAt(y, x*ch+1)
	r = img.mat.GetUCharAt(y, x*ch+2)
	a = 255
	if ch == 4 {
		a = img.mat.GetUCharAt(y, x*ch+3)
	}
	return b, g, r, a
}

// ToBGRA returns a 4-channel copy. An already 4-channel image is cloned.
func (img *Image) ToBGRA() *Image {
	if img.Channels() == 4 {
		return img.Copy()
	}
	dst := gocv.NewMat()
	gocv.CvtColor(img.mat, &dst, gocv.ColorBGRToBGRA)
	return &Image{mat: dst}
}

// ToBGR returns a 3-channel copy. An already 3-channel image is cloned.
func (img *Image) ToBGR() *Image {
	if img.Channels() == 3 {
		return img.Copy()
	}
	dst := gocv.NewMat()
	gocv.CvtColor(img.mat, &dst, gocv.ColorBGRAToBGR)
	return &Image{mat: dst}
}

// ToRGB returns an RGB-ordered 3-channel copy, the layout published to
// host paint surfaces.
func (img *Image) ToRGB() *Image {
	src := img.mat
	if img.Channels() == 4 {
		tmp := gocv.NewMat()
		gocv.CvtColor(img.mat, &tmp, gocv.ColorBGRAToBGR)
		defer tmp.Close()
		src = tmp
	}
	dst := gocv.NewMat()
	gocv.CvtColor(src, &dst, gocv.ColorBGRToRGB)
	return &Image{mat: dst}
}

// Write encodes the image to path; the format follows the extension.
func (img *Image) Write(path string) error {
	if !SupportedExtension(path) {
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	if ok := gocv.IMWrite(path, img.mat); !ok {
		return fmt.Errorf("imaging: write %s failed", path)
	}
	return nil
}

// Encode returns the image encoded in the format named by ext (".png",
// ".jpg", ...).
func (img *Image) Encode(ext string) ([]byte, error) {
	if !supportedExtensions[strings.ToLower(ext)] {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
	buf, err := gocv.IMEncode(gocv.FileExt(ext), img.mat)
	if err != nil {
		return nil, fmt.Errorf("imaging: encode %s: %w", ext, err)
	}
	defer buf.Close()
	out := make([]byte, buf.Len())
	copy(out, buf.GetBytes())
	return out, nil
}

// data returns the raw pixel bytes of a continuous matrix.
func (img *Image) data() ([]byte, error) {
	buf, err := img.mat.DataPtrUint8()
	if err != nil {
		return nil, fmt.Errorf("imaging: pixel access: %w", err)
	}
	return buf, nil
}

// newLike allocates an uninitialized matrix with the same shape as img.
func (img *Image) newLike() gocv.Mat {
	return gocv.NewMatWithSize(img.H(), img.W(), gocv.MatType(img.mat.Type()))
}
