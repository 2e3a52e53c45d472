package imaging

import (
	"fmt"
	"math"

	"gocv.io/x/gocv"
)

// Luminance weights of the BGR channels.
const (
	lumaBlue  = 0.114
	lumaGreen = 0.587
	lumaRed   = 0.2989
)

// AlphaDirection selects how IAlpha combines a value with the existing
// alpha channel.
type AlphaDirection int

const (
	// AlphaAssign overwrites the alpha channel with the value.
	AlphaAssign AlphaDirection = 0
	// AlphaAtMost caps the alpha channel at the value.
	AlphaAtMost AlphaDirection = -1
	// AlphaAtLeast raises the alpha channel to at least the value.
	AlphaAtLeast AlphaDirection = 1
)

// mapPixels returns a copy of img with fn applied to every channel byte of
// every pixel. fn receives the channel index within the pixel.
func (img *Image) mapPixels(fn func(ch int, v uint8) uint8) *Image {
	out := img.Copy()
	buf, err := out.data()
	if err != nil {
		return out
	}
	nch := out.Channels()
	for i := range buf {
		buf[i] = fn(i%nch, buf[i])
	}
	return out
}

// IRed returns a red-only copy: blue and green zeroed, red set to
// value mod 255. Alpha is preserved.
func (img *Image) IRed(value int) *Image {
	v := uint8(value % 255)
	return img.mapPixels(func(ch int, p uint8) uint8 {
		switch ch {
		case 0, 1:
			return 0
		case 2:
			return v
		default:
			return p
		}
	})
}

// IGreen returns a green-only copy.
func (img *Image) IGreen(value int) *Image {
	v := uint8(value % 255)
	return img.mapPixels(func(ch int, p uint8) uint8 {
		switch ch {
		case 0, 2:
			return 0
		case 1:
			return v
		default:
			return p
		}
	})
}

// IBlue returns a blue-only copy.
func (img *Image) IBlue(value int) *Image {
	v := uint8(value % 255)
	return img.mapPixels(func(ch int, p uint8) uint8 {
		switch ch {
		case 1, 2:
			return 0
		case 0:
			return v
		default:
			return p
		}
	})
}

// IBGR returns a copy filled with the flat color (b, g, r) or (b, g, r, a)
// when the image carries an alpha channel and 4 components are given.
func (img *Image) IBGR(color ...uint8) *Image {
	out := img.Copy()
	buf, err := out.data()
	if err != nil {
		return out
	}
	nch := out.Channels()
	for i := range buf {
		ch := i % nch
		if ch < len(color) {
			buf[i] = color[ch]
		}
	}
	return out
}

// IAlpha returns a copy with the alpha channel combined with value
// according to dir. A 3-channel image is returned unchanged; promote with
// ToBGRA first when an alpha channel is wanted.
func (img *Image) IAlpha(value uint8, dir AlphaDirection) *Image {
	if img.Channels() != 4 {
		return img.Copy()
	}
	return img.mapPixels(func(ch int, p uint8) uint8 {
		if ch != 3 {
			return p
		}
		switch {
		case dir == AlphaAssign:
			return value
		case dir < 0 && p > value:
			return value
		case dir > 0 && p < value:
			return value
		default:
			return p
		}
	})
}

// IGray returns a copy with the luminance Y = 0.114·B + 0.587·G + 0.2989·R
// written into every color channel. Alpha is preserved.
func (img *Image) IGray() *Image {
	out := img.Copy()
	buf, err := out.data()
	if err != nil {
		return out
	}
	nch := out.Channels()
	for i := 0; i+nch <= len(buf); i += nch {
		y := uint8(lumaBlue*float64(buf[i]) + lumaGreen*float64(buf[i+1]) + lumaRed*float64(buf[i+2]))
		buf[i], buf[i+1], buf[i+2] = y, y, y
	}
	return out
}

// GrayMat returns a single-channel grayscale matrix, used by detectors
// and the recognizer. The caller owns the returned Mat.
func (img *Image) GrayMat() gocv.Mat {
	src := img.mat
	var tmp gocv.Mat
	if img.Channels() == 4 {
		tmp = gocv.NewMat()
		gocv.CvtColor(img.mat, &tmp, gocv.ColorBGRAToBGR)
		src = tmp
	}
	gray := gocv.NewMat()
	gocv.CvtColor(src, &gray, gocv.ColorBGRToGray)
	if img.Channels() == 4 {
		tmp.Close()
	}
	return gray
}

// INegative returns the photographic negative, 255 − pixel. Alpha is
// inverted along with the color channels so the operation is an involution.
func (img *Image) INegative() *Image {
	return img.mapPixels(func(_ int, p uint8) uint8 {
		return 255 - p
	})
}

// IReduction quantizes every channel to multiples of v. With v outside
// (0, 255] the image is returned unchanged.
func (img *Image) IReduction(v int) *Image {
	if v <= 0 || v > 255 {
		return img.Copy()
	}
	q := uint8(v)
	return img.mapPixels(func(_ int, p uint8) uint8 {
		return p / q * q
	})
}

// IGamma applies the power-law mapping 255·(p/255)^c. The coefficient
// must not be negative.
func (img *Image) IGamma(c float64) (*Image, error) {
	if c < 0 {
		return nil, fmt.Errorf("imaging: gamma coefficient must not be negative, got %v", c)
	}
	var table [256]uint8
	for i := range table {
		table[i] = uint8(math.Round(255 * math.Pow(float64(i)/255, c)))
	}
	return img.mapPixels(func(_ int, p uint8) uint8 {
		return table[p]
	}), nil
}
