package imaging

import (
	"image"
	"image/color"
	"strconv"

	"github.com/annolab/mediasync/pkg/geometry"
	"gocv.io/x/gocv"
)

func rgbaFromBGR(bgr [3]uint8) color.RGBA {
	return color.RGBA{R: bgr[2], G: bgr[1], B: bgr[0], A: 255}
}

// contrastColor shifts each channel by +128 mod 255 so text stays
// readable over a fill of the original color.
func contrastColor(bgr [3]uint8) [3]uint8 {
	return [3]uint8{
		uint8((int(bgr[0]) + 128) % 255),
		uint8((int(bgr[1]) + 128) % 255),
		uint8((int(bgr[2]) + 128) % 255),
	}
}

// textScale derives a font scale proportional to the image area.
func (img *Image) textScale() float64 {
	scale := float64(img.W()*img.H()) / 2_000_000
	if scale < 0.5 {
		scale = 0.5
	}
	if scale > 2 {
		scale = 2
	}
	return scale
}

// PutText draws text at the given position. Mutates the image.
func (img *Image) PutText(text string, at image.Point, bgr [3]uint8, thickness int) {
	gocv.PutText(&img.mat, text, at, gocv.FontHersheySimplex, img.textScale(), rgbaFromBGR(bgr), thickness)
}

// SurroundCoord draws a rectangle around c. A negative thickness fills
// the rectangle. When text is not empty it is drawn above the box; over a
// filled rectangle the text color is contrast-shifted. Mutates the image.
func (img *Image) SurroundCoord(c geometry.Coord, bgr [3]uint8, thickness int, text string) {
	gocv.Rectangle(&img.mat, c.Rect(), rgbaFromBGR(bgr), thickness)
	if text == "" {
		return
	}
	textColor := bgr
	if thickness < 0 {
		textColor = contrastColor(bgr)
	}
	at := image.Pt(c.X()+4, c.Y()+4+int(20*img.textScale()))
	th := thickness
	if th < 0 {
		th = 2
	}
	gocv.PutText(&img.mat, text, at, gocv.FontHersheySimplex, img.textScale(), rgbaFromBGR(textColor), th)
}

// SurroundPoint draws a circle marking the position of c: centered at
// (x − 2·thickness, y − 2·thickness) with radius 2·thickness. Mutates the
// image.
func (img *Image) SurroundPoint(c geometry.Coord, bgr [3]uint8, thickness int) {
	r := 2 * thickness
	center := image.Pt(c.X()-r, c.Y()-r)
	gocv.Circle(&img.mat, center, r, rgbaFromBGR(bgr), thickness)
}

// ISurround draws every coord: boxes with a non-zero size get a
// rectangle, degenerate boxes get a point circle. With score set, a
// box's confidence is drawn as its label. Mutates the image.
func (img *Image) ISurround(coords []geometry.Coord, bgr [3]uint8, thickness int, score bool) {
	for _, c := range coords {
		if c.W() > 0 && c.H() > 0 {
			text := ""
			if score {
				if s, ok := c.Confidence(); ok {
					text = formatScore(s)
				}
			}
			img.SurroundCoord(c, bgr, thickness, text)
		} else {
			img.SurroundPoint(c, bgr, thickness)
		}
	}
}

// Two decimals is enough for an on-frame label.
func formatScore(s float64) string {
	return strconv.FormatFloat(s, 'f', 2, 64)
}
