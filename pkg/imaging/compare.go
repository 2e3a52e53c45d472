package imaging

import (
	"math"
)

// Weights of the individual measures in Comparer.Score.
const (
	weightMSE  = 0.4
	weightKLD  = 0.3
	weightArea = 0.15
	weightSize = 0.15
)

// Comparer scores the similarity of two images in [0, 1], combining pixel
// distance, distribution distance and shape agreement. Used by the
// identity recognizer to compare a candidate face against known ones.
type Comparer struct {
	a, b *Image
}

// NewComparer creates a comparer over the two images. Neither is closed
// or modified.
func NewComparer(a, b *Image) *Comparer {
	return &Comparer{a: a, b: b}
}

// AreaScore is the ratio of the smaller area to the larger one.
func (c *Comparer) AreaScore() float64 {
	a1 := float64(c.a.W() * c.a.H())
	a2 := float64(c.b.W() * c.b.H())
	if a1 == 0 || a2 == 0 {
		return 0
	}
	return math.Min(a1, a2) / math.Max(a1, a2)
}

// SizeScore averages the width ratio and the height ratio, each taken
// smaller-over-larger.
func (c *Comparer) SizeScore() float64 {
	ratio := func(x, y int) float64 {
		if x == 0 || y == 0 {
			return 0
		}
		return math.Min(float64(x), float64(y)) / math.Max(float64(x), float64(y))
	}
	return (ratio(c.a.W(), c.b.W()) + ratio(c.a.H(), c.b.H())) / 2
}

// MSEScore maps the mean squared error of the grayscale pixels into
// [0, 1], 1 meaning identical. The second image is resized to the first
// one's shape.
func (c *Comparer) MSEScore() float64 {
	ga := c.a.IGray()
	defer ga.Close()
	gb, err := c.b.IResize(c.a.W(), c.a.H())
	if err != nil {
		return 0
	}
	gbGray := gb.IGray()
	gb.Close()
	defer gbGray.Close()

	bufA, errA := ga.data()
	bufB, errB := gbGray.data()
	if errA != nil || errB != nil || len(bufA) != len(bufB) {
		return 0
	}
	chA := ga.Channels()
	var sum float64
	var n int
	for i := 0; i < len(bufA); i += chA {
		d := float64(bufA[i]) - float64(bufB[i])
		sum += d * d
		n++
	}
	if n == 0 {
		return 0
	}
	mse := sum / float64(n)
	return 1 - mse/(255*255)
}

// KLDScore maps the Kullback-Leibler divergence between the grayscale
// intensity distributions into (0, 1], 1 meaning identical distributions.
func (c *Comparer) KLDScore() float64 {
	p := c.a.grayHistogram()
	q := c.b.grayHistogram()

	const epsilon = 1e-9
	var kld float64
	for i := range p {
		pi := p[i] + epsilon
		qi := q[i] + epsilon
		kld += pi * math.Log(pi/qi)
	}
	if kld < 0 {
		kld = 0
	}
	return 1 / (1 + kld)
}

// Score combines the measures: 0.4·mse + 0.3·kld + 0.15·area + 0.15·size.
func (c *Comparer) Score() float64 {
	return weightMSE*c.MSEScore() +
		weightKLD*c.KLDScore() +
		weightArea*c.AreaScore() +
		weightSize*c.SizeScore()
}

// grayHistogram returns the normalized 256-bin intensity distribution.
func (img *Image) grayHistogram() [256]float64 {
	var hist [256]float64
	gray := img.IGray()
	defer gray.Close()
	buf, err := gray.data()
	if err != nil {
		return hist
	}
	ch := gray.Channels()
	var n float64
	for i := 0; i < len(buf); i += ch {
		hist[buf[i]]++
		n++
	}
	if n > 0 {
		for i := range hist {
			hist[i] /= n
		}
	}
	return hist
}
