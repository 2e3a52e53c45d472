package geometry

import (
	"errors"
	"image"
	"math"
	"testing"
)

const floatTolerance = 1e-6

func floatEquals(a, b float64) bool {
	return math.Abs(a-b) < floatTolerance
}

func mustCoord(t *testing.T, x, y, w, h int) Coord {
	t.Helper()
	c, err := New(x, y, w, h)
	if err != nil {
		t.Fatalf("New(%d,%d,%d,%d): %v", x, y, w, h, err)
	}
	return c
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name       string
		x, y, w, h int
		ok         bool
	}{
		{"origin", 0, 0, 0, 0, true},
		{"typical", 143, 17, 150, 98, true},
		{"max", MaxX, MaxY, MaxW, MaxH, true},
		{"negative x", -1, 0, 10, 10, false},
		{"negative h", 0, 0, 10, -10, false},
		{"x too large", MaxX + 1, 0, 10, 10, false},
		{"h too large", 0, 0, 10, MaxH + 1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.x, tt.y, tt.w, tt.h)
			if (err == nil) != tt.ok {
				t.Errorf("New(%d,%d,%d,%d): err=%v, want ok=%v", tt.x, tt.y, tt.w, tt.h, err, tt.ok)
			}
			if err != nil {
				var re *RangeError
				if !errors.As(err, &re) {
					t.Errorf("expected *RangeError, got %T", err)
				}
			}
		})
	}
}

func TestNewScored_ConfidenceRange(t *testing.T) {
	if _, err := NewScored(0, 0, 1, 1, 0.5); err != nil {
		t.Fatalf("valid confidence rejected: %v", err)
	}
	if _, err := NewScored(0, 0, 1, 1, 1.5); err == nil {
		t.Error("confidence > 1 accepted")
	}
	if _, err := NewScored(0, 0, 1, 1, -0.1); err == nil {
		t.Error("confidence < 0 accepted")
	}
}

func TestFromValue_Roundtrip(t *testing.T) {
	orig, _ := NewScored(10, 20, 30, 40, 0.7)
	got, err := FromValue(orig)
	if err != nil {
		t.Fatalf("FromValue(Coord): %v", err)
	}
	if !got.Equal(orig) {
		t.Errorf("roundtrip changed geometry: %v vs %v", got, orig)
	}
	if s, ok := got.Confidence(); !ok || !floatEquals(s, 0.7) {
		t.Errorf("roundtrip lost confidence: %v %v", s, ok)
	}
}

func TestFromValue_Arity(t *testing.T) {
	// (x, y)
	c, err := FromValue([]int{5, 6})
	if err != nil || c.X() != 5 || c.Y() != 6 || c.W() != 0 {
		t.Errorf("arity 2: %v %v", c, err)
	}

	// (x, y, confidence)
	c, err = FromValue([]float64{5, 6, 0.9})
	if err != nil {
		t.Fatalf("arity 3: %v", err)
	}
	if s, ok := c.Confidence(); !ok || !floatEquals(s, 0.9) {
		t.Errorf("arity 3 confidence: %v %v", s, ok)
	}

	// (x, y, w, h)
	c, err = FromValue([]int{5, 6, 7, 8})
	if err != nil || c.W() != 7 || c.H() != 8 {
		t.Errorf("arity 4: %v %v", c, err)
	}

	// (x, y, w, h, confidence)
	c, err = FromValue([]float64{5, 6, 7, 8, 0.25})
	if err != nil {
		t.Fatalf("arity 5: %v", err)
	}
	if s, _ := c.Confidence(); !floatEquals(s, 0.25) {
		t.Errorf("arity 5 confidence: %v", s)
	}

	// Unsupported shapes
	if _, err := FromValue([]int{1}); err == nil {
		t.Error("arity 1 accepted")
	}
	if _, err := FromValue("nope"); err == nil {
		t.Error("string accepted")
	}
	var te *TypeError
	_, err = FromValue(42)
	if !errors.As(err, &te) {
		t.Errorf("expected *TypeError, got %T", err)
	}
}

func TestEqual_IgnoresConfidence(t *testing.T) {
	a, _ := NewScored(1, 2, 3, 4, 0.1)
	b, _ := NewScored(1, 2, 3, 4, 0.9)
	if !a.Equal(b) {
		t.Error("boxes with different confidences should compare equal")
	}
	if a.Key() != b.Key() {
		t.Error("keys should match when geometry matches")
	}
}

func TestOverlap_Scenario(t *testing.T) {
	a := mustCoord(t, 0, 0, 30, 30)
	b := mustCoord(t, 10, 10, 40, 40)

	if a.Area() != 900 {
		t.Errorf("a.Area() = %d, want 900", a.Area())
	}
	if b.Area() != 1600 {
		t.Errorf("b.Area() = %d, want 1600", b.Area())
	}
	if in := a.IntersectionArea(b); in != 400 {
		t.Errorf("intersection = %d, want 400", in)
	}

	inOther, inSelf := a.Overlap(b)
	if !floatEquals(inOther, 400.0/1600.0*100) {
		t.Errorf("inOther = %v, want 25", inOther)
	}
	if !floatEquals(inSelf, 400.0/900.0*100) {
		t.Errorf("inSelf = %v, want 44.44", inSelf)
	}
}

func TestOverlap_Symmetry(t *testing.T) {
	a := mustCoord(t, 0, 0, 30, 30)
	b := mustCoord(t, 10, 10, 40, 40)

	if a.IntersectionArea(b) != b.IntersectionArea(a) {
		t.Error("intersection area is not symmetric")
	}
	abOther, abSelf := a.Overlap(b)
	baOther, baSelf := b.Overlap(a)
	if !floatEquals(abOther, baSelf) || !floatEquals(abSelf, baOther) {
		t.Errorf("overlap not reversed: (%v,%v) vs (%v,%v)", abOther, abSelf, baOther, baSelf)
	}
}

func TestOverlap_Disjoint(t *testing.T) {
	a := mustCoord(t, 0, 0, 10, 10)
	b := mustCoord(t, 100, 100, 10, 10)
	if in := a.IntersectionArea(b); in != 0 {
		t.Errorf("disjoint intersection = %d", in)
	}
	p, q := a.Overlap(b)
	if p != 0 || q != 0 {
		t.Errorf("disjoint overlap = (%v, %v)", p, q)
	}
}

func TestContains_Strict(t *testing.T) {
	outer := mustCoord(t, 0, 0, 100, 100)
	inner := mustCoord(t, 10, 10, 20, 20)
	overlapping := mustCoord(t, 50, 50, 100, 100)

	if !outer.Contains(inner) {
		t.Error("inner box should be contained")
	}
	if outer.Contains(overlapping) {
		t.Error("overlapping box is not contained")
	}
	if outer.Contains(outer) {
		t.Error("a box does not strictly contain itself")
	}
}

func TestScale_PreservesCenter(t *testing.T) {
	c := mustCoord(t, 143, 17, 150, 98)
	dx, dy, err := c.Scale(2.0)
	if err != nil {
		t.Fatalf("Scale: %v", err)
	}
	if c.W() != 300 || c.H() != 196 {
		t.Errorf("scaled size = %dx%d, want 300x196", c.W(), c.H())
	}
	if dx != -75 || dy != -49 {
		t.Errorf("centering shift = (%d, %d), want (-75, -49)", dx, dy)
	}
}

func TestScale_Bounds(t *testing.T) {
	c := mustCoord(t, 0, 0, 100, 100)
	if _, _, err := c.Scale(10, image.Pt(640, 480)); !errors.Is(err, ErrBounds) {
		t.Errorf("expected ErrBounds, got %v", err)
	}
	// Failed scale leaves the size unchanged.
	if c.W() != 100 || c.H() != 100 {
		t.Errorf("failed scale mutated size: %dx%d", c.W(), c.H())
	}
	if _, _, err := c.Scale(-1); err == nil {
		t.Error("negative coefficient accepted")
	}
}

func TestShift_ClampAndBounds(t *testing.T) {
	c := mustCoord(t, 10, 10, 20, 20)
	if err := c.Shift(-50, -50); err != nil {
		t.Fatalf("Shift: %v", err)
	}
	if c.X() != 0 || c.Y() != 0 {
		t.Errorf("clamped position = (%d, %d), want (0, 0)", c.X(), c.Y())
	}

	c = mustCoord(t, 10, 10, 20, 20)
	if err := c.Shift(700, 0, image.Pt(640, 480)); !errors.Is(err, ErrEasting) {
		t.Errorf("expected ErrEasting, got %v", err)
	}
	if err := c.Shift(0, 700, image.Pt(640, 480)); !errors.Is(err, ErrNorthing) {
		t.Errorf("expected ErrNorthing, got %v", err)
	}
	// Failed shift leaves the position unchanged.
	if c.X() != 10 || c.Y() != 10 {
		t.Errorf("failed shift mutated position: (%d, %d)", c.X(), c.Y())
	}
}

func TestIntermediate(t *testing.T) {
	a, _ := NewScored(0, 0, 10, 10, 0.2)
	b, _ := NewScored(20, 20, 30, 30, 0.8)
	mid := a.Intermediate(b)
	if mid.X() != 10 || mid.Y() != 10 || mid.W() != 20 || mid.H() != 20 {
		t.Errorf("intermediate = %v", mid)
	}
	if s, ok := mid.Confidence(); !ok || !floatEquals(s, 0.5) {
		t.Errorf("intermediate confidence = %v %v", s, ok)
	}
}
