package detect

import (
	"errors"
	"testing"

	"github.com/annolab/mediasync/pkg/geometry"
)

func scored(t *testing.T, x, y, w, h int, score float64) geometry.Coord {
	t.Helper()
	c, err := geometry.NewScored(x, y, w, h, score)
	if err != nil {
		t.Fatalf("NewScored: %v", err)
	}
	return c
}

func TestNormalizeScores_Scenario(t *testing.T) {
	// Raw cascade weights with the historical anchors a=0.28, b=0.998,
	// a'=b.
	norm := Normalization{A: 0.28, B: 0.998, APrime: 0.998}
	scores := NormalizeScores([]float64{0.5, 1.0, 2.0}, norm)
	if len(scores) != 3 {
		t.Fatalf("len = %d", len(scores))
	}
	for i, s := range scores {
		if s < 0.28 || s > 0.998 {
			t.Errorf("score[%d] = %v outside [0.28, 0.998]", i, s)
		}
		if i > 0 && s <= scores[i-1] {
			t.Errorf("scores not monotonically increasing: %v", scores)
		}
	}
	if scores[2] > 0.998 {
		t.Errorf("max weight mapped to %v > 0.998", scores[2])
	}
}

func TestNormalizeScores_Empty(t *testing.T) {
	if got := NormalizeScores(nil, Normalization{A: 0.2, B: 0.9, APrime: 0.9}); got != nil {
		t.Errorf("empty input returned %v", got)
	}
}

func TestBase_FilterAndSort(t *testing.T) {
	b := newBase(".xml", 0.5, nil)
	b.coords = []geometry.Coord{
		scored(t, 0, 0, 10, 10, 0.4),
		scored(t, 0, 0, 10, 10, 0.9),
		scored(t, 0, 0, 10, 10, 0.6),
	}
	b.filterConfidence()
	b.sortByScore()

	if len(b.coords) != 2 {
		t.Fatalf("kept %d, want 2", len(b.coords))
	}
	if b.coords[0].Score() != 0.9 || b.coords[1].Score() != 0.6 {
		t.Errorf("not sorted by descending score: %v", b.coords)
	}
}

func TestBase_FilterOverlapped(t *testing.T) {
	b := newBase(".onnx", 0, nil)
	// The small box sits mostly inside the strictly larger one and must
	// be invalidated; the disjoint box survives.
	b.coords = []geometry.Coord{
		scored(t, 10, 10, 20, 20, 0.8),   // mostly inside the next
		scored(t, 0, 0, 100, 100, 0.9),   // strictly larger
		scored(t, 500, 500, 30, 30, 0.7), // disjoint
	}
	b.filterOverlapped()

	if len(b.coords) != 2 {
		t.Fatalf("kept %d, want 2", len(b.coords))
	}
	for _, c := range b.coords {
		if c.W() == 20 {
			t.Error("overlapped-out detection survived")
		}
	}
}

func TestBase_SetterValidation(t *testing.T) {
	b := newBase(".xml", 0.2, nil)
	if err := b.SetMinScore(1.2); err == nil {
		t.Error("minScore > 1 accepted")
	}
	if err := b.SetMinRatio(-0.1); err == nil {
		t.Error("minRatio < 0 accepted")
	}
	if err := b.SetMinScore(0.5); err != nil {
		t.Errorf("valid minScore rejected: %v", err)
	}
}

func TestBase_TooSmall(t *testing.T) {
	b := newBase(".xml", 0.2, nil)
	b.minRatio = 0.1
	if !b.tooSmall(5, 50, 100, 100) {
		t.Error("5px wide on a 100px image with ratio 0.1 should be too small")
	}
	if b.tooSmall(20, 20, 100, 100) {
		t.Error("20px on a 100px image with ratio 0.1 should pass")
	}
}

func TestFuse_MergeAndFilter(t *testing.T) {
	all := []geometry.Coord{
		scored(t, 0, 0, 50, 50, 0.6),
		scored(t, 10, 10, 50, 50, 0.7),   // overlaps the first
		scored(t, 500, 500, 30, 30, 0.1), // below min score
	}
	kept := fuse(all, 0.4)

	if len(kept) != 1 {
		t.Fatalf("kept %d, want 1", len(kept))
	}
	// The survivor accumulated the other's confidence, capped at 1.
	if kept[0].Score() != 1 {
		t.Errorf("merged confidence = %v, want 1", kept[0].Score())
	}
	for _, c := range kept {
		if c.Score() <= 0.4 {
			t.Errorf("kept a detection at %v <= minScore", c.Score())
		}
	}
}

func TestFuse_NoMutualOverlapSurvives(t *testing.T) {
	all := []geometry.Coord{
		scored(t, 0, 0, 40, 40, 0.5),
		scored(t, 20, 20, 40, 40, 0.5),
	}
	kept := fuse(all, 0.2)
	// After fusion no two kept boxes may overlap with both confidences
	// non-zero.
	for i := range kept {
		for j := range kept {
			if i != j && kept[i].IntersectionArea(kept[j]) > 0 {
				t.Errorf("mutually overlapping survivors: %v and %v", kept[i], kept[j])
			}
		}
	}
}

func TestNewFromExtension(t *testing.T) {
	tests := []struct {
		path string
		ok   bool
	}{
		{"model.xml", true},
		{"model.caffemodel", true},
		{"model.pb", true},
		{"model.ONNX", true},
		{"model.bin", false},
		{"model", false},
	}
	for _, tt := range tests {
		d, err := NewFromExtension(tt.path, nil)
		if (err == nil) != tt.ok {
			t.Errorf("NewFromExtension(%q): err=%v, want ok=%v", tt.path, err, tt.ok)
		}
		if err != nil && !errors.Is(err, ErrNoDetector) {
			t.Errorf("unexpected error kind: %v", err)
		}
		if d != nil {
			d.Close()
		}
	}
}

func TestLoadModel_Validation(t *testing.T) {
	d := NewCascade(nil)
	defer d.Close()

	var extErr *ExtensionError
	if err := d.LoadModel("model.onnx"); !errors.As(err, &extErr) {
		t.Errorf("wrong extension: got %v", err)
	}
	if err := d.LoadModel("no/such/model.xml"); !errors.Is(err, ErrModelMissing) {
		t.Errorf("missing file: got %v", err)
	}
	if err := d.Detect(nil); !errors.Is(err, ErrNotLoaded) {
		t.Errorf("detect before load: got %v", err)
	}
}

func TestMulti_AddModelFailureContinues(t *testing.T) {
	m := NewMulti(nil)
	defer m.Close()

	if err := m.AddModel("missing.xml"); err == nil {
		t.Error("missing model silently accepted")
	}
	if m.Size() != 0 {
		t.Errorf("failed model was registered, size = %d", m.Size())
	}
	if err := m.Detect(nil); err == nil {
		t.Error("detect with no members should fail")
	}
}
