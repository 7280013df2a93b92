package ocr

import (
	"image"
	"testing"
)

func TestScoreKeyOrdering(t *testing.T) {
	cases := []struct {
		a, b scoreKey
		less bool
	}{
		// header hits dominate everything
		{scoreKey{0, 9, 0.99}, scoreKey{1, 0, 0.01}, true},
		// then critical hits
		{scoreKey{2, 1, 0.99}, scoreKey{2, 2, 0.01}, true},
		// then mean confidence
		{scoreKey{2, 2, 0.40}, scoreKey{2, 2, 0.41}, true},
		{scoreKey{2, 2, 0.41}, scoreKey{2, 2, 0.40}, false},
	}
	for i, tc := range cases {
		if got := tc.a.less(tc.b); got != tc.less {
			t.Errorf("case %d: less(%+v, %+v) = %v, want %v", i, tc.a, tc.b, got, tc.less)
		}
	}
}

func TestHeaderAndCriticalHits(t *testing.T) {
	lines := []Line{
		{Text: "Day 102, 08:15:30: Your Thatch Wall was destroyed by Human!"},
		{Text: "Dav 102,08:16: Your Rex was killed!"},
		{Text: "some stray text"},
		{Text: ""},
	}
	if got := headerHits(lines); got != 2 {
		t.Errorf("headerHits = %d, want 2", got)
	}
	if got := criticalHits(lines); got != 2 {
		t.Errorf("criticalHits = %d, want 2", got)
	}
}

func TestFuzzyEventKeyToleratesDigitNoise(t *testing.T) {
	a := fuzzyEventKey("Day 102, 08:15:30: Your Rex - Lvl 300 was killed!")
	b := fuzzyEventKey("Day 102, 08:15:30: Your Rex - Lvl 380 was killed!")
	if a != b {
		t.Errorf("digit noise in message should not change key: %q vs %q", a, b)
	}
	c := fuzzyEventKey("Day 102, 08:16:30: Your Rex - Lvl 300 was killed!")
	if a == c {
		t.Error("different timestamps must not collide")
	}
	d := fuzzyEventKey("Day 103, 08:15:30: Your Rex - Lvl 300 was killed!")
	if a == d {
		t.Error("different days must not collide")
	}
}

func TestVariantRankPrefersColorIsolationEarly(t *testing.T) {
	if variantRank("raw") != 0 {
		t.Error("raw should rank first")
	}
	if variantRank("redmag_mask") >= variantRank("binary") {
		t.Error("redmag_mask should rank before binary")
	}
	if variantRank("nonexistent") != len(preferredVariants) {
		t.Error("unlisted variants should rank last")
	}
}

func TestVariantsDeterministicAndComplete(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 64, 32))
	for i := range src.Pix {
		src.Pix[i] = byte(i * 7)
	}
	a := Variants(src, 64)
	b := Variants(src, 64)
	if len(a) != len(preferredVariants) {
		t.Fatalf("expected %d variants, got %d", len(preferredVariants), len(a))
	}
	for i := range a {
		if a[i].Name != b[i].Name {
			t.Fatalf("variant order not deterministic at %d: %s vs %s", i, a[i].Name, b[i].Name)
		}
		pa, pb := a[i].Image.Pix, b[i].Image.Pix
		if len(pa) != len(pb) {
			t.Fatalf("variant %s size differs between runs", a[i].Name)
		}
		for j := range pa {
			if pa[j] != pb[j] {
				t.Fatalf("variant %s pixels differ between runs", a[i].Name)
			}
		}
	}
	if a[0].Name != "raw" {
		t.Errorf("first variant should be raw, got %s", a[0].Name)
	}
}

type fakeExtractor struct {
	name  string
	lines []Line
}

func (f *fakeExtractor) Name() string { return f.name }

func (f *fakeExtractor) Run(image.Image) ([]Line, error) { return f.lines, nil }

func TestMergeFromDedupesAndFilters(t *testing.T) {
	r := NewRouter(DefaultOptions())
	best := &Result{
		Engine:  "tesseract",
		Variant: "raw",
		Lines: []Line{
			{Text: "Day 102, 08:15:30: Your Thatch Wall was destroyed by Human!", Conf: 0.8, BBox: BBox{0, 0, 100, 10}},
		},
	}
	ext := &fakeExtractor{name: "tesseract", lines: []Line{
		// duplicate of an already-selected event (fuzzy key match)
		{Text: "Day 102, 08:15:30: Your Thatch Wall was destroyed by Human!", Conf: 0.9, BBox: BBox{0, 0, 100, 10}},
		// genuinely new critical event
		{Text: "Day 102, 08:20:00: Your Rex was killed by Alice!", Conf: 0.7, BBox: BBox{0, 20, 100, 30}},
		// headerless noise
		{Text: "stray fragment", Conf: 0.9, BBox: BBox{0, 40, 100, 50}},
	}}
	varMap := map[string]*image.NRGBA{"redmag_mask": image.NewNRGBA(image.Rect(0, 0, 4, 4))}

	added := r.mergeFrom(best, ext, varMap, "redmag_mask", false)
	if added != 1 {
		t.Fatalf("expected 1 merged line, got %d", added)
	}
	if len(best.Lines) != 2 {
		t.Fatalf("expected 2 lines after merge, got %d", len(best.Lines))
	}
}

func TestMergeFromRequireCritical(t *testing.T) {
	r := NewRouter(DefaultOptions())
	best := &Result{Engine: "tesseract", Variant: "raw", Lines: []Line{}}
	ext := &fakeExtractor{name: "tesseract", lines: []Line{
		{Text: "Day 102, 08:20:00: A Rex was born!", Conf: 0.9},
		{Text: "Day 102, 08:21:00: Your Vault was destroyed by Bob!", Conf: 0.9},
	}}
	varMap := map[string]*image.NRGBA{"rb_minus_g": image.NewNRGBA(image.Rect(0, 0, 4, 4))}

	added := r.mergeFrom(best, ext, varMap, "rb_minus_g", true)
	if added != 1 {
		t.Fatalf("expected only the critical line merged, got %d", added)
	}
}

func TestMergeFromSkipsOwnVariant(t *testing.T) {
	r := NewRouter(DefaultOptions())
	best := &Result{Engine: "tesseract", Variant: "redmag_mask", Lines: []Line{}}
	ext := &fakeExtractor{name: "tesseract", lines: []Line{
		{Text: "Day 1, 01:00:00: Your Rex was killed!", Conf: 0.9},
	}}
	varMap := map[string]*image.NRGBA{"redmag_mask": image.NewNRGBA(image.Rect(0, 0, 4, 4))}
	if added := r.mergeFrom(best, ext, varMap, "redmag_mask", false); added != 0 {
		t.Fatalf("merge against own selected variant should be a no-op, got %d", added)
	}
}
