package ocr

import "testing"

func TestRepairLineDigitConfusions(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"Day 1O2", "Day 102"},
		{"Day 1O2O3", "Day 10203"},
		{"Day 1l2", "Day 112"},
		{"Otter", "Otter"}, // letters without digit neighbors stay put
		{"Rex-Lvl 50", "Rex - Lvl 50"},
		{"spaced  ,  punct !", "spaced, punct!"},
	}
	for _, tc := range cases {
		if got := RepairLine(tc.in); got != tc.want {
			t.Errorf("RepairLine(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeLineVerbFixes(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"Your Thatch Wall was destroyed-by Human!!!", "Your Thatch Wall was destroyed by Human!"},
		{"Your Rex was killed - by Alice!", "Your Rex was killed by Alice!"},
		{"Your Metal Foundation was Auto Decay destroyed!", "Your Metal Foundation was auto-decayed destroyed!"},
		{"Your Raptor starving", "Your Raptor starved"},
		{"Moschops dies", "Moschops died"},
	}
	for _, tc := range cases {
		if got := NormalizeLine(tc.in); got != tc.want {
			t.Errorf("NormalizeLine(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeLineIdempotent(t *testing.T) {
	lines := []string{
		"Day 102, 08:15:30: Your Thatch Wall was destroyed by Human!",
		"Your Rex - Lvl 300 was killed by a Giganotosaurus - Lvl 120!",
		"Your Snow Owl starved to death!",
	}
	for _, in := range lines {
		once := NormalizeLine(in)
		twice := NormalizeLine(once)
		if once != twice {
			t.Errorf("NormalizeLine not idempotent for %q: %q != %q", in, once, twice)
		}
	}
}

func TestAggressiveNormalizeLevelSegments(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"Your Rex - Lvl 3OO was killed!", "Your Rex - Lvl 300 was killed!"},
		{"Your Rex - lvl: 1O5 was killed!", "Your Rex - Lvl 105 was killed!"},
		{"Your Rex - Level 28O was killed!", "Your Rex - Lvl 280 was killed!"},
	}
	for _, tc := range cases {
		if got := AggressiveNormalize(tc.in); got != tc.want {
			t.Errorf("AggressiveNormalize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestAggressiveNormalizeCollapsesMisreads(t *testing.T) {
	a := AggressiveNormalize("Your Rex - Lvl 300 was killed by Human!")
	b := AggressiveNormalize("Your Rex - Lvl 3OO was killed-by Human!!")
	if a != b {
		t.Errorf("misread variants did not collapse: %q vs %q", a, b)
	}
}

func TestNormalizePreservesConfAndBBox(t *testing.T) {
	in := []Line{{Text: "Day 1O2", Conf: 0.81, BBox: BBox{1, 2, 3, 4}}}
	out := Normalize(in)
	if len(out) != 1 {
		t.Fatalf("expected 1 line, got %d", len(out))
	}
	if out[0].Text != "Day 102" || out[0].Conf != 0.81 || out[0].BBox != (BBox{1, 2, 3, 4}) {
		t.Errorf("unexpected normalized line: %+v", out[0])
	}
	if in[0].Text != "Day 1O2" {
		t.Errorf("input slice mutated: %+v", in[0])
	}
}
