package ocr

import (
	"regexp"
	"strings"
)

// Verbs that mark a line as a real event; shared with the tribelog parser's
// fragment heuristics.
var EventVerbs = map[string]bool{
	"tamed": true, "killed": true, "destroyed": true, "claimed": true,
	"demolished": true, "uploaded": true, "downloaded": true,
	"transferred": true, "removed": true, "added": true, "crafted": true,
	"died": true, "starved": true, "decayed": true, "auto-decayed": true,
	"froze": true, "frozen": true, "attacked": true, "joined": true,
	"left": true, "kicked": true, "promoted": true, "demoted": true,
	"hatched": true, "born": true, "released": true, "unclaimed": true,
}

var (
	// Digit look-alike confusions, fixed only between digits so free text
	// (creature names like "Otter") is never corrupted. Applied repeatedly
	// to cover runs like "1O2O3".
	rxDigitO = regexp.MustCompile(`(\d)[Oo](\d)`)
	rxDigitL = regexp.MustCompile(`(\d)[lI|](\d)`)

	rxLongDash   = regexp.MustCompile(`[—–]+`)
	rxDashSpace  = regexp.MustCompile(`\s*-\s*`)
	rxMultiSpace = regexp.MustCompile(`\s+`)
	rxSpacePunct = regexp.MustCompile(`\s+([:;,.!])`)
	rxBangRun    = regexp.MustCompile(`!{2,}$`)

	// Known verb misreadings/renderings.
	rxKilledBy    = regexp.MustCompile(`(?i)\bkilled[\s\-]*by\b`)
	rxDestroyedBy = regexp.MustCompile(`(?i)\bdestroyed[\s\-]*by\b`)
	rxAutoDecay   = regexp.MustCompile(`(?i)\bauto[\s\-]*decay(?:ing|s|ed)?\b`)
	rxStarving    = regexp.MustCompile(`(?i)\bstarving\b`)
	rxDies        = regexp.MustCompile(`(?i)\bdies\b`)
	rxDemolishing = regexp.MustCompile(`(?i)\bdemolishing\b`)
	rxFreezing    = regexp.MustCompile(`(?i)\bfreezing\b`)

	// "Lvl 28O" style level segments; aggressive mode strips non-digits here.
	rxLevelSeg = regexp.MustCompile(`(?i)\b(lvl|level)\s*[:.]?\s*([0-9OoIl|]+)`)
)

func fixDigitConfusions(s string) string {
	for {
		out := rxDigitO.ReplaceAllString(s, "${1}0${2}")
		out = rxDigitL.ReplaceAllString(out, "${1}1${2}")
		if out == s {
			return out
		}
		s = out
	}
}

// RepairLine applies the deterministic OCR noise fixes that are safe on any
// line: quote/dash unification, digit confusions in numeric context, spacing.
func RepairLine(t string) string {
	if t == "" {
		return t
	}
	out := strings.NewReplacer("“", `"`, "”", `"`, "’", "'", "‘", "'").Replace(t)
	out = fixDigitConfusions(out)
	out = rxLongDash.ReplaceAllString(out, "-")
	out = rxDashSpace.ReplaceAllString(out, " - ")
	out = rxMultiSpace.ReplaceAllString(out, " ")
	out = rxSpacePunct.ReplaceAllString(out, "$1")
	return strings.TrimSpace(out)
}

// NormalizeLine runs the full repair pipeline: noise fixes, lexicon
// canonicalization, verb corrections, whitespace and trailing punctuation
// normalization.
func NormalizeLine(text string) string {
	lex := ActiveLexicons()
	txt := RepairLine(text)
	txt = lex.Creatures.Canonicalize(txt)
	txt = lex.Structures.Canonicalize(txt)
	txt = lex.Vehicles.Canonicalize(txt)
	txt = rxKilledBy.ReplaceAllString(txt, "killed by")
	txt = rxDestroyedBy.ReplaceAllString(txt, "destroyed by")
	txt = rxAutoDecay.ReplaceAllString(txt, "auto-decayed")
	txt = rxStarving.ReplaceAllString(txt, "starved")
	txt = rxDies.ReplaceAllString(txt, "died")
	txt = rxDemolishing.ReplaceAllString(txt, "demolished")
	txt = rxFreezing.ReplaceAllString(txt, "froze")
	txt = rxBangRun.ReplaceAllString(txt, "!")
	return strings.TrimSpace(rxMultiSpace.ReplaceAllString(txt, " "))
}

// AggressiveNormalize is the stricter mode used only for OCR-tolerant
// hashing: NormalizeLine plus stripping non-digit characters inside
// recognized level segments.
func AggressiveNormalize(text string) string {
	txt := NormalizeLine(text)
	// Inside a level segment everything is numeric, so look-alikes map
	// directly without needing digit neighbors.
	txt = rxLevelSeg.ReplaceAllStringFunc(txt, func(m string) string {
		sub := rxLevelSeg.FindStringSubmatch(m)
		digits := strings.Map(func(r rune) rune {
			switch r {
			case 'O', 'o':
				return '0'
			case 'l', 'I', '|':
				return '1'
			}
			if r >= '0' && r <= '9' {
				return r
			}
			return -1
		}, sub[2])
		return "Lvl " + digits
	})
	return strings.TrimSpace(rxMultiSpace.ReplaceAllString(txt, " "))
}

// Normalize returns a new slice with repaired text per line; confidence and
// bbox are preserved. An internal error while repairing one line lets that
// line pass through unmodified.
func Normalize(lines []Line) []Line {
	out := make([]Line, 0, len(lines))
	for _, ln := range lines {
		out = append(out, Line{Text: safeNormalize(ln.Text), Conf: ln.Conf, BBox: ln.BBox})
	}
	return out
}

func safeNormalize(text string) (out string) {
	defer func() {
		if r := recover(); r != nil {
			out = text
		}
	}()
	return NormalizeLine(text)
}
