package ocr

import (
	"bytes"
	"fmt"
	"image"
	"log"
	"regexp"
	"sort"
	"strings"

	"github.com/disintegration/imaging"
)

// Tolerant "Day N, HH:MM[:SS]" matcher used for candidate scoring. OCR can
// confuse Day/Dav/Doy and the separator punctuation.
var rxDayHeader = regexp.MustCompile(
	`(?i)^\s*(?:Day|Dav|Doy)\s*[,/:\-]?\s*\d{1,6}\s*[, ]\s*\d{1,2}\s*[:.]\s*\d{1,2}(?:\s*[:.]\s*\d{2,3})?`)

// Critical-event keywords. Red/magenta text tends to carry these lines, so
// they drive variant selection and the color-isolation merges.
var rxCritical = regexp.MustCompile(
	`(?i)(?:\bwas killed\b|\bkilled\b|\bdestroyed\b|\bdemolished\b|\bauto-?decay(?:ed)?\b|\bremoved from the tribe\b)`)

var rxDayTime = regexp.MustCompile(
	`(?i)^\s*(?:Day|Dav|Doy)\s*[,/:\-]?\s*(\d{1,6})\s*[,/ ]+([0-9]{1,2}[:.][0-9]{2}(?:[:.][0-9]{2,3})?)`)

var (
	rxNonKeyChars = regexp.MustCompile(`[^a-z0-9:]+`)
	rxDigits      = regexp.MustCompile(`\d+`)
	rxNonAlpha    = regexp.MustCompile(`[^a-z]+`)
)

func headerHits(lines []Line) int {
	n := 0
	for _, ln := range lines {
		if s := strings.TrimSpace(ln.Text); s != "" && rxDayHeader.MatchString(s) {
			n++
		}
	}
	return n
}

func criticalHits(lines []Line) int {
	n := 0
	for _, ln := range lines {
		if s := strings.TrimSpace(ln.Text); s != "" && rxCritical.MatchString(s) {
			n++
		}
	}
	return n
}

// normLineKey normalizes aggressively for cross-variant dedupe.
func normLineKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = rxMultiSpace.ReplaceAllString(s, " ")
	return rxNonKeyChars.ReplaceAllString(s, "")
}

// fuzzyEventKey builds a dedupe key tolerant of OCR digit noise while still
// keeping distinct events apart: day + time + keyword-only message signature,
// falling back to the literal normalized key when no header is present.
func fuzzyEventKey(s string) string {
	m := rxDayTime.FindStringSubmatch(s)
	if m == nil {
		return normLineKey(s)
	}
	msg := strings.ToLower(rxDayTime.ReplaceAllString(s, ""))
	msg = rxDigits.ReplaceAllString(msg, "")
	msg = rxNonAlpha.ReplaceAllString(msg, "")
	return m[1] + "|" + m[2] + "|" + msg
}

// Preferred variant order: UI suppression and color isolation early (that is
// where critical events live), binary fallbacks last. Unlisted variants sort
// after all listed ones.
var preferredVariants = []string{
	"raw",
	"redmag_mask",
	"rb_minus_g",
	"max_rgb",
	"clahe",
	"enhanced",
	"hdr_norm",
	"ark_ui",
	"binary",
	"inverted",
}

func variantRank(name string) int {
	for i, n := range preferredVariants {
		if n == name {
			return i
		}
	}
	return len(preferredVariants)
}

type scoreKey struct {
	headerHits   int
	criticalHits int
	meanConf     float64
}

func (k scoreKey) less(o scoreKey) bool {
	if k.headerHits != o.headerHits {
		return k.headerHits < o.headerHits
	}
	if k.criticalHits != o.criticalHits {
		return k.criticalHits < o.criticalHits
	}
	return k.meanConf < o.meanConf
}

// Router runs extraction across preprocessing variants and engines, scores
// the candidates, picks the best one, and merges extra lines from the
// color-isolation variants. Each ExtractText call is independent; a Router
// holds no mutable state and is safe for concurrent use.
type Router struct {
	opts Options
}

func NewRouter(opts Options) *Router { return &Router{opts: opts} }

// ExtractText is the high-level OCR entry point. It never fails because a
// single attempt failed; the only terminal outcome besides success is the
// explicit Engine=="none" sentinel result.
func (r *Router) ExtractText(imageBytes []byte, engineHint string, fast bool) (*Result, error) {
	img, err := imaging.Decode(bytes.NewReader(imageBytes))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return r.extract(img, engineHint, fast)
}

func (r *Router) extract(img image.Image, engineHint string, fast bool) (*Result, error) {
	fast = fast || r.opts.FastDefault

	engineNames := EnginesForHint(engineHint)
	extractors := make(map[string]Extractor, len(engineNames))
	for _, name := range engineNames {
		ext, err := NewExtractor(name)
		if err != nil {
			return nil, err
		}
		extractors[name] = ext
	}

	maxW := r.opts.MaxWidth
	if fast {
		maxW = r.opts.MaxWidthFast
	}
	all := Variants(img, maxW)
	variants := make([]Variant, len(all))
	copy(variants, all)
	sort.SliceStable(variants, func(i, j int) bool {
		return variantRank(variants[i].Name) < variantRank(variants[j].Name)
	})
	if fast {
		tryMax := r.opts.MaxVariantsFast
		if tryMax < 1 {
			tryMax = 1
		}
		if tryMax < len(variants) {
			variants = variants[:tryMax]
		}
	}

	var best *Result
	bestKey := scoreKey{headerHits: -1, criticalHits: -1, meanConf: -1}
	var candidates []Candidate

search:
	for _, v := range variants {
		for _, name := range engineNames {
			lines := runAttempt(extractors[name], v.Image)
			if len(lines) == 0 {
				continue
			}
			hits := headerHits(lines)
			crit := criticalHits(lines)
			mc := meanConf(lines)
			candidates = append(candidates, Candidate{
				Engine: name, Variant: v.Name,
				HeaderHits: hits, CriticalHits: crit, MeanConf: mc, LineCount: len(lines),
			})
			key := scoreKey{hits, crit, mc}
			if bestKey.less(key) {
				bestKey = key
				best = &Result{
					Engine:  name,
					Variant: v.Name,
					Conf:    mc,
					Lines:   lines,
					Text:    joinedText(lines),
				}
			}
			if fast && (hits >= r.opts.AcceptHeaderHits || crit >= r.opts.AcceptCriticalHits || mc >= r.opts.AcceptConf) {
				break
			}
		}
		if fast && best != nil && (bestKey.headerHits >= r.opts.AcceptHeaderHits || bestKey.meanConf >= r.opts.AcceptConf) {
			break search
		}
	}

	if best == nil {
		return &Result{Engine: "none", Variant: "none", Lines: []Line{}, Candidates: candidates}, nil
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		ka := scoreKey{a.HeaderHits, a.CriticalHits, a.MeanConf}
		kb := scoreKey{b.HeaderHits, b.CriticalHits, b.MeanConf}
		return kb.less(ka)
	})
	best.Candidates = candidates

	// Pull in lines from the color-isolation variants: red/magenta glyphs
	// are often under-recognized in the general grayscale variants.
	varMap := make(map[string]*image.NRGBA, len(all))
	for _, v := range all {
		varMap[v.Name] = v.Image
	}
	var merged []string
	if r.opts.MergeRedmagMask && r.mergeFrom(best, extractors[best.Engine], varMap, "redmag_mask", false) > 0 {
		merged = append(merged, "redmag_mask")
	}
	if r.opts.MergeRBMinusG && r.mergeFrom(best, extractors[best.Engine], varMap, "rb_minus_g", true) > 0 {
		merged = append(merged, "rb_minus_g")
	}
	if len(merged) > 0 {
		sort.SliceStable(best.Lines, func(i, j int) bool {
			a, b := best.Lines[i].BBox, best.Lines[j].BBox
			if a[1] != b[1] {
				return a[1] < b[1]
			}
			return a[0] < b[0]
		})
		best.Text = joinedText(best.Lines)
		best.MergedVariants = merged
	}

	log.Printf("OCR select engine=%s variant=%s header_hits=%d critical_hits=%d conf=%.2f merged=%v text=%q",
		best.Engine, best.Variant, bestKey.headerHits, bestKey.criticalHits, best.Conf, merged, snippet(best.Text, 160))
	return best, nil
}

// mergeFrom appends new header-matching lines recognized on one designated
// merge variant, deduplicated against the already-selected lines by fuzzy
// key. Some merge variants additionally require a critical keyword so they
// do not add noise. Returns the number of lines added.
func (r *Router) mergeFrom(best *Result, ext Extractor, varMap map[string]*image.NRGBA, vname string, requireCritical bool) int {
	if best.Variant == vname {
		return 0
	}
	img, ok := varMap[vname]
	if !ok {
		return 0
	}
	lines := runAttempt(ext, img)
	if len(lines) == 0 {
		return 0
	}
	seen := make(map[string]bool, len(best.Lines))
	for _, ln := range best.Lines {
		if ln.Text != "" {
			seen[fuzzyEventKey(ln.Text)] = true
		}
	}
	added := 0
	for _, ln := range lines {
		s := strings.TrimSpace(ln.Text)
		if s == "" || !rxDayHeader.MatchString(s) {
			continue
		}
		if requireCritical && !rxCritical.MatchString(s) {
			continue
		}
		if ln.Conf < r.opts.MergeMinConf {
			continue
		}
		fk := fuzzyEventKey(s)
		if seen[fk] {
			continue
		}
		best.Lines = append(best.Lines, Line{Text: s, Conf: ln.Conf, BBox: ln.BBox})
		seen[fk] = true
		added++
	}
	return added
}

// runAttempt executes one extraction attempt. Any engine failure is treated
// as zero lines for this attempt, never as a pipeline-ending error.
func runAttempt(ext Extractor, img image.Image) (lines []Line) {
	defer func() {
		if r := recover(); r != nil {
			lines = nil
		}
	}()
	raw, err := ext.Run(img)
	if err != nil {
		return nil
	}
	return Normalize(raw)
}
