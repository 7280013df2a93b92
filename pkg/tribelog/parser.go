package tribelog

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/AZX-215/GravityCapture/pkg/ocr"
)

// rxHeader matches a full event line. OCR routinely garbles the literal
// "Day" (Dav, Doy), drops separators, and pads timestamps, so every piece
// between the anchor and the timestamp is tolerant.
var rxHeader = regexp.MustCompile(
	`(?i)^\s*(?:Day|Dav|Doy)\s*[,/:\-]?\s*(\d{1,6})(?:\s*,\s*|\s+)(\d{1,2})\s*[:.]\s*(\d{1,2})(?:\s*[:.]\s*(\d{2,3}))?\s*(?:[:\-]\s*|\s+)?(.*?)\s*$`)

// rxHeaderStart is the unanchored variant used to split glued lines where a
// single OCR line contains more than one event.
var rxHeaderStart = regexp.MustCompile(
	`(?i)(?:Day|Dav|Doy)\s*[,/:\-]?\s*\d{1,6}(?:\s*,\s*|\s+)\d{1,2}\s*[:.]\s*\d{1,2}`)

// SplitGluedLines breaks apart raw OCR lines that contain two or more day
// headers. Text preceding the first header in a glued line is emitted as its
// own line so the stitcher can attach it to the previous event.
func SplitGluedLines(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		locs := rxHeaderStart.FindAllStringIndex(line, -1)
		if len(locs) < 2 {
			out = append(out, line)
			continue
		}
		if pre := strings.TrimSpace(line[:locs[0][0]]); pre != "" {
			out = append(out, pre)
		}
		for i, loc := range locs {
			end := len(line)
			if i+1 < len(locs) {
				end = locs[i+1][0]
			}
			if seg := strings.TrimSpace(line[loc[0]:end]); seg != "" {
				out = append(out, seg)
			}
		}
	}
	return out
}

// StitchWrappedLines reassembles logical event lines from raw OCR lines. The
// log panel wraps long messages, so a line that does not begin with a day
// header is a continuation of the previous logical line. Leading
// continuations with no open header are dropped.
func StitchWrappedLines(raw []string) []string {
	var out []string
	var cur strings.Builder
	open := false

	flush := func() {
		if open {
			if s := strings.TrimSpace(cur.String()); s != "" {
				out = append(out, s)
			}
			cur.Reset()
			open = false
		}
	}

	for _, line := range SplitGluedLines(raw) {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if rxHeaderStart.MatchString(line) && rxHeaderStart.FindStringIndex(line)[0] == 0 {
			flush()
			cur.WriteString(line)
			open = true
			continue
		}
		if open {
			cur.WriteString(" ")
			cur.WriteString(line)
		}
		// A continuation with no open header is an orphan fragment from a
		// partially visible line at the top of the panel. Drop it.
	}
	flush()
	return out
}

// ParseHeaderLines parses stitched logical lines into headered events and
// runs the cleanup passes that repair OCR damage spanning multiple lines.
func ParseHeaderLines(lines []string) []HeaderedEvent {
	events := make([]HeaderedEvent, 0, len(lines))
	for _, line := range lines {
		ev, ok := parseHeaderLine(line)
		if !ok {
			continue
		}
		events = append(events, ev)
	}
	events = mergeStarvedKilledPairs(events)
	events = mergeFragments(events)
	events = dropNoise(events)
	events = pruneSubstrings(events)
	return events
}

func parseHeaderLine(line string) (HeaderedEvent, bool) {
	m := rxHeader.FindStringSubmatch(line)
	if m == nil {
		return HeaderedEvent{}, false
	}
	day, err := strconv.Atoi(m[1])
	if err != nil || day <= 0 {
		return HeaderedEvent{}, false
	}
	hour := clampInt(atoiSafe(m[2]), 0, 23)
	minute := clampInt(atoiSafe(m[3]), 0, 59)
	sec := 0
	if m[4] != "" {
		s := m[4]
		// A duplicated digit in the seconds field shows up as three digits.
		// The trailing two are the real value.
		if len(s) == 3 {
			s = s[1:]
		}
		sec = clampInt(atoiSafe(s), 0, 59)
	}
	msg := strings.TrimSpace(m[5])
	msg = strings.TrimLeft(msg, ":-")
	msg = strings.TrimSpace(msg)
	return HeaderedEvent{
		ArkDay:  day,
		ArkTime: fmt.Sprintf("%02d:%02d:%02d", hour, minute, sec),
		Message: msg,
		RawLine: strings.TrimSpace(line),
	}, true
}

func atoiSafe(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

var (
	rxStarvedLine  = regexp.MustCompile(`(?i)^(.+?)\s+starved\s+to\s+death\s*!?\s*$`)
	rxKilledLine   = regexp.MustCompile(`(?i)^(.+?)\s+was\s+killed\b`)
	rxKilledWithBy = regexp.MustCompile(`(?i)\bwas\s+killed\s+by\b`)
	rxYourPrefix   = regexp.MustCompile(`(?i)^your\s+`)
	rxBareTime     = regexp.MustCompile(`^\s*\d{1,2}[:.]\d{1,2}(?:[:.]\d{2,3})?\s*$`)
	rxPunctOnly    = regexp.MustCompile(`^[\s\p{P}\p{S}]+$`)
	rxContinuation = regexp.MustCompile(`(?i)^\s*(?:[-!.,:;)]|\(|Lvl\b|Level\b|\d+\b)`)
)

// victimKey canonicalizes a creature identity so the starved and killed
// renderings of the same death compare equal despite a leading "Your " or
// spacing noise.
func victimKey(s string) string {
	v := rxSpaces.ReplaceAllString(strings.TrimSpace(s), " ")
	v = rxYourPrefix.ReplaceAllString(v, "")
	return strings.ToLower(strings.Trim(v, " !."))
}

func stampKey(ev HeaderedEvent) string {
	return strconv.Itoa(ev.ArkDay) + "|" + ev.ArkTime
}

// mergeStarvedKilledPairs drops the redundant kill line the game emits
// alongside a starvation: "<creature> starved to death!" is accompanied by
// "Your <creature> was killed!" with the same stamp. Kill lines naming an
// explicit killer are never dropped.
func mergeStarvedKilledPairs(events []HeaderedEvent) []HeaderedEvent {
	starved := make(map[string]bool)
	for _, ev := range events {
		if m := rxStarvedLine.FindStringSubmatch(ev.Message); m != nil {
			starved[stampKey(ev)+"|"+victimKey(m[1])] = true
		}
	}
	if len(starved) == 0 {
		return events
	}
	out := make([]HeaderedEvent, 0, len(events))
	for _, ev := range events {
		if m := rxKilledLine.FindStringSubmatch(ev.Message); m != nil &&
			!rxKilledWithBy.MatchString(ev.Message) &&
			starved[stampKey(ev)+"|"+victimKey(m[1])] {
			continue
		}
		out = append(out, ev)
	}
	return out
}

func sameStamp(a, b HeaderedEvent) bool {
	return a.ArkDay == b.ArkDay && a.ArkTime == b.ArkTime
}

// mergeFragments folds a continuation fragment that OCR split into its own
// headered line back onto the preceding event with the same timestamp.
func mergeFragments(events []HeaderedEvent) []HeaderedEvent {
	out := make([]HeaderedEvent, 0, len(events))
	for _, ev := range events {
		if len(out) > 0 {
			prev := &out[len(out)-1]
			if sameStamp(*prev, ev) &&
				(looksTruncated(prev.Message) || rxContinuation.MatchString(ev.Message)) &&
				!looksComplete(ev.Message) {
				prev.Message = strings.TrimSpace(prev.Message + " " + ev.Message)
				prev.RawLine = prev.RawLine + " " + ev.RawLine
				continue
			}
		}
		out = append(out, ev)
	}
	return out
}

var trailingClauseWords = map[string]bool{
	"by": true, "the": true, "a": true, "an": true,
	"was": true, "to": true, "of": true, "their": true, "your": true,
}

func looksTruncated(msg string) bool {
	msg = strings.TrimSpace(msg)
	if msg == "" {
		return true
	}
	if strings.HasSuffix(msg, "-") || strings.HasSuffix(msg, ",") {
		return true
	}
	fields := strings.Fields(strings.ToLower(msg))
	if len(fields) > 0 && trailingClauseWords[strings.Trim(fields[len(fields)-1], ".,!")] {
		return true
	}
	return len(msg) < 30 && !looksComplete(msg)
}

// looksComplete reports whether msg contains a recognized event verb, i.e.
// it can stand alone as a full message.
func looksComplete(msg string) bool {
	for _, f := range strings.Fields(strings.ToLower(msg)) {
		if ocr.EventVerbs[strings.Trim(f, ".,!:;()")] {
			return true
		}
	}
	return false
}

// dropNoise removes events whose message is empty, punctuation only, or a
// bare repeated timestamp.
func dropNoise(events []HeaderedEvent) []HeaderedEvent {
	out := make([]HeaderedEvent, 0, len(events))
	for _, ev := range events {
		msg := strings.TrimSpace(ev.Message)
		if msg == "" || rxPunctOnly.MatchString(msg) || rxBareTime.MatchString(msg) {
			continue
		}
		out = append(out, ev)
	}
	return out
}

var rxPruneKey = regexp.MustCompile(`[^a-z0-9]+`)

func pruneKey(s string) string {
	return rxPruneKey.ReplaceAllString(strings.ToLower(s), "")
}

// pruneSubstrings drops a partial read when an adjacent event at the same
// timestamp contains it in full, unless the partial carries its own verb.
func pruneSubstrings(events []HeaderedEvent) []HeaderedEvent {
	drop := make([]bool, len(events))
	for i := 0; i+1 < len(events); i++ {
		a, b := events[i], events[i+1]
		if !sameStamp(a, b) {
			continue
		}
		ka, kb := pruneKey(a.Message), pruneKey(b.Message)
		switch {
		case ka != kb && ka != "" && strings.Contains(kb, ka) && !looksComplete(a.Message):
			drop[i] = true
		case ka != kb && kb != "" && strings.Contains(ka, kb) && !looksComplete(b.Message):
			drop[i+1] = true
		}
	}
	out := make([]HeaderedEvent, 0, len(events))
	for i, ev := range events {
		if !drop[i] {
			out = append(out, ev)
		}
	}
	return out
}
