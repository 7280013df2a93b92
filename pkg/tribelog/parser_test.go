package tribelog

import (
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestParseHeaderLinesBasic(t *testing.T) {
	events := ParseHeaderLines([]string{
		"Day 102, 08:15:30: Your Thatch Wall was destroyed by Human!",
	})
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	ev := events[0]
	if ev.ArkDay != 102 || ev.ArkTime != "08:15:30" {
		t.Errorf("bad header: day=%d time=%s", ev.ArkDay, ev.ArkTime)
	}
	if ev.Message != "Your Thatch Wall was destroyed by Human!" {
		t.Errorf("bad message: %q", ev.Message)
	}
}

func TestParseHeaderLinesTolerantAnchors(t *testing.T) {
	cases := []string{
		"Dav 102, 08:15:30: Your Rex was killed!",
		"Doy 102,08:15:30 Your Rex was killed!",
		"Day 102 08:15:30 - Your Rex was killed!",
		"Day: 102, 8:15:30: Your Rex was killed!",
	}
	for _, line := range cases {
		events := ParseHeaderLines([]string{line})
		if len(events) != 1 {
			t.Errorf("%q: expected 1 event, got %d", line, len(events))
			continue
		}
		if events[0].ArkDay != 102 || events[0].ArkTime != "08:15:30" {
			t.Errorf("%q: day=%d time=%s", line, events[0].ArkDay, events[0].ArkTime)
		}
	}
}

func TestParseHeaderLinesDuplicatedSecondsDigit(t *testing.T) {
	events := ParseHeaderLines([]string{"Day 5, 10:22:333: Your Rex was killed!"})
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].ArkTime != "10:22:33" {
		t.Errorf("three-digit seconds should keep trailing two: %s", events[0].ArkTime)
	}
}

func TestParseHeaderLinesClampsTime(t *testing.T) {
	events := ParseHeaderLines([]string{"Day 1, 99:99:99: Your Rex was killed!"})
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].ArkTime != "23:59:59" {
		t.Errorf("time not clamped: %s", events[0].ArkTime)
	}
}

func TestParseHeaderLinesRejectsNonPositiveDay(t *testing.T) {
	events := ParseHeaderLines([]string{"Day 0, 10:00:00: Your Rex was killed!"})
	if len(events) != 0 {
		t.Fatalf("day 0 must be rejected, got %d events", len(events))
	}
}

func TestStitchWrappedLines(t *testing.T) {
	lines := StitchWrappedLines([]string{
		"Day 102, 08:15:30: Your Thatch Wall was",
		"destroyed by Human!",
		"Day 102, 08:16:00: Your Rex was killed!",
	})
	if len(lines) != 2 {
		t.Fatalf("expected 2 logical lines, got %d: %v", len(lines), lines)
	}
	if lines[0] != "Day 102, 08:15:30: Your Thatch Wall was destroyed by Human!" {
		t.Errorf("bad stitched line: %q", lines[0])
	}
}

func TestStitchDropsLeadingOrphan(t *testing.T) {
	lines := StitchWrappedLines([]string{
		"ed by Human!", // tail of a line cut off at the top of the panel
		"Day 102, 08:16:00: Your Rex was killed!",
	})
	if len(lines) != 1 {
		t.Fatalf("expected 1 logical line, got %d: %v", len(lines), lines)
	}
}

func TestSplitGluedLines(t *testing.T) {
	out := SplitGluedLines([]string{
		"was destroyed! Day 102, 08:15:30: Your Rex was killed! Day 102, 08:16:00: A Rex was born!",
	})
	if len(out) != 3 {
		t.Fatalf("expected 3 pieces, got %d: %v", len(out), out)
	}
	if out[0] != "was destroyed!" {
		t.Errorf("prefix should be kept as continuation: %q", out[0])
	}
}

func TestStarvedKilledPairDropped(t *testing.T) {
	events := ParseHeaderLines([]string{
		"Day 10, 01:02:03: Rex starved to death!",
		"Day 10, 01:02:03: Your Rex was killed!",
	})
	if len(events) != 1 {
		t.Fatalf("expected the paired kill line dropped, got %d: %+v", len(events), events)
	}
	if events[0].Message != "Rex starved to death!" {
		t.Errorf("wrong survivor: %q", events[0].Message)
	}
}

func TestStarvedKilledPairKeepsAttributedKill(t *testing.T) {
	events := ParseHeaderLines([]string{
		"Day 10, 01:02:03: Rex starved to death!",
		"Day 10, 01:02:03: Your Rex was killed by Alice!",
	})
	if len(events) != 2 {
		t.Fatalf("a kill naming a killer must survive, got %d: %+v", len(events), events)
	}
}

func TestStarvedKilledPairKeepsOtherVictims(t *testing.T) {
	events := ParseHeaderLines([]string{
		"Day 10, 01:02:03: Rex starved to death!",
		"Day 10, 01:02:03: Your Ankylosaurus was killed!",
		"Day 11, 01:02:03: Your Rex was killed!",
	})
	if len(events) != 3 {
		t.Fatalf("different victim or stamp must survive, got %d: %+v", len(events), events)
	}
}

func TestNoiseEventsDropped(t *testing.T) {
	events := ParseHeaderLines([]string{
		"Day 2, 00:30:00: !!!",
		"Day 2, 01:00:00: 01:00",
		"Day 2, 01:05:00: Your Rex was killed!",
	})
	if len(events) != 1 {
		t.Fatalf("expected only the real event, got %d: %+v", len(events), events)
	}
	if events[0].Message != "Your Rex was killed!" {
		t.Errorf("wrong survivor: %q", events[0].Message)
	}
}

func TestPunctuationContinuationMerged(t *testing.T) {
	events := ParseHeaderLines([]string{
		"Day 2, 01:00:00: Your Rex was killed",
		"Day 2, 01:00:00: !!!",
	})
	if len(events) != 1 {
		t.Fatalf("same-stamp punctuation continuation should merge, got %d: %+v", len(events), events)
	}
	if events[0].Message != "Your Rex was killed !!!" {
		t.Errorf("continuation not appended: %q", events[0].Message)
	}
}

func TestSubstringPruning(t *testing.T) {
	events := ParseHeaderLines([]string{
		"Day 4, 12:00:00: Your Rex - Lvl 300",
		"Day 4, 12:00:00: Your Rex - Lvl 300 was killed by Alice!",
	})
	if len(events) != 1 {
		t.Fatalf("expected the partial read pruned, got %d: %+v", len(events), events)
	}
	if events[0].Message != "Your Rex - Lvl 300 was killed by Alice!" {
		t.Errorf("wrong survivor: %q", events[0].Message)
	}
}

func TestHeaderParsePureAndClamped(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("well-formed headers parse exactly", prop.ForAll(
		func(day, h, m, s int) bool {
			line := fmt.Sprintf("Day %d, %02d:%02d:%02d: Your Rex was killed!", day, h, m, s)
			events := ParseHeaderLines([]string{line})
			if len(events) != 1 {
				return false
			}
			want := fmt.Sprintf("%02d:%02d:%02d", h, m, s)
			return events[0].ArkDay == day && events[0].ArkTime == want
		},
		gen.IntRange(1, 99999),
		gen.IntRange(0, 23),
		gen.IntRange(0, 59),
		gen.IntRange(0, 59),
	))

	properties.Property("parsing is deterministic", prop.ForAll(
		func(day, h int) bool {
			line := fmt.Sprintf("Day %d, %02d:30:00: Your Vault was destroyed!", day, h)
			a := ParseHeaderLines([]string{line})
			b := ParseHeaderLines([]string{line})
			return len(a) == len(b) && len(a) == 1 && a[0] == b[0]
		},
		gen.IntRange(1, 99999),
		gen.IntRange(0, 23),
	))

	properties.TestingRun(t)
}
