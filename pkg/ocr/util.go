package ocr

import "strings"

// snippet returns a shortened version of text for logging.
func snippet(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "…"
}

func joinedText(lines []Line) string {
	parts := make([]string, 0, len(lines))
	for _, ln := range lines {
		if s := strings.TrimSpace(ln.Text); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n")
}
