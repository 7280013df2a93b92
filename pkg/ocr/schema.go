package ocr

// BBox is a pixel-space bounding box: x0, y0, x1, y1.
type BBox [4]int

// Line is one recognized text line from a single (variant, engine) attempt.
// Conf is in [0,1]; engines that cannot report confidence use a fixed proxy.
type Line struct {
	Text string  `json:"text"`
	Conf float64 `json:"conf"`
	BBox BBox    `json:"bbox"`
}

// Candidate records the score of one (variant, engine) attempt. Kept for
// diagnostics on /extract and in logs; the best candidate becomes the Result.
type Candidate struct {
	Engine       string  `json:"engine"`
	Variant      string  `json:"variant"`
	HeaderHits   int     `json:"header_hits"`
	CriticalHits int     `json:"critical_hits"`
	MeanConf     float64 `json:"mean_conf"`
	LineCount    int     `json:"line_count"`
}

// Result is the selected output of the multi-variant extraction.
// Engine == "none" means no attempt produced any line; callers must check
// for it rather than expect an error.
type Result struct {
	Engine         string      `json:"engine"`
	Variant        string      `json:"variant"`
	Conf           float64     `json:"conf"`
	Lines          []Line      `json:"lines"`
	Text           string      `json:"text"`
	MergedVariants []string    `json:"merged_variants,omitempty"`
	Candidates     []Candidate `json:"candidates,omitempty"`
}

// LinesText returns the non-blank line texts in order.
func (r *Result) LinesText() []string {
	out := make([]string, 0, len(r.Lines))
	for _, ln := range r.Lines {
		if s := ln.Text; s != "" {
			out = append(out, s)
		}
	}
	return out
}

func meanConf(lines []Line) float64 {
	if len(lines) == 0 {
		return 0
	}
	sum := 0.0
	for _, ln := range lines {
		sum += ln.Conf
	}
	return sum / float64(len(lines))
}
