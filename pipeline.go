package main

import (
	"github.com/AZX-215/GravityCapture/pkg/ocr"
	"github.com/AZX-215/GravityCapture/pkg/tribelog"
)

// extraction bundles everything produced from one screenshot.
type extraction struct {
	OCR    *ocr.Result
	Lines  []string
	Events []tribelog.ParsedEvent
}

// convertScreenshot runs the full pipeline on raw image bytes: OCR across
// preprocessing variants, line stitching, header parsing, and
// classification. It returns an error only when the image cannot be decoded
// or the engine hint is invalid; an unreadable screenshot yields zero
// events, not an error.
func convertScreenshot(router *ocr.Router, cfg tribelog.Config, imageBytes []byte, server, tribe, engineHint string, fast bool) (*extraction, error) {
	res, err := router.ExtractText(imageBytes, engineHint, fast)
	if err != nil {
		return nil, err
	}
	lines := tribelog.StitchWrappedLines(res.LinesText())
	headered := tribelog.ParseHeaderLines(lines)
	events := make([]tribelog.ParsedEvent, 0, len(headered))
	for _, h := range headered {
		events = append(events, tribelog.ClassifyEvent(server, tribe, h, cfg))
	}
	return &extraction{OCR: res, Lines: lines, Events: events}, nil
}
