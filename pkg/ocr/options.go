package ocr

import (
	"os"
	"strconv"
	"strings"
)

// Options gathers the recognized OCR knobs so the pipeline itself never
// reads the environment. Thresholds are empirically tuned; treat them as
// configuration, not policy to re-derive.
type Options struct {
	// Width caps applied before variant generation.
	MaxWidth     int
	MaxWidthFast int

	// Fast mode: cap attempts and accept early.
	FastDefault        bool
	MaxVariantsFast    int
	AcceptHeaderHits   int
	AcceptCriticalHits int
	AcceptConf         float64

	// Color-isolation merge passes.
	MergeRedmagMask bool
	MergeRBMinusG   bool
	MergeMinConf    float64
}

// DefaultOptions returns the tuned defaults.
func DefaultOptions() Options {
	return Options{
		MaxWidth:           1920,
		MaxWidthFast:       1400,
		FastDefault:        false,
		MaxVariantsFast:    2,
		AcceptHeaderHits:   1,
		AcceptCriticalHits: 1,
		AcceptConf:         0.45,
		MergeRedmagMask:    true,
		MergeRBMinusG:      true,
		MergeMinConf:       0,
	}
}

// OptionsFromEnv overlays environment overrides onto the defaults.
func OptionsFromEnv() Options {
	o := DefaultOptions()
	o.MaxWidth = envInt("OCR_MAX_WIDTH", o.MaxWidth)
	o.MaxWidthFast = envInt("OCR_MAX_WIDTH_FAST", o.MaxWidthFast)
	o.FastDefault = envBool("OCR_FAST_DEFAULT", o.FastDefault)
	o.MaxVariantsFast = envInt("OCR_MAX_VARIANTS_FAST", o.MaxVariantsFast)
	o.AcceptHeaderHits = envInt("OCR_ACCEPT_HEADER_HITS", o.AcceptHeaderHits)
	o.AcceptCriticalHits = envInt("OCR_ACCEPT_CRITICAL_HITS", o.AcceptCriticalHits)
	o.AcceptConf = envFloat("OCR_ACCEPT_CONF", o.AcceptConf)
	o.MergeRedmagMask = envBool("OCR_MERGE_REDMAG_MASK", o.MergeRedmagMask)
	o.MergeRBMinusG = envBool("OCR_MERGE_RB_MINUS_G", o.MergeRBMinusG)
	o.MergeMinConf = envFloat("OCR_MERGE_MIN_CONF", o.MergeMinConf)
	return o
}

func envInt(name string, def int) int {
	if v := os.Getenv(name); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return def
}

func envFloat(name string, def float64) float64 {
	if v := os.Getenv(name); v != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return f
		}
	}
	return def
}

func envBool(name string, def bool) bool {
	v := os.Getenv(name)
	if v == "" {
		return def
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "y", "on", "enable", "enabled":
		return true
	case "0", "false", "no", "n", "off", "disable", "disabled":
		return false
	}
	return def
}
