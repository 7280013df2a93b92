package ocr

import (
	"fmt"
	"image"
	"os"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"
)

// Extractor is the capability contract for a text-recognition engine:
// one grayscale image in, recognized lines out. Implementations are selected
// by name through NewExtractor. Run failures are caught at the call site and
// treated as "zero lines for this attempt", never as a pipeline error.
type Extractor interface {
	Name() string
	Run(img image.Image) ([]Line, error)
}

// NewExtractor selects an engine by name. Unknown or unavailable names fail
// here, at factory time, rather than silently downgrading.
func NewExtractor(name string) (Extractor, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "auto", "tess", "tesseract":
		return &TesseractExtractor{}, nil
	default:
		return nil, fmt.Errorf("unsupported engine %q", name)
	}
}

// EnginesForHint maps a caller-supplied engine hint to the ordered engine
// names to attempt. Tesseract is the primary engine for this project.
func EnginesForHint(hint string) []string {
	switch strings.ToLower(strings.TrimSpace(hint)) {
	case "tess", "tesseract":
		return []string{"tesseract"}
	default:
		return []string{"tesseract"}
	}
}

// Characters that appear in tribe logs; constraining the recognizer cuts
// down on UI-noise glyphs.
const tessWhitelist = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789:/()#._- '!,?"

// TesseractExtractor recognizes text line-wise using gosseract. A fresh
// client is created per Run; the type itself carries no state and is safe
// for concurrent use.
type TesseractExtractor struct{}

func (t *TesseractExtractor) Name() string { return "tesseract" }

// Run writes the image to a temp file, OCRs it, and returns per-line text
// with confidence in [0,1] and pixel bounding boxes.
func (t *TesseractExtractor) Run(img image.Image) ([]Line, error) {
	tmpFile, err := os.CreateTemp("", "gc-ocr-*.png")
	if err != nil {
		return nil, fmt.Errorf("temp image: %w", err)
	}
	tmp := tmpFile.Name()
	_ = tmpFile.Close()
	defer os.Remove(tmp)
	if err := imaging.Save(img, tmp); err != nil {
		return nil, fmt.Errorf("save variant: %w", err)
	}

	client := gosseract.NewClient()
	defer client.Close()
	_ = client.SetLanguage("eng")
	_ = client.SetWhitelist(tessWhitelist)
	_ = client.SetPageSegMode(gosseract.PSM_SINGLE_BLOCK)
	if err := client.SetImage(tmp); err != nil {
		return nil, fmt.Errorf("set image: %w", err)
	}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil {
		return nil, fmt.Errorf("recognize: %w", err)
	}

	out := make([]Line, 0, len(boxes))
	for _, b := range boxes {
		txt := strings.TrimSpace(b.Word)
		if txt == "" {
			continue
		}
		conf := b.Confidence / 100.0
		if conf < 0 {
			conf = 0
		}
		if conf > 1 {
			conf = 1
		}
		out = append(out, Line{
			Text: txt,
			Conf: conf,
			BBox: BBox{b.Box.Min.X, b.Box.Min.Y, b.Box.Max.X, b.Box.Max.Y},
		})
	}
	if len(out) == 0 {
		return nil, ErrNoText
	}
	return out, nil
}
