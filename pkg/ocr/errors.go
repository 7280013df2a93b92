package ocr

import "errors"

// ErrNoText is returned when no (variant, engine) attempt yields any line.
var ErrNoText = errors.New("no text recognized")
