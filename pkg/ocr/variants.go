package ocr

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// Variant is one differently preprocessed grayscale rendering of the source
// image, each targeting a specific legibility problem (HDR washout, colored
// critical-event text, UI background noise).
type Variant struct {
	Name  string
	Image *image.NRGBA
}

// Variants produces the ordered list of preprocessed renderings for one
// screenshot. Deterministic given the same image and maxW. Hard binarization
// is kept only as a fallback: it can turn the game UI background into ink.
func Variants(src image.Image, maxW int) []Variant {
	im := capWidth(src, maxW)
	rgb := imaging.Clone(im)

	raw := imaging.Grayscale(rgb)

	// Channel-max recovers colored text on dark backgrounds.
	maxRGB := channelMax(rgb)

	// Percentile clipping counters HDR washout; add gamma when the clipped
	// dynamic range is narrow.
	lo, hi := grayPercentiles(raw, 1.0, 99.0)
	hdrNorm := percentileNormalize(raw, lo, hi)
	if hi-lo < 90 {
		hdrNorm = imaging.AdjustGamma(hdrNorm, 0.85)
	}

	clahe := localEqualize(hdrNorm, 8, 2.0)

	// Moderate contrast + unsharp.
	enhanced := imaging.AdjustContrast(raw, 25)
	enhanced = unsharp(enhanced, 1.2, 1.0)

	// Emphasize pixels where R or B dominates over G; the UI teal background
	// tends to be greenish while kill lines render red/magenta.
	rbg := rbMinusG(rgb)
	rlo, rhi := grayPercentiles(rbg, 1.0, 99.0)
	rbg = percentileNormalize(rbg, rlo, rhi)
	rbg = localEqualize(rbg, 8, 2.0)
	rbg = unsharp(rbg, 0.6, 1.0)

	// Saturated red + magenta glyph isolation, inverted to dark-on-white.
	redmag := redMagentaMask(rgb)

	// Background suppression: equalize the luminance channel, then sharpen.
	// No binarization here.
	arkUI := unsharp(localEqualize(raw, 8, 2.0), 0.5, 1.0)

	// Binary fallbacks.
	bw := ensureWhiteBG(binarize(clahe, otsuThreshold(clahe)))
	inv := imaging.Invert(bw)

	return []Variant{
		{"raw", raw},
		{"redmag_mask", redmag},
		{"rb_minus_g", rbg},
		{"max_rgb", maxRGB},
		{"clahe", clahe},
		{"enhanced", enhanced},
		{"hdr_norm", hdrNorm},
		{"ark_ui", arkUI},
		{"binary", bw},
		{"inverted", inv},
	}
}

func capWidth(img image.Image, maxW int) image.Image {
	if maxW <= 0 || img.Bounds().Dx() <= maxW {
		return img
	}
	return imaging.Resize(img, maxW, 0, imaging.Lanczos)
}

// grayValue reads the gray level of an NRGBA pixel produced by
// imaging.Grayscale (R=G=B); for color images it averages the channels.
func grayValue(img *image.NRGBA, x, y int) int {
	i := img.PixOffset(x, y)
	return (int(img.Pix[i]) + int(img.Pix[i+1]) + int(img.Pix[i+2])) / 3
}

func setGray(img *image.NRGBA, x, y, v int) {
	if v < 0 {
		v = 0
	}
	if v > 255 {
		v = 255
	}
	i := img.PixOffset(x, y)
	img.Pix[i] = uint8(v)
	img.Pix[i+1] = uint8(v)
	img.Pix[i+2] = uint8(v)
	img.Pix[i+3] = 255
}

// channelMax builds a grayscale image from the per-pixel channel maximum.
func channelMax(img *image.NRGBA) *image.NRGBA {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	out := imaging.New(w, h, color.NRGBA{0, 0, 0, 255})
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := img.PixOffset(x, y)
			v := img.Pix[i]
			if img.Pix[i+1] > v {
				v = img.Pix[i+1]
			}
			if img.Pix[i+2] > v {
				v = img.Pix[i+2]
			}
			setGray(out, x, y, int(v))
		}
	}
	return out
}

// grayPercentiles returns the gray levels at the given percentiles.
func grayPercentiles(img *image.NRGBA, pLo, pHi float64) (int, int) {
	var hist [256]int
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	total := w * h
	if total == 0 {
		return 0, 255
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			hist[grayValue(img, x, y)]++
		}
	}
	loCount := int(pLo / 100.0 * float64(total))
	hiCount := int(pHi / 100.0 * float64(total))
	lo, hi := 0, 255
	cum := 0
	for v := 0; v < 256; v++ {
		cum += hist[v]
		if cum >= loCount {
			lo = v
			break
		}
	}
	cum = 0
	for v := 0; v < 256; v++ {
		cum += hist[v]
		if cum >= hiCount {
			hi = v
			break
		}
	}
	if hi < lo {
		hi = lo
	}
	return lo, hi
}

// percentileNormalize contrast-normalizes by clipping to [lo, hi] and
// rescaling to the full range.
func percentileNormalize(img *image.NRGBA, lo, hi int) *image.NRGBA {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	out := imaging.New(w, h, color.NRGBA{0, 0, 0, 255})
	if hi <= lo {
		copy(out.Pix, img.Pix)
		return out
	}
	scale := 255.0 / float64(hi-lo)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := grayValue(img, x, y)
			if v < lo {
				v = lo
			}
			if v > hi {
				v = hi
			}
			setGray(out, x, y, int(float64(v-lo)*scale))
		}
	}
	return out
}

// localEqualize performs tile-based, clip-limited histogram equalization
// with bilinear blending between tile mappings.
func localEqualize(img *image.NRGBA, grid int, clipLimit float64) *image.NRGBA {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	out := imaging.New(w, h, color.NRGBA{0, 0, 0, 255})
	if grid < 1 {
		grid = 1
	}
	tileW := (w + grid - 1) / grid
	tileH := (h + grid - 1) / grid
	if tileW == 0 || tileH == 0 {
		copy(out.Pix, img.Pix)
		return out
	}

	// Per-tile clipped CDF lookup tables.
	luts := make([][256]uint8, grid*grid)
	for ty := 0; ty < grid; ty++ {
		for tx := 0; tx < grid; tx++ {
			x0, y0 := tx*tileW, ty*tileH
			x1, y1 := x0+tileW, y0+tileH
			if x1 > w {
				x1 = w
			}
			if y1 > h {
				y1 = h
			}
			var hist [256]int
			n := 0
			for y := y0; y < y1; y++ {
				for x := x0; x < x1; x++ {
					hist[grayValue(img, x, y)]++
					n++
				}
			}
			if n == 0 {
				for v := 0; v < 256; v++ {
					luts[ty*grid+tx][v] = uint8(v)
				}
				continue
			}
			// Clip and redistribute the excess uniformly.
			limit := int(clipLimit * float64(n) / 256.0)
			if limit < 1 {
				limit = 1
			}
			excess := 0
			for v := 0; v < 256; v++ {
				if hist[v] > limit {
					excess += hist[v] - limit
					hist[v] = limit
				}
			}
			add := excess / 256
			for v := 0; v < 256; v++ {
				hist[v] += add
			}
			cum := 0
			for v := 0; v < 256; v++ {
				cum += hist[v]
				luts[ty*grid+tx][v] = uint8(255 * cum / n)
			}
		}
	}

	// Bilinear interpolation between the four surrounding tile centers.
	for y := 0; y < h; y++ {
		fy := (float64(y)-float64(tileH)/2 + 0.5) / float64(tileH)
		ty0 := int(fy)
		if fy < 0 {
			ty0 = 0
			fy = 0
		}
		ty1 := ty0 + 1
		if ty1 >= grid {
			ty1 = grid - 1
		}
		if ty0 >= grid {
			ty0 = grid - 1
		}
		wy := fy - float64(ty0)
		for x := 0; x < w; x++ {
			fx := (float64(x)-float64(tileW)/2 + 0.5) / float64(tileW)
			tx0 := int(fx)
			if fx < 0 {
				tx0 = 0
				fx = 0
			}
			tx1 := tx0 + 1
			if tx1 >= grid {
				tx1 = grid - 1
			}
			if tx0 >= grid {
				tx0 = grid - 1
			}
			wx := fx - float64(tx0)

			v := grayValue(img, x, y)
			v00 := float64(luts[ty0*grid+tx0][v])
			v01 := float64(luts[ty0*grid+tx1][v])
			v10 := float64(luts[ty1*grid+tx0][v])
			v11 := float64(luts[ty1*grid+tx1][v])
			top := v00*(1-wx) + v01*wx
			bot := v10*(1-wx) + v11*wx
			setGray(out, x, y, int(top*(1-wy)+bot*wy+0.5))
		}
	}
	return out
}

// unsharp applies an unsharp mask: out = (1+amount)*img - amount*blur(img).
func unsharp(img *image.NRGBA, amount, sigma float64) *image.NRGBA {
	blur := imaging.Blur(img, sigma)
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	out := imaging.New(w, h, color.NRGBA{0, 0, 0, 255})
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := (1+amount)*float64(grayValue(img, x, y)) - amount*float64(grayValue(blur, x, y))
			setGray(out, x, y, int(v+0.5))
		}
	}
	return out
}

// rbMinusG builds max(R,B) - 0.85*G as a grayscale emphasis image.
func rbMinusG(img *image.NRGBA) *image.NRGBA {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	out := imaging.New(w, h, color.NRGBA{0, 0, 0, 255})
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := img.PixOffset(x, y)
			r := float64(img.Pix[i])
			g := float64(img.Pix[i+1])
			b := float64(img.Pix[i+2])
			rb := r
			if b > rb {
				rb = b
			}
			setGray(out, x, y, int(rb-0.85*g))
		}
	}
	return out
}

// redMagentaMask marks pixels whose hue falls in the red/magenta bands with
// sufficient saturation and value, thickens the glyphs slightly, then inverts
// so isolated glyphs render as dark text on a white field.
func redMagentaMask(img *image.NRGBA) *image.NRGBA {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	mask := imaging.New(w, h, color.NRGBA{255, 255, 255, 255})
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := img.PixOffset(x, y)
			hue, sat, val := rgbToHSV(img.Pix[i], img.Pix[i+1], img.Pix[i+2])
			red := hue <= 25 || hue >= 330
			mag := hue >= 270 && hue <= 350
			if (red || mag) && sat >= 0.27 && val >= 0.16 {
				mask.Set(x, y, color.NRGBA{0, 0, 0, 255})
			}
		}
	}
	return dilate(mask, 1)
}

// rgbToHSV returns hue in degrees [0,360) and saturation/value in [0,1].
func rgbToHSV(r, g, b uint8) (float64, float64, float64) {
	rf, gf, bf := float64(r)/255, float64(g)/255, float64(b)/255
	max := rf
	if gf > max {
		max = gf
	}
	if bf > max {
		max = bf
	}
	min := rf
	if gf < min {
		min = gf
	}
	if bf < min {
		min = bf
	}
	v := max
	d := max - min
	s := 0.0
	if max > 0 {
		s = d / max
	}
	hue := 0.0
	if d > 0 {
		switch max {
		case rf:
			hue = 60 * ((gf - bf) / d)
		case gf:
			hue = 60 * (2 + (bf-rf)/d)
		default:
			hue = 60 * (4 + (rf-gf)/d)
		}
		if hue < 0 {
			hue += 360
		}
	}
	return hue, s, v
}

// otsuThreshold picks the global threshold maximizing between-class variance.
func otsuThreshold(img *image.NRGBA) uint8 {
	var hist [256]int
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	total := w * h
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			hist[grayValue(img, x, y)]++
		}
	}
	sum := 0.0
	for v := 0; v < 256; v++ {
		sum += float64(v) * float64(hist[v])
	}
	sumB, wB := 0.0, 0
	best, bestVar := 127, -1.0
	for t := 0; t < 256; t++ {
		wB += hist[t]
		if wB == 0 {
			continue
		}
		wF := total - wB
		if wF == 0 {
			break
		}
		sumB += float64(t) * float64(hist[t])
		mB := sumB / float64(wB)
		mF := (sum - sumB) / float64(wF)
		between := float64(wB) * float64(wF) * (mB - mF) * (mB - mF)
		if between > bestVar {
			bestVar = between
			best = t
		}
	}
	return uint8(best)
}

// binarize performs a simple global threshold on a grayscale image.
func binarize(img *image.NRGBA, threshold uint8) *image.NRGBA {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	out := imaging.New(w, h, color.NRGBA{255, 255, 255, 255})
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if grayValue(img, x, y) <= int(threshold) {
				out.Set(x, y, color.NRGBA{0, 0, 0, 255})
			}
		}
	}
	return out
}

// ensureWhiteBG flips a binary image when ink dominates; Tesseract prefers
// black text on a white background.
func ensureWhiteBG(img *image.NRGBA) *image.NRGBA {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	sum := 0
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			sum += grayValue(img, x, y)
		}
	}
	if w*h > 0 && sum/(w*h) < 127 {
		return imaging.Invert(img)
	}
	return img
}

// dilate performs a 4-neighborhood dilation of dark pixels radius times.
func dilate(img *image.NRGBA, radius int) *image.NRGBA {
	if radius <= 0 {
		return img
	}
	w := img.Bounds().Dx()
	h := img.Bounds().Dy()
	cur := img
	for r := 0; r < radius; r++ {
		next := imaging.New(w, h, color.NRGBA{255, 255, 255, 255})
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				black := false
				for _, d := range [][2]int{{0, 0}, {1, 0}, {-1, 0}, {0, 1}, {0, -1}} {
					x2 := x + d[0]
					y2 := y + d[1]
					if x2 < 0 || y2 < 0 || x2 >= w || y2 >= h {
						continue
					}
					if grayValue(cur, x2, y2) < 128 {
						black = true
						break
					}
				}
				if black {
					next.Set(x, y, color.NRGBA{0, 0, 0, 255})
				}
			}
		}
		cur = next
	}
	return cur
}
