package imaging

import (
	"fmt"
	"image/color"
	"math"
	"strings"

	"github.com/disintegration/imaging"
)

// FitMode reconciles the source aspect ratio with a target box.
type FitMode string

const (
	// FitContain scales uniformly so the whole source fits, padding the rest
	// with transparent pixels.
	FitContain FitMode = "contain"

	// FitCover scales uniformly so the box is filled, cropping overflow.
	FitCover FitMode = "cover"

	// FitFill stretches each axis independently.
	FitFill FitMode = "fill"
)

// ParseFitMode parses a fit mode name. Matching is case-insensitive.
func ParseFitMode(s string) (FitMode, error) {
	switch m := FitMode(strings.ToLower(strings.TrimSpace(s))); m {
	case FitContain, FitCover, FitFill:
		return m, nil
	default:
		return "", fmt.Errorf("unknown fit mode %q (want contain, cover or fill)", s)
	}
}

// ResizeSpec describes the geometric normalization for a batch.
type ResizeSpec struct {
	Enabled         bool    `json:"enabled"`
	Width           int     `json:"width"`
	Height          int     `json:"height"`
	KeepAspectRatio bool    `json:"keep_aspect_ratio"`
	Fit             FitMode `json:"fit_mode"`
}

// EffectiveFit returns the fit mode actually applied. Without
// KeepAspectRatio the image is always stretched.
func (s ResizeSpec) EffectiveFit() FitMode {
	if !s.KeepAspectRatio {
		return FitFill
	}
	return s.Fit
}

// Resampling filters selectable by name.
var resampleFilters = map[string]imaging.ResampleFilter{
	"lanczos":    imaging.Lanczos,
	"catmullrom": imaging.CatmullRom,
	"linear":     imaging.Linear,
	"box":        imaging.Box,
	"nearest":    imaging.NearestNeighbor,
}

// DefaultResampleFilter is the filter name used when none is configured.
const DefaultResampleFilter = "lanczos"

// ResampleFilterByName resolves a filter name such as "lanczos" or "linear".
func ResampleFilterByName(name string) (imaging.ResampleFilter, error) {
	if name == "" {
		name = DefaultResampleFilter
	}
	f, ok := resampleFilters[strings.ToLower(name)]
	if !ok {
		return imaging.ResampleFilter{}, fmt.Errorf("unknown resample filter %q", name)
	}
	return f, nil
}

// Resize scales buf into a width x height box according to fit.
//
// Parameters:
//   - buf: Source buffer. It must not be used after the call.
//   - width, height: Target dimensions, both > 0.
//   - fit: FitContain, FitCover or FitFill.
//   - filter: Resampling kernel, e.g. imaging.Lanczos.
//
// Returns:
//   - *PixelBuffer: A new buffer of exactly width x height pixels.
//   - error: Non-nil if the target dimensions or fit mode are invalid.
//
// # Fit Modes
//
// FitFill stretches both axes independently. FitCover scales by the larger
// of the two axis ratios and crops the overflow around the center.
// FitContain scales by the smaller ratio and centers the result on a fully
// transparent canvas, so every padded pixel has alpha 0.
func Resize(buf *PixelBuffer, width, height int, fit FitMode, filter imaging.ResampleFilter) (*PixelBuffer, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid resize target %dx%d", width, height)
	}

	src := buf.NRGBA()
	switch fit {
	case FitFill:
		return FromImage(imaging.Resize(src, width, height, filter))

	case FitCover:
		return FromImage(imaging.Fill(src, width, height, imaging.Center, filter))

	case FitContain:
		w, h := containSize(buf.Width, buf.Height, width, height)
		scaled := imaging.Resize(src, w, h, filter)
		canvas := imaging.New(width, height, color.NRGBA{})
		return FromImage(imaging.PasteCenter(canvas, scaled))

	default:
		return nil, fmt.Errorf("unknown fit mode %q", fit)
	}
}

// containSize returns the largest size with the source aspect ratio that
// fits inside the target box. Both sides are at least one pixel.
func containSize(srcW, srcH, dstW, dstH int) (int, int) {
	scale := math.Min(float64(dstW)/float64(srcW), float64(dstH)/float64(srcH))
	w := int(math.Round(float64(srcW) * scale))
	h := int(math.Round(float64(srcH) * scale))
	return clampInt(w, 1, dstW), clampInt(h, 1, dstH)
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
