package imaging

import (
	"github.com/anthonynsimon/bild/parallel"
)

// DefaultLineThreshold is the average luminance below which a pixel is
// classified as a line pixel.
const DefaultLineThreshold = 90

// lineWeightGain scales the normalized strength into a divisor/multiplier.
const lineWeightGain = 0.8

// LineSpec holds the line stylization inputs.
type LineSpec struct {
	// Strength in [-50, 50]. Positive values darken line pixels, negative
	// values lighten them.
	Strength int `json:"strength"`

	// Color replaces the RGB of every line pixel when non-nil.
	Color *RGBColor `json:"color,omitempty"`
}

// Triggered reports whether the stylizer has anything to do.
func (s LineSpec) Triggered() bool {
	return s.Strength != 0 || s.Color != nil
}

// IsLinePixel reports whether a pixel belongs to linework: it must not be
// fully transparent and its average luminance must be below threshold.
func IsLinePixel(c RGBAColor, threshold int) bool {
	if c.A == 0 {
		return false
	}
	return int(c.R)+int(c.G)+int(c.B) < 3*threshold
}

// StylizeLines re-weights or recolors line pixels in buf and returns it.
//
// Parameters:
//   - buf: Buffer to modify in place.
//   - spec: Strength and optional color override.
//   - threshold: Luminance threshold for line classification. Values <= 0
//     select DefaultLineThreshold.
//
// # Algorithm
//
// Strength is normalized to s = strength/50. For each line pixel:
//
//   - s > 0: every RGB channel is divided by 1 + 0.8*s.
//   - s < 0: every RGB channel is multiplied by 1 + 0.8*|s|, capped at 255.
//   - s == 0: RGB is left alone.
//
// A color override then replaces RGB outright. Pixels that are not line
// pixels are never touched, and alpha is never modified.
func StylizeLines(buf *PixelBuffer, spec LineSpec, threshold int) *PixelBuffer {
	if !spec.Triggered() {
		return buf
	}
	if threshold <= 0 {
		threshold = DefaultLineThreshold
	}

	s := float64(clampInt(spec.Strength, -50, 50)) / 50
	divisor, multiplier := 1.0, 1.0
	switch {
	case s > 0:
		divisor = 1 + s*lineWeightGain
	case s < 0:
		multiplier = 1 + (-s)*lineWeightGain
	}

	override := spec.Color

	parallel.Line(buf.Height, func(start, end int) {
		for y := start; y < end; y++ {
			row := buf.row(y)
			for i := 0; i < len(row); i += Channels {
				px := row[i : i+4 : i+4]
				if !IsLinePixel(RGBAColor{px[0], px[1], px[2], px[3]}, threshold) {
					continue
				}
				switch {
				case override != nil:
					px[0], px[1], px[2] = override.R, override.G, override.B
				case divisor != 1:
					px[0] = clampByte(float64(px[0]) / divisor)
					px[1] = clampByte(float64(px[1]) / divisor)
					px[2] = clampByte(float64(px[2]) / divisor)
				case multiplier != 1:
					px[0] = clampByte(float64(px[0]) * multiplier)
					px[1] = clampByte(float64(px[1]) * multiplier)
					px[2] = clampByte(float64(px[2]) * multiplier)
				}
			}
		}
	})
	return buf
}
