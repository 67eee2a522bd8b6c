package imaging

import (
	"math"

	"github.com/anthonynsimon/bild/parallel"
	"github.com/lucasb-eyer/go-colorful"
)

// ColorSpec holds the color grading inputs.
//
// Brightness, Saturation and Contrast range over [-50, 50]; Hue is in
// degrees over [-180, 180]. The zero value is the identity transform.
type ColorSpec struct {
	Brightness int `json:"brightness"`
	Saturation int `json:"saturation"`
	Contrast   int `json:"contrast"`
	Hue        int `json:"hue"`
}

// IsIdentity reports whether grading with this spec leaves pixels unchanged.
func (s ColorSpec) IsIdentity() bool {
	return s == ColorSpec{}
}

func (s ColorSpec) modulates() bool {
	return s.Brightness != 0 || s.Saturation != 0 || s.Hue != 0
}

// ModulationFactor maps a [-50, 50] slider value to a multiplier in
// [0.5, 1.5].
func ModulationFactor(value int) float64 {
	return 1 + float64(value)/100
}

// Grade applies color grading to buf in place and returns it.
//
// # Algorithm
//
// Two passes are applied in a fixed order:
//
//  1. Modulation in HSV: V is multiplied by the brightness factor, S by the
//     saturation factor (clamped to [0,1]), and the hue offset is added to
//     H modulo 360. Channels are clamped to [0,255] on the way back to RGB.
//     Skipped when brightness, saturation and hue are all zero.
//
//  2. Contrast: c = contrast/100, out = clamp(in*(1+c) - 128*c, 0, 255)
//     per RGB channel, pivoting on mid-gray 128. Skipped when contrast is 0.
//
// The alpha channel is never modified.
func Grade(buf *PixelBuffer, spec ColorSpec) *PixelBuffer {
	if spec.modulates() {
		modulate(buf, ModulationFactor(spec.Brightness), ModulationFactor(spec.Saturation), float64(spec.Hue))
	}
	if spec.Contrast != 0 {
		applyContrast(buf, float64(spec.Contrast)/100)
	}
	return buf
}

func modulate(buf *PixelBuffer, brightness, saturation, hue float64) {
	parallel.Line(buf.Height, func(start, end int) {
		for y := start; y < end; y++ {
			row := buf.row(y)
			for i := 0; i < len(row); i += Channels {
				px := row[i : i+3 : i+3]
				c := colorful.Color{
					R: float64(px[0]) / 255.0,
					G: float64(px[1]) / 255.0,
					B: float64(px[2]) / 255.0,
				}
				h, s, v := c.Hsv()
				h = normalizeHue(h + hue)
				s = math.Max(0, math.Min(1, s*saturation))
				v *= brightness

				px[0], px[1], px[2] = colorful.Hsv(h, s, v).Clamped().RGB255()
			}
		}
	})
}

func applyContrast(buf *PixelBuffer, c float64) {
	var lut [256]uint8
	for in := range lut {
		lut[in] = clampByte(math.Round(float64(in)*(1+c) - 128*c))
	}

	parallel.Line(buf.Height, func(start, end int) {
		for y := start; y < end; y++ {
			row := buf.row(y)
			for i := 0; i < len(row); i += Channels {
				row[i] = lut[row[i]]
				row[i+1] = lut[row[i+1]]
				row[i+2] = lut[row[i+2]]
			}
		}
	})
}

// normalizeHue wraps degrees into [0, 360).
func normalizeHue(h float64) float64 {
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	if h >= 360 {
		h -= 360
	}
	return h
}

// clampByte rounds toward zero after clamping to [0, 255].
func clampByte(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v)
}
