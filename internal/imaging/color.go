package imaging

import (
	"fmt"
	"image/color"
	"sort"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// RGBColor represents an RGB color with 8-bit components.
type RGBColor struct {
	R uint8 `json:"r" yaml:"r"` // Red component (0-255)
	G uint8 `json:"g" yaml:"g"` // Green component (0-255)
	B uint8 `json:"b" yaml:"b"` // Blue component (0-255)
}

// RGBAColor represents an RGBA color with 8-bit components including alpha.
//
// The alpha component represents opacity:
//   - 0 = fully transparent
//   - 255 = fully opaque
type RGBAColor struct {
	R uint8 `json:"r"` // Red component (0-255)
	G uint8 `json:"g"` // Green component (0-255)
	B uint8 `json:"b"` // Blue component (0-255)
	A uint8 `json:"a"` // Alpha/opacity component (0-255)
}

// Hex formats the color as "#rrggbb".
func (c RGBColor) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// Line color presets selectable by name. "original" keeps the line color.
var lineColorPresets = map[string]RGBColor{
	"brown": {R: 80, G: 50, B: 30},
	"navy":  {R: 25, G: 35, B: 80},
	"white": {R: 245, G: 245, B: 245},
}

// Text color palette. Unknown names fall back to DefaultTextColor.
var textColorPalette = map[string]string{
	"white": "#ffffff",
	"black": "#000000",
	"brown": "#553322",
}

// DefaultTextColor is the palette entry used for unrecognized names.
const DefaultTextColor = "white"

// LineColorPreset resolves a line color preset name.
//
// It returns nil for "original", the empty string, and any unrecognized
// name, meaning the line keeps its own color.
func LineColorPreset(name string) *RGBColor {
	c, ok := lineColorPresets[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil
	}
	return &c
}

// LineColorPresetNames lists the recognized line color names, sorted.
func LineColorPresetNames() []string {
	names := []string{"original"}
	for name := range lineColorPresets {
		names = append(names, name)
	}
	sort.Strings(names[1:])
	return names
}

// TextColorHex resolves a palette name to its hex value, defaulting to
// white for names outside the palette.
func TextColorHex(name string) string {
	if hex, ok := textColorPalette[strings.ToLower(strings.TrimSpace(name))]; ok {
		return hex
	}
	return textColorPalette[DefaultTextColor]
}

// TextColorNames lists the palette names, sorted.
func TextColorNames() []string {
	names := make([]string, 0, len(textColorPalette))
	for name := range textColorPalette {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// parseHexColor parses "#rgb" or "#rrggbb" into an opaque color.
func parseHexColor(hex string) (color.NRGBA, error) {
	if hex == "" {
		return color.NRGBA{}, fmt.Errorf("empty color string")
	}
	if hex[0] != '#' {
		hex = "#" + hex
	}
	c, err := colorful.Hex(strings.ToLower(hex))
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid hex color %q: %w", hex, err)
	}
	r, g, b := c.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 255}, nil
}

// SampleColor returns the RGB color at (x, y), ignoring alpha.
//
// Background detection samples RGB only so that a pixel made transparent by
// an earlier pass still yields the same reference color.
func SampleColor(buf *PixelBuffer, x, y int) (RGBColor, error) {
	if x < 0 || x >= buf.Width || y < 0 || y >= buf.Height {
		return RGBColor{}, fmt.Errorf("coordinates (%d,%d) outside image bounds", x, y)
	}
	p := buf.Pixel(x, y)
	return RGBColor{R: p.R, G: p.G, B: p.B}, nil
}

// BorderDominantColor returns the most common color along the outermost
// ring of pixels.
//
// # Color Quantization
//
// Colors are grouped by dividing each component by 16, so colors within the
// same 16-unit bucket count together. The returned color is the mean of the
// actual colors in the winning bucket, not the bucket's lower bound. Ties go
// to the bucket with the lowest packed RGB key so the result is stable.
//
// Alpha is ignored for the same reason as in SampleColor.
func BorderDominantColor(buf *PixelBuffer) RGBColor {
	type bucket struct {
		count   int
		r, g, b int
	}
	buckets := make(map[uint32]*bucket)

	visit := func(x, y int) {
		p := buf.Pixel(x, y)
		key := uint32(p.R/16)<<16 | uint32(p.G/16)<<8 | uint32(p.B/16)
		bk, ok := buckets[key]
		if !ok {
			bk = &bucket{}
			buckets[key] = bk
		}
		bk.count++
		bk.r += int(p.R)
		bk.g += int(p.G)
		bk.b += int(p.B)
	}

	for x := 0; x < buf.Width; x++ {
		visit(x, 0)
		if buf.Height > 1 {
			visit(x, buf.Height-1)
		}
	}
	for y := 1; y < buf.Height-1; y++ {
		visit(0, y)
		if buf.Width > 1 {
			visit(buf.Width-1, y)
		}
	}

	var bestKey uint32
	var best *bucket
	for key, bk := range buckets {
		if best == nil || bk.count > best.count || (bk.count == best.count && key < bestKey) {
			best, bestKey = bk, key
		}
	}

	return RGBColor{
		R: uint8(best.r / best.count),
		G: uint8(best.g / best.count),
		B: uint8(best.b / best.count),
	}
}
