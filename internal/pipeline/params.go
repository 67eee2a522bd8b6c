package pipeline

import (
	"fmt"

	"github.com/ironsheep/image-edit-mcp/internal/domain"
	"github.com/ironsheep/image-edit-mcp/internal/imaging"
)

// Slider ranges accepted by the pipeline.
const (
	MinAdjust = -50
	MaxAdjust = 50
	MinHue    = -180
	MaxHue    = 180

	// MaxDimension bounds resize targets to keep allocations sane.
	MaxDimension = 8192

	// MaxFontSize bounds the overlay font size in pixels.
	MaxFontSize = 512
)

// BackgroundSpec selects background isolation for a batch.
type BackgroundSpec struct {
	Enabled bool `json:"enabled"`

	// Strategy names a registered strategy. Empty selects the pipeline
	// default.
	Strategy string `json:"strategy,omitempty"`
}

// EditParameters is the immutable edit configuration for one batch. It is
// shared read-only by every image in the batch.
type EditParameters struct {
	Resize     imaging.ResizeSpec `json:"resize"`
	Color      imaging.ColorSpec  `json:"color"`
	Background BackgroundSpec     `json:"background"`
	Line       imaging.LineSpec   `json:"line"`
	Text       imaging.TextSpec   `json:"text"`
}

// Validate checks value ranges and enum members. It does not know which
// background strategies are registered; Pipeline.Validate adds that check.
func (p EditParameters) Validate() error {
	if r := p.Resize; r.Enabled {
		if r.Width <= 0 || r.Height <= 0 {
			return domain.ConfigurationError(fmt.Sprintf("invalid resize target %dx%d", r.Width, r.Height), nil)
		}
		if r.Width > MaxDimension || r.Height > MaxDimension {
			return domain.ConfigurationError(fmt.Sprintf("resize target %dx%d exceeds %d pixels per side", r.Width, r.Height, MaxDimension), nil)
		}
		if r.KeepAspectRatio {
			if _, err := imaging.ParseFitMode(string(r.Fit)); err != nil {
				return domain.ConfigurationError("invalid fit mode", err)
			}
		}
	}

	c := p.Color
	for _, f := range []struct {
		name  string
		value int
	}{
		{"brightness", c.Brightness},
		{"saturation", c.Saturation},
		{"contrast", c.Contrast},
		{"line strength", p.Line.Strength},
	} {
		if f.value < MinAdjust || f.value > MaxAdjust {
			return domain.ConfigurationError(fmt.Sprintf("%s %d outside [%d, %d]", f.name, f.value, MinAdjust, MaxAdjust), nil)
		}
	}
	if c.Hue < MinHue || c.Hue > MaxHue {
		return domain.ConfigurationError(fmt.Sprintf("hue %d outside [%d, %d]", c.Hue, MinHue, MaxHue), nil)
	}

	if t := p.Text; t.Triggered() {
		if _, err := imaging.ParseTextPosition(string(t.Position)); err != nil {
			return domain.ConfigurationError("invalid text position", err)
		}
		if t.FontSize <= 0 || t.FontSize > MaxFontSize {
			return domain.ConfigurationError(fmt.Sprintf("font size %d outside [1, %d]", t.FontSize, MaxFontSize), nil)
		}
	}
	return nil
}
