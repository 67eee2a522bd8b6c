// Package form turns raw request fields into pipeline.EditParameters.
//
// Both the HTTP endpoint and the MCP tools accept the same loosely typed
// field set. This package owns the defaulting, string-to-number parsing,
// clamping and enum coercion so the pipeline only ever sees validated
// parameters.
package form

import (
	"math"
	"net/url"
	"strconv"
	"strings"

	edit "github.com/ironsheep/image-edit-mcp/internal/imaging"
	"github.com/ironsheep/image-edit-mcp/internal/pipeline"
)

// Field names, shared by the multipart form and the MCP tool schema.
const (
	FieldDoResize           = "doResize"
	FieldWidth              = "width"
	FieldHeight             = "height"
	FieldKeepRatio          = "keepRatio"
	FieldFitMode            = "fitMode"
	FieldMakeTransparent    = "makeTransparent"
	FieldBackgroundStrategy = "backgroundStrategy"
	FieldBrightness         = "brightness"
	FieldSaturation         = "saturation"
	FieldContrast           = "contrast"
	FieldHue                = "hue"
	FieldLineStrength       = "lineStrength"
	FieldLineColor          = "lineColor"
	FieldOverlayText        = "overlayText"
	FieldTextSize           = "textSize"
	FieldTextColor          = "textColor"
	FieldTextPosition       = "textPosition"
	FieldImages             = "images"
)

// Defaults for absent or unparsable fields.
const (
	DefaultSize      = 512
	DefaultLineColor = "original"
)

// Fields is the raw field set of one edit request.
type Fields struct {
	DoResize           bool    `json:"doResize"`
	Width              int     `json:"width"`
	Height             int     `json:"height"`
	KeepRatio          bool    `json:"keepRatio"`
	FitMode            string  `json:"fitMode"`
	MakeTransparent    bool    `json:"makeTransparent"`
	BackgroundStrategy string  `json:"backgroundStrategy"`
	Brightness         float64 `json:"brightness"`
	Saturation         float64 `json:"saturation"`
	Contrast           float64 `json:"contrast"`
	Hue                float64 `json:"hue"`
	LineStrength       float64 `json:"lineStrength"`
	LineColor          string  `json:"lineColor"`
	OverlayText        string  `json:"overlayText"`
	TextSize           int     `json:"textSize"`
	TextColor          string  `json:"textColor"`
	TextPosition       string  `json:"textPosition"`
}

// Defaults returns the field set of an empty request.
func Defaults() Fields {
	return Fields{
		Width:        DefaultSize,
		Height:       DefaultSize,
		FitMode:      string(edit.FitContain),
		LineColor:    DefaultLineColor,
		TextSize:     edit.DefaultFontSize,
		TextColor:    edit.DefaultTextColor,
		TextPosition: string(edit.TextBottom),
	}
}

// FromValues reads fields from form values. Missing keys keep their
// defaults. Flags are on for "1", "true" or "on".
func FromValues(v url.Values) Fields {
	f := Defaults()

	f.DoResize = flag(v.Get(FieldDoResize))
	f.Width = positiveInt(v.Get(FieldWidth), DefaultSize)
	f.Height = positiveInt(v.Get(FieldHeight), DefaultSize)
	f.KeepRatio = flag(v.Get(FieldKeepRatio))
	f.FitMode = stringOr(v.Get(FieldFitMode), f.FitMode)
	f.MakeTransparent = flag(v.Get(FieldMakeTransparent))
	f.BackgroundStrategy = strings.TrimSpace(v.Get(FieldBackgroundStrategy))

	f.Brightness = number(v.Get(FieldBrightness))
	f.Saturation = number(v.Get(FieldSaturation))
	f.Contrast = number(v.Get(FieldContrast))
	f.Hue = number(v.Get(FieldHue))

	f.LineStrength = number(v.Get(FieldLineStrength))
	f.LineColor = stringOr(v.Get(FieldLineColor), f.LineColor)

	f.OverlayText = v.Get(FieldOverlayText)
	f.TextSize = positiveInt(v.Get(FieldTextSize), edit.DefaultFontSize)
	f.TextColor = stringOr(v.Get(FieldTextColor), f.TextColor)
	f.TextPosition = stringOr(v.Get(FieldTextPosition), f.TextPosition)
	return f
}

// Params converts the fields into edit parameters.
//
// Sliders clamp to their ranges and unknown enum values fall back to their
// defaults. Resize targets are passed through untouched so that a
// non-positive size still surfaces as a configuration error.
func (f Fields) Params() pipeline.EditParameters {
	fit, err := edit.ParseFitMode(f.FitMode)
	if err != nil {
		fit = edit.FitContain
	}
	if !f.KeepRatio {
		fit = edit.FitFill
	}

	width, height := f.Width, f.Height
	if width == 0 {
		width = DefaultSize
	}
	if height == 0 {
		height = DefaultSize
	}

	position, err := edit.ParseTextPosition(f.TextPosition)
	if err != nil {
		position = edit.TextBottom
	}

	size := f.TextSize
	if size <= 0 {
		size = edit.DefaultFontSize
	}
	if size > pipeline.MaxFontSize {
		size = pipeline.MaxFontSize
	}

	return pipeline.EditParameters{
		Resize: edit.ResizeSpec{
			Enabled:         f.DoResize,
			Width:           width,
			Height:          height,
			KeepAspectRatio: f.KeepRatio,
			Fit:             fit,
		},
		Color: edit.ColorSpec{
			Brightness: slider(f.Brightness, pipeline.MinAdjust, pipeline.MaxAdjust),
			Saturation: slider(f.Saturation, pipeline.MinAdjust, pipeline.MaxAdjust),
			Contrast:   slider(f.Contrast, pipeline.MinAdjust, pipeline.MaxAdjust),
			Hue:        slider(f.Hue, pipeline.MinHue, pipeline.MaxHue),
		},
		Background: pipeline.BackgroundSpec{
			Enabled:  f.MakeTransparent,
			Strategy: f.BackgroundStrategy,
		},
		Line: edit.LineSpec{
			Strength: slider(f.LineStrength, pipeline.MinAdjust, pipeline.MaxAdjust),
			Color:    edit.LineColorPreset(f.LineColor),
		},
		Text: edit.TextSpec{
			Content:   f.OverlayText,
			FontSize:  size,
			ColorName: f.TextColor,
			Position:  position,
		},
	}
}

func flag(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

// positiveInt parses s as a base-10 integer. Empty, unparsable and zero
// input yield def; negative values are kept for validation to reject.
func positiveInt(s string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n == 0 {
		return def
	}
	return n
}

func number(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) {
		return 0
	}
	return v
}

func stringOr(s, def string) string {
	if s = strings.TrimSpace(s); s != "" {
		return s
	}
	return def
}

// slider rounds v and clamps it to [lo, hi].
func slider(v float64, lo, hi int) int {
	if math.IsNaN(v) {
		return 0
	}
	r := math.Round(v)
	if r < float64(lo) {
		return lo
	}
	if r > float64(hi) {
		return hi
	}
	return int(r)
}
