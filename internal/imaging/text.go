package imaging

import (
	"fmt"
	"image"
	"math"
	"strings"

	"github.com/anthonynsimon/bild/parallel"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// TextPosition anchors the text line vertically.
type TextPosition string

const (
	TextTop    TextPosition = "top"
	TextBottom TextPosition = "bottom"
)

// Vertical anchors as a fraction of the image height. The text line is
// centered on the anchor.
const (
	bottomAnchor = 0.85
	topAnchor    = 0.20
)

// DefaultFontSize is the font size in pixels used when none is given.
const DefaultFontSize = 32

// ParseTextPosition parses "top" or "bottom". Matching is case-insensitive.
func ParseTextPosition(s string) (TextPosition, error) {
	switch p := TextPosition(strings.ToLower(strings.TrimSpace(s))); p {
	case TextTop, TextBottom:
		return p, nil
	default:
		return "", fmt.Errorf("unknown text position %q (want top or bottom)", s)
	}
}

// TextSpec describes the overlay text.
type TextSpec struct {
	Content   string       `json:"content"`
	FontSize  int          `json:"font_size"`
	ColorName string       `json:"color"`
	Position  TextPosition `json:"position"`
}

// Triggered reports whether the spec carries any visible text.
func (s TextSpec) Triggered() bool {
	return strings.TrimSpace(s.Content) != ""
}

// line collapses all whitespace runs, including newlines, so the text
// renders as one line.
func (s TextSpec) line() string {
	return strings.Join(strings.Fields(s.Content), " ")
}

func (s TextSpec) fontSize() int {
	if s.FontSize <= 0 {
		return DefaultFontSize
	}
	return s.FontSize
}

func (s TextSpec) anchorY(height int) int {
	frac := bottomAnchor
	if s.Position == TextTop {
		frac = topAnchor
	}
	return int(math.Round(float64(height) * frac))
}

// TextRenderer draws overlay text with the embedded Go Regular font.
//
// A TextRenderer is safe for concurrent use. Each Composite call builds its
// own font face.
type TextRenderer struct {
	font *opentype.Font
}

// NewTextRenderer parses the embedded font.
func NewTextRenderer() (*TextRenderer, error) {
	f, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to parse embedded font: %w", err)
	}
	return &TextRenderer{font: f}, nil
}

// Composite renders spec onto buf and returns it.
//
// The text is drawn as a single horizontally centered line on a transparent
// layer the size of buf, vertically centered on 85% of the height for
// TextBottom or 20% for TextTop. The layer is then blended over buf at the
// origin with source-over compositing. The color name resolves through the
// text palette, falling back to white.
//
// Empty or whitespace-only content leaves buf untouched.
func (r *TextRenderer) Composite(buf *PixelBuffer, spec TextSpec) (*PixelBuffer, error) {
	if !spec.Triggered() {
		return buf, nil
	}

	col, err := parseHexColor(TextColorHex(spec.ColorName))
	if err != nil {
		return nil, err
	}

	face, err := opentype.NewFace(r.font, &opentype.FaceOptions{
		Size:    float64(spec.fontSize()),
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create font face: %w", err)
	}
	defer face.Close()

	layer := image.NewNRGBA(image.Rect(0, 0, buf.Width, buf.Height))
	d := &font.Drawer{
		Dst:  layer,
		Src:  image.NewUniform(col),
		Face: face,
	}

	text := spec.line()
	m := face.Metrics()
	advance := d.MeasureString(text)
	x := (fixed.I(buf.Width) - advance) / 2
	baseline := fixed.I(spec.anchorY(buf.Height)) + (m.Ascent-m.Descent)/2
	d.Dot = fixed.Point26_6{X: x, Y: baseline}
	d.DrawString(text)

	blendOver(buf, layer)
	return buf, nil
}

// blendOver composites layer over buf in place using source-over blending
// on non-premultiplied samples. layer must have buf's dimensions.
func blendOver(buf *PixelBuffer, layer *image.NRGBA) {
	parallel.Line(buf.Height, func(start, end int) {
		for y := start; y < end; y++ {
			dst := buf.row(y)
			src := layer.Pix[y*layer.Stride : y*layer.Stride+buf.Width*Channels]
			for i := 0; i < len(dst); i += Channels {
				sa := src[i+3]
				if sa == 0 {
					continue
				}
				if sa == 255 {
					copy(dst[i:i+4], src[i:i+4])
					continue
				}

				as := float64(sa) / 255
				ad := float64(dst[i+3]) / 255
				ao := as + ad*(1-as)
				for c := 0; c < 3; c++ {
					v := (float64(src[i+c])*as + float64(dst[i+c])*ad*(1-as)) / ao
					dst[i+c] = clampByte(math.Round(v))
				}
				dst[i+3] = clampByte(math.Round(ao * 255))
			}
		}
	})
}

// OverlaySVG renders spec as a standalone SVG text layer of the given size.
// It mirrors the layout used by Composite and is meant for previews.
func OverlaySVG(width, height int, spec TextSpec) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d">`, width, height)
	if spec.Triggered() {
		fmt.Fprintf(&sb,
			`<text x="50%%" y="%d" font-family="sans-serif" font-size="%d" fill="%s" text-anchor="middle" dominant-baseline="middle">%s</text>`,
			spec.anchorY(height), spec.fontSize(), TextColorHex(spec.ColorName), EscapeMarkup(spec.line()))
	}
	sb.WriteString(`</svg>`)
	return sb.String()
}

var markupEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#39;",
)

// EscapeMarkup escapes the characters that are special in XML text and
// attribute values.
func EscapeMarkup(s string) string {
	return markupEscaper.Replace(s)
}
