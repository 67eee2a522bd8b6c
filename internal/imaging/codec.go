package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp" // Register WebP format decoder

	"github.com/ironsheep/image-edit-mcp/internal/domain"
)

// Codec converts between encoded image bytes and PixelBuffers.
//
// Decoding accepts every format registered with the image package: PNG,
// JPEG and GIF from the standard library, BMP and TIFF via the imaging
// toolkit, and WebP. Encoding always produces PNG so transparency survives.
//
// The zero value decodes without EXIF orientation and encodes with the
// default PNG compression level.
type Codec struct {
	// CompressionLevel is passed to the PNG encoder.
	CompressionLevel png.CompressionLevel

	// AutoOrient applies the EXIF orientation tag while decoding.
	AutoOrient bool
}

// MimeType is the content type of every encoded output.
const MimeType = "image/png"

// Decode parses data into a 4-channel PixelBuffer.
//
// Returns a domain.DecodeError for empty, unsupported or corrupt input.
// Sources without an alpha channel come back fully opaque.
func (c Codec) Decode(data []byte) (*PixelBuffer, error) {
	if len(data) == 0 {
		return nil, domain.DecodeError("empty image data", nil)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(c.AutoOrient))
	if err != nil {
		return nil, domain.DecodeError("failed to decode image", err)
	}

	buf, err := FromImage(img)
	if err != nil {
		return nil, domain.DecodeError("failed to convert image", err)
	}
	return buf, nil
}

// Encode serializes buf as PNG.
func (c Codec) Encode(buf *PixelBuffer) ([]byte, error) {
	if err := buf.Validate(); err != nil {
		return nil, domain.EncodeError("refusing to encode invalid buffer", err)
	}

	var out bytes.Buffer
	if err := imaging.Encode(&out, buf.NRGBA(), imaging.PNG, imaging.PNGCompressionLevel(c.CompressionLevel)); err != nil {
		return nil, domain.EncodeError("failed to encode image", err)
	}
	return out.Bytes(), nil
}

// ParseCompressionLevel maps "default", "none", "fast" or "best" to a PNG
// compression level. The empty string selects the default.
func ParseCompressionLevel(name string) (png.CompressionLevel, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "default":
		return png.DefaultCompression, nil
	case "none":
		return png.NoCompression, nil
	case "fast":
		return png.BestSpeed, nil
	case "best":
		return png.BestCompression, nil
	default:
		return png.DefaultCompression, fmt.Errorf("unknown png compression %q (want default, none, fast or best)", name)
	}
}

// ReadFile reads an image file from disk without decoding it.
func ReadFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	return data, nil
}

// ImageInfo contains metadata about an encoded image.
type ImageInfo struct {
	// Width is the image width in pixels.
	Width int `json:"width"`

	// Height is the image height in pixels.
	Height int `json:"height"`

	// Format is the format name reported by the registered decoder, such as
	// "png", "jpeg" or "webp".
	Format string `json:"format"`

	// ColorDepth indicates the bit depth per channel: "8-bit" or "16-bit".
	ColorDepth string `json:"color_depth"`

	// HasAlpha indicates whether the color model carries transparency.
	HasAlpha bool `json:"has_alpha"`

	// SizeBytes is the length of the encoded data.
	SizeBytes int64 `json:"size_bytes"`
}

// Inspect reads image metadata from the header without decoding pixels.
//
// # Color Model Detection
//
// Alpha and depth come from the decoder's color model:
//   - RGBA64, NRGBA64 -> 16-bit with alpha
//   - Gray16 -> 16-bit
//   - RGBA, NRGBA, palette -> 8-bit with alpha
//   - Everything else -> 8-bit without alpha
func Inspect(data []byte) (*ImageInfo, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, domain.DecodeError("failed to read image header", err)
	}

	info := &ImageInfo{
		Width:     cfg.Width,
		Height:    cfg.Height,
		Format:    format,
		SizeBytes: int64(len(data)),
	}

	info.HasAlpha, info.ColorDepth = describeModel(cfg.ColorModel)
	return info, nil
}

func describeModel(m color.Model) (hasAlpha bool, depth string) {
	if _, ok := m.(color.Palette); ok {
		return true, "8-bit"
	}
	switch m {
	case color.RGBA64Model, color.NRGBA64Model:
		return true, "16-bit"
	case color.Gray16Model:
		return false, "16-bit"
	case color.RGBAModel, color.NRGBAModel, color.AlphaModel:
		return true, "8-bit"
	}
	return false, "8-bit"
}

// FormatFromFilename guesses a format name from a file extension, returning
// "unknown" for extensions outside the supported set.
func FormatFromFilename(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "png"
	case ".jpg", ".jpeg":
		return "jpeg"
	case ".gif":
		return "gif"
	case ".bmp":
		return "bmp"
	case ".tif", ".tiff":
		return "tiff"
	case ".webp":
		return "webp"
	}
	return "unknown"
}
