package imaging

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// Channels is the number of interleaved samples per pixel (R, G, B, A).
const Channels = 4

// PixelBuffer is an in-memory RGBA raster.
//
// Samples holds Width*Height*Channels bytes in row-major order, interleaved
// R,G,B,A per pixel, with non-premultiplied alpha.
type PixelBuffer struct {
	Width    int
	Height   int
	Channels int
	Samples  []byte
}

// NewPixelBuffer allocates a fully transparent buffer of the given size.
func NewPixelBuffer(width, height int) (*PixelBuffer, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid buffer dimensions %dx%d", width, height)
	}
	return &PixelBuffer{
		Width:    width,
		Height:   height,
		Channels: Channels,
		Samples:  make([]byte, width*height*Channels),
	}, nil
}

// FromImage converts any image into a PixelBuffer.
//
// A tightly packed *image.NRGBA anchored at the origin is adopted without
// copying; the caller hands over ownership of its Pix slice. Every other
// image type is converted, which synthesizes a fully opaque alpha channel for
// sources that have none.
func FromImage(img image.Image) (*PixelBuffer, error) {
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, fmt.Errorf("image has no pixels (%dx%d)", b.Dx(), b.Dy())
	}

	nrgba, ok := img.(*image.NRGBA)
	if !ok || b.Min != (image.Point{}) || nrgba.Stride != b.Dx()*Channels {
		nrgba = imaging.Clone(img)
	}

	return &PixelBuffer{
		Width:    b.Dx(),
		Height:   b.Dy(),
		Channels: Channels,
		Samples:  nrgba.Pix[:b.Dx()*b.Dy()*Channels],
	}, nil
}

// NRGBA returns an *image.NRGBA view that shares the buffer's samples.
// Writes through the view are visible in the buffer.
func (b *PixelBuffer) NRGBA() *image.NRGBA {
	return &image.NRGBA{
		Pix:    b.Samples,
		Stride: b.Width * Channels,
		Rect:   image.Rect(0, 0, b.Width, b.Height),
	}
}

// Validate checks the buffer invariant samples == width*height*channels.
func (b *PixelBuffer) Validate() error {
	if b == nil {
		return fmt.Errorf("nil pixel buffer")
	}
	if b.Width <= 0 || b.Height <= 0 {
		return fmt.Errorf("invalid buffer dimensions %dx%d", b.Width, b.Height)
	}
	if b.Channels != Channels {
		return fmt.Errorf("buffer has %d channels, want %d", b.Channels, Channels)
	}
	if want := b.Width * b.Height * b.Channels; len(b.Samples) != want {
		return fmt.Errorf("buffer has %d samples, want %d", len(b.Samples), want)
	}
	return nil
}

// Pixel returns the color at (x, y). Coordinates must be inside the buffer.
func (b *PixelBuffer) Pixel(x, y int) RGBAColor {
	i := b.offset(x, y)
	s := b.Samples[i : i+4 : i+4]
	return RGBAColor{R: s[0], G: s[1], B: s[2], A: s[3]}
}

// SetPixel overwrites the color at (x, y).
func (b *PixelBuffer) SetPixel(x, y int, c RGBAColor) {
	i := b.offset(x, y)
	s := b.Samples[i : i+4 : i+4]
	s[0], s[1], s[2], s[3] = c.R, c.G, c.B, c.A
}

// row returns the samples of row y.
func (b *PixelBuffer) row(y int) []byte {
	stride := b.Width * Channels
	return b.Samples[y*stride : (y+1)*stride]
}

func (b *PixelBuffer) offset(x, y int) int {
	return (y*b.Width + x) * Channels
}
