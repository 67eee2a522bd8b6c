// Package segment delegates background isolation to an external
// segmentation capability.
//
// A Segmenter receives an encoded PNG and returns an encoded PNG of the same
// size whose background is transparent. Two backends are provided: an
// in-process ONNX Runtime model and a remote HTTP service.
//
// Strategy adapts any Segmenter to imaging.BackgroundStrategy. It never
// surfaces a segmentation failure: when the backend errors, returns garbage,
// or changes the image size, the strategy logs a warning and hands back the
// unmodified buffer.
package segment

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/ironsheep/image-edit-mcp/internal/domain"
	"github.com/ironsheep/image-edit-mcp/internal/imaging"
)

// Segmenter removes the background from an encoded image.
type Segmenter interface {
	Segment(ctx context.Context, image []byte) ([]byte, error)
}

// SegmenterFunc adapts a plain function to Segmenter.
type SegmenterFunc func(ctx context.Context, image []byte) ([]byte, error)

// Segment implements Segmenter.
func (f SegmenterFunc) Segment(ctx context.Context, image []byte) ([]byte, error) {
	return f(ctx, image)
}

// Strategy is the delegated segmentation background strategy.
type Strategy struct {
	segmenter Segmenter
	codec     imaging.Codec
	logger    zerolog.Logger
}

// NewStrategy wraps segmenter. A nil segmenter is allowed; every call then
// falls back to the original buffer.
func NewStrategy(segmenter Segmenter, codec imaging.Codec, logger zerolog.Logger) *Strategy {
	return &Strategy{
		segmenter: segmenter,
		codec:     codec,
		logger:    logger.With().Str("component", "segment").Logger(),
	}
}

// Name implements imaging.BackgroundStrategy.
func (s *Strategy) Name() string {
	return imaging.StrategySegmentation
}

// Isolate implements imaging.BackgroundStrategy. It always returns a nil
// error.
func (s *Strategy) Isolate(ctx context.Context, buf *imaging.PixelBuffer) (*imaging.PixelBuffer, error) {
	out, err := s.Segment(ctx, buf)
	if err != nil {
		s.logger.Warn().Err(err).
			Int("width", buf.Width).
			Int("height", buf.Height).
			Msg("segmentation failed, keeping original image")
		return buf, nil
	}
	return out, nil
}

// Segment runs the backend on buf without the fallback. buf is not modified.
// Failures are returned as domain segmentation errors.
func (s *Strategy) Segment(ctx context.Context, buf *imaging.PixelBuffer) (*imaging.PixelBuffer, error) {
	if s.segmenter == nil {
		return nil, domain.SegmentationError("no segmentation backend configured", nil)
	}

	data, err := s.codec.Encode(buf)
	if err != nil {
		return nil, domain.SegmentationError("failed to prepare segmentation input", err)
	}

	result, err := s.segmenter.Segment(ctx, data)
	if err != nil {
		return nil, domain.SegmentationError("segmentation backend failed", err)
	}

	out, err := s.codec.Decode(result)
	if err != nil {
		return nil, domain.SegmentationError("segmentation result unreadable", err)
	}
	if out.Width != buf.Width || out.Height != buf.Height {
		return nil, domain.SegmentationError("segmentation result has wrong size",
			errors.Errorf("got %dx%d, want %dx%d", out.Width, out.Height, buf.Width, buf.Height))
	}
	return out, nil
}
