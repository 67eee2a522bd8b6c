package imaging

import (
	"context"
	"fmt"

	"github.com/anthonynsimon/bild/parallel"
)

const (
	// DefaultReferenceTolerance is the per-channel distance from the
	// reference color below which a pixel counts as background.
	DefaultReferenceTolerance = 30

	// DefaultLuminanceThreshold is the average luminance at or above which
	// a pixel counts as background for the luminance strategy.
	DefaultLuminanceThreshold = 240
)

// Background strategy names.
const (
	StrategyReference       = "reference"
	StrategyReferenceBorder = "reference-border"
	StrategyLuminance       = "luminance"
	StrategySegmentation    = "segmentation"
)

// BackgroundStrategy turns background pixels transparent.
//
// Implementations either mutate buf in place and return it, or return a new
// buffer with identical dimensions. Only alpha may change.
type BackgroundStrategy interface {
	Name() string
	Isolate(ctx context.Context, buf *PixelBuffer) (*PixelBuffer, error)
}

// ReferencePoint selects where the reference background color comes from.
type ReferencePoint int

const (
	// ReferenceTopLeft samples the pixel at (0,0).
	ReferenceTopLeft ReferencePoint = iota
	// ReferenceBorder uses the dominant color of the outermost pixel ring.
	ReferenceBorder
)

// ReferenceSampleStrategy clears pixels close to a sampled background color.
//
// The reference color is read before any pixel is modified. A pixel becomes
// transparent when |R-Rref|, |G-Gref| and |B-Bref| are all strictly below
// Tolerance. Pixels that are already transparent are skipped.
//
// Because sampling ignores alpha and only alpha is written, applying the
// strategy twice gives the same result as applying it once.
type ReferenceSampleStrategy struct {
	Tolerance int
	Point     ReferencePoint
}

// NewReferenceSampleStrategy creates a strategy with the given tolerance.
// A tolerance <= 0 selects DefaultReferenceTolerance.
func NewReferenceSampleStrategy(tolerance int, point ReferencePoint) *ReferenceSampleStrategy {
	if tolerance <= 0 {
		tolerance = DefaultReferenceTolerance
	}
	return &ReferenceSampleStrategy{Tolerance: tolerance, Point: point}
}

// Name implements BackgroundStrategy.
func (s *ReferenceSampleStrategy) Name() string {
	if s.Point == ReferenceBorder {
		return StrategyReferenceBorder
	}
	return StrategyReference
}

// Isolate implements BackgroundStrategy.
func (s *ReferenceSampleStrategy) Isolate(_ context.Context, buf *PixelBuffer) (*PixelBuffer, error) {
	ref, err := s.reference(buf)
	if err != nil {
		return nil, err
	}

	tol := s.Tolerance
	parallel.Line(buf.Height, func(start, end int) {
		for y := start; y < end; y++ {
			row := buf.row(y)
			for i := 0; i < len(row); i += Channels {
				px := row[i : i+4 : i+4]
				if px[3] == 0 {
					continue
				}
				if absDiff(px[0], ref.R) < tol && absDiff(px[1], ref.G) < tol && absDiff(px[2], ref.B) < tol {
					px[3] = 0
				}
			}
		}
	})
	return buf, nil
}

func (s *ReferenceSampleStrategy) reference(buf *PixelBuffer) (RGBColor, error) {
	switch s.Point {
	case ReferenceTopLeft:
		return SampleColor(buf, 0, 0)
	case ReferenceBorder:
		return BorderDominantColor(buf), nil
	default:
		return RGBColor{}, fmt.Errorf("unknown reference point %d", s.Point)
	}
}

// LuminanceThresholdStrategy clears light pixels, assuming a light
// background. A pixel becomes transparent when (R+G+B)/3 >= Threshold.
type LuminanceThresholdStrategy struct {
	Threshold int
}

// NewLuminanceThresholdStrategy creates a strategy with the given threshold.
// A threshold <= 0 selects DefaultLuminanceThreshold.
func NewLuminanceThresholdStrategy(threshold int) *LuminanceThresholdStrategy {
	if threshold <= 0 {
		threshold = DefaultLuminanceThreshold
	}
	return &LuminanceThresholdStrategy{Threshold: threshold}
}

// Name implements BackgroundStrategy.
func (s *LuminanceThresholdStrategy) Name() string {
	return StrategyLuminance
}

// Isolate implements BackgroundStrategy.
func (s *LuminanceThresholdStrategy) Isolate(_ context.Context, buf *PixelBuffer) (*PixelBuffer, error) {
	// Compare sums to avoid fractional averages.
	limit := 3 * s.Threshold
	parallel.Line(buf.Height, func(start, end int) {
		for y := start; y < end; y++ {
			row := buf.row(y)
			for i := 0; i < len(row); i += Channels {
				px := row[i : i+4 : i+4]
				if int(px[0])+int(px[1])+int(px[2]) >= limit {
					px[3] = 0
				}
			}
		}
	})
	return buf, nil
}

func absDiff(a, b uint8) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}
