package pipeline

import (
	"context"
	"fmt"

	"github.com/ironsheep/image-edit-mcp/internal/domain"
	edit "github.com/ironsheep/image-edit-mcp/internal/imaging"
)

// Stage names, in plan order.
const (
	StageResize     = "resize"
	StageGrade      = "grade"
	StageBackground = "background"
	StageLines      = "lines"
	StageText       = "text"
)

// stage is one optional transform in the per-image plan. apply owns its
// input and returns either the same buffer or a replacement.
type stage struct {
	name    string
	resizes bool
	apply   func(ctx context.Context, buf *edit.PixelBuffer) (*edit.PixelBuffer, error)
}

func stageNames(stages []stage) []string {
	names := make([]string, len(stages))
	for i, s := range stages {
		names[i] = s.name
	}
	return names
}

// compile validates params and builds the ordered list of active stages.
func (p *Pipeline) compile(params EditParameters) ([]stage, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	var stages []stage

	if r := params.Resize; r.Enabled {
		fit := r.EffectiveFit()
		stages = append(stages, stage{
			name:    StageResize,
			resizes: true,
			apply: func(_ context.Context, buf *edit.PixelBuffer) (*edit.PixelBuffer, error) {
				return edit.Resize(buf, r.Width, r.Height, fit, p.filter)
			},
		})
	}

	if c := params.Color; !c.IsIdentity() {
		stages = append(stages, stage{
			name: StageGrade,
			apply: func(_ context.Context, buf *edit.PixelBuffer) (*edit.PixelBuffer, error) {
				return edit.Grade(buf, c), nil
			},
		})
	}

	if params.Background.Enabled {
		name := params.Background.Strategy
		if name == "" {
			name = p.opts.DefaultStrategy
		}
		strategy, ok := p.strategies[name]
		if !ok {
			return nil, domain.ConfigurationError(
				fmt.Sprintf("unknown background strategy %q (available: %v)", name, p.Strategies()), nil)
		}
		stages = append(stages, stage{
			name:  StageBackground,
			apply: strategy.Isolate,
		})
	}

	if l := params.Line; l.Triggered() {
		threshold := p.opts.LineThreshold
		stages = append(stages, stage{
			name: StageLines,
			apply: func(_ context.Context, buf *edit.PixelBuffer) (*edit.PixelBuffer, error) {
				return edit.StylizeLines(buf, l, threshold), nil
			},
		})
	}

	if t := params.Text; t.Triggered() {
		stages = append(stages, stage{
			name: StageText,
			apply: func(_ context.Context, buf *edit.PixelBuffer) (*edit.PixelBuffer, error) {
				return p.text.Composite(buf, t)
			},
		})
	}

	return stages, nil
}
