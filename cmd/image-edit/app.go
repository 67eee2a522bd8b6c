package main

import (
	"github.com/rs/zerolog"

	"github.com/ironsheep/image-edit-mcp/internal/config"
	edit "github.com/ironsheep/image-edit-mcp/internal/imaging"
	"github.com/ironsheep/image-edit-mcp/internal/pipeline"
	"github.com/ironsheep/image-edit-mcp/internal/segment"
)

// app bundles the components every subcommand needs.
type app struct {
	codec    edit.Codec
	pipeline *pipeline.Pipeline
	closers  []func() error
}

// newApp wires the codec, the pipeline and the configured segmentation
// backend. Call Close when done.
func newApp(cfg *config.Config, logger zerolog.Logger) (*app, error) {
	level, err := edit.ParseCompressionLevel(cfg.Pipeline.PNGCompression)
	if err != nil {
		return nil, err
	}
	codec := edit.Codec{CompressionLevel: level, AutoOrient: cfg.Pipeline.AutoOrient}

	p, err := pipeline.New(codec, codec, cfg.PipelineOptions(), logger)
	if err != nil {
		return nil, err
	}
	a := &app{codec: codec, pipeline: p}

	seg := cfg.Segmentation
	switch seg.Backend {
	case config.SegmenterONNX:
		onnx, err := segment.NewONNXSegmenter(segment.ONNXConfig{
			ModelPath:         seg.ModelPath,
			SharedLibraryPath: seg.SharedLibraryPath,
			InputSize:         seg.InputSize,
			Threads:           seg.Threads,
		}, codec)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, onnx.Close)
		p.RegisterStrategy(segment.NewStrategy(onnx, codec, logger))
	case config.SegmenterHTTP:
		p.RegisterStrategy(segment.NewStrategy(segment.NewHTTPSegmenter(seg.Endpoint, seg.Timeout), codec, logger))
	}

	if err := p.SetDefaultStrategy(cfg.Pipeline.DefaultStrategy); err != nil {
		a.Close()
		return nil, err
	}

	logger.Debug().
		Bool("segmentation", cfg.SegmentationEnabled()).
		Strs("strategies", p.Strategies()).
		Str("default_strategy", p.DefaultStrategy()).
		Str("failure_policy", string(p.FailurePolicy())).
		Msg("pipeline ready")
	return a, nil
}

// Close releases the segmentation backend.
func (a *app) Close() {
	for _, c := range a.closers {
		c()
	}
}
