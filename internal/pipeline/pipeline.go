// Package pipeline runs batches of images through the editing stages.
//
// For every image the stages run in a fixed order:
//
//	decode -> resize -> grade -> isolate background -> stylize lines -> composite text -> encode
//
// Optional stages are dropped from the plan when their parameters are
// inactive. The plan is compiled once per batch and shared by all images.
//
// Images are independent, so a batch runs on a bounded worker pool. Output
// order always matches input order.
package pipeline

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ironsheep/image-edit-mcp/internal/domain"
	edit "github.com/ironsheep/image-edit-mcp/internal/imaging"
)

// FailurePolicy decides what a per-image decode or encode failure does to
// the batch.
type FailurePolicy string

const (
	// FailFast aborts the batch on the first failing image. No outputs are
	// returned.
	FailFast FailurePolicy = "fail-fast"

	// IsolateFailures keeps going and marks failing images in the result.
	IsolateFailures FailurePolicy = "isolate"
)

// ParseFailurePolicy parses "fail-fast" or "isolate".
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch p := FailurePolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case FailFast, IsolateFailures:
		return p, nil
	case "":
		return FailFast, nil
	default:
		return "", fmt.Errorf("unknown failure policy %q (want fail-fast or isolate)", s)
	}
}

// Decoder turns encoded bytes into a PixelBuffer.
type Decoder interface {
	Decode(data []byte) (*edit.PixelBuffer, error)
}

// Encoder turns a PixelBuffer into lossless encoded bytes.
type Encoder interface {
	Encode(buf *edit.PixelBuffer) ([]byte, error)
}

// Options tune a Pipeline. Zero values select defaults.
type Options struct {
	// Workers bounds concurrent images. Defaults to runtime.NumCPU().
	Workers int

	FailurePolicy FailurePolicy

	// Filter names the resampling kernel, e.g. "lanczos" or "linear".
	Filter string

	// DefaultStrategy is used when a batch enables background isolation
	// without naming a strategy. Defaults to "reference".
	DefaultStrategy string

	ReferenceTolerance int
	LuminanceThreshold int
	LineThreshold      int
}

// Pipeline is the batch orchestrator. It is safe for concurrent use once
// all strategies are registered.
type Pipeline struct {
	decoder    Decoder
	encoder    Encoder
	text       *edit.TextRenderer
	filter     imaging.ResampleFilter
	strategies map[string]edit.BackgroundStrategy
	opts       Options
	logger     zerolog.Logger
}

// New creates a pipeline with the built-in threshold strategies registered.
func New(decoder Decoder, encoder Encoder, opts Options, logger zerolog.Logger) (*Pipeline, error) {
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	if opts.Filter == "" {
		opts.Filter = edit.DefaultResampleFilter
	}
	if opts.DefaultStrategy == "" {
		opts.DefaultStrategy = edit.StrategyReference
	}
	if opts.LineThreshold <= 0 {
		opts.LineThreshold = edit.DefaultLineThreshold
	}
	policy, err := ParseFailurePolicy(string(opts.FailurePolicy))
	if err != nil {
		return nil, domain.ConfigurationError("invalid pipeline options", err)
	}
	opts.FailurePolicy = policy
	filter, err := edit.ResampleFilterByName(opts.Filter)
	if err != nil {
		return nil, domain.ConfigurationError("invalid pipeline options", err)
	}

	text, err := edit.NewTextRenderer()
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		decoder:    decoder,
		encoder:    encoder,
		text:       text,
		filter:     filter,
		strategies: make(map[string]edit.BackgroundStrategy),
		opts:       opts,
		logger:     logger.With().Str("component", "pipeline").Logger(),
	}
	p.RegisterStrategy(edit.NewReferenceSampleStrategy(opts.ReferenceTolerance, edit.ReferenceTopLeft))
	p.RegisterStrategy(edit.NewReferenceSampleStrategy(opts.ReferenceTolerance, edit.ReferenceBorder))
	p.RegisterStrategy(edit.NewLuminanceThresholdStrategy(opts.LuminanceThreshold))
	return p, nil
}

// RegisterStrategy adds or replaces a background strategy under its name.
// Call it before the pipeline is shared between goroutines.
func (p *Pipeline) RegisterStrategy(s edit.BackgroundStrategy) {
	p.strategies[s.Name()] = s
}

// Strategies lists the registered background strategy names, sorted.
func (p *Pipeline) Strategies() []string {
	names := make([]string, 0, len(p.strategies))
	for name := range p.strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultStrategy returns the strategy used when a batch names none.
func (p *Pipeline) DefaultStrategy() string {
	return p.opts.DefaultStrategy
}

// SetDefaultStrategy selects the strategy used when a batch names none. The
// name must already be registered; the empty string selects
// imaging.StrategyReference. Call it before the pipeline is shared between
// goroutines.
func (p *Pipeline) SetDefaultStrategy(name string) error {
	if name == "" {
		name = edit.StrategyReference
	}
	if _, ok := p.strategies[name]; !ok {
		return domain.ConfigurationError(
			fmt.Sprintf("unknown default background strategy %q (available: %v)", name, p.Strategies()), nil)
	}
	p.opts.DefaultStrategy = name
	return nil
}

// FailurePolicy returns the configured failure policy.
func (p *Pipeline) FailurePolicy() FailurePolicy {
	return p.opts.FailurePolicy
}

// Validate checks params against the ranges and the registered strategies.
func (p *Pipeline) Validate(params EditParameters) error {
	_, err := p.compile(params)
	return err
}

// Run processes every input and returns index-aligned results.
//
// Parameters are validated before any image is touched; a
// domain.ConfigurationError aborts the batch. Decode and encode failures
// follow the failure policy: FailFast returns the error and no outputs,
// IsolateFailures records the error on that image's Output. Any other
// failure aborts the batch under both policies. Segmentation failures never
// surface here.
func (p *Pipeline) Run(ctx context.Context, inputs [][]byte, params EditParameters) (*BatchResult, error) {
	stages, err := p.compile(params)
	if err != nil {
		return nil, err
	}
	if len(inputs) == 0 {
		return nil, domain.ConfigurationError("no input images", nil)
	}

	start := time.Now()
	p.logger.Info().
		Int("images", len(inputs)).
		Int("workers", p.opts.Workers).
		Str("policy", string(p.opts.FailurePolicy)).
		Strs("stages", stageNames(stages)).
		Msg("batch started")

	outputs := make([]Output, len(inputs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Workers)

	for i, data := range inputs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			out, err := p.processOne(gctx, i, data, stages)
			if err == nil {
				outputs[i] = *out
				return nil
			}

			if p.opts.FailurePolicy == IsolateFailures && isolatable(err) {
				p.logger.Warn().Err(err).Int("index", i).Msg("image failed, continuing batch")
				outputs[i] = Output{Index: i, Err: err}
				return nil
			}
			return fmt.Errorf("image %d: %w", i, err)
		})
	}

	if err := g.Wait(); err != nil {
		p.logger.Error().Err(err).Dur("elapsed", time.Since(start)).Msg("batch failed")
		return nil, err
	}

	result := &BatchResult{Images: outputs}
	p.logger.Info().
		Int("images", len(outputs)).
		Int("failed", result.Failed()).
		Dur("elapsed", time.Since(start)).
		Msg("batch finished")
	return result, nil
}

// Process runs the stage plan for params on a single decoded buffer. It
// takes ownership of buf.
func (p *Pipeline) Process(ctx context.Context, buf *edit.PixelBuffer, params EditParameters) (*edit.PixelBuffer, error) {
	stages, err := p.compile(params)
	if err != nil {
		return nil, err
	}
	return p.apply(ctx, -1, buf, stages)
}

func (p *Pipeline) processOne(ctx context.Context, index int, data []byte, stages []stage) (*Output, error) {
	buf, err := p.decoder.Decode(data)
	if err != nil {
		return nil, ensureKind(err, domain.ErrorTypeDecode, "failed to decode image")
	}

	buf, err = p.apply(ctx, index, buf, stages)
	if err != nil {
		return nil, err
	}

	encoded, err := p.encoder.Encode(buf)
	if err != nil {
		return nil, ensureKind(err, domain.ErrorTypeEncode, "failed to encode image")
	}

	return &Output{
		Index:  index,
		Data:   encoded,
		Width:  buf.Width,
		Height: buf.Height,
	}, nil
}

func (p *Pipeline) apply(ctx context.Context, index int, buf *edit.PixelBuffer, stages []stage) (*edit.PixelBuffer, error) {
	if err := buf.Validate(); err != nil {
		return nil, domain.DecodeError("decoded image is invalid", err)
	}

	for _, s := range stages {
		began := time.Now()
		out, err := s.apply(ctx, buf)
		if err != nil {
			return nil, domain.ConfigurationError(fmt.Sprintf("%s stage failed", s.name), err)
		}
		if err := out.Validate(); err != nil {
			return nil, domain.ConfigurationError(fmt.Sprintf("%s stage produced an invalid buffer", s.name), err)
		}
		if !s.resizes && (out.Width != buf.Width || out.Height != buf.Height) {
			return nil, domain.ConfigurationError(fmt.Sprintf("%s stage changed dimensions", s.name), nil)
		}
		buf = out

		p.logger.Debug().
			Int("index", index).
			Str("stage", s.name).
			Dur("elapsed", time.Since(began)).
			Msg("stage complete")
	}
	return buf, nil
}

// isolatable reports whether err may be confined to a single image.
func isolatable(err error) bool {
	return domain.IsKind(err, domain.ErrorTypeDecode) || domain.IsKind(err, domain.ErrorTypeEncode)
}

// ensureKind classifies errors from collaborators that do not return
// domain errors themselves.
func ensureKind(err error, kind domain.ErrorType, message string) error {
	if domain.IsKind(err, kind) {
		return err
	}
	return domain.NewError(kind, message, err)
}
