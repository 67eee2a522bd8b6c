package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ironsheep/image-edit-mcp/internal/domain"
	"github.com/ironsheep/image-edit-mcp/internal/form"
	edit "github.com/ironsheep/image-edit-mcp/internal/imaging"
	"github.com/ironsheep/image-edit-mcp/internal/pipeline"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "image_edit_batch").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// errInvalidArguments marks argument errors so they map to -32602.
var errInvalidArguments = errors.New("invalid arguments")

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Argument and configuration errors return code -32602; every other tool
// failure returns -32000.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	if err != nil {
		s.logger.Warn().Err(err).Str("tool", params.Name).Msg("tool call failed")
		if errors.Is(err, errInvalidArguments) || domain.IsKind(err, domain.ErrorTypeConfiguration) {
			return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
		}
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}

	switch name {
	case "image_edit_batch":
		return s.handleEditBatch(ctx, args)
	case "image_edit_options":
		return s.handleEditOptions()
	case "image_info":
		return s.handleImageInfo(args)
	case "image_sample_color":
		return s.handleSampleColor(args)
	case "image_overlay_svg":
		return s.handleOverlaySVG(args)
	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// On marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

func unmarshalArgs(args json.RawMessage, v interface{}) error {
	if err := json.Unmarshal(args, v); err != nil {
		return fmt.Errorf("%w: %v", errInvalidArguments, err)
	}
	return nil
}

// === Batch Editing ===

type editBatchArgs struct {
	Paths     []string `json:"paths"`
	Images    []string `json:"images"`
	OutputDir string   `json:"output_dir"`
	form.Fields
}

// EditedImage is one entry of an image_edit_batch result.
type EditedImage struct {
	Index   int    `json:"index"`
	Width   int    `json:"width,omitempty"`
	Height  int    `json:"height,omitempty"`
	DataURL string `json:"data_url,omitempty"`
	Path    string `json:"path,omitempty"`
	Error   string `json:"error,omitempty"`
}

// EditBatchResult is the image_edit_batch response.
type EditBatchResult struct {
	Images []EditedImage `json:"images"`
	Count  int           `json:"count"`
	Failed int           `json:"failed"`
}

func (s *Server) handleEditBatch(ctx context.Context, args json.RawMessage) (interface{}, error) {
	a := editBatchArgs{Fields: form.Defaults()}
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}

	inputs := make([][]byte, 0, len(a.Paths)+len(a.Images))
	for _, path := range a.Paths {
		data, err := edit.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errInvalidArguments, err)
		}
		inputs = append(inputs, data)
	}
	for i, inline := range a.Images {
		data, err := form.DecodeInline(inline)
		if err != nil {
			return nil, fmt.Errorf("%w: images[%d]: %v", errInvalidArguments, i, err)
		}
		inputs = append(inputs, data)
	}
	if len(inputs) == 0 {
		return nil, fmt.Errorf("%w: provide at least one entry in paths or images", errInvalidArguments)
	}

	batch, err := s.pipeline.Run(ctx, inputs, a.Params())
	if err != nil {
		return nil, err
	}

	if a.OutputDir != "" {
		if err := os.MkdirAll(a.OutputDir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	result := &EditBatchResult{
		Images: make([]EditedImage, len(batch.Images)),
		Count:  len(batch.Images),
		Failed: batch.Failed(),
	}
	for i, out := range batch.Images {
		entry := EditedImage{Index: i}
		switch {
		case !out.OK():
			entry.Error = out.Err.Error()
		case a.OutputDir != "":
			path := filepath.Join(a.OutputDir, fmt.Sprintf("edited-%03d.png", i))
			if err := os.WriteFile(path, out.Data, 0o644); err != nil {
				return nil, fmt.Errorf("failed to write %s: %w", path, err)
			}
			entry.Path, entry.Width, entry.Height = path, out.Width, out.Height
		default:
			entry.DataURL, entry.Width, entry.Height = out.DataURL(), out.Width, out.Height
		}
		result.Images[i] = entry
	}
	return result, nil
}

// EditOptions lists what image_edit_batch accepts.
type EditOptions struct {
	FitModes             []string       `json:"fit_modes"`
	LineColors           []string       `json:"line_colors"`
	TextColors           []string       `json:"text_colors"`
	TextPositions        []string       `json:"text_positions"`
	BackgroundStrategies []string       `json:"background_strategies"`
	DefaultStrategy      string         `json:"default_strategy"`
	FailurePolicy        string         `json:"failure_policy"`
	Ranges               map[string]int `json:"ranges"`
}

func (s *Server) handleEditOptions() (interface{}, error) {
	return &EditOptions{
		FitModes:             []string{string(edit.FitContain), string(edit.FitCover), string(edit.FitFill)},
		LineColors:           edit.LineColorPresetNames(),
		TextColors:           edit.TextColorNames(),
		TextPositions:        []string{string(edit.TextTop), string(edit.TextBottom)},
		BackgroundStrategies: s.pipeline.Strategies(),
		DefaultStrategy:      s.pipeline.DefaultStrategy(),
		FailurePolicy:        string(s.pipeline.FailurePolicy()),
		Ranges: map[string]int{
			"adjust_min":    pipeline.MinAdjust,
			"adjust_max":    pipeline.MaxAdjust,
			"hue_min":       pipeline.MinHue,
			"hue_max":       pipeline.MaxHue,
			"max_dimension": pipeline.MaxDimension,
			"max_font_size": pipeline.MaxFontSize,
		},
	}, nil
}

// === Inspection ===

type pathArgs struct {
	Path string `json:"path"`
}

// ImageInfoResult extends the header metadata with the file path.
type ImageInfoResult struct {
	Path string `json:"path"`
	*edit.ImageInfo
}

func (s *Server) handleImageInfo(args json.RawMessage) (interface{}, error) {
	var a pathArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	data, err := edit.ReadFile(a.Path)
	if err != nil {
		return nil, err
	}
	info, err := edit.Inspect(data)
	if err != nil {
		return nil, err
	}
	if info.Format == "" {
		info.Format = edit.FormatFromFilename(a.Path)
	}
	return &ImageInfoResult{Path: a.Path, ImageInfo: info}, nil
}

type sampleColorArgs struct {
	Path string `json:"path"`
	X    int    `json:"x"`
	Y    int    `json:"y"`
}

// SampleColorResult is the image_sample_color response.
type SampleColorResult struct {
	X    int            `json:"x"`
	Y    int            `json:"y"`
	RGBA edit.RGBAColor `json:"rgba"`
	Hex  string         `json:"hex"`
}

func (s *Server) handleSampleColor(args json.RawMessage) (interface{}, error) {
	var a sampleColorArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	data, err := edit.ReadFile(a.Path)
	if err != nil {
		return nil, err
	}
	buf, err := s.codec.Decode(data)
	if err != nil {
		return nil, err
	}
	rgb, err := edit.SampleColor(buf, a.X, a.Y)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errInvalidArguments, err)
	}
	return &SampleColorResult{
		X:    a.X,
		Y:    a.Y,
		RGBA: buf.Pixel(a.X, a.Y),
		Hex:  rgb.Hex(),
	}, nil
}

// === Caption Preview ===

type overlayArgs struct {
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	OverlayText  string `json:"overlayText"`
	TextSize     int    `json:"textSize"`
	TextColor    string `json:"textColor"`
	TextPosition string `json:"textPosition"`
}

// OverlayResult is the image_overlay_svg response.
type OverlayResult struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	SVG    string `json:"svg"`
}

func (s *Server) handleOverlaySVG(args json.RawMessage) (interface{}, error) {
	d := form.Defaults()
	a := overlayArgs{
		Width:        d.Width,
		Height:       d.Height,
		TextSize:     d.TextSize,
		TextColor:    d.TextColor,
		TextPosition: d.TextPosition,
	}
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Width <= 0 || a.Height <= 0 || a.Width > pipeline.MaxDimension || a.Height > pipeline.MaxDimension {
		return nil, fmt.Errorf("%w: canvas %dx%d out of range", errInvalidArguments, a.Width, a.Height)
	}

	f := form.Defaults()
	f.OverlayText, f.TextSize, f.TextColor, f.TextPosition = a.OverlayText, a.TextSize, a.TextColor, a.TextPosition
	spec := f.Params().Text

	return &OverlayResult{
		Width:  a.Width,
		Height: a.Height,
		SVG:    edit.OverlaySVG(a.Width, a.Height, spec),
	}, nil
}
