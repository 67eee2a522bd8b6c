package server

import (
	"github.com/ironsheep/image-edit-mcp/internal/form"
	edit "github.com/ironsheep/image-edit-mcp/internal/imaging"
)

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// editFieldProperties describes the edit fields shared by every tool that
// runs the pipeline.
func editFieldProperties() map[string]interface{} {
	return map[string]interface{}{
		form.FieldDoResize: map[string]interface{}{
			"type":        "boolean",
			"description": "Resize every image to width x height",
		},
		form.FieldWidth: map[string]interface{}{
			"type":        "integer",
			"description": "Target width in pixels (default 512)",
			"default":     form.DefaultSize,
		},
		form.FieldHeight: map[string]interface{}{
			"type":        "integer",
			"description": "Target height in pixels (default 512)",
			"default":     form.DefaultSize,
		},
		form.FieldKeepRatio: map[string]interface{}{
			"type":        "boolean",
			"description": "Preserve aspect ratio using fitMode. When false the image is stretched to fill.",
		},
		form.FieldFitMode: map[string]interface{}{
			"type":        "string",
			"enum":        []string{string(edit.FitContain), string(edit.FitCover), string(edit.FitFill)},
			"description": "contain pads with transparency, cover crops, fill stretches",
			"default":     string(edit.FitContain),
		},
		form.FieldMakeTransparent: map[string]interface{}{
			"type":        "boolean",
			"description": "Make the background transparent",
		},
		form.FieldBackgroundStrategy: map[string]interface{}{
			"type":        "string",
			"description": "Background strategy name (see image_edit_options). Empty uses the server default.",
		},
		form.FieldBrightness: slider("Brightness adjustment", -50, 50),
		form.FieldSaturation: slider("Saturation adjustment", -50, 50),
		form.FieldContrast:   slider("Contrast adjustment", -50, 50),
		form.FieldHue:        slider("Hue rotation in degrees", -180, 180),
		form.FieldLineStrength: slider(
			"Line weight. Positive darkens dark linework, negative lightens it.", -50, 50),
		form.FieldLineColor: map[string]interface{}{
			"type":        "string",
			"enum":        edit.LineColorPresetNames(),
			"description": "Recolor dark linework (original keeps its color)",
			"default":     form.DefaultLineColor,
		},
		form.FieldOverlayText: map[string]interface{}{
			"type":        "string",
			"description": "Caption drawn as a single centered line. Empty skips the caption.",
		},
		form.FieldTextSize: map[string]interface{}{
			"type":        "integer",
			"description": "Caption font size in pixels (default 32)",
			"default":     edit.DefaultFontSize,
		},
		form.FieldTextColor: map[string]interface{}{
			"type":        "string",
			"enum":        edit.TextColorNames(),
			"description": "Caption color",
			"default":     edit.DefaultTextColor,
		},
		form.FieldTextPosition: map[string]interface{}{
			"type":        "string",
			"enum":        []string{string(edit.TextTop), string(edit.TextBottom)},
			"description": "Caption placement",
			"default":     string(edit.TextBottom),
		},
	}
}

func slider(description string, lo, hi int) map[string]interface{} {
	return map[string]interface{}{
		"type":        "number",
		"description": description,
		"minimum":     lo,
		"maximum":     hi,
		"default":     0,
	}
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	batchProps := editFieldProperties()
	batchProps["paths"] = map[string]interface{}{
		"type":        "array",
		"items":       map[string]interface{}{"type": "string"},
		"description": "Absolute paths of the input images",
	}
	batchProps[form.FieldImages] = map[string]interface{}{
		"type":        "array",
		"items":       map[string]interface{}{"type": "string"},
		"description": "Inline input images as base64 or data URLs. Processed after paths.",
	}
	batchProps["output_dir"] = map[string]interface{}{
		"type":        "string",
		"description": "Optional directory to write PNG results to. When set, results carry file paths instead of data URLs.",
	}

	return []Tool{
		{
			Name:        "image_edit_batch",
			Description: "Edit a batch of images in one pass: resize, color grade, make the background transparent, restyle dark linework and draw a caption. Returns one PNG per input, in input order.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": batchProps,
			},
		},
		{
			Name:        "image_edit_options",
			Description: "List the fit modes, color presets, background strategies and slider ranges accepted by image_edit_batch.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
		{
			Name:        "image_info",
			Description: "Read an image file's format, dimensions, bit depth and alpha support without decoding its pixels.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the image file",
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_sample_color",
			Description: "Get the exact color value at a specific pixel coordinate. Useful for choosing a background strategy.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the image file",
					},
					"x": map[string]interface{}{
						"type":        "integer",
						"description": "X coordinate (0-based, from left)",
					},
					"y": map[string]interface{}{
						"type":        "integer",
						"description": "Y coordinate (0-based, from top)",
					},
				},
				"required": []string{"path", "x", "y"},
			},
		},
		{
			Name:        "image_overlay_svg",
			Description: "Render the caption layer alone as SVG markup, to preview placement before editing.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					form.FieldWidth:        map[string]interface{}{"type": "integer", "description": "Canvas width (default 512)"},
					form.FieldHeight:       map[string]interface{}{"type": "integer", "description": "Canvas height (default 512)"},
					form.FieldOverlayText:  batchProps[form.FieldOverlayText],
					form.FieldTextSize:     batchProps[form.FieldTextSize],
					form.FieldTextColor:    batchProps[form.FieldTextColor],
					form.FieldTextPosition: batchProps[form.FieldTextPosition],
				},
				"required": []string{form.FieldOverlayText},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
