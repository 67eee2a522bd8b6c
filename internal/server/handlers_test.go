package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ironsheep/image-edit-mcp/internal/pipeline"
)

// solidPNG encodes a width x height image filled with c.
func solidPNG(t *testing.T, width, height int, c color.Color) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}
	return buf.Bytes()
}

// createTestImageFile writes a solid PNG into a temp dir and returns its path.
func createTestImageFile(t *testing.T, width, height int, c color.Color) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "input.png")
	if err := os.WriteFile(path, solidPNG(t, width, height, c), 0o644); err != nil {
		t.Fatalf("failed to write image: %v", err)
	}
	return path
}

// callTool runs a tools/call request and returns the response.
func callTool(t *testing.T, s *Server, name string, args interface{}) *MCPResponse {
	t.Helper()
	paramsJSON, err := json.Marshal(map[string]interface{}{"name": name, "arguments": args})
	if err != nil {
		t.Fatalf("marshal params: %v", err)
	}
	resp := s.handleRequest(context.Background(), &MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/call",
		Params:  paramsJSON,
	})
	if resp == nil {
		t.Fatal("handleRequest returned nil")
	}
	return resp
}

// decodeResult unmarshals the text content of a successful tool response.
func decodeResult(t *testing.T, resp *MCPResponse, v interface{}) {
	t.Helper()
	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}
	content := resp.Result.(map[string]interface{})["content"].([]map[string]interface{})
	if err := json.Unmarshal([]byte(content[0]["text"].(string)), v); err != nil {
		t.Fatalf("failed to decode tool result: %v", err)
	}
}

func decodeDataURL(t *testing.T, url string) image.Image {
	t.Helper()
	const prefix = "data:image/png;base64,"
	if !strings.HasPrefix(url, prefix) {
		t.Fatalf("not a PNG data URL: %.40s", url)
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(url, prefix))
	if err != nil {
		t.Fatalf("bad base64: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("bad png: %v", err)
	}
	return img
}

func TestEditBatch_PathsAndInline(t *testing.T) {
	s := newTestServer(t, pipeline.Options{Workers: 2})
	white := createTestImageFile(t, 20, 20, color.NRGBA{255, 255, 255, 255})
	inline := base64.StdEncoding.EncodeToString(solidPNG(t, 8, 4, color.NRGBA{10, 20, 30, 255}))

	resp := callTool(t, s, "image_edit_batch", map[string]interface{}{
		"paths":           []string{white},
		"images":          []string{"data:image/png;base64," + inline},
		"makeTransparent": true,
	})

	var result EditBatchResult
	decodeResult(t, resp, &result)

	if result.Count != 2 || result.Failed != 0 || len(result.Images) != 2 {
		t.Fatalf("unexpected result: %+v", result)
	}

	first := decodeDataURL(t, result.Images[0].DataURL)
	if _, _, _, a := first.At(10, 10).RGBA(); a != 0 {
		t.Errorf("white image should be transparent, alpha=%d", a)
	}

	second := result.Images[1]
	if second.Width != 8 || second.Height != 4 {
		t.Errorf("second image: got %dx%d, want 8x4", second.Width, second.Height)
	}
}

func TestEditBatch_ResizeDefaultsToFill(t *testing.T) {
	s := newTestServer(t, pipeline.Options{})
	path := createTestImageFile(t, 40, 10, color.NRGBA{200, 0, 0, 255})

	resp := callTool(t, s, "image_edit_batch", map[string]interface{}{
		"paths":    []string{path},
		"doResize": true,
		"width":    16,
		"height":   16,
	})

	var result EditBatchResult
	decodeResult(t, resp, &result)
	img := decodeDataURL(t, result.Images[0].DataURL)
	if b := img.Bounds(); b.Dx() != 16 || b.Dy() != 16 {
		t.Errorf("got %v, want 16x16", b)
	}
	if _, _, _, a := img.At(8, 0).RGBA(); a != 0xffff {
		t.Errorf("fill should leave no transparent padding, alpha=%d", a)
	}
}

func TestEditBatch_OutputDir(t *testing.T) {
	s := newTestServer(t, pipeline.Options{})
	path := createTestImageFile(t, 6, 6, color.NRGBA{0, 0, 0, 255})
	outDir := filepath.Join(t.TempDir(), "out")

	resp := callTool(t, s, "image_edit_batch", map[string]interface{}{
		"paths":      []string{path, path},
		"output_dir": outDir,
	})

	var result EditBatchResult
	decodeResult(t, resp, &result)
	for i, img := range result.Images {
		if img.DataURL != "" {
			t.Errorf("image %d: data URL should be omitted when writing files", i)
		}
		if _, err := os.Stat(img.Path); err != nil {
			t.Errorf("image %d: %v", i, err)
		}
	}
	if result.Images[0].Path == result.Images[1].Path {
		t.Error("outputs must not overwrite each other")
	}
}

func TestEditBatch_IsolatedFailure(t *testing.T) {
	s := newTestServer(t, pipeline.Options{FailurePolicy: pipeline.IsolateFailures})
	good := base64.StdEncoding.EncodeToString(solidPNG(t, 2, 2, color.White))
	junk := base64.StdEncoding.EncodeToString([]byte("not an image"))

	resp := callTool(t, s, "image_edit_batch", map[string]interface{}{
		"images": []string{good, junk, good},
	})

	var result EditBatchResult
	decodeResult(t, resp, &result)
	if result.Failed != 1 || result.Images[1].Error == "" || result.Images[0].DataURL == "" || result.Images[2].DataURL == "" {
		t.Errorf("unexpected result: %+v", result)
	}
}

func TestEditBatch_Errors(t *testing.T) {
	s := newTestServer(t, pipeline.Options{})
	good := base64.StdEncoding.EncodeToString(solidPNG(t, 2, 2, color.White))
	junk := base64.StdEncoding.EncodeToString([]byte("not an image"))

	tests := []struct {
		name     string
		args     interface{}
		wantCode int
	}{
		{"no inputs", map[string]interface{}{}, -32602},
		{"missing file", map[string]interface{}{"paths": []string{"/nonexistent/a.png"}}, -32602},
		{"bad base64", map[string]interface{}{"images": []string{"%%%"}}, -32602},
		{"wrong type", map[string]interface{}{"images": "AQID"}, -32602},
		{"negative resize", map[string]interface{}{"images": []string{good}, "doResize": true, "width": -5}, -32602},
		{"unknown strategy", map[string]interface{}{"images": []string{good}, "makeTransparent": true, "backgroundStrategy": "magic"}, -32602},
		{"fail-fast decode", map[string]interface{}{"images": []string{good, junk, good}}, -32000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := callTool(t, s, "image_edit_batch", tt.args)
			if resp.Error == nil {
				t.Fatalf("expected error, got %+v", resp.Result)
			}
			if resp.Error.Code != tt.wantCode {
				t.Errorf("code: got %d, want %d (%v)", resp.Error.Code, tt.wantCode, resp.Error.Data)
			}
		})
	}
}

func TestEditOptions(t *testing.T) {
	s := newTestServer(t, pipeline.Options{})

	var opts EditOptions
	decodeResult(t, callTool(t, s, "image_edit_options", nil), &opts)

	if opts.DefaultStrategy != "reference" {
		t.Errorf("default strategy: got %s", opts.DefaultStrategy)
	}
	if opts.FailurePolicy != "fail-fast" {
		t.Errorf("failure policy: got %s", opts.FailurePolicy)
	}
	if len(opts.BackgroundStrategies) != 3 {
		t.Errorf("strategies: got %v", opts.BackgroundStrategies)
	}
	if opts.Ranges["hue_max"] != 180 || opts.Ranges["adjust_min"] != -50 {
		t.Errorf("ranges: got %v", opts.Ranges)
	}
	if len(opts.LineColors) == 0 || opts.LineColors[0] != "original" {
		t.Errorf("line colors: got %v", opts.LineColors)
	}
}

func TestImageInfo(t *testing.T) {
	s := newTestServer(t, pipeline.Options{})
	path := createTestImageFile(t, 30, 12, color.NRGBA{1, 2, 3, 255})

	var info struct {
		Path     string `json:"path"`
		Width    int    `json:"width"`
		Height   int    `json:"height"`
		Format   string `json:"format"`
		HasAlpha bool   `json:"has_alpha"`
	}
	decodeResult(t, callTool(t, s, "image_info", map[string]interface{}{"path": path}), &info)

	if info.Path != path || info.Width != 30 || info.Height != 12 || info.Format != "png" {
		t.Errorf("unexpected info: %+v", info)
	}

	if resp := callTool(t, s, "image_info", map[string]interface{}{"path": "/nonexistent.png"}); resp.Error == nil {
		t.Error("expected error for missing file")
	}
}

func TestSampleColor(t *testing.T) {
	s := newTestServer(t, pipeline.Options{})
	path := createTestImageFile(t, 4, 4, color.NRGBA{0x55, 0x33, 0x22, 0xff})

	var got SampleColorResult
	decodeResult(t, callTool(t, s, "image_sample_color", map[string]interface{}{"path": path, "x": 1, "y": 2}), &got)
	if got.Hex != "#553322" || got.RGBA.A != 255 {
		t.Errorf("unexpected sample: %+v", got)
	}

	resp := callTool(t, s, "image_sample_color", map[string]interface{}{"path": path, "x": 9, "y": 0})
	if resp.Error == nil || resp.Error.Code != -32602 {
		t.Errorf("out of bounds: unexpected response %+v", resp)
	}
}

func TestOverlaySVG(t *testing.T) {
	s := newTestServer(t, pipeline.Options{})

	var got OverlayResult
	decodeResult(t, callTool(t, s, "image_overlay_svg", map[string]interface{}{
		"overlayText":  `Tom & "Jerry"`,
		"textPosition": "top",
		"textColor":    "black",
	}), &got)

	if got.Width != 512 || got.Height != 512 {
		t.Errorf("default canvas: got %dx%d", got.Width, got.Height)
	}
	for _, want := range []string{"Tom &amp; &quot;Jerry&quot;", `fill="#000000"`, `y="102"`} {
		if !strings.Contains(got.SVG, want) {
			t.Errorf("svg missing %q: %s", want, got.SVG)
		}
	}

	resp := callTool(t, s, "image_overlay_svg", map[string]interface{}{"overlayText": "x", "width": 0})
	if resp.Error == nil {
		t.Error("expected error for zero width")
	}
}

func TestExecuteTool_Unknown(t *testing.T) {
	s := newTestServer(t, pipeline.Options{})
	resp := callTool(t, s, "image_ocr_full", map[string]interface{}{})
	if resp.Error == nil || resp.Error.Code != -32000 {
		t.Errorf("unexpected response %+v", resp)
	}
}
