package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/image-edit-mcp/internal/domain"
	edit "github.com/ironsheep/image-edit-mcp/internal/imaging"
	"github.com/ironsheep/image-edit-mcp/internal/segment"
)

// countingCodec wraps the PNG codec and counts decode calls.
type countingCodec struct {
	edit.Codec
	decodes atomic.Int32
}

func (c *countingCodec) Decode(data []byte) (*edit.PixelBuffer, error) {
	c.decodes.Add(1)
	return c.Codec.Decode(data)
}

// failingEncoder fails for buffers of a given width.
type failingEncoder struct {
	edit.Codec
	width int
}

func (f failingEncoder) Encode(buf *edit.PixelBuffer) ([]byte, error) {
	if buf.Width == f.width {
		return nil, errors.New("disk full")
	}
	return f.Codec.Encode(buf)
}

func newPipeline(t *testing.T, opts Options) (*Pipeline, *countingCodec) {
	t.Helper()
	codec := &countingCodec{}
	p, err := New(codec, codec, opts, zerolog.Nop())
	require.NoError(t, err)
	return p, codec
}

func solid(t *testing.T, width, height int, c edit.RGBAColor) *edit.PixelBuffer {
	t.Helper()
	buf, err := edit.NewPixelBuffer(width, height)
	require.NoError(t, err)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			buf.SetPixel(x, y, c)
		}
	}
	return buf
}

func encode(t *testing.T, buf *edit.PixelBuffer) []byte {
	t.Helper()
	data, err := edit.Codec{}.Encode(buf)
	require.NoError(t, err)
	return data
}

func decode(t *testing.T, data []byte) *edit.PixelBuffer {
	t.Helper()
	buf, err := edit.Codec{}.Decode(data)
	require.NoError(t, err)
	return buf
}

func TestRun_WhiteImageBecomesTransparent(t *testing.T) {
	p, _ := newPipeline(t, Options{})
	input := encode(t, solid(t, 100, 100, edit.RGBAColor{R: 255, G: 255, B: 255, A: 255}))

	result, err := p.Run(context.Background(), [][]byte{input}, EditParameters{
		Background: BackgroundSpec{Enabled: true, Strategy: edit.StrategyReference},
	})
	require.NoError(t, err)
	require.Len(t, result.Images, 1)

	out := decode(t, result.Images[0].Data)
	for y := 0; y < 100; y++ {
		for x := 0; x < 100; x++ {
			require.Equal(t, edit.RGBAColor{R: 255, G: 255, B: 255, A: 0}, out.Pixel(x, y), "pixel (%d,%d)", x, y)
		}
	}
}

func TestRun_LineStrengthDarkensOnlyLinePixel(t *testing.T) {
	p, _ := newPipeline(t, Options{})
	src := solid(t, 10, 10, edit.RGBAColor{R: 200, G: 200, B: 200, A: 255})
	src.SetPixel(3, 7, edit.RGBAColor{R: 10, G: 10, B: 10, A: 255})

	result, err := p.Run(context.Background(), [][]byte{encode(t, src)}, EditParameters{
		Line: edit.LineSpec{Strength: 50},
	})
	require.NoError(t, err)

	out := decode(t, result.Images[0].Data)
	dark := out.Pixel(3, 7)
	assert.Less(t, dark.R, uint8(10))
	assert.Less(t, dark.G, uint8(10))
	assert.Less(t, dark.B, uint8(10))
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			if x == 3 && y == 7 {
				continue
			}
			require.Equal(t, src.Pixel(x, y), out.Pixel(x, y), "pixel (%d,%d)", x, y)
		}
	}
}

func TestRun_FailFastOnDecodeError(t *testing.T) {
	p, _ := newPipeline(t, Options{Workers: 1})
	good := encode(t, solid(t, 4, 4, edit.RGBAColor{A: 255}))

	result, err := p.Run(context.Background(), [][]byte{good, []byte("corrupt"), good}, EditParameters{})
	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, domain.IsKind(err, domain.ErrorTypeDecode))
	assert.Contains(t, err.Error(), "image 1")
}

func TestRun_IsolatePolicyReturnsPartialResults(t *testing.T) {
	p, _ := newPipeline(t, Options{Workers: 2, FailurePolicy: IsolateFailures})
	good := encode(t, solid(t, 4, 4, edit.RGBAColor{A: 255}))

	result, err := p.Run(context.Background(), [][]byte{good, []byte("corrupt"), good}, EditParameters{})
	require.NoError(t, err)
	require.Len(t, result.Images, 3)

	assert.True(t, result.Images[0].OK())
	assert.False(t, result.Images[1].OK())
	assert.True(t, domain.IsKind(result.Images[1].Err, domain.ErrorTypeDecode))
	assert.True(t, result.Images[2].OK())
	assert.Equal(t, 1, result.Failed())

	urls := result.DataURLs()
	assert.True(t, strings.HasPrefix(urls[0], "data:image/png;base64,"))
	assert.Empty(t, urls[1])
}

func TestRun_IsolatePolicyEncodeError(t *testing.T) {
	p, err := New(edit.Codec{}, failingEncoder{width: 5}, Options{FailurePolicy: IsolateFailures}, zerolog.Nop())
	require.NoError(t, err)

	inputs := [][]byte{
		encode(t, solid(t, 4, 4, edit.RGBAColor{A: 255})),
		encode(t, solid(t, 5, 5, edit.RGBAColor{A: 255})),
	}
	result, err := p.Run(context.Background(), inputs, EditParameters{})
	require.NoError(t, err)
	assert.True(t, result.Images[0].OK())
	assert.True(t, domain.IsKind(result.Images[1].Err, domain.ErrorTypeEncode))
}

func TestRun_PreservesInputOrder(t *testing.T) {
	p, _ := newPipeline(t, Options{Workers: 4})

	var inputs [][]byte
	for i := 1; i <= 12; i++ {
		inputs = append(inputs, encode(t, solid(t, i*3, 2, edit.RGBAColor{R: uint8(i), A: 255})))
	}

	result, err := p.Run(context.Background(), inputs, EditParameters{Color: edit.ColorSpec{Contrast: 10}})
	require.NoError(t, err)
	require.Len(t, result.Images, 12)
	for i, img := range result.Images {
		assert.Equal(t, i, img.Index)
		assert.Equal(t, (i+1)*3, img.Width)
	}
}

func TestRun_ResizeModes(t *testing.T) {
	tests := []struct {
		name   string
		spec   edit.ResizeSpec
		corner uint8
	}{
		{"fill when ratio not kept", edit.ResizeSpec{Enabled: true, Width: 30, Height: 30, Fit: edit.FitContain}, 255},
		{"contain pads transparent", edit.ResizeSpec{Enabled: true, Width: 30, Height: 30, KeepAspectRatio: true, Fit: edit.FitContain}, 0},
		{"cover fills box", edit.ResizeSpec{Enabled: true, Width: 30, Height: 30, KeepAspectRatio: true, Fit: edit.FitCover}, 255},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, _ := newPipeline(t, Options{})
			input := encode(t, solid(t, 60, 20, edit.RGBAColor{R: 90, G: 120, B: 150, A: 255}))

			result, err := p.Run(context.Background(), [][]byte{input}, EditParameters{Resize: tt.spec})
			require.NoError(t, err)

			out := decode(t, result.Images[0].Data)
			assert.Equal(t, 30, out.Width)
			assert.Equal(t, 30, out.Height)
			assert.Equal(t, tt.corner, out.Pixel(0, 0).A)
		})
	}
}

func TestRun_ConfigurationErrorBeforeDecoding(t *testing.T) {
	tests := []struct {
		name   string
		params EditParameters
	}{
		{"zero resize target", EditParameters{Resize: edit.ResizeSpec{Enabled: true, Width: 0, Height: 10}}},
		{"unknown strategy", EditParameters{Background: BackgroundSpec{Enabled: true, Strategy: "magic"}}},
		{"brightness out of range", EditParameters{Color: edit.ColorSpec{Brightness: 51}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, codec := newPipeline(t, Options{})
			_, err := p.Run(context.Background(), [][]byte{[]byte("whatever")}, tt.params)
			require.Error(t, err)
			assert.True(t, domain.IsKind(err, domain.ErrorTypeConfiguration))
			assert.Equal(t, int32(0), codec.decodes.Load())
		})
	}
}

func TestRun_NoInputs(t *testing.T) {
	p, _ := newPipeline(t, Options{})
	_, err := p.Run(context.Background(), nil, EditParameters{})
	assert.True(t, domain.IsKind(err, domain.ErrorTypeConfiguration))
}

func TestRun_CancelledContext(t *testing.T) {
	p, _ := newPipeline(t, Options{Workers: 1})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	input := encode(t, solid(t, 2, 2, edit.RGBAColor{A: 255}))
	_, err := p.Run(ctx, [][]byte{input, input}, EditParameters{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_SegmentationFailureFallsBack(t *testing.T) {
	p, _ := newPipeline(t, Options{})
	broken := segment.SegmenterFunc(func(context.Context, []byte) ([]byte, error) {
		return nil, errors.New("model offline")
	})
	p.RegisterStrategy(segment.NewStrategy(broken, edit.Codec{}, zerolog.Nop()))

	src := solid(t, 6, 6, edit.RGBAColor{R: 40, G: 80, B: 120, A: 255})
	result, err := p.Run(context.Background(), [][]byte{encode(t, src)}, EditParameters{
		Background: BackgroundSpec{Enabled: true, Strategy: edit.StrategySegmentation},
	})
	require.NoError(t, err)
	assert.Equal(t, src.Samples, decode(t, result.Images[0].Data).Samples)
}

func TestRun_DefaultStrategy(t *testing.T) {
	p, _ := newPipeline(t, Options{DefaultStrategy: edit.StrategyLuminance})
	src := solid(t, 2, 1, edit.RGBAColor{R: 250, G: 250, B: 250, A: 255})
	src.SetPixel(0, 0, edit.RGBAColor{R: 10, G: 10, B: 10, A: 255})

	result, err := p.Run(context.Background(), [][]byte{encode(t, src)}, EditParameters{
		Background: BackgroundSpec{Enabled: true},
	})
	require.NoError(t, err)

	out := decode(t, result.Images[0].Data)
	assert.Equal(t, uint8(255), out.Pixel(0, 0).A)
	assert.Equal(t, uint8(0), out.Pixel(1, 0).A)
}

func TestProcess_IdentityParameters(t *testing.T) {
	p, _ := newPipeline(t, Options{})
	buf := solid(t, 5, 5, edit.RGBAColor{R: 1, G: 2, B: 3, A: 4})
	before := append([]byte(nil), buf.Samples...)

	out, err := p.Process(context.Background(), buf, EditParameters{Text: edit.TextSpec{Content: "   ", FontSize: 32}})
	require.NoError(t, err)
	assert.Equal(t, before, out.Samples)
}

func TestCompile_StageOrder(t *testing.T) {
	p, _ := newPipeline(t, Options{})

	tests := []struct {
		name   string
		params EditParameters
		want   []string
	}{
		{"nothing active", EditParameters{}, []string{}},
		{"all stages", EditParameters{
			Resize:     edit.ResizeSpec{Enabled: true, Width: 8, Height: 8},
			Color:      edit.ColorSpec{Hue: 10},
			Background: BackgroundSpec{Enabled: true},
			Line:       edit.LineSpec{Color: edit.LineColorPreset("brown")},
			Text:       edit.TextSpec{Content: "hi", FontSize: 12, Position: edit.TextTop},
		}, []string{StageResize, StageGrade, StageBackground, StageLines, StageText}},
		{"line and text only", EditParameters{
			Line: edit.LineSpec{Strength: -5},
			Text: edit.TextSpec{Content: "x", FontSize: 12, Position: edit.TextBottom},
		}, []string{StageLines, StageText}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stages, err := p.compile(tt.params)
			require.NoError(t, err)
			assert.Equal(t, tt.want, stageNames(stages))
		})
	}
}

func TestNew_InvalidOptions(t *testing.T) {
	_, err := New(edit.Codec{}, edit.Codec{}, Options{FailurePolicy: "sometimes"}, zerolog.Nop())
	assert.True(t, domain.IsKind(err, domain.ErrorTypeConfiguration))

	_, err = New(edit.Codec{}, edit.Codec{}, Options{Filter: "sinc"}, zerolog.Nop())
	assert.True(t, domain.IsKind(err, domain.ErrorTypeConfiguration))
}

func TestPipeline_Strategies(t *testing.T) {
	p, _ := newPipeline(t, Options{})
	assert.Equal(t, []string{edit.StrategyLuminance, edit.StrategyReference, edit.StrategyReferenceBorder}, p.Strategies())
	assert.Equal(t, edit.StrategyReference, p.DefaultStrategy())
	assert.Equal(t, FailFast, p.FailurePolicy())
}

func TestPipeline_SetDefaultStrategy(t *testing.T) {
	p, _ := newPipeline(t, Options{})

	err := p.SetDefaultStrategy(edit.StrategySegmentation)
	assert.True(t, domain.IsKind(err, domain.ErrorTypeConfiguration), "segmentation is not registered yet: %v", err)
	assert.Equal(t, edit.StrategyReference, p.DefaultStrategy(), "rejected name must not stick")

	assert.Error(t, p.SetDefaultStrategy("luminanse"))

	p.RegisterStrategy(segment.NewStrategy(segment.SegmenterFunc(func(_ context.Context, data []byte) ([]byte, error) {
		return data, nil
	}), edit.Codec{}, zerolog.Nop()))
	require.NoError(t, p.SetDefaultStrategy(edit.StrategySegmentation))
	assert.Equal(t, edit.StrategySegmentation, p.DefaultStrategy())

	require.NoError(t, p.SetDefaultStrategy(""))
	assert.Equal(t, edit.StrategyReference, p.DefaultStrategy())
}

func TestParseFailurePolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    FailurePolicy
		wantErr bool
	}{
		{"", FailFast, false},
		{"fail-fast", FailFast, false},
		{"ISOLATE", IsolateFailures, false},
		{"retry", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFailurePolicy(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
