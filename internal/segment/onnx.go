package segment

import (
	"context"
	"image"
	"image/color"
	"math"
	"os"
	"sync"

	"github.com/nfnt/resize"
	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/ironsheep/image-edit-mcp/internal/imaging"
)

// ONNXConfig describes a salient-object mask model such as U2-Net.
//
// The model takes a single [1, 3, size, size] float tensor normalized with
// the ImageNet mean and standard deviation, and produces a [1, 1, size, size]
// saliency map. Higher values mean foreground.
type ONNXConfig struct {
	ModelPath         string
	SharedLibraryPath string
	InputSize         int
	InputName         string
	OutputName        string
	Threads           int
}

// Defaults for the rembg distribution of U2-Net.
const (
	DefaultONNXInputSize  = 320
	DefaultONNXInputName  = "input.1"
	DefaultONNXOutputName = "1959"
)

var (
	imagenetMean = [3]float32{0.485, 0.456, 0.406}
	imagenetStd  = [3]float32{0.229, 0.224, 0.225}
)

func (c *ONNXConfig) applyDefaults() {
	if c.InputSize <= 0 {
		c.InputSize = DefaultONNXInputSize
	}
	if c.InputName == "" {
		c.InputName = DefaultONNXInputName
	}
	if c.OutputName == "" {
		c.OutputName = DefaultONNXOutputName
	}
}

// ONNXSegmenter runs a mask model in process with ONNX Runtime.
//
// The session and its tensors are reused across calls, so Segment
// serializes on a mutex. Decoding, mask scaling and encoding run outside
// the lock.
type ONNXSegmenter struct {
	mu      sync.Mutex
	size    int
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
	codec   imaging.Codec
}

var envMu sync.Mutex

// initEnvironment initializes the process-wide ONNX Runtime environment once.
func initEnvironment(libPath string) error {
	envMu.Lock()
	defer envMu.Unlock()

	if ort.IsInitialized() {
		return nil
	}
	if libPath != "" {
		if _, err := os.Stat(libPath); err != nil {
			return errors.Wrapf(err, "onnxruntime library not found at %s", libPath)
		}
		ort.SetSharedLibraryPath(libPath)
	}
	return errors.Wrap(ort.InitializeEnvironment(), "failed to initialize onnxruntime")
}

// NewONNXSegmenter loads the model described by cfg.
func NewONNXSegmenter(cfg ONNXConfig, codec imaging.Codec) (*ONNXSegmenter, error) {
	cfg.applyDefaults()
	if cfg.ModelPath == "" {
		return nil, errors.New("onnx model path is required")
	}
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, errors.Wrapf(err, "onnx model not found at %s", cfg.ModelPath)
	}
	if err := initEnvironment(cfg.SharedLibraryPath); err != nil {
		return nil, err
	}

	size := int64(cfg.InputSize)
	input, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 3, size, size))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create input tensor")
	}
	output, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 1, size, size))
	if err != nil {
		input.Destroy()
		return nil, errors.Wrap(err, "failed to create output tensor")
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, errors.Wrap(err, "failed to create session options")
	}
	defer options.Destroy()
	if cfg.Threads > 0 {
		options.SetIntraOpNumThreads(cfg.Threads)
	}

	session, err := ort.NewAdvancedSession(
		cfg.ModelPath,
		[]string{cfg.InputName},
		[]string{cfg.OutputName},
		[]ort.ArbitraryTensor{input},
		[]ort.ArbitraryTensor{output},
		options,
	)
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, errors.Wrap(err, "failed to create onnx session")
	}

	return &ONNXSegmenter{
		size:    cfg.InputSize,
		session: session,
		input:   input,
		output:  output,
		codec:   codec,
	}, nil
}

// Segment implements Segmenter.
func (s *ONNXSegmenter) Segment(ctx context.Context, data []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	buf, err := s.codec.Decode(data)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode segmentation input")
	}

	raw, err := s.infer(buf)
	if err != nil {
		return nil, err
	}

	applyMask(buf, scaleMask(saliencyMask(raw, s.size), buf.Width, buf.Height))
	return s.codec.Encode(buf)
}

func (s *ONNXSegmenter) infer(buf *imaging.PixelBuffer) ([]float32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session == nil {
		return nil, errors.New("onnx segmenter is closed")
	}
	if err := prepareInput(buf.NRGBA(), s.input.GetData(), s.size); err != nil {
		return nil, err
	}
	if err := s.session.Run(); err != nil {
		return nil, errors.Wrap(err, "onnx inference failed")
	}

	out := s.output.GetData()
	raw := make([]float32, len(out))
	copy(raw, out)
	return raw, nil
}

// Close releases the session and its tensors. The shared ONNX Runtime
// environment stays initialized.
func (s *ONNXSegmenter) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.input != nil {
		s.input.Destroy()
		s.input = nil
	}
	if s.output != nil {
		s.output.Destroy()
		s.output = nil
	}
	if s.session != nil {
		err := s.session.Destroy()
		s.session = nil
		return errors.Wrap(err, "failed to destroy onnx session")
	}
	return nil
}

// prepareInput scales img to size x size and writes it into dst as planar
// RGB, normalized with the ImageNet statistics.
func prepareInput(img image.Image, dst []float32, size int) error {
	plane := size * size
	if len(dst) < plane*3 {
		return errors.Errorf("input tensor holds %d floats, need %d", len(dst), plane*3)
	}
	red := dst[0:plane]
	green := dst[plane : plane*2]
	blue := dst[plane*2 : plane*3]

	scaled := resize.Resize(uint(size), uint(size), img, resize.Bilinear)
	b := scaled.Bounds()

	i := 0
	for y := b.Min.Y; y < b.Min.Y+size; y++ {
		for x := b.Min.X; x < b.Min.X+size; x++ {
			r, g, bl, _ := scaled.At(x, y).RGBA()
			red[i] = (float32(r>>8)/255 - imagenetMean[0]) / imagenetStd[0]
			green[i] = (float32(g>>8)/255 - imagenetMean[1]) / imagenetStd[1]
			blue[i] = (float32(bl>>8)/255 - imagenetMean[2]) / imagenetStd[2]
			i++
		}
	}
	return nil
}

// saliencyMask min-max normalizes the model output into an 8-bit mask.
// A flat output yields a fully opaque mask so nothing is removed.
func saliencyMask(raw []float32, size int) *image.Gray {
	mask := image.NewGray(image.Rect(0, 0, size, size))
	n := size * size
	if len(raw) < n {
		n = len(raw)
	}

	lo, hi := float32(math.MaxFloat32), float32(-math.MaxFloat32)
	for _, v := range raw[:n] {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	if n == 0 || hi-lo < 1e-6 {
		for i := range mask.Pix {
			mask.Pix[i] = 255
		}
		return mask
	}

	span := hi - lo
	for i, v := range raw[:n] {
		mask.Pix[i] = uint8(math.Round(float64((v - lo) / span * 255)))
	}
	return mask
}

// scaleMask resizes mask to width x height.
func scaleMask(mask *image.Gray, width, height int) *image.Gray {
	scaled := resize.Resize(uint(width), uint(height), mask, resize.Bilinear)
	if g, ok := scaled.(*image.Gray); ok && g.Rect.Min == (image.Point{}) {
		return g
	}
	out := image.NewGray(image.Rect(0, 0, width, height))
	b := scaled.Bounds()
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			out.SetGray(x, y, color.GrayModel.Convert(scaled.At(b.Min.X+x, b.Min.Y+y)).(color.Gray))
		}
	}
	return out
}

// applyMask lowers each pixel's alpha to the mask value. Alpha never rises,
// so pixels that were already transparent stay transparent.
func applyMask(buf *imaging.PixelBuffer, mask *image.Gray) {
	for y := 0; y < buf.Height; y++ {
		for x := 0; x < buf.Width; x++ {
			m := mask.GrayAt(x, y).Y
			p := buf.Pixel(x, y)
			if m < p.A {
				p.A = m
				buf.SetPixel(x, y, p)
			}
		}
	}
}
