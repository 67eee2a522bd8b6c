// Package config loads runtime configuration from a YAML file and
// IMAGE_EDIT_* environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ironsheep/image-edit-mcp/internal/domain"
	edit "github.com/ironsheep/image-edit-mcp/internal/imaging"
	"github.com/ironsheep/image-edit-mcp/internal/pipeline"
)

// EnvConfigPath names the variable that points at a YAML config file.
const EnvConfigPath = "IMAGE_EDIT_CONFIG"

// Segmentation backends.
const (
	SegmenterNone = "none"
	SegmenterONNX = "onnx"
	SegmenterHTTP = "http"
)

// Config holds all configuration.
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Pipeline     PipelineConfig     `yaml:"pipeline"`
	Segmentation SegmentationConfig `yaml:"segmentation"`
	Log          LogConfig          `yaml:"log"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr             string        `yaml:"addr"`
	ReadTimeout      time.Duration `yaml:"read_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	RequestTimeout   time.Duration `yaml:"request_timeout"`
	GracefulShutdown time.Duration `yaml:"graceful_shutdown"`
	MaxUploadBytes   int64         `yaml:"max_upload_bytes"`
}

// PipelineConfig tunes the batch orchestrator and the stage constants.
type PipelineConfig struct {
	Workers            int    `yaml:"workers"`
	FailurePolicy      string `yaml:"failure_policy"` // fail-fast or isolate
	ResampleFilter     string `yaml:"resample_filter"`
	PNGCompression     string `yaml:"png_compression"` // default, none, fast, best
	AutoOrient         bool   `yaml:"auto_orient"`
	DefaultStrategy    string `yaml:"default_strategy"`
	ReferenceTolerance int    `yaml:"reference_tolerance"`
	LuminanceThreshold int    `yaml:"luminance_threshold"`
	LineThreshold      int    `yaml:"line_threshold"`
}

// SegmentationConfig selects the delegated segmentation backend.
type SegmentationConfig struct {
	Backend           string        `yaml:"backend"` // none, onnx or http
	ModelPath         string        `yaml:"model_path"`
	SharedLibraryPath string        `yaml:"shared_library_path"`
	InputSize         int           `yaml:"input_size"`
	Threads           int           `yaml:"threads"`
	Endpoint          string        `yaml:"endpoint"`
	Timeout           time.Duration `yaml:"timeout"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json or console
}

// Load reads configuration from a YAML file and applies environment
// overrides. An empty path falls back to $IMAGE_EDIT_CONFIG, and then to
// defaults only.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, domain.ConfigurationError("failed to read config file", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, domain.ConfigurationError("failed to parse config file", err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, domain.ConfigurationError("invalid configuration", err)
	}
	return cfg, nil
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:             ":8080",
			ReadTimeout:      30 * time.Second,
			WriteTimeout:     120 * time.Second,
			RequestTimeout:   110 * time.Second,
			GracefulShutdown: 10 * time.Second,
			MaxUploadBytes:   64 << 20,
		},
		Pipeline: PipelineConfig{
			FailurePolicy:      string(pipeline.FailFast),
			ResampleFilter:     edit.DefaultResampleFilter,
			PNGCompression:     "default",
			AutoOrient:         true,
			DefaultStrategy:    edit.StrategyReference,
			ReferenceTolerance: edit.DefaultReferenceTolerance,
			LuminanceThreshold: edit.DefaultLuminanceThreshold,
			LineThreshold:      edit.DefaultLineThreshold,
		},
		Segmentation: SegmentationConfig{
			Backend: SegmenterNone,
			Timeout: 30 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Pipeline.Workers < 0 {
		return fmt.Errorf("pipeline.workers must not be negative: %d", c.Pipeline.Workers)
	}
	if _, err := pipeline.ParseFailurePolicy(c.Pipeline.FailurePolicy); err != nil {
		return err
	}
	if _, err := edit.ResampleFilterByName(c.Pipeline.ResampleFilter); err != nil {
		return err
	}
	if _, err := edit.ParseCompressionLevel(c.Pipeline.PNGCompression); err != nil {
		return err
	}
	if c.Pipeline.ReferenceTolerance < 1 || c.Pipeline.ReferenceTolerance > 255 {
		return fmt.Errorf("pipeline.reference_tolerance must be in [1,255]: %d", c.Pipeline.ReferenceTolerance)
	}
	if c.Pipeline.LuminanceThreshold < 1 || c.Pipeline.LuminanceThreshold > 255 {
		return fmt.Errorf("pipeline.luminance_threshold must be in [1,255]: %d", c.Pipeline.LuminanceThreshold)
	}
	if c.Pipeline.LineThreshold < 1 || c.Pipeline.LineThreshold > 255 {
		return fmt.Errorf("pipeline.line_threshold must be in [1,255]: %d", c.Pipeline.LineThreshold)
	}
	if c.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("server.max_upload_bytes must be positive")
	}

	switch c.Segmentation.Backend {
	case SegmenterNone, "":
	case SegmenterONNX:
		if c.Segmentation.ModelPath == "" {
			return fmt.Errorf("segmentation.model_path is required for the onnx backend")
		}
	case SegmenterHTTP:
		if c.Segmentation.Endpoint == "" {
			return fmt.Errorf("segmentation.endpoint is required for the http backend")
		}
	default:
		return fmt.Errorf("unknown segmentation backend %q (want none, onnx or http)", c.Segmentation.Backend)
	}
	return nil
}

// SegmentationEnabled reports whether a segmentation backend is configured.
func (c *Config) SegmentationEnabled() bool {
	return c.Segmentation.Backend == SegmenterONNX || c.Segmentation.Backend == SegmenterHTTP
}

// PipelineOptions converts the pipeline section into orchestrator options.
func (c *Config) PipelineOptions() pipeline.Options {
	return pipeline.Options{
		Workers:            c.Pipeline.Workers,
		FailurePolicy:      pipeline.FailurePolicy(c.Pipeline.FailurePolicy),
		Filter:             c.Pipeline.ResampleFilter,
		DefaultStrategy:    c.Pipeline.DefaultStrategy,
		ReferenceTolerance: c.Pipeline.ReferenceTolerance,
		LuminanceThreshold: c.Pipeline.LuminanceThreshold,
		LineThreshold:      c.Pipeline.LineThreshold,
	}
}

// applyEnvOverrides applies IMAGE_EDIT_* environment variables.
func applyEnvOverrides(cfg *Config) error {
	strs := map[string]*string{
		"IMAGE_EDIT_LOG_LEVEL":      &cfg.Log.Level,
		"IMAGE_EDIT_LOG_FORMAT":     &cfg.Log.Format,
		"IMAGE_EDIT_HTTP_ADDR":      &cfg.Server.Addr,
		"IMAGE_EDIT_FAILURE_POLICY": &cfg.Pipeline.FailurePolicy,
		"IMAGE_EDIT_SEGMENTER":      &cfg.Segmentation.Backend,
		"IMAGE_EDIT_ONNX_MODEL":     &cfg.Segmentation.ModelPath,
		"IMAGE_EDIT_ONNX_LIB":       &cfg.Segmentation.SharedLibraryPath,
		"IMAGE_EDIT_SEGMENT_URL":    &cfg.Segmentation.Endpoint,
	}
	for key, dst := range strs {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}

	if v := strings.TrimSpace(os.Getenv("IMAGE_EDIT_WORKERS")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return domain.ConfigurationError("invalid IMAGE_EDIT_WORKERS", err)
		}
		cfg.Pipeline.Workers = n
	}
	return nil
}
