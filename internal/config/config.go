// Package config provides configuration management for the translation
// pipeline: a JSON config file with environment-variable fallbacks for
// credentials.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"pdf-layout-translator/internal/layout"
	"pdf-layout-translator/internal/logger"
	"pdf-layout-translator/internal/render"
)

const (
	// DefaultConfigFileName is the default configuration file name.
	DefaultConfigFileName = "pdf-layout-translator.json"
	// EnvOpenAIAPIKey is the environment variable for the API key.
	EnvOpenAIAPIKey = "OPENAI_API_KEY"
	// EnvOpenAIBaseURL is the environment variable for the API base URL.
	EnvOpenAIBaseURL = "OPENAI_BASE_URL"
	// DefaultBaseURL is the default OpenAI-compatible endpoint.
	DefaultBaseURL = "https://api.openai.com/v1"
	// DefaultModel is the default translation model.
	DefaultModel = "gpt-4o"
	// DefaultZoom is the render zoom factor for detection: page images
	// at 3x give the detector enough resolution at 1024px input.
	DefaultZoom = 3.0
	// DefaultWorkers is the number of documents processed concurrently.
	DefaultWorkers = 2
	// DefaultDetectTimeout bounds one detection call.
	DefaultDetectTimeout = 60 * time.Second
)

// FailurePolicy decides what happens to a document when one of its pages
// fails.
type FailurePolicy string

const (
	// KeepOriginal commits a failed page with its original content.
	KeepOriginal FailurePolicy = "keep-original"
	// AbortDocument fails the whole document on any page failure.
	AbortDocument FailurePolicy = "abort-document"
)

// Config is the application configuration.
type Config struct {
	OpenAIAPIKey  string `json:"openai_api_key,omitempty"`
	OpenAIBaseURL string `json:"openai_base_url"`
	OpenAIModel   string `json:"openai_model"`

	// ModelPath is the layout detection ONNX model; downloaded on first
	// use when absent.
	ModelPath string `json:"model_path"`
	// ONNXLibraryPath is the onnxruntime shared library path.
	ONNXLibraryPath string `json:"onnx_library_path,omitempty"`
	// FontPath is a CJK-capable font for text insertion.
	FontPath string `json:"font_path,omitempty"`

	// Zoom relates point space to detector pixel space.
	Zoom float64 `json:"zoom"`
	// ConfThreshold filters low-confidence detections.
	ConfThreshold float64 `json:"conf_threshold"`
	// Workers bounds concurrent document processing.
	Workers int `json:"workers"`
	// DetectTimeout bounds one detection call.
	DetectTimeout time.Duration `json:"detect_timeout"`
	// OnPageFailure selects the per-page failure policy.
	OnPageFailure FailurePolicy `json:"on_page_failure"`

	// Policy holds the block assembly thresholds.
	Policy layout.Policy `json:"policy"`
	// Render holds the translation and insertion settings.
	Render render.Config `json:"render"`
}

// Default returns a Config with standard values.
func Default() *Config {
	return &Config{
		OpenAIBaseURL: DefaultBaseURL,
		OpenAIModel:   DefaultModel,
		ModelPath:     defaultModelPath(),
		Zoom:          DefaultZoom,
		Workers:       DefaultWorkers,
		DetectTimeout: DefaultDetectTimeout,
		OnPageFailure: KeepOriginal,
		Policy:        layout.DefaultPolicy(),
		Render:        render.DefaultConfig(),
	}
}

func defaultModelPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "doclayout_yolo.onnx"
	}
	return filepath.Join(home, ".cache", "pdf-layout-translator", "doclayout_yolo.onnx")
}

// Load reads the config file at path, falling back to defaults when the
// file is missing or malformed. An empty path uses the per-user default
// location. Credentials missing from the file come from the environment.
func Load(path string) (*Config, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		path = filepath.Join(home, ".config", "pdf-layout-translator", DefaultConfigFileName)
	}

	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		logger.Info("config file not found, using defaults", logger.String("path", path))
	case err != nil:
		return nil, err
	default:
		if jsonErr := json.Unmarshal(data, cfg); jsonErr != nil {
			logger.Warn("invalid config file, using defaults",
				logger.String("path", path), logger.Err(jsonErr))
			cfg = Default()
		} else {
			logger.Info("configuration loaded", logger.String("path", path))
		}
	}

	cfg.applyFallbacks()
	return cfg, nil
}

// Save writes the configuration to path.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

func (c *Config) applyFallbacks() {
	if c.OpenAIAPIKey == "" {
		c.OpenAIAPIKey = os.Getenv(EnvOpenAIAPIKey)
	}
	if env := os.Getenv(EnvOpenAIBaseURL); c.OpenAIBaseURL == DefaultBaseURL && env != "" {
		c.OpenAIBaseURL = env
	}
	if c.OpenAIBaseURL == "" {
		c.OpenAIBaseURL = DefaultBaseURL
	}
	if c.OpenAIModel == "" {
		c.OpenAIModel = DefaultModel
	}
	if c.ModelPath == "" {
		c.ModelPath = defaultModelPath()
	}
	if c.Zoom <= 0 {
		c.Zoom = DefaultZoom
	}
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
	if c.DetectTimeout <= 0 {
		c.DetectTimeout = DefaultDetectTimeout
	}
	if c.OnPageFailure != KeepOriginal && c.OnPageFailure != AbortDocument {
		c.OnPageFailure = KeepOriginal
	}
	if c.Policy == (layout.Policy{}) {
		c.Policy = layout.DefaultPolicy()
	}
	if c.Render.TargetLang == "" {
		c.Render = render.DefaultConfig()
	}
	renderDefaults := render.DefaultConfig()
	if c.Render.FontStep <= 0 {
		c.Render.FontStep = renderDefaults.FontStep
	}
	if c.Render.MinFontSize <= 0 {
		c.Render.MinFontSize = renderDefaults.MinFontSize
	}
	if c.Render.TranslateTimeout <= 0 {
		c.Render.TranslateTimeout = renderDefaults.TranslateTimeout
	}
}
