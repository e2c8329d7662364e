package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/facematch/internal/domain"
)

// Extractor backends.
const (
	BackendDeepFace = "deepface"
	BackendOpenAI   = "openai"
	BackendCommand  = "command"
)

// Config holds the facematch configuration.
type Config struct {
	Model     ModelConfig     `yaml:"model"`
	Matching  MatchingConfig  `yaml:"matching"`
	Extractor ExtractorConfig `yaml:"extractor"`
	Image     ImageConfig     `yaml:"image"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// ModelConfig identifies the embedding model.
type ModelConfig struct {
	Name     string `yaml:"name"`
	Detector string `yaml:"detector"`
	// Dimensions of extracted vectors; 0 disables the check.
	Dimensions int `yaml:"dimensions"`
}

// MatchingConfig holds the decision rule.
type MatchingConfig struct {
	Threshold float64 `yaml:"threshold"`
	Epsilon   float64 `yaml:"epsilon"`
}

// ExtractorConfig selects and configures the embedding backend.
type ExtractorConfig struct {
	Backend          string   `yaml:"backend"` // deepface, openai, command (default: deepface)
	BaseURL          string   `yaml:"base_url"`
	APIKey           string   `yaml:"api_key"`
	Command          string   `yaml:"command"`
	Args             []string `yaml:"args"`
	TimeoutSec       int      `yaml:"timeout_sec"`
	FaceSelection    string   `yaml:"face_selection"` // largest, first, confidence
	EnforceDetection *bool    `yaml:"enforce_detection"`
	Align            *bool    `yaml:"align"`
}

// ImageConfig holds input limits.
type ImageConfig struct {
	MaxBytes        int     `yaml:"max_bytes"`
	MaxPixels       int     `yaml:"max_pixels"`
	MinQualityScore float64 `yaml:"min_quality_score"` // 0 = gate disabled
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// MetricsConfig holds Pushgateway settings.
type MetricsConfig struct {
	PushgatewayURL string `yaml:"pushgateway_url"` // empty disables push
	Job            string `yaml:"job"`
}

// Load reads configuration from <dir>/<env>.yaml.
func Load(dir, env string) (Config, error) {
	configPath := findConfigPath(dir, env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return Parse(data)
}

// Parse decodes YAML after env expansion, applies defaults and validates.
func Parse(data []byte) (Config, error) {
	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	def := domain.DefaultMatchConfig()
	if c.Model.Name == "" {
		c.Model.Name = def.Model
	}
	if c.Model.Detector == "" {
		c.Model.Detector = def.Detector
	}
	if c.Model.Dimensions < 0 {
		c.Model.Dimensions = 0
	}
	if c.Matching.Threshold == 0 {
		c.Matching.Threshold = def.Threshold
	}
	if c.Matching.Epsilon <= 0 {
		c.Matching.Epsilon = def.Epsilon
	}
	if c.Extractor.Backend == "" {
		c.Extractor.Backend = BackendDeepFace
	}
	if c.Extractor.TimeoutSec <= 0 {
		c.Extractor.TimeoutSec = 60
	}
	if c.Extractor.FaceSelection == "" {
		c.Extractor.FaceSelection = string(domain.DefaultSelectionPolicy)
	}
	if c.Extractor.EnforceDetection == nil {
		c.Extractor.EnforceDetection = boolPtr(true)
	}
	if c.Extractor.Align == nil {
		c.Extractor.Align = boolPtr(true)
	}
	if c.Image.MaxBytes <= 0 {
		c.Image.MaxBytes = 10 << 20
	}
	if c.Image.MaxPixels <= 0 {
		c.Image.MaxPixels = 40_000_000
	}
	if c.Metrics.Job == "" {
		c.Metrics.Job = "facematch"
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.Matching.Threshold <= 0 || c.Matching.Threshold > 2 {
		return fmt.Errorf("matching.threshold must be in (0, 2], got %v", c.Matching.Threshold)
	}
	if _, err := domain.ParseSelectionPolicy(c.Extractor.FaceSelection); err != nil {
		return fmt.Errorf("extractor.face_selection: %w", err)
	}
	if c.Image.MinQualityScore < 0 || c.Image.MinQualityScore > 1 {
		return fmt.Errorf("image.min_quality_score must be in [0, 1], got %v", c.Image.MinQualityScore)
	}
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
		// ok
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error, got %q", c.Logging.Level)
	}

	switch c.Extractor.Backend {
	case BackendDeepFace, BackendOpenAI:
		if c.Extractor.BaseURL == "" {
			return fmt.Errorf("extractor.base_url is required for backend %q", c.Extractor.Backend)
		}
	case BackendCommand:
		if c.Extractor.Command == "" {
			return fmt.Errorf("extractor.command is required for backend %q", c.Extractor.Backend)
		}
	default:
		return fmt.Errorf(
			"extractor.backend must be %q, %q or %q, got %q",
			BackendDeepFace, BackendOpenAI, BackendCommand, c.Extractor.Backend,
		)
	}
	return nil
}

// MatchConfig returns the immutable configuration triple used by the engine.
func (c *Config) MatchConfig() domain.MatchConfig {
	return domain.MatchConfig{
		Model:      c.Model.Name,
		Detector:   c.Model.Detector,
		Threshold:  c.Matching.Threshold,
		Epsilon:    c.Matching.Epsilon,
		Dimensions: c.Model.Dimensions,
	}
}

// SelectionPolicy returns the validated face selection policy.
func (c *Config) SelectionPolicy() domain.SelectionPolicy {
	p, err := domain.ParseSelectionPolicy(c.Extractor.FaceSelection)
	if err != nil {
		return domain.DefaultSelectionPolicy
	}
	return p
}

// Timeout returns the extractor call timeout.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Extractor.TimeoutSec) * time.Second
}

func boolPtr(b bool) *bool { return &b }

// findConfigPath locates the config file.
func findConfigPath(dir, env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check the configured directory
	if path := filepath.Join(dir, filename); fileExists(path) || filepath.IsAbs(dir) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, dir, filename); fileExists(path) {
		return path
	}

	// 3. Fallback to the configured directory
	return filepath.Join(dir, filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
