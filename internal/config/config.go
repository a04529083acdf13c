// Package config loads posecoach settings from a YAML file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ayusman/posecoach/internal/advisor"
	"github.com/ayusman/posecoach/internal/motion"
	"github.com/ayusman/posecoach/internal/pose"
	"github.com/ayusman/posecoach/internal/session"
)

const maxFileSize = 1 * 1024 * 1024 // 1MB

// Config is the full posecoach configuration.
type Config struct {
	Tolerance  float64          `yaml:"tolerance"`
	Reference  ReferenceConfig  `yaml:"reference"`
	History    HistoryConfig    `yaml:"history"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Advisor    AdvisorConfig    `yaml:"advisor"`
}

// ReferenceConfig controls how reference recordings are sampled.
type ReferenceConfig struct {
	// SampleRate is the rate (frames per second) of sequence references
	// loaded from files that do not declare one.
	SampleRate int     `yaml:"sample_rate"`
	// TargetRate is the rate recordings are subsampled to when they are
	// turned into references.
	TargetRate float64 `yaml:"target_rate"`
	MaxFrames  int     `yaml:"max_frames"`
}

// HistoryConfig locates the SQLite history database.
type HistoryConfig struct {
	Path string `yaml:"path"`
}

// ClassifierConfig selects how unlabeled frames get a condition.
// Label wins over Command when both are set.
type ClassifierConfig struct {
	Label       string   `yaml:"label"`
	Command     string   `yaml:"command"`
	Args        []string `yaml:"args"`
	IdleTimeout string   `yaml:"idle_timeout"`
}

// AdvisorConfig selects the advisory strategy. An empty Plugin and an empty
// HTTP.URL disable advice.
type AdvisorConfig struct {
	PluginDir string     `yaml:"plugin_dir"`
	Plugin    string     `yaml:"plugin"`
	Timeout   string     `yaml:"timeout"`
	HTTP      HTTPConfig `yaml:"http"`
}

// HTTPConfig configures the chat-completions advisor.
type HTTPConfig struct {
	URL       string `yaml:"url"`
	Model     string `yaml:"model"`
	APIKeyEnv string `yaml:"api_key_env"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Tolerance: 1.0,
		Reference: ReferenceConfig{
			SampleRate: motion.DefaultSampleRate,
			TargetRate: motion.DefaultTargetRate,
			MaxFrames:  motion.MaxReferenceFrames,
		},
		History: HistoryConfig{Path: "posecoach.db"},
		Classifier: ClassifierConfig{
			IdleTimeout: pose.DefaultIdleTimeout.String(),
		},
		Advisor: AdvisorConfig{
			PluginDir: "plugins",
			Timeout:   advisor.DefaultTimeout.String(),
			HTTP: HTTPConfig{
				Model:     advisor.DefaultModel,
				APIKeyEnv: advisor.DefaultAPIKeyEnv,
			},
		},
	}
}

// Load reads a YAML config file. The file must have a .yaml or .yml
// extension and be under 1MB. Keys omitted from the file keep their
// Default values.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("config file must have .yaml or .yml extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are usable.
func (c *Config) Validate() error {
	if c.Tolerance < session.MinTolerance || c.Tolerance > session.MaxTolerance {
		return fmt.Errorf("tolerance must be between %.1f and %.1f, got %f",
			session.MinTolerance, session.MaxTolerance, c.Tolerance)
	}
	if c.Reference.SampleRate <= 0 {
		return fmt.Errorf("reference.sample_rate must be positive, got %d", c.Reference.SampleRate)
	}
	if c.Reference.TargetRate <= 0 {
		return fmt.Errorf("reference.target_rate must be positive, got %f", c.Reference.TargetRate)
	}
	if c.Reference.MaxFrames <= 0 {
		return fmt.Errorf("reference.max_frames must be positive, got %d", c.Reference.MaxFrames)
	}
	if c.History.Path == "" {
		return fmt.Errorf("history.path must not be empty")
	}
	if _, err := parseDuration(c.Classifier.IdleTimeout); err != nil {
		return fmt.Errorf("invalid classifier.idle_timeout %q: %w", c.Classifier.IdleTimeout, err)
	}
	if _, err := parseDuration(c.Advisor.Timeout); err != nil {
		return fmt.Errorf("invalid advisor.timeout %q: %w", c.Advisor.Timeout, err)
	}
	if c.Advisor.Plugin != "" && c.Advisor.HTTP.URL != "" {
		return fmt.Errorf("advisor.plugin and advisor.http.url are mutually exclusive")
	}
	return nil
}

// IdleTimeout returns the classifier idle timeout, or zero when unset.
func (c *Config) IdleTimeout() time.Duration {
	d, _ := parseDuration(c.Classifier.IdleTimeout)
	return d
}

// AdvisorTimeout returns the advisory timeout, or zero when unset.
func (c *Config) AdvisorTimeout() time.Duration {
	d, _ := parseDuration(c.Advisor.Timeout)
	return d
}

func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration")
	}
	return d, nil
}
