// Package config loads VibeBoard configuration from YAML files and the
// process environment. Credential values are never stored in config files;
// only the names of the environment variables holding them are.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Default configuration values exported for documentation and validation
const (
	DefaultComfyBaseURL  = "http://127.0.0.1:8188"
	DefaultServerBind    = "127.0.0.1:8787"
	DefaultSessionBudget = 5.00
	DefaultDailyBudget   = 20.00
	DefaultMonthlyBudget = 100.00
	DefaultImageWidth    = 1024
	DefaultImageHeight   = 1024
	DefaultSteps         = 30
	DefaultGuidance      = 7.0
	DefaultCount         = 1
)

// Config represents the complete VibeBoard configuration
type Config struct {
	Providers  ProvidersConfig  `yaml:"providers"`
	Generation GenerationConfig `yaml:"generation"`
	Budgets    BudgetConfig     `yaml:"budgets"`
	Storage    StorageConfig    `yaml:"storage"`
	Server     ServerConfig     `yaml:"server"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ProvidersConfig configures the generation backends
type ProvidersConfig struct {
	// Preferred promotes a usable provider to the front of the fallback
	// order. Membership is unaffected; a preferred provider whose
	// credential is absent is still skipped.
	Preferred string `yaml:"preferred"`

	Comfy     ComfyConfig    `yaml:"comfy"`
	Replicate ProviderConfig `yaml:"replicate"`
	Fal       ProviderConfig `yaml:"fal"`
	OpenAI    ProviderConfig `yaml:"openai"`
	Runway    ProviderConfig `yaml:"runway"`
}

// BaseURLFor returns the configured base URL for a provider by name.
func (p ProvidersConfig) BaseURLFor(name string) string {
	switch name {
	case "comfy":
		return p.Comfy.BaseURL
	case "replicate":
		return p.Replicate.BaseURL
	case "fal":
		return p.Fal.BaseURL
	case "openai":
		return p.OpenAI.BaseURL
	case "runway":
		return p.Runway.BaseURL
	}
	return ""
}

// EnabledFor reports whether a provider is enabled by name. Unknown names
// are enabled so new catalog entries are not silently dropped.
func (p ProvidersConfig) EnabledFor(name string) bool {
	switch name {
	case "comfy":
		return p.Comfy.Enabled
	case "replicate":
		return p.Replicate.Enabled
	case "fal":
		return p.Fal.Enabled
	case "openai":
		return p.OpenAI.Enabled
	case "runway":
		return p.Runway.Enabled
	}
	return true
}

// ProviderConfig configures a single cloud provider
type ProviderConfig struct {
	Enabled bool   `yaml:"enabled"`
	BaseURL string `yaml:"base_url"`
}

// ComfyConfig configures the local ComfyUI engine
type ComfyConfig struct {
	Enabled bool   `yaml:"enabled"`
	BaseURL string `yaml:"base_url"`
}

// GenerationConfig holds request defaults applied when a caller omits them
type GenerationConfig struct {
	Width    int     `yaml:"width"`
	Height   int     `yaml:"height"`
	Steps    int     `yaml:"steps"`
	Guidance float64 `yaml:"guidance"`
	Count    int     `yaml:"count"`
}

// BudgetConfig holds spending limits in USD
type BudgetConfig struct {
	Session float64 `yaml:"session"`
	Daily   float64 `yaml:"daily"`
	Monthly float64 `yaml:"monthly"`
}

// StorageConfig configures persistence
type StorageConfig struct {
	DBPath string `yaml:"db_path"`
}

// ServerConfig configures the HTTP API server
type ServerConfig struct {
	Bind string `yaml:"bind"`
}

// LoggingConfig configures structured logging
type LoggingConfig struct {
	Dir         string `yaml:"dir"`
	Level       string `yaml:"level"`
	NetworkLogs bool   `yaml:"network_logs"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	baseDir := filepath.Join(home, ".vibeboard")

	return &Config{
		Providers: ProvidersConfig{
			Comfy:     ComfyConfig{Enabled: true, BaseURL: DefaultComfyBaseURL},
			Replicate: ProviderConfig{Enabled: true, BaseURL: "https://api.replicate.com/v1"},
			Fal:       ProviderConfig{Enabled: true, BaseURL: "https://queue.fal.run"},
			OpenAI:    ProviderConfig{Enabled: true, BaseURL: "https://api.openai.com/v1"},
			Runway:    ProviderConfig{Enabled: true, BaseURL: "https://api.dev.runwayml.com/v1"},
		},
		Generation: GenerationConfig{
			Width:    DefaultImageWidth,
			Height:   DefaultImageHeight,
			Steps:    DefaultSteps,
			Guidance: DefaultGuidance,
			Count:    DefaultCount,
		},
		Budgets: BudgetConfig{
			Session: DefaultSessionBudget,
			Daily:   DefaultDailyBudget,
			Monthly: DefaultMonthlyBudget,
		},
		Storage: StorageConfig{
			DBPath: filepath.Join(baseDir, "vibeboard.db"),
		},
		Server: ServerConfig{
			Bind: DefaultServerBind,
		},
		Logging: LoggingConfig{
			Dir:   filepath.Join(baseDir, "logs"),
			Level: "info",
		},
	}
}

// Load reads configuration from ~/.vibeboard/config.yaml when present,
// applies environment overrides, and validates the result.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	home, err := os.UserHomeDir()
	if err != nil {
		home = os.Getenv("HOME")
	}
	if home != "" {
		userConfigPath := filepath.Join(home, ".vibeboard", "config.yaml")
		if err := loadAndMerge(cfg, userConfigPath); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("loading user config: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// LoadFromPath loads configuration from a specific path (used by --config)
func LoadFromPath(path string) (*Config, error) {
	cfg := DefaultConfig()

	if err := loadAndMerge(cfg, path); err != nil {
		return nil, fmt.Errorf("loading config from %s: %w", path, err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func loadAndMerge(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("VIBEBOARD_COMFY_URL"); v != "" {
		cfg.Providers.Comfy.BaseURL = v
	}
	if v := os.Getenv("VIBEBOARD_PREFERRED_PROVIDER"); v != "" {
		cfg.Providers.Preferred = v
	}
	if v := os.Getenv("VIBEBOARD_DB_PATH"); v != "" {
		cfg.Storage.DBPath = v
	}
	if v := os.Getenv("VIBEBOARD_BIND"); v != "" {
		cfg.Server.Bind = v
	}
	if v := os.Getenv("VIBEBOARD_LOG_DIR"); v != "" {
		cfg.Logging.Dir = v
	}
	if v := os.Getenv("VIBEBOARD_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if os.Getenv("VIBEBOARD_NETWORK_LOGS") == "1" {
		cfg.Logging.NetworkLogs = true
	}
}

// Validate checks configuration invariants
func (c *Config) Validate() error {
	if c.Generation.Count < 1 {
		c.Generation.Count = DefaultCount
	}
	if c.Generation.Width <= 0 || c.Generation.Height <= 0 {
		return fmt.Errorf("generation width/height must be positive")
	}
	if c.Budgets.Session < 0 || c.Budgets.Daily < 0 || c.Budgets.Monthly < 0 {
		return fmt.Errorf("budgets must be non-negative")
	}
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.Logging.Level)
	}
	return nil
}

// HasCredential reports whether the named environment variable is set and
// non-empty. Only presence is checked; values are never read into config.
func HasCredential(envName string) bool {
	return os.Getenv(envName) != ""
}
