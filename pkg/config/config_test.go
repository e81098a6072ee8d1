package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Providers.Comfy.BaseURL != DefaultComfyBaseURL {
		t.Errorf("Comfy.BaseURL = %q, want %q", cfg.Providers.Comfy.BaseURL, DefaultComfyBaseURL)
	}
	if cfg.Generation.Count != 1 {
		t.Errorf("Generation.Count = %d, want 1", cfg.Generation.Count)
	}
	if cfg.Budgets.Daily != DefaultDailyBudget {
		t.Errorf("Budgets.Daily = %v, want %v", cfg.Budgets.Daily, DefaultDailyBudget)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadFromPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
providers:
  preferred: fal
  comfy:
    enabled: false
generation:
  width: 512
  height: 512
budgets:
  daily: 2.50
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}

	if cfg.Providers.Preferred != "fal" {
		t.Errorf("Preferred = %q, want fal", cfg.Providers.Preferred)
	}
	if cfg.Providers.Comfy.Enabled {
		t.Error("Comfy should be disabled by file")
	}
	if cfg.Generation.Width != 512 {
		t.Errorf("Width = %d, want 512", cfg.Generation.Width)
	}
	if cfg.Budgets.Daily != 2.50 {
		t.Errorf("Daily budget = %v, want 2.50", cfg.Budgets.Daily)
	}
	// Untouched fields keep defaults
	if cfg.Server.Bind != DefaultServerBind {
		t.Errorf("Bind = %q, want default %q", cfg.Server.Bind, DefaultServerBind)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("VIBEBOARD_COMFY_URL", "http://gpubox:8188")
	t.Setenv("VIBEBOARD_PREFERRED_PROVIDER", "replicate")

	cfg := DefaultConfig()
	applyEnvOverrides(cfg)

	if cfg.Providers.Comfy.BaseURL != "http://gpubox:8188" {
		t.Errorf("Comfy.BaseURL = %q, want env value", cfg.Providers.Comfy.BaseURL)
	}
	if cfg.Providers.Preferred != "replicate" {
		t.Errorf("Preferred = %q, want replicate", cfg.Providers.Preferred)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Generation.Width = 0
	if err := cfg.Validate(); err == nil {
		t.Error("zero width should fail validation")
	}

	cfg = DefaultConfig()
	cfg.Logging.Level = "verbose"
	if err := cfg.Validate(); err == nil {
		t.Error("unknown log level should fail validation")
	}

	cfg = DefaultConfig()
	cfg.Generation.Count = 0
	if err := cfg.Validate(); err != nil {
		t.Errorf("count 0 should be normalized, got %v", err)
	}
	if cfg.Generation.Count != 1 {
		t.Errorf("count should default to 1, got %d", cfg.Generation.Count)
	}
}

func TestHasCredential(t *testing.T) {
	t.Setenv("VIBEBOARD_TEST_KEY", "sk-123")
	if !HasCredential("VIBEBOARD_TEST_KEY") {
		t.Error("set credential should be present")
	}
	if HasCredential("VIBEBOARD_TEST_KEY_MISSING") {
		t.Error("unset credential should be absent")
	}
}
