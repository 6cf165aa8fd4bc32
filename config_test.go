package lighthouse

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfig_DefaultsWithoutFile(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("Addr = %q, want :8080", cfg.Server.Addr)
	}
	if cfg.Database.Path != "logs.db" {
		t.Errorf("Database.Path = %q, want logs.db", cfg.Database.Path)
	}
	if cfg.Pipeline.MinConfidence != DefaultMinConfidence {
		t.Errorf("MinConfidence = %v, want %v", cfg.Pipeline.MinConfidence, DefaultMinConfidence)
	}
	if cfg.Pipeline.BlurThreshold != DefaultBlurThreshold {
		t.Errorf("BlurThreshold = %v, want %v", cfg.Pipeline.BlurThreshold, DefaultBlurThreshold)
	}
	if len(cfg.Pipeline.Prompts) == 0 {
		t.Error("default prompt set is empty")
	}
}

func TestLoadConfig_FileAndEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  addr: ":9090"
pipeline:
  minConfidence: 0.5
  blurThreshold: 80
  fetchTimeout: 3s
  prompts:
    - "a dog doing chores"
geo:
  timeout: 2s
dashboard:
  password: "from-file"
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("DASHBOARD_PASSWORD", "from-env")
	t.Setenv("DATABASE_PATH", "/var/lib/lighthouse/logs.db")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Server.Addr != ":9090" {
		t.Errorf("Addr = %q, want :9090", cfg.Server.Addr)
	}
	if cfg.Pipeline.MinConfidence != 0.5 || cfg.Pipeline.BlurThreshold != 80 {
		t.Errorf("thresholds = %v/%v", cfg.Pipeline.MinConfidence, cfg.Pipeline.BlurThreshold)
	}
	if cfg.Pipeline.FetchTimeout.Duration != 3*time.Second {
		t.Errorf("FetchTimeout = %v, want 3s", cfg.Pipeline.FetchTimeout)
	}
	if len(cfg.Pipeline.Prompts) != 1 || cfg.Pipeline.Prompts[0] != "a dog doing chores" {
		t.Errorf("Prompts = %v", cfg.Pipeline.Prompts)
	}
	if cfg.Dashboard.Password != "from-env" {
		t.Errorf("Password = %q, env must override the file", cfg.Dashboard.Password)
	}
	if cfg.Database.Path != "/var/lib/lighthouse/logs.db" {
		t.Errorf("Database.Path = %q", cfg.Database.Path)
	}
}

func TestLoadConfig_MissingFileIsAnError(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for an explicitly named missing file")
	}
}
