package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gyorilab/trialsynth/pkg/logger"
)

func TestDefaultIsValid(t *testing.T) {
	if _, err := Load("", logger.Nop()); err != nil {
		t.Fatalf("default config is invalid: %v", err)
	}
}

func TestLoadYAMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
registry: clinicaltrials
data_dir: /tmp/trialsynth-test
api:
  url: https://example.org/api/v2/studies
  page_size: 100
  timeout: 30s
grounding:
  service_url: http://gilda:8001
  workers: 8
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path, logger.Nop())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.API.URL != "https://example.org/api/v2/studies" {
		t.Errorf("api url = %q", cfg.API.URL)
	}
	if cfg.API.PageSize != 100 {
		t.Errorf("page size = %d", cfg.API.PageSize)
	}
	if cfg.API.Timeout.Std() != 30*time.Second {
		t.Errorf("timeout = %v", cfg.API.Timeout)
	}
	if cfg.Grounding.Workers != 8 {
		t.Errorf("workers = %d", cfg.Grounding.Workers)
	}
	// untouched values keep their defaults
	if cfg.API.Retries != 3 {
		t.Errorf("retries = %d", cfg.API.Retries)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("TRIALSYNTH_WORKERS", "16")
	t.Setenv("TRIALSYNTH_DATA_DIR", "/tmp/env-dir")

	cfg, err := Load("", logger.Nop())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Grounding.Workers != 16 {
		t.Errorf("workers = %d, want 16", cfg.Grounding.Workers)
	}
	if cfg.DataDir != "/tmp/env-dir" {
		t.Errorf("data dir = %q", cfg.DataDir)
	}
	if cfg.TrialsPath() != "/tmp/env-dir/trials.tsv.gz" {
		t.Errorf("trials path = %q", cfg.TrialsPath())
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
api:
  url: not-a-url
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path, logger.Nop()); err == nil {
		t.Fatal("expected validation error for bad url")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), logger.Nop()); err == nil {
		t.Fatal("expected error for missing config file")
	}
}
