package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadVidpipeConfigDefaults(t *testing.T) {
	cfg, err := LoadVidpipeConfig("vidpipe-test", WithConfigFile("/nonexistent/config.yml"))
	if err != nil {
		t.Fatalf("LoadVidpipeConfig failed: %v", err)
	}
	if cfg.Runtime.DefaultEdgeCapacity != 10 {
		t.Errorf("expected default edge capacity 10, got %d", cfg.Runtime.DefaultEdgeCapacity)
	}
	if cfg.Base.Environment != "development" {
		t.Errorf("expected environment to default to development, got %q", cfg.Base.Environment)
	}
}

func TestLoadVidpipeConfigFromYAML(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yml")
	yamlContent := `
base:
  name: vidpipe-host
runtime:
  default_edge_capacity: 64
  async_edge_capacity: 128
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := LoadVidpipeConfig("vidpipe-host", WithConfigFile(configPath))
	if err != nil {
		t.Fatalf("LoadVidpipeConfig failed: %v", err)
	}
	if cfg.Runtime.DefaultEdgeCapacity != 64 {
		t.Errorf("expected overridden edge capacity 64, got %d", cfg.Runtime.DefaultEdgeCapacity)
	}
	if cfg.Runtime.AsyncEdgeCapacity != 128 {
		t.Errorf("expected overridden async capacity 128, got %d", cfg.Runtime.AsyncEdgeCapacity)
	}
	// Fields not present in YAML keep spec.md's defaults.
	if cfg.Runtime.ConsecutiveFailureLimit != 16 {
		t.Errorf("expected default consecutive failure limit 16, got %d", cfg.Runtime.ConsecutiveFailureLimit)
	}
}

func TestLoadVidpipeConfigRejectsInvalidRuntime(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yml")
	yamlContent := `
base:
  name: vidpipe-host
runtime:
  default_edge_capacity: 0
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	_, err := LoadVidpipeConfig("vidpipe-host", WithConfigFile(configPath))
	if err == nil {
		t.Fatal("expected validation error for default_edge_capacity=0 (validate:\"gt=0\")")
	}
}
