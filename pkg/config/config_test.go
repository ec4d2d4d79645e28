package config

import (
	"strings"
	"testing"
)

func TestLoad_OverridesDefaults(t *testing.T) {
	doc := `
catalog_path: /etc/toolforge/catalog.yaml
install_path: /opt
logging:
  level: debug
  format: json
metrics:
  enabled: true
engine:
  max_parallel: 2
  max_retries: 3
history:
  path: /var/lib/toolforge/history.db
requirements:
  framework.pytorch:
    min_ram_gb: 8
    gpu_required: true
    gpu_vendor: nvidia
artifacts:
  terraform:
    url: https://example.com/terraform.zip
    binary: terraform
    version: 1.8.0
`

	cfg, err := Load(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if cfg.CatalogPath != "/etc/toolforge/catalog.yaml" || cfg.InstallPath != "/opt" {
		t.Errorf("Expected paths from document, got %+v", cfg)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("Expected logging overrides, got %+v", cfg.Logging)
	}
	if !cfg.Metrics.Enabled {
		t.Error("Expected metrics enabled")
	}
	if cfg.Engine.MaxParallel != 2 || cfg.Engine.MaxRetries != 3 {
		t.Errorf("Expected engine overrides, got %+v", cfg.Engine)
	}
	if cfg.History.Path != "/var/lib/toolforge/history.db" {
		t.Errorf("Expected history path override, got %q", cfg.History.Path)
	}

	req, ok := cfg.Requirements["framework.pytorch"]
	if !ok || !req.GPURequired || req.GPUVendor != "nvidia" || req.MinRAMGB != 8 {
		t.Errorf("Expected pytorch requirement, got %+v", req)
	}

	src, ok := cfg.Artifacts["terraform"]
	if !ok || src.URL != "https://example.com/terraform.zip" || src.Binary != "terraform" {
		t.Errorf("Expected terraform artifact source, got %+v", src)
	}
}

func TestLoad_EmptyDocumentKeepsDefaults(t *testing.T) {
	cfg, err := Load(strings.NewReader(""))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if cfg.InstallPath != "/" {
		t.Errorf("Expected default install path, got %q", cfg.InstallPath)
	}
	if cfg.History.Path == "" {
		t.Error("Expected a default history path")
	}
}

func TestLoad_ArtifactWithoutURLFails(t *testing.T) {
	doc := `
artifacts:
  terraform:
    binary: terraform
`
	if _, err := Load(strings.NewReader(doc)); err == nil {
		t.Error("Expected validation error for artifact without url")
	}
}

func TestLoad_MalformedYAML(t *testing.T) {
	if _, err := Load(strings.NewReader("engine: [nope")); err == nil {
		t.Error("Expected parse error")
	}
}

func TestLoadFile_EmptyPathUsesDefaults(t *testing.T) {
	cfg, err := LoadFile("")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if cfg.Engine.CacheRoot == "" {
		t.Error("Expected a default cache root")
	}
}

func TestLoadFile_MissingFile(t *testing.T) {
	if _, err := LoadFile("/does/not/exist.yaml"); err == nil {
		t.Error("Expected error for missing file")
	}
}
