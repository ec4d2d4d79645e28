// Package config loads the application configuration: logging, metrics,
// engine tuning, installation requirements, artifact sources, and the
// history database location.
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/toolforge/toolforge/pkg/adapters"
	"github.com/toolforge/toolforge/pkg/engine"
	"github.com/toolforge/toolforge/pkg/history"
	"github.com/toolforge/toolforge/pkg/resource"
	"github.com/toolforge/toolforge/pkg/telemetry"
)

// Config is the full application configuration.
type Config struct {
	// CatalogPath points at the component catalog document.
	CatalogPath string `json:"catalog_path,omitempty" yaml:"catalog_path,omitempty"`

	// InstallPath is the volume the disk checks are sized against.
	InstallPath string `json:"install_path,omitempty" yaml:"install_path,omitempty"`

	Logging telemetry.LoggingConfig `json:"logging,omitempty" yaml:"logging,omitempty"`
	Metrics telemetry.MetricsConfig `json:"metrics,omitempty" yaml:"metrics,omitempty"`
	Engine  engine.Config           `json:"engine,omitempty" yaml:"engine,omitempty"`
	History history.Config          `json:"history,omitempty" yaml:"history,omitempty"`

	// Requirements maps component IDs to their host resource needs.
	Requirements map[string]resource.Requirement `json:"requirements,omitempty" yaml:"requirements,omitempty" validate:"dive"`

	// Artifacts maps component target names to release-artifact sources.
	Artifacts map[string]adapters.ArtifactSource `json:"artifacts,omitempty" yaml:"artifacts,omitempty" validate:"dive"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Default returns the configuration used when no file is given. Paths live
// under the user's home directory, or the working directory when the home
// cannot be determined.
func Default() Config {
	base := "."
	if home, err := os.UserHomeDir(); err == nil {
		base = filepath.Join(home, ".toolforge")
	}
	return Config{
		CatalogPath: filepath.Join(base, "catalog.yaml"),
		InstallPath: "/",
		Engine: engine.Config{
			CacheRoot: filepath.Join(base, "cache"),
		},
		History: history.Config{
			Path: filepath.Join(base, "history.db"),
		},
	}
}

// Load reads a YAML configuration document. Fields absent from the
// document keep their defaults.
func Load(r io.Reader) (Config, error) {
	cfg := Default()

	data, err := io.ReadAll(r)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := validate.Struct(&cfg); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadFile loads the configuration from path. An empty path returns the
// defaults.
func LoadFile(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return Default(), fmt.Errorf("failed to open config %s: %w", path, err)
	}
	defer f.Close()
	return Load(f)
}
