// Package config loads the CLI configuration: tree bounds, stability
// threshold, vitality weighting, and the journal database path. A missing
// file yields defaults; environment variables override the file locations.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/danielpatrickdp/statetree/internal/tree"
	"github.com/danielpatrickdp/statetree/internal/vitality"
	"gopkg.in/yaml.v3"
)

// #region types

// VitalityConfig selects how payload fields combine into the vitality
// scalar. Empty weights mean a plain mean over all fields.
type VitalityConfig struct {
	Weights       map[string]float64 `yaml:"weights,omitempty"`
	DefaultWeight float64            `yaml:"default_weight,omitempty"`
}

// Config is the on-disk configuration.
type Config struct {
	MaxNodes           int            `yaml:"max_nodes"`
	MaxDepth           int            `yaml:"max_depth"`
	StabilityThreshold float64        `yaml:"stability_threshold"`
	DBPath             string         `yaml:"db_path"`
	Vitality           VitalityConfig `yaml:"vitality"`
}

// #endregion types

// #region defaults

// Default returns the reference configuration.
func Default() Config {
	treeDef := tree.DefaultConfig()
	return Config{
		MaxNodes:           treeDef.MaxNodes,
		MaxDepth:           treeDef.MaxDepth,
		StabilityThreshold: treeDef.StabilityThreshold,
		DBPath:             "statetree.db",
	}
}

// #endregion defaults

// #region load

// Load reads the YAML config at path. A missing file is not an error: the
// defaults apply. Partial files keep defaults for omitted fields.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.MaxNodes <= 0 || cfg.MaxDepth <= 0 || cfg.StabilityThreshold <= 0 {
		return cfg, fmt.Errorf("config %s: bounds and threshold must be positive", path)
	}
	return cfg, nil
}

// Path resolves the config file location: $STATETREE_CONFIG or
// statetree.yaml in the working directory.
func Path() string {
	return envOr("STATETREE_CONFIG", "statetree.yaml")
}

// ResolveDBPath applies the $STATETREE_DB override to the configured path.
func (c Config) ResolveDBPath() string {
	return envOr("STATETREE_DB", c.DBPath)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// #endregion load

// #region conversion

// TreeConfig converts to the core tree bounds.
func (c Config) TreeConfig() tree.Config {
	return tree.Config{
		MaxNodes:           c.MaxNodes,
		MaxDepth:           c.MaxDepth,
		StabilityThreshold: c.StabilityThreshold,
	}
}

// VitalityFunc builds the configured deriver.
func (c Config) VitalityFunc() vitality.Func {
	if len(c.Vitality.Weights) == 0 {
		return vitality.Mean()
	}
	return vitality.Weighted(c.Vitality.Weights, c.Vitality.DefaultWeight)
}

// #endregion conversion
