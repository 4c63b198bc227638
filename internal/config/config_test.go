package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "statetree.yaml"))
	if err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	def := Default()
	if cfg.MaxNodes != def.MaxNodes || cfg.MaxDepth != def.MaxDepth ||
		cfg.StabilityThreshold != def.StabilityThreshold || cfg.DBPath != def.DBPath {
		t.Fatalf("config = %+v, want defaults", cfg)
	}
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "statetree.yaml")
	if err := os.WriteFile(path, []byte("max_depth: 4\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.MaxDepth != 4 {
		t.Fatalf("max_depth = %d, want 4", cfg.MaxDepth)
	}
	if cfg.MaxNodes != Default().MaxNodes || cfg.DBPath != Default().DBPath {
		t.Fatalf("defaults lost: %+v", cfg)
	}
}

func TestLoadFullFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "statetree.yaml")
	yaml := `max_nodes: 50
max_depth: 5
stability_threshold: 0.8
db_path: trees/run.db
vitality:
  weights:
    flow: 2
  default_weight: 1
`
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	tc := cfg.TreeConfig()
	if tc.MaxNodes != 50 || tc.MaxDepth != 5 || tc.StabilityThreshold != 0.8 {
		t.Fatalf("tree config = %+v", tc)
	}
	if cfg.DBPath != "trees/run.db" {
		t.Fatalf("db_path = %s", cfg.DBPath)
	}

	// weighted deriver: (0.9*2 + 0.3*1) / 3 = 0.7
	v := cfg.VitalityFunc()(map[string]float64{"flow": 0.9, "pattern": 0.3})
	if math.Abs(v-0.7) > 1e-9 {
		t.Fatalf("weighted vitality = %v, want 0.7", v)
	}
}

func TestLoadRejectsBadBounds(t *testing.T) {
	path := filepath.Join(t.TempDir(), "statetree.yaml")
	if err := os.WriteFile(path, []byte("max_nodes: -1\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for negative bounds")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("STATETREE_CONFIG", "/etc/statetree.yaml")
	if Path() != "/etc/statetree.yaml" {
		t.Fatalf("Path() = %s", Path())
	}

	t.Setenv("STATETREE_DB", "/var/run/other.db")
	cfg := Default()
	if cfg.ResolveDBPath() != "/var/run/other.db" {
		t.Fatalf("ResolveDBPath() = %s", cfg.ResolveDBPath())
	}
}

func TestDefaultVitalityIsMean(t *testing.T) {
	v := Default().VitalityFunc()(map[string]float64{"flow": 0.4, "energy": 0.8})
	if math.Abs(v-0.6) > 1e-9 {
		t.Fatalf("mean vitality = %v, want 0.6", v)
	}
}
