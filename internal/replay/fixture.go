package replay

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/danielpatrickdp/statetree/internal/tree"
)

// #region fixture-types

// Fixture is the top-level JSON structure for a replay fixture.
type Fixture struct {
	Description string        `json:"description"`
	Config      FixtureConfig `json:"config"`
	Ops         []FixtureOp   `json:"ops"`
	Expected    *Expected     `json:"expected,omitempty"`
}

// FixtureConfig mirrors tree.Config with JSON tags. Zero values fall back to
// the tree defaults.
type FixtureConfig struct {
	MaxNodes           int     `json:"max_nodes"`
	MaxDepth           int     `json:"max_depth"`
	StabilityThreshold float64 `json:"stability_threshold"`
}

// FixtureOp mirrors Op with JSON tags.
type FixtureOp struct {
	Op            string             `json:"op"`
	NodeID        string             `json:"node_id,omitempty"`
	ParentID      string             `json:"parent_id,omitempty"`
	Kind          string             `json:"kind,omitempty"`
	Payload       map[string]float64 `json:"payload,omitempty"`
	ExpectRefusal string             `json:"expect_refusal,omitempty"`
}

// Expected pins final-state facts the replay must reproduce. Nil fields are
// not checked.
type Expected struct {
	NodeCount *int     `json:"node_count,omitempty"`
	MaxDepth  *int     `json:"max_depth,omitempty"`
	Stable    *bool    `json:"stable,omitempty"`
	MinScore  *float64 `json:"min_score,omitempty"`
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads and parses a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return &f, nil
}

// ToTreeConfig converts a FixtureConfig to a domain tree.Config.
func (fc FixtureConfig) ToTreeConfig() tree.Config {
	def := tree.DefaultConfig()
	cfg := tree.Config{
		MaxNodes:           fc.MaxNodes,
		MaxDepth:           fc.MaxDepth,
		StabilityThreshold: fc.StabilityThreshold,
	}
	if cfg.MaxNodes <= 0 {
		cfg.MaxNodes = def.MaxNodes
	}
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = def.MaxDepth
	}
	if cfg.StabilityThreshold <= 0 {
		cfg.StabilityThreshold = def.StabilityThreshold
	}
	return cfg
}

// ToOp converts a FixtureOp to a domain Op.
func (fo FixtureOp) ToOp() Op {
	return Op{
		Op:            fo.Op,
		NodeID:        fo.NodeID,
		ParentID:      fo.ParentID,
		Kind:          fo.Kind,
		Payload:       tree.Payload(fo.Payload),
		ExpectRefusal: tree.Refusal(fo.ExpectRefusal),
	}
}

// ToOps converts the whole fixture op list.
func (f *Fixture) ToOps() []Op {
	ops := make([]Op, 0, len(f.Ops))
	for _, fo := range f.Ops {
		ops = append(ops, fo.ToOp())
	}
	return ops
}

// #endregion fixture-loader

// #region expected-diff

// diff compares the pinned expectations to the replayed final state.
func (e *Expected) diff(final tree.TreeState) []string {
	var out []string
	if e.NodeCount != nil && len(final.Nodes) != *e.NodeCount {
		out = append(out, fmt.Sprintf("node count %d, expected %d", len(final.Nodes), *e.NodeCount))
	}
	if e.MaxDepth != nil && final.MaxDepth != *e.MaxDepth {
		out = append(out, fmt.Sprintf("max depth %d, expected %d", final.MaxDepth, *e.MaxDepth))
	}
	if e.Stable != nil && final.Stable != *e.Stable {
		out = append(out, fmt.Sprintf("stable %v, expected %v", final.Stable, *e.Stable))
	}
	if e.MinScore != nil && final.StabilityScore < *e.MinScore {
		out = append(out, fmt.Sprintf("score %.4f below expected minimum %.4f", final.StabilityScore, *e.MinScore))
	}
	return out
}

// #endregion expected-diff
