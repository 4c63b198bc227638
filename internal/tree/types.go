package tree

import (
	"time"

	"github.com/danielpatrickdp/statetree/internal/metrics"
)

// #region payload

// Payload is the opaque composite state carried by a node: a set of bounded
// scalar sub-fields (the surrounding application conventionally uses flow,
// pattern, and energy). The tree never interprets field names; it clones,
// merges, hands the payload to the vitality hook, and applies propagation
// impacts to every field.
type Payload map[string]float64

// Clone returns an independent copy of the payload.
func (p Payload) Clone() Payload {
	out := make(Payload, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Merge returns a new payload with partial's fields shallowly merged over
// p's. Fields absent from partial are retained.
func (p Payload) Merge(partial Payload) Payload {
	out := p.Clone()
	for k, v := range partial {
		out[k] = v
	}
	return out
}

// #endregion payload

// #region refusal

// Refusal is the diagnostic reason an operation was absorbed. Externally all
// refused conditions stay silent no-ops (or an absent id); the code exists so
// callers and tests can tell why without side-channel state inspection.
type Refusal string

const (
	RefusalNone     Refusal = ""
	RefusalCapacity Refusal = "capacity_exceeded"
	RefusalDepth    Refusal = "depth_exceeded"
	RefusalNotFound Refusal = "not_found"
	RefusalNoActive Refusal = "no_active_node"
)

// #endregion refusal

// #region node

// Node is one element of the managed tree. Depth is maintained incrementally
// at creation time (parent depth + 1) rather than recomputed by walking the
// parent chain.
type Node struct {
	ID        string         `json:"id"`
	ParentID  string         `json:"parent_id,omitempty"` // "" for roots
	Children  []string       `json:"children,omitempty"`  // creation order
	Depth     int            `json:"depth"`
	Payload   Payload        `json:"payload"`
	Metrics   metrics.Vector `json:"metrics"`
	CreatedAt time.Time      `json:"created_at"`
}

// #endregion node

// #region tree-state

// TreeState is the externally observable snapshot. It is rebuilt wholesale
// on every mutation and never mutated in place, so observers always hold a
// fully consistent view.
type TreeState struct {
	Seq            uint64         `json:"seq"` // publication sequence number
	Nodes          []Node         `json:"nodes"`
	ActiveNodeID   string         `json:"active_node_id,omitempty"`
	MaxDepth       int            `json:"max_depth"`
	Aggregate      metrics.Vector `json:"aggregate"`
	Stable         bool           `json:"stable"`
	StabilityScore float64        `json:"stability_score"`
}

// Node returns the node with the given id, if present in the snapshot.
func (s TreeState) Node(id string) (Node, bool) {
	for _, n := range s.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// #endregion tree-state

// #region config

// Config holds the tree bounds and the stability threshold.
type Config struct {
	MaxNodes           int     // hard ceiling on total node count
	MaxDepth           int     // creation refused once the parent sits at this depth
	StabilityThreshold float64 // weighted-score threshold for the stable verdict
}

// DefaultConfig returns the reference bounds.
func DefaultConfig() Config {
	return Config{
		MaxNodes:           100,
		MaxDepth:           7,
		StabilityThreshold: 0.7,
	}
}

// #endregion config

// #region observer

// Observer receives every published snapshot, synchronously and in mutation
// order. Callbacks run under the tree's write lock and must not re-enter the
// tree.
type Observer func(TreeState)

// #endregion observer
