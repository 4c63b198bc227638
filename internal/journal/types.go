package journal

import (
	"time"

	"github.com/danielpatrickdp/statetree/internal/metrics"
)

// #region mutation
// Mutation is one row of the mutation log: the operation a caller issued and
// how the tree answered it. PayloadJSON holds the payload or delta as JSON.
type Mutation struct {
	Op          string // "create" | "set_active" | "update" | "transition"
	NodeID      string
	ParentID    string
	Kind        string // transition kind, for op == "transition"
	PayloadJSON string
	Refusal     string // "" when the operation succeeded
	CreatedAt   time.Time
}
// #endregion mutation

// #region snapshot-row
// SnapshotRow is the summary view of one recorded snapshot.
type SnapshotRow struct {
	Seq          uint64
	ActiveNodeID string
	NodeCount    int
	MaxDepth     int
	Aggregate    metrics.Vector
	Stable       bool
	Score        float64
	CreatedAt    time.Time
}
// #endregion snapshot-row
