package eval

import (
	"fmt"
	"math"

	"github.com/danielpatrickdp/statetree/internal/metrics"
	"github.com/danielpatrickdp/statetree/internal/stability"
	"github.com/danielpatrickdp/statetree/internal/tree"
)

// #region harness

// Harness validates a published snapshot against the structural invariants:
// bounded size and depth, consistent parent/child links, maintained depths,
// confined metrics, and a verdict that matches the aggregate.
type Harness struct {
	config    tree.Config
	evaluator *stability.Evaluator
}

// NewHarness creates a harness for trees built with the given config.
func NewHarness(config tree.Config) *Harness {
	evalConfig := stability.DefaultConfig()
	if config.StabilityThreshold > 0 {
		evalConfig.Threshold = config.StabilityThreshold
	}
	return &Harness{config: config, evaluator: stability.NewEvaluator(evalConfig)}
}

// Run checks every invariant on the snapshot. Returns pass/fail with one
// Check per invariant; Reason names the first failure.
func (h *Harness) Run(s tree.TreeState) Result {
	var checks []Check
	add := func(name string, pass bool, detail string) {
		checks = append(checks, Check{Name: name, Pass: pass, Detail: detail})
	}

	byID := make(map[string]tree.Node, len(s.Nodes))
	for _, n := range s.Nodes {
		byID[n.ID] = n
	}

	// 1. Node count bound
	add("node_count", len(s.Nodes) <= h.config.MaxNodes,
		fmt.Sprintf("%d of %d", len(s.Nodes), h.config.MaxNodes))

	// 2. Parent/child link consistency: every parent resolves, every node
	// appears in exactly the child list of the parent it names.
	linksOK := true
	linkDetail := ""
	childOf := make(map[string]string) // child id -> parent id that lists it
	for _, n := range s.Nodes {
		for _, c := range n.Children {
			if prev, dup := childOf[c]; dup {
				linksOK = false
				linkDetail = fmt.Sprintf("node %s listed under both %s and %s", c, prev, n.ID)
			}
			childOf[c] = n.ID
		}
	}
	for _, n := range s.Nodes {
		if n.ParentID == "" {
			if p, listed := childOf[n.ID]; listed {
				linksOK = false
				linkDetail = fmt.Sprintf("root %s listed as child of %s", n.ID, p)
			}
			continue
		}
		if _, ok := byID[n.ParentID]; !ok {
			linksOK = false
			linkDetail = fmt.Sprintf("node %s has dangling parent %s", n.ID, n.ParentID)
			continue
		}
		if childOf[n.ID] != n.ParentID {
			linksOK = false
			linkDetail = fmt.Sprintf("node %s not listed under its parent %s", n.ID, n.ParentID)
		}
	}
	add("parent_links", linksOK, linkDetail)

	// 3. Depth maintenance: roots at 0, children at parent+1, all within bound
	depthsOK := true
	depthDetail := ""
	maxDepth := 0
	for _, n := range s.Nodes {
		want := 0
		if n.ParentID != "" {
			if p, ok := byID[n.ParentID]; ok {
				want = p.Depth + 1
			}
		}
		if n.Depth != want {
			depthsOK = false
			depthDetail = fmt.Sprintf("node %s depth %d, want %d", n.ID, n.Depth, want)
		}
		if n.Depth > h.config.MaxDepth {
			depthsOK = false
			depthDetail = fmt.Sprintf("node %s depth %d exceeds %d", n.ID, n.Depth, h.config.MaxDepth)
		}
		if n.Depth > maxDepth {
			maxDepth = n.Depth
		}
	}
	add("depths", depthsOK, depthDetail)

	// 4. Derived max depth field
	add("max_depth_field", s.MaxDepth == maxDepth,
		fmt.Sprintf("field %d, computed %d", s.MaxDepth, maxDepth))

	// 5. Metric confinement: every coordinate finite and in [0,1]
	boundsOK := true
	boundsDetail := ""
	vectors := make([]metrics.Vector, 0, len(s.Nodes)+1)
	for _, n := range s.Nodes {
		vectors = append(vectors, n.Metrics)
	}
	vectors = append(vectors, s.Aggregate)
	for i, v := range vectors {
		coords := []struct {
			name string
			x    float64
		}{
			{"depth", v.Depth},
			{"complexity", v.Complexity},
			{"stability", v.Stability},
			{"efficiency", v.Efficiency},
			{"coherence", v.Coherence},
		}
		for _, c := range coords {
			if math.IsNaN(c.x) || math.IsInf(c.x, 0) || c.x < 0 || c.x > 1 {
				boundsOK = false
				boundsDetail = fmt.Sprintf("vector %d %s=%v out of [0,1]", i, c.name, c.x)
			}
		}
	}
	add("metric_bounds", boundsOK, boundsDetail)

	// 6. Verdict matches the aggregate
	verdict := h.evaluator.Evaluate(s.Aggregate)
	verdictOK := verdict.Stable == s.Stable && math.Abs(verdict.Score-s.StabilityScore) < 1e-9
	add("verdict", verdictOK,
		fmt.Sprintf("snapshot stable=%v score=%.4f, recomputed stable=%v score=%.4f",
			s.Stable, s.StabilityScore, verdict.Stable, verdict.Score))

	passed := true
	reason := "all checks passed"
	for _, c := range checks {
		if !c.Pass {
			passed = false
			reason = fmt.Sprintf("invariant %s failed: %s", c.Name, c.Detail)
			break
		}
	}
	return Result{Passed: passed, Checks: checks, Reason: reason}
}

// #endregion harness
