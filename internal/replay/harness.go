package replay

import (
	"fmt"

	"github.com/danielpatrickdp/statetree/internal/eval"
	"github.com/danielpatrickdp/statetree/internal/tree"
)

// #region types

// Op is a single recorded operation for replay. NodeID and ParentID are
// references: for "create" ops NodeID names the id the new node binds to, so
// later ops can target it even though replay allocates fresh uuids.
type Op struct {
	Op            string       // "create" | "set_active" | "update" | "transition"
	NodeID        string
	ParentID      string
	Kind          string       // transition kind, for op == "transition"
	Payload       tree.Payload
	ExpectRefusal tree.Refusal // what the recorded run observed
}

// OpResult captures the outcome of replaying one op.
type OpResult struct {
	Index      int
	Op         string
	AssignedID string       // fresh id, for create ops that succeeded
	Refusal    tree.Refusal
	Match      bool         // refusal matched the expectation
}

// Summary aggregates a replay run.
type Summary struct {
	TotalOps   int
	Refusals   int
	Mismatches int
	Final      tree.TreeState
	Eval       eval.Result
	Divergence []string // expected-vs-replayed differences, empty when faithful
}

// Diverged reports whether the replay differed from the recording in any way.
func (s Summary) Diverged() bool {
	return s.Mismatches > 0 || len(s.Divergence) > 0 || !s.Eval.Passed
}

// #endregion types

// #region run

// Run replays ops against a fresh in-memory tree built with config, checks
// each op's refusal against the recording, and finishes with an invariant
// pass over the final snapshot. Operates entirely in-memory.
func Run(config tree.Config, ops []Op, expected *Expected) ([]OpResult, Summary) {
	t := tree.New(config, nil)
	ids := make(map[string]string) // recorded id -> replayed id
	resolve := func(ref string) string {
		if mapped, ok := ids[ref]; ok {
			return mapped
		}
		return ref
	}

	results := make([]OpResult, 0, len(ops))
	summary := Summary{TotalOps: len(ops)}

	for i, op := range ops {
		r := OpResult{Index: i, Op: op.Op}
		switch op.Op {
		case "create":
			id, refusal := t.CreateNode(resolve(op.ParentID), op.Payload)
			r.AssignedID = id
			r.Refusal = refusal
			if id != "" && op.NodeID != "" {
				ids[op.NodeID] = id
			}
		case "set_active":
			r.Refusal = t.SetActiveNode(resolve(op.NodeID))
		case "update":
			r.Refusal = t.UpdateNodeState(resolve(op.NodeID), op.Payload)
		case "transition":
			r.Refusal = t.Transition(tree.TransitionKind(op.Kind), op.Payload)
		default:
			r.Refusal = tree.Refusal(fmt.Sprintf("unknown_op:%s", op.Op))
		}

		r.Match = r.Refusal == op.ExpectRefusal
		if r.Refusal != tree.RefusalNone {
			summary.Refusals++
		}
		if !r.Match {
			summary.Mismatches++
		}
		results = append(results, r)
	}

	summary.Final = t.Snapshot()
	summary.Eval = eval.NewHarness(t.Config()).Run(summary.Final)
	if expected != nil {
		summary.Divergence = expected.diff(summary.Final)
	}
	return results, summary
}

// #endregion run
