package replay

import (
	"testing"

	"github.com/danielpatrickdp/statetree/internal/tree"
)

func scriptOps() []Op {
	return []Op{
		{Op: "create", NodeID: "A", Payload: tree.Payload{"flow": 0.8, "pattern": 0.8, "energy": 0.8}},
		{Op: "create", NodeID: "B", ParentID: "A", Payload: tree.Payload{"flow": 0.7, "pattern": 0.7, "energy": 0.7}},
		{Op: "set_active", NodeID: "A"},
		{Op: "update", NodeID: "B", Payload: tree.Payload{"energy": 0.9}},
		{Op: "transition", Kind: "recovering", Payload: tree.Payload{"flow": 0.9}},
	}
}

func TestRunBindsCreateRefs(t *testing.T) {
	results, summary := Run(tree.DefaultConfig(), scriptOps(), nil)

	if summary.Mismatches != 0 {
		t.Fatalf("mismatches = %d: %+v", summary.Mismatches, results)
	}
	if len(summary.Final.Nodes) != 2 || summary.Final.MaxDepth != 1 {
		t.Fatalf("final nodes=%d max_depth=%d, want 2 and 1", len(summary.Final.Nodes), summary.Final.MaxDepth)
	}
	if !summary.Eval.Passed {
		t.Fatalf("invariants failed: %s", summary.Eval.Reason)
	}
	if summary.Diverged() {
		t.Fatal("faithful replay reported divergence")
	}
	// the child must sit under the fresh uuid bound to "A", not under "A" itself
	child, ok := summary.Final.Node(results[1].AssignedID)
	if !ok || child.ParentID != results[0].AssignedID {
		t.Fatalf("child parent = %q, want %q", child.ParentID, results[0].AssignedID)
	}
}

func TestRunDetectsRefusalMismatch(t *testing.T) {
	ops := []Op{
		{Op: "create", NodeID: "A", ParentID: "ghost"}, // recorded as accepted, replays as not_found
	}
	results, summary := Run(tree.DefaultConfig(), ops, nil)
	if results[0].Refusal != tree.RefusalNotFound {
		t.Fatalf("refusal = %s, want not found", results[0].Refusal)
	}
	if summary.Mismatches != 1 || !summary.Diverged() {
		t.Fatalf("mismatch not detected: %+v", summary)
	}
}

func TestRunReplaysExpectedRefusals(t *testing.T) {
	cfg := tree.DefaultConfig()
	cfg.MaxNodes = 2
	ops := []Op{
		{Op: "create", NodeID: "A"},
		{Op: "create", NodeID: "B"},
		{Op: "create", NodeID: "C", ExpectRefusal: tree.RefusalCapacity},
	}
	_, summary := Run(cfg, ops, nil)
	if summary.Mismatches != 0 {
		t.Fatalf("expected refusal counted as mismatch: %+v", summary)
	}
	if summary.Refusals != 1 {
		t.Fatalf("refusals = %d, want 1", summary.Refusals)
	}
}

func TestRunChecksExpectedFinalState(t *testing.T) {
	five := 5
	_, summary := Run(tree.DefaultConfig(), scriptOps(), &Expected{NodeCount: &five})
	if len(summary.Divergence) != 1 {
		t.Fatalf("divergence = %v, want node count mismatch", summary.Divergence)
	}
	if !summary.Diverged() {
		t.Fatal("divergence not reported")
	}
}

func TestRunUnknownOp(t *testing.T) {
	_, summary := Run(tree.DefaultConfig(), []Op{{Op: "destroy"}}, nil)
	if summary.Mismatches != 1 {
		t.Fatalf("unknown op should mismatch, got %+v", summary)
	}
}
