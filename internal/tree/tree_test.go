package tree

import (
	"math"
	"testing"

	"github.com/danielpatrickdp/statetree/internal/metrics"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestEmptyTreeSnapshot(t *testing.T) {
	tr := New(DefaultConfig(), nil)
	st := tr.Snapshot()

	if st.Seq != 0 {
		t.Fatalf("seq = %d, want 0", st.Seq)
	}
	if len(st.Nodes) != 0 || st.MaxDepth != 0 {
		t.Fatalf("empty tree has %d nodes, max depth %d", len(st.Nodes), st.MaxDepth)
	}
	if st.Aggregate != metrics.AllOnes() {
		t.Fatalf("empty aggregate = %+v, want all ones", st.Aggregate)
	}
	if !st.Stable {
		t.Fatal("empty tree should be stable (score 1.0)")
	}
}

func TestCreateRootNode(t *testing.T) {
	tr := New(DefaultConfig(), nil)

	id, refusal := tr.CreateNode("", Payload{"flow": 0.5})
	if refusal != RefusalNone || id == "" {
		t.Fatalf("create refused: %s", refusal)
	}

	st := tr.Snapshot()
	if st.Seq != 1 {
		t.Fatalf("seq = %d, want 1", st.Seq)
	}
	if len(st.Nodes) != 1 || st.MaxDepth != 0 {
		t.Fatalf("nodes=%d max_depth=%d, want 1 and 0", len(st.Nodes), st.MaxDepth)
	}
	n, ok := st.Node(id)
	if !ok {
		t.Fatal("created node missing from snapshot")
	}
	if n.Metrics != metrics.AllOnes() {
		t.Fatalf("fresh node metrics = %+v, want all ones", n.Metrics)
	}
	if n.ParentID != "" || n.Depth != 0 {
		t.Fatalf("root node has parent %q depth %d", n.ParentID, n.Depth)
	}
}

func TestCreateChildTracksDepth(t *testing.T) {
	tr := New(DefaultConfig(), nil)
	root, _ := tr.CreateNode("", nil)
	child, refusal := tr.CreateNode(root, nil)
	if refusal != RefusalNone {
		t.Fatalf("child create refused: %s", refusal)
	}

	if d, ok := tr.Depth(child); !ok || d != 1 {
		t.Fatalf("child depth = %d (%v), want 1", d, ok)
	}
	if tr.MaxTreeDepth() != 1 {
		t.Fatalf("max tree depth = %d, want 1", tr.MaxTreeDepth())
	}

	st := tr.Snapshot()
	parent, _ := st.Node(root)
	if len(parent.Children) != 1 || parent.Children[0] != child {
		t.Fatalf("parent children = %v, want [%s]", parent.Children, child)
	}
}

func TestCreateRefusedAtMaxDepth(t *testing.T) {
	tr := New(DefaultConfig(), nil)

	// Chain down to the depth ceiling: depths 0..7.
	id, _ := tr.CreateNode("", nil)
	for i := 0; i < tr.Config().MaxDepth; i++ {
		next, refusal := tr.CreateNode(id, nil)
		if refusal != RefusalNone {
			t.Fatalf("create at depth %d refused: %s", i+1, refusal)
		}
		id = next
	}

	before := tr.Len()
	got, refusal := tr.CreateNode(id, nil)
	if refusal != RefusalDepth || got != "" {
		t.Fatalf("create under max-depth parent: id=%q refusal=%s, want depth refusal", got, refusal)
	}
	if tr.Len() != before {
		t.Fatalf("tree size changed on refused create: %d -> %d", before, tr.Len())
	}
}

func TestCreateRefusedAtCapacity(t *testing.T) {
	tr := New(DefaultConfig(), nil)
	for i := 0; i < tr.Config().MaxNodes; i++ {
		if _, refusal := tr.CreateNode("", nil); refusal != RefusalNone {
			t.Fatalf("create %d refused: %s", i, refusal)
		}
	}

	id, refusal := tr.CreateNode("", nil)
	if refusal != RefusalCapacity || id != "" {
		t.Fatalf("create past capacity: id=%q refusal=%s, want capacity refusal", id, refusal)
	}
	if tr.Len() != tr.Config().MaxNodes {
		t.Fatalf("tree size = %d, want %d", tr.Len(), tr.Config().MaxNodes)
	}
}

func TestCreateUnknownParentRefused(t *testing.T) {
	tr := New(DefaultConfig(), nil)
	id, refusal := tr.CreateNode("no-such-node", nil)
	if refusal != RefusalNotFound || id != "" {
		t.Fatalf("id=%q refusal=%s, want not-found refusal", id, refusal)
	}
}

func TestSetActiveNode(t *testing.T) {
	tr := New(DefaultConfig(), nil)
	id, _ := tr.CreateNode("", nil)

	var published int
	cancel := tr.Subscribe(func(TreeState) { published++ })
	defer cancel()

	if refusal := tr.SetActiveNode("no-such-node"); refusal != RefusalNotFound {
		t.Fatalf("refusal = %s, want not found", refusal)
	}
	if published != 0 {
		t.Fatal("unknown id must not publish a snapshot")
	}

	if refusal := tr.SetActiveNode(id); refusal != RefusalNone {
		t.Fatalf("set active refused: %s", refusal)
	}
	if published != 1 {
		t.Fatalf("published %d snapshots, want 1", published)
	}
	if tr.Snapshot().ActiveNodeID != id {
		t.Fatal("active node not recorded in snapshot")
	}
}

func TestUpdateNodeStateMergesAndRecomputes(t *testing.T) {
	tr := New(DefaultConfig(), nil)
	id, _ := tr.CreateNode("", Payload{"flow": 0.2, "pattern": 0.4})

	if refusal := tr.UpdateNodeState(id, Payload{"flow": 0.8, "energy": 0.8}); refusal != RefusalNone {
		t.Fatalf("update refused: %s", refusal)
	}

	n, _ := tr.Snapshot().Node(id)
	if !almostEqual(n.Payload["flow"], 0.8) || !almostEqual(n.Payload["pattern"], 0.4) || !almostEqual(n.Payload["energy"], 0.8) {
		t.Fatalf("merged payload = %v", n.Payload)
	}

	// vitality = (0.8+0.4+0.8)/3 at depth 0
	v := (0.8 + 0.4 + 0.8) / 3.0
	if !almostEqual(n.Metrics.Stability, v) {
		t.Fatalf("stability = %v, want %v", n.Metrics.Stability, v)
	}
	if !almostEqual(n.Metrics.Complexity, v*0.8) {
		t.Fatalf("complexity = %v, want %v", n.Metrics.Complexity, v*0.8)
	}
}

func TestUpdateUnknownNodeIsSilentNoop(t *testing.T) {
	tr := New(DefaultConfig(), nil)
	tr.CreateNode("", nil)
	before := tr.Snapshot().Seq

	if refusal := tr.UpdateNodeState("no-such-node", Payload{"flow": 1}); refusal != RefusalNotFound {
		t.Fatalf("refusal = %s, want not found", refusal)
	}
	if tr.Snapshot().Seq != before {
		t.Fatal("no-op update must not publish")
	}
}

func TestStabilityVerdictTracksVitality(t *testing.T) {
	tr := New(DefaultConfig(), nil)
	id, _ := tr.CreateNode("", nil)

	tr.UpdateNodeState(id, Payload{"flow": 0.2, "pattern": 0.2, "energy": 0.2})
	st := tr.Snapshot()
	// metrics {1, 0.16, 0.2, 0.2, 0.2} -> score 0.36
	if st.Stable {
		t.Fatalf("low-vitality tree should be unstable, score %v", st.StabilityScore)
	}
	if !almostEqual(st.StabilityScore, 0.36) {
		t.Fatalf("score = %v, want 0.36", st.StabilityScore)
	}

	tr.UpdateNodeState(id, Payload{"flow": 1, "pattern": 1, "energy": 1})
	st = tr.Snapshot()
	if !st.Stable || !almostEqual(st.StabilityScore, 1.0) {
		t.Fatalf("full-vitality tree: stable=%v score=%v", st.Stable, st.StabilityScore)
	}
}

func TestTransitionWithoutActiveNode(t *testing.T) {
	tr := New(DefaultConfig(), nil)
	tr.CreateNode("", nil)
	before := tr.Snapshot().Seq

	if refusal := tr.Transition(TransitionSettling, Payload{"flow": 0.5}); refusal != RefusalNoActive {
		t.Fatalf("refusal = %s, want no active node", refusal)
	}
	if tr.Snapshot().Seq != before {
		t.Fatal("refused transition must not publish")
	}
}

func TestTransitionCascadeAttenuates(t *testing.T) {
	tr := New(DefaultConfig(), nil)
	base := Payload{"flow": 0.5, "pattern": 0.5, "energy": 0.5}

	root, _ := tr.CreateNode("", base)
	b, _ := tr.CreateNode(root, base)
	c, _ := tr.CreateNode(root, base)
	d, _ := tr.CreateNode(b, base)
	tr.SetActiveNode(root)

	var published int
	cancel := tr.Subscribe(func(TreeState) { published++ })
	defer cancel()

	if refusal := tr.Transition(TransitionSettling, Payload{"flow": 0.9}); refusal != RefusalNone {
		t.Fatalf("transition refused: %s", refusal)
	}
	if published != 1 {
		t.Fatalf("cascade published %d snapshots, want exactly 1", published)
	}

	st := tr.Snapshot()
	active, _ := st.Node(root)
	if !almostEqual(active.Payload["flow"], 0.9) || !almostEqual(active.Payload["pattern"], 0.5) {
		t.Fatalf("active payload = %v, want merged delta only", active.Payload)
	}

	impact1 := impactFor(TransitionSettling, 1, tr.Config().MaxDepth)
	impact2 := impactFor(TransitionSettling, 2, tr.Config().MaxDepth)

	for _, id := range []string{b, c} {
		n, _ := st.Node(id)
		if !almostEqual(n.Payload["flow"], 0.5+impact1) {
			t.Fatalf("depth-1 child flow = %v, want %v", n.Payload["flow"], 0.5+impact1)
		}
		if !almostEqual(n.Payload["energy"], 0.5+impact1) {
			t.Fatalf("depth-1 child energy = %v, want %v", n.Payload["energy"], 0.5+impact1)
		}
	}

	grand, _ := st.Node(d)
	if !almostEqual(grand.Payload["flow"], 0.5+impact2) {
		t.Fatalf("depth-2 child flow = %v, want %v", grand.Payload["flow"], 0.5+impact2)
	}
	if math.Abs(impact2) >= math.Abs(impact1) {
		t.Fatalf("impact did not attenuate: |%v| >= |%v|", impact2, impact1)
	}
}

func TestTransitionClampsPayloadFields(t *testing.T) {
	tr := New(DefaultConfig(), nil)
	root, _ := tr.CreateNode("", Payload{"flow": 0.5})
	tr.CreateNode(root, Payload{"flow": 0.01})
	tr.SetActiveNode(root)

	tr.Transition(TransitionSettling, nil)

	st := tr.Snapshot()
	for _, n := range st.Nodes {
		for k, v := range n.Payload {
			if v < 0 || v > 1 {
				t.Fatalf("node %s field %s = %v out of [0,1]", n.ID, k, v)
			}
		}
	}
}

func TestSnapshotImmutability(t *testing.T) {
	tr := New(DefaultConfig(), nil)
	id, _ := tr.CreateNode("", Payload{"flow": 0.3})

	st1 := tr.Snapshot()
	tr.UpdateNodeState(id, Payload{"flow": 0.9})
	tr.CreateNode(id, nil)

	if st1.Seq != 1 || len(st1.Nodes) != 1 {
		t.Fatalf("earlier snapshot changed shape: seq=%d nodes=%d", st1.Seq, len(st1.Nodes))
	}
	if !almostEqual(st1.Nodes[0].Payload["flow"], 0.3) {
		t.Fatalf("earlier snapshot payload mutated: %v", st1.Nodes[0].Payload)
	}
	if len(st1.Nodes[0].Children) != 0 {
		t.Fatal("earlier snapshot grew children")
	}
}

func TestObserversSeeMutationsInOrder(t *testing.T) {
	tr := New(DefaultConfig(), nil)

	var first, second []uint64
	cancelFirst := tr.Subscribe(func(st TreeState) { first = append(first, st.Seq) })
	cancelSecond := tr.Subscribe(func(st TreeState) { second = append(second, st.Seq) })
	defer cancelSecond()

	id, _ := tr.CreateNode("", nil)
	tr.SetActiveNode(id)
	tr.UpdateNodeState(id, Payload{"flow": 0.5})

	want := []uint64{1, 2, 3}
	for i, w := range want {
		if first[i] != w || second[i] != w {
			t.Fatalf("observer sequences diverged: %v / %v", first, second)
		}
	}

	cancelFirst()
	tr.UpdateNodeState(id, Payload{"flow": 0.6})
	if len(first) != 3 {
		t.Fatal("cancelled observer still notified")
	}
	if len(second) != 4 {
		t.Fatalf("live observer missed a publication: %v", second)
	}
}

func TestConfigDefaultsApplied(t *testing.T) {
	tr := New(Config{}, nil)
	cfg := tr.Config()
	def := DefaultConfig()
	if cfg != def {
		t.Fatalf("config = %+v, want defaults %+v", cfg, def)
	}
}
