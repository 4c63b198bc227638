package tree

import (
	"sync"
	"time"

	"github.com/danielpatrickdp/statetree/internal/metrics"
	"github.com/danielpatrickdp/statetree/internal/stability"
	"github.com/danielpatrickdp/statetree/internal/vitality"
	"github.com/google/uuid"
)

// #region tree-struct

// Tree owns the node arena and enforces the capacity and depth bounds.
// Single-writer, multi-reader: one mutex serializes every
// read-compute-publish cycle, observers never see a mutation in flight.
type Tree struct {
	mu        sync.Mutex
	config    Config
	derive    vitality.Func
	evaluator *stability.Evaluator

	nodes    map[string]*Node // arena, addressed by id
	order    []string         // creation order
	activeID string
	seq      uint64
	current  TreeState

	subs    []subscriber
	nextSub int
}

type subscriber struct {
	id int
	fn Observer
}

// #endregion tree-struct

// #region constructor

// New creates an empty tree. Zero-valued config fields fall back to
// DefaultConfig; a nil deriver falls back to vitality.Mean().
func New(config Config, derive vitality.Func) *Tree {
	def := DefaultConfig()
	if config.MaxNodes <= 0 {
		config.MaxNodes = def.MaxNodes
	}
	if config.MaxDepth <= 0 {
		config.MaxDepth = def.MaxDepth
	}
	if config.StabilityThreshold <= 0 {
		config.StabilityThreshold = def.StabilityThreshold
	}
	if derive == nil {
		derive = vitality.Mean()
	}

	evalConfig := stability.DefaultConfig()
	evalConfig.Threshold = config.StabilityThreshold

	t := &Tree{
		config:    config,
		derive:    derive,
		evaluator: stability.NewEvaluator(evalConfig),
		nodes:     make(map[string]*Node),
	}
	t.current = t.buildSnapshotLocked()
	return t
}

// #endregion constructor

// #region create

// CreateNode allocates a node under parentID ("" for a root) with the given
// initial payload and default all-ones metrics. Refusals are absorbed: the
// returned id is empty and the reason says why (capacity ceiling, parent at
// maximum depth, or unknown parent). Exactly one snapshot is published per
// successful call.
func (t *Tree) CreateNode(parentID string, payload Payload) (string, Refusal) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.nodes) >= t.config.MaxNodes {
		return "", RefusalCapacity
	}

	depth := 0
	var parent *Node
	if parentID != "" {
		parent = t.nodes[parentID]
		if parent == nil {
			return "", RefusalNotFound
		}
		if parent.Depth >= t.config.MaxDepth {
			return "", RefusalDepth
		}
		depth = parent.Depth + 1
	}

	n := &Node{
		ID:        uuid.New().String(),
		ParentID:  parentID,
		Depth:     depth,
		Payload:   payload.Clone(),
		Metrics:   metrics.AllOnes(),
		CreatedAt: time.Now().UTC(),
	}
	t.nodes[n.ID] = n
	t.order = append(t.order, n.ID)
	if parent != nil {
		parent.Children = append(parent.Children, n.ID)
	}

	t.publishLocked()
	return n.ID, RefusalNone
}

// #endregion create

// #region set-active

// SetActiveNode designates the focus node. Unknown ids are a silent no-op
// (no snapshot is published).
func (t *Tree) SetActiveNode(id string) Refusal {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.nodes[id]; !ok {
		return RefusalNotFound
	}
	t.activeID = id
	t.publishLocked()
	return RefusalNone
}

// #endregion set-active

// #region update

// UpdateNodeState shallowly merges partial into the node's payload and
// recomputes its metrics from the derived vitality. Unknown ids are a
// silent no-op.
func (t *Tree) UpdateNodeState(id string, partial Payload) Refusal {
	t.mu.Lock()
	defer t.mu.Unlock()

	n, ok := t.nodes[id]
	if !ok {
		return RefusalNotFound
	}
	t.applyUpdateLocked(n, partial)
	t.publishLocked()
	return RefusalNone
}

func (t *Tree) applyUpdateLocked(n *Node, partial Payload) {
	n.Payload = n.Payload.Merge(partial)
	n.Metrics = metrics.Derive(t.derive(n.Payload), n.Depth, t.config.MaxDepth)
}

// #endregion update

// #region transition

// Transition applies delta to the current active node, then cascades the
// kind's depth-decaying impact depth-first through every descendant. The
// whole cascade publishes a single snapshot. A no-op when no active node is
// set.
func (t *Tree) Transition(kind TransitionKind, delta Payload) Refusal {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.activeID == "" {
		return RefusalNoActive
	}
	active, ok := t.nodes[t.activeID]
	if !ok {
		return RefusalNotFound
	}

	t.applyUpdateLocked(active, delta)
	t.propagateLocked(active, kind)
	t.publishLocked()
	return RefusalNone
}

// propagateLocked walks the subtree depth-first pre-order, shifting every
// payload field of each descendant by the kind's impact at that depth. The
// tree is acyclic and depth-bounded, so the walk terminates in at most
// MaxDepth levels and visits each node once.
func (t *Tree) propagateLocked(n *Node, kind TransitionKind) {
	for _, childID := range n.Children {
		child, ok := t.nodes[childID]
		if !ok {
			continue
		}
		impact := impactFor(kind, child.Depth, t.config.MaxDepth)
		for k, v := range child.Payload {
			child.Payload[k] = metrics.Clamp01(v + impact)
		}
		child.Metrics = metrics.Derive(t.derive(child.Payload), child.Depth, t.config.MaxDepth)
		t.propagateLocked(child, kind)
	}
}

// #endregion transition

// #region observe

// Subscribe registers an observer for every subsequent publication.
// Observers are notified synchronously in registration order. The returned
// cancel function removes the subscription.
func (t *Tree) Subscribe(fn Observer) (cancel func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	id := t.nextSub
	t.nextSub++
	t.subs = append(t.subs, subscriber{id: id, fn: fn})

	return func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		for i, s := range t.subs {
			if s.id == id {
				t.subs = append(t.subs[:i], t.subs[i+1:]...)
				return
			}
		}
	}
}

// Snapshot returns the most recently published state.
func (t *Tree) Snapshot() TreeState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

// #endregion observe

// #region accessors

// Depth reports the maintained depth of a node.
func (t *Tree) Depth(id string) (int, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	n, ok := t.nodes[id]
	if !ok {
		return 0, false
	}
	return n.Depth, true
}

// MaxTreeDepth reports the maximum depth across all current nodes (0 for an
// empty tree).
func (t *Tree) MaxTreeDepth() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.maxDepthLocked()
}

// Len reports the current node count.
func (t *Tree) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.nodes)
}

// Config returns the bounds the tree was built with.
func (t *Tree) Config() Config {
	return t.config
}

// #endregion accessors

// #region publish

func (t *Tree) maxDepthLocked() int {
	max := 0
	for _, n := range t.nodes {
		if n.Depth > max {
			max = n.Depth
		}
	}
	return max
}

// buildSnapshotLocked deep-copies the arena into a fresh TreeState so that
// already-published snapshots are never touched by later mutations.
func (t *Tree) buildSnapshotLocked() TreeState {
	nodes := make([]Node, 0, len(t.order))
	vectors := make([]metrics.Vector, 0, len(t.order))
	for _, id := range t.order {
		n := t.nodes[id]
		cp := *n
		cp.Children = append([]string(nil), n.Children...)
		cp.Payload = n.Payload.Clone()
		nodes = append(nodes, cp)
		vectors = append(vectors, n.Metrics)
	}

	agg := metrics.Aggregate(vectors)
	verdict := t.evaluator.Evaluate(agg)

	return TreeState{
		Seq:            t.seq,
		Nodes:          nodes,
		ActiveNodeID:   t.activeID,
		MaxDepth:       t.maxDepthLocked(),
		Aggregate:      agg,
		Stable:         verdict.Stable,
		StabilityScore: verdict.Score,
	}
}

func (t *Tree) publishLocked() {
	t.seq++
	t.current = t.buildSnapshotLocked()
	for _, s := range t.subs {
		s.fn(t.current)
	}
}

// #endregion publish
