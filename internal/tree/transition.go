package tree

// #region kinds

// TransitionKind names a cascade profile. Unknown kinds propagate a zero
// impact (the active node's delta still applies).
type TransitionKind string

const (
	TransitionSettling   TransitionKind = "settling"
	TransitionRecovering TransitionKind = "recovering"
	TransitionExpanding  TransitionKind = "expanding"
	TransitionDissolving TransitionKind = "dissolving"
)

// #endregion kinds

// #region profiles

// transitionProfile scales the per-hop impact of one transition kind.
type transitionProfile struct {
	BaseImpact    float64 // signed magnitude before decay
	ContextFactor float64 // kind-specific damping
}

// transitionProfiles is the built-in profile table. Magnitudes are kept
// small (|base * context| <= 0.1) so cascades attenuate geometrically with
// depth instead of running away.
var transitionProfiles = map[TransitionKind]transitionProfile{
	TransitionSettling:   {BaseImpact: -0.10, ContextFactor: 0.65},
	TransitionRecovering: {BaseImpact: 0.10, ContextFactor: 0.30},
	TransitionExpanding:  {BaseImpact: 0.08, ContextFactor: 0.50},
	TransitionDissolving: {BaseImpact: -0.08, ContextFactor: 0.45},
}

// #endregion profiles

// #region impact

// depthDecay attenuates impact with distance from the root, floored at 0.3
// so deep subtrees still register transitions.
func depthDecay(depth, maxDepth int) float64 {
	f := 1 - float64(depth)/float64(maxDepth)
	if f < 0.3 {
		f = 0.3
	}
	return f
}

// impactFor computes the signed payload shift applied to a descendant at the
// given depth. Non-increasing in depth for a fixed kind.
func impactFor(kind TransitionKind, depth, maxDepth int) float64 {
	p, ok := transitionProfiles[kind]
	if !ok {
		return 0
	}
	return p.BaseImpact * depthDecay(depth, maxDepth) * p.ContextFactor
}

// #endregion impact
