package metrics

// #region vector

// Vector is the per-node metrics vector. Every coordinate is confined to
// [0,1] by construction: each formula that produces one clamps its output.
type Vector struct {
	Depth      float64 `json:"depth"`
	Complexity float64 `json:"complexity"`
	Stability  float64 `json:"stability"`
	Efficiency float64 `json:"efficiency"`
	Coherence  float64 `json:"coherence"`
}

// AllOnes returns the default vector: maximally healthy. Used for freshly
// created nodes and as the aggregate of an empty tree.
func AllOnes() Vector {
	return Vector{Depth: 1, Complexity: 1, Stability: 1, Efficiency: 1, Coherence: 1}
}

// #endregion vector

// #region clamp

// Clamp01 confines x to [0,1].
func Clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

// #endregion clamp

// #region derive

// Derive computes a node's metrics from its vitality scalar and depth.
// Deeper nodes decay monotonically in stability/efficiency/coherence while
// complexity grows mildly with depth and scales mainly with vitality.
func Derive(vitality float64, depth, maxDepth int) Vector {
	v := Clamp01(vitality)
	d := float64(depth)
	md := float64(maxDepth)

	depthFactor := 1 - d/md
	if depthFactor < 0.5 {
		depthFactor = 0.5
	}

	return Vector{
		Depth:      depthFactor,
		Complexity: Clamp01(d*0.2 + v*0.8),
		Stability:  v * depthFactor,
		Efficiency: Clamp01((1 - d/md) * v),
		Coherence:  Clamp01(v * depthFactor),
	}
}

// #endregion derive

// #region aggregate

// Aggregate returns the element-wise mean of the given vectors, each
// coordinate capped at 1 (clamped, not normalized, so a mean that drifts
// above 1 through floating error is simply capped). Empty input yields
// AllOnes.
func Aggregate(vs []Vector) Vector {
	if len(vs) == 0 {
		return AllOnes()
	}
	var sum Vector
	for _, v := range vs {
		sum.Depth += v.Depth
		sum.Complexity += v.Complexity
		sum.Stability += v.Stability
		sum.Efficiency += v.Efficiency
		sum.Coherence += v.Coherence
	}
	n := float64(len(vs))
	return Vector{
		Depth:      capOne(sum.Depth / n),
		Complexity: capOne(sum.Complexity / n),
		Stability:  capOne(sum.Stability / n),
		Efficiency: capOne(sum.Efficiency / n),
		Coherence:  capOne(sum.Coherence / n),
	}
}

func capOne(x float64) float64 {
	if x > 1 {
		return 1
	}
	return x
}

// #endregion aggregate
