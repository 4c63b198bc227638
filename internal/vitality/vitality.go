// Package vitality derives the scalar "vitality" of an opaque node payload.
// The tree core treats the derivation as a pluggable hook: it never inspects
// payload fields itself, it only feeds the derived scalar into the metrics
// formulas.
package vitality

import "github.com/danielpatrickdp/statetree/internal/metrics"

// #region func-type

// Func maps a payload's bounded scalar sub-fields to a vitality value in
// [0,1]. Implementations must tolerate empty payloads.
type Func func(fields map[string]float64) float64

// #endregion func-type

// #region mean

// Mean returns the default deriver: the arithmetic mean over all payload
// fields, clamped. An empty payload derives to 0.
func Mean() Func {
	return func(fields map[string]float64) float64 {
		if len(fields) == 0 {
			return 0
		}
		var sum float64
		for _, v := range fields {
			sum += v
		}
		return metrics.Clamp01(sum / float64(len(fields)))
	}
}

// #endregion mean

// #region weighted

// Weighted returns a deriver that computes a weighted mean over payload
// fields. Fields without an entry in weights use defaultWeight. A total
// weight of zero derives to 0.
func Weighted(weights map[string]float64, defaultWeight float64) Func {
	return func(fields map[string]float64) float64 {
		if len(fields) == 0 {
			return 0
		}
		var sum, total float64
		for name, v := range fields {
			w, ok := weights[name]
			if !ok {
				w = defaultWeight
			}
			sum += v * w
			total += w
		}
		if total == 0 {
			return 0
		}
		return metrics.Clamp01(sum / total)
	}
}

// #endregion weighted
