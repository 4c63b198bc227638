package stability

import (
	"fmt"

	"github.com/danielpatrickdp/statetree/internal/metrics"
)

// #region weights

// Weights are the contribution of each aggregate coordinate to the stability
// score. Complexity deliberately carries no weight: it is informational, not
// a stability input. The four weights sum to 1.0.
type Weights struct {
	Depth      float64
	Stability  float64
	Efficiency float64
	Coherence  float64
}

// DefaultWeights returns the reference weighting.
func DefaultWeights() Weights {
	return Weights{
		Depth:      0.2,
		Stability:  0.3,
		Efficiency: 0.2,
		Coherence:  0.3,
	}
}

// #endregion weights

// #region config

// Config holds the threshold and weighting for the stability verdict.
type Config struct {
	Threshold float64 // score at or above which the system is stable
	Weights   Weights
}

// DefaultConfig returns the reference threshold and weights.
func DefaultConfig() Config {
	return Config{
		Threshold: 0.7,
		Weights:   DefaultWeights(),
	}
}

// #endregion config

// #region verdict

// Verdict is the output of a stability evaluation.
type Verdict struct {
	Stable bool
	Score  float64
	Reason string
}

// #endregion verdict

// #region evaluator

// Evaluator scores aggregate metrics against a fixed threshold.
type Evaluator struct {
	config Config
}

// NewEvaluator creates an evaluator with the given configuration.
func NewEvaluator(config Config) *Evaluator {
	return &Evaluator{config: config}
}

// Evaluate computes the weighted stability score of an aggregate vector and
// compares it to the threshold.
func (e *Evaluator) Evaluate(agg metrics.Vector) Verdict {
	w := e.config.Weights
	score := agg.Depth*w.Depth +
		agg.Stability*w.Stability +
		agg.Efficiency*w.Efficiency +
		agg.Coherence*w.Coherence

	stable := score >= e.config.Threshold
	state := "unstable"
	if stable {
		state = "stable"
	}
	return Verdict{
		Stable: stable,
		Score:  score,
		Reason: fmt.Sprintf("%s: score=%.4f threshold=%.4f", state, score, e.config.Threshold),
	}
}

// #endregion evaluator
