package scoring

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/stat"
)

// Feature names. The canonical order below is part of the serialized model
// contract: every trained artifact records the order it was fitted with, and
// changing it invalidates those artifacts.
const (
	FeatureEffectiveTimeMs   = "effective_time_ms"
	FeatureHasPlus2          = "has_plus2"
	FeatureAo5Ms             = "ao5_ms"
	FeatureAo12Ms            = "ao12_ms"
	FeatureBaseline50Ms      = "baseline50_ms"
	FeatureStd10Ms           = "std10_ms"
	FeatureRatioVsBaseline   = "ratio_vs_baseline"
	FeatureDeltaVsBaselineMs = "delta_vs_baseline_ms"
	FeatureSkillPriorMs      = "skill_prior_ms"
	FeatureNumMoves          = "num_moves"
	FeatureSolveIndex        = "solve_index"
)

// FeatureOrder is the canonical feature ordering used when no artifact-level
// order is in play.
var FeatureOrder = []string{
	FeatureEffectiveTimeMs,
	FeatureHasPlus2,
	FeatureAo5Ms,
	FeatureAo12Ms,
	FeatureBaseline50Ms,
	FeatureStd10Ms,
	FeatureRatioVsBaseline,
	FeatureDeltaVsBaselineMs,
	FeatureSkillPriorMs,
	FeatureNumMoves,
	FeatureSolveIndex,
}

// ErrUnknownFeature is returned when a requested feature name is not part of
// the computed feature set. It signals a schema mismatch between a trained
// artifact and this code and must never be papered over by reordering.
var ErrUnknownFeature = errors.New("unknown feature name")

// FeatureInput carries everything needed to featurize one solve.
type FeatureInput struct {
	// EffectiveMs is this solve's effective time. Required.
	EffectiveMs int

	// History holds effective times of solves strictly earlier than this
	// one, in chronological order, DNFs excluded. Including this solve's own
	// time here leaks the label into the features.
	History []int

	// SkillPriorMs is the externally supplied expected average, if any.
	SkillPriorMs *int

	// HasPlus2 is 1 when the solve carries a "+2" penalty.
	HasPlus2 int

	// NumMoves is the solution move count, if known.
	NumMoves *int

	// SolveIndex is the 1-based position of this solve within the user's
	// full solve sequence, DNFs included.
	SolveIndex int
}

// Features maps feature names to values. All 11 fields are always present.
type Features map[string]float64

// BuildFeatures derives the fixed 11-field feature set for one solve. Missing
// inputs are filled through a fixed fallback chain so the result is fully
// defined even for a user's very first solve; the chain must stay identical
// between dataset building and inference.
func BuildFeatures(in FeatureInput) Features {
	ao5, ao5OK := meanLast(in.History, 5)
	ao12, ao12OK := meanLast(in.History, 12)
	std10 := stdLast(in.History, 10)

	baseline, ok := BaselineMs(in.History, in.SkillPriorMs)
	if !ok {
		if in.SkillPriorMs != nil {
			baseline = float64(*in.SkillPriorMs)
		} else {
			baseline = float64(in.EffectiveMs)
		}
	}

	// A non-positive baseline (possible only with degenerate input, e.g. a
	// zero effective time anchoring its own baseline) would make the ratio
	// and delta features NaN or infinite. Every field must stay defined.
	if baseline <= 0 {
		baseline = 1
	}

	if !ao5OK {
		ao5 = baseline
	}

	if !ao12OK {
		ao12 = ao5
	}

	prior := baseline
	if in.SkillPriorMs != nil {
		prior = float64(*in.SkillPriorMs)
	}

	numMoves := 0.0
	if in.NumMoves != nil {
		numMoves = float64(*in.NumMoves)
	}

	return Features{
		FeatureEffectiveTimeMs:   float64(in.EffectiveMs),
		FeatureHasPlus2:          float64(in.HasPlus2),
		FeatureAo5Ms:             ao5,
		FeatureAo12Ms:            ao12,
		FeatureBaseline50Ms:      baseline,
		FeatureStd10Ms:           std10,
		FeatureRatioVsBaseline:   float64(in.EffectiveMs) / baseline,
		FeatureDeltaVsBaselineMs: float64(in.EffectiveMs) - baseline,
		FeatureSkillPriorMs:      prior,
		FeatureNumMoves:          numMoves,
		FeatureSolveIndex:        float64(in.SolveIndex),
	}
}

// Vector assembles the feature values in the given order, typically the order
// recorded inside a trained artifact. A name this code does not produce fails
// loudly rather than silently mis-aligning features to model weights.
func (f Features) Vector(order []string) ([]float64, error) {
	vec := make([]float64, len(order))

	for i, name := range order {
		v, ok := f[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownFeature, name)
		}

		vec[i] = v
	}

	return vec, nil
}

// meanLast returns the arithmetic mean of the trailing n entries.
func meanLast(xs []int, n int) (float64, bool) {
	if len(xs) == 0 {
		return 0, false
	}

	if len(xs) > n {
		xs = xs[len(xs)-n:]
	}

	window := make([]float64, len(xs))
	for i, x := range xs {
		window[i] = float64(x)
	}

	return stat.Mean(window, nil), true
}

// stdLast returns the Bessel-corrected sample standard deviation of the
// trailing n entries, or 0 when fewer than two are available.
func stdLast(xs []int, n int) float64 {
	if len(xs) < 2 {
		return 0
	}

	if len(xs) > n {
		xs = xs[len(xs)-n:]
	}

	window := make([]float64, len(xs))
	for i, x := range xs {
		window[i] = float64(x)
	}

	return stat.StdDev(window, nil)
}
