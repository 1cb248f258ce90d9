package scoring

// Score curve breakpoints. These are contract constants shared by training
// and inference; changing any of them is a backward-incompatible change that
// requires bumping the score version string.
const (
	// curveFastRatio is the ratio at and below which a solve scores 100.
	curveFastRatio = 0.70

	// curveSlowRatio is the ratio at and above which a solve scores 0.
	curveSlowRatio = 1.40

	// curveMidScore is the score at exactly the baseline (ratio 1.00).
	curveMidScore = 50.0
)

// ScoreFromRatio maps ratio = effectiveTime/baseline onto a 0-100 score.
//
// The curve is piecewise linear and continuous:
//
//	r <= 0.70         -> 100
//	0.70 < r < 1.00   -> 100 down to 50
//	1.00 <= r < 1.40  -> 50 down to 0
//	r >= 1.40         -> 0
//
// Non-positive ratios score 100; this guards against a zero or negative
// baseline ever producing a nonsense score.
func ScoreFromRatio(r float64) float64 {
	if r <= 0 {
		return 100.0
	}

	if r <= curveFastRatio {
		return 100.0
	}

	if r >= curveSlowRatio {
		return 0.0
	}

	if r < 1.0 {
		t := (r - curveFastRatio) / (1.0 - curveFastRatio)

		return 100.0 + t*(curveMidScore-100.0)
	}

	t := (r - 1.0) / (curveSlowRatio - 1.0)

	return curveMidScore + t*(0.0-curveMidScore)
}

// ClampScore bounds a predicted score to the valid [0, 100] range.
func ClampScore(s float64) float64 {
	if s < 0 {
		return 0
	}

	if s > 100 {
		return 100
	}

	return s
}

// LabelScore computes the training label for a solve: the score curve applied
// to the solve's ratio against its personal baseline. The baseline must be
// positive.
func LabelScore(effectiveMs int, baselineMs float64) float64 {
	r := float64(effectiveMs) / baselineMs

	return ClampScore(ScoreFromRatio(r))
}
