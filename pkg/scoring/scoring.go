// Package scoring contains the pure domain logic for turning a timed solve
// into a normalized 0-100 performance score: penalty handling, the personal
// baseline estimate, the score curve and the model feature derivations.
package scoring

// Penalty is the judging outcome attached to a solve.
type Penalty string

const (
	// PenaltyOK marks a clean solve.
	PenaltyOK Penalty = "OK"

	// PenaltyPlus2 adds two seconds to the raw time.
	PenaltyPlus2 Penalty = "+2"

	// PenaltyDNF marks a solve that did not finish.
	PenaltyDNF Penalty = "DNF"
)

// plus2PenaltyMs is the time added by a "+2" penalty.
const plus2PenaltyMs = 2000

// EffectiveTimeMs converts a raw solve time plus penalty into the effective
// time used everywhere downstream. The second return value is false when the
// effective time is undefined (DNF or missing raw time).
func EffectiveTimeMs(timeMs *int, penalty Penalty) (int, bool) {
	if timeMs == nil {
		return 0, false
	}

	switch penalty {
	case PenaltyDNF:
		return 0, false
	case PenaltyPlus2:
		return *timeMs + plus2PenaltyMs, true
	default:
		return *timeMs, true
	}
}
