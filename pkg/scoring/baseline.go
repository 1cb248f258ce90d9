package scoring

import "sort"

const (
	// baselineMinHistory is how many prior solves are required before the
	// personal history is trusted over an external skill prior.
	baselineMinHistory = 10

	// baselineWindow is the rolling window the baseline median is taken over.
	baselineWindow = 50
)

// BaselineMs estimates the personal baseline time a solve is judged against.
//
// Policy, in priority order:
//  1. history has >= 10 entries: median of the most recent 50 (or all, if
//     fewer are available)
//  2. a skill prior exists: the prior
//  3. history is non-empty: median of what there is
//  4. otherwise: undefined (second return value false)
//
// The history must contain only effective times of solves strictly earlier
// than the one being judged.
func BaselineMs(history []int, skillPriorMs *int) (float64, bool) {
	if len(history) >= baselineMinHistory {
		window := history
		if len(window) > baselineWindow {
			window = window[len(window)-baselineWindow:]
		}

		return median(window), true
	}

	if skillPriorMs != nil {
		return float64(*skillPriorMs), true
	}

	if len(history) > 0 {
		return median(history), true
	}

	return 0, false
}

// median returns the sample median: the middle element for odd-length input,
// the mean of the two middle elements for even-length input.
func median(xs []int) float64 {
	sorted := make([]float64, len(xs))
	for i, x := range xs {
		sorted[i] = float64(x)
	}

	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}

	return (sorted[mid-1] + sorted[mid]) / 2
}
