package model

import (
	"math"
	"sort"
)

// MAE returns the mean absolute error between targets and predictions. An
// empty input yields NaN so that downstream sanity gates reject it.
func MAE(yTrue, yPred []float64) float64 {
	if len(yTrue) == 0 || len(yTrue) != len(yPred) {
		return math.NaN()
	}

	var sum float64
	for i := range yTrue {
		sum += math.Abs(yTrue[i] - yPred[i])
	}

	return sum / float64(len(yTrue))
}

// ROCAUC computes the area under the ROC curve from binary targets and
// predicted scores via the rank-sum formulation, averaging ranks across
// ties. The second return value is false when only one class is present.
func ROCAUC(yTrue, scores []float64) (float64, bool) {
	if len(yTrue) != len(scores) || len(yTrue) == 0 {
		return 0, false
	}

	var nPos, nNeg int

	for _, y := range yTrue {
		if y > 0.5 {
			nPos++
		} else {
			nNeg++
		}
	}

	if nPos == 0 || nNeg == 0 {
		return 0, false
	}

	idx := make([]int, len(scores))
	for i := range idx {
		idx[i] = i
	}

	sort.Slice(idx, func(a, b int) bool {
		return scores[idx[a]] < scores[idx[b]]
	})

	// Assign average ranks across tied scores.
	ranks := make([]float64, len(scores))

	for i := 0; i < len(idx); {
		j := i
		for j < len(idx) && scores[idx[j]] == scores[idx[i]] {
			j++
		}

		avg := float64(i+j+1) / 2.0
		for k := i; k < j; k++ {
			ranks[idx[k]] = avg
		}

		i = j
	}

	var rankSum float64

	for i, y := range yTrue {
		if y > 0.5 {
			rankSum += ranks[i]
		}
	}

	auc := (rankSum - float64(nPos)*float64(nPos+1)/2.0) /
		(float64(nPos) * float64(nNeg))

	return auc, true
}
