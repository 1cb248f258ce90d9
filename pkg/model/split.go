package model

import (
	"math"
	"math/rand"
)

// SplitIndices produces a reproducible train/validation index split. The
// same n, fraction and seed always yield the same split, which keeps retrain
// runs comparable across invocations.
func SplitIndices(n int, valFraction float64, seed int64) (train, val []int) {
	if n <= 0 {
		return nil, nil
	}

	perm := rand.New(rand.NewSource(seed)).Perm(n)

	nVal := int(math.Round(float64(n) * valFraction))
	if nVal >= n {
		nVal = n - 1
	}

	if nVal < 1 && n > 1 {
		nVal = 1
	}

	return perm[nVal:], perm[:nVal]
}
