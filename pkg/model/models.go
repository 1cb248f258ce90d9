package model

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// LinearRegressor is a ridge-regularized linear model. It serializes to JSON
// with exact float64 round-tripping, so a saved and reloaded model produces
// bit-identical predictions.
type LinearRegressor struct {
	Intercept float64   `json:"intercept"`
	Weights   []float64 `json:"weights"`
}

// Predict returns the regression output for one feature vector.
func (m *LinearRegressor) Predict(x []float64) float64 {
	return m.Intercept + floats.Dot(m.Weights, x)
}

// LogisticClassifier is a binary logistic model trained by batch gradient
// descent.
type LogisticClassifier struct {
	Intercept float64   `json:"intercept"`
	Weights   []float64 `json:"weights"`
}

// PredictProba returns the probability of the positive class.
func (m *LogisticClassifier) PredictProba(x []float64) float64 {
	return sigmoid(m.Intercept + floats.Dot(m.Weights, x))
}

func sigmoid(z float64) float64 {
	return 1.0 / (1.0 + math.Exp(-z))
}

// columnStats returns per-column mean and standard deviation, with zero
// deviations mapped to one so constant columns standardize to zero.
func columnStats(x [][]float64, dims int) (mu, sigma []float64) {
	mu = make([]float64, dims)
	sigma = make([]float64, dims)

	col := make([]float64, len(x))

	for j := 0; j < dims; j++ {
		for i := range x {
			col[i] = x[i][j]
		}

		mu[j] = stat.Mean(col, nil)
		sigma[j] = stat.StdDev(col, nil)

		if sigma[j] == 0 || math.IsNaN(sigma[j]) {
			sigma[j] = 1
		}
	}

	return mu, sigma
}

// standardized builds the z-scored design matrix.
func standardized(x [][]float64, mu, sigma []float64) *mat.Dense {
	n := len(x)
	d := len(mu)
	z := mat.NewDense(n, d, nil)

	for i := 0; i < n; i++ {
		for j := 0; j < d; j++ {
			z.Set(i, j, (x[i][j]-mu[j])/sigma[j])
		}
	}

	return z
}

// foldStandardization rewrites weights learned on z-scored inputs into
// weights over the raw feature space.
func foldStandardization(wz []float64, intercept float64, mu, sigma []float64) ([]float64, float64) {
	w := make([]float64, len(wz))
	b := intercept

	for j := range wz {
		w[j] = wz[j] / sigma[j]
		b -= wz[j] * mu[j] / sigma[j]
	}

	return w, b
}
