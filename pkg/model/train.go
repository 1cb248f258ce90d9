package model

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Training constants. The split fraction and seed are contract values: a
// retrain with identical input data must reproduce the same split.
const (
	// ValFraction is the share of rows held out for validation.
	ValFraction = 0.2

	// SplitSeed seeds the train/validation shuffle.
	SplitSeed = 42

	// ridgeLambda is the L2 penalty for the linear regressors.
	ridgeLambda = 1.0

	// logisticIters and logisticLR drive the classifier gradient descent.
	logisticIters = 500
	logisticLR    = 0.1
)

// FitRidge fits a ridge regression on the raw feature matrix. Features are
// standardized internally and the learned weights folded back, so callers
// predict on raw values.
func FitRidge(x [][]float64, y []float64, lambda float64) (*LinearRegressor, error) {
	n := len(x)
	if n == 0 || n != len(y) {
		return nil, fmt.Errorf("ridge fit: %d rows vs %d targets", n, len(y))
	}

	d := len(x[0])
	mu, sigma := columnStats(x, d)
	z := standardized(x, mu, sigma)

	// Normal equations on the standardized design: (Z'Z + lambda*I) w = Z'y.
	var gram mat.Dense

	gram.Mul(z.T(), z)

	sym := mat.NewSymDense(d, nil)
	for i := 0; i < d; i++ {
		for j := i; j < d; j++ {
			v := gram.At(i, j)
			if i == j {
				v += lambda
			}

			sym.SetSym(i, j, v)
		}
	}

	yMean := stat.Mean(y, nil)
	yc := make([]float64, n)
	for i := range y {
		yc[i] = y[i] - yMean
	}

	var rhs mat.VecDense

	rhs.MulVec(z.T(), mat.NewVecDense(n, yc))

	var chol mat.Cholesky
	if ok := chol.Factorize(sym); !ok {
		return nil, fmt.Errorf("ridge fit: gram matrix not positive definite")
	}

	var wz mat.VecDense
	if err := chol.SolveVecTo(&wz, &rhs); err != nil {
		return nil, fmt.Errorf("ridge fit: solving normal equations: %w", err)
	}

	w, b := foldStandardization(wz.RawVector().Data, yMean, mu, sigma)

	return &LinearRegressor{Intercept: b, Weights: w}, nil
}

// FitLogistic fits a binary logistic classifier by full-batch gradient
// descent on standardized features. Training is deterministic: zero
// initialization, fixed step size and iteration count.
func FitLogistic(x [][]float64, y []float64, iters int, lr float64) (*LogisticClassifier, error) {
	n := len(x)
	if n == 0 || n != len(y) {
		return nil, fmt.Errorf("logistic fit: %d rows vs %d targets", n, len(y))
	}

	d := len(x[0])
	mu, sigma := columnStats(x, d)
	z := standardized(x, mu, sigma)

	wz := make([]float64, d)
	b := 0.0
	grad := make([]float64, d)
	row := make([]float64, d)

	for it := 0; it < iters; it++ {
		for j := range grad {
			grad[j] = 0
		}

		gradB := 0.0

		for i := 0; i < n; i++ {
			mat.Row(row, i, z)

			err := sigmoid(b+floats.Dot(wz, row)) - y[i]
			gradB += err

			floats.AddScaled(grad, err, row)
		}

		scale := lr / float64(n)
		floats.AddScaled(wz, -scale, grad)
		b -= scale * gradB
	}

	w, bRaw := foldStandardization(wz, b, mu, sigma)

	return &LogisticClassifier{Intercept: bRaw, Weights: w}, nil
}

// TrainingData is the matrix form of a two-head training dataset. X rows are
// ordered per Features.
type TrainingData struct {
	Features []string
	X        [][]float64
	YTime    []float64
	YDNF     []float64
	YPlus2   []float64
}

// TrainResult carries a freshly trained bundle plus its validation metrics.
type TrainResult struct {
	Bundle *Bundle

	// ValMAE is the time regressor's mean absolute error on the held-out
	// rows, in milliseconds.
	ValMAE float64

	// DNFAUC / Plus2AUC are validation ROC AUCs; the ok flags are false when
	// the validation rows contain a single class.
	DNFAUC     float64
	DNFAUCOK   bool
	Plus2AUC   float64
	Plus2AUCOK bool
}

// TrainBundle trains the time regressor and the two penalty classifiers on a
// reproducible train/validation split and returns the bundle together with
// validation metrics. It does not gate on the metrics; that is the caller's
// policy.
func TrainBundle(data TrainingData, version Version) (*TrainResult, error) {
	n := len(data.X)
	if n != len(data.YTime) || n != len(data.YDNF) || n != len(data.YPlus2) {
		return nil, fmt.Errorf("training data length mismatch: %d rows", n)
	}

	trainIdx, valIdx := SplitIndices(n, ValFraction, SplitSeed)

	xTrain, xVal := gather(data.X, trainIdx), gather(data.X, valIdx)
	yTimeTrain, yTimeVal := gatherF(data.YTime, trainIdx), gatherF(data.YTime, valIdx)
	yDNFTrain, yDNFVal := gatherF(data.YDNF, trainIdx), gatherF(data.YDNF, valIdx)
	yPlus2Train, yPlus2Val := gatherF(data.YPlus2, trainIdx), gatherF(data.YPlus2, valIdx)

	timeModel, err := FitRidge(xTrain, yTimeTrain, ridgeLambda)
	if err != nil {
		return nil, fmt.Errorf("fitting time model: %w", err)
	}

	dnfModel, err := FitLogistic(xTrain, yDNFTrain, logisticIters, logisticLR)
	if err != nil {
		return nil, fmt.Errorf("fitting dnf model: %w", err)
	}

	plus2Model, err := FitLogistic(xTrain, yPlus2Train, logisticIters, logisticLR)
	if err != nil {
		return nil, fmt.Errorf("fitting plus2 model: %w", err)
	}

	predTime := make([]float64, len(xVal))
	for i, x := range xVal {
		predTime[i] = timeModel.Predict(x)
	}

	res := &TrainResult{
		Bundle: &Bundle{
			Version:    version.String(),
			TimeModel:  timeModel,
			DNFModel:   dnfModel,
			Plus2Model: plus2Model,
			Features:   data.Features,
		},
		ValMAE: MAE(yTimeVal, predTime),
	}

	dnfProba := make([]float64, len(xVal))
	plus2Proba := make([]float64, len(xVal))

	for i, x := range xVal {
		dnfProba[i] = dnfModel.PredictProba(x)
		plus2Proba[i] = plus2Model.PredictProba(x)
	}

	res.DNFAUC, res.DNFAUCOK = ROCAUC(yDNFVal, dnfProba)
	res.Plus2AUC, res.Plus2AUCOK = ROCAUC(yPlus2Val, plus2Proba)

	return res, nil
}

// LegacyTrainResult carries the single-score model plus validation MAE in
// score points.
type LegacyTrainResult struct {
	Model  *LegacyModel
	ValMAE float64
}

// TrainLegacy trains the single-target score regressor on the same
// reproducible split used by the two-head pipeline.
func TrainLegacy(features []string, x [][]float64, yScore []float64) (*LegacyTrainResult, error) {
	n := len(x)
	if n != len(yScore) {
		return nil, fmt.Errorf("training data length mismatch: %d rows vs %d targets", n, len(yScore))
	}

	trainIdx, valIdx := SplitIndices(n, ValFraction, SplitSeed)

	reg, err := FitRidge(gather(x, trainIdx), gatherF(yScore, trainIdx), ridgeLambda)
	if err != nil {
		return nil, fmt.Errorf("fitting score model: %w", err)
	}

	xVal := gather(x, valIdx)
	preds := make([]float64, len(xVal))

	for i, xi := range xVal {
		preds[i] = reg.Predict(xi)
	}

	return &LegacyTrainResult{
		Model:  &LegacyModel{Version: LegacyVersion, Model: reg, Features: features},
		ValMAE: MAE(gatherF(yScore, valIdx), preds),
	}, nil
}

// SaneMAE reports whether a validation MAE passes the promotion gate: a
// finite positive value under the ceiling.
func SaneMAE(mae, ceiling float64) bool {
	return !math.IsNaN(mae) && !math.IsInf(mae, 0) && mae > 0 && mae <= ceiling
}

func gather(x [][]float64, idx []int) [][]float64 {
	out := make([][]float64, len(idx))
	for i, j := range idx {
		out[i] = x[j]
	}

	return out
}

func gatherF(y []float64, idx []int) []float64 {
	out := make([]float64, len(idx))
	for i, j := range idx {
		out[i] = y[j]
	}

	return out
}
