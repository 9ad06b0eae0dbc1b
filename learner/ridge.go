package learner

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Ridge is a ridge regression on quadratic features of (x, y): the fitted
// surface is w0 + w1*x + w2*y + w3*x*y + w4*x² + w5*y². The L2 penalty keeps
// the normal equations solvable on degenerate designs (e.g. a path that only
// ever varied one parameter).
type Ridge struct {
	// Lambda is the L2 regularization strength.
	Lambda float64

	weights *mat.VecDense
}

// NewRidge creates a Ridge learner with the given regularization strength.
func NewRidge(lambda float64) *Ridge {
	return &Ridge{Lambda: lambda}
}

// Name implements Learner.
func (m *Ridge) Name() string { return "ridge" }

const ridgeFeatures = 6

func ridgeRow(x, y float64) []float64 {
	return []float64{1, x, y, x * y, x * x, y * y}
}

// Fit solves (AᵀA + λI) w = Aᵀz for the feature matrix A of the training
// points.
func (m *Ridge) Fit(xs, ys, zs []float64) error {
	if err := checkTrainingData(xs, ys, zs); err != nil {
		return fmt.Errorf("ridge: %w", err)
	}
	n := len(xs)

	a := mat.NewDense(n, ridgeFeatures, nil)
	for i := 0; i < n; i++ {
		a.SetRow(i, ridgeRow(xs[i], ys[i]))
	}
	z := mat.NewVecDense(n, append([]float64(nil), zs...))

	var ata mat.Dense
	ata.Mul(a.T(), a)
	for i := 0; i < ridgeFeatures; i++ {
		ata.Set(i, i, ata.At(i, i)+m.Lambda)
	}
	var atz mat.VecDense
	atz.MulVec(a.T(), z)

	var w mat.VecDense
	if err := w.SolveVec(&ata, &atz); err != nil {
		return fmt.Errorf("ridge: solving normal equations: %w", err)
	}
	m.weights = &w
	return nil
}

// Predict implements Learner.
func (m *Ridge) Predict(xs, ys []float64) ([]float64, error) {
	if m.weights == nil {
		return nil, fmt.Errorf("ridge: predict before fit")
	}
	if len(xs) != len(ys) {
		return nil, fmt.Errorf("ridge: prediction slices have mismatched lengths: %d/%d", len(xs), len(ys))
	}
	out := make([]float64, len(xs))
	for i := range xs {
		row := ridgeRow(xs[i], ys[i])
		var v float64
		for j, f := range row {
			v += f * m.weights.AtVec(j)
		}
		out[i] = v
	}
	return out, nil
}
