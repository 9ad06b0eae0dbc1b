package learner

import (
	"fmt"
	"math"
	"sort"
)

// KNN is an inverse-distance-weighted k-nearest-neighbor regressor. It keeps
// the training points and, for each prediction location, averages the z
// values of the k nearest points weighted by 1/(distance + eps), so closer
// observations dominate.
type KNN struct {
	K int

	xs, ys, zs []float64
}

// NewKNN creates a KNN learner with the given neighborhood size.
func NewKNN(k int) *KNN {
	return &KNN{K: k}
}

// Name implements Learner.
func (m *KNN) Name() string { return "knn" }

// Fit stores the training points.
func (m *KNN) Fit(xs, ys, zs []float64) error {
	if m.K < 1 {
		return fmt.Errorf("knn: k must be >= 1, got %d", m.K)
	}
	if err := checkTrainingData(xs, ys, zs); err != nil {
		return fmt.Errorf("knn: %w", err)
	}
	m.xs = append([]float64(nil), xs...)
	m.ys = append([]float64(nil), ys...)
	m.zs = append([]float64(nil), zs...)
	return nil
}

// neighbor holds a training-point candidate during prediction.
type neighbor struct {
	idx      int
	distance float64
}

// Predict implements Learner via a linear scan over the training points for
// each query location.
func (m *KNN) Predict(xs, ys []float64) ([]float64, error) {
	if len(m.xs) == 0 {
		return nil, fmt.Errorf("knn: predict before fit")
	}
	if len(xs) != len(ys) {
		return nil, fmt.Errorf("knn: prediction slices have mismatched lengths: %d/%d", len(xs), len(ys))
	}

	k := m.K
	if k > len(m.xs) {
		k = len(m.xs)
	}

	out := make([]float64, len(xs))
	candidates := make([]neighbor, len(m.xs))
	for q := range xs {
		for i := range m.xs {
			dx := m.xs[i] - xs[q]
			dy := m.ys[i] - ys[q]
			candidates[i] = neighbor{idx: i, distance: math.Hypot(dx, dy)}
		}
		sort.Slice(candidates, func(i, j int) bool {
			return candidates[i].distance < candidates[j].distance
		})

		// Weights inverse to distance (with epsilon so an exact match
		// does not divide by zero).
		const eps = 1e-6
		var sum, totalWeight float64
		for _, nb := range candidates[:k] {
			w := 1.0 / (nb.distance + eps)
			sum += w * m.zs[nb.idx]
			totalWeight += w
		}
		out[q] = sum / totalWeight
	}
	return out, nil
}
