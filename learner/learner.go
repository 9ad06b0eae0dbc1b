// Package learner provides the small regression abstraction the plotter uses
// to interpolate a 2-D hyperparameter grid: fit a response surface
// z = f(x, y) on the observed evaluations, then predict it at regular grid
// locations. Two implementations ship with the module; callers can supply
// their own.
package learner

import "fmt"

// Learner fits a response surface from observed (x, y, z) points and
// predicts z at new (x, y) locations. Implementations are single-use: Fit
// once, then Predict any number of times.
type Learner interface {
	// Name identifies the learner in logs and plot subtitles.
	Name() string

	// Fit trains on the observed points. The three slices must have equal
	// length and at least one element.
	Fit(xs, ys, zs []float64) error

	// Predict returns the fitted surface at the given locations.
	Predict(xs, ys []float64) ([]float64, error)
}

// ByName resolves a learner from its CLI name: "knn" or "ridge".
func ByName(name string) (Learner, error) {
	switch name {
	case "knn":
		return NewKNN(5), nil
	case "ridge":
		return NewRidge(1e-6), nil
	default:
		return nil, fmt.Errorf("unknown learner %q (want \"knn\" or \"ridge\")", name)
	}
}

func checkTrainingData(xs, ys, zs []float64) error {
	if len(xs) == 0 {
		return fmt.Errorf("no training points")
	}
	if len(xs) != len(ys) || len(xs) != len(zs) {
		return fmt.Errorf("training slices have mismatched lengths: %d/%d/%d", len(xs), len(ys), len(zs))
	}
	return nil
}
