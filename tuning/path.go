package tuning

import (
	"fmt"
	"math"
	"strconv"
)

// This file defines the input side of the module: the trace a tuning run
// leaves behind (the optimization path) and the two result shapes a caller
// can hand to the effect-data builder.
//
// A TuneResult is a single tuning run. A ResampleResult aggregates one inner
// tuning run per outer resampling fold (nested cross-validation). The builder
// discriminates between the two exactly once at construction time.

// ParamValue holds one hyperparameter setting along the path. Numeric
// parameters carry Num; everything else is carried as text in Str. A value
// with IsNum false and Str "" is a missing cell.
type ParamValue struct {
	Num   float64
	Str   string
	IsNum bool
}

// NumValue wraps a numeric hyperparameter setting.
func NumValue(v float64) ParamValue { return ParamValue{Num: v, IsNum: true} }

// StrValue wraps a textual hyperparameter setting.
func StrValue(s string) ParamValue { return ParamValue{Str: s} }

// String renders the value the way it would appear in a table cell.
func (v ParamValue) String() string {
	if v.IsNum {
		return strconv.FormatFloat(v.Num, 'g', -1, 64)
	}
	return v.Str
}

// ParamDef describes one hyperparameter of the search space. Trafo is the
// optional reparameterization applied to numeric values when the caller asks
// for the transformed scale; nil means the parameter is not transformed.
type ParamDef struct {
	Name  string
	Trafo func(float64) float64
}

// PathEntry is one evaluated configuration on the optimization path.
//
// Missing cells use NaN for numeric fields: a NaN measure value signals the
// learner crashed during that evaluation, a NaN ExecTime that no timing was
// recorded, and a NaN EOL that the configuration never left the optimizer's
// archive.
type PathEntry struct {
	// Params maps parameter name to the (untransformed) value evaluated.
	Params map[string]ParamValue

	// Measures maps measure ID to the observed value; NaN when the
	// evaluation failed.
	Measures map[string]float64

	// ExecTime is the evaluation wall time in seconds; NaN when missing.
	ExecTime float64

	// DOB is the evaluation-order ordinal ("date of birth"), numbered
	// from 1. The builder surfaces it as the iteration column.
	DOB int

	// EOL is the ordinal at which the configuration was discarded; NaN
	// when it never was. Only surfaced when diagnostics are requested.
	EOL float64

	// ErrMessage is the error message attached to a crashed evaluation,
	// empty otherwise. Only surfaced when diagnostics are requested.
	ErrMessage string
}

// OptPath is the full trace of a tuning run: the search space, the measures
// scored, and one entry per evaluated configuration.
type OptPath struct {
	Params   []ParamDef
	Measures []Measure
	Entries  []PathEntry
}

// Validate checks the path is structurally usable: a non-empty search space,
// at least one measure, and at least one entry.
func (p *OptPath) Validate() error {
	if p == nil {
		return fmt.Errorf("optimization path is nil")
	}
	if len(p.Params) == 0 {
		return fmt.Errorf("optimization path has no parameters")
	}
	if len(p.Measures) == 0 {
		return fmt.Errorf("optimization path has no measures")
	}
	if len(p.Entries) == 0 {
		return fmt.Errorf("optimization path has no entries")
	}
	return nil
}

// TuneResult is the outcome of a single tuning run.
type TuneResult struct {
	// Optimizer identifies the search strategy that produced the trace,
	// e.g. "grid", "random" or "mbo".
	Optimizer string

	// Path is the optimization path of the run.
	Path *OptPath
}

// Validate checks the result carries a usable path.
func (t *TuneResult) Validate() error {
	if t == nil {
		return fmt.Errorf("tune result is nil")
	}
	if t.Optimizer == "" {
		return fmt.Errorf("tune result has no optimizer identity")
	}
	return t.Path.Validate()
}

// ResampleResult aggregates the inner tuning runs of a nested
// cross-validation: one TuneResult per outer fold, in fold order.
type ResampleResult struct {
	Folds []*TuneResult
}

// Validate checks every fold carries a usable tuning result.
func (r *ResampleResult) Validate() error {
	if r == nil {
		return fmt.Errorf("resample result is nil")
	}
	if len(r.Folds) == 0 {
		return fmt.Errorf("resample result has no folds")
	}
	for i, f := range r.Folds {
		if err := f.Validate(); err != nil {
			return fmt.Errorf("fold %d: %w", i+1, err)
		}
	}
	return nil
}

// NaN is a convenience for building paths with missing cells.
func NaN() float64 { return math.NaN() }
