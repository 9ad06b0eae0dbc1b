// Package effects normalizes hyperparameter-tuning traces into a tidy
// tabular form. A single tuning run or a nested cross-validation (one inner
// tuning run per outer fold) both come out as one EffectRecord: a table with
// one row per evaluated configuration plus the metadata downstream plotting
// needs.
package effects

import (
	"fmt"
	"math"

	"github.com/tunefx/tunefx/tuning"
)

// Reserved column names of the normalized table.
const (
	// ColIteration is the evaluation-order counter, renamed from the
	// path's "date of birth" ordinal.
	ColIteration = "iteration"

	// ColNestedRun identifies the outer fold of a nested trace, numbered
	// from 1. Present only when the input was a resampling result.
	ColNestedRun = "nested_cv_run"

	// ColExecTime is the per-evaluation wall time column.
	ColExecTime = "exec.time"

	// ColEOL and ColErrMessage are diagnostics columns, present only when
	// requested at build time.
	ColEOL        = "eol"
	ColErrMessage = "error.message"
)

// EffectRecord is the normalized form of a tuning trace: the table plus the
// metadata needed to interpret it. It is immutable once built; the plotter
// works on copies of the table.
type EffectRecord struct {
	// Table holds one row per evaluated configuration (summed across
	// folds for nested input).
	Table *Table

	// Measures are the performance measures of the trace, in column
	// order.
	Measures []tuning.Measure

	// HyperParams are the hyperparameter column names, in column order.
	HyperParams []string

	// Optimizer identifies the search strategy that produced the trace.
	Optimizer string

	// Nested is true when the record aggregates multiple outer-fold
	// traces.
	Nested bool

	// Diagnostics is true when the eol and error-message columns were
	// kept.
	Diagnostics bool
}

// Measure returns the measure definition behind the given column name.
func (r *EffectRecord) Measure(id string) (tuning.Measure, bool) {
	for _, m := range r.Measures {
		if m.ID == id {
			return m, true
		}
	}
	return tuning.Measure{}, false
}

// IsMeasure reports whether the given column name is a measure column.
func (r *EffectRecord) IsMeasure(name string) bool {
	_, ok := r.Measure(name)
	return ok
}

type options struct {
	diagnostics bool
	trafo       bool
	registry    *tuning.Registry
}

// Option configures Build.
type Option func(*options)

// WithDiagnostics keeps the eol and error-message columns in the table.
func WithDiagnostics() Option {
	return func(o *options) { o.diagnostics = true }
}

// WithTrafo applies each parameter's transform to its numeric values before
// the table is built, so the table shows the transformed parameter scale.
func WithTrafo() Option {
	return func(o *options) { o.trafo = true }
}

// WithMeasureRegistry overrides the trace's measure definitions with entries
// from the given registry, matched by ID. Measures absent from the registry
// keep their trace definition.
func WithMeasureRegistry(reg *tuning.Registry) Option {
	return func(o *options) { o.registry = reg }
}

// Build normalizes a tuning trace into an EffectRecord. The input must be a
// *tuning.TuneResult (single run) or a *tuning.ResampleResult (nested
// cross-validation); anything else is rejected. The discriminant is checked
// exactly once, here.
func Build(input any, opts ...Option) (*EffectRecord, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	switch in := input.(type) {
	case *tuning.TuneResult:
		return buildSingle(in, o)
	case *tuning.ResampleResult:
		return buildNested(in, o)
	default:
		return nil, fmt.Errorf("effects: input must be *tuning.TuneResult or *tuning.ResampleResult, got %T", input)
	}
}

func buildSingle(tr *tuning.TuneResult, o options) (*EffectRecord, error) {
	if err := tr.Validate(); err != nil {
		return nil, fmt.Errorf("effects: %w", err)
	}
	tab, err := pathTable(tr.Path, o)
	if err != nil {
		return nil, err
	}
	return finishRecord(tab, tr, o, false)
}

func buildNested(rr *tuning.ResampleResult, o options) (*EffectRecord, error) {
	if err := rr.Validate(); err != nil {
		return nil, fmt.Errorf("effects: %w", err)
	}

	// Measures, hyperparameters and optimizer identity come from the
	// first fold; folds are assumed uniform and not re-validated.
	var merged *Table
	for i, fold := range rr.Folds {
		tab, err := pathTable(fold.Path, o)
		if err != nil {
			return nil, fmt.Errorf("fold %d: %w", i+1, err)
		}
		run := make([]float64, tab.NumRows())
		for j := range run {
			run[j] = float64(i + 1)
		}
		if err := tab.AddCol(NumericColumn(ColNestedRun, run)); err != nil {
			return nil, fmt.Errorf("fold %d: %w", i+1, err)
		}
		if merged == nil {
			merged = tab
		} else if err := merged.Append(tab); err != nil {
			return nil, fmt.Errorf("fold %d: %w", i+1, err)
		}
	}
	return finishRecord(merged, rr.Folds[0], o, true)
}

// pathTable converts one optimization path into table form: hyperparameter
// columns, measure columns, exec.time, diagnostics and the iteration counter.
func pathTable(p *tuning.OptPath, o options) (*Table, error) {
	n := len(p.Entries)
	tab := &Table{}

	for _, def := range p.Params {
		col, err := paramColumn(p, def, o.trafo)
		if err != nil {
			return nil, err
		}
		if err := tab.AddCol(col); err != nil {
			return nil, err
		}
	}
	for _, m := range p.Measures {
		vals := make([]float64, n)
		for i, e := range p.Entries {
			v, ok := e.Measures[m.ID]
			if !ok {
				v = math.NaN()
			}
			vals[i] = v
		}
		if err := tab.AddCol(NumericColumn(m.ID, vals)); err != nil {
			return nil, err
		}
	}

	exec := make([]float64, n)
	iter := make([]float64, n)
	for i, e := range p.Entries {
		exec[i] = e.ExecTime
		iter[i] = float64(e.DOB)
	}
	if err := tab.AddCol(NumericColumn(ColExecTime, exec)); err != nil {
		return nil, err
	}
	if o.diagnostics {
		eol := make([]float64, n)
		msgs := make([]string, n)
		for i, e := range p.Entries {
			eol[i] = e.EOL
			msgs[i] = e.ErrMessage
		}
		if err := tab.AddCol(NumericColumn(ColEOL, eol)); err != nil {
			return nil, err
		}
		if err := tab.AddCol(StringColumn(ColErrMessage, msgs)); err != nil {
			return nil, err
		}
	}
	if err := tab.AddCol(NumericColumn(ColIteration, iter)); err != nil {
		return nil, err
	}
	return tab, nil
}

// paramColumn builds the column for one hyperparameter. Parameters whose
// every value is numeric become numeric columns directly; anything else is
// carried as text (and may be coerced back to numeric later when the text is
// a discretized continuous parameter).
func paramColumn(p *tuning.OptPath, def tuning.ParamDef, trafo bool) (Column, error) {
	n := len(p.Entries)
	allNum := true
	for _, e := range p.Entries {
		v, ok := e.Params[def.Name]
		if ok && !v.IsNum {
			allNum = false
			break
		}
	}

	apply := func(v float64) float64 {
		if trafo && def.Trafo != nil {
			return def.Trafo(v)
		}
		return v
	}

	if allNum {
		vals := make([]float64, n)
		for i, e := range p.Entries {
			v, ok := e.Params[def.Name]
			if !ok {
				vals[i] = math.NaN()
				continue
			}
			vals[i] = apply(v.Num)
		}
		return NumericColumn(def.Name, vals), nil
	}

	vals := make([]string, n)
	for i, e := range p.Entries {
		v, ok := e.Params[def.Name]
		if !ok {
			continue
		}
		if v.IsNum {
			vals[i] = tuning.NumValue(apply(v.Num)).String()
		} else {
			vals[i] = v.Str
		}
	}
	return StringColumn(def.Name, vals), nil
}

func finishRecord(tab *Table, first *tuning.TuneResult, o options, nested bool) (*EffectRecord, error) {
	hyperparams := make([]string, len(first.Path.Params))
	for i, def := range first.Path.Params {
		hyperparams[i] = def.Name
	}
	coerceNumeric(tab, hyperparams)

	measures := append([]tuning.Measure(nil), first.Path.Measures...)
	if o.registry != nil {
		for i, m := range measures {
			if def, ok := o.registry.Lookup(m.ID); ok {
				measures[i] = def
			}
		}
	}

	return &EffectRecord{
		Table:       tab,
		Measures:    measures,
		HyperParams: hyperparams,
		Optimizer:   first.Optimizer,
		Nested:      nested,
		Diagnostics: o.diagnostics,
	}, nil
}
