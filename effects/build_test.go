package effects

import (
	"math"
	"testing"

	"github.com/tunefx/tunefx/tuning"
)

// testRun builds a small single tuning run over C and kernel with the given
// mmce values. NaN marks a failed evaluation.
func testRun(mmce ...float64) *tuning.TuneResult {
	kernels := []string{"rbf", "linear", "rbf", "linear", "rbf"}
	entries := make([]tuning.PathEntry, len(mmce))
	for i, v := range mmce {
		exec := 0.01 * float64(i+1)
		if math.IsNaN(v) {
			exec = math.NaN()
		}
		entries[i] = tuning.PathEntry{
			Params: map[string]tuning.ParamValue{
				"C":      tuning.NumValue(float64(i + 1)),
				"kernel": tuning.StrValue(kernels[i%len(kernels)]),
			},
			Measures: map[string]float64{"mmce.test.mean": v},
			ExecTime: exec,
			DOB:      i + 1,
			EOL:      tuning.NaN(),
		}
	}
	return &tuning.TuneResult{
		Optimizer: "random",
		Path: &tuning.OptPath{
			Params:   []tuning.ParamDef{{Name: "C"}, {Name: "kernel"}},
			Measures: []tuning.Measure{{ID: "mmce.test.mean", Minimize: true, Worst: 1}},
			Entries:  entries,
		},
	}
}

func testNested(folds int, mmce ...float64) *tuning.ResampleResult {
	rr := &tuning.ResampleResult{}
	for i := 0; i < folds; i++ {
		rr.Folds = append(rr.Folds, testRun(mmce...))
	}
	return rr
}

func TestBuildSingleRun(t *testing.T) {
	rec, err := Build(testRun(0.3, 0.25, 0.2))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if rec.Nested {
		t.Fatal("single run must not be nested")
	}
	if rec.Optimizer != "random" {
		t.Fatalf("unexpected optimizer %q", rec.Optimizer)
	}
	if rec.Table.NumRows() != 3 {
		t.Fatalf("expected 3 rows, got %d", rec.Table.NumRows())
	}

	for _, want := range []string{"C", "kernel", "mmce.test.mean", ColExecTime, ColIteration} {
		if !rec.Table.HasCol(want) {
			t.Fatalf("missing column %q (have %v)", want, rec.Table.ColumnNames())
		}
	}
	if rec.Table.HasCol(ColNestedRun) {
		t.Fatal("single run must not have a fold column")
	}
	if rec.Table.HasCol(ColEOL) || rec.Table.HasCol(ColErrMessage) {
		t.Fatal("diagnostics columns present without WithDiagnostics")
	}

	iter := rec.Table.Col(ColIteration)
	for i, want := range []float64{1, 2, 3} {
		if iter.Numeric[i] != want {
			t.Fatalf("iteration[%d] = %v, want %v", i, iter.Numeric[i], want)
		}
	}
	if !rec.IsMeasure("mmce.test.mean") || rec.IsMeasure("C") {
		t.Fatal("measure classification wrong")
	}
}

func TestBuildNestedStacksFolds(t *testing.T) {
	rec, err := Build(testNested(3, 0.3, 0.25, 0.2, 0.28, 0.22))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !rec.Nested {
		t.Fatal("resample input must build a nested record")
	}
	if rec.Table.NumRows() != 15 {
		t.Fatalf("expected 15 rows (3 folds x 5), got %d", rec.Table.NumRows())
	}
	run := rec.Table.Col(ColNestedRun)
	if run == nil || !run.IsNumeric() {
		t.Fatal("nested record must carry a numeric fold column")
	}
	if run.Numeric[0] != 1 || run.Numeric[5] != 2 || run.Numeric[14] != 3 {
		t.Fatalf("unexpected fold numbering: %v", run.Numeric)
	}
}

func TestBuildRejectsUnknownInput(t *testing.T) {
	if _, err := Build("not a trace"); err == nil {
		t.Fatal("expected type error for string input")
	}
	if _, err := Build(tuning.TuneResult{}); err == nil {
		t.Fatal("expected type error for non-pointer input")
	}
}

func TestBuildDiagnosticsColumns(t *testing.T) {
	tr := testRun(0.3, math.NaN())
	tr.Path.Entries[1].ErrMessage = "model crashed"
	tr.Path.Entries[1].EOL = 2

	rec, err := Build(tr, WithDiagnostics())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !rec.Diagnostics {
		t.Fatal("record should flag diagnostics")
	}
	if got := rec.Table.Col(ColErrMessage).Strings[1]; got != "model crashed" {
		t.Fatalf("unexpected error message %q", got)
	}
	if got := rec.Table.Col(ColEOL).Numeric[1]; got != 2 {
		t.Fatalf("unexpected eol %v", got)
	}
	if !math.IsNaN(rec.Table.Col(ColEOL).Numeric[0]) {
		t.Fatal("surviving entry should have NA eol")
	}
}

func TestBuildAppliesTrafo(t *testing.T) {
	tr := testRun(0.3, 0.2)
	tr.Path.Params[0].Trafo = func(v float64) float64 { return v * 10 }

	rec, err := Build(tr, WithTrafo())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	c := rec.Table.Col("C")
	if c.Numeric[0] != 10 || c.Numeric[1] != 20 {
		t.Fatalf("trafo not applied: %v", c.Numeric)
	}

	// Without the option the raw scale is kept.
	raw, err := Build(tr)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if raw.Table.Col("C").Numeric[0] != 1 {
		t.Fatalf("raw scale expected, got %v", raw.Table.Col("C").Numeric)
	}
}

func TestBuildMeasureRegistryOverride(t *testing.T) {
	reg := tuning.NewRegistry(tuning.Measure{
		ID: "mmce.test.mean", DisplayName: "Mean misclassification error", Minimize: true, Worst: 1,
	})
	rec, err := Build(testRun(0.3), WithMeasureRegistry(reg))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	m, ok := rec.Measure("mmce.test.mean")
	if !ok || m.DisplayName != "Mean misclassification error" {
		t.Fatalf("registry override not applied: %+v", m)
	}
}

func TestBuildCoercesDiscretizedParams(t *testing.T) {
	tr := testRun(0.3, 0.2)
	// A continuous parameter carried as text, as discretized spaces do.
	for i := range tr.Path.Entries {
		tr.Path.Entries[i].Params["C"] = tuning.StrValue([]string{"0.25", "4"}[i])
	}

	rec, err := Build(tr)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	c := rec.Table.Col("C")
	if !c.IsNumeric() {
		t.Fatal("discretized numeric parameter should be coerced back to numeric")
	}
	if c.Numeric[0] != 0.25 || c.Numeric[1] != 4 {
		t.Fatalf("unexpected coerced values: %v", c.Numeric)
	}
}
