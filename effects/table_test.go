package effects

import (
	"math"
	"testing"
)

func TestTableAddColRejectsMismatch(t *testing.T) {
	tab, err := NewTable(NumericColumn("a", []float64{1, 2, 3}))
	if err != nil {
		t.Fatal(err)
	}
	if err := tab.AddCol(NumericColumn("b", []float64{1})); err == nil {
		t.Fatal("expected length mismatch error")
	}
	if err := tab.AddCol(NumericColumn("a", []float64{4, 5, 6})); err == nil {
		t.Fatal("expected duplicate column error")
	}
}

func TestTableSelectRows(t *testing.T) {
	tab, err := NewTable(
		NumericColumn("x", []float64{1, 2, 3, 4}),
		StringColumn("s", []string{"a", "b", "c", "d"}),
	)
	if err != nil {
		t.Fatal(err)
	}
	sub := tab.SelectRows([]int{3, 1})
	if sub.NumRows() != 2 {
		t.Fatalf("expected 2 rows, got %d", sub.NumRows())
	}
	if sub.Col("x").Numeric[0] != 4 || sub.Col("s").Strings[1] != "b" {
		t.Fatalf("unexpected selection: %v / %v", sub.Col("x").Numeric, sub.Col("s").Strings)
	}
}

func TestTableAppendUnionPadsMissingColumns(t *testing.T) {
	a, _ := NewTable(
		NumericColumn("x", []float64{1, 2}),
		NumericColumn("onlyA", []float64{10, 20}),
	)
	b, _ := NewTable(
		NumericColumn("x", []float64{3}),
		StringColumn("onlyB", []string{"hello"}),
	)
	if err := a.Append(b); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if a.NumRows() != 3 {
		t.Fatalf("expected 3 rows, got %d", a.NumRows())
	}
	if !math.IsNaN(a.Col("onlyA").Numeric[2]) {
		t.Fatal("onlyA should be NA for appended row")
	}
	ob := a.Col("onlyB")
	if ob.Strings[0] != "" || ob.Strings[2] != "hello" {
		t.Fatalf("unexpected onlyB cells: %v", ob.Strings)
	}
}

func TestTableAppendPromotesMixedColumnToString(t *testing.T) {
	a, _ := NewTable(NumericColumn("kernel", []float64{1, 2}))
	b, _ := NewTable(StringColumn("kernel", []string{"rbf"}))
	if err := a.Append(b); err != nil {
		t.Fatalf("Append: %v", err)
	}
	c := a.Col("kernel")
	if c.IsNumeric() {
		t.Fatal("mixed column should be promoted to string")
	}
	if c.Strings[0] != "1" || c.Strings[2] != "rbf" {
		t.Fatalf("unexpected promoted cells: %v", c.Strings)
	}
}

func TestCoerceNumeric(t *testing.T) {
	tab, _ := NewTable(
		StringColumn("C", []string{"0.25", "1", ""}),
		StringColumn("kernel", []string{"rbf", "linear", "rbf"}),
	)
	coerceNumeric(tab, []string{"C", "kernel"})

	c := tab.Col("C")
	if !c.IsNumeric() {
		t.Fatal("all-numeric string column should be coerced")
	}
	if c.Numeric[0] != 0.25 || !math.IsNaN(c.Numeric[2]) {
		t.Fatalf("unexpected coerced values: %v", c.Numeric)
	}
	if tab.Col("kernel").IsNumeric() {
		t.Fatal("textual column must stay textual")
	}
}

func TestColumnCellRendersNA(t *testing.T) {
	c := NumericColumn("x", []float64{1.5, math.NaN()})
	if c.Cell(0) != "1.5" || c.Cell(1) != "NA" {
		t.Fatalf("unexpected cells: %q, %q", c.Cell(0), c.Cell(1))
	}
}
