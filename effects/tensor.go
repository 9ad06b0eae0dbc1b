package effects

import (
	"fmt"
	"math"

	"github.com/gomlx/gomlx/pkg/core/tensors"
)

// NumericTensor exports the record's numeric columns as a [rows][columns]
// gomlx tensor, together with the column names in tensor order. Missing
// cells come out as NaN so downstream training code can mask them.
//
// String columns (categorical hyperparameters, diagnostics messages, fold
// labels) are skipped; encode those separately if a model needs them.
func (r *EffectRecord) NumericTensor() (*tensors.Tensor, []string, error) {
	var names []string
	var cols []*Column
	for _, name := range r.Table.ColumnNames() {
		c := r.Table.Col(name)
		if c.IsNumeric() {
			names = append(names, name)
			cols = append(cols, c)
		}
	}
	if len(cols) == 0 {
		return nil, nil, fmt.Errorf("effects: table has no numeric columns to export")
	}

	rows := r.Table.NumRows()
	data := make([][]float32, rows)
	for i := 0; i < rows; i++ {
		row := make([]float32, len(cols))
		for j, c := range cols {
			v := c.Numeric[i]
			if math.IsNaN(v) {
				row[j] = float32(math.NaN())
			} else {
				row[j] = float32(v)
			}
		}
		data[i] = row
	}
	return tensors.FromAnyValue(data), names, nil
}

// MeasuresTensor exports only the measure columns as a [rows][measures]
// gomlx tensor, in measure order.
func (r *EffectRecord) MeasuresTensor() (*tensors.Tensor, error) {
	rows := r.Table.NumRows()
	data := make([][]float32, rows)
	for i := 0; i < rows; i++ {
		row := make([]float32, len(r.Measures))
		for j, m := range r.Measures {
			c := r.Table.Col(m.ID)
			if c == nil || !c.IsNumeric() {
				return nil, fmt.Errorf("effects: measure column %q missing or non-numeric", m.ID)
			}
			row[j] = float32(c.Numeric[i])
		}
		data[i] = row
	}
	return tensors.FromAnyValue(data), nil
}
