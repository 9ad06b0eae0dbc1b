package effects

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Column is one named column of a Table. Exactly one of Numeric and Strings
// is set. Missing cells are NaN in numeric columns and "" in string columns.
type Column struct {
	Name    string
	Numeric []float64
	Strings []string
}

// NumericColumn builds a numeric column.
func NumericColumn(name string, values []float64) Column {
	return Column{Name: name, Numeric: values}
}

// StringColumn builds a string column.
func StringColumn(name string, values []string) Column {
	return Column{Name: name, Strings: values}
}

// IsNumeric reports whether the column holds numeric cells.
func (c *Column) IsNumeric() bool { return c.Numeric != nil }

// Len returns the number of cells in the column.
func (c *Column) Len() int {
	if c.IsNumeric() {
		return len(c.Numeric)
	}
	return len(c.Strings)
}

// Cell renders the cell at row i the way it would appear in a printed table.
func (c *Column) Cell(i int) string {
	if c.IsNumeric() {
		v := c.Numeric[i]
		if math.IsNaN(v) {
			return "NA"
		}
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
	return c.Strings[i]
}

func (c *Column) clone() Column {
	out := Column{Name: c.Name}
	if c.IsNumeric() {
		out.Numeric = append([]float64(nil), c.Numeric...)
	} else {
		out.Strings = append([]string(nil), c.Strings...)
	}
	return out
}

// asStrings converts the column to its string representation, mapping NaN to
// the missing marker "".
func (c *Column) asStrings() []string {
	if !c.IsNumeric() {
		return append([]string(nil), c.Strings...)
	}
	out := make([]string, len(c.Numeric))
	for i, v := range c.Numeric {
		if math.IsNaN(v) {
			out[i] = ""
		} else {
			out[i] = strconv.FormatFloat(v, 'g', -1, 64)
		}
	}
	return out
}

// Table is an ordered collection of equally sized columns. It is the tabular
// form every tuning trace is normalized into, and the working object the plot
// transform pipeline mutates.
type Table struct {
	cols []Column
	rows int
}

// NewTable builds a table from the given columns, which must all have the
// same length and unique names.
func NewTable(cols ...Column) (*Table, error) {
	t := &Table{}
	for _, c := range cols {
		if err := t.AddCol(c); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// NumRows returns the number of rows.
func (t *Table) NumRows() int { return t.rows }

// NumCols returns the number of columns.
func (t *Table) NumCols() int { return len(t.cols) }

// ColumnNames returns the column names in table order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.cols))
	for i, c := range t.cols {
		names[i] = c.Name
	}
	return names
}

// Col returns the column with the given name, or nil if absent. The returned
// pointer aliases the table's storage; pipeline stages mutate cells through
// it.
func (t *Table) Col(name string) *Column {
	for i := range t.cols {
		if t.cols[i].Name == name {
			return &t.cols[i]
		}
	}
	return nil
}

// HasCol reports whether a column with the given name exists.
func (t *Table) HasCol(name string) bool { return t.Col(name) != nil }

// AddCol appends a column. The column length must match the table's row
// count, except on an empty table where it sets it.
func (t *Table) AddCol(c Column) error {
	if c.Numeric != nil && c.Strings != nil {
		return fmt.Errorf("column %q sets both numeric and string cells", c.Name)
	}
	if t.HasCol(c.Name) {
		return fmt.Errorf("duplicate column %q", c.Name)
	}
	if len(t.cols) == 0 {
		t.rows = c.Len()
	} else if c.Len() != t.rows {
		return fmt.Errorf("column %q has %d cells, table has %d rows", c.Name, c.Len(), t.rows)
	}
	t.cols = append(t.cols, c)
	return nil
}

// DropCol removes the named column if present.
func (t *Table) DropCol(name string) {
	for i := range t.cols {
		if t.cols[i].Name == name {
			t.cols = append(t.cols[:i], t.cols[i+1:]...)
			return
		}
	}
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	out := &Table{rows: t.rows, cols: make([]Column, len(t.cols))}
	for i := range t.cols {
		out.cols[i] = t.cols[i].clone()
	}
	return out
}

// SelectRows returns a new table holding the given rows, in order.
func (t *Table) SelectRows(idx []int) *Table {
	out := &Table{rows: len(idx), cols: make([]Column, len(t.cols))}
	for i := range t.cols {
		c := Column{Name: t.cols[i].Name}
		if t.cols[i].IsNumeric() {
			c.Numeric = make([]float64, len(idx))
			for j, r := range idx {
				c.Numeric[j] = t.cols[i].Numeric[r]
			}
		} else {
			c.Strings = make([]string, len(idx))
			for j, r := range idx {
				c.Strings[j] = t.cols[i].Strings[r]
			}
		}
		out.cols[i] = c
	}
	return out
}

// Append concatenates other below t, taking the union of the two column
// sets. Cells absent on either side are padded with NA. When the same column
// is numeric on one side and string on the other, the result is promoted to
// a string column.
func (t *Table) Append(other *Table) error {
	if other == nil || other.rows == 0 {
		return nil
	}
	oldRows := t.rows

	// Promote or pad existing columns.
	for i := range t.cols {
		c := &t.cols[i]
		oc := other.Col(c.Name)
		switch {
		case oc == nil:
			padColumn(c, other.rows)
		case c.IsNumeric() == oc.IsNumeric():
			if c.IsNumeric() {
				c.Numeric = append(c.Numeric, oc.Numeric...)
			} else {
				c.Strings = append(c.Strings, oc.Strings...)
			}
		default:
			merged := append(c.asStrings(), oc.asStrings()...)
			c.Numeric = nil
			c.Strings = merged
		}
	}

	// Columns only present in other: pad the rows already in t.
	for i := range other.cols {
		oc := &other.cols[i]
		if t.Col(oc.Name) != nil {
			continue
		}
		c := Column{Name: oc.Name}
		if oc.IsNumeric() {
			c.Numeric = make([]float64, oldRows, oldRows+other.rows)
			for j := 0; j < oldRows; j++ {
				c.Numeric[j] = math.NaN()
			}
			c.Numeric = append(c.Numeric, oc.Numeric...)
		} else {
			c.Strings = make([]string, oldRows, oldRows+other.rows)
			c.Strings = append(c.Strings, oc.Strings...)
		}
		t.cols = append(t.cols, c)
	}

	t.rows = oldRows + other.rows
	return nil
}

// padColumn extends c by n missing cells.
func padColumn(c *Column, n int) {
	if c.IsNumeric() {
		for i := 0; i < n; i++ {
			c.Numeric = append(c.Numeric, math.NaN())
		}
	} else {
		for i := 0; i < n; i++ {
			c.Strings = append(c.Strings, "")
		}
	}
}

// coerceNumeric converts string columns whose every present cell parses as a
// number into numeric columns. Missing cells ("") become NaN.
func coerceNumeric(t *Table, names []string) {
	for _, name := range names {
		c := t.Col(name)
		if c == nil || c.IsNumeric() {
			continue
		}
		vals := make([]float64, len(c.Strings))
		ok := true
		for i, s := range c.Strings {
			s = strings.TrimSpace(s)
			if s == "" {
				vals[i] = math.NaN()
				continue
			}
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				ok = false
				break
			}
			vals[i] = v
		}
		if ok {
			c.Strings = nil
			c.Numeric = vals
		}
	}
}
