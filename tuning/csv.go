package tuning

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// ReadPathCSV reads an exported optimization path from a CSV file and wraps
// it in a TuneResult. The header must contain one column per parameter name
// and one per measure ID; "exec.time", "dob", "eol" and "error.message"
// columns are picked up when present. Empty and "NA" cells become NaN.
func ReadPathCSV(path, optimizer string, paramNames []string, measures []Measure) (*TuneResult, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open path CSV: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header of %s: %w", path, err)
	}

	colIndex := make(map[string]int, len(header))
	for i, col := range header {
		colIndex[strings.TrimSpace(strings.ToLower(col))] = i
	}
	lookup := func(name string) (int, bool) {
		idx, ok := colIndex[strings.ToLower(name)]
		return idx, ok
	}

	paramIdx := make([]int, len(paramNames))
	for i, name := range paramNames {
		idx, ok := lookup(name)
		if !ok {
			return nil, fmt.Errorf("parameter column %q not found in %s", name, path)
		}
		paramIdx[i] = idx
	}
	measureIdx := make([]int, len(measures))
	for i, m := range measures {
		idx, ok := lookup(m.ID)
		if !ok {
			return nil, fmt.Errorf("measure column %q not found in %s", m.ID, path)
		}
		measureIdx[i] = idx
	}
	execIdx, hasExec := lookup("exec.time")
	dobIdx, hasDOB := lookup("dob")
	eolIdx, hasEOL := lookup("eol")
	errIdx, hasErr := lookup("error.message")

	optPath := &OptPath{
		Params:   make([]ParamDef, len(paramNames)),
		Measures: append([]Measure(nil), measures...),
	}
	for i, name := range paramNames {
		optPath.Params[i] = ParamDef{Name: name}
	}

	row := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s row %d: %w", path, row+2, err)
		}
		row++

		entry := PathEntry{
			Params:   make(map[string]ParamValue, len(paramNames)),
			Measures: make(map[string]float64, len(measures)),
			ExecTime: math.NaN(),
			DOB:      row,
			EOL:      math.NaN(),
		}
		for i, name := range paramNames {
			cell := strings.TrimSpace(record[paramIdx[i]])
			if v, perr := strconv.ParseFloat(cell, 64); perr == nil {
				entry.Params[name] = NumValue(v)
			} else {
				entry.Params[name] = StrValue(cell)
			}
		}
		for i, m := range measures {
			entry.Measures[m.ID] = parseCell(record[measureIdx[i]])
		}
		if hasExec {
			entry.ExecTime = parseCell(record[execIdx])
		}
		if hasDOB {
			if v := parseCell(record[dobIdx]); !math.IsNaN(v) {
				entry.DOB = int(v)
			}
		}
		if hasEOL {
			entry.EOL = parseCell(record[eolIdx])
		}
		if hasErr {
			entry.ErrMessage = strings.TrimSpace(record[errIdx])
		}
		optPath.Entries = append(optPath.Entries, entry)
	}

	tr := &TuneResult{Optimizer: optimizer, Path: optPath}
	if err := tr.Validate(); err != nil {
		return nil, fmt.Errorf("path CSV %s: %w", path, err)
	}
	return tr, nil
}

// parseCell parses a numeric CSV cell, mapping empty and "NA" cells to NaN.
func parseCell(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "na") || strings.EqualFold(s, "nan") {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}
