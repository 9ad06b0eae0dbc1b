package tuning

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
)

// JSON trace loading for the effectplot command. A trace file is either a
// single run:
//
//	{
//	  "optimizer": "random",
//	  "params": ["C", "sigma"],
//	  "measures": [{"id": "mmce.test.mean", "minimize": true, "worst": 1.0}],
//	  "entries": [
//	    {"params": {"C": 0.25, "sigma": "0.5"}, "measures": {"mmce.test.mean": 0.31},
//	     "exec_time": 0.04, "dob": 1}
//	  ]
//	}
//
// or a nested one, {"folds": [ <run>, <run>, ... ]}. JSON carries no
// parameter transforms; traces that need a trafo are constructed in code.

type measureJSON struct {
	ID          string  `json:"id"`
	DisplayName string  `json:"display_name"`
	Minimize    bool    `json:"minimize"`
	Worst       float64 `json:"worst"`
}

type entryJSON struct {
	Params     map[string]any      `json:"params"`
	Measures   map[string]*float64 `json:"measures"`
	ExecTime   *float64            `json:"exec_time"`
	DOB        int                 `json:"dob"`
	EOL        *float64            `json:"eol"`
	ErrMessage string              `json:"error_message"`
}

type runJSON struct {
	Optimizer string        `json:"optimizer"`
	Params    []string      `json:"params"`
	Measures  []measureJSON `json:"measures"`
	Entries   []entryJSON   `json:"entries"`
}

type traceJSON struct {
	runJSON
	Folds []runJSON `json:"folds"`
}

// LoadTraceJSON reads a trace file and returns either a *TuneResult or a
// *ResampleResult depending on whether the file carries folds.
func LoadTraceJSON(path string) (any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read trace file: %w", err)
	}
	var raw traceJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal trace %s: %w", path, err)
	}

	if len(raw.Folds) > 0 {
		rr := &ResampleResult{Folds: make([]*TuneResult, len(raw.Folds))}
		for i, fold := range raw.Folds {
			tr, err := fold.toTuneResult()
			if err != nil {
				return nil, fmt.Errorf("trace %s fold %d: %w", path, i+1, err)
			}
			rr.Folds[i] = tr
		}
		if err := rr.Validate(); err != nil {
			return nil, fmt.Errorf("trace %s: %w", path, err)
		}
		return rr, nil
	}

	tr, err := raw.runJSON.toTuneResult()
	if err != nil {
		return nil, fmt.Errorf("trace %s: %w", path, err)
	}
	if err := tr.Validate(); err != nil {
		return nil, fmt.Errorf("trace %s: %w", path, err)
	}
	return tr, nil
}

func (r *runJSON) toTuneResult() (*TuneResult, error) {
	path := &OptPath{
		Params:   make([]ParamDef, len(r.Params)),
		Measures: make([]Measure, len(r.Measures)),
		Entries:  make([]PathEntry, len(r.Entries)),
	}
	for i, name := range r.Params {
		path.Params[i] = ParamDef{Name: name}
	}
	for i, m := range r.Measures {
		path.Measures[i] = Measure{
			ID:          m.ID,
			DisplayName: m.DisplayName,
			Minimize:    m.Minimize,
			Worst:       m.Worst,
		}
	}
	for i, e := range r.Entries {
		entry := PathEntry{
			Params:     make(map[string]ParamValue, len(e.Params)),
			Measures:   make(map[string]float64, len(e.Measures)),
			ExecTime:   optFloat(e.ExecTime),
			DOB:        e.DOB,
			EOL:        optFloat(e.EOL),
			ErrMessage: e.ErrMessage,
		}
		if entry.DOB == 0 {
			entry.DOB = i + 1
		}
		for name, v := range e.Params {
			switch val := v.(type) {
			case float64:
				entry.Params[name] = NumValue(val)
			case string:
				entry.Params[name] = StrValue(val)
			case bool:
				entry.Params[name] = StrValue(fmt.Sprintf("%v", val))
			default:
				return nil, fmt.Errorf("entry %d: parameter %q has unsupported value type %T", i+1, name, v)
			}
		}
		for id, v := range e.Measures {
			entry.Measures[id] = optFloat(v)
		}
		path.Entries[i] = entry
	}
	return &TuneResult{Optimizer: r.Optimizer, Path: path}, nil
}

// optFloat maps an absent JSON number to NaN.
func optFloat(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}
