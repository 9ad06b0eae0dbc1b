package tuning

// Measure describes a performance measure recorded along an optimization
// path: its identity, whether smaller values are better, the worst value the
// measure can take, and a human-readable name for plot labels.
//
// Measures are plain records looked up by ID through a Registry; nothing in
// this module resolves a measure by evaluating names dynamically.
type Measure struct {
	// ID is the column identifier of the measure, e.g. "mmce.test.mean".
	ID string

	// DisplayName is the human-readable name used when pretty labels are
	// requested. If empty, Label falls back to ID.
	DisplayName string

	// Minimize is true when smaller values of the measure are better.
	Minimize bool

	// Worst is the worst value the measure can take in its domain, used
	// when substituting failed evaluations on heatmap/contour plots.
	Worst float64
}

// Label returns the display name of the measure, falling back to its ID.
func (m Measure) Label() string {
	if m.DisplayName != "" {
		return m.DisplayName
	}
	return m.ID
}
