// Package plotspec turns an effects.EffectRecord and a plot request into a
// declarative plot specification: a transformed table plus layers, aesthetic
// bindings and scale labels. The specification is independent of any drawing
// backend; Render draws it with gonum/plot.
package plotspec

import (
	"fmt"

	"github.com/tunefx/tunefx/effects"
	"github.com/tunefx/tunefx/learner"
)

// Kind selects the base plot geometry.
type Kind string

const (
	KindScatter Kind = "scatter"
	KindLine    Kind = "line"
	KindHeatmap Kind = "heatmap"
	KindContour Kind = "contour"
)

// ParseKind resolves a plot kind from its string form.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindScatter, KindLine, KindHeatmap, KindContour:
		return Kind(s), nil
	default:
		return "", fmt.Errorf("invalid plot kind %q (want scatter, line, heatmap or contour)", s)
	}
}

// heatLike reports whether the kind fills a 2-D grid.
func (k Kind) heatLike() bool { return k == KindHeatmap || k == KindContour }

// Request describes one plot over an EffectRecord. X and Y are column
// selectors; selecting more than one column per axis is rejected as not yet
// supported. A Request is consumed entirely by one BuildSpec call.
type Request struct {
	// X and Y select the plot axes. Each must name exactly one column of
	// the record's table.
	X, Y []string

	// Z optionally selects a third column rendered as a continuous color
	// (fill) channel. Required for heatmap and contour kinds.
	Z string

	// Facet optionally selects a column to split the plot by.
	Facet string

	// Kind is the base geometry.
	Kind Kind

	// Smooth overlays a smoothing curve (scatter and line kinds without
	// z only).
	Smooth bool

	// PrettyLabels substitutes measure display names for raw column
	// identifiers on axis and fill labels.
	PrettyLabels bool

	// GlobalOnly replaces each measure column with its running
	// best-so-far when plotting a measure against the iteration counter.
	GlobalOnly bool

	// ShowExperiments overlays markers for the raw evaluated
	// configurations on heatmap/contour plots.
	ShowExperiments bool

	// ShowInterpolated overlays markers for the interpolated grid points
	// on heatmap/contour plots.
	ShowInterpolated bool

	// Interpolate, when set, fills the x/y grid by fitting this learner
	// on the observed points (heatmap/contour with z only).
	Interpolate learner.Learner

	// Aggregate collapses nested folds when plotting two hyperparameters
	// jointly. Defaults to the mean.
	Aggregate func([]float64) float64
}

// NewRequest builds a single-column-per-axis request with the given kind.
func NewRequest(x, y string, kind Kind) Request {
	return Request{X: []string{x}, Y: []string{y}, Kind: kind}
}

// xcol and ycol assume the request has been validated.
func (r *Request) xcol() string { return r.X[0] }
func (r *Request) ycol() string { return r.Y[0] }

// validate checks the request against the record's table schema. All
// failures surface immediately; there are no partial plots.
func (r *Request) validate(rec *effects.EffectRecord) error {
	if len(r.X) != 1 || len(r.Y) != 1 {
		return fmt.Errorf("plotspec: selecting multiple columns per axis is not yet supported (got %d x, %d y)", len(r.X), len(r.Y))
	}
	if _, err := ParseKind(string(r.Kind)); err != nil {
		return fmt.Errorf("plotspec: %w", err)
	}
	tab := rec.Table
	for _, name := range []string{r.xcol(), r.ycol()} {
		if !tab.HasCol(name) {
			return fmt.Errorf("plotspec: column %q not present in effect data", name)
		}
	}
	if r.Z != "" && !tab.HasCol(r.Z) {
		return fmt.Errorf("plotspec: z column %q not present in effect data", r.Z)
	}
	if r.Facet != "" && !tab.HasCol(r.Facet) {
		return fmt.Errorf("plotspec: facet column %q not present in effect data", r.Facet)
	}
	// Aggregation over a z column collapses the folds, so the fold column is
	// gone before faceting could use it.
	if r.Facet == effects.ColNestedRun && rec.Nested && r.Z != "" {
		return fmt.Errorf("plotspec: faceting by %s is not supported when nested results are aggregated over a z column", effects.ColNestedRun)
	}
	if r.Kind.heatLike() && r.Z == "" {
		return fmt.Errorf("plotspec: %s plots require a z column", r.Kind)
	}
	if r.Interpolate != nil {
		if r.Z == "" || !r.Kind.heatLike() {
			return fmt.Errorf("plotspec: interpolation requires a z column and a heatmap or contour kind")
		}
		for _, name := range []string{r.xcol(), r.ycol(), r.Z} {
			c := tab.Col(name)
			if !c.IsNumeric() {
				return fmt.Errorf("plotspec: interpolation requires numeric columns, %q is not", name)
			}
		}
	}
	return nil
}
