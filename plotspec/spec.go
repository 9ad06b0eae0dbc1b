package plotspec

import (
	"fmt"

	"github.com/tunefx/tunefx/effects"
)

// Geom names a drawable layer geometry.
type Geom string

const (
	GeomPoint   Geom = "point"
	GeomLine    Geom = "line"
	GeomTile    Geom = "tile"
	GeomRaster  Geom = "raster"
	GeomContour Geom = "contour"
	GeomSmooth  Geom = "smooth"
)

// Aes holds the aesthetic bindings of one layer. Each field names a table
// column, or is empty when the channel is unused.
type Aes struct {
	X, Y string

	// Fill maps a numeric column onto a continuous color scale.
	Fill string

	// Color maps a categorical column onto a discrete color series.
	Color string

	// Shape maps a categorical column onto glyph shapes.
	Shape string
}

// Layer is one geometry drawn over a row subset of the spec's table.
type Layer struct {
	Geom Geom
	Aes  Aes

	// OnlyStatus restricts the layer to rows with this status value;
	// SkipStatus excludes them instead. Empty means no restriction.
	OnlyStatus string
	SkipStatus string
}

// Spec is a complete, backend-independent description of one plot: the
// transformed table, the ordered layers to draw over it and the scale labels.
type Spec struct {
	Table  *effects.Table
	Kind   Kind
	Layers []Layer

	XLabel, YLabel, FillLabel string

	// Facet names the column the plot is split by, if any.
	Facet string

	// Title carries the optimizer identity of the underlying trace.
	Title string
}

// assembly is the condition context the layer rules are evaluated against.
type assembly struct {
	hasZ         bool
	kind         Kind
	nestedGroups bool
	failures     bool
	interpolated bool
	showExp      bool
	showInterp   bool
	smooth       bool
}

// layerRule contributes layers when its condition holds. Rules run in order;
// every matching rule fires, so the layer list is the union of the matches.
type layerRule struct {
	name string
	when func(a assembly) bool
	emit func(a assembly, base Aes) []Layer
}

var layerRules = []layerRule{
	{
		name: "points",
		when: func(a assembly) bool { return !a.hasZ || (a.hasZ && !a.kind.heatLike()) },
		emit: func(a assembly, base Aes) []Layer {
			aes := base
			if a.failures {
				aes.Shape = ColStatus
			}
			if a.nestedGroups {
				aes.Color = effects.ColNestedRun
			} else if a.failures {
				aes.Color = ColStatus
			}
			return []Layer{{Geom: GeomPoint, Aes: aes}}
		},
	},
	{
		name: "lines",
		when: func(a assembly) bool { return a.kind == KindLine },
		emit: func(a assembly, base Aes) []Layer {
			aes := base
			aes.Fill = ""
			if a.nestedGroups {
				aes.Color = effects.ColNestedRun
			}
			return []Layer{{Geom: GeomLine, Aes: aes}}
		},
	},
	{
		name: "smooth",
		when: func(a assembly) bool { return a.smooth && !a.hasZ && !a.kind.heatLike() },
		emit: func(a assembly, base Aes) []Layer {
			aes := base
			if a.nestedGroups {
				aes.Color = effects.ColNestedRun
			}
			return []Layer{{Geom: GeomSmooth, Aes: aes}}
		},
	},
	{
		name: "heat tiles",
		when: func(a assembly) bool { return a.kind.heatLike() && !a.interpolated },
		emit: func(a assembly, base Aes) []Layer {
			return []Layer{{Geom: GeomTile, Aes: base, SkipStatus: StatusInterpolated}}
		},
	},
	{
		name: "interpolated surface",
		when: func(a assembly) bool { return a.kind.heatLike() && a.interpolated },
		emit: func(a assembly, base Aes) []Layer {
			return []Layer{{Geom: GeomRaster, Aes: base, OnlyStatus: StatusInterpolated}}
		},
	},
	{
		name: "contour lines",
		when: func(a assembly) bool { return a.kind == KindContour },
		emit: func(a assembly, base Aes) []Layer {
			only := ""
			if a.interpolated {
				only = StatusInterpolated
			}
			return []Layer{{Geom: GeomContour, Aes: base, OnlyStatus: only}}
		},
	},
	{
		name: "experiment markers",
		when: func(a assembly) bool { return a.kind.heatLike() && a.showExp },
		emit: func(a assembly, base Aes) []Layer {
			aes := Aes{X: base.X, Y: base.Y, Shape: ColStatus, Color: ColStatus}
			return []Layer{{Geom: GeomPoint, Aes: aes, SkipStatus: StatusInterpolated}}
		},
	},
	{
		name: "interpolation markers",
		when: func(a assembly) bool { return a.kind.heatLike() && a.showInterp && a.interpolated },
		emit: func(a assembly, base Aes) []Layer {
			aes := Aes{X: base.X, Y: base.Y, Shape: ColStatus, Color: ColStatus}
			return []Layer{{Geom: GeomPoint, Aes: aes, OnlyStatus: StatusInterpolated}}
		},
	},
}

// BuildSpec validates the request, runs the transform pipeline on a copy of
// the record's table and assembles the layer list.
func BuildSpec(rec *effects.EffectRecord, req Request) (*Spec, error) {
	if rec == nil || rec.Table == nil {
		return nil, fmt.Errorf("plotspec: nil effect record")
	}
	if err := req.validate(rec); err != nil {
		return nil, err
	}

	p := newPipeline(rec, &req)
	if err := p.run(); err != nil {
		return nil, err
	}

	a := assembly{
		hasZ: req.Z != "",
		kind: req.Kind,
		// After aggregation the folds are gone, so grouping by fold only
		// applies while the fold column survives.
		nestedGroups: rec.Nested && p.tab.HasCol(effects.ColNestedRun),
		failures:     p.hasFailures,
		interpolated: p.interpolated,
		showExp:      req.ShowExperiments,
		showInterp:   req.ShowInterpolated,
		smooth:       req.Smooth,
	}
	base := Aes{X: req.xcol(), Y: req.ycol(), Fill: req.Z}

	var layers []Layer
	for _, rule := range layerRules {
		if rule.when(a) {
			layers = append(layers, rule.emit(a, base)...)
		}
	}

	s := &Spec{
		Table:  p.tab,
		Kind:   req.Kind,
		Layers: layers,
		XLabel: columnLabel(rec, &req, req.xcol()),
		YLabel: columnLabel(rec, &req, req.ycol()),
		Facet:  req.Facet,
		Title:  rec.Optimizer,
	}
	if req.Z != "" {
		s.FillLabel = columnLabel(rec, &req, req.Z)
	}
	return s, nil
}

// columnLabel resolves the axis label for a column, preferring the measure's
// display name when pretty labels are requested.
func columnLabel(rec *effects.EffectRecord, req *Request, name string) string {
	if req.PrettyLabels {
		if m, ok := rec.Measure(name); ok {
			return m.Label()
		}
	}
	return name
}
