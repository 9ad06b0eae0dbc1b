package plotspec

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tunefx/tunefx/effects"
)

// ColStatus marks each row's provenance after the transform pipeline has run.
const ColStatus = "learner_status"

// Values of the ColStatus column.
const (
	StatusSuccess      = "Success"
	StatusFailure      = "Failure"
	StatusInterpolated = "Interpolated Point"
)

// gridDim is the edge length of the interpolation grid.
const gridDim = 100

// pipeline carries the working table through the ordered transform stages.
// Stages mutate tab in place; the record itself is never touched.
type pipeline struct {
	rec *effects.EffectRecord
	req *Request
	tab *effects.Table

	hasFailures  bool
	interpolated bool
}

func newPipeline(rec *effects.EffectRecord, req *Request) *pipeline {
	return &pipeline{rec: rec, req: req, tab: rec.Table.Clone()}
}

// run executes the stages in their fixed order. Each stage guards itself, so
// a stage whose preconditions do not hold is a no-op.
func (p *pipeline) run() error {
	p.castFoldColumn()
	p.substituteFailures()
	p.applyGlobalOptimum()
	if err := p.interpolateGrid(); err != nil {
		return err
	}
	p.aggregateNested()
	return nil
}

// castFoldColumn turns the numeric outer-fold counter into a categorical
// label column so downstream grouping and legends treat folds as discrete.
func (p *pipeline) castFoldColumn() {
	if !p.rec.Nested {
		return
	}
	c := p.tab.Col(effects.ColNestedRun)
	if c == nil || !c.IsNumeric() {
		return
	}
	labels := make([]string, len(c.Numeric))
	for i, v := range c.Numeric {
		if math.IsNaN(v) {
			continue
		}
		labels[i] = strconv.Itoa(int(v))
	}
	c.Numeric = nil
	c.Strings = labels
}

// substituteFailures adds the status column and backfills the measure cells
// of failed evaluations. A row counts as failed when its execution time is
// missing. The substituted value is the measure's worst possible value on
// grid plots and the worst observed value otherwise, so failures land at the
// bad end of the color scale without distorting it more than necessary.
func (p *pipeline) substituteFailures() {
	n := p.tab.NumRows()
	status := make([]string, n)
	for i := range status {
		status[i] = StatusSuccess
	}

	anyMissing := false
	for _, m := range p.rec.Measures {
		c := p.tab.Col(m.ID)
		if c == nil || !c.IsNumeric() {
			continue
		}
		for _, v := range c.Numeric {
			if math.IsNaN(v) {
				anyMissing = true
				break
			}
		}
		if anyMissing {
			break
		}
	}

	if anyMissing {
		p.hasFailures = true
		exec := p.tab.Col(effects.ColExecTime)
		for i := 0; i < n; i++ {
			if exec != nil && math.IsNaN(exec.Numeric[i]) {
				status[i] = StatusFailure
			}
		}
		for _, m := range p.rec.Measures {
			c := p.tab.Col(m.ID)
			if c == nil || !c.IsNumeric() {
				continue
			}
			fill := p.failureValue(m.ID, c.Numeric)
			for i, v := range c.Numeric {
				if math.IsNaN(v) {
					c.Numeric[i] = fill
				}
			}
		}
		if exec != nil {
			worst := observedExtreme(exec.Numeric, true)
			for i, v := range exec.Numeric {
				if math.IsNaN(v) {
					exec.Numeric[i] = worst
				}
			}
		}
	}

	p.tab.DropCol(ColStatus)
	_ = p.tab.AddCol(effects.StringColumn(ColStatus, status))
}

// failureValue picks the substitute for a failed evaluation of one measure.
func (p *pipeline) failureValue(id string, observed []float64) float64 {
	m, _ := p.rec.Measure(id)
	if p.req.Kind.heatLike() {
		return m.Worst
	}
	// Off-grid plots stay within the observed range: the worst observed
	// value under the measure's direction. When every evaluation of the
	// measure failed there is no observed range, so fall back to the
	// measure's worst-possible value.
	v := observedExtreme(observed, m.Minimize)
	if math.IsNaN(v) {
		v = m.Worst
	}
	return v
}

// observedExtreme returns the max (takeMax) or min over the non-NaN values,
// or NaN when none are present.
func observedExtreme(vals []float64, takeMax bool) float64 {
	out := math.NaN()
	for _, v := range vals {
		if math.IsNaN(v) {
			continue
		}
		if math.IsNaN(out) || (takeMax && v > out) || (!takeMax && v < out) {
			out = v
		}
	}
	return out
}

// applyGlobalOptimum replaces each measure column with its running best when
// the plot shows tuning progress: iteration on x against a measure on y.
// Nested folds track their own running best.
func (p *pipeline) applyGlobalOptimum() {
	if !p.req.GlobalOnly {
		return
	}
	if p.req.xcol() != effects.ColIteration || !p.rec.IsMeasure(p.req.ycol()) {
		return
	}
	iter := p.tab.Col(effects.ColIteration)
	if iter == nil || !iter.IsNumeric() {
		return
	}

	for _, group := range p.foldGroups() {
		order := append([]int(nil), group...)
		sort.Slice(order, func(a, b int) bool {
			return iter.Numeric[order[a]] < iter.Numeric[order[b]]
		})
		for _, m := range p.rec.Measures {
			c := p.tab.Col(m.ID)
			if c == nil || !c.IsNumeric() {
				continue
			}
			best := math.NaN()
			for _, r := range order {
				v := c.Numeric[r]
				if !math.IsNaN(v) {
					if math.IsNaN(best) || (m.Minimize && v < best) || (!m.Minimize && v > best) {
						best = v
					}
				}
				c.Numeric[r] = best
			}
		}
	}
}

// foldGroups partitions the row indices by outer fold. A single-run table is
// one group.
func (p *pipeline) foldGroups() [][]int {
	fold := p.tab.Col(effects.ColNestedRun)
	if !p.rec.Nested || fold == nil {
		all := make([]int, p.tab.NumRows())
		for i := range all {
			all[i] = i
		}
		return [][]int{all}
	}
	byLabel := map[string][]int{}
	var labels []string
	for i := 0; i < p.tab.NumRows(); i++ {
		l := fold.Cell(i)
		if _, ok := byLabel[l]; !ok {
			labels = append(labels, l)
		}
		byLabel[l] = append(byLabel[l], i)
	}
	groups := make([][]int, len(labels))
	for i, l := range labels {
		groups[i] = byLabel[l]
	}
	return groups
}

// interpolateGrid fills the x/y plane with learner predictions on a
// gridDim-by-gridDim lattice spanning the observed ranges, one surface per
// fold for nested data. Predicted z values are clamped to the observed z
// range so the learner cannot stretch the color scale.
func (p *pipeline) interpolateGrid() error {
	if p.req.Interpolate == nil || p.req.Z == "" || !p.req.Kind.heatLike() {
		return nil
	}
	xc := p.tab.Col(p.req.xcol())
	yc := p.tab.Col(p.req.ycol())
	zc := p.tab.Col(p.req.Z)

	xmin, xmax := observedExtreme(xc.Numeric, false), observedExtreme(xc.Numeric, true)
	ymin, ymax := observedExtreme(yc.Numeric, false), observedExtreme(yc.Numeric, true)
	zmin, zmax := observedExtreme(zc.Numeric, false), observedExtreme(zc.Numeric, true)
	if math.IsNaN(xmin) || math.IsNaN(ymin) || math.IsNaN(zmin) {
		return fmt.Errorf("plotspec: no observed points to interpolate from")
	}

	gx, gy := gridAxes(xmin, xmax, ymin, ymax)
	fold := p.tab.Col(effects.ColNestedRun)

	for _, group := range p.foldGroups() {
		var xs, ys, zs []float64
		for _, r := range group {
			if math.IsNaN(xc.Numeric[r]) || math.IsNaN(yc.Numeric[r]) || math.IsNaN(zc.Numeric[r]) {
				continue
			}
			xs = append(xs, xc.Numeric[r])
			ys = append(ys, yc.Numeric[r])
			zs = append(zs, zc.Numeric[r])
		}

		start := time.Now()
		if err := p.req.Interpolate.Fit(xs, ys, zs); err != nil {
			return fmt.Errorf("plotspec: interpolation fit: %w", err)
		}
		pred, err := p.req.Interpolate.Predict(gx, gy)
		if err != nil {
			return fmt.Errorf("plotspec: interpolation predict: %w", err)
		}
		logrus.Debugf("interpolated %d grid points from %d observations with %s in %v",
			len(gx), len(xs), p.req.Interpolate.Name(), time.Since(start))

		for i := range pred {
			pred[i] = math.Min(math.Max(pred[i], zmin), zmax)
		}

		grid, err := gridTable(p.req, gx, gy, pred)
		if err != nil {
			return err
		}
		if fold != nil {
			label := fold.Cell(group[0])
			labels := make([]string, len(gx))
			for i := range labels {
				labels[i] = label
			}
			if err := grid.AddCol(effects.StringColumn(effects.ColNestedRun, labels)); err != nil {
				return err
			}
		}
		if err := p.tab.Append(grid); err != nil {
			return fmt.Errorf("plotspec: appending grid rows: %w", err)
		}
	}

	p.interpolated = true
	return nil
}

// gridAxes returns the flattened lattice coordinates.
func gridAxes(xmin, xmax, ymin, ymax float64) (gx, gy []float64) {
	gx = make([]float64, 0, gridDim*gridDim)
	gy = make([]float64, 0, gridDim*gridDim)
	for i := 0; i < gridDim; i++ {
		y := ymin + (ymax-ymin)*float64(i)/float64(gridDim-1)
		for j := 0; j < gridDim; j++ {
			x := xmin + (xmax-xmin)*float64(j)/float64(gridDim-1)
			gx = append(gx, x)
			gy = append(gy, y)
		}
	}
	return gx, gy
}

// gridTable builds the table fragment for one interpolated surface. Columns
// absent here (other hyperparameters, exec time) are padded with NA by
// Append; the originating iteration is deliberately missing.
func gridTable(req *Request, gx, gy, gz []float64) (*effects.Table, error) {
	n := len(gx)
	status := make([]string, n)
	iter := make([]float64, n)
	for i := range status {
		status[i] = StatusInterpolated
		iter[i] = math.NaN()
	}
	return effects.NewTable(
		effects.NumericColumn(req.xcol(), gx),
		effects.NumericColumn(req.ycol(), gy),
		effects.NumericColumn(req.Z, gz),
		effects.StringColumn(ColStatus, status),
		effects.NumericColumn(effects.ColIteration, iter),
	)
}

// aggregateNested collapses the outer folds of a nested record when two
// hyperparameters are plotted jointly against a z column. Rows sharing the
// same hyperparameter configuration (and, when relevant, the same status)
// become one row with the aggregate of each numeric column. The fold column
// is dropped because the rows no longer belong to a single fold.
func (p *pipeline) aggregateNested() {
	if !p.rec.Nested || p.req.Z == "" {
		return
	}
	agg := p.req.Aggregate
	if agg == nil {
		agg = mean
	}

	keyCols := append([]string(nil), p.rec.HyperParams...)
	if p.hasFailures || p.interpolated || p.req.ShowExperiments {
		keyCols = append(keyCols, ColStatus)
	}
	keySet := map[string]bool{}
	for _, k := range keyCols {
		keySet[k] = true
	}

	n := p.tab.NumRows()
	groups := map[string][]int{}
	var order []string
	for i := 0; i < n; i++ {
		var parts []string
		for _, k := range keyCols {
			if c := p.tab.Col(k); c != nil {
				parts = append(parts, c.Cell(i))
			}
		}
		key := strings.Join(parts, "\x1f")
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], i)
	}

	out := &effects.Table{}
	for _, name := range p.tab.ColumnNames() {
		if name == effects.ColNestedRun {
			continue
		}
		c := p.tab.Col(name)
		switch {
		case keySet[name] || !c.IsNumeric():
			// Key columns and text columns carry the group's first value.
			if c.IsNumeric() {
				nums := make([]float64, len(order))
				for gi, key := range order {
					nums[gi] = c.Numeric[groups[key][0]]
				}
				_ = out.AddCol(effects.NumericColumn(name, nums))
			} else {
				vals := make([]string, len(order))
				for gi, key := range order {
					vals[gi] = c.Strings[groups[key][0]]
				}
				_ = out.AddCol(effects.StringColumn(name, vals))
			}
		default:
			vals := make([]float64, len(order))
			for gi, key := range order {
				var present []float64
				for _, r := range groups[key] {
					if v := c.Numeric[r]; !math.IsNaN(v) {
						present = append(present, v)
					}
				}
				if len(present) == 0 {
					vals[gi] = math.NaN()
				} else {
					vals[gi] = agg(present)
				}
			}
			_ = out.AddCol(effects.NumericColumn(name, vals))
		}
	}

	// Fresh evaluation counter: the old one was per fold.
	if iter := out.Col(effects.ColIteration); iter != nil && iter.IsNumeric() {
		for i := range iter.Numeric {
			if !math.IsNaN(iter.Numeric[i]) {
				iter.Numeric[i] = float64(i + 1)
			}
		}
	}
	p.tab = out
}

func mean(vals []float64) float64 {
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}
