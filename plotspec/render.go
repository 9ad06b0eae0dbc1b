package plotspec

import (
	"fmt"
	"image/color"
	"math"
	"os"
	"sort"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/tunefx/tunefx/effects"
)

// Glyph styling for the row-status markers.
var (
	successColor = color.RGBA{A: 255}
	failureColor = color.RGBA{R: 200, G: 30, B: 30, A: 255}
	interpColor  = color.RGBA{R: 20, G: 80, B: 200, A: 255}
	seriesColors = []color.RGBA{
		{R: 20, G: 80, B: 200, A: 220},
		{R: 200, G: 30, B: 30, A: 220},
		{R: 40, G: 140, B: 60, A: 220},
		{R: 220, G: 140, B: 20, A: 220},
		{R: 130, G: 60, B: 180, A: 220},
		{R: 90, G: 90, B: 90, A: 220},
	}
)

// Render draws the spec and writes a PNG to path. A faceted spec becomes a
// tiled image with one panel per facet value; anything else is a single
// panel.
func Render(s *Spec, path string) error {
	if s == nil || s.Table == nil {
		return fmt.Errorf("plotspec: nil spec")
	}
	if s.Facet != "" {
		return renderFacets(s, path)
	}
	p, err := renderPanel(s, s.Table, s.Title)
	if err != nil {
		return err
	}
	return p.Save(8*vg.Inch, 6*vg.Inch, path)
}

// renderFacets splits the table by the facet column and tiles one panel per
// value.
func renderFacets(s *Spec, path string) error {
	c := s.Table.Col(s.Facet)
	if c == nil {
		return fmt.Errorf("plotspec: facet column %q missing from table", s.Facet)
	}
	var vals []string
	seen := map[string]bool{}
	for i := 0; i < s.Table.NumRows(); i++ {
		v := c.Cell(i)
		if !seen[v] {
			seen[v] = true
			vals = append(vals, v)
		}
	}
	sort.Strings(vals)

	cols := len(vals)
	if cols > 3 {
		cols = 3
	}
	rows := (len(vals) + cols - 1) / cols

	plots := make([][]*plot.Plot, rows)
	for r := range plots {
		plots[r] = make([]*plot.Plot, cols)
	}
	for i, v := range vals {
		var idx []int
		for r := 0; r < s.Table.NumRows(); r++ {
			if c.Cell(r) == v {
				idx = append(idx, r)
			}
		}
		p, err := renderPanel(s, s.Table.SelectRows(idx), fmt.Sprintf("%s = %s", s.Facet, v))
		if err != nil {
			return fmt.Errorf("facet %s=%s: %w", s.Facet, v, err)
		}
		plots[i/cols][i%cols] = p
	}

	img := vgimg.New(vg.Length(cols)*6*vg.Inch, vg.Length(rows)*5*vg.Inch)
	dc := draw.New(img)
	tiles := draw.Tiles{
		Rows: rows, Cols: cols,
		PadX: vg.Millimeter, PadY: vg.Millimeter,
		PadTop: vg.Millimeter, PadBottom: vg.Millimeter,
		PadLeft: vg.Millimeter, PadRight: vg.Millimeter,
	}
	canvases := plot.Align(plots, tiles, dc)
	for r := 0; r < rows; r++ {
		for cl := 0; cl < cols; cl++ {
			if plots[r][cl] != nil {
				plots[r][cl].Draw(canvases[r][cl])
			}
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	png := vgimg.PngCanvas{Canvas: img}
	if _, err := png.WriteTo(f); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// axisEncoding maps the categories of a string axis column onto nominal
// coordinates 0..n-1.
type axisEncoding map[string]float64

// stringAxisEncoding builds the ordinal encoding for a categorical axis. The
// categories are sorted so panels of a faceted plot agree on positions.
func stringAxisEncoding(c *effects.Column) (axisEncoding, []string) {
	var cats []string
	seen := map[string]bool{}
	for _, v := range c.Strings {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		cats = append(cats, v)
	}
	sort.Strings(cats)
	enc := make(axisEncoding, len(cats))
	for i, v := range cats {
		enc[v] = float64(i)
	}
	return enc, cats
}

// panelCtx carries the shared axis encodings of one panel so all layers place
// categorical values at the same coordinates.
type panelCtx struct {
	xEnc, yEnc axisEncoding
}

// renderPanel draws all layers of the spec over one table subset.
func renderPanel(s *Spec, tab *effects.Table, title string) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = s.XLabel
	p.Y.Label.Text = s.YLabel
	p.Add(plotter.NewGrid())

	// Encodings come from the spec's full table so facet panels agree on
	// category positions.
	var ctx panelCtx
	if len(s.Layers) > 0 {
		if c := s.Table.Col(s.Layers[0].Aes.X); c != nil && !c.IsNumeric() {
			var cats []string
			ctx.xEnc, cats = stringAxisEncoding(c)
			p.NominalX(cats...)
		}
		if c := s.Table.Col(s.Layers[0].Aes.Y); c != nil && !c.IsNumeric() {
			var cats []string
			ctx.yEnc, cats = stringAxisEncoding(c)
			p.NominalY(cats...)
		}
	}

	for _, layer := range s.Layers {
		sub := tab.SelectRows(layerRowIndices(tab, layer))
		if sub.NumRows() == 0 {
			continue
		}
		var err error
		switch layer.Geom {
		case GeomPoint:
			err = addPoints(p, sub, layer, s, ctx)
		case GeomLine:
			err = addLines(p, sub, layer, ctx)
		case GeomSmooth:
			err = addSmooth(p, sub, layer, ctx)
		case GeomTile, GeomRaster:
			err = addHeat(p, sub, layer)
		case GeomContour:
			err = addContours(p, sub, layer)
		default:
			err = fmt.Errorf("unknown geometry %q", layer.Geom)
		}
		if err != nil {
			return nil, fmt.Errorf("plotspec: %s layer: %w", layer.Geom, err)
		}
	}
	return p, nil
}

// layerRowIndices filters the table rows to the subset the layer draws.
func layerRowIndices(tab *effects.Table, l Layer) []int {
	status := tab.Col(ColStatus)
	var idx []int
	for i := 0; i < tab.NumRows(); i++ {
		if status != nil {
			v := status.Cell(i)
			if l.OnlyStatus != "" && v != l.OnlyStatus {
				continue
			}
			if l.SkipStatus != "" && v == l.SkipStatus {
				continue
			}
		}
		idx = append(idx, i)
	}
	return idx
}

// addPoints draws a point layer. Points are colored along the fill scale
// when the layer binds one (failed rows drawn as triangles when shape is
// bound to the status column), split into per-status glyph series when only
// shape is bound, and split into a discrete color series per group value
// otherwise.
func addPoints(p *plot.Plot, tab *effects.Table, l Layer, s *Spec, ctx panelCtx) error {
	xc, yc := tab.Col(l.Aes.X), tab.Col(l.Aes.Y)
	if xc == nil || yc == nil {
		return fmt.Errorf("missing axis column %q or %q", l.Aes.X, l.Aes.Y)
	}

	if l.Aes.Fill != "" {
		return addFilledPoints(p, tab, l, s, ctx)
	}
	if l.Aes.Shape == ColStatus && tab.HasCol(ColStatus) {
		return addStatusPoints(p, tab, l, ctx)
	}

	for gi, g := range groupIndices(tab, l.Aes.Color) {
		sc, err := plotter.NewScatter(rowsXY(xc, yc, g.rows, ctx))
		if err != nil {
			return err
		}
		sc.GlyphStyle.Color = seriesColors[gi%len(seriesColors)]
		sc.GlyphStyle.Radius = vg.Points(2.2)
		p.Add(sc)
		if g.label != "" {
			p.Legend.Add(g.label, sc)
		}
	}
	return nil
}

// addFilledPoints colors each point by its fill-column value.
func addFilledPoints(p *plot.Plot, tab *effects.Table, l Layer, s *Spec, ctx panelCtx) error {
	xc, yc := tab.Col(l.Aes.X), tab.Col(l.Aes.Y)
	zc := tab.Col(l.Aes.Fill)
	if zc == nil || !zc.IsNumeric() {
		return fmt.Errorf("fill column %q missing or not numeric", l.Aes.Fill)
	}

	zmin := observedExtreme(zc.Numeric, false)
	zmax := observedExtreme(zc.Numeric, true)
	if math.IsNaN(zmin) {
		return nil
	}
	if zmin == zmax {
		zmax = zmin + 1
	}
	cmap := moreland.SmoothBlueRed()
	cmap.SetMin(zmin)
	cmap.SetMax(zmax)

	status := tab.Col(ColStatus)
	pts := make(plotter.XYZs, 0, tab.NumRows())
	var shapes []draw.GlyphDrawer
	for i := 0; i < tab.NumRows(); i++ {
		x, y, z := cellValue(xc, i, ctx.xEnc), cellValue(yc, i, ctx.yEnc), zc.Numeric[i]
		if math.IsNaN(x) || math.IsNaN(y) || math.IsNaN(z) {
			continue
		}
		pts = append(pts, plotter.XYZ{X: x, Y: y, Z: z})
		var shape draw.GlyphDrawer = draw.CircleGlyph{}
		if l.Aes.Shape == ColStatus && status != nil && status.Cell(i) == StatusFailure {
			shape = draw.TriangleGlyph{}
		}
		shapes = append(shapes, shape)
	}
	sc, err := plotter.NewScatter(xyzXYer{pts})
	if err != nil {
		return err
	}
	sc.GlyphStyleFunc = func(i int) draw.GlyphStyle {
		c, err := cmap.At(pts[i].Z)
		if err != nil {
			c = color.Gray{Y: 128}
		}
		return draw.GlyphStyle{Color: c, Radius: vg.Points(2.6), Shape: shapes[i]}
	}
	p.Add(sc)
	if s.FillLabel != "" {
		p.Legend.Add(s.FillLabel, sc)
	}
	return nil
}

// addStatusPoints draws one glyph series per status value so the legend
// distinguishes successes, failures and interpolated points. When the layer
// also binds a color column (fold grouping on nested data), the success
// series is split into one colored series per group; failed and interpolated
// points keep their fixed marker so they stay recognizable across groups.
func addStatusPoints(p *plot.Plot, tab *effects.Table, l Layer, ctx panelCtx) error {
	xc, yc := tab.Col(l.Aes.X), tab.Col(l.Aes.Y)
	for _, g := range groupIndices(tab, ColStatus) {
		switch g.label {
		case StatusFailure:
			sc, err := plotter.NewScatter(rowsXY(xc, yc, g.rows, ctx))
			if err != nil {
				return err
			}
			sc.GlyphStyle = draw.GlyphStyle{Color: failureColor, Radius: vg.Points(3), Shape: draw.TriangleGlyph{}}
			p.Add(sc)
			p.Legend.Add(g.label, sc)
		case StatusInterpolated:
			sc, err := plotter.NewScatter(rowsXY(xc, yc, g.rows, ctx))
			if err != nil {
				return err
			}
			sc.GlyphStyle = draw.GlyphStyle{Color: interpColor, Radius: vg.Points(1.6), Shape: draw.CircleGlyph{}}
			p.Add(sc)
			p.Legend.Add(g.label, sc)
		default:
			if l.Aes.Color != "" && l.Aes.Color != ColStatus {
				for gi, cg := range subgroupIndices(tab, l.Aes.Color, g.rows) {
					sc, err := plotter.NewScatter(rowsXY(xc, yc, cg.rows, ctx))
					if err != nil {
						return err
					}
					sc.GlyphStyle = draw.GlyphStyle{Color: seriesColors[gi%len(seriesColors)], Radius: vg.Points(2.6), Shape: draw.BoxGlyph{}}
					p.Add(sc)
					if cg.label != "" {
						p.Legend.Add(cg.label, sc)
					}
				}
				continue
			}
			sc, err := plotter.NewScatter(rowsXY(xc, yc, g.rows, ctx))
			if err != nil {
				return err
			}
			sc.GlyphStyle = draw.GlyphStyle{Color: successColor, Radius: vg.Points(2.6), Shape: draw.BoxGlyph{}}
			p.Add(sc)
			p.Legend.Add(g.label, sc)
		}
	}
	return nil
}

// addLines draws one x-sorted polyline per group value.
func addLines(p *plot.Plot, tab *effects.Table, l Layer, ctx panelCtx) error {
	xc, yc := tab.Col(l.Aes.X), tab.Col(l.Aes.Y)
	if xc == nil || yc == nil {
		return fmt.Errorf("missing axis column %q or %q", l.Aes.X, l.Aes.Y)
	}
	for gi, g := range groupIndices(tab, l.Aes.Color) {
		xys := rowsXY(xc, yc, g.rows, ctx)
		sort.Slice(xys, func(a, b int) bool { return xys[a].X < xys[b].X })
		line, err := plotter.NewLine(xys)
		if err != nil {
			return err
		}
		line.Color = seriesColors[gi%len(seriesColors)]
		line.Width = vg.Points(1.2)
		p.Add(line)
		if g.label != "" {
			p.Legend.Add(g.label, line)
		}
	}
	return nil
}

// smoothWindow is the moving-average span of the smoothing overlay.
const smoothWindow = 7

// addSmooth overlays a centered moving average per group, drawn dashed.
func addSmooth(p *plot.Plot, tab *effects.Table, l Layer, ctx panelCtx) error {
	xc, yc := tab.Col(l.Aes.X), tab.Col(l.Aes.Y)
	if xc == nil || yc == nil {
		return fmt.Errorf("missing axis column %q or %q", l.Aes.X, l.Aes.Y)
	}
	for gi, g := range groupIndices(tab, l.Aes.Color) {
		xys := rowsXY(xc, yc, g.rows, ctx)
		if len(xys) < 2 {
			continue
		}
		sort.Slice(xys, func(a, b int) bool { return xys[a].X < xys[b].X })

		sm := make(plotter.XYs, len(xys))
		half := smoothWindow / 2
		for i := range xys {
			lo, hi := i-half, i+half
			if lo < 0 {
				lo = 0
			}
			if hi >= len(xys) {
				hi = len(xys) - 1
			}
			sum := 0.0
			for j := lo; j <= hi; j++ {
				sum += xys[j].Y
			}
			sm[i] = plotter.XY{X: xys[i].X, Y: sum / float64(hi-lo+1)}
		}
		line, err := plotter.NewLine(sm)
		if err != nil {
			return err
		}
		line.Color = seriesColors[gi%len(seriesColors)]
		line.Width = vg.Points(2)
		line.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
		p.Add(line)
	}
	return nil
}

// addHeat draws the tile or raster layer as a heat map over the layer's
// grid.
func addHeat(p *plot.Plot, tab *effects.Table, l Layer) error {
	g, err := buildGrid(tab, l.Aes.X, l.Aes.Y, l.Aes.Fill)
	if err != nil {
		return err
	}
	pal := moreland.SmoothBlueRed().Palette(255)
	hm := plotter.NewHeatMap(g, pal)
	hm.NaN = color.Transparent
	p.Add(hm)
	return nil
}

// contourLevels is the number of iso-lines drawn by the contour layer.
const contourLevels = 10

func addContours(p *plot.Plot, tab *effects.Table, l Layer) error {
	g, err := buildGrid(tab, l.Aes.X, l.Aes.Y, l.Aes.Fill)
	if err != nil {
		return err
	}
	zmin, zmax := g.zRange()
	if math.IsNaN(zmin) || zmin == zmax {
		return nil
	}
	levels := make([]float64, contourLevels)
	for i := range levels {
		levels[i] = zmin + (zmax-zmin)*float64(i+1)/float64(contourLevels+1)
	}
	pal := moreland.SmoothBlueRed().Palette(contourLevels)
	ct := plotter.NewContour(g, levels, pal)
	p.Add(ct)
	return nil
}

// xyzXYer adapts XYZs to the XYer the scatter plotter consumes.
type xyzXYer struct{ pts plotter.XYZs }

func (x xyzXYer) Len() int                    { return len(x.pts) }
func (x xyzXYer) XY(i int) (float64, float64) { return x.pts[i].X, x.pts[i].Y }

// denseGrid is a GridXYZ over the unique sorted x and y values of a layer's
// rows. Grid cells with no observation hold NaN.
type denseGrid struct {
	xs, ys []float64
	z      []float64 // row-major, len(ys) rows by len(xs) cols
}

func (g *denseGrid) Dims() (int, int)   { return len(g.xs), len(g.ys) }
func (g *denseGrid) X(c int) float64    { return g.xs[c] }
func (g *denseGrid) Y(r int) float64    { return g.ys[r] }
func (g *denseGrid) Z(c, r int) float64 { return g.z[r*len(g.xs)+c] }

func (g *denseGrid) zRange() (float64, float64) {
	return observedExtreme(g.z, false), observedExtreme(g.z, true)
}

// buildGrid assembles a dense grid from the table rows. Coordinates are
// matched exactly; duplicate cells keep the last value.
func buildGrid(tab *effects.Table, xName, yName, zName string) (*denseGrid, error) {
	xc, yc, zc := tab.Col(xName), tab.Col(yName), tab.Col(zName)
	if xc == nil || yc == nil || zc == nil {
		return nil, fmt.Errorf("grid columns %q, %q, %q not all present", xName, yName, zName)
	}
	if !xc.IsNumeric() || !yc.IsNumeric() || !zc.IsNumeric() {
		return nil, fmt.Errorf("grid plots need numeric x, y and z columns")
	}

	xs := uniqueSorted(xc.Numeric)
	ys := uniqueSorted(yc.Numeric)
	if len(xs) == 0 || len(ys) == 0 {
		return nil, fmt.Errorf("no grid points to draw")
	}
	xi := make(map[float64]int, len(xs))
	for i, v := range xs {
		xi[v] = i
	}
	yi := make(map[float64]int, len(ys))
	for i, v := range ys {
		yi[v] = i
	}

	z := make([]float64, len(xs)*len(ys))
	for i := range z {
		z[i] = math.NaN()
	}
	for r := 0; r < tab.NumRows(); r++ {
		x, y, v := xc.Numeric[r], yc.Numeric[r], zc.Numeric[r]
		if math.IsNaN(x) || math.IsNaN(y) {
			continue
		}
		z[yi[y]*len(xs)+xi[x]] = v
	}
	return &denseGrid{xs: xs, ys: ys, z: z}, nil
}

func uniqueSorted(vals []float64) []float64 {
	var out []float64
	seen := map[float64]bool{}
	for _, v := range vals {
		if math.IsNaN(v) || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	sort.Float64s(out)
	return out
}

// group is one discrete series of a layer.
type group struct {
	label string
	rows  []int
}

// groupIndices splits the table rows by the given column's values, in first
// appearance order. An empty column name yields one unlabeled group of all
// rows.
func groupIndices(tab *effects.Table, name string) []group {
	n := tab.NumRows()
	if name == "" || !tab.HasCol(name) {
		all := make([]int, n)
		for i := range all {
			all[i] = i
		}
		return []group{{rows: all}}
	}
	c := tab.Col(name)
	byLabel := map[string]int{}
	var groups []group
	for i := 0; i < n; i++ {
		l := c.Cell(i)
		gi, ok := byLabel[l]
		if !ok {
			gi = len(groups)
			byLabel[l] = gi
			groups = append(groups, group{label: l})
		}
		groups[gi].rows = append(groups[gi].rows, i)
	}
	return groups
}

// subgroupIndices splits a row subset by the given column's values, in first
// appearance order.
func subgroupIndices(tab *effects.Table, name string, rows []int) []group {
	c := tab.Col(name)
	if c == nil {
		return []group{{rows: rows}}
	}
	byLabel := map[string]int{}
	var groups []group
	for _, r := range rows {
		l := c.Cell(r)
		gi, ok := byLabel[l]
		if !ok {
			gi = len(groups)
			byLabel[l] = gi
			groups = append(groups, group{label: l})
		}
		groups[gi].rows = append(groups[gi].rows, r)
	}
	return groups
}

// rowsXY extracts the plottable coordinate pairs of the given rows, skipping
// rows with a missing coordinate.
func rowsXY(xc, yc *effects.Column, rows []int, ctx panelCtx) plotter.XYs {
	xys := make(plotter.XYs, 0, len(rows))
	for _, r := range rows {
		x, y := cellValue(xc, r, ctx.xEnc), cellValue(yc, r, ctx.yEnc)
		if math.IsNaN(x) || math.IsNaN(y) {
			continue
		}
		xys = append(xys, plotter.XY{X: x, Y: y})
	}
	return xys
}

// cellValue reads a cell as a plot coordinate, mapping categorical cells
// through the axis encoding. Missing cells come out NaN.
func cellValue(c *effects.Column, i int, enc axisEncoding) float64 {
	if c == nil {
		return math.NaN()
	}
	if c.IsNumeric() {
		return c.Numeric[i]
	}
	v, ok := enc[c.Strings[i]]
	if !ok {
		return math.NaN()
	}
	return v
}
