package plotspec

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tunefx/tunefx/effects"
	"github.com/tunefx/tunefx/learner"
	"github.com/tunefx/tunefx/tuning"
)

func TestParseKind(t *testing.T) {
	for _, s := range []string{"scatter", "line", "heatmap", "contour"} {
		k, err := ParseKind(s)
		require.NoError(t, err)
		assert.Equal(t, Kind(s), k)
	}
	_, err := ParseKind("violin")
	assert.Error(t, err)
}

func TestRequestValidation(t *testing.T) {
	rec := buildRecord(t, svmRun(
		[]float64{0.25, 1},
		[]float64{0.5, 2},
		[]float64{0.3, 0.2},
	))

	cases := []struct {
		name string
		req  Request
		want string
	}{
		{
			name: "multiple x columns",
			req:  Request{X: []string{"C", "sigma"}, Y: []string{"mmce.test.mean"}, Kind: KindScatter},
			want: "not yet supported",
		},
		{
			name: "no y column",
			req:  Request{X: []string{"C"}, Kind: KindScatter},
			want: "not yet supported",
		},
		{
			name: "unknown x column",
			req:  NewRequest("gamma", "mmce.test.mean", KindScatter),
			want: `column "gamma" not present`,
		},
		{
			name: "unknown kind",
			req:  NewRequest("C", "mmce.test.mean", Kind("violin")),
			want: "invalid plot kind",
		},
		{
			name: "heatmap without z",
			req:  NewRequest("C", "sigma", KindHeatmap),
			want: "require a z column",
		},
		{
			name: "unknown z column",
			req: func() Request {
				r := NewRequest("C", "sigma", KindHeatmap)
				r.Z = "rmse"
				return r
			}(),
			want: `z column "rmse" not present`,
		},
		{
			name: "unknown facet column",
			req: func() Request {
				r := NewRequest("C", "mmce.test.mean", KindScatter)
				r.Facet = "fold"
				return r
			}(),
			want: `facet column "fold" not present`,
		},
		{
			name: "interpolation without grid kind",
			req: func() Request {
				r := NewRequest("C", "mmce.test.mean", KindScatter)
				r.Interpolate = learner.NewKNN(3)
				return r
			}(),
			want: "interpolation requires a z column",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := BuildSpec(rec, tc.req)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestFoldFacetRejectedWhenFoldsAggregate(t *testing.T) {
	rr := &tuning.ResampleResult{Folds: []*tuning.TuneResult{
		svmRun([]float64{0.25, 4}, []float64{0.5, 2}, []float64{0.3, 0.2}),
		svmRun([]float64{0.25, 4}, []float64{0.5, 2}, []float64{0.4, 0.3}),
	}}
	rec := buildRecord(t, rr)

	// Aggregation over a z column drops the fold column, so faceting by it
	// must be rejected up front.
	req := NewRequest("C", "sigma", KindHeatmap)
	req.Z = "mmce.test.mean"
	req.Facet = effects.ColNestedRun
	_, err := BuildSpec(rec, req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not supported when nested results are aggregated")

	// Without a z column the folds survive and faceting by them is fine.
	req = NewRequest(effects.ColIteration, "mmce.test.mean", KindScatter)
	req.Facet = effects.ColNestedRun
	_, err = BuildSpec(rec, req)
	require.NoError(t, err)
}

func TestScatterSpecLayers(t *testing.T) {
	rec := buildRecord(t, svmRun(
		[]float64{0.25, 1},
		[]float64{0.5, 2},
		[]float64{0.3, 0.2},
	))
	spec, err := BuildSpec(rec, NewRequest("C", "mmce.test.mean", KindScatter))
	require.NoError(t, err)

	require.Len(t, spec.Layers, 1)
	l := spec.Layers[0]
	assert.Equal(t, GeomPoint, l.Geom)
	assert.Equal(t, "C", l.Aes.X)
	assert.Equal(t, "mmce.test.mean", l.Aes.Y)
	assert.Empty(t, l.Aes.Shape, "clean runs need no status shapes")
	assert.Equal(t, "C", spec.XLabel)
	assert.Equal(t, "grid", spec.Title)
}

func TestFailureRunBindsStatusShape(t *testing.T) {
	rec := buildRecord(t, svmRun(
		[]float64{0.25, 1},
		[]float64{0.5, 2},
		[]float64{0.3, math.NaN()},
	))
	spec, err := BuildSpec(rec, NewRequest("C", "mmce.test.mean", KindScatter))
	require.NoError(t, err)

	require.Len(t, spec.Layers, 1)
	assert.Equal(t, ColStatus, spec.Layers[0].Aes.Shape)
	assert.Equal(t, ColStatus, spec.Layers[0].Aes.Color)
}

func TestLineSpecAddsLineLayer(t *testing.T) {
	rec := buildRecord(t, svmRun(
		[]float64{0.25, 1, 4},
		[]float64{0.5, 0.5, 0.5},
		[]float64{0.3, 0.25, 0.2},
	))
	req := NewRequest(effects.ColIteration, "mmce.test.mean", KindLine)
	req.Smooth = true
	spec, err := BuildSpec(rec, req)
	require.NoError(t, err)

	geoms := make([]Geom, len(spec.Layers))
	for i, l := range spec.Layers {
		geoms[i] = l.Geom
	}
	assert.Contains(t, geoms, GeomPoint)
	assert.Contains(t, geoms, GeomLine)
	assert.Contains(t, geoms, GeomSmooth)
}

func TestHeatmapSpecLayers(t *testing.T) {
	rec := buildRecord(t, svmRun(
		[]float64{0.25, 0.25, 4, 4},
		[]float64{0.5, 2, 0.5, 2},
		[]float64{0.3, 0.25, 0.2, 0.35},
	))
	req := NewRequest("C", "sigma", KindHeatmap)
	req.Z = "mmce.test.mean"
	req.ShowExperiments = true
	spec, err := BuildSpec(rec, req)
	require.NoError(t, err)

	require.Len(t, spec.Layers, 2)
	assert.Equal(t, GeomTile, spec.Layers[0].Geom)
	assert.Equal(t, "mmce.test.mean", spec.Layers[0].Aes.Fill)
	assert.Equal(t, GeomPoint, spec.Layers[1].Geom)
	assert.Equal(t, StatusInterpolated, spec.Layers[1].SkipStatus)
	assert.Equal(t, "mmce.test.mean", spec.FillLabel)
}

func TestInterpolatedHeatmapUsesRaster(t *testing.T) {
	rec := buildRecord(t, svmRun(
		[]float64{0.25, 0.25, 4, 4},
		[]float64{0.5, 2, 0.5, 2},
		[]float64{0.3, 0.25, 0.2, 0.35},
	))
	req := NewRequest("C", "sigma", KindHeatmap)
	req.Z = "mmce.test.mean"
	req.Interpolate = learner.NewKNN(3)
	req.ShowInterpolated = true
	spec, err := BuildSpec(rec, req)
	require.NoError(t, err)

	require.Len(t, spec.Layers, 2)
	assert.Equal(t, GeomRaster, spec.Layers[0].Geom)
	assert.Equal(t, StatusInterpolated, spec.Layers[0].OnlyStatus)
	assert.Equal(t, GeomPoint, spec.Layers[1].Geom)
	assert.Equal(t, StatusInterpolated, spec.Layers[1].OnlyStatus)
}

func TestContourSpecLayers(t *testing.T) {
	rec := buildRecord(t, svmRun(
		[]float64{0.25, 0.25, 4, 4},
		[]float64{0.5, 2, 0.5, 2},
		[]float64{0.3, 0.25, 0.2, 0.35},
	))
	req := NewRequest("C", "sigma", KindContour)
	req.Z = "mmce.test.mean"
	spec, err := BuildSpec(rec, req)
	require.NoError(t, err)

	geoms := make([]Geom, len(spec.Layers))
	for i, l := range spec.Layers {
		geoms[i] = l.Geom
	}
	assert.Contains(t, geoms, GeomContour)
}

func TestPrettyLabelsUseMeasureDisplayName(t *testing.T) {
	tr := svmRun([]float64{0.25, 1}, []float64{0.5, 2}, []float64{0.3, 0.2})
	tr.Path.Measures[0].DisplayName = "Mean misclassification error"
	rec := buildRecord(t, tr)

	req := NewRequest("C", "mmce.test.mean", KindScatter)
	req.PrettyLabels = true
	spec, err := BuildSpec(rec, req)
	require.NoError(t, err)

	assert.Equal(t, "C", spec.XLabel, "hyperparameters keep their raw name")
	assert.Equal(t, "Mean misclassification error", spec.YLabel)
}
