// Command effectplot renders hyperparameter effect plots from tuning traces.
//
// A trace is loaded from a JSON dump (single run or nested cross-validation)
// or from an optimization-path CSV, normalized into a tidy table and drawn as
// a scatter, line, heatmap or contour plot.
//
// Examples:
//
//	effectplot -trace trace.json -x C -y mmce -out effect.png
//	effectplot -trace nested.json -x C -y sigma -z mmce -kind heatmap \
//	    -interp knn -show-experiments -out surface.png
//	effectplot -csv path.csv -csv-optimizer random -csv-params C,sigma \
//	    -csv-measures mmce -x iteration -y mmce -global-only -out progress.png
package main

import (
	"flag"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/tunefx/tunefx/effects"
	"github.com/tunefx/tunefx/learner"
	"github.com/tunefx/tunefx/plotspec"
	"github.com/tunefx/tunefx/tuning"
)

func main() {
	tracePath := flag.String("trace", "", "path to a tuning trace JSON file (single run or nested CV)")
	csvPath := flag.String("csv", "", "path to an optimization path CSV file (alternative to -trace)")
	csvOptimizer := flag.String("csv-optimizer", "unknown", "optimizer name recorded for CSV input")
	csvParams := flag.String("csv-params", "", "comma-separated hyperparameter column names for CSV input")
	csvMeasures := flag.String("csv-measures", "", "comma-separated measure columns for CSV input, each 'id' or 'id:max'")

	registryPath := flag.String("measures", "", "optional YAML measure registry overriding trace measure definitions")

	xFlag := flag.String("x", "", "column plotted on the x axis")
	yFlag := flag.String("y", "", "column plotted on the y axis")
	zFlag := flag.String("z", "", "optional column mapped to the color scale")
	facet := flag.String("facet", "", "optional column to split the plot by")
	kindFlag := flag.String("kind", "scatter", "plot kind: scatter, line, heatmap or contour")

	globalOnly := flag.Bool("global-only", false, "plot the running best instead of raw measure values")
	smooth := flag.Bool("smooth", false, "overlay a smoothing curve")
	pretty := flag.Bool("pretty", false, "use measure display names on axis labels")
	showExp := flag.Bool("show-experiments", false, "overlay evaluated configurations on grid plots")
	showInterp := flag.Bool("show-interpolated", false, "overlay interpolated grid points")
	interpFlag := flag.String("interp", "", "interpolation learner for grid plots: knn or ridge")

	trafo := flag.Bool("trafo", false, "apply parameter transforms before building the table")
	diagnostics := flag.Bool("diagnostics", false, "keep the eol and error-message columns")

	outPath := flag.String("out", "effect.png", "output PNG path")
	verbose := flag.Bool("v", false, "enable debug logging")
	flag.Parse()

	log := logrus.New()
	if *verbose {
		log.SetLevel(logrus.DebugLevel)
		logrus.SetLevel(logrus.DebugLevel)
	}

	if *xFlag == "" || *yFlag == "" {
		log.Fatal("both -x and -y are required")
	}
	kind, err := plotspec.ParseKind(*kindFlag)
	if err != nil {
		log.Fatal(err)
	}

	input, err := loadTrace(*tracePath, *csvPath, *csvOptimizer, *csvParams, *csvMeasures)
	if err != nil {
		log.Fatal(err)
	}

	var opts []effects.Option
	if *trafo {
		opts = append(opts, effects.WithTrafo())
	}
	if *diagnostics {
		opts = append(opts, effects.WithDiagnostics())
	}
	if *registryPath != "" {
		reg, err := tuning.LoadRegistry(*registryPath)
		if err != nil {
			log.Fatalf("loading measure registry: %v", err)
		}
		opts = append(opts, effects.WithMeasureRegistry(reg))
	}

	rec, err := effects.Build(input, opts...)
	if err != nil {
		log.Fatalf("building effect data: %v", err)
	}
	log.Debugf("effect data: %d rows, %d columns, nested=%v, optimizer=%s",
		rec.Table.NumRows(), rec.Table.NumCols(), rec.Nested, rec.Optimizer)

	req := plotspec.NewRequest(*xFlag, *yFlag, kind)
	req.Z = *zFlag
	req.Facet = *facet
	req.Smooth = *smooth
	req.PrettyLabels = *pretty
	req.GlobalOnly = *globalOnly
	req.ShowExperiments = *showExp
	req.ShowInterpolated = *showInterp
	if *interpFlag != "" {
		l, err := learner.ByName(*interpFlag)
		if err != nil {
			log.Fatal(err)
		}
		req.Interpolate = l
	}

	spec, err := plotspec.BuildSpec(rec, req)
	if err != nil {
		log.Fatal(err)
	}
	if err := plotspec.Render(spec, *outPath); err != nil {
		log.Fatalf("rendering plot: %v", err)
	}
	log.Infof("wrote %s", *outPath)
}

// loadTrace reads the tuning trace from whichever input flag was given.
func loadTrace(tracePath, csvPath, optimizer, params, measures string) (any, error) {
	switch {
	case tracePath != "" && csvPath != "":
		return nil, fmt.Errorf("-trace and -csv are mutually exclusive")
	case tracePath != "":
		return tuning.LoadTraceJSON(tracePath)
	case csvPath != "":
		if params == "" || measures == "" {
			return nil, fmt.Errorf("-csv input needs -csv-params and -csv-measures")
		}
		ms, err := parseMeasureList(measures)
		if err != nil {
			return nil, err
		}
		return tuning.ReadPathCSV(csvPath, optimizer, splitList(params), ms)
	default:
		return nil, fmt.Errorf("one of -trace or -csv is required")
	}
}

// parseMeasureList parses "id" or "id:max" items. Measures minimize by
// default; ":max" marks a maximized measure.
func parseMeasureList(s string) ([]tuning.Measure, error) {
	var out []tuning.Measure
	for _, item := range splitList(s) {
		id, dir, found := strings.Cut(item, ":")
		m := tuning.Measure{ID: id, Minimize: true}
		if found {
			switch dir {
			case "min":
			case "max":
				m.Minimize = false
			default:
				return nil, fmt.Errorf("invalid measure direction %q in %q (want min or max)", dir, item)
			}
		}
		out = append(out, m)
	}
	return out, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
