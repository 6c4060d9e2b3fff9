// Command scale-sim runs one produce, calibrate and weigh cycle in-process
// and reports the estimated count against the true one.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/banshee-data/counting-scale/internal/charts"
	"github.com/banshee-data/counting-scale/internal/scale"
	"github.com/banshee-data/counting-scale/internal/security"
	"github.com/banshee-data/counting-scale/internal/units"
)

type report struct {
	PopulationID   string                   `json:"population_id"`
	PopulationSize int                      `json:"population_size"`
	Production     scale.ProductionConfig   `json:"production"`
	Calibration    *scale.CalibrationResult `json:"calibration"`
	Weighings      []*scale.WeighingResult  `json:"weighings"`
	PlotPath       string                   `json:"plot_path,omitempty"`
}

type options struct {
	prod      scale.ProductionConfig
	reference int
	sample    int
	weighings int
	seed      uint64
	plot      string
	bins      int
	json      bool
	units     string
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var o options
	fs := flag.NewFlagSet("scale-sim", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.IntVar(&o.prod.Count, "count", 1000, "Number of parts to produce")
	fs.Float64Var(&o.prod.NominalWeight, "nominal", 5, "Nominal part weight")
	fs.Float64Var(&o.prod.TolerancePercent, "tolerance", 2, "Weight tolerance in percent (±3σ)")
	fs.IntVar(&o.reference, "reference", 50, "Reference count used for calibration")
	fs.IntVar(&o.sample, "sample", 200, "Number of parts placed on the scale")
	fs.IntVar(&o.weighings, "weighings", 1, "Number of independent weighings")
	fs.Uint64Var(&o.seed, "seed", 0, "Random seed (0 for a random seed)")
	fs.StringVar(&o.plot, "plot", "", "Write a PNG histogram of part weights to this path")
	fs.IntVar(&o.bins, "bins", 40, "Histogram bins for -plot")
	fs.BoolVar(&o.json, "json", false, "Print the report as JSON")
	fs.StringVar(&o.units, "units", units.Grams, "Display unit for weights in the text report ("+units.GetValidWeightUnitsString()+")")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if fs.NArg() > 0 {
		return o, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	if o.weighings < 1 {
		return o, fmt.Errorf("-weighings must be at least 1, got %d", o.weighings)
	}
	if !units.IsValidWeightUnit(o.units) {
		return o, fmt.Errorf("invalid -units %q, expected one of %s", o.units, units.GetValidWeightUnitsString())
	}
	if o.plot != "" {
		if err := security.ValidateOutputPath(o.plot); err != nil {
			return o, fmt.Errorf("invalid -plot path: %w", err)
		}
	}
	return o, nil
}

func simulate(o options) (*report, error) {
	gen := scale.NewRandomGenerator()
	if o.seed != 0 {
		gen = scale.NewGenerator(o.seed)
	}

	pop, err := gen.Generate(o.prod)
	if err != nil {
		return nil, fmt.Errorf("produce: %w", err)
	}
	var sess scale.Session
	if sess, err = sess.Produce(pop); err != nil {
		return nil, err
	}

	ref, err := gen.TakeSample(pop, o.reference)
	if err != nil {
		return nil, fmt.Errorf("reference sample: %w", err)
	}
	cal, err := scale.Calibrate(ref, o.reference)
	if err != nil {
		return nil, fmt.Errorf("calibrate: %w", err)
	}
	if sess, err = sess.Calibrate(cal); err != nil {
		return nil, err
	}

	rep := &report{
		PopulationID:   pop.ID,
		PopulationSize: pop.Len(),
		Production:     o.prod,
		Calibration:    cal,
	}
	for i := 0; i < o.weighings; i++ {
		sample, err := gen.TakeSample(pop, o.sample)
		if err != nil {
			return nil, fmt.Errorf("weighing sample: %w", err)
		}
		res, err := scale.WeighSample(sample, cal)
		if err != nil {
			return nil, fmt.Errorf("weigh: %w", err)
		}
		if sess, err = sess.Weigh(res); err != nil {
			return nil, err
		}
		rep.Weighings = append(rep.Weighings, res)
	}

	if o.plot != "" {
		title := fmt.Sprintf("%d parts, nominal %g ±%g%%", pop.Len(), o.prod.NominalWeight, o.prod.TolerancePercent)
		if err := charts.SaveHistogramPNG(o.plot, pop.Weights(), o.bins, title); err != nil {
			return nil, err
		}
		rep.PlotPath = o.plot
	}
	return rep, nil
}

// printReport writes the human-readable report with weights in unit.
func printReport(w io.Writer, rep *report, unit string) {
	wt := func(g float64) float64 { return units.ConvertWeight(g, unit) }
	fmt.Fprintf(w, "Population %s: %d parts (nominal %.4g %s, tolerance %g%%)\n",
		rep.PopulationID, rep.PopulationSize, wt(rep.Production.NominalWeight), unit, rep.Production.TolerancePercent)
	cal := rep.Calibration
	fmt.Fprintf(w, "Calibration: %d reference parts weigh %.4f %s, unit weight %.5f %s (σ %.5f, SE %.5f)\n",
		cal.ReferenceCount, wt(cal.SampleTotalWeight), unit, wt(cal.EstimatedUnitWeight), unit,
		wt(cal.EstimatedUnitWeightStdDev), wt(cal.UnitWeightStdErr))
	for i, res := range rep.Weighings {
		fmt.Fprintf(w, "Weighing %d: %d parts weigh %.4f %s, estimated %.2f (rounded %d), error %.2f (%.3f%%)\n",
			i+1, res.SampleSize, wt(res.SampleTotalWeight), unit, res.EstimatedCount, res.RoundedCount,
			res.AbsoluteError, res.RelativeErrorPercent)
	}
	if rep.PlotPath != "" {
		fmt.Fprintf(w, "Histogram written to %s\n", rep.PlotPath)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	o, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	rep, err := simulate(o)
	if err != nil {
		return err
	}
	if o.json {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	}
	printReport(stdout, rep, o.units)
	return nil
}

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		log.Fatalf("scale-sim: %v", err)
	}
}
