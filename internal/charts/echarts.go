// Package charts renders weight distributions and weighing errors as
// interactive HTML (go-echarts) or static PNG (gonum/plot).
package charts

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/counting-scale/internal/db"
	"github.com/banshee-data/counting-scale/internal/scale"
)

// AssetsHost serves the echarts javascript bundle.
var AssetsHost = "https://go-echarts.github.io/go-echarts-assets/assets/"

// RenderDistribution writes an HTML bar chart of the 0.1-unit weight histogram.
func RenderDistribution(w io.Writer, bins []scale.WeightBin, subtitle string) error {
	x := make([]string, len(bins))
	y := make([]opts.BarData, len(bins))
	total := 0
	for i, b := range bins {
		x[i] = fmt.Sprintf("%.1f", b.Weight)
		y[i] = opts.BarData{Value: b.Count}
		total += b.Count
	}
	if subtitle == "" {
		subtitle = fmt.Sprintf("parts=%d bins=%d", total, len(bins))
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Weight Distribution", Width: "100%", Height: "600px", AssetsHost: AssetsHost}),
		charts.WithTitleOpts(opts.Title{Title: "Part Weight Distribution", Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Weight", NameLocation: "middle", NameGap: 30}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Parts", NameLocation: "middle", NameGap: 40}),
	)
	bar.SetXAxis(x).
		AddSeries("parts", y, charts.WithItemStyleOpts(opts.ItemStyle{Color: "#3e4989"}))

	return renderPage(w, bar)
}

// RenderErrors writes an HTML bar chart of the relative counting error of
// each run, oldest on the left.
func RenderErrors(w io.Writer, runs []db.WeighingRun) error {
	x := make([]string, len(runs))
	y := make([]opts.BarData, len(runs))
	for i := range runs {
		r := runs[len(runs)-1-i]
		x[i] = r.CreatedAt.Format("15:04:05")
		y[i] = opts.BarData{
			Name:  fmt.Sprintf("n=%d est=%d", r.SampleSize, r.RoundedCount),
			Value: r.RelativeErrorPercent,
		}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Weighing Errors", Width: "100%", Height: "600px", AssetsHost: AssetsHost}),
		charts.WithTitleOpts(opts.Title{Title: "Relative Counting Error", Subtitle: fmt.Sprintf("runs=%d", len(runs))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Error (%)", NameLocation: "middle", NameGap: 40}),
	)
	bar.SetXAxis(x).
		AddSeries("error", y,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(len(runs) <= 30), Position: "top"}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: "#ff5252"}),
		)

	return renderPage(w, bar)
}

func renderPage(w io.Writer, c components.Charter) error {
	page := components.NewPage()
	page.SetAssetsHost(AssetsHost)
	page.AddCharts(c)
	if err := page.Render(w); err != nil {
		return fmt.Errorf("render error: %w", err)
	}
	return nil
}
