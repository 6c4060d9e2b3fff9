package charts

import (
	"errors"
	"fmt"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// ErrNoData is returned when there is nothing to plot.
var ErrNoData = errors.New("no weights to plot")

const (
	histWidth  = 10 * vg.Inch
	histHeight = 5 * vg.Inch
)

func histogramPlot(weights []float64, bins int, title string) (*plot.Plot, error) {
	if len(weights) == 0 {
		return nil, ErrNoData
	}
	if bins <= 0 {
		bins = 40
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Weight"
	p.Y.Label.Text = "Parts"

	h, err := plotter.NewHist(plotter.Values(weights), bins)
	if err != nil {
		return nil, fmt.Errorf("failed to build histogram: %w", err)
	}
	p.Add(h)
	return p, nil
}

// SaveHistogramPNG writes a PNG histogram of weights to path.
func SaveHistogramPNG(path string, weights []float64, bins int, title string) error {
	p, err := histogramPlot(weights, bins, title)
	if err != nil {
		return err
	}
	if err := p.Save(histWidth, histHeight, path); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}

// WriteHistogramPNG streams the same PNG histogram to w.
func WriteHistogramPNG(w io.Writer, weights []float64, bins int, title string) error {
	p, err := histogramPlot(weights, bins, title)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(histWidth, histHeight, "png")
	if err != nil {
		return fmt.Errorf("failed to draw histogram: %w", err)
	}
	_, err = wt.WriteTo(w)
	return err
}
