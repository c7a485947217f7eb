package boxcount

import (
	"context"
	"fmt"
	"io"
)

// Result holds everything a run produces: the raw series for textual
// reports, the log-log series for plotting, and the fitted line.
type Result struct {
	Series []SeriesPoint
	LogLog []LogLogPoint
	Fit    FitResult

	MaxBoxSize int
	MinBoxSize int
	OffsetSets int
}

// Dimension returns the estimated fractal dimension.
func (r *Result) Dimension() float64 {
	return r.Fit.Slope
}

// Estimate runs the full pipeline: scan, log-log transform and fit.
func Estimate(img Image, cfg Config) (*Result, error) {
	return EstimateContext(context.Background(), img, cfg)
}

// EstimateContext is Estimate with cancellation of the scan stage.
func EstimateContext(ctx context.Context, img Image, cfg Config) (*Result, error) {
	series, err := ScanContext(ctx, img, cfg)
	if err != nil {
		return nil, err
	}

	logLog, err := Transform(series, img.Width())
	if err != nil {
		return nil, err
	}

	fit, err := Fit(logLog)
	if err != nil {
		return nil, err
	}

	return &Result{
		Series:     series,
		LogLog:     logLog,
		Fit:        fit,
		MaxBoxSize: series[0].BoxSize,
		MinBoxSize: series[len(series)-1].BoxSize,
		OffsetSets: cfg.NumberOfOffsetSets,
	}, nil
}

// WriteReport writes the per-size box counts followed by a summary line and
// the dimension, labelled with title.
func (r *Result) WriteReport(w io.Writer, title string) error {
	for _, p := range r.Series {
		if _, err := fmt.Fprintf(w, "Quantity of \"boxes\" %d with size %d\n", p.BestCount, p.BoxSize); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "Used %d different \"boxes\" from %d till %d with %d iterations for every \"box\".\n%s: Fractal dimension: %s\n",
		len(r.Series), r.MaxBoxSize, r.MinBoxSize, r.OffsetSets, title, r.Fit.Dimension())
	return err
}
