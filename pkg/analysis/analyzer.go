package analysis

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"mrifractal/internal/models"
	"mrifractal/pkg/boxcount"
	"mrifractal/pkg/loader"
	"mrifractal/pkg/visualization"
)

// Plot size used for the per-slice log-log plots
const (
	plotWidth  = 640
	plotHeight = 480
)

// Params holds the batch analysis parameters.
type Params struct {
	// Inputs are slice files or directories of slices
	Inputs []string

	// Config is passed to the estimator for every slice
	Config boxcount.Config

	// Loader controls how slices are decoded
	Loader loader.Options

	// NumCores is the number of slices estimated concurrently
	NumCores int

	// Verbose logs each processing step
	Verbose bool

	// PlotDir receives a log-log plot and a preview per slice when set
	PlotDir string

	// SeriesCSV receives the box-count series of all slices when set
	SeriesCSV string
}

// Analyzer estimates the fractal dimension of every slice of a batch.
//
// The process consists of several steps:
// 1. Loading the input slices
// 2. Estimating each slice in parallel
// 3. Writing the optional plots and series file
type Analyzer struct {
	params  *Params
	slices  []*models.Slice
	results []models.SliceResult
}

// NewAnalyzer creates a new analyzer with the provided parameters.
func NewAnalyzer(params *Params) *Analyzer {
	return &Analyzer{
		params: params,
		slices: make([]*models.Slice, 0),
	}
}

// Process runs the complete pipeline. A slice that cannot be estimated is
// reported in its result and does not fail the batch.
func (a *Analyzer) Process(ctx context.Context) ([]models.SliceResult, error) {
	if err := a.params.Config.Validate(); err != nil {
		return nil, err
	}

	a.logf("Step 1: Loading input slices...")
	slices, err := loader.LoadPaths(a.params.Inputs, a.params.Loader)
	if err != nil {
		return nil, fmt.Errorf("failed to load slices: %w", err)
	}
	if len(slices) == 0 {
		return nil, fmt.Errorf("no input slices")
	}
	a.slices = slices
	a.logf("Loaded %d slices", len(slices))

	a.logf("Step 2: Estimating fractal dimensions...")
	results, err := a.estimateInParallel(ctx)
	if err != nil {
		return nil, err
	}
	a.results = results

	if a.params.PlotDir != "" {
		a.logf("Step 3: Saving plots to %s...", a.params.PlotDir)
		if err := a.savePlots(); err != nil {
			return nil, err
		}
	}

	if a.params.SeriesCSV != "" {
		a.logf("Saving box-count series to %s...", a.params.SeriesCSV)
		if err := a.saveSeries(); err != nil {
			return nil, err
		}
	}

	return results, nil
}

// Results returns the results of the last Process call
func (a *Analyzer) Results() []models.SliceResult {
	return a.results
}

// estimateInParallel runs the estimator over all slices with NumCores workers.
// Results keep the slice order.
func (a *Analyzer) estimateInParallel(ctx context.Context) ([]models.SliceResult, error) {
	numCores := a.params.NumCores
	if numCores < 1 {
		numCores = 1
	}

	results := make([]models.SliceResult, len(a.slices))
	resultChan := make(chan int, len(a.slices))
	jobs := make(chan int)

	for w := 0; w < numCores; w++ {
		go func() {
			for i := range jobs {
				start := time.Now()
				slice := a.slices[i]
				result, err := boxcount.EstimateContext(ctx, slice.Image(), a.params.Config)
				results[i] = models.SliceResult{
					Slice:   slice,
					Result:  result,
					Err:     err,
					Elapsed: time.Since(start),
				}
				resultChan <- i
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i := range a.slices {
			select {
			case <-ctx.Done():
				return
			case jobs <- i:
			}
		}
	}()

	// Collect results until every slice is done or the context ends
	completed := 0
	for completed < len(a.slices) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case i := <-resultChan:
			completed++
			if err := results[i].Err; err != nil {
				log.Printf("Warning: %s: %v", a.slices[i].Title, err)
			}
			a.logf("Estimating slices: %.1f%% complete", float64(completed)/float64(len(a.slices))*100)
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// savePlots writes a log-log plot and a slice preview for each estimated slice
func (a *Analyzer) savePlots() error {
	if err := os.MkdirAll(a.params.PlotDir, 0755); err != nil {
		return fmt.Errorf("failed to create plot directory: %w", err)
	}

	plotter := visualization.NewPlotter(plotWidth, plotHeight)
	for _, r := range a.results {
		if r.Result == nil {
			continue
		}
		base := filepath.Join(a.params.PlotDir, outputStem(r.Slice))
		if err := plotter.SavePlot(r.Result, base+"_loglog.png"); err != nil {
			return fmt.Errorf("failed to save plot for %s: %w", r.Slice.Filename, err)
		}
		if err := visualization.SaveSlice(r.Slice, base+"_slice.png"); err != nil {
			return fmt.Errorf("failed to save preview for %s: %w", r.Slice.Filename, err)
		}
	}
	return nil
}

func (a *Analyzer) saveSeries() error {
	if dir := filepath.Dir(a.params.SeriesCSV); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create series directory: %w", err)
		}
	}

	file, err := os.Create(a.params.SeriesCSV)
	if err != nil {
		return fmt.Errorf("failed to create series file: %w", err)
	}
	defer file.Close()

	if err := WriteSeriesCSV(file, a.results); err != nil {
		return fmt.Errorf("failed to write series file: %w", err)
	}
	return file.Close()
}

// outputStem builds a file name prefix unique within a batch
func outputStem(slice *models.Slice) string {
	name := filepath.Base(slice.Filename)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	return fmt.Sprintf("%03d_%s", slice.Index, name)
}

func (a *Analyzer) logf(format string, args ...interface{}) {
	if a.params.Verbose {
		log.Printf(format, args...)
	}
}
