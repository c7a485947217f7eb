package analysis

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"

	"mrifractal/internal/models"
)

// SeriesEntry is one box size of a slice report
type SeriesEntry struct {
	BoxSize   int     `json:"boxSize"`
	BestCount int     `json:"bestCount"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
}

// SliceReport is the JSON form of a slice result, shared by the CLI and
// the HTTP API.
type SliceReport struct {
	Title     string        `json:"title"`
	File      string        `json:"file,omitempty"`
	Width     int           `json:"width"`
	Height    int           `json:"height"`
	Dimension float64       `json:"dimension"`
	Intercept float64       `json:"intercept"`
	Slope     float64       `json:"slope"`
	RSquared  *float64      `json:"rSquared,omitempty"`
	ElapsedMS float64       `json:"elapsedMs,omitempty"`
	Series    []SeriesEntry `json:"series,omitempty"`
	Error     string        `json:"error,omitempty"`
}

// NewSliceReport converts a slice result into its JSON form
func NewSliceReport(r models.SliceResult) SliceReport {
	report := SliceReport{
		Title:  r.Slice.Title,
		File:   r.Slice.Filename,
		Width:  r.Slice.Width,
		Height: r.Slice.Height,
	}
	if r.Err != nil {
		report.Error = r.Err.Error()
		return report
	}

	report.Dimension = r.Result.Dimension()
	report.Intercept = r.Result.Fit.Intercept
	report.Slope = r.Result.Fit.Slope
	report.ElapsedMS = float64(r.Elapsed.Microseconds()) / 1000
	// R² is undefined when every count is equal
	if rs := r.Result.Fit.RSquared; !math.IsNaN(rs) {
		report.RSquared = &rs
	}
	report.Series = make([]SeriesEntry, len(r.Result.Series))
	for i, p := range r.Result.Series {
		report.Series[i] = SeriesEntry{
			BoxSize:   p.BoxSize,
			BestCount: p.BestCount,
			X:         r.Result.LogLog[i].X,
			Y:         r.Result.LogLog[i].Y,
		}
	}
	return report
}

// Report writes a textual report of results. In verbose mode each slice is
// preceded by its box counts and followed by its estimation time.
func Report(w io.Writer, results []models.SliceResult, verbose bool) error {
	labels := reportLabels(results)
	for i, r := range results {
		var err error
		switch {
		case r.Err != nil:
			_, err = fmt.Fprintf(w, "%s: error: %v\n", labels[i], r.Err)
		case verbose:
			if err = r.Result.WriteReport(w, labels[i]); err == nil {
				_, err = fmt.Fprintf(w, "Estimated in %.3f seconds\n", r.Elapsed.Seconds())
			}
		default:
			_, err = fmt.Fprintf(w, "%s: Fractal dimension: %s\n", labels[i], r.Result.Fit.Dimension())
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// reportLabels names each result by its title. Slices of one DICOM series
// share a title, so repeated titles also carry the file name.
func reportLabels(results []models.SliceResult) []string {
	seen := make(map[string]int, len(results))
	for _, r := range results {
		seen[r.Slice.Title]++
	}

	labels := make([]string, len(results))
	for i, r := range results {
		labels[i] = r.Slice.Title
		if seen[r.Slice.Title] > 1 && r.Slice.Filename != r.Slice.Title {
			labels[i] = fmt.Sprintf("%s (%s)", r.Slice.Title, r.Slice.Filename)
		}
	}
	return labels
}

// WriteJSON writes results as an indented JSON array
func WriteJSON(w io.Writer, results []models.SliceResult) error {
	reports := make([]SliceReport, len(results))
	for i, r := range results {
		reports[i] = NewSliceReport(r)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(reports)
}

// WriteSeriesCSV writes one row per slice and box size. Failed slices are
// skipped.
func WriteSeriesCSV(w io.Writer, results []models.SliceResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"file", "title", "boxSize", "bestCount", "x", "y"}); err != nil {
		return err
	}

	for _, r := range results {
		if r.Result == nil {
			continue
		}
		for i, p := range r.Result.Series {
			pt := r.Result.LogLog[i]
			row := []string{
				r.Slice.Filename,
				r.Slice.Title,
				strconv.Itoa(p.BoxSize),
				strconv.Itoa(p.BestCount),
				strconv.FormatFloat(pt.X, 'f', 6, 64),
				strconv.FormatFloat(pt.Y, 'f', 6, 64),
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
	}

	cw.Flush()
	return cw.Error()
}
