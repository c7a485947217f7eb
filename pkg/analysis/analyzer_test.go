package analysis

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"mrifractal/internal/models"
	"mrifractal/pkg/boxcount"
	"mrifractal/pkg/loader"
)

// writeSlice saves a gray PNG whose pixel values come from f
func writeSlice(t *testing.T, path string, w, h int, f func(x, y int) uint8) {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetGray(x, y, color.Gray{Y: f(x, y)})
		}
	}

	file, err := os.Create(path)
	if err != nil {
		t.Fatalf("Failed to create %s: %v", path, err)
	}
	defer file.Close()
	if err := png.Encode(file, img); err != nil {
		t.Fatalf("Failed to encode %s: %v", path, err)
	}
}

// createTestSlices writes two valid slices and one too small to scan
func createTestSlices(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "analysis-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}

	writeSlice(t, filepath.Join(dir, "slice_01.png"), 64, 64, func(x, y int) uint8 { return 100 })
	writeSlice(t, filepath.Join(dir, "slice_02.png"), 64, 64, func(x, y int) uint8 {
		return uint8((x*7919 + y*104729) % 256)
	})
	writeSlice(t, filepath.Join(dir, "slice_03.png"), 4, 4, func(x, y int) uint8 { return uint8(x + y) })
	return dir
}

func newTestParams(inputs ...string) *Params {
	return &Params{
		Inputs:   inputs,
		Config:   boxcount.DefaultConfig(),
		Loader:   loader.DefaultOptions(),
		NumCores: 2,
	}
}

func TestProcess(t *testing.T) {
	dir := createTestSlices(t)
	defer os.RemoveAll(dir)

	results, err := NewAnalyzer(newTestParams(dir)).Process(context.Background())
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("Expected 3 results, got %d", len(results))
	}

	for i, name := range []string{"slice_01.png", "slice_02.png", "slice_03.png"} {
		if results[i].Slice.Filename != name {
			t.Errorf("Result %d: expected %s, got %s", i, name, results[i].Slice.Filename)
		}
		if results[i].Slice.Index != i {
			t.Errorf("Result %d: expected index %d, got %d", i, i, results[i].Slice.Index)
		}
	}

	flat := results[0]
	if flat.Err != nil {
		t.Fatalf("Flat slice failed: %v", flat.Err)
	}
	if d := flat.Result.Dimension(); d < 1.85 || d > 2.0 {
		t.Errorf("Expected flat slice dimension near 2, got %f", d)
	}

	rough := results[1]
	if rough.Err != nil {
		t.Fatalf("Rough slice failed: %v", rough.Err)
	}
	if rough.Result.Dimension() <= flat.Result.Dimension() {
		t.Errorf("Expected rough slice (%f) above flat slice (%f)",
			rough.Result.Dimension(), flat.Result.Dimension())
	}

	var scanErr *boxcount.DegenerateScanError
	if !errors.As(results[2].Err, &scanErr) {
		t.Errorf("Expected DegenerateScanError for 4x4 slice, got %v", results[2].Err)
	}
	if results[2].Result != nil {
		t.Errorf("Expected no result for failed slice")
	}
}

func TestProcessOutputs(t *testing.T) {
	dir := createTestSlices(t)
	defer os.RemoveAll(dir)

	outDir, err := os.MkdirTemp("", "analysis-out-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(outDir)

	params := newTestParams(filepath.Join(dir, "slice_02.png"), filepath.Join(dir, "slice_03.png"))
	params.PlotDir = filepath.Join(outDir, "plots")
	params.SeriesCSV = filepath.Join(outDir, "csv", "series.csv")

	a := NewAnalyzer(params)
	if _, err := a.Process(context.Background()); err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	for _, name := range []string{"000_slice_02_loglog.png", "000_slice_02_slice.png"} {
		if _, err := os.Stat(filepath.Join(params.PlotDir, name)); err != nil {
			t.Errorf("Expected %s to be written: %v", name, err)
		}
	}
	if _, err := os.Stat(filepath.Join(params.PlotDir, "001_slice_03_loglog.png")); !os.IsNotExist(err) {
		t.Errorf("Expected no plot for the failed slice")
	}

	file, err := os.Open(params.SeriesCSV)
	if err != nil {
		t.Fatalf("Failed to open series file: %v", err)
	}
	defer file.Close()
	rows, err := csv.NewReader(file).ReadAll()
	if err != nil {
		t.Fatalf("Failed to read series file: %v", err)
	}
	// header plus box sizes 16 down to 2
	if len(rows) != 16 {
		t.Errorf("Expected 16 rows, got %d", len(rows))
	}

	if len(a.Results()) != 2 {
		t.Errorf("Expected Results to keep 2 entries, got %d", len(a.Results()))
	}
}

func TestProcessErrors(t *testing.T) {
	if _, err := NewAnalyzer(newTestParams("/does/not/exist.png")).Process(context.Background()); err == nil {
		t.Error("Expected error for missing input")
	}

	params := newTestParams()
	if _, err := NewAnalyzer(params).Process(context.Background()); err == nil {
		t.Error("Expected error for no inputs")
	}

	params.Config.NumberOfOffsetSets = 0
	var cfgErr *boxcount.InvalidConfigError
	if _, err := NewAnalyzer(params).Process(context.Background()); !errors.As(err, &cfgErr) {
		t.Errorf("Expected InvalidConfigError, got %v", err)
	}
}

func TestProcessCanceled(t *testing.T) {
	dir := createTestSlices(t)
	defer os.RemoveAll(dir)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := NewAnalyzer(newTestParams(dir)).Process(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

// estimate builds a slice result directly, without touching the disk
func estimate(t *testing.T, title string, w, h int) models.SliceResult {
	t.Helper()
	slice := models.NewSlice(title+".png", w, h)
	slice.Title = title
	result, err := boxcount.Estimate(slice.Image(), boxcount.DefaultConfig())
	return models.SliceResult{Slice: slice, Result: result, Err: err}
}

func TestReport(t *testing.T) {
	results := []models.SliceResult{
		estimate(t, "flat", 16, 16),
		estimate(t, "tiny", 4, 4),
	}

	var buf bytes.Buffer
	if err := Report(&buf, results, false); err != nil {
		t.Fatalf("Report failed: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("Expected 2 lines, got %q", buf.String())
	}
	if !strings.HasPrefix(lines[0], "flat: Fractal dimension: ") {
		t.Errorf("Unexpected summary line: %s", lines[0])
	}
	if !strings.HasPrefix(lines[1], "tiny: error: ") {
		t.Errorf("Unexpected error line: %s", lines[1])
	}

	buf.Reset()
	if err := Report(&buf, results[:1], true); err != nil {
		t.Fatalf("Report failed: %v", err)
	}
	expected := "Quantity of \"boxes\" 16 with size 4\n"
	if !strings.HasPrefix(buf.String(), expected) {
		t.Errorf("Expected verbose report to start with %q, got %q", expected, buf.String())
	}
}

func TestWriteJSON(t *testing.T) {
	results := []models.SliceResult{
		estimate(t, "flat", 16, 16),
		estimate(t, "tiny", 4, 4),
	}

	var buf bytes.Buffer
	if err := WriteJSON(&buf, results); err != nil {
		t.Fatalf("WriteJSON failed: %v", err)
	}

	var reports []SliceReport
	if err := json.Unmarshal(buf.Bytes(), &reports); err != nil {
		t.Fatalf("Invalid JSON: %v", err)
	}
	if len(reports) != 2 {
		t.Fatalf("Expected 2 reports, got %d", len(reports))
	}

	flat := reports[0]
	if flat.Width != 16 || flat.Height != 16 || flat.File != "flat.png" {
		t.Errorf("Unexpected slice fields: %+v", flat)
	}
	if len(flat.Series) != 3 || flat.Series[0].BoxSize != 4 || flat.Series[0].BestCount != 16 {
		t.Errorf("Unexpected series: %+v", flat.Series)
	}
	if flat.Dimension != flat.Slope {
		t.Errorf("Expected dimension to equal slope, got %f and %f", flat.Dimension, flat.Slope)
	}

	if reports[1].Error == "" || reports[1].Series != nil {
		t.Errorf("Expected error report for tiny slice, got %+v", reports[1])
	}
}

func TestReportDuplicateTitles(t *testing.T) {
	first := estimate(t, "T2 AX", 16, 16)
	first.Slice.Filename = "IM_0001.dcm"
	second := estimate(t, "T2 AX", 16, 16)
	second.Slice.Filename = "IM_0002.dcm"
	other := estimate(t, "T1 SAG", 16, 16)

	var buf bytes.Buffer
	if err := Report(&buf, []models.SliceResult{first, second, other}, false); err != nil {
		t.Fatalf("Report failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	expected := []string{
		"T2 AX (IM_0001.dcm): Fractal dimension: ",
		"T2 AX (IM_0002.dcm): Fractal dimension: ",
		"T1 SAG: Fractal dimension: ",
	}
	if len(lines) != len(expected) {
		t.Fatalf("Expected %d lines, got %q", len(expected), buf.String())
	}
	for i, prefix := range expected {
		if !strings.HasPrefix(lines[i], prefix) {
			t.Errorf("Line %d: expected prefix %q, got %q", i, prefix, lines[i])
		}
	}
}

func TestReportElapsed(t *testing.T) {
	r := estimate(t, "flat", 16, 16)
	r.Elapsed = 1500 * time.Millisecond

	var buf bytes.Buffer
	if err := Report(&buf, []models.SliceResult{r}, true); err != nil {
		t.Fatalf("Report failed: %v", err)
	}
	if !strings.HasSuffix(buf.String(), "flat: Fractal dimension: "+r.Result.Fit.Dimension()+"\nEstimated in 1.500 seconds\n") {
		t.Errorf("Expected elapsed time after the dimension, got %q", buf.String())
	}

	buf.Reset()
	if err := Report(&buf, []models.SliceResult{r}, false); err != nil {
		t.Fatalf("Report failed: %v", err)
	}
	if strings.Contains(buf.String(), "Estimated in") {
		t.Errorf("Expected no elapsed time without verbose, got %q", buf.String())
	}

	report := NewSliceReport(r)
	if report.ElapsedMS != 1500 {
		t.Errorf("Expected 1500 ms in JSON report, got %f", report.ElapsedMS)
	}
}
