package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"mrifractal/pkg/analysis"
)

var dimensionCmd = &cobra.Command{
	Use:   "dimension <path>...",
	Short: "Estimate the fractal dimension of slice files or directories",
	Long: `Estimate the fractal dimension of every slice given on the command line.

Directories are read recursively and their slices are ordered by the number in
the file name. A slice that cannot be estimated is reported and the remaining
slices are still processed.

Examples:
  # Print one dimension per slice
  mrifractal dimension scan_001.dcm scan_002.dcm

  # Print the box counts of each box size, as JSON
  mrifractal dimension -v --json ./slices`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDimension,
}

func init() {
	rootCmd.AddCommand(dimensionCmd)

	// Box-counting options
	dimensionCmd.Flags().Int("divisor", 4, "largest box is max(width, height) / divisor")
	dimensionCmd.Flags().Int("min-box", 2, "smallest box size")
	dimensionCmd.Flags().IntP("sets", "s", 1, "number of grid offset sets per box size")
	dimensionCmd.Flags().Bool("noise-floor", true, "measure box heights from the global minimum intensity")

	// Processing options
	dimensionCmd.Flags().IntP("cores", "c", 0, "number of slices estimated in parallel (default: all CPUs)")
	dimensionCmd.Flags().String("intensity", "gray", "intensity of color images (gray|lightness)")
	dimensionCmd.Flags().String("roi", "", "region of interest as 'x,y,width,height'")

	// Output options
	dimensionCmd.Flags().String("plot-dir", "", "write a log-log plot and a preview of each slice to this directory")
	dimensionCmd.Flags().String("series-csv", "", "write the box-count series of all slices to this file")
	dimensionCmd.Flags().Bool("json", false, "print the report as JSON")
	dimensionCmd.Flags().BoolP("verbose", "v", false, "print the box count of every box size")

	// Bind flags to viper
	viper.BindPFlag("box.divisor", dimensionCmd.Flags().Lookup("divisor"))
	viper.BindPFlag("box.min", dimensionCmd.Flags().Lookup("min-box"))
	viper.BindPFlag("box.sets", dimensionCmd.Flags().Lookup("sets"))
	viper.BindPFlag("box.noise-floor", dimensionCmd.Flags().Lookup("noise-floor"))
	viper.BindPFlag("processing.cores", dimensionCmd.Flags().Lookup("cores"))
	viper.BindPFlag("processing.intensity", dimensionCmd.Flags().Lookup("intensity"))
	viper.BindPFlag("processing.roi", dimensionCmd.Flags().Lookup("roi"))
	viper.BindPFlag("output.plot-dir", dimensionCmd.Flags().Lookup("plot-dir"))
	viper.BindPFlag("output.series-csv", dimensionCmd.Flags().Lookup("series-csv"))
	viper.BindPFlag("output.json", dimensionCmd.Flags().Lookup("json"))
	viper.BindPFlag("output.verbose", dimensionCmd.Flags().Lookup("verbose"))
}

func runDimension(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	params := &analysis.Params{
		Inputs:    args,
		Config:    cfg.BoxCount(),
		Loader:    cfg.LoaderOptions(),
		NumCores:  cfg.Processing.NumCores,
		Verbose:   cfg.Output.Verbose,
		PlotDir:   cfg.Output.PlotDir,
		SeriesCSV: cfg.Output.SeriesCSV,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	startTime := time.Now()
	results, err := analysis.NewAnalyzer(params).Process(ctx)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	out := cmd.OutOrStdout()
	if cfg.Output.JSON {
		err = analysis.WriteJSON(out, results)
	} else {
		err = analysis.Report(out, results, cfg.Output.Verbose)
	}
	if err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	if cfg.Output.Verbose {
		fmt.Fprintf(cmd.ErrOrStderr(), "Processed %d slices in %.2f seconds\n", len(results), time.Since(startTime).Seconds())
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d slices could not be estimated", failed, len(results))
	}
	return nil
}
