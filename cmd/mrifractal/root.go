package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"mrifractal/pkg/config"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "mrifractal",
	Short: "Estimate the fractal dimension of MRI slices by box counting",
	Long: `mrifractal estimates the fractal dimension of 2D MRI slices by box counting.

Each slice is covered with grids of shrinking boxes; the number of boxes needed
to cover the intensity surface is fitted on a log-log scale, and the slope of
the fitted line is reported as the fractal dimension. Slices can be DICOM files
or PNG, JPEG, GIF, BMP, TIFF and WebP images.

Settings come from a YAML config file, overridden by MRIFRACTAL_* environment
variables, overridden by flags.

Examples:
  # Estimate the dimension of a directory of slices
  mrifractal dimension ./slices

  # Two offset sets per box size, with plots and the box-count series
  mrifractal dimension --sets 2 --plot-dir plots --series-csv series.csv scan.dcm

  # Start HTTP server
  mrifractal serve --port 8080`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.mrifractal.yaml)")
}

// initConfig sets up the environment layer. The YAML file itself is read by
// loadConfig so that it shares the defaults of the config package.
func initConfig() {
	viper.SetEnvPrefix("MRIFRACTAL")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()
}

// configPath returns the --config value or the default file in the home directory
func configPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".mrifractal.yaml"
	}
	return filepath.Join(home, ".mrifractal.yaml")
}

// loadConfig reads the config file and applies environment and flag overrides
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(configPath())
	if err != nil {
		return nil, err
	}
	if err := applyOverrides(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyOverrides copies every key set through a flag or the environment
// into cfg
func applyOverrides(cfg *config.Config) error {
	ints := map[string]*int{
		"box.divisor":          &cfg.BoxCounting.MaxBoxDivisor,
		"box.min":              &cfg.BoxCounting.MinBoxSize,
		"box.sets":             &cfg.BoxCounting.NumberOfOffsetSets,
		"processing.cores":     &cfg.Processing.NumCores,
		"server.port":          &cfg.Server.Port,
		"server.max-upload-mb": &cfg.Server.MaxUploadMB,
	}
	for key, dst := range ints {
		if viper.IsSet(key) {
			*dst = viper.GetInt(key)
		}
	}

	bools := map[string]*bool{
		"box.noise-floor": &cfg.BoxCounting.ConsiderNoiseFloor,
		"output.json":     &cfg.Output.JSON,
		"output.verbose":  &cfg.Output.Verbose,
	}
	for key, dst := range bools {
		if viper.IsSet(key) {
			*dst = viper.GetBool(key)
		}
	}

	strs := map[string]*string{
		"processing.intensity": &cfg.Processing.Intensity,
		"output.plot-dir":      &cfg.Output.PlotDir,
		"output.series-csv":    &cfg.Output.SeriesCSV,
		"server.bind":          &cfg.Server.Bind,
	}
	for key, dst := range strs {
		if viper.IsSet(key) {
			*dst = viper.GetString(key)
		}
	}

	// Zero cores means all of them, as for the flag default
	if cfg.Processing.NumCores == 0 {
		cfg.Processing.NumCores = runtime.NumCPU()
	}

	if viper.IsSet("server.timeout") {
		cfg.Server.Timeout = viper.GetDuration("server.timeout")
	}

	if viper.IsSet("processing.roi") {
		roi, err := parseROI(viper.GetString("processing.roi"))
		if err != nil {
			return err
		}
		cfg.Processing.ROI.X, cfg.Processing.ROI.Y = roi[0], roi[1]
		cfg.Processing.ROI.Width, cfg.Processing.ROI.Height = roi[2], roi[3]
	}

	return nil
}

// parseROI parses a region of interest given as 'x,y,width,height'
func parseROI(s string) ([4]int, error) {
	var roi [4]int
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return roi, fmt.Errorf("roi must be in format 'x,y,width,height'")
	}

	names := [4]string{"x", "y", "width", "height"}
	for i, part := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return roi, fmt.Errorf("invalid %s in roi: %v", names[i], err)
		}
		if v < 0 {
			return roi, fmt.Errorf("invalid %s in roi: must not be negative", names[i])
		}
		roi[i] = v
	}
	return roi, nil
}
