// Package config provides configuration loading and management for mrifractal.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"

	"mrifractal/pkg/boxcount"
	"mrifractal/pkg/loader"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Box-counting parameters
	BoxCounting struct {
		// MaxBoxDivisor sets the largest box to max(width, height) / MaxBoxDivisor
		MaxBoxDivisor int `yaml:"maxBoxDivisor"`

		// MinBoxSize is the smallest box size scanned
		MinBoxSize int `yaml:"minBoxSize"`

		// NumberOfOffsetSets is the number of grid shifts tried per box size
		NumberOfOffsetSets int `yaml:"numberOfOffsetSets"`

		// ConsiderNoiseFloor measures cell heights from the global minimum
		ConsiderNoiseFloor bool `yaml:"considerNoiseFloor"`
	} `yaml:"boxCounting"`

	// Processing parameters
	Processing struct {
		// NumCores specifies how many CPU cores to use for parallel processing
		NumCores int `yaml:"numCores"`

		// Intensity selects how color pixels become intensities ("gray" or "lightness")
		Intensity string `yaml:"intensity"`

		// ROI restricts every slice to a region of interest; zero width and height keep the whole slice
		ROI struct {
			X      int `yaml:"x"`
			Y      int `yaml:"y"`
			Width  int `yaml:"width"`
			Height int `yaml:"height"`
		} `yaml:"roi"`
	} `yaml:"processing"`

	// Output parameters
	Output struct {
		// PlotDir is where log-log plots are written; empty disables plots
		PlotDir string `yaml:"plotDir"`

		// SeriesCSV is the file receiving the box-count series; empty disables it
		SeriesCSV string `yaml:"seriesCSV"`

		// JSON switches the report to JSON
		JSON bool `yaml:"json"`

		// Verbose prints the box count of every box size
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`

	// HTTP server parameters
	Server struct {
		Bind        string        `yaml:"bind"`
		Port        int           `yaml:"port"`
		Timeout     time.Duration `yaml:"timeout"`
		MaxUploadMB int           `yaml:"maxUploadMB"`
	} `yaml:"server"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	bc := boxcount.DefaultConfig()
	cfg.BoxCounting.MaxBoxDivisor = bc.MaxBoxDivisor
	cfg.BoxCounting.MinBoxSize = bc.MinBoxSize
	cfg.BoxCounting.NumberOfOffsetSets = bc.NumberOfOffsetSets
	cfg.BoxCounting.ConsiderNoiseFloor = bc.ConsiderNoiseFloor

	cfg.Processing.NumCores = runtime.NumCPU() // Use all available cores by default
	cfg.Processing.Intensity = loader.IntensityGray

	cfg.Output.Verbose = false

	cfg.Server.Bind = "localhost"
	cfg.Server.Port = 8080
	cfg.Server.Timeout = 30 * time.Second
	cfg.Server.MaxUploadMB = 64

	return cfg
}

// BoxCount returns the estimator parameters. Each slice is scanned
// single-threaded; parallelism is across slices.
func (c *Config) BoxCount() boxcount.Config {
	return boxcount.Config{
		MaxBoxDivisor:      c.BoxCounting.MaxBoxDivisor,
		MinBoxSize:         c.BoxCounting.MinBoxSize,
		NumberOfOffsetSets: c.BoxCounting.NumberOfOffsetSets,
		ConsiderNoiseFloor: c.BoxCounting.ConsiderNoiseFloor,
		Workers:            1,
	}
}

// LoaderOptions returns the slice decoding options
func (c *Config) LoaderOptions() loader.Options {
	roi := c.Processing.ROI
	return loader.Options{
		Intensity: c.Processing.Intensity,
		ROI:       image.Rect(roi.X, roi.Y, roi.X+roi.Width, roi.Y+roi.Height),
	}
}

// Validate checks the values that can be checked without an image
func (c *Config) Validate() error {
	if err := c.BoxCount().Validate(); err != nil {
		return err
	}
	if c.Processing.NumCores < 1 {
		return fmt.Errorf("processing.numCores must be at least 1, got %d", c.Processing.NumCores)
	}
	roi := c.Processing.ROI
	if roi.X < 0 || roi.Y < 0 || roi.Width < 0 || roi.Height < 0 {
		return fmt.Errorf("processing.roi must not be negative, got %+v", roi)
	}
	if (roi.Width == 0) != (roi.Height == 0) {
		return fmt.Errorf("processing.roi needs both width and height, got %dx%d", roi.Width, roi.Height)
	}
	switch c.Processing.Intensity {
	case loader.IntensityGray, loader.IntensityLightness:
	default:
		return fmt.Errorf("processing.intensity must be %q or %q, got %q",
			loader.IntensityGray, loader.IntensityLightness, c.Processing.Intensity)
	}
	return nil
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	// Read config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Parse YAML
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	// Marshal config to YAML
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	// Write to file
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}
