package config

import (
	"image"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.BoxCounting.MaxBoxDivisor != 4 {
		t.Errorf("Expected divisor 4, got %d", cfg.BoxCounting.MaxBoxDivisor)
	}
	if cfg.BoxCounting.MinBoxSize != 2 {
		t.Errorf("Expected min box size 2, got %d", cfg.BoxCounting.MinBoxSize)
	}
	if cfg.BoxCounting.NumberOfOffsetSets != 1 {
		t.Errorf("Expected 1 offset set, got %d", cfg.BoxCounting.NumberOfOffsetSets)
	}
	if !cfg.BoxCounting.ConsiderNoiseFloor {
		t.Errorf("Expected noise floor enabled by default")
	}
	if cfg.Processing.NumCores < 1 {
		t.Errorf("Expected at least one core, got %d", cfg.Processing.NumCores)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config should be valid: %v", err)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(os.TempDir(), "does-not-exist-mrifractal.yaml"))
	if err != nil {
		t.Fatalf("Expected defaults for missing file, got error: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Expected default port 8080, got %d", cfg.Server.Port)
	}
}

func TestLoadConfig(t *testing.T) {
	dir, err := os.MkdirTemp("", "mrifractal-config-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "config.yaml")
	data := `
boxCounting:
  maxBoxDivisor: 8
  numberOfOffsetSets: 3
  considerNoiseFloor: false
processing:
  intensity: lightness
  roi:
    x: 10
    y: 20
    width: 64
    height: 32
server:
  timeout: 5s
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	bc := cfg.BoxCount()
	if bc.MaxBoxDivisor != 8 || bc.NumberOfOffsetSets != 3 || bc.ConsiderNoiseFloor {
		t.Errorf("Unexpected box-count config: %+v", bc)
	}
	if bc.MinBoxSize != 2 {
		t.Errorf("Expected unset min box size to keep default 2, got %d", bc.MinBoxSize)
	}
	if cfg.Server.Timeout != 5*time.Second {
		t.Errorf("Expected timeout 5s, got %v", cfg.Server.Timeout)
	}

	opts := cfg.LoaderOptions()
	if opts.Intensity != "lightness" {
		t.Errorf("Expected lightness intensity, got %s", opts.Intensity)
	}
	if opts.ROI != image.Rect(10, 20, 74, 52) {
		t.Errorf("Expected ROI (10,20)-(74,52), got %v", opts.ROI)
	}
}

func TestLoadConfigInvalidYAML(t *testing.T) {
	dir, err := os.MkdirTemp("", "mrifractal-config-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "broken.yaml")
	if err := os.WriteFile(path, []byte("boxCounting: [unclosed"), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Error("Expected parse error")
	}
}

func TestSaveAndLoadConfig(t *testing.T) {
	dir, err := os.MkdirTemp("", "mrifractal-config-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "nested", "config.yaml")
	if err := CreateDefaultConfigFile(path); err != nil {
		t.Fatalf("CreateDefaultConfigFile failed: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if *cfg != *DefaultConfig() {
		t.Errorf("Expected saved defaults to load back unchanged, got %+v", cfg)
	}
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BoxCounting.NumberOfOffsetSets = 0
	if err := cfg.Validate(); err == nil {
		t.Error("Expected error for zero offset sets")
	}

	cfg = DefaultConfig()
	cfg.Processing.NumCores = 0
	if err := cfg.Validate(); err == nil {
		t.Error("Expected error for zero cores")
	}

	cfg = DefaultConfig()
	cfg.Processing.Intensity = "hue"
	if err := cfg.Validate(); err == nil {
		t.Error("Expected error for unknown intensity")
	}

	rois := []struct {
		name          string
		x, y, w, h    int
		expectInvalid bool
	}{
		{"whole slice", 0, 0, 0, 0, false},
		{"full region", 10, 20, 64, 32, false},
		{"width only", 0, 0, 64, 0, true},
		{"height only", 0, 0, 0, 64, true},
		{"negative origin", -1, 0, 64, 64, true},
		{"negative size", 0, 0, -64, 64, true},
	}
	for _, tt := range rois {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Processing.ROI.X, cfg.Processing.ROI.Y = tt.x, tt.y
			cfg.Processing.ROI.Width, cfg.Processing.ROI.Height = tt.w, tt.h
			err := cfg.Validate()
			if tt.expectInvalid && err == nil {
				t.Error("Expected error for ROI")
			}
			if !tt.expectInvalid && err != nil {
				t.Errorf("Expected ROI to be valid, got %v", err)
			}
		})
	}
}
