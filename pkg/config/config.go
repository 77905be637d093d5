// Package config provides configuration loading and management for volslice.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"volslice/pkg/interpolation"
	"volslice/pkg/slicer"
	"volslice/pkg/timing"
	"volslice/pkg/volume"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Engine parameters
	Engine struct {
		// FrameEpsilon guards comparisons against frame start and end times
		FrameEpsilon float64 `yaml:"frameEpsilon"`

		// Interpolation is "nearest" or "trilinear"
		Interpolation string `yaml:"interpolation"`

		// Projection is "average", "mip" or "minip"
		Projection string `yaml:"projection"`

		// HistogramBins is the number of bins of the value distribution
		HistogramBins int `yaml:"histogramBins"`

		// ProgressEvery is the number of planes between progress updates
		ProgressEvery int `yaml:"progressEvery"`

		// MemoryFraction is the share of physical memory one slice may use
		MemoryFraction float64 `yaml:"memoryFraction"`
	} `yaml:"engine"`

	// View parameters
	View struct {
		// PixelSize is the in-plane pixel size in mm
		PixelSize float64 `yaml:"pixelSize"`

		// Thickness is the slab thickness in mm
		Thickness float64 `yaml:"thickness"`
	} `yaml:"view"`

	// Output parameters
	Output struct {
		// Format is "png" or "tiff"
		Format string `yaml:"format"`

		// Dir is where exported slices are written
		Dir string `yaml:"dir"`

		// Verbose enables debug logging
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Engine.FrameEpsilon = timing.DefaultEpsilon
	cfg.Engine.Interpolation = interpolation.Trilinear.String()
	cfg.Engine.Projection = slicer.Average.String()
	cfg.Engine.HistogramBins = 256
	cfg.Engine.ProgressEvery = volume.DefaultProgressEvery
	cfg.Engine.MemoryFraction = slicer.DefaultMemoryFraction

	cfg.View.PixelSize = 1.0
	cfg.View.Thickness = 1.0

	cfg.Output.Format = "png"
	cfg.Output.Dir = "slices"
	cfg.Output.Verbose = false

	return cfg
}

// Validate checks that every value is usable
func (c *Config) Validate() error {
	if c.Engine.FrameEpsilon <= 0 {
		return fmt.Errorf("engine.frameEpsilon must be positive, got %g", c.Engine.FrameEpsilon)
	}
	if _, err := c.InterpolationMode(); err != nil {
		return fmt.Errorf("engine.interpolation: %w", err)
	}
	if _, err := c.ProjectionMode(); err != nil {
		return fmt.Errorf("engine.projection: %w", err)
	}
	if c.Engine.HistogramBins < 1 {
		return fmt.Errorf("engine.histogramBins must be at least 1, got %d", c.Engine.HistogramBins)
	}
	if c.Engine.ProgressEvery < 1 {
		return fmt.Errorf("engine.progressEvery must be at least 1, got %d", c.Engine.ProgressEvery)
	}
	if c.Engine.MemoryFraction <= 0 || c.Engine.MemoryFraction > 1 {
		return fmt.Errorf("engine.memoryFraction must be in (0,1], got %g", c.Engine.MemoryFraction)
	}
	if c.View.PixelSize <= 0 || c.View.Thickness <= 0 {
		return fmt.Errorf("view.pixelSize and view.thickness must be positive, got %g and %g", c.View.PixelSize, c.View.Thickness)
	}
	switch c.Output.Format {
	case "png", "tiff":
	default:
		return fmt.Errorf("output.format must be png or tiff, got %q", c.Output.Format)
	}
	return nil
}

// InterpolationMode parses Engine.Interpolation
func (c *Config) InterpolationMode() (interpolation.Mode, error) {
	return interpolation.ParseMode(c.Engine.Interpolation)
}

// ProjectionMode parses Engine.Projection
func (c *Config) ProjectionMode() (slicer.Projection, error) {
	return slicer.ParseProjection(c.Engine.Projection)
}

// Extractor builds a slice extractor from the engine settings
func (c *Config) Extractor() *slicer.Extractor {
	return slicer.NewExtractor(
		slicer.WithEpsilon(c.Engine.FrameEpsilon),
		slicer.WithMemoryFraction(c.Engine.MemoryFraction),
	)
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
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

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	return SaveConfig(DefaultConfig(), configPath)
}
