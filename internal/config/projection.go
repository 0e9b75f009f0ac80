package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/banshee-data/scanproj/internal/geom"
	"github.com/banshee-data/scanproj/internal/units"
)

// DefaultConfigPath is the path to the checked-in projection defaults file.
const DefaultConfigPath = "config/projection.defaults.json"

// Built-in fallbacks used when a field is absent from the loaded file.
const (
	defaultTiltDeg     = -15.0
	defaultYawDeg      = 300.0
	defaultOutputScale = 0.001
)

// ProjectionConfig holds the defaults for the scanproj commands. Nil fields
// fall back to built-in values through the Get* accessors, so partial
// files are safe.
type ProjectionConfig struct {
	// Equirectangular output size
	Width  *int `json:"width,omitempty"`
	Height *int `json:"height,omitempty"`

	// Rotation used when neither flags nor the scan name supply one
	TiltDeg *float64 `json:"tilt_deg,omitempty"`
	YawDeg  *float64 `json:"yaw_deg,omitempty"`

	// Quantisation step (meters) of LAS files written by align
	OutputScale *float64 `json:"output_scale,omitempty"`

	// IANA zone used to display scan capture times
	SiteTimezone *string `json:"site_timezone,omitempty"`
}

// EmptyProjectionConfig returns a ProjectionConfig with all fields nil.
func EmptyProjectionConfig() *ProjectionConfig {
	return &ProjectionConfig{}
}

// LoadProjectionConfig loads a ProjectionConfig from a JSON file.
// The file must have a .json extension and be at most 1MB.
func LoadProjectionConfig(path string) (*ProjectionConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyProjectionConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks the values that are set.
func (c *ProjectionConfig) Validate() error {
	if c.Width != nil && *c.Width <= 0 {
		return fmt.Errorf("width must be positive, got %d", *c.Width)
	}
	if c.Height != nil && *c.Height <= 0 {
		return fmt.Errorf("height must be positive, got %d", *c.Height)
	}
	if c.TiltDeg != nil && !isFinite(*c.TiltDeg) {
		return fmt.Errorf("tilt_deg must be finite, got %v", *c.TiltDeg)
	}
	if c.YawDeg != nil && !isFinite(*c.YawDeg) {
		return fmt.Errorf("yaw_deg must be finite, got %v", *c.YawDeg)
	}
	if c.OutputScale != nil && !(*c.OutputScale > 0) {
		return fmt.Errorf("output_scale must be positive, got %v", *c.OutputScale)
	}
	if c.SiteTimezone != nil && !units.IsTimezoneValid(*c.SiteTimezone) {
		return fmt.Errorf("invalid site_timezone %q", *c.SiteTimezone)
	}
	return nil
}

// GetWidth returns the image width or the default.
func (c *ProjectionConfig) GetWidth() int {
	if c.Width == nil {
		return geom.DefaultWidth
	}
	return *c.Width
}

// GetHeight returns the image height or the default.
func (c *ProjectionConfig) GetHeight() int {
	if c.Height == nil {
		return geom.DefaultHeight
	}
	return *c.Height
}

// GetTiltDeg returns the fallback tilt or the default.
func (c *ProjectionConfig) GetTiltDeg() float64 {
	if c.TiltDeg == nil {
		return defaultTiltDeg
	}
	return *c.TiltDeg
}

// GetYawDeg returns the fallback yaw or the default.
func (c *ProjectionConfig) GetYawDeg() float64 {
	if c.YawDeg == nil {
		return defaultYawDeg
	}
	return *c.YawDeg
}

// GetOutputScale returns the LAS output scale or the default.
func (c *ProjectionConfig) GetOutputScale() float64 {
	if c.OutputScale == nil {
		return defaultOutputScale
	}
	return *c.OutputScale
}

// GetSiteTimezone returns the display timezone or UTC.
func (c *ProjectionConfig) GetSiteTimezone() string {
	if c.SiteTimezone == nil {
		return "UTC"
	}
	return *c.SiteTimezone
}

// Projection returns the validated projection for the configured size.
func (c *ProjectionConfig) Projection() (geom.Projection, error) {
	return geom.NewProjection(c.GetWidth(), c.GetHeight())
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
