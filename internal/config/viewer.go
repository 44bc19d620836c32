package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefaultConfigPath is the path to the canonical viewer defaults file.
const DefaultConfigPath = "config/viewer.defaults.json"

// Fallback values used by the Get* methods when a field is omitted.
const (
	DefaultProduct              = "REF"
	DefaultMaxGates             = 1840
	DefaultLUTParallelThreshold = 256
	DefaultDatabasePath         = "radial_data.db"
)

// ViewerConfig is the root configuration for the sweep viewer tooling.
// Every field is optional; omitted fields fall back to the defaults above.
type ViewerConfig struct {
	// Sweep selection
	Product        *string `json:"product,omitempty"` // short name, e.g. "REF", "ZDR"
	ElevationIndex *int    `json:"elevation_index,omitempty"`

	// Synthesis params
	MaxGates *int `json:"max_gates,omitempty"`

	// Color LUT params
	PalettePath          *string `json:"palette_path,omitempty"`
	LUTParallelThreshold *int    `json:"lut_parallel_threshold,omitempty"`

	// Radial source
	DatabasePath *string `json:"database_path,omitempty"`
	SiteID       *string `json:"site_id,omitempty"`

	DebugLogging *bool `json:"debug_logging,omitempty"`
}

// EmptyViewerConfig returns a ViewerConfig with all fields set to nil.
func EmptyViewerConfig() *ViewerConfig {
	return &ViewerConfig{}
}

// LoadViewerConfig loads a ViewerConfig from a JSON file.
// The file must have a .json extension and be under 1MB.
func LoadViewerConfig(path string) (*ViewerConfig, error) {
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

	cfg := EmptyViewerConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical defaults from DefaultConfigPath,
// searching the current directory and its parents. Panics if the file cannot
// be loaded, intended for test setup.
func MustLoadDefaultConfig() *ViewerConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := LoadViewerConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *ViewerConfig) Validate() error {
	if c.ElevationIndex != nil && *c.ElevationIndex < 0 {
		return fmt.Errorf("elevation_index must be non-negative, got %d", *c.ElevationIndex)
	}

	if c.MaxGates != nil {
		if *c.MaxGates <= 0 || *c.MaxGates > DefaultMaxGates {
			return fmt.Errorf("max_gates must be in [1, %d], got %d", DefaultMaxGates, *c.MaxGates)
		}
	}

	if c.LUTParallelThreshold != nil && *c.LUTParallelThreshold < 0 {
		return fmt.Errorf("lut_parallel_threshold must be non-negative, got %d", *c.LUTParallelThreshold)
	}

	if c.Product != nil && strings.TrimSpace(*c.Product) == "" {
		return fmt.Errorf("product must not be empty")
	}

	if c.PalettePath != nil && *c.PalettePath != "" {
		if ext := strings.ToLower(filepath.Ext(*c.PalettePath)); ext != ".pal" {
			return fmt.Errorf("palette_path must have .pal extension, got %q", ext)
		}
	}

	return nil
}

// GetProduct returns the product short name or the default.
func (c *ViewerConfig) GetProduct() string {
	if c.Product == nil {
		return DefaultProduct
	}
	return *c.Product
}

// GetElevationIndex returns the elevation_index value or the default.
func (c *ViewerConfig) GetElevationIndex() int {
	if c.ElevationIndex == nil {
		return 0
	}
	return *c.ElevationIndex
}

// GetMaxGates returns the max_gates value or the default.
func (c *ViewerConfig) GetMaxGates() int {
	if c.MaxGates == nil {
		return DefaultMaxGates
	}
	return *c.MaxGates
}

// GetPalettePath returns the palette path, or "" when no palette is configured.
func (c *ViewerConfig) GetPalettePath() string {
	if c.PalettePath == nil {
		return ""
	}
	return *c.PalettePath
}

// GetLUTParallelThreshold returns the lut_parallel_threshold value or the default.
func (c *ViewerConfig) GetLUTParallelThreshold() int {
	if c.LUTParallelThreshold == nil {
		return DefaultLUTParallelThreshold
	}
	return *c.LUTParallelThreshold
}

// GetDatabasePath returns the database_path value or the default.
func (c *ViewerConfig) GetDatabasePath() string {
	if c.DatabasePath == nil || *c.DatabasePath == "" {
		return DefaultDatabasePath
	}
	return *c.DatabasePath
}

// GetSiteID returns the site_id value, or "" to mean any site.
func (c *ViewerConfig) GetSiteID() string {
	if c.SiteID == nil {
		return ""
	}
	return *c.SiteID
}

// GetDebugLogging returns the debug_logging value or the default.
func (c *ViewerConfig) GetDebugLogging() bool {
	if c.DebugLogging == nil {
		return false
	}
	return *c.DebugLogging
}
