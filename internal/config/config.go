package config

import (
	"fmt"
	"runtime"
	"time"
)

// GeometryLevel controls how much geometry resolution the converter performs.
type GeometryLevel string

const (
	// GeometryAuto picks basic or full behavior based on input file size.
	GeometryAuto GeometryLevel = "auto"
	// GeometryBasic emits raw node refs and member lists, no coordinate resolution.
	GeometryBasic GeometryLevel = "basic"
	// GeometryFull resolves way centroids/bounds and relation geometry.
	GeometryFull GeometryLevel = "full"
)

// ParseGeometryLevel parses a geometry level string. Unknown values fall back
// to auto; the second return reports whether the input was recognized.
func ParseGeometryLevel(s string) (GeometryLevel, bool) {
	switch GeometryLevel(s) {
	case GeometryAuto, GeometryBasic, GeometryFull:
		return GeometryLevel(s), true
	}
	return GeometryAuto, false
}

// Config holds the global configuration for a conversion run
type Config struct {
	// Input settings
	InputFile string

	// Output settings
	OutputFile string // Empty means stdout
	Pretty     bool

	// Filtering
	TagFilter  string // "a+b,c" syntax: comma = OR groups, plus = AND terms
	FilterFile string // Optional YAML filter spec; takes precedence over TagFilter

	// Geometry resolution
	GeometryLevel GeometryLevel
	StorePath     string // Backing file for the coordinate store (empty = temp file)
	RetainStore   bool   // Keep the coordinate store file after the run

	// Processing settings
	Workers   int
	BatchSize int // Coordinate entries per store write transaction

	// Logging and metrics
	Verbose         bool
	LogFile         string        // Path to log file (empty = no file logging)
	MetricsInterval time.Duration // Interval for system metrics logging
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		GeometryLevel:   GeometryAuto,
		Workers:         runtime.NumCPU(),
		BatchSize:       100000,
		MetricsInterval: 30 * time.Second,
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.InputFile == "" {
		return fmt.Errorf("input file is required")
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1")
	}
	if c.BatchSize < 1000 {
		return fmt.Errorf("batch size must be at least 1000")
	}
	return nil
}
