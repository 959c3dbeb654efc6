package config

import (
	"errors"
	"fmt"

	"github.com/OCharnyshevich/endless-cavern/pkg/world/gen"
)

// Config holds the server configuration.
type Config struct {
	Port          int    `json:"port"`
	DataDir       string `json:"-"`
	ViewDistance  int    `json:"view_distance"`  // chunks streamed around an observer
	PreloadRadius int    `json:"preload_radius"` // chunks generated around the origin at startup
	MaxSessions   int    `json:"max_sessions"`
	// RequestsPerSecond limits observe messages per websocket session.
	RequestsPerSecond float64 `json:"requests_per_second"`

	Generation gen.Config `json:"generation"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Port:              8080,
		DataDir:           "data",
		ViewDistance:      2,
		PreloadRadius:     1,
		MaxSessions:       32,
		RequestsPerSecond: 20,
		Generation:        gen.DefaultConfig(),
	}
}

// Merge applies file-loaded config values into cfg, but only for fields
// that were NOT explicitly set via CLI flags. explicitFlags contains the
// flag names that were explicitly provided on the command line.
func Merge(cfg *Config, fromFile *Config, explicitFlags map[string]bool) {
	if !explicitFlags["port"] {
		cfg.Port = fromFile.Port
	}
	if !explicitFlags["view-distance"] {
		cfg.ViewDistance = fromFile.ViewDistance
	}
	if !explicitFlags["preload"] {
		cfg.PreloadRadius = fromFile.PreloadRadius
	}
	if !explicitFlags["max-sessions"] {
		cfg.MaxSessions = fromFile.MaxSessions
	}
	if !explicitFlags["rate"] {
		cfg.RequestsPerSecond = fromFile.RequestsPerSecond
	}

	g, f := &cfg.Generation, fromFile.Generation
	if !explicitFlags["seed"] {
		g.GlobalSeed = f.GlobalSeed
	}
	if !explicitFlags["chunk-size"] {
		g.ChunkSize = f.ChunkSize
	}
	if !explicitFlags["live"] {
		g.LiveProbability = f.LiveProbability
	}
	if !explicitFlags["edge"] {
		g.EdgeCellValue = f.EdgeCellValue
	}
	if !explicitFlags["birth"] {
		g.BirthThreshold = f.BirthThreshold
	}
	if !explicitFlags["death"] {
		g.DeathThreshold = f.DeathThreshold
	}
	if !explicitFlags["iterations"] {
		g.Iterations = f.Iterations
	}
	g.Weighted = f.Weighted
}

// Validate checks the server settings and the generation parameters.
func (c *Config) Validate() error {
	var errs []error
	if c.Port < 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if c.ViewDistance < 0 {
		errs = append(errs, fmt.Errorf("view distance %d must not be negative", c.ViewDistance))
	}
	if c.PreloadRadius < 0 {
		errs = append(errs, fmt.Errorf("preload radius %d must not be negative", c.PreloadRadius))
	}
	if c.MaxSessions <= 0 {
		errs = append(errs, fmt.Errorf("max sessions %d must be positive", c.MaxSessions))
	}
	if c.RequestsPerSecond <= 0 {
		errs = append(errs, fmt.Errorf("requests per second %v must be positive", c.RequestsPerSecond))
	}
	if err := c.Generation.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
