package gen

import (
	"errors"
	"fmt"
)

// MaxChunkSize bounds the chunk side so one chunk always fits a single region file entry.
const MaxChunkSize = 1024

// ErrInvalidConfig is wrapped by every validation failure returned from Config.Validate.
var ErrInvalidConfig = errors.New("invalid generation config")

// Config holds the cave generation parameters. The pipeline only ever sees a
// validated Config; parsing is the caller's business.
type Config struct {
	ChunkSize       int     `json:"chunk_size"`
	GlobalSeed      int64   `json:"global_seed"`
	LiveProbability float64 `json:"live_probability"`
	EdgeCellValue   bool    `json:"edge_cell_value"`
	BirthThreshold  int     `json:"birth_threshold"`
	DeathThreshold  int     `json:"death_threshold"`
	Iterations      int     `json:"iterations"`

	// Weighted switches the automaton to the continuous rule. When nil the
	// integer Moore-count rule built from BirthThreshold/DeathThreshold is used.
	Weighted *WeightedRule `json:"weighted,omitempty"`
}

// DefaultConfig returns the parameters the endless cavern ships with.
func DefaultConfig() Config {
	return Config{
		ChunkSize:       25,
		GlobalSeed:      0,
		LiveProbability: 0.45,
		EdgeCellValue:   false,
		BirthThreshold:  4,
		DeathThreshold:  4,
		Iterations:      5,
	}
}

// Validate reports the first parameter that would make generation meaningless.
func (c Config) Validate() error {
	if c.ChunkSize <= 0 || c.ChunkSize > MaxChunkSize {
		return fmt.Errorf("%w: chunk size %d outside [1,%d]", ErrInvalidConfig, c.ChunkSize, MaxChunkSize)
	}
	if c.LiveProbability < 0 || c.LiveProbability > 1 {
		return fmt.Errorf("%w: live probability %v outside [0,1]", ErrInvalidConfig, c.LiveProbability)
	}
	if c.Iterations < 0 {
		return fmt.Errorf("%w: iterations %d must not be negative", ErrInvalidConfig, c.Iterations)
	}
	if c.Weighted != nil {
		return c.Weighted.validate()
	}
	if c.BirthThreshold < 0 || c.BirthThreshold > 8 {
		return fmt.Errorf("%w: birth threshold %d outside [0,8]", ErrInvalidConfig, c.BirthThreshold)
	}
	if c.DeathThreshold < 0 || c.DeathThreshold > 9 {
		return fmt.Errorf("%w: death threshold %d outside [0,9]", ErrInvalidConfig, c.DeathThreshold)
	}
	return nil
}

// Automaton returns the automaton parameters derived from the config.
func (c Config) Automaton() Automaton {
	var rule Rule = CountRule{Birth: c.BirthThreshold, Death: c.DeathThreshold}
	if c.Weighted != nil {
		rule = *c.Weighted
	}
	return Automaton{
		Rule:       rule,
		Iterations: c.Iterations,
		EdgeCell:   c.EdgeCellValue,
	}
}
