package gen

import (
	"errors"
	"testing"
)

func TestDefaultConfigValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("DefaultConfig().Validate() = %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero chunk size", func(c *Config) { c.ChunkSize = 0 }},
		{"negative chunk size", func(c *Config) { c.ChunkSize = -5 }},
		{"oversized chunk", func(c *Config) { c.ChunkSize = MaxChunkSize + 1 }},
		{"chunk wider than uint16", func(c *Config) { c.ChunkSize = 1 << 16 }},
		{"probability above one", func(c *Config) { c.LiveProbability = 1.2 }},
		{"negative probability", func(c *Config) { c.LiveProbability = -0.1 }},
		{"negative iterations", func(c *Config) { c.Iterations = -1 }},
		{"birth above eight", func(c *Config) { c.BirthThreshold = 9 }},
		{"death above nine", func(c *Config) { c.DeathThreshold = 10 }},
		{"zero weights", func(c *Config) { c.Weighted = &WeightedRule{Birth: 0.5, Death: 0.5} }},
		{"weighted threshold", func(c *Config) {
			c.Weighted = &WeightedRule{Orthogonal: 1, Diagonal: 1, Birth: 1.5, Death: 0.5}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Validate() = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestConfigAutomatonRule(t *testing.T) {
	cfg := DefaultConfig()
	if _, ok := cfg.Automaton().Rule.(CountRule); !ok {
		t.Errorf("default rule = %T, want CountRule", cfg.Automaton().Rule)
	}
	cfg.Weighted = &WeightedRule{Orthogonal: 1, Diagonal: 0.5, Birth: 0.5, Death: 0.4}
	if _, ok := cfg.Automaton().Rule.(WeightedRule); !ok {
		t.Errorf("weighted rule = %T, want WeightedRule", cfg.Automaton().Rule)
	}
}
