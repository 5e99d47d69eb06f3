package cascade

import "fmt"

// Config holds the tunables of the cascade model.
type Config struct {
	MaxIterations        int     `json:"max_iterations"`
	RedistributionFactor float64 `json:"redistribution_factor"`
	FailureThreshold     float64 `json:"failure_threshold"`
	StressedPct          float64 `json:"stressed_pct"`
	Seed                 uint64  `json:"seed"`

	ExtremeColdF         float64 `json:"extreme_cold_f"`
	ExtremeColdRate      float64 `json:"extreme_cold_rate"`
	ColdF                float64 `json:"cold_f"`
	ColdRate             float64 `json:"cold_rate"`
	GenerationCapacityMW float64 `json:"generation_capacity_mw"`
	GenerationFactor     float64 `json:"generation_factor"`
}

// DefaultConfig returns the calibrated model constants.
func DefaultConfig() Config {
	return Config{
		MaxIterations:        20,
		RedistributionFactor: 0.70,
		FailureThreshold:     1.05,
		StressedPct:          80,
		Seed:                 42,
		ExtremeColdF:         20,
		ExtremeColdRate:      0.40,
		ColdF:                32,
		ColdRate:             0.15,
		GenerationCapacityMW: 500,
		GenerationFactor:     2,
	}
}

// SetDefaults turns a zero Config into DefaultConfig. On a partially set
// Config only MaxIterations, FailureThreshold and GenerationFactor are
// filled, since zero is not a valid value for them; any other zero is kept as
// configured. Start from DefaultConfig to override single fields.
func (c *Config) SetDefaults() {
	d := DefaultConfig()
	if *c == (Config{}) {
		*c = d
		return
	}
	if c.MaxIterations == 0 {
		c.MaxIterations = d.MaxIterations
	}
	if c.FailureThreshold == 0 {
		c.FailureThreshold = d.FailureThreshold
	}
	if c.GenerationFactor == 0 {
		c.GenerationFactor = d.GenerationFactor
	}
}

// Validate checks the ranges of the tunables.
func (c Config) Validate() error {
	if c.MaxIterations < 1 {
		return fmt.Errorf("max_iterations must be positive")
	}
	if c.RedistributionFactor < 0 || c.RedistributionFactor > 1 {
		return fmt.Errorf("redistribution_factor must be within [0,1]")
	}
	if c.FailureThreshold <= 0 {
		return fmt.Errorf("failure_threshold must be positive")
	}
	if c.GenerationFactor <= 0 {
		return fmt.Errorf("generation_factor must be positive")
	}
	if c.ExtremeColdRate < 0 || c.ExtremeColdRate > 1 || c.ColdRate < 0 || c.ColdRate > 1 {
		return fmt.Errorf("cold failure rates must be within [0,1]")
	}
	if c.ExtremeColdF > c.ColdF {
		return fmt.Errorf("extreme_cold_f must not exceed cold_f")
	}
	return nil
}
