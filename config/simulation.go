package config

import "fmt"

// SimulationConfig points at the scenario file fed to the engine.
type SimulationConfig struct {
	ScenarioFile        string `json:"scenario_file"`
	DefaultScenario     string `json:"default_scenario"`
	DefaultForecastHour int    `json:"default_forecast_hour"`
}

// SetDefaults applies sane defaults.
func (c *SimulationConfig) SetDefaults() {
	if c.ScenarioFile == "" {
		c.ScenarioFile = "scenarios/texas.yaml"
	}
	if c.DefaultScenario == "" {
		c.DefaultScenario = "uri_2021"
	}
}

// Validate checks mandatory fields.
func (c SimulationConfig) Validate() error {
	if c.DefaultForecastHour < 0 {
		return fmt.Errorf("default_forecast_hour must not be negative")
	}
	return nil
}
