package config

import "errors"

// SentryConfig defines settings for Sentry error monitoring. Events carry
// the service tag plus any static Tags; captures made while running a
// cascade or a dispatch session add the scenario or session id.
type SentryConfig struct {
	DSN              string            `json:"dsn"`
	Environment      string            `json:"environment"`
	Release          string            `json:"release"`
	ServerName       string            `json:"server_name"`
	SampleRate       float64           `json:"sample_rate"`
	TracesSampleRate float64           `json:"traces_sample_rate"`
	Tags             map[string]string `json:"tags"`
}

// SetDefaults fills the environment and the error sample rate.
func (c *SentryConfig) SetDefaults() {
	if c.Environment == "" {
		c.Environment = "production"
	}
	if c.SampleRate == 0 {
		c.SampleRate = 1
	}
}

// Validate checks the sample rates.
func (c SentryConfig) Validate() error {
	if c.SampleRate < 0 || c.SampleRate > 1 {
		return errors.New("sample_rate must be within [0,1]")
	}
	if c.TracesSampleRate < 0 || c.TracesSampleRate > 1 {
		return errors.New("traces_sample_rate must be within [0,1]")
	}
	return nil
}
