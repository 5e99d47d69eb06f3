package config

// HTTPConfig configures the API server.
type HTTPConfig struct {
	Address string `json:"address"`
	// LogToken guards the dispatch journal endpoint when set.
	LogToken string `json:"log_token"`
}

// SetDefaults applies sane defaults.
func (c *HTTPConfig) SetDefaults() {
	if c.Address == "" {
		c.Address = ":8080"
	}
}
