package dispatch

import "fmt"

const (
	DefaultDriveSpeedKmh       = 80.0
	DefaultStormSpeedMult      = 0.65
	DefaultTickIntervalSeconds = 5
)

// Config defines dispatch-related settings.
type Config struct {
	StormMode           bool    `json:"storm_mode"`
	DriveSpeedKmh       float64 `json:"drive_speed_kmh"`
	StormSpeedMult      float64 `json:"storm_speed_mult"`
	TickIntervalSeconds int     `json:"tick_interval_seconds"`
}

// SetDefaults fills zero values. Zero is never a valid speed, multiplier or
// interval, so a zero field always means unset. StormMode is left untouched.
func (c *Config) SetDefaults() {
	if c.DriveSpeedKmh == 0 {
		c.DriveSpeedKmh = DefaultDriveSpeedKmh
	}
	if c.StormSpeedMult == 0 {
		c.StormSpeedMult = DefaultStormSpeedMult
	}
	if c.TickIntervalSeconds == 0 {
		c.TickIntervalSeconds = DefaultTickIntervalSeconds
	}
}

// Validate checks the configured speeds and tick interval.
func (c Config) Validate() error {
	if c.DriveSpeedKmh <= 0 {
		return fmt.Errorf("drive_speed_kmh must be positive")
	}
	if c.StormSpeedMult <= 0 || c.StormSpeedMult > 1 {
		return fmt.Errorf("storm_speed_mult must be within (0,1]")
	}
	if c.TickIntervalSeconds < 1 {
		return fmt.Errorf("tick_interval_seconds must be positive")
	}
	return nil
}

func (c Config) speed(storm bool) float64 {
	if storm {
		return c.DriveSpeedKmh * c.StormSpeedMult
	}
	return c.DriveSpeedKmh
}
