package config

import (
	"fmt"

	"github.com/kilianp07/blackout/infra/dispatchlog"
	"github.com/kilianp07/blackout/infra/logger"
)

// LoggingConfig defines the application log settings and the dispatch
// journal storage and rotation.
type LoggingConfig struct {
	// Level is the minimum application log level.
	Level string `json:"level"`
	// Format is "console" or "json".
	Format string `json:"format"`
	// File optionally redirects application logs to a rotated file.
	File string `json:"file"`
	// Backend selects the dispatch journal type: "jsonl", "sqlite" or "none".
	Backend string `json:"backend"`
	// Path is the file location of the dispatch journal.
	Path string `json:"path"`
	// MaxSizeMB triggers rotation when the file exceeds this size in megabytes.
	MaxSizeMB int `json:"max_size_mb"`
	// MaxBackups limits the number of rotated files to keep.
	MaxBackups int `json:"max_backups"`
	// MaxAgeDays removes rotated files older than this number of days.
	MaxAgeDays int `json:"max_age_days"`
}

// SetDefaults applies sane defaults.
func (c *LoggingConfig) SetDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Backend == "" {
		c.Backend = "jsonl"
	}
	if c.Path == "" {
		c.Path = "dispatch.log"
	}
}

// Validate checks mandatory fields.
func (c LoggingConfig) Validate() error {
	switch c.Level {
	case "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown level %s", c.Level)
	}
	if c.Backend != "jsonl" && c.Backend != "sqlite" && c.Backend != "none" {
		return fmt.Errorf("unknown backend %s", c.Backend)
	}
	if c.Path == "" {
		return fmt.Errorf("path is required")
	}
	return nil
}

// JournalEnabled reports whether dispatch events are persisted.
func (c LoggingConfig) JournalEnabled() bool { return c.Backend != "none" }

// Logger returns the application logger settings.
func (c LoggingConfig) Logger() logger.Config {
	return logger.Config{
		Level:      c.Level,
		Format:     c.Format,
		File:       c.File,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
	}
}

// Journal returns the dispatch journal settings.
func (c LoggingConfig) Journal() dispatchlog.Config {
	return dispatchlog.Config{
		Backend:    c.Backend,
		Path:       c.Path,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
	}
}
