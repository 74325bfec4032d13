package config

import "tmcheck/internal/errs"

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level      string          `yaml:"level"`      // debug, info, warn, error
	Format     string          `yaml:"format"`     // json, console
	Categories map[string]bool `yaml:"categories"` // per-category toggles
}

// IsCategoryEnabled returns whether logging is enabled for a category.
// Categories not listed are enabled.
func (c *LoggingConfig) IsCategoryEnabled(category string) bool {
	if c.Categories == nil {
		return true
	}
	enabled, exists := c.Categories[category]
	if !exists {
		return true
	}
	return enabled
}

// Validate checks level and format.
func (c *LoggingConfig) Validate() error {
	switch c.Level {
	case "debug", "info", "warn", "error":
	default:
		return errs.Configuration("invalid log level %q", c.Level)
	}
	switch c.Format {
	case "json", "console":
	default:
		return errs.Configuration("invalid log format %q", c.Format)
	}
	return nil
}
