package config

import "fmt"

// LoggerConfig configures structured logging.
//
// Example:
//
//	logger:
//	  level: info
//	  format: json
type LoggerConfig struct {
	// Level is the minimum log level: debug, info, warn, error.
	Level string `yaml:"level,omitempty"`

	// Format is the output encoding: "json" or "text".
	Format string `yaml:"format,omitempty"`

	// AddSource includes the calling file:line in each record.
	AddSource bool `yaml:"add_source,omitempty"`

	// SuppressPackages drops log records whose source package has one of
	// these prefixes, used to quiet noisy third-party loggers without
	// touching their call sites.
	SuppressPackages []string `yaml:"suppress_packages,omitempty"`
}

// SetDefaults applies default values to LoggerConfig.
func (c *LoggerConfig) SetDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Format == "" {
		c.Format = "json"
	}
}

// Validate checks the logger configuration.
func (c *LoggerConfig) Validate() error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "warning": true, "error": true}
	if c.Level != "" && !validLevels[c.Level] {
		return fmt.Errorf("logger: invalid level %q (valid: debug, info, warn, error)", c.Level)
	}
	if c.Format != "" && c.Format != "json" && c.Format != "text" {
		return fmt.Errorf("logger: invalid format %q (valid: json, text)", c.Format)
	}
	return nil
}
