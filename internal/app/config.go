package app

import (
	"vapi/internal/config"
)

// Config holds the application configuration
type Config struct {
	// Debug enables debug logging regardless of the settings file.
	Debug bool

	// Silent discards all log output.
	Silent bool

	// ConfigPath is the directory settings.yaml is read from. Empty means
	// the default user configuration directory.
	ConfigPath string

	// Overrides applied on top of settings.yaml when non-empty.
	Listen      string
	StoreDriver string
	StoreURI    string

	// Settings is filled in by NewApplication unless set beforehand.
	Settings *config.Settings
}

// NewConfig creates a new application configuration
func NewConfig(debug bool, configPath string) *Config {
	return &Config{
		Debug:      debug,
		ConfigPath: configPath,
	}
}

// applyOverrides copies non-empty command line overrides into settings.
func (c *Config) applyOverrides(settings *config.Settings) error {
	if c.Listen != "" {
		settings.Listen = c.Listen
	}
	if c.StoreDriver != "" {
		settings.Store.Driver = c.StoreDriver
	}
	if c.StoreURI != "" {
		settings.Store.URI = c.StoreURI
	}
	if c.Debug {
		settings.LogLevel = "debug"
	}
	return settings.Validate()
}
