package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"vapi/pkg/logging"

	"gopkg.in/yaml.v3"
)

const (
	userConfigDir    = ".config/vapi"
	settingsFileName = "settings.yaml"
)

var osUserHomeDir = os.UserHomeDir

// GetDefaultConfigPath returns ~/.config/vapi.
func GetDefaultConfigPath() (string, error) {
	homeDir, err := osUserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine user config directory: %w", err)
	}
	return filepath.Join(homeDir, userConfigDir), nil
}

// LoadSettings loads settings.yaml from configPath on top of the defaults.
// A missing settings file is not an error. Relative ConfigDir values are resolved
// against configPath.
func LoadSettings(configPath string) (Settings, error) {
	settings := GetDefaultSettings(configPath)

	settingsFilePath := filepath.Join(configPath, settingsFileName)
	data, err := os.ReadFile(settingsFilePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logging.Info("ConfigLoader", "No %s found at %s, using defaults", settingsFileName, settingsFilePath)
			return settings, settings.Validate()
		}
		return Settings{}, fmt.Errorf("error reading %s: %w", settingsFilePath, err)
	}

	if err := yaml.Unmarshal(data, &settings); err != nil {
		return Settings{}, fmt.Errorf("error loading settings from %s: %w", settingsFilePath, err)
	}

	if settings.ConfigDir != "" && !filepath.IsAbs(settings.ConfigDir) {
		settings.ConfigDir = filepath.Join(configPath, settings.ConfigDir)
	}

	if err := settings.Validate(); err != nil {
		return Settings{}, fmt.Errorf("invalid settings in %s: %w", settingsFilePath, err)
	}

	logging.Info("ConfigLoader", "Loaded settings from %s", settingsFilePath)
	return settings, nil
}
