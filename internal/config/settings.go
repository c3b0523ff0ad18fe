package config

import (
	"fmt"

	"github.com/AdbAutoPlayer/shell/internal/models"
)

// LoadAppSettings loads App.toml from path. It always returns a complete,
// valid document: fields missing from the file keep their defaults, and an
// unreadable, malformed or invalid file yields the full defaults. The error
// explains why the defaults were used and is nil when the file doesn't exist.
func LoadAppSettings(path string) (*models.AppSettings, error) {
	if !FileExists(path) {
		return models.NewAppSettings(), nil
	}

	settings := models.NewAppSettings()
	if err := LoadTOML(path, settings); err != nil {
		return models.NewAppSettings(), err
	}
	if err := settings.Validate(); err != nil {
		return models.NewAppSettings(), fmt.Errorf("invalid settings in %s: %w", path, err)
	}
	return settings, nil
}

// SaveAppSettings writes every field of settings to App.toml at path.
func SaveAppSettings(path string, settings *models.AppSettings) error {
	return SaveTOML(path, settings)
}
