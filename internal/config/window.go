package config

import (
	"github.com/AdbAutoPlayer/shell/internal/models"
)

// LoadWindowPlacement loads the last persisted window geometry.
// Returns a zero placement if none was saved yet.
func LoadWindowPlacement() (*models.WindowPlacement, error) {
	path, err := WindowStateFile()
	if err != nil {
		return nil, err
	}
	return LoadYAMLOrDefault(path, func() *models.WindowPlacement {
		return &models.WindowPlacement{}
	})
}

// SaveWindowPlacement persists the window geometry to window-state.yaml.
func SaveWindowPlacement(p *models.WindowPlacement) error {
	path, err := WindowStateFile()
	if err != nil {
		return err
	}
	return SaveYAML(path, p)
}
