// Package config handles configuration loading, saving, and path management.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/AdbAutoPlayer/shell/internal/models"
)

const (
	// AppDirName is the name of the application directory under the user config dir.
	AppDirName = "AdbAutoPlayer"

	// ConfigDirEnv overrides the application config directory.
	ConfigDirEnv = "ADBAUTOPLAYER_CONFIG_DIR"
)

// File names
const (
	DaemonFileName        = "daemon.yaml"
	DaemonOptionsFileName = "daemon.json"
	WindowStateFileName   = "window-state.yaml"
)

// ErrNoConfigDir is returned when the application config directory can't be
// determined. Commands that need it abort.
var ErrNoConfigDir = errors.New("failed to get config dir")

// ErrInvalidFileName is returned for settings document names that are not
// bare file names.
var ErrInvalidFileName = errors.New("invalid settings file name")

// GlobalDir returns the application config directory.
func GlobalDir() (string, error) {
	if dir := os.Getenv(ConfigDirEnv); dir != "" {
		return dir, nil
	}
	base, err := os.UserConfigDir()
	if err != nil || base == "" {
		return "", fmt.Errorf("%w: %v", ErrNoConfigDir, err)
	}
	return filepath.Join(base, AppDirName), nil
}

func globalFile(name string) (string, error) {
	dir, err := GlobalDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

// AppSettingsFile returns the path to App.toml.
func AppSettingsFile() (string, error) {
	return globalFile(models.AppSettingsFileName)
}

// GlobalDaemonFile returns the path to the daemon.yaml file.
func GlobalDaemonFile() (string, error) {
	return globalFile(DaemonFileName)
}

// DaemonOptionsFile returns the path to the optional daemon.json file.
func DaemonOptionsFile() (string, error) {
	return globalFile(DaemonOptionsFileName)
}

// WindowStateFile returns the path to the window-state.yaml file.
func WindowStateFile() (string, error) {
	return globalFile(WindowStateFileName)
}

// ProfileDir returns the directory holding a profile's settings documents.
func ProfileDir(profileIndex uint8) (string, error) {
	return globalFile(strconv.Itoa(int(profileIndex)))
}

// ProfileSettingsFile returns the path of a named settings document for a profile.
// The file name must be a bare name; separators and parent references are rejected.
func ProfileSettingsFile(profileIndex uint8, fileName string) (string, error) {
	if fileName == "" || fileName != filepath.Base(fileName) || fileName == "." || fileName == ".." {
		return "", fmt.Errorf("%w %q", ErrInvalidFileName, fileName)
	}
	dir, err := ProfileDir(profileIndex)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, fileName), nil
}

// EnsureGlobalDir creates the application config directory if it doesn't exist.
func EnsureGlobalDir() error {
	dir, err := GlobalDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}
