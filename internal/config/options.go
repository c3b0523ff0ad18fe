package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// OptionsEnvPrefix prefixes environment overrides for DaemonOptions.
const OptionsEnvPrefix = "ADBAUTOPLAYER_"

// DaemonOptions are runtime options of the shell daemon. They are separate
// from App.toml because the UI never edits them.
type DaemonOptions struct {
	Port           int           `koanf:"port" validate:"min=0,max=65535"`
	WatchSettings  bool          `koanf:"watch_settings"`
	// WebhookTimeout takes a duration string such as "5s"; a bare number is
	// read as seconds.
	WebhookTimeout time.Duration `koanf:"webhook_timeout" validate:"min=0"`
	LogLevel       string        `koanf:"log_level" validate:"omitempty,oneof=DEBUG INFO WARNING ERROR FATAL"`
}

// DefaultDaemonOptions returns the built-in option values.
func DefaultDaemonOptions() map[string]interface{} {
	return map[string]interface{}{
		"port":            0,
		"watch_settings":  false,
		"webhook_timeout": 5 * time.Second,
		"log_level":       "",
	}
}

// LoadDaemonOptions loads daemon options.
// Priority: Environment variables > daemon.json > Defaults
func LoadDaemonOptions() (*DaemonOptions, error) {
	path, err := DaemonOptionsFile()
	if err != nil {
		return nil, err
	}
	return loadDaemonOptions(path)
}

func loadDaemonOptions(path string) (*DaemonOptions, error) {
	k := koanf.New(".")

	for key, value := range DefaultDaemonOptions() {
		if err := k.Set(key, value); err != nil {
			return nil, err
		}
	}

	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), json.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(OptionsEnvPrefix, ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	if err := secondsToDuration(k, "webhook_timeout"); err != nil {
		return nil, err
	}

	var opts DaemonOptions
	if err := k.Unmarshal("", &opts); err != nil {
		return nil, fmt.Errorf("failed to unmarshal daemon options: %w", err)
	}

	if err := validator.New().Struct(opts); err != nil {
		return nil, fmt.Errorf("daemon options validation failed: %w", err)
	}
	return &opts, nil
}

// secondsToDuration rewrites a bare number stored under key as a
// time.Duration of that many seconds. JSON numbers and numeric env values
// would otherwise decode as nanoseconds or fail to parse.
func secondsToDuration(k *koanf.Koanf, key string) error {
	var seconds float64
	switch v := k.Get(key).(type) {
	case float64:
		seconds = v
	case int:
		seconds = float64(v)
	case int64:
		seconds = float64(v)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil
		}
		seconds = f
	default:
		return nil
	}
	return k.Set(key, time.Duration(seconds*float64(time.Second)))
}

// envTransform converts environment variable names to option keys.
// Example: ADBAUTOPLAYER_WEBHOOK_TIMEOUT -> webhook_timeout
func envTransform(s string) string {
	return strings.ToLower(strings.TrimPrefix(s, OptionsEnvPrefix))
}
