// Package settings owns the process-wide copy of App.toml and the named
// per-profile settings documents written on behalf of the UI.
package settings

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/AdbAutoPlayer/shell/internal/config"
	"github.com/AdbAutoPlayer/shell/internal/events"
	"github.com/AdbAutoPlayer/shell/internal/logging"
	"github.com/AdbAutoPlayer/shell/internal/models"
)

// ErrInvalidDocument is returned when a settings document is not a JSON object.
var ErrInvalidDocument = errors.New("invalid settings document")

// Form is the response to a settings form request.
type Form struct {
	Settings models.AppSettings `json:"settings"`
	Schema   string             `json:"schema"`
	FileName string             `json:"file_name"`
}

// Store is a concurrency-safe cell holding the current AppSettings. The cell
// reflects the last document this process loaded or saved, not necessarily
// the file's current content.
type Store struct {
	path string
	bus  *events.Bus
	log  *slog.Logger

	mu      sync.RWMutex
	current models.AppSettings
}

// NewStore creates a store for the App.toml at path holding the defaults.
// bus may be nil, in which case no log-message events are emitted.
func NewStore(path string, bus *events.Bus) *Store {
	return &Store{
		path:    path,
		bus:     bus,
		log:     logging.For("settings"),
		current: *models.NewAppSettings(),
	}
}

// Path returns the App.toml path backing the store.
func (s *Store) Path() string {
	return s.path
}

// Get returns a copy of the current settings.
func (s *Store) Get() models.AppSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Clone()
}

func (s *Store) replace(settings models.AppSettings) {
	s.mu.Lock()
	s.current = settings.Clone()
	s.mu.Unlock()
	logging.SetLevel(settings.Logging.Level)
}

// Load reads App.toml, replaces the current settings and returns them. It
// never fails: a missing, unreadable or malformed file yields the defaults.
func (s *Store) Load() models.AppSettings {
	loaded, err := config.LoadAppSettings(s.path)
	if err != nil {
		s.log.Warn("using default settings", "path", s.path, "error", err)
	}
	s.replace(*loaded)
	return loaded.Clone()
}

// Save writes settings to App.toml, creating parent directories, then
// replaces the current settings and emits a log-message event.
func (s *Store) Save(settings models.AppSettings) error {
	if err := config.SaveAppSettings(s.path, &settings); err != nil {
		return err
	}
	s.replace(settings)
	s.emitLog(models.NewLogMessage(models.LogLevelInfo, "App Settings saved: "+s.path))
	return nil
}

// Form reloads App.toml and returns it together with its JSON schema.
func (s *Store) Form() Form {
	return Form{
		Settings: s.Load(),
		Schema:   models.AppSettingsSchema(),
		FileName: models.AppSettingsFileName,
	}
}

// SaveDocument converts a JSON object to TOML and writes it as fileName in
// the profile's settings directory. It returns the written path.
func (s *Store) SaveDocument(profileIndex uint8, fileName string, jsonData []byte) (string, error) {
	doc, err := jsonToTOMLDocument(jsonData)
	if err != nil {
		return "", err
	}

	path, err := config.ProfileSettingsFile(profileIndex, fileName)
	if err != nil {
		return "", err
	}
	if err := config.SaveTOML(path, doc); err != nil {
		return "", err
	}

	s.emitLog(models.NewLogMessage(models.LogLevelInfo, "Settings saved: "+path).WithProfileIndex(profileIndex))
	return path, nil
}

func (s *Store) emitLog(msg models.LogMessage) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Emit(events.LogMessage, msg); err != nil {
		s.log.Error("failed to emit log message", "error", err)
	}
}

// jsonToTOMLDocument decodes a JSON object into a value go-toml renders
// faithfully: integers stay integers and nulls, which TOML can't express,
// are dropped.
func jsonToTOMLDocument(data []byte) (map[string]interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw interface{}
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing data", ErrInvalidDocument)
	}

	obj, ok := raw.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: must be an object", ErrInvalidDocument)
	}
	return normalizeJSON(obj).(map[string]interface{}), nil
}

func normalizeJSON(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			if val == nil {
				continue
			}
			out[k] = normalizeJSON(val)
		}
		return out
	case []interface{}:
		out := make([]interface{}, 0, len(t))
		for _, val := range t {
			if val == nil {
				continue
			}
			out = append(out, normalizeJSON(val))
		}
		return out
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		f, _ := t.Float64()
		return f
	default:
		return t
	}
}
