package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/AdbAutoPlayer/shell/internal/config"
	"github.com/AdbAutoPlayer/shell/internal/daemon/notify"
	"github.com/AdbAutoPlayer/shell/internal/events"
	"github.com/AdbAutoPlayer/shell/internal/models"
	"github.com/AdbAutoPlayer/shell/internal/settings"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error string `json:"error"`
}

// SaveDocumentResponse is returned after a settings document is written.
type SaveDocumentResponse struct {
	Path string `json:"path"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	return io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
}

func (s *Server) handleShowWindow(w http.ResponseWriter, r *http.Request) {
	s.window.Show()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSaveDocument(w http.ResponseWriter, r *http.Request) {
	profile, err := strconv.ParseUint(r.PathValue("profile"), 10, 8)
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.New("profile index must be between 0 and 255"))
		return
	}
	body, err := readBody(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	path, err := s.store.SaveDocument(uint8(profile), r.PathValue("file"), body)
	switch {
	case errors.Is(err, settings.ErrInvalidDocument), errors.Is(err, config.ErrInvalidFileName):
		writeError(w, http.StatusBadRequest, err)
	case err != nil:
		s.log.Error("failed to save settings document", "error", err)
		writeError(w, http.StatusInternalServerError, err)
	default:
		writeJSON(w, http.StatusOK, SaveDocumentResponse{Path: path})
	}
}

func (s *Server) handleSettingsForm(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Form())
}

func (s *Server) handleSaveAppSettings(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	// Fields the UI leaves out keep their defaults.
	updated := models.NewAppSettings()
	if err := json.Unmarshal(body, updated); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := updated.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if err := s.store.Save(*updated); err != nil {
		s.log.Error("failed to save app settings", "error", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	if updated.Notifications.DesktopNotifications && !notify.DisplayAvailable() {
		s.log.Warn("desktop notifications enabled without a display")
		if err := s.bus.Emit(events.LogMessage, models.NewLogMessage(models.LogLevelWarning,
			"Desktop notifications are enabled but no display is available")); err != nil {
			s.log.Error("failed to emit log message", "error", err)
		}
	}

	writeJSON(w, http.StatusOK, s.store.Get())
}

func (s *Server) handleEmit(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	err = s.emit(events.Name(r.PathValue("name")), body)
	switch {
	case errors.Is(err, events.ErrUnknownEvent):
		writeError(w, http.StatusNotFound, err)
	case err != nil:
		writeError(w, http.StatusBadRequest, err)
	default:
		w.WriteHeader(http.StatusAccepted)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.status())
}

func (s *Server) handleShutdown(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusAccepted)
	// Let the response go out before the process starts stopping.
	go func() {
		time.Sleep(100 * time.Millisecond)
		s.shutdown()
	}()
}
