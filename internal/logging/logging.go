// Package logging configures the process logger shared by the shell's components.
package logging

import (
	"io"
	"log/slog"
	"os"

	"github.com/AdbAutoPlayer/shell/internal/models"
)

var level = new(slog.LevelVar)

// Setup installs a text handler writing to w as the default slog logger.
func Setup(w io.Writer) {
	if w == nil {
		w = os.Stderr
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}

// SetLevel applies a settings log level to the process logger.
func SetLevel(l models.LogLevel) {
	level.Set(l.SlogLevel())
}

// Level returns the current process log level.
func Level() slog.Level {
	return level.Level()
}

// For returns a logger tagged with a component name.
func For(component string) *slog.Logger {
	return slog.Default().With("component", component)
}
