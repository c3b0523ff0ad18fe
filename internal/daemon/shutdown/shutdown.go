// Package shutdown powers the machine off once every queued task has finished,
// when the user asked for it.
package shutdown

import (
	"context"
	"errors"
	"log/slog"
	"os/exec"
	"runtime"

	"github.com/AdbAutoPlayer/shell/internal/events"
	"github.com/AdbAutoPlayer/shell/internal/logging"
	"github.com/AdbAutoPlayer/shell/internal/models"
)

// ErrUnsupportedPlatform is returned when no power-off command is known for
// the running platform.
var ErrUnsupportedPlatform = errors.New("no power-off command for this platform")

// Command is an external program and its arguments.
type Command []string

// Strategies lists the power-off candidates per GOOS, in the order tried.
var Strategies = map[string][]Command{
	"windows": {
		{"shutdown", "/s", "/t", "0", "/f"},
	},
	"darwin": {
		{"osascript", "-e", `tell app "System Events" to shut down`},
	},
	"linux": {
		{"systemctl", "poweroff"},
		{"shutdown", "-h", "now"},
		{"poweroff"},
	},
}

// Launcher starts a command without waiting for it to finish.
type Launcher interface {
	Start(cmd Command) error
}

// ExecLauncher launches commands with os/exec.
type ExecLauncher struct{}

// Start implements Launcher.
func (ExecLauncher) Start(cmd Command) error {
	c := exec.Command(cmd[0], cmd[1:]...)
	if err := c.Start(); err != nil {
		return err
	}
	// Reap the child; nothing waits on the outcome.
	go func() { _ = c.Wait() }()
	return nil
}

// PowerOff launches the candidates in order and stops at the first that
// starts. It returns the launched command.
func PowerOff(candidates []Command, launcher Launcher) (Command, error) {
	if len(candidates) == 0 {
		return nil, ErrUnsupportedPlatform
	}
	var errs []error
	for _, cmd := range candidates {
		err := launcher.Start(cmd)
		if err == nil {
			return cmd, nil
		}
		errs = append(errs, err)
	}
	return nil, errors.Join(errs...)
}

// Settings exposes the current application settings.
type Settings interface {
	Get() models.AppSettings
}

// Trigger powers the machine off on all-tasks-completed when
// advanced.shutdown_after_tasks is set.
type Trigger struct {
	settings   Settings
	launcher   Launcher
	candidates []Command
	log        *slog.Logger
}

// NewTrigger creates a trigger using the strategy for the running platform.
// A nil launcher uses ExecLauncher.
func NewTrigger(settings Settings, launcher Launcher) *Trigger {
	if launcher == nil {
		launcher = ExecLauncher{}
	}
	return &Trigger{
		settings:   settings,
		launcher:   launcher,
		candidates: Strategies[runtime.GOOS],
		log:        logging.For("shutdown"),
	}
}

// Run handles all-tasks-completed events from ch until ctx is done or ch closes.
func (t *Trigger) Run(ctx context.Context, ch <-chan events.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-ch:
			if !ok {
				return
			}
			t.Handle()
		}
	}
}

// Handle processes one all-tasks-completed event.
func (t *Trigger) Handle() {
	if !t.settings.Get().Advanced.ShutdownAfterTasks {
		return
	}
	cmd, err := PowerOff(t.candidates, t.launcher)
	if err != nil {
		t.log.Warn("failed to power off", "error", err)
		return
	}
	t.log.Info("all tasks completed, powering off", "command", cmd)
}
