// Package window controls the main application window: visibility, placement
// persistence and the close-request interceptor.
package window

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/AdbAutoPlayer/shell/internal/config"
	"github.com/AdbAutoPlayer/shell/internal/events"
	"github.com/AdbAutoPlayer/shell/internal/logging"
	"github.com/AdbAutoPlayer/shell/internal/models"
)

// ErrNoWindow is returned by a Window that has no live UI behind it.
var ErrNoWindow = errors.New("main window not available")

// Window is the main application window.
type Window interface {
	Show() error
	Hide() error
	Unminimize() error
	Focus() error
	IsVisible() bool
	Placement() (models.WindowPlacement, error)
	SetPlacement(p models.WindowPlacement) error
}

// Tray is the part of the tray controller the window keeps in step.
type Tray interface {
	RebuildMenu(visible bool)
}

// Settings exposes the current application settings.
type Settings interface {
	Get() models.AppSettings
}

// Controller serializes show and hide requests against a single Window.
type Controller struct {
	window   Window
	tray     Tray
	settings Settings
	bus      *events.Bus
	log      *slog.Logger

	mu sync.Mutex
}

// NewController creates a window controller. bus may be nil.
func NewController(w Window, tray Tray, settings Settings, bus *events.Bus) *Controller {
	return &Controller{
		window:   w,
		tray:     tray,
		settings: settings,
		bus:      bus,
		log:      logging.For("window"),
	}
}

// Show restores the persisted placement, unminimizes, shows and focuses the
// window, then switches the tray menu to the visible set. Without a window
// nothing changes.
func (c *Controller) Show() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if p, err := config.LoadWindowPlacement(); err != nil {
		c.log.Debug("failed to load window placement", "error", err)
	} else if p.Valid() {
		c.attempt("restore placement", c.window.SetPlacement(*p))
	}
	c.attempt("unminimize", c.window.Unminimize())
	err := c.window.Show()
	c.attempt("show", err)
	if errors.Is(err, ErrNoWindow) {
		return
	}
	c.attempt("focus", c.window.Focus())

	c.visibilityChanged(true)
}

// Hide persists the placement if the window is visible, hides it, then
// switches the tray menu to the hidden set.
func (c *Controller) Hide() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.window.IsVisible() {
		c.persistPlacement()
	}
	c.attempt("hide", c.window.Hide())

	c.visibilityChanged(false)
}

// HandleCloseRequest decides the fate of a close request on the main window
// and reports whether the close may proceed. The close behavior is read from
// the settings at the time of the request.
func (c *Controller) HandleCloseRequest() bool {
	if c.settings.Get().UI.CloseShouldMinimize {
		c.Hide()
		return false
	}

	c.mu.Lock()
	c.persistPlacement()
	c.mu.Unlock()

	c.log.Info("main window closing, signalling running tasks")
	c.emit(events.KillPython, nil)
	return true
}

// Observe records a visibility change made outside the controller, for
// example the user minimizing the window through the window manager.
func (c *Controller) Observe(visible bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.visibilityChanged(visible)
}

// IsVisible reports whether the window is currently shown.
func (c *Controller) IsVisible() bool {
	return c.window.IsVisible()
}

func (c *Controller) persistPlacement() {
	p, err := c.window.Placement()
	if err != nil {
		c.attempt("read placement", err)
		return
	}
	if !p.Valid() {
		return
	}
	if err := config.SaveWindowPlacement(&p); err != nil {
		c.log.Warn("failed to save window placement", "error", err)
	}
}

func (c *Controller) visibilityChanged(visible bool) {
	if c.tray != nil {
		c.tray.RebuildMenu(visible)
	}
	c.emit(events.WindowIsVisible, visible)
}

func (c *Controller) emit(name events.Name, v interface{}) {
	if c.bus == nil {
		return
	}
	if err := c.bus.Emit(name, v); err != nil {
		c.log.Error("failed to emit event", "event", name, "error", err)
	}
}

// attempt logs a failed best-effort window operation.
func (c *Controller) attempt(op string, err error) {
	if err == nil {
		return
	}
	if errors.Is(err, ErrNoWindow) {
		c.log.Debug("window operation skipped", "op", op, "error", err)
		return
	}
	c.log.Warn("window operation failed", "op", op, "error", err)
}
