package tray

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"slices"
	"sync"

	"github.com/AdbAutoPlayer/shell/internal/logging"
)

// ErrTrayNotFound is logged when the menu is rebuilt before a tray icon exists.
var ErrTrayNotFound = errors.New("tray icon not found")

// Controller keeps the tray menu in step with window visibility and routes
// menu activations to the window controller.
type Controller struct {
	menu Menu
	exit func(code int)
	log  *slog.Logger

	mu     sync.Mutex
	window WindowActions
	items  []Item
}

// NewController creates a controller for menu. exit terminates the process;
// nil means os.Exit. A nil menu is allowed (headless mode): rebuilds are
// logged and dropped.
func NewController(menu Menu, exit func(code int)) *Controller {
	if exit == nil {
		exit = os.Exit
	}
	return &Controller{
		menu: menu,
		exit: exit,
		log:  logging.For("tray"),
	}
}

// Attach sets the window that "Show" and "Minimize to Tray" act on.
func (c *Controller) Attach(w WindowActions) {
	c.mu.Lock()
	c.window = w
	c.mu.Unlock()
}

// RebuildMenu replaces the menu with the entries for the given visibility.
func (c *Controller) RebuildMenu(visible bool) {
	items := MenuFor(visible)

	c.mu.Lock()
	c.items = items
	c.mu.Unlock()

	if c.menu == nil {
		c.log.Warn("skipping menu rebuild", "error", ErrTrayNotFound)
		return
	}
	c.menu.SetItems(items)
}

// Items returns the entries currently shown in the menu.
func (c *Controller) Items() []Item {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.items)
}

// Activate handles a double-click on the tray icon.
func (c *Controller) Activate() {
	c.Handle(ItemShow)
}

// Handle dispatches a single menu activation.
func (c *Controller) Handle(item Item) {
	if item == ItemExit {
		c.log.Info("exit requested from tray")
		c.exit(0)
		return
	}

	c.mu.Lock()
	w := c.window
	c.mu.Unlock()
	if w == nil {
		c.log.Warn("no window attached", "item", item.Title())
		return
	}

	switch item {
	case ItemMinimize:
		w.Hide()
	case ItemShow:
		w.Show()
	}
}

// Run dispatches menu clicks until ctx is done.
func (c *Controller) Run(ctx context.Context) {
	if c.menu == nil {
		return
	}
	clicks := c.menu.Clicks()
	for {
		select {
		case <-ctx.Done():
			return
		case item, ok := <-clicks:
			if !ok {
				return
			}
			c.Handle(item)
		}
	}
}
