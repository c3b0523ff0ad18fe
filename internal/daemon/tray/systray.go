package tray

import (
	"slices"
	"sync"

	"github.com/getlantern/systray"

	"github.com/AdbAutoPlayer/shell/internal/models"
)

// Systray is the Menu backed by the operating system tray. Only one may
// run per process.
type Systray struct {
	clicks chan Item

	mu      sync.Mutex
	ready   bool
	pending []Item

	minimizeItem *systray.MenuItem
	showItem     *systray.MenuItem
	exitItem     *systray.MenuItem
}

// NewSystray creates the tray backend. Call Run to display it.
func NewSystray() *Systray {
	return &Systray{clicks: make(chan Item, 8)}
}

// Run starts the system tray. This blocks the calling goroutine (must be main).
// onReady is called once the icon and menu exist; onExit when the tray exits.
func (s *Systray) Run(onReady, onExit func()) {
	systray.Run(func() {
		s.setup()
		if onReady != nil {
			onReady()
		}
	}, onExit)
}

// Quit signals the tray to exit.
func (s *Systray) Quit() {
	systray.Quit()
}

// Clicks implements Menu.
func (s *Systray) Clicks() <-chan Item {
	return s.clicks
}

// SetItems implements Menu. Calls made before the tray is ready are applied
// once it is.
func (s *Systray) SetItems(items []Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready {
		s.pending = slices.Clone(items)
		return
	}
	s.apply(items)
}

func (s *Systray) setup() {
	systray.SetIcon(iconData)
	systray.SetTooltip(models.AppName)

	// Every entry is allocated up front; rebuilding shows and hides them.
	s.mu.Lock()
	s.minimizeItem = systray.AddMenuItem(ItemMinimize.Title(), "Hide the window to the tray")
	s.showItem = systray.AddMenuItem(ItemShow.Title(), "Show the main window")
	systray.AddSeparator()
	s.exitItem = systray.AddMenuItem(ItemExit.Title(), "Quit "+models.AppName)

	items := s.pending
	if items == nil {
		items = MenuFor(true)
	}
	s.apply(items)
	s.ready = true
	s.mu.Unlock()

	go s.handleClicks()
}

func (s *Systray) apply(items []Item) {
	for item, mi := range map[Item]*systray.MenuItem{
		ItemMinimize: s.minimizeItem,
		ItemShow:     s.showItem,
		ItemExit:     s.exitItem,
	} {
		if slices.Contains(items, item) {
			mi.Show()
		} else {
			mi.Hide()
		}
	}
}

func (s *Systray) handleClicks() {
	for {
		select {
		case <-s.minimizeItem.ClickedCh:
			s.clicks <- ItemMinimize
		case <-s.showItem.ClickedCh:
			s.clicks <- ItemShow
		case <-s.exitItem.ClickedCh:
			s.clicks <- ItemExit
		}
	}
}
