// Package tray implements the system tray icon and its two-item menu.
package tray

import "github.com/AdbAutoPlayer/shell/internal/models"

// Item identifies a tray menu entry.
type Item int

const (
	ItemMinimize Item = iota
	ItemShow
	ItemExit
)

// Title returns the menu label for the item.
func (i Item) Title() string {
	switch i {
	case ItemMinimize:
		return "Minimize to Tray"
	case ItemShow:
		return "Show " + models.AppName
	case ItemExit:
		return "Exit"
	default:
		return ""
	}
}

var (
	visibleItems = []Item{ItemMinimize, ItemExit}
	hiddenItems  = []Item{ItemShow, ItemExit}
)

// MenuFor returns the menu entries for the given window visibility.
func MenuFor(visible bool) []Item {
	if visible {
		return visibleItems
	}
	return hiddenItems
}

// Menu is the platform tray icon menu.
type Menu interface {
	// SetItems replaces the visible menu entries.
	SetItems(items []Item)
	// Clicks delivers activated menu entries.
	Clicks() <-chan Item
}

// WindowActions is the subset of the window controller the tray drives.
type WindowActions interface {
	Show()
	Hide()
}
