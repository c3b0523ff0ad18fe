package server

import (
	"sync"

	"github.com/AdbAutoPlayer/shell/internal/daemon/window"
	"github.com/AdbAutoPlayer/shell/internal/models"
)

// RemoteWindow is the window.Window implemented by the UI connected to the
// hub. With no UI connected commands return window.ErrNoWindow; Hide and
// SetPlacement still update the recorded state.
type RemoteWindow struct {
	hub *Hub

	mu        sync.Mutex
	visible   bool
	minimized bool
	placement *models.WindowPlacement
}

var _ window.Window = (*RemoteWindow)(nil)

func newRemoteWindow(h *Hub) *RemoteWindow {
	return &RemoteWindow{hub: h}
}

// Show asks the UI to show the window. The window only counts as visible once
// a UI received the command.
func (w *RemoteWindow) Show() error {
	if err := w.hub.command(CommandShow, nil); err != nil {
		return err
	}
	w.mu.Lock()
	w.visible = true
	w.mu.Unlock()
	return nil
}

func (w *RemoteWindow) Hide() error {
	w.mu.Lock()
	w.visible = false
	w.mu.Unlock()
	return w.hub.command(CommandHide, nil)
}

func (w *RemoteWindow) Unminimize() error {
	w.mu.Lock()
	w.minimized = false
	w.mu.Unlock()
	return w.hub.command(CommandUnminimize, nil)
}

func (w *RemoteWindow) Focus() error {
	return w.hub.command(CommandFocus, nil)
}

func (w *RemoteWindow) IsVisible() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.visible
}

// Placement returns the geometry last reported by the UI.
func (w *RemoteWindow) Placement() (models.WindowPlacement, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.placement == nil {
		return models.WindowPlacement{}, window.ErrNoWindow
	}
	return *w.placement, nil
}

func (w *RemoteWindow) SetPlacement(p models.WindowPlacement) error {
	w.mu.Lock()
	w.placement = &p
	w.mu.Unlock()
	return w.hub.command(CommandSetPlacement, p)
}

// report records a state frame and reports whether visibility changed.
func (w *RemoteWindow) report(s WindowState) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	changed := w.visible != s.Visible
	w.visible = s.Visible
	w.minimized = s.Minimized
	if s.Placement != nil && s.Placement.Valid() {
		p := *s.Placement
		w.placement = &p
	}
	return changed
}

// disconnected marks the window hidden once the last UI has gone.
func (w *RemoteWindow) disconnected() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	changed := w.visible
	w.visible = false
	return changed
}

// Minimized reports whether the UI last reported the window as minimized.
func (w *RemoteWindow) Minimized() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.minimized
}
