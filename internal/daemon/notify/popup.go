package notify

import (
	"errors"
	"os"
	"runtime"

	"github.com/gen2brain/beeep"
)

// ErrNoDisplay is returned when there is no desktop session to notify.
var ErrNoDisplay = errors.New("no display available for desktop notifications")

// Popup shows desktop notifications.
type Popup interface {
	// Notify shows a notification. An empty body shows the title only.
	Notify(title, body string) error
}

// DesktopPopup is the Popup backed by the operating system notification center.
type DesktopPopup struct{}

// Notify implements Popup.
func (DesktopPopup) Notify(title, body string) error {
	if !DisplayAvailable() {
		return ErrNoDisplay
	}
	return beeep.Notify(title, body, "")
}

// DisplayAvailable reports whether desktop notifications can be shown.
// Headless Linux sessions have neither an X11 nor a Wayland display.
func DisplayAvailable() bool {
	if runtime.GOOS != "linux" {
		return true
	}
	return os.Getenv("DISPLAY") != "" || os.Getenv("WAYLAND_DISPLAY") != ""
}
