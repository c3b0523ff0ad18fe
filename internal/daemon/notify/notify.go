// Package notify reports finished tasks through desktop notifications and
// an optional Discord webhook.
package notify

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/AdbAutoPlayer/shell/internal/events"
	"github.com/AdbAutoPlayer/shell/internal/logging"
	"github.com/AdbAutoPlayer/shell/internal/models"
)

// Title heads every task-completed notification.
const Title = "Task Completed"

// Settings exposes the current application settings.
type Settings interface {
	Get() models.AppSettings
}

// Dispatcher turns task-completed events into notifications.
type Dispatcher struct {
	settings Settings
	popup    Popup
	webhook  *Webhook
	log      *slog.Logger
}

// NewDispatcher creates a dispatcher. A nil popup disables desktop
// notifications regardless of settings.
func NewDispatcher(settings Settings, popup Popup, webhook *Webhook) *Dispatcher {
	if webhook == nil {
		webhook = NewWebhook(DefaultWebhookTimeout)
	}
	return &Dispatcher{
		settings: settings,
		popup:    popup,
		webhook:  webhook,
		log:      logging.For("notify"),
	}
}

// Run handles task-completed events from ch until ctx is done or ch closes.
func (d *Dispatcher) Run(ctx context.Context, ch <-chan events.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-ch:
			if !ok {
				return
			}
			d.Handle(e)
		}
	}
}

// Handle processes one task-completed event.
func (d *Dispatcher) Handle(e events.Event) {
	payload, err := models.ParseTaskCompletedPayload(e.Payload)
	if err != nil {
		d.log.Warn("dropping task-completed event", "error", err)
		return
	}
	if payload.Killed() {
		d.log.Debug("task was terminated, not notifying", "exit_code", *payload.ExitCode)
		return
	}

	s := d.settings.Get()
	desktop := s.Notifications.DesktopNotifications && d.popup != nil
	webhookURL := s.Notifications.DiscordWebhook
	if !desktop && webhookURL == "" {
		return
	}

	msg := payload.Message()
	log := d.log.With("notification", uuid.NewString())

	if desktop {
		if err := d.popup.Notify(Title, msg); err != nil {
			log.Debug("desktop notification failed", "error", err)
		} else {
			log.Debug("desktop notification shown")
		}
	}
	if webhookURL != "" {
		log.Debug("posting webhook")
		d.webhook.Send(webhookURL, Title+"\n"+msg)
	}
}
