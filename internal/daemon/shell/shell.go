// Package shell assembles the daemon: one settings store and event bus shared
// by the tray, window, notification and shutdown components and the UI bridge.
package shell

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/AdbAutoPlayer/shell/internal/config"
	"github.com/AdbAutoPlayer/shell/internal/daemon/notify"
	"github.com/AdbAutoPlayer/shell/internal/daemon/server"
	"github.com/AdbAutoPlayer/shell/internal/daemon/shutdown"
	"github.com/AdbAutoPlayer/shell/internal/daemon/tray"
	"github.com/AdbAutoPlayer/shell/internal/daemon/window"
	"github.com/AdbAutoPlayer/shell/internal/events"
	"github.com/AdbAutoPlayer/shell/internal/logging"
	"github.com/AdbAutoPlayer/shell/internal/models"
	"github.com/AdbAutoPlayer/shell/internal/settings"
)

// Options configure a Shell. Zero values select the production backends.
type Options struct {
	Daemon *config.DaemonOptions
	// Menu is the tray backend; nil runs without a tray icon.
	Menu tray.Menu
	// Exit terminates the process from the tray's Exit entry.
	Exit     func(code int)
	Popup    notify.Popup
	Launcher shutdown.Launcher
	// Stop is called when the UI bridge is asked to stop the daemon.
	Stop func()
}

// Shell is the context object every component receives its collaborators from.
type Shell struct {
	Options  config.DaemonOptions
	Store    *settings.Store
	Bus      *events.Bus
	Tray     *tray.Controller
	Window   *window.Controller
	Hub      *server.Hub
	Server   *server.Server
	Notifier *notify.Dispatcher
	Webhook  *notify.Webhook
	Shutdown *shutdown.Trigger

	taskCompleted     <-chan events.Event
	allTasksCompleted <-chan events.Event

	log     *slog.Logger
	watcher *settings.Watcher
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	closeMu sync.Once
}

// New builds a shell and loads App.toml. It fails only when the config
// directory can't be determined or the bridge can't listen.
func New(opts Options) (*Shell, error) {
	daemonOpts := opts.Daemon
	if daemonOpts == nil {
		loaded, err := config.LoadDaemonOptions()
		if err != nil {
			return nil, err
		}
		daemonOpts = loaded
	}

	path, err := config.AppSettingsFile()
	if err != nil {
		return nil, err
	}

	bus := events.NewBus()
	store := settings.NewStore(path, bus)
	store.Load()
	if daemonOpts.LogLevel != "" {
		logging.SetLevel(models.LogLevel(daemonOpts.LogLevel))
	}

	popup := opts.Popup
	if popup == nil {
		popup = notify.DesktopPopup{}
	}
	webhook := notify.NewWebhook(daemonOpts.WebhookTimeout)

	trayCtrl := tray.NewController(opts.Menu, opts.Exit)
	hub := server.NewHub(bus)
	win := window.NewController(hub.Window(), trayCtrl, store, bus)
	trayCtrl.Attach(win)

	s := &Shell{
		Options:  *daemonOpts,
		Store:    store,
		Bus:      bus,
		Tray:     trayCtrl,
		Window:   win,
		Hub:      hub,
		Notifier: notify.NewDispatcher(store, popup, webhook),
		Webhook:  webhook,
		Shutdown: shutdown.NewTrigger(store, opts.Launcher),
		log:      logging.For("shell"),

		// Subscribe before the bridge accepts events.
		taskCompleted:     bus.Subscribe(events.TaskCompleted),
		allTasksCompleted: bus.Subscribe(events.AllTasksCompleted),
	}

	srv, err := server.New(server.Config{
		Port:     daemonOpts.Port,
		Store:    store,
		Bus:      bus,
		Hub:      hub,
		Window:   win,
		Shutdown: opts.Stop,
	})
	if err != nil {
		bus.Close()
		return nil, err
	}
	s.Server = srv
	return s, nil
}

// Port returns the UI bridge port.
func (s *Shell) Port() int {
	return s.Server.Port()
}

// Start launches the listeners and the UI bridge. It returns immediately.
func (s *Shell) Start(ctx context.Context) error {
	ctx, s.cancel = context.WithCancel(ctx)

	if s.Options.WatchSettings {
		w, err := settings.Watch(s.Store)
		if err != nil {
			return fmt.Errorf("failed to watch settings: %w", err)
		}
		s.watcher = w
	}

	s.Tray.RebuildMenu(s.Window.IsVisible())

	s.goRun(func() { s.Hub.Run(ctx) })
	s.goRun(func() { s.Notifier.Run(ctx, s.taskCompleted) })
	s.goRun(func() { s.Shutdown.Run(ctx, s.allTasksCompleted) })
	s.goRun(func() { s.Tray.Run(ctx) })
	go func() {
		if err := s.Server.Serve(); err != nil {
			s.log.Error("bridge stopped", "error", err)
		}
	}()

	s.log.Info("shell started", "port", s.Port(), "settings", s.Store.Path())
	return nil
}

func (s *Shell) goRun(fn func()) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn()
	}()
}

// Close stops the bridge and the listeners and waits for in-flight webhooks
// for at most the context's deadline.
func (s *Shell) Close(ctx context.Context) error {
	var err error
	s.closeMu.Do(func() {
		if s.watcher != nil {
			s.watcher.Stop()
		}
		if stopErr := s.Server.Stop(ctx); stopErr != nil && !errors.Is(stopErr, context.DeadlineExceeded) {
			err = stopErr
		}
		if s.cancel != nil {
			s.cancel()
		}
		s.wg.Wait()
		s.Bus.Close()

		done := make(chan struct{})
		go func() {
			s.Webhook.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			s.log.Debug("abandoning in-flight webhooks")
		case <-time.After(s.Options.WebhookTimeout + time.Second):
		}
	})
	return err
}
