// Package cmd implements the adbautoplayerd daemon entry point.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/AdbAutoPlayer/shell/internal/client"
	"github.com/AdbAutoPlayer/shell/internal/config"
	"github.com/AdbAutoPlayer/shell/internal/daemon/server"
	"github.com/AdbAutoPlayer/shell/internal/daemon/shell"
	"github.com/AdbAutoPlayer/shell/internal/daemon/tray"
	"github.com/AdbAutoPlayer/shell/internal/logging"
	"github.com/AdbAutoPlayer/shell/internal/models"
)

const closeTimeout = 10 * time.Second

var (
	foreground bool
	port       int
)

var rootCmd = &cobra.Command{
	Use:   "adbautoplayerd",
	Short: "AdbAutoPlayer shell daemon",
	Long: `adbautoplayerd owns the tray icon, the main window, task notifications
and the shutdown-after-tasks behaviour. The UI connects to it over a local
WebSocket bridge.`,
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd)
	},
}

// Execute runs the daemon.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.Flags().BoolVar(&foreground, "foreground", false, "Run in foreground without a tray icon (for development)")
	rootCmd.Flags().IntVar(&port, "port", 0, "Port to listen on (0 uses daemon.json or a dynamic port)")
}

func run(cmd *cobra.Command) error {
	logging.Setup(os.Stderr)
	log := logging.For("daemon")

	if err := config.EnsureGlobalDir(); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// A second launch brings the existing window forward instead.
	running, info, err := config.IsDaemonRunning()
	if err != nil {
		return fmt.Errorf("failed to check daemon status: %w", err)
	}
	if running {
		log.Info("daemon already running, showing its window", "port", info.Port, "pid", info.PID)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return client.New(info.Host, info.Port).ShowWindow(ctx)
	}

	opts, err := config.LoadDaemonOptions()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("port") {
		opts.Port = port
	}

	if foreground {
		log.Info("running in foreground mode (no system tray)")
		return runForeground(opts, log)
	}
	log.Info("running with system tray")
	return runWithTray(opts, log)
}

func publishDaemonInfo(sh *shell.Shell) error {
	return config.SaveDaemonInfo(models.NewDaemonInfo(server.Host, sh.Port(), os.Getpid()))
}

func closeShell(sh *shell.Shell, log *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	if err := sh.Close(ctx); err != nil {
		log.Warn("error while stopping", "error", err)
	}
	if err := config.RemoveDaemonInfo(); err != nil {
		log.Warn("failed to remove daemon info", "error", err)
	}
}

// runForeground runs the daemon without a tray icon, blocking on signals.
func runForeground(opts *config.DaemonOptions, log *slog.Logger) error {
	stop := make(chan struct{}, 1)
	sh, err := shell.New(shell.Options{
		Daemon: opts,
		Stop: func() {
			select {
			case stop <- struct{}{}:
			default:
			}
		},
	})
	if err != nil {
		return err
	}

	if err := publishDaemonInfo(sh); err != nil {
		closeShell(sh, log)
		return fmt.Errorf("failed to write daemon info: %w", err)
	}
	if err := sh.Start(context.Background()); err != nil {
		closeShell(sh, log)
		return err
	}
	log.Info("daemon started", "port", sh.Port(), "pid", os.Getpid())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		log.Info("received signal, shutting down", "signal", sig)
	case <-stop:
		log.Info("shutdown requested")
	}

	closeShell(sh, log)
	fmt.Println("Daemon stopped")
	return nil
}

// runWithTray runs the daemon with a tray icon on the main goroutine, which
// the tray library requires on macOS.
func runWithTray(opts *config.DaemonOptions, log *slog.Logger) error {
	menu := tray.NewSystray()

	var (
		sh       *shell.Shell
		startErr error
		exitCode int
	)

	onStart := func() {
		sh, startErr = shell.New(shell.Options{
			Daemon: opts,
			Menu:   menu,
			Exit: func(code int) {
				exitCode = code
				menu.Quit()
			},
			Stop: menu.Quit,
		})
		if startErr != nil {
			menu.Quit()
			return
		}
		if startErr = publishDaemonInfo(sh); startErr != nil {
			menu.Quit()
			return
		}
		if startErr = sh.Start(context.Background()); startErr != nil {
			menu.Quit()
			return
		}
		log.Info("daemon started", "port", sh.Port(), "pid", os.Getpid())

		go func() {
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			sig := <-sigCh
			log.Info("received signal, shutting down", "signal", sig)
			menu.Quit()
		}()
	}

	onExit := func() {
		if sh != nil {
			closeShell(sh, log)
		}
		fmt.Println("Daemon stopped")
	}

	// Blocks until the tray exits.
	menu.Run(onStart, onExit)

	if startErr != nil {
		return startErr
	}
	if exitCode != 0 {
		os.Exit(exitCode)
	}
	return nil
}
