package cli

import (
	"context"
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/AdbAutoPlayer/shell/internal/client"
	"github.com/AdbAutoPlayer/shell/internal/config"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Manage the AdbAutoPlayer shell daemon",
	Long:  `Manage the AdbAutoPlayer shell daemon process.`,
}

var daemonStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon status",
	RunE:  runDaemonStatus,
}

var daemonStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the daemon",
	RunE:  runDaemonStart,
}

var daemonStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the daemon",
	RunE:  runDaemonStop,
}

func init() {
	daemonCmd.AddCommand(daemonStartCmd)
	daemonCmd.AddCommand(daemonStatusCmd)
	daemonCmd.AddCommand(daemonStopCmd)
}

func runDaemonStart(cmd *cobra.Command, args []string) error {
	running, info, err := config.IsDaemonRunning()
	if err != nil {
		return fmt.Errorf("failed to check daemon status: %w", err)
	}

	if running && info != nil {
		fmt.Printf("Daemon is already running (PID %d, port %d).\n", info.PID, info.Port)
		return nil
	}

	// Clean up stale daemon info if it exists
	if info != nil {
		_ = config.RemoveDaemonInfo()
	}

	fmt.Print("Starting daemon...")
	if startErr := startDaemon(); startErr != nil {
		fmt.Println()
		return startErr
	}

	// Fetch fresh status to display
	_, status, err := GetDaemonStatus()
	if err != nil || status == nil {
		fmt.Println(" started.")
		return nil
	}

	fmt.Printf(" %s (PID %d, port %d).\n", styleSuccess.Render("started"), status.PID, status.Port)
	return nil
}

func runDaemonStatus(cmd *cobra.Command, args []string) error {
	running, status, err := GetDaemonStatus()
	if err != nil {
		return err
	}

	if !running || status == nil {
		fmt.Println("Daemon is not running.")
		return nil
	}

	uptime := time.Since(status.StartedAt).Truncate(time.Second)
	window := "hidden"
	if status.WindowVisible {
		window = "visible"
	}

	fmt.Println(styleSuccess.Render("Daemon is running."))
	printField("Host", status.Host)
	printField("Port", fmt.Sprint(status.Port))
	printField("PID", fmt.Sprint(status.PID))
	printField("Uptime", uptime.String())
	if status.Version != "" {
		printField("Version", status.Version)
	}
	printField("Window", window)
	printField("UI clients", fmt.Sprint(status.Clients))
	return nil
}

func runDaemonStop(cmd *cobra.Command, args []string) error {
	running, info, err := config.IsDaemonRunning()
	if err != nil {
		return fmt.Errorf("failed to check daemon status: %w", err)
	}

	if !running || info == nil {
		fmt.Println("Daemon is not running.")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.New(info.Host, info.Port).Shutdown(ctx); err != nil {
		// The bridge is unreachable; fall back to a signal.
		if sigErr := signalDaemon(info.PID); sigErr != nil {
			return fmt.Errorf("failed to stop daemon: %w", sigErr)
		}
	}

	// Poll for shutdown (max 5 seconds)
	for i := 0; i < 50; i++ {
		time.Sleep(100 * time.Millisecond)
		stillRunning, _, err := config.IsDaemonRunning()
		if err == nil && !stillRunning {
			fmt.Println("Daemon stopped.")
			return nil
		}
	}

	return fmt.Errorf("daemon did not stop within timeout")
}

func signalDaemon(pid int) error {
	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("failed to find daemon process: %w", err)
	}
	if err := process.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("failed to send stop signal: %w", err)
	}
	return nil
}
