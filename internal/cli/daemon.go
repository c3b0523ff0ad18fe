package cli

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"time"

	"github.com/AdbAutoPlayer/shell/internal/client"
	"github.com/AdbAutoPlayer/shell/internal/config"
	"github.com/AdbAutoPlayer/shell/internal/daemon/server"
)

const daemonBinaryName = "adbautoplayerd"

// EnsureDaemon makes sure the daemon is running, starting it if necessary.
func EnsureDaemon() error {
	running, info, err := config.IsDaemonRunning()
	if err != nil {
		return fmt.Errorf("failed to check daemon status: %w", err)
	}

	if running {
		return nil
	}

	// Clean up stale daemon info if it exists
	if info != nil {
		_ = config.RemoveDaemonInfo()
	}

	// Start daemon in background
	return startDaemon()
}

// startDaemon starts the daemon process in the background.
func startDaemon() error {
	// Find the daemon binary
	daemonPath, err := findDaemonBinary()
	if err != nil {
		return err
	}

	// Start daemon in background
	cmd := exec.Command(daemonPath)
	cmd.Stdout = nil
	cmd.Stderr = nil
	cmd.Stdin = nil

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start daemon: %w", err)
	}

	// Wait for daemon to be ready (max 5 seconds)
	for i := 0; i < 50; i++ {
		time.Sleep(100 * time.Millisecond)
		running, _, err := config.IsDaemonRunning()
		if err == nil && running {
			return nil
		}
	}

	return fmt.Errorf("daemon failed to start within timeout")
}

// findDaemonBinary locates the adbautoplayerd binary.
func findDaemonBinary() (string, error) {
	name := daemonBinaryName
	if runtime.GOOS == "windows" {
		name += ".exe"
	}

	// Try PATH first
	path, err := exec.LookPath(name)
	if err == nil {
		return path, nil
	}

	// Try next to the current executable
	execPath, err := os.Executable()
	if err == nil {
		daemonPath := filepath.Join(filepath.Dir(execPath), name)
		if _, err := os.Stat(daemonPath); err == nil {
			return daemonPath, nil
		}
	}

	// Try build directory
	if local := filepath.Join("build", name); fileExists(local) {
		return local, nil
	}

	return "", fmt.Errorf("%s not found. Install or build it first", daemonBinaryName)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// GetDaemonStatus returns the daemon status, asking the daemon itself when it
// answers and falling back to daemon.yaml otherwise.
func GetDaemonStatus() (bool, *server.Status, error) {
	running, info, err := config.IsDaemonRunning()
	if err != nil {
		return false, nil, err
	}

	if !running || info == nil {
		return false, nil, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	status, err := client.New(info.Host, info.Port).Status(ctx)
	if err != nil {
		return true, &server.Status{
			Host:      info.Host,
			Port:      info.Port,
			PID:       info.PID,
			StartedAt: info.StartedAt,
		}, nil
	}
	return true, status, nil
}
