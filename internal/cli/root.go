// Package cli implements the adbautoplayer CLI commands.
package cli

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "adbautoplayer",
	Short: "Control the AdbAutoPlayer desktop shell",
	Long: `adbautoplayer controls the AdbAutoPlayer shell daemon: the tray icon,
the main window, application settings and task notifications.`,
	SilenceUsage: true,
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Add subcommands (alphabetical)
	rootCmd.AddCommand(daemonCmd)
	rootCmd.AddCommand(emitCmd)
	rootCmd.AddCommand(settingsCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(versionCmd)
}
