package cli

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/AdbAutoPlayer/shell/internal/buildinfo"
	"github.com/AdbAutoPlayer/shell/internal/updater"
)

var versionCheck bool

var versionCmd = &cobra.Command{
	Use:     "version",
	Aliases: []string{"v"},
	Short:   "Show version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("  %s %s\n", styleBrand.Render("AdbAutoPlayer"), styleVersion.Render(buildinfo.Version))
		fmt.Printf("    %s  %s\n", styleLabel.Render("Commit"), styleValue.Render(buildinfo.Commit()))
		fmt.Printf("    %s   %s\n", styleLabel.Render("Built"), styleValue.Render(buildinfo.BuildDate))
		fmt.Printf("    %s %s\n", styleLabel.Render("OS/Arch"), styleValue.Render(runtime.GOOS+"/"+runtime.GOARCH))
		fmt.Printf("    %s      %s\n", styleLabel.Render("Go"), styleValue.Render(runtime.Version()))

		if !versionCheck {
			return nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		result, err := updater.CheckForUpdate(ctx)
		if err != nil {
			return fmt.Errorf("failed to check for updates: %w", err)
		}

		fmt.Println()
		if !result.Available {
			fmt.Printf("  %s\n", styleSuccess.Render("Up to date."))
			return nil
		}
		fmt.Printf("  %s %s %s\n", styleUpdate.Render("Update available:"),
			styleVersion.Render("v"+result.LatestVersion), styleHint.Render(result.ReleaseURL))
		return nil
	},
}

func init() {
	versionCmd.Flags().BoolVar(&versionCheck, "check", false, "Check GitHub for a newer release")
}
