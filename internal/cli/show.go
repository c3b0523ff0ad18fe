package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/AdbAutoPlayer/shell/internal/client"
)

var showStart bool

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the main window of the running shell",
	RunE: func(cmd *cobra.Command, args []string) error {
		if showStart {
			if err := EnsureDaemon(); err != nil {
				return err
			}
		}

		c, err := client.Connect()
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := c.ShowWindow(ctx); err != nil {
			return fmt.Errorf("failed to show window: %w", err)
		}
		fmt.Println("Window shown.")
		return nil
	},
}

func init() {
	showCmd.Flags().BoolVar(&showStart, "start", false, "Start the daemon first if it is not running")
}
