package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/AdbAutoPlayer/shell/internal/client"
	"github.com/AdbAutoPlayer/shell/internal/events"
	"github.com/AdbAutoPlayer/shell/internal/models"
)

var (
	emitMsg      string
	emitExitCode int64
)

var emitCmd = &cobra.Command{
	Use:   "emit",
	Short: "Send a task event to the shell as the automation engine would",
}

var emitTaskCompletedCmd = &cobra.Command{
	Use:   "task-completed",
	Short: "Report that a task finished",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var payload models.TaskCompletedPayload
		if cmd.Flags().Changed("msg") {
			payload.Msg = &emitMsg
		}
		if cmd.Flags().Changed("exit-code") {
			payload.ExitCode = &emitExitCode
		}
		return emit(events.TaskCompleted, payload)
	},
}

var emitAllTasksCompletedCmd = &cobra.Command{
	Use:   "all-tasks-completed",
	Short: "Report that every queued task finished",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return emit(events.AllTasksCompleted, nil)
	},
}

func init() {
	emitTaskCompletedCmd.Flags().StringVarP(&emitMsg, "msg", "m", "", "Message shown in the notification")
	emitTaskCompletedCmd.Flags().Int64Var(&emitExitCode, "exit-code", 0, "Exit code of the task process")

	emitCmd.AddCommand(emitTaskCompletedCmd)
	emitCmd.AddCommand(emitAllTasksCompletedCmd)
}

func emit(name events.Name, payload interface{}) error {
	c, err := client.Connect()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.Emit(ctx, name, payload); err != nil {
		return fmt.Errorf("failed to emit %s: %w", name, err)
	}
	fmt.Printf("Sent %s.\n", name)
	return nil
}
