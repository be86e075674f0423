package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"contentstudio/cmd/contentstudio/ui"
	"contentstudio/internal/api"
)

func cancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <task-id>",
		Short: "Cancel a running generation task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := getStudio(cmd.Context())
			if err != nil {
				return err
			}

			taskID := args[0]
			err = ui.RunWithSpinner(cmd.Context(), "Requesting cancellation", func(ctx context.Context) error {
				return s.Cancel(taskID)
			})
			switch {
			case errors.Is(err, api.ErrTaskFinished):
				fmt.Println(ui.WarnMsg("Task %s already finished", taskID))
				return nil
			case errors.Is(err, context.Canceled):
				return nil
			case err != nil:
				return err
			}

			fmt.Println(ui.SuccessMsg("Cancellation requested; task %s will stop shortly", taskID))
			return nil
		},
	}
}
