package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"contentstudio/cmd/contentstudio/ui"
	"contentstudio/internal/progress"
)

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <task-id>",
		Short: "Show a task's current state as reported by the workspace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := getStudio(cmd.Context())
			if err != nil {
				return err
			}

			var snap progress.TaskSnapshot
			err = ui.RunWithSpinner(cmd.Context(), "Fetching task status", func(ctx context.Context) error {
				var err error
				snap, err = s.TaskSnapshot(args[0])
				return err
			})
			if err != nil {
				return err
			}

			pairs := []ui.Pair{
				ui.KV("Task", args[0]),
				ui.KV("Status", coloredStatus(string(snap.Status))),
				ui.KV("Progress", ui.ProgressBar(snap.Progress)),
			}
			if snap.TotalSteps > 0 {
				pairs = append(pairs, ui.KV("Steps", fmt.Sprintf("%d/%d", snap.StepsCompleted, snap.TotalSteps)))
			}
			if snap.CurrentStep != "" {
				pairs = append(pairs, ui.KV("Current", snap.CurrentStep))
			}
			if snap.EstimatedCompletionTime != "" {
				pairs = append(pairs, ui.KV("ETA", snap.EstimatedCompletionTime))
			}
			if snap.Error != "" {
				pairs = append(pairs, ui.KV("Error", ui.ErrorStyle.Render(snap.Error)))
			}

			fmt.Print(ui.KeyValues("  ", pairs...))
			return nil
		},
	}
}

// coloredStatus renders a task or history status in its severity color.
func coloredStatus(status string) string {
	switch status {
	case "completed":
		return ui.SuccessStyle.Render(status)
	case "failed":
		return ui.ErrorStyle.Render(status)
	case "cancelled":
		return ui.WarnStyle.Render(status)
	case "running", "starting":
		return ui.AccentStyle.Render(status)
	default:
		return status
	}
}

// intCell formats a count for table cells.
func intCell(v int) string {
	return strconv.Itoa(v)
}
