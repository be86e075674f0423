package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"contentstudio/cmd/contentstudio/ui"
	"contentstudio/internal/studio"
)

func watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch <task-id>",
		Short: "Follow a running generation task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := getStudio(cmd.Context())
			if err != nil {
				return err
			}
			return followTask(cmd.Context(), s, args[0])
		},
	}
}

// followTask attaches to a task, renders its progress until a terminal
// state and prints the result summary on completion.
func followTask(ctx context.Context, s *studio.Studio, taskID string) error {
	prog, events, unsubscribe, err := s.Watch(taskID)
	if err != nil {
		return err
	}
	defer unsubscribe()

	status, err := ui.WatchProgress(ctx, prog, events, func() error {
		return s.Cancel(taskID)
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Println(ui.InfoMsg("Detached; task %s keeps running", taskID))
			return nil
		}
		return err
	}

	switch status {
	case ui.WatchCompleted:
		final, err := s.Progress(taskID)
		if err == nil && final.Result != nil {
			r := final.Result
			fmt.Print(ui.KeyValues("  ",
				ui.KV("Draft", r.DraftID),
				ui.KV("Title", r.Title),
				ui.KV("Quality", ui.Score(r.QualityScore)),
				ui.KV("Words", strconv.Itoa(r.WordCount)),
			))
			fmt.Println(ui.Muted("  Show it with 'contentstudio drafts show " + r.DraftID + "'"))
		}
		return nil
	case ui.WatchFailed:
		return fmt.Errorf("generation did not complete")
	case ui.WatchDetached:
		fmt.Println(ui.InfoMsg("Task %s keeps running; check it with 'contentstudio status %s'", taskID, taskID))
		return nil
	default:
		return nil
	}
}
