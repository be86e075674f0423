package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"contentstudio/cmd/contentstudio/ui"
	"contentstudio/internal/services/library"
)

func historyCmd() *cobra.Command {
	var (
		status      string
		contentType string
		limit       int
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List past generation jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := getStudio(cmd.Context())
			if err != nil {
				return err
			}

			entries, err := s.History(library.HistoryFilter{
				Status:      status,
				ContentType: contentType,
				Limit:       limit,
			})
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Println(ui.InfoMsg("No generation history yet"))
				return nil
			}

			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				draft := e.DraftID
				if draft == "" {
					draft = "-"
				}
				rows = append(rows, []string{
					e.CreatedAt,
					e.TaskID,
					e.ContentType,
					ui.Truncate(e.Topic, 40),
					coloredStatus(e.Status),
					draft,
				})
			}
			fmt.Println(ui.Table([]string{"CREATED", "TASK", "TYPE", "TOPIC", "STATUS", "DRAFT"}, rows))
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "Filter by status (running, completed, failed, cancelled)")
	cmd.Flags().StringVarP(&contentType, "type", "t", "", "Filter by content type")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum rows (default 50)")

	return cmd
}
