package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"contentstudio/cmd/contentstudio/ui"
	"contentstudio/internal/services/library"
)

func draftsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "drafts",
		Short: "Browse and manage saved drafts",
	}

	cmd.AddCommand(draftsListCmd())
	cmd.AddCommand(draftsShowCmd())
	cmd.AddCommand(draftsDeleteCmd())
	return cmd
}

func draftsListCmd() *cobra.Command {
	var (
		contentType string
		industry    string
		search      string
		limit       int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved drafts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := getStudio(cmd.Context())
			if err != nil {
				return err
			}

			drafts, err := s.Drafts(library.DraftFilter{
				ContentType: contentType,
				Industry:    industry,
				Search:      search,
				Limit:       limit,
			})
			if err != nil {
				return err
			}
			if len(drafts) == 0 {
				fmt.Println(ui.InfoMsg("No drafts saved yet"))
				return nil
			}

			rows := make([][]string, 0, len(drafts))
			for _, d := range drafts {
				rows = append(rows, []string{
					d.ID,
					ui.Truncate(d.Title, 40),
					d.ContentType,
					intCell(d.WordCount),
					ui.Score(d.QualityScore),
					d.CreatedAt,
				})
			}
			fmt.Println(ui.Table([]string{"ID", "TITLE", "TYPE", "WORDS", "QUALITY", "CREATED"}, rows))
			return nil
		},
	}

	cmd.Flags().StringVarP(&contentType, "type", "t", "", "Filter by content type")
	cmd.Flags().StringVar(&industry, "industry", "", "Filter by industry")
	cmd.Flags().StringVar(&search, "search", "", "Match titles containing this text")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum rows (default 50)")

	return cmd
}

func draftsShowCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "show <draft-id>",
		Short: "Print one draft",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := getStudio(cmd.Context())
			if err != nil {
				return err
			}

			if format != "" {
				out, err := s.ExportDraft(args[0], format)
				if err != nil {
					return err
				}
				fmt.Println(out)
				return nil
			}

			draft, err := s.Draft(args[0])
			if err != nil {
				return err
			}

			pairs := []ui.Pair{
				ui.KV("Title", ui.Bold(draft.Title)),
				ui.KV("Type", draft.ContentType),
			}
			if draft.Industry != "" {
				pairs = append(pairs, ui.KV("Industry", draft.Industry))
			}
			pairs = append(pairs,
				ui.KV("Quality", ui.Score(draft.QualityScore)),
				ui.KV("Words", intCell(draft.WordCount)),
			)
			if draft.TaskID != "" {
				pairs = append(pairs, ui.KV("Task", draft.TaskID))
			}

			fmt.Print(ui.KeyValues("  ", pairs...))
			fmt.Println()
			fmt.Println(draft.Body)
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "", "Output format: markdown or json")

	return cmd
}

func draftsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <draft-id>",
		Short: "Delete a saved draft",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := getStudio(cmd.Context())
			if err != nil {
				return err
			}
			if err := s.DeleteDraft(args[0]); err != nil {
				return err
			}
			fmt.Println(ui.SuccessMsg("Draft %s deleted", args[0]))
			return nil
		},
	}
}
