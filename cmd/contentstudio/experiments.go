package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"contentstudio/cmd/contentstudio/ui"
	"contentstudio/internal/services/experiments"
)

func experimentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "experiments",
		Aliases: []string{"ab"},
		Short:   "Run A/B experiments over saved drafts",
	}

	cmd.AddCommand(experimentsListCmd())
	cmd.AddCommand(experimentsCreateCmd())
	cmd.AddCommand(experimentsRecordCmd())
	cmd.AddCommand(experimentsReportCmd())
	cmd.AddCommand(experimentsCompleteCmd())
	return cmd
}

func experimentsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved experiments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := getStudio(cmd.Context())
			if err != nil {
				return err
			}

			summaries, err := s.Experiments()
			if err != nil {
				return err
			}
			if len(summaries) == 0 {
				fmt.Println(ui.InfoMsg("No experiments yet"))
				return nil
			}

			rows := make([][]string, 0, len(summaries))
			for _, sum := range summaries {
				winner := "-"
				if sum.WinnerID != "" {
					winner = sum.WinnerID
				}
				rows = append(rows, []string{
					sum.Name,
					sum.Goal,
					coloredStatus(sum.Status),
					intCell(sum.Variants),
					winner,
					sum.CreatedAt,
				})
			}
			fmt.Println(ui.Table([]string{"NAME", "GOAL", "STATUS", "VARIANTS", "WINNER", "CREATED"}, rows))
			return nil
		},
	}
}

func experimentsCreateCmd() *cobra.Command {
	var (
		name     string
		goal     string
		draftIDs []string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Start an experiment from two or more drafts",
		Example: `  contentstudio experiments create --name headline-test \
    --draft 4f7c... --draft 9a21...`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := getStudio(cmd.Context())
			if err != nil {
				return err
			}

			exp, err := s.CreateExperiment(experiments.CreateExperimentRequest{
				Name:     name,
				Goal:     goal,
				DraftIDs: draftIDs,
			})
			if err != nil {
				return err
			}

			fmt.Println(ui.SuccessMsg("Experiment %q created with %d variants", exp.Name, len(exp.Variants)))
			for _, variant := range exp.Variants {
				fmt.Println(ui.KeyValues("  ", ui.KV(variant.Label, variant.DraftID)))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Experiment name")
	cmd.Flags().StringVar(&goal, "goal", "", "Goal metric (default conversion_rate)")
	cmd.Flags().StringArrayVar(&draftIDs, "draft", nil, "Draft ID to include (repeat per variant)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("draft")

	return cmd
}

func experimentsRecordCmd() *cobra.Command {
	var (
		variant     string
		impressions int64
		conversions int64
	)

	cmd := &cobra.Command{
		Use:   "record <experiment>",
		Short: "Add observed impressions and conversions for a variant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := getStudio(cmd.Context())
			if err != nil {
				return err
			}

			report, err := s.RecordMetrics(experiments.MetricsUpdate{
				ExperimentID: args[0],
				VariantID:    variant,
				Impressions:  impressions,
				Conversions:  conversions,
			})
			if err != nil {
				return err
			}

			fmt.Println(ui.SuccessMsg("Variant %s: %d impressions, %d conversions (%.1f%%)",
				report.Label, report.Impressions, report.Conversions, report.ConversionRate))
			return nil
		},
	}

	cmd.Flags().StringVar(&variant, "variant", "", "Variant label (A, B, ...) or ID")
	cmd.Flags().Int64Var(&impressions, "impressions", 0, "Impressions to add")
	cmd.Flags().Int64Var(&conversions, "conversions", 0, "Conversions to add")
	_ = cmd.MarkFlagRequired("variant")

	return cmd
}

func experimentsReportCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "report <experiment>",
		Short: "Evaluate an experiment's variants",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := getStudio(cmd.Context())
			if err != nil {
				return err
			}

			if format != "" {
				out, err := s.ExportExperiment(args[0], format)
				if err != nil {
					return err
				}
				fmt.Println(out)
				return nil
			}

			report, err := s.ExperimentReport(args[0])
			if err != nil {
				return err
			}
			printExperimentReport(report)
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "", "Raw export format: csv or json")

	return cmd
}

func experimentsCompleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "complete <experiment>",
		Short: "End an experiment and freeze its winner",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := getStudio(cmd.Context())
			if err != nil {
				return err
			}

			report, err := s.CompleteExperiment(args[0])
			if err != nil {
				return err
			}

			if report.WinnerID != "" {
				fmt.Println(ui.SuccessMsg("Experiment %q completed", report.Name))
			} else {
				fmt.Println(ui.WarnMsg("Experiment %q completed without a clear winner", report.Name))
			}
			printExperimentReport(report)
			return nil
		},
	}
}

func printExperimentReport(report *experiments.ExperimentReport) {
	pairs := []ui.Pair{
		ui.KV("Experiment", ui.Bold(report.Name)),
		ui.KV("Goal", report.Goal),
		ui.KV("Status", coloredStatus(report.Status)),
	}
	fmt.Print(ui.KeyValues("  ", pairs...))

	rows := make([][]string, 0, len(report.Variants))
	for _, variant := range report.Variants {
		leader := ""
		if variant.Leader {
			leader = "*"
		}
		title := variant.DraftTitle
		if title == "" {
			title = variant.DraftID
		}
		rows = append(rows, []string{
			variant.Label,
			ui.Truncate(title, 36),
			fmt.Sprintf("%d", variant.Impressions),
			fmt.Sprintf("%d", variant.Conversions),
			fmt.Sprintf("%.1f%%", variant.ConversionRate),
			leader,
		})
	}
	fmt.Println(ui.Table([]string{"LABEL", "DRAFT", "IMPRESSIONS", "CONVERSIONS", "RATE", "LEADER"}, rows))

	switch {
	case report.Conclusive:
		fmt.Println(ui.SuccessMsg("Leading variant is ahead by %.1f%%", report.Lift))
	case report.Note != "":
		fmt.Println(ui.InfoMsg("%s", report.Note))
	}
}
