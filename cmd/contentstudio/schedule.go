package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"contentstudio/cmd/contentstudio/ui"
	"contentstudio/internal/services/scheduler"
)

func scheduleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Manage recurring generation jobs",
	}

	cmd.AddCommand(scheduleListCmd())
	cmd.AddCommand(scheduleAddCmd())
	cmd.AddCommand(scheduleRemoveCmd())
	cmd.AddCommand(scheduleToggleCmd("enable", true))
	cmd.AddCommand(scheduleToggleCmd("disable", false))
	return cmd
}

func scheduleListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List scheduled jobs and their last runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := getStudio(cmd.Context())
			if err != nil {
				return err
			}

			jobs, err := s.Jobs()
			if err != nil {
				return err
			}
			if len(jobs) == 0 {
				fmt.Println(ui.InfoMsg("No scheduled jobs"))
				return nil
			}

			rows := make([][]string, 0, len(jobs))
			for _, job := range jobs {
				last := "-"
				if job.LastStatus != "" {
					last = coloredStatus(job.LastStatus)
				}
				next := "-"
				if job.NextRun != nil {
					next = *job.NextRun
				}
				rows = append(rows, []string{
					job.Name,
					job.Cron,
					job.Timezone,
					ui.Bool(job.Enabled),
					last,
					next,
				})
			}
			fmt.Println(ui.Table([]string{"NAME", "CRON", "TIMEZONE", "ENABLED", "LAST", "NEXT"}, rows))
			return nil
		},
	}
}

func scheduleAddCmd() *cobra.Command {
	var (
		name        string
		cronExpr    string
		timezone    string
		disabled    bool
		contentType string
		topic       string
		templateID  string
		brandID     string
		tone        string
		audience    string
		varPairs    []string
		variants    int
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create or update a recurring generation job",
		Example: `  contentstudio schedule add --name weekly-blog --cron "0 9 * * MON" \
    --type blog_post --topic "Product updates"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := getStudio(cmd.Context())
			if err != nil {
				return err
			}

			vars, err := parseVars(varPairs)
			if err != nil {
				return err
			}

			req := scheduler.UpsertJobRequest{
				Name:     name,
				JobType:  "generation",
				Cron:     cronExpr,
				Timezone: timezone,
				Enabled:  !disabled,
				Payload: scheduler.GenerationJobPayload{
					ContentType: contentType,
					Topic:       topic,
					TemplateID:  templateID,
					BrandID:     brandID,
					Tone:        tone,
					Audience:    audience,
					Variables:   vars,
					Variants:    variants,
				},
			}

			id, err := s.UpsertJob(req)
			if err != nil {
				return err
			}
			fmt.Println(ui.SuccessMsg("Job %q saved (%s)", name, id))
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Job name")
	cmd.Flags().StringVar(&cronExpr, "cron", "", "Cron expression, e.g. \"0 9 * * MON\"")
	cmd.Flags().StringVar(&timezone, "timezone", "", "IANA timezone (default UTC)")
	cmd.Flags().BoolVar(&disabled, "disabled", false, "Create the job paused")
	cmd.Flags().StringVarP(&contentType, "type", "t", "", "Content type to generate")
	cmd.Flags().StringVar(&topic, "topic", "", "Topic for each run")
	cmd.Flags().StringVar(&templateID, "template", "", "Template ID")
	cmd.Flags().StringVar(&brandID, "brand", "", "Brand profile ID or name")
	cmd.Flags().StringVar(&tone, "tone", "", "Tone override")
	cmd.Flags().StringVar(&audience, "audience", "", "Audience override")
	cmd.Flags().StringArrayVar(&varPairs, "var", nil, "Template variable as key=value (repeatable)")
	cmd.Flags().IntVar(&variants, "variants", 0, "Variants per run")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("cron")
	_ = cmd.MarkFlagRequired("type")
	_ = cmd.MarkFlagRequired("topic")

	return cmd
}

func scheduleRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <name>",
		Short: "Delete a scheduled job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := getStudio(cmd.Context())
			if err != nil {
				return err
			}
			if err := s.RemoveJob(args[0]); err != nil {
				return err
			}
			fmt.Println(ui.SuccessMsg("Job %q removed", args[0]))
			return nil
		},
	}
}

func scheduleToggleCmd(verb string, enabled bool) *cobra.Command {
	short := "Resume a paused job"
	done := "enabled"
	if !enabled {
		short = "Pause a job without deleting it"
		done = "disabled"
	}

	return &cobra.Command{
		Use:   verb + " <name>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := getStudio(cmd.Context())
			if err != nil {
				return err
			}
			if err := s.SetJobEnabled(args[0], enabled); err != nil {
				return err
			}
			fmt.Println(ui.SuccessMsg("Job %q %s", args[0], done))
			return nil
		},
	}
}
