package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"contentstudio/cmd/contentstudio/ui"
)

func agentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agents",
		Short: "Inspect the generation crew configuration",
	}

	cmd.AddCommand(agentsListCmd())
	cmd.AddCommand(agentsValidateCmd())
	return cmd
}

func agentsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show the loaded crew, its agents and tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := getStudio(cmd.Context())
			if err != nil {
				return err
			}

			crew := s.Crew()
			if crew == nil {
				fmt.Println(ui.InfoMsg("No crew configured"))
				return nil
			}

			pairs := []ui.Pair{ui.KV("Crew", ui.Bold(crew.Name))}
			if crew.Description != "" {
				pairs = append(pairs, ui.KV("Description", crew.Description))
			}
			fmt.Print(ui.KeyValues("  ", pairs...))
			fmt.Println()

			agentRows := make([][]string, 0, len(crew.Agents))
			for _, agent := range crew.Agents {
				agentRows = append(agentRows, []string{
					agent.Name,
					ui.Truncate(agent.Goal, 40),
					agent.Model,
					fmt.Sprintf("%.1f", agent.GetTemperature()),
					ui.Bool(agent.IsEnabled()),
				})
			}
			fmt.Println(ui.Table([]string{"AGENT", "GOAL", "MODEL", "TEMP", "ENABLED"}, agentRows))

			if len(crew.Tasks) > 0 {
				taskRows := make([][]string, 0, len(crew.Tasks))
				for _, task := range crew.Tasks {
					taskRows = append(taskRows, []string{
						task.Name,
						task.Agent,
						task.GetTimeout().String(),
					})
				}
				fmt.Println(ui.Table([]string{"TASK", "AGENT", "TIMEOUT"}, taskRows))
			}
			return nil
		},
	}
}

func agentsValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>",
		Short: "Check a crew YAML file without installing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := getStudio(cmd.Context())
			if err != nil {
				return err
			}

			crew, err := s.ValidateAgentsFile(args[0])
			if err != nil {
				return err
			}

			fmt.Println(ui.SuccessMsg("Crew %q is valid (%d agents, %d tasks)",
				crew.Name, len(crew.Agents), len(crew.Tasks)))
			return nil
		},
	}
}
