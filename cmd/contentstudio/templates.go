package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"contentstudio/cmd/contentstudio/ui"
)

func templatesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "templates",
		Short: "Browse the content template catalog",
	}

	cmd.AddCommand(templatesListCmd())
	cmd.AddCommand(templatesShowCmd())
	cmd.AddCommand(templatesRenderCmd())
	cmd.AddCommand(templatesSuggestCmd())
	return cmd
}

func templatesListCmd() *cobra.Command {
	var industry string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List templates, optionally for one industry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := getStudio(cmd.Context())
			if err != nil {
				return err
			}
			catalog := s.Catalog()

			industries := catalog.Industries()
			if industry != "" {
				industries = []string{industry}
			}

			var rows [][]string
			for _, ind := range industries {
				templates, err := catalog.Templates(ind)
				if err != nil {
					return err
				}
				for _, tpl := range templates {
					rows = append(rows, []string{
						tpl.ID,
						tpl.Name,
						tpl.ContentType,
						ind,
						ui.Truncate(tpl.Description, 40),
					})
				}
			}
			if len(rows) == 0 {
				fmt.Println(ui.InfoMsg("No templates found"))
				return nil
			}

			fmt.Println(ui.Table([]string{"ID", "NAME", "TYPE", "INDUSTRY", "DESCRIPTION"}, rows))
			return nil
		},
	}

	cmd.Flags().StringVar(&industry, "industry", "", "Limit to one industry")

	return cmd
}

func templatesShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <template-id>",
		Short: "Show a template's structure, slots and body",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := getStudio(cmd.Context())
			if err != nil {
				return err
			}
			catalog := s.Catalog()

			tpl, err := catalog.Get(args[0])
			if err != nil {
				return err
			}
			slots, err := catalog.Slots(args[0])
			if err != nil {
				return err
			}

			pairs := []ui.Pair{
				ui.KV("Name", ui.Bold(tpl.Name)),
				ui.KV("Type", tpl.ContentType),
			}
			if tpl.Description != "" {
				pairs = append(pairs, ui.KV("Description", tpl.Description))
			}
			if len(tpl.Structure) > 0 {
				pairs = append(pairs, ui.KV("Structure", strings.Join(tpl.Structure, " > ")))
			}
			if len(slots) > 0 {
				pairs = append(pairs, ui.KV("Slots", strings.Join(slots, ", ")))
			}
			if len(tpl.Keywords) > 0 {
				pairs = append(pairs, ui.KV("Keywords", strings.Join(tpl.Keywords, ", ")))
			}

			fmt.Print(ui.KeyValues("  ", pairs...))
			fmt.Println()
			fmt.Println(tpl.Body)
			return nil
		},
	}
}

func templatesRenderCmd() *cobra.Command {
	var varPairs []string

	cmd := &cobra.Command{
		Use:   "render <template-id>",
		Short: "Fill a template's slots and print the result",
		Example: `  contentstudio templates render tech-product-launch --var product_name="Orbit" --var company_name="Acme"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := getStudio(cmd.Context())
			if err != nil {
				return err
			}

			vars, err := parseVars(varPairs)
			if err != nil {
				return err
			}

			result, err := s.Catalog().Render(args[0], vars)
			if err != nil {
				return err
			}
			if len(result.Missing) > 0 {
				fmt.Fprintln(os.Stderr, ui.WarnMsg("Unfilled slots: %s", strings.Join(result.Missing, ", ")))
			}
			fmt.Println(result.Body)
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&varPairs, "var", nil, "Slot value as key=value (repeatable)")

	return cmd
}

func templatesSuggestCmd() *cobra.Command {
	var (
		topic       string
		contentType string
		industry    string
		limit       int
	)

	cmd := &cobra.Command{
		Use:   "suggest",
		Short: "Rank templates against a topic",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := getStudio(cmd.Context())
			if err != nil {
				return err
			}

			suggestions := s.Catalog().Suggest(industry, contentType, topic, limit)
			if len(suggestions) == 0 {
				fmt.Println(ui.InfoMsg("No matching templates"))
				return nil
			}

			rows := make([][]string, 0, len(suggestions))
			for _, sug := range suggestions {
				rows = append(rows, []string{sug.TemplateID, sug.Name, intCell(sug.Score)})
			}
			fmt.Println(ui.Table([]string{"ID", "NAME", "SCORE"}, rows))
			return nil
		},
	}

	cmd.Flags().StringVar(&topic, "topic", "", "Topic to match against")
	cmd.Flags().StringVarP(&contentType, "type", "t", "", "Preferred content type")
	cmd.Flags().StringVar(&industry, "industry", "", "Limit to one industry")
	cmd.Flags().IntVar(&limit, "limit", 5, "Maximum suggestions")
	_ = cmd.MarkFlagRequired("topic")

	return cmd
}
