package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"contentstudio/cmd/contentstudio/ui"
	"contentstudio/internal/services/generation"
)

func generateCmd() *cobra.Command {
	var (
		contentType string
		topic       string
		templateID  string
		brand       string
		tone        string
		audience    string
		varPairs    []string
		variants    int
		detach      bool
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Submit a content generation job and follow it",
		Example: `  contentstudio generate --type blog-post --topic "Spring launch recap"
  contentstudio generate -t email --topic "Release digest" --brand acme --var cta_text="Try it now"
  contentstudio generate -t social-post --topic "Feature teaser" --detach`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := getStudio(cmd.Context())
			if err != nil {
				return err
			}

			variables, err := parseVars(varPairs)
			if err != nil {
				return err
			}

			req := generation.GenerationRequest{
				ContentType: contentType,
				Topic:       topic,
				TemplateID:  templateID,
				BrandID:     brand,
				Tone:        tone,
				Audience:    audience,
				Variables:   variables,
				Variants:    variants,
			}

			var taskID string
			err = ui.RunWithSpinner(cmd.Context(), "Submitting generation", func(ctx context.Context) error {
				var err error
				taskID, err = s.Generate(req)
				return err
			})
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			}

			fmt.Println(ui.SuccessMsg("Task %s submitted", ui.Bold(taskID)))
			if detach {
				fmt.Println(ui.InfoMsg("Follow it with 'contentstudio watch %s'", taskID))
				return nil
			}
			return followTask(cmd.Context(), s, taskID)
		},
	}

	cmd.Flags().StringVarP(&contentType, "type", "t", "", "Content type (blog-post, email, social-post, ad-copy)")
	cmd.Flags().StringVar(&topic, "topic", "", "What the content is about")
	cmd.Flags().StringVar(&templateID, "template", "", "Catalog template ID")
	cmd.Flags().StringVar(&brand, "brand", "", "Brand profile name or ID")
	cmd.Flags().StringVar(&tone, "tone", "", "Writing tone (overrides the brand default)")
	cmd.Flags().StringVar(&audience, "audience", "", "Target audience (overrides the brand default)")
	cmd.Flags().StringArrayVar(&varPairs, "var", nil, "Template variable as key=value (repeatable)")
	cmd.Flags().IntVar(&variants, "variants", 0, "Number of drafts to produce (1-5)")
	cmd.Flags().BoolVar(&detach, "detach", false, "Submit and return without watching")
	_ = cmd.MarkFlagRequired("type")
	_ = cmd.MarkFlagRequired("topic")

	return cmd
}

// parseVars turns repeated key=value flags into a variable map.
func parseVars(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	vars := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid variable %q (want key=value)", pair)
		}
		vars[key] = value
	}
	return vars, nil
}
