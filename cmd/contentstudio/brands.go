package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"contentstudio/cmd/contentstudio/ui"
	"contentstudio/internal/studio"
)

func brandsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "brands",
		Short: "Manage brand voice profiles",
	}

	cmd.AddCommand(brandsListCmd())
	cmd.AddCommand(brandsAddCmd())
	cmd.AddCommand(brandsShowCmd())
	cmd.AddCommand(brandsRemoveCmd())
	return cmd
}

func brandsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List brand profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := getStudio(cmd.Context())
			if err != nil {
				return err
			}

			brands, err := s.ListBrands()
			if err != nil {
				return err
			}
			if len(brands) == 0 {
				fmt.Println(ui.InfoMsg("No brand profiles yet"))
				return nil
			}

			rows := make([][]string, 0, len(brands))
			for _, brand := range brands {
				rows = append(rows, []string{
					brand.Name,
					brand.Industry,
					brand.Tone,
					ui.Truncate(brand.Audience, 30),
				})
			}
			fmt.Println(ui.Table([]string{"NAME", "INDUSTRY", "TONE", "AUDIENCE"}, rows))
			return nil
		},
	}
}

func brandsAddCmd() *cobra.Command {
	var req studio.CreateBrandRequest

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Save a brand profile for generation defaults",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := getStudio(cmd.Context())
			if err != nil {
				return err
			}

			brand, err := s.CreateBrand(req)
			if err != nil {
				return err
			}
			fmt.Println(ui.SuccessMsg("Brand %q saved (%s)", brand.Name, brand.ID))
			return nil
		},
	}

	cmd.Flags().StringVar(&req.Name, "name", "", "Brand name")
	cmd.Flags().StringVar(&req.Industry, "industry", "", "Industry, e.g. technology")
	cmd.Flags().StringVar(&req.Tone, "tone", "", "Voice tone, e.g. friendly")
	cmd.Flags().StringVar(&req.Audience, "audience", "", "Target audience")
	cmd.Flags().StringVar(&req.Description, "description", "", "Short brand description")
	cmd.Flags().StringVar(&req.Website, "website", "", "Brand website")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func brandsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <brand>",
		Short: "Show a brand profile by ID or name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := getStudio(cmd.Context())
			if err != nil {
				return err
			}

			brand, err := s.GetBrand(args[0])
			if err != nil {
				return err
			}

			pairs := []ui.Pair{
				ui.KV("Name", ui.Bold(brand.Name)),
				ui.KV("ID", brand.ID),
			}
			if brand.Industry != "" {
				pairs = append(pairs, ui.KV("Industry", brand.Industry))
			}
			if brand.Tone != "" {
				pairs = append(pairs, ui.KV("Tone", brand.Tone))
			}
			if brand.Audience != "" {
				pairs = append(pairs, ui.KV("Audience", brand.Audience))
			}
			if brand.Website != "" {
				pairs = append(pairs, ui.KV("Website", brand.Website))
			}
			if brand.Description != "" {
				pairs = append(pairs, ui.KV("Description", brand.Description))
			}
			fmt.Print(ui.KeyValues("  ", pairs...))
			return nil
		},
	}
}

func brandsRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <brand>",
		Short: "Delete a brand profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := getStudio(cmd.Context())
			if err != nil {
				return err
			}
			if err := s.DeleteBrand(args[0]); err != nil {
				return err
			}
			fmt.Println(ui.SuccessMsg("Brand %q removed", args[0]))
			return nil
		},
	}
}
