package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"contentstudio/cmd/contentstudio/ui"
	"contentstudio/internal/studio"
)

func profilesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "profiles",
		Aliases: []string{"workspaces"},
		Short:   "Manage workspace profiles and credentials",
	}

	cmd.AddCommand(profilesListCmd())
	cmd.AddCommand(profilesAddCmd())
	cmd.AddCommand(profilesUpdateCmd())
	cmd.AddCommand(profilesRemoveCmd())
	cmd.AddCommand(profilesUseCmd())
	cmd.AddCommand(profilesTestCmd())
	return cmd
}

func profilesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved workspace profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := getStudio(cmd.Context())
			if err != nil {
				return err
			}

			profiles, err := s.ListProfiles()
			if err != nil {
				return err
			}
			if len(profiles) == 0 {
				fmt.Println(ui.InfoMsg("No workspace profiles; add one with `contentstudio profiles add`"))
				return nil
			}

			rows := make([][]string, 0, len(profiles))
			for _, profile := range profiles {
				active := ""
				if profile.Active {
					active = ui.Accent("*")
				}
				industry := profile.DefaultIndustry
				if industry == "" {
					industry = "-"
				}
				rows = append(rows, []string{
					active,
					profile.Name,
					profile.APIURL,
					industry,
				})
			}
			fmt.Println(ui.Table([]string{"", "NAME", "URL", "INDUSTRY"}, rows))
			return nil
		},
	}
}

func profilesAddCmd() *cobra.Command {
	var req studio.CreateProfileRequest

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Save a workspace profile (the token is encrypted at rest)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := getStudio(cmd.Context())
			if err != nil {
				return err
			}

			profile, err := s.CreateProfile(req)
			if err != nil {
				return err
			}

			if profile.Active {
				fmt.Println(ui.SuccessMsg("Profile %q saved and activated", profile.Name))
			} else {
				fmt.Println(ui.SuccessMsg("Profile %q saved; switch with `contentstudio profiles use %s`",
					profile.Name, profile.Name))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&req.Name, "name", "", "Profile name")
	cmd.Flags().StringVar(&req.APIURL, "url", "", "Workspace API base URL")
	cmd.Flags().StringVar(&req.APIToken, "token", "", "API token")
	cmd.Flags().StringVar(&req.Owner, "owner", "", "Account owner")
	cmd.Flags().StringVar(&req.EventsURL, "events-url", "", "WebSocket events URL")
	cmd.Flags().StringVar(&req.DefaultIndustry, "industry", "", "Default industry for templates")
	cmd.Flags().StringVar(&req.DefaultBrandID, "brand", "", "Default brand profile ID")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("url")
	_ = cmd.MarkFlagRequired("token")

	return cmd
}

func profilesUpdateCmd() *cobra.Command {
	var req studio.CreateProfileRequest

	cmd := &cobra.Command{
		Use:   "update <name>",
		Short: "Change a saved profile; omitted flags keep their values",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := getStudio(cmd.Context())
			if err != nil {
				return err
			}

			profile, err := s.GetProfile(args[0])
			if err != nil {
				return err
			}

			// Start from the stored profile so unset flags keep their
			// current values. The token stays empty unless rotated.
			merged := studio.CreateProfileRequest{
				Name:            profile.Name,
				Owner:           profile.Owner,
				APIURL:          profile.APIURL,
				EventsURL:       profile.EventsURL,
				DefaultIndustry: profile.DefaultIndustry,
				DefaultBrandID:  profile.DefaultBrandID,
			}
			flags := cmd.Flags()
			if flags.Changed("name") {
				merged.Name = req.Name
			}
			if flags.Changed("owner") {
				merged.Owner = req.Owner
			}
			if flags.Changed("url") {
				merged.APIURL = req.APIURL
			}
			if flags.Changed("token") {
				merged.APIToken = req.APIToken
			}
			if flags.Changed("events-url") {
				merged.EventsURL = req.EventsURL
			}
			if flags.Changed("industry") {
				merged.DefaultIndustry = req.DefaultIndustry
			}
			if flags.Changed("brand") {
				merged.DefaultBrandID = req.DefaultBrandID
			}

			if err := s.UpdateProfile(args[0], merged); err != nil {
				return err
			}
			fmt.Println(ui.SuccessMsg("Profile %q updated", merged.Name))
			return nil
		},
	}

	cmd.Flags().StringVar(&req.Name, "name", "", "New profile name")
	cmd.Flags().StringVar(&req.APIURL, "url", "", "Workspace API base URL")
	cmd.Flags().StringVar(&req.APIToken, "token", "", "New API token")
	cmd.Flags().StringVar(&req.Owner, "owner", "", "Account owner")
	cmd.Flags().StringVar(&req.EventsURL, "events-url", "", "WebSocket events URL")
	cmd.Flags().StringVar(&req.DefaultIndustry, "industry", "", "Default industry for templates")
	cmd.Flags().StringVar(&req.DefaultBrandID, "brand", "", "Default brand profile ID")

	return cmd
}

func profilesRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <name>",
		Short: "Delete a workspace profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := getStudio(cmd.Context())
			if err != nil {
				return err
			}
			if err := s.DeleteProfile(args[0]); err != nil {
				return err
			}
			fmt.Println(ui.SuccessMsg("Profile %q removed", args[0]))
			return nil
		},
	}
}

func profilesUseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "use <name>",
		Short: "Switch the active workspace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := getStudio(cmd.Context())
			if err != nil {
				return err
			}
			if err := s.UseProfile(args[0]); err != nil {
				return err
			}
			fmt.Println(ui.SuccessMsg("Active workspace is now %q", args[0]))
			return nil
		},
	}
}

func profilesTestCmd() *cobra.Command {
	var (
		apiURL   string
		apiToken string
	)

	cmd := &cobra.Command{
		Use:   "test [name]",
		Short: "Verify workspace credentials",
		Long: `Verify workspace credentials.

With no arguments the active profile is checked. Pass a profile name to
check a saved profile, or --url and --token to check credentials before
saving them.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := getStudio(cmd.Context())
			if err != nil {
				return err
			}

			var resp studio.TestConnectionResponse
			runErr := ui.RunWithSpinner(cmd.Context(), "Checking connection", func(ctx context.Context) error {
				if apiURL != "" || apiToken != "" {
					resp = s.TestConnection(studio.TestConnectionRequest{
						APIURL:   apiURL,
						APIToken: apiToken,
					})
					return nil
				}
				ref := ""
				if len(args) > 0 {
					ref = args[0]
				}
				var err error
				resp, err = s.TestProfile(ref)
				return err
			})
			if runErr != nil {
				if errors.Is(runErr, context.Canceled) {
					return nil
				}
				return runErr
			}

			if !resp.Success {
				return fmt.Errorf("%s", resp.Error)
			}

			pairs := []ui.Pair{ui.KV("User", resp.UserName)}
			if resp.Workspace != "" {
				pairs = append(pairs, ui.KV("Workspace", resp.Workspace))
			}
			fmt.Println(ui.SuccessMsg("Connection OK"))
			fmt.Print(ui.KeyValues("  ", pairs...))
			return nil
		},
	}

	cmd.Flags().StringVar(&apiURL, "url", "", "API base URL to check without saving")
	cmd.Flags().StringVar(&apiToken, "token", "", "API token to check without saving")
	cmd.MarkFlagsRequiredTogether("url", "token")

	return cmd
}
