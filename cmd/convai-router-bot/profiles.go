package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/deeppavlov/convai-router-bot/catalog"
	"github.com/deeppavlov/convai-router-bot/internal/fsstore"
)

func newProfilesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profiles",
		Short: "Manage the persona profile catalog",
	}
	cmd.AddCommand(newProfilesImportCmd())
	cmd.AddCommand(newProfilesListCmd())
	return cmd
}

func newProfilesImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Replace the profile catalog from a JSON or YAML snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := stateDir()
			if err != nil {
				return err
			}

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			profiles, err := catalog.ParseSnapshot(f, args[0])
			if err != nil {
				return err
			}
			// Validate the whole snapshot before persisting it.
			cat := catalog.New()
			if err := cat.Replace(profiles); err != nil {
				return err
			}
			if err := fsstore.WriteJSONAtomic(profilesPath(dir), profiles); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "imported %d profiles\n", len(profiles))
			return nil
		},
	}
}

func newProfilesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List imported profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := stateDir()
			if err != nil {
				return err
			}
			cat, err := loadCatalog(dir)
			if err != nil {
				return err
			}
			for _, p := range cat.ListEligible(nil) {
				group := p.LinkedGroupID
				if group == "" {
					group = "-"
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\ttags=%v\tgroup=%s\n", p.ID, p.Tags, group)
			}
			return nil
		},
	}
}
