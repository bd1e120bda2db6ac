package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/deeppavlov/convai-router-bot/taggate"
)

func newTagsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tags",
		Short: "Manage the active tag gate",
	}

	openGate := func() (*taggate.SetGate, error) {
		dir, err := stateDir()
		if err != nil {
			return nil, err
		}
		return taggate.NewSetGate(tagsPath(dir))
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "add <tag>",
		Short: "Activate a tag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			gate, err := openGate()
			if err != nil {
				return err
			}
			gate.Add(args[0])
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "active tags: %v\n", gate.List())
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "remove <tag>",
		Short: "Deactivate a tag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			gate, err := openGate()
			if err != nil {
				return err
			}
			gate.Remove(args[0])
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "active tags: %v\n", gate.List())
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Show active tags",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			gate, err := openGate()
			if err != nil {
				return err
			}
			tags := gate.List()
			if len(tags) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no active tags (all profiles eligible)")
				return nil
			}
			for _, tag := range tags {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), tag)
			}
			return nil
		},
	})
	return cmd
}
