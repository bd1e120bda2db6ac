package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newInstancesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "instances",
		Short: "Manage registered backend instances",
	}
	cmd.AddCommand(newInstancesRegisterCmd())
	cmd.AddCommand(newInstancesListCmd())
	return cmd
}

func newInstancesRegisterCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register a backend instance token for a profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			profileID := strings.TrimSpace(mustString(cmd, "profile"))
			token := strings.TrimSpace(mustString(cmd, "token"))
			if profileID == "" || token == "" {
				return fmt.Errorf("both --profile and --token are required")
			}

			dir, err := stateDir()
			if err != nil {
				return err
			}
			cat, err := loadCatalog(dir)
			if err != nil {
				return err
			}
			if _, ok := cat.GetByID(profileID); !ok {
				return fmt.Errorf("unknown profile %q (import profiles first)", profileID)
			}

			instances, err := loadInstances(dir)
			if err != nil {
				return err
			}
			for _, inst := range instances {
				if inst.Token == token {
					return fmt.Errorf("token already registered for profile %q", inst.ProfileID)
				}
			}
			instances = append(instances, registeredInstance{ProfileID: profileID, Token: token})
			if err := saveInstances(dir, instances); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "registered instance for profile %s\n", profileID)
			return nil
		},
	}
	cmd.Flags().String("profile", "", "Profile id the instance serves.")
	cmd.Flags().String("token", "", "Polling token the backend will use.")
	return cmd
}

func newInstancesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered instances",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := stateDir()
			if err != nil {
				return err
			}
			instances, err := loadInstances(dir)
			if err != nil {
				return err
			}
			for _, inst := range instances {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", inst.ProfileID, maskToken(inst.Token))
			}
			return nil
		},
	}
}

func mustString(cmd *cobra.Command, name string) string {
	v, _ := cmd.Flags().GetString(name)
	return v
}

func maskToken(token string) string {
	if len(token) <= 8 {
		return "****"
	}
	return token[:4] + "..." + token[len(token)-4:]
}
