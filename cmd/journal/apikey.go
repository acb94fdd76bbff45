package main

import (
	"strings"

	"github.com/spf13/cobra"
)

func newAPIKeyCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apikey",
		Short: "Manage the vision API key of a profile",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "set <key>",
			Short: "Store the API key",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				p, err := a.profile()
				if err != nil {
					return err
				}
				if err := a.ledger.SetAPIKey(p.ID, args[0]); err != nil {
					return err
				}
				a.printf("API key saved for %s\n", p.Username)
				return nil
			},
		},
		&cobra.Command{
			Use:   "show",
			Short: "Show the stored API key, masked",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				p, err := a.profile()
				if err != nil {
					return err
				}
				key, err := a.ledger.APIKey(p.ID)
				if err != nil {
					return err
				}
				a.printf("%s\n", maskKey(key))
				return nil
			},
		},
		&cobra.Command{
			Use:   "remove",
			Short: "Delete the stored API key",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				p, err := a.profile()
				if err != nil {
					return err
				}
				if err := a.ledger.RemoveAPIKey(p.ID); err != nil {
					return err
				}
				a.printf("API key removed\n")
				return nil
			},
		},
		&cobra.Command{
			Use:   "test [key]",
			Short: "Check a key (default: the stored one) with a minimal model call",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				p, err := a.profile()
				if err != nil {
					return err
				}
				var key string
				if len(args) == 1 {
					key = args[0]
				} else if key, err = a.ledger.APIKey(p.ID); err != nil {
					return err
				}
				return checkKey(cmd.Context(), a, key)
			},
		},
	)
	return cmd
}

// maskKey keeps the first and last four characters.
func maskKey(key string) string {
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", len(key)-8) + key[len(key)-4:]
}
