package main

import (
	"fmt"
	"strings"

	"trading-journal-go/internal/models"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

// parseAmount accepts "1,234.50" and "$1234.5".
func parseAmount(field, text string) (decimal.Decimal, error) {
	s := strings.TrimPrefix(strings.ReplaceAll(strings.TrimSpace(text), ",", ""), "$")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s %q: please enter a valid number", field, text)
	}
	return d, nil
}

func newBalanceCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "balance",
		Short: "Show or change the balance of a profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.profile()
			if err != nil {
				return err
			}
			a.printf("%s: %s\n", p.Username, a.money(p.Balance))
			return nil
		},
	}

	type op func(profileID uint, amount decimal.Decimal) (*models.Profile, error)
	amountCmd := func(use, short string, run func() op) *cobra.Command {
		return &cobra.Command{
			Use:   use + " <amount>",
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				amount, err := parseAmount("amount", args[0])
				if err != nil {
					return err
				}
				p, err := a.profile()
				if err != nil {
					return err
				}
				p, err = run()(p.ID, amount)
				if err != nil {
					return err
				}
				a.printf("New balance: %s\n", a.money(p.Balance))
				return nil
			},
		}
	}

	cmd.AddCommand(
		amountCmd("deposit", "Add funds", func() op { return a.journal.Deposit }),
		amountCmd("withdraw", "Remove funds", func() op { return a.journal.Withdraw }),
		amountCmd("edit", "Set the balance to an exact amount", func() op { return a.journal.EditCapital }),
		&cobra.Command{
			Use:   "reset",
			Short: "Reset the balance to the initial balance",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				p, err := a.profile()
				if err != nil {
					return err
				}
				if p, err = a.journal.ResetBalance(p.ID); err != nil {
					return err
				}
				a.printf("New balance: %s\n", a.money(p.Balance))
				return nil
			},
		},
	)
	return cmd
}
