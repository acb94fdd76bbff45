package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newProfileCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage trading profiles",
	}
	cmd.AddCommand(
		newProfileListCmd(a),
		newProfileCreateCmd(a),
		newProfileSwitchCmd(a),
		newProfileDeleteCmd(a),
		newProfilePasswdCmd(a),
		newProfileCloneCmd(a),
		newProfileStatsCmd(a),
		newProfileHistoryCmd(a),
	)
	return cmd
}

func parseID(s string) (uint, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return uint(id), nil
}

func newProfileListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(); err != nil {
				return err
			}
			// resolves the active profile if none is marked
			if _, err := a.ledger.ActiveProfile(); err != nil {
				return err
			}
			profiles, err := a.ledger.Profiles()
			if err != nil {
				return err
			}
			w := a.table()
			fmt.Fprintln(w, "ID\tUSERNAME\tBALANCE\tACTIVE")
			for _, p := range profiles {
				active := ""
				if p.IsActive {
					active = "*"
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", p.ID, p.Username, a.money(p.Balance), active)
			}
			return w.Flush()
		},
	}
}

func newProfileCreateCmd(a *app) *cobra.Command {
	var password, balance string
	cmd := &cobra.Command{
		Use:   "create <username>",
		Short: "Create a profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(); err != nil {
				return err
			}
			amount, err := parseAmount("balance", balance)
			if err != nil {
				return err
			}
			p, err := a.ledger.CreateProfile(args[0], password, amount)
			if err != nil {
				return err
			}
			a.printf("Created profile %d (%s) with %s\n", p.ID, p.Username, a.money(p.Balance))
			return nil
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "profile password")
	cmd.Flags().StringVar(&balance, "balance", "10000", "initial balance")
	return cmd
}

func newProfileSwitchCmd(a *app) *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "switch <id>",
		Short: "Make a profile the active one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := a.open(); err != nil {
				return err
			}
			p, err := a.journal.SwitchProfile(id, password)
			if err != nil {
				return err
			}
			a.printf("Switched to profile %s\n", p.Username)
			return nil
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "profile password")
	return cmd
}

func newProfileDeleteCmd(a *app) *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a profile with its trades and balance history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := a.open(); err != nil {
				return err
			}
			if err := a.journal.DeleteProfile(id, password); err != nil {
				return err
			}
			a.printf("Deleted profile %d\n", id)
			return nil
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "profile password")
	return cmd
}

func newProfilePasswdCmd(a *app) *cobra.Command {
	var oldPassword, newPassword string
	cmd := &cobra.Command{
		Use:   "passwd <id>",
		Short: "Change a profile password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := a.open(); err != nil {
				return err
			}
			if err := a.ledger.ChangePassword(id, oldPassword, newPassword); err != nil {
				return err
			}
			a.printf("Password changed\n")
			return nil
		},
	}
	cmd.Flags().StringVar(&oldPassword, "old", "", "current password")
	cmd.Flags().StringVar(&newPassword, "new", "", "new password")
	return cmd
}

func newProfileCloneCmd(a *app) *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "clone <id> <username>",
		Short: "Create a profile starting from another profile's balance",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := a.open(); err != nil {
				return err
			}
			p, err := a.ledger.CloneProfile(id, args[1], password)
			if err != nil {
				return err
			}
			a.printf("Created profile %d (%s) with %s\n", p.ID, p.Username, a.money(p.Balance))
			return nil
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "password of the new profile")
	return cmd
}

func newProfileStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show a profile summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.profile()
			if err != nil {
				return err
			}
			st, err := a.ledger.Stats(p.ID)
			if err != nil {
				return err
			}
			lastLogin := "never"
			if st.LastLogin != nil {
				lastLogin = st.LastLogin.Format("2006-01-02 15:04")
			}
			w := a.table()
			fmt.Fprintf(w, "Username:\t%s\n", st.Username)
			fmt.Fprintf(w, "Created:\t%s\n", st.CreatedAt.Format("2006-01-02 15:04"))
			fmt.Fprintf(w, "Last login:\t%s\n", lastLogin)
			fmt.Fprintf(w, "Initial balance:\t%s\n", a.money(st.InitialBalance))
			fmt.Fprintf(w, "Current balance:\t%s\n", a.money(st.CurrentBalance))
			fmt.Fprintf(w, "Balance changes:\t%d\n", st.BalanceChanges)
			fmt.Fprintf(w, "Days active:\t%d\n", st.DaysActive)
			return w.Flush()
		},
	}
}

func newProfileHistoryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "Show the balance history of a profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.profile()
			if err != nil {
				return err
			}
			w := a.table()
			fmt.Fprintln(w, "DATE\tBALANCE\tACTION")
			for _, e := range p.BalanceHistory {
				fmt.Fprintf(w, "%s\t%s\t%s\n", e.Date.Format("2006-01-02 15:04:05"), a.money(e.Balance), e.Action)
			}
			return w.Flush()
		},
	}
}
