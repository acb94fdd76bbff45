package main

import (
	"fmt"
	"strings"
	"time"

	"trading-journal-go/internal/ledger"
	"trading-journal-go/internal/models"
	"trading-journal-go/internal/stats"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

func newTradeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trade",
		Short: "Log and manage trades",
		Long: `Log and manage the trades of a profile.

Opening a trade debits its size from the balance; closing it credits the
realized PnL. Every change is recorded in the balance history.

Examples:
  journal trade add --pair BTCUSDT --side long --size 100 --leverage 10 --tp-pct 5 --sl-pct 2
  journal trade close 3 --outcome win
  journal trade list --status running --period last_7_days`,
	}
	cmd.AddCommand(
		newTradeAddCmd(a),
		newTradeUpdateCmd(a),
		newTradeCloseCmd(a),
		newTradeDeleteCmd(a),
		newTradeListCmd(a),
		newTradeShowCmd(a),
	)
	return cmd
}

func bindTradeForm(fs *pflag.FlagSet, f *ledger.TradeForm) {
	fs.StringVar(&f.Time, "time", "", "trade time ("+ledger.TimeLayout+", default now)")
	fs.StringVar(&f.Pair, "pair", "", "trading pair, e.g. BTCUSDT")
	fs.StringVar(&f.Side, "side", "", "position side (long|short)")
	fs.StringVar(&f.Size, "size", "", "trade size (margin)")
	fs.StringVar(&f.Leverage, "leverage", "", "leverage (default 1)")
	fs.StringVar(&f.TakeProfitPct, "tp-pct", "", "take profit movement in percent")
	fs.StringVar(&f.StopLossPct, "sl-pct", "", "stop loss movement in percent")
	fs.StringVar(&f.TakeProfitAmount, "tp-amount", "", "take profit amount (derived when empty)")
	fs.StringVar(&f.StopLossAmount, "sl-amount", "", "stop loss amount (derived when empty)")
	fs.StringVar(&f.Status, "status", "", "running or closed")
	fs.StringVar(&f.Outcome, "outcome", "", "win, loss or breakeven (closed trades)")
	fs.StringVar(&f.PnL, "pnl", "", "realized PnL (derived from the outcome when empty)")
	fs.StringVar(&f.ClosedNotes, "closed-notes", "", "notes on the close")
	fs.StringVar(&f.Notes, "notes", "", "notes")
	fs.StringVar(&f.Screenshot1, "screenshot1", "", "path or URL of a chart screenshot")
	fs.StringVar(&f.Screenshot2, "screenshot2", "", "path or URL of a second screenshot")
}

// formFromTrade renders a stored trade back into form fields.
func formFromTrade(t models.Trade) ledger.TradeForm {
	f := ledger.TradeForm{
		Time:             t.Time.Local().Format(ledger.TimeLayout),
		Pair:             t.Pair,
		Side:             string(t.Side),
		Size:             t.Size.String(),
		Leverage:         t.Leverage.String(),
		TakeProfitPct:    t.TakeProfitPct.String(),
		StopLossPct:      t.StopLossPct.String(),
		TakeProfitAmount: t.TakeProfitAmount.String(),
		StopLossAmount:   t.StopLossAmount.String(),
		Status:           string(t.Status),
		Notes:            t.Notes,
		Screenshot1:      t.Screenshot1,
		Screenshot2:      t.Screenshot2,
	}
	if c, ok := t.Closing(); ok {
		f.Outcome = string(c.Outcome)
		f.PnL = c.PnL.String()
		f.ClosedNotes = c.Notes
	}
	return f
}

func newTradeAddCmd(a *app) *cobra.Command {
	var form ledger.TradeForm
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Log a new trade",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.profile()
			if err != nil {
				return err
			}
			t, err := a.journal.AddTrade(p.ID, form)
			if err != nil {
				return err
			}
			a.printf("Trade %d added: %s %s %s\n", t.ID, t.Pair, t.Side, a.money(t.Size))
			return nil
		},
	}
	bindTradeForm(cmd.Flags(), &form)
	return cmd
}

func newTradeUpdateCmd(a *app) *cobra.Command {
	var form ledger.TradeForm
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change the fields of a trade",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			p, err := a.profile()
			if err != nil {
				return err
			}
			prev, err := a.ledger.Trade(p.ID, id)
			if err != nil {
				return err
			}

			merged := formFromTrade(*prev)
			flags := cmd.Flags()
			set := func(name string, dst *string, v string) {
				if flags.Changed(name) {
					*dst = v
				}
			}
			set("time", &merged.Time, form.Time)
			set("pair", &merged.Pair, form.Pair)
			set("side", &merged.Side, form.Side)
			set("size", &merged.Size, form.Size)
			set("leverage", &merged.Leverage, form.Leverage)
			set("tp-pct", &merged.TakeProfitPct, form.TakeProfitPct)
			set("sl-pct", &merged.StopLossPct, form.StopLossPct)
			set("tp-amount", &merged.TakeProfitAmount, form.TakeProfitAmount)
			set("sl-amount", &merged.StopLossAmount, form.StopLossAmount)
			set("status", &merged.Status, form.Status)
			set("outcome", &merged.Outcome, form.Outcome)
			set("closed-notes", &merged.ClosedNotes, form.ClosedNotes)
			set("notes", &merged.Notes, form.Notes)
			set("screenshot1", &merged.Screenshot1, form.Screenshot1)
			set("screenshot2", &merged.Screenshot2, form.Screenshot2)
			// A new outcome re-derives the PnL unless one is given.
			if flags.Changed("outcome") || flags.Changed("status") {
				merged.PnL = ""
			}
			set("pnl", &merged.PnL, form.PnL)

			next, err := merged.Trade(p.Balance)
			if err != nil {
				return err
			}
			if pc, ok := prev.Closing(); ok {
				if nc, ok := next.Closing(); ok && nc.PnL.Equal(pc.PnL) {
					next.PnLPct = prev.PnLPct
				}
			}
			t, err := a.journal.UpdateTrade(p.ID, id, next)
			if err != nil {
				return err
			}
			a.printf("Trade %d updated (%s)\n", t.ID, t.Status)
			return nil
		},
	}
	bindTradeForm(cmd.Flags(), &form)
	return cmd
}

func newTradeCloseCmd(a *app) *cobra.Command {
	var outcome, notes string
	cmd := &cobra.Command{
		Use:   "close <id>",
		Short: "Close a trade with an outcome",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			o, err := models.ParseOutcome(outcome)
			if err != nil {
				return err
			}
			p, err := a.profile()
			if err != nil {
				return err
			}
			t, err := a.journal.CloseTrade(p.ID, id, o, notes)
			if err != nil {
				return err
			}
			c, _ := t.Closing()
			a.printf("Trade %d closed: %s, PnL %s (%s%%)\n", t.ID, c.Outcome, a.money(c.PnL), c.PnLPct.StringFixed(2))
			return nil
		},
	}
	cmd.Flags().StringVar(&outcome, "outcome", "", "win, loss or breakeven")
	cmd.Flags().StringVar(&notes, "notes", "", "notes on the close")
	_ = cmd.MarkFlagRequired("outcome")
	return cmd
}

func newTradeDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a trade; a running trade's size is returned",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			p, err := a.profile()
			if err != nil {
				return err
			}
			if err := a.journal.DeleteTrade(p.ID, id); err != nil {
				return err
			}
			a.printf("Trade %d deleted\n", id)
			return nil
		},
	}
}

func newTradeListCmd(a *app) *cobra.Command {
	var status, period string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List trades",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var filter ledger.TradeFilter
			switch strings.ToLower(status) {
			case "":
			case "running":
				filter.Status = models.Running
			case "closed":
				filter.Status = models.Closed
			default:
				return fmt.Errorf("unknown status %q", status)
			}
			per, err := stats.ParsePeriod(period)
			if err != nil {
				return err
			}
			filter.From = per.Since(time.Now())

			p, err := a.profile()
			if err != nil {
				return err
			}
			trades, err := a.ledger.Trades(p.ID, filter)
			if err != nil {
				return err
			}

			w := a.table()
			fmt.Fprintln(w, "ID\tTIME\tPAIR\tSIDE\tSIZE\tLEV\tSTATUS\tOUTCOME\tPNL")
			for _, t := range trades {
				outcome, pnl := "", ""
				if c, ok := t.Closing(); ok {
					outcome, pnl = string(c.Outcome), a.money(c.PnL)
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%sx\t%s\t%s\t%s\n",
					t.ID, t.Time.Local().Format("2006-01-02 15:04"), t.Pair, t.Side,
					a.money(t.Size), t.Leverage.StringFixed(2), t.Status, outcome, pnl)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "running or closed")
	cmd.Flags().StringVar(&period, "period", "all", "all, today, last_7_days or last_30_days")
	return cmd
}

func newTradeShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show every field of a trade",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			p, err := a.profile()
			if err != nil {
				return err
			}
			t, err := a.ledger.Trade(p.ID, id)
			if err != nil {
				return err
			}
			f := formFromTrade(*t)
			w := a.table()
			for _, row := range [][2]string{
				{"Time", f.Time}, {"Pair", f.Pair}, {"Side", f.Side},
				{"Size", a.money(t.Size)}, {"Leverage", f.Leverage},
				{"TP %", f.TakeProfitPct}, {"SL %", f.StopLossPct},
				{"TP amount", a.money(t.TakeProfitAmount)}, {"SL amount", a.money(t.StopLossAmount)},
				{"R:R", t.RiskReward.StringFixed(2)}, {"Status", f.Status},
				{"Outcome", f.Outcome}, {"PnL", f.PnL}, {"Closed notes", f.ClosedNotes},
				{"Notes", f.Notes}, {"Screenshot 1", f.Screenshot1}, {"Screenshot 2", f.Screenshot2},
			} {
				if row[1] != "" {
					fmt.Fprintf(w, "%s:\t%s\n", row[0], row[1])
				}
			}
			return w.Flush()
		},
	}
}
