package main

import (
	"fmt"
	"os"
	"time"

	"trading-journal-go/internal/ledger"
	"trading-journal-go/internal/stats"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
)

func newReportCmd(a *app) *cobra.Command {
	var (
		period  string
		style   string
		outFile string
		plain   bool
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Show the performance metrics of a profile",
		Long: `Show the performance metrics of a profile.

PnL based metrics use closed trades only; counts include running trades.
The report is rendered for the terminal unless --plain or --out is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			per, err := stats.ParsePeriod(period)
			if err != nil {
				return err
			}
			p, err := a.profile()
			if err != nil {
				return err
			}
			trades, err := a.ledger.Trades(p.ID, ledger.TradeFilter{})
			if err != nil {
				return err
			}
			md := stats.NewReport(p, trades, per, a.cfg.Ledger.Currency, time.Now()).Markdown()

			if outFile != "" {
				if err := os.WriteFile(outFile, []byte(md), 0o644); err != nil {
					return fmt.Errorf("failed to write report: %w", err)
				}
				a.printf("Report written to %s\n", outFile)
				return nil
			}
			if plain {
				a.printf("%s", md)
				return nil
			}

			styleOpt := glamour.WithAutoStyle()
			if style != "auto" {
				styleOpt = glamour.WithStandardStyle(style)
			}
			r, err := glamour.NewTermRenderer(styleOpt, glamour.WithWordWrap(100))
			if err != nil {
				return fmt.Errorf("failed to create renderer: %w", err)
			}
			out, err := r.Render(md)
			if err != nil {
				return fmt.Errorf("failed to render report: %w", err)
			}
			a.printf("%s", out)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&period, "period", "all", "all, today, last_7_days or last_30_days")
	f.StringVar(&style, "style", "auto", "glamour style: auto, dark, light, notty, ascii")
	f.StringVar(&outFile, "out", "", "write the markdown report to a file")
	f.BoolVar(&plain, "plain", false, "print the raw markdown")
	return cmd
}
