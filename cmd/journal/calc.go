package main

import (
	"fmt"
	"math"
	"strings"

	"trading-journal-go/internal/sizing"

	"github.com/spf13/cobra"
)

func newCalcCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "calc",
		Short: "Size a position from entry, stop loss and take profit",
		Long: `Size a position from entry, stop loss and take profit levels.

Subcommands:
  leverage  - given a margin, find the leverage that risks the amount
  margin    - given a leverage, find the margin that risks the amount

Examples:
  journal calc leverage --entry 100 --sl 95 --tp 110 --margin 50 --risk 25
  journal calc margin --entry 100 --sl 105 --tp 90 --side short --leverage 10 --risk 25`,
	}
	cmd.AddCommand(
		newCalcModeCmd(a, sizing.SolveLeverage),
		newCalcModeCmd(a, sizing.SolveMargin),
	)
	return cmd
}

func newCalcModeCmd(a *app, mode sizing.Mode) *cobra.Command {
	var form sizing.Form

	cmd := &cobra.Command{
		Use:   mode.String(),
		Short: fmt.Sprintf("Solve for the %s", mode),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := form.Parse(mode)
			if err != nil {
				return err
			}
			res, err := sizing.Calculate(mode, in)
			if err != nil {
				return err
			}
			printSizing(a, in, res)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&form.Entry, "entry", "", "entry price")
	f.StringVar(&form.StopLoss, "sl", "", "stop loss price")
	f.StringVar(&form.TakeProfit, "tp", "", "take profit price")
	f.StringVar(&form.Side, "side", "long", "position side (long|short)")
	f.StringVar(&form.Risk, "risk", "", "amount to lose if the stop is hit")
	if mode == sizing.SolveMargin {
		f.StringVar(&form.Amount, "leverage", "", "leverage to trade with")
	} else {
		f.StringVar(&form.Amount, "margin", "", "margin to put up")
	}
	return cmd
}

func printSizing(a *app, in sizing.Input, res sizing.Result) {
	a.printf("Position: %s\n", strings.ToUpper(string(in.Side)))
	a.printf("Entry: %.6f\n", in.Entry)
	if res.Degenerate {
		a.printf("Stop loss movement is zero; %s cannot be solved.\n", res.Mode)
	}
	a.printf("Leverage: %.2fx\n", res.Leverage)
	a.printf("Target: %.6f (+%.2f%%)\n", in.TakeProfit, res.TPPct)
	a.printf("StopLoss: %.6f (-%.2f%%)\n", in.StopLoss, math.Abs(res.SLPct))
	a.printf("Margin: $%.2f\n", res.Margin)
	a.printf("Risk Amount: $%.2f\n", in.Risk)
	a.printf("Take Profit Amount: $%.2f\n", res.TPAmount)
	a.printf("Stop Loss Amount: $%.2f\n", res.SLAmount)
	a.printf("Risk/Reward: %.2f\n", res.RiskReward)
}
