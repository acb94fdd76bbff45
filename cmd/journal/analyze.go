package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"trading-journal-go/internal/journal"
	"trading-journal-go/internal/models"
	"trading-journal-go/internal/sizing"
	"trading-journal-go/internal/vision"

	"github.com/spf13/cobra"
)

func newAnalyzeCmd(a *app) *cobra.Command {
	var (
		mode   string
		amount string
		risk   string
		pair   string
		prompt string
		add    bool
	)

	cmd := &cobra.Command{
		Use:   "analyze <screenshot>",
		Short: "Read trade levels off a chart screenshot",
		Long: `Send a chart screenshot to the vision model and read the entry, stop loss
and take profit levels it marks. With --amount and --risk the levels are sized
like "journal calc"; with --add the sized trade is logged.

Examples:
  journal analyze chart.png
  journal analyze chart.png --mode leverage --amount 50 --risk 25 --add`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var sizingMode sizing.Mode
			switch strings.ToLower(mode) {
			case "leverage":
				sizingMode = sizing.SolveLeverage
			case "margin":
				sizingMode = sizing.SolveMargin
			default:
				return fmt.Errorf("unknown mode %q (leverage|margin)", mode)
			}

			req, err := vision.LoadImage(args[0])
			if err != nil {
				return err
			}
			if prompt != "" {
				req.Prompt = prompt
			}
			p, err := a.profile()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			a.printf("Analyzing %s ...\n", args[0])
			task, err := a.journal.StartAnalysis(ctx, p.ID, req, nil)
			if err != nil {
				return err
			}
			res, err := task.Wait(ctx)
			if err != nil {
				return err
			}
			printAnalysis(a, res)

			if amount == "" || risk == "" {
				if add {
					return fmt.Errorf("--add needs --amount and --risk")
				}
				return nil
			}
			params := journal.Sizing{Mode: sizingMode}
			label := "margin"
			if sizingMode == sizing.SolveMargin {
				label = "leverage"
			}
			if params.Amount, err = sizing.ParseNumber(label, amount); err != nil {
				return err
			}
			if params.Risk, err = sizing.ParseNumber("risk amount", risk); err != nil {
				return err
			}
			draft, err := journal.BuildDraft(res, params)
			if err != nil {
				return err
			}
			if pair != "" {
				draft.Form.Pair = strings.ToUpper(pair)
			}

			a.printf("\n")
			printSizing(a, sizing.Input{
				Entry:      *res.EntryPrice,
				StopLoss:   *res.StopLoss,
				TakeProfit: *res.TakeProfit,
				Side:       models.Side(draft.Form.Side),
				Risk:       params.Risk,
			}, draft.Sizing)

			if !add {
				return nil
			}
			if draft.Form.Pair == "" {
				return fmt.Errorf("no pair detected on the chart, pass --pair")
			}
			t, err := a.journal.AddTrade(p.ID, draft.Form)
			if err != nil {
				return err
			}
			a.printf("\nTrade %d added: %s %s %s\n", t.ID, t.Pair, t.Side, a.money(t.Size))
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&mode, "mode", "leverage", "sizing mode: leverage (solve leverage from margin) or margin (solve margin from leverage)")
	f.StringVar(&amount, "amount", "", "margin in leverage mode, leverage in margin mode")
	f.StringVar(&risk, "risk", "", "amount to lose if the stop is hit")
	f.StringVar(&pair, "pair", "", "trading pair, overrides the one read from the chart")
	f.StringVar(&prompt, "prompt", "", "custom prompt for the model")
	f.BoolVar(&add, "add", false, "log the sized trade")
	return cmd
}

func printAnalysis(a *app, res *vision.Result) {
	a.printf("Confidence: %s\n", res.Confidence)
	if len(res.Detected) == 0 {
		a.printf("No trade levels detected.\n")
	}
	for _, d := range res.Detected {
		a.printf("  %s\n", d)
	}
	if res.Pair != "" {
		a.printf("  Pair: %s\n", res.Pair)
	}
}

// checkKey runs the minimal model call used to validate an API key.
func checkKey(ctx context.Context, a *app, key string) error {
	reply, err := a.journal.CheckAPIKey(ctx, key)
	if err != nil {
		return err
	}
	a.printf("API key works. Model replied: %s\n", strings.TrimSpace(reply))
	return nil
}
