package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"trading-journal-go/internal/config"
	"trading-journal-go/internal/database"
	"trading-journal-go/internal/journal"
	"trading-journal-go/internal/ledger"
	"trading-journal-go/internal/logger"
	"trading-journal-go/internal/models"
	"trading-journal-go/internal/stats"
	"trading-journal-go/internal/vision"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

// app holds what the subcommands share. It is opened lazily so that
// commands like calc run without touching the database.
type app struct {
	configDir string
	profileID uint
	out       io.Writer

	cfg     config.Config
	log     *zap.Logger
	ledger  *ledger.Ledger
	journal *journal.Service
}

func newRootCmd(out io.Writer) *cobra.Command {
	a := &app{out: out}

	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Trading journal with position sizing and chart analysis",
		Long: `Journal keeps a ledger of trading profiles, their balances and trades.

It provides tools for:
  - Sizing positions from entry, stop loss and take profit levels
  - Logging, closing and editing trades with an audited balance history
  - Reading trade levels off chart screenshots with a vision model
  - Reporting performance metrics`,
		SilenceUsage: true,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}
	cmd.SetOut(out)
	cmd.PersistentFlags().StringVar(&a.configDir, "config", "./configs", "directory containing config.yml")
	cmd.PersistentFlags().UintVar(&a.profileID, "profile", 0, "profile id to act on (default: the active profile)")

	cmd.AddCommand(
		newCalcCmd(a),
		newProfileCmd(a),
		newTradeCmd(a),
		newBalanceCmd(a),
		newAnalyzeCmd(a),
		newReportCmd(a),
		newAPIKeyCmd(a),
	)
	return cmd
}

// open loads the configuration and wires the ledger and journal service.
func (a *app) open() error {
	if a.journal != nil {
		return nil
	}

	cfg, err := config.LoadConfig(a.configDir)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	log, err := logger.NewLogger(cfg.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	db, err := database.NewDatabase(cfg.Database)
	if err != nil {
		return err
	}

	l := ledger.New(db, log, ledger.WithStakeReturnOnClose(cfg.Ledger.ReturnStakeOnClose))
	if _, err := l.EnsureDefaultProfile(cfg.Ledger.DefaultUsername, cfg.Ledger.DefaultPassword,
		decimal.NewFromFloat(cfg.Ledger.DefaultBalance)); err != nil {
		return err
	}
	analyzer, err := vision.New(cfg.Vision, log)
	if err != nil {
		return err
	}

	a.cfg, a.log, a.ledger = cfg, log, l
	a.journal = journal.NewService(l, analyzer, log)
	return nil
}

// profile returns the profile selected by --profile, or the active one.
func (a *app) profile() (*models.Profile, error) {
	if err := a.open(); err != nil {
		return nil, err
	}
	if a.profileID != 0 {
		return a.ledger.Profile(a.profileID)
	}
	return a.ledger.ActiveProfile()
}

func (a *app) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

func (a *app) money(d decimal.Decimal) string {
	return stats.FormatMoney(d, a.cfg.Ledger.Currency)
}

// table returns a writer that aligns tab separated columns; call Flush.
func (a *app) table() *tabwriter.Writer {
	return tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
}
