package stats

import (
	"fmt"
	"strings"
	"time"

	"trading-journal-go/internal/models"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// FormatMoney renders amount in the given ISO currency, e.g. "$1,234.50".
// Unknown codes render as USD.
func FormatMoney(amount decimal.Decimal, currency string) string {
	c := money.GetCurrency(strings.ToUpper(currency))
	if c == nil {
		c = money.GetCurrency(money.USD)
	}
	cur := *c
	minor := amount.Round(int32(cur.Fraction)).Shift(int32(cur.Fraction))
	return cur.Formatter().Format(minor.IntPart())
}

func formatMoney(v float64, currency string) string {
	return FormatMoney(decimal.NewFromFloat(v), currency)
}

// Report is the exportable metric sheet of one profile.
type Report struct {
	Profile   string
	Period    Period
	Generated time.Time
	Currency  string
	Metrics   Metrics
}

// NewReport computes the metrics of the profile's trades in period.
func NewReport(p *models.Profile, trades []models.Trade, period Period, currency string, now time.Time) Report {
	return Report{
		Profile:   p.Username,
		Period:    period,
		Generated: now,
		Currency:  currency,
		Metrics:   Calculate(period.Filter(trades, now), p.Balance, p.InitialBalance(), now),
	}
}

// Markdown renders the report as a markdown document.
func (r Report) Markdown() string {
	m := r.Metrics
	usd := func(v float64) string { return formatMoney(v, r.Currency) }
	pct := func(v float64) string { return fmt.Sprintf("%.2f%%", v) }
	num := func(v float64) string { return fmt.Sprintf("%.2f", v) }

	var b strings.Builder
	fmt.Fprintf(&b, "# Trade Metrics Report: %s\n\n", r.Profile)
	fmt.Fprintf(&b, "Period: **%s**, generated %s\n\n", r.Period, r.Generated.Format("2006-01-02 15:04:05"))

	section := func(title string, rows [][2]string) {
		fmt.Fprintf(&b, "## %s\n\n| Metric | Value |\n|---|---|\n", title)
		for _, row := range rows {
			fmt.Fprintf(&b, "| %s | %s |\n", row[0], row[1])
		}
		b.WriteString("\n")
	}

	section("Returns", [][2]string{
		{"Account Balance", usd(m.AccountBalance)},
		{"Acc. Return Net $", usd(m.NetReturn)},
		{"Acc. Return Gross $", usd(m.GrossReturn)},
		{"Acc. Return %", pct(m.ReturnPct)},
		{"Daily Return $", usd(m.DailyReturn)},
		{"Return on Winners", usd(m.ReturnOnWinners)},
		{"Return on Losers", usd(m.ReturnOnLosers)},
		{"Return $ on Long", usd(m.ReturnOnLong)},
		{"Return $ on Short", usd(m.ReturnOnShort)},
		{"Biggest Profit $", usd(m.BiggestProfit)},
		{"Biggest Loss $", usd(m.BiggestLoss)},
		{"Biggest % Profit", pct(m.BiggestProfitPct)},
		{"Biggest % Loser", pct(m.BiggestLossPct)},
		{"Return/Size", num(m.ReturnPerSize)},
	})
	section("Ratios", [][2]string{
		{"Profit/Loss Ratio", num(m.ProfitLossRatio)},
		{"Profit Factor", num(m.ProfitFactor)},
		{"Trade $ Expectancy", usd(m.Expectancy)},
		{"Kelly Criterion", num(m.Kelly)},
		{"SQN", num(m.SQN)},
		{"PnL Std Dev", num(m.StdDev)},
		{"PnL Std Dev (W)", num(m.StdDevWinners)},
		{"PnL Std Dev (L)", num(m.StdDevLosers)},
	})
	section("Averages", [][2]string{
		{"Avg Return $", usd(m.AvgReturn)},
		{"Avg Return %", pct(m.AvgReturnPct)},
		{"Avg $ on Winners", usd(m.AvgWinner)},
		{"Avg $ on Losers", usd(m.AvgLoser)},
		{"Avg % on Winners", pct(m.AvgWinnerPct)},
		{"Avg % on Losers", pct(m.AvgLoserPct)},
		{"Avg % on Long", pct(m.AvgLongPct)},
		{"Avg % on Shorts", pct(m.AvgShortPct)},
	})
	section("Counts", [][2]string{
		{"Trades", fmt.Sprint(m.Trades)},
		{"Win %", pct(m.WinPct)},
		{"Loss %", pct(m.LossPct)},
		{"BE %", pct(m.BreakEvenPct)},
		{"Open %", pct(m.OpenPct)},
		{"Total Winner", fmt.Sprint(m.Winners)},
		{"Total Losers", fmt.Sprint(m.Losers)},
		{"Total BE", fmt.Sprint(m.BreakEvens)},
		{"Total Open Trades", fmt.Sprint(m.Open)},
		{"Tot. Closed Trades", fmt.Sprint(m.Closed)},
		{"Max Consec. Win", fmt.Sprint(m.MaxConsecWins)},
		{"Max Consec. Loss", fmt.Sprint(m.MaxConsecLosses)},
	})
	return b.String()
}
