// Package stats computes the dashboard figures of a trade journal.
//
// PnL-derived metrics only ever look at Closed trades; a Running trade has
// no realized PnL and must not leak into sums or averages. Count-based
// metrics (trades, win %, open %) use every trade in the period.
package stats

import (
	"fmt"
	"math"
	"sort"
	"time"

	"trading-journal-go/internal/models"

	"github.com/shopspring/decimal"
)

// Period selects the trades a report covers.
type Period string

const (
	AllTime    Period = "all"
	Today      Period = "today"
	Last7Days  Period = "last_7_days"
	Last30Days Period = "last_30_days"
)

// ParsePeriod accepts the period names used by the dashboard filter. An
// empty string means AllTime.
func ParsePeriod(s string) (Period, error) {
	switch p := Period(s); p {
	case "":
		return AllTime, nil
	case AllTime, Today, Last7Days, Last30Days:
		return p, nil
	}
	return "", fmt.Errorf("unknown period %q", s)
}

// Since returns the earliest trade time included in the period, or the zero
// time for AllTime.
func (p Period) Since(now time.Time) time.Time {
	switch p {
	case Today:
		y, m, d := now.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	case Last7Days:
		return now.AddDate(0, 0, -7)
	case Last30Days:
		return now.AddDate(0, 0, -30)
	}
	return time.Time{}
}

// Filter keeps the trades whose time falls in the period.
func (p Period) Filter(trades []models.Trade, now time.Time) []models.Trade {
	since := p.Since(now)
	if since.IsZero() {
		return trades
	}
	out := make([]models.Trade, 0, len(trades))
	for _, t := range trades {
		if !t.Time.Before(since) {
			out = append(out, t)
		}
	}
	return out
}

// Metrics is the full metric sheet of a set of trades.
type Metrics struct {
	AccountBalance   float64 `json:"account_balance"`
	InitialBalance   float64 `json:"initial_balance"`
	NetReturn        float64 `json:"acc_return_net"`
	GrossReturn      float64 `json:"acc_return_gross"`
	ReturnPct        float64 `json:"acc_return_pct"`
	DailyReturn      float64 `json:"daily_return"`
	ReturnOnWinners  float64 `json:"return_on_winners"`
	ReturnOnLosers   float64 `json:"return_on_losers"`
	ReturnOnLong     float64 `json:"return_on_long"`
	ReturnOnShort    float64 `json:"return_on_short"`
	BiggestProfit    float64 `json:"biggest_profit"`
	BiggestLoss      float64 `json:"biggest_loss"`
	BiggestProfitPct float64 `json:"biggest_profit_pct"`
	BiggestLossPct   float64 `json:"biggest_loss_pct"`
	ProfitLossRatio  float64 `json:"profit_loss_ratio"`
	ProfitFactor     float64 `json:"profit_factor"`
	Expectancy       float64 `json:"expectancy"`
	Kelly            float64 `json:"kelly_criterion"`
	ReturnPerSize    float64 `json:"return_per_size"`

	AvgReturnPct     float64 `json:"avg_return_pct"`
	AvgReturn        float64 `json:"avg_return"`
	AvgWinner        float64 `json:"avg_winner"`
	AvgLoser         float64 `json:"avg_loser"`
	AvgWinnerPct     float64 `json:"avg_winner_pct"`
	AvgLoserPct      float64 `json:"avg_loser_pct"`
	AvgLongPct       float64 `json:"avg_long_pct"`
	AvgShortPct      float64 `json:"avg_short_pct"`
	StdDev           float64 `json:"pnl_std_dev"`
	StdDevWinners    float64 `json:"pnl_std_dev_winners"`
	StdDevLosers     float64 `json:"pnl_std_dev_losers"`
	SQN              float64 `json:"sqn"`
	MaxConsecWins    int     `json:"max_consec_wins"`
	MaxConsecLosses  int     `json:"max_consec_losses"`

	WinPct       float64 `json:"win_pct"`
	LossPct      float64 `json:"loss_pct"`
	BreakEvenPct float64 `json:"be_pct"`
	OpenPct      float64 `json:"open_pct"`
	Trades       int     `json:"trades"`
	Winners      int     `json:"total_winners"`
	Losers       int     `json:"total_losers"`
	BreakEvens   int     `json:"total_be"`
	Open         int     `json:"total_open"`
	Closed       int     `json:"total_closed"`
}

type closedTrade struct {
	time    time.Time
	side    models.Side
	outcome models.Outcome
	size    float64
	pnl     float64
	pnlPct  float64
}

// Calculate builds the metric sheet. Percentage returns are relative to
// initialBalance; now decides what "today" is.
func Calculate(trades []models.Trade, currentBalance, initialBalance decimal.Decimal, now time.Time) Metrics {
	m := Metrics{
		AccountBalance: currentBalance.InexactFloat64(),
		InitialBalance: initialBalance.InexactFloat64(),
		Trades:         len(trades),
	}
	if len(trades) == 0 {
		return m
	}

	closed := make([]closedTrade, 0, len(trades))
	for _, t := range trades {
		if t.Status == models.Running {
			m.Open++
		}
		c, ok := t.Closing()
		if !ok {
			continue
		}
		m.Closed++
		switch c.Outcome {
		case models.Win:
			m.Winners++
		case models.Loss:
			m.Losers++
		case models.BreakEven:
			m.BreakEvens++
		}
		closed = append(closed, closedTrade{
			time:    t.Time,
			side:    t.Side,
			outcome: c.Outcome,
			size:    t.Size.InexactFloat64(),
			pnl:     c.PnL.InexactFloat64(),
			pnlPct:  c.PnLPct.InexactFloat64(),
		})
	}
	sort.SliceStable(closed, func(i, j int) bool { return closed[i].time.Before(closed[j].time) })

	n := float64(len(trades))
	m.WinPct = float64(m.Winners) / n * 100
	m.LossPct = float64(m.Losers) / n * 100
	m.BreakEvenPct = float64(m.BreakEvens) / n * 100
	m.OpenPct = float64(m.Open) / n * 100

	if len(closed) == 0 {
		return m
	}

	var all, allPct, winners, winnersPct, losers, losersPct, longPct, shortPct []float64
	var totalSize float64
	today := Today.Since(now)
	for _, c := range closed {
		all = append(all, c.pnl)
		allPct = append(allPct, c.pnlPct)
		totalSize += c.size
		m.NetReturn += c.pnl
		m.GrossReturn += math.Abs(c.pnl)

		if !c.time.Before(today) && c.time.Before(today.AddDate(0, 0, 1)) {
			m.DailyReturn += c.pnl
		}
		switch c.outcome {
		case models.Win:
			winners = append(winners, c.pnl)
			winnersPct = append(winnersPct, c.pnlPct)
			m.ReturnOnWinners += c.pnl
		case models.Loss:
			losers = append(losers, c.pnl)
			losersPct = append(losersPct, c.pnlPct)
			m.ReturnOnLosers += c.pnl
		}
		if c.side == models.Short {
			m.ReturnOnShort += c.pnl
			shortPct = append(shortPct, c.pnlPct)
		} else {
			m.ReturnOnLong += c.pnl
			longPct = append(longPct, c.pnlPct)
		}

		m.BiggestProfit = math.Max(m.BiggestProfit, c.pnl)
		m.BiggestLoss = math.Min(m.BiggestLoss, c.pnl)
		m.BiggestProfitPct = math.Max(m.BiggestProfitPct, c.pnlPct)
		m.BiggestLossPct = math.Min(m.BiggestLossPct, c.pnlPct)
	}
	m.DailyReturn = round2(m.DailyReturn)

	if m.ReturnOnLosers != 0 {
		m.ProfitLossRatio = math.Abs(m.ReturnOnWinners) / math.Abs(m.ReturnOnLosers)
		m.ProfitFactor = m.ReturnOnWinners / math.Abs(m.ReturnOnLosers)
	}
	if m.ProfitLossRatio != 0 {
		m.Kelly = (m.WinPct/100*(m.ProfitLossRatio+1) - 1) / m.ProfitLossRatio
	}
	if m.InitialBalance != 0 {
		m.ReturnPct = m.NetReturn / m.InitialBalance * 100
	}
	if totalSize != 0 {
		m.ReturnPerSize = m.NetReturn / totalSize
	}

	m.Expectancy = mean(all)
	m.AvgReturn = m.Expectancy
	m.AvgReturnPct = mean(allPct)
	m.AvgWinner = mean(winners)
	m.AvgLoser = mean(losers)
	m.AvgWinnerPct = mean(winnersPct)
	m.AvgLoserPct = mean(losersPct)
	m.AvgLongPct = mean(longPct)
	m.AvgShortPct = mean(shortPct)

	m.StdDev = stdDev(all)
	m.StdDevWinners = stdDev(winners)
	m.StdDevLosers = stdDev(losers)
	if m.StdDev != 0 {
		m.SQN = m.AvgReturn / m.StdDev * math.Sqrt(float64(m.Closed))
	}

	m.MaxConsecWins = longestRun(all, func(v float64) bool { return v > 0 })
	m.MaxConsecLosses = longestRun(all, func(v float64) bool { return v < 0 })
	return m
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// stdDev is the sample standard deviation; fewer than two values give 0.
func stdDev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	mu := mean(xs)
	var ss float64
	for _, x := range xs {
		ss += (x - mu) * (x - mu)
	}
	return math.Sqrt(ss / float64(len(xs)-1))
}

func longestRun(xs []float64, match func(float64) bool) int {
	best, run := 0, 0
	for _, x := range xs {
		if match(x) {
			run++
			best = max(best, run)
		} else {
			run = 0
		}
	}
	return best
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
