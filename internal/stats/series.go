package stats

import (
	"sort"
	"time"

	"trading-journal-go/internal/models"

	"github.com/shopspring/decimal"
)

// Point is one step of the cumulative PnL curve.
type Point struct {
	Time       time.Time       `json:"time"`
	TradeID    uint            `json:"trade_id"`
	PnL        decimal.Decimal `json:"pnl"`
	Cumulative decimal.Decimal `json:"cumulative"`
}

// CumulativePnL returns the running sum of realized PnL over the closed
// trades, in time order.
func CumulativePnL(trades []models.Trade) []Point {
	closed := make([]models.Trade, 0, len(trades))
	for _, t := range trades {
		if _, ok := t.Closing(); ok {
			closed = append(closed, t)
		}
	}
	sort.SliceStable(closed, func(i, j int) bool { return closed[i].Time.Before(closed[j].Time) })

	points := make([]Point, 0, len(closed))
	total := decimal.Zero
	for _, t := range closed {
		pnl := t.RealizedPnL()
		total = total.Add(pnl)
		points = append(points, Point{Time: t.Time, TradeID: t.ID, PnL: pnl, Cumulative: total})
	}
	return points
}

// CalendarEntry is a trade as shown on the calendar view.
type CalendarEntry struct {
	ID      uint            `json:"id"`
	Time    time.Time       `json:"time"`
	Pair    string          `json:"pair"`
	Side    models.Side     `json:"position_side"`
	Status  models.Status   `json:"status"`
	Outcome string          `json:"outcome"`
	PnLPct  decimal.Decimal `json:"pnl"`
}

// Day lists the trades that happened on the calendar day of date, in the
// location of date.
func Day(trades []models.Trade, date time.Time) []CalendarEntry {
	y, m, d := date.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, date.Location())
	end := start.AddDate(0, 0, 1)

	entries := []CalendarEntry{}
	for _, t := range trades {
		if t.Time.Before(start) || !t.Time.Before(end) {
			continue
		}
		e := CalendarEntry{ID: t.ID, Time: t.Time, Pair: t.Pair, Side: t.Side, Status: t.Status}
		if c, ok := t.Closing(); ok {
			e.Outcome = string(c.Outcome)
			e.PnLPct = c.PnLPct
		}
		entries = append(entries, e)
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Time.Before(entries[j].Time) })
	return entries
}

// DaySummary aggregates one calendar day of a month.
type DaySummary struct {
	Day    int             `json:"day"`
	Trades int             `json:"trades"`
	PnL    decimal.Decimal `json:"pnl"`
}

// Month summarizes every day of the given month that has at least one trade.
func Month(trades []models.Trade, year int, month time.Month, loc *time.Location) []DaySummary {
	byDay := map[int]*DaySummary{}
	for _, t := range trades {
		tt := t.Time.In(loc)
		if tt.Year() != year || tt.Month() != month {
			continue
		}
		s, ok := byDay[tt.Day()]
		if !ok {
			s = &DaySummary{Day: tt.Day()}
			byDay[tt.Day()] = s
		}
		s.Trades++
		s.PnL = s.PnL.Add(t.RealizedPnL())
	}

	out := make([]DaySummary, 0, len(byDay))
	for _, s := range byDay {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day < out[j].Day })
	return out
}
