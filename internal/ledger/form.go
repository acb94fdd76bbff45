package ledger

import (
	"strings"
	"time"

	"trading-journal-go/internal/models"
	"trading-journal-go/internal/sizing"

	"github.com/shopspring/decimal"
)

// TimeLayout is the format trade times are entered and displayed in.
const TimeLayout = "2006-01-02 15:04:05"

// TradeForm is a journal entry as typed by the user. Empty amount fields are
// derived from size, leverage and the percentages.
type TradeForm struct {
	Time             string
	Pair             string
	Side             string
	Size             string
	Leverage         string
	TakeProfitPct    string
	StopLossPct      string
	TakeProfitAmount string
	StopLossAmount   string
	Status           string
	Outcome          string
	PnL              string
	ClosedNotes      string
	Notes            string
	Screenshot1      string
	Screenshot2      string
}

// Trade converts the form into a trade. For a closed trade without an
// explicit PnL the outcome is evaluated against balance.
func (f TradeForm) Trade(balance decimal.Decimal) (models.Trade, error) {
	var t models.Trade
	var err error

	if s := strings.TrimSpace(f.Time); s != "" {
		if t.Time, err = time.ParseInLocation(TimeLayout, s, time.Local); err != nil {
			return models.Trade{}, invalid("time", "expected "+TimeLayout)
		}
	}
	t.Pair = strings.ToUpper(strings.TrimSpace(f.Pair))
	t.Side = models.Long
	if strings.TrimSpace(f.Side) != "" {
		if t.Side, err = models.ParseSide(f.Side); err != nil {
			return models.Trade{}, invalid("position_side", err.Error())
		}
	}

	fields := []struct {
		name     string
		text     string
		dst      *decimal.Decimal
		optional bool
	}{
		{"trade_size", f.Size, &t.Size, false},
		{"leverage", f.Leverage, &t.Leverage, true},
		{"take_profit_pct", f.TakeProfitPct, &t.TakeProfitPct, true},
		{"stop_loss_pct", f.StopLossPct, &t.StopLossPct, true},
		{"take_profit_amount", f.TakeProfitAmount, &t.TakeProfitAmount, true},
		{"stop_loss_amount", f.StopLossAmount, &t.StopLossAmount, true},
	}
	for _, field := range fields {
		v, err := parseDecimal(field.name, field.text, field.optional)
		if err != nil {
			return models.Trade{}, err
		}
		*field.dst = v
	}
	if t.Leverage.IsZero() {
		t.Leverage = decimal.NewFromInt(1)
	}

	size, _ := t.Size.Float64()
	lev, _ := t.Leverage.Float64()
	tpPct, _ := t.TakeProfitPct.Float64()
	slPct, _ := t.StopLossPct.Float64()
	tpAmount, slAmount, rr := sizing.Amounts(size, lev, tpPct, slPct)
	if strings.TrimSpace(f.TakeProfitAmount) == "" {
		t.TakeProfitAmount = decimal.NewFromFloat(tpAmount)
	}
	if strings.TrimSpace(f.StopLossAmount) == "" {
		t.StopLossAmount = decimal.NewFromFloat(slAmount)
	}
	if t.StopLossAmount.IsZero() {
		t.RiskReward = decimal.NewFromFloat(rr)
	} else {
		t.RiskReward = t.TakeProfitAmount.Div(t.StopLossAmount)
	}

	t.Notes = f.Notes
	t.Screenshot1 = f.Screenshot1
	t.Screenshot2 = f.Screenshot2

	switch strings.ToLower(strings.TrimSpace(f.Status)) {
	case "", "running":
		t.Status = models.Running
		return t, nil
	case "closed":
	default:
		return models.Trade{}, invalid("status", "must be Running or Closed")
	}

	outcome, err := models.ParseOutcome(f.Outcome)
	if err != nil {
		return models.Trade{}, invalid("outcome", err.Error())
	}
	var closing models.Closing
	if strings.TrimSpace(f.PnL) == "" {
		if closing, err = ComputeOutcome(t, outcome, balance); err != nil {
			return models.Trade{}, err
		}
	} else {
		pnl, err := parseDecimal("pnl", f.PnL, false)
		if err != nil {
			return models.Trade{}, err
		}
		closing = models.Closing{Outcome: outcome, PnL: pnl}
		if !balance.IsZero() {
			closing.PnLPct = pnl.Div(balance).Mul(hundred)
		}
	}
	closing.Notes = f.ClosedNotes
	t.SetClosed(closing)
	return t, nil
}

func parseDecimal(field, text string, optional bool) (decimal.Decimal, error) {
	s := strings.ReplaceAll(strings.TrimSpace(text), ",", "")
	s = strings.TrimSuffix(strings.TrimPrefix(s, "$"), "%")
	if s == "" {
		if optional {
			return decimal.Zero, nil
		}
		return decimal.Zero, invalid(field, "is required")
	}
	v, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, invalid(field, "please enter a valid number")
	}
	return v, nil
}
