package journal

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"trading-journal-go/internal/ledger"
	"trading-journal-go/internal/models"
	"trading-journal-go/internal/sizing"
	"trading-journal-go/internal/vision"
)

// minStopMove is the smallest stop-loss movement, in percent, a draft accepts.
const minStopMove = 0.001

// ErrIncompleteAnalysis is returned when the analysis lacks a level the
// sizing engine needs.
var ErrIncompleteAnalysis = errors.New("analysis is missing required values, input them manually")

// Sizing holds the user's inputs for turning an analysis into a position.
// Amount is the margin in SolveLeverage mode and the leverage in SolveMargin
// mode.
type Sizing struct {
	Mode   sizing.Mode
	Amount float64
	Risk   float64
}

// Draft is a sized trade ready to be reviewed and added to the journal.
type Draft struct {
	Analysis *vision.Result
	Sizing   sizing.Result
	Form     ledger.TradeForm
}

// BuildDraft sizes the levels read from a chart and fills a trade form with
// them. A missing side is taken as Long.
func BuildDraft(res *vision.Result, params Sizing) (*Draft, error) {
	if res == nil || res.EntryPrice == nil || res.StopLoss == nil || res.TakeProfit == nil {
		return nil, ErrIncompleteAnalysis
	}
	entry, sl, tp := *res.EntryPrice, *res.StopLoss, *res.TakeProfit
	if entry <= 0 || sl <= 0 || tp <= 0 {
		return nil, &sizing.InvalidInputError{Field: "price", Reason: "all detected prices must be greater than 0"}
	}
	side := res.Side
	if side == "" {
		side = models.Long
	}

	slPct, _ := sizing.Movements(entry, sl, tp, side)
	if math.Abs(slPct) < minStopMove {
		return nil, &sizing.InvalidInputError{
			Field:  "stop loss",
			Value:  fmt.Sprintf("%g", sl),
			Reason: fmt.Sprintf("too close to entry %g (< %g%%)", entry, minStopMove),
		}
	}

	in := sizing.Input{Entry: entry, StopLoss: sl, TakeProfit: tp, Side: side, Risk: params.Risk}
	if params.Mode == sizing.SolveMargin {
		in.Leverage = params.Amount
	} else {
		in.Margin = params.Amount
	}
	out, err := sizing.Calculate(params.Mode, in)
	if err != nil {
		return nil, err
	}

	form := ledger.TradeForm{
		Pair:          strings.ToUpper(res.Pair),
		Side:          string(side),
		Size:          fmt.Sprintf("%.2f", out.Margin),
		Leverage:      fmt.Sprintf("%.2f", out.Leverage),
		TakeProfitPct: fmt.Sprintf("%.2f", out.TPPct),
		StopLossPct:   fmt.Sprintf("%.2f", math.Abs(out.SLPct)),
		Status:        string(models.Running),
	}
	return &Draft{Analysis: res, Sizing: out, Form: form}, nil
}
