// Package sizing converts entry, stop-loss and take-profit levels into
// position sizing figures. It solves either for leverage given a margin or
// for margin given a leverage. All functions are pure.
package sizing

import (
	"math"

	"trading-journal-go/internal/models"
)

// Mode selects which quantity the engine solves for.
type Mode int

const (
	// SolveLeverage takes a margin and returns the leverage ("Leverage Calculator").
	SolveLeverage Mode = iota
	// SolveMargin takes a leverage and returns the margin ("Margin Calculator").
	SolveMargin
)

func (m Mode) String() string {
	if m == SolveMargin {
		return "margin"
	}
	return "leverage"
}

// Input is a fully parsed calculator request. Margin is read in
// SolveLeverage mode, Leverage in SolveMargin mode.
type Input struct {
	Entry      float64
	StopLoss   float64
	TakeProfit float64
	Side       models.Side
	Margin     float64
	Leverage   float64
	Risk       float64
}

// Result holds every derived figure. Margin doubles as the trade size.
type Result struct {
	Mode       Mode
	SLPct      float64
	TPPct      float64
	Leverage   float64
	Margin     float64
	TPAmount   float64
	SLAmount   float64
	RiskReward float64
	// Degenerate is set when the stop-loss movement is zero after side
	// adjustment; Leverage or Margin is then reported as 0.
	Degenerate bool
}

// Calculate dispatches to the solver selected by mode.
func Calculate(mode Mode, in Input) (Result, error) {
	switch mode {
	case SolveLeverage:
		return LeverageFor(in.Entry, in.StopLoss, in.TakeProfit, in.Side, in.Margin, in.Risk)
	case SolveMargin:
		return MarginFor(in.Entry, in.StopLoss, in.TakeProfit, in.Side, in.Leverage, in.Risk)
	}
	return Result{}, invalid("mode", "", "unknown calculator mode")
}

// LeverageFor solves for the leverage at which a stop-out loses exactly risk
// on the given margin.
func LeverageFor(entry, stopLoss, takeProfit float64, side models.Side, margin, risk float64) (Result, error) {
	if err := validateLevels(entry, stopLoss, takeProfit, side); err != nil {
		return Result{}, err
	}
	if err := positive("margin", margin); err != nil {
		return Result{}, err
	}
	if err := positive("risk amount", risk); err != nil {
		return Result{}, err
	}

	slPct, tpPct := Movements(entry, stopLoss, takeProfit, side)
	res := Result{Mode: SolveLeverage, SLPct: slPct, TPPct: tpPct, Margin: margin}
	if slPct == 0 {
		res.Degenerate = true
	} else {
		res.Leverage = (risk / margin) / (slPct / 100)
	}
	res.TPAmount, res.SLAmount, res.RiskReward = Amounts(margin, res.Leverage, tpPct, slPct)
	return res, nil
}

// MarginFor solves for the margin that loses exactly risk at the given
// leverage when the stop is hit.
func MarginFor(entry, stopLoss, takeProfit float64, side models.Side, leverage, risk float64) (Result, error) {
	if err := validateLevels(entry, stopLoss, takeProfit, side); err != nil {
		return Result{}, err
	}
	if err := positive("leverage", leverage); err != nil {
		return Result{}, err
	}
	if err := positive("risk amount", risk); err != nil {
		return Result{}, err
	}

	slPct, tpPct := Movements(entry, stopLoss, takeProfit, side)
	res := Result{Mode: SolveMargin, SLPct: slPct, TPPct: tpPct, Leverage: leverage}
	if slPct == 0 {
		res.Degenerate = true
	} else {
		res.Margin = MarginForMove(leverage, risk, slPct)
	}
	res.TPAmount, res.SLAmount, res.RiskReward = Amounts(res.Margin, leverage, tpPct, slPct)
	return res, nil
}

// Movements returns the side-adjusted stop-loss and take-profit movements in
// percent of entry. A stop on the losing side yields a positive slPct.
func Movements(entry, stopLoss, takeProfit float64, side models.Side) (slPct, tpPct float64) {
	if side == models.Short {
		return (stopLoss - entry) / entry * 100, (entry - takeProfit) / entry * 100
	}
	return (entry - stopLoss) / entry * 100, (takeProfit - entry) / entry * 100
}

// MarginForMove is the margin at which a move of movePct percent against the
// position at the given leverage loses risk. It returns 0 for a zero move.
func MarginForMove(leverage, risk, movePct float64) float64 {
	if movePct == 0 || leverage == 0 {
		return 0
	}
	return (risk * 100) / (leverage * math.Abs(movePct))
}

// LeverageForMove is the leverage at which a move of movePct percent loses
// risk on the given margin. It returns 0 for a zero move.
func LeverageForMove(margin, risk, movePct float64) float64 {
	if movePct == 0 || margin == 0 {
		return 0
	}
	return (risk * 100) / (margin * math.Abs(movePct))
}

// Amounts converts percentage movements into currency amounts for a position
// of the given size and leverage. The ratio is 0 when slAmount is 0.
func Amounts(size, leverage, tpPct, slPct float64) (tpAmount, slAmount, rr float64) {
	tpAmount = size * leverage * tpPct / 100
	slAmount = size * leverage * slPct / 100
	if slAmount != 0 {
		rr = tpAmount / slAmount
	}
	return tpAmount, slAmount, rr
}

func validateLevels(entry, stopLoss, takeProfit float64, side models.Side) error {
	for _, f := range []struct {
		name string
		v    float64
	}{{"entry price", entry}, {"stop loss", stopLoss}, {"take profit", takeProfit}} {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return invalid(f.name, "", "must be a finite number")
		}
	}
	if entry <= 0 {
		return invalid("entry price", "", "must be greater than 0")
	}
	if entry == stopLoss {
		return invalid("stop loss", "", "must differ from the entry price")
	}
	if side != models.Long && side != models.Short {
		return invalid("position", string(side), "must be Long or Short")
	}
	return nil
}

func positive(field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return invalid(field, "", "must be a finite number")
	}
	if v <= 0 {
		return invalid(field, "", "must be greater than 0")
	}
	return nil
}
