package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Side is the direction of a position.
type Side string

const (
	Long  Side = "Long"
	Short Side = "Short"
)

// ParseSide accepts the spellings used by the calculator and the analyzer
// ("LONG", "long", "Long Position", ...).
func ParseSide(s string) (Side, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	v = strings.TrimSuffix(v, " position")
	switch v {
	case "long", "buy":
		return Long, nil
	case "short", "sell":
		return Short, nil
	}
	return "", fmt.Errorf("unknown position side %q", s)
}

// Status is the lifecycle state of a trade.
type Status string

const (
	Running Status = "Running"
	Closed  Status = "Closed"
)

// Outcome is the realized result of a closed trade.
type Outcome string

const (
	BreakEven Outcome = "BreakEven"
	Win       Outcome = "Win"
	Loss      Outcome = "Loss"
)

// ParseOutcome accepts "Break Even" as well as "BreakEven".
func ParseOutcome(s string) (Outcome, error) {
	switch strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), " ", "")) {
	case "breakeven", "be":
		return BreakEven, nil
	case "win":
		return Win, nil
	case "loss":
		return Loss, nil
	}
	return "", fmt.Errorf("unknown outcome %q", s)
}

// Closing carries the attributes that only exist once a trade is closed.
type Closing struct {
	Outcome Outcome
	PnL     decimal.Decimal
	PnLPct  decimal.Decimal
	Notes   string
}

// Trade is a journal entry owned by one profile.
type Trade struct {
	ID               uint            `gorm:"primaryKey" json:"id"`
	ProfileID        uint            `gorm:"index;not null" json:"profile_id"`
	Time             time.Time       `gorm:"index" json:"time"`
	Pair             string          `gorm:"not null" json:"pair"`
	Side             Side            `gorm:"not null" json:"position_side"`
	Size             decimal.Decimal `gorm:"type:text;not null" json:"trade_size"`
	Leverage         decimal.Decimal `gorm:"type:text" json:"leverage"`
	TakeProfitPct    decimal.Decimal `gorm:"type:text" json:"take_profit_pct"`
	StopLossPct      decimal.Decimal `gorm:"type:text" json:"stop_loss_pct"`
	TakeProfitAmount decimal.Decimal `gorm:"type:text" json:"take_profit_amount"`
	StopLossAmount   decimal.Decimal `gorm:"type:text" json:"stop_loss_amount"`
	RiskReward       decimal.Decimal `gorm:"type:text" json:"risk_reward_ratio"`
	Status           Status          `gorm:"index;not null" json:"status"`

	// Set only while Status is Closed; see Closing and SetClosed.
	Outcome     *Outcome            `json:"outcome,omitempty"`
	PnL         decimal.NullDecimal `gorm:"type:text" json:"pnl"`
	PnLPct      decimal.NullDecimal `gorm:"type:text" json:"pnl_pct"`
	ClosedNotes string              `json:"closed_notes,omitempty"`

	Notes       string    `json:"notes,omitempty"`
	Screenshot1 string    `json:"screenshot1,omitempty"`
	Screenshot2 string    `json:"screenshot2,omitempty"`
	CreatedAt   time.Time `json:"-"`
	UpdatedAt   time.Time `json:"-"`
}

// Closing returns the closed-state attributes, or false for a running trade.
func (t *Trade) Closing() (Closing, bool) {
	if t.Status != Closed || t.Outcome == nil {
		return Closing{}, false
	}
	return Closing{
		Outcome: *t.Outcome,
		PnL:     t.PnL.Decimal,
		PnLPct:  t.PnLPct.Decimal,
		Notes:   t.ClosedNotes,
	}, true
}

// SetClosed moves the trade to Closed with the given result.
func (t *Trade) SetClosed(c Closing) {
	outcome := c.Outcome
	t.Status = Closed
	t.Outcome = &outcome
	t.PnL = decimal.NewNullDecimal(c.PnL)
	t.PnLPct = decimal.NewNullDecimal(c.PnLPct)
	t.ClosedNotes = c.Notes
}

// SetRunning moves the trade to Running and clears closed-only attributes.
func (t *Trade) SetRunning() {
	t.Status = Running
	t.Outcome = nil
	t.PnL = decimal.NullDecimal{}
	t.PnLPct = decimal.NullDecimal{}
	t.ClosedNotes = ""
}

// RealizedPnL is the realized PnL of a closed trade and zero otherwise.
func (t *Trade) RealizedPnL() decimal.Decimal {
	if c, ok := t.Closing(); ok {
		return c.PnL
	}
	return decimal.Zero
}
