package sizing

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"trading-journal-go/internal/models"
)

// InvalidInputError reports a calculator field that is missing, not a
// number, or out of range.
type InvalidInputError struct {
	Field  string
	Value  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func invalid(field, value, reason string) error {
	return &InvalidInputError{Field: field, Value: value, Reason: reason}
}

// Form is the raw text of a calculator surface. Amount holds the margin in
// SolveLeverage mode and the leverage in SolveMargin mode.
type Form struct {
	Entry      string
	StopLoss   string
	TakeProfit string
	Side       string
	Amount     string
	Risk       string
}

// Parse converts the form into an Input for the given mode.
func (f Form) Parse(mode Mode) (Input, error) {
	var in Input
	var err error

	if in.Entry, err = ParseNumber("entry price", f.Entry); err != nil {
		return Input{}, err
	}
	if in.StopLoss, err = ParseNumber("stop loss", f.StopLoss); err != nil {
		return Input{}, err
	}
	if in.TakeProfit, err = ParseNumber("take profit", f.TakeProfit); err != nil {
		return Input{}, err
	}
	if in.Risk, err = ParseNumber("risk amount", f.Risk); err != nil {
		return Input{}, err
	}

	amountField := "margin"
	if mode == SolveMargin {
		amountField = "leverage"
	}
	amount, err := ParseNumber(amountField, f.Amount)
	if err != nil {
		return Input{}, err
	}
	if mode == SolveMargin {
		in.Leverage = amount
	} else {
		in.Margin = amount
	}

	side := f.Side
	if strings.TrimSpace(side) == "" {
		side = string(models.Long)
	}
	if in.Side, err = models.ParseSide(side); err != nil {
		return Input{}, invalid("position", f.Side, "must be LONG or SHORT")
	}
	return in, nil
}

// ParseNumber parses a user supplied decimal. Thousands separators are
// accepted ("89,254.3"); NaN and infinities are not.
func ParseNumber(field, text string) (float64, error) {
	s := strings.ReplaceAll(strings.TrimSpace(text), ",", "")
	if s == "" {
		return 0, invalid(field, text, "value is required")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, invalid(field, text, "please enter a valid number")
	}
	return v, nil
}
