package sizing

import (
	"errors"
	"math/rand"
	"testing"

	"trading-journal-go/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLeverageFor_WorkedExample(t *testing.T) {
	// Act
	res, err := LeverageFor(100, 95, 110, models.Long, 50, 25)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, SolveLeverage, res.Mode)
	assert.InDelta(t, 5.0, res.SLPct, 1e-12)
	assert.InDelta(t, 10.0, res.TPPct, 1e-12)
	assert.InDelta(t, 10.0, res.Leverage, 1e-12)
	assert.Equal(t, 50.0, res.Margin)
	assert.InDelta(t, 50.0, res.TPAmount, 1e-9)
	assert.InDelta(t, 25.0, res.SLAmount, 1e-9)
	assert.InDelta(t, 2.0, res.RiskReward, 1e-12)
	assert.False(t, res.Degenerate)
}

func TestMarginFor_WorkedExample(t *testing.T) {
	res, err := MarginFor(100, 95, 110, models.Long, 10, 25)

	require.NoError(t, err)
	assert.Equal(t, SolveMargin, res.Mode)
	assert.InDelta(t, 50.0, res.Margin, 1e-12)
	assert.Equal(t, 10.0, res.Leverage)
	assert.InDelta(t, 25.0, res.SLAmount, 1e-9)
	assert.InDelta(t, 2.0, res.RiskReward, 1e-12)
}

func TestMovements_Short(t *testing.T) {
	sl, tp := Movements(100, 105, 90, models.Short)
	assert.InDelta(t, 5.0, sl, 1e-12)
	assert.InDelta(t, 10.0, tp, 1e-12)

	res, err := LeverageFor(100, 105, 90, models.Short, 50, 25)
	require.NoError(t, err)
	assert.InDelta(t, 10.0, res.Leverage, 1e-12)
}

func TestModesAreInverse(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for i := 0; i < 500; i++ {
		entry := 0.01 + r.Float64()*100000
		dist := entry * (0.0005 + r.Float64()*0.2)
		side := models.Long
		stop, tp := entry-dist, entry+2*dist
		if i%2 == 1 {
			side = models.Short
			stop, tp = entry+dist, entry-2*dist
		}
		leverage := 1 + r.Float64()*124
		risk := 1 + r.Float64()*1000

		m, err := MarginFor(entry, stop, tp, side, leverage, risk)
		require.NoError(t, err)
		l, err := LeverageFor(entry, stop, tp, side, m.Margin, risk)
		require.NoError(t, err)

		assert.InEpsilon(t, leverage, l.Leverage, 1e-9, "case %d", i)
		assert.InEpsilon(t, risk, l.SLAmount, 1e-9, "sl amount equals risk, case %d", i)
	}
}

func TestCalculate_Validation(t *testing.T) {
	testCases := []struct {
		name  string
		mode  Mode
		in    Input
		field string
	}{
		{name: "entry equals stop", mode: SolveLeverage, in: Input{Entry: 100, StopLoss: 100, TakeProfit: 110, Side: models.Long, Margin: 50, Risk: 25}, field: "stop loss"},
		{name: "zero margin", mode: SolveLeverage, in: Input{Entry: 100, StopLoss: 95, TakeProfit: 110, Side: models.Long, Margin: 0, Risk: 25}, field: "margin"},
		{name: "negative leverage", mode: SolveMargin, in: Input{Entry: 100, StopLoss: 95, TakeProfit: 110, Side: models.Long, Leverage: -2, Risk: 25}, field: "leverage"},
		{name: "zero risk", mode: SolveMargin, in: Input{Entry: 100, StopLoss: 95, TakeProfit: 110, Side: models.Long, Leverage: 10, Risk: 0}, field: "risk amount"},
		{name: "zero entry", mode: SolveLeverage, in: Input{Entry: 0, StopLoss: 95, TakeProfit: 110, Side: models.Long, Margin: 50, Risk: 25}, field: "entry price"},
		{name: "bad side", mode: SolveLeverage, in: Input{Entry: 100, StopLoss: 95, TakeProfit: 110, Side: "Up", Margin: 50, Risk: 25}, field: "position"},
		{name: "bad mode", mode: Mode(7), in: Input{}, field: "mode"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Calculate(tc.mode, tc.in)

			var inputErr *InvalidInputError
			require.True(t, errors.As(err, &inputErr), "got %v", err)
			assert.Equal(t, tc.field, inputErr.Field)
		})
	}
}

func TestAmounts_ZeroStop(t *testing.T) {
	tp, sl, rr := Amounts(100, 5, 3, 0)
	assert.Equal(t, 15.0, tp)
	assert.Equal(t, 0.0, sl)
	assert.Equal(t, 0.0, rr)
}

func TestMoveHelpers(t *testing.T) {
	// The stand-alone calculator: lose 25 on a 5% move at 10x.
	assert.InDelta(t, 50.0, MarginForMove(10, 25, 5), 1e-12)
	assert.InDelta(t, 10.0, LeverageForMove(50, 25, 5), 1e-12)
	assert.InDelta(t, 10.0, LeverageForMove(50, 25, -5), 1e-12)
	assert.Equal(t, 0.0, MarginForMove(10, 25, 0))
	assert.Equal(t, 0.0, LeverageForMove(50, 25, 0))
}

func TestCalculate_Deterministic(t *testing.T) {
	in := Input{Entry: 89254.3, StopLoss: 88010.7, TakeProfit: 91999.9, Side: models.Long, Margin: 120, Risk: 15}
	a, err := Calculate(SolveLeverage, in)
	require.NoError(t, err)
	b, err := Calculate(SolveLeverage, in)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}
