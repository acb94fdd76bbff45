package ledger

import (
	"errors"
	"testing"

	"trading-journal-go/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTradeForm_DerivesAmounts(t *testing.T) {
	form := TradeForm{
		Time:          "2024-02-01 14:30:00",
		Pair:          "ethusdt",
		Side:          "short",
		Size:          "50",
		Leverage:      "10",
		TakeProfitPct: "10",
		StopLossPct:   "5",
	}

	tr, err := form.Trade(dec("1000"))

	require.NoError(t, err)
	assert.Equal(t, "ETHUSDT", tr.Pair)
	assert.Equal(t, models.Short, tr.Side)
	assert.Equal(t, models.Running, tr.Status)
	assert.Equal(t, "2024-02-01 14:30:00", tr.Time.Format(TimeLayout))
	assert.True(t, tr.TakeProfitAmount.Equal(dec("50")), "tp %s", tr.TakeProfitAmount)
	assert.True(t, tr.StopLossAmount.Equal(dec("25")), "sl %s", tr.StopLossAmount)
	assert.True(t, tr.RiskReward.Equal(dec("2")), "rr %s", tr.RiskReward)
}

func TestTradeForm_ExplicitAmounts(t *testing.T) {
	form := TradeForm{Pair: "SOLUSDT", Size: "1,000", TakeProfitAmount: "$30", StopLossAmount: "10"}

	tr, err := form.Trade(dec("1000"))

	require.NoError(t, err)
	assert.True(t, tr.Size.Equal(dec("1000")))
	assert.True(t, tr.Leverage.Equal(dec("1")))
	assert.Equal(t, models.Long, tr.Side)
	assert.True(t, tr.RiskReward.Equal(dec("3")))
}

func TestTradeForm_Closed(t *testing.T) {
	form := TradeForm{
		Pair: "BTCUSDT", Size: "50", Leverage: "10", TakeProfitPct: "10", StopLossPct: "5",
		Status: "Closed", Outcome: "Loss", ClosedNotes: "stopped",
	}

	tr, err := form.Trade(dec("500"))

	require.NoError(t, err)
	c, ok := tr.Closing()
	require.True(t, ok)
	assert.Equal(t, models.Loss, c.Outcome)
	assert.True(t, c.PnL.Equal(dec("-25")))
	assert.True(t, c.PnLPct.Equal(dec("-5")))
	assert.Equal(t, "stopped", c.Notes)

	form.PnL = "-12.5"
	tr, err = form.Trade(dec("500"))
	require.NoError(t, err)
	c, _ = tr.Closing()
	assert.True(t, c.PnL.Equal(dec("-12.5")))
}

func TestTradeForm_Invalid(t *testing.T) {
	testCases := []struct {
		name  string
		form  TradeForm
		field string
	}{
		{name: "size missing", form: TradeForm{Pair: "X"}, field: "trade_size"},
		{name: "size text", form: TradeForm{Pair: "X", Size: "lots"}, field: "trade_size"},
		{name: "bad time", form: TradeForm{Pair: "X", Size: "1", Time: "yesterday"}, field: "time"},
		{name: "bad side", form: TradeForm{Pair: "X", Size: "1", Side: "sideways"}, field: "position_side"},
		{name: "bad status", form: TradeForm{Pair: "X", Size: "1", Status: "Pending"}, field: "status"},
		{name: "closed without outcome", form: TradeForm{Pair: "X", Size: "1", Status: "Closed"}, field: "outcome"},
		{name: "bad tp amount", form: TradeForm{Pair: "X", Size: "1", TakeProfitAmount: "n/a"}, field: "take_profit_amount"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.form.Trade(dec("1000"))

			var ve *ValidationError
			require.True(t, errors.As(err, &ve), "got %v", err)
			assert.Equal(t, tc.field, ve.Field)
		})
	}
}
