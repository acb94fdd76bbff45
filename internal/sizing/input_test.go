package sizing

import (
	"errors"
	"testing"

	"trading-journal-go/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForm_Parse(t *testing.T) {
	t.Run("LeverageMode", func(t *testing.T) {
		in, err := Form{Entry: "89,254.3", StopLoss: "88000", TakeProfit: "92000", Side: "long", Amount: "50", Risk: "25"}.Parse(SolveLeverage)

		require.NoError(t, err)
		assert.Equal(t, 89254.3, in.Entry)
		assert.Equal(t, models.Long, in.Side)
		assert.Equal(t, 50.0, in.Margin)
		assert.Equal(t, 0.0, in.Leverage)
	})

	t.Run("MarginMode", func(t *testing.T) {
		in, err := Form{Entry: "100", StopLoss: "105", TakeProfit: "90", Side: "SHORT", Amount: "10", Risk: "25"}.Parse(SolveMargin)

		require.NoError(t, err)
		assert.Equal(t, models.Short, in.Side)
		assert.Equal(t, 10.0, in.Leverage)
		assert.Equal(t, 0.0, in.Margin)
	})

	t.Run("DefaultsToLong", func(t *testing.T) {
		in, err := Form{Entry: "100", StopLoss: "95", TakeProfit: "110", Amount: "10", Risk: "25"}.Parse(SolveMargin)
		require.NoError(t, err)
		assert.Equal(t, models.Long, in.Side)
	})

	testCases := []struct {
		name  string
		form  Form
		field string
	}{
		{name: "non numeric entry", form: Form{Entry: "abc", StopLoss: "95", TakeProfit: "110", Amount: "10", Risk: "25"}, field: "entry price"},
		{name: "empty risk", form: Form{Entry: "100", StopLoss: "95", TakeProfit: "110", Amount: "10", Risk: " "}, field: "risk amount"},
		{name: "NaN stop", form: Form{Entry: "100", StopLoss: "NaN", TakeProfit: "110", Amount: "10", Risk: "25"}, field: "stop loss"},
		{name: "bad side", form: Form{Entry: "100", StopLoss: "95", TakeProfit: "110", Side: "flat", Amount: "10", Risk: "25"}, field: "position"},
		{name: "bad amount", form: Form{Entry: "100", StopLoss: "95", TakeProfit: "110", Amount: "ten", Risk: "25"}, field: "margin"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.form.Parse(SolveLeverage)

			var inputErr *InvalidInputError
			require.True(t, errors.As(err, &inputErr))
			assert.Equal(t, tc.field, inputErr.Field)
		})
	}
}

func TestInvalidInputError_Message(t *testing.T) {
	err := &InvalidInputError{Field: "margin", Value: "x", Reason: "please enter a valid number"}
	assert.Equal(t, `invalid margin "x": please enter a valid number`, err.Error())

	err = &InvalidInputError{Field: "margin", Reason: "must be greater than 0"}
	assert.Equal(t, "invalid margin: must be greater than 0", err.Error())
}
