package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestParseSide(t *testing.T) {
	testCases := []struct {
		in      string
		want    Side
		wantErr bool
	}{
		{in: "LONG", want: Long},
		{in: "Long Position", want: Long},
		{in: " short ", want: Short},
		{in: "Short Position", want: Short},
		{in: "sideways", wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseSide(tc.in)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseOutcome(t *testing.T) {
	o, err := ParseOutcome("Break Even")
	assert.NoError(t, err)
	assert.Equal(t, BreakEven, o)

	o, err = ParseOutcome("win")
	assert.NoError(t, err)
	assert.Equal(t, Win, o)

	_, err = ParseOutcome("draw")
	assert.Error(t, err)
}

func TestTrade_ClosingVariant(t *testing.T) {
	tr := Trade{Status: Running}
	_, ok := tr.Closing()
	assert.False(t, ok)
	assert.True(t, tr.RealizedPnL().IsZero())

	tr.SetClosed(Closing{Outcome: Win, PnL: decimal.NewFromInt(50), PnLPct: decimal.NewFromInt(1), Notes: "hit tp"})
	c, ok := tr.Closing()
	assert.True(t, ok)
	assert.Equal(t, Win, c.Outcome)
	assert.True(t, c.PnL.Equal(decimal.NewFromInt(50)))
	assert.Equal(t, "hit tp", c.Notes)
	assert.True(t, tr.RealizedPnL().Equal(decimal.NewFromInt(50)))

	tr.SetRunning()
	assert.Equal(t, Running, tr.Status)
	assert.Nil(t, tr.Outcome)
	assert.False(t, tr.PnL.Valid)
	assert.Empty(t, tr.ClosedNotes)
}
