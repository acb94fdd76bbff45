package ledger

import (
	"errors"
	"testing"
	"time"

	"trading-journal-go/internal/config"
	"trading-journal-go/internal/database"
	"trading-journal-go/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// newTestLedger returns a ledger on a private in-memory database.
func newTestLedger(t *testing.T, opts ...Option) *Ledger {
	t.Helper()
	db, err := database.NewDatabase(config.Database{DSN: "file::memory:"})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// One connection keeps the in-memory database alive and private to the test.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	opts = append([]Option{WithHashCost(bcrypt.MinCost)}, opts...)
	return New(db, zap.NewNop(), opts...)
}

func newProfile(t *testing.T, l *Ledger, balance string) *models.Profile {
	t.Helper()
	p, err := l.CreateProfile("trader", "secret", dec(balance))
	require.NoError(t, err)
	return p
}

func sampleTrade(size string) models.Trade {
	return models.Trade{
		Pair:             "BTCUSDT",
		Side:             models.Long,
		Size:             dec(size),
		Leverage:         dec("10"),
		TakeProfitPct:    dec("10"),
		StopLossPct:      dec("5"),
		TakeProfitAmount: dec("50"),
		StopLossAmount:   dec("25"),
		RiskReward:       dec("2"),
	}
}

// assertHistoryConsistent checks that the balance equals the last event and
// that the events are in chronological order.
func assertHistoryConsistent(t *testing.T, l *Ledger, profileID uint) *models.Profile {
	t.Helper()
	p, err := l.Profile(profileID)
	require.NoError(t, err)
	require.NotEmpty(t, p.BalanceHistory)
	last := p.BalanceHistory[len(p.BalanceHistory)-1]
	assert.True(t, p.Balance.Equal(last.Balance), "balance %s, last event %s", p.Balance, last.Balance)
	for i := 1; i < len(p.BalanceHistory); i++ {
		assert.False(t, p.BalanceHistory[i].Date.Before(p.BalanceHistory[i-1].Date), "event %d out of order", i)
	}
	return p
}

func TestOpenThenDeleteRestoresBalance(t *testing.T) {
	// Arrange
	l := newTestLedger(t)
	p := newProfile(t, l, "1000.10")

	// Act
	trade, err := l.OpenTrade(p.ID, sampleTrade("33.33"))
	require.NoError(t, err)
	afterOpen := assertHistoryConsistent(t, l, p.ID)
	require.NoError(t, l.DeleteTrade(p.ID, trade.ID))

	// Assert
	assert.True(t, afterOpen.Balance.Equal(dec("966.77")))
	final := assertHistoryConsistent(t, l, p.ID)
	assert.True(t, final.Balance.Equal(dec("1000.10")))
	require.Len(t, final.BalanceHistory, 3)
	assert.Equal(t, "Initial Balance", final.BalanceHistory[0].Action)
	assert.Equal(t, "Trade opened: BTCUSDT", final.BalanceHistory[1].Action)
	assert.Equal(t, "Trade deleted: BTCUSDT", final.BalanceHistory[2].Action)
}

func TestOpenTrade_Validation(t *testing.T) {
	l := newTestLedger(t)
	p := newProfile(t, l, "1000")

	testCases := []struct {
		name  string
		edit  func(*models.Trade)
		field string
	}{
		{name: "zero size", edit: func(tr *models.Trade) { tr.Size = decimal.Zero }, field: "trade_size"},
		{name: "negative size", edit: func(tr *models.Trade) { tr.Size = dec("-1") }, field: "trade_size"},
		{name: "missing pair", edit: func(tr *models.Trade) { tr.Pair = "  " }, field: "pair"},
		{name: "bad side", edit: func(tr *models.Trade) { tr.Side = "Up" }, field: "position_side"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tr := sampleTrade("10")
			tc.edit(&tr)

			_, err := l.OpenTrade(p.ID, tr)

			var ve *ValidationError
			require.True(t, errors.As(err, &ve), "got %v", err)
			assert.Equal(t, tc.field, ve.Field)
		})
	}

	// No state changed.
	after := assertHistoryConsistent(t, l, p.ID)
	assert.True(t, after.Balance.Equal(dec("1000")))
	assert.Len(t, after.BalanceHistory, 1)
}

func TestOpenTrade_ForcesRunning(t *testing.T) {
	l := newTestLedger(t)
	p := newProfile(t, l, "1000")

	tr := sampleTrade("10")
	tr.SetClosed(models.Closing{Outcome: models.Win, PnL: dec("50")})
	opened, err := l.OpenTrade(p.ID, tr)

	require.NoError(t, err)
	assert.Equal(t, models.Running, opened.Status)
	_, closed := opened.Closing()
	assert.False(t, closed)
	assert.False(t, opened.Time.IsZero())
}

func TestOpenTrade_UnknownProfile(t *testing.T) {
	l := newTestLedger(t)

	_, err := l.OpenTrade(42, sampleTrade("10"))

	var nf *NotFoundError
	require.True(t, errors.As(err, &nf), "got %v", err)
	assert.Equal(t, "profile", nf.Kind)
	assert.Equal(t, uint(42), nf.ID)
}

func TestCloseTrade(t *testing.T) {
	testCases := []struct {
		name        string
		outcome     models.Outcome
		wantPnL     string
		wantBalance string
	}{
		// Stake stays debited; only the PnL is credited.
		{name: "break even does not credit", outcome: models.BreakEven, wantPnL: "0", wantBalance: "900"},
		{name: "win credits take profit amount", outcome: models.Win, wantPnL: "50", wantBalance: "950"},
		{name: "loss debits stop loss amount", outcome: models.Loss, wantPnL: "-25", wantBalance: "875"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// Arrange
			l := newTestLedger(t)
			p := newProfile(t, l, "1000")
			opened, err := l.OpenTrade(p.ID, sampleTrade("100"))
			require.NoError(t, err)

			// Act
			closed, err := l.CloseTrade(p.ID, opened.ID, tc.outcome, "done")

			// Assert
			require.NoError(t, err)
			c, ok := closed.Closing()
			require.True(t, ok)
			assert.Equal(t, tc.outcome, c.Outcome)
			assert.True(t, c.PnL.Equal(dec(tc.wantPnL)), "pnl %s", c.PnL)
			assert.Equal(t, "done", c.Notes)

			after := assertHistoryConsistent(t, l, p.ID)
			assert.True(t, after.Balance.Equal(dec(tc.wantBalance)), "balance %s", after.Balance)
			assert.Equal(t, "Trade updated: BTCUSDT", after.BalanceHistory[len(after.BalanceHistory)-1].Action)
		})
	}
}

func TestCloseTrade_PnLPercentUsesCurrentBalance(t *testing.T) {
	l := newTestLedger(t)
	p := newProfile(t, l, "1100")
	opened, err := l.OpenTrade(p.ID, sampleTrade("100"))
	require.NoError(t, err)

	closed, err := l.CloseTrade(p.ID, opened.ID, models.Win, "")

	require.NoError(t, err)
	c, _ := closed.Closing()
	// 50 / 1000 * 100
	assert.True(t, c.PnLPct.Equal(dec("5")), "pnl pct %s", c.PnLPct)
}

func TestCloseTrade_ReturnStakeOnClose(t *testing.T) {
	l := newTestLedger(t, WithStakeReturnOnClose(true))
	p := newProfile(t, l, "1000")
	opened, err := l.OpenTrade(p.ID, sampleTrade("100"))
	require.NoError(t, err)

	_, err = l.CloseTrade(p.ID, opened.ID, models.Win, "")

	require.NoError(t, err)
	after := assertHistoryConsistent(t, l, p.ID)
	assert.True(t, after.Balance.Equal(dec("1050")), "balance %s", after.Balance)
}

func TestUpdateTrade_RunningToRunningDebitsDifference(t *testing.T) {
	// Arrange
	l := newTestLedger(t)
	p := newProfile(t, l, "1000")
	opened, err := l.OpenTrade(p.ID, sampleTrade("100"))
	require.NoError(t, err)

	// Act
	next := *opened
	next.Size = dec("150")
	next.Notes = "scaled in"
	updated, err := l.UpdateTrade(p.ID, opened.ID, next)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "scaled in", updated.Notes)
	after := assertHistoryConsistent(t, l, p.ID)
	assert.True(t, after.Balance.Equal(dec("850")), "balance %s", after.Balance)
	require.Len(t, after.BalanceHistory, 3)
	assert.Equal(t, "Trade updated: BTCUSDT", after.BalanceHistory[2].Action)

	stored, err := l.Trade(p.ID, opened.ID)
	require.NoError(t, err)
	assert.True(t, stored.Size.Equal(dec("150")))
}

func TestUpdateTrade_UnchangedStillLogsOneEvent(t *testing.T) {
	l := newTestLedger(t)
	p := newProfile(t, l, "1000")
	opened, err := l.OpenTrade(p.ID, sampleTrade("100"))
	require.NoError(t, err)

	_, err = l.UpdateTrade(p.ID, opened.ID, *opened)

	require.NoError(t, err)
	after := assertHistoryConsistent(t, l, p.ID)
	assert.True(t, after.Balance.Equal(dec("900")))
	assert.Len(t, after.BalanceHistory, 3)
}

func TestUpdateTrade_RunningToClosedCreditsPnL(t *testing.T) {
	l := newTestLedger(t)
	p := newProfile(t, l, "1000")
	opened, err := l.OpenTrade(p.ID, sampleTrade("100"))
	require.NoError(t, err)

	next := *opened
	next.SetClosed(models.Closing{Outcome: models.Win, PnL: dec("42.5"), PnLPct: dec("4.72")})
	_, err = l.UpdateTrade(p.ID, opened.ID, next)

	require.NoError(t, err)
	after := assertHistoryConsistent(t, l, p.ID)
	assert.True(t, after.Balance.Equal(dec("942.5")), "balance %s", after.Balance)
}

func TestUpdateTrade_ClosedToClosedCreditsDifference(t *testing.T) {
	// Arrange
	l := newTestLedger(t)
	p := newProfile(t, l, "1000")
	opened, err := l.OpenTrade(p.ID, sampleTrade("100"))
	require.NoError(t, err)
	closed, err := l.CloseTrade(p.ID, opened.ID, models.Win, "")
	require.NoError(t, err)

	// Act: the win turns out to be a loss
	next := *closed
	next.SetClosed(models.Closing{Outcome: models.Loss, PnL: dec("-25"), PnLPct: dec("-2.63")})
	_, err = l.UpdateTrade(p.ID, closed.ID, next)

	// Assert: 900 + 50 - 50 - 25
	require.NoError(t, err)
	after := assertHistoryConsistent(t, l, p.ID)
	assert.True(t, after.Balance.Equal(dec("875")), "balance %s", after.Balance)
}

func TestUpdateTrade_ClosedCannotReopen(t *testing.T) {
	l := newTestLedger(t)
	p := newProfile(t, l, "1000")
	opened, err := l.OpenTrade(p.ID, sampleTrade("100"))
	require.NoError(t, err)
	closed, err := l.CloseTrade(p.ID, opened.ID, models.Win, "")
	require.NoError(t, err)
	before := assertHistoryConsistent(t, l, p.ID)

	next := *closed
	next.SetRunning()
	_, err = l.UpdateTrade(p.ID, closed.ID, next)

	assert.ErrorIs(t, err, ErrInvalidTransition)
	after := assertHistoryConsistent(t, l, p.ID)
	assert.True(t, before.Balance.Equal(after.Balance))
	assert.Len(t, after.BalanceHistory, len(before.BalanceHistory))
}

func TestUpdateTrade_ClosedWithoutOutcome(t *testing.T) {
	l := newTestLedger(t)
	p := newProfile(t, l, "1000")
	opened, err := l.OpenTrade(p.ID, sampleTrade("100"))
	require.NoError(t, err)

	next := *opened
	next.Status = models.Closed
	_, err = l.UpdateTrade(p.ID, opened.ID, next)

	var ve *ValidationError
	require.True(t, errors.As(err, &ve), "got %v", err)
	assert.Equal(t, "outcome", ve.Field)
}

func TestDeleteClosedTradeKeepsBalance(t *testing.T) {
	l := newTestLedger(t)
	p := newProfile(t, l, "1000")
	opened, err := l.OpenTrade(p.ID, sampleTrade("100"))
	require.NoError(t, err)
	_, err = l.CloseTrade(p.ID, opened.ID, models.Win, "")
	require.NoError(t, err)
	before := assertHistoryConsistent(t, l, p.ID)

	require.NoError(t, l.DeleteTrade(p.ID, opened.ID))

	after := assertHistoryConsistent(t, l, p.ID)
	assert.True(t, after.Balance.Equal(dec("950")))
	assert.Len(t, after.BalanceHistory, len(before.BalanceHistory))

	_, err = l.Trade(p.ID, opened.ID)
	var nf *NotFoundError
	assert.True(t, errors.As(err, &nf))
}

func TestDeleteTrade_OtherProfile(t *testing.T) {
	l := newTestLedger(t)
	p := newProfile(t, l, "1000")
	other, err := l.CreateProfile("other", "pw", dec("500"))
	require.NoError(t, err)
	opened, err := l.OpenTrade(p.ID, sampleTrade("100"))
	require.NoError(t, err)

	err = l.DeleteTrade(other.ID, opened.ID)

	var nf *NotFoundError
	require.True(t, errors.As(err, &nf), "got %v", err)
	assert.Equal(t, "trade", nf.Kind)
}

func TestBalanceMatchesHistoryAcrossLifecycle(t *testing.T) {
	l := newTestLedger(t)
	p := newProfile(t, l, "5000")

	var ids []uint
	for i := 0; i < 5; i++ {
		tr, err := l.OpenTrade(p.ID, sampleTrade("100"))
		require.NoError(t, err)
		ids = append(ids, tr.ID)
		assertHistoryConsistent(t, l, p.ID)
	}
	_, err := l.CloseTrade(p.ID, ids[0], models.Win, "")
	require.NoError(t, err)
	_, err = l.CloseTrade(p.ID, ids[1], models.Loss, "")
	require.NoError(t, err)
	_, err = l.CloseTrade(p.ID, ids[2], models.BreakEven, "")
	require.NoError(t, err)
	require.NoError(t, l.DeleteTrade(p.ID, ids[3]))
	_, err = l.Deposit(p.ID, dec("10"))
	require.NoError(t, err)

	final := assertHistoryConsistent(t, l, p.ID)
	// 5000 - 500 + 50 - 25 + 0 + 100 + 10
	assert.True(t, final.Balance.Equal(dec("4635")), "balance %s", final.Balance)

	// The balance equals the initial balance plus the sum of all deltas.
	sum := decimal.Zero
	for i := 1; i < len(final.BalanceHistory); i++ {
		sum = sum.Add(final.BalanceHistory[i].Balance.Sub(final.BalanceHistory[i-1].Balance))
	}
	assert.True(t, final.InitialBalance().Add(sum).Equal(final.Balance))
}

func TestHistoryStaysMonotonicWhenClockStepsBack(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	l := newTestLedger(t, WithClock(clock))
	p := newProfile(t, l, "1000")

	now = now.Add(-time.Hour)
	_, err := l.Deposit(p.ID, dec("1"))
	require.NoError(t, err)

	assertHistoryConsistent(t, l, p.ID)
}

func TestTrades_Filter(t *testing.T) {
	l := newTestLedger(t)
	p := newProfile(t, l, "1000")
	day := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		tr := sampleTrade("10")
		tr.Time = day.Add(time.Duration(i) * 24 * time.Hour)
		_, err := l.OpenTrade(p.ID, tr)
		require.NoError(t, err)
	}
	trades, err := l.Trades(p.ID, TradeFilter{})
	require.NoError(t, err)
	require.Len(t, trades, 3)
	_, err = l.CloseTrade(p.ID, trades[0].ID, models.Win, "")
	require.NoError(t, err)

	closed, err := l.Trades(p.ID, TradeFilter{Status: models.Closed})
	require.NoError(t, err)
	assert.Len(t, closed, 1)

	window, err := l.Trades(p.ID, TradeFilter{From: day.Add(24 * time.Hour), To: day.Add(48 * time.Hour)})
	require.NoError(t, err)
	require.Len(t, window, 1)
	assert.Equal(t, trades[1].ID, window[0].ID)
}

func TestComputeOutcome(t *testing.T) {
	tr := sampleTrade("100")

	testCases := []struct {
		name    string
		outcome models.Outcome
		balance string
		pnl     string
		pct     string
	}{
		{name: "break even", outcome: models.BreakEven, balance: "1000", pnl: "0", pct: "0"},
		{name: "win", outcome: models.Win, balance: "1000", pnl: "50", pct: "5"},
		{name: "loss", outcome: models.Loss, balance: "500", pnl: "-25", pct: "-5"},
		{name: "break even on empty balance", outcome: models.BreakEven, balance: "0", pnl: "0", pct: "0"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c, err := ComputeOutcome(tr, tc.outcome, dec(tc.balance))

			require.NoError(t, err)
			assert.True(t, c.PnL.Equal(dec(tc.pnl)), "pnl %s", c.PnL)
			assert.True(t, c.PnLPct.Equal(dec(tc.pct)), "pct %s", c.PnLPct)
		})
	}

	t.Run("loss with a negative stop amount still debits", func(t *testing.T) {
		negative := sampleTrade("100")
		negative.StopLossAmount = dec("-25")

		c, err := ComputeOutcome(negative, models.Loss, dec("500"))

		require.NoError(t, err)
		assert.True(t, c.PnL.Equal(dec("-25")), "pnl %s", c.PnL)
		assert.True(t, c.PnLPct.Equal(dec("-5")), "pct %s", c.PnLPct)
	})

	t.Run("zero balance", func(t *testing.T) {
		_, err := ComputeOutcome(tr, models.Win, decimal.Zero)
		var ve *ValidationError
		assert.True(t, errors.As(err, &ve))
	})

	t.Run("unknown outcome", func(t *testing.T) {
		_, err := ComputeOutcome(tr, models.Outcome("Draw"), dec("1000"))
		var ve *ValidationError
		assert.True(t, errors.As(err, &ve))
	})
}

// failEventWrites makes every later balance event insert fail.
func failEventWrites(t *testing.T, l *Ledger) {
	t.Helper()
	require.NoError(t, l.db.Exec(`CREATE TRIGGER fail_events BEFORE INSERT ON balance_events
BEGIN SELECT RAISE(ABORT, 'disk full'); END`).Error)
}

func TestWriteFailureLeavesStateUntouched(t *testing.T) {
	testCases := []struct {
		name string
		act  func(l *Ledger, p *models.Profile, running *models.Trade) error
	}{
		{
			name: "open trade",
			act: func(l *Ledger, p *models.Profile, _ *models.Trade) error {
				_, err := l.OpenTrade(p.ID, sampleTrade("100"))
				return err
			},
		},
		{
			name: "close trade",
			act: func(l *Ledger, p *models.Profile, running *models.Trade) error {
				_, err := l.CloseTrade(p.ID, running.ID, models.Win, "")
				return err
			},
		},
		{
			name: "delete running trade",
			act: func(l *Ledger, p *models.Profile, running *models.Trade) error {
				return l.DeleteTrade(p.ID, running.ID)
			},
		},
		{
			name: "deposit",
			act: func(l *Ledger, p *models.Profile, _ *models.Trade) error {
				_, err := l.Deposit(p.ID, dec("50"))
				return err
			},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// Arrange
			l := newTestLedger(t)
			p := newProfile(t, l, "1000")
			running, err := l.OpenTrade(p.ID, sampleTrade("40"))
			require.NoError(t, err)
			before, err := l.Profile(p.ID)
			require.NoError(t, err)
			tradesBefore, err := l.Trades(p.ID, TradeFilter{})
			require.NoError(t, err)
			failEventWrites(t, l)

			// Act
			err = tc.act(l, p, running)

			// Assert
			var pe *PersistenceError
			require.True(t, errors.As(err, &pe), "got %v", err)
			assert.ErrorContains(t, err, "disk full")

			after, err := l.Profile(p.ID)
			require.NoError(t, err)
			assert.True(t, before.Balance.Equal(after.Balance), "balance %s, want %s", after.Balance, before.Balance)
			assert.Len(t, after.BalanceHistory, len(before.BalanceHistory))

			tradesAfter, err := l.Trades(p.ID, TradeFilter{})
			require.NoError(t, err)
			require.Len(t, tradesAfter, len(tradesBefore))
			assert.Equal(t, models.Running, tradesAfter[0].Status)
		})
	}
}
