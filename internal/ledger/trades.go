package ledger

import (
	"strings"
	"time"

	"trading-journal-go/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var hundred = decimal.NewFromInt(100)

// TradeFilter narrows Trades. Zero values match everything.
type TradeFilter struct {
	Status models.Status
	From   time.Time
	To     time.Time
}

// OpenTrade stores a new Running trade and debits its size from the profile.
func (l *Ledger) OpenTrade(profileID uint, t models.Trade) (*models.Trade, error) {
	if err := validateTrade(&t); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	t.ID = 0
	t.ProfileID = profileID
	t.SetRunning()
	if t.Time.IsZero() {
		t.Time = l.now()
	}

	err := l.db.Transaction(func(tx *gorm.DB) error {
		p, err := loadProfile(tx, profileID)
		if err != nil {
			return err
		}
		if err := tx.Create(&t).Error; err != nil {
			return err
		}
		return l.setBalance(tx, p, p.Balance.Sub(t.Size), "Trade opened: "+t.Pair)
	})
	if err != nil {
		return nil, storeErr("open trade", "profile", profileID, err)
	}

	l.logger.Info("Trade opened",
		zap.Uint("profile_id", profileID),
		zap.Uint("trade_id", t.ID),
		zap.String("pair", t.Pair),
		zap.String("side", string(t.Side)),
		zap.String("size", t.Size.String()),
	)
	return &t, nil
}

// UpdateTrade replaces the stored fields of a trade and reconciles the
// balance with the previous version:
//
//	Running -> Running: the old size is returned and the new size debited.
//	Running -> Closed:  the realized PnL is credited.
//	Closed  -> Closed:  the PnL difference is credited.
//
// A closed trade cannot be reopened. Every update appends one event.
func (l *Ledger) UpdateTrade(profileID, tradeID uint, next models.Trade) (*models.Trade, error) {
	if err := validateTrade(&next); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	var result *models.Trade
	err := l.db.Transaction(func(tx *gorm.DB) error {
		p, err := loadProfile(tx, profileID)
		if err != nil {
			return err
		}
		prev, err := loadTrade(tx, profileID, tradeID)
		if err != nil {
			return err
		}
		result, err = l.applyUpdate(tx, p, prev, next)
		return err
	})
	if err != nil {
		return nil, storeErr("update trade", "trade", tradeID, err)
	}
	return result, nil
}

// CloseTrade closes a trade with the PnL implied by outcome and the current
// balance. Closing an already closed trade re-evaluates its outcome.
func (l *Ledger) CloseTrade(profileID, tradeID uint, outcome models.Outcome, notes string) (*models.Trade, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var result *models.Trade
	err := l.db.Transaction(func(tx *gorm.DB) error {
		p, err := loadProfile(tx, profileID)
		if err != nil {
			return err
		}
		prev, err := loadTrade(tx, profileID, tradeID)
		if err != nil {
			return err
		}
		closing, err := ComputeOutcome(*prev, outcome, p.Balance)
		if err != nil {
			return err
		}
		closing.Notes = notes

		next := *prev
		next.SetClosed(closing)
		result, err = l.applyUpdate(tx, p, prev, next)
		return err
	})
	if err != nil {
		return nil, storeErr("close trade", "trade", tradeID, err)
	}
	return result, nil
}

func (l *Ledger) applyUpdate(tx *gorm.DB, p *models.Profile, prev *models.Trade, next models.Trade) (*models.Trade, error) {
	if next.Status == "" {
		next.Status = prev.Status
	}
	if next.Status == models.Closed {
		if _, ok := next.Closing(); !ok {
			return nil, invalid("outcome", "is required for a closed trade")
		}
	}

	balance := p.Balance
	switch {
	case prev.Status == models.Running && next.Status == models.Running:
		balance = balance.Add(prev.Size).Sub(next.Size)
	case prev.Status == models.Running && next.Status == models.Closed:
		balance = balance.Add(next.RealizedPnL())
		if l.returnStakeOnClose {
			balance = balance.Add(prev.Size)
		}
	case prev.Status == models.Closed && next.Status == models.Closed:
		balance = balance.Add(next.RealizedPnL()).Sub(prev.RealizedPnL())
	default:
		return nil, ErrInvalidTransition
	}

	next.ID = prev.ID
	next.ProfileID = prev.ProfileID
	next.CreatedAt = prev.CreatedAt
	if next.Time.IsZero() {
		next.Time = prev.Time
	}
	if next.Status == models.Running {
		next.SetRunning()
	}

	if err := tx.Save(&next).Error; err != nil {
		return nil, err
	}
	if err := l.setBalance(tx, p, balance, "Trade updated: "+next.Pair); err != nil {
		return nil, err
	}

	l.logger.Info("Trade updated",
		zap.Uint("profile_id", p.ID),
		zap.Uint("trade_id", next.ID),
		zap.String("from", string(prev.Status)),
		zap.String("to", string(next.Status)),
		zap.String("balance", balance.String()),
	)
	return &next, nil
}

// DeleteTrade removes a trade. The size of a Running trade is credited back;
// a Closed trade's realized PnL stays in the balance.
func (l *Ledger) DeleteTrade(profileID, tradeID uint) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	err := l.db.Transaction(func(tx *gorm.DB) error {
		p, err := loadProfile(tx, profileID)
		if err != nil {
			return err
		}
		t, err := loadTrade(tx, profileID, tradeID)
		if err != nil {
			return err
		}
		if err := tx.Delete(t).Error; err != nil {
			return err
		}
		if t.Status != models.Running {
			return nil
		}
		return l.setBalance(tx, p, p.Balance.Add(t.Size), "Trade deleted: "+t.Pair)
	})
	if err != nil {
		return storeErr("delete trade", "trade", tradeID, err)
	}

	l.logger.Info("Trade deleted", zap.Uint("profile_id", profileID), zap.Uint("trade_id", tradeID))
	return nil
}

// Trade returns one trade of a profile.
func (l *Ledger) Trade(profileID, tradeID uint) (*models.Trade, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return loadTrade(l.db, profileID, tradeID)
}

// Trades lists the trades of a profile in chronological order.
func (l *Ledger) Trades(profileID uint, filter TradeFilter) ([]models.Trade, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	q := l.db.Where("profile_id = ?", profileID)
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if !filter.From.IsZero() {
		q = q.Where("time >= ?", filter.From)
	}
	if !filter.To.IsZero() {
		q = q.Where("time < ?", filter.To)
	}

	var trades []models.Trade
	if err := q.Order("time asc, id asc").Find(&trades).Error; err != nil {
		return nil, storeErr("list trades", "profile", profileID, err)
	}
	return trades, nil
}

// ComputeOutcome derives the realized PnL of closing t with outcome. The
// percentage is relative to balance. A loss debits the absolute stop
// amount whatever its stored sign.
func ComputeOutcome(t models.Trade, outcome models.Outcome, balance decimal.Decimal) (models.Closing, error) {
	var pnl decimal.Decimal
	switch outcome {
	case models.BreakEven:
		return models.Closing{Outcome: models.BreakEven, PnL: decimal.Zero, PnLPct: decimal.Zero}, nil
	case models.Win:
		pnl = t.TakeProfitAmount
	case models.Loss:
		pnl = t.StopLossAmount.Abs().Neg()
	default:
		return models.Closing{}, invalid("outcome", "unknown outcome "+string(outcome))
	}
	if balance.IsZero() {
		return models.Closing{}, invalid("balance", "must not be zero to compute the pnl percentage")
	}
	return models.Closing{
		Outcome: outcome,
		PnL:     pnl,
		PnLPct:  pnl.Div(balance).Mul(hundred),
	}, nil
}

func loadTrade(tx *gorm.DB, profileID, tradeID uint) (*models.Trade, error) {
	var t models.Trade
	if err := tx.Where("profile_id = ?", profileID).First(&t, tradeID).Error; err != nil {
		return nil, storeErr("load trade", "trade", tradeID, err)
	}
	return &t, nil
}

func validateTrade(t *models.Trade) error {
	t.Pair = strings.TrimSpace(t.Pair)
	if t.Pair == "" {
		return invalid("pair", "is required")
	}
	if !t.Size.IsPositive() {
		return invalid("trade_size", "must be greater than 0")
	}
	if t.Side != models.Long && t.Side != models.Short {
		return invalid("position_side", "must be Long or Short")
	}
	if t.Leverage.IsNegative() {
		return invalid("leverage", "must not be negative")
	}
	return nil
}
