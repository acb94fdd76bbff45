package ledger

import (
	"fmt"

	"trading-journal-go/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AdjustBalance sets the balance of a profile and records reason as the
// event action.
func (l *Ledger) AdjustBalance(profileID uint, newBalance decimal.Decimal, reason string) (*models.Profile, error) {
	if reason == "" {
		return nil, invalid("reason", "is required")
	}
	return l.mutateBalance(profileID, "adjust balance", func(p *models.Profile) (decimal.Decimal, string, error) {
		return newBalance, reason, nil
	})
}

// EditCapital replaces the balance with a value entered by the user.
func (l *Ledger) EditCapital(profileID uint, newBalance decimal.Decimal) (*models.Profile, error) {
	if newBalance.IsNegative() {
		return nil, invalid("balance", "must not be negative")
	}
	return l.AdjustBalance(profileID, newBalance, "Manual balance adjustment")
}

// Deposit adds amount to the balance.
func (l *Ledger) Deposit(profileID uint, amount decimal.Decimal) (*models.Profile, error) {
	if !amount.IsPositive() {
		return nil, invalid("amount", "must be greater than 0")
	}
	return l.mutateBalance(profileID, "deposit", func(p *models.Profile) (decimal.Decimal, string, error) {
		return p.Balance.Add(amount), fmt.Sprintf("Deposit +$%s", amount.StringFixed(2)), nil
	})
}

// Withdraw removes amount from the balance. A withdrawal larger than the
// balance is rejected.
func (l *Ledger) Withdraw(profileID uint, amount decimal.Decimal) (*models.Profile, error) {
	if !amount.IsPositive() {
		return nil, invalid("amount", "must be greater than 0")
	}
	return l.mutateBalance(profileID, "withdraw", func(p *models.Profile) (decimal.Decimal, string, error) {
		if amount.GreaterThan(p.Balance) {
			return decimal.Zero, "", invalid("amount", "exceeds the current balance")
		}
		return p.Balance.Sub(amount), fmt.Sprintf("Withdrawal -$%s", amount.StringFixed(2)), nil
	})
}

// ResetBalance restores the balance recorded by the first history entry.
func (l *Ledger) ResetBalance(profileID uint) (*models.Profile, error) {
	return l.mutateBalance(profileID, "reset balance", func(p *models.Profile) (decimal.Decimal, string, error) {
		return p.InitialBalance(), "Balance Reset", nil
	})
}

// mutateBalance loads the profile, lets next compute the new balance and the
// event action, and commits both in one transaction.
func (l *Ledger) mutateBalance(profileID uint, op string, next func(*models.Profile) (decimal.Decimal, string, error)) (*models.Profile, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var result *models.Profile
	err := l.db.Transaction(func(tx *gorm.DB) error {
		p, err := loadProfile(tx, profileID)
		if err != nil {
			return err
		}
		balance, action, err := next(p)
		if err != nil {
			return err
		}
		if err := l.setBalance(tx, p, balance, action); err != nil {
			return err
		}
		result = p
		return nil
	})
	if err != nil {
		return nil, storeErr(op, "profile", profileID, err)
	}

	l.logger.Info("Balance updated",
		zap.Uint("profile_id", profileID),
		zap.String("balance", result.Balance.String()),
		zap.String("action", result.BalanceHistory[len(result.BalanceHistory)-1].Action),
	)
	return result, nil
}
