package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Profile is a named account with its own balance and trades.
// Exactly one profile is active at a time.
type Profile struct {
	ID             uint            `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Username       string          `gorm:"uniqueIndex;not null" json:"username"`
	PasswordHash   string          `gorm:"not null" json:"-"`
	Balance        decimal.Decimal `gorm:"type:text;not null" json:"balance"`
	IsActive       bool            `gorm:"index" json:"is_active"`
	Color          string          `json:"color"`
	CreatedAt      time.Time       `json:"created_at"`
	LastLogin      *time.Time      `json:"last_login,omitempty"`
	BalanceHistory []BalanceEvent  `gorm:"constraint:OnDelete:CASCADE" json:"balance_history"`
}

// BalanceEvent is an append-only audit entry. Balance is the profile
// balance after the event was applied.
type BalanceEvent struct {
	ID        uint            `gorm:"primaryKey" json:"-"`
	ProfileID uint            `gorm:"index;not null" json:"-"`
	Date      time.Time       `gorm:"not null" json:"date"`
	Balance   decimal.Decimal `gorm:"type:text;not null" json:"balance"`
	Action    string          `json:"action"`
}

// InitialBalance returns the balance recorded by the first history entry.
func (p *Profile) InitialBalance() decimal.Decimal {
	if len(p.BalanceHistory) == 0 {
		return decimal.Zero
	}
	return p.BalanceHistory[0].Balance
}

// APIKey stores the vision API key configured for a profile.
type APIKey struct {
	ProfileID uint      `gorm:"primaryKey;autoIncrement:false"`
	Key       string    `gorm:"not null"`
	UpdatedAt time.Time
}
