// Package ledger keeps the balances of trading profiles. Every balance
// change is committed together with a BalanceEvent describing its cause, so
// a profile's balance always equals the balance of its last event.
//
// Mutations are serialized; reads may run concurrently with each other.
package ledger

import (
	"sync"
	"time"

	"trading-journal-go/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Ledger is the bookkeeping service for profiles, balances and trades.
type Ledger struct {
	db     *gorm.DB
	logger *zap.Logger
	mu     sync.RWMutex

	now                func() time.Time
	hashCost           int
	returnStakeOnClose bool
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// WithHashCost sets the bcrypt cost used for password hashes.
func WithHashCost(cost int) Option {
	return func(l *Ledger) { l.hashCost = cost }
}

// WithStakeReturnOnClose makes closing a running trade refund its size in
// addition to crediting the realized PnL.
func WithStakeReturnOnClose(enabled bool) Option {
	return func(l *Ledger) { l.returnStakeOnClose = enabled }
}

// New creates a Ledger on top of a migrated database.
func New(db *gorm.DB, logger *zap.Logger, opts ...Option) *Ledger {
	l := &Ledger{
		db:       db,
		logger:   logger.Named("ledger"),
		now:      time.Now,
		hashCost: bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// loadProfile reads a profile with its balance history in chronological order.
func loadProfile(tx *gorm.DB, id uint) (*models.Profile, error) {
	var p models.Profile
	err := tx.Preload("BalanceHistory", func(db *gorm.DB) *gorm.DB {
		return db.Order("id asc")
	}).First(&p, id).Error
	if err != nil {
		return nil, storeErr("load profile", "profile", id, err)
	}
	return &p, nil
}

// setBalance stores the new balance and appends the matching event inside tx.
func (l *Ledger) setBalance(tx *gorm.DB, p *models.Profile, balance decimal.Decimal, action string) error {
	date := l.now()
	if n := len(p.BalanceHistory); n > 0 && date.Before(p.BalanceHistory[n-1].Date) {
		// Keep the history monotonic even if the wall clock stepped back.
		date = p.BalanceHistory[n-1].Date
	}

	if err := tx.Model(&models.Profile{}).Where("id = ?", p.ID).Update("balance", balance).Error; err != nil {
		return storeErr("update balance", "profile", p.ID, err)
	}
	event := models.BalanceEvent{ProfileID: p.ID, Date: date, Balance: balance, Action: action}
	if err := tx.Create(&event).Error; err != nil {
		return storeErr("append balance event", "profile", p.ID, err)
	}

	p.Balance = balance
	p.BalanceHistory = append(p.BalanceHistory, event)
	return nil
}

func (l *Ledger) hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), l.hashCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func checkPassword(p *models.Profile, password string) error {
	if bcrypt.CompareHashAndPassword([]byte(p.PasswordHash), []byte(password)) != nil {
		return ErrIncorrectPassword
	}
	return nil
}
