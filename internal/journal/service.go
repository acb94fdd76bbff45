// Package journal ties the chart analyzer, the sizing engine and the ledger
// together. While an analysis is running every ledger mutation made through
// the Service is refused with ErrAnalysisPending.
package journal

import (
	"context"
	"errors"
	"sync"

	"trading-journal-go/internal/ledger"
	"trading-journal-go/internal/models"
	"trading-journal-go/internal/vision"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ErrAnalysisPending is returned for mutations attempted while a chart
// analysis has not completed yet.
var ErrAnalysisPending = errors.New("a chart analysis is in progress")

// Service is the entry point used by the CLI.
type Service struct {
	ledger   *ledger.Ledger
	analyzer vision.Analyzer
	logger   *zap.Logger

	mu      sync.Mutex
	pending *vision.Task
}

// NewService creates a Service.
func NewService(l *ledger.Ledger, analyzer vision.Analyzer, logger *zap.Logger) *Service {
	return &Service{
		ledger:   l,
		analyzer: analyzer,
		logger:   logger.Named("journal"),
	}
}

// Ledger exposes the underlying ledger for read access.
func (s *Service) Ledger() *ledger.Ledger { return s.ledger }

// Busy reports whether an analysis is in progress.
func (s *Service) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending != nil
}

// StartAnalysis analyzes req in the background with the profile's API key.
// Only one analysis may run at a time. onDone is called once the task has
// completed and the service accepts mutations again.
func (s *Service) StartAnalysis(ctx context.Context, profileID uint, req vision.Request, onDone vision.Callback) (*vision.Task, error) {
	key, err := s.ledger.APIKey(profileID)
	if err != nil {
		return nil, err
	}
	req.APIKey = key

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending != nil {
		return nil, ErrAnalysisPending
	}

	s.logger.Info("Starting chart analysis", zap.Uint("profile_id", profileID), zap.String("mime_type", req.MIMEType))
	var task *vision.Task
	task = vision.Start(ctx, s.analyzer, req, func(res *vision.Result, err error) {
		s.mu.Lock()
		if s.pending == task {
			s.pending = nil
		}
		s.mu.Unlock()

		if err != nil {
			s.logger.Warn("Chart analysis failed", zap.Error(err))
		} else {
			s.logger.Info("Chart analysis completed", zap.String("confidence", string(res.Confidence)))
		}
		if onDone != nil {
			onDone(res, err)
		}
	})
	s.pending = task
	return task, nil
}

// CheckAPIKey verifies key with a minimal model call.
func (s *Service) CheckAPIKey(ctx context.Context, key string) (string, error) {
	return s.analyzer.CheckKey(ctx, key)
}

func (s *Service) guard() error {
	if s.Busy() {
		return ErrAnalysisPending
	}
	return nil
}

// AddTrade converts form against the profile's current balance and stores
// it. A closed form is opened first and then closed, so the ledger records
// both steps.
func (s *Service) AddTrade(profileID uint, form ledger.TradeForm) (*models.Trade, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}
	p, err := s.ledger.Profile(profileID)
	if err != nil {
		return nil, err
	}
	t, err := form.Trade(p.Balance)
	if err != nil {
		return nil, err
	}
	opened, err := s.ledger.OpenTrade(profileID, t)
	if err != nil || t.Status != models.Closed {
		return opened, err
	}
	return s.ledger.UpdateTrade(profileID, opened.ID, t)
}

// OpenTrade stores a new running trade.
func (s *Service) OpenTrade(profileID uint, t models.Trade) (*models.Trade, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}
	return s.ledger.OpenTrade(profileID, t)
}

// UpdateTrade replaces a trade.
func (s *Service) UpdateTrade(profileID, tradeID uint, next models.Trade) (*models.Trade, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}
	return s.ledger.UpdateTrade(profileID, tradeID, next)
}

// CloseTrade closes a trade with the given outcome.
func (s *Service) CloseTrade(profileID, tradeID uint, outcome models.Outcome, notes string) (*models.Trade, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}
	return s.ledger.CloseTrade(profileID, tradeID, outcome, notes)
}

// DeleteTrade removes a trade.
func (s *Service) DeleteTrade(profileID, tradeID uint) error {
	if err := s.guard(); err != nil {
		return err
	}
	return s.ledger.DeleteTrade(profileID, tradeID)
}

func (s *Service) Deposit(profileID uint, amount decimal.Decimal) (*models.Profile, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}
	return s.ledger.Deposit(profileID, amount)
}

func (s *Service) Withdraw(profileID uint, amount decimal.Decimal) (*models.Profile, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}
	return s.ledger.Withdraw(profileID, amount)
}

func (s *Service) ResetBalance(profileID uint) (*models.Profile, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}
	return s.ledger.ResetBalance(profileID)
}

func (s *Service) EditCapital(profileID uint, balance decimal.Decimal) (*models.Profile, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}
	return s.ledger.EditCapital(profileID, balance)
}

// SwitchProfile activates another profile.
func (s *Service) SwitchProfile(id uint, password string) (*models.Profile, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}
	return s.ledger.SwitchProfile(id, password)
}

// DeleteProfile removes a profile and everything it owns.
func (s *Service) DeleteProfile(id uint, password string) error {
	if err := s.guard(); err != nil {
		return err
	}
	return s.ledger.DeleteProfile(id, password)
}
