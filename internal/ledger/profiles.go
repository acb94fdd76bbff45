package ledger

import (
	"errors"
	"strings"
	"time"

	"trading-journal-go/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const initialBalanceAction = "Initial Balance"

// ProfileStats summarizes a profile for the profile manager.
type ProfileStats struct {
	Username       string          `json:"username"`
	CreatedAt      time.Time       `json:"created_at"`
	LastLogin      *time.Time      `json:"last_login,omitempty"`
	CurrentBalance decimal.Decimal `json:"current_balance"`
	InitialBalance decimal.Decimal `json:"initial_balance"`
	BalanceChanges int             `json:"balance_changes"`
	DaysActive     int             `json:"days_active"`
}

// EnsureDefaultProfile creates an active profile when the store is empty and
// returns the active profile.
func (l *Ledger) EnsureDefaultProfile(username, password string, balance decimal.Decimal) (*models.Profile, error) {
	l.mu.Lock()
	var count int64
	if err := l.db.Model(&models.Profile{}).Count(&count).Error; err != nil {
		l.mu.Unlock()
		return nil, storeErr("count profiles", "profile", 0, err)
	}
	l.mu.Unlock()

	if count == 0 {
		l.logger.Info("No profiles found, creating default profile", zap.String("username", username))
		p, err := l.CreateProfile(username, password, balance)
		if err != nil {
			return nil, err
		}
		return p, nil
	}
	return l.ActiveProfile()
}

// CreateProfile adds a profile with the next integer id and an "Initial
// Balance" history entry. The first profile ever created becomes active.
func (l *Ledger) CreateProfile(username, password string, balance decimal.Decimal) (*models.Profile, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, invalid("username", "is required")
	}
	if password == "" {
		return nil, invalid("password", "is required")
	}
	hash, err := l.hashPassword(password)
	if err != nil {
		return nil, &PersistenceError{Op: "hash password", Err: err}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	var created *models.Profile
	err = l.db.Transaction(func(tx *gorm.DB) error {
		var taken int64
		if err := tx.Model(&models.Profile{}).Where("username = ?", username).Count(&taken).Error; err != nil {
			return err
		}
		if taken > 0 {
			return ErrUsernameTaken
		}

		var maxID uint
		if err := tx.Model(&models.Profile{}).Select("COALESCE(MAX(id), 0)").Scan(&maxID).Error; err != nil {
			return err
		}
		var active int64
		if err := tx.Model(&models.Profile{}).Where("is_active = ?", true).Count(&active).Error; err != nil {
			return err
		}

		now := l.now()
		p := &models.Profile{
			ID:           maxID + 1,
			Username:     username,
			PasswordHash: hash,
			Balance:      balance,
			IsActive:     active == 0,
			Color:        "#2196F3",
			CreatedAt:    now,
			BalanceHistory: []models.BalanceEvent{
				{Date: now, Balance: balance, Action: initialBalanceAction},
			},
		}
		if p.IsActive {
			p.LastLogin = &now
		}
		if err := tx.Create(p).Error; err != nil {
			return err
		}
		created = p
		return nil
	})
	if err != nil {
		return nil, storeErr("create profile", "profile", 0, err)
	}

	l.logger.Info("Profile created",
		zap.Uint("profile_id", created.ID),
		zap.String("username", created.Username),
		zap.String("balance", created.Balance.String()),
	)
	return created, nil
}

// Profile returns a profile with its balance history.
func (l *Ledger) Profile(id uint) (*models.Profile, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return loadProfile(l.db, id)
}

// Profiles lists all profiles ordered by id, without balance history.
func (l *Ledger) Profiles() ([]models.Profile, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var profiles []models.Profile
	if err := l.db.Order("id asc").Find(&profiles).Error; err != nil {
		return nil, storeErr("list profiles", "profile", 0, err)
	}
	return profiles, nil
}

// ActiveProfile returns the active profile. If none is marked active the
// profile with the lowest id is activated.
func (l *Ledger) ActiveProfile() (*models.Profile, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var p models.Profile
	err := l.db.Where("is_active = ?", true).Order("id asc").First(&p).Error
	if err == nil {
		return loadProfile(l.db, p.ID)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storeErr("load active profile", "profile", 0, err)
	}

	if err := l.db.Order("id asc").First(&p).Error; err != nil {
		return nil, storeErr("load active profile", "profile", 0, err)
	}
	if err := l.db.Model(&p).Update("is_active", true).Error; err != nil {
		return nil, storeErr("activate profile", "profile", p.ID, err)
	}
	return loadProfile(l.db, p.ID)
}

// CurrentProfile returns the profile marked active without changing any
// row. It fails with a NotFoundError when no profile is marked active.
func (l *Ledger) CurrentProfile() (*models.Profile, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var p models.Profile
	if err := l.db.Where("is_active = ?", true).Order("id asc").First(&p).Error; err != nil {
		return nil, storeErr("load active profile", "profile", 0, err)
	}
	return loadProfile(l.db, p.ID)
}

// VerifyPassword checks the password of a profile.
func (l *Ledger) VerifyPassword(id uint, password string) error {
	p, err := l.Profile(id)
	if err != nil {
		return err
	}
	return checkPassword(p, password)
}

// SwitchProfile makes the profile the only active one after verifying its
// password, and records the login time.
func (l *Ledger) SwitchProfile(id uint, password string) (*models.Profile, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	p, err := loadProfile(l.db, id)
	if err != nil {
		return nil, err
	}
	if err := checkPassword(p, password); err != nil {
		return nil, err
	}

	now := l.now()
	err = l.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Profile{}).Where("id <> ?", id).Update("is_active", false).Error; err != nil {
			return err
		}
		return tx.Model(&models.Profile{}).Where("id = ?", id).
			Updates(map[string]any{"is_active": true, "last_login": now}).Error
	})
	if err != nil {
		return nil, storeErr("switch profile", "profile", id, err)
	}

	p.IsActive = true
	p.LastLogin = &now
	l.logger.Info("Switched active profile", zap.Uint("profile_id", id), zap.String("username", p.Username))
	return p, nil
}

// DeleteProfile removes a profile with its trades, history and API key.
// The last remaining profile cannot be deleted. If the deleted profile was
// active, the remaining profile with the lowest id becomes active.
func (l *Ledger) DeleteProfile(id uint, password string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	p, err := loadProfile(l.db, id)
	if err != nil {
		return err
	}
	if err := checkPassword(p, password); err != nil {
		return err
	}

	err = l.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Profile{}).Count(&count).Error; err != nil {
			return err
		}
		if count <= 1 {
			return ErrLastProfile
		}

		for _, model := range []any{&models.Trade{}, &models.BalanceEvent{}, &models.APIKey{}} {
			if err := tx.Where("profile_id = ?", id).Delete(model).Error; err != nil {
				return err
			}
		}
		if err := tx.Delete(&models.Profile{}, id).Error; err != nil {
			return err
		}

		if p.IsActive {
			var next models.Profile
			if err := tx.Order("id asc").First(&next).Error; err != nil {
				return err
			}
			return tx.Model(&next).Update("is_active", true).Error
		}
		return nil
	})
	if err != nil {
		return storeErr("delete profile", "profile", id, err)
	}

	l.logger.Info("Profile deleted", zap.Uint("profile_id", id), zap.String("username", p.Username))
	return nil
}

// ChangePassword replaces the password after verifying the current one.
func (l *Ledger) ChangePassword(id uint, oldPassword, newPassword string) error {
	if newPassword == "" {
		return invalid("password", "is required")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	p, err := loadProfile(l.db, id)
	if err != nil {
		return err
	}
	if err := checkPassword(p, oldPassword); err != nil {
		return err
	}
	hash, err := l.hashPassword(newPassword)
	if err != nil {
		return &PersistenceError{Op: "hash password", Err: err}
	}
	if err := l.db.Model(&models.Profile{}).Where("id = ?", id).Update("password_hash", hash).Error; err != nil {
		return storeErr("change password", "profile", id, err)
	}
	return nil
}

// CloneProfile creates a new profile whose initial balance is the source
// profile's current balance. Trades are not copied.
func (l *Ledger) CloneProfile(sourceID uint, username, password string) (*models.Profile, error) {
	src, err := l.Profile(sourceID)
	if err != nil {
		return nil, err
	}
	clone, err := l.CreateProfile(username, password, src.Balance)
	if err != nil {
		return nil, err
	}
	if src.Color != "" && src.Color != clone.Color {
		l.mu.Lock()
		defer l.mu.Unlock()
		if err := l.db.Model(&models.Profile{}).Where("id = ?", clone.ID).Update("color", src.Color).Error; err != nil {
			return nil, storeErr("clone profile", "profile", clone.ID, err)
		}
		clone.Color = src.Color
	}
	return clone, nil
}

// Stats summarizes a profile.
func (l *Ledger) Stats(id uint) (ProfileStats, error) {
	p, err := l.Profile(id)
	if err != nil {
		return ProfileStats{}, err
	}
	return ProfileStats{
		Username:       p.Username,
		CreatedAt:      p.CreatedAt,
		LastLogin:      p.LastLogin,
		CurrentBalance: p.Balance,
		InitialBalance: p.InitialBalance(),
		BalanceChanges: len(p.BalanceHistory),
		DaysActive:     int(l.now().Sub(p.CreatedAt).Hours() / 24),
	}, nil
}
