package ledger

import (
	"errors"
	"strings"

	"trading-journal-go/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SetAPIKey stores or replaces the vision API key of a profile.
func (l *Ledger) SetAPIKey(profileID uint, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return invalid("api_key", "is required")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := loadProfile(l.db, profileID); err != nil {
		return err
	}
	row := models.APIKey{ProfileID: profileID, Key: key, UpdatedAt: l.now()}
	err := l.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "profile_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"key", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return storeErr("save api key", "profile", profileID, err)
	}

	l.logger.Info("API key saved", zap.Uint("profile_id", profileID))
	return nil
}

// APIKey returns the stored key or ErrNoAPIKey.
func (l *Ledger) APIKey(profileID uint) (string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var row models.APIKey
	err := l.db.First(&row, "profile_id = ?", profileID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrNoAPIKey
	}
	if err != nil {
		return "", storeErr("load api key", "profile", profileID, err)
	}
	return row.Key, nil
}

// RemoveAPIKey deletes the stored key. Removing a missing key is not an error.
func (l *Ledger) RemoveAPIKey(profileID uint) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.db.Where("profile_id = ?", profileID).Delete(&models.APIKey{}).Error; err != nil {
		return storeErr("remove api key", "profile", profileID, err)
	}
	return nil
}
