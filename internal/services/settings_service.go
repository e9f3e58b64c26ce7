// internal/services/settings_service.go
package services

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/nulldental/license-server/internal/database"
	"github.com/nulldental/license-server/internal/models"
)

type SettingsService struct {
	db *gorm.DB
}

type UpdateSettingsRequest struct {
	Settings map[string]string `json:"settings" validate:"required"`
}

func NewSettingsService(db *gorm.DB) *SettingsService {
	return &SettingsService{db: db}
}

func (s *SettingsService) GetAll() ([]models.GlobalSetting, error) {
	var settings []models.GlobalSetting
	if err := s.db.Order("key").Find(&settings).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch settings: %w", err)
	}
	return settings, nil
}

func (s *SettingsService) Get(key string) (string, bool) {
	var setting models.GlobalSetting
	if err := s.db.Where("key = ?", key).First(&setting).Error; err != nil {
		return "", false
	}
	return setting.Value, true
}

// Update upserts all given keys in one transaction so a partial write never
// leaves the email toggles and address out of sync.
func (s *SettingsService) Update(req *UpdateSettingsRequest, updatedBy uint) error {
	return database.WithTransaction(s.db, func(tx *gorm.DB) error {
		for key, value := range req.Settings {
			var setting models.GlobalSetting
			err := tx.Where("key = ?", key).First(&setting).Error
			switch {
			case err == nil:
				setting.Value = value
				setting.UpdatedBy = &updatedBy
				if err := tx.Save(&setting).Error; err != nil {
					return fmt.Errorf("failed to update setting %s: %w", key, err)
				}
			case err == gorm.ErrRecordNotFound:
				setting = models.GlobalSetting{Key: key, Value: value, UpdatedBy: &updatedBy}
				if err := tx.Create(&setting).Error; err != nil {
					return fmt.Errorf("failed to create setting %s: %w", key, err)
				}
			default:
				return fmt.Errorf("database error: %w", err)
			}
		}
		return nil
	})
}

// EmailRecipient reports whether email notifications are enabled and where
// they go. Both conditions come from global settings, as the admin UI flips
// them at runtime.
func (s *SettingsService) EmailRecipient() (string, bool) {
	enabled, ok := s.Get(models.SettingEmailNotificationsEnabled)
	if !ok || enabled != "true" {
		return "", false
	}

	address, ok := s.Get(models.SettingAdminEmailAddress)
	if !ok || address == "" {
		return "", false
	}

	return address, true
}

func (s *SettingsService) NewClinicEmailEnabled() bool {
	value, ok := s.Get(models.SettingEmailNewClinicAdded)
	return ok && value == "true"
}
