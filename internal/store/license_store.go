// internal/store/license_store.go
package store

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/nulldental/license-server/internal/licensing"
	"github.com/nulldental/license-server/internal/models"
)

// LicenseStore owns all mutation of license rows. Transition policy
// (revoked licenses cannot be renewed or transferred, first activation is
// written at most once) is enforced here rather than in the handlers so that
// no calling surface can bypass it.
type LicenseStore struct {
	db *gorm.DB
}

func NewLicenseStore(db *gorm.DB) *LicenseStore {
	return &LicenseStore{db: db}
}

func (s *LicenseStore) Create(license *models.License) error {
	if err := s.db.Create(license).Error; err != nil {
		return fmt.Errorf("failed to create license: %w", err)
	}
	return nil
}

func (s *LicenseStore) GetByID(id uint) (*models.License, error) {
	var license models.License
	if err := s.db.Preload("Clinic").First(&license, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, licensing.ErrNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &license, nil
}

func (s *LicenseStore) List(offset, limit int) ([]models.License, int64, error) {
	query := s.db.Model(&models.License{}).Preload("Clinic")

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count licenses: %w", err)
	}

	var licenses []models.License
	if err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&licenses).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch licenses: %w", err)
	}

	return licenses, total, nil
}

// AttachToken overwrites the issuance placeholder with the signed token.
func (s *LicenseStore) AttachToken(id uint, token string) (*models.License, error) {
	res := s.db.Model(&models.License{}).Where("id = ?", id).Update("key", token)
	if res.Error != nil {
		return nil, fmt.Errorf("failed to attach token: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, licensing.ErrNotFound
	}
	return s.GetByID(id)
}

// MarkFirstActivation sets first_activated to now only if it is still null.
// The conditional single-statement update is what makes concurrent
// validation calls at-most-once: exactly one caller sees activated=true.
func (s *LicenseStore) MarkFirstActivation(id uint) (*models.License, bool, error) {
	res := s.db.Model(&models.License{}).
		Where("id = ? AND first_activated IS NULL", id).
		Update("first_activated", time.Now())
	if res.Error != nil {
		return nil, false, fmt.Errorf("failed to mark first activation: %w", res.Error)
	}

	license, err := s.GetByID(id)
	if err != nil {
		return nil, false, err
	}
	return license, res.RowsAffected == 1, nil
}

// TouchLastVerified records that a status check or validation happened.
func (s *LicenseStore) TouchLastVerified(id uint) error {
	res := s.db.Model(&models.License{}).Where("id = ?", id).Update("last_verified", time.Now())
	if res.Error != nil {
		return fmt.Errorf("failed to update last verified: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return licensing.ErrNotFound
	}
	return nil
}

// Revoke moves the license to its terminal state. Revoking an already
// revoked license succeeds silently.
func (s *LicenseStore) Revoke(id uint) (*models.License, error) {
	license, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}
	if license.Status == models.LicenseStatusRevoked {
		return license, nil
	}

	if err := s.db.Model(license).Update("status", models.LicenseStatusRevoked).Error; err != nil {
		return nil, fmt.Errorf("failed to revoke license: %w", err)
	}
	return s.GetByID(id)
}

// Renew extends the support window. Revoked licenses cannot be renewed.
func (s *LicenseStore) Renew(id uint, newExpiry time.Time) (*models.License, error) {
	license, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}
	if license.Status == models.LicenseStatusRevoked {
		return nil, licensing.ErrInvalidOperation
	}

	if err := s.db.Model(license).Update("support_expiry", newExpiry).Error; err != nil {
		return nil, fmt.Errorf("failed to renew license: %w", err)
	}
	return s.GetByID(id)
}

// Transfer reassigns the license to another clinic. The signed token is not
// re-minted; the record's clinic binding is authoritative from here on.
func (s *LicenseStore) Transfer(id uint, clinicID uint) (*models.License, error) {
	license, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}
	if license.Status == models.LicenseStatusRevoked {
		return nil, licensing.ErrInvalidOperation
	}

	if err := s.db.Model(license).Update("clinic_id", clinicID).Error; err != nil {
		return nil, fmt.Errorf("failed to transfer license: %w", err)
	}
	return s.GetByID(id)
}

// Delete removes the row outright. Not part of the normal lifecycle; exists
// only as a blunt administrative operation.
func (s *LicenseStore) Delete(id uint) error {
	res := s.db.Delete(&models.License{}, id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete license: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return licensing.ErrNotFound
	}
	return nil
}
