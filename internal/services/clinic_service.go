// internal/services/clinic_service.go
package services

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/nulldental/license-server/internal/licensing"
	"github.com/nulldental/license-server/internal/models"
	"github.com/nulldental/license-server/internal/utils"
)

type ClinicService struct {
	db       *gorm.DB
	notifier *NotificationService
}

type CreateClinicRequest struct {
	Name               string             `json:"name" validate:"required,max=255"`
	Domain             string             `json:"domain" validate:"required,domain"`
	DBConnectionString string             `json:"db_connection_string"`
	LicenseType        models.LicenseType `json:"license_type" validate:"required,license_type"`
	AdminContact       string             `json:"admin_contact" validate:"omitempty,email"`
}

type UpdateClinicRequest struct {
	Name         string              `json:"name" validate:"omitempty,max=255"`
	Domain       string              `json:"domain" validate:"omitempty,domain"`
	AdminContact string              `json:"admin_contact" validate:"omitempty,email"`
	Status       models.ClinicStatus `json:"status"`
}

func NewClinicService(db *gorm.DB, notifier *NotificationService) *ClinicService {
	return &ClinicService{db: db, notifier: notifier}
}

// GetClinic implements ClinicDirectory for the license service.
func (s *ClinicService) GetClinic(id uint) (*models.Clinic, error) {
	var clinic models.Clinic
	if err := s.db.First(&clinic, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, licensing.ErrNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &clinic, nil
}

func (s *ClinicService) GetClinicWithLicenses(id uint) (*models.Clinic, error) {
	var clinic models.Clinic
	if err := s.db.Preload("Licenses").First(&clinic, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, licensing.ErrNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &clinic, nil
}

func (s *ClinicService) CreateClinic(req *CreateClinicRequest) (*models.Clinic, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	var existing models.Clinic
	if err := s.db.Where("domain = ?", req.Domain).First(&existing).Error; err == nil {
		return nil, errors.New("clinic with this domain already exists")
	}

	clinic := &models.Clinic{
		Name:               req.Name,
		Domain:             req.Domain,
		DBConnectionString: req.DBConnectionString,
		LicenseType:        req.LicenseType,
		AdminContact:       req.AdminContact,
		Status:             models.ClinicStatusActive,
	}

	if err := s.db.Create(clinic).Error; err != nil {
		return nil, fmt.Errorf("failed to create clinic: %w", err)
	}

	if s.notifier != nil {
		go s.notifier.ClinicAdded(clinic)
	}

	return clinic, nil
}

func (s *ClinicService) UpdateClinic(id uint, req *UpdateClinicRequest) (*models.Clinic, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	clinic, err := s.GetClinic(id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.Name != "" {
		updates["name"] = req.Name
	}
	if req.Domain != "" {
		updates["domain"] = req.Domain
	}
	if req.AdminContact != "" {
		updates["admin_contact"] = req.AdminContact
	}
	if req.Status != "" {
		updates["status"] = req.Status
	}

	if len(updates) > 0 {
		if err := s.db.Model(clinic).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("failed to update clinic: %w", err)
		}
	}

	return s.GetClinic(id)
}

func (s *ClinicService) ListClinics(params utils.PaginationParams) ([]models.Clinic, int64, error) {
	query := s.db.Model(&models.Clinic{}).Preload("Licenses")

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count clinics: %w", err)
	}

	var clinics []models.Clinic
	if err := query.Order("created_at DESC").Offset(params.Offset()).Limit(params.Limit).Find(&clinics).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch clinics: %w", err)
	}

	return clinics, total, nil
}

// DeleteClinic refuses to remove a clinic that still has licenses; those
// must be transferred or deleted first.
func (s *ClinicService) DeleteClinic(id uint) error {
	if _, err := s.GetClinic(id); err != nil {
		return err
	}

	var licenseCount int64
	if err := s.db.Model(&models.License{}).Where("clinic_id = ?", id).Count(&licenseCount).Error; err != nil {
		return fmt.Errorf("failed to check clinic licenses: %w", err)
	}
	if licenseCount > 0 {
		return errors.New("cannot delete clinic with existing licenses")
	}

	return s.db.Delete(&models.Clinic{}, id).Error
}
