// internal/services/pricing_service.go
package services

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/nulldental/license-server/internal/licensing"
	"github.com/nulldental/license-server/internal/models"
	"github.com/nulldental/license-server/internal/utils"
)

// PricingService manages the plan catalog shown to prospective clinics.
// Pure CRUD; no payment processing happens anywhere in this system.
type PricingService struct {
	db *gorm.DB
}

type PricingPlanRequest struct {
	ID           string             `json:"id" validate:"required,max=50"`
	Name         string             `json:"name" validate:"required,max=100"`
	Type         models.LicenseType `json:"type" validate:"required,license_type"`
	MonthlyPrice int64              `json:"monthly_price" validate:"gte=0"`
	YearlyPrice  int64              `json:"yearly_price" validate:"gte=0"`
	Description  string             `json:"description"`
	Features     []string           `json:"features"`
}

func NewPricingService(db *gorm.DB) *PricingService {
	return &PricingService{db: db}
}

func (s *PricingService) List() ([]models.PricingPlan, error) {
	var plans []models.PricingPlan
	if err := s.db.Order("id").Find(&plans).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch pricing plans: %w", err)
	}
	return plans, nil
}

func (s *PricingService) Create(req *PricingPlanRequest) (*models.PricingPlan, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	plan := &models.PricingPlan{
		ID:           req.ID,
		Name:         req.Name,
		Type:         req.Type,
		MonthlyPrice: req.MonthlyPrice,
		YearlyPrice:  req.YearlyPrice,
		Description:  req.Description,
		Features:     req.Features,
	}

	if err := s.db.Create(plan).Error; err != nil {
		return nil, fmt.Errorf("failed to create pricing plan: %w", err)
	}
	return plan, nil
}

func (s *PricingService) Update(id string, req *PricingPlanRequest) (*models.PricingPlan, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	var plan models.PricingPlan
	if err := s.db.First(&plan, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, licensing.ErrNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	plan.Name = req.Name
	plan.Type = req.Type
	plan.MonthlyPrice = req.MonthlyPrice
	plan.YearlyPrice = req.YearlyPrice
	plan.Description = req.Description
	plan.Features = req.Features

	if err := s.db.Save(&plan).Error; err != nil {
		return nil, fmt.Errorf("failed to update pricing plan: %w", err)
	}
	return &plan, nil
}

func (s *PricingService) Delete(id string) error {
	res := s.db.Delete(&models.PricingPlan{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete pricing plan: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return licensing.ErrNotFound
	}
	return nil
}
