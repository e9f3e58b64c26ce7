// internal/handlers/admin.go
package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/nulldental/license-server/internal/licensing"
	"github.com/nulldental/license-server/internal/services"
	"github.com/nulldental/license-server/internal/utils"
)

// AdminHandler covers global settings and the pricing plan catalog.
type AdminHandler struct {
	settingsService *services.SettingsService
	pricingService  *services.PricingService
}

func NewAdminHandler(settingsService *services.SettingsService, pricingService *services.PricingService) *AdminHandler {
	return &AdminHandler{
		settingsService: settingsService,
		pricingService:  pricingService,
	}
}

// GET /v1/admin/settings
func (h *AdminHandler) GetSettings(c *gin.Context) {
	settings, err := h.settingsService.GetAll()
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, settings)
}

// PUT /v1/admin/settings
func (h *AdminHandler) UpdateSettings(c *gin.Context) {
	var req services.UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request format", err.Error())
		return
	}

	userID, _ := utils.GetUserIDFromContext(c)
	if err := h.settingsService.Update(&req, userID); err != nil {
		utils.BadRequestResponse(c, err.Error(), nil)
		return
	}

	settings, err := h.settingsService.GetAll()
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, settings)
}

// GET /v1/admin/pricing-plans
func (h *AdminHandler) GetPricingPlans(c *gin.Context) {
	plans, err := h.pricingService.List()
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, plans)
}

// POST /v1/admin/pricing-plans
func (h *AdminHandler) CreatePricingPlan(c *gin.Context) {
	var req services.PricingPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request format", err.Error())
		return
	}

	plan, err := h.pricingService.Create(&req)
	if err != nil {
		utils.BadRequestResponse(c, err.Error(), nil)
		return
	}

	utils.CreatedResponse(c, plan)
}

// PUT /v1/admin/pricing-plans/:id
func (h *AdminHandler) UpdatePricingPlan(c *gin.Context) {
	var req services.PricingPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request format", err.Error())
		return
	}

	plan, err := h.pricingService.Update(c.Param("id"), &req)
	if err != nil {
		if errors.Is(err, licensing.ErrNotFound) {
			utils.NotFoundResponse(c, "Pricing plan")
			return
		}
		utils.BadRequestResponse(c, err.Error(), nil)
		return
	}

	utils.SuccessResponse(c, plan)
}

// DELETE /v1/admin/pricing-plans/:id
func (h *AdminHandler) DeletePricingPlan(c *gin.Context) {
	if err := h.pricingService.Delete(c.Param("id")); err != nil {
		if errors.Is(err, licensing.ErrNotFound) {
			utils.NotFoundResponse(c, "Pricing plan")
			return
		}
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, gin.H{"deleted": true})
}
