// internal/handlers/clinic.go
package handlers

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/nulldental/license-server/internal/licensing"
	"github.com/nulldental/license-server/internal/services"
	"github.com/nulldental/license-server/internal/utils"
)

type ClinicHandler struct {
	clinicService *services.ClinicService
}

func NewClinicHandler(clinicService *services.ClinicService) *ClinicHandler {
	return &ClinicHandler{clinicService: clinicService}
}

// GET /v1/clinics
func (h *ClinicHandler) GetClinics(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	clinics, total, err := h.clinicService.ListClinics(params)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(clinics, total, params))
}

// GET /v1/clinics/:id
func (h *ClinicHandler) GetClinic(c *gin.Context) {
	id, ok := parseClinicID(c)
	if !ok {
		return
	}

	clinic, err := h.clinicService.GetClinicWithLicenses(id)
	if err != nil {
		if errors.Is(err, licensing.ErrNotFound) {
			utils.NotFoundResponse(c, "Clinic")
			return
		}
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, clinic)
}

// POST /v1/clinics
func (h *ClinicHandler) CreateClinic(c *gin.Context) {
	var req services.CreateClinicRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request format", err.Error())
		return
	}

	clinic, err := h.clinicService.CreateClinic(&req)
	if err != nil {
		utils.BadRequestResponse(c, err.Error(), nil)
		return
	}

	utils.CreatedResponse(c, clinic)
}

// PUT /v1/clinics/:id
func (h *ClinicHandler) UpdateClinic(c *gin.Context) {
	id, ok := parseClinicID(c)
	if !ok {
		return
	}

	var req services.UpdateClinicRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request format", err.Error())
		return
	}

	clinic, err := h.clinicService.UpdateClinic(id, &req)
	if err != nil {
		if errors.Is(err, licensing.ErrNotFound) {
			utils.NotFoundResponse(c, "Clinic")
			return
		}
		utils.BadRequestResponse(c, err.Error(), nil)
		return
	}

	utils.SuccessResponse(c, clinic)
}

// DELETE /v1/clinics/:id
func (h *ClinicHandler) DeleteClinic(c *gin.Context) {
	id, ok := parseClinicID(c)
	if !ok {
		return
	}

	if err := h.clinicService.DeleteClinic(id); err != nil {
		if errors.Is(err, licensing.ErrNotFound) {
			utils.NotFoundResponse(c, "Clinic")
			return
		}
		utils.ConflictResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, gin.H{"deleted": true})
}

func parseClinicID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		utils.BadRequestResponse(c, "Invalid clinic ID", nil)
		return 0, false
	}
	return uint(id), true
}
