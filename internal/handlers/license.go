// internal/handlers/license.go
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/nulldental/license-server/internal/licensing"
	"github.com/nulldental/license-server/internal/services"
	"github.com/nulldental/license-server/internal/utils"
)

type LicenseHandler struct {
	licenseService *services.LicenseService
}

func NewLicenseHandler(licenseService *services.LicenseService) *LicenseHandler {
	return &LicenseHandler{licenseService: licenseService}
}

// POST /v1/licenses
func (h *LicenseHandler) IssueLicense(c *gin.Context) {
	var req services.IssueLicenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request format", err.Error())
		return
	}

	license, err := h.licenseService.Issue(&req)
	if err != nil {
		if errors.Is(err, licensing.ErrNotFound) {
			utils.NotFoundResponse(c, "Clinic")
			return
		}
		utils.BadRequestResponse(c, err.Error(), nil)
		return
	}

	utils.CreatedResponse(c, license)
}

// GET /v1/licenses
func (h *LicenseHandler) GetLicenses(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	licenses, total, err := h.licenseService.ListLicenses(params)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(licenses, total, params))
}

// GET /v1/licenses/:id
func (h *LicenseHandler) GetLicense(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	license, err := h.licenseService.GetLicense(id)
	if err != nil {
		if errors.Is(err, licensing.ErrNotFound) {
			utils.NotFoundResponse(c, "License")
			return
		}
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, license)
}

// GET /v1/licenses/:id/token
func (h *LicenseHandler) GetLicenseToken(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	token, err := h.licenseService.Token(id)
	if err != nil {
		switch {
		case errors.Is(err, licensing.ErrNotFound):
			utils.NotFoundResponse(c, "License")
		case errors.Is(err, licensing.ErrInconsistentState):
			utils.ErrorResponse(c, http.StatusConflict, "NOT_FULLY_ISSUED",
				"License has no signed token yet; re-issue or contact support", nil)
		default:
			utils.InternalErrorResponse(c, err.Error())
		}
		return
	}

	utils.SuccessResponse(c, gin.H{"token": token})
}

// PUT /v1/licenses/:id/renew
func (h *LicenseHandler) RenewLicense(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req services.RenewLicenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request format", err.Error())
		return
	}

	license, err := h.licenseService.Renew(id, &req)
	if err != nil {
		respondLicenseError(c, err)
		return
	}

	utils.SuccessResponse(c, license)
}

// PUT /v1/licenses/:id/revoke
func (h *LicenseHandler) RevokeLicense(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	license, err := h.licenseService.Revoke(id)
	if err != nil {
		respondLicenseError(c, err)
		return
	}

	utils.SuccessResponse(c, license)
}

// PUT /v1/licenses/:id/transfer
func (h *LicenseHandler) TransferLicense(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req services.TransferLicenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request format", err.Error())
		return
	}

	license, err := h.licenseService.Transfer(id, &req)
	if err != nil {
		respondLicenseError(c, err)
		return
	}

	utils.SuccessResponse(c, license)
}

// DELETE /v1/licenses/:id
func (h *LicenseHandler) DeleteLicense(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	if err := h.licenseService.DeleteLicense(id); err != nil {
		respondLicenseError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"deleted": true})
}

func parseIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		utils.BadRequestResponse(c, "Invalid license ID", nil)
		return 0, false
	}
	return uint(id), true
}

func respondLicenseError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, licensing.ErrNotFound):
		utils.NotFoundResponse(c, "License")
	case errors.Is(err, licensing.ErrInvalidOperation):
		utils.ErrorResponse(c, http.StatusConflict, "INVALID_OPERATION",
			"Operation not allowed on a revoked license", nil)
	default:
		utils.BadRequestResponse(c, err.Error(), nil)
	}
}
