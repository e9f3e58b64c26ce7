// internal/handlers/verification.go
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/nulldental/license-server/internal/licensing"
	"github.com/nulldental/license-server/internal/services"
)

// VerificationHandler serves the endpoints consumed by remote clinic
// deployments. Both are unauthenticated: the security boundary is the token
// signature, not the request. Responses here deliberately bypass the
// management API envelope and mirror the wire shape clinics already parse.
type VerificationHandler struct {
	licenseService *services.LicenseService
}

func NewVerificationHandler(licenseService *services.LicenseService) *VerificationHandler {
	return &VerificationHandler{licenseService: licenseService}
}

type validateRequest struct {
	License string `json:"license"`
}

// PUT /v1/validate
func (h *VerificationHandler) ValidateLicense(c *gin.Context) {
	var req validateRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.License == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"valid":  false,
			"reason": "license token required",
		})
		return
	}

	result, err := h.licenseService.Validate(req.License)
	if err != nil {
		// Internal failures are indistinguishable from bad tokens on
		// purpose; details stay in the server log.
		c.JSON(http.StatusInternalServerError, gin.H{
			"valid":  false,
			"reason": "validation failed",
		})
		return
	}

	if !result.Valid {
		c.JSON(http.StatusBadRequest, result)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GET /v1/licenses/status?licenseId=
func (h *VerificationHandler) CheckStatus(c *gin.Context) {
	idStr := c.Query("licenseId")
	if idStr == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "licenseId is required"})
		return
	}

	id, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "licenseId must be an integer"})
		return
	}

	result, err := h.licenseService.CheckStatus(uint(id))
	if err != nil {
		if errors.Is(err, licensing.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "License not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check license status"})
		return
	}

	c.JSON(http.StatusOK, result)
}
