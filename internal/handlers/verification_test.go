// internal/handlers/verification_test.go
package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/nulldental/license-server/internal/licensing"
	"github.com/nulldental/license-server/internal/models"
	"github.com/nulldental/license-server/internal/services"
	"github.com/nulldental/license-server/internal/store/storetest"
)

type VerificationTestSuite struct {
	suite.Suite
	store          *storetest.MemLicenseStore
	licenseService *services.LicenseService
	router         *gin.Engine
}

func (suite *VerificationTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)

	keys, err := licensing.NewKeyProvider(licensing.NewFileKeyStore(suite.T().TempDir()))
	require.NoError(suite.T(), err)
	codec := licensing.NewTokenCodec(keys, "", "")

	suite.store = storetest.NewMemLicenseStore()
	suite.store.AddClinic(&models.Clinic{
		ID:     1,
		Name:   "Bright Smile Dental",
		Domain: "brightsmile.example.com",
		Status: models.ClinicStatusActive,
	})

	suite.licenseService = services.NewLicenseService(suite.store, suite.store, codec, nil)
	handler := NewVerificationHandler(suite.licenseService)

	suite.router = gin.New()
	v1 := suite.router.Group("/v1")
	v1.PUT("/validate", handler.ValidateLicense)
	v1.GET("/licenses/status", handler.CheckStatus)
}

func (suite *VerificationTestSuite) issueLicense(expiry time.Time) *models.License {
	license, err := suite.licenseService.Issue(&services.IssueLicenseRequest{
		ClinicID:      1,
		Type:          models.LicenseTypeStandalone,
		SupportExpiry: expiry,
	})
	require.NoError(suite.T(), err)
	return license
}

func (suite *VerificationTestSuite) validate(token string) (*httptest.ResponseRecorder, map[string]interface{}) {
	body, _ := json.Marshal(map[string]string{"license": token})
	req, _ := http.NewRequest("PUT", "/v1/validate", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	var response map[string]interface{}
	require.NoError(suite.T(), json.Unmarshal(w.Body.Bytes(), &response))
	return w, response
}

func (suite *VerificationTestSuite) TestValidateIssuedLicense() {
	license := suite.issueLicense(time.Now().Add(365 * 24 * time.Hour))

	w, response := suite.validate(license.Key)
	assert.Equal(suite.T(), http.StatusOK, w.Code)
	assert.True(suite.T(), response["valid"].(bool))
	assert.True(suite.T(), response["firstActivation"].(bool))

	details := response["license"].(map[string]interface{})
	assert.Equal(suite.T(), float64(license.ID), details["id"])
	assert.Equal(suite.T(), "Bright Smile Dental", details["clinicName"])
	assert.Equal(suite.T(), "brightsmile.example.com", details["clinicDomain"])

	// Second validation is no longer a first activation.
	w, response = suite.validate(license.Key)
	assert.Equal(suite.T(), http.StatusOK, w.Code)
	assert.True(suite.T(), response["valid"].(bool))
	_, present := response["firstActivation"]
	assert.False(suite.T(), present)
}

func (suite *VerificationTestSuite) TestValidateGarbageToken() {
	w, response := suite.validate("not-a-token")
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
	assert.False(suite.T(), response["valid"].(bool))
	assert.Equal(suite.T(), "invalid token", response["reason"])
}

func (suite *VerificationTestSuite) TestValidateMissingToken() {
	req, _ := http.NewRequest("PUT", "/v1/validate", bytes.NewBufferString(`{}`))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
	var response map[string]interface{}
	require.NoError(suite.T(), json.Unmarshal(w.Body.Bytes(), &response))
	assert.False(suite.T(), response["valid"].(bool))
	assert.Equal(suite.T(), "license token required", response["reason"])
}

func (suite *VerificationTestSuite) TestValidateRevokedLicense() {
	license := suite.issueLicense(time.Now().Add(365 * 24 * time.Hour))

	w, response := suite.validate(license.Key)
	assert.Equal(suite.T(), http.StatusOK, w.Code)
	assert.True(suite.T(), response["valid"].(bool))

	_, err := suite.licenseService.Revoke(license.ID)
	require.NoError(suite.T(), err)

	w, response = suite.validate(license.Key)
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
	assert.False(suite.T(), response["valid"].(bool))
	assert.Equal(suite.T(), "revoked", response["reason"])
}

func (suite *VerificationTestSuite) TestValidateExpiredLicense() {
	license := suite.issueLicense(time.Now().Add(-24 * time.Hour))

	w, response := suite.validate(license.Key)
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
	assert.False(suite.T(), response["valid"].(bool))
	assert.Equal(suite.T(), "expired", response["reason"])
	assert.True(suite.T(), response["expired"].(bool))
}

func (suite *VerificationTestSuite) TestCheckStatus() {
	license := suite.issueLicense(time.Now().Add(365 * 24 * time.Hour))

	req, _ := http.NewRequest("GET", fmt.Sprintf("/v1/licenses/status?licenseId=%d", license.ID), nil)
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	assert.Equal(suite.T(), http.StatusOK, w.Code)
	var response map[string]interface{}
	require.NoError(suite.T(), json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(suite.T(), "Active", response["status"])
	assert.Nil(suite.T(), response["lastVerified"])

	// The check above counted as a verification event.
	w = httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	require.NoError(suite.T(), json.Unmarshal(w.Body.Bytes(), &response))
	assert.NotNil(suite.T(), response["lastVerified"])
}

func (suite *VerificationTestSuite) TestCheckStatusMissingParam() {
	req, _ := http.NewRequest("GET", "/v1/licenses/status", nil)
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
}

func (suite *VerificationTestSuite) TestCheckStatusUnknownLicense() {
	req, _ := http.NewRequest("GET", "/v1/licenses/status?licenseId=999", nil)
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	assert.Equal(suite.T(), http.StatusNotFound, w.Code)
}

func TestVerificationTestSuite(t *testing.T) {
	suite.Run(t, new(VerificationTestSuite))
}
