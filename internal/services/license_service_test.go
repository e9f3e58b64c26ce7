// internal/services/license_service_test.go
package services

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nulldental/license-server/internal/licensing"
	"github.com/nulldental/license-server/internal/models"
	"github.com/nulldental/license-server/internal/store/storetest"
)

type licenseServiceFixture struct {
	store   *storetest.MemLicenseStore
	codec   *licensing.TokenCodec
	service *LicenseService
}

func newLicenseServiceFixture(t *testing.T) *licenseServiceFixture {
	t.Helper()

	keys, err := licensing.NewKeyProvider(licensing.NewFileKeyStore(t.TempDir()))
	require.NoError(t, err)
	codec := licensing.NewTokenCodec(keys, "", "")

	memStore := storetest.NewMemLicenseStore()
	memStore.AddClinic(&models.Clinic{
		ID:     1,
		Name:   "Bright Smile Dental",
		Domain: "brightsmile.example.com",
		Status: models.ClinicStatusActive,
	})
	memStore.AddClinic(&models.Clinic{
		ID:     2,
		Name:   "Downtown Dental",
		Domain: "downtown.example.com",
		Status: models.ClinicStatusActive,
	})

	return &licenseServiceFixture{
		store:   memStore,
		codec:   codec,
		service: NewLicenseService(memStore, memStore, codec, nil),
	}
}

func (f *licenseServiceFixture) issue(t *testing.T, clinicID uint, expiry time.Time) *models.License {
	t.Helper()
	license, err := f.service.Issue(&IssueLicenseRequest{
		ClinicID:      clinicID,
		Type:          models.LicenseTypeStandalone,
		SupportExpiry: expiry,
	})
	require.NoError(t, err)
	return license
}

func TestIssueEmbedsRecordID(t *testing.T) {
	f := newLicenseServiceFixture(t)

	license := f.issue(t, 1, time.Now().Add(365*24*time.Hour))
	require.NotZero(t, license.ID)

	claims, err := f.codec.Verify(license.Key)
	require.NoError(t, err, "stored key must be the signed token, not the placeholder")
	assert.Equal(t, int(license.ID), claims.LicenseID)
	assert.Equal(t, 1, claims.ClinicID)
	assert.Equal(t, "Standalone", claims.Type)
	assert.Equal(t, "1.0", claims.Version)
}

func TestIssueUnknownClinic(t *testing.T) {
	f := newLicenseServiceFixture(t)

	_, err := f.service.Issue(&IssueLicenseRequest{
		ClinicID:      99,
		Type:          models.LicenseTypeStandalone,
		SupportExpiry: time.Now().Add(24 * time.Hour),
	})
	assert.ErrorIs(t, err, licensing.ErrNotFound)
}

func TestValidateMarksFirstActivationOnce(t *testing.T) {
	f := newLicenseServiceFixture(t)
	license := f.issue(t, 1, time.Now().Add(365*24*time.Hour))

	first, err := f.service.Validate(license.Key)
	require.NoError(t, err)
	assert.True(t, first.Valid)
	assert.True(t, first.FirstActivation)
	require.NotNil(t, first.License)
	assert.Equal(t, "Bright Smile Dental", first.License.ClinicName)
	assert.Equal(t, "brightsmile.example.com", first.License.ClinicDomain)
	assert.NotNil(t, first.License.FirstActivated)

	second, err := f.service.Validate(license.Key)
	require.NoError(t, err)
	assert.True(t, second.Valid)
	assert.False(t, second.FirstActivation)

	stored, err := f.store.GetByID(license.ID)
	require.NoError(t, err)
	assert.NotNil(t, stored.LastVerified)
}

func TestValidateConcurrentFirstActivation(t *testing.T) {
	f := newLicenseServiceFixture(t)
	license := f.issue(t, 1, time.Now().Add(365*24*time.Hour))

	const workers = 16
	results := make([]*ValidationResult, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			result, err := f.service.Validate(license.Key)
			assert.NoError(t, err)
			results[i] = result
		}(i)
	}
	wg.Wait()

	firstActivations := 0
	for _, result := range results {
		require.NotNil(t, result)
		assert.True(t, result.Valid)
		if result.FirstActivation {
			firstActivations++
		}
	}
	assert.Equal(t, 1, firstActivations, "exactly one validation may observe first activation")
}

func TestValidateGarbageToken(t *testing.T) {
	f := newLicenseServiceFixture(t)

	result, err := f.service.Validate("not-a-token")
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Equal(t, "invalid token", result.Reason)
	assert.Nil(t, result.License)
}

func TestValidateUnknownRecord(t *testing.T) {
	f := newLicenseServiceFixture(t)

	token, err := f.codec.Mint(licensing.TokenInput{
		LicenseID:      999,
		ClinicID:       1,
		Type:           "Standalone",
		Version:        "1.0",
		ActivationDate: time.Now(),
		SupportExpiry:  time.Now().Add(24 * time.Hour),
	})
	require.NoError(t, err)

	result, err := f.service.Validate(token)
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Equal(t, "not found", result.Reason)
}

func TestValidateExpiredSkipsFirstActivation(t *testing.T) {
	f := newLicenseServiceFixture(t)
	license := f.issue(t, 1, time.Now().Add(-24*time.Hour))

	result, err := f.service.Validate(license.Key)
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Equal(t, "expired", result.Reason)
	assert.True(t, result.Expired)

	stored, err := f.store.GetByID(license.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.FirstActivated, "expired validation must not consume first activation")
}

func TestValidateRevoked(t *testing.T) {
	f := newLicenseServiceFixture(t)
	license := f.issue(t, 1, time.Now().Add(365*24*time.Hour))

	_, err := f.service.Revoke(license.ID)
	require.NoError(t, err)

	result, err := f.service.Validate(license.Key)
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Equal(t, "revoked", result.Reason)
}

func TestRevokeIsTerminal(t *testing.T) {
	f := newLicenseServiceFixture(t)
	license := f.issue(t, 1, time.Now().Add(365*24*time.Hour))

	revoked, err := f.service.Revoke(license.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LicenseStatusRevoked, revoked.Status)

	// Revoking again is a no-op, not an error.
	again, err := f.service.Revoke(license.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LicenseStatusRevoked, again.Status)

	_, err = f.service.Renew(license.ID, &RenewLicenseRequest{
		SupportExpiry: time.Now().Add(48 * time.Hour),
	})
	assert.ErrorIs(t, err, licensing.ErrInvalidOperation)

	_, err = f.service.Transfer(license.ID, &TransferLicenseRequest{ClinicID: 2})
	assert.ErrorIs(t, err, licensing.ErrInvalidOperation)
}

func TestRenewRestoresExpiredLicense(t *testing.T) {
	f := newLicenseServiceFixture(t)
	license := f.issue(t, 1, time.Now().Add(-24*time.Hour))

	newExpiry := time.Now().Add(365 * 24 * time.Hour)
	renewed, err := f.service.Renew(license.ID, &RenewLicenseRequest{SupportExpiry: newExpiry})
	require.NoError(t, err)
	assert.True(t, renewed.SupportExpiry.Equal(newExpiry))

	result, err := f.service.Validate(license.Key)
	require.NoError(t, err)
	assert.True(t, result.Valid)
}

func TestTransferRebindsWithoutRemint(t *testing.T) {
	f := newLicenseServiceFixture(t)
	license := f.issue(t, 1, time.Now().Add(365*24*time.Hour))

	transferred, err := f.service.Transfer(license.ID, &TransferLicenseRequest{ClinicID: 2})
	require.NoError(t, err)
	assert.Equal(t, uint(2), transferred.ClinicID)
	assert.Equal(t, license.Key, transferred.Key, "transfer must not re-mint the token")

	// The token's embedded clinicId is stale; the record binding wins.
	result, err := f.service.Validate(license.Key)
	require.NoError(t, err)
	require.True(t, result.Valid)
	assert.Equal(t, uint(2), result.License.ClinicID)
	assert.Equal(t, "Downtown Dental", result.License.ClinicName)
}

func TestTransferToUnknownClinic(t *testing.T) {
	f := newLicenseServiceFixture(t)
	license := f.issue(t, 1, time.Now().Add(365*24*time.Hour))

	_, err := f.service.Transfer(license.ID, &TransferLicenseRequest{ClinicID: 99})
	assert.ErrorIs(t, err, licensing.ErrNotFound)

	stored, err := f.store.GetByID(license.ID)
	require.NoError(t, err)
	assert.Equal(t, uint(1), stored.ClinicID)
}

func TestCheckStatusReportsPreviousVerification(t *testing.T) {
	f := newLicenseServiceFixture(t)
	license := f.issue(t, 1, time.Now().Add(365*24*time.Hour))

	first, err := f.service.CheckStatus(license.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LicenseStatusActive, first.Status)
	assert.Nil(t, first.LastVerified, "first check reports the state before this check")

	second, err := f.service.CheckStatus(license.ID)
	require.NoError(t, err)
	assert.NotNil(t, second.LastVerified)
}

func TestCheckStatusDerivesExpiry(t *testing.T) {
	f := newLicenseServiceFixture(t)
	license := f.issue(t, 1, time.Now().Add(-24*time.Hour))

	result, err := f.service.CheckStatus(license.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LicenseStatusExpired, result.Status)
}

func TestTokenOnPartiallyIssuedLicense(t *testing.T) {
	f := newLicenseServiceFixture(t)

	// A crash between row creation and token attachment leaves the
	// placeholder key behind.
	stuck := &models.License{
		ClinicID:       1,
		Key:            uuid.NewString(),
		Type:           models.LicenseTypeStandalone,
		Version:        "1.0",
		ActivationDate: time.Now(),
		SupportExpiry:  time.Now().Add(365 * 24 * time.Hour),
		Status:         models.LicenseStatusActive,
	}
	require.NoError(t, f.store.Create(stuck))

	_, err := f.service.Token(stuck.ID)
	assert.ErrorIs(t, err, licensing.ErrInconsistentState)

	issued := f.issue(t, 1, time.Now().Add(365*24*time.Hour))
	token, err := f.service.Token(issued.ID)
	require.NoError(t, err)
	assert.Equal(t, issued.Key, token)
}
