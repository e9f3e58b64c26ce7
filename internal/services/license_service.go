// internal/services/license_service.go
package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/nulldental/license-server/internal/licensing"
	"github.com/nulldental/license-server/internal/models"
	"github.com/nulldental/license-server/internal/utils"
)

// LicenseRecords is the authoritative license row store. The GORM-backed
// implementation lives in internal/store; tests substitute an in-memory one.
type LicenseRecords interface {
	Create(license *models.License) error
	GetByID(id uint) (*models.License, error)
	List(offset, limit int) ([]models.License, int64, error)
	AttachToken(id uint, token string) (*models.License, error)
	MarkFirstActivation(id uint) (*models.License, bool, error)
	TouchLastVerified(id uint) error
	Revoke(id uint) (*models.License, error)
	Renew(id uint, newExpiry time.Time) (*models.License, error)
	Transfer(id uint, clinicID uint) (*models.License, error)
	Delete(id uint) error
}

// ClinicDirectory resolves clinic references during issuance and transfer.
type ClinicDirectory interface {
	GetClinic(id uint) (*models.Clinic, error)
}

// LicenseNotifier receives lifecycle events; delivery is best-effort and
// must never fail the operation that triggered it.
type LicenseNotifier interface {
	LicenseIssued(license *models.License)
}

// LicenseService orchestrates issuance, validation, renewal, revocation and
// transfer. Key material and the token codec are injected at startup; the
// service itself holds no signing state.
type LicenseService struct {
	records  LicenseRecords
	clinics  ClinicDirectory
	codec    *licensing.TokenCodec
	notifier LicenseNotifier
}

type IssueLicenseRequest struct {
	ClinicID      uint               `json:"clinic_id" validate:"required"`
	Type          models.LicenseType `json:"type" validate:"required,license_type"`
	SupportExpiry time.Time          `json:"support_expiry" validate:"required"`
	Version       string             `json:"version"`
}

type RenewLicenseRequest struct {
	SupportExpiry time.Time `json:"support_expiry" validate:"required"`
}

type TransferLicenseRequest struct {
	ClinicID uint `json:"clinic_id" validate:"required"`
}

// ValidationResult is the verdict returned to clinic deployments. Failures
// carry a reason string only; internals are never exposed.
type ValidationResult struct {
	Valid           bool            `json:"valid"`
	Reason          string          `json:"reason,omitempty"`
	Expired         bool            `json:"expired,omitempty"`
	FirstActivation bool            `json:"firstActivation,omitempty"`
	License         *LicenseDetails `json:"license,omitempty"`
}

// LicenseDetails is the display subset embedded in a successful validation
// response. Never includes the token or any signing material.
type LicenseDetails struct {
	ID             uint       `json:"id"`
	ClinicID       uint       `json:"clinicId"`
	ClinicName     string     `json:"clinicName"`
	ClinicDomain   string     `json:"clinicDomain"`
	Type           string     `json:"type"`
	Version        string     `json:"version"`
	ActivationDate time.Time  `json:"activationDate"`
	FirstActivated *time.Time `json:"firstActivated"`
	SupportExpiry  time.Time  `json:"supportExpiry"`
}

type StatusResult struct {
	Status       models.LicenseStatus `json:"status"`
	LastVerified *time.Time           `json:"lastVerified"`
}

const reasonInvalidToken = "invalid token"

func NewLicenseService(records LicenseRecords, clinics ClinicDirectory, codec *licensing.TokenCodec, notifier LicenseNotifier) *LicenseService {
	return &LicenseService{
		records:  records,
		clinics:  clinics,
		codec:    codec,
		notifier: notifier,
	}
}

// Issue creates a license record and binds a signed token to it. The write
// is two-phase: the row is created first with a placeholder key because the
// token must embed the row's own generated id, then the minted token
// replaces the placeholder. A crash between the phases leaves a recoverable
// "not fully issued" row, never an invalid license.
func (s *LicenseService) Issue(req *IssueLicenseRequest) (*models.License, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	clinic, err := s.clinics.GetClinic(req.ClinicID)
	if err != nil {
		return nil, fmt.Errorf("clinic lookup failed: %w", err)
	}

	version := req.Version
	if version == "" {
		version = "1.0"
	}

	license := &models.License{
		ClinicID:       clinic.ID,
		Key:            uuid.NewString(),
		Type:           req.Type,
		Version:        version,
		ActivationDate: time.Now(),
		SupportExpiry:  req.SupportExpiry,
		Status:         models.LicenseStatusActive,
	}

	if err := s.records.Create(license); err != nil {
		return nil, err
	}

	token, err := s.codec.Mint(licensing.TokenInput{
		LicenseID:      license.ID,
		ClinicID:       license.ClinicID,
		Type:           string(license.Type),
		Version:        license.Version,
		ActivationDate: license.ActivationDate,
		SupportExpiry:  license.SupportExpiry,
	})
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"license_id": license.ID,
			"error":      err,
		}).Error("Token minting failed; license left unissued")
		return nil, fmt.Errorf("failed to mint license token: %w", err)
	}

	license, err = s.records.AttachToken(license.ID, token)
	if err != nil {
		return nil, err
	}

	if s.notifier != nil {
		go s.notifier.LicenseIssued(license)
	}

	logrus.WithFields(logrus.Fields{
		"license_id": license.ID,
		"clinic_id":  license.ClinicID,
		"type":       license.Type,
	}).Info("License issued")

	return license, nil
}

// Validate verifies a submitted token and cross-checks it against the
// authoritative record. Check order is fixed: signature, record lookup,
// expiry, revocation, then first-activation marking — an expired or revoked
// license never gets its first activation recorded. After a transfer the
// record's clinic binding wins over the token's embedded clinicId claim.
func (s *LicenseService) Validate(tokenString string) (*ValidationResult, error) {
	claims, err := s.codec.Verify(tokenString)
	if err != nil {
		// Malformed, bad signature and wrong issuer/audience all collapse
		// into one reason so probing callers learn nothing.
		return &ValidationResult{Valid: false, Reason: reasonInvalidToken}, nil
	}

	license, err := s.records.GetByID(uint(claims.LicenseID))
	if err != nil {
		if errors.Is(err, licensing.ErrNotFound) {
			return &ValidationResult{Valid: false, Reason: "not found"}, nil
		}
		return nil, err
	}

	if license.IsExpired(time.Now()) {
		return &ValidationResult{Valid: false, Reason: "expired", Expired: true}, nil
	}

	if license.Status == models.LicenseStatusRevoked {
		return &ValidationResult{Valid: false, Reason: "revoked"}, nil
	}

	license, firstActivation, err := s.records.MarkFirstActivation(license.ID)
	if err != nil {
		return nil, err
	}

	if err := s.records.TouchLastVerified(license.ID); err != nil {
		return nil, err
	}

	return &ValidationResult{
		Valid:           true,
		FirstActivation: firstActivation,
		License: &LicenseDetails{
			ID:             license.ID,
			ClinicID:       license.ClinicID,
			ClinicName:     license.Clinic.Name,
			ClinicDomain:   license.Clinic.Domain,
			Type:           string(license.Type),
			Version:        license.Version,
			ActivationDate: license.ActivationDate,
			FirstActivated: license.FirstActivated,
			SupportExpiry:  license.SupportExpiry,
		},
	}, nil
}

// CheckStatus reports the observed status and the previous verification
// time, then records this check as a verification event. Expiry is derived
// from the support window; the stored status column is only trusted for the
// terminal Revoked state.
func (s *LicenseService) CheckStatus(id uint) (*StatusResult, error) {
	license, err := s.records.GetByID(id)
	if err != nil {
		return nil, err
	}

	result := &StatusResult{
		Status:       license.EffectiveStatus(time.Now()),
		LastVerified: license.LastVerified,
	}

	if err := s.records.TouchLastVerified(id); err != nil {
		return nil, err
	}

	return result, nil
}

func (s *LicenseService) GetLicense(id uint) (*models.License, error) {
	return s.records.GetByID(id)
}

func (s *LicenseService) ListLicenses(params utils.PaginationParams) ([]models.License, int64, error) {
	return s.records.List(params.Offset(), params.Limit)
}

// Token returns the distributable signed token for a license. A row still
// carrying its issuance placeholder is reported as not fully issued, which
// callers must treat as a recoverable state distinct from an invalid token.
func (s *LicenseService) Token(id uint) (string, error) {
	license, err := s.records.GetByID(id)
	if err != nil {
		return "", err
	}

	if _, err := s.codec.Verify(license.Key); err != nil {
		return "", fmt.Errorf("%w: license %d", licensing.ErrInconsistentState, id)
	}

	return license.Key, nil
}

func (s *LicenseService) Renew(id uint, req *RenewLicenseRequest) (*models.License, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	license, err := s.records.Renew(id, req.SupportExpiry)
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"license_id":     license.ID,
		"support_expiry": license.SupportExpiry,
	}).Info("License renewed")

	return license, nil
}

func (s *LicenseService) Revoke(id uint) (*models.License, error) {
	license, err := s.records.Revoke(id)
	if err != nil {
		return nil, err
	}

	logrus.WithField("license_id", license.ID).Info("License revoked")
	return license, nil
}

// Transfer reassigns the license to another clinic. The token is not
// re-minted, so its embedded clinicId claim goes stale; Validate trusts the
// record's current binding instead, which keeps the old token string usable
// without redistribution.
func (s *LicenseService) Transfer(id uint, req *TransferLicenseRequest) (*models.License, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	if _, err := s.clinics.GetClinic(req.ClinicID); err != nil {
		return nil, fmt.Errorf("clinic lookup failed: %w", err)
	}

	license, err := s.records.Transfer(id, req.ClinicID)
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"license_id": license.ID,
		"clinic_id":  license.ClinicID,
	}).Info("License transferred")

	return license, nil
}

func (s *LicenseService) DeleteLicense(id uint) error {
	return s.records.Delete(id)
}
