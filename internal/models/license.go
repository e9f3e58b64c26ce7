// internal/models/license.go
package models

import (
	"time"
)

// License is the authoritative record behind every signed license token.
// Key holds a placeholder value between creation and token attachment; once
// issuance completes it holds the signed token whose embedded licenseId
// equals ID.
type License struct {
	ID             uint          `json:"id" gorm:"primaryKey"`
	ClinicID       uint          `json:"clinic_id" gorm:"not null;index"`
	Key            string        `json:"key" gorm:"type:text;uniqueIndex;not null"`
	Type           LicenseType   `json:"type" gorm:"type:varchar(20);not null"`
	Version        string        `json:"version" gorm:"type:varchar(50);not null;default:'1.0'"`
	ActivationDate time.Time     `json:"activation_date" gorm:"not null"`
	FirstActivated *time.Time    `json:"first_activated"`
	SupportExpiry  time.Time     `json:"support_expiry" gorm:"not null;index"`
	Status         LicenseStatus `json:"status" gorm:"type:varchar(20);not null;default:'Active';index"`
	LastVerified   *time.Time    `json:"last_verified"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`

	// Relationships
	Clinic Clinic `json:"clinic,omitempty" gorm:"foreignKey:ClinicID"`
}

// IsExpired reports whether the support window has passed. The stored Status
// column may lag behind the timestamp, so expiry must always be derived from
// SupportExpiry; only Revoked is authoritative as a stored value.
func (l *License) IsExpired(now time.Time) bool {
	return l.SupportExpiry.Before(now)
}

// EffectiveStatus derives the status as observed at read time. Revoked wins
// over everything, Expired is computed from the support window.
func (l *License) EffectiveStatus(now time.Time) LicenseStatus {
	if l.Status == LicenseStatusRevoked {
		return LicenseStatusRevoked
	}
	if l.IsExpired(now) {
		return LicenseStatusExpired
	}
	return LicenseStatusActive
}
