// internal/models/common.go
package models

import (
	"database/sql/driver"
	"encoding/json"
)

// JSONB type for PostgreSQL
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}

	return json.Unmarshal(bytes, j)
}

// Enums
type LicenseType string

const (
	LicenseTypeStandalone   LicenseType = "Standalone"
	LicenseTypeSubscription LicenseType = "Subscription"
)

type LicenseStatus string

const (
	LicenseStatusActive  LicenseStatus = "Active"
	LicenseStatusExpired LicenseStatus = "Expired"
	LicenseStatusRevoked LicenseStatus = "Revoked"
)

type ClinicStatus string

const (
	ClinicStatusActive    ClinicStatus = "active"
	ClinicStatusSuspended ClinicStatus = "suspended"
	ClinicStatusInactive  ClinicStatus = "inactive"
)

type UserRole string

const (
	UserRoleAdmin      UserRole = "admin"
	UserRoleSuperAdmin UserRole = "super_admin"
)
