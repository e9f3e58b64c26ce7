// internal/models/clinic.go
package models

import (
	"time"
)

// Clinic is a remote deployment that licenses are issued to. The licensing
// core treats it as a foreign key target plus a few display fields embedded
// in validation responses and notification emails.
type Clinic struct {
	ID                 uint         `json:"id" gorm:"primaryKey"`
	Name               string       `json:"name" gorm:"type:varchar(255);not null"`
	Domain             string       `json:"domain" gorm:"type:varchar(255);uniqueIndex;not null"`
	DBConnectionString string       `json:"db_connection_string,omitempty" gorm:"type:text"`
	LicenseType        LicenseType  `json:"license_type" gorm:"type:varchar(20);not null;default:'Subscription'"`
	AdminContact       string       `json:"admin_contact" gorm:"type:varchar(255)"`
	SupportExpiry      *time.Time   `json:"support_expiry"`
	Status             ClinicStatus `json:"status" gorm:"type:varchar(20);not null;default:'active';index"`
	CreatedAt          time.Time    `json:"created_at"`
	UpdatedAt          time.Time    `json:"updated_at"`

	// Relationships
	Licenses []License `json:"licenses,omitempty" gorm:"foreignKey:ClinicID"`
}
