// internal/models/admin.go
package models

import (
	"time"

	"github.com/lib/pq"
)

// GlobalSetting is a single key/value row consulted by collaborating
// services (email toggles, admin contact address).
type GlobalSetting struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Key         string    `json:"key" gorm:"type:varchar(100);uniqueIndex;not null"`
	Value       string    `json:"value" gorm:"type:text;not null"`
	Description string    `json:"description,omitempty" gorm:"type:text"`
	UpdatedBy   *uint     `json:"updated_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Well-known setting keys.
const (
	SettingEmailNotificationsEnabled = "emailNotificationsEnabled"
	SettingEmailNewClinicAdded       = "emailNewClinicAdded"
	SettingAdminEmailAddress         = "adminEmailAddress"
)

// PricingPlan is a catalog row describing a purchasable plan. Prices are in
// cents; no payment processing happens in this system.
type PricingPlan struct {
	ID           string         `json:"id" gorm:"type:varchar(50);primaryKey"`
	Name         string         `json:"name" gorm:"type:varchar(100);not null"`
	Type         LicenseType    `json:"type" gorm:"type:varchar(20);not null"`
	MonthlyPrice int64          `json:"monthly_price" gorm:"not null"`
	YearlyPrice  int64          `json:"yearly_price" gorm:"not null"`
	Description  string         `json:"description" gorm:"type:text"`
	Features     pq.StringArray `json:"features" gorm:"type:text[]"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

type AuditLog struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	UserID       *uint     `json:"user_id" gorm:"index"`
	Action       string    `json:"action" gorm:"type:varchar(255);not null"`
	ResourceType string    `json:"resource_type" gorm:"type:varchar(50);index"`
	ResourceID   *uint     `json:"resource_id"`
	IPAddress    string    `json:"ip_address" gorm:"type:varchar(45)"`
	UserAgent    string    `json:"user_agent" gorm:"type:text"`
	NewValues    JSONB     `json:"new_values" gorm:"type:jsonb"`
	CreatedAt    time.Time `json:"created_at"`
}

type AdminNotification struct {
	ID                  uint       `json:"id" gorm:"primaryKey"`
	Type                string     `json:"type" gorm:"type:varchar(50);not null;index"`
	Title               string     `json:"title" gorm:"type:varchar(255);not null"`
	Message             string     `json:"message" gorm:"type:text;not null"`
	Priority            string     `json:"priority" gorm:"type:varchar(20);not null;default:'medium'"`
	RelatedResourceType string     `json:"related_resource_type,omitempty" gorm:"type:varchar(50)"`
	RelatedResourceID   *uint      `json:"related_resource_id,omitempty"`
	ReadAt              *time.Time `json:"read_at"`
	CreatedAt           time.Time  `json:"created_at"`
}
