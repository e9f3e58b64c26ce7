// internal/services/notification_service.go
package services

import (
	"bytes"
	"fmt"
	"html/template"
	"net/smtp"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/nulldental/license-server/internal/config"
	"github.com/nulldental/license-server/internal/models"
)

// NotificationService records lifecycle events as admin notifications and
// optionally mirrors them to the configured admin mailbox. Email content is
// deliberately plain; formatting and theming live outside this system.
type NotificationService struct {
	db       *gorm.DB
	cfg      *config.Config
	settings *SettingsService
}

func NewNotificationService(db *gorm.DB, cfg *config.Config, settings *SettingsService) *NotificationService {
	return &NotificationService{
		db:       db,
		cfg:      cfg,
		settings: settings,
	}
}

// LicenseIssued implements LicenseNotifier.
func (s *NotificationService) LicenseIssued(license *models.License) {
	notification := &models.AdminNotification{
		Type:                "license_issued",
		Title:               "License Issued",
		Message:             fmt.Sprintf("A %s license (v%s) was issued to %s", license.Type, license.Version, license.Clinic.Name),
		Priority:            "medium",
		RelatedResourceType: "license",
		RelatedResourceID:   &license.ID,
	}
	if err := s.db.Create(notification).Error; err != nil {
		logrus.WithError(err).Error("Failed to create license issued notification")
	}

	recipient, ok := s.settings.EmailRecipient()
	if !ok {
		return
	}

	data := map[string]interface{}{
		"ClinicName":     license.Clinic.Name,
		"ClinicDomain":   license.Clinic.Domain,
		"LicenseType":    string(license.Type),
		"Version":        license.Version,
		"ActivationDate": license.ActivationDate.Format("2006-01-02"),
		"SupportExpiry":  license.SupportExpiry.Format("2006-01-02"),
	}

	if err := s.sendEmail(recipient, "License Issued", licenseIssuedTemplate, data); err != nil {
		logrus.WithError(err).Error("Failed to send license issued email")
	}
}

// LicenseExpiryWarning notifies the admin mailbox about a license nearing
// the end of its support window.
func (s *NotificationService) LicenseExpiryWarning(license *models.License, daysLeft int) {
	notification := &models.AdminNotification{
		Type:                "license_expiry",
		Title:               "License Expiring Soon",
		Message:             fmt.Sprintf("License %d for %s expires in %d days", license.ID, license.Clinic.Name, daysLeft),
		Priority:            "high",
		RelatedResourceType: "license",
		RelatedResourceID:   &license.ID,
	}
	if err := s.db.Create(notification).Error; err != nil {
		logrus.WithError(err).Error("Failed to create expiry warning notification")
	}

	recipient, ok := s.settings.EmailRecipient()
	if !ok {
		return
	}

	data := map[string]interface{}{
		"ClinicName":    license.Clinic.Name,
		"LicenseID":     license.ID,
		"DaysLeft":      daysLeft,
		"SupportExpiry": license.SupportExpiry.Format("2006-01-02"),
	}

	if err := s.sendEmail(recipient, "License Expiring Soon", expiryWarningTemplate, data); err != nil {
		logrus.WithError(err).Error("Failed to send expiry warning email")
	}
}

// ClinicAdded notifies about a newly registered clinic, gated by its own
// settings toggle on top of the global email switch.
func (s *NotificationService) ClinicAdded(clinic *models.Clinic) {
	notification := &models.AdminNotification{
		Type:                "clinic_added",
		Title:               "New Clinic Added",
		Message:             fmt.Sprintf("Clinic %s (%s) was registered", clinic.Name, clinic.Domain),
		Priority:            "low",
		RelatedResourceType: "clinic",
		RelatedResourceID:   &clinic.ID,
	}
	if err := s.db.Create(notification).Error; err != nil {
		logrus.WithError(err).Error("Failed to create clinic added notification")
	}

	if !s.settings.NewClinicEmailEnabled() {
		return
	}
	recipient, ok := s.settings.EmailRecipient()
	if !ok {
		return
	}

	data := map[string]interface{}{
		"ClinicName":   clinic.Name,
		"ClinicDomain": clinic.Domain,
		"AdminContact": clinic.AdminContact,
	}

	if err := s.sendEmail(recipient, "New Clinic Added", newClinicTemplate, data); err != nil {
		logrus.WithError(err).Error("Failed to send new clinic email")
	}
}

// SweepExpiringLicenses warns once per license about support windows ending
// within the next 30 days. Meant to run on a daily ticker.
func (s *NotificationService) SweepExpiringLicenses() {
	now := time.Now()
	cutoff := now.Add(30 * 24 * time.Hour)

	var licenses []models.License
	err := s.db.Preload("Clinic").
		Where("status <> ? AND support_expiry > ? AND support_expiry < ?",
			models.LicenseStatusRevoked, now, cutoff).
		Find(&licenses).Error
	if err != nil {
		logrus.WithError(err).Error("Failed to query expiring licenses")
		return
	}

	for i := range licenses {
		license := &licenses[i]

		var count int64
		s.db.Model(&models.AdminNotification{}).
			Where("type = ? AND related_resource_id = ?", "license_expiry", license.ID).
			Count(&count)
		if count > 0 {
			continue
		}

		daysLeft := int(license.SupportExpiry.Sub(now).Hours() / 24)
		s.LicenseExpiryWarning(license, daysLeft)
	}
}

func (s *NotificationService) sendEmail(to, subject, tmpl string, data map[string]interface{}) error {
	if s.cfg.Email.SMTPUsername == "" {
		logrus.WithField("to", to).Debug("SMTP not configured; skipping email")
		return nil
	}

	t, err := template.New("email").Parse(tmpl)
	if err != nil {
		return fmt.Errorf("failed to parse email template: %w", err)
	}

	var body bytes.Buffer
	if err := t.Execute(&body, data); err != nil {
		return fmt.Errorf("failed to render email template: %w", err)
	}

	msg := fmt.Sprintf("From: %s <%s>\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s",
		s.cfg.Email.FromName, s.cfg.Email.FromEmail, to, subject, body.String())

	auth := smtp.PlainAuth("", s.cfg.Email.SMTPUsername, s.cfg.Email.SMTPPassword, s.cfg.Email.SMTPHost)
	addr := s.cfg.Email.SMTPHost + ":" + s.cfg.Email.SMTPPort

	return smtp.SendMail(addr, auth, s.cfg.Email.FromEmail, []string{to}, []byte(msg))
}

const licenseIssuedTemplate = `<html><body>
<h2>License Issued</h2>
<p>A new license has been issued.</p>
<ul>
<li>Clinic: {{.ClinicName}} ({{.ClinicDomain}})</li>
<li>Type: {{.LicenseType}}</li>
<li>Version: {{.Version}}</li>
<li>Activation date: {{.ActivationDate}}</li>
<li>Support expiry: {{.SupportExpiry}}</li>
</ul>
</body></html>`

const expiryWarningTemplate = `<html><body>
<h2>License Expiring Soon</h2>
<p>License {{.LicenseID}} for {{.ClinicName}} expires in {{.DaysLeft}} days (on {{.SupportExpiry}}).</p>
</body></html>`

const newClinicTemplate = `<html><body>
<h2>New Clinic Added</h2>
<ul>
<li>Name: {{.ClinicName}}</li>
<li>Domain: {{.ClinicDomain}}</li>
<li>Contact: {{.AdminContact}}</li>
</ul>
</body></html>`
