// internal/store/storetest/store.go

// Package storetest provides an in-memory license store honoring the same
// transition contract as the GORM-backed one, for tests that exercise the
// lifecycle service without a database.
package storetest

import (
	"sync"
	"time"

	"github.com/nulldental/license-server/internal/licensing"
	"github.com/nulldental/license-server/internal/models"
)

type MemLicenseStore struct {
	mu       sync.Mutex
	nextID   uint
	licenses map[uint]*models.License
	clinics  map[uint]*models.Clinic
}

func NewMemLicenseStore() *MemLicenseStore {
	return &MemLicenseStore{
		nextID:   1,
		licenses: make(map[uint]*models.License),
		clinics:  make(map[uint]*models.Clinic),
	}
}

// AddClinic registers a clinic used for FK resolution and display fields.
func (s *MemLicenseStore) AddClinic(clinic *models.Clinic) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clinics[clinic.ID] = clinic
}

func (s *MemLicenseStore) GetClinic(id uint) (*models.Clinic, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	clinic, ok := s.clinics[id]
	if !ok {
		return nil, licensing.ErrNotFound
	}
	cp := *clinic
	return &cp, nil
}

func (s *MemLicenseStore) Create(license *models.License) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	license.ID = s.nextID
	s.nextID++
	now := time.Now()
	license.CreatedAt = now
	license.UpdatedAt = now

	cp := *license
	s.licenses[license.ID] = &cp
	return nil
}

func (s *MemLicenseStore) GetByID(id uint) (*models.License, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getLocked(id)
}

func (s *MemLicenseStore) getLocked(id uint) (*models.License, error) {
	license, ok := s.licenses[id]
	if !ok {
		return nil, licensing.ErrNotFound
	}
	cp := *license
	if clinic, ok := s.clinics[license.ClinicID]; ok {
		cp.Clinic = *clinic
	}
	return &cp, nil
}

func (s *MemLicenseStore) List(offset, limit int) ([]models.License, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var all []models.License
	for _, license := range s.licenses {
		all = append(all, *license)
	}
	total := int64(len(all))
	if offset >= len(all) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (s *MemLicenseStore) AttachToken(id uint, token string) (*models.License, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	license, ok := s.licenses[id]
	if !ok {
		return nil, licensing.ErrNotFound
	}
	license.Key = token
	license.UpdatedAt = time.Now()
	return s.getLocked(id)
}

func (s *MemLicenseStore) MarkFirstActivation(id uint) (*models.License, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	license, ok := s.licenses[id]
	if !ok {
		return nil, false, licensing.ErrNotFound
	}

	activated := false
	if license.FirstActivated == nil {
		now := time.Now()
		license.FirstActivated = &now
		activated = true
	}

	out, err := s.getLocked(id)
	return out, activated, err
}

func (s *MemLicenseStore) TouchLastVerified(id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	license, ok := s.licenses[id]
	if !ok {
		return licensing.ErrNotFound
	}
	now := time.Now()
	license.LastVerified = &now
	return nil
}

func (s *MemLicenseStore) Revoke(id uint) (*models.License, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	license, ok := s.licenses[id]
	if !ok {
		return nil, licensing.ErrNotFound
	}
	license.Status = models.LicenseStatusRevoked
	return s.getLocked(id)
}

func (s *MemLicenseStore) Renew(id uint, newExpiry time.Time) (*models.License, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	license, ok := s.licenses[id]
	if !ok {
		return nil, licensing.ErrNotFound
	}
	if license.Status == models.LicenseStatusRevoked {
		return nil, licensing.ErrInvalidOperation
	}
	license.SupportExpiry = newExpiry
	return s.getLocked(id)
}

func (s *MemLicenseStore) Transfer(id uint, clinicID uint) (*models.License, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	license, ok := s.licenses[id]
	if !ok {
		return nil, licensing.ErrNotFound
	}
	if license.Status == models.LicenseStatusRevoked {
		return nil, licensing.ErrInvalidOperation
	}
	license.ClinicID = clinicID
	return s.getLocked(id)
}

func (s *MemLicenseStore) Delete(id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.licenses[id]; !ok {
		return licensing.ErrNotFound
	}
	delete(s.licenses, id)
	return nil
}
