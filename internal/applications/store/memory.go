// Package store persists applications and their sections.
package store

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"idbcrm/internal/applications/models"
	"idbcrm/pkg/domain"
	"idbcrm/pkg/platform/sentinel"
)

type sections struct {
	family      *models.Family
	preferences *models.Preferences
	visa        *models.Visa
	documents   *models.Documents
	records     []models.Record
}

// InMemory is a map-backed application store.
type InMemory struct {
	mu       sync.RWMutex
	byLead   map[domain.LeadID]*models.Application
	sections map[domain.ApplicationID]*sections
}

func NewInMemory() *InMemory {
	return &InMemory{
		byLead:   make(map[domain.LeadID]*models.Application),
		sections: make(map[domain.ApplicationID]*sections),
	}
}

// FindOrCreate inserts app unless the lead already has an application and
// returns the stored one.
func (s *InMemory) FindOrCreate(_ context.Context, app *models.Application) (*models.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.byLead[app.LeadID]; ok {
		cp := *existing
		return &cp, nil
	}
	for _, a := range s.byLead {
		if a.StudentID == app.StudentID {
			return nil, fmt.Errorf("student id %s: %w", app.StudentID, sentinel.ErrConflict)
		}
	}
	cp := *app
	s.byLead[app.LeadID] = &cp
	s.sections[app.ID] = &sections{}
	out := cp
	return &out, nil
}

func (s *InMemory) FindByLead(_ context.Context, leadID domain.LeadID) (*models.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.byLead[leadID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *InMemory) UpdatePersonal(_ context.Context, app *models.Application) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byLead[app.LeadID]; !ok {
		return sentinel.ErrNotFound
	}
	cp := *app
	s.byLead[app.LeadID] = &cp
	return nil
}

func (s *InMemory) UpsertFamily(_ context.Context, id domain.ApplicationID, f *models.Family) error {
	return s.withSections(id, func(sec *sections) { cp := *f; sec.family = &cp })
}

func (s *InMemory) UpsertPreferences(_ context.Context, id domain.ApplicationID, p *models.Preferences) error {
	return s.withSections(id, func(sec *sections) { cp := *p; sec.preferences = &cp })
}

func (s *InMemory) UpsertVisa(_ context.Context, id domain.ApplicationID, v *models.Visa) error {
	return s.withSections(id, func(sec *sections) { cp := *v; sec.visa = &cp })
}

func (s *InMemory) UpsertDocuments(_ context.Context, id domain.ApplicationID, d *models.Documents) error {
	return s.withSections(id, func(sec *sections) {
		cp := *d
		cp.AcademicDocuments = slices.Clone(d.AcademicDocuments)
		cp.RecommendationLetters = slices.Clone(d.RecommendationLetters)
		sec.documents = &cp
	})
}

func (s *InMemory) Family(_ context.Context, id domain.ApplicationID) (*models.Family, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clone(s.sectionsOf(id).family), nil
}

func (s *InMemory) Preferences(_ context.Context, id domain.ApplicationID) (*models.Preferences, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clone(s.sectionsOf(id).preferences), nil
}

func (s *InMemory) Visa(_ context.Context, id domain.ApplicationID) (*models.Visa, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clone(s.sectionsOf(id).visa), nil
}

func (s *InMemory) Documents(_ context.Context, id domain.ApplicationID) (*models.Documents, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d := s.sectionsOf(id).documents
	if d == nil {
		return nil, nil
	}
	cp := *d
	cp.AcademicDocuments = slices.Clone(d.AcademicDocuments)
	cp.RecommendationLetters = slices.Clone(d.RecommendationLetters)
	return &cp, nil
}

// Records returns the records of one kind in insertion order.
func (s *InMemory) Records(_ context.Context, id domain.ApplicationID, kind models.RecordKind) ([]models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.Record{}
	for _, r := range s.sectionsOf(id).records {
		if r.Kind == kind {
			out = append(out, r)
		}
	}
	slices.SortStableFunc(out, func(a, b models.Record) int { return a.Position - b.Position })
	return out, nil
}

func (s *InMemory) CreateRecord(_ context.Context, id domain.ApplicationID, r models.Record) error {
	return s.withSections(id, func(sec *sections) {
		r.Position = len(sec.records)
		sec.records = append(sec.records, r)
	})
}

// UpdateRecord replaces the body of a record of the same application and kind.
func (s *InMemory) UpdateRecord(_ context.Context, id domain.ApplicationID, r models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sec, ok := s.sections[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	for i := range sec.records {
		if sec.records[i].ID == r.ID && sec.records[i].Kind == r.Kind {
			sec.records[i].Body = r.Body
			sec.records[i].UpdatedAt = r.UpdatedAt
			return nil
		}
	}
	return sentinel.ErrNotFound
}

func (s *InMemory) withSections(id domain.ApplicationID, fn func(*sections)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sec, ok := s.sections[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	fn(sec)
	return nil
}

func (s *InMemory) sectionsOf(id domain.ApplicationID) *sections {
	if sec, ok := s.sections[id]; ok {
		return sec
	}
	return &sections{}
}

func clone[T any](v *T) *T {
	if v == nil {
		return nil
	}
	cp := *v
	return &cp
}
