// Package store persists lead notes.
package store

import (
	"context"
	"slices"
	"sync"

	"idbcrm/internal/notes/models"
	"idbcrm/pkg/domain"
	"idbcrm/pkg/platform/sentinel"
)

// InMemory is a map-backed note store.
type InMemory struct {
	mu    sync.RWMutex
	notes map[domain.NoteID]*models.Note
}

func NewInMemory() *InMemory {
	return &InMemory{notes: make(map[domain.NoteID]*models.Note)}
}

func (s *InMemory) Create(_ context.Context, n *models.Note) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *n
	s.notes[n.ID] = &cp
	return nil
}

func (s *InMemory) FindByID(_ context.Context, id domain.NoteID) (*models.Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.notes[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *n
	return &cp, nil
}

// ListForLead returns a lead's notes newest first.
func (s *InMemory) ListForLead(_ context.Context, leadID domain.LeadID) ([]*models.Note, error) {
	s.mu.RLock()
	out := []*models.Note{}
	for _, n := range s.notes {
		if n.LeadID == leadID {
			cp := *n
			out = append(out, &cp)
		}
	}
	s.mu.RUnlock()
	slices.SortFunc(out, func(a, b *models.Note) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return out, nil
}

func (s *InMemory) Update(_ context.Context, n *models.Note) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.notes[n.ID]; !ok {
		return sentinel.ErrNotFound
	}
	cp := *n
	s.notes[n.ID] = &cp
	return nil
}

func (s *InMemory) Delete(_ context.Context, id domain.NoteID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.notes[id]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.notes, id)
	return nil
}
