// Package store persists follow-ups.
package store

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"idbcrm/internal/followups/models"
	leadModels "idbcrm/internal/leads/models"
	"idbcrm/internal/scope"
	"idbcrm/pkg/domain"
	"idbcrm/pkg/platform/sentinel"
)

// LeadReader resolves leads for scoped queries the in-memory store cannot join.
type LeadReader interface {
	Get(ctx context.Context, sc scope.Scope, id domain.LeadID) (*leadModels.Lead, error)
}

// InMemory is a map-backed follow-up store.
type InMemory struct {
	mu        sync.RWMutex
	followups map[domain.FollowUpID]*models.FollowUp
	leads     LeadReader
}

func NewInMemory(leads LeadReader) *InMemory {
	return &InMemory{followups: make(map[domain.FollowUpID]*models.FollowUp), leads: leads}
}

func (s *InMemory) Create(_ context.Context, f *models.FollowUp) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *f
	s.followups[f.ID] = &cp
	return nil
}

func (s *InMemory) FindByID(_ context.Context, id domain.FollowUpID) (*models.FollowUp, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.followups[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *f
	return &cp, nil
}

// ListForLead returns a lead's follow-ups by due date.
func (s *InMemory) ListForLead(_ context.Context, leadID domain.LeadID) ([]*models.FollowUp, error) {
	s.mu.RLock()
	out := []*models.FollowUp{}
	for _, f := range s.followups {
		if f.LeadID == leadID {
			cp := *f
			out = append(out, &cp)
		}
	}
	s.mu.RUnlock()
	slices.SortFunc(out, func(a, b *models.FollowUp) int { return a.DueDate.Compare(b.DueDate) })
	return out, nil
}

// ListDue returns open follow-ups due in [from, to) on leads visible within sc.
func (s *InMemory) ListDue(ctx context.Context, sc scope.Scope, from, to time.Time) ([]*models.Due, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	var candidates []models.FollowUp
	for _, f := range s.followups {
		if !f.Completed && !f.DueDate.Before(from) && f.DueDate.Before(to) {
			candidates = append(candidates, *f)
		}
	}
	s.mu.RUnlock()

	out := []*models.Due{}
	for i := range candidates {
		lead, err := s.leads.Get(ctx, sc, candidates[i].LeadID)
		if errors.Is(err, sentinel.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, &models.Due{FollowUp: &candidates[i], LeadName: lead.Name})
	}
	slices.SortFunc(out, func(a, b *models.Due) int { return a.DueDate.Compare(b.DueDate) })
	return out, nil
}

func (s *InMemory) Update(_ context.Context, f *models.FollowUp) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.followups[f.ID]; !ok {
		return sentinel.ErrNotFound
	}
	cp := *f
	s.followups[f.ID] = &cp
	return nil
}

func (s *InMemory) Delete(_ context.Context, id domain.FollowUpID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.followups[id]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.followups, id)
	return nil
}
