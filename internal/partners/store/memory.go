// Package store persists partners.
package store

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"idbcrm/internal/partners/models"
	"idbcrm/pkg/domain"
	"idbcrm/pkg/platform/sentinel"
)

// InMemory is a map-backed partner store.
type InMemory struct {
	mu       sync.RWMutex
	partners map[domain.PartnerID]*models.Partner
}

// NewInMemory creates an empty store.
func NewInMemory() *InMemory {
	return &InMemory{partners: make(map[domain.PartnerID]*models.Partner)}
}

func (s *InMemory) Create(_ context.Context, p *models.Partner) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.partners {
		if strings.EqualFold(existing.Email, p.Email) {
			return fmt.Errorf("partner email %q: %w", p.Email, sentinel.ErrConflict)
		}
	}
	cp := *p
	s.partners[p.ID] = &cp
	return nil
}

func (s *InMemory) FindByID(_ context.Context, id domain.PartnerID) (*models.Partner, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.partners[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *InMemory) FindByEmail(_ context.Context, email string) (*models.Partner, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.partners {
		if strings.EqualFold(p.Email, email) {
			cp := *p
			return &cp, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

// List returns matching partners, newest first.
func (s *InMemory) List(_ context.Context, f models.Filter) ([]*models.Partner, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Partner
	for _, p := range s.partners {
		if f.Matches(p) {
			cp := *p
			out = append(out, &cp)
		}
	}
	slices.SortFunc(out, func(a, b *models.Partner) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return out, nil
}

func (s *InMemory) Update(_ context.Context, p *models.Partner) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.partners[p.ID]; !ok {
		return sentinel.ErrNotFound
	}
	cp := *p
	s.partners[p.ID] = &cp
	return nil
}

// CountByBranch counts partners assigned to a branch.
func (s *InMemory) CountByBranch(_ context.Context, branch domain.BranchID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, p := range s.partners {
		if p.InBranch(branch) {
			n++
		}
	}
	return n, nil
}

// Count returns the number of partners.
func (s *InMemory) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.partners), nil
}
