// Package store persists branches.
package store

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"idbcrm/internal/branches/models"
	"idbcrm/pkg/domain"
	"idbcrm/pkg/platform/sentinel"
)

// InMemory is a map-backed branch store.
type InMemory struct {
	mu       sync.RWMutex
	branches map[domain.BranchID]*models.Branch
}

// NewInMemory creates an empty store.
func NewInMemory() *InMemory {
	return &InMemory{branches: make(map[domain.BranchID]*models.Branch)}
}

func (s *InMemory) Create(_ context.Context, b *models.Branch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.codeTaken(b.Code, b.ID) {
		return fmt.Errorf("branch code %q: %w", b.Code, sentinel.ErrConflict)
	}
	cp := *b
	s.branches[b.ID] = &cp
	return nil
}

func (s *InMemory) FindByID(_ context.Context, id domain.BranchID) (*models.Branch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.branches[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return s.withParentName(b), nil
}

// List returns all branches newest first with parent names filled in.
func (s *InMemory) List(_ context.Context) ([]*models.Branch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Branch, 0, len(s.branches))
	for _, b := range s.branches {
		out = append(out, s.withParentName(b))
	}
	slices.SortFunc(out, func(a, b *models.Branch) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return out, nil
}

// Children returns the direct children of id ordered by name.
func (s *InMemory) Children(_ context.Context, id domain.BranchID) ([]*models.Branch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Branch
	for _, b := range s.branches {
		if b.ParentID != nil && *b.ParentID == id {
			cp := *b
			out = append(out, &cp)
		}
	}
	slices.SortFunc(out, func(a, b *models.Branch) int { return strings.Compare(a.Name, b.Name) })
	return out, nil
}

func (s *InMemory) Update(_ context.Context, b *models.Branch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.branches[b.ID]; !ok {
		return sentinel.ErrNotFound
	}
	if s.codeTaken(b.Code, b.ID) {
		return fmt.Errorf("branch code %q: %w", b.Code, sentinel.ErrConflict)
	}
	cp := *b
	cp.ParentName = ""
	s.branches[b.ID] = &cp
	return nil
}

func (s *InMemory) Delete(_ context.Context, id domain.BranchID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.branches[id]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.branches, id)
	return nil
}

func (s *InMemory) codeTaken(code string, except domain.BranchID) bool {
	for id, b := range s.branches {
		if id != except && strings.EqualFold(b.Code, code) {
			return true
		}
	}
	return false
}

func (s *InMemory) withParentName(b *models.Branch) *models.Branch {
	cp := *b
	if b.ParentID != nil {
		if p, ok := s.branches[*b.ParentID]; ok {
			cp.ParentName = p.Name
		}
	}
	return &cp
}
