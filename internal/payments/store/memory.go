// Package store persists offline payments.
package store

import (
	"context"
	"errors"
	"slices"
	"sync"

	leadModels "idbcrm/internal/leads/models"
	"idbcrm/internal/payments/models"
	"idbcrm/internal/scope"
	"idbcrm/pkg/domain"
	"idbcrm/pkg/platform/sentinel"
)

// LeadReader resolves leads for scoped queries the in-memory store cannot join.
type LeadReader interface {
	Get(ctx context.Context, sc scope.Scope, id domain.LeadID) (*leadModels.Lead, error)
}

// InMemory is a map-backed payment store.
type InMemory struct {
	mu       sync.RWMutex
	payments map[domain.PaymentID]*models.Payment
	leads    LeadReader
}

func NewInMemory(leads LeadReader) *InMemory {
	return &InMemory{payments: make(map[domain.PaymentID]*models.Payment), leads: leads}
}

func (s *InMemory) Create(_ context.Context, p *models.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.payments[p.ID] = &cp
	return nil
}

func (s *InMemory) FindByID(_ context.Context, id domain.PaymentID) (*models.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.payments[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

// List returns matching payments on leads visible within sc, newest first.
func (s *InMemory) List(ctx context.Context, sc scope.Scope, f models.Filter) ([]*models.Payment, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	var candidates []*models.Payment
	for _, p := range s.payments {
		if f.Matches(p) {
			cp := *p
			candidates = append(candidates, &cp)
		}
	}
	s.mu.RUnlock()

	out := []*models.Payment{}
	for _, p := range candidates {
		visible, err := s.visible(ctx, sc, p.LeadID)
		if err != nil {
			return nil, err
		}
		if visible {
			out = append(out, p)
		}
	}
	slices.SortFunc(out, func(a, b *models.Payment) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return out, nil
}

// Summary totals payments on leads visible within sc.
func (s *InMemory) Summary(ctx context.Context, sc scope.Scope) (*models.Totals, error) {
	payments, err := s.List(ctx, sc, models.Filter{})
	if err != nil {
		return nil, err
	}
	t := &models.Totals{ByStatus: []models.StatusTotal{}}
	for _, p := range payments {
		t.Add(p)
	}
	t.Sort()
	return t, nil
}

func (s *InMemory) Update(_ context.Context, p *models.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.payments[p.ID]; !ok {
		return sentinel.ErrNotFound
	}
	cp := *p
	s.payments[p.ID] = &cp
	return nil
}

func (s *InMemory) Delete(_ context.Context, id domain.PaymentID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.payments[id]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.payments, id)
	return nil
}

func (s *InMemory) visible(ctx context.Context, sc scope.Scope, leadID domain.LeadID) (bool, error) {
	if sc.Kind() == scope.KindUnrestricted {
		return true, nil
	}
	_, err := s.leads.Get(ctx, sc, leadID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}
