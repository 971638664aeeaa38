// Package store persists leads and answers the scoped aggregate queries the
// dashboard reads.
package store

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"idbcrm/internal/leads/models"
	"idbcrm/internal/scope"
	"idbcrm/pkg/domain"
	"idbcrm/pkg/platform/sentinel"
)

// InMemory is a map-backed lead store.
type InMemory struct {
	mu    sync.RWMutex
	leads map[domain.LeadID]*models.Lead
}

// NewInMemory creates an empty store.
func NewInMemory() *InMemory {
	return &InMemory{leads: make(map[domain.LeadID]*models.Lead)}
}

func (s *InMemory) Create(_ context.Context, l *models.Lead) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.leads[l.ID]; ok {
		return fmt.Errorf("lead %s: %w", l.ID, sentinel.ErrConflict)
	}
	cp := *l
	s.leads[l.ID] = &cp
	return nil
}

func (s *InMemory) Get(_ context.Context, sc scope.Scope, id domain.LeadID) (*models.Lead, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.leads[id]
	if !ok || !sc.Permits(l) {
		return nil, sentinel.ErrNotFound
	}
	cp := *l
	return &cp, nil
}

// Exists is an unscoped probe used only for diagnostics.
func (s *InMemory) Exists(_ context.Context, id domain.LeadID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.leads[id]
	return ok, nil
}

func (s *InMemory) GetMany(_ context.Context, sc scope.Scope, ids []domain.LeadID) ([]*models.Lead, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Lead, 0, len(ids))
	for _, id := range ids {
		if l, ok := s.leads[id]; ok && sc.Permits(l) {
			cp := *l
			out = append(out, &cp)
		}
	}
	return out, nil
}

// List returns one page of matching leads newest first and the total match count.
func (s *InMemory) List(_ context.Context, sc scope.Scope, f models.ListFilter) ([]*models.Lead, int, error) {
	if err := sc.Validate(); err != nil {
		return nil, 0, err
	}
	s.mu.RLock()
	var matched []*models.Lead
	for _, l := range s.leads {
		if sc.Permits(l) && f.Matches(l) {
			cp := *l
			matched = append(matched, &cp)
		}
	}
	s.mu.RUnlock()

	slices.SortFunc(matched, func(a, b *models.Lead) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(b.ID.String(), a.ID.String())
	})
	total := len(matched)
	if f.Offset >= total {
		return []*models.Lead{}, total, nil
	}
	end := min(f.Offset+f.Limit, total)
	return matched[f.Offset:end], total, nil
}

func (s *InMemory) Update(_ context.Context, l *models.Lead) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.leads[l.ID]; !ok {
		return sentinel.ErrNotFound
	}
	cp := *l
	s.leads[l.ID] = &cp
	return nil
}

func (s *InMemory) Count(_ context.Context, sc scope.Scope, f models.CountFilter) (int, error) {
	if err := sc.Validate(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, l := range s.leads {
		if sc.Permits(l) && f.Matches(l) {
			n++
		}
	}
	return n, nil
}

func (s *InMemory) CountByStatus(ctx context.Context, sc scope.Scope, f models.CountFilter) ([]models.GroupCount, error) {
	return s.group(sc, f, func(l *models.Lead) string { return string(l.Status) })
}

func (s *InMemory) CountBySource(ctx context.Context, sc scope.Scope, f models.CountFilter) ([]models.GroupCount, error) {
	return s.group(sc, f, func(l *models.Lead) string { return l.UTMSource })
}

// CountByDay buckets leads created in [since, since+days) by day in loc.
func (s *InMemory) CountByDay(_ context.Context, sc scope.Scope, f models.CountFilter, since time.Time, days int, loc *time.Location) ([]int, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	out := make([]int, days)
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, l := range s.leads {
		if !sc.Permits(l) || !f.Matches(l) {
			continue
		}
		day := dayIndex(since, l.CreatedAt.In(loc))
		if day >= 0 && day < days {
			out[day]++
		}
	}
	return out, nil
}

func (s *InMemory) group(sc scope.Scope, f models.CountFilter, key func(*models.Lead) string) ([]models.GroupCount, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	counts := map[string]int{}
	s.mu.RLock()
	for _, l := range s.leads {
		if sc.Permits(l) && f.Matches(l) {
			counts[key(l)]++
		}
	}
	s.mu.RUnlock()
	out := make([]models.GroupCount, 0, len(counts))
	for k, n := range counts {
		out = append(out, models.GroupCount{Key: k, Count: n})
	}
	slices.SortFunc(out, func(a, b models.GroupCount) int { return strings.Compare(a.Key, b.Key) })
	return out, nil
}

func dayIndex(since, t time.Time) int {
	if t.Before(since) {
		return -1
	}
	y, m, d := since.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, since.Location())
	i := 0
	for next := start.AddDate(0, 0, 1); !t.Before(next); next = next.AddDate(0, 0, 1) {
		i++
		if i > 366 {
			break
		}
	}
	return i
}
