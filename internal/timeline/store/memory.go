// Package store persists timeline events. Both implementations only ever
// insert; nothing updates or deletes an event.
package store

import (
	"context"
	"slices"
	"sync"

	"idbcrm/internal/timeline/models"
	"idbcrm/pkg/domain"
)

// InMemory keeps events per lead.
type InMemory struct {
	mu     sync.RWMutex
	seq    int64
	events map[domain.LeadID][]*models.Event
}

// NewInMemory creates an empty store.
func NewInMemory() *InMemory {
	return &InMemory{events: make(map[domain.LeadID][]*models.Event)}
}

// Append stores e and assigns its Seq.
func (s *InMemory) Append(_ context.Context, e *models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	e.Seq = s.seq
	cp := *e
	s.events[e.LeadID] = append(s.events[e.LeadID], &cp)
	return nil
}

// ListForLead returns up to limit events strictly after the cursor, newest first.
func (s *InMemory) ListForLead(_ context.Context, leadID domain.LeadID, after *models.Cursor, limit int) ([]*models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Event
	for _, e := range s.events[leadID] {
		if after != nil && !after.Before(e) {
			continue
		}
		cp := *e
		out = append(out, &cp)
	}
	slices.SortFunc(out, func(a, b *models.Event) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		switch {
		case a.Seq > b.Seq:
			return -1
		case a.Seq < b.Seq:
			return 1
		}
		return 0
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
