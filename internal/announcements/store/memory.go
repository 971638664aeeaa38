// Package store persists announcements and read receipts.
package store

import (
	"context"
	"slices"
	"sync"
	"time"

	"idbcrm/internal/announcements/models"
	"idbcrm/pkg/domain"
	"idbcrm/pkg/platform/sentinel"
)

type readKey struct {
	announcement domain.AnnouncementID
	partner      domain.PartnerID
}

// InMemory is a map-backed announcement store.
type InMemory struct {
	mu    sync.RWMutex
	items map[domain.AnnouncementID]*models.Announcement
	reads map[readKey]time.Time
}

func NewInMemory() *InMemory {
	return &InMemory{
		items: make(map[domain.AnnouncementID]*models.Announcement),
		reads: make(map[readKey]time.Time),
	}
}

func (s *InMemory) Create(_ context.Context, a *models.Announcement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[a.ID]; ok {
		return sentinel.ErrConflict
	}
	s.items[a.ID] = clone(a)
	return nil
}

func (s *InMemory) FindByID(_ context.Context, id domain.AnnouncementID) (*models.Announcement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.items[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(a), nil
}

// ListVisible returns the announcements v permits, newest first, with the
// viewer's read state.
func (s *InMemory) ListVisible(_ context.Context, v models.Visibility) ([]*models.View, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*models.View{}
	for _, a := range s.items {
		if v.Permits(a) {
			out = append(out, s.view(a, v.Viewer))
		}
	}
	slices.SortFunc(out, func(a, b *models.View) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return out, nil
}

func (s *InMemory) UnreadCount(_ context.Context, v models.Visibility) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, a := range s.items {
		if _, read := s.reads[readKey{a.ID, v.Viewer}]; v.Permits(a) && !read {
			n++
		}
	}
	return n, nil
}

func (s *InMemory) ReadAt(_ context.Context, id domain.AnnouncementID, partner domain.PartnerID) (*time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if at, ok := s.reads[readKey{id, partner}]; ok {
		return &at, nil
	}
	return nil, nil
}

// MarkRead inserts or refreshes the read receipt.
func (s *InMemory) MarkRead(_ context.Context, id domain.AnnouncementID, partner domain.PartnerID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return sentinel.ErrNotFound
	}
	s.reads[readKey{id, partner}] = at
	return nil
}

func (s *InMemory) Update(_ context.Context, a *models.Announcement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[a.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.items[a.ID] = clone(a)
	return nil
}

// Delete removes the announcement and its read receipts.
func (s *InMemory) Delete(_ context.Context, id domain.AnnouncementID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.items, id)
	for k := range s.reads {
		if k.announcement == id {
			delete(s.reads, k)
		}
	}
	return nil
}

func (s *InMemory) view(a *models.Announcement, viewer domain.PartnerID) *models.View {
	v := &models.View{Announcement: clone(a)}
	if at, ok := s.reads[readKey{a.ID, viewer}]; ok {
		v.IsRead = true
		v.ReadAt = &at
	}
	return v
}

func clone(a *models.Announcement) *models.Announcement {
	cp := *a
	cp.Users = slices.Clone(a.Users)
	if cp.Users == nil {
		cp.Users = []domain.PartnerID{}
	}
	return &cp
}
