// Package store keeps sliding window counters and login lockouts, in process
// memory or in Redis.
package store

import (
	"context"
	"sync"
	"time"

	"idbcrm/internal/ratelimit/models"
)

// InMemory implements both stores for a single process.
type InMemory struct {
	mu       sync.Mutex
	windows  map[string][]time.Time
	lockouts map[string]*models.Lockout
}

func NewInMemory() *InMemory {
	return &InMemory{
		windows:  make(map[string][]time.Time),
		lockouts: make(map[string]*models.Lockout),
	}
}

// Allow records a hit for key when fewer than limit hits fall inside the
// window ending at now.
func (s *InMemory) Allow(_ context.Context, key string, limit int, window time.Duration, now time.Time) (*models.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	hits := prune(s.windows[key], now.Add(-window))
	if len(hits) >= limit {
		s.windows[key] = hits
		resetAt := hits[0].Add(window)
		return &models.Result{
			Allowed:    false,
			Limit:      limit,
			ResetAt:    resetAt,
			RetryAfter: resetAt.Sub(now),
		}, nil
	}
	hits = append(hits, now)
	s.windows[key] = hits
	return &models.Result{
		Allowed:   true,
		Limit:     limit,
		Remaining: limit - len(hits),
		ResetAt:   hits[0].Add(window),
	}, nil
}

// prune drops hits at or before cutoff. Hits are kept in arrival order.
func prune(hits []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for ; i < len(hits); i++ {
		if hits[i].After(cutoff) {
			break
		}
	}
	return hits[i:]
}

// GetLockout returns nil when the identifier has no recorded failures.
func (s *InMemory) GetLockout(_ context.Context, id string) (*models.Lockout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.lockouts[id]
	if !ok {
		return nil, nil
	}
	cp := *l
	return &cp, nil
}

// RecordFailure bumps the failure streak, restarting it when the previous
// failure is older than window.
func (s *InMemory) RecordFailure(_ context.Context, id string, now time.Time, window time.Duration) (*models.Lockout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := s.lockouts[id]
	if l.Stale(now, window) && !l.IsLockedAt(now) {
		l = &models.Lockout{Identifier: id}
		s.lockouts[id] = l
	}
	l.FailureCount++
	l.LastFailureAt = now
	cp := *l
	return &cp, nil
}

// Lock marks the identifier locked until the given time.
func (s *InMemory) Lock(_ context.Context, id string, until time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.lockouts[id]
	if !ok {
		l = &models.Lockout{Identifier: id}
		s.lockouts[id] = l
	}
	l.LockedUntil = &until
	return nil
}

// ClearLockout forgets the identifier's failures.
func (s *InMemory) ClearLockout(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.lockouts, id)
	return nil
}
