package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type InMemorySuite struct {
	suite.Suite
	ctx   context.Context
	store *InMemory
	t0    time.Time
}

func TestInMemorySuite(t *testing.T) {
	suite.Run(t, new(InMemorySuite))
}

func (s *InMemorySuite) SetupTest() {
	s.ctx = context.Background()
	s.store = NewInMemory()
	s.t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
}

func (s *InMemorySuite) TestSlidingWindow() {
	s.Run("allows up to the limit then blocks", func() {
		for i := range 3 {
			res, err := s.store.Allow(s.ctx, "a", 3, time.Minute, s.t0.Add(time.Duration(i)*time.Second))
			s.Require().NoError(err)
			s.True(res.Allowed)
			s.Equal(2-i, res.Remaining)
		}
		res, err := s.store.Allow(s.ctx, "a", 3, time.Minute, s.t0.Add(10*time.Second))
		s.Require().NoError(err)
		s.False(res.Allowed)
		s.Equal(s.t0.Add(time.Minute), res.ResetAt)
		s.Equal(50*time.Second, res.RetryAfter)
	})

	s.Run("old hits slide out", func() {
		res, err := s.store.Allow(s.ctx, "a", 3, time.Minute, s.t0.Add(61*time.Second))
		s.Require().NoError(err)
		s.True(res.Allowed)
	})

	s.Run("keys are independent", func() {
		res, err := s.store.Allow(s.ctx, "b", 3, time.Minute, s.t0.Add(10*time.Second))
		s.Require().NoError(err)
		s.True(res.Allowed)
		s.Equal(2, res.Remaining)
	})
}

func (s *InMemorySuite) TestLockoutStreak() {
	window := 15 * time.Minute

	missing, err := s.store.GetLockout(s.ctx, "x@example.com")
	s.Require().NoError(err)
	s.Nil(missing)

	l, err := s.store.RecordFailure(s.ctx, "x@example.com", s.t0, window)
	s.Require().NoError(err)
	s.Equal(1, l.FailureCount)

	l, err = s.store.RecordFailure(s.ctx, "x@example.com", s.t0.Add(5*time.Minute), window)
	s.Require().NoError(err)
	s.Equal(2, l.FailureCount)

	l, err = s.store.RecordFailure(s.ctx, "x@example.com", s.t0.Add(30*time.Minute), window)
	s.Require().NoError(err)
	s.Equal(1, l.FailureCount, "a lapsed streak restarts")

	until := s.t0.Add(time.Hour)
	s.Require().NoError(s.store.Lock(s.ctx, "x@example.com", until))
	got, err := s.store.GetLockout(s.ctx, "x@example.com")
	s.Require().NoError(err)
	s.True(got.IsLockedAt(s.t0.Add(45 * time.Minute)))
	s.False(got.IsLockedAt(until))

	s.Require().NoError(s.store.ClearLockout(s.ctx, "x@example.com"))
	got, err = s.store.GetLockout(s.ctx, "x@example.com")
	s.Require().NoError(err)
	s.Nil(got)
}
