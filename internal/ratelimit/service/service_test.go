package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"idbcrm/internal/platform/logger"
	"idbcrm/internal/ratelimit/models"
	"idbcrm/internal/ratelimit/store"
	dErrors "idbcrm/pkg/domain-errors"
	"idbcrm/pkg/requestcontext"
)

type LoginGuardSuite struct {
	suite.Suite
	svc *Service
	now time.Time
}

func TestLoginGuardSuite(t *testing.T) {
	suite.Run(t, new(LoginGuardSuite))
}

func (s *LoginGuardSuite) SetupTest() {
	s.now = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	s.svc = New(store.NewInMemory(), store.NewInMemory(),
		WithLogger(logger.Discard()),
		WithPolicy(models.Policy{IPLimit: 2, LockoutThreshold: 3}),
	)
}

func (s *LoginGuardSuite) at(d time.Duration) context.Context {
	return requestcontext.WithTime(context.Background(), s.now.Add(d))
}

func (s *LoginGuardSuite) TestPolicyDefaultsFillZeroFields() {
	s.Equal(2, s.svc.policy.IPLimit)
	s.Equal(time.Minute, s.svc.policy.IPWindow)
	s.Equal(15*time.Minute, s.svc.policy.LockoutDuration)
}

func (s *LoginGuardSuite) TestAllowIP() {
	for range 2 {
		res, err := s.svc.AllowIP(s.at(0), "10.0.0.1")
		s.Require().NoError(err)
		s.True(res.Allowed)
	}
	res, err := s.svc.AllowIP(s.at(time.Second), "10.0.0.1")
	s.Require().NoError(err)
	s.False(res.Allowed)

	res, err = s.svc.AllowIP(s.at(time.Second), "10.0.0.2")
	s.Require().NoError(err)
	s.True(res.Allowed)
}

func (s *LoginGuardSuite) TestLocksAfterThreshold() {
	id := "agent@example.com"
	for i := range 3 {
		s.Require().NoError(s.svc.CheckLogin(s.at(time.Duration(i)*time.Second), id))
		s.Require().NoError(s.svc.RecordFailure(s.at(time.Duration(i)*time.Second), id))
	}

	err := s.svc.CheckLogin(s.at(time.Minute), id)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeRateLimited))

	s.NoError(s.svc.CheckLogin(s.at(16*time.Minute), id), "lock expires")
}

func (s *LoginGuardSuite) TestSuccessClearsStreak() {
	id := "agent@example.com"
	for range 2 {
		s.Require().NoError(s.svc.RecordFailure(s.at(0), id))
	}
	s.Require().NoError(s.svc.ClearFailures(s.at(0), id))
	s.Require().NoError(s.svc.RecordFailure(s.at(time.Second), id))
	s.NoError(s.svc.CheckLogin(s.at(2*time.Second), id))
}
