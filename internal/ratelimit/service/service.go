// Package service throttles login attempts per client address and locks
// accounts after repeated failed passwords.
package service

import (
	"context"
	"log/slog"
	"time"

	"idbcrm/internal/ratelimit/models"
	dErrors "idbcrm/pkg/domain-errors"
	"idbcrm/pkg/requestcontext"
)

// WindowStore counts hits in a sliding window.
type WindowStore interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration, now time.Time) (*models.Result, error)
}

// LockoutStore persists failure streaks.
type LockoutStore interface {
	GetLockout(ctx context.Context, id string) (*models.Lockout, error)
	RecordFailure(ctx context.Context, id string, now time.Time, window time.Duration) (*models.Lockout, error)
	Lock(ctx context.Context, id string, until time.Time) error
	ClearLockout(ctx context.Context, id string) error
}

type Service struct {
	windows  WindowStore
	lockouts LockoutStore
	policy   models.Policy
	logger   *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithPolicy overrides DefaultPolicy. Zero fields keep their defaults.
func WithPolicy(p models.Policy) Option {
	return func(s *Service) {
		def := models.DefaultPolicy()
		if p.IPLimit <= 0 {
			p.IPLimit = def.IPLimit
		}
		if p.IPWindow <= 0 {
			p.IPWindow = def.IPWindow
		}
		if p.LockoutThreshold <= 0 {
			p.LockoutThreshold = def.LockoutThreshold
		}
		if p.LockoutWindow <= 0 {
			p.LockoutWindow = def.LockoutWindow
		}
		if p.LockoutDuration <= 0 {
			p.LockoutDuration = def.LockoutDuration
		}
		s.policy = p
	}
}

func New(windows WindowStore, lockouts LockoutStore, opts ...Option) *Service {
	s := &Service{
		windows:  windows,
		lockouts: lockouts,
		policy:   models.DefaultPolicy(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AllowIP records one attempt from ip.
func (s *Service) AllowIP(ctx context.Context, ip string) (*models.Result, error) {
	res, err := s.windows.Allow(ctx, "login:"+ip, s.policy.IPLimit, s.policy.IPWindow, requestcontext.Now(ctx))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check rate limit")
	}
	return res, nil
}

// CheckLogin rejects identifiers that are currently locked.
func (s *Service) CheckLogin(ctx context.Context, identifier string) error {
	l, err := s.lockouts.GetLockout(ctx, identifier)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load lockout")
	}
	now := requestcontext.Now(ctx)
	if l.IsLockedAt(now) {
		wait := l.LockedUntil.Sub(now).Round(time.Second)
		return dErrors.Newf(dErrors.CodeRateLimited, "too many failed logins; try again in %s", wait)
	}
	return nil
}

// RecordFailure counts a wrong password and locks the identifier once the
// streak reaches the threshold.
func (s *Service) RecordFailure(ctx context.Context, identifier string) error {
	now := requestcontext.Now(ctx)
	l, err := s.lockouts.RecordFailure(ctx, identifier, now, s.policy.LockoutWindow)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record login failure")
	}
	if l.FailureCount < s.policy.LockoutThreshold || l.IsLockedAt(now) {
		return nil
	}
	until := now.Add(s.policy.LockoutDuration)
	if err := s.lockouts.Lock(ctx, identifier, until); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to lock identifier")
	}
	s.logger.WarnContext(ctx, "login_locked",
		"log_type", "audit",
		"identifier", identifier,
		"failures", l.FailureCount,
		"locked_until", until,
		"client_ip", requestcontext.ClientIP(ctx),
		"request_id", requestcontext.RequestID(ctx),
	)
	return nil
}

// ClearFailures resets the streak after a successful login.
func (s *Service) ClearFailures(ctx context.Context, identifier string) error {
	if err := s.lockouts.ClearLockout(ctx, identifier); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to clear lockout")
	}
	return nil
}
