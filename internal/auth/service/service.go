// Package service exchanges partner credentials for an access token.
package service

import (
	"context"
	"log/slog"
	"time"

	"idbcrm/internal/auth/models"
	partnerModels "idbcrm/internal/partners/models"
	"idbcrm/internal/platform/metrics"
	"idbcrm/internal/scope"
	dErrors "idbcrm/pkg/domain-errors"
	"idbcrm/pkg/requestcontext"
)

// Authenticator checks partner credentials.
type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (*partnerModels.Partner, error)
}

// TokenIssuer signs access tokens.
type TokenIssuer interface {
	Issue(actor scope.Actor, ttl time.Duration) (string, time.Time, error)
}

// LoginGuard locks identifiers after repeated failed passwords.
type LoginGuard interface {
	CheckLogin(ctx context.Context, identifier string) error
	RecordFailure(ctx context.Context, identifier string) error
	ClearFailures(ctx context.Context, identifier string) error
}

// Service performs logins.
type Service struct {
	partners Authenticator
	issuer   TokenIssuer
	guard    LoginGuard
	ttl      time.Duration
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithLoginGuard(g LoginGuard) Option {
	return func(s *Service) { s.guard = g }
}

// New constructs the login service; tokens live for ttl.
func New(partners Authenticator, issuer TokenIssuer, ttl time.Duration, opts ...Option) *Service {
	s := &Service{partners: partners, issuer: issuer, ttl: ttl, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Login verifies credentials and issues a token for the partner's current
// role and branch.
func (s *Service) Login(ctx context.Context, req models.LoginRequest) (*models.TokenResult, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if s.guard != nil {
		if err := s.guard.CheckLogin(ctx, req.Email); err != nil {
			if dErrors.HasCode(err, dErrors.CodeRateLimited) {
				s.metrics.IncrementLogin("locked")
			}
			return nil, err
		}
	}

	partner, err := s.partners.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		outcome := "failure"
		if !dErrors.HasCode(err, dErrors.CodeUnauthorized) {
			outcome = "error"
		} else if s.guard != nil {
			if gerr := s.guard.RecordFailure(ctx, req.Email); gerr != nil {
				s.logger.ErrorContext(ctx, "record login failure", "error", gerr)
			}
		}
		s.metrics.IncrementLogin(outcome)
		s.logger.WarnContext(ctx, "login rejected",
			"request_id", requestcontext.RequestID(ctx),
			"client_ip", requestcontext.ClientIP(ctx),
			"client_kind", requestcontext.ClientKind(ctx),
			"error", err,
		)
		return nil, err
	}

	if s.guard != nil {
		if err := s.guard.ClearFailures(ctx, req.Email); err != nil {
			s.logger.ErrorContext(ctx, "clear login failures", "error", err)
		}
	}

	token, _, err := s.issuer.Issue(partner.Actor(), s.ttl)
	if err != nil {
		s.metrics.IncrementLogin("error")
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue token")
	}
	s.metrics.IncrementLogin("success")
	s.logger.InfoContext(ctx, "partner_logged_in",
		"log_type", "audit",
		"actor_id", partner.ID,
		"role", partner.Role,
		"request_id", requestcontext.RequestID(ctx),
		"client_kind", requestcontext.ClientKind(ctx),
	)

	return &models.TokenResult{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int(s.ttl.Seconds()),
	}, nil
}
