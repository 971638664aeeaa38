// Package service manages partners and authenticates them for login.
package service

import (
	"context"
	"errors"
	"log/slog"

	"idbcrm/internal/partners/models"
	"idbcrm/internal/partners/secrets"
	"idbcrm/internal/scope"
	"idbcrm/pkg/domain"
	dErrors "idbcrm/pkg/domain-errors"
	"idbcrm/pkg/email"
	"idbcrm/pkg/platform/sentinel"
	"idbcrm/pkg/platform/tx"
	"idbcrm/pkg/requestcontext"
)

// Store persists partners.
type Store interface {
	Create(ctx context.Context, p *models.Partner) error
	FindByID(ctx context.Context, id domain.PartnerID) (*models.Partner, error)
	FindByEmail(ctx context.Context, email string) (*models.Partner, error)
	List(ctx context.Context, f models.Filter) ([]*models.Partner, error)
	Update(ctx context.Context, p *models.Partner) error
}

// BranchChecker confirms a branch exists before a partner is placed in it.
type BranchChecker interface {
	Exists(ctx context.Context, id domain.BranchID) (bool, error)
}

// Service manages partner accounts.
type Service struct {
	store    Store
	branches BranchChecker
	tx       tx.Runner
	logger   *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithTx(runner tx.Runner) Option {
	return func(s *Service) { s.tx = runner }
}

// New constructs the partner service.
func New(store Store, branches BranchChecker, opts ...Option) *Service {
	s := &Service{store: store, branches: branches, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	if s.tx == nil {
		s.tx = tx.NewLocal()
	}
	return s
}

// Create registers a partner. Admin only.
func (s *Service) Create(ctx context.Context, actor scope.Actor, in models.CreatePartnerInput) (*models.Partner, error) {
	if !actor.IsAdmin() {
		return nil, dErrors.New(dErrors.CodeForbidden, "only admins can create partners")
	}
	in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}
	return s.create(ctx, actor, in)
}

// Bootstrap creates the first admin without an acting partner. It is used by
// the admin CLI only.
func (s *Service) Bootstrap(ctx context.Context, in models.CreatePartnerInput) (*models.Partner, error) {
	in.Normalize()
	if in.Name == "" {
		in.Name = email.DisplayName(in.Email)
	}
	in.Role = scope.RoleAdmin.String()
	if err := in.Validate(); err != nil {
		return nil, err
	}
	return s.create(ctx, scope.Actor{}, in)
}

func (s *Service) create(ctx context.Context, actor scope.Actor, in models.CreatePartnerInput) (*models.Partner, error) {
	hash, err := secrets.Hash(in.Password)
	if err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)
	p := &models.Partner{
		ID:           domain.New[domain.PartnerID](),
		Name:         in.Name,
		Email:        in.Email,
		Mobile:       in.Mobile,
		PasswordHash: hash,
		Role:         scope.Role(in.Role),
		BranchID:     in.BranchID,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.requireBranch(txCtx, p.BranchID); err != nil {
			return err
		}
		if err := s.store.Create(txCtx, p); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.New(dErrors.CodeConflict, "email is already registered")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create partner")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, "partner_created", actor, "partner_id", p.ID, "role", p.Role)
	return p, nil
}

// Get returns a partner visible to the actor: admins see everyone, branch
// managers their branch, everybody else only themselves.
func (s *Service) Get(ctx context.Context, actor scope.Actor, id domain.PartnerID) (*models.Partner, error) {
	p, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, wrapPartnerErr(err)
	}
	if !canSee(actor, p) {
		return nil, dErrors.New(dErrors.CodeNotFound, "partner not found")
	}
	return p, nil
}

// List returns the partners visible to the actor.
func (s *Service) List(ctx context.Context, actor scope.Actor) ([]*models.Partner, error) {
	var f models.Filter
	switch {
	case actor.IsAdmin():
	case actor.Role == scope.RoleBranchManager && actor.HasBranch():
		f.BranchID = actor.BranchID
	default:
		id := actor.ID
		f.ID = &id
	}
	partners, err := s.store.List(ctx, f)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list partners")
	}
	if partners == nil {
		partners = []*models.Partner{}
	}
	return partners, nil
}

// Update applies a partial update. Admins may change anything; a partner may
// change their own name, mobile and password.
func (s *Service) Update(ctx context.Context, actor scope.Actor, id domain.PartnerID, in models.UpdatePartnerInput) (*models.Partner, error) {
	in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}

	var updated *models.Partner
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		p, err := s.Get(txCtx, actor, id)
		if err != nil {
			return err
		}
		if !actor.IsAdmin() && (!actor.Is(id) || in.TouchesPrivilegedFields()) {
			return dErrors.New(dErrors.CodeForbidden, "not allowed to change this partner")
		}

		if in.Name != nil {
			p.Name = *in.Name
		}
		if in.Mobile != nil {
			p.Mobile = *in.Mobile
		}
		if in.Role != nil {
			p.Role = scope.Role(*in.Role)
		}
		if in.ClearBranch {
			p.BranchID = nil
		}
		if in.BranchID != nil {
			if err := s.requireBranch(txCtx, in.BranchID); err != nil {
				return err
			}
			p.BranchID = in.BranchID
		}
		if in.Active != nil {
			if actor.Is(id) && !*in.Active {
				return dErrors.New(dErrors.CodeValidation, "cannot deactivate yourself")
			}
			p.Active = *in.Active
		}
		if in.Password != nil {
			hash, err := secrets.Hash(*in.Password)
			if err != nil {
				return err
			}
			p.PasswordHash = hash
		}
		p.UpdatedAt = requestcontext.Now(txCtx)

		if err := s.store.Update(txCtx, p); err != nil {
			return wrapPartnerErr(err)
		}
		updated = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, "partner_updated", actor, "partner_id", id)
	return updated, nil
}

// Authenticate checks credentials. Unknown email, wrong password and a
// disabled account all yield the same Unauthorized error.
func (s *Service) Authenticate(ctx context.Context, addr, password string) (*models.Partner, error) {
	p, err := s.store.FindByEmail(ctx, email.Normalize(addr))
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, secrets.Burn(password)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load partner")
	}
	if err := secrets.Verify(password, p.PasswordHash); err != nil {
		return nil, dErrors.Classify(err, dErrors.CodeInternal, "failed to verify credentials")
	}
	if !p.Active {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
	}
	return p, nil
}

// IsActive reports whether a partner exists and may act. Missing partners are
// inactive rather than an error.
func (s *Service) IsActive(ctx context.Context, id domain.PartnerID) (bool, error) {
	p, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return p.Active, nil
}

func (s *Service) requireBranch(ctx context.Context, id *domain.BranchID) error {
	if id == nil || s.branches == nil {
		return nil
	}
	ok, err := s.branches.Exists(ctx, *id)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load branch")
	}
	if !ok {
		return dErrors.New(dErrors.CodeNotFound, "branch not found")
	}
	return nil
}

func canSee(actor scope.Actor, p *models.Partner) bool {
	switch {
	case actor.IsAdmin(), actor.Is(p.ID):
		return true
	case actor.Role == scope.RoleBranchManager && actor.HasBranch():
		return p.InBranch(*actor.BranchID)
	default:
		return false
	}
}

func wrapPartnerErr(err error) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "partner not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeConflict, "partner conflicts with an existing record")
	default:
		return dErrors.Classify(err, dErrors.CodeInternal, "partner store failure")
	}
}

func (s *Service) logAudit(ctx context.Context, event string, actor scope.Actor, attributes ...any) {
	args := append(attributes,
		"event", event,
		"log_type", "audit",
		"actor_id", actor.ID,
		"request_id", requestcontext.RequestID(ctx),
	)
	s.logger.InfoContext(ctx, event, args...)
}
