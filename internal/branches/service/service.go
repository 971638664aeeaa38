// Package service manages the branch hierarchy. Reads are open to every
// authenticated partner; mutations are admin-only.
package service

import (
	"context"
	"errors"
	"log/slog"

	"idbcrm/internal/branches/models"
	partnerModels "idbcrm/internal/partners/models"
	"idbcrm/internal/scope"
	"idbcrm/pkg/domain"
	dErrors "idbcrm/pkg/domain-errors"
	"idbcrm/pkg/platform/sentinel"
	"idbcrm/pkg/platform/tx"
	"idbcrm/pkg/requestcontext"
)

// maxDepth bounds the ancestor walk of the cycle check.
const maxDepth = 64

// Store persists branches.
type Store interface {
	Create(ctx context.Context, b *models.Branch) error
	FindByID(ctx context.Context, id domain.BranchID) (*models.Branch, error)
	List(ctx context.Context) ([]*models.Branch, error)
	Children(ctx context.Context, id domain.BranchID) ([]*models.Branch, error)
	Update(ctx context.Context, b *models.Branch) error
	Delete(ctx context.Context, id domain.BranchID) error
}

// Members lists the partners of a branch.
type Members interface {
	List(ctx context.Context, f partnerModels.Filter) ([]*partnerModels.Partner, error)
	CountByBranch(ctx context.Context, id domain.BranchID) (int, error)
}

// Service manages branches.
type Service struct {
	store   Store
	members Members
	tx      tx.Runner
	logger  *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithTx(runner tx.Runner) Option {
	return func(s *Service) { s.tx = runner }
}

// New constructs the branch service.
func New(store Store, members Members, opts ...Option) *Service {
	s := &Service{store: store, members: members, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	if s.tx == nil {
		s.tx = tx.NewLocal()
	}
	return s
}

// Create adds a branch. The code must be unique and the parent must exist.
func (s *Service) Create(ctx context.Context, actor scope.Actor, in models.CreateBranchInput) (*models.Branch, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	b := &models.Branch{
		ID:        domain.New[domain.BranchID](),
		Name:      in.Name,
		Code:      in.Code,
		Type:      in.Type,
		Address:   in.Address,
		Phone:     in.Phone,
		ParentID:  in.ParentID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if b.ParentID != nil {
			parent, err := s.store.FindByID(txCtx, *b.ParentID)
			if err != nil {
				if errors.Is(err, sentinel.ErrNotFound) {
					return dErrors.New(dErrors.CodeNotFound, "parent branch not found")
				}
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load parent branch")
			}
			b.ParentName = parent.Name
		}
		if err := s.store.Create(txCtx, b); err != nil {
			return wrapBranchErr(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, "branch_created", actor, "branch_id", b.ID, "code", b.Code)
	return b, nil
}

// List returns every branch newest first.
func (s *Service) List(ctx context.Context) ([]*models.Branch, error) {
	branches, err := s.store.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list branches")
	}
	if branches == nil {
		branches = []*models.Branch{}
	}
	return branches, nil
}

// Get returns a branch with its parent, children and members.
func (s *Service) Get(ctx context.Context, id domain.BranchID) (*models.Detail, error) {
	b, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, wrapBranchErr(err)
	}
	d := &models.Detail{Branch: b, Children: []*models.Branch{}, Members: []*partnerModels.Partner{}}
	if b.ParentID != nil {
		if parent, err := s.store.FindByID(ctx, *b.ParentID); err == nil {
			d.Parent = parent
		}
	}
	children, err := s.store.Children(ctx, id)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load child branches")
	}
	if children != nil {
		d.Children = children
	}
	members, err := s.members.List(ctx, partnerModels.Filter{BranchID: &id})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load branch members")
	}
	if members != nil {
		d.Members = members
	}
	return d, nil
}

// Exists reports whether a branch exists.
func (s *Service) Exists(ctx context.Context, id domain.BranchID) (bool, error) {
	_, err := s.store.FindByID(ctx, id)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, sentinel.ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}

// Update applies a partial update. A branch cannot become its own ancestor.
func (s *Service) Update(ctx context.Context, actor scope.Actor, id domain.BranchID, in models.UpdateBranchInput) (*models.Branch, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}

	var updated *models.Branch
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		b, err := s.store.FindByID(txCtx, id)
		if err != nil {
			return wrapBranchErr(err)
		}
		if in.Name != nil {
			b.Name = *in.Name
		}
		if in.Code != nil {
			b.Code = *in.Code
		}
		if in.Type != nil {
			b.Type = *in.Type
		}
		if in.Address != nil {
			b.Address = *in.Address
		}
		if in.Phone != nil {
			b.Phone = *in.Phone
		}
		if in.ClearParent {
			b.ParentID = nil
		}
		if in.ParentID != nil {
			if err := s.checkParent(txCtx, id, *in.ParentID); err != nil {
				return err
			}
			b.ParentID = in.ParentID
		}
		b.UpdatedAt = requestcontext.Now(txCtx)
		if err := s.store.Update(txCtx, b); err != nil {
			return wrapBranchErr(err)
		}
		updated, err = s.store.FindByID(txCtx, id)
		return wrapBranchErr(err)
	})
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, "branch_updated", actor, "branch_id", id)
	return updated, nil
}

// Delete removes a branch without children or members.
func (s *Service) Delete(ctx context.Context, actor scope.Actor, id domain.BranchID) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if _, err := s.store.FindByID(txCtx, id); err != nil {
			return wrapBranchErr(err)
		}
		children, err := s.store.Children(txCtx, id)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load child branches")
		}
		if len(children) > 0 {
			return dErrors.Newf(dErrors.CodeConflict, "branch has %d child branches", len(children))
		}
		n, err := s.members.CountByBranch(txCtx, id)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to count branch members")
		}
		if n > 0 {
			return dErrors.Newf(dErrors.CodeConflict, "branch has %d members", n)
		}
		if err := s.store.Delete(txCtx, id); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.New(dErrors.CodeConflict, "branch is still referenced")
			}
			return wrapBranchErr(err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logAudit(ctx, "branch_deleted", actor, "branch_id", id)
	return nil
}

// checkParent rejects a parent that is the branch itself or one of its descendants.
func (s *Service) checkParent(ctx context.Context, id, parentID domain.BranchID) error {
	if parentID == id {
		return dErrors.New(dErrors.CodeValidation, "branch cannot be its own parent")
	}
	cursor := &parentID
	for depth := 0; cursor != nil; depth++ {
		if depth > maxDepth {
			return dErrors.New(dErrors.CodeValidation, "branch hierarchy is too deep")
		}
		b, err := s.store.FindByID(ctx, *cursor)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) && depth == 0 {
				return dErrors.New(dErrors.CodeNotFound, "parent branch not found")
			}
			return wrapBranchErr(err)
		}
		if b.ParentID != nil && *b.ParentID == id {
			return dErrors.New(dErrors.CodeValidation, "parent cannot be a descendant of the branch")
		}
		cursor = b.ParentID
	}
	return nil
}

func requireAdmin(actor scope.Actor) error {
	if !actor.IsAdmin() {
		return dErrors.New(dErrors.CodeForbidden, "only admins can manage branches")
	}
	return nil
}

func wrapBranchErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "branch not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeConflict, "branch code already exists")
	default:
		return dErrors.Classify(err, dErrors.CodeInternal, "branch store failure")
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
