// Package service manages announcements. Every partner reads the
// announcements addressed to them; only admins publish and edit.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"idbcrm/internal/announcements/models"
	"idbcrm/internal/scope"
	"idbcrm/pkg/domain"
	dErrors "idbcrm/pkg/domain-errors"
	"idbcrm/pkg/platform/sentinel"
	"idbcrm/pkg/platform/tx"
	"idbcrm/pkg/requestcontext"
)

type Store interface {
	Create(ctx context.Context, a *models.Announcement) error
	FindByID(ctx context.Context, id domain.AnnouncementID) (*models.Announcement, error)
	ListVisible(ctx context.Context, v models.Visibility) ([]*models.View, error)
	UnreadCount(ctx context.Context, v models.Visibility) (int, error)
	ReadAt(ctx context.Context, id domain.AnnouncementID, partner domain.PartnerID) (*time.Time, error)
	MarkRead(ctx context.Context, id domain.AnnouncementID, partner domain.PartnerID, at time.Time) error
	Update(ctx context.Context, a *models.Announcement) error
	Delete(ctx context.Context, id domain.AnnouncementID) error
}

// BranchChecker confirms a targeted branch exists.
type BranchChecker interface {
	Exists(ctx context.Context, id domain.BranchID) (bool, error)
}

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

func WithBranchChecker(b BranchChecker) Option {
	return func(s *Service) { s.branches = b }
}

func New(store Store, opts ...Option) *Service {
	s := &Service{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	if s.tx == nil {
		s.tx = tx.NewLocal()
	}
	return s
}

// Create publishes an announcement. New announcements are active unless the
// input says otherwise.
func (s *Service) Create(ctx context.Context, actor scope.Actor, in models.CreateAnnouncementInput) (*models.Announcement, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)
	a := &models.Announcement{
		ID:             domain.New[domain.AnnouncementID](),
		Title:          in.Title,
		Content:        in.Content,
		TargetAudience: in.TargetAudience,
		Users:          in.Users,
		BranchID:       in.BranchID,
		IsActive:       in.IsActive == nil || *in.IsActive,
		CreatedBy:      actor.ID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if a.TargetAudience == models.AudienceBranch {
		a.Users = []domain.PartnerID{}
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	if err := s.checkBranch(ctx, a.BranchID); err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, a); err != nil {
		return nil, wrapAnnouncementErr(err)
	}
	s.logAudit(ctx, "announcement_created", actor, "announcement_id", a.ID, "audience", string(a.TargetAudience))
	return a, nil
}

// List returns the announcements visible to actor, newest first. Only admins
// may include inactive ones; the flag is ignored for everyone else.
func (s *Service) List(ctx context.Context, actor scope.Actor, includeInactive bool) ([]*models.View, error) {
	items, err := s.store.ListVisible(ctx, models.VisibilityFor(actor, includeInactive))
	if err != nil {
		return nil, wrapAnnouncementErr(err)
	}
	if items == nil {
		items = []*models.View{}
	}
	return items, nil
}

// UnreadCount counts active visible announcements actor has not read.
func (s *Service) UnreadCount(ctx context.Context, actor scope.Actor) (int, error) {
	n, err := s.store.UnreadCount(ctx, models.VisibilityFor(actor, false))
	if err != nil {
		return 0, wrapAnnouncementErr(err)
	}
	return n, nil
}

// Get returns one announcement; one the actor cannot see is NotFound.
func (s *Service) Get(ctx context.Context, actor scope.Actor, id domain.AnnouncementID) (*models.View, error) {
	a, err := s.loadVisible(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, a, actor.ID)
}

// MarkRead records that actor read the announcement, refreshing read_at on
// repeat calls.
func (s *Service) MarkRead(ctx context.Context, actor scope.Actor, id domain.AnnouncementID) (*models.View, error) {
	a, err := s.loadVisible(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := s.store.MarkRead(ctx, id, actor.ID, requestcontext.Now(ctx)); err != nil {
		return nil, wrapAnnouncementErr(err)
	}
	return s.view(ctx, a, actor.ID)
}

func (s *Service) Update(ctx context.Context, actor scope.Actor, id domain.AnnouncementID, in models.UpdateAnnouncementInput) (*models.Announcement, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}
	var updated *models.Announcement
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		a, err := s.store.FindByID(txCtx, id)
		if err != nil {
			return wrapAnnouncementErr(err)
		}
		in.Apply(a)
		if err := a.Validate(); err != nil {
			return err
		}
		if in.BranchID != nil {
			if err := s.checkBranch(txCtx, a.BranchID); err != nil {
				return err
			}
		}
		a.UpdatedAt = requestcontext.Now(txCtx)
		if err := s.store.Update(txCtx, a); err != nil {
			return wrapAnnouncementErr(err)
		}
		updated = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, "announcement_updated", actor, "announcement_id", id)
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, actor scope.Actor, id domain.AnnouncementID) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return wrapAnnouncementErr(err)
	}
	s.logAudit(ctx, "announcement_deleted", actor, "announcement_id", id)
	return nil
}

func (s *Service) loadVisible(ctx context.Context, actor scope.Actor, id domain.AnnouncementID) (*models.Announcement, error) {
	a, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, wrapAnnouncementErr(err)
	}
	if !models.VisibilityFor(actor, true).Permits(a) {
		return nil, dErrors.New(dErrors.CodeNotFound, "announcement not found")
	}
	return a, nil
}

func (s *Service) view(ctx context.Context, a *models.Announcement, viewer domain.PartnerID) (*models.View, error) {
	at, err := s.store.ReadAt(ctx, a.ID, viewer)
	if err != nil {
		return nil, wrapAnnouncementErr(err)
	}
	return &models.View{Announcement: a, IsRead: at != nil, ReadAt: at}, nil
}

func (s *Service) checkBranch(ctx context.Context, id *domain.BranchID) error {
	if id == nil || s.branches == nil {
		return nil
	}
	ok, err := s.branches.Exists(ctx, *id)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load branch")
	}
	if !ok {
		return dErrors.New(dErrors.CodeValidation, "branch_id does not exist")
	}
	return nil
}

func requireAdmin(actor scope.Actor) error {
	if !actor.IsAdmin() {
		return dErrors.New(dErrors.CodeForbidden, "only admins can manage announcements")
	}
	return nil
}

func wrapAnnouncementErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "announcement not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeConflict, "announcement already exists")
	default:
		return dErrors.Classify(err, dErrors.CodeInternal, "announcement store failure")
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
