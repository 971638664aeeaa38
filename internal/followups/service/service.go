// Package service schedules and completes follow-ups on leads.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"idbcrm/internal/followups/models"
	"idbcrm/internal/scope"
	timelineModels "idbcrm/internal/timeline/models"
	"idbcrm/pkg/domain"
	dErrors "idbcrm/pkg/domain-errors"
	"idbcrm/pkg/platform/sentinel"
	"idbcrm/pkg/platform/tx"
	"idbcrm/pkg/requestcontext"
)

type Store interface {
	Create(ctx context.Context, f *models.FollowUp) error
	FindByID(ctx context.Context, id domain.FollowUpID) (*models.FollowUp, error)
	ListForLead(ctx context.Context, leadID domain.LeadID) ([]*models.FollowUp, error)
	ListDue(ctx context.Context, sc scope.Scope, from, to time.Time) ([]*models.Due, error)
	Update(ctx context.Context, f *models.FollowUp) error
	Delete(ctx context.Context, id domain.FollowUpID) error
}

// LeadGuard returns NotFound unless the lead is visible within the scope.
type LeadGuard interface {
	Check(ctx context.Context, actor scope.Actor, sc scope.Scope, leadID domain.LeadID) error
}

// Recorder appends timeline events in the caller's transaction.
type Recorder interface {
	Record(ctx context.Context, in timelineModels.RecordInput) (*timelineModels.Event, error)
}

type Service struct {
	store    Store
	guard    LeadGuard
	timeline Recorder
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

func New(store Store, guard LeadGuard, timeline Recorder, opts ...Option) *Service {
	s := &Service{store: store, guard: guard, timeline: timeline, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	if s.tx == nil {
		s.tx = tx.NewLocal()
	}
	return s
}

// Create schedules a follow-up and records LEAD_FOLLOWUP_ADDED with its title.
func (s *Service) Create(ctx context.Context, actor scope.Actor, in models.CreateFollowUpInput) (*models.FollowUp, error) {
	sc, err := scope.Resolve(actor)
	if err != nil {
		return nil, err
	}
	in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)
	f := &models.FollowUp{
		ID:          domain.New[domain.FollowUpID](),
		LeadID:      in.LeadID,
		Title:       in.Title,
		Description: in.Description,
		DueDate:     in.DueDate,
		CreatedBy:   actor.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.guard.Check(txCtx, actor, sc, in.LeadID); err != nil {
			return err
		}
		if err := s.store.Create(txCtx, f); err != nil {
			return wrapFollowUpErr(err)
		}
		return s.record(txCtx, f, timelineModels.EventFollowUpAdded, actor)
	})
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, "followup_created", actor, "followup_id", f.ID, "lead_id", f.LeadID)
	return f, nil
}

// ListForLead returns a visible lead's follow-ups by due date.
func (s *Service) ListForLead(ctx context.Context, actor scope.Actor, leadID domain.LeadID) ([]*models.FollowUp, error) {
	sc, err := scope.Resolve(actor)
	if err != nil {
		return nil, err
	}
	if err := s.guard.Check(ctx, actor, sc, leadID); err != nil {
		return nil, err
	}
	out, err := s.store.ListForLead(ctx, leadID)
	if err != nil {
		return nil, wrapFollowUpErr(err)
	}
	if out == nil {
		out = []*models.FollowUp{}
	}
	return out, nil
}

// ListDue returns the open follow-ups due on day's calendar date, on leads
// visible to the actor.
func (s *Service) ListDue(ctx context.Context, actor scope.Actor, day time.Time) ([]*models.Due, error) {
	sc, err := scope.Resolve(actor)
	if err != nil {
		return nil, err
	}
	from, to := models.DayBounds(day)
	out, err := s.store.ListDue(ctx, sc, from, to)
	if err != nil {
		return nil, wrapFollowUpErr(err)
	}
	if out == nil {
		out = []*models.Due{}
	}
	return out, nil
}

// Update applies a partial update. Completing an open follow-up stamps
// completed_at and records LEAD_FOLLOWUP_COMPLETED; re-completing a completed
// one records nothing.
func (s *Service) Update(ctx context.Context, actor scope.Actor, id domain.FollowUpID, in models.UpdateFollowUpInput) (*models.FollowUp, error) {
	in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}
	var updated *models.FollowUp
	completed := false
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		f, err := s.loadVisible(txCtx, actor, id)
		if err != nil {
			return err
		}
		if !actor.IsAdmin() && !actor.Is(f.CreatedBy) {
			return dErrors.New(dErrors.CodeForbidden, "only the creator or an admin can update this follow-up")
		}
		now := requestcontext.Now(txCtx)
		if in.Title != nil {
			f.Title = *in.Title
		}
		if in.Description != nil {
			f.Description = *in.Description
		}
		if in.DueDate != nil {
			f.DueDate = *in.DueDate
		}
		if in.Completed != nil && *in.Completed != f.Completed {
			f.Completed = *in.Completed
			if f.Completed {
				f.CompletedAt = &now
				completed = true
			} else {
				f.CompletedAt = nil
			}
		}
		f.UpdatedAt = now
		if err := s.store.Update(txCtx, f); err != nil {
			return wrapFollowUpErr(err)
		}
		if completed {
			if err := s.record(txCtx, f, timelineModels.EventFollowUpCompleted, actor); err != nil {
				return err
			}
		}
		updated = f
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, "followup_updated", actor, "followup_id", id, "completed", completed)
	return updated, nil
}

// Delete removes a follow-up. Only its creator or an admin may delete it.
func (s *Service) Delete(ctx context.Context, actor scope.Actor, id domain.FollowUpID) error {
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		f, err := s.loadVisible(txCtx, actor, id)
		if err != nil {
			return err
		}
		if !actor.IsAdmin() && !actor.Is(f.CreatedBy) {
			return dErrors.New(dErrors.CodeForbidden, "only the creator or an admin can delete this follow-up")
		}
		return wrapFollowUpErr(s.store.Delete(txCtx, id))
	})
	if err != nil {
		return err
	}
	s.logAudit(ctx, "followup_deleted", actor, "followup_id", id)
	return nil
}

func (s *Service) loadVisible(ctx context.Context, actor scope.Actor, id domain.FollowUpID) (*models.FollowUp, error) {
	sc, err := scope.Resolve(actor)
	if err != nil {
		return nil, err
	}
	f, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, wrapFollowUpErr(err)
	}
	if err := s.guard.Check(ctx, actor, sc, f.LeadID); err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "follow-up not found")
		}
		return nil, err
	}
	return f, nil
}

func (s *Service) record(ctx context.Context, f *models.FollowUp, t timelineModels.EventType, actor scope.Actor) error {
	_, err := s.timeline.Record(ctx, timelineModels.RecordInput{
		LeadID:   f.LeadID,
		Type:     t,
		ActorID:  actor.ID,
		NewState: f.Title,
	})
	return err
}

func wrapFollowUpErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "follow-up not found")
	default:
		return dErrors.Classify(err, dErrors.CodeInternal, "follow-up store failure")
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
